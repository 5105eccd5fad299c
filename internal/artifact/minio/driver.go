// Package minio provides a MinIO implementation of artifact.Sink.
//
// Usage:
//
//	cfg := &artifact.Config{Endpoint: "localhost:9000", AccessKey: "…", SecretKey: "…", Bucket: "pgbridge-results"}
//	sink, err := minio.New(ctx, cfg)
//	if err != nil { ... }
//	defer sink.Close()
package minio

import (
	"bytes"
	"context"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/koustreak/pgbridge/internal/artifact"
	"github.com/koustreak/pgbridge/internal/errs"
)

// Driver is a MinIO implementation of artifact.Sink.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	client *miniogo.Client
	bucket string
}

// New connects to MinIO using the provided Config and returns a Driver.
// The target bucket is created when it does not exist yet.
func New(ctx context.Context, cfg *artifact.Config) (*Driver, error) {
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnection, "failed to create minio client", err)
	}

	d := &Driver{client: client, bucket: cfg.Bucket}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnection, "failed to check artifact bucket", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, miniogo.MakeBucketOptions{}); err != nil {
			return nil, errs.Wrap(errs.ErrKindConnection, "failed to create artifact bucket", err)
		}
	}

	return d, nil
}

// Put writes payload under key with a JSON content type.
func (d *Driver) Put(ctx context.Context, key string, payload []byte) error {
	_, err := d.client.PutObject(ctx, d.bucket, key,
		bytes.NewReader(payload), int64(len(payload)),
		miniogo.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return errs.Wrap(errs.ErrKindExecution, "failed to store artifact", err)
	}
	return nil
}

// Close is a no-op; the SDK client holds no persistent connections.
func (d *Driver) Close() error {
	return nil
}
