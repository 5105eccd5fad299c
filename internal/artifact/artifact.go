// Package artifact persists tool responses as JSON objects so an
// orchestrating caller can pick up results out-of-band. Storage is
// best-effort: a sink failure is logged by the caller and never surfaces
// in the tool response.
package artifact

import "context"

// Sink stores one serialized tool response under a key.
// Implementations must be safe for concurrent use.
type Sink interface {
	// Put writes payload (a complete JSON response envelope) under key.
	Put(ctx context.Context, key string, payload []byte) error

	// Close releases any held resources.
	Close() error
}

// Config holds all settings needed to connect to an artifact backend.
type Config struct {
	// Endpoint is the host:port of the storage server.
	// Example: "localhost:9000" for local MinIO.
	Endpoint string

	// AccessKey is the access key ID (MinIO / S3 style).
	AccessKey string

	// SecretKey is the secret access key.
	SecretKey string

	// Bucket is the bucket all artifacts are written to.
	Bucket string

	// UseSSL controls whether TLS is used for the connection.
	UseSSL bool
}

// Disabled is a Sink that drops everything. Used when no artifact backend
// is configured.
type Disabled struct{}

func (Disabled) Put(context.Context, string, []byte) error { return nil }
func (Disabled) Close() error                              { return nil }
