// Package tools defines the gateway's tool registry and dispatch pipeline.
//
// A tool is a named, schema-declared operation: a caller supplies a JSON
// request envelope ({"arguments": {...}}) and receives a JSON response
// envelope: {"columns": ...}, {"sum": ...}, {"result": ...} or
// {"error": …}. No other shape is ever emitted, so automated callers can
// branch on the outcome deterministically.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/koustreak/pgbridge/internal/database"
	"github.com/koustreak/pgbridge/internal/errs"
	"github.com/koustreak/pgbridge/internal/logger"
)

// Property describes one declared argument of a tool. The field names match
// the catalog contract consumed by external clients.
type Property struct {
	Name        string `json:"propertyName"`
	Type        string `json:"propertyType"`
	Description string `json:"description"`
}

// Handler runs the tool-specific logic over already-extracted arguments.
// It returns either a JSON-marshalable result or an *errs.Error whose
// Message is safe to show to the caller.
type Handler func(ctx context.Context, args map[string]any) (any, *errs.Error)

// Definition is one registered tool. Immutable after registration.
type Definition struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Properties  []Property `json:"properties"`
	Handler     Handler    `json:"-"`
}

// Required returns the declared argument names, in declaration order.
// Every declared property is required.
func (d Definition) Required() []string {
	names := make([]string, len(d.Properties))
	for i, p := range d.Properties {
		names[i] = p.Name
	}
	return names
}

// Runner executes SQL and materializes results. *database.Executor is the
// production implementation; tests substitute fakes.
type Runner interface {
	Run(ctx context.Context, sql string) (*database.QueryResult, error)
}

// Registry maps tool names to definitions. It is populated once at startup
// and read-only afterwards, so concurrent Dispatch calls need no locking.
type Registry struct {
	exec  Runner
	log   *logger.Logger
	tools map[string]Definition
	order []string
}

// NewRegistry builds a registry with every builtin tool registered.
func NewRegistry(exec Runner, log *logger.Logger) *Registry {
	if log == nil {
		log = logger.Nop()
	}
	r := &Registry{
		exec:  exec,
		log:   log,
		tools: make(map[string]Definition),
	}
	r.registerBuiltins()
	return r
}

// register adds a tool. Later registrations with the same name replace
// earlier ones without disturbing catalog order.
func (r *Registry) register(def Definition) {
	if _, exists := r.tools[def.Name]; !exists {
		r.order = append(r.order, def.Name)
	}
	r.tools[def.Name] = def
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Definition, bool) {
	def, ok := r.tools[name]
	return def, ok
}

// List returns all tool definitions in registration order. The order is
// stable so the advertised catalog is deterministic.
func (r *Registry) List() []Definition {
	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name])
	}
	return defs
}

// Dispatch resolves the tool, extracts its arguments, runs the handler, and
// wraps the outcome in the response envelope. It always returns well-formed
// JSON: validation failures, execution failures, unknown tools, and handler
// panics all come back as {"error": "..."}.
func (r *Registry) Dispatch(ctx context.Context, name string, payload []byte) (out []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Errorf("tool %s panicked: %v", name, rec)
			out = errorEnvelope(fmt.Sprintf("An unexpected error occurred: %v", rec))
		}
	}()

	def, ok := r.tools[name]
	if !ok {
		r.log.Warnf("unknown tool requested: %s", name)
		return errorEnvelope("Tool not found: " + name)
	}

	args := map[string]any{}
	if len(def.Properties) > 0 {
		var verr *errs.Error
		args, verr = ExtractArgs(payload, def.Required())
		if verr != nil {
			r.log.Warnf("tool %s rejected input: %s", name, verr.Message)
			return errorEnvelope(verr.Message)
		}
	}

	result, herr := def.Handler(ctx, args)
	if herr != nil {
		r.log.ErrorWith("tool "+name+" failed", herr, map[string]any{"kind": herr.Kind.String()})
		return errorEnvelope(herr.Message)
	}

	body, err := json.Marshal(result)
	if err != nil {
		r.log.ErrorWith("tool "+name+" produced an unserializable result", err, nil)
		return errorEnvelope("An unexpected error occurred: result serialization failed")
	}
	return body
}

// errorEnvelope renders the uniform {"error": msg} shape.
func errorEnvelope(msg string) []byte {
	body, _ := json.Marshal(map[string]string{"error": msg})
	return body
}
