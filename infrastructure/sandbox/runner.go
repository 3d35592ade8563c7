// Package sandbox executes WebAssembly tools in an isolated wazero runtime.
//
// Tools follow the WASI command model: the input arguments arrive as a
// JSON document on stdin, the result is written as JSON to stdout, and a
// non-zero exit code marks the invocation as failed with stderr as the
// reason.
package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"

	"github.com/felixgeelhaar/gateway-go/domain/config"
	"github.com/felixgeelhaar/gateway-go/domain/tool"
)

const (
	defaultMaxMemory = 64 * 1024 * 1024
	defaultTimeout   = 30 * time.Second
	wasmPageSize     = 65536
)

// Runner compiles and runs WebAssembly tool modules.
type Runner struct {
	runtime   wazero.Runtime
	timeout   time.Duration
	mu        sync.Mutex
	compiled  map[string]wazero.CompiledModule
	instances int
	closed    bool
}

// Option configures the runner.
type Option func(*options)

type options struct {
	maxMemory int64
	timeout   time.Duration
}

// WithMaxMemory caps the linear memory available to each module, in bytes.
func WithMaxMemory(n int64) Option {
	return func(o *options) {
		o.maxMemory = n
	}
}

// WithTimeout sets the per-invocation deadline.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// New creates a runner. The runtime closes in-flight modules when their
// invocation context ends, which is what enforces the timeout.
func New(opts ...Option) (*Runner, error) {
	o := options{
		maxMemory: defaultMaxMemory,
		timeout:   defaultTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}

	maxPages := uint32(o.maxMemory / wasmPageSize) // #nosec G115 -- page count bounded by memory cap
	if maxPages == 0 {
		maxPages = 1
	}
	runtimeConfig := wazero.NewRuntimeConfig().
		WithMemoryLimitPages(maxPages).
		WithCloseOnContextDone(true)

	ctx := context.Background()
	runtime := wazero.NewRuntimeWithConfig(ctx, runtimeConfig)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, runtime); err != nil {
		_ = runtime.Close(ctx)
		return nil, fmt.Errorf("failed to instantiate WASI: %w", err)
	}

	return &Runner{
		runtime:  runtime,
		timeout:  o.timeout,
		compiled: make(map[string]wazero.CompiledModule),
	}, nil
}

// Load compiles a module and wraps it as a tool. The schema describes
// the JSON document the module reads from stdin.
func (r *Runner) Load(name, description string, schema tool.Schema, wasmBytes []byte) (tool.Tool, error) {
	if name == "" {
		return nil, tool.ErrEmptyName
	}
	if len(wasmBytes) == 0 {
		return nil, fmt.Errorf("%w: empty module for %s", ErrInvalidModule, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrRunnerClosed
	}

	compiled, err := r.runtime.CompileModule(context.Background(), wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidModule, name, err)
	}
	r.compiled[name] = compiled

	return tool.NewBuilder(name).
		WithDescription(description).
		WithInputSchema(schema).
		WithOrigin(tool.OriginLocal).
		WithHandler(r.handler(name, schema)).
		Build()
}

// LoadFile compiles a module from disk.
func (r *Runner) LoadFile(name, description string, schema tool.Schema, path string) (tool.Tool, error) {
	wasmBytes, err := os.ReadFile(path) // #nosec G304 -- path comes from operator configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read module %s: %w", path, err)
	}
	return r.Load(name, description, schema, wasmBytes)
}

// FromConfig loads every configured WebAssembly tool.
func (r *Runner) FromConfig(configs []config.WasmToolConfig) ([]tool.Tool, error) {
	tools := make([]tool.Tool, 0, len(configs))
	for _, wc := range configs {
		schema, err := schemaFromJSON(wc.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", wc.Name, err)
		}
		t, err := r.LoadFile(wc.Name, wc.Description, schema, wc.Path)
		if err != nil {
			return nil, err
		}
		tools = append(tools, t)
	}
	return tools, nil
}

func (r *Runner) handler(name string, schema tool.Schema) tool.Handler {
	return func(ctx context.Context, input json.RawMessage) (tool.Result, error) {
		if err := schema.Validate(input); err != nil {
			return tool.NewFailureResult(err), nil
		}
		return r.invoke(ctx, name, input)
	}
}

func (r *Runner) invoke(ctx context.Context, name string, input json.RawMessage) (tool.Result, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return tool.Result{}, ErrRunnerClosed
	}
	compiled, ok := r.compiled[name]
	r.instances++
	instance := fmt.Sprintf("%s-%d", name, r.instances)
	r.mu.Unlock()
	if !ok {
		return tool.Result{}, fmt.Errorf("%w: %s", ErrModuleNotLoaded, name)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if len(input) == 0 {
		input = json.RawMessage(`{}`)
	}
	var stdout, stderr bytes.Buffer
	moduleConfig := wazero.NewModuleConfig().
		WithName(instance).
		WithArgs(name).
		WithStdin(bytes.NewReader(input)).
		WithStdout(&stdout).
		WithStderr(&stderr)

	// Each invocation gets a fresh instance so module state never leaks
	// between calls. InstantiateModule runs the WASI _start function.
	mod, err := r.runtime.InstantiateModule(ctx, compiled, moduleConfig)
	if err != nil {
		var exitErr *sys.ExitError
		if errors.As(err, &exitErr) {
			switch exitErr.ExitCode() {
			case 0:
				return resultFromStdout(stdout.Bytes()), nil
			case sys.ExitCodeDeadlineExceeded, sys.ExitCodeContextCanceled:
				return tool.NewFailureResult(tool.ErrExecutionTimeout), nil
			default:
				return tool.NewFailureResult(errors.New(failureReason(exitErr.ExitCode(), stderr.Bytes()))), nil
			}
		}
		if ctx.Err() != nil {
			return tool.NewFailureResult(tool.ErrExecutionTimeout), nil
		}
		return tool.Result{}, fmt.Errorf("wasm execution failed: %w", err)
	}
	defer mod.Close(ctx)

	return resultFromStdout(stdout.Bytes()), nil
}

func resultFromStdout(out []byte) tool.Result {
	out = bytes.TrimSpace(out)
	if len(out) == 0 {
		return tool.NewResult(json.RawMessage(`{}`))
	}
	if json.Valid(out) {
		return tool.NewResult(json.RawMessage(out))
	}
	quoted, _ := json.Marshal(string(out))
	return tool.NewResult(quoted)
}

func failureReason(code uint32, stderr []byte) string {
	reason := strings.TrimSpace(string(stderr))
	if reason == "" {
		reason = fmt.Sprintf("module exited with code %d", code)
	}
	return reason
}

// schemaFromJSON parses a raw JSON schema into the domain representation.
func schemaFromJSON(raw json.RawMessage) (tool.Schema, error) {
	if len(raw) == 0 {
		return tool.ObjectSchema(nil, nil), nil
	}
	var doc struct {
		Properties map[string]struct {
			Type        string `json:"type"`
			Description string `json:"description"`
		} `json:"properties"`
		Required []string `json:"required"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return tool.Schema{}, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	props := make([]tool.Property, 0, len(doc.Properties))
	for name, p := range doc.Properties {
		props = append(props, tool.Property{
			Name:        name,
			Type:        p.Type,
			Description: p.Description,
		})
	}
	return tool.ObjectSchema(props, doc.Required), nil
}

// Loaded reports the names of compiled modules.
func (r *Runner) Loaded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.compiled))
	for name := range r.compiled {
		names = append(names, name)
	}
	return names
}

// Close releases the runtime and all compiled modules.
func (r *Runner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.runtime.Close(context.Background())
}
