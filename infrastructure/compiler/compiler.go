// Package compiler turns caller-supplied Go source text into invocable
// tools. Compiled bodies run inside a yaegi interpreter rather than
// being built with the Go toolchain, so a malformed or hostile body can
// fail its own invocation but never the host process.
package compiler

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/traefik/yaegi/interp"

	"github.com/felixgeelhaar/gateway-go/domain/tool"
	"github.com/felixgeelhaar/gateway-go/infrastructure/logging"
)

// Mode selects the execution trust level for compiled tools.
type Mode string

const (
	// ModeTrusted exposes the full standard library to compiled bodies.
	ModeTrusted Mode = "trusted"

	// ModeSandboxed restricts compiled bodies to a safe package subset
	// with no filesystem, network, or process access.
	ModeSandboxed Mode = "sandboxed"
)

// defaultTimeout bounds a single compiled tool invocation.
const defaultTimeout = 5 * time.Second

// Request describes a tool to compile.
type Request struct {
	// Name is the registry name for the tool.
	Name string

	// Description describes the tool to the model.
	Description string

	// Schema declares the named parameters. Property declaration order
	// determines positional binding order in the compiled body.
	Schema tool.Schema

	// Body is the Go source of the function body. It receives the
	// schema's properties as typed parameters and must return a value.
	Body string
}

// Compiler compiles source text into registry-ready tools.
type Compiler struct {
	mode    Mode
	timeout time.Duration
}

// Option configures the compiler.
type Option func(*Compiler)

// WithMode sets the execution trust level.
func WithMode(mode Mode) Option {
	return func(c *Compiler) {
		c.mode = mode
	}
}

// WithTimeout sets the wall-clock bound for a single invocation.
func WithTimeout(d time.Duration) Option {
	return func(c *Compiler) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// New creates a compiler. The default mode is trusted with a five
// second invocation timeout.
func New(opts ...Option) *Compiler {
	c := &Compiler{
		mode:    ModeTrusted,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile synthesizes a function around the request body, evaluates it,
// and wraps it as a tool. Compilation errors (bad name, invalid
// parameter names, source that does not parse or evaluate) are returned
// to the caller; once compiled, invocation failures are converted into
// structured failure results and never propagate.
func (c *Compiler) Compile(req Request) (tool.Tool, error) {
	if req.Name == "" {
		return nil, tool.ErrEmptyName
	}

	src, err := synthesize(req.Body, req.Schema.Properties())
	if err != nil {
		return nil, err
	}

	i := interp.New(interp.Options{})
	if err := i.Use(c.symbols()); err != nil {
		return nil, fmt.Errorf("loading interpreter symbols: %w", err)
	}
	if _, err := i.Eval(src); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEval, err)
	}

	v, err := i.Eval("tools.run")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEval, err)
	}
	fn := v
	if fn.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w: synthesized entry point is %s, not func", ErrEval, fn.Kind())
	}
	if fn.Type().NumIn() != len(req.Schema.Properties()) {
		return nil, fmt.Errorf("%w: parameter arity mismatch", ErrEval)
	}

	logging.Debug().
		Add(logging.Component("compiler")).
		Add(logging.ToolName(req.Name)).
		Add(logging.Str("mode", string(c.mode))).
		Add(logging.Count("params", len(req.Schema.Properties()))).
		Msg("compiled dynamic tool")

	handler := c.handler(fn, req.Schema)
	return tool.NewBuilder(req.Name).
		WithDescription(req.Description).
		WithInputSchema(req.Schema).
		WithOrigin(tool.OriginLocal).
		WithHandler(handler).
		Build()
}

// handler wraps the compiled function. A single interpreter instance is
// not safe for concurrent calls, so invocations are serialized.
func (c *Compiler) handler(fn reflect.Value, schema tool.Schema) tool.Handler {
	var mu sync.Mutex

	return func(ctx context.Context, input json.RawMessage) (tool.Result, error) {
		if err := schema.Validate(input); err != nil {
			return tool.NewFailureResult(err), nil
		}

		in, err := bindArguments(fn.Type(), schema.Properties(), input)
		if err != nil {
			return tool.NewFailureResult(err), nil
		}

		start := time.Now()
		results := make(chan tool.Result, 1)

		call := func() []reflect.Value {
			mu.Lock()
			defer mu.Unlock()
			return fn.Call(in)
		}

		go func() {
			defer func() {
				if r := recover(); r != nil {
					results <- tool.NewFailureResult(fmt.Errorf("%v", r))
				}
			}()

			out := call()

			output, err := json.Marshal(out[0].Interface())
			if err != nil {
				results <- tool.NewFailureResult(fmt.Errorf("marshaling result: %w", err))
				return
			}
			results <- tool.NewResult(output)
		}()

		select {
		case res := <-results:
			res.Duration = time.Since(start)
			return res, nil
		case <-time.After(c.timeout):
			return tool.NewFailureResult(tool.ErrExecutionTimeout), nil
		case <-ctx.Done():
			return tool.NewFailureResult(ctx.Err()), nil
		}
	}
}

// bindArguments decodes the JSON argument object into positional values
// matching the compiled function's parameter types. Absent optional
// arguments bind to their zero value.
func bindArguments(fnType reflect.Type, props []tool.Property, input json.RawMessage) ([]reflect.Value, error) {
	args := make(map[string]json.RawMessage)
	if len(input) > 0 {
		if err := json.Unmarshal(input, &args); err != nil {
			return nil, fmt.Errorf("arguments are not a JSON object: %w", err)
		}
	}

	in := make([]reflect.Value, 0, fnType.NumIn())
	for i, p := range props {
		ptr := reflect.New(fnType.In(i))
		if raw, ok := args[p.Name]; ok {
			if err := json.Unmarshal(raw, ptr.Interface()); err != nil {
				return nil, fmt.Errorf("argument %q: %w", p.Name, err)
			}
		}
		in = append(in, ptr.Elem())
	}
	return in, nil
}
