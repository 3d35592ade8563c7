package provider

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	gatewaygo "github.com/felixgeelhaar/gateway-go"
	"github.com/felixgeelhaar/gateway-go/domain/provider"
	"github.com/felixgeelhaar/gateway-go/domain/tool"
	"github.com/felixgeelhaar/gateway-go/infrastructure/logging"
)

// shutdownGrace is how long Shutdown waits for a provider to exit after
// its stdin closes before killing it.
const shutdownGrace = 3 * time.Second

// Manager owns one provider subprocess: it launches the process,
// performs the initialize handshake, correlates concurrent requests by
// id, detects subprocess death, and shuts the process down exactly
// once.
type Manager struct {
	spec provider.LaunchSpec

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser

	encoder *json.Encoder
	encMu   sync.Mutex

	reqID   atomic.Int64
	pending map[int64]chan *rpcResponse
	pendMu  sync.Mutex

	dead     atomic.Bool
	exited   chan struct{}
	shutdown sync.Once
	started  bool
}

// NewManager creates a manager for the given launch spec. The process
// is not started until Start is called.
func NewManager(spec provider.LaunchSpec) *Manager {
	return &Manager{
		spec:    spec,
		pending: make(map[int64]chan *rpcResponse),
		exited:  make(chan struct{}),
	}
}

// Spec returns the launch spec the manager was created from.
func (m *Manager) Spec() provider.LaunchSpec {
	return m.spec
}

// Alive reports whether the subprocess is still running.
func (m *Manager) Alive() bool {
	return m.started && !m.dead.Load()
}

// Start launches the subprocess and performs the initialize handshake.
// Any failure is terminal for the manager: the process, if it started,
// is shut down before the error is returned.
func (m *Manager) Start(ctx context.Context) error {
	if m.spec.Command == "" {
		return provider.ErrCommandRequired
	}

	m.cmd = exec.Command(m.spec.Command, m.spec.Args...)
	if len(m.spec.Env) > 0 {
		m.cmd.Env = append(os.Environ(), m.spec.Env...)
	}

	var err error
	m.stdin, err = m.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("%w: stdin pipe: %v", provider.ErrBootstrap, err)
	}
	m.stdout, err = m.cmd.StdoutPipe()
	if err != nil {
		_ = m.stdin.Close()
		return fmt.Errorf("%w: stdout pipe: %v", provider.ErrBootstrap, err)
	}

	if err := m.cmd.Start(); err != nil {
		_ = m.stdin.Close()
		_ = m.stdout.Close()
		return fmt.Errorf("%w: start %q: %v", provider.ErrBootstrap, m.spec.Command, err)
	}

	m.started = true
	m.encoder = json.NewEncoder(m.stdin)
	go m.readLoop()

	if err := m.initialize(ctx); err != nil {
		_ = m.Shutdown()
		return fmt.Errorf("%w: %v", provider.ErrBootstrap, err)
	}

	logging.Info().
		Add(logging.Component("provider")).
		Add(logging.Provider(m.spec.Name)).
		Add(logging.Str("command", m.spec.Command)).
		Msg("provider started")
	return nil
}

// readLoop delivers responses to their waiting callers. When the
// subprocess closes its stdout the manager is marked dead and every
// in-flight request fails with ErrProviderUnavailable.
func (m *Manager) readLoop() {
	scanner := bufio.NewScanner(m.stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var resp rpcResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			continue
		}

		id, ok := numericID(resp.ID)
		if !ok {
			continue
		}

		m.pendMu.Lock()
		if ch, exists := m.pending[id]; exists {
			ch <- &resp
			delete(m.pending, id)
		}
		m.pendMu.Unlock()
	}

	m.dead.Store(true)
	_ = m.cmd.Wait()
	close(m.exited)

	// Fail everything still in flight.
	m.pendMu.Lock()
	for id, ch := range m.pending {
		close(ch)
		delete(m.pending, id)
	}
	m.pendMu.Unlock()
}

func numericID(id any) (int64, bool) {
	switch v := id.(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	default:
		return 0, false
	}
}

func (m *Manager) initialize(ctx context.Context) error {
	params := initParams{
		ProtocolVersion: protocolVersion,
		ClientInfo: peerInfo{
			Name:    "gateway-go",
			Version: gatewaygo.Version,
		},
	}

	resp, err := m.sendRequest(ctx, "initialize", params)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	if resp.Error != nil {
		return fmt.Errorf("initialize: %s", resp.Error.Message)
	}

	var result initResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return fmt.Errorf("parse initialize result: %w", err)
	}

	return m.notify("notifications/initialized", nil)
}

// ListTools asks the provider for its tool catalog.
func (m *Manager) ListTools(ctx context.Context) ([]ToolDef, error) {
	resp, err := m.sendRequest(ctx, "tools/list", struct{}{})
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("tools/list: %s", resp.Error.Message)
	}

	var result listToolsResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, fmt.Errorf("parse tools/list result: %w", err)
	}
	return result.Tools, nil
}

// Invoke calls a provider tool. Tool-level failures reported by the
// provider become structured failure results; transport-level failures
// (dead process, protocol error) are returned as errors for the caller
// to act on.
func (m *Manager) Invoke(ctx context.Context, name string, args json.RawMessage) (tool.Result, error) {
	start := time.Now()

	resp, err := m.sendRequest(ctx, "tools/call", callToolParams{Name: name, Arguments: args})
	if err != nil {
		return tool.Result{}, err
	}
	if resp.Error != nil {
		return tool.NewFailureResult(errors.New(resp.Error.Message)), nil
	}

	var result callToolResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return tool.Result{}, fmt.Errorf("parse tools/call result: %w", err)
	}

	var text string
	if len(result.Content) > 0 {
		text = result.Content[0].Text
	}
	if result.IsError {
		res := tool.NewFailureResult(errors.New(text))
		res.Duration = time.Since(start)
		return res, nil
	}

	output, err := json.Marshal(map[string]string{"content": text})
	if err != nil {
		return tool.Result{}, err
	}
	return tool.NewResultWithDuration(output, time.Since(start)), nil
}

// sendRequest issues a correlated request and waits for its response.
func (m *Manager) sendRequest(ctx context.Context, method string, params any) (*rpcResponse, error) {
	if m.dead.Load() {
		return nil, provider.ErrProviderUnavailable
	}

	id := m.reqID.Add(1)
	paramsBytes, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}

	respCh := make(chan *rpcResponse, 1)
	m.pendMu.Lock()
	m.pending[id] = respCh
	m.pendMu.Unlock()

	req := rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: paramsBytes}
	if err := m.encode(req); err != nil {
		m.pendMu.Lock()
		delete(m.pending, id)
		m.pendMu.Unlock()
		if m.dead.Load() {
			return nil, provider.ErrProviderUnavailable
		}
		return nil, fmt.Errorf("send %s: %w", method, err)
	}

	select {
	case resp, ok := <-respCh:
		if !ok {
			return nil, provider.ErrProviderUnavailable
		}
		return resp, nil
	case <-ctx.Done():
		m.pendMu.Lock()
		delete(m.pending, id)
		m.pendMu.Unlock()
		return nil, ctx.Err()
	}
}

// notify sends a notification (no response expected).
func (m *Manager) notify(method string, params json.RawMessage) error {
	return m.encode(rpcRequest{JSONRPC: "2.0", Method: method, Params: params})
}

func (m *Manager) encode(v any) error {
	m.encMu.Lock()
	defer m.encMu.Unlock()
	return m.encoder.Encode(v)
}

// Shutdown terminates the subprocess: close stdin so the provider can
// exit cleanly, wait briefly, then kill. Shutdown is idempotent and
// returns nil on repeat calls and for processes that already died.
func (m *Manager) Shutdown() error {
	m.shutdown.Do(func() {
		if !m.started {
			return
		}

		_ = m.stdin.Close()

		select {
		case <-m.exited:
		case <-time.After(shutdownGrace):
			if m.cmd.Process != nil {
				_ = m.cmd.Process.Kill()
			}
			<-m.exited
		}

		logging.Info().
			Add(logging.Component("provider")).
			Add(logging.Provider(m.spec.Name)).
			Msg("provider stopped")
	})
	return nil
}
