// Package toolproto implements the line-delimited JSON protocol used to
// talk to a tool-provider subprocess. Requests and responses correlate
// by id over a single duplex pipe; responses may arrive in any order.
package toolproto

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tyo-it/pulsa-bridge/pkg/errorsx"
)

// DefaultCallTimeout bounds how long a call waits for its response.
const DefaultCallTimeout = 30 * time.Second

type callResult struct {
	raw json.RawMessage
	err error
}

// Client owns one tool-provider subprocess and correlates calls to
// responses over its stdio pipes. Multiple calls may be in flight at
// once; the pending map, not request order, is the synchronization
// point.
type Client struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.Reader

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[int64]chan callResult

	nextID    atomic.Int64
	connected atomic.Bool

	timeout time.Duration
	logger  *slog.Logger
	name    string
}

// Option customizes a Client.
type Option func(*Client)

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a client that spawns the tool provider as a subprocess.
// Exactly one subprocess is owned per client instance.
func New(command string, args []string, opts ...Option) *Client {
	cmd := exec.Command(command, args...)
	cmd.Stderr = os.Stderr
	c := newClient(opts...)
	c.cmd = cmd
	c.name = command
	return c
}

// NewWithPipes creates a client over an already-established duplex
// pipe. Tests and in-process transports use this constructor.
func NewWithPipes(w io.WriteCloser, r io.Reader, opts ...Option) *Client {
	c := newClient(opts...)
	c.stdin = w
	c.stdout = r
	c.name = "pipe"
	return c
}

func newClient(opts ...Option) *Client {
	c := &Client{
		pending: make(map[int64]chan callResult),
		timeout: DefaultCallTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect starts the subprocess (when one is configured), begins the
// read loop, and performs the initialize handshake.
func (c *Client) Connect(ctx context.Context) error {
	if c.connected.Load() {
		return errors.New("already connected")
	}
	if c.cmd != nil {
		stdin, err := c.cmd.StdinPipe()
		if err != nil {
			return fmt.Errorf("stdin pipe: %w", err)
		}
		stdout, err := c.cmd.StdoutPipe()
		if err != nil {
			return fmt.Errorf("stdout pipe: %w", err)
		}
		if err := c.cmd.Start(); err != nil {
			return fmt.Errorf("start tool provider: %w", err)
		}
		c.stdin = stdin
		c.stdout = stdout
	}
	c.connected.Store(true)
	go c.readLoop()

	params := initializeParams{
		ProtocolVersion: protocolVersion,
		Capabilities:    map[string]any{},
		ClientInfo:      clientInfo{Name: "pulsa-bridge", Version: "1.0.0"},
	}
	if _, err := c.Call(ctx, methodInitialize, params); err != nil {
		c.disconnect()
		return fmt.Errorf("initialize handshake: %w", err)
	}
	if err := c.Notify(notificationInitialized, nil); err != nil {
		c.disconnect()
		return err
	}
	c.logger.Debug("tool_provider_connected", "provider", c.name)
	return nil
}

// Connected reports whether the pipe is usable.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// Call issues a request and blocks until the correlated response
// arrives, the timeout elapses, or the pipe closes. Only the affected
// call is rejected on timeout; a response arriving afterwards is
// discarded.
func (c *Client) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if !c.connected.Load() {
		return nil, errorsx.Wrap(&DisconnectedError{}, errorsx.ReasonProtocolDisconnected)
	}

	id := c.nextID.Add(1)
	ch := make(chan callResult, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()

	if err := c.write(request{JSONRPC: jsonrpcVersion, ID: &id, Method: method, Params: params}); err != nil {
		c.removePending(id)
		return nil, err
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	select {
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		return res.raw, nil
	case <-timer.C:
		c.removePending(id)
		c.logger.Warn("tool_call_timeout", "method", method, "id", id)
		return nil, errorsx.Wrap(&TimeoutError{Method: method, ID: id}, errorsx.ReasonProtocolTimeout)
	case <-ctx.Done():
		c.removePending(id)
		return nil, ctx.Err()
	}
}

// CallTool invokes a named tool through tools/call and returns the text
// payload of its result.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	raw, err := c.Call(ctx, methodToolsCall, callToolParams{Name: name, Arguments: args})
	if err != nil {
		return "", err
	}
	var result callToolResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("decode tool result: %w", err)
	}
	text := ""
	for _, item := range result.Content {
		if item.Type == "text" {
			text = item.Text
			break
		}
	}
	if result.IsError {
		return "", errors.New(text)
	}
	return text, nil
}

// Notify writes a fire-and-forget notification: no id, no pending
// entry, no response expected.
func (c *Client) Notify(method string, params any) error {
	if !c.connected.Load() {
		return errorsx.Wrap(&DisconnectedError{}, errorsx.ReasonProtocolDisconnected)
	}
	return c.write(request{JSONRPC: jsonrpcVersion, Method: method, Params: params})
}

// Close tears down the pipe and, when owned, the subprocess.
func (c *Client) Close() error {
	c.disconnect()
	if c.stdin != nil {
		_ = c.stdin.Close()
	}
	if c.cmd != nil && c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
		_ = c.cmd.Wait()
	}
	return nil
}

func (c *Client) write(req request) error {
	line, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	line = append(line, '\n')
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.stdin.Write(line); err != nil {
		c.disconnect()
		return errorsx.Wrap(fmt.Errorf("write request: %w", err), errorsx.ReasonProtocolDisconnected)
	}
	return nil
}

// readLoop reassembles newline-delimited messages from the pipe. A read
// may carry zero, one, or several complete messages, and a message may
// arrive split across reads; bufio handles the buffering either way.
func (c *Client) readLoop() {
	reader := bufio.NewReader(c.stdout)
	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			c.handleLine([]byte(line))
		}
		if err != nil {
			c.disconnect()
			return
		}
	}
}

func (c *Client) handleLine(line []byte) {
	var env envelope
	if err := json.Unmarshal(line, &env); err != nil {
		c.logger.Warn("tool_protocol_bad_line", "error", err.Error())
		return
	}
	if env.ID == nil {
		// Peer-initiated notification, not addressed to a pending call.
		c.logger.Debug("tool_provider_notification", "method", env.Method)
		return
	}

	c.mu.Lock()
	ch, ok := c.pending[*env.ID]
	if ok {
		delete(c.pending, *env.ID)
	}
	c.mu.Unlock()
	if !ok {
		// Late response after a timeout, or an id we never issued.
		c.logger.Debug("tool_response_discarded", "id", *env.ID)
		return
	}

	if env.Error != nil {
		ch <- callResult{err: env.Error}
		return
	}
	ch <- callResult{raw: env.Result}
}

func (c *Client) removePending(id int64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// disconnect rejects every pending call and marks the client unusable.
// Subsequent calls fail fast without writing.
func (c *Client) disconnect() {
	if !c.connected.Swap(false) {
		return
	}
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[int64]chan callResult)
	c.mu.Unlock()
	for id, ch := range pending {
		ch <- callResult{err: errorsx.Wrap(&DisconnectedError{}, errorsx.ReasonProtocolDisconnected)}
		c.logger.Debug("pending_call_rejected", "id", id)
	}
	if len(pending) > 0 {
		c.logger.Warn("tool_provider_disconnected", "rejected_calls", len(pending))
	}
}
