package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/stelliberty/stelliberty/internal/ctlerr"
)

// Envelope is the request/response wrapper every control message
// carries over the framed transport, correlated by RequestID so
// responses can be matched to requests over a pooled, potentially
// interleaved connection. A request sets Method/Path/Payload; a
// response sets Status and either Payload (success) or Error
// (application failure, §7 Application{status, body}).
type Envelope struct {
	RequestID string          `json:"request_id"`
	Method    string          `json:"method,omitempty"`
	Path      string          `json:"path,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Status    int             `json:"status,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// requestMaxRetries is the one-shot request retry cap (spec §4.A
// "Retry policy for one-shot requests"): up to 2 retries.
const requestMaxRetries = 2

// Client issues REST-shaped request/response calls over a Pool
// (spec §4.A "Operations exposed": request(method, path, body?) ->
// (status, body)), each call taking its own pooled connection for the
// duration of the round trip.
type Client struct {
	pool *Pool
}

// NewClient constructs a Client backed by pool.
func NewClient(pool *Pool) *Client {
	return &Client{pool: pool}
}

// Request issues a single HTTP-shaped call against the Core's IPC
// endpoint — method ("GET", "PUT", ...), path ("/version",
// "/configs", ...), and an optional body — and returns the response's
// status code and raw body.
//
// A PUT acquires the pool's mutation permit before the first attempt
// and holds it across every retry of this one logical call (spec §5:
// at most one config-mutating request in flight pool-wide).
//
// On a transport error that looks like the Core restarted mid-flight
// (spec §4.A: "pipe busy"/"Connection refused"/"Broken pipe"/"file not
// found"), Request flushes the whole pool and retries, up to
// requestMaxRetries times. A non-2xx application response (decoded
// successfully, just carrying a failing status) is never retried.
func (c *Client) Request(ctx context.Context, method, path string, body any) (status int, respBody []byte, err error) {
	var bodyBytes json.RawMessage
	if body != nil {
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request body: %w", err)
		}
	}

	if method == http.MethodPut {
		release, err := c.pool.AcquireMutation(ctx)
		if err != nil {
			return 0, nil, err
		}
		defer release()
	}

	var lastErr error
	for attempt := 0; attempt <= requestMaxRetries; attempt++ {
		status, respBody, err = c.doRequest(ctx, method, path, bodyBytes)
		if err == nil {
			return status, respBody, nil
		}
		lastErr = err
		if attempt == requestMaxRetries || !isRetryableRequestError(err) {
			break
		}
		c.pool.Flush()
	}
	return 0, nil, lastErr
}

func (c *Client) doRequest(ctx context.Context, method, path string, body json.RawMessage) (int, []byte, error) {
	conn, err := c.pool.Acquire(ctx)
	if err != nil {
		return 0, nil, err
	}

	req := Envelope{RequestID: uuid.NewString(), Method: method, Path: path, Payload: body}
	reqBytes, err := json.Marshal(req)
	if err != nil {
		c.pool.Release(conn)
		return 0, nil, fmt.Errorf("marshal envelope: %w", err)
	}

	if err := WriteFrame(conn, reqBytes); err != nil {
		c.pool.Discard(conn)
		return 0, nil, err
	}

	respBytes, err := ReadFrame(conn)
	if err != nil {
		c.pool.Discard(conn)
		return 0, nil, err
	}
	c.pool.Release(conn)

	var resp Envelope
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return 0, nil, &ctlerr.ProtocolError{Err: err}
	}
	if resp.RequestID != req.RequestID {
		return 0, nil, &ctlerr.ProtocolError{Err: fmt.Errorf("request_id mismatch: sent %q got %q", req.RequestID, resp.RequestID)}
	}
	if resp.Error != "" {
		return 0, nil, &ctlerr.ApplicationError{Status: resp.Status, Body: resp.Error}
	}
	if resp.Status >= 400 {
		return 0, nil, &ctlerr.ApplicationError{Status: resp.Status, Body: string(resp.Payload)}
	}
	return resp.Status, []byte(resp.Payload), nil
}

// OpenStream opens a WebSocket-upgraded streaming session against path
// (e.g. "/logs", "/traffic") and delivers each decoded JSON message to
// onMessage until the remote closes the stream or the returned close
// func is called (spec §4.A "open_stream(path, on_message) -> handle").
// Streaming sessions dial their own connection directly rather than
// going through the one-shot pool, which never sees them.
func (c *Client) OpenStream(ctx context.Context, path string, onMessage func(json.RawMessage)) (func() error, error) {
	conn, err := c.pool.dial(ctx)
	if err != nil {
		return nil, err
	}
	ws, err := ClientHandshake(conn, "ipc", path)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			payload, err := ws.ReadText()
			if err != nil {
				return
			}
			onMessage(json.RawMessage(payload))
		}
	}()

	return func() error {
		err := ws.Close()
		<-done
		return err
	}, nil
}

// isRetryableRequestError reports whether err is the kind of transport
// failure the Core restarting mid-flight produces, and so is worth a
// pool flush and retry — never an already-decoded application error
// (4xx/5xx), which is never retried.
func isRetryableRequestError(err error) bool {
	var appErr *ctlerr.ApplicationError
	if errors.As(err, &appErr) {
		return false
	}
	var notReady *ctlerr.NotReadyError
	if errors.As(err, &notReady) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"pipe busy", "connection refused", "broken pipe", "file not found", "no such file or directory"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
