package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stelliberty/stelliberty/internal/ctlerr"
)

func serveOneEnvelope(server net.Conn, status int, payload json.RawMessage, appErrMsg string) error {
	reqBytes, err := ReadFrame(server)
	if err != nil {
		return err
	}
	var req Envelope
	if err := json.Unmarshal(reqBytes, &req); err != nil {
		return err
	}
	resp := Envelope{RequestID: req.RequestID, Status: status, Payload: payload, Error: appErrMsg}
	respBytes, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return WriteFrame(server, respBytes)
}

func TestClient_Request_Success(t *testing.T) {
	server, client := net.Pipe()
	go func() { _ = serveOneEnvelope(server, 200, json.RawMessage(`{"version":"1.2.3"}`), "") }()

	pool := NewPool(func(ctx context.Context) (net.Conn, error) { return client, nil })
	defer pool.Close()
	c := NewClient(pool)

	status, body, err := c.Request(context.Background(), http.MethodGet, "/version", nil)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if status != 200 {
		t.Errorf("status = %d, want 200", status)
	}
	if string(body) != `{"version":"1.2.3"}` {
		t.Errorf("body = %s, want {\"version\":\"1.2.3\"}", body)
	}
}

func TestClient_Request_ApplicationErrorNotRetried(t *testing.T) {
	server, client := net.Pipe()
	calls := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if err := serveOneEnvelope(server, 404, nil, "not found"); err != nil {
				return
			}
			calls++
		}
	}()

	pool := NewPool(func(ctx context.Context) (net.Conn, error) { return client, nil })
	defer pool.Close()
	c := NewClient(pool)

	_, _, err := c.Request(context.Background(), http.MethodGet, "/configs", nil)
	server.Close()
	<-done

	var appErr *ctlerr.ApplicationError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *ctlerr.ApplicationError, got %v", err)
	}
	if appErr.Status != 404 {
		t.Errorf("status = %d, want 404", appErr.Status)
	}
	if calls != 1 {
		t.Errorf("expected exactly 1 request (no retry on a decoded application error), got %d", calls)
	}
}

func TestClient_Request_RetriesTransportErrorThenSucceeds(t *testing.T) {
	calls := 0
	dial := func(ctx context.Context) (net.Conn, error) {
		calls++
		if calls <= dialMaxAttempts {
			return nil, errors.New("connect: connection refused")
		}
		server, client := net.Pipe()
		go func() { _ = serveOneEnvelope(server, 200, json.RawMessage(`{}`), "") }()
		return client, nil
	}

	pool := NewPool(dial)
	defer pool.Close()
	c := NewClient(pool)

	status, _, err := c.Request(context.Background(), http.MethodGet, "/version", nil)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if status != 200 {
		t.Errorf("status = %d, want 200", status)
	}
	if calls != dialMaxAttempts+1 {
		t.Errorf("dial calls = %d, want %d (pool exhausts its own dial retries once, then the client's retry dials again)", calls, dialMaxAttempts+1)
	}
}

func writeServerTextFrame(w io.Writer, payload []byte) error {
	header := []byte{0x80 | wsOpText, byte(len(payload))}
	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

func TestClient_OpenStream_DeliversMessages(t *testing.T) {
	server, client := net.Pipe()

	handshakeErr := make(chan error, 1)
	go func() {
		req, err := http.ReadRequest(bufio.NewReader(server))
		if err != nil {
			handshakeErr <- err
			return
		}
		_ = req.Body.Close()
		accept := acceptKey(req.Header.Get("Sec-WebSocket-Key"))
		resp := "HTTP/1.1 101 Switching Protocols\r\nUpgrade: websocket\r\nConnection: Upgrade\r\nSec-WebSocket-Accept: " + accept + "\r\n\r\n"
		if _, err := io.WriteString(server, resp); err != nil {
			handshakeErr <- err
			return
		}
		if err := writeServerTextFrame(server, []byte(`{"line":"hello"}`)); err != nil {
			handshakeErr <- err
			return
		}
		handshakeErr <- nil
		// Drain whatever the client sends afterwards (its close frame) so
		// that write doesn't block on this synchronous pipe.
		_, _ = io.Copy(io.Discard, server)
	}()

	pool := NewPool(func(ctx context.Context) (net.Conn, error) { return client, nil })
	defer pool.Close()
	c := NewClient(pool)

	msgCh := make(chan string, 1)
	closeStream, err := c.OpenStream(context.Background(), "/logs", func(msg json.RawMessage) {
		msgCh <- string(msg)
	})
	if err != nil {
		t.Fatalf("OpenStream: %v", err)
	}
	if err := <-handshakeErr; err != nil {
		t.Fatalf("server handshake: %v", err)
	}

	select {
	case got := <-msgCh:
		if got != `{"line":"hello"}` {
			t.Errorf("got %q, want %q", got, `{"line":"hello"}`)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a streamed message")
	}

	if err := closeStream(); err != nil {
		t.Errorf("close stream: %v", err)
	}
}
