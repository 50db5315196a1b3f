package ipc

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"go.uber.org/goleak"
)

// closeTrackingConn is a no-op net.Conn whose Close invokes onClose,
// used to observe whether Release pooled or dropped a connection
// without needing a real transport.
type closeTrackingConn struct {
	net.Conn
	onClose func()
}

func (c *closeTrackingConn) Close() error {
	if c.onClose != nil {
		c.onClose()
	}
	return nil
}

func TestPool_AcquireRelease_ReusesConnection(t *testing.T) {
	defer goleak.VerifyNone(t)

	server, client := net.Pipe()
	defer server.Close()
	go func() {
		buf := make([]byte, 1)
		for {
			if _, err := server.Read(buf); err != nil {
				return
			}
		}
	}()

	dialed := 0
	pool := NewPool(func(ctx context.Context) (net.Conn, error) {
		dialed++
		return client, nil
	})
	defer pool.Close()

	ctx := context.Background()
	conn, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	pool.Release(conn)

	conn2, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	pool.Release(conn2)

	if dialed != 1 {
		t.Errorf("expected exactly 1 dial (connection reused from pool), got %d", dialed)
	}
}

func TestPool_Close_ClosesIdleConnections(t *testing.T) {
	defer goleak.VerifyNone(t)

	server, client := net.Pipe()
	go func() {
		buf := make([]byte, 1)
		for {
			if _, err := server.Read(buf); err != nil {
				return
			}
		}
	}()

	pool := NewPool(func(ctx context.Context) (net.Conn, error) {
		return client, nil
	})

	conn, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	pool.Release(conn)

	if err := pool.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// A second Close must be a harmless no-op.
	if err := pool.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	server.Close()
}

func TestPool_Acquire_DropsDeadIdleConnection(t *testing.T) {
	defer goleak.VerifyNone(t)

	deadServer, deadClient := net.Pipe()
	deadServer.Close() // dead before it ever goes idle: peer hung up

	liveServer, liveClient := net.Pipe()
	defer liveServer.Close()
	go func() {
		buf := make([]byte, 1)
		for {
			if _, err := liveServer.Read(buf); err != nil {
				return
			}
		}
	}()

	dialed := 0
	conns := []net.Conn{liveClient}
	pool := NewPool(func(ctx context.Context) (net.Conn, error) {
		dialed++
		c := conns[0]
		conns = conns[1:]
		return c, nil
	})
	defer pool.Close()

	// Seed the idle deque directly with the already-dead connection so
	// Acquire must discover it via its liveness probe, not by dialing.
	pool.idle.PushBack(&pooledConn{conn: deadClient, lastUsed: time.Now()})

	conn, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if conn != liveClient {
		t.Error("expected Acquire to drop the dead idle connection and dial a fresh one")
	}
	if dialed != 1 {
		t.Errorf("expected exactly 1 dial after dropping the dead connection, got %d", dialed)
	}
	pool.Release(conn)
}

func TestPool_Release_DropsConnectionOverPoolSize(t *testing.T) {
	defer goleak.VerifyNone(t)

	pool := NewPool(func(ctx context.Context) (net.Conn, error) {
		return nil, errors.New("dial not expected")
	})
	defer pool.Close()

	var closed []bool
	for i := 0; i < PoolSize+1; i++ {
		c := &closeTrackingConn{}
		closed = append(closed, false)
		idx := i
		c.onClose = func() { closed[idx] = true }
		pool.Release(c)
	}

	if got := pool.Stats().Idle; got != PoolSize {
		t.Errorf("idle count = %d, want %d (PoolSize)", got, PoolSize)
	}
	if !closed[PoolSize] {
		t.Error("expected the connection over PoolSize to be closed rather than pooled")
	}
}

func TestPool_AcquireMutation_SerializesCallers(t *testing.T) {
	t.Parallel()

	pool := NewPool(func(ctx context.Context) (net.Conn, error) {
		return nil, errors.New("dial not expected")
	})
	defer pool.Close()

	release1, err := pool.AcquireMutation(context.Background())
	if err != nil {
		t.Fatalf("AcquireMutation: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := pool.AcquireMutation(ctx); err == nil {
		t.Error("expected a second AcquireMutation to block while the first permit is held")
	}

	release1()
	conn2Ctx, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	release2, err := pool.AcquireMutation(conn2Ctx)
	if err != nil {
		t.Fatalf("AcquireMutation after release: %v", err)
	}
	release2()
}

func TestPool_AcquireAfterClose_Errors(t *testing.T) {
	defer goleak.VerifyNone(t)

	pool := NewPool(func(ctx context.Context) (net.Conn, error) {
		return nil, nil
	})
	if err := pool.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if _, err := pool.Acquire(ctx); err == nil {
		t.Error("expected Acquire to fail after Close")
	}
}
