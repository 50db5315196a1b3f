package ipc

import (
	"container/list"
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/stelliberty/stelliberty/internal/ctlerr"
)

// Pool sizing and timing constants (spec §4.A PooledConnection, §5):
//   P - maximum pool size (idle connections kept warm at once)
//   N - maximum concurrent new-connection creation attempts, gated by a
//       semaphore of N permits
//   T - idle timeout: a connection unused for this long is dropped
//       rather than handed back out
//   H - health check interval: how often the pool sweeps idle
//       connections for staleness/liveness
const (
	PoolSize            = 30
	DialSemaphoreSize   = 20
	IdleTimeout         = 35 * time.Second
	HealthCheckInterval = 30 * time.Second
)

// dialMaxAttempts/dialRetryDelay govern the dial step only (spec §4.A
// "Retry policy"): linear backoff, not the exponential shape the
// teacher's upstream_manager.go uses for upstream reconnects — the
// spec is explicit that this retry is 3 attempts at a flat 50ms.
const (
	dialMaxAttempts = 3
	dialRetryDelay  = 50 * time.Millisecond
)

// Dialer opens a new transport connection to the IPC endpoint.
type Dialer func(ctx context.Context) (net.Conn, error)

// pooledConn wraps a net.Conn with the bookkeeping the Pool needs to
// enforce IdleTimeout and liveness checks.
type pooledConn struct {
	conn     net.Conn
	lastUsed time.Time
}

// Pool is a FIFO pool of warm connections to a single IPC endpoint.
// Acquire takes the oldest idle connection first, probing it for
// liveness before handing it back; a connection left dead by a
// crashed or restarting Core is dropped and the search continues
// rather than being returned to the caller. When the idle deque is
// empty, Acquire dials a new connection, gated by a semaphore of
// DialSemaphoreSize permits so no more than N dials are ever in
// flight at once (spec §8 P7). A second, permit-1 semaphore
// (mutationSem) is exposed via AcquireMutation for callers that need
// to serialise Core-config-mutating requests.
type Pool struct {
	dial Dialer

	mu   sync.Mutex
	idle *list.List // of *pooledConn, front = oldest

	dialSem     chan struct{}
	mutationSem chan struct{}

	closed     bool
	stopHealth chan struct{}
}

// NewPool constructs a Pool dialing new connections with dial, and
// starts its background health-check sweep.
func NewPool(dial Dialer) *Pool {
	p := &Pool{
		dial:        dial,
		idle:        list.New(),
		dialSem:     make(chan struct{}, DialSemaphoreSize),
		mutationSem: make(chan struct{}, 1),
		stopHealth:  make(chan struct{}),
	}
	go p.healthLoop()
	return p
}

// Acquire returns a warm connection: an idle one that passes a
// liveness probe, or a freshly dialed one if the idle deque holds
// nothing usable (spec §4.A "Pool algorithm").
func (p *Pool) Acquire(ctx context.Context) (net.Conn, error) {
	conn, ok, err := p.popIdle()
	if err != nil {
		return nil, err
	}
	if ok {
		return conn, nil
	}
	return p.dialNew(ctx)
}

// popIdle pops connections off the front of the idle deque until it
// finds one that is both unexpired and alive, or the deque is empty.
// Every connection it rejects along the way is closed and dropped,
// never returned to the caller.
func (p *Pool) popIdle() (net.Conn, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, false, &ctlerr.NotRunningError{Op: "acquire"}
	}
	for {
		front := p.idle.Front()
		if front == nil {
			return nil, false, nil
		}
		p.idle.Remove(front)
		pc := front.Value.(*pooledConn)
		if time.Since(pc.lastUsed) < IdleTimeout && probeAlive(pc.conn) {
			return pc.conn, true, nil
		}
		_ = pc.conn.Close()
	}
}

// dialNew takes a permit from the dial semaphore, dials with up to
// dialMaxAttempts tries at a flat dialRetryDelay, and releases the
// permit before returning. The permit is held only across the dial
// attempts, never for the lifetime of the resulting connection.
func (p *Pool) dialNew(ctx context.Context) (net.Conn, error) {
	select {
	case p.dialSem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-p.dialSem }()

	var lastErr error
	for attempt := 0; attempt < dialMaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(dialRetryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		conn, err := p.dial(ctx)
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}

	if isNotReadyDialErr(lastErr) {
		return nil, &ctlerr.NotReadyError{Op: "dial", Err: lastErr}
	}
	return nil, &ctlerr.TransportError{Op: "dial", Err: lastErr}
}

// AcquireMutation blocks until the pool's single config-mutation
// permit is free, returning a release func the caller must invoke
// exactly once. This serialises Core-config-mutating requests
// (PUT /configs and similar) pool-wide (spec §5 "the two semaphores").
func (p *Pool) AcquireMutation(ctx context.Context) (func(), error) {
	select {
	case p.mutationSem <- struct{}{}:
		return func() { <-p.mutationSem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns conn to the pool's idle FIFO, dropping it instead if
// the pool is closed or already holds PoolSize idle connections.
func (p *Pool) Release(conn net.Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.idle.Len() >= PoolSize {
		_ = conn.Close()
		return
	}
	p.idle.PushBack(&pooledConn{conn: conn, lastUsed: time.Now()})
}

// Discard closes conn without returning it to the pool, for use when
// the caller knows the connection is broken.
func (p *Pool) Discard(conn net.Conn) {
	_ = conn.Close()
}

// Flush closes every currently idle connection but leaves the pool
// open for further use. Callers (the one-shot request retry policy)
// flush the whole pool before retrying a transport failure, since the
// Core may have restarted and every pooled connection is now stale.
func (p *Pool) Flush() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for e := p.idle.Front(); e != nil; e = e.Next() {
		_ = e.Value.(*pooledConn).conn.Close()
	}
	p.idle.Init()
}

// Close closes every idle connection and stops the health loop.
// Connections currently on loan are closed as they're
// Released/Discarded. A Pool is not usable after Close.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	for e := p.idle.Front(); e != nil; e = e.Next() {
		_ = e.Value.(*pooledConn).conn.Close()
	}
	p.idle.Init()
	p.mu.Unlock()

	close(p.stopHealth)
	return nil
}

// Stats reports the pool's current idle size and in-flight dial
// count — the observable state spec §8 P7 requires: no more than
// PoolSize idle connections and no more than DialSemaphoreSize
// concurrent dial attempts at any instant.
type Stats struct {
	Idle          int
	DialsInFlight int
}

// Stats reports the pool's current idle/in-flight-dial counts.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{Idle: p.idle.Len(), DialsInFlight: len(p.dialSem)}
}

// healthLoop sweeps the idle list every HealthCheckInterval. It takes
// a non-blocking lock attempt, skipping the round entirely if the
// pool is busy rather than waiting (spec §4.A "Health check").
func (p *Pool) healthLoop() {
	ticker := time.NewTicker(HealthCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.sweepIdle()
		case <-p.stopHealth:
			return
		}
	}
}

func (p *Pool) sweepIdle() {
	if !p.mu.TryLock() {
		return
	}
	defer p.mu.Unlock()

	now := time.Now()
	var next *list.Element
	for e := p.idle.Front(); e != nil; e = next {
		next = e.Next()
		pc := e.Value.(*pooledConn)
		if now.Sub(pc.lastUsed) >= IdleTimeout || !probeAlive(pc.conn) {
			_ = pc.conn.Close()
			p.idle.Remove(e)
		}
	}
}

// probeAlive performs a non-blocking liveness probe matching the
// original implementation's PooledConnection::is_valid() exactly: a
// zero-byte read that would block (nothing pending, connection open)
// means alive; a clean EOF means the peer closed it; any other read
// error means dead; and the rare case of the probe actually reading
// data is still treated as alive, since the connection is evidently
// still open.
func probeAlive(conn net.Conn) bool {
	if err := conn.SetReadDeadline(time.Now().Add(time.Millisecond)); err != nil {
		return false
	}
	defer conn.SetReadDeadline(time.Time{})

	var buf [1]byte
	n, err := conn.Read(buf[:])
	if n > 0 {
		return true
	}
	if err == nil {
		return false
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return false
}

// isNotReadyDialErr reports whether err looks like the IPC endpoint
// simply isn't listening yet (the Core hasn't finished booting, or has
// crashed/restarted) rather than an unexpected transport failure — the
// original implementation's raw OS error codes 2 (ENOENT)/61/111
// (ECONNREFUSED) and "refused"/"file not found" substrings.
func isNotReadyDialErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ENOENT) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection refused", "no such file or directory", "file not found", "cannot find the file specified", "pipe busy"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
