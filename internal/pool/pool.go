// Package pool implements the bounded-concurrency, retrying Redis
// connection pool described in spec.md §4.4: a redigo.Pool wrapped with
// an admission semaphore, connection-error classification, and a linear
// backoff retry loop, reporting its lifecycle to a status.Sink.
package pool

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gomodule/redigo/redis"
	"golang.org/x/sync/semaphore"

	"github.com/slashless/slashless/internal/status"
)

// errTransactionAborted is returned when a transaction's connection-error
// retries are exhausted, and when EXEC replies with a nil array, meaning
// Redis discarded the transaction (e.g. a WATCH'd key changed).
var errTransactionAborted = errors.New("Transaction failed after retries")

// pingDelay is the constant retry delay for health-check PINGs (§4.4).
const pingDelay = 500 * time.Millisecond

// commandDelayUnit is the linear-backoff unit for command/pipeline
// retries: after attempt N fails, the loop sleeps commandDelayUnit*N
// before attempt N+1 (1s before attempt 2, 2s before attempt 3, ...).
const commandDelayUnit = 1 * time.Second

// Pool wraps a redigo.Pool with an admission semaphore bounding
// concurrent Redis work to MaxConnections, and a retry engine that
// reconnects on connection loss and reports transitions to a
// status.Sink. The underlying redigo.Pool is already safe for
// concurrent use, so Pool holds no mutex of its own (spec.md §9: "no
// lock is needed around the client itself").
type Pool struct {
	inner    *redis.Pool
	sem      *semaphore.Weighted
	sink     status.Sink
	maxRetry int

	acquireCount uint64 // process-wide acquisition counter, §4.4's "every tenth"
}

// New builds a Pool dialing addr, admitting at most maxConnections
// concurrent operations, and retrying connection errors up to maxRetry
// attempts (config.UnlimitedRetry for unbounded). sink receives status
// transitions and log events; it must never be nil (use a discarding
// sink in tests that don't care).
func New(addr string, maxConnections, maxRetry int, sink status.Sink) *Pool {
	inner := &redis.Pool{
		MaxIdle:     maxConnections,
		MaxActive:   maxConnections,
		Wait:        false, // admission is governed by our own semaphore instead
		IdleTimeout: 5 * time.Minute,
		Dial: func() (redis.Conn, error) {
			return redis.Dial("tcp", addr,
				redis.DialConnectTimeout(5*time.Second),
				redis.DialReadTimeout(5*time.Second),
				redis.DialWriteTimeout(5*time.Second),
			)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}
	return &Pool{
		inner:    inner,
		sem:      semaphore.NewWeighted(int64(maxConnections)),
		sink:     sink,
		maxRetry: maxRetry,
	}
}

// NewFromDialer builds a Pool around an already-configured redigo.Pool,
// for tests that need to point at a miniredis instance via a custom
// Dial func.
func NewFromDialer(inner *redis.Pool, maxConnections, maxRetry int, sink status.Sink) *Pool {
	return &Pool{
		inner:    inner,
		sem:      semaphore.NewWeighted(int64(maxConnections)),
		sink:     sink,
		maxRetry: maxRetry,
	}
}

// MaxRetry returns the configured maximum attempt count (-1 if
// unbounded).
func (p *Pool) MaxRetry() int {
	return p.maxRetry
}

// Close releases the pool's idle connections.
func (p *Pool) Close() error {
	return p.inner.Close()
}

// conn is a held connection plus the admission permit backing it. The
// permit is released when the connection is returned via release.
type conn struct {
	redis.Conn
	pool *Pool
}

func (c *conn) release() {
	c.Conn.Close()
	c.pool.sem.Release(1)
}

// GetConnection acquires one admission permit (blocking until available
// or ctx is done) and returns a live connection from the pool. The
// returned handle must be released via the returned func, exactly once.
func (p *Pool) GetConnection(ctx context.Context) (redis.Conn, func(), error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, func() {}, err
	}

	c := p.inner.Get()
	if err := c.Err(); err != nil {
		p.sem.Release(1)
		return nil, func() {}, err
	}

	count := atomic.AddUint64(&p.acquireCount, 1)
	if count%10 == 0 {
		p.sink.Log(status.LevelDebug, "connection successful")
	}

	held := &conn{Conn: c, pool: p}
	return held, held.release, nil
}

// shouldRetry reports whether another attempt is permitted after the
// given (1-based) attempt has failed.
func (p *Pool) shouldRetry(attempt int) bool {
	if p.maxRetry < 0 {
		return true
	}
	return attempt < p.maxRetry
}

// isConnectionError classifies err per spec.md §4.4: I/O errors or
// response errors whose lower-cased text names a connection failure.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if _, ok := err.(redis.Error); ok {
		return containsConnectionText(err.Error())
	}
	switch err {
	case redis.ErrNil:
		return false
	}
	// Anything else surfaced by redigo's Dial/Do path that isn't a typed
	// protocol error is treated as an I/O-layer failure.
	return true
}

func containsConnectionText(msg string) bool {
	msg = strings.ToLower(msg)
	for _, needle := range []string{"connection", "broken pipe", "connection reset", "closed", "connection refused"} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}

// ExecuteCommand runs a single command with the retry policy of §4.4:
// linear backoff (attempt-1)*1s, unbounded when maxRetry is negative,
// status transitions emitted on first disconnect and on recovery.
func (p *Pool) ExecuteCommand(ctx context.Context, name string, args ...interface{}) (interface{}, error) {
	attempt := 1
	for {
		reply, err := p.tryOnce(ctx, name, args)
		if err == nil {
			if attempt > 1 {
				p.sink.Emit(status.Redis, status.Connected)
				p.sink.Log(status.LevelInfo, "redis connection restored")
			}
			return reply, nil
		}
		if !isConnectionError(err) {
			return nil, err
		}
		if attempt == 1 {
			p.sink.Emit(status.Redis, status.Disconnected)
			p.sink.Log(status.LevelWarn, "redis connection lost: "+err.Error())
		}
		if !p.shouldRetry(attempt) {
			p.sink.Log(status.LevelError, "failed to reconnect to redis: "+err.Error())
			return nil, err
		}
		attempt++
		p.sink.Emit(status.Redis, status.Reconnecting)
		p.sink.Log(status.LevelInfo, "attempting to reconnect to redis")
		if err := sleepCtx(ctx, commandDelayUnit*time.Duration(attempt-1)); err != nil {
			return nil, err
		}
	}
}

func (p *Pool) tryOnce(ctx context.Context, name string, args []interface{}) (interface{}, error) {
	c, release, err := p.GetConnection(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return c.Do(name, args...)
}

// Cmd is one command of a pipeline.
type Cmd struct {
	Name string
	Args []interface{}
}

// ExecutePipeline runs commands in a single round trip over one
// connection, using redigo's Send/Flush/Receive pipelining, retried as a
// whole under the same policy as ExecuteCommand: the entire batch is
// retried if the connection dies before all replies are read.
func (p *Pool) ExecutePipeline(ctx context.Context, cmds []Cmd) ([]interface{}, error) {
	attempt := 1
	for {
		results, err := p.tryPipelineOnce(ctx, cmds)
		if err == nil {
			if attempt > 1 {
				p.sink.Emit(status.Redis, status.Connected)
				p.sink.Log(status.LevelInfo, "redis connection restored")
			}
			return results, nil
		}
		if !isConnectionError(err) {
			return nil, err
		}
		if attempt == 1 {
			p.sink.Emit(status.Redis, status.Disconnected)
			p.sink.Log(status.LevelWarn, "redis connection lost: "+err.Error())
		}
		if !p.shouldRetry(attempt) {
			p.sink.Log(status.LevelError, "failed to reconnect to redis: "+err.Error())
			return nil, err
		}
		attempt++
		p.sink.Emit(status.Redis, status.Reconnecting)
		p.sink.Log(status.LevelInfo, "attempting to reconnect to redis")
		if err := sleepCtx(ctx, commandDelayUnit*time.Duration(attempt-1)); err != nil {
			return nil, err
		}
	}
}

func (p *Pool) tryPipelineOnce(ctx context.Context, cmds []Cmd) ([]interface{}, error) {
	c, release, err := p.GetConnection(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	for _, cmd := range cmds {
		if err := c.Send(cmd.Name, cmd.Args...); err != nil {
			return nil, err
		}
	}
	if err := c.Flush(); err != nil {
		return nil, err
	}
	results := make([]interface{}, len(cmds))
	for i := range cmds {
		reply, err := c.Receive()
		if err != nil {
			// A logic error on one reply (e.g. WRONGTYPE) does not poison the
			// connection; only a connection-level failure should trigger a
			// whole-pipeline retry. Surface per-command errors in place.
			if isConnectionError(err) {
				return nil, err
			}
			results[i] = err
			continue
		}
		results[i] = reply
	}
	return results, nil
}

// ExecuteTransaction runs cmds atomically via MULTI/EXEC (spec.md §4.8):
// MULTI, then each command queued in order, then EXEC. Any connection
// error at any step abandons the connection and restarts the whole
// transaction from MULTI, under the same linear-backoff retry envelope
// as ExecuteCommand. Non-connection errors while queueing are tolerated
// (Redis aborts EXEC itself); a logic error from EXEC is returned as-is
// for the caller to shape as {"error": ...}.
func (p *Pool) ExecuteTransaction(ctx context.Context, cmds []Cmd) ([]interface{}, error) {
	attempt := 1
	for {
		results, err := p.tryTransactionOnce(ctx, cmds)
		if err == nil {
			if attempt > 1 {
				p.sink.Emit(status.Redis, status.Connected)
				p.sink.Log(status.LevelInfo, "redis connection restored")
			}
			return results, nil
		}
		if !isConnectionError(err) {
			return nil, err
		}
		if attempt == 1 {
			p.sink.Emit(status.Redis, status.Disconnected)
			p.sink.Log(status.LevelWarn, "redis connection lost: "+err.Error())
		}
		if !p.shouldRetry(attempt) {
			p.sink.Log(status.LevelError, "failed to reconnect to redis: "+err.Error())
			return nil, errTransactionAborted
		}
		attempt++
		p.sink.Emit(status.Redis, status.Reconnecting)
		p.sink.Log(status.LevelInfo, "attempting to reconnect to redis")
		if err := sleepCtx(ctx, commandDelayUnit*time.Duration(attempt-1)); err != nil {
			return nil, err
		}
	}
}

func (p *Pool) tryTransactionOnce(ctx context.Context, cmds []Cmd) ([]interface{}, error) {
	c, release, err := p.GetConnection(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	if _, err := c.Do("MULTI"); err != nil {
		return nil, err
	}
	for _, cmd := range cmds {
		if _, err := c.Do(cmd.Name, cmd.Args...); err != nil {
			if isConnectionError(err) {
				return nil, err
			}
			// Queueing-time logic error: Redis itself will abort EXEC; keep
			// queueing the rest so EXEC's error reply is authoritative.
		}
	}
	reply, err := c.Do("EXEC")
	if err != nil {
		return nil, err
	}
	values, ok := reply.([]interface{})
	if !ok {
		return nil, errTransactionAborted
	}
	return values, nil
}

// PingWithRetry issues PING with the §4.4 health-check retry policy:
// identical structure to ExecuteCommand but a constant 500ms delay.
func (p *Pool) PingWithRetry(ctx context.Context) (string, error) {
	attempt := 1
	for {
		reply, err := p.tryOnce(ctx, "PING", nil)
		if err == nil {
			if attempt > 1 {
				p.sink.Emit(status.Redis, status.Connected)
				p.sink.Log(status.LevelInfo, "redis connection restored")
			}
			s, _ := redis.String(reply, nil)
			return s, nil
		}
		if !isConnectionError(err) {
			return "", err
		}
		if attempt == 1 {
			p.sink.Emit(status.Redis, status.Disconnected)
			p.sink.Log(status.LevelWarn, "redis connection lost: "+err.Error())
		}
		if !p.shouldRetry(attempt) {
			p.sink.Log(status.LevelError, "failed to reconnect to redis: "+err.Error())
			return "", err
		}
		attempt++
		p.sink.Emit(status.Redis, status.Reconnecting)
		p.sink.Log(status.LevelInfo, "attempting to reconnect to redis")
		if err := sleepCtx(ctx, pingDelay); err != nil {
			return "", err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
