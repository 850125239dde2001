package pool

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gomodule/redigo/redis"
	"github.com/stretchr/testify/require"

	"github.com/slashless/slashless/internal/status"
)

// discardSink implements status.Sink by dropping every event, for tests
// that don't assert on status transitions.
type discardSink struct{}

func (discardSink) Emit(status.Slot, status.Status) {}
func (discardSink) Log(status.Level, string)         {}

// recordingSink captures every event for assertions.
type recordingSink struct {
	statuses []status.Status
	logs     []string
}

func (r *recordingSink) Emit(_ status.Slot, s status.Status) { r.statuses = append(r.statuses, s) }
func (r *recordingSink) Log(_ status.Level, msg string)      { r.logs = append(r.logs, msg) }

func newTestPool(t *testing.T, addr string, maxConn, maxRetry int, sink status.Sink) *Pool {
	t.Helper()
	inner := &redis.Pool{
		MaxIdle:   maxConn,
		MaxActive: maxConn,
		Dial: func() (redis.Conn, error) {
			return redis.Dial("tcp", addr)
		},
	}
	t.Cleanup(func() { inner.Close() })
	return NewFromDialer(inner, maxConn, maxRetry, sink)
}

func TestExecuteCommandSetGet(t *testing.T) {
	srv := miniredis.RunT(t)
	p := newTestPool(t, srv.Addr(), 3, 0, discardSink{})

	reply, err := p.ExecuteCommand(context.Background(), "SET", "k", "v")
	require.NoError(t, err)
	require.Equal(t, "OK", reply)

	reply, err = p.ExecuteCommand(context.Background(), "GET", "k")
	require.NoError(t, err)
	require.Equal(t, []byte("v"), reply)
}

func TestExecuteCommandLogicErrorNotRetried(t *testing.T) {
	srv := miniredis.RunT(t)
	sink := &recordingSink{}
	p := newTestPool(t, srv.Addr(), 3, 0, sink)

	_, err := p.ExecuteCommand(context.Background(), "SET", "onlyonearg")
	require.Error(t, err)
	// A WRONGTYPE/ERR-shaped reply is a logic error: no retry, no status churn.
	require.Empty(t, sink.statuses)
}

func TestExecutePipelinePreservesOrder(t *testing.T) {
	srv := miniredis.RunT(t)
	p := newTestPool(t, srv.Addr(), 3, 0, discardSink{})

	results, err := p.ExecutePipeline(context.Background(), []Cmd{
		{Name: "SET", Args: []interface{}{"a", "1"}},
		{Name: "INCR", Args: []interface{}{"a"}},
		{Name: "GET", Args: []interface{}{"a"}},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Equal(t, "OK", results[0])
	require.EqualValues(t, 2, results[1])
	require.Equal(t, []byte("2"), results[2])
}

func TestPingWithRetrySucceeds(t *testing.T) {
	srv := miniredis.RunT(t)
	p := newTestPool(t, srv.Addr(), 1, 0, discardSink{})

	reply, err := p.PingWithRetry(context.Background())
	require.NoError(t, err)
	require.Equal(t, "PONG", reply)
}

func TestGetConnectionRespectsAdmissionBound(t *testing.T) {
	srv := miniredis.RunT(t)
	p := newTestPool(t, srv.Addr(), 1, 0, discardSink{})

	_, release1, err := p.GetConnection(context.Background())
	require.NoError(t, err)
	defer release1()

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // already-cancelled: the second acquisition must not be admitted
	_, _, err = p.GetConnection(ctx)
	require.Error(t, err)
}

func TestIsConnectionErrorClassification(t *testing.T) {
	require.True(t, containsConnectionText("dial tcp: connection refused"))
	require.True(t, containsConnectionText("read: broken pipe"))
	require.True(t, containsConnectionText("use of closed network connection"))
	require.False(t, containsConnectionText("WRONGTYPE Operation against a key holding the wrong kind of value"))
}

func TestExecuteCommandRetryExhaustion(t *testing.T) {
	// A pool pointed at a closed port never succeeds: with MaxRetry=2 it
	// should give up after exactly 2 attempts, reporting a connection error.
	sink := &recordingSink{}
	p := newTestPool(t, "127.0.0.1:1", 1, 2, sink)

	_, err := p.ExecuteCommand(context.Background(), "PING")
	require.Error(t, err)
	require.Contains(t, sink.statuses, status.Disconnected)
}
