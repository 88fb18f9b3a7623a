package transport_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OVECJOE/zai-client/internal/hex"
	"github.com/OVECJOE/zai-client/internal/protocol"
	"github.com/OVECJOE/zai-client/internal/transport"
	"github.com/OVECJOE/zai-client/internal/zaitest"
)

const testToken = "test-token"

func newTestChannel(t *testing.T, srv *zaitest.Server, opts transport.Options) *transport.Channel {
	t.Helper()
	if opts.BaseURL == "" {
		opts.BaseURL = srv.WSBase()
	}
	if opts.Token == "" {
		opts.Token = testToken
	}
	c := transport.New(opts)
	t.Cleanup(c.Disconnect)
	return c
}

// collector gathers listener callbacks across goroutines.
type collector[T any] struct {
	mu    sync.Mutex
	items []T
}

func (c *collector[T]) add(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, v)
}

func (c *collector[T]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *collector[T]) all() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

func TestConnectAndReceive(t *testing.T) {
	srv := zaitest.NewServer(testToken)
	defer srv.Close()
	c := newTestChannel(t, srv, transport.Options{})

	var got collector[protocol.ServerMessage]
	c.AddListener(got.add)

	require.NoError(t, c.Connect(context.Background(), "g-1"))
	assert.True(t, c.Connected())
	assert.Equal(t, "g-1", c.GameID())
	assert.Equal(t, 1, srv.ConnCount())

	srv.PushJSON(map[string]any{
		"type":    "move_rejected",
		"game_id": "g-1",
		"payload": map[string]any{
			"reason":  "illegal_move",
			"message": "position occupied",
		},
		"timestamp": 1,
	})

	require.Eventually(t, func() bool { return got.len() == 1 }, 2*time.Second, 10*time.Millisecond)
	rejected, ok := got.all()[0].(protocol.MoveRejected)
	require.True(t, ok, "expected MoveRejected, got %T", got.all()[0])
	assert.Equal(t, "illegal_move", rejected.Reason)
}

func TestConnectSameGameIsNoOp(t *testing.T) {
	srv := zaitest.NewServer(testToken)
	defer srv.Close()
	c := newTestChannel(t, srv, transport.Options{})

	require.NoError(t, c.Connect(context.Background(), "g-1"))
	require.NoError(t, c.Connect(context.Background(), "g-1"))
	assert.Equal(t, 1, srv.ConnCount())
}

func TestConnectDifferentGameReplacesConnection(t *testing.T) {
	srv := zaitest.NewServer(testToken)
	defer srv.Close()
	c := newTestChannel(t, srv, transport.Options{})

	require.NoError(t, c.Connect(context.Background(), "g-1"))
	require.NoError(t, c.Connect(context.Background(), "g-2"))

	assert.Equal(t, "g-2", c.GameID())
	assert.Equal(t, 2, srv.ConnCount())
	require.Eventually(t, func() bool { return srv.LiveConns() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestConnectRequiresToken(t *testing.T) {
	srv := zaitest.NewServer(testToken)
	defer srv.Close()
	c := transport.New(transport.Options{BaseURL: srv.WSBase()})

	err := c.Connect(context.Background(), "g-1")
	require.ErrorIs(t, err, transport.ErrNoToken)
}

func TestConnectHandshakeFailure(t *testing.T) {
	srv := zaitest.NewServer(testToken)
	defer srv.Close()
	srv.RefuseUpgrades(true)
	c := newTestChannel(t, srv, transport.Options{HandshakeTimeout: time.Second})

	err := c.Connect(context.Background(), "g-1")
	require.ErrorIs(t, err, transport.ErrHandshake)
	assert.False(t, c.Connected())
}

func TestSendWhileDisconnected(t *testing.T) {
	srv := zaitest.NewServer(testToken)
	defer srv.Close()
	c := newTestChannel(t, srv, transport.Options{})

	require.ErrorIs(t, c.SendMove(protocol.Placement(hex.Coordinate{Q: 1, R: 0})), transport.ErrNotConnected)
	require.ErrorIs(t, c.SendResign(), transport.ErrNotConnected)

	// State requests are fire-and-forget; a reconnect broadcast covers them.
	require.NoError(t, c.RequestState())
}

func TestSendMoveReachesServer(t *testing.T) {
	srv := zaitest.NewServer(testToken)
	defer srv.Close()
	c := newTestChannel(t, srv, transport.Options{})

	require.NoError(t, c.Connect(context.Background(), "g-1"))
	require.NoError(t, c.SendMove(protocol.Placement(hex.Coordinate{Q: 2, R: -1})))

	require.Eventually(t, func() bool {
		return len(srv.ReceivedOfType(protocol.TypeMove)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	env := srv.ReceivedOfType(protocol.TypeMove)[0]
	assert.Equal(t, "g-1", env.GameID)
	assert.NotZero(t, env.Timestamp)
}

func TestDisconnectIsIdempotentAndFinal(t *testing.T) {
	srv := zaitest.NewServer(testToken)
	defer srv.Close()
	c := newTestChannel(t, srv, transport.Options{ReconnectDelay: 5 * time.Millisecond})

	require.NoError(t, c.Connect(context.Background(), "g-1"))
	c.Disconnect()
	c.Disconnect()

	assert.False(t, c.Connected())
	require.Eventually(t, func() bool { return srv.LiveConns() == 0 }, 2*time.Second, 10*time.Millisecond)

	// No reconnect happens after an explicit disconnect.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, srv.ConnCount())
}

func TestReconnectAfterServerClosure(t *testing.T) {
	srv := zaitest.NewServer(testToken)
	defer srv.Close()
	c := newTestChannel(t, srv, transport.Options{ReconnectDelay: 10 * time.Millisecond})

	var errs collector[error]
	c.AddErrorListener(errs.add)

	require.NoError(t, c.Connect(context.Background(), "g-1"))
	srv.CloseConns()

	require.Eventually(t, func() bool {
		return srv.ConnCount() == 2 && c.Connected()
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "g-1", c.GameID())
	assert.GreaterOrEqual(t, errs.len(), 1, "the closure itself surfaces to error listeners")
}

func TestReconnectGivesUpAtCeiling(t *testing.T) {
	srv := zaitest.NewServer(testToken)
	defer srv.Close()
	c := newTestChannel(t, srv, transport.Options{
		ReconnectDelay:       5 * time.Millisecond,
		MaxReconnectAttempts: 2,
	})

	var errs collector[error]
	c.AddErrorListener(errs.add)

	require.NoError(t, c.Connect(context.Background(), "g-1"))
	srv.RefuseUpgrades(true)
	srv.CloseConns()

	require.Eventually(t, func() bool {
		for _, err := range errs.all() {
			if errors.Is(err, transport.ErrReconnectExhausted) {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	assert.False(t, c.Connected())
	assert.Equal(t, 1, srv.ConnCount(), "no dial succeeded after the closure")
}

func TestReconnectResumesAfterTransientRefusal(t *testing.T) {
	srv := zaitest.NewServer(testToken)
	defer srv.Close()
	c := newTestChannel(t, srv, transport.Options{
		ReconnectDelay:       10 * time.Millisecond,
		MaxReconnectAttempts: 10,
	})

	require.NoError(t, c.Connect(context.Background(), "g-1"))
	srv.RefuseUpgrades(true)
	srv.CloseConns()

	// Let at least one attempt fail, then allow upgrades again.
	time.Sleep(30 * time.Millisecond)
	srv.RefuseUpgrades(false)

	require.Eventually(t, func() bool {
		return c.Connected() && srv.ConnCount() == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestListenersRunInOrderAndSurvivePanics(t *testing.T) {
	srv := zaitest.NewServer(testToken)
	defer srv.Close()
	c := newTestChannel(t, srv, transport.Options{})

	var order collector[int]
	c.AddListener(func(protocol.ServerMessage) { order.add(1) })
	c.AddListener(func(protocol.ServerMessage) { panic("listener bug") })
	removeThird := c.AddListener(func(protocol.ServerMessage) { order.add(3) })
	c.AddListener(func(protocol.ServerMessage) { order.add(4) })
	removeThird()

	require.NoError(t, c.Connect(context.Background(), "g-1"))
	srv.PushJSON(map[string]any{"type": "pong", "game_id": "g-1", "timestamp": 1})

	require.Eventually(t, func() bool { return order.len() == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []int{1, 4}, order.all())
}

func TestUndecodableFrameGoesToErrorListeners(t *testing.T) {
	srv := zaitest.NewServer(testToken)
	defer srv.Close()
	c := newTestChannel(t, srv, transport.Options{})

	var msgs collector[protocol.ServerMessage]
	var errs collector[error]
	c.AddListener(msgs.add)
	c.AddErrorListener(errs.add)

	require.NoError(t, c.Connect(context.Background(), "g-1"))
	srv.PushJSON(map[string]any{"type": "gossip", "game_id": "g-1", "timestamp": 1})

	require.Eventually(t, func() bool { return errs.len() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.ErrorIs(t, errs.all()[0], protocol.ErrUnknownType)
	assert.Zero(t, msgs.len())
	assert.True(t, c.Connected(), "a bad frame does not kill the connection")
}

func TestHeartbeatPingsServer(t *testing.T) {
	srv := zaitest.NewServer(testToken)
	defer srv.Close()
	c := newTestChannel(t, srv, transport.Options{HeartbeatInterval: 15 * time.Millisecond})

	var msgs collector[protocol.ServerMessage]
	c.AddListener(msgs.add)

	require.NoError(t, c.Connect(context.Background(), "g-1"))

	require.Eventually(t, func() bool {
		return len(srv.ReceivedOfType(protocol.TypePing)) >= 2
	}, 2*time.Second, 10*time.Millisecond)

	// The fake server answers each ping; the pongs flow back as messages.
	require.Eventually(t, func() bool {
		for _, m := range msgs.all() {
			if _, ok := m.(protocol.Pong); ok {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}
