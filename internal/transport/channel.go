// Package transport owns the persistent WebSocket connection to the Zai
// server for one game session. It carries no game semantics: inbound frames
// are decoded into the protocol union and handed to listeners in
// registration order; outbound sends fail fast while disconnected.
//
// A Channel is an explicitly owned object with open/close lifecycle. The
// view or controller managing the active session constructs one and injects
// it where needed; there is no package-level singleton.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/OVECJOE/zai-client/internal/protocol"
)

var (
	ErrNoToken            = errors.New("no access token available")
	ErrNotConnected       = errors.New("websocket is not connected")
	ErrHandshake          = errors.New("websocket handshake failed")
	ErrReconnectExhausted = errors.New("reconnect attempts exhausted")
)

const writeTimeout = 3 * time.Second

// Listener receives every decoded inbound message.
type Listener func(protocol.ServerMessage)

// ErrorListener receives connectivity and decode errors.
type ErrorListener func(error)

// Options configures a Channel. Zero fields take the defaults below.
type Options struct {
	// BaseURL is the WebSocket root, e.g. ws://localhost:8000/ws.
	BaseURL string
	// Token is the bearer credential, attached as a query parameter.
	Token string

	HeartbeatInterval    time.Duration
	ReconnectDelay       time.Duration // base; attempt n waits n * delay
	MaxReconnectAttempts int
	HandshakeTimeout     time.Duration

	Logger *zap.Logger
	Clock  clock.Clock
}

const (
	DefaultHeartbeatInterval    = 30 * time.Second
	DefaultReconnectDelay       = time.Second
	DefaultMaxReconnectAttempts = 5
	DefaultHandshakeTimeout     = 10 * time.Second
)

type listenerEntry struct {
	id int
	fn Listener
}

type errListenerEntry struct {
	id int
	fn ErrorListener
}

// Channel is one bidirectional connection per active game session.
type Channel struct {
	opts Options
	log  *zap.Logger
	clk  clock.Clock

	mu              sync.Mutex
	conn            *websocket.Conn
	gameID          string
	gen             int // connection generation; stale callbacks check it
	shouldReconnect bool
	attempts        int
	reconnectTimer  *clock.Timer
	readCancel      context.CancelFunc
	heartbeatStop   chan struct{}
	listeners       []listenerEntry
	errListeners    []errListenerEntry
	nextListenerID  int
}

// New builds a disconnected Channel.
func New(opts Options) *Channel {
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	if opts.MaxReconnectAttempts <= 0 {
		opts.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	return &Channel{opts: opts, log: opts.Logger, clk: opts.Clock}
}

// Connect opens the connection for the given game. Connecting while already
// connected to the same game id is a no-op; a different game id tears the
// old connection down first. It returns once the handshake succeeds or
// fails, the latter within the handshake timeout.
func (c *Channel) Connect(ctx context.Context, gameID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil && c.gameID == gameID {
		return nil
	}
	c.teardownLocked()

	if c.opts.Token == "" {
		return ErrNoToken
	}

	c.gameID = gameID
	c.shouldReconnect = true
	c.attempts = 0
	return c.dialLocked(ctx)
}

// Disconnect closes the connection and suppresses any pending reconnect
// attempts. It is idempotent.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shouldReconnect = false
	c.teardownLocked()
	c.gameID = ""
	c.attempts = 0
}

// Connected reports whether the channel currently has a live connection.
func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// GameID returns the game the channel is (or was last) connected to.
func (c *Channel) GameID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gameID
}

// SendMove submits a move intent. Callers must check Connected first; a send
// while disconnected fails immediately.
func (c *Channel) SendMove(m protocol.Move) error {
	gameID, err := c.connectedGameID()
	if err != nil {
		return err
	}
	data, err := protocol.EncodeMove(gameID, m, c.clk.Now())
	if err != nil {
		return err
	}
	return c.write(data)
}

// SendResign submits a resignation intent.
func (c *Channel) SendResign() error {
	gameID, err := c.connectedGameID()
	if err != nil {
		return err
	}
	data, err := protocol.EncodeResign(gameID, c.clk.Now())
	if err != nil {
		return err
	}
	return c.write(data)
}

// RequestState asks the server for a full state broadcast. Unlike the
// state-mutating sends it is silently ignored while disconnected; the
// broadcast that follows a reconnect covers the same need.
func (c *Channel) RequestState() error {
	gameID, err := c.connectedGameID()
	if err != nil {
		return nil
	}
	data, err := protocol.EncodeGetState(gameID, c.clk.Now())
	if err != nil {
		return err
	}
	return c.write(data)
}

// AddListener registers fn for every decoded inbound message. Listeners run
// in registration order; one panicking does not stop the rest. The returned
// function removes the registration.
func (c *Channel) AddListener(fn Listener) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextListenerID++
	id := c.nextListenerID
	c.listeners = append(c.listeners, listenerEntry{id: id, fn: fn})
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, e := range c.listeners {
			if e.id == id {
				c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
				return
			}
		}
	}
}

// AddErrorListener registers fn for connectivity and decode errors.
func (c *Channel) AddErrorListener(fn ErrorListener) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextListenerID++
	id := c.nextListenerID
	c.errListeners = append(c.errListeners, errListenerEntry{id: id, fn: fn})
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, e := range c.errListeners {
			if e.id == id {
				c.errListeners = append(c.errListeners[:i], c.errListeners[i+1:]...)
				return
			}
		}
	}
}

func (c *Channel) connectedGameID() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return "", ErrNotConnected
	}
	return c.gameID, nil
}

func (c *Channel) write(data []byte) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}

// dialLocked opens the socket and starts the reader and heartbeat for the
// new connection generation. Callers hold c.mu.
func (c *Channel) dialLocked(ctx context.Context) error {
	base := strings.TrimRight(c.opts.BaseURL, "/")
	target := fmt.Sprintf("%s/game/%s?token=%s", base, c.gameID, url.QueryEscape(c.opts.Token))

	dialCtx, cancel := context.WithTimeout(ctx, c.opts.HandshakeTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, target, nil) //nolint:bodyclose // nil response body on success
	if err != nil {
		return fmt.Errorf("%w: %v", ErrHandshake, err)
	}

	c.gen++
	gen := c.gen
	c.conn = conn

	readCtx, readCancel := context.WithCancel(context.Background())
	c.readCancel = readCancel
	go c.readLoop(readCtx, conn, gen)

	stop := make(chan struct{})
	c.heartbeatStop = stop
	go c.heartbeat(gen, stop)

	c.log.Info("connected", zap.String("game_id", c.gameID), zap.Int("generation", gen))
	return nil
}

// teardownLocked closes the current connection, if any, and cancels every
// pending timer so no stale callback can fire afterwards. Callers hold c.mu.
func (c *Channel) teardownLocked() {
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	if c.heartbeatStop != nil {
		close(c.heartbeatStop)
		c.heartbeatStop = nil
	}
	if c.readCancel != nil {
		c.readCancel()
		c.readCancel = nil
	}
	if c.conn != nil {
		_ = c.conn.Close(websocket.StatusNormalClosure, "client disconnect")
		c.conn = nil
	}
	c.gen++
}

func (c *Channel) readLoop(ctx context.Context, conn *websocket.Conn, gen int) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			c.handleClosed(gen, err)
			return
		}
		msg, decodeErr := protocol.DecodeServer(data)
		if decodeErr != nil {
			c.log.Warn("dropping undecodable frame", zap.Error(decodeErr))
			c.dispatchError(decodeErr)
			continue
		}
		c.dispatch(msg)
	}
}

func (c *Channel) dispatch(msg protocol.ServerMessage) {
	c.mu.Lock()
	entries := make([]listenerEntry, len(c.listeners))
	copy(entries, c.listeners)
	c.mu.Unlock()

	for _, e := range entries {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.log.Error("message listener panicked", zap.Any("panic", r))
				}
			}()
			e.fn(msg)
		}()
	}
}

func (c *Channel) dispatchError(err error) {
	c.mu.Lock()
	entries := make([]errListenerEntry, len(c.errListeners))
	copy(entries, c.errListeners)
	c.mu.Unlock()

	for _, e := range entries {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.log.Error("error listener panicked", zap.Any("panic", r))
				}
			}()
			e.fn(err)
		}()
	}
}

// handleClosed reacts to the reader loop exiting. On an unexpected closure
// it schedules a reconnect with linearly increasing delay until the attempt
// ceiling; an explicit Disconnect bumps the generation first so this becomes
// a no-op.
func (c *Channel) handleClosed(gen int, cause error) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	if c.heartbeatStop != nil {
		close(c.heartbeatStop)
		c.heartbeatStop = nil
	}
	if c.conn != nil {
		_ = c.conn.Close(websocket.StatusNormalClosure, "")
		c.conn = nil
	}
	c.gen++

	if !c.shouldReconnect {
		c.mu.Unlock()
		return
	}

	scheduled := c.scheduleReconnectLocked()
	attempts := c.attempts
	c.mu.Unlock()

	c.log.Warn("connection closed", zap.Error(cause), zap.Int("attempt", attempts))
	if !scheduled {
		c.dispatchError(fmt.Errorf("%w after %d attempts: %v", ErrReconnectExhausted, attempts, cause))
		return
	}
	c.dispatchError(fmt.Errorf("connection closed: %v", cause))
}

// scheduleReconnectLocked arms the next retry timer if the ceiling allows.
// Callers hold c.mu.
func (c *Channel) scheduleReconnectLocked() bool {
	if !c.shouldReconnect || c.attempts >= c.opts.MaxReconnectAttempts {
		return false
	}
	c.attempts++
	delay := time.Duration(c.attempts) * c.opts.ReconnectDelay
	c.reconnectTimer = c.clk.AfterFunc(delay, c.redial)
	return true
}

func (c *Channel) redial() {
	c.mu.Lock()
	if !c.shouldReconnect || c.conn != nil {
		c.mu.Unlock()
		return
	}
	err := c.dialLocked(context.Background())
	if err == nil {
		c.attempts = 0
		c.mu.Unlock()
		return
	}

	scheduled := c.scheduleReconnectLocked()
	attempts := c.attempts
	c.mu.Unlock()

	c.log.Warn("reconnect failed", zap.Error(err), zap.Int("attempt", attempts))
	if !scheduled {
		c.dispatchError(fmt.Errorf("%w after %d attempts: %v", ErrReconnectExhausted, attempts, err))
	}
}

func (c *Channel) heartbeat(gen int, stop chan struct{}) {
	ticker := c.clk.Ticker(c.opts.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			conn, gameID, current := c.conn, c.gameID, c.gen
			c.mu.Unlock()
			if conn == nil || current != gen {
				return
			}
			data, err := protocol.EncodePing(gameID, c.clk.Now())
			if err != nil {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
				c.log.Debug("heartbeat write failed", zap.Error(err))
			}
			cancel()
		}
	}
}
