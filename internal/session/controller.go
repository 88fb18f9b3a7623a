// Package session wires one game together: it owns the Session mirror,
// drives the reconciler from transport messages, resolves clicks through
// the selector, and enforces the submit preconditions. A single goroutine
// consumes a sealed-interface inbox, so messages are handled strictly in
// arrival order and nothing else ever mutates the mirror.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/OVECJOE/zai-client/internal/game"
	"github.com/OVECJOE/zai-client/internal/hex"
	"github.com/OVECJOE/zai-client/internal/notify"
	"github.com/OVECJOE/zai-client/internal/protocol"
	"github.com/OVECJOE/zai-client/internal/transport"
)

var (
	ErrClosed        = errors.New("session controller closed")
	ErrGameNotActive = errors.New("game is not active")
	ErrNotSeated     = errors.New("not a seated player in this game")
	ErrNotYourTurn   = errors.New("not your turn")
	ErrMovePending   = errors.New("a move is already pending")
)

// Transport is the slice of the channel the controller needs. The concrete
// implementation is transport.Channel.
type Transport interface {
	Connect(ctx context.Context, gameID string) error
	Disconnect()
	Connected() bool
	SendMove(m protocol.Move) error
	SendResign() error
	RequestState() error
	AddListener(fn transport.Listener) func()
	AddErrorListener(fn transport.ErrorListener) func()
}

// Loader fetches the initial game document. The concrete implementation is
// rest.Client.
type Loader interface {
	GetGame(ctx context.Context, gameID string) (*protocol.GameSnapshot, error)
}

// Msg is the sealed inbox union of the controller loop.
type Msg interface{ isSessionMsg() }

type fromServer struct{ msg protocol.ServerMessage }

type transportFailure struct{ err error }

type loaded struct{ session game.Session }

type clickMsg struct {
	pos   hex.Coordinate
	reply chan error
}

type submitMsg struct {
	move  protocol.Move
	reply chan error
}

type resignMsg struct{ reply chan error }

type viewMsg struct{ reply chan View }

func (fromServer) isSessionMsg()       {}
func (transportFailure) isSessionMsg() {}
func (loaded) isSessionMsg()           {}
func (clickMsg) isSessionMsg()         {}
func (submitMsg) isSessionMsg()        {}
func (resignMsg) isSessionMsg()        {}
func (viewMsg) isSessionMsg()          {}

// View is a read-only snapshot for the display layer. Board is the
// projected board including the optimistic pending move. Readers must not
// mutate the contained slices.
type View struct {
	Session    game.Session
	Selection  game.Selection
	Me         protocol.Color
	Seated     bool
	Board      game.Board
	WhiteClock int
	RedClock   int
	Connected  bool
}

// Config assembles a Controller's collaborators.
type Config struct {
	UserID   string
	Loader   Loader
	Channel  Transport
	Notifier notify.Notifier
	Logger   *zap.Logger
	Clock    clock.Clock
}

// Controller owns one game session from load to teardown.
type Controller struct {
	log      *zap.Logger
	clk      clock.Clock
	api      Loader
	channel  Transport
	notifier notify.Notifier
	userID   string

	inbox  chan Msg
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// Everything below is owned by the loop goroutine.
	session    game.Session
	selection  game.Selection
	me         protocol.Color
	seated     bool
	whiteClock *game.ClockDeriver
	redClock   *game.ClockDeriver

	removeListener    func()
	removeErrListener func()
}

// New starts a controller loop. Call Load to attach a game, Close to tear
// the session down.
func New(parent context.Context, cfg Config) *Controller {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.NewLogNotifier(cfg.Logger)
	}

	ctx, cancel := context.WithCancel(parent)
	c := &Controller{
		log:        cfg.Logger,
		clk:        cfg.Clock,
		api:        cfg.Loader,
		channel:    cfg.Channel,
		notifier:   cfg.Notifier,
		userID:     cfg.UserID,
		inbox:      make(chan Msg, 64),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		whiteClock: game.NewClockDeriver(cfg.Clock, true),
		redClock:   game.NewClockDeriver(cfg.Clock, true),
	}
	go c.loop()
	return c
}

// Load fetches the game document, seeds the mirror, and opens the channel.
// A load failure is fatal to the session view; connect failures surface but
// leave the mirror usable for a later reconnect.
func (c *Controller) Load(ctx context.Context, gameID string) error {
	snap, err := c.api.GetGame(ctx, gameID)
	if err != nil {
		return fmt.Errorf("load game %s: %w", gameID, err)
	}

	if err := c.send(loaded{session: game.FromSnapshot(*snap)}); err != nil {
		return err
	}

	c.removeListener = c.channel.AddListener(func(msg protocol.ServerMessage) {
		select {
		case c.inbox <- fromServer{msg: msg}:
		case <-c.ctx.Done():
		}
	})
	c.removeErrListener = c.channel.AddErrorListener(func(err error) {
		select {
		case c.inbox <- transportFailure{err: err}:
		case <-c.ctx.Done():
		}
	})

	if err := c.channel.Connect(ctx, gameID); err != nil {
		c.notifier.Toast(game.ToastError, "Failed to connect to game")
		return fmt.Errorf("connect game %s: %w", gameID, err)
	}
	// Ask for a full broadcast so the mirror converges even if the REST
	// document was already stale.
	_ = c.channel.RequestState()
	return nil
}

// Click feeds one coordinate selection through the move input rules.
func (c *Controller) Click(pos hex.Coordinate) error {
	reply := make(chan error, 1)
	if err := c.send(clickMsg{pos: pos, reply: reply}); err != nil {
		return err
	}
	return c.await(reply)
}

// Submit sends a composed move directly, bypassing click selection. The
// same preconditions apply.
func (c *Controller) Submit(move protocol.Move) error {
	reply := make(chan error, 1)
	if err := c.send(submitMsg{move: move, reply: reply}); err != nil {
		return err
	}
	return c.await(reply)
}

// Resign submits a resignation intent. The outcome arrives through the
// normal game_end handling.
func (c *Controller) Resign() error {
	reply := make(chan error, 1)
	if err := c.send(resignMsg{reply: reply}); err != nil {
		return err
	}
	return c.await(reply)
}

// View returns a display snapshot of the current session.
func (c *Controller) View() (View, error) {
	reply := make(chan View, 1)
	if err := c.send(viewMsg{reply: reply}); err != nil {
		return View{}, err
	}
	select {
	case v := <-reply:
		return v, nil
	case <-c.ctx.Done():
		return View{}, ErrClosed
	}
}

// Close tears the session down: the loop stops, the listeners detach, and
// the transport closes. No inbound dispatch can mutate the mirror
// afterwards. Idempotent.
func (c *Controller) Close() {
	c.cancel()
	<-c.done
}

func (c *Controller) send(m Msg) error {
	select {
	case c.inbox <- m:
		return nil
	case <-c.ctx.Done():
		return ErrClosed
	}
}

func (c *Controller) await(reply chan error) error {
	select {
	case err := <-reply:
		return err
	case <-c.ctx.Done():
		return ErrClosed
	}
}

func (c *Controller) loop() {
	defer close(c.done)
	defer func() {
		if c.removeListener != nil {
			c.removeListener()
		}
		if c.removeErrListener != nil {
			c.removeErrListener()
		}
		c.channel.Disconnect()
	}()

	for {
		select {
		case <-c.ctx.Done():
			return

		case m := <-c.inbox:
			switch msg := m.(type) {
			case loaded:
				c.session = msg.session
				c.me, c.seated = c.session.SeatOf(c.userID)
				c.anchorClocks()

			case fromServer:
				c.handleServerMessage(msg.msg)

			case transportFailure:
				c.handleTransportFailure(msg.err)

			case clickMsg:
				msg.reply <- c.handleClick(msg.pos)

			case submitMsg:
				msg.reply <- c.submitMove(msg.move)

			case resignMsg:
				msg.reply <- c.handleResign()

			case viewMsg:
				msg.reply <- c.buildView()
			}
		}
	}
}

func (c *Controller) handleServerMessage(msg protocol.ServerMessage) {
	effects, next, err := game.Apply(c.session, msg, c.clk.Now())
	if err != nil {
		c.log.Warn("discarding message", zap.Error(err))
		return
	}
	c.session = next
	c.runEffects(effects)

	if _, ok := msg.(protocol.GameState); ok {
		// Only the full broadcast carries fresh authoritative clocks.
		c.anchorClocks()
		return
	}
	c.updateClockActivity()
}

func (c *Controller) handleTransportFailure(err error) {
	c.session.LastError = err.Error()
	if errors.Is(err, transport.ErrReconnectExhausted) {
		c.notifier.Toast(game.ToastError, "Connection lost. Please reload the game.")
		return
	}
	c.notifier.Toast(game.ToastError, "Connection error. Trying to reconnect...")
}

// handleClick checks the interaction preconditions, then defers to the
// selector. A composed move goes straight to submission.
func (c *Controller) handleClick(pos hex.Coordinate) error {
	if c.session.GameID == "" {
		return game.ErrNoSession
	}
	if c.session.Status != protocol.StatusActive {
		return ErrGameNotActive
	}
	if !c.seated {
		return ErrNotSeated
	}
	if c.session.CurrentTurn != c.me {
		c.notifier.Toast(game.ToastWarning, "It's not your turn")
		return ErrNotYourTurn
	}
	if c.session.PendingMove != nil {
		c.notifier.Toast(game.ToastWarning, "Waiting for the server to answer your move")
		return ErrMovePending
	}

	selection, move, effects := game.Select(c.session, c.selection, c.me, pos)
	c.selection = selection
	c.runEffects(effects)

	if move != nil {
		return c.submitMove(*move)
	}
	return nil
}

func (c *Controller) submitMove(move protocol.Move) error {
	if c.session.GameID == "" {
		c.notifier.Toast(game.ToastWarning, "No game loaded")
		return game.ErrNoSession
	}
	if !c.channel.Connected() {
		c.notifier.Toast(game.ToastError, "Not connected to game server. Please refresh.")
		return transport.ErrNotConnected
	}
	if c.session.PendingMove != nil {
		c.notifier.Toast(game.ToastWarning, "Waiting for the server to answer your move")
		return ErrMovePending
	}

	c.session.PendingMove = &move
	c.session.LastError = ""
	c.selection = game.Selection{}

	if err := c.channel.SendMove(move); err != nil {
		c.session.PendingMove = nil
		c.session.LastError = err.Error()
		c.notifier.Toast(game.ToastError, "Failed to send move")
		return err
	}
	return nil
}

func (c *Controller) handleResign() error {
	if c.session.GameID == "" {
		return game.ErrNoSession
	}
	if !c.channel.Connected() {
		c.notifier.Toast(game.ToastError, "Not connected to game server. Please refresh.")
		return transport.ErrNotConnected
	}
	if err := c.channel.SendResign(); err != nil {
		c.notifier.Toast(game.ToastError, "Failed to resign")
		return err
	}
	c.notifier.Toast(game.ToastInfo, "Resigned from game")
	return nil
}

func (c *Controller) runEffects(effects []game.Effect) {
	for _, effect := range effects {
		switch e := effect.(type) {
		case game.ClearSelection:
			c.selection = game.Selection{}
		case game.PlaySound:
			c.notifier.PlaySound(e.Sound)
		case game.Toast:
			c.notifier.Toast(e.Level, e.Message)
		}
	}
}

// anchorClocks re-anchors both derivers from fresh authoritative values.
func (c *Controller) anchorClocks() {
	active := c.session.Status == protocol.StatusActive
	if t := c.session.WhitePlayer.TimeRemaining; t != nil {
		c.whiteClock.SetAuthoritative(*t, active && c.session.CurrentTurn == protocol.White)
	}
	if t := c.session.RedPlayer.TimeRemaining; t != nil {
		c.redClock.SetAuthoritative(*t, active && c.session.CurrentTurn == protocol.Red)
	}
}

// updateClockActivity flips which clock ticks after a turn or status change
// that carried no fresh time values.
func (c *Controller) updateClockActivity() {
	active := c.session.Status == protocol.StatusActive
	c.whiteClock.SetActive(active && c.session.CurrentTurn == protocol.White)
	c.redClock.SetActive(active && c.session.CurrentTurn == protocol.Red)
}

func (c *Controller) buildView() View {
	return View{
		Session:    c.session,
		Selection:  c.selection,
		Me:         c.me,
		Seated:     c.seated,
		Board:      c.session.ProjectedBoard(c.me),
		WhiteClock: c.whiteClock.Seconds(),
		RedClock:   c.redClock.Seconds(),
		Connected:  c.channel.Connected(),
	}
}
