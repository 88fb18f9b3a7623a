package game

import (
	"fmt"
	"strings"
	"time"

	"github.com/OVECJOE/zai-client/internal/protocol"
)

// Effect is a side-effect descriptor emitted by Apply. The session layer
// runs effects; the reconciler itself never touches I/O.
type Effect interface{ isEffect() }

// ClearSelection tells the input layer to drop any sacrifice selection in
// progress.
type ClearSelection struct{}

// PlaySound requests an audio cue.
type PlaySound struct{ Sound string }

// Toast requests a transient user-visible notification.
type Toast struct {
	Level   ToastLevel
	Message string
}

type ToastLevel string

const (
	ToastInfo    ToastLevel = "info"
	ToastWarning ToastLevel = "warning"
	ToastError   ToastLevel = "error"
)

const (
	SoundInvalidMove = "invalid_move"
	SoundGameEnd     = "game_end"
)

func (ClearSelection) isEffect() {}
func (PlaySound) isEffect()      {}
func (Toast) isEffect()          {}

// Apply reconciles one inbound server message with the session mirror. It
// returns the effects to run and the new session value; the input session is
// not modified. A GameState message with no prior session (zero GameID)
// constructs a fresh mirror.
//
// Every authoritative message clears PendingMove: accept and reject resolve
// it, and a fresh broadcast supersedes it.
func Apply(s Session, msg protocol.ServerMessage, now time.Time) ([]Effect, Session, error) {
	if id := messageGameID(msg); s.GameID != "" && id != "" && id != s.GameID {
		return nil, s, fmt.Errorf("%w: got %q, have %q", ErrWrongSession, id, s.GameID)
	}

	switch m := msg.(type) {
	case protocol.GameState:
		return applyGameState(s, m, now)
	case protocol.MoveAccepted:
		return applyMoveAccepted(s, m, now)
	case protocol.MoveRejected:
		return applyMoveRejected(s, m)
	case protocol.StateUpdate:
		return applyStateUpdate(s, m, now)
	case protocol.GameEnd:
		return applyGameEnd(s, m, now)
	case protocol.ServerError:
		return applyServerError(s, m)
	case protocol.Pong:
		return nil, s, nil
	default:
		return nil, s, fmt.Errorf("%w: %T", protocol.ErrUnknownType, msg)
	}
}

func applyGameState(s Session, m protocol.GameState, now time.Time) ([]Effect, Session, error) {
	fresh := s.GameID == ""

	next := s
	next.GameID = m.GameID
	next.CurrentTurn = m.CurrentTurn
	next.TurnNumber = m.TurnNumber
	next.Board = NewBoard(m.BoardState)
	next.LegalMoves = m.LegalMoves
	next.Phase = m.Phase
	next.WhitePlayer = m.WhitePlayer
	next.RedPlayer = m.RedPlayer
	next.PendingMove = nil

	// A full broadcast only arrives for a live game, but a terminal status
	// never regresses: a stale broadcast cannot resurrect a finished game.
	if !s.Status.Terminal() {
		next.Status = protocol.StatusActive
	}

	if fresh {
		next.MoveHistory = nil
		next.StartedAt = now
	}

	return []Effect{ClearSelection{}}, next, nil
}

func applyMoveAccepted(s Session, m protocol.MoveAccepted, now time.Time) ([]Effect, Session, error) {
	if s.GameID == "" {
		return nil, s, ErrNoSession
	}

	next := s
	next.CurrentTurn = m.NextTurn
	next.TurnNumber = m.MoveNumber + 1
	if !s.Status.Terminal() {
		next.Status = m.GameStatus
	}
	next.PendingMove = nil

	rec := protocol.MoveRecord{
		MoveNumber:        m.MoveNumber,
		Player:            m.Player,
		MoveType:          m.Move.Type,
		Position:          m.Move.Position,
		SacrificePosition: m.Move.SacrificePosition,
		Placements:        m.Move.Placements,
		CreatedAt:         now.Unix(),
	}
	next.MoveHistory = appendHistory(s.MoveHistory, rec)

	// Board and legal moves are deliberately untouched: the authoritative
	// state_update follows, and until it lands the display keeps showing
	// the optimistic projection of the just-confirmed move.
	return []Effect{ClearSelection{}}, next, nil
}

func applyMoveRejected(s Session, m protocol.MoveRejected) ([]Effect, Session, error) {
	if s.GameID == "" {
		return nil, s, ErrNoSession
	}

	next := s
	next.PendingMove = nil
	next.LastError = m.Message

	effects := []Effect{
		ClearSelection{},
		PlaySound{Sound: SoundInvalidMove},
		Toast{Level: ToastError, Message: m.Message},
	}
	return effects, next, nil
}

func applyStateUpdate(s Session, m protocol.StateUpdate, now time.Time) ([]Effect, Session, error) {
	if s.GameID == "" {
		return nil, s, ErrNoSession
	}

	next := s
	next.CurrentTurn = m.CurrentTurn
	next.TurnNumber = m.TurnNumber
	next.Board = NewBoard(m.BoardState)
	next.LegalMoves = m.LegalMoves
	next.Phase = m.Phase
	next.PendingMove = nil

	if lm := m.LastMove; lm != nil && lm.Move != nil {
		rec := protocol.MoveRecord{
			MoveNumber:        lm.MoveNumber,
			Player:            lm.Player,
			MoveType:          lm.Move.Type,
			Position:          lm.Move.Position,
			SacrificePosition: lm.Move.SacrificePosition,
			Placements:        lm.Move.Placements,
			CreatedAt:         now.Unix(),
		}
		next.MoveHistory = appendHistory(s.MoveHistory, rec)
	}

	return []Effect{ClearSelection{}}, next, nil
}

func applyGameEnd(s Session, m protocol.GameEnd, now time.Time) ([]Effect, Session, error) {
	if s.GameID == "" {
		return nil, s, ErrNoSession
	}

	next := s
	next.Status = m.Status
	next.Winner = m.Winner
	next.WinCondition = m.WinCondition
	next.Board = NewBoard(m.FinalState.BoardState)
	next.LegalMoves = nil
	next.CompletedAt = now
	next.PendingMove = nil

	effects := []Effect{
		ClearSelection{},
		PlaySound{Sound: SoundGameEnd},
		Toast{Level: ToastInfo, Message: endSummary(m)},
	}
	return effects, next, nil
}

func applyServerError(s Session, m protocol.ServerError) ([]Effect, Session, error) {
	msg := m.Message
	if msg == "" {
		msg = "server error"
	}

	next := s
	next.LastError = msg

	return []Effect{Toast{Level: ToastError, Message: msg}}, next, nil
}

func endSummary(m protocol.GameEnd) string {
	if m.Winner == "" || m.Winner == protocol.WinnerDraw {
		return "Game ended in a draw"
	}
	return fmt.Sprintf("Game over! %s wins by %s!", strings.ToUpper(string(m.Winner)), m.WinCondition)
}

// appendHistory adds rec unless a record with the same move number is
// already the tail, which happens when move_accepted and the following
// state_update both describe the move.
func appendHistory(history []protocol.MoveRecord, rec protocol.MoveRecord) []protocol.MoveRecord {
	if n := len(history); n > 0 && history[n-1].MoveNumber >= rec.MoveNumber {
		return history
	}
	out := make([]protocol.MoveRecord, len(history), len(history)+1)
	copy(out, history)
	return append(out, rec)
}

func messageGameID(msg protocol.ServerMessage) string {
	switch m := msg.(type) {
	case protocol.GameState:
		return m.GameID
	case protocol.MoveAccepted:
		return m.GameID
	case protocol.MoveRejected:
		return m.GameID
	case protocol.StateUpdate:
		return m.GameID
	case protocol.GameEnd:
		return m.GameID
	case protocol.ServerError:
		return m.GameID
	case protocol.Pong:
		return m.GameID
	default:
		return ""
	}
}
