// Package game holds the client-side mirror of one Zai game and the pure
// state machines that mutate it: the reconciler for inbound server messages
// and the selector for coordinate clicks. Nothing in this package performs
// I/O; side effects come out as Effect values for the session layer to run.
package game

import (
	"errors"
	"time"

	"github.com/OVECJOE/zai-client/internal/hex"
	"github.com/OVECJOE/zai-client/internal/protocol"
)

var (
	ErrWrongSession = errors.New("message for a different game")
	ErrNoSession    = errors.New("no session loaded")
)

// Void is the designated board coordinate that can never hold a stone.
var Void = hex.Origin

// Board is the set of stone placements, keyed by coordinate so no two
// stones can share a hex.
type Board struct {
	stones map[hex.Coordinate]protocol.Color
}

// NewBoard builds a board from the wire stone list. A stone on the void hex
// or on an already occupied hex is dropped; the server never sends either.
func NewBoard(ws protocol.BoardState) Board {
	b := Board{stones: make(map[hex.Coordinate]protocol.Color, len(ws.Stones))}
	for _, s := range ws.Stones {
		if s.Position == Void {
			continue
		}
		if _, taken := b.stones[s.Position]; taken {
			continue
		}
		b.stones[s.Position] = s.Player
	}
	return b
}

// StoneAt returns the owner of the stone on c, if any.
func (b Board) StoneAt(c hex.Coordinate) (protocol.Color, bool) {
	color, ok := b.stones[c]
	return color, ok
}

// Occupied reports whether c holds a stone.
func (b Board) Occupied(c hex.Coordinate) bool {
	_, ok := b.stones[c]
	return ok
}

// Len returns the stone count.
func (b Board) Len() int { return len(b.stones) }

// Stones returns the board as a wire stone list.
func (b Board) Stones() []protocol.Stone {
	out := make([]protocol.Stone, 0, len(b.stones))
	for pos, color := range b.stones {
		out = append(out, protocol.Stone{Player: color, Position: pos})
	}
	return out
}

// clone returns an independent copy of the board.
func (b Board) clone() Board {
	c := Board{stones: make(map[hex.Coordinate]protocol.Color, len(b.stones))}
	for pos, color := range b.stones {
		c.stones[pos] = color
	}
	return c
}

// Session is the authoritative mirror of one game plus the transient
// client-only move state. It is owned by the session controller and mutated
// only through Apply.
type Session struct {
	GameID       string
	Status       protocol.Status
	CurrentTurn  protocol.Color
	TurnNumber   int
	Phase        protocol.Phase
	Board        Board
	LegalMoves   []protocol.Move
	WhitePlayer  protocol.PlayerInfo
	RedPlayer    protocol.PlayerInfo
	Winner       protocol.Winner
	WinCondition string
	MoveHistory  []protocol.MoveRecord
	StartedAt    time.Time
	CompletedAt  time.Time

	// LastError is the session-level error surface; cleared on the next
	// successful submission.
	LastError string

	// PendingMove is the move optimistically assumed accepted while the
	// server reply is outstanding. At most one at a time.
	PendingMove *protocol.Move
}

// FromSnapshot builds a session mirror from the REST game document.
func FromSnapshot(snap protocol.GameSnapshot) Session {
	s := Session{
		GameID:       snap.GameID,
		Status:       snap.Status,
		CurrentTurn:  snap.CurrentTurn,
		TurnNumber:   snap.TurnNumber,
		Phase:        snap.Phase,
		Board:        NewBoard(snap.BoardState),
		LegalMoves:   snap.LegalMoves,
		WhitePlayer:  snap.WhitePlayer,
		RedPlayer:    snap.RedPlayer,
		Winner:       snap.Winner,
		WinCondition: snap.WinCondition,
		MoveHistory:  snap.MoveHistory,
		StartedAt:    time.Unix(snap.StartedAt, 0),
	}
	if snap.CompletedAt != nil {
		s.CompletedAt = time.Unix(*snap.CompletedAt, 0)
	}
	return s
}

// SeatOf returns the color the given user plays, if seated.
func (s Session) SeatOf(userID string) (protocol.Color, bool) {
	switch userID {
	case s.WhitePlayer.UserID:
		return protocol.White, true
	case s.RedPlayer.UserID:
		return protocol.Red, true
	default:
		return "", false
	}
}

// Player returns the seat block for the given color.
func (s Session) Player(c protocol.Color) protocol.PlayerInfo {
	if c == protocol.White {
		return s.WhitePlayer
	}
	return s.RedPlayer
}

// ProjectedBoard is the board as the display layer should render it: the
// authoritative stones plus the optimistic pending move, if any. Rolling a
// rejected move back is nothing more than clearing PendingMove; the
// authoritative board is never touched by optimism.
func (s Session) ProjectedBoard(me protocol.Color) Board {
	if s.PendingMove == nil {
		return s.Board
	}
	b := s.Board.clone()
	switch s.PendingMove.Type {
	case protocol.MovePlacement:
		if p := s.PendingMove.Position; p != nil && *p != Void {
			b.stones[*p] = me
		}
	case protocol.MoveSacrifice:
		if src := s.PendingMove.SacrificePosition; src != nil {
			delete(b.stones, *src)
		}
		for _, p := range s.PendingMove.Placements {
			if p != Void {
				b.stones[p] = me
			}
		}
	}
	return b
}

// HasLegalPlacement reports whether c is listed as a placement target.
func (s Session) HasLegalPlacement(c hex.Coordinate) bool {
	for _, m := range s.LegalMoves {
		if m.Type == protocol.MovePlacement && m.Position != nil && *m.Position == c {
			return true
		}
	}
	return false
}

// HasLegalSacrificeSource reports whether c is listed as a sacrifice source.
func (s Session) HasLegalSacrificeSource(c hex.Coordinate) bool {
	for _, m := range s.LegalMoves {
		if m.Type == protocol.MoveSacrifice && m.SacrificePosition != nil && *m.SacrificePosition == c {
			return true
		}
	}
	return false
}

// HasLegalSacrifice reports whether removing source and placing a and b, in
// either order, matches a listed sacrifice move.
func (s Session) HasLegalSacrifice(source, a, b hex.Coordinate) bool {
	for _, m := range s.LegalMoves {
		if m.Type != protocol.MoveSacrifice || m.SacrificePosition == nil || *m.SacrificePosition != source {
			continue
		}
		if containsCoord(m.Placements, a) && containsCoord(m.Placements, b) {
			return true
		}
	}
	return false
}

func containsCoord(list []hex.Coordinate, c hex.Coordinate) bool {
	for _, p := range list {
		if p == c {
			return true
		}
	}
	return false
}
