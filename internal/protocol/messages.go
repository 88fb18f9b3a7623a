// Package protocol defines the wire contract between the client and the Zai
// server: the WebSocket envelope, one concrete payload shape per message
// tag, and the REST document shapes. Payloads are validated here, at the
// transport boundary, before anything reaches the session layer.
package protocol

import (
	"github.com/OVECJOE/zai-client/internal/hex"
)

// Color identifies one of the two seated players.
type Color string

const (
	White Color = "white"
	Red   Color = "red"
)

// Opponent returns the other color.
func (c Color) Opponent() Color {
	if c == White {
		return Red
	}
	return White
}

// Status is the lifecycle state of a game. It only ever moves forward:
// pending -> active -> completed|abandoned.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusAbandoned Status = "abandoned"
)

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusAbandoned
}

// Phase is the server-declared stage of a game. It gates which move types
// are legal and advances monotonically.
type Phase string

const (
	PhasePlacement    Phase = "placement"
	PhaseExpansion    Phase = "expansion"
	PhaseEncirclement Phase = "encirclement"
	PhaseEndgame      Phase = "endgame"
)

// Winner is the declared outcome of a completed game.
type Winner string

const (
	WinnerWhite Winner = "white"
	WinnerRed   Winner = "red"
	WinnerDraw  Winner = "draw"
)

// MoveType tags the Move union.
type MoveType string

const (
	MovePlacement MoveType = "placement"
	MoveSacrifice MoveType = "sacrifice"
)

// Move is the tagged move union, used both as outbound intent and as an
// inbound record. A placement carries Position; a sacrifice removes the
// stone at SacrificePosition and adds the two Placements.
type Move struct {
	Type              MoveType         `json:"type"`
	Position          *hex.Coordinate  `json:"position,omitempty"`
	SacrificePosition *hex.Coordinate  `json:"sacrifice_position,omitempty"`
	Placements        []hex.Coordinate `json:"placements,omitempty"`
}

// Placement builds a placement move.
func Placement(pos hex.Coordinate) Move {
	return Move{Type: MovePlacement, Position: &pos}
}

// Sacrifice builds a sacrifice move.
func Sacrifice(source hex.Coordinate, placements [2]hex.Coordinate) Move {
	return Move{
		Type:              MoveSacrifice,
		SacrificePosition: &source,
		Placements:        placements[:],
	}
}

// Stone is one occupied hex.
type Stone struct {
	Player   Color          `json:"player"`
	Position hex.Coordinate `json:"position"`
}

// BoardState is the wire form of the board: the flat stone list.
type BoardState struct {
	Stones []Stone `json:"stones"`
}

// PlayerInfo is the per-seat identity block carried by game documents.
type PlayerInfo struct {
	UserID        string   `json:"user_id"`
	Username      string   `json:"username"`
	ELORating     int      `json:"elo_rating"`
	TimeRemaining *float64 `json:"time_remaining,omitempty"` // seconds; nil means untimed
}

// LastMove is the trailing-move summary attached to state updates.
type LastMove struct {
	MoveNumber int    `json:"move_number"`
	Player     Color  `json:"player"`
	Move       *Move  `json:"move,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// ServerMessage is the closed union of everything the server can push over
// the WebSocket. Decode returns exactly one of the concrete types below, so
// a switch over ServerMessage covers the whole protocol.
type ServerMessage interface{ isServerMessage() }

// GameState is the full authoritative broadcast. It replaces the session
// mirror wholesale.
type GameState struct {
	GameID      string
	CurrentTurn Color
	TurnNumber  int
	BoardState  BoardState
	LegalMoves  []Move
	Phase       Phase
	WhitePlayer PlayerInfo
	RedPlayer   PlayerInfo
}

// MoveAccepted confirms the pending move. The authoritative board follows in
// a separate StateUpdate.
type MoveAccepted struct {
	GameID     string `json:"-"`
	MoveNumber int    `json:"move_number"`
	Player     Color  `json:"player"`
	Move       Move   `json:"move"`
	GameStatus Status `json:"game_status"`
	NextTurn   Color  `json:"next_turn"`
}

// MoveRejected reports a server-declined move with a human-readable reason.
type MoveRejected struct {
	GameID        string `json:"-"`
	Reason        string `json:"reason"`
	Message       string `json:"message"`
	AttemptedMove *Move  `json:"attempted_move,omitempty"`
}

// StateUpdate is the post-move broadcast carrying the authoritative board,
// turn, and fresh legal moves.
type StateUpdate struct {
	GameID      string `json:"-"`
	CurrentTurn Color      `json:"current_turn"`
	TurnNumber  int        `json:"turn_number"`
	BoardState  BoardState `json:"board_state"`
	LegalMoves  []Move     `json:"legal_moves"`
	Phase       Phase      `json:"phase"`
	LastMove    *LastMove  `json:"last_move,omitempty"`
}

// GameEnd declares the terminal outcome.
type GameEnd struct {
	GameID       string `json:"-"`
	Status       Status `json:"status"`
	Winner       Winner `json:"winner,omitempty"`
	WinCondition string `json:"win_condition,omitempty"`
	FinalState   struct {
		BoardState BoardState `json:"board_state"`
	} `json:"final_state"`
	ELOChanges *struct {
		White int `json:"white"`
		Red   int `json:"red"`
	} `json:"elo_changes,omitempty"`
}

// ServerError is a protocol-level error pushed by the server. It never
// mutates game state.
type ServerError struct {
	GameID       string `json:"-"`
	ErrorCode    string `json:"error_code"`
	Message      string `json:"message"`
	ReceivedType string `json:"received_type,omitempty"`
}

// Pong answers a heartbeat ping.
type Pong struct {
	GameID string
}

func (GameState) isServerMessage()    {}
func (MoveAccepted) isServerMessage() {}
func (MoveRejected) isServerMessage() {}
func (StateUpdate) isServerMessage()  {}
func (GameEnd) isServerMessage()      {}
func (ServerError) isServerMessage()  {}
func (Pong) isServerMessage()         {}
