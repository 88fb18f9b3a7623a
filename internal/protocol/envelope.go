package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnknownType = errors.New("unknown message type")
	ErrBadEnvelope = errors.New("malformed envelope")
)

// Envelope is the wire frame shared by both directions:
// { type, game_id, payload?, timestamp }. The full-state broadcast carries
// its body in the sibling state/players fields instead of payload.
type Envelope struct {
	Type      string          `json:"type"`
	GameID    string          `json:"game_id"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	State     json.RawMessage `json:"state,omitempty"`
	Players   json.RawMessage `json:"players,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// Inbound message tags.
const (
	TypeGameState    = "game_state"
	TypeMoveAccepted = "move_accepted"
	TypeMoveRejected = "move_rejected"
	TypeStateUpdate  = "state_update"
	TypeGameEnd      = "game_end"
	TypeError        = "error"
	TypePong         = "pong"
)

// Outbound message tags.
const (
	TypeMove     = "move"
	TypeResign   = "resign"
	TypeGetState = "get_state"
	TypePing     = "ping"
)

type gameStatePayload struct {
	CurrentTurn Color      `json:"current_turn"`
	TurnNumber  int        `json:"turn_number"`
	BoardState  BoardState `json:"board_state"`
	LegalMoves  []Move     `json:"legal_moves"`
	Phase       Phase      `json:"phase"`
}

type gameStatePlayers struct {
	White PlayerInfo `json:"white"`
	Red   PlayerInfo `json:"red"`
}

// DecodeServer parses one inbound frame into the ServerMessage union. An
// unrecognized tag is an error, not a silently dropped frame.
func DecodeServer(data []byte) (ServerMessage, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadEnvelope, err)
	}

	switch env.Type {
	case TypeGameState:
		var state gameStatePayload
		if err := json.Unmarshal(env.State, &state); err != nil {
			return nil, fmt.Errorf("decode %s state: %w", env.Type, err)
		}
		var players gameStatePlayers
		if err := json.Unmarshal(env.Players, &players); err != nil {
			return nil, fmt.Errorf("decode %s players: %w", env.Type, err)
		}
		return GameState{
			GameID:      env.GameID,
			CurrentTurn: state.CurrentTurn,
			TurnNumber:  state.TurnNumber,
			BoardState:  state.BoardState,
			LegalMoves:  state.LegalMoves,
			Phase:       state.Phase,
			WhitePlayer: players.White,
			RedPlayer:   players.Red,
		}, nil

	case TypeMoveAccepted:
		msg := MoveAccepted{GameID: env.GameID}
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return msg, nil

	case TypeMoveRejected:
		msg := MoveRejected{GameID: env.GameID}
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return msg, nil

	case TypeStateUpdate:
		msg := StateUpdate{GameID: env.GameID}
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return msg, nil

	case TypeGameEnd:
		msg := GameEnd{GameID: env.GameID}
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return msg, nil

	case TypeError:
		msg := ServerError{GameID: env.GameID}
		if len(env.Payload) > 0 {
			if err := json.Unmarshal(env.Payload, &msg); err != nil {
				return nil, fmt.Errorf("decode %s: %w", env.Type, err)
			}
		}
		return msg, nil

	case TypePong:
		return Pong{GameID: env.GameID}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}

type outboundEnvelope struct {
	Type      string `json:"type"`
	GameID    string `json:"game_id"`
	Payload   any    `json:"payload"`
	Timestamp int64  `json:"timestamp"`
}

func encodeOutbound(typ, gameID string, payload any, now time.Time) ([]byte, error) {
	data, err := json.Marshal(outboundEnvelope{
		Type:      typ,
		GameID:    gameID,
		Payload:   payload,
		Timestamp: now.Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", typ, err)
	}
	return data, nil
}

// EncodeMove frames an outbound move intent.
func EncodeMove(gameID string, m Move, now time.Time) ([]byte, error) {
	return encodeOutbound(TypeMove, gameID, m, now)
}

// EncodeResign frames a resignation intent.
func EncodeResign(gameID string, now time.Time) ([]byte, error) {
	return encodeOutbound(TypeResign, gameID, struct{}{}, now)
}

// EncodeGetState frames an explicit resync request.
func EncodeGetState(gameID string, now time.Time) ([]byte, error) {
	return encodeOutbound(TypeGetState, gameID, struct{}{}, now)
}

// EncodePing frames a heartbeat.
func EncodePing(gameID string, now time.Time) ([]byte, error) {
	return encodeOutbound(TypePing, gameID, struct{}{}, now)
}
