package protocol

import "github.com/OVECJOE/zai-client/internal/hex"

// REST document shapes consumed from the Zai API. The server's retry and
// error semantics stay behind the rest package; these are just the bodies.

// MoveRecord is one entry of a game's move history.
type MoveRecord struct {
	MoveNumber        int              `json:"move_number"`
	Player            Color            `json:"player"`
	MoveType          MoveType         `json:"move_type"`
	Position          *hex.Coordinate  `json:"position,omitempty"`
	SacrificePosition *hex.Coordinate  `json:"sacrifice_position,omitempty"`
	Placements        []hex.Coordinate `json:"placements,omitempty"`
	TimeTaken         *float64         `json:"time_taken,omitempty"`
	CreatedAt         int64            `json:"created_at"`
}

// GameSnapshot is the full game document returned by GET /games/{id}.
type GameSnapshot struct {
	GameID       string       `json:"game_id"`
	WhitePlayer  PlayerInfo   `json:"white_player"`
	RedPlayer    PlayerInfo   `json:"red_player"`
	Status       Status       `json:"status"`
	CurrentTurn  Color        `json:"current_turn"`
	TurnNumber   int          `json:"turn_number"`
	Phase        Phase        `json:"phase"`
	LegalMoves   []Move       `json:"legal_moves"`
	BoardState   BoardState   `json:"board_state"`
	MoveHistory  []MoveRecord `json:"move_history"`
	StartedAt    int64        `json:"started_at"`
	LastMoveAt   *int64       `json:"last_move_at,omitempty"`
	CompletedAt  *int64       `json:"completed_at,omitempty"`
	Winner       Winner       `json:"winner,omitempty"`
	WinCondition string       `json:"win_condition,omitempty"`
}

// MoveHistory is the body of GET /games/{id}/moves.
type MoveHistory struct {
	GameID string       `json:"game_id"`
	Moves  []MoveRecord `json:"moves"`
	Total  int          `json:"total"`
}

// ReplaySnapshot is one per-turn record of a finished game's replay.
type ReplaySnapshot struct {
	TurnNumber  int        `json:"turn_number"`
	BoardState  BoardState `json:"board_state"`
	LegalMoves  []Move     `json:"legal_moves"`
	CurrentTurn Color      `json:"current_turn"`
	LastMove    *LastMove  `json:"last_move,omitempty"`
}

// GameReplay is the ordered snapshot list returned by GET /games/{id}/replay.
type GameReplay struct {
	GameID     string           `json:"game_id"`
	Snapshots  []ReplaySnapshot `json:"snapshots"`
	TotalMoves int              `json:"total_moves"`
}

// ResignResponse is the body of POST /games/{id}/resign.
type ResignResponse struct {
	GameID      string `json:"game_id"`
	Status      Status `json:"status"`
	Winner      Winner `json:"winner"`
	Resignation bool   `json:"resignation"`
	ResignedBy  string `json:"resigned_by"`
	CompletedAt int64  `json:"completed_at"`
}

// ActiveGameItem is one row of the active-games listing.
type ActiveGameItem struct {
	GameID      string `json:"game_id"`
	Opponent    struct {
		UserID    string `json:"user_id"`
		Username  string `json:"username"`
		ELORating int    `json:"elo_rating"`
	} `json:"opponent"`
	PlayerColor Color  `json:"player_color"`
	CurrentTurn Color  `json:"current_turn"`
	TurnNumber  int    `json:"turn_number"`
	StartedAt   int64  `json:"started_at"`
	LastMoveAt  *int64 `json:"last_move_at,omitempty"`
}

// ActiveGames is the body of GET /games/active.
type ActiveGames struct {
	Games []ActiveGameItem `json:"games"`
	Total int              `json:"total"`
}

// APIErrorBody is the server's REST error envelope.
type APIErrorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
	RequestID string `json:"request_id,omitempty"`
}
