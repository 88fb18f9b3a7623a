package protocol

// SchemaRoot aggregates every wire shape in one place. It is shared with the
// schema generator (cmd/schema) so the protocol has a machine-readable
// contract for validation and editor tooling.
type SchemaRoot struct {
	Envelope     Envelope     `json:"envelope"`
	Move         Move         `json:"move"`
	MoveAccepted MoveAccepted `json:"move_accepted"`
	MoveRejected MoveRejected `json:"move_rejected"`
	StateUpdate  StateUpdate  `json:"state_update"`
	GameEnd      GameEnd      `json:"game_end"`
	ServerError  ServerError  `json:"error"`
	GameSnapshot GameSnapshot `json:"game_snapshot"`
	GameReplay   GameReplay   `json:"game_replay"`
	MoveHistory  MoveHistory  `json:"move_history"`
}
