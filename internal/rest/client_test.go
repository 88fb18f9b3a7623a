package rest_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OVECJOE/zai-client/internal/hex"
	"github.com/OVECJOE/zai-client/internal/protocol"
	"github.com/OVECJOE/zai-client/internal/rest"
	"github.com/OVECJOE/zai-client/internal/zaitest"
)

const testToken = "test-token"

func newTestClient(t *testing.T, srv *zaitest.Server, token string) *rest.Client {
	t.Helper()
	return rest.NewClient(srv.APIBase(), token, nil)
}

func TestGetGame(t *testing.T) {
	srv := zaitest.NewServer(testToken)
	defer srv.Close()
	srv.SetGame(protocol.GameSnapshot{
		GameID:      "g-1",
		Status:      protocol.StatusActive,
		CurrentTurn: protocol.White,
		TurnNumber:  4,
		Phase:       protocol.PhaseExpansion,
		WhitePlayer: protocol.PlayerInfo{UserID: "u-w", Username: "alice"},
		RedPlayer:   protocol.PlayerInfo{UserID: "u-r", Username: "bob"},
		BoardState: protocol.BoardState{Stones: []protocol.Stone{
			{Player: protocol.White, Position: hex.Coordinate{Q: 1, R: 0}},
		}},
		StartedAt: 1700000000,
	})

	snap, err := newTestClient(t, srv, testToken).GetGame(context.Background(), "g-1")
	require.NoError(t, err)
	assert.Equal(t, "g-1", snap.GameID)
	assert.Equal(t, protocol.StatusActive, snap.Status)
	assert.Equal(t, "alice", snap.WhitePlayer.Username)
	assert.Len(t, snap.BoardState.Stones, 1)
}

func TestGetGameNotFound(t *testing.T) {
	srv := zaitest.NewServer(testToken)
	defer srv.Close()

	_, err := newTestClient(t, srv, testToken).GetGame(context.Background(), "missing")
	require.ErrorIs(t, err, rest.ErrGameNotFound)
}

func TestUnauthorizedSurfacesAPIError(t *testing.T) {
	srv := zaitest.NewServer(testToken)
	defer srv.Close()

	_, err := newTestClient(t, srv, "wrong-token").GetGame(context.Background(), "g-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, rest.ErrGameNotFound)

	var apiErr *rest.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 401, apiErr.StatusCode)
	assert.Equal(t, "unauthorized", apiErr.Code)
	assert.Contains(t, apiErr.Error(), "401")
}

func TestGetReplay(t *testing.T) {
	srv := zaitest.NewServer(testToken)
	defer srv.Close()
	srv.SetReplay(protocol.GameReplay{
		GameID:     "g-1",
		TotalMoves: 2,
		Snapshots: []protocol.ReplaySnapshot{
			{TurnNumber: 1, CurrentTurn: protocol.White},
			{TurnNumber: 2, CurrentTurn: protocol.Red},
		},
	})

	replay, err := newTestClient(t, srv, testToken).GetReplay(context.Background(), "g-1")
	require.NoError(t, err)
	assert.Equal(t, 2, replay.TotalMoves)
	require.Len(t, replay.Snapshots, 2)
	assert.Equal(t, protocol.Red, replay.Snapshots[1].CurrentTurn)
}

func TestGetMoveHistory(t *testing.T) {
	srv := zaitest.NewServer(testToken)
	defer srv.Close()
	srv.SetMoveHistory(protocol.MoveHistory{
		GameID: "g-1",
		Total:  1,
		Moves: []protocol.MoveRecord{
			{MoveNumber: 1, Player: protocol.White, MoveType: protocol.MovePlacement,
				Position: &hex.Coordinate{Q: 1, R: 0}, CreatedAt: 1700000010},
		},
	})

	history, err := newTestClient(t, srv, testToken).GetMoveHistory(context.Background(), "g-1")
	require.NoError(t, err)
	assert.Equal(t, 1, history.Total)
	require.Len(t, history.Moves, 1)
	assert.Equal(t, protocol.MovePlacement, history.Moves[0].MoveType)
}

func TestGetActiveGames(t *testing.T) {
	srv := zaitest.NewServer(testToken)
	defer srv.Close()

	item := protocol.ActiveGameItem{
		GameID:      "g-1",
		PlayerColor: protocol.White,
		CurrentTurn: protocol.Red,
		TurnNumber:  9,
		StartedAt:   1700000000,
	}
	item.Opponent.UserID = "u-r"
	item.Opponent.Username = "bob"
	srv.SetActiveGames(protocol.ActiveGames{Games: []protocol.ActiveGameItem{item}, Total: 1})

	games, err := newTestClient(t, srv, testToken).GetActiveGames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, games.Total)
	require.Len(t, games.Games, 1)
	assert.Equal(t, "bob", games.Games[0].Opponent.Username)
}

func TestResign(t *testing.T) {
	srv := zaitest.NewServer(testToken)
	defer srv.Close()
	srv.SetResign(protocol.ResignResponse{
		GameID:      "g-1",
		Status:      protocol.StatusCompleted,
		Winner:      protocol.WinnerRed,
		Resignation: true,
		ResignedBy:  "u-w",
		CompletedAt: 1700000100,
	})

	resp, err := newTestClient(t, srv, testToken).Resign(context.Background(), "g-1")
	require.NoError(t, err)
	assert.True(t, resp.Resignation)
	assert.Equal(t, protocol.WinnerRed, resp.Winner)
	assert.Equal(t, "u-w", resp.ResignedBy)
}
