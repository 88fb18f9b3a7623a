// Package rest consumes the Zai HTTP API. The server is a black-box
// collaborator here: bodies are decoded into protocol document types and
// failures surface as typed errors, nothing more.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/OVECJOE/zai-client/internal/protocol"
)

var ErrGameNotFound = errors.New("game not found")

// APIError is the server's REST error envelope with its HTTP status.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api status %d", e.StatusCode)
}

// Client talks to one Zai API base URL with a bearer credential.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *zap.Logger
}

// NewClient builds a client. baseURL includes the version prefix, e.g.
// http://localhost:8000/api/v1.
func NewClient(baseURL, token string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 8 * time.Second},
		log:     log,
	}
}

// GetGame fetches the full game document.
func (c *Client) GetGame(ctx context.Context, gameID string) (*protocol.GameSnapshot, error) {
	var snap protocol.GameSnapshot
	if err := c.get(ctx, "/games/"+gameID, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// GetReplay fetches the ordered per-turn snapshots of a game.
func (c *Client) GetReplay(ctx context.Context, gameID string) (*protocol.GameReplay, error) {
	var replay protocol.GameReplay
	if err := c.get(ctx, "/games/"+gameID+"/replay", &replay); err != nil {
		return nil, err
	}
	return &replay, nil
}

// GetMoveHistory fetches the ordered move list of a game.
func (c *Client) GetMoveHistory(ctx context.Context, gameID string) (*protocol.MoveHistory, error) {
	var history protocol.MoveHistory
	if err := c.get(ctx, "/games/"+gameID+"/moves", &history); err != nil {
		return nil, err
	}
	return &history, nil
}

// GetActiveGames lists the caller's in-progress games.
func (c *Client) GetActiveGames(ctx context.Context) (*protocol.ActiveGames, error) {
	var games protocol.ActiveGames
	if err := c.get(ctx, "/games/active", &games); err != nil {
		return nil, err
	}
	return &games, nil
}

// Resign concedes the game over the REST boundary. The session still learns
// the outcome from the game_end broadcast.
func (c *Client) Resign(ctx context.Context, gameID string) (*protocol.ResignResponse, error) {
	var out protocol.ResignResponse
	if err := c.post(ctx, "/games/"+gameID+"/resign", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var envelope protocol.APIErrorBody
		if decodeErr := json.NewDecoder(resp.Body).Decode(&envelope); decodeErr == nil {
			apiErr.Code = envelope.Error
			apiErr.Message = envelope.Message
			apiErr.RequestID = envelope.RequestID
		}
		c.log.Debug("api error", zap.String("method", method), zap.String("path", path),
			zap.Int("status", resp.StatusCode), zap.String("code", apiErr.Code))
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %v", ErrGameNotFound, apiErr)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
