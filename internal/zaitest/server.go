// Package zaitest runs an in-process fake Zai server for tests: the REST
// endpoints the client consumes plus the game WebSocket. Tests script it by
// seeding documents and pushing frames; it records everything clients send.
package zaitest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"

	"github.com/OVECJOE/zai-client/internal/protocol"
)

// Server is a scriptable Zai server bound to an httptest listener.
type Server struct {
	HTTP  *httptest.Server
	token string

	mu        sync.Mutex
	games     map[string]protocol.GameSnapshot
	replays   map[string]protocol.GameReplay
	resigns   map[string]protocol.ResignResponse
	histories map[string]protocol.MoveHistory
	active    protocol.ActiveGames
	conns     map[*websocket.Conn]struct{}
	received  []protocol.Envelope
	connCount int
	refuseWS  bool
}

// NewServer starts the fake server. token is the only credential it accepts,
// as a bearer header on REST and a query parameter on the WebSocket.
func NewServer(token string) *Server {
	s := &Server{
		token:   token,
		games:     make(map[string]protocol.GameSnapshot),
		replays:   make(map[string]protocol.GameReplay),
		resigns:   make(map[string]protocol.ResignResponse),
		histories: make(map[string]protocol.MoveHistory),
		conns:     make(map[*websocket.Conn]struct{}),
	}

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/games/active", s.handleActiveGames)
		r.Get("/games/{gameID}", s.handleGetGame)
		r.Get("/games/{gameID}/replay", s.handleGetReplay)
		r.Get("/games/{gameID}/moves", s.handleGetMoves)
		r.Post("/games/{gameID}/resign", s.handleResign)
	})
	r.Get("/ws/game/{gameID}", s.handleWS)

	s.HTTP = httptest.NewServer(r)
	return s
}

// Close shuts the listener down, killing any live connections.
func (s *Server) Close() {
	s.CloseConns()
	s.HTTP.Close()
}

// APIBase returns the REST base URL including the version prefix.
func (s *Server) APIBase() string { return s.HTTP.URL + "/api/v1" }

// WSBase returns the WebSocket root URL.
func (s *Server) WSBase() string {
	return "ws" + strings.TrimPrefix(s.HTTP.URL, "http") + "/ws"
}

// SetGame seeds the document served for GET /games/{id}.
func (s *Server) SetGame(snap protocol.GameSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[snap.GameID] = snap
}

// SetReplay seeds the document served for GET /games/{id}/replay.
func (s *Server) SetReplay(replay protocol.GameReplay) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replays[replay.GameID] = replay
}

// SetResign seeds the response for POST /games/{id}/resign.
func (s *Server) SetResign(resp protocol.ResignResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resigns[resp.GameID] = resp
}

// SetMoveHistory seeds the document served for GET /games/{id}/moves.
func (s *Server) SetMoveHistory(history protocol.MoveHistory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.histories[history.GameID] = history
}

// SetActiveGames seeds the listing served for GET /games/active.
func (s *Server) SetActiveGames(games protocol.ActiveGames) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = games
}

// RefuseUpgrades makes subsequent WebSocket connects fail with 503, so
// reconnect behavior can be exercised.
func (s *Server) RefuseUpgrades(refuse bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refuseWS = refuse
}

// Push broadcasts a raw frame to every live connection.
func (s *Server) Push(frame []byte) {
	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.conns))
	for conn := range s.conns {
		conns = append(conns, conn)
	}
	s.mu.Unlock()

	for _, conn := range conns {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		_ = conn.Write(ctx, websocket.MessageText, frame)
		cancel()
	}
}

// PushJSON marshals v and broadcasts it.
func (s *Server) PushJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	s.Push(data)
}

// CloseConns force-closes every live connection, simulating an unexpected
// closure on the client side.
func (s *Server) CloseConns() {
	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.conns))
	for conn := range s.conns {
		conns = append(conns, conn)
	}
	s.conns = make(map[*websocket.Conn]struct{})
	s.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close(websocket.StatusGoingAway, "scripted closure")
	}
}

// ConnCount returns how many WebSocket connections have been accepted in
// total, including closed ones.
func (s *Server) ConnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connCount
}

// LiveConns returns how many connections are currently open.
func (s *Server) LiveConns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Received returns a copy of every envelope clients have sent.
func (s *Server) Received() []protocol.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]protocol.Envelope, len(s.received))
	copy(out, s.received)
	return out
}

// ReceivedOfType filters Received by message tag.
func (s *Server) ReceivedOfType(typ string) []protocol.Envelope {
	var out []protocol.Envelope
	for _, env := range s.Received() {
		if env.Type == typ {
			out = append(out, env)
		}
	}
	return out
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid token")
		return
	}
	s.mu.Lock()
	snap, ok := s.games[chi.URLParam(r, "gameID")]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "game_not_found", "no such game")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleGetReplay(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid token")
		return
	}
	s.mu.Lock()
	replay, ok := s.replays[chi.URLParam(r, "gameID")]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "game_not_found", "no such game")
		return
	}
	writeJSON(w, http.StatusOK, replay)
}

func (s *Server) handleGetMoves(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid token")
		return
	}
	s.mu.Lock()
	history, ok := s.histories[chi.URLParam(r, "gameID")]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "game_not_found", "no such game")
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleActiveGames(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid token")
		return
	}
	s.mu.Lock()
	games := s.active
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, games)
}

func (s *Server) handleResign(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid token")
		return
	}
	s.mu.Lock()
	resp, ok := s.resigns[chi.URLParam(r, "gameID")]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "game_not_found", "no such game")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("token") != s.token {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	s.mu.Lock()
	refusing := s.refuseWS
	s.mu.Unlock()
	if refusing {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.connCount++
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		_ = conn.Close(websocket.StatusNormalClosure, "bye")
	}()

	for {
		_, data, err := conn.Read(r.Context())
		if err != nil {
			return
		}
		var env protocol.Envelope
		if json.Unmarshal(data, &env) != nil {
			continue
		}
		s.mu.Lock()
		s.received = append(s.received, env)
		s.mu.Unlock()

		if env.Type == protocol.TypePing {
			pong, _ := json.Marshal(map[string]any{
				"type":      protocol.TypePong,
				"game_id":   env.GameID,
				"timestamp": time.Now().Unix(),
			})
			_ = conn.Write(r.Context(), websocket.MessageText, pong)
		}
	}
}

func (s *Server) authorized(r *http.Request) bool {
	return r.Header.Get("Authorization") == "Bearer "+s.token
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, protocol.APIErrorBody{
		Error:     code,
		Message:   message,
		Timestamp: time.Now().Unix(),
	})
}
