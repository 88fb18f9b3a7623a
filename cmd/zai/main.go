// Command zai is a terminal front-end for one live Zai game. It loads the
// game over REST, attaches the WebSocket session, and turns typed
// coordinates into clicks. Rendering is plain text; every interesting part
// of the client lives in the internal packages.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/OVECJOE/zai-client/internal/config"
	"github.com/OVECJOE/zai-client/internal/hex"
	"github.com/OVECJOE/zai-client/internal/protocol"
	"github.com/OVECJOE/zai-client/internal/rest"
	"github.com/OVECJOE/zai-client/internal/session"
	"github.com/OVECJOE/zai-client/internal/transport"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: zai <game-id>")
		os.Exit(2)
	}
	gameID := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := rest.NewClient(cfg.APIBaseURL, cfg.AccessToken, logger)
	channel := transport.New(transport.Options{
		BaseURL:              cfg.WSBaseURL,
		Token:                cfg.AccessToken,
		HeartbeatInterval:    cfg.HeartbeatInterval,
		ReconnectDelay:       cfg.ReconnectDelay,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
		HandshakeTimeout:     cfg.HandshakeTimeout,
		Logger:               logger,
	})

	ctrl := session.New(ctx, session.Config{
		UserID:  cfg.UserID,
		Loader:  api,
		Channel: channel,
		Logger:  logger,
	})
	defer ctrl.Close()

	if err := ctrl.Load(ctx, gameID); err != nil {
		logger.Fatal("failed to load game", zap.String("game_id", gameID), zap.Error(err))
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return repl(ctx, ctrl, api, gameID, cfg.BoardRadius) })

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		logger.Fatal("session ended", zap.Error(err))
	}
}

func repl(ctx context.Context, ctrl *session.Controller, api *rest.Client, gameID string, radius int) error {
	fmt.Println("commands: board | click <q> <r> | resign | replay | quit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "quit", "q":
			return nil
		case "board", "b":
			view, err := ctrl.View()
			if err != nil {
				return err
			}
			printView(view, radius)
		case "click", "c":
			if len(fields) != 3 {
				fmt.Println("usage: click <q> <r>")
				continue
			}
			q, errQ := strconv.Atoi(fields[1])
			r, errR := strconv.Atoi(fields[2])
			if errQ != nil || errR != nil {
				fmt.Println("usage: click <q> <r>")
				continue
			}
			if err := ctrl.Click(hex.Coordinate{Q: q, R: r}); err != nil {
				fmt.Println("click:", err)
				continue
			}
			view, err := ctrl.View()
			if err != nil {
				return err
			}
			printView(view, radius)
		case "resign":
			if err := ctrl.Resign(); err != nil {
				fmt.Println("resign:", err)
			}
		case "replay":
			replay, err := api.GetReplay(ctx, gameID)
			if err != nil {
				fmt.Println("replay:", err)
				continue
			}
			printReplay(replay, radius)
		default:
			fmt.Println("commands: board | click <q> <r> | resign | replay | quit")
		}
	}
	return scanner.Err()
}

func printView(v session.View, radius int) {
	s := v.Session
	fmt.Printf("game %s  status=%s  phase=%s  turn=%d (%s)\n",
		s.GameID, s.Status, s.Phase, s.TurnNumber, s.CurrentTurn)
	fmt.Printf("white %s %d:%02d  red %s %d:%02d\n",
		s.WhitePlayer.Username, v.WhiteClock/60, v.WhiteClock%60,
		s.RedPlayer.Username, v.RedClock/60, v.RedClock%60)
	if s.LastError != "" {
		fmt.Println("error:", s.LastError)
	}
	if s.Status.Terminal() {
		fmt.Printf("winner=%s by %s\n", s.Winner, s.WinCondition)
	}
	printBoard(v.Board.Stones(), v.Selection.Source, v.Selection.Placements, radius)
}

func printReplay(replay *protocol.GameReplay, radius int) {
	fmt.Printf("replay of %s, %d moves\n", replay.GameID, replay.TotalMoves)
	for _, snap := range replay.Snapshots {
		fmt.Printf("-- turn %d (%s to move)\n", snap.TurnNumber, snap.CurrentTurn)
		printBoard(snap.BoardState.Stones, nil, nil, radius)
	}
}

func printBoard(stones []protocol.Stone, source *hex.Coordinate, placements []hex.Coordinate, radius int) {
	byPos := make(map[hex.Coordinate]protocol.Color, len(stones))
	for _, s := range stones {
		byPos[s.Position] = s.Player
	}
	marked := make(map[hex.Coordinate]bool, len(placements))
	for _, p := range placements {
		marked[p] = true
	}

	for r := -radius; r <= radius; r++ {
		fmt.Print(strings.Repeat(" ", abs(r)))
		for q := max(-radius, -r-radius); q <= min(radius, -r+radius); q++ {
			c := hex.Coordinate{Q: q, R: r}
			fmt.Printf("%c ", cellRune(c, byPos, source, marked))
		}
		fmt.Println()
	}
}

func cellRune(c hex.Coordinate, byPos map[hex.Coordinate]protocol.Color, source *hex.Coordinate, marked map[hex.Coordinate]bool) rune {
	switch {
	case c == hex.Origin:
		return '#'
	case source != nil && *source == c:
		return 'x'
	case marked[c]:
		return '+'
	case byPos[c] == protocol.White:
		return 'W'
	case byPos[c] == protocol.Red:
		return 'R'
	default:
		return '.'
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
