package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"cross-matrix/internal/catalog"
	"cross-matrix/internal/client"
	"cross-matrix/internal/config"
	"cross-matrix/internal/game"
	"cross-matrix/internal/room"
	"cross-matrix/internal/shared"

	"github.com/urfave/cli/v2"
)

const boardCols = 5

func main() {
	app := &cli.App{
		Name:  "cross-matrix",
		Usage: "terminal client for a Cross Matrix relay",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "ws://localhost:8080/ws", Usage: "relay websocket url"},
			&cli.StringFlag{Name: "env-file", Value: ".env"},
			&cli.StringFlag{Name: "log-level", Value: "warn"},
		},
		Commands: []*cli.Command{
			{
				Name:      "watch",
				Usage:     "join a room as spectator and print the board on every change",
				ArgsUsage: "<room>",
				Action:    watch,
			},
			{
				Name:      "play",
				Usage:     "join a room as player with a saved deck; a new room code is drawn when none is given",
				ArgsUsage: "[room]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "deck", Required: true, Usage: "saved deck id"},
					&cli.StringFlag{Name: "catalog", Usage: "card catalog json (CATALOG_PATH)"},
					&cli.StringFlag{Name: "deck-db-driver", Usage: "sqlite3 or pgx (DECK_DB_DRIVER)"},
					&cli.StringFlag{Name: "deck-db-dsn", Usage: "deck database dsn (DECK_DB_DSN)"},
				},
				Action: play,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup(c *cli.Context) (config.Config, *slog.Logger) {
	cfg := config.Load(c.String("env-file"))
	// the client is quieter than the server unless LOG_LEVEL says otherwise
	if c.IsSet("log-level") || os.Getenv("LOG_LEVEL") == "" {
		cfg.LogLevel = c.String("log-level")
	}
	return cfg, config.NewLogger(os.Stderr, cfg.LogLevel)
}

func watch(c *cli.Context) error {
	roomID := c.Args().First()
	if roomID == "" {
		return errors.New("room code required")
	}
	_, logger := setup(c)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var s *client.Session
	s, err := client.Dial(ctx, c.String("url"), client.Options{
		Role:   shared.RoleSpectator,
		Logger: logger,
		OnEvent: func(action string) {
			switch action {
			case shared.ActionStateSynced, shared.ActionGameUpdate, shared.ActionRoomUpdate:
				printStatus(os.Stdout, s)
			case shared.ActionErrorMessage:
				fmt.Println("server:", s.LastError())
			}
		},
	})
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Join(roomID); err != nil {
		return err
	}
	fmt.Printf("watching room %s as %s\n", roomID, s.ID())
	return s.Run(ctx)
}

func loadDeck(ctx context.Context, c *cli.Context, cfg config.Config) (game.Deck, error) {
	catalogPath, driver, dsn := cfg.CatalogPath, cfg.DeckDBDriver, cfg.DeckDBDSN
	if c.IsSet("catalog") {
		catalogPath = c.String("catalog")
	}
	if c.IsSet("deck-db-driver") {
		driver = c.String("deck-db-driver")
	}
	if c.IsSet("deck-db-dsn") {
		dsn = c.String("deck-db-dsn")
	}

	cat, err := catalog.LoadFile(catalogPath)
	if err != nil {
		return game.Deck{}, err
	}
	decks, err := catalog.OpenDeckStore(ctx, driver, dsn)
	if err != nil {
		return game.Deck{}, err
	}
	defer decks.Close()

	entries, err := decks.Entries(ctx, c.String("deck"))
	if err != nil {
		return game.Deck{}, err
	}
	deck, missing := cat.BuildDeck(entries)
	if len(missing) > 0 {
		fmt.Fprintf(os.Stderr, "skipping cards missing from the catalog: %s\n", strings.Join(missing, ", "))
	}
	return deck, nil
}

func play(c *cli.Context) error {
	cfg, logger := setup(c)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	deck, err := loadDeck(ctx, c, cfg)
	if err != nil {
		return fmt.Errorf("load deck: %w", err)
	}

	roomID := c.Args().First()
	if roomID == "" {
		roomID = room.RandomCode(rand.New(rand.NewSource(time.Now().UnixNano())))
	}

	var s *client.Session
	s, err = client.Dial(ctx, c.String("url"), client.Options{
		Role:   shared.RolePlayer,
		Deck:   deck,
		Logger: logger,
		OnEvent: func(action string) {
			switch action {
			case shared.ActionGameUpdate, shared.ActionStateSynced:
				fmt.Println()
				printBoard(os.Stdout, s.Board())
				fmt.Print("> ")
			case shared.ActionPlayerLeft:
				fmt.Print("\nopponent left\n> ")
			case shared.ActionErrorMessage:
				fmt.Printf("\nserver: %s\n", s.LastError())
				stop()
			}
		},
	})
	if err != nil {
		return err
	}
	defer s.Close()

	runErr := make(chan error, 1)
	go func() { runErr <- s.Run(ctx) }()

	if err := s.Join(roomID); err != nil {
		return err
	}
	fmt.Printf("room %s, you are %s\n", roomID, s.ID())
	printDeck(os.Stdout, deck)
	printBoard(os.Stdout, s.Board())

	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	for {
		fmt.Print("> ")
		select {
		case <-ctx.Done():
			return <-runErr
		case err := <-runErr:
			return err
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := command(os.Stdout, s, strings.Fields(line))
			if err != nil {
				fmt.Println("error:", err)
			}
			if quit {
				s.Leave()
				return nil
			}
		}
	}
}

func ints(args []string, n int) ([]int, error) {
	if len(args) != n {
		return nil, fmt.Errorf("expected %d numbers", n)
	}
	out := make([]int, n)
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("not a number: %q", a)
		}
		out[i] = v
	}
	return out, nil
}

// command runs one stdin line against the session.
func command(w io.Writer, s *client.Session, f []string) (quit bool, err error) {
	if len(f) == 0 {
		return false, nil
	}
	args := f[1:]
	switch f[0] {
	case "select":
		n, err := ints(args, 1)
		if err != nil {
			return false, err
		}
		return false, s.SelectDeckCard(n[0])
	case "tap":
		n, err := ints(args, 1)
		if err != nil {
			return false, err
		}
		insp, err := s.TapCell(n[0])
		if insp != nil {
			fmt.Fprintf(w, "cell %d:\n", insp.Cell)
			for i, c := range insp.Cards {
				fmt.Fprintf(w, "  [%d] %s (%s) power %d\n", i, c.Name, c.ID, c.Power)
			}
		}
		return false, err
	case "move":
		n, err := ints(args, 3)
		if err != nil {
			return false, err
		}
		if ok, err := s.StartMove(n[0], n[1]); !ok || err != nil {
			return false, errors.Join(errors.New("no such card"), err)
		}
		_, err = s.TapCell(n[2])
		return false, err
	case "moveall":
		n, err := ints(args, 2)
		if err != nil {
			return false, err
		}
		if ok, err := s.StartGroupMove(n[0]); !ok || err != nil {
			return false, errors.Join(errors.New("cell is empty"), err)
		}
		_, err = s.TapCell(n[1])
		return false, err
	case "dispose":
		n, err := ints(args, 2)
		if err != nil {
			return false, err
		}
		return false, s.DisposeCard(n[0], n[1])
	case "disposeall":
		n, err := ints(args, 1)
		if err != nil {
			return false, err
		}
		return false, s.DisposeStack(n[0])
	case "cancel":
		s.Cancel()
	case "deck":
		printDeck(w, s.Deck())
	case "board":
		printStatus(w, s)
	case "quit", "exit":
		return true, nil
	default:
		fmt.Fprintln(w, "commands: select <deck>, tap <cell>, move <cell> <card> <to>, moveall <cell> <to>, dispose <cell> <card>, disposeall <cell>, cancel, deck, board, quit")
	}
	return false, nil
}

func printDeck(w io.Writer, d game.Deck) {
	fmt.Fprintln(w, "deck:")
	for i, c := range d.Cards() {
		fmt.Fprintf(w, "  %2d  %-20s power %d\n", i, c.Name, c.Power)
	}
}

func printStatus(w io.Writer, s *client.Session) {
	st := s.Status()
	fmt.Fprintf(w, "\nroom %s  players %d  spectators %d  mode %s\n", s.Room(), st.PlayerCount, st.SpectatorCount, s.Mode())
	printBoard(w, s.Board())
}

func printBoard(w io.Writer, b game.Board) {
	for i := range b {
		label := "."
		if top, ok := b[i].Top(); ok {
			label = top.Name
			if label == "" {
				label = game.CatalogID(top.ID)
			}
			if n := len(b[i]); n > 1 {
				label = fmt.Sprintf("%s x%d", label, n)
			}
			label = fmt.Sprintf("%s P:%d", label, b[i].Power())
		}
		fmt.Fprintf(w, "%2d %-22s", i, label)
		if (i+1)%boardCols == 0 {
			fmt.Fprintln(w)
		}
	}
}
