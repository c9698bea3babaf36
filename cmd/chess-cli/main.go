// Command chess-cli plays against the engine in a terminal and keeps the
// player's rating in a local SQLite file.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/chzyer/readline"
	"golang.org/x/term"

	"chess-coach/internal/agent"
	"chess-coach/internal/auth"
	"chess-coach/internal/coach"
	"chess-coach/internal/curriculum"
	"chess-coach/internal/engine"
	"chess-coach/internal/models"
	"chess-coach/internal/progress"
	"chess-coach/internal/storage"
)

func main() {
	dbPath := flag.String("db", "chess-coach.db", "SQLite file for local progress")
	playerID := flag.String("player", "local", "player name to record games under")
	level := flag.String("difficulty", "medium", "engine difficulty: easy, medium or hard")
	colorName := flag.String("color", "white", "your color: white or black")
	flag.Parse()

	difficulty, err := engine.ParseDifficulty(*level)
	if err != nil {
		log.Fatalf("Invalid difficulty: %v", err)
	}
	color, ok := models.ParseColor(strings.ToLower(*colorName))
	if !ok {
		log.Fatalf("Invalid color %q", *colorName)
	}

	store, err := storage.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open %s: %v", *dbPath, err)
	}
	defer store.Close()

	catalog, err := curriculum.Load("", auth.NewPasswordService(auth.DefaultCost))
	if err != nil {
		log.Fatalf("Failed to load curriculum: %v", err)
	}

	runner := agent.NewRunner(engine.New(), agent.Config{})
	interactive := term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))

	c := &client{
		out:        os.Stdout,
		colored:    interactive,
		runner:     runner,
		coach:      coach.New(runner),
		progress:   progress.NewService(store, catalog),
		playerID:   *playerID,
		difficulty: difficulty,
		human:      color.Engine(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := c.start(ctx); err != nil {
		log.Fatalf("Failed to start game: %v", err)
	}
	if interactive {
		err = runInteractive(ctx, c)
	} else {
		err = runLines(ctx, c, os.Stdin)
	}
	if err != nil {
		log.Fatal(err)
	}
}

// runInteractive reads commands with line editing and history.
func runInteractive(ctx context.Context, c *client) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          c.prompt(),
		HistoryFile:     ".chess_coach_history",
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return fmt.Errorf("failed to start prompt: %w", err)
	}
	defer rl.Close()

	for {
		rl.SetPrompt(c.prompt())
		line, err := rl.Readline()
		if err == io.EOF || err == readline.ErrInterrupt {
			return nil
		}
		if err != nil {
			return err
		}
		if c.execute(ctx, line) {
			return nil
		}
	}
}

// runLines reads one command per line, for pipes and scripts.
func runLines(ctx context.Context, c *client, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if c.execute(ctx, scanner.Text()) {
			return nil
		}
	}
	return scanner.Err()
}
