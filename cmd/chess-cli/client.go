package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/google/uuid"

	"chess-coach/internal/agent"
	"chess-coach/internal/coach"
	"chess-coach/internal/elo"
	"chess-coach/internal/engine"
	"chess-coach/internal/progress"
	"chess-coach/internal/rules"
)

const helpText = `Commands:
  move <san>   play a move (e.g. move e4, move Nf3, move e7e8q)
  <san>        same as move
  hint         suggest a move
  analyze      evaluate the position
  undo         take back your last move and the engine's reply
  board        show the board
  resign       give up the game
  stats        show your record
  quit         leave
`

// client plays one game against the engine on a text stream.
type client struct {
	out        io.Writer
	colored    bool
	runner     *agent.Runner
	coach      *coach.Coach
	progress   *progress.Service
	playerID   string
	difficulty engine.Difficulty
	human      engine.Color

	game *rules.Game
	over bool
}

func (c *client) printf(format string, args ...interface{}) {
	fmt.Fprintf(c.out, format, args...)
}

func (c *client) prompt() string {
	p := fmt.Sprintf("chess [%s %s]", c.human, c.difficulty)
	if c.colored {
		return yellow + p + " > " + reset
	}
	return p + " > "
}

// start sets up a new game; the engine opens when the player has black.
func (c *client) start(ctx context.Context) error {
	c.game = rules.New()
	c.over = false
	c.printf("New game: you play %s against the %s engine. Type 'help' for commands.\n", c.human, c.difficulty)
	if c.human == engine.Black {
		if err := c.reply(ctx); err != nil {
			return err
		}
	}
	c.showBoard()
	return nil
}

// execute runs one command line and reports whether the client should exit.
func (c *client) execute(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "quit", "exit", "q":
		return true
	case "help", "?":
		c.printf("%s", helpText)
	case "board", "b":
		c.showBoard()
	case "move", "m":
		if len(args) != 1 {
			c.printf("usage: move <san>\n")
			return false
		}
		c.move(ctx, args[0])
	case "hint":
		c.hint(ctx)
	case "analyze", "a":
		c.analyze(ctx)
	case "undo", "u":
		c.undo()
	case "resign":
		c.resign(ctx)
	case "stats":
		c.stats(ctx)
	case "new":
		if err := c.start(ctx); err != nil {
			c.printf("error: %v\n", err)
		}
	default:
		if len(fields) == 1 {
			c.move(ctx, fields[0])
			return false
		}
		c.printf("unknown command %q, type 'help'\n", cmd)
	}
	return false
}

func (c *client) showBoard() {
	c.printf("%s", renderBoard(c.game.Snapshot(), c.human, c.colored))
	if c.game.IsCheck() && !c.over {
		c.printf("Check!\n")
	}
}

func (c *client) move(ctx context.Context, san string) {
	if c.over {
		c.printf("The game is over. Type 'new' for another.\n")
		return
	}
	if c.game.Turn() != c.human {
		c.printf("It is not your turn.\n")
		return
	}
	info, err := c.game.Apply(san)
	if err != nil {
		c.printf("Illegal move: %s\n", san)
		return
	}
	c.printf("You play %s\n", info.Notation)
	if c.finish(ctx) {
		return
	}
	if err := c.reply(ctx); err != nil {
		c.printf("engine error: %v\n", err)
		return
	}
	c.showBoard()
	c.finish(ctx)
}

// reply plays the engine's move.
func (c *client) reply(ctx context.Context) error {
	res, err := c.runner.Move(ctx, c.game, c.difficulty)
	if err != nil {
		return err
	}
	info, err := c.game.Apply(res.Move)
	if err != nil {
		return err
	}
	note := ""
	if res.Fallback {
		note = fmt.Sprintf(" (fallback %s)", res.Difficulty)
	}
	c.printf("Engine plays %s%s\n", info.Notation, note)
	return nil
}

// finish reports and records a finished game.
func (c *client) finish(ctx context.Context) bool {
	out := c.game.Outcome()
	if !out.Over {
		return false
	}
	if out.Winner == engine.NoColor {
		c.printf("Game drawn by %s.\n", out.Reason)
	} else {
		c.printf("%s wins by %s.\n", out.Winner, out.Reason)
	}
	c.record(ctx, elo.ResultFor(c.human, out.Winner))
	return true
}

func (c *client) record(ctx context.Context, result elo.GameResult) {
	c.over = true
	p, rec, err := c.progress.RecordGame(ctx, c.playerID, progress.GameSummary{
		ID:         uuid.NewString(),
		Mode:       "cli",
		Difficulty: c.difficulty,
		Result:     result,
		Moves:      c.game.History(),
	})
	if err != nil {
		log.Printf("Failed to record game: %v", err)
		return
	}
	c.printf("Result: %s. Rating %d (%+d).\n", rec.Result, p.Rating, rec.RatingChange)
}

func (c *client) hint(ctx context.Context) {
	if c.over {
		return
	}
	h, err := c.coach.Hint(ctx, c.game, c.difficulty)
	if err != nil {
		c.printf("no hint: %v\n", err)
		return
	}
	var notes []string
	f := h.Features
	if f.Checkmate {
		notes = append(notes, "checkmate")
	} else if f.Check {
		notes = append(notes, "check")
	}
	if f.Capture {
		notes = append(notes, fmt.Sprintf("captures a %s (%s trade)", f.Captured, f.Trade))
	}
	if f.Castling != "" {
		notes = append(notes, "castles "+f.Castling)
	}
	if f.Development {
		notes = append(notes, "develops a piece")
	}
	if f.CenterSquare {
		notes = append(notes, "takes the center")
	}
	if f.Promotion != "" {
		notes = append(notes, "promotes to "+f.Promotion)
	}
	c.printf("Try %s", h.Move)
	if len(notes) > 0 {
		c.printf(": %s", strings.Join(notes, ", "))
	}
	c.printf("\n")
}

func (c *client) analyze(ctx context.Context) {
	a, err := c.coach.Analyze(ctx, c.game, c.difficulty)
	if err != nil {
		c.printf("analysis failed: %v\n", err)
		return
	}
	c.printf("Evaluation %+d (white-black chances %s), %s, %s to move\n", a.Evaluation, a.WinningChances, a.Phase, a.Turn)
	switch {
	case a.Checkmate:
		c.printf("Checkmate.\n")
	case a.Draw:
		c.printf("Draw: %s\n", a.DrawReason)
	case a.BestMove != "":
		c.printf("Engine suggests %s\n", a.BestMove)
	}
}

// undo takes back the player's last move and the engine's reply to it.
func (c *client) undo() {
	if c.over {
		c.printf("The game is over.\n")
		return
	}
	plies := 1
	if c.game.Turn() == c.human {
		plies = 2
	}
	if len(c.game.History()) < plies {
		c.printf("Nothing to undo.\n")
		return
	}
	for i := 0; i < plies; i++ {
		if err := c.game.Undo(); err != nil {
			c.printf("undo failed: %v\n", err)
			return
		}
	}
	c.showBoard()
}

func (c *client) resign(ctx context.Context) {
	if c.over {
		return
	}
	c.printf("You resign.\n")
	c.record(ctx, elo.Loss)
}

func (c *client) stats(ctx context.Context) {
	s, err := c.progress.Statistics(ctx, c.playerID)
	if err != nil {
		c.printf("stats unavailable: %v\n", err)
		return
	}
	c.printf("Rating %d (best %d). %d games: %d won, %d lost, %d drawn (%.2f%%).\n",
		s.Rating, s.BestRating, s.GamesPlayed, s.Wins, s.Losses, s.Draws, s.WinRate)
}
