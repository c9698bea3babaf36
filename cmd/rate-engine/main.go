// Command rate-engine runs the engine self-assessment at each difficulty and
// prints the reports.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"chess-coach/internal/agent"
	"chess-coach/internal/engine"
	"chess-coach/internal/rating"
)

func main() {
	level := flag.String("difficulty", "", "rate only this difficulty (default: all)")
	asJSON := flag.Bool("json", false, "print reports as JSON")
	timeout := flag.Duration("timeout", 10*time.Minute, "overall time limit")
	flag.Parse()

	levels := engine.Difficulties
	if *level != "" {
		d, err := engine.ParseDifficulty(*level)
		if err != nil {
			log.Fatalf("Invalid difficulty: %v", err)
		}
		levels = []engine.Difficulty{d}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	runner := agent.NewRunner(engine.New(), agent.Config{})
	reports := make([]rating.Report, 0, len(levels))
	for _, d := range levels {
		log.Printf("Rating %s...", d)
		r, err := rating.Assess(ctx, runner, d)
		if err != nil {
			log.Fatalf("Assessment at %s failed: %v", d, err)
		}
		reports = append(reports, r)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			log.Fatal(err)
		}
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DIFFICULTY\tOVERALL\tOPENING\tMIDDLE\tENDGAME\tTACTICAL\tPOSITIONAL\tSPEED\tCONSISTENCY\tMEAN MOVE")
	for _, r := range reports {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%s\n",
			r.Difficulty, r.Overall, r.Opening, r.Middlegame, r.Endgame,
			r.Tactical, r.Positional, r.Speed, r.Consistency,
			r.Details.MeanMoveTime.Round(time.Millisecond))
	}
	w.Flush()
}
