package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lazypower/recall/internal/config"
	"github.com/lazypower/recall/internal/graph"
	"github.com/lazypower/recall/internal/query"
	"github.com/lazypower/recall/internal/store"
	"github.com/lazypower/recall/internal/vision"
	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask where something was last seen",
	Long:  "Ask a natural-language question like \"where are my keys\" or \"what did I see this morning\". With an API key configured the question is classified remotely; without one it is treated as an object lookup.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQuery,
}

func runQuery(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	s, x, g, err := openEngine(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	vc := visionClient(cfg)
	req := classify(ctx, vc, text)

	d := &query.Dispatcher{Store: s, Index: x, Graph: g, Vision: vc}
	result := d.Dispatch(ctx, req)

	printResult(req, result, g)

	// Persist the access-log reinforcement this query produced.
	if err := x.Save(); err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	return nil
}

// classify turns the raw question into a typed request. Without an
// inference client the question degrades to an object lookup over the
// whole text.
func classify(ctx context.Context, vc vision.Client, text string) query.Request {
	fallback := query.Request{Type: query.TypeObject, Entity: strings.ToLower(text)}
	if vc == nil {
		return fallback
	}
	cls, err := vc.ClassifyQuery(ctx, text)
	if err != nil || cls == nil {
		return fallback
	}

	req := query.Request{
		Type:     query.Type(cls.Type),
		Entity:   strings.ToLower(cls.Entity),
		Question: cls.Question,
		Placed:   cls.Placed,
	}
	if t, err := time.Parse(time.RFC3339, cls.TimeStart); err == nil {
		req.TimeStart = t
	}
	if t, err := time.Parse(time.RFC3339, cls.TimeEnd); err == nil {
		req.TimeEnd = t
	}
	if req.Type == "" {
		req.Type = query.TypeObject
	}
	if req.Entity == "" {
		req.Entity = fallback.Entity
	}
	return req
}

func printResult(req query.Request, result query.Result, g *graph.Graph) {
	switch result.Outcome {
	case query.OutcomeNotFound:
		fmt.Printf("No memory of %q.\n", req.Entity)

	case query.OutcomeUnavailable:
		fmt.Println("Can't answer that right now: visual answering needs an API key and a stored image.")

	case query.OutcomeAnswered:
		fmt.Println(result.Answer)
		if result.Record != nil {
			fmt.Printf("  (from %s, %s)\n", result.Record.Location, humanAge(result.Record.Time()))
		}

	case query.OutcomeOnlyHeld:
		rec := result.Record
		fmt.Printf("Last saw %s in your hand at %s, %s. No resting place recorded.\n",
			req.Entity, rec.Location, humanAge(rec.Time()))
		printMovements(result)

	case query.OutcomeFound:
		printFound(req, result, g)
	}
}

func printFound(req query.Request, result query.Result, g *graph.Graph) {
	switch req.Type {
	case query.TypeTime:
		fmt.Printf("%d memories between %s and %s:\n",
			len(result.Records),
			result.WindowStart.Format("Mon 15:04"),
			result.WindowEnd.Format("Mon 15:04"))
		for _, rec := range result.Records {
			printRecordLine(rec)
		}

	case query.TypePerson:
		if len(result.People) > 0 {
			fmt.Printf("People: %s\n", strings.Join(result.People, ", "))
		}
		for _, rec := range result.Records {
			printRecordLine(rec)
		}

	case query.TypeActivity:
		if len(result.Activities) > 0 {
			fmt.Printf("Activities: %s\n", strings.Join(result.Activities, ", "))
		}
		for _, rec := range result.Records {
			printRecordLine(rec)
		}

	case query.TypeNear:
		if result.Record != nil {
			fmt.Printf("%s last seen at %s, %s.\n",
				req.Entity, result.Record.Location, humanAge(result.Record.Time()))
		}
		for _, co := range result.Cooccurrences {
			fmt.Printf("  seen with: %s\n", strings.Join(co.Objects, ", "))
		}

	default: // object and scene
		rec := result.Record
		where := rec.Location
		if det := rec.FindDetection(req.Entity); det != nil {
			where = fmt.Sprintf("%s (%s)", rec.Location, det.Position())
		}
		fmt.Printf("%s: %s, %s.\n", req.Entity, where, humanAge(rec.Time()))
		if narrative := g.Narrative(req.Entity, 3); narrative != "" {
			fmt.Println(narrative)
		}
	}
}

func printMovements(result query.Result) {
	for _, mv := range result.Movements {
		fmt.Printf("  %s\n", mv.Narrative())
	}
}

func printRecordLine(rec *store.MemoryRecord) {
	desc := rec.Description
	if desc == "" {
		desc = strings.Join(rec.ObjectNames(), ", ")
	}
	fmt.Printf("  %s  %-12s %s\n", rec.Time().Format("Jan 2 15:04"), rec.Location, desc)
}

// humanAge formats how long ago t was, e.g. "2h 15m ago".
func humanAge(t time.Time) string {
	if t.IsZero() {
		return "time unknown"
	}
	d := time.Since(t)
	switch {
	case d >= 24*time.Hour:
		return fmt.Sprintf("%dd %dh ago", int(d.Hours())/24, int(d.Hours())%24)
	case d >= time.Hour:
		return fmt.Sprintf("%dh %dm ago", int(d.Hours()), int(d.Minutes())%60)
	case d >= time.Minute:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	default:
		return "just now"
	}
}
