package query

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/lazypower/recall/internal/graph"
	"github.com/lazypower/recall/internal/index"
	"github.com/lazypower/recall/internal/store"
	"github.com/lazypower/recall/internal/vision"
)

// Result list caps: loaded records per multi-result query, and how many of
// the returned ids get access reinforcement.
const (
	maxLoaded    = 10
	reinforceTop = 5
)

// heldIndicators are context phrases meaning the object was in the user's
// hand rather than resting somewhere. Placed queries filter these out.
var heldIndicators = []string{"in hand", "held", "holding", "carrying", "gripping"}

// Dispatcher routes a classified query to the retrieval strategy that can
// answer it and assembles the typed result. It is a pure routing layer:
// visual reasoning is delegated to the vision collaborator, everything
// else is index and graph lookups.
type Dispatcher struct {
	Store  *store.Store
	Index  *index.Index
	Graph  *graph.Graph
	Vision vision.Client // nil when inference is unavailable; VQA degrades

	// Now is the clock used for fuzzy time resolution; defaults to
	// time.Now when nil. Injected by tests.
	Now func() time.Time
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Dispatch answers a classified query. Every successful path records
// access on the ids it returns (capped to the top few), feeding the
// retention scorer.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Result {
	// Lookups and the person/activity name filters compare lowercase; the
	// HTTP path passes the entity verbatim.
	req.Entity = strings.ToLower(strings.TrimSpace(req.Entity))

	switch req.Type {
	case TypeTime:
		return d.timeQuery(req)
	case TypeNear:
		return d.nearQuery(req)
	case TypePerson:
		return d.personQuery(req)
	case TypeActivity:
		return d.activityQuery(req)
	case TypeVQA:
		return d.vqaQuery(ctx, req)
	case TypeScene:
		if res := d.sceneQuery(req); res.Outcome != OutcomeNotFound {
			return res
		}
		// No location match: fall through to object search.
		return d.objectQuery(req)
	default:
		return d.objectQuery(req)
	}
}

// loadRecords loads up to maxLoaded records, skipping ids whose files have
// gone missing since indexing.
func (d *Dispatcher) loadRecords(ids []string) []*store.MemoryRecord {
	if len(ids) > maxLoaded {
		ids = ids[:maxLoaded]
	}
	var records []*store.MemoryRecord
	for _, id := range ids {
		rec, err := d.Store.LoadRecord(id)
		if err != nil || rec == nil {
			continue
		}
		records = append(records, rec)
	}
	return records
}

func reinforce(x *index.Index, ids []string, top int) {
	if len(ids) == 0 {
		return
	}
	if len(ids) > top {
		ids = ids[:top]
	}
	x.RecordAccess(ids)
}

func (d *Dispatcher) timeQuery(req Request) Result {
	start, end := req.TimeStart, req.TimeEnd
	if start.IsZero() || end.IsZero() {
		start, end = ParseTimeExpression(req.Entity, d.now())
	}

	ids := d.Index.FindByTime(start, end, 20)
	reinforce(d.Index, ids, reinforceTop)

	records := d.loadRecords(ids)
	outcome := OutcomeFound
	if len(records) == 0 {
		outcome = OutcomeNotFound
	}
	return Result{Outcome: outcome, Records: records, WindowStart: start, WindowEnd: end}
}

func (d *Dispatcher) nearQuery(req Request) Result {
	cooccurrences := d.Index.FindCooccurrence(req.Entity, 10)
	ids := d.Index.FindByObject(req.Entity)

	var anchor *store.MemoryRecord
	if len(ids) > 0 {
		reinforce(d.Index, ids, 1)
		anchor, _ = d.Store.LoadRecord(ids[0])
	}
	if anchor == nil && len(cooccurrences) == 0 {
		return Result{Outcome: OutcomeNotFound}
	}
	return Result{Outcome: OutcomeFound, Record: anchor, Cooccurrences: cooccurrences}
}

func (d *Dispatcher) personQuery(req Request) Result {
	ids := d.Index.FindByPerson(req.Entity)
	reinforce(d.Index, ids, reinforceTop)

	records := d.loadRecords(ids)
	if len(records) == 0 {
		return Result{Outcome: OutcomeNotFound}
	}

	// Union of named people across the matches, filtered to the queried
	// name when one was given.
	seen := make(map[string]bool)
	for _, rec := range records {
		for _, p := range rec.People {
			if req.Entity == "" || strings.Contains(strings.ToLower(p), req.Entity) {
				seen[p] = true
			}
		}
	}
	people := make([]string, 0, len(seen))
	for p := range seen {
		people = append(people, p)
	}
	sort.Strings(people)

	return Result{Outcome: OutcomeFound, Records: records, People: people}
}

func (d *Dispatcher) activityQuery(req Request) Result {
	ids := d.Index.FindByActivity(req.Entity)
	reinforce(d.Index, ids, reinforceTop)

	records := d.loadRecords(ids)
	if len(records) == 0 {
		return Result{Outcome: OutcomeNotFound}
	}

	seen := make(map[string]bool)
	for _, rec := range records {
		for _, act := range rec.Activities {
			if req.Entity == "" || strings.Contains(strings.ToLower(act), req.Entity) {
				seen[act] = true
			}
		}
	}
	activities := make([]string, 0, len(seen))
	for a := range seen {
		activities = append(activities, a)
	}
	sort.Strings(activities)

	return Result{Outcome: OutcomeFound, Records: records, Activities: activities}
}

func (d *Dispatcher) vqaQuery(ctx context.Context, req Request) Result {
	if d.Vision == nil {
		return Result{Outcome: OutcomeUnavailable}
	}
	ids := d.Index.FindByObject(req.Entity)
	if len(ids) == 0 {
		return Result{Outcome: OutcomeNotFound}
	}
	reinforce(d.Index, ids, 1)

	rec, err := d.Store.LoadRecord(ids[0])
	if err != nil || rec == nil || len(rec.ImageData) == 0 {
		return Result{Outcome: OutcomeUnavailable, Record: rec}
	}

	question := req.Question
	if question == "" {
		question = req.Entity
	}
	answer, err := d.Vision.AnswerVisualQuestion(ctx, rec.ImageData, question)
	if err != nil {
		return Result{Outcome: OutcomeUnavailable, Record: rec}
	}
	return Result{Outcome: OutcomeAnswered, Record: rec, Answer: answer}
}

func (d *Dispatcher) sceneQuery(req Request) Result {
	ids := d.Index.FindByLocation(req.Entity, 10)
	if len(ids) == 0 {
		return Result{Outcome: OutcomeNotFound}
	}
	reinforce(d.Index, ids, 1)

	rec, err := d.Store.LoadRecord(ids[0])
	if err != nil || rec == nil {
		return Result{Outcome: OutcomeNotFound}
	}
	return Result{Outcome: OutcomeFound, Record: rec}
}

func (d *Dispatcher) objectQuery(req Request) Result {
	ids := d.Index.FindByObject(req.Entity)
	if len(ids) == 0 {
		return Result{Outcome: OutcomeNotFound}
	}

	// A placed query asks where the object was set down, so sightings
	// where it was merely in hand are filtered out. If filtering empties
	// the candidates, report the held sighting distinctly rather than
	// presenting "in your hand" as a storage location.
	if req.Placed {
		var placedIDs []string
		var heldRecord *store.MemoryRecord
		for _, id := range ids {
			rec, err := d.Store.LoadRecord(id)
			if err != nil || rec == nil {
				continue
			}
			if det := rec.FindDetection(req.Entity); det != nil && det.Context != "" && isHeldContext(det.Context) {
				if heldRecord == nil {
					heldRecord = rec
				}
				continue
			}
			placedIDs = append(placedIDs, id)
		}
		if len(placedIDs) > 0 {
			ids = placedIDs
		} else if heldRecord != nil {
			return Result{
				Outcome:   OutcomeOnlyHeld,
				Record:    heldRecord,
				Movements: d.Graph.GetHistory(req.Entity, 10),
			}
		}
	}

	reinforce(d.Index, ids, 1)
	rec, err := d.Store.LoadRecord(ids[0])
	if err != nil || rec == nil {
		return Result{Outcome: OutcomeNotFound}
	}
	return Result{
		Outcome:   OutcomeFound,
		Record:    rec,
		Movements: d.Graph.GetHistory(req.Entity, 10),
	}
}

func isHeldContext(ctx string) bool {
	ctx = strings.ToLower(ctx)
	for _, hint := range heldIndicators {
		if strings.Contains(ctx, hint) {
			return true
		}
	}
	return false
}
