package ingest

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/lazypower/recall/internal/graph"
	"github.com/lazypower/recall/internal/index"
	"github.com/lazypower/recall/internal/store"
	"github.com/lazypower/recall/internal/vision"
)

// Options tunes the ingestion pipeline.
type Options struct {
	// ConfidenceFloor drops detections below this confidence. Default 0.5.
	ConfidenceFloor float64
	// MaxRecords bounds storage; cleanup runs at each checkpoint. Default 1000.
	MaxRecords int
	// CheckpointEvery persists the index and graph after this many saved
	// captures. Default 10.
	CheckpointEvery int
	// AttachTimeout is how long an attached object must be unseen before
	// it counts as removed. Default 30s.
	AttachTimeout time.Duration

	Announce AnnounceConfig
}

func (o Options) withDefaults() Options {
	if o.ConfidenceFloor <= 0 {
		o.ConfidenceFloor = 0.5
	}
	if o.MaxRecords <= 0 {
		o.MaxRecords = 1000
	}
	if o.CheckpointEvery <= 0 {
		o.CheckpointEvery = 10
	}
	if o.AttachTimeout <= 0 {
		o.AttachTimeout = graph.DefaultAttachTimeout
	}
	return o
}

// Pipeline is the ingestion boundary: it takes one scene analysis from
// the inference collaborator, normalizes it into a MemoryRecord, feeds the
// movement graph, persists, and indexes. Ingestion is serialized behind mu
// so concurrent capture handlers never race on the save counter or the
// announcement cooldowns; queries read concurrently through the
// index/graph locks.
type Pipeline struct {
	store  *store.Store
	index  *index.Index
	graph  *graph.Graph
	vision vision.Client // optional; people extraction no-ops without it
	opts   Options

	mu         sync.Mutex
	announce   *announcer
	savedCount int
}

// IngestResult reports what one capture produced.
type IngestResult struct {
	Record    *store.MemoryRecord
	Saved     bool
	Movements []graph.MovementEvent
	Removed   []string // attached objects that timed out as removed
}

// New builds a pipeline. visionClient may be nil; announce may be nil.
func New(s *store.Store, x *index.Index, g *graph.Graph, visionClient vision.Client, opts Options, announce Announcer) *Pipeline {
	opts = opts.withDefaults()
	return &Pipeline{
		store:    s,
		index:    x,
		graph:    g,
		vision:   visionClient,
		opts:     opts,
		announce: newAnnouncer(opts.Announce, announce, time.Now),
	}
}

// Ingest processes one capture: scene analysis plus the JPEG it came from
// and optionally the scene audio transcript. captureTime is when the frame
// was captured, not when analysis finished; movement timestamps depend on
// it. A capture with no useful (non-attached) objects is not persisted.
func (p *Pipeline) Ingest(ctx context.Context, analysis *vision.SceneAnalysis, image []byte, captureTime time.Time, transcript string) (*IngestResult, error) {
	if analysis == nil {
		return nil, fmt.Errorf("nil scene analysis")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	rec := &store.MemoryRecord{
		ID:            store.NewRecordID(captureTime),
		Timestamp:     captureTime.Format(time.RFC3339),
		Location:      defaultString(analysis.Location, "unknown"),
		Description:   analysis.Description,
		Activities:    analysis.Activities,
		Tags:          analysis.Tags,
		Relationships: analysis.Relationships,
		Persons:       toPersons(analysis.Persons),
	}

	p.extractPeople(ctx, rec, transcript)

	result := &IngestResult{Record: rec}
	useful := 0

	for _, item := range analysis.Objects {
		det := toDetection(item)
		if det.Confidence < p.opts.ConfidenceFloor {
			log.Printf("[ingest] skipping low-confidence detection: %s (%.0f%%)",
				det.Name, det.Confidence*100)
			continue
		}
		rec.Detections = append(rec.Detections, det)

		if det.Attached {
			// Worn objects move with the person: track attachment state
			// and last-seen only, no movement events.
			p.graph.MarkAttached(det.Name, rec.Timestamp, rec.Location)
			p.graph.Observe(det.Name, rec.Location, det.Position(), rec.Timestamp, rec.ID)
			continue
		}
		useful++

		if m := p.graph.Update(det.Name, rec.Location, det.Position(), rec.Timestamp, rec.ID); m != nil {
			result.Movements = append(result.Movements, *m)
			p.announce.placed(det.Name, rec.Location)
		}
	}

	// Sweep attached objects that have disappeared: once one reappears
	// unattached it resumes normal tracking.
	visible := make([]string, 0, len(analysis.Objects))
	for _, item := range analysis.Objects {
		visible = append(visible, item.ItemName())
	}
	result.Removed = p.graph.CheckRemovedAttached(visible, captureTime, p.opts.AttachTimeout)
	for _, entity := range result.Removed {
		log.Printf("[ingest] %s removed (was attached, now not visible)", entity)
	}

	if useful == 0 {
		log.Printf("[ingest] skipping capture, no useful objects (%s)",
			strings.Join(rec.ObjectNames(), ", "))
		return result, nil
	}

	if len(image) > 0 {
		path, err := p.store.SaveImage(rec.ID, image)
		if err != nil {
			return nil, err
		}
		rec.ImagePath = path
	}
	if err := p.store.SaveRecord(rec); err != nil {
		return nil, err
	}
	if err := p.index.Add(rec, false); err != nil {
		return nil, err
	}
	result.Saved = true
	p.savedCount++

	log.Printf("[ingest] %s at %s: %s", rec.ID, rec.Location,
		strings.Join(rec.ObjectNames(), ", "))

	if p.savedCount%p.opts.CheckpointEvery == 0 {
		p.Checkpoint()
	}
	return result, nil
}

// extractPeople fills the WHO fields from the scene transcript, linking
// names to visual persons when the counts align. No-ops without a vision
// client or transcript; extraction failure degrades to an unattributed
// transcript.
func (p *Pipeline) extractPeople(ctx context.Context, rec *store.MemoryRecord, transcript string) {
	if transcript == "" || transcript == "[silence]" {
		return
	}
	rec.AudioTranscript = transcript
	if p.vision == nil {
		return
	}
	people, context, err := p.vision.ExtractPeople(ctx, transcript)
	if err != nil {
		log.Printf("[ingest] people extraction failed: %v", err)
		return
	}
	rec.People = people
	rec.ConversationContext = context
	if len(people) > 0 && len(people) == len(rec.Persons) {
		for i := range rec.Persons {
			rec.Persons[i].Name = people[i]
		}
	}
}

// Checkpoint persists the index and graph and bounds storage. Called
// periodically from Ingest and always from Close.
func (p *Pipeline) Checkpoint() {
	if err := p.index.Save(); err != nil {
		log.Printf("[ingest] save index: %v", err)
	}
	if err := p.graph.Save(p.GraphPath()); err != nil {
		log.Printf("[ingest] save graph: %v", err)
	}
	if _, err := p.index.Cleanup(p.opts.MaxRecords); err != nil {
		log.Printf("[ingest] cleanup: %v", err)
	}
}

// GraphPath is where the movement graph snapshot lives.
func (p *Pipeline) GraphPath() string {
	return filepath.Join(p.store.Dir, "temporal_graph.json")
}

// Close checkpoints all state; call on graceful shutdown. Waits for any
// in-flight ingestion before the final checkpoint.
func (p *Pipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Checkpoint()
}

func defaultString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
