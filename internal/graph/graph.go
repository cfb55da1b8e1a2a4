package graph

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lazypower/recall/internal/store"
)

// maxHistory bounds the movement history kept per entity.
const maxHistory = 100

// DefaultAttachTimeout is how long an attached entity must be absent from
// the visible set before it counts as removed.
const DefaultAttachTimeout = 30 * time.Second

// Sighting is the last known whereabouts of an entity.
type Sighting struct {
	Location  string `json:"location"`
	Position  string `json:"position"`
	Timestamp string `json:"timestamp"`
	MemoryID  string `json:"memory_id"`
}

// AttachedState marks an entity as currently worn or held. Attached
// entities are exempt from movement tracking until they disappear for
// longer than the attach timeout.
type AttachedState struct {
	Timestamp string `json:"timestamp"`
	Location  string `json:"location"`
}

// Graph tracks where entities were last seen and how they moved between
// sightings. All entity keys are lowercased. A single RWMutex protects the
// maps: many concurrent readers, exclusive writer during updates and
// snapshots.
type Graph struct {
	mu sync.RWMutex

	lastSeen  map[string]Sighting
	movements map[string][]MovementEvent // newest first
	attached  map[string]AttachedState

	totalMovements int
	startedAt      string
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		lastSeen:  make(map[string]Sighting),
		movements: make(map[string][]MovementEvent),
		attached:  make(map[string]AttachedState),
		startedAt: time.Now().Format(time.RFC3339),
	}
}

// Generic filler words that carry no location information. Suffix
// stripping walks genericSuffixOrder, a fixed order, so a label strips the
// same way on every call.
var (
	genericSuffixOrder = []string{
		"room", "space", "area", "indoor", "outdoor", "inside", "office", "workspace",
	}
	genericWords = func() map[string]bool {
		set := make(map[string]bool, len(genericSuffixOrder))
		for _, w := range genericSuffixOrder {
			set[w] = true
		}
		return set
	}()
)

// normalizeLocation strips qualifier prefixes and generic filler words so
// that inconsistent scene labels ("indoor office" vs "office") don't read
// as movement. Labels that are nothing but filler collapse to "generic".
func normalizeLocation(loc string) string {
	loc = strings.ToLower(strings.TrimSpace(loc))
	for _, prefix := range []string{"indoor ", "outdoor ", "inside ", "the "} {
		loc = strings.ReplaceAll(loc, prefix, "")
	}
	loc = strings.TrimSpace(loc)

	if loc == "" || genericWords[loc] {
		return "generic"
	}
	for _, word := range genericSuffixOrder {
		loc = strings.TrimSpace(strings.TrimSuffix(loc, " "+word))
	}
	if loc == "" || genericWords[loc] {
		return "generic"
	}
	return loc
}

func primaryAxis(p string) string {
	if strings.Contains(p, "top") {
		return "top"
	}
	if strings.Contains(p, "bottom") {
		return "bottom"
	}
	return "center"
}

func secondaryAxis(p string) string {
	if strings.Contains(p, "left") {
		return "left"
	}
	if strings.Contains(p, "right") {
		return "right"
	}
	return "center"
}

// positionsDiffer reports whether two grid positions are far enough apart
// to count as movement. Both the vertical and horizontal axes must change:
// "bottom" vs "bottom-left" is jitter, "top-left" vs "bottom-right" is not.
func positionsDiffer(a, b string) bool {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a == b {
		return false
	}
	return primaryAxis(a) != primaryAxis(b) && secondaryAxis(a) != secondaryAxis(b)
}

// Update records a sighting of entity and returns a MovementEvent when the
// entity moved since its previous sighting. The last-seen entry is updated
// regardless of whether movement was detected.
func (g *Graph) Update(entity, location, position, timestamp, memoryID string) *MovementEvent {
	entity = strings.ToLower(entity)

	g.mu.Lock()
	defer g.mu.Unlock()

	var movement *MovementEvent
	if prev, ok := g.lastSeen[entity]; ok {
		locationChanged := normalizeLocation(prev.Location) != normalizeLocation(location)
		positionChanged := positionsDiffer(prev.Position, position)

		if locationChanged || positionChanged {
			m := MovementEvent{
				Entity:       entity,
				FromLocation: prev.Location,
				ToLocation:   location,
				FromPosition: prev.Position,
				ToPosition:   position,
				FromTime:     prev.Timestamp,
				ToTime:       timestamp,
				FromMemoryID: prev.MemoryID,
				ToMemoryID:   memoryID,
			}
			history := append([]MovementEvent{m}, g.movements[entity]...)
			if len(history) > maxHistory {
				history = history[:maxHistory]
			}
			g.movements[entity] = history
			g.totalMovements++
			movement = &m
			log.Printf("[temporal] %s", m.Narrative())
		}
	}

	g.lastSeen[entity] = Sighting{
		Location:  location,
		Position:  position,
		Timestamp: timestamp,
		MemoryID:  memoryID,
	}
	return movement
}

// Observe records a sighting without movement detection. Used for attached
// entities, which still get a last-seen entry so queries can place them.
func (g *Graph) Observe(entity, location, position, timestamp, memoryID string) {
	entity = strings.ToLower(entity)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastSeen[entity] = Sighting{
		Location:  location,
		Position:  position,
		Timestamp: timestamp,
		MemoryID:  memoryID,
	}
}

// MarkAttached records that entity is currently worn or held. While
// attached, the entity is not tracked for movement.
func (g *Graph) MarkAttached(entity, timestamp, location string) {
	entity = strings.ToLower(entity)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.attached[entity] = AttachedState{Timestamp: timestamp, Location: location}
}

// CheckRemovedAttached returns attached entities that are absent from the
// currently visible set and have been for at least timeout. Returned
// entities are dropped from the attached set; the caller resumes normal
// tracking for them on their next sighting.
func (g *Graph) CheckRemovedAttached(visible []string, now time.Time, timeout time.Duration) []string {
	visibleSet := make(map[string]bool, len(visible))
	for _, v := range visible {
		visibleSet[strings.ToLower(v)] = true
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	var removed []string
	for entity, state := range g.attached {
		if visibleSet[entity] {
			continue
		}
		last, err := time.Parse(time.RFC3339, state.Timestamp)
		if err != nil {
			continue
		}
		if now.Sub(last) >= timeout {
			removed = append(removed, entity)
			delete(g.attached, entity)
		}
	}
	return removed
}

// AttachedStatus returns when and where entity was last seen attached, or
// nil if it isn't being tracked as attached.
func (g *Graph) AttachedStatus(entity string) *AttachedState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if state, ok := g.attached[strings.ToLower(entity)]; ok {
		return &state
	}
	return nil
}

// GetHistory returns up to limit movement events for entity, newest first.
func (g *Graph) GetHistory(entity string, limit int) []MovementEvent {
	g.mu.RLock()
	defer g.mu.RUnlock()
	history := g.movements[strings.ToLower(entity)]
	if limit > 0 && len(history) > limit {
		history = history[:limit]
	}
	out := make([]MovementEvent, len(history))
	copy(out, history)
	return out
}

// LastLocation returns the most recent sighting of entity, or nil if it
// has never been seen.
func (g *Graph) LastLocation(entity string) *Sighting {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if s, ok := g.lastSeen[strings.ToLower(entity)]; ok {
		return &s
	}
	return nil
}

// Narrative renders an entity's movement history plus its current
// location as a multi-line string for presentation.
func (g *Graph) Narrative(entity string, limit int) string {
	history := g.GetHistory(entity, limit)
	last := g.LastLocation(entity)

	if len(history) == 0 {
		if last != nil {
			return fmt.Sprintf("Your %s is at %s (%s). First seen %s.",
				entity, last.Location, last.Position, last.Timestamp)
		}
		return fmt.Sprintf("I haven't seen your %s yet.", entity)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Movement history for %q:\n", entity)
	for i, m := range history {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, m.Narrative())
	}
	if last != nil {
		fmt.Fprintf(&b, "Currently at: %s (%s)", last.Location, last.Position)
	}
	return b.String()
}

// Stats summarizes the graph for health reporting.
type Stats struct {
	StartedAt        string `json:"started_at"`
	EntitiesTracked  int    `json:"entities_tracked"`
	TotalMovements   int    `json:"total_movements"`
	AttachedEntities int    `json:"attached_entities"`
}

// GetStats returns a snapshot of the graph counters.
func (g *Graph) GetStats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return Stats{
		StartedAt:        g.startedAt,
		EntitiesTracked:  len(g.lastSeen),
		TotalMovements:   g.totalMovements,
		AttachedEntities: len(g.attached),
	}
}

// snapshot is the persisted form of the graph.
type snapshot struct {
	StartedAt      string                     `json:"started_at"`
	TotalMovements int                        `json:"total_movements"`
	LastSeen       map[string]Sighting        `json:"last_seen"`
	Movements      map[string][]MovementEvent `json:"movements"`
	Attached       map[string]AttachedState   `json:"attached_objects"`
}

// Save persists the full graph state to path via atomic replacement.
func (g *Graph) Save(path string) error {
	g.mu.RLock()
	snap := snapshot{
		StartedAt:      g.startedAt,
		TotalMovements: g.totalMovements,
		LastSeen:       g.lastSeen,
		Movements:      g.movements,
		Attached:       g.attached,
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	g.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal graph: %w", err)
	}
	if err := store.WriteAtomic(path, data); err != nil {
		return fmt.Errorf("save graph: %w", err)
	}
	return nil
}

// Load restores graph state from path. A missing or corrupt file is
// logged and treated as empty state; the system starts with degraded
// history rather than refusing to start.
func (g *Graph) Load(path string) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return
	}
	if err != nil {
		log.Printf("[temporal] load graph: %v", err)
		return
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Printf("[temporal] load graph: %v", err)
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if snap.StartedAt != "" {
		g.startedAt = snap.StartedAt
	}
	g.totalMovements = snap.TotalMovements
	if snap.LastSeen != nil {
		g.lastSeen = snap.LastSeen
	}
	if snap.Movements != nil {
		g.movements = snap.Movements
	}
	if snap.Attached != nil {
		g.attached = snap.Attached
	}
	log.Printf("[temporal] loaded graph: %d entities, %d movements",
		len(g.lastSeen), g.totalMovements)
}
