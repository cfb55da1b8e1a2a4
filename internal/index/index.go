package index

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/lazypower/recall/internal/store"
)

// Entry is the cached metadata kept per record. The hash indices are
// rebuilt from these entries, so the index file can be replayed without
// re-reading every record from storage. Name lists are comma-joined
// (semicolons for persons and relationships, which may contain commas).
type Entry struct {
	Timestamp           string `json:"timestamp"`
	Location            string `json:"location"`
	Objects             string `json:"objects"`
	People              string `json:"people,omitempty"`
	Persons             string `json:"persons,omitempty"`
	Activities          string `json:"activities,omitempty"`
	Tags                string `json:"tags,omitempty"`
	Relationships       string `json:"relationships,omitempty"`
	Description         string `json:"description,omitempty"`
	ImagePath           string `json:"image_path,omitempty"`
	AudioTranscript     string `json:"audio_transcript,omitempty"`
	ConversationContext string `json:"conversation_context,omitempty"`
}

// AccessEntry tracks how often a record has been retrieved. Used only by
// the decay scorer to rank eviction candidates.
type AccessEntry struct {
	AccessCount  int    `json:"access_count"`
	LastAccessed string `json:"last_accessed"`
}

// Index maintains hash indices from object/person/activity name to record
// id sets, plus the per-record metadata and access-log caches. All lookup
// keys are lowercased. A single RWMutex guards the maps: concurrent
// readers, exclusive writer during Add, Cleanup, Save, and Reload.
type Index struct {
	mu sync.RWMutex

	store *store.Store

	byObject   map[string]map[string]bool
	byPerson   map[string]map[string]bool
	byActivity map[string]map[string]bool

	entries   map[string]Entry
	accessLog map[string]AccessEntry
}

// Open loads (or rebuilds) the index for the given store. A missing or
// corrupt index file falls back to scanning the record directory; load
// failures are never fatal.
func Open(s *store.Store) *Index {
	idx := &Index{
		store:      s,
		byObject:   make(map[string]map[string]bool),
		byPerson:   make(map[string]map[string]bool),
		byActivity: make(map[string]map[string]bool),
		entries:    make(map[string]Entry),
		accessLog:  make(map[string]AccessEntry),
	}
	idx.mu.Lock()
	idx.load()
	idx.mu.Unlock()
	log.Printf("[index] %d memories loaded", idx.Len())
	return idx
}

func (x *Index) filePath() string {
	return filepath.Join(x.store.Dir, "memory_index.json")
}

// indexFile is the persisted form: entries plus the access log.
type indexFile struct {
	Memories  map[string]Entry       `json:"memories"`
	AccessLog map[string]AccessEntry `json:"access_log"`
}

// load replays the index file then scans for records it doesn't cover.
// Caller holds the write lock.
func (x *Index) load() {
	data, err := os.ReadFile(x.filePath())
	if err == nil {
		var f indexFile
		if jerr := json.Unmarshal(data, &f); jerr != nil {
			log.Printf("[index] load index file: %v", jerr)
		} else {
			if f.Memories != nil {
				x.entries = f.Memories
			}
			if f.AccessLog != nil {
				x.accessLog = f.AccessLog
			}
			for id, entry := range x.entries {
				x.indexEntry(id, entry)
			}
		}
	} else if !os.IsNotExist(err) {
		log.Printf("[index] load index file: %v", err)
	}

	// Pick up records persisted after the last index checkpoint (or
	// everything, when the index file was missing or unreadable).
	x.scanNewRecords()
}

// scanNewRecords indexes any record files not yet covered by an entry.
// Caller holds the write lock.
func (x *Index) scanNewRecords() {
	ids, err := x.store.ListIDs()
	if err != nil {
		log.Printf("[index] scan records: %v", err)
		return
	}
	for _, id := range ids {
		if _, ok := x.entries[id]; ok {
			continue
		}
		rec, err := x.store.LoadRecord(id)
		if err != nil || rec == nil {
			continue
		}
		entry := entryFor(rec)
		x.entries[id] = entry
		x.indexEntry(id, entry)
	}
}

// indexEntry adds one entry's names to the hash indices. Caller holds the
// write lock.
func (x *Index) indexEntry(id string, e Entry) {
	for _, obj := range splitList(e.Objects, ",") {
		addEdge(x.byObject, obj, id)
	}
	for _, person := range splitList(e.People, ",") {
		addEdge(x.byPerson, person, id)
	}
	for _, desc := range splitList(e.Persons, ";") {
		addEdge(x.byPerson, desc, id)
	}
	for _, act := range splitList(e.Activities, ",") {
		addEdge(x.byActivity, act, id)
	}
}

// unindexEntry removes one entry's names from the hash indices, tolerating
// edges that are already absent. Caller holds the write lock.
func (x *Index) unindexEntry(id string, e Entry) {
	for _, obj := range splitList(e.Objects, ",") {
		dropEdge(x.byObject, obj, id)
	}
	for _, person := range splitList(e.People, ",") {
		dropEdge(x.byPerson, person, id)
	}
	for _, desc := range splitList(e.Persons, ";") {
		dropEdge(x.byPerson, desc, id)
	}
	for _, act := range splitList(e.Activities, ",") {
		dropEdge(x.byActivity, act, id)
	}
}

func addEdge(m map[string]map[string]bool, key, id string) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return
	}
	if m[key] == nil {
		m[key] = make(map[string]bool)
	}
	m[key][id] = true
}

func dropEdge(m map[string]map[string]bool, key, id string) {
	key = strings.ToLower(strings.TrimSpace(key))
	if ids, ok := m[key]; ok {
		delete(ids, id)
		if len(ids) == 0 {
			delete(m, key)
		}
	}
}

func splitList(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// entryFor flattens a record into its cached metadata form.
func entryFor(rec *store.MemoryRecord) Entry {
	personDescs := make([]string, 0, len(rec.Persons))
	personNames := make([]string, 0, len(rec.Persons))
	for _, p := range rec.Persons {
		if p.Description != "" {
			personDescs = append(personDescs, p.Description)
		}
		if p.Name != "" {
			personNames = append(personNames, p.Name)
		}
	}
	people := append([]string{}, rec.People...)
	people = append(people, personNames...)

	return Entry{
		Timestamp:           rec.Timestamp,
		Location:            rec.Location,
		Objects:             strings.Join(rec.ObjectNames(), ","),
		People:              strings.Join(people, ","),
		Persons:             strings.Join(personDescs, ";"),
		Activities:          strings.Join(rec.Activities, ","),
		Tags:                strings.Join(rec.Tags, ","),
		Relationships:       strings.Join(rec.Relationships, ";"),
		Description:         rec.Description,
		ImagePath:           rec.ImagePath,
		AudioTranscript:     rec.AudioTranscript,
		ConversationContext: rec.ConversationContext,
	}
}

// Add indexes a record. Re-adding an existing id replaces its entry and
// edges, so a same-second overwrite doesn't leak stale object names. Disk
// persistence is batched unless persistNow is set.
func (x *Index) Add(rec *store.MemoryRecord, persistNow bool) error {
	x.mu.Lock()
	if old, ok := x.entries[rec.ID]; ok {
		x.unindexEntry(rec.ID, old)
	}
	entry := entryFor(rec)
	x.entries[rec.ID] = entry
	x.indexEntry(rec.ID, entry)
	x.mu.Unlock()

	if persistNow {
		return x.Save()
	}
	return nil
}

// Save checkpoints the entries and access log to disk atomically.
func (x *Index) Save() error {
	x.mu.RLock()
	data, err := json.MarshalIndent(indexFile{
		Memories:  x.entries,
		AccessLog: x.accessLog,
	}, "", "  ")
	x.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}
	if err := store.WriteAtomic(x.filePath(), data); err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	return nil
}

// Reload clears all in-memory state and rebuilds from disk: index file
// first, then a scan for records newer than the file. Callers in a
// separate process from the writer invoke this before querying.
func (x *Index) Reload() {
	x.mu.Lock()
	x.byObject = make(map[string]map[string]bool)
	x.byPerson = make(map[string]map[string]bool)
	x.byActivity = make(map[string]map[string]bool)
	x.entries = make(map[string]Entry)
	x.accessLog = make(map[string]AccessEntry)
	x.load()
	x.mu.Unlock()
	log.Printf("[index] reloaded: %d memories", x.Len())
}

// GetEntry returns the cached metadata for a record id.
func (x *Index) GetEntry(id string) (Entry, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	e, ok := x.entries[id]
	return e, ok
}

// Len returns the number of indexed records.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}
