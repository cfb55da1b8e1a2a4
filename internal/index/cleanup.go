package index

import (
	"log"
	"sort"
	"time"
)

// Cleanup evicts the lowest-scoring records until at most maxRecords
// remain, deleting their storage artifacts, index edges, access-log
// entries, and cached metadata. Records already missing from the index are
// tolerated, since a repeat pass after a partial failure is normal. Returns the
// number of records evicted.
func (x *Index) Cleanup(maxRecords int) (int, error) {
	ids, err := x.store.ListIDs()
	if err != nil {
		return 0, err
	}
	if len(ids) <= maxRecords {
		return 0, nil
	}
	toEvict := len(ids) - maxRecords

	// Rank ascending by retention score; the lowest scores (old and never
	// recalled) go first. ids arrive chronologically sorted, so ties keep
	// FIFO order.
	now := time.Now()
	type scored struct {
		id    string
		score float64
	}
	ranked := make([]scored, len(ids))
	x.mu.RLock()
	for i, id := range ids {
		ranked[i] = scored{id: id, score: x.decayScoreAt(id, now)}
	}
	x.mu.RUnlock()
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score < ranked[j].score })

	evicted := 0
	for _, candidate := range ranked[:toEvict] {
		if err := x.store.DeleteRecord(candidate.id); err != nil {
			log.Printf("[cleanup] delete %s: %v", candidate.id, err)
			continue
		}
		x.Remove(candidate.id)
		evicted++
	}

	if evicted > 0 {
		log.Printf("[cleanup] forgot %d low-score memories (limit: %d)", evicted, maxRecords)
	}
	return evicted, nil
}

// CleanupFIFO evicts oldest-first without scoring. Fallback path when no
// scorer state is wanted: ids sort chronologically, so the head of the
// list is the oldest.
func (x *Index) CleanupFIFO(maxRecords int) (int, error) {
	ids, err := x.store.ListIDs()
	if err != nil {
		return 0, err
	}
	if len(ids) <= maxRecords {
		return 0, nil
	}

	evicted := 0
	for _, id := range ids[:len(ids)-maxRecords] {
		if err := x.store.DeleteRecord(id); err != nil {
			log.Printf("[cleanup] delete %s: %v", id, err)
			continue
		}
		x.Remove(id)
		evicted++
	}
	return evicted, nil
}

// Remove drops a record from every cache: hash-index edges (set
// semantics, absent edges tolerated), metadata entry, and access log.
func (x *Index) Remove(id string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if entry, ok := x.entries[id]; ok {
		x.unindexEntry(id, entry)
	}
	delete(x.entries, id)
	delete(x.accessLog, id)
}
