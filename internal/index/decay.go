package index

import (
	"math"
	"time"
)

// Retention scoring follows the Ebbinghaus forgetting curve: recency
// decays exponentially with a 7-day half-life, and each retrieval adds a
// boost, so records that keep getting searched for resist eviction even as
// they age. The score ranks eviction candidates only and plays no part in
// search ranking.
const (
	halfLifeDays    = 7.0
	defaultAgeDays  = 30.0 // assumed age when the timestamp is unparsable
	accessBoostStep = 0.1
	accessBoostCap  = 1.0
)

// RecordAccess bumps the access count and refreshes the last-accessed
// timestamp for each id. Called by every successful query path on the top
// few ids it returns.
func (x *Index) RecordAccess(ids []string) {
	now := time.Now().Format(time.RFC3339)
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, id := range ids {
		entry := x.accessLog[id]
		entry.AccessCount++
		entry.LastAccessed = now
		x.accessLog[id] = entry
	}
}

// AccessCount returns how many times a record has been retrieved.
func (x *Index) AccessCount(id string) int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.accessLog[id].AccessCount
}

// DecayScore computes the retention score for a record:
//
//	score = exp(-ln2 · ageDays/7) + min(accessCount·0.1, 1.0)
//
// A 30-day-old record retrieved 10 times (≈1.05) outlives a week-old
// record never retrieved (≈0.50).
func (x *Index) DecayScore(id string) float64 {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.decayScoreAt(id, time.Now())
}

// decayScoreAt is the lock-free core, taking an explicit now. Caller
// holds at least the read lock.
func (x *Index) decayScoreAt(id string, now time.Time) float64 {
	ageDays := defaultAgeDays
	if entry, ok := x.entries[id]; ok {
		if ts, err := time.Parse(time.RFC3339, entry.Timestamp); err == nil {
			ageDays = now.Sub(ts).Hours() / 24.0
		}
	}
	recency := math.Exp(-math.Ln2 * ageDays / halfLifeDays)

	boost := float64(x.accessLog[id].AccessCount) * accessBoostStep
	if boost > accessBoostCap {
		boost = accessBoostCap
	}
	return recency + boost
}
