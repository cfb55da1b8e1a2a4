package index

import (
	"sort"
	"strings"
	"time"
)

// sortedIDs returns the ids in a set, newest first. Record ids embed the
// capture timestamp, so a reverse lexical sort is a reverse chronological
// sort.
func sortedIDs(set map[string]bool) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids
}

// singular strips a trailing plural 's' run for plural-insensitive
// comparison: "keys"→"key", "glasses"→"glasse"... both sides are stripped
// the same way, so equality is what matters, not linguistic correctness.
func singular(s string) string {
	return strings.TrimRight(s, "s")
}

// FindByObject looks up records containing the named object, newest
// first. Exact hash hits across the term's synonym group win; only when
// those are empty does a conservative fuzzy pass run, accepting keys whose
// plural-stripped form matches or that share a whole whitespace token with
// the query ("bottle" matches "water bottle", but "car" never matches
// "card").
func (x *Index) FindByObject(name string) []string {
	name = strings.ToLower(strings.TrimSpace(name))
	terms := expandTerms(name)

	x.mu.RLock()
	defer x.mu.RUnlock()

	matches := make(map[string]bool)
	for term := range terms {
		for id := range x.byObject[term] {
			matches[id] = true
		}
	}
	if len(matches) > 0 {
		return sortedIDs(matches)
	}

	for key, ids := range x.byObject {
		for term := range terms {
			if singular(key) == singular(term) || tokenOverlap(term, key) {
				for id := range ids {
					matches[id] = true
				}
			}
		}
	}
	return sortedIDs(matches)
}

// tokenOverlap reports whether either string equals a whitespace-delimited
// token of the other (compound-word matching).
func tokenOverlap(a, b string) bool {
	for _, tok := range strings.Fields(b) {
		if tok == a {
			return true
		}
	}
	for _, tok := range strings.Fields(a) {
		if tok == b {
			return true
		}
	}
	return false
}

// FindByPerson looks up records where the named person was present,
// newest first. An empty name returns every record with people. Falls back
// to partial containment in either direction or first-token (first name)
// equality.
func (x *Index) FindByPerson(name string) []string {
	name = strings.ToLower(strings.TrimSpace(name))

	x.mu.RLock()
	defer x.mu.RUnlock()

	matches := make(map[string]bool)
	if name == "" {
		for _, ids := range x.byPerson {
			for id := range ids {
				matches[id] = true
			}
		}
		return sortedIDs(matches)
	}

	if ids, ok := x.byPerson[name]; ok {
		return sortedIDs(ids)
	}

	nameFirst := firstToken(name)
	for key, ids := range x.byPerson {
		if strings.Contains(key, name) || strings.Contains(name, key) ||
			(nameFirst != "" && nameFirst == firstToken(key)) {
			for id := range ids {
				matches[id] = true
			}
		}
	}
	return sortedIDs(matches)
}

func firstToken(s string) string {
	if fields := strings.Fields(s); len(fields) > 0 {
		return fields[0]
	}
	return ""
}

// FindByActivity looks up records where the activity occurred, newest
// first. An empty activity returns every record with activities. Falls
// back to substring containment either direction or any shared word.
func (x *Index) FindByActivity(activity string) []string {
	activity = strings.ToLower(strings.TrimSpace(activity))

	x.mu.RLock()
	defer x.mu.RUnlock()

	matches := make(map[string]bool)
	if activity == "" {
		for _, ids := range x.byActivity {
			for id := range ids {
				matches[id] = true
			}
		}
		return sortedIDs(matches)
	}

	if ids, ok := x.byActivity[activity]; ok {
		return sortedIDs(ids)
	}

	queryWords := wordSet(activity)
	for key, ids := range x.byActivity {
		if strings.Contains(key, activity) || strings.Contains(activity, key) ||
			intersects(queryWords, wordSet(key)) {
			for id := range ids {
				matches[id] = true
			}
		}
	}
	return sortedIDs(matches)
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		set[w] = true
	}
	return set
}

func intersects(a, b map[string]bool) bool {
	for w := range a {
		if b[w] {
			return true
		}
	}
	return false
}

// FindByLocation returns up to limit record ids whose scene location
// contains the query (or vice versa), newest first.
func (x *Index) FindByLocation(location string, limit int) []string {
	location = strings.ToLower(strings.TrimSpace(location))

	x.mu.RLock()
	matches := make(map[string]bool)
	for id, entry := range x.entries {
		loc := strings.ToLower(entry.Location)
		if strings.Contains(loc, location) || strings.Contains(location, loc) {
			matches[id] = true
		}
	}
	x.mu.RUnlock()

	ids := sortedIDs(matches)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids
}

// FindByTime returns up to limit record ids whose timestamp falls inside
// [start, end], newest first. Records with missing or malformed timestamps
// are skipped.
func (x *Index) FindByTime(start, end time.Time, limit int) []string {
	x.mu.RLock()
	matches := make(map[string]bool)
	for id, entry := range x.entries {
		ts, err := time.Parse(time.RFC3339, entry.Timestamp)
		if err != nil {
			continue
		}
		if !ts.Before(start) && !ts.After(end) {
			matches[id] = true
		}
	}
	x.mu.RUnlock()

	ids := sortedIDs(matches)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids
}

// Cooccurrence pairs a record id with the other objects seen in it.
type Cooccurrence struct {
	MemoryID string   `json:"memory_id"`
	Objects  []string `json:"objects"`
}

// FindCooccurrence returns, for up to limit records containing entity,
// the other object names in each record, excluding the entity itself and
// its plural/singular variants.
func (x *Index) FindCooccurrence(entity string, limit int) []Cooccurrence {
	entity = strings.ToLower(strings.TrimSpace(entity))
	ids := x.FindByObject(entity)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	var results []Cooccurrence
	for _, id := range ids {
		entry, ok := x.entries[id]
		if !ok {
			continue
		}
		var others []string
		for _, obj := range splitList(entry.Objects, ",") {
			lower := strings.ToLower(obj)
			if lower == entity || singular(lower) == singular(entity) {
				continue
			}
			others = append(others, obj)
		}
		if len(others) > 0 {
			results = append(results, Cooccurrence{MemoryID: id, Objects: others})
		}
	}
	return results
}

// People enumerates every person name in the index.
func (x *Index) People() []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	people := make([]string, 0, len(x.byPerson))
	for name := range x.byPerson {
		people = append(people, name)
	}
	sort.Strings(people)
	return people
}

// Activities enumerates every activity in the index.
func (x *Index) Activities() []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	acts := make([]string, 0, len(x.byActivity))
	for a := range x.byActivity {
		acts = append(acts, a)
	}
	sort.Strings(acts)
	return acts
}
