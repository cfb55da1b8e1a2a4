package query

import (
	"time"

	"github.com/lazypower/recall/internal/graph"
	"github.com/lazypower/recall/internal/index"
	"github.com/lazypower/recall/internal/store"
)

// Type is the classified query type routed by the dispatcher.
type Type string

const (
	TypeObject   Type = "object"
	TypeScene    Type = "scene"
	TypeTime     Type = "time"
	TypeNear     Type = "near"
	TypePerson   Type = "person"
	TypeActivity Type = "activity"
	TypeVQA      Type = "vqa"
)

// Request is the classifier output consumed by Dispatch. TimeStart and
// TimeEnd, when non-zero, give an absolute window that wins over fuzzy
// parsing of Entity.
type Request struct {
	Type      Type
	Entity    string
	Question  string
	Placed    bool
	TimeStart time.Time
	TimeEnd   time.Time
}

// Outcome says how a query resolved. Failure is data, not an error: the
// presentation layer renders not-found, it never catches anything.
type Outcome string

const (
	// OutcomeFound: the query matched and Record/Records carry results.
	OutcomeFound Outcome = "found"
	// OutcomeNotFound: nothing matched.
	OutcomeNotFound Outcome = "not_found"
	// OutcomeOnlyHeld: a placed query matched only sightings where the
	// object was in hand, so its last known resting place is unknown.
	OutcomeOnlyHeld Outcome = "only_held"
	// OutcomeAnswered: a visual question was answered; see Answer.
	OutcomeAnswered Outcome = "answered"
	// OutcomeUnavailable: the branch needs a collaborator (VQA without an
	// inference client or stored image) that isn't available.
	OutcomeUnavailable Outcome = "unavailable"
)

// Result is the typed answer to a query, with supporting evidence for the
// presentation layer.
type Result struct {
	Outcome Outcome `json:"outcome"`

	// Record is the primary match for object/scene/near/vqa queries.
	Record *store.MemoryRecord `json:"record,omitempty"`
	// Records are the matches for time/person/activity queries.
	Records []*store.MemoryRecord `json:"records,omitempty"`

	Movements     []graph.MovementEvent `json:"movements,omitempty"`
	Cooccurrences []index.Cooccurrence  `json:"cooccurrences,omitempty"`
	People        []string              `json:"people,omitempty"`
	Activities    []string              `json:"activities,omitempty"`
	Answer        string                `json:"answer,omitempty"`

	// Window is the resolved time range for time queries.
	WindowStart time.Time `json:"window_start,omitempty"`
	WindowEnd   time.Time `json:"window_end,omitempty"`
}
