package vision

import "context"

// Client is the interface to the remote inference service that turns raw
// captures into structured detections and classified queries. The core
// never blocks on network I/O itself: everything behind this interface is
// an external collaborator, and callers own the timeouts via ctx.
type Client interface {
	// AnalyzeImage runs scene analysis on a JPEG frame.
	AnalyzeImage(ctx context.Context, image []byte) (*SceneAnalysis, error)

	// ClassifyQuery turns a natural-language query into a typed request.
	ClassifyQuery(ctx context.Context, query string) (*QueryClassification, error)

	// AnswerVisualQuestion answers a question about a stored image.
	AnswerVisualQuestion(ctx context.Context, image []byte, question string) (string, error)

	// ExtractPeople pulls person names and a conversation summary from a
	// scene transcript.
	ExtractPeople(ctx context.Context, transcript string) ([]string, string, error)
}

// SceneAnalysis is the structured detection payload for one capture.
// Boxes arrive in the service's native [ymin, xmin, ymax, xmax] order on a
// 0–1000 scale; the ingestion boundary normalizes them. Optional fields
// default to empty rather than failing the parse.
type SceneAnalysis struct {
	Location      string           `json:"location"`
	Description   string           `json:"description"`
	Tags          []string         `json:"tags"`
	Activities    []string         `json:"activities"`
	Objects       []DetectedItem   `json:"objects"`
	Persons       []DetectedPerson `json:"persons"`
	Relationships []string         `json:"relationships"`
}

// DetectedItem is one raw object detection.
type DetectedItem struct {
	Label      string    `json:"label"`
	Name       string    `json:"name,omitempty"` // some responses use "name" instead of "label"
	Box        []float64 `json:"box_2d"`
	Confidence *float64  `json:"confidence"`
	Context    string    `json:"context"`
	Attached   bool      `json:"attached"`
}

// ItemName returns the label, falling back to name, then "?".
func (d DetectedItem) ItemName() string {
	if d.Label != "" {
		return d.Label
	}
	if d.Name != "" {
		return d.Name
	}
	return "?"
}

// DetectedPerson is one raw visual person detection.
type DetectedPerson struct {
	Description string    `json:"description"`
	Context     string    `json:"context"`
	Box         []float64 `json:"box_2d"`
}

// QueryClassification is the classifier output consumed by the query
// dispatcher.
type QueryClassification struct {
	Type      string `json:"type"` // object|scene|time|near|person|activity|vqa
	Entity    string `json:"entity"`
	Question  string `json:"question,omitempty"`
	Placed    bool   `json:"placed,omitempty"`
	TimeStart string `json:"time_start,omitempty"`
	TimeEnd   string `json:"time_end,omitempty"`
}
