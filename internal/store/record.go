package store

import (
	"strings"
	"time"
)

// Detection is a single detected object with a normalized bounding box.
// Coordinates are in the 0.0–1.0 range with (0,0) the top-left corner of
// the frame, so position math is resolution-independent.
type Detection struct {
	Name       string  `json:"name"`
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
	Confidence float64 `json:"confidence"`
	Context    string  `json:"context,omitempty"`
	Attached   bool    `json:"attached,omitempty"`
}

// Position maps the box center into one of nine grid cells. The frame is
// divided in thirds on each axis (0.33/0.66 boundaries); "center" wins when
// both axes land in the middle band, and a single off-middle axis yields the
// bare axis name ("left", "top", ...).
func (d Detection) Position() string {
	cx := (d.X1 + d.X2) / 2
	cy := (d.Y1 + d.Y2) / 2

	h := "center"
	if cx < 0.33 {
		h = "left"
	} else if cx > 0.66 {
		h = "right"
	}
	v := "middle"
	if cy < 0.33 {
		v = "top"
	} else if cy > 0.66 {
		v = "bottom"
	}

	switch {
	case h == "center" && v == "middle":
		return "center"
	case v == "middle":
		return h
	case h == "center":
		return v
	}
	return v + "-" + h
}

// Person is a visually detected person, optionally linked to a name
// extracted from conversation audio.
type Person struct {
	Name        string    `json:"name,omitempty"`
	Description string    `json:"description"`
	Context     string    `json:"context,omitempty"`
	Box         []float64 `json:"box,omitempty"`
}

// MemoryRecord is one captured scene: what was seen, where, and when.
// Records are immutable after creation; access bookkeeping lives in the
// index, not here.
type MemoryRecord struct {
	ID                  string       `json:"id"`
	Timestamp           string       `json:"timestamp"` // RFC 3339
	Location            string       `json:"location"`
	Description         string       `json:"description"`
	Detections          []Detection  `json:"detections,omitempty"`
	Activities          []string     `json:"activities,omitempty"`
	Tags                []string     `json:"tags,omitempty"`
	Relationships       []string     `json:"relationships,omitempty"`
	AudioTranscript     string       `json:"audio_transcript,omitempty"`
	People              []string     `json:"people,omitempty"`
	ConversationContext string       `json:"conversation_context,omitempty"`
	Persons             []Person     `json:"persons,omitempty"`
	ImagePath           string       `json:"image_path,omitempty"`

	// Raw JPEG bytes, loaded alongside the record when present on disk.
	// Not serialized into the metadata file.
	ImageData []byte `json:"-"`
}

// NewRecordID derives a record id from the capture time at second
// resolution. The format sorts lexically in chronological order, which the
// index and cleanup rely on; two captures in the same second share an id
// and the later one overwrites.
func NewRecordID(t time.Time) string {
	return "mem_" + t.Format("20060102_150405")
}

// FindDetection returns the first detection whose name contains the query,
// case-insensitive, or nil. Partial matching lets "key" find "car keys".
func (m *MemoryRecord) FindDetection(name string) *Detection {
	name = strings.ToLower(name)
	for i := range m.Detections {
		if strings.Contains(strings.ToLower(m.Detections[i].Name), name) {
			return &m.Detections[i]
		}
	}
	return nil
}

// ObjectNames returns the names of all detections in order.
func (m *MemoryRecord) ObjectNames() []string {
	names := make([]string, len(m.Detections))
	for i, d := range m.Detections {
		names[i] = d.Name
	}
	return names
}

// Time parses the record timestamp. Returns the zero time when the
// timestamp is missing or malformed.
func (m *MemoryRecord) Time() time.Time {
	t, err := time.Parse(time.RFC3339, m.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}
