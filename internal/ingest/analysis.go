package ingest

import (
	"github.com/lazypower/recall/internal/store"
	"github.com/lazypower/recall/internal/vision"
)

// The inference service reports boxes as [ymin, xmin, ymax, xmax] on a
// 0–1000 scale. normalizeBox swaps to x-first order, rescales to 0–1, and
// clamps. Out-of-range coordinates from the model are an expected input,
// not an error.
func normalizeBox(box []float64) (x1, y1, x2, y2 float64) {
	if len(box) != 4 {
		return 0, 0, 1, 1
	}
	ymin, xmin, ymax, xmax := box[0]/1000, box[1]/1000, box[2]/1000, box[3]/1000
	return clamp01(xmin), clamp01(ymin), clamp01(xmax), clamp01(ymax)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// toDetection normalizes one raw detected item into the record model.
// A missing confidence defaults to 1.0.
func toDetection(item vision.DetectedItem) store.Detection {
	x1, y1, x2, y2 := normalizeBox(item.Box)
	confidence := 1.0
	if item.Confidence != nil {
		confidence = clamp01(*item.Confidence)
	}
	return store.Detection{
		Name:       item.ItemName(),
		X1:         x1,
		Y1:         y1,
		X2:         x2,
		Y2:         y2,
		Confidence: confidence,
		Context:    item.Context,
		Attached:   item.Attached,
	}
}

// toPersons normalizes raw person detections.
func toPersons(raw []vision.DetectedPerson) []store.Person {
	persons := make([]store.Person, 0, len(raw))
	for _, p := range raw {
		desc := p.Description
		if desc == "" {
			desc = "person"
		}
		persons = append(persons, store.Person{
			Description: desc,
			Context:     p.Context,
			Box:         p.Box,
		})
	}
	return persons
}
