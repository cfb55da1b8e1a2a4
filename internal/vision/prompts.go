package vision

import (
	"fmt"
	"time"
)

// visionPrompt asks for zero-shot scene analysis: objects with bounding
// boxes, activities, and people, as one JSON object. box_2d uses the
// service's native [ymin, xmin, ymax, xmax] order on a 0–1000 scale.
const visionPrompt = `Analyze this image for episodic memory. Detect objects, activities, AND people. Return JSON:
{"location":"scene","description":"scene description","tags":["tag1"],"activities":["activity1"],"objects":[{"label":"obj","box_2d":[ymin,xmin,ymax,xmax],"confidence":0.9,"context":"on table","attached":false}],"persons":[{"description":"person description","box_2d":[ymin,xmin,ymax,xmax],"context":"what they are doing"}],"relationships":["keys on desk"]}

Identify ANY object - everyday items, electronics, food, medication, documents, clothing, tools, containers.
Do NOT include "person" in the objects list - use the separate "persons" array.
box_2d: normalized 0-1000 coordinates [ymin, xmin, ymax, xmax].
confidence: detection confidence 0.0-1.0.
context: where/how the object is positioned (e.g., "on kitchen counter", "in hand").
attached: TRUE only if WORN on the body (glasses on face, watch on wrist, jewelry). FALSE for handheld items.
activities: actions happening in the scene (e.g., "taking medication", "drinking coffee").
Scan the ENTIRE image and report every object, person, and activity you can identify.`

// classifyPrompt asks the service to classify a recall query into a typed
// request. The current time is interpolated so relative time expressions
// can be resolved to absolute windows.
func classifyPrompt(query string, now time.Time) string {
	return fmt.Sprintf(`Analyze this episodic memory query. Current time: %s

Query: %q

Classify the query type and extract relevant information. Return JSON:
{"type":"object|scene|time|person|near|activity|vqa","entity":"extracted name or empty string","question":"the visual question if type=vqa, else null","placed":true or false,"time_start":"RFC3339 datetime or null","time_end":"RFC3339 datetime or null"}

Query types:
- "object": looking for a physical item's location (where are my keys)
- "activity": asking if an action was performed (did I take my medication)
- "scene": asking about a place (what was on the kitchen counter)
- "time": asking about a time period (what did I do this morning)
- "person": asking about people (who did I meet)
- "near": asking about co-located objects (what was near my keys)
- "vqa": asking about visual properties (what color, how many, what brand)

placed=true only when the user asks where they PUT DOWN or LEFT the object
("where did I leave my keys"), not when they just want to find it
("where are my keys").`, now.Format("2006-01-02 15:04"), query)
}

// vqaPrompt frames a visual question about a stored frame.
func vqaPrompt(question string) string {
	return fmt.Sprintf(`Answer this question about the image in one or two short sentences: %s`, question)
}

// extractPeoplePrompt asks for person names and a conversation summary
// from a scene transcript.
func extractPeoplePrompt(transcript string) string {
	return fmt.Sprintf(`Extract the names of people mentioned or speaking in this transcript, and summarize what was discussed. Return JSON:
{"people":["name1"],"context":"one sentence summary"}

Transcript: %q`, transcript)
}
