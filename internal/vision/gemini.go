package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Gemini calls the Gemini generateContent API for scene analysis, query
// classification, and visual question answering.
type Gemini struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewGemini creates a Gemini API client.
func NewGemini(apiKey, model string) *Gemini {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &Gemini{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// SetBaseURL overrides the API endpoint, used by tests.
func (g *Gemini) SetBaseURL(url string) {
	g.baseURL = url
}

type geminiPart struct {
	Text       string `json:"text,omitempty"`
	InlineData *struct {
		MimeType string `json:"mime_type"`
		Data     string `json:"data"`
	} `json:"inline_data,omitempty"`
}

// generate sends parts to the generateContent endpoint and returns the
// first candidate's text.
func (g *Gemini) generate(ctx context.Context, parts []geminiPart) (string, error) {
	reqBody := map[string]any{
		"contents": []map[string]any{
			{"role": "user", "parts": parts},
		},
		"generationConfig": map[string]any{
			"temperature": 0.0,
		},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini api status %d: %s", resp.StatusCode, respBody)
	}

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	var text strings.Builder
	if len(result.Candidates) > 0 {
		for _, p := range result.Candidates[0].Content.Parts {
			text.WriteString(p.Text)
		}
	}
	return text.String(), nil
}

func imagePart(image []byte) geminiPart {
	p := geminiPart{}
	p.InlineData = &struct {
		MimeType string `json:"mime_type"`
		Data     string `json:"data"`
	}{
		MimeType: "image/jpeg",
		Data:     base64.StdEncoding.EncodeToString(image),
	}
	return p
}

// extractJSON strips markdown code fences and isolates the outermost JSON
// object from model text. Model responses wrap JSON unpredictably.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		lines := strings.Split(text, "\n")
		if len(lines) > 2 {
			text = strings.Join(lines[1:len(lines)-1], "\n")
		}
	}
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return text
	}
	return text[start : end+1]
}

// AnalyzeImage runs scene analysis on a JPEG frame. The response is
// parsed permissively: missing fields default to empty collections.
func (g *Gemini) AnalyzeImage(ctx context.Context, image []byte) (*SceneAnalysis, error) {
	text, err := Retry(ctx, func() (string, error) {
		return g.generate(ctx, []geminiPart{{Text: visionPrompt}, imagePart(image)})
	})
	if err != nil {
		return nil, fmt.Errorf("analyze image: %w", err)
	}

	var analysis SceneAnalysis
	if err := json.Unmarshal([]byte(extractJSON(text)), &analysis); err != nil {
		return nil, fmt.Errorf("parse scene analysis: %w", err)
	}
	if analysis.Location == "" {
		analysis.Location = "unknown"
	}
	return &analysis, nil
}

// ClassifyQuery classifies a natural-language recall query. A response
// that can't be parsed degrades to a plain object query over the last
// word, so a flaky classifier never breaks search.
func (g *Gemini) ClassifyQuery(ctx context.Context, query string) (*QueryClassification, error) {
	text, err := Retry(ctx, func() (string, error) {
		return g.generate(ctx, []geminiPart{{Text: classifyPrompt(query, time.Now())}})
	})
	if err != nil {
		return nil, fmt.Errorf("classify query: %w", err)
	}

	var c QueryClassification
	if err := json.Unmarshal([]byte(extractJSON(text)), &c); err != nil {
		fields := strings.Fields(query)
		entity := ""
		if len(fields) > 0 {
			entity = strings.ToLower(fields[len(fields)-1])
		}
		return &QueryClassification{Type: "object", Entity: entity}, nil
	}
	if c.Type == "" {
		c.Type = "object"
	}
	c.Entity = strings.ToLower(strings.TrimSpace(c.Entity))
	return &c, nil
}

// AnswerVisualQuestion answers a question about a stored image.
func (g *Gemini) AnswerVisualQuestion(ctx context.Context, image []byte, question string) (string, error) {
	text, err := Retry(ctx, func() (string, error) {
		return g.generate(ctx, []geminiPart{{Text: vqaPrompt(question)}, imagePart(image)})
	})
	if err != nil {
		return "", fmt.Errorf("visual question: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// ExtractPeople pulls person names and a conversation summary from a
// transcript.
func (g *Gemini) ExtractPeople(ctx context.Context, transcript string) ([]string, string, error) {
	text, err := Retry(ctx, func() (string, error) {
		return g.generate(ctx, []geminiPart{{Text: extractPeoplePrompt(transcript)}})
	})
	if err != nil {
		return nil, "", fmt.Errorf("extract people: %w", err)
	}

	var result struct {
		People  []string `json:"people"`
		Context string   `json:"context"`
	}
	if err := json.Unmarshal([]byte(extractJSON(text)), &result); err != nil {
		return nil, "", nil
	}
	return result.People, result.Context, nil
}
