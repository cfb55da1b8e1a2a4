package vision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// fakeGemini serves canned generateContent responses.
func fakeGemini(t *testing.T, handler http.HandlerFunc) *Gemini {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	g := NewGemini("test-key", "gemini-2.0-flash")
	g.SetBaseURL(srv.URL)
	return g
}

func candidateResponse(text string) string {
	body, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]string{{"text": text}}}},
		},
	})
	return string(body)
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"Here is the result:\n{\"a\":1}\nHope that helps!", `{"a":1}`},
		{"no json here", "no json here"},
	}
	for _, tc := range tests {
		if got := extractJSON(tc.in); got != tc.want {
			t.Errorf("extractJSON(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		err  string
		want bool
	}{
		{"gemini api status 429: too many requests", true},
		{"rate limit exceeded", true},
		{"quota exhausted", true},
		{"gemini api status 503: overloaded", true},
		{"RESOURCE EXHAUSTED", true},
		{"gemini api status 400: bad request", false},
		{"parse scene analysis: unexpected end of JSON", false},
	}
	for _, tc := range tests {
		if got := retryable(errors.New(tc.err)); got != tc.want {
			t.Errorf("retryable(%q) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestRetryNonRetryableFailsImmediately(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), func() (string, error) {
		calls++
		return "", errors.New("bad request")
	})
	if err == nil {
		t.Fatal("want error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryRecoversFromRateLimit(t *testing.T) {
	calls := 0
	got, err := Retry(context.Background(), func() (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("status 429")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if got != "ok" || calls != 2 {
		t.Errorf("got %q after %d calls", got, calls)
	}
}

func TestRetryHonorsContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := Retry(ctx, func() (string, error) {
		return "", errors.New("status 429")
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestClassifyQuery(t *testing.T) {
	g := fakeGemini(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-goog-api-key"); got != "test-key" {
			t.Errorf("api key header = %q", got)
		}
		if !strings.Contains(r.URL.Path, "gemini-2.0-flash:generateContent") {
			t.Errorf("path = %q", r.URL.Path)
		}
		fmt.Fprint(w, candidateResponse("```json\n{\"type\":\"object\",\"entity\":\"Keys\",\"placed\":true}\n```"))
	})

	c, err := g.ClassifyQuery(context.Background(), "where did I put my keys")
	if err != nil {
		t.Fatalf("ClassifyQuery: %v", err)
	}
	if c.Type != "object" || c.Entity != "keys" || !c.Placed {
		t.Errorf("classification = %+v", c)
	}
}

func TestClassifyQueryDegradesOnGarbage(t *testing.T) {
	g := fakeGemini(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, candidateResponse("I'm sorry, I can't help with that."))
	})

	c, err := g.ClassifyQuery(context.Background(), "where are my keys")
	if err != nil {
		t.Fatalf("ClassifyQuery: %v", err)
	}
	if c.Type != "object" || c.Entity != "keys" {
		t.Errorf("degraded classification = %+v, want object query over last word", c)
	}
}

func TestAnalyzeImage(t *testing.T) {
	g := fakeGemini(t, func(w http.ResponseWriter, r *http.Request) {
		analysis := `{"location":"kitchen","objects":[{"label":"keys","box_2d":[100,200,300,400],"confidence":0.9}]}`
		fmt.Fprint(w, candidateResponse(analysis))
	})

	a, err := g.AnalyzeImage(context.Background(), []byte("jpeg"))
	if err != nil {
		t.Fatalf("AnalyzeImage: %v", err)
	}
	if a.Location != "kitchen" || len(a.Objects) != 1 || a.Objects[0].ItemName() != "keys" {
		t.Errorf("analysis = %+v", a)
	}
}

func TestAnalyzeImageDefaultsLocation(t *testing.T) {
	g := fakeGemini(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, candidateResponse(`{"objects":[]}`))
	})

	a, err := g.AnalyzeImage(context.Background(), []byte("jpeg"))
	if err != nil {
		t.Fatalf("AnalyzeImage: %v", err)
	}
	if a.Location != "unknown" {
		t.Errorf("Location = %q, want unknown", a.Location)
	}
}

func TestAnalyzeImageRetriesRateLimit(t *testing.T) {
	calls := 0
	g := fakeGemini(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, candidateResponse(`{"location":"desk","objects":[]}`))
	})

	a, err := g.AnalyzeImage(context.Background(), []byte("jpeg"))
	if err != nil {
		t.Fatalf("AnalyzeImage: %v", err)
	}
	if calls != 2 || a.Location != "desk" {
		t.Errorf("calls = %d, analysis = %+v", calls, a)
	}
}

func TestExtractPeopleUnparsableDegrades(t *testing.T) {
	g := fakeGemini(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, candidateResponse("nobody was mentioned"))
	})

	people, summary, err := g.ExtractPeople(context.Background(), "some transcript")
	if err != nil {
		t.Fatalf("ExtractPeople: %v", err)
	}
	if people != nil || summary != "" {
		t.Errorf("got %v, %q; want empty degradation", people, summary)
	}
}

func TestItemNameFallback(t *testing.T) {
	if got := (DetectedItem{Label: "keys"}).ItemName(); got != "keys" {
		t.Errorf("ItemName = %q", got)
	}
	if got := (DetectedItem{Name: "keys"}).ItemName(); got != "keys" {
		t.Errorf("name fallback = %q", got)
	}
	if got := (DetectedItem{}).ItemName(); got != "?" {
		t.Errorf("empty fallback = %q", got)
	}
}
