package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lazypower/recall/internal/graph"
	"github.com/lazypower/recall/internal/index"
	"github.com/lazypower/recall/internal/ingest"
	"github.com/lazypower/recall/internal/query"
	"github.com/lazypower/recall/internal/store"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open store: %v", err)
	}
	x := index.Open(s)
	g := graph.New()
	pipe := ingest.New(s, x, g, nil, ingest.Options{}, nil)
	return New(Options{
		Store:      s,
		Index:      x,
		Graph:      g,
		Pipeline:   pipe,
		Dispatcher: &query.Dispatcher{Store: s, Index: x, Graph: g},
		Version:    "test",
	})
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

const captureBody = `{
	"analysis": {
		"location": "kitchen",
		"objects": [{"label": "keys", "box_2d": [100, 200, 300, 400], "confidence": 0.9}]
	},
	"captured_at": "2026-08-30T10:00:00Z"
}`

func TestHealth(t *testing.T) {
	srv := testServer(t)
	w := do(t, srv, "GET", "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp map[string]any
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["status"] != "ok" || resp["version"] != "test" {
		t.Errorf("health = %v", resp)
	}
}

func TestCapture(t *testing.T) {
	srv := testServer(t)
	w := do(t, srv, "POST", "/api/captures", captureBody)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}
	var resp map[string]any
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["memory_id"] != "mem_20260830_100000" {
		t.Errorf("memory_id = %v", resp["memory_id"])
	}
	if resp["saved"] != true {
		t.Errorf("saved = %v", resp["saved"])
	}
}

func TestCaptureBadJSON(t *testing.T) {
	srv := testServer(t)
	w := do(t, srv, "POST", "/api/captures", "{nope")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestCaptureMissingAnalysis(t *testing.T) {
	srv := testServer(t)
	w := do(t, srv, "POST", "/api/captures", `{"captured_at":"2026-08-30T10:00:00Z"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestCaptureBadTimestamp(t *testing.T) {
	srv := testServer(t)
	w := do(t, srv, "POST", "/api/captures", `{"analysis":{"location":"kitchen"},"captured_at":"yesterday"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestQueryFound(t *testing.T) {
	srv := testServer(t)
	do(t, srv, "POST", "/api/captures", captureBody)

	w := do(t, srv, "GET", "/api/query?type=object&entity=keys", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}
	var resp map[string]any
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["outcome"] != "found" {
		t.Errorf("outcome = %v", resp["outcome"])
	}
	rec, _ := resp["record"].(map[string]any)
	if rec == nil || rec["location"] != "kitchen" {
		t.Errorf("record = %v", resp["record"])
	}
}

func TestQueryNotFound(t *testing.T) {
	srv := testServer(t)
	w := do(t, srv, "GET", "/api/query?type=object&entity=unicorn", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	var resp map[string]any
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["outcome"] != "not_found" {
		t.Errorf("outcome = %v", resp["outcome"])
	}
}

func TestQueryDefaultsToObject(t *testing.T) {
	srv := testServer(t)
	do(t, srv, "POST", "/api/captures", captureBody)

	w := do(t, srv, "GET", "/api/query?entity=keys", "")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d; body: %s", w.Code, w.Body.String())
	}
}

func TestQueryBadWindow(t *testing.T) {
	srv := testServer(t)
	w := do(t, srv, "GET", "/api/query?type=time&from=lastweek", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestQueryAbsoluteWindow(t *testing.T) {
	srv := testServer(t)
	do(t, srv, "POST", "/api/captures", captureBody)

	w := do(t, srv, "GET", "/api/query?type=time&from=2026-08-30T09:00:00Z&to=2026-08-30T11:00:00Z", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}
	var resp map[string]any
	json.Unmarshal(w.Body.Bytes(), &resp)
	records, _ := resp["records"].([]any)
	if len(records) != 1 {
		t.Errorf("records = %v", resp["records"])
	}
}

func TestQueryReloadPicksUpExternalGraph(t *testing.T) {
	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open store: %v", err)
	}
	x := index.Open(s)
	g := graph.New()
	pipe := ingest.New(s, x, g, nil, ingest.Options{}, nil)
	srv := New(Options{
		Store:         s,
		Index:         x,
		Graph:         g,
		Pipeline:      pipe,
		Dispatcher:    &query.Dispatcher{Store: s, Index: x, Graph: g},
		ReloadOnQuery: true,
		Version:       "test",
	})
	do(t, srv, "POST", "/api/captures", captureBody)

	// A separate ingestion process sees the keys move and writes the
	// shared graph snapshot.
	writer := graph.New()
	writer.Update("keys", "kitchen", "center", "2026-08-30T10:00:00Z", "mem_20260830_100000")
	writer.Update("keys", "desk", "center", "2026-08-30T11:00:00Z", "mem_20260830_110000")
	if err := writer.Save(pipe.GraphPath()); err != nil {
		t.Fatalf("Save graph: %v", err)
	}

	w := do(t, srv, "GET", "/api/query?type=object&entity=keys", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Movements []struct {
			ToLocation string `json:"to_location"`
		} `json:"movements"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Movements) != 1 || resp.Movements[0].ToLocation != "desk" {
		t.Errorf("movements = %+v, want the snapshot's kitchen to desk move", resp.Movements)
	}
}

func TestListMemories(t *testing.T) {
	srv := testServer(t)
	do(t, srv, "POST", "/api/captures", captureBody)

	w := do(t, srv, "GET", "/api/memories", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Total    int `json:"total"`
		Memories []struct {
			ID       string `json:"id"`
			Location string `json:"location"`
		} `json:"memories"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 1 || len(resp.Memories) != 1 {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Memories[0].Location != "kitchen" {
		t.Errorf("location = %q", resp.Memories[0].Location)
	}
}

func TestGetMemory(t *testing.T) {
	srv := testServer(t)
	do(t, srv, "POST", "/api/captures", captureBody)

	w := do(t, srv, "GET", "/api/memories/mem_20260830_100000", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	w = do(t, srv, "GET", "/api/memories/mem_19990101_000000", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("missing memory status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestMovements(t *testing.T) {
	srv := testServer(t)
	do(t, srv, "POST", "/api/captures", captureBody)
	moved := strings.Replace(captureBody, "kitchen", "desk", 1)
	moved = strings.Replace(moved, "10:00:00", "11:00:00", 1)
	do(t, srv, "POST", "/api/captures", moved)

	w := do(t, srv, "GET", "/api/movements/keys", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Entity    string `json:"entity"`
		Movements []struct {
			FromLocation string `json:"from_location"`
			ToLocation   string `json:"to_location"`
		} `json:"movements"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Movements) != 1 {
		t.Fatalf("movements = %+v", resp)
	}
	if resp.Movements[0].FromLocation != "kitchen" || resp.Movements[0].ToLocation != "desk" {
		t.Errorf("movement = %+v", resp.Movements[0])
	}
}

func TestMaintenanceCleanup(t *testing.T) {
	srv := testServer(t)
	do(t, srv, "POST", "/api/captures", captureBody)
	later := strings.Replace(captureBody, "10:00:00", "11:00:00", 2)
	do(t, srv, "POST", "/api/captures", later)

	w := do(t, srv, "POST", "/api/maintenance/cleanup", `{"max_records":1}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}
	var resp map[string]any
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["evicted"] != float64(1) {
		t.Errorf("evicted = %v", resp["evicted"])
	}

	w = do(t, srv, "POST", "/api/maintenance/cleanup", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing max_records status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
