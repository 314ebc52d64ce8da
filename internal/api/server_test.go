package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgallion1/docoutline/internal/config"
	"github.com/dgallion1/docoutline/internal/outline"
	"github.com/dgallion1/docoutline/internal/pipeline"
	"github.com/dgallion1/docoutline/internal/store"
)

const testKey = "test-key"

const guideMD = "# Guide\n\nIntro text.\n\n## Install\n\nSteps.\n"

type testEnv struct {
	srv   *Server
	store *store.Store
	orch  *pipeline.Orchestrator
}

func newTestEnv(t *testing.T, start bool) *testEnv {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	cfg := config.Config{
		APIKey:         testKey,
		WorkerCount:    1,
		MaxQueueSize:   4,
		MaxUploadBytes: 1 << 20,
		JobTTL:         time.Hour,
		ValidateOutput: true,
	}
	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	orch := pipeline.NewOrchestrator(cfg, st, nil, log)
	if start {
		orch.Start(context.Background())
	}
	t.Cleanup(func() {
		orch.Stop()
		st.Close()
	})
	return &testEnv{srv: NewServer(orch, st, log, cfg), store: st, orch: orch}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	req.Header.Set("Authorization", "Bearer "+testKey)
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, path, field string, files map[string]string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, content := range files {
		fw, err := mw.CreateFormFile(field, name)
		if err != nil {
			t.Fatal(err)
		}
		io.WriteString(fw, content)
	}
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestHealth_NoAuth(t *testing.T) {
	env := newTestEnv(t, false)
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	decode(t, rec, &body)
	if body["status"] != "ok" {
		t.Errorf("unexpected body %v", body)
	}
	if body["jobs"] != float64(0) {
		t.Errorf("expected no tracked jobs, got %v", body["jobs"])
	}

	env.orch.Submit(pipeline.NewJob("guide.md", "", []byte(guideMD), false))
	rec = httptest.NewRecorder()
	env.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	decode(t, rec, &body)
	if body["jobs"] != float64(1) || body["queue_depth"] != float64(1) {
		t.Errorf("expected one queued job, got %v", body)
	}
}

func TestAuth(t *testing.T) {
	env := newTestEnv(t, false)

	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/documents", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with bad token, got %d", rec.Code)
	}
	var body map[string]string
	decode(t, rec, &body)
	if body["error"] != "invalid api key" {
		t.Errorf("unexpected error body %v", body)
	}
}

func TestOutline_Sync(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(uploadRequest(t, "/api/outline", "file", map[string]string{"guide.md": guideMD}, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if m := rec.Header().Get("X-Outline-Method"); m != string(outline.MethodBookmarks) {
		t.Errorf("expected bookmarks method header, got %q", m)
	}
	var got outline.Record
	decode(t, rec, &got)
	if got.Title != "Guide" || len(got.Outline) != 2 {
		t.Errorf("unexpected record %+v", got)
	}
	if env.orch.Stats().Snapshot().Count != 1 {
		t.Error("expected the sync extraction to be counted")
	}
}

func TestOutline_Errors(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(uploadRequest(t, "/api/outline", "file", map[string]string{"sheet.xlsx": "PK"}, nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unsupported type, got %d", rec.Code)
	}

	rec = env.do(uploadRequest(t, "/api/outline", "file", map[string]string{"broken.pdf": "not a pdf"}, nil))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for unreadable pdf, got %d", rec.Code)
	}

	rec = env.do(uploadRequest(t, "/api/outline", "other", map[string]string{"guide.md": guideMD}, nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without file field, got %d", rec.Code)
	}
}

func TestIngest_AsyncLifecycle(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(uploadRequest(t, "/api/ingest", "file", map[string]string{"guide.md": guideMD}, map[string]string{"source": "test"}))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var accepted map[string]string
	decode(t, rec, &accepted)
	if accepted["poll_url"] != "/api/ingest/"+accepted["job_id"]+"/status" {
		t.Errorf("unexpected poll url %q", accepted["poll_url"])
	}

	snap := pollJob(t, env, accepted["poll_url"])
	if snap.Status != pipeline.StatusCompleted {
		t.Fatalf("expected completed, got %s (%v)", snap.Status, snap.Errors)
	}
	if snap.Record == nil || snap.Record.Title != "Guide" {
		t.Errorf("expected record in status, got %+v", snap.Record)
	}

	// Same bytes again are skipped as a duplicate.
	rec = env.do(uploadRequest(t, "/api/ingest", "file", map[string]string{"copy.md": guideMD}, nil))
	decode(t, rec, &accepted)
	dup := pollJob(t, env, accepted["poll_url"])
	if dup.Status != pipeline.StatusDupSkipped || dup.DuplicateOf != snap.DocID {
		t.Errorf("expected duplicate of %s, got %+v", snap.DocID, dup)
	}

	// Stored document is visible through the documents API.
	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/documents/"+snap.DocID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var doc store.Document
	decode(t, rec, &doc)
	if doc.Source != "test" || doc.Method != "bookmarks" {
		t.Errorf("unexpected stored document %+v", doc)
	}
}

func pollJob(t *testing.T, env *testEnv, url string) pipeline.JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec := env.do(httptest.NewRequest(http.MethodGet, url, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status poll: %d %s", rec.Code, rec.Body.String())
		}
		var snap pipeline.JobSnapshot
		decode(t, rec, &snap)
		if snap.Status.Done() {
			return snap
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job at %s did not finish", url)
	return pipeline.JobSnapshot{}
}

func TestIngestStatus_NotFound(t *testing.T) {
	env := newTestEnv(t, false)
	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/ingest/nope/status", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestBatchIngest(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(uploadRequest(t, "/api/ingest/batch", "files", map[string]string{
		"guide.md":   guideMD,
		"notes.txt":  "Some notes\n",
		"image.tiff": "II*",
	}, nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Jobs []map[string]string `json:"jobs"`
	}
	decode(t, rec, &body)
	if len(body.Jobs) != 3 {
		t.Fatalf("expected 3 results, got %d", len(body.Jobs))
	}
	queued, rejected := 0, 0
	for _, j := range body.Jobs {
		if j["job_id"] != "" {
			queued++
		}
		if j["error"] != "" {
			rejected++
		}
	}
	if queued != 2 || rejected != 1 {
		t.Errorf("expected 2 queued and 1 rejected, got %d and %d", queued, rejected)
	}
	if env.orch.QueueDepth() != 2 {
		t.Errorf("expected 2 queued jobs, got %d", env.orch.QueueDepth())
	}
}

func TestBatchIngest_NoFiles(t *testing.T) {
	env := newTestEnv(t, false)
	rec := env.do(uploadRequest(t, "/api/ingest/batch", "files", nil, map[string]string{"force": "true"}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestDocuments_ListGetDelete(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	env.store.Put(ctx, &store.Document{
		DocID:       "doc-1",
		Filename:    "report.pdf",
		Method:      "heuristic",
		ContentHash: "h1",
		Record: outline.Record{
			Title:   "Report",
			Outline: []outline.Entry{{Level: "H1", Text: "Summary", Page: 1}},
		},
	})

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/documents?limit=10", nil))
	var list struct {
		Documents []store.Summary `json:"documents"`
	}
	decode(t, rec, &list)
	if len(list.Documents) != 1 || list.Documents[0].Entries != 1 {
		t.Fatalf("unexpected listing %+v", list.Documents)
	}

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/documents?limit=zero", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad limit, got %d", rec.Code)
	}

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/documents/doc-1?format=record", nil))
	var got outline.Record
	decode(t, rec, &got)
	if got.Title != "Report" || got.Outline[0].Text != "Summary" {
		t.Errorf("unexpected record %+v", got)
	}

	rec = env.do(httptest.NewRequest(http.MethodDelete, "/api/documents/doc-1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on delete, got %d", rec.Code)
	}
	rec = env.do(httptest.NewRequest(http.MethodDelete, "/api/documents/doc-1", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 on second delete, got %d", rec.Code)
	}
	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/documents/doc-1", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestExtractStats(t *testing.T) {
	env := newTestEnv(t, false)
	env.do(uploadRequest(t, "/api/outline", "file", map[string]string{"notes.txt": "Plain notes text\n"}, nil))

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/stats/extract", nil))
	var body struct {
		Stats pipeline.StatsSnapshot `json:"stats"`
	}
	decode(t, rec, &body)
	if body.Stats.Count != 1 || body.Stats.Heuristic != 1 {
		t.Errorf("unexpected stats %+v", body.Stats)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"report.pdf":           "report.pdf",
		"../../etc/passwd.txt": "passwd.txt",
		`C:\docs\file.md`:      `C:_docs_file.md`,
		"":                     "unnamed",
	}
	for in, want := range tests {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDocuments_PublishedWithoutPublisher(t *testing.T) {
	env := newTestEnv(t, false)
	env.store.Put(context.Background(), &store.Document{
		DocID:    "doc-1",
		Filename: "report.md",
		Method:   "bookmarks",
		Record:   outline.Record{Title: "Report", Outline: []outline.Entry{}},
	})

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/documents/doc-1/published", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]any
	decode(t, rec, &body)
	if body["publishing"] != false || body["published"] != false {
		t.Errorf("expected publishing disabled, got %v", body)
	}
	if body["key"] != "outlines/doc-1" {
		t.Errorf("unexpected key %v", body["key"])
	}

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/documents/missing/published", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown document, got %d", rec.Code)
	}
}
