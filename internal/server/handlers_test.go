package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hyperjump/contextd/internal/config"
	"github.com/hyperjump/contextd/internal/embedding"
	"github.com/hyperjump/contextd/internal/keyword"
	"github.com/hyperjump/contextd/internal/models"
	"github.com/hyperjump/contextd/internal/search"
	"github.com/hyperjump/contextd/internal/store"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) (*Server, store.ContextStore) {
	t.Helper()
	cfg := config.Default()
	embedder := embedding.NewSimpleEmbedder(cfg.Embedding.Dimension)
	st, err := store.NewMemoryStore(embedder, cfg.Context.MaxChunkSize, cfg.Context.ChunkOverlap)
	if err != nil {
		t.Fatal(err)
	}
	idx, err := keyword.NewBleveIndex()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { idx.Close() })
	engine := search.NewEngine(st, embedder, &cfg.Search).WithKeywordIndex(idx)
	srv := NewServer(st, engine, cfg, zap.NewNop(), WithKeywordIndex(idx))
	return srv, st
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
}

func TestHandleCreateContext(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	rec := doJSON(t, router, http.MethodPost, "/contexts", models.ContextInput{
		Content: "stored via the api",
		Tags:    []string{"api"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var record models.Context
	decode(t, rec, &record)
	if record.ID == "" {
		t.Error("response should carry the new id")
	}
	if record.Content != "stored via the api" {
		t.Errorf("content = %q", record.Content)
	}
}

func TestHandleCreateContext_BadBody(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/contexts", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleGetContext(t *testing.T) {
	srv, st := newTestServer(t)
	router := srv.Router()
	created, _ := st.Create(context.Background(), "fetch me", nil)

	rec := doJSON(t, router, http.MethodGet, "/contexts/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var record models.Context
	decode(t, rec, &record)
	if record.ID != created.ID || record.Content != "fetch me" {
		t.Errorf("record = %+v", record)
	}
}

func TestHandleGetContext_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), http.MethodGet, "/contexts/unknown-id", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleUpdateContext(t *testing.T) {
	srv, st := newTestServer(t)
	router := srv.Router()
	created, _ := st.Create(context.Background(), "before", []string{"keep"})

	content := "after"
	rec := doJSON(t, router, http.MethodPut, "/contexts/"+created.ID, models.ContextUpdate{Content: &content})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var record models.Context
	decode(t, rec, &record)
	if record.Content != "after" {
		t.Errorf("content = %q", record.Content)
	}
	if len(record.Tags) != 1 || record.Tags[0] != "keep" {
		t.Errorf("tags should be unchanged, got %v", record.Tags)
	}
}

func TestHandleUpdateContext_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	content := "x"
	rec := doJSON(t, srv.Router(), http.MethodPut, "/contexts/unknown", models.ContextUpdate{Content: &content})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleDeleteContext(t *testing.T) {
	srv, st := newTestServer(t)
	router := srv.Router()
	created, _ := st.Create(context.Background(), "delete me", nil)

	rec := doJSON(t, router, http.MethodDelete, "/contexts/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodDelete, "/contexts/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestHandleListContexts(t *testing.T) {
	srv, st := newTestServer(t)
	router := srv.Router()
	for i := 0; i < 3; i++ {
		st.Create(context.Background(), fmt.Sprintf("content %d", i), nil)
	}

	rec := doJSON(t, router, http.MethodGet, "/contexts", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var out struct {
		Contexts []*models.Context `json:"contexts"`
		Total    int               `json:"total"`
	}
	decode(t, rec, &out)
	if out.Total != 3 || len(out.Contexts) != 3 {
		t.Errorf("list = %d/%d, want 3/3", len(out.Contexts), out.Total)
	}
}

func TestHandleSearch(t *testing.T) {
	srv, st := newTestServer(t)
	router := srv.Router()
	created, _ := st.Create(context.Background(), "semantic search over stored contexts", nil)

	rec := doJSON(t, router, http.MethodPost, "/search", models.SearchQuery{Query: "semantic search contexts"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp models.SearchResponse
	decode(t, rec, &resp)
	if resp.Total < 1 || resp.Results[0].ContextID != created.ID {
		t.Errorf("search response = %+v", resp)
	}
}

func TestHandleSearch_EmptyQuery(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), http.MethodPost, "/search", models.SearchQuery{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleSearch_InvalidMinScore(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), http.MethodPost, "/search", models.SearchQuery{Query: "q", MinScore: 1.5})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleKeywordSearch(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	// Writes through the API feed the keyword index.
	rec := doJSON(t, router, http.MethodPost, "/contexts", models.ContextInput{Content: "bleve indexes this text"})
	if rec.Code != http.StatusCreated {
		t.Fatal(rec.Body.String())
	}
	var record models.Context
	decode(t, rec, &record)

	rec = doJSON(t, router, http.MethodPost, "/search/keyword", map[string]interface{}{"query": "bleve indexes"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Results []*keyword.Result `json:"results"`
		Total   int               `json:"total"`
	}
	decode(t, rec, &out)
	if out.Total != 1 || out.Results[0].ContextID != record.ID {
		t.Errorf("keyword response = %+v", out)
	}
}

func TestHandleKeywordSearch_EmptyQuery(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), http.MethodPost, "/search/keyword", map[string]interface{}{"query": ""})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleReferences(t *testing.T) {
	srv, st := newTestServer(t)
	router := srv.Router()
	a, _ := st.Create(context.Background(), "first", nil)
	b, _ := st.Create(context.Background(), "second", nil)

	rec := doJSON(t, router, http.MethodPost, "/references", models.ReferenceQuery{IDs: []string{b.ID, "missing", a.ID}})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var out struct {
		Contexts []*models.Context `json:"contexts"`
		Total    int               `json:"total"`
	}
	decode(t, rec, &out)
	if out.Total != 2 {
		t.Fatalf("total = %d, want 2", out.Total)
	}
	if out.Contexts[0].ID != b.ID || out.Contexts[1].ID != a.ID {
		t.Error("references should preserve request order and drop unknown ids")
	}
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	srv, st := newTestServer(t)
	router := srv.Router()
	st.Create(context.Background(), "counted", nil)

	rec := doJSON(t, router, http.MethodGet, "/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var out struct {
		Contexts int64                  `json:"contexts"`
		Chunks   int64                  `json:"chunks"`
		Config   map[string]interface{} `json:"config"`
	}
	decode(t, rec, &out)
	if out.Contexts != 1 || out.Chunks != 1 {
		t.Errorf("counts = %d/%d, want 1/1", out.Contexts, out.Chunks)
	}
	if out.Config["max_chunk_size"].(float64) != 1000 {
		t.Errorf("config echo = %v", out.Config)
	}
}

func TestHandleWatchEndpoints_NotEnabled(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()
	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/watch/directories"},
		{http.MethodPost, "/watch/directories"},
		{http.MethodDelete, "/watch/directories?path=/tmp"},
	} {
		rec := doJSON(t, router, tc.method, tc.path, map[string]string{"path": "/tmp"})
		if rec.Code != http.StatusNotImplemented {
			t.Errorf("%s %s status = %d, want 501", tc.method, tc.path, rec.Code)
		}
	}
}

func TestHandleWatchDirectories(t *testing.T) {
	srv, _ := newTestServer(t)
	fake := &fakeWatchService{}
	WithWatchService(fake)(srv)
	router := srv.Router()
	dir := t.TempDir()

	rec := doJSON(t, router, http.MethodPost, "/watch/directories", map[string]interface{}{"path": dir})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add status = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(fake.added) != 1 || fake.added[0] != dir {
		t.Errorf("added = %v", fake.added)
	}
	if !fake.lastSync {
		t.Error("sync should default to true")
	}

	rec = doJSON(t, router, http.MethodGet, "/watch/directories", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodDelete, "/watch/directories?path="+dir, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("remove status = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(fake.removed) != 1 || fake.removed[0] != dir {
		t.Errorf("removed = %v", fake.removed)
	}
}

func TestHandleWatchDirectoriesAdd_Missing(t *testing.T) {
	srv, _ := newTestServer(t)
	WithWatchService(&fakeWatchService{})(srv)
	rec := doJSON(t, srv.Router(), http.MethodPost, "/watch/directories", map[string]interface{}{"path": "/definitely/not/here"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

type fakeWatchService struct {
	added    []string
	removed  []string
	lastSync bool
}

func (f *fakeWatchService) Directories() []string { return f.added }

func (f *fakeWatchService) AddDirectory(path string, syncExisting bool) error {
	f.added = append(f.added, path)
	f.lastSync = syncExisting
	return nil
}

func (f *fakeWatchService) RemoveDirectory(path string) error {
	f.removed = append(f.removed, path)
	return nil
}
