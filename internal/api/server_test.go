package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyspark-go/internal/config"
	"github.com/studyspark-go/internal/middleware"
	"github.com/studyspark-go/internal/models"
	"github.com/studyspark-go/internal/services/answer"
	"github.com/studyspark-go/internal/services/backend"
	"github.com/studyspark-go/internal/services/cache"
	"github.com/studyspark-go/internal/services/documents"
	"github.com/studyspark-go/internal/services/export"
	"github.com/studyspark-go/internal/services/storage"
	"github.com/studyspark-go/pkg/logger"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	log := logger.Discard()
	cfg := &config.Config{}
	cfg.Cache.Enabled = true
	cfg.Cache.TTL = time.Minute
	cfg.Cache.MaxSize = 100
	cfg.Storage.Memory.DefaultExpiration = time.Hour
	cfg.Storage.Memory.CleanupInterval = time.Minute

	store := storage.NewMemoryStorage(cfg, log)
	docs, err := documents.NewService(t.TempDir(), 1<<20, store, log)
	require.NoError(t, err)
	metrics := middleware.NewMetrics()
	local := backend.NewLocal(answer.NewSynthesizer(), cache.NewCache(cfg, log), docs, export.NewService(store, time.Hour, log), log).WithMetrics(metrics)

	srv := NewServer(local, store, middleware.NewRateLimiter(cfg, log), metrics, log, Options{MaxFileSize: 1 << 20, MetricsPath: "/metrics"})
	return srv.Router()
}

func postJSON(t *testing.T, h http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, field, name, body string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, name)
	require.NoError(t, err)
	part.Write([]byte(body))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestChatEndpoint(t *testing.T) {
	h := newTestServer(t)
	rec := postJSON(t, h, "/api/chat", models.ChatRequest{
		Message:  "Explain photosynthesis in simple terms",
		Settings: models.DefaultSettings(),
		PDFIDs:   []string{},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var msg models.Message
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&msg))
	assert.Equal(t, models.RoleAssistant, msg.Role)
	assert.True(t, strings.HasPrefix(msg.ID, "ai-"))
	assert.Len(t, msg.Steps, 4)
	assert.Len(t, msg.Sources, 2)
	assert.False(t, msg.Timestamp.IsZero())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestChatEndpointDefaultsMissingSettings(t *testing.T) {
	h := newTestServer(t)
	rec := postJSON(t, h, "/api/chat", map[string]interface{}{
		"message":  "quadratic equations",
		"settings": map[string]interface{}{"showSources": false},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var msg models.Message
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&msg))
	assert.Len(t, msg.Steps, 5)
	assert.Empty(t, msg.Sources)
}

func TestChatEndpointRejectsBadInput(t *testing.T) {
	h := newTestServer(t)
	assert.Equal(t, http.StatusBadRequest, postJSON(t, h, "/api/chat", map[string]string{"message": "  "}).Code)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadEndpoint(t *testing.T) {
	h := newTestServer(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "file", "notes.pdf", "%PDF-1.4"))
	require.Equal(t, http.StatusOK, rec.Code)
	var doc models.PDFDocument
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&doc))
	assert.True(t, strings.HasPrefix(doc.ID, "pdf-"))
	assert.Equal(t, "notes.pdf", doc.Name)
	assert.Equal(t, int64(8), doc.Size)

	cases := map[string]struct {
		req  *http.Request
		want string
	}{
		"not a pdf":  {uploadRequest(t, "file", "notes.txt", "x"), "File must be a PDF"},
		"wrong part": {uploadRequest(t, "document", "notes.pdf", "x"), "No file part"},
	}
	for name, tc := range cases {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, tc.req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
		var e models.ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&e), name)
		assert.Equal(t, tc.want, e.Error, name)
	}
}

func TestDocumentEndpoints(t *testing.T) {
	h := newTestServer(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "file", "notes.pdf", "%PDF-1.4"))
	require.Equal(t, http.StatusOK, rec.Code)
	var doc models.PDFDocument
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&doc))

	get := httptest.NewRecorder()
	h.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/api/documents/"+doc.ID, nil))
	require.Equal(t, http.StatusOK, get.Code)
	var got models.PDFDocument
	require.NoError(t, json.NewDecoder(get.Body).Decode(&got))
	assert.Equal(t, doc.ID, got.ID)

	del := httptest.NewRecorder()
	h.ServeHTTP(del, httptest.NewRequest(http.MethodDelete, "/api/documents/"+doc.ID, nil))
	assert.Equal(t, http.StatusNoContent, del.Code)

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(method, "/api/documents/"+doc.ID, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, method)
	}
}

func TestExportEndpoints(t *testing.T) {
	h := newTestServer(t)
	now := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)
	rec := postJSON(t, h, "/api/export", models.ExportRequest{Messages: []models.Message{
		{ID: "user-1", Role: models.RoleUser, Content: "hi", Timestamp: now},
		{ID: "ai-1", Role: models.RoleAssistant, Content: "hello", Steps: []string{"wave"}, Timestamp: now},
	}})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.ExportResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "Export successful", resp.Message)
	require.NotEmpty(t, resp.ID)

	get := httptest.NewRecorder()
	h.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/api/exports/"+resp.ID, nil))
	require.Equal(t, http.StatusOK, get.Code)
	assert.Contains(t, get.Body.String(), "Step-by-step Solution:\n1. wave")
	assert.Contains(t, get.Header().Get("Content-Disposition"), "study-spark-conversation-")

	html := httptest.NewRecorder()
	h.ServeHTTP(html, httptest.NewRequest(http.MethodGet, "/api/exports/"+resp.ID+"?format=html", nil))
	require.Equal(t, http.StatusOK, html.Code)
	assert.Contains(t, html.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, html.Body.String(), "<li>wave</li>")

	missing := httptest.NewRecorder()
	h.ServeHTTP(missing, httptest.NewRequest(http.MethodGet, "/api/exports/nope", nil))
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestExportHTMLDoesNotServeScript(t *testing.T) {
	h := newTestServer(t)
	rec := postJSON(t, h, "/api/export", models.ExportRequest{Messages: []models.Message{
		{ID: "user-1", Role: models.RoleUser, Content: "<script>alert(document.cookie)</script>", Timestamp: time.Now()},
	}})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.ExportResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	html := httptest.NewRecorder()
	h.ServeHTTP(html, httptest.NewRequest(http.MethodGet, "/api/exports/"+resp.ID+"?format=html", nil))
	require.Equal(t, http.StatusOK, html.Code)
	assert.NotContains(t, html.Body.String(), "<script")
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestServer(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	postJSON(t, h, "/api/chat", map[string]string{"message": "photosynthesis"})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "studyspark_http_requests_total")
}

type failingStore struct{}

func (failingStore) Ping(context.Context) error { return assert.AnError }

func TestHealthReportsStorageFailure(t *testing.T) {
	log := logger.Discard()
	cfg := &config.Config{}
	srv := NewServer(nil, failingStore{}, middleware.NewRateLimiter(cfg, log), middleware.NewMetrics(), log, Options{})
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
