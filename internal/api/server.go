// Package api serves the chat, upload and export collaborators over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/studyspark-go/internal/middleware"
	"github.com/studyspark-go/internal/models"
	"github.com/studyspark-go/internal/services/backend"
	"github.com/studyspark-go/internal/services/documents"
	"github.com/studyspark-go/internal/services/export"
	"github.com/studyspark-go/internal/services/storage"
)

// Pinger reports storage health
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the API's dependencies
type Server struct {
	local       *backend.Local
	store       Pinger
	limiter     middleware.RateLimiter
	metrics     *middleware.Metrics
	logger      *logrus.Logger
	maxFileSize int64
	metricsPath string
	proxies     middleware.TrustedProxies
}

// Options tune the router
type Options struct {
	MaxFileSize int64
	// MetricsPath mounts the prometheus handler when non-empty
	MetricsPath string
	// TrustedProxies may set X-Forwarded-For for rate limiting
	TrustedProxies middleware.TrustedProxies
}

// NewServer creates the API server
func NewServer(local *backend.Local, store Pinger, limiter middleware.RateLimiter, metrics *middleware.Metrics, logger *logrus.Logger, opts Options) *Server {
	return &Server{
		local:       local,
		store:       store,
		limiter:     limiter,
		metrics:     metrics,
		logger:      logger,
		maxFileSize: opts.MaxFileSize,
		metricsPath: opts.MetricsPath,
		proxies:     opts.TrustedProxies,
	}
}

// Router builds the HTTP routes
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.metrics.Instrument, s.cors)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if s.metricsPath != "" {
		r.Handle(s.metricsPath, middleware.Handler()).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.Limit(s.limiter, s.metrics, s.proxies))
	api.HandleFunc("/chat", s.handleChat).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/upload", s.handleUpload).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/export", s.handleExport).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/exports/{id}", s.handleGetExport).Methods(http.MethodGet)
	api.HandleFunc("/documents/{id}", s.handleGetDocument).Methods(http.MethodGet)
	api.HandleFunc("/documents/{id}", s.handleDeleteDocument).Methods(http.MethodDelete, http.MethodOptions)

	return r
}

// cors allows browser clients on any origin
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.WithError(err).Warn("Health check failed")
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	// absent settings fields keep their defaults
	req := models.ChatRequest{Settings: models.DefaultSettings()}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "Message is required")
		return
	}
	if err := middleware.ValidateQuestion(req.Message); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !req.Settings.Language.Valid() {
		req.Settings.Language = models.English
	}

	msg, err := s.local.Chat(r.Context(), req)
	if err != nil {
		s.logger.WithError(err).Error("Failed to answer question")
		writeError(w, http.StatusInternalServerError, "Failed to generate response")
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.maxFileSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxFileSize+1<<20)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.metrics.RecordUpload("rejected")
		writeError(w, http.StatusBadRequest, "No file part")
		return
	}
	defer file.Close()

	doc, err := s.local.Upload(r.Context(), header.Filename, file)
	switch {
	case err == nil:
		s.metrics.RecordUpload("success")
		writeJSON(w, http.StatusOK, doc)
	case errors.Is(err, documents.ErrNoFile):
		s.metrics.RecordUpload("rejected")
		writeError(w, http.StatusBadRequest, "No selected file")
	case errors.Is(err, documents.ErrNotPDF):
		s.metrics.RecordUpload("rejected")
		writeError(w, http.StatusBadRequest, "File must be a PDF")
	case errors.Is(err, documents.ErrTooLarge):
		s.metrics.RecordUpload("rejected")
		writeError(w, http.StatusRequestEntityTooLarge, "File is too large")
	default:
		s.metrics.RecordUpload("error")
		s.logger.WithError(err).WithField("file", header.Filename).Error("Failed to store upload")
		writeError(w, http.StatusInternalServerError, "Failed to store file")
	}
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req models.ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := s.local.Export(r.Context(), req.Messages)
	if err != nil {
		s.metrics.RecordExport("error")
		s.logger.WithError(err).Error("Failed to export conversation")
		writeJSON(w, http.StatusInternalServerError, models.ExportResponse{Success: false, Message: "Export failed"})
		return
	}
	s.metrics.RecordExport("success")
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetExport(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	exp, err := s.local.Exports().Get(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Export not found")
		return
	}
	if err != nil {
		s.logger.WithError(err).WithField("id", id).Error("Failed to load export")
		writeError(w, http.StatusInternalServerError, "Failed to load export")
		return
	}

	if r.URL.Query().Get("format") == "html" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(exp.HTML))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(exp.CreatedAt)))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(exp.Text))
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	doc, err := s.local.Document(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Document not found")
		return
	}
	if err != nil {
		s.logger.WithError(err).WithField("id", id).Error("Failed to load document")
		writeError(w, http.StatusInternalServerError, "Failed to load document")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	err := s.local.RemoveDocument(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Document not found")
		return
	}
	if err != nil {
		s.logger.WithError(err).WithField("id", id).Error("Failed to remove document")
		writeError(w, http.StatusInternalServerError, "Failed to remove document")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.ErrorResponse{Error: msg})
}
