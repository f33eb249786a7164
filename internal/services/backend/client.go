// Package backend provides the chat, upload and export collaborators a
// session talks to: an HTTP client for a remote API and an in-process
// implementation for standalone use.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/studyspark-go/internal/config"
	"github.com/studyspark-go/internal/models"
)

// ErrTransport marks a failed call to a collaborator: network errors,
// non-2xx statuses and undecodable bodies
var ErrTransport = errors.New("backend request failed")

// StatusError carries a non-2xx reply
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("status %d", e.StatusCode)
}

// Client calls a remote collaborator API. Each call is a single attempt.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a client for cfg.BaseURL
func NewClient(cfg config.BackendConfig, logger *logrus.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// wireMessage tolerates collaborators that send an empty or missing timestamp
type wireMessage struct {
	ID            string          `json:"id"`
	Type          models.Role     `json:"type"`
	Content       string          `json:"content"`
	Steps         []string        `json:"steps"`
	Sources       []models.Source `json:"sources"`
	Timestamp     string          `json:"timestamp"`
	RelatedPDFIDs []string        `json:"relatedPdfIds"`
}

// wireDocument accepts lastModified as RFC 3339 or as epoch seconds
type wireDocument struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Size         int64           `json:"size"`
	LastModified json.RawMessage `json:"lastModified"`
}

// Chat posts the question and returns the assistant message
func (c *Client) Chat(ctx context.Context, req models.ChatRequest) (*models.Message, error) {
	if req.PDFIDs == nil {
		req.PDFIDs = []string{}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var wire wireMessage
	if err := c.do(ctx, "/api/chat", "application/json", bytes.NewReader(body), &wire); err != nil {
		return nil, err
	}

	msg := &models.Message{
		ID:            wire.ID,
		Role:          models.RoleAssistant,
		Content:       wire.Content,
		Steps:         wire.Steps,
		Sources:       wire.Sources,
		RelatedPDFIDs: wire.RelatedPDFIDs,
	}
	msg.Timestamp = parseTime(wire.Timestamp)
	return msg, nil
}

// Upload sends one file as multipart field "file"
func (c *Client) Upload(ctx context.Context, name string, r io.Reader) (*models.PDFDocument, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", name)
		if err == nil {
			_, err = io.Copy(part, r)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	var wire wireDocument
	if err := c.do(ctx, "/api/upload", mw.FormDataContentType(), pr, &wire); err != nil {
		pr.CloseWithError(err)
		return nil, err
	}
	if wire.ID == "" {
		return nil, fmt.Errorf("%w: upload response has no id", ErrTransport)
	}

	doc := &models.PDFDocument{ID: wire.ID, Name: wire.Name, Size: wire.Size}
	doc.LastModified = parseTimestamp(wire.LastModified)
	return doc, nil
}

// Export posts the conversation
func (c *Client) Export(ctx context.Context, messages []models.Message) (*models.ExportResponse, error) {
	body, err := json.Marshal(models.ExportRequest{Messages: messages})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var resp models.ExportResponse
	if err := c.do(ctx, "/api/export", "application/json", bytes.NewReader(body), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, path, contentType string, body io.Reader, out interface{}) error {
	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).WithField("url", url).Warn("Backend request failed")
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	c.logger.WithFields(logrus.Fields{
		"url":      url,
		"status":   resp.StatusCode,
		"duration": time.Since(started),
	}).Debug("Backend response")

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e models.ErrorResponse
		_ = json.Unmarshal(data, &e)
		return fmt.Errorf("%w: %w", ErrTransport, &StatusError{StatusCode: resp.StatusCode, Message: e.Error})
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", ErrTransport, err)
	}
	return nil
}

func parseTimestamp(raw json.RawMessage) time.Time {
	if len(raw) == 0 {
		return time.Time{}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return parseTime(s)
	}
	var secs float64
	if err := json.Unmarshal(raw, &secs); err == nil {
		whole, frac := math.Modf(secs)
		return time.Unix(int64(whole), int64(frac*1e9))
	}
	return time.Time{}
}

// timeLayouts covers RFC 3339 and zone-less ISO 8601 with microseconds
var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999"}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return ts
		}
	}
	return time.Time{}
}
