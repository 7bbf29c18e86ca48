package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hyperjump/gradsys/internal/courseindex"
	"github.com/hyperjump/gradsys/internal/export"
	"github.com/hyperjump/gradsys/internal/models"
	"github.com/hyperjump/gradsys/internal/registrar"
	"github.com/hyperjump/gradsys/internal/storage"
)

// APIError is a non-2xx response from the server. Aborted parses carry the partial
// transcript the server returned with the error.
type APIError struct {
	StatusCode int
	Message    string
	Transcript *models.TranscriptData
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Unwrap lets errors.Is(err, storage.ErrNotFound) match a 404.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return storage.ErrNotFound
	}
	return nil
}

type errorResponse struct {
	Error      string                 `json:"error"`
	Transcript *models.TranscriptData `json:"transcript,omitempty"`
}

type listResponse struct {
	Transcripts []*models.TranscriptData `json:"transcripts"`
}

// HTTPClient calls the server's /api/v1 endpoints.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient returns a client for the server at baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, "", nil)
}

func (c *HTTPClient) ParseTranscript(ctx context.Context, filename string, content []byte) (*models.TranscriptData, error) {
	body, contentType, err := multipartBody(filename, content, nil)
	if err != nil {
		return nil, err
	}
	var t models.TranscriptData
	if err := c.do(ctx, http.MethodPost, "/api/v1/transcripts/parse", body, contentType, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *HTTPClient) UploadTranscript(ctx context.Context, filename, studentUserID string, content []byte) (*models.TranscriptData, bool, error) {
	body, contentType, err := multipartBody(filename, content, map[string]string{"student_user_id": studentUserID})
	if err != nil {
		return nil, false, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/transcripts", body, contentType)
	if err != nil {
		return nil, false, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, false, err
	}
	var t models.TranscriptData
	if err := json.NewDecoder(resp.Body).Decode(&t); err != nil {
		return nil, false, fmt.Errorf("invalid response: %w", err)
	}
	return &t, resp.StatusCode == http.StatusCreated, nil
}

func (c *HTTPClient) UploadBulk(ctx context.Context, filename, studentUserID string, content []byte) ([]registrar.Submitted, error) {
	var fields map[string]string
	if studentUserID != "" {
		fields = map[string]string{"student_user_id": studentUserID}
	}
	body, contentType, err := multipartBody(filename, content, fields)
	if err != nil {
		return nil, err
	}
	var out struct {
		Transcripts []registrar.Submitted `json:"transcripts"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/transcripts/bulk", body, contentType, &out); err != nil {
		return nil, err
	}
	return out.Transcripts, nil
}

func (c *HTTPClient) ListTranscripts(ctx context.Context, opts ListOptions) ([]*models.TranscriptData, error) {
	q := url.Values{}
	if opts.StudentUserID != "" {
		q.Set("student_user_id", opts.StudentUserID)
	}
	if opts.EligibleOnly {
		q.Set("eligible", "true")
	}
	setPage(q, opts.Offset, opts.Limit)
	var out listResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/transcripts?"+q.Encode(), nil, "", &out); err != nil {
		return nil, err
	}
	return out.Transcripts, nil
}

func (c *HTTPClient) GetTranscript(ctx context.Context, id string) (*models.TranscriptData, error) {
	var t models.TranscriptData
	if err := c.do(ctx, http.MethodGet, "/api/v1/transcripts/"+url.PathEscape(id), nil, "", &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *HTTPClient) DeleteTranscript(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/transcripts/"+url.PathEscape(id), nil, "", nil)
}

func (c *HTTPClient) ProcessTranscript(ctx context.Context, id string) (*models.TranscriptData, error) {
	var t models.TranscriptData
	if err := c.do(ctx, http.MethodPost, "/api/v1/transcripts/"+url.PathEscape(id)+"/process", nil, "", &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *HTTPClient) EligibleGraduates(ctx context.Context, offset, limit int) ([]*models.TranscriptData, error) {
	q := url.Values{}
	setPage(q, offset, limit)
	var out listResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/graduates/eligible?"+q.Encode(), nil, "", &out); err != nil {
		return nil, err
	}
	return out.Transcripts, nil
}

func (c *HTTPClient) ExportGraduates(ctx context.Context, format export.Format, w io.Writer) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/graduates/export?format="+url.QueryEscape(string(format)), nil, "")
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("export request failed: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return err
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("failed to read export: %w", err)
	}
	return nil
}

func (c *HTTPClient) SearchCourses(ctx context.Context, q courseindex.Query, limit int) ([]*models.TranscriptData, error) {
	v := url.Values{}
	if q.Course != "" {
		v.Set("course", q.Course)
	}
	if q.Name != "" {
		v.Set("name", q.Name)
	}
	if q.Fuzzy {
		v.Set("fuzzy", "true")
	}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	var out listResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/transcripts/search?"+v.Encode(), nil, "", &out); err != nil {
		return nil, err
	}
	return out.Transcripts, nil
}

func (c *HTTPClient) Stats(ctx context.Context) (models.Stats, error) {
	var st models.Stats
	err := c.do(ctx, http.MethodGet, "/api/v1/stats", nil, "", &st)
	return st, err
}

func (c *HTTPClient) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do sends a request and decodes a JSON response into out (skipped when out is nil).
func (c *HTTPClient) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := c.newRequest(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to server failed (is the server running at %s?): %w", c.baseURL, err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("invalid response: %w", err)
	}
	return nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err == nil {
		if er.Error != "" {
			apiErr.Message = er.Error
		}
		apiErr.Transcript = er.Transcript
	}
	return apiErr
}

func multipartBody(filename string, content []byte, fields map[string]string) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := fw.Write(content); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

func setPage(q url.Values, offset, limit int) {
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
}

// IsAborted reports whether err is a server-side pipeline abort (415 or 422).
func IsAborted(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusUnsupportedMediaType || apiErr.StatusCode == http.StatusUnprocessableEntity
}
