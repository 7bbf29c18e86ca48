package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/gradsys/internal/config"
	"github.com/hyperjump/gradsys/internal/courseindex"
	"github.com/hyperjump/gradsys/internal/export"
	"github.com/hyperjump/gradsys/internal/extract"
	"github.com/hyperjump/gradsys/internal/models"
	"github.com/hyperjump/gradsys/internal/parser"
	"github.com/hyperjump/gradsys/internal/pipeline"
	"github.com/hyperjump/gradsys/internal/registrar"
	"github.com/hyperjump/gradsys/internal/storage"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 500
	// StatusClientClosedRequest is returned when the caller went away mid-request.
	StatusClientClosedRequest = 499
)

type listResponse struct {
	Transcripts []*models.TranscriptData `json:"transcripts"`
	Offset      int                      `json:"offset"`
	Limit       int                      `json:"limit"`
}

type errorResponse struct {
	Error      string                 `json:"error"`
	Transcript *models.TranscriptData `json:"transcript,omitempty"`
}

var (
	errMissingFile = errors.New(`multipart field "file" is required`)
	errBadUpload   = errors.New("invalid multipart upload")
)

// readUpload reads the multipart "file" field and resolves its format from the "format"
// field or the file name.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (registrar.Upload, error) {
	if s.config.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return registrar.Upload{}, err
		}
		return registrar.Upload{}, fmt.Errorf("%w: %v", errBadUpload, err)
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		return registrar.Upload{}, errMissingFile
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		return registrar.Upload{}, err
	}

	var format extract.Format
	if f := r.FormValue("format"); f != "" {
		format, err = extract.ParseFormat(f)
	} else {
		format, err = extract.FormatFromFilename(hdr.Filename)
	}
	if err != nil {
		return registrar.Upload{}, err
	}
	return registrar.Upload{
		Content:       content,
		Format:        format,
		StudentUserID: strings.TrimSpace(r.FormValue("student_user_id")),
	}, nil
}

func (s *Server) handleParseTranscript(w http.ResponseWriter, r *http.Request) {
	u, err := s.readUpload(w, r)
	if err != nil {
		s.respondFailure(w, err, nil)
		return
	}
	s.logger.Debug("parse transcript request", zap.String("format", string(u.Format)), zap.Int("bytes", len(u.Content)))
	t, err := s.registrar.Parse(r.Context(), u)
	if err != nil {
		s.respondFailure(w, err, t)
		return
	}
	s.respondJSON(w, http.StatusOK, t)
}

func (s *Server) handleUploadTranscript(w http.ResponseWriter, r *http.Request) {
	u, err := s.readUpload(w, r)
	if err != nil {
		s.respondFailure(w, err, nil)
		return
	}
	s.logger.Debug("upload transcript request",
		zap.String("student_user_id", u.StudentUserID),
		zap.String("format", string(u.Format)),
		zap.Int("bytes", len(u.Content)))
	t, created, err := s.registrar.Submit(r.Context(), u)
	if err != nil {
		s.respondFailure(w, err, t)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	s.respondJSON(w, status, t)
}

type bulkResponse struct {
	Transcripts []registrar.Submitted `json:"transcripts"`
}

func (s *Server) handleBulkUpload(w http.ResponseWriter, r *http.Request) {
	u, err := s.readUpload(w, r)
	if err != nil {
		s.respondFailure(w, err, nil)
		return
	}
	s.logger.Debug("bulk upload request", zap.String("format", string(u.Format)), zap.Int("bytes", len(u.Content)))
	out, err := s.registrar.SubmitBulk(r.Context(), u)
	if err != nil {
		s.respondFailure(w, err, nil)
		return
	}
	status := http.StatusOK
	for _, sub := range out {
		if sub.Created {
			status = http.StatusCreated
		}
	}
	s.respondJSON(w, status, bulkResponse{Transcripts: out})
}

func (s *Server) handleListTranscripts(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := pageParams(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	q := r.URL.Query()
	filter := storage.ListFilter{StudentUserID: q.Get("student_user_id")}
	if v := q.Get("eligible"); v != "" {
		filter.EligibleOnly, err = strconv.ParseBool(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "eligible must be true or false")
			return
		}
	}
	list, err := s.registrar.List(r.Context(), filter, offset, limit)
	if err != nil {
		s.respondFailure(w, err, nil)
		return
	}
	s.respondJSON(w, http.StatusOK, listResponse{Transcripts: nonNil(list), Offset: offset, Limit: limit})
}

func (s *Server) handleGetTranscript(w http.ResponseWriter, r *http.Request) {
	t, err := s.registrar.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondFailure(w, err, nil)
		return
	}
	s.respondJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTranscript(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete transcript request", zap.String("transcript_id", id))
	if err := s.registrar.Delete(r.Context(), id); err != nil {
		s.respondFailure(w, err, nil)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleProcessTranscript(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("process transcript request", zap.String("transcript_id", id))
	t, err := s.registrar.Process(r.Context(), id)
	if err != nil {
		s.respondFailure(w, err, nil)
		return
	}
	s.respondJSON(w, http.StatusOK, t)
}

func (s *Server) handleSearchCourses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := courseindex.Query{Course: q.Get("course"), Name: q.Get("name")}
	if query.Empty() {
		s.respondError(w, http.StatusBadRequest, "course or name is required")
		return
	}
	if v := q.Get("fuzzy"); v != "" {
		fuzzy, err := strconv.ParseBool(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "fuzzy must be true or false")
			return
		}
		query.Fuzzy = fuzzy
	}
	_, limit, err := pageParams(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("course search request", zap.String("course", query.Course), zap.String("name", query.Name))
	list, err := s.registrar.SearchCourses(r.Context(), query, limit)
	if err != nil {
		s.respondFailure(w, err, nil)
		return
	}
	s.respondJSON(w, http.StatusOK, listResponse{Transcripts: nonNil(list), Limit: limit})
}

func (s *Server) handleEligibleGraduates(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := pageParams(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	list, err := s.registrar.Eligible(r.Context(), offset, limit)
	if err != nil {
		s.respondFailure(w, err, nil)
		return
	}
	s.respondJSON(w, http.StatusOK, listResponse{Transcripts: nonNil(list), Offset: offset, Limit: limit})
}

func (s *Server) handleExportGraduates(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	list, err := s.registrar.Eligible(r.Context(), 0, 0)
	if err != nil {
		s.respondFailure(w, err, nil)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.Filename(time.Now())))
	if err := export.Write(w, format, list); err != nil {
		s.logger.Error("export failed", zap.Error(err))
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.registrar.Stats(r.Context())
	if err != nil {
		s.logger.Error("stats failed", zap.Error(err))
		s.respondFailure(w, err, nil)
		return
	}
	s.respondJSON(w, http.StatusOK, st)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWatchDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": s.watch.Directories()})
}

type watchAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleWatchDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	var req watchAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := true
	if req.Sync != nil {
		syncExisting = *req.Sync
	}
	s.logger.Debug("watch add directory request", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if err := s.watch.AddDirectory(abs, syncExisting); err != nil {
		s.logger.Error("watch add directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleWatchDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	s.logger.Debug("watch remove directory request", zap.String("path", abs))
	if err := s.watch.RemoveDirectory(abs); err != nil {
		s.logger.Error("watch remove directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

func (s *Server) persistWatchDirectories() {
	if s.configPath == "" || s.appConfig == nil {
		return
	}
	s.appConfigMu.Lock()
	defer s.appConfigMu.Unlock()
	s.appConfig.Watch.Directories = s.watch.Directories()
	if err := config.Save(s.configPath, s.appConfig); err != nil {
		s.logger.Warn("failed to persist watch config", zap.Error(err))
	}
}

// statusFor maps a registrar or pipeline error to an HTTP status.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	var perr *pipeline.Error
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest
	case errors.Is(err, extract.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, extract.ErrUnreadable), errors.Is(err, extract.ErrEmpty),
		errors.Is(err, parser.ErrNoRows), errors.As(err, &perr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, registrar.ErrMissingStudent), errors.Is(err, errMissingFile),
		errors.Is(err, errBadUpload):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondFailure writes err with its mapped status. A partial transcript from an aborted
// run is included so callers can show the transcript-level finding.
func (s *Server) respondFailure(w http.ResponseWriter, err error, partial *models.TranscriptData) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	s.respondJSON(w, status, errorResponse{Error: err.Error(), Transcript: partial})
}

func pageParams(r *http.Request) (offset, limit int, err error) {
	q := r.URL.Query()
	limit = defaultPageLimit
	if v := q.Get("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("offset must be a non-negative integer")
		}
	}
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 1 {
			return 0, 0, fmt.Errorf("limit must be a positive integer")
		}
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return offset, limit, nil
}

func nonNil(list []*models.TranscriptData) []*models.TranscriptData {
	if list == nil {
		return []*models.TranscriptData{}
	}
	return list
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
