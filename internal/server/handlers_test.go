package server

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hyperjump/gradsys/internal/config"
	"github.com/hyperjump/gradsys/internal/courseindex"
	"github.com/hyperjump/gradsys/internal/extract"
	"github.com/hyperjump/gradsys/internal/grading"
	"github.com/hyperjump/gradsys/internal/models"
	"github.com/hyperjump/gradsys/internal/parser"
	"github.com/hyperjump/gradsys/internal/pipeline"
	"github.com/hyperjump/gradsys/internal/registrar"
	"github.com/hyperjump/gradsys/internal/storage"
	"github.com/hyperjump/gradsys/internal/validate"
)

const goodCSV = "code,name,credits,grade,term\nCS101,Intro to Programming,3,A,2023 Fall\nCS102,Data Structures,3,B,2024 Spring\n"

type mockWatchService struct {
	dirs []string
}

func (m *mockWatchService) Directories() []string {
	return append([]string(nil), m.dirs...)
}

func (m *mockWatchService) AddDirectory(path string, _ bool) error {
	for _, d := range m.dirs {
		if d == path {
			return nil
		}
	}
	m.dirs = append(m.dirs, path)
	return nil
}

func (m *mockWatchService) RemoveDirectory(path string) error {
	for i, d := range m.dirs {
		if d == path {
			m.dirs = append(m.dirs[:i], m.dirs[i+1:]...)
			return nil
		}
	}
	return nil
}

func newTestServer(t *testing.T, watch WatchService) (*Server, *httptest.Server) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "db.sqlite")
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	index, err := courseindex.NewBleveIndex("")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { index.Close() })

	scale := grading.DefaultScale()
	p := pipeline.New(extract.NewExtractor(), parser.New(parser.DefaultSchema(), scale), validate.New(validate.DefaultBounds()), scale)
	policy := grading.Policy{MinGPA: decimal.NewFromInt(2), MinECTS: 6}
	reg := registrar.New(p, store, index, policy, registrar.WithDiskPaths(dbPath, ""))

	cfg := &config.ServerConfig{Host: "localhost", Port: 8080, RequestTimeout: 10 * time.Second, MaxUploadBytes: 4096}
	srv := NewServer(reg, cfg, nil, watch, "", nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func postFile(t *testing.T, url, filename string, content []byte, fields map[string]string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(content)
	mw.Close()
	resp, err := http.Post(url, mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func do(t *testing.T, method, url string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatal(err)
	}
}

func upload(t *testing.T, ts *httptest.Server, student, content string) *models.TranscriptData {
	t.Helper()
	resp := postFile(t, ts.URL+"/api/v1/transcripts", student+".csv", []byte(content), map[string]string{"student_user_id": student})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload status: got %d", resp.StatusCode)
	}
	var tr models.TranscriptData
	decode(t, resp, &tr)
	return &tr
}

func TestHandleHealth(t *testing.T) {
	_, ts := newTestServer(t, nil)
	resp := do(t, http.MethodGet, ts.URL+"/health")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status: got %d", resp.StatusCode)
	}
}

func TestHandleUploadTranscript(t *testing.T) {
	_, ts := newTestServer(t, nil)
	first := upload(t, ts, "s-1", goodCSV)
	if first.ID == "" || first.ParsedGPA.StringFixed(2) != "3.50" || !first.IsValidForProcessing {
		t.Errorf("uploaded transcript: %+v", first)
	}

	resp := postFile(t, ts.URL+"/api/v1/transcripts", "again.csv", []byte(goodCSV), map[string]string{"student_user_id": "s-1"})
	if resp.StatusCode != http.StatusOK {
		t.Errorf("re-upload status: got %d, want 200", resp.StatusCode)
	}
	var again models.TranscriptData
	decode(t, resp, &again)
	if again.ID != first.ID {
		t.Errorf("re-upload id: got %s, want %s", again.ID, first.ID)
	}
}

func TestHandleUploadTranscript_failures(t *testing.T) {
	_, ts := newTestServer(t, nil)
	tests := []struct {
		name     string
		filename string
		content  string
		fields   map[string]string
		status   int
		code     models.ErrorCode
	}{
		{"missing student", "a.csv", goodCSV, nil, http.StatusBadRequest, ""},
		{"unsupported extension", "a.docx", goodCSV, map[string]string{"student_user_id": "s"}, http.StatusUnsupportedMediaType, ""},
		{"unsupported format field", "a.csv", goodCSV, map[string]string{"student_user_id": "s", "format": "odt"}, http.StatusUnsupportedMediaType, ""},
		{"empty file", "a.csv", "", map[string]string{"student_user_id": "s"}, http.StatusUnprocessableEntity, models.CodeEmptyTranscript},
		{"header only", "a.csv", "code,credits,grade\n", map[string]string{"student_user_id": "s"}, http.StatusUnprocessableEntity, models.CodeEmptyTranscript},
		{"too large", "a.csv", strings.Repeat("CS101,3,A\n", 1000), map[string]string{"student_user_id": "s"}, http.StatusRequestEntityTooLarge, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postFile(t, ts.URL+"/api/v1/transcripts", tt.filename, []byte(tt.content), tt.fields)
			if resp.StatusCode != tt.status {
				t.Fatalf("status: got %d, want %d", resp.StatusCode, tt.status)
			}
			var er errorResponse
			decode(t, resp, &er)
			if er.Error == "" {
				t.Error("error message missing")
			}
			if tt.code == "" {
				return
			}
			if er.Transcript == nil || len(er.Transcript.ValidationErrors) == 0 {
				t.Fatalf("partial transcript missing: %+v", er)
			}
			if got := er.Transcript.ValidationErrors[0].Code; got != tt.code {
				t.Errorf("code: got %s, want %s", got, tt.code)
			}
		})
	}

	resp := do(t, http.MethodGet, ts.URL+"/api/v1/transcripts")
	var list listResponse
	decode(t, resp, &list)
	if len(list.Transcripts) != 0 {
		t.Errorf("failed uploads were stored: %d", len(list.Transcripts))
	}
}

func TestHandleUploadTranscript_notMultipart(t *testing.T) {
	_, ts := newTestServer(t, nil)
	resp, err := http.Post(ts.URL+"/api/v1/transcripts", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", resp.StatusCode)
	}
}

func TestHandleParseTranscript(t *testing.T) {
	_, ts := newTestServer(t, nil)
	resp := postFile(t, ts.URL+"/api/v1/transcripts/parse", "t.csv",
		[]byte("code,credits,grade\nCS101,3,A\nCS101,3,B\n"), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", resp.StatusCode)
	}
	var tr models.TranscriptData
	decode(t, resp, &tr)
	if tr.IsValidForProcessing {
		t.Error("duplicate course should make the transcript invalid")
	}
	if len(tr.ValidationErrors) != 1 || tr.ValidationErrors[0].Code != models.CodeDuplicateCourse {
		t.Errorf("validation errors: %+v", tr.ValidationErrors)
	}
	if tr.ID != "" {
		t.Errorf("parse should not store, got id %s", tr.ID)
	}

	stats := do(t, http.MethodGet, ts.URL+"/api/v1/stats")
	var st models.Stats
	decode(t, stats, &st)
	if st.Transcripts != 0 {
		t.Errorf("parse stored a transcript: %+v", st)
	}
}

func TestTranscriptLifecycle(t *testing.T) {
	_, ts := newTestServer(t, nil)
	good := upload(t, ts, "s-1", goodCSV)
	low := upload(t, ts, "s-2", "code,credits,grade\nCS201,3,D\nCS202,3,D\n")

	for _, id := range []string{good.ID, low.ID} {
		resp := do(t, http.MethodPost, ts.URL+"/api/v1/transcripts/"+id+"/process")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("process %s: got %d", id, resp.StatusCode)
		}
	}

	resp := do(t, http.MethodGet, ts.URL+"/api/v1/transcripts/"+good.ID)
	var got models.TranscriptData
	decode(t, resp, &got)
	if !got.Eligible || got.ProcessedAt == nil {
		t.Errorf("good transcript after process: eligible=%v processed_at=%v", got.Eligible, got.ProcessedAt)
	}

	resp = do(t, http.MethodGet, ts.URL+"/api/v1/graduates/eligible")
	var eligible listResponse
	decode(t, resp, &eligible)
	if len(eligible.Transcripts) != 1 || eligible.Transcripts[0].ID != good.ID {
		t.Errorf("eligible: got %+v", eligible.Transcripts)
	}

	resp = do(t, http.MethodGet, ts.URL+"/api/v1/graduates/export?format=csv")
	if ct := resp.Header.Get("Content-Type"); ct != "text/csv" {
		t.Errorf("export content type: %s", ct)
	}
	records, err := csv.NewReader(resp.Body).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 || records[1][0] != good.ID || records[1][2] != "3.50" {
		t.Errorf("export: got %v", records)
	}

	resp = do(t, http.MethodGet, ts.URL+"/api/v1/graduates/export?format=pdf")
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "application/pdf" {
		t.Errorf("pdf export: got %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(body, []byte("%PDF-")) {
		t.Errorf("pdf export body starts with %q", body[:min(len(body), 8)])
	}

	resp = do(t, http.MethodGet, ts.URL+"/api/v1/transcripts/search?course=cs%20102")
	var found listResponse
	decode(t, resp, &found)
	if len(found.Transcripts) != 1 || found.Transcripts[0].ID != good.ID {
		t.Errorf("search: got %+v", found.Transcripts)
	}

	resp = do(t, http.MethodGet, ts.URL+"/api/v1/stats")
	var st models.Stats
	decode(t, resp, &st)
	if st.Transcripts != 2 || st.Valid != 2 || st.Eligible != 1 || st.DiskBytes <= 0 {
		t.Errorf("stats: got %+v", st)
	}

	resp = do(t, http.MethodDelete, ts.URL+"/api/v1/transcripts/"+good.ID)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete: got %d", resp.StatusCode)
	}
	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		resp = do(t, method, ts.URL+"/api/v1/transcripts/"+good.ID)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s after delete: got %d", method, resp.StatusCode)
		}
	}
	resp = do(t, http.MethodPost, ts.URL+"/api/v1/transcripts/missing/process")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("process missing: got %d", resp.StatusCode)
	}
}

func TestHandleListTranscripts_filters(t *testing.T) {
	_, ts := newTestServer(t, nil)
	for i := 0; i < 3; i++ {
		upload(t, ts, fmt.Sprintf("s-%d", i), fmt.Sprintf("code,credits,grade\nCS10%d,3,A\n", i))
	}
	resp := do(t, http.MethodGet, ts.URL+"/api/v1/transcripts?student_user_id=s-1")
	var mine listResponse
	decode(t, resp, &mine)
	if len(mine.Transcripts) != 1 || mine.Transcripts[0].StudentUserID != "s-1" {
		t.Errorf("student filter: got %+v", mine.Transcripts)
	}

	resp = do(t, http.MethodGet, ts.URL+"/api/v1/transcripts?offset=1&limit=1")
	var page listResponse
	decode(t, resp, &page)
	if len(page.Transcripts) != 1 || page.Offset != 1 || page.Limit != 1 {
		t.Errorf("page: got %+v", page)
	}

	for _, q := range []string{"offset=-1", "limit=0", "limit=x", "eligible=maybe"} {
		resp := do(t, http.MethodGet, ts.URL+"/api/v1/transcripts?"+q)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: got %d, want 400", q, resp.StatusCode)
		}
	}
}

func TestHandleSearchCourses_badRequests(t *testing.T) {
	_, ts := newTestServer(t, nil)
	for _, q := range []string{"", "course=CS101&fuzzy=perhaps"} {
		resp := do(t, http.MethodGet, ts.URL+"/api/v1/transcripts/search?"+q)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%q: got %d, want 400", q, resp.StatusCode)
		}
	}
	resp := do(t, http.MethodGet, ts.URL+"/api/v1/graduates/export?format=odt")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("odt export: got %d, want 400", resp.StatusCode)
	}
}

func TestHandleWatchDirectoriesList(t *testing.T) {
	srv, _ := newTestServer(t, &mockWatchService{dirs: []string{"/tmp/inbox"}})
	r := httptest.NewRequest(http.MethodGet, "/api/v1/watch/directories", nil)
	w := httptest.NewRecorder()
	srv.handleWatchDirectoriesList(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("status: got %d", w.Code)
	}
	var out struct {
		Directories []string `json:"directories"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Directories) != 1 || out.Directories[0] != "/tmp/inbox" {
		t.Errorf("directories: got %v", out.Directories)
	}
}

func TestHandleWatchDirectoriesList_NotEnabled(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	r := httptest.NewRequest(http.MethodGet, "/api/v1/watch/directories", nil)
	w := httptest.NewRecorder()
	srv.handleWatchDirectoriesList(w, r)
	if w.Code != http.StatusNotImplemented {
		t.Errorf("status: got %d, want 501", w.Code)
	}
}

func TestHandleWatchDirectoriesAdd(t *testing.T) {
	dir := t.TempDir()
	mock := &mockWatchService{}
	srv, _ := newTestServer(t, mock)

	body, _ := json.Marshal(map[string]string{"path": dir})
	r := httptest.NewRequest(http.MethodPost, "/api/v1/watch/directories", bytes.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.handleWatchDirectoriesAdd(w, r)
	if w.Code != http.StatusCreated {
		t.Errorf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	if len(mock.Directories()) != 1 {
		t.Errorf("expected 1 directory, got %v", mock.Directories())
	}
}

func TestHandleWatchDirectoriesAdd_persistsConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	appCfg := &config.Config{}
	config.ApplyDefaults(appCfg)
	mock := &mockWatchService{}
	srv, _ := newTestServer(t, mock)
	srv.configPath, srv.appConfig = cfgPath, appCfg

	body, _ := json.Marshal(map[string]string{"path": dir})
	r := httptest.NewRequest(http.MethodPost, "/api/v1/watch/directories", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.handleWatchDirectoriesAdd(w, r)
	if w.Code != http.StatusCreated {
		t.Fatalf("status: got %d", w.Code)
	}
	loaded, err := config.Load(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded.Watch.Directories) != 1 || loaded.Watch.Directories[0] != dir {
		t.Errorf("persisted directories: got %v", loaded.Watch.Directories)
	}
}

func TestHandleWatchDirectoriesAdd_InvalidPath(t *testing.T) {
	dir := t.TempDir()
	srv, _ := newTestServer(t, &mockWatchService{})

	body, _ := json.Marshal(map[string]string{"path": dir + "/nonexistent"})
	r := httptest.NewRequest(http.MethodPost, "/api/v1/watch/directories", bytes.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.handleWatchDirectoriesAdd(w, r)
	if w.Code != http.StatusNotFound {
		t.Errorf("status: got %d", w.Code)
	}
}

func TestHandleWatchDirectoriesRemove(t *testing.T) {
	dir := t.TempDir()
	mock := &mockWatchService{dirs: []string{dir}}
	srv, _ := newTestServer(t, mock)

	r := httptest.NewRequest(http.MethodDelete, "/api/v1/watch/directories?path="+dir, nil)
	w := httptest.NewRecorder()
	srv.handleWatchDirectoriesRemove(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("status: got %d", w.Code)
	}
	if len(mock.Directories()) != 0 {
		t.Errorf("expected 0 directories, got %v", mock.Directories())
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unsupported", &pipeline.Error{Err: &extract.Error{Kind: extract.ErrUnsupportedFormat}}, http.StatusUnsupportedMediaType},
		{"unreadable", &pipeline.Error{Err: &extract.Error{Kind: extract.ErrUnreadable}}, http.StatusUnprocessableEntity},
		{"no rows", &pipeline.Error{Err: parser.ErrNoRows}, http.StatusUnprocessableEntity},
		{"cancelled", &pipeline.Error{Err: context.Canceled}, StatusClientClosedRequest},
		{"deadline", &pipeline.Error{Err: context.DeadlineExceeded}, http.StatusRequestTimeout},
		{"not found", fmt.Errorf("get: %w", storage.ErrNotFound), http.StatusNotFound},
		{"missing student", registrar.ErrMissingStudent, http.StatusBadRequest},
		{"too large", &http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
		{"other", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("%s: statusFor = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestHandleBulkUpload(t *testing.T) {
	_, ts := newTestServer(t, nil)
	content := []byte("student,code,credits,grade\ns-1,CS101,3,A\ns-2,CS101,3,B\n")
	resp := postFile(t, ts.URL+"/api/v1/transcripts/bulk", "class.csv", content, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status: got %d", resp.StatusCode)
	}
	var out struct {
		Transcripts []struct {
			Transcript models.TranscriptData `json:"transcript"`
			Created    bool                  `json:"created"`
		} `json:"transcripts"`
	}
	decode(t, resp, &out)
	if len(out.Transcripts) != 2 {
		t.Fatalf("got %d transcripts, want 2", len(out.Transcripts))
	}
	for i, want := range []string{"s-1", "s-2"} {
		got := out.Transcripts[i]
		if got.Transcript.StudentUserID != want || !got.Created || got.Transcript.ID == "" {
			t.Errorf("transcript %d: %+v", i, got)
		}
	}

	resp = postFile(t, ts.URL+"/api/v1/transcripts/bulk", "class.csv", content, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("repeat upload: got %d, want 200", resp.StatusCode)
	}

	resp = postFile(t, ts.URL+"/api/v1/transcripts/bulk", "one.csv", []byte(goodCSV), nil)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("file without student column: got %d, want 422", resp.StatusCode)
	}
}
