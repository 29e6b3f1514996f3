package testsupport

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// Backend paths served by the fake.
const (
	PathHealth       = "/health"
	PathUploadCSV    = "/upload-csv"
	PathRunNow       = "/run-now"
	PathScheduleOnce = "/schedule-once"
)

// Call records one request received by the fake backend.
type Call struct {
	Method    string
	Path      string
	UserAgent string
	FileName  string
	Size      int
	Account   string
	CSVPath   string
	When      string
}

// Backend is an httptest server imitating the Crazy Poster API.
type Backend struct {
	server *httptest.Server

	mu         sync.Mutex
	calls      []Call
	failures   map[string]int
	gates      map[string]*gate
	uploadPath string
	omitPath   bool
	jobID      any
	runAt      string
}

type gate struct {
	arrived chan struct{}
	release chan struct{}
	once    sync.Once
}

// BackendOption customizes the fake backend.
type BackendOption func(*Backend)

// WithUploadPath fixes the reference returned by /upload-csv.
func WithUploadPath(path string) BackendOption {
	return func(b *Backend) { b.uploadPath = path }
}

// WithoutUploadPath makes /upload-csv answer 200 with only the size.
func WithoutUploadPath() BackendOption {
	return func(b *Backend) { b.omitPath = true }
}

// WithJob fixes the job_id and run_at returned by /schedule-once. jobID may
// be a string or a number.
func WithJob(jobID any, runAt string) BackendOption {
	return func(b *Backend) {
		b.jobID = jobID
		b.runAt = runAt
	}
}

// NewBackend starts a fake backend and closes it when the test ends.
func NewBackend(t testing.TB, opts ...BackendOption) *Backend {
	t.Helper()

	b := &Backend{
		failures: make(map[string]int),
		gates:    make(map[string]*gate),
		jobID:    "job-1",
	}
	for _, opt := range opts {
		opt(b)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+PathHealth, b.handleHealth)
	mux.HandleFunc("POST "+PathUploadCSV, b.handleUpload)
	mux.HandleFunc("POST "+PathRunNow, b.handleRunNow)
	mux.HandleFunc("POST "+PathScheduleOnce, b.handleSchedule)
	b.server = httptest.NewServer(mux)
	t.Cleanup(func() {
		b.releaseAll()
		b.server.Close()
	})
	return b
}

// URL returns the backend base URL.
func (b *Backend) URL() string {
	return b.server.URL
}

// Client returns an HTTP client whose idle connections are closed with the
// server, so leak checks stay clean.
func (b *Backend) Client() *http.Client {
	return b.server.Client()
}

// Fail makes every request to path answer with status.
func (b *Backend) Fail(path string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[path] = status
}

// Recover clears a failure configured with Fail.
func (b *Backend) Recover(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.failures, path)
}

// Hold blocks requests to path until release is called. arrived receives one
// value per request that reaches the gate.
func (b *Backend) Hold(path string) (arrived <-chan struct{}, release func()) {
	g := &gate{
		arrived: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
	b.mu.Lock()
	b.gates[path] = g
	b.mu.Unlock()
	return g.arrived, func() { g.once.Do(func() { close(g.release) }) }
}

// Calls returns a copy of every recorded request.
func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Call, len(b.calls))
	copy(out, b.calls)
	return out
}

// CallsTo returns the recorded requests for one path.
func (b *Backend) CallsTo(path string) []Call {
	var out []Call
	for _, call := range b.Calls() {
		if call.Path == path {
			out = append(out, call)
		}
	}
	return out
}

func (b *Backend) releaseAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, g := range b.gates {
		g.once.Do(func() { close(g.release) })
	}
}

// admit records the call and reports the configured failure status, if any.
func (b *Backend) admit(r *http.Request, call Call) int {
	call.Method = r.Method
	call.Path = r.URL.Path
	call.UserAgent = r.Header.Get("User-Agent")

	b.mu.Lock()
	b.calls = append(b.calls, call)
	status := b.failures[call.Path]
	g := b.gates[call.Path]
	b.mu.Unlock()

	if g != nil {
		select {
		case g.arrived <- struct{}{}:
		default:
		}
		select {
		case <-g.release:
		case <-r.Context().Done():
		}
	}
	return status
}

func (b *Backend) handleHealth(w http.ResponseWriter, r *http.Request) {
	if status := b.admit(r, Call{}); status != 0 {
		http.Error(w, "unhealthy", status)
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}

func (b *Backend) handleUpload(w http.ResponseWriter, r *http.Request) {
	call := Call{}
	var content []byte
	if file, header, err := r.FormFile("file"); err == nil {
		content, _ = io.ReadAll(file)
		_ = file.Close()
		call.FileName = header.Filename
		call.Size = len(content)
	}
	if status := b.admit(r, call); status != 0 {
		http.Error(w, "upload rejected", status)
		return
	}
	if call.FileName == "" {
		http.Error(w, "missing file field", http.StatusUnprocessableEntity)
		return
	}
	b.mu.Lock()
	path, omit := b.uploadPath, b.omitPath
	b.mu.Unlock()
	if omit {
		writeJSON(w, map[string]any{"size": len(content)})
		return
	}
	if path == "" {
		path = "uploads/" + call.FileName
	}
	writeJSON(w, map[string]any{"path": path, "size": len(content)})
}

type jobPayload struct {
	Account string `json:"account"`
	CSVPath string `json:"csv_path"`
	When    string `json:"when"`
}

func (b *Backend) handleRunNow(w http.ResponseWriter, r *http.Request) {
	var payload jobPayload
	_ = json.NewDecoder(r.Body).Decode(&payload)
	if status := b.admit(r, Call{Account: payload.Account, CSVPath: payload.CSVPath}); status != 0 {
		http.Error(w, "run rejected", status)
		return
	}
	writeJSON(w, map[string]any{"queued": true})
}

func (b *Backend) handleSchedule(w http.ResponseWriter, r *http.Request) {
	var payload jobPayload
	_ = json.NewDecoder(r.Body).Decode(&payload)
	call := Call{Account: payload.Account, CSVPath: payload.CSVPath, When: payload.When}
	if status := b.admit(r, call); status != 0 {
		http.Error(w, "schedule rejected", status)
		return
	}
	b.mu.Lock()
	jobID, runAt := b.jobID, b.runAt
	b.mu.Unlock()
	if runAt == "" {
		runAt = payload.When
	}
	writeJSON(w, map[string]any{"scheduled": true, "job_id": jobID, "run_at": runAt})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
