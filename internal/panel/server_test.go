package panel_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/goleak"

	"crazypanel/internal/config"
	"crazypanel/internal/panel"
	"crazypanel/internal/poster"
	"crazypanel/internal/testsupport"
	"crazypanel/internal/workflow"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type harness struct {
	backend *testsupport.Backend
	coord   *workflow.Coordinator
	server  *panel.Server
	cfg     *config.Config
}

func newHarness(t *testing.T, opts ...testsupport.BackendOption) *harness {
	t.Helper()
	backend := testsupport.NewBackend(t, opts...)
	cfg := testsupport.NewConfig(t, testsupport.WithAPIURL(backend.URL()))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	coord := workflow.New(poster.New(backend.URL(), poster.WithHTTPClient(backend.Client())),
		workflow.WithDefaultAccount(cfg.Accounts.Default))
	t.Cleanup(coord.Wait)
	server, err := panel.New(cfg, coord, nil)
	if err != nil {
		t.Fatalf("panel.New: %v", err)
	}
	return &harness{backend: backend, coord: coord, server: server, cfg: cfg}
}

func (h *harness) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (h *harness) page(t *testing.T) string {
	t.Helper()
	rec := h.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET / returned %d", rec.Code)
	}
	return rec.Body.String()
}

func (h *harness) view(t *testing.T) workflow.View {
	t.Helper()
	rec := h.do(t, httptest.NewRequest(http.MethodGet, "/api/view", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/view returned %d", rec.Code)
	}
	var raw struct {
		Online    bool   `json:"online"`
		Reference string `json:"csv_path"`
		Busy      bool   `json:"busy"`
		Upload    struct {
			Message string `json:"message"`
		} `json:"upload"`
		Run struct {
			Message   string `json:"message"`
			CanSubmit bool   `json:"can_submit"`
		} `json:"run"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	view := workflow.View{Online: raw.Online, Reference: raw.Reference, Busy: raw.Busy}
	view.Upload.Message = raw.Upload.Message
	view.Run.Message = raw.Run.Message
	view.Run.CanSubmit = raw.Run.CanSubmit
	return view
}

func multipartUpload(t *testing.T, name string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if name != "" {
		part, err := writer.CreateFormFile("file", name)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		_, _ = part.Write(content)
	}
	_ = writer.Close()
	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func formPost(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func requireContains(t *testing.T, body, want string) {
	t.Helper()
	if !strings.Contains(body, want) {
		t.Fatalf("expected page to contain %q\n%s", want, body)
	}
}

func TestIndexRendersPanels(t *testing.T) {
	h := newHarness(t)
	h.coord.Mount(context.Background())

	body := h.page(t)
	requireContains(t, body, "API Online")
	requireContains(t, body, "1) Upload CSV")
	requireContains(t, body, "2) Run Now")
	requireContains(t, body, "3) Schedule (one-time)")
	requireContains(t, body, `value="Account_001"`)
	requireContains(t, body, "<em>none</em>")
	requireContains(t, body, "shared-resources/uploads")
	if strings.Contains(body, `http-equiv="refresh"`) {
		t.Fatal("idle page must not auto-refresh")
	}
}

func TestIndexShowsOfflineBadge(t *testing.T) {
	h := newHarness(t)
	h.backend.Fail(testsupport.PathHealth, http.StatusBadGateway)
	h.coord.Mount(context.Background())

	requireContains(t, h.page(t), "API Offline")
}

func TestUploadWithoutFileRejects(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, multipartUpload(t, "", nil))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
		t.Fatalf("expected redirect to /, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
	h.coord.Wait()
	if msg := h.view(t).Upload.Message; msg != "Select a CSV file first." {
		t.Fatalf("unexpected upload message %q", msg)
	}
	if len(h.backend.Calls()) != 0 {
		t.Fatal("rejected upload must not reach the backend")
	}
}

func TestUploadRunFlow(t *testing.T) {
	h := newHarness(t, testsupport.WithUploadPath("uploads/a.csv"))

	if rec := h.do(t, multipartUpload(t, "a.csv", testsupport.CSVBytes(2048))); rec.Code != http.StatusSeeOther {
		t.Fatalf("upload returned %d", rec.Code)
	}
	h.coord.Wait()

	body := h.page(t)
	requireContains(t, body, "Uploaded ✓  (2.0 KB)")
	requireContains(t, body, "<code>uploads/a.csv</code>")

	if rec := h.do(t, formPost("/run", url.Values{"account": {"A"}})); rec.Code != http.StatusSeeOther {
		t.Fatalf("run returned %d", rec.Code)
	}
	h.coord.Wait()

	view := h.view(t)
	if view.Run.Message != "Queued ✓  Check logs in your Account logs folder." {
		t.Fatalf("unexpected run message %q", view.Run.Message)
	}
	calls := h.backend.CallsTo(testsupport.PathRunNow)
	if len(calls) != 1 || calls[0].Account != "A" || calls[0].CSVPath != "uploads/a.csv" {
		t.Fatalf("unexpected run calls %+v", calls)
	}
	requireContains(t, h.page(t), `value="A"`)
}

func TestScheduleFormNormalizesTimestamp(t *testing.T) {
	h := newHarness(t, testsupport.WithJob("42", "2024-06-01T09:00:00"))
	h.do(t, multipartUpload(t, "a.csv", []byte("a,b\n")))
	h.coord.Wait()

	rec := h.do(t, formPost("/schedule", url.Values{"account": {"A"}, "when": {"2024-06-01T09:00"}}))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("schedule returned %d", rec.Code)
	}
	h.coord.Wait()

	requireContains(t, h.page(t), "Scheduled ✓  Job: 42 at 2024-06-01T09:00:00")
	calls := h.backend.CallsTo(testsupport.PathScheduleOnce)
	if len(calls) != 1 || calls[0].When != "2024-06-01T09:00:00" {
		t.Fatalf("unexpected schedule calls %+v", calls)
	}
}

func TestRunWithoutUploadRejects(t *testing.T) {
	h := newHarness(t)
	h.do(t, formPost("/run", url.Values{"account": {"A"}}))
	h.coord.Wait()

	body := h.page(t)
	requireContains(t, body, "No CSV selected/uploaded yet.")
	if len(h.backend.Calls()) != 0 {
		t.Fatal("rejected run must not reach the backend")
	}
}

func TestBusyPageRefreshesAndDisablesSubmit(t *testing.T) {
	h := newHarness(t)
	h.do(t, multipartUpload(t, "a.csv", []byte("a,b\n")))
	h.coord.Wait()

	arrived, release := h.backend.Hold(testsupport.PathRunNow)
	defer release()
	h.do(t, formPost("/run", url.Values{"account": {"A"}}))
	<-arrived

	body := h.page(t)
	requireContains(t, body, `http-equiv="refresh"`)
	requireContains(t, body, "Starting...")

	// A second click while busy is dropped, not queued.
	if rec := h.do(t, formPost("/run", url.Values{"account": {"A"}})); rec.Code != http.StatusSeeOther {
		t.Fatalf("busy submit returned %d", rec.Code)
	}
	release()
	h.coord.Wait()
	if calls := h.backend.CallsTo(testsupport.PathRunNow); len(calls) != 1 {
		t.Fatalf("expected a single run request, got %d", len(calls))
	}
}

func TestRunHoldsInstanceLock(t *testing.T) {
	h := newHarness(t)

	other := flock.New(h.cfg.LockPath())
	locked, err := other.TryLock()
	if err != nil || !locked {
		t.Fatalf("pre-lock: %v %v", locked, err)
	}
	err = h.server.Run(context.Background())
	_ = other.Unlock()
	if !errors.Is(err, panel.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestRunServesUntilCancelled(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.server.Run(ctx) }()

	select {
	case <-h.server.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("panel did not start")
	}

	client := h.backend.Client()
	resp, err := client.Get("http://" + h.server.Addr() + "/")
	if err != nil {
		t.Fatalf("GET panel: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	requireContains(t, string(body), "Crazy Poster")

	deadline := time.Now().Add(5 * time.Second)
	for !h.coord.View().Probed {
		if time.Now().After(deadline) {
			t.Fatal("health probe did not run")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("panel did not stop")
	}
	client.CloseIdleConnections()
	if calls := h.backend.CallsTo(testsupport.PathHealth); len(calls) != 1 {
		t.Fatalf("expected one health probe, got %d", len(calls))
	}
}
