package main

import (
	"encoding/json"
	"net/http"
	"testing"

	"crazypanel/internal/testsupport"
)

func TestHealthCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"health"}, env.configPath)
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	requireContains(t, out, "[OK] API Online")

	env.backend.Fail(testsupport.PathHealth, http.StatusServiceUnavailable)
	out, _, err = runCLI(t, []string{"health"}, env.configPath)
	requireExitCode(t, err, 1)
	requireContains(t, out, "[ERROR] API Offline")
}

func TestHealthCommandHonoursAPIURLFlag(t *testing.T) {
	env := setupCLITestEnv(t)
	other := testsupport.NewBackend(t)

	if _, _, err := runCLI(t, []string{"--api-url", other.URL() + "/", "health"}, env.configPath); err != nil {
		t.Fatalf("health: %v", err)
	}
	if len(other.Calls()) != 1 || len(env.backend.Calls()) != 0 {
		t.Fatal("--api-url must replace the configured backend")
	}
}

func TestUploadCommand(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithUploadPath("uploads/a.csv"))
	path := env.writeCSV(t, "a.csv", 2048)

	out, _, err := runCLI(t, []string{"upload", path}, env.configPath)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	requireContains(t, out, "[OK] Uploaded ✓  (2.0 KB)")
	requireContains(t, out, "uploads/a.csv")
	requireContains(t, out, "2.0 kB")
}

func TestUploadCommandWarnsOnExtension(t *testing.T) {
	env := setupCLITestEnv(t)
	path := env.writeCSV(t, "posts.txt", 10)

	_, errOut, err := runCLI(t, []string{"upload", path}, env.configPath)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	requireContains(t, errOut, "does not look like a .csv file")
	if len(env.backend.CallsTo(testsupport.PathUploadCSV)) != 1 {
		t.Fatal("extension filter is advisory; upload must still happen")
	}
}

func TestUploadCommandMissingFile(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"upload", "/does/not/exist.csv"}, env.configPath)
	requireExitCode(t, err, 2)
}

func TestRunCommandWithoutReferenceIsRejected(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"run"}, env.configPath)
	requireExitCode(t, err, 2)
	requireContains(t, out, "[WARN] No CSV selected/uploaded yet.")
	if len(env.backend.Calls()) != 0 {
		t.Fatal("rejected run must not reach the backend")
	}
}

func TestRunCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"run", "--csv-path", "uploads/a.csv", "--account", "A"}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, out, "Queued ✓  Check logs in your Account logs folder.")
	calls := env.backend.CallsTo(testsupport.PathRunNow)
	if len(calls) != 1 || calls[0].Account != "A" || calls[0].CSVPath != "uploads/a.csv" {
		t.Fatalf("unexpected run calls %+v", calls)
	}
}

func TestRunCommandUsesDefaultAccount(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"run", "--csv-path", "uploads/a.csv"}, env.configPath); err != nil {
		t.Fatalf("run: %v", err)
	}
	calls := env.backend.CallsTo(testsupport.PathRunNow)
	if len(calls) != 1 || calls[0].Account != "Account_001" {
		t.Fatalf("expected default account, got %+v", calls)
	}
}

func TestRunCommandBackendFailure(t *testing.T) {
	env := setupCLITestEnv(t)
	env.backend.Fail(testsupport.PathRunNow, http.StatusInternalServerError)

	out, errOut, err := runCLI(t, []string{"run", "--csv-path", "uploads/a.csv"}, env.configPath)
	requireExitCode(t, err, 1)
	requireContains(t, out, "[ERROR] Run-now failed")
	requireContains(t, errOut, "status 500")
}

func TestScheduleCommandJSON(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithJob("42", "2024-06-01T09:00:00"))

	out, _, err := runCLI(t, []string{
		"--json", "schedule",
		"--csv-path", "uploads/a.csv",
		"--account", "A",
		"--at", "2024-06-01T09:00",
	}, env.configPath)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	var payload struct {
		Kind    string `json:"kind"`
		Outcome string `json:"outcome"`
		Message string `json:"message"`
		JobID   string `json:"job_id"`
		RunAt   string `json:"run_at"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out)
	}
	if payload.Kind != "schedule" || payload.Outcome != "succeeded" {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if payload.Message != "Scheduled ✓  Job: 42 at 2024-06-01T09:00:00" {
		t.Fatalf("unexpected message %q", payload.Message)
	}
	calls := env.backend.CallsTo(testsupport.PathScheduleOnce)
	if len(calls) != 1 || calls[0].When != "2024-06-01T09:00:00" {
		t.Fatalf("unexpected schedule calls %+v", calls)
	}
}

func TestScheduleCommandNeedsTimestamp(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"schedule", "--csv-path", "uploads/a.csv"}, env.configPath)
	requireExitCode(t, err, 2)
	requireContains(t, out, "Pick a date/time.")
}

func TestSubmitRunsNow(t *testing.T) {
	env := setupCLITestEnv(t)
	path := env.writeCSV(t, "batch.csv", 512)

	out, _, err := runCLI(t, []string{"submit", path, "--account", "A"}, env.configPath)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	requireContains(t, out, "Uploaded ✓  (0.5 KB)")
	requireContains(t, out, "Queued ✓")
	calls := env.backend.CallsTo(testsupport.PathRunNow)
	if len(calls) != 1 || calls[0].CSVPath != "uploads/batch.csv" {
		t.Fatalf("run must use the fresh reference, got %+v", calls)
	}
}

func TestSubmitSchedulesWithAt(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithJob(7, ""))
	path := env.writeCSV(t, "batch.csv", 100)

	out, _, err := runCLI(t, []string{"submit", path, "--at", "2024-06-01T09:00"}, env.configPath)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	requireContains(t, out, "Scheduled ✓  Job: 7 at 2024-06-01T09:00:00")
	if len(env.backend.CallsTo(testsupport.PathRunNow)) != 0 {
		t.Fatal("--at must schedule instead of running now")
	}
}

func TestSubmitStopsAfterFailedUpload(t *testing.T) {
	env := setupCLITestEnv(t)
	env.backend.Fail(testsupport.PathUploadCSV, http.StatusBadGateway)
	path := env.writeCSV(t, "batch.csv", 100)

	out, _, err := runCLI(t, []string{"submit", path}, env.configPath)
	requireExitCode(t, err, 1)
	requireContains(t, out, "[ERROR] Upload failed")
	if len(env.backend.CallsTo(testsupport.PathRunNow)) != 0 {
		t.Fatal("run must not follow a failed upload")
	}
}
