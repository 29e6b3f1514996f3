package poster

import (
	"bytes"
	"encoding/json"
)

// HealthStatus is the decoded health response. The backend may return any
// 2xx JSON body; Raw keeps it for display.
type HealthStatus struct {
	Online bool
	Raw    any
}

// Upload is the backend's answer to a successful CSV upload.
type Upload struct {
	Reference string `json:"path"`
	SizeBytes int64  `json:"size"`
}

// RunReceipt acknowledges an immediate run request.
type RunReceipt struct {
	Queued bool `json:"queued"`
}

// ScheduleReceipt acknowledges a one-time scheduled run. JobID and RunAt are
// echoed verbatim from the backend.
type ScheduleReceipt struct {
	Scheduled bool     `json:"scheduled"`
	JobID     Verbatim `json:"job_id"`
	RunAt     Verbatim `json:"run_at"`
}

// Verbatim holds a scalar JSON value as the text the backend sent, so numeric
// job IDs render exactly as received.
type Verbatim string

func (v *Verbatim) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*v = ""
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*v = Verbatim(s)
		return nil
	}
	*v = Verbatim(trimmed)
	return nil
}

func (v Verbatim) String() string { return string(v) }

type runRequest struct {
	Account string `json:"account"`
	CSVPath string `json:"csv_path"`
}

type scheduleRequest struct {
	Account string `json:"account"`
	CSVPath string `json:"csv_path"`
	When    string `json:"when"`
}
