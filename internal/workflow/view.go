package workflow

import "crazypanel/internal/stage"

// View is a consistent read of everything a surface renders.
type View struct {
	Online    bool           `json:"online"`
	Probed    bool           `json:"probed"`
	Reference string         `json:"csv_path,omitempty"`
	Busy      bool           `json:"busy"`
	Upload    stage.Snapshot `json:"upload"`
	Run       stage.Snapshot `json:"run"`
	Schedule  stage.Snapshot `json:"schedule"`
}

// View returns the connectivity status, the reference, and the three stage
// snapshots with their submit enablement.
func (c *Coordinator) View() View {
	c.mu.RLock()
	view := View{
		Online:    c.online,
		Probed:    c.probed,
		Reference: c.reference,
	}
	c.mu.RUnlock()

	// Stage snapshots read the reference themselves, so the coordinator lock
	// must be released first.
	view.Upload = c.upload.Snapshot()
	view.Run = c.run.Snapshot()
	view.Schedule = c.schedule.Snapshot()
	view.Busy = view.Upload.Busy || view.Run.Busy || view.Schedule.Busy
	return view
}
