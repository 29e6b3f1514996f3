package stage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"crazypanel/internal/logging"
	"crazypanel/internal/services"
)

// ErrBusy is returned by Begin while a submission is already in flight.
var ErrBusy = errors.New("stage: submission already in flight")

// Kind names a stage.
type Kind string

const (
	KindUpload   Kind = "upload"
	KindRun      Kind = "run"
	KindSchedule Kind = "schedule"
)

// State is the lifecycle position of a stage.
type State int

const (
	Idle State = iota
	InFlight
	Settled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case InFlight:
		return "in_flight"
	case Settled:
		return "settled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Outcome qualifies a Settled state.
type Outcome int

const (
	OutcomeNone Outcome = iota
	Succeeded
	Failed
	Rejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "none"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Rejected:
		return "rejected"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// Snapshot is an immutable view of one stage.
type Snapshot struct {
	Kind          Kind    `json:"kind"`
	State         State   `json:"state"`
	Outcome       Outcome `json:"outcome"`
	Message       string  `json:"message,omitempty"`
	Busy          bool    `json:"busy"`
	CanSubmit     bool    `json:"can_submit"`
	CorrelationID string  `json:"correlation_id,omitempty"`

	FileName  string `json:"file_name,omitempty"`
	FileSize  int    `json:"file_size,omitempty"`
	Account   string `json:"account,omitempty"`
	When      string `json:"when,omitempty"`
	Reference string `json:"csv_path,omitempty"`
	SizeBytes int64  `json:"size,omitempty"`
	Queued    bool   `json:"queued,omitempty"`
	JobID     string `json:"job_id,omitempty"`
	RunAt     string `json:"run_at,omitempty"`

	// Err is the failure cause kept for logs.
	Err error `json:"-"`
}

// Observer is notified after every settle, local rejections included.
type Observer interface {
	Settled(ctx context.Context, snap Snapshot)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, snap Snapshot)

func (f ObserverFunc) Settled(ctx context.Context, snap Snapshot) { f(ctx, snap) }

// Submission performs the network half of a stage submit and returns the
// settled snapshot.
type Submission func(ctx context.Context) Snapshot

// ReferenceSource exposes the current artifact reference.
type ReferenceSource interface {
	Reference() (string, bool)
}

// Option customizes a stage.
type Option func(*machine)

// WithObserver registers the settle observer.
func WithObserver(o Observer) Option {
	return func(m *machine) { m.observer = o }
}

// WithLogger sets the stage logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *machine) { m.logger = logger }
}

// outcomeFn describes a successful round trip: the message to show and the
// stage fields to record under the machine lock.
type outcomeFn func() (message string, apply func())

type machine struct {
	kind     Kind
	fallback string
	observer Observer
	logger   *slog.Logger

	mu            sync.Mutex
	state         State
	outcome       Outcome
	message       string
	correlationID string
	lastErr       error
	fill          func(*Snapshot)
}

// init configures a machine embedded in its stage. fill adds the
// stage-specific fields to every snapshot.
func (m *machine) init(kind Kind, fallback string, fill func(*Snapshot), opts []Option) {
	m.kind = kind
	m.fallback = fallback
	m.fill = fill
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	m.logger = logging.NewComponentLogger(m.logger, "stage").With(logging.String(logging.FieldStage, string(kind)))
}

// Snapshot returns the current view of the stage.
func (m *machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Busy reports whether a submission is in flight.
func (m *machine) Busy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == InFlight
}

func (m *machine) snapshotLocked() Snapshot {
	snap := Snapshot{
		Kind:          m.kind,
		State:         m.state,
		Outcome:       m.outcome,
		Message:       m.message,
		Busy:          m.state == InFlight,
		CorrelationID: m.correlationID,
		Err:           m.lastErr,
	}
	if m.fill != nil {
		m.fill(&snap)
	}
	return snap
}

// admit runs check under the machine lock. A non-empty rejection message
// settles the stage as Rejected; otherwise the stage moves to InFlight.
func (m *machine) admit(ctx context.Context, check func() string) (bool, error) {
	m.mu.Lock()
	if m.state == InFlight {
		m.mu.Unlock()
		return false, ErrBusy
	}
	m.correlationID, _ = services.RequestIDFromContext(ctx)
	m.lastErr = nil
	if msg := check(); msg != "" {
		m.state, m.outcome, m.message = Settled, Rejected, msg
		snap := m.snapshotLocked()
		m.mu.Unlock()
		m.notify(ctx, snap)
		return false, nil
	}
	m.state, m.outcome, m.message = InFlight, OutcomeNone, ""
	m.mu.Unlock()
	logging.WithContext(ctx, m.logger).Debug("submission started")
	return true, nil
}

// execute runs work and always settles, including when work panics.
func (m *machine) execute(ctx context.Context, work func(context.Context) (outcomeFn, error)) (snap Snapshot) {
	outcome, message := Failed, m.fallback
	var (
		apply func()
		cause error
	)
	defer func() {
		if r := recover(); r != nil {
			outcome, message, apply = Failed, m.fallback, nil
			cause = fmt.Errorf("submission panic: %v", r)
		}
		snap = m.settle(ctx, outcome, message, apply, cause)
	}()

	result, err := work(ctx)
	if err != nil {
		message, cause = failureMessage(err, m.fallback), err
		return snap
	}
	outcome = Succeeded
	message, apply = result()
	return snap
}

func (m *machine) settle(ctx context.Context, outcome Outcome, message string, apply func(), cause error) Snapshot {
	m.mu.Lock()
	if apply != nil {
		apply()
	}
	m.state, m.outcome, m.message, m.lastErr = Settled, outcome, message, cause
	snap := m.snapshotLocked()
	m.mu.Unlock()
	m.notify(ctx, snap)
	return snap
}

func (m *machine) notify(ctx context.Context, snap Snapshot) {
	if m.observer != nil {
		m.observer.Settled(ctx, snap)
	}
}

func failureMessage(err error, fallback string) string {
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return fallback
}
