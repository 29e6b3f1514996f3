package stage

import (
	"context"
	"fmt"
	"strings"

	"crazypanel/internal/poster"
)

const (
	msgPickWhen      = "Pick a date/time."
	fallbackSchedule = "Schedule failed"
)

// Scheduler requests a one-time deferred execution of an uploaded artifact.
type Scheduler interface {
	ScheduleOnce(ctx context.Context, account, reference, when string) (poster.ScheduleReceipt, error)
}

// ScheduleStage requests a one-time run of the current artifact.
type ScheduleStage struct {
	machine
	client Scheduler
	refs   ReferenceSource

	account   string
	when      string
	submitted string
	jobID     string
	runAt     string
}

// NewSchedule constructs the Schedule stage with the given default account.
func NewSchedule(client Scheduler, refs ReferenceSource, account string, opts ...Option) *ScheduleStage {
	s := &ScheduleStage{
		client:  client,
		refs:    refs,
		account: account,
	}
	s.init(KindSchedule, fallbackSchedule, s.fillSnapshot, opts)
	return s
}

// SetAccount updates the account used by the next submission.
func (s *ScheduleStage) SetAccount(account string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.account = account
}

// SetWhen updates the raw operator timestamp.
func (s *ScheduleStage) SetWhen(when string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.when = when
}

// Begin checks reference, timestamp, and account in that order and moves the
// stage to InFlight.
func (s *ScheduleStage) Begin(ctx context.Context) (Submission, error) {
	var account, reference, when string
	ok, err := s.admit(ctx, func() string {
		ref, present := currentReference(s.refs)
		if !present {
			return msgNoReference
		}
		if strings.TrimSpace(s.when) == "" {
			return msgPickWhen
		}
		if strings.TrimSpace(s.account) == "" {
			return msgNoAccount
		}
		account, reference, when = s.account, ref, NormalizeWhen(s.when)
		return ""
	})
	if err != nil || !ok {
		return nil, err
	}
	return func(ctx context.Context) Snapshot {
		return s.execute(ctx, func(ctx context.Context) (outcomeFn, error) {
			receipt, err := s.client.ScheduleOnce(ctx, account, reference, when)
			if err != nil {
				return nil, err
			}
			jobID, runAt := receipt.JobID.String(), receipt.RunAt.String()
			return func() (string, func()) {
				return fmt.Sprintf("Scheduled ✓  Job: %s at %s", jobID, runAt), func() {
					s.submitted = reference
					s.jobID = jobID
					s.runAt = runAt
				}
			}, nil
		})
	}, nil
}

// Submit runs Begin and, when admitted, the submission itself.
func (s *ScheduleStage) Submit(ctx context.Context) Snapshot {
	sub, err := s.Begin(ctx)
	if err != nil || sub == nil {
		return s.Snapshot()
	}
	return sub(ctx)
}

func (s *ScheduleStage) fillSnapshot(snap *Snapshot) {
	snap.Account = s.account
	snap.When = s.when
	snap.Reference = s.submitted
	snap.JobID = s.jobID
	snap.RunAt = s.runAt
	_, present := currentReference(s.refs)
	snap.CanSubmit = s.state != InFlight && present && s.when != ""
}
