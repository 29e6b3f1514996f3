package stage

import (
	"context"
	"strings"

	"crazypanel/internal/poster"
)

const (
	msgNoReference = "No CSV selected/uploaded yet."
	msgNoAccount   = "Enter an account name."
	msgQueued      = "Queued ✓  Check logs in your Account logs folder."
	fallbackRun    = "Run-now failed"
)

// Runner requests immediate execution of an uploaded artifact.
type Runner interface {
	RunNow(ctx context.Context, account, reference string) (poster.RunReceipt, error)
}

// RunStage requests an immediate run of the current artifact.
type RunStage struct {
	machine
	client Runner
	refs   ReferenceSource

	account   string
	submitted string
	queued    bool
}

// NewRun constructs the Run Now stage with the given default account.
func NewRun(client Runner, refs ReferenceSource, account string, opts ...Option) *RunStage {
	s := &RunStage{
		client:  client,
		refs:    refs,
		account: account,
	}
	s.init(KindRun, fallbackRun, s.fillSnapshot, opts)
	return s
}

// SetAccount updates the account used by the next submission.
func (s *RunStage) SetAccount(account string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.account = account
}

// Begin checks the reference and account and moves the stage to InFlight.
func (s *RunStage) Begin(ctx context.Context) (Submission, error) {
	var account, reference string
	ok, err := s.admit(ctx, func() string {
		ref, present := currentReference(s.refs)
		if !present {
			return msgNoReference
		}
		if strings.TrimSpace(s.account) == "" {
			return msgNoAccount
		}
		account, reference = s.account, ref
		return ""
	})
	if err != nil || !ok {
		return nil, err
	}
	return func(ctx context.Context) Snapshot {
		return s.execute(ctx, func(ctx context.Context) (outcomeFn, error) {
			receipt, err := s.client.RunNow(ctx, account, reference)
			if err != nil {
				return nil, err
			}
			return func() (string, func()) {
				return msgQueued, func() {
					s.submitted = reference
					s.queued = receipt.Queued
				}
			}, nil
		})
	}, nil
}

// Submit runs Begin and, when admitted, the submission itself.
func (s *RunStage) Submit(ctx context.Context) Snapshot {
	sub, err := s.Begin(ctx)
	if err != nil || sub == nil {
		return s.Snapshot()
	}
	return sub(ctx)
}

func (s *RunStage) fillSnapshot(snap *Snapshot) {
	snap.Account = s.account
	snap.Reference = s.submitted
	snap.Queued = s.queued
	_, present := currentReference(s.refs)
	snap.CanSubmit = s.state != InFlight && present
}

func currentReference(refs ReferenceSource) (string, bool) {
	if refs == nil {
		return "", false
	}
	ref, ok := refs.Reference()
	if !ok || ref == "" {
		return "", false
	}
	return ref, true
}
