package workflow

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"crazypanel/internal/services"
	"crazypanel/internal/stage"
)

// Dispatch begins a submission on the named stage and runs its network half
// in a tracked goroutine. Local rejections settle before Dispatch returns and
// yield a nil error; a submission already in flight yields stage.ErrBusy.
// The goroutine is detached from ctx cancellation.
func (c *Coordinator) Dispatch(ctx context.Context, kind stage.Kind) error {
	ctx = submissionContext(ctx, kind)
	sub, err := c.begin(ctx, kind)
	if err != nil || sub == nil {
		return err
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		sub(ctx)
	}()
	return nil
}

// Submit runs a submission to completion on the calling goroutine and
// returns the settled snapshot. A busy stage returns its current snapshot
// together with stage.ErrBusy.
func (c *Coordinator) Submit(ctx context.Context, kind stage.Kind) (stage.Snapshot, error) {
	ctx = submissionContext(ctx, kind)
	sub, err := c.begin(ctx, kind)
	if err != nil {
		snap, _ := c.snapshot(kind)
		return snap, err
	}
	if sub == nil {
		return c.snapshot(kind)
	}
	return sub(ctx), nil
}

// Wait blocks until every dispatched submission has settled.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

func (c *Coordinator) begin(ctx context.Context, kind stage.Kind) (stage.Submission, error) {
	switch kind {
	case stage.KindUpload:
		return c.upload.Begin(ctx)
	case stage.KindRun:
		return c.run.Begin(ctx)
	case stage.KindSchedule:
		return c.schedule.Begin(ctx)
	default:
		return nil, unknownStage(kind)
	}
}

func (c *Coordinator) snapshot(kind stage.Kind) (stage.Snapshot, error) {
	switch kind {
	case stage.KindUpload:
		return c.upload.Snapshot(), nil
	case stage.KindRun:
		return c.run.Snapshot(), nil
	case stage.KindSchedule:
		return c.schedule.Snapshot(), nil
	default:
		return stage.Snapshot{}, unknownStage(kind)
	}
}

func submissionContext(ctx context.Context, kind stage.Kind) context.Context {
	ctx = context.WithoutCancel(ctx)
	ctx = services.WithStage(ctx, string(kind))
	return services.WithRequestID(ctx, uuid.NewString())
}

func unknownStage(kind stage.Kind) error {
	return services.Wrap(services.ErrValidation, "workflow", "dispatch", fmt.Sprintf("unknown stage %q", kind), nil)
}
