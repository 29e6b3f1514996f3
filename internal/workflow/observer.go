package workflow

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dustin/go-humanize"

	"crazypanel/internal/logging"
	"crazypanel/internal/poster"
	"crazypanel/internal/stage"
)

// Settled implements stage.Observer.
func (c *Coordinator) Settled(ctx context.Context, snap stage.Snapshot) {
	logger := logging.WithContext(ctx, c.logger)
	attrs := []logging.Attr{
		logging.String("outcome", snap.Outcome.String()),
		logging.String("message", snap.Message),
	}
	switch snap.Kind {
	case stage.KindUpload:
		if snap.FileName != "" {
			attrs = append(attrs, logging.String("file", snap.FileName))
		}
		if snap.Outcome == stage.Succeeded {
			attrs = append(attrs,
				logging.String(logging.FieldReference, snap.Reference),
				logging.String("size", humanize.Bytes(uint64(max(snap.SizeBytes, 0)))),
			)
		}
	case stage.KindRun, stage.KindSchedule:
		attrs = append(attrs, logging.String(logging.FieldAccount, snap.Account))
		if snap.Reference != "" {
			attrs = append(attrs, logging.String(logging.FieldReference, snap.Reference))
		}
		if snap.JobID != "" {
			attrs = append(attrs, logging.String("job_id", snap.JobID), logging.String("run_at", snap.RunAt))
		}
	}

	switch snap.Outcome {
	case stage.Failed:
		if snap.Err != nil {
			attrs = append(attrs, logging.Error(snap.Err), logging.String("detail", requestDetail(snap.Err)))
		}
		logger.Warn("submission failed", logging.Args(attrs...)...)
	case stage.Rejected:
		logger.Info("submission rejected", logging.Args(attrs...)...)
	default:
		logger.Info("submission settled", logging.Args(attrs...)...)
	}

	if snap.Outcome == stage.Succeeded {
		c.notifySuccess(ctx, logger, snap)
	}
}

func (c *Coordinator) notifySuccess(ctx context.Context, logger *slog.Logger, snap stage.Snapshot) {
	var err error
	switch snap.Kind {
	case stage.KindRun:
		err = c.notifier.NotifyRunQueued(ctx, snap.Account, snap.Reference)
	case stage.KindSchedule:
		err = c.notifier.NotifyScheduled(ctx, snap.Account, snap.JobID, snap.RunAt)
	default:
		return
	}
	if err != nil {
		logger.Debug("submission notification failed", logging.Error(err))
	}
}

// requestDetail extracts the diagnostic status and cause hidden behind the
// fixed operator message.
func requestDetail(err error) string {
	var reqErr *poster.RequestFailedError
	if errors.As(err, &reqErr) {
		return reqErr.Detail()
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
