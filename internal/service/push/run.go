package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/heartmarshall/orcid-sync/internal/domain"
	"github.com/heartmarshall/orcid-sync/pkg/ctxutil"
)

// Run processes every eligible queue row once. Per-record failures are
// reported, never returned; the error is reserved for failing to select
// candidates at all.
//
// With a batch limit, candidates are read a page at a time and the limit
// counts only rows the owner preferences let through.
func (s *Service) Run(ctx context.Context, opts Options) (domain.RunReport, error) {
	var report domain.RunReport
	ctx = ctxutil.WithRun(ctx, "push", uuid.New())

	s.log.InfoContext(ctx, "push run started",
		slog.Int("batch_limit", s.batchLimit),
		slog.Bool("force", opts.Force),
	)

	prefs := newPreferenceLoader(s.prefs)
	filter := domain.QueueFilter{
		MaxAttempts: s.maxAttempts,
		Force:       opts.Force,
		Limit:       s.batchLimit,
	}
	scheduled := 0
	for {
		if filter.After != nil && ctx.Err() != nil {
			report.Warnf("run cancelled: further queued records not read")
			break
		}
		candidates, err := s.queue.ListCandidates(ctx, filter)
		if err != nil {
			return report, fmt.Errorf("list push candidates: %w", err)
		}
		prefs.Prime(ctx, ownersOf(candidates))

		if s.drain(ctx, candidates, prefs, opts.Force, &scheduled, &report) {
			break
		}
		if s.batchLimit == 0 || len(candidates) < s.batchLimit {
			break
		}
		filter.After = candidates[len(candidates)-1].Cursor()
	}

	s.log.InfoContext(ctx, "push run finished",
		slog.Int("scheduled", scheduled),
		slog.Int("processed", report.Processed),
		slog.Int("succeeded", report.Succeeded),
		slog.Int("invalid", report.Invalid),
		slog.Int("failed", report.Failed),
		slog.Int("skipped", report.Skipped),
	)
	return report, nil
}

// drain processes the drainable rows of one page. It reports true once the
// run must stop: the context is done or the batch limit is reached.
func (s *Service) drain(ctx context.Context, candidates []domain.QueueRecord, prefs *preferenceLoader, force bool, scheduled *int, report *domain.RunReport) bool {
	for i, rec := range candidates {
		if ctx.Err() != nil {
			report.Warnf("run cancelled: %d queued records not scheduled", len(candidates)-i)
			return true
		}
		if s.batchLimit > 0 && *scheduled >= s.batchLimit {
			return true
		}

		p, err := prefs.Get(ctx, rec.OwnerID)
		if err != nil {
			report.Failed++
			report.Errorf("%s: cannot read owner preferences: %v", describe(rec), err)
			s.log.ErrorContext(ctx, "load preferences",
				slog.String("owner_id", rec.OwnerID.String()),
				slog.String("error", err.Error()),
			)
			s.metrics.RecordPush(ctx, outcomeFailed)
			continue
		}
		if !p.Drainable(rec.RecordType, force) {
			continue
		}

		*scheduled++
		s.process(ctx, rec, report)
	}
	return s.batchLimit > 0 && *scheduled >= s.batchLimit
}

// process pushes one row. Work already started is finished even when the
// run is cancelled; only the record timeout bounds it.
func (s *Service) process(parent context.Context, rec domain.QueueRecord, report *domain.RunReport) {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if s.recordTimeout > 0 {
		ctx, cancel = context.WithTimeout(context.WithoutCancel(parent), s.recordTimeout)
	} else {
		ctx, cancel = context.WithCancel(context.WithoutCancel(parent))
	}
	defer cancel()

	ctx, span := s.tracer.Start(ctx, "push.record", trace.WithAttributes(
		attribute.String("queue.id", rec.ID.String()),
		attribute.String("owner.id", rec.OwnerID.String()),
		attribute.String("entity.id", rec.EntityID.String()),
		attribute.String("record.type", rec.RecordType.String()),
	))
	defer span.End()

	// The attempt is counted before anything else so that a crash later on
	// never goes unrecorded.
	fresh, err := s.queue.IncrementAttempts(ctx, rec.ID)
	if errors.Is(err, domain.ErrNotFound) {
		report.Skipped++
		report.Infof("%s: already processed elsewhere, skipped", describe(rec))
		s.metrics.RecordPush(ctx, outcomeSkipped)
		return
	}
	if err != nil {
		report.Failed++
		report.Errorf("%s: cannot count attempt: %v", describe(rec), err)
		s.fail(ctx, span, rec, err)
		return
	}
	report.Processed++
	span.SetAttributes(attribute.Int("queue.attempts", fresh.AttemptCount()))

	res, err := s.transport.Synchronize(ctx, domain.SyncRequest{
		OwnerID:    fresh.OwnerID,
		EntityID:   fresh.EntityID,
		RecordType: fresh.RecordType,
		Operation:  fresh.Operation,
		PutCode:    fresh.PutCode,
	})

	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		report.Invalid++
		report.Warnf("%s: not sent: %v", describe(fresh), err)
		s.log.WarnContext(ctx, "payload rejected before sending",
			slog.String("queue_id", fresh.ID.String()),
			slog.String("error", err.Error()),
		)
		s.recordFailure(ctx, fresh, err.Error())
		s.metrics.RecordPush(ctx, outcomeInvalid)
		span.SetStatus(codes.Error, "invalid payload")

	case err != nil:
		report.Failed++
		report.Errorf("%s: %v", describe(fresh), err)
		s.fail(ctx, span, fresh, err)
		// The record timeout may be what failed the call.
		failCtx, cancelFail := context.WithTimeout(context.WithoutCancel(ctx), failureWriteTimeout)
		s.recordFailure(failCtx, fresh, err.Error())
		cancelFail()

	case !res.Transmitted:
		if err := s.discard(ctx, fresh); err != nil {
			report.Failed++
			report.Errorf("%s: %v", describe(fresh), err)
			s.fail(ctx, span, fresh, err)
			return
		}
		report.Skipped++
		report.Infof("%s: never reached the registry, nothing to delete", describe(fresh))
		s.metrics.RecordPush(ctx, outcomeSkipped)

	default:
		s.settle(ctx, span, fresh, res, report)
	}
}

// settle records a registry answer in the ledger and retires or keeps the
// row, as one transaction.
func (s *Service) settle(ctx context.Context, span trace.Span, rec domain.QueueRecord, res domain.SyncResult, report *domain.RunReport) {
	outcome := domain.ClassifyStatus(res.Status)
	message := res.Message
	if message == "" {
		message = outcome.String()
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.history.Append(ctx, domain.HistoryRecord{
			OwnerID:       rec.OwnerID,
			EntityID:      rec.EntityID,
			RecordType:    rec.RecordType,
			Operation:     res.Operation,
			PutCode:       res.PutCode,
			Status:        res.Status,
			Message:       message,
			PayloadDigest: res.PayloadDigest,
		}); err != nil {
			return err
		}

		if outcome != domain.OutcomeSuccess {
			return s.queue.RecordFailure(ctx, rec.ID, domain.DescribeStatus(res.Status, res.Message))
		}

		removed, err := s.queue.DeleteIfUnchanged(ctx, rec.ID, rec.Operation)
		if err != nil {
			return err
		}
		if !removed {
			// The row was rewritten while we pushed; keep it with the put
			// code the registry now holds.
			return s.queue.SetPutCode(ctx, rec.ID, res.PutCode)
		}
		return nil
	})
	if err != nil {
		report.Failed++
		report.Errorf("%s: sent (%s) but not recorded: %v", describe(rec), domain.DescribeStatus(res.Status, res.Message), err)
		s.fail(ctx, span, rec, err)
		return
	}

	span.SetAttributes(attribute.Int("http.status_code", res.Status))
	line := fmt.Sprintf("%s: %s %s", describe(rec), res.Operation, domain.DescribeStatus(res.Status, res.Message))
	report.Addf(outcome.Level(), "%s", line)
	s.log.Log(ctx, outcome.Level(), "registry answered",
		slog.String("queue_id", rec.ID.String()),
		slog.String("operation", res.Operation.String()),
		slog.Int("status", res.Status),
		slog.String("outcome", outcome.String()),
		slog.String("message", res.Message),
	)

	if outcome == domain.OutcomeSuccess {
		report.Succeeded++
		s.metrics.RecordPush(ctx, outcomeSuccess)
		return
	}
	report.Failed++
	s.metrics.RecordPush(ctx, outcomeFailed)
	span.SetStatus(codes.Error, outcome.String())
}

// discard drops a DELETE row that has nothing to delete remotely.
func (s *Service) discard(ctx context.Context, rec domain.QueueRecord) error {
	if _, err := s.queue.DeleteIfUnchanged(ctx, rec.ID, rec.Operation); err != nil {
		return fmt.Errorf("drop queue row: %w", err)
	}
	return nil
}

func (s *Service) recordFailure(ctx context.Context, rec domain.QueueRecord, msg string) {
	if err := s.queue.RecordFailure(ctx, rec.ID, msg); err != nil {
		s.log.ErrorContext(ctx, "store last error",
			slog.String("queue_id", rec.ID.String()),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Service) fail(ctx context.Context, span trace.Span, rec domain.QueueRecord, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.log.ErrorContext(ctx, "push record failed",
		slog.String("queue_id", rec.ID.String()),
		slog.String("entity_id", rec.EntityID.String()),
		slog.String("error", err.Error()),
	)
	s.metrics.RecordPush(ctx, outcomeFailed)
}

func describe(rec domain.QueueRecord) string {
	return fmt.Sprintf("%s %s (owner %s)", rec.RecordType, rec.EntityID, rec.OwnerID)
}

func ownersOf(recs []domain.QueueRecord) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(recs))
	var owners []uuid.UUID
	for _, r := range recs {
		if _, ok := seen[r.OwnerID]; ok {
			continue
		}
		seen[r.OwnerID] = struct{}{}
		owners = append(owners, r.OwnerID)
	}
	return owners
}
