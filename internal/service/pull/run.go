package pull

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/heartmarshall/orcid-sync/internal/adapter/postgres/profile"
	"github.com/heartmarshall/orcid-sync/internal/domain"
	"github.com/heartmarshall/orcid-sync/internal/telemetry"
	"github.com/heartmarshall/orcid-sync/pkg/ctxutil"
)

// Run visits profiles page by page. Action failures are reported and the
// run goes on; a failing profile stream ends the run with an error.
func (s *Service) Run(ctx context.Context, opts Options) (domain.RunReport, error) {
	var report domain.RunReport
	ctx = ctxutil.WithRun(ctx, "pull", uuid.New())

	s.log.InfoContext(ctx, "pull run started",
		slog.Bool("linked_only", opts.LinkedOnly),
		slog.Any("actions", s.names),
	)

	for p, err := range s.profiles.Stream(ctx, profile.StreamFilter{LinkedOnly: opts.LinkedOnly, PageSize: s.pageSize}) {
		if err != nil {
			report.Errorf("profile stream failed after %d profiles: %v", report.Processed+report.Skipped, err)
			s.log.ErrorContext(ctx, "profile stream failed", slog.String("error", err.Error()))
			return report, fmt.Errorf("stream profiles: %w", err)
		}
		if ctx.Err() != nil {
			report.Warnf("run cancelled after %d profiles", report.Processed+report.Skipped)
			break
		}

		if opts.LinkedOnly && !p.Linked() {
			report.Skipped++
			s.metrics.RecordPull(ctx, telemetry.PullSkipped)
			continue
		}

		s.visit(ctx, &p, &report)
	}

	s.log.InfoContext(ctx, "pull run finished",
		slog.Int("processed", report.Processed),
		slog.Int("succeeded", report.Succeeded),
		slog.Int("failed", report.Failed),
		slog.Int("skipped", report.Skipped),
	)
	return report, nil
}

func (s *Service) visit(ctx context.Context, p *domain.Profile, report *domain.RunReport) {
	ctx, span := s.tracer.Start(ctx, "pull.profile", trace.WithAttributes(
		attribute.String("profile.id", p.ID.String()),
		attribute.String("orcid", p.ORCID),
	))
	defer span.End()

	report.Processed++
	before := p.Metadata.Clone()

	failed := 0
	for _, a := range s.actions {
		if err := a.Apply(ctx, p, p.ORCID); err != nil {
			failed++
			report.Errorf("profile %s (%s): %s: %v", p.ID, p.ORCID, a.Name(), err)
			s.log.ErrorContext(ctx, "inbound action failed",
				slog.String("profile_id", p.ID.String()),
				slog.String("action", a.Name()),
				slog.String("error", err.Error()),
			)
			span.RecordError(err)
		}
	}

	if !maps.EqualFunc(before, p.Metadata, slices.Equal[[]domain.MetadataValue]) {
		if _, err := s.entities.Update(ctx, p.Entity); err != nil {
			failed++
			report.Errorf("profile %s (%s): save: %v", p.ID, p.ORCID, err)
			s.log.ErrorContext(ctx, "save profile",
				slog.String("profile_id", p.ID.String()),
				slog.String("error", err.Error()),
			)
			span.RecordError(err)
		}
	}

	if failed > 0 {
		report.Failed++
		span.SetStatus(codes.Error, fmt.Sprintf("%d steps failed", failed))
		s.metrics.RecordPull(ctx, telemetry.PullFailed)
		return
	}
	report.Succeeded++
	s.metrics.RecordPull(ctx, telemetry.PullProcessed)
}
