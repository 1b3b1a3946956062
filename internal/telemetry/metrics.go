package telemetry

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope of the synchronization metrics.
const MeterName = "github.com/heartmarshall/orcid-sync"

// Pull results.
const (
	PullProcessed = "processed"
	PullSkipped   = "skipped"
	PullFailed    = "failed"
)

// SyncMetrics holds the instruments of the push and pull jobs. A nil
// *SyncMetrics records nothing.
type SyncMetrics struct {
	pushRecords     metric.Int64Counter
	pullProfiles    metric.Int64Counter
	requestDuration metric.Float64Histogram
}

// NewSyncMetrics creates the instruments on provider. A nil provider yields
// nil metrics.
func NewSyncMetrics(provider metric.MeterProvider) (*SyncMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(MeterName)

	pushRecords, err := meter.Int64Counter(
		"orcid_sync_push_records_total",
		metric.WithDescription("Queue records processed by push runs, by outcome"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, err
	}

	pullProfiles, err := meter.Int64Counter(
		"orcid_sync_pull_profiles_total",
		metric.WithDescription("Profiles visited by pull runs, by result"),
		metric.WithUnit("{profile}"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"orcid_sync_registry_request_duration_seconds",
		metric.WithDescription("Duration of registry API requests"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30),
	)
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		pushRecords:     pushRecords,
		pullProfiles:    pullProfiles,
		requestDuration: requestDuration,
	}, nil
}

// RecordPush counts one processed queue record.
func (m *SyncMetrics) RecordPush(ctx context.Context, outcome string) {
	if m == nil || m.pushRecords == nil {
		return
	}
	m.pushRecords.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordPull counts one visited profile.
func (m *SyncMetrics) RecordPull(ctx context.Context, result string) {
	if m == nil || m.pullProfiles == nil {
		return
	}
	m.pullProfiles.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// RecordRequest records the duration of one registry request. A status of
// zero means no response was received.
func (m *SyncMetrics) RecordRequest(ctx context.Context, method string, status int, d time.Duration) {
	if m == nil || m.requestDuration == nil {
		return
	}
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	m.requestDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("status", code),
	))
}
