package domain

import (
	"log/slog"
	"testing"
)

func TestClassifyStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code int
		want Outcome
	}{
		{200, OutcomeSuccess},
		{201, OutcomeSuccess},
		{204, OutcomeSuccess},
		{202, OutcomeUnclassified},
		{400, OutcomeInvalidPayload},
		{404, OutcomeRemoteVanished},
		{409, OutcomeAlreadyExists},
		{401, OutcomeUnclassified},
		{500, OutcomeUnclassified},
		{0, OutcomeUnclassified},
	}
	for _, tt := range tests {
		if got := ClassifyStatus(tt.code); got != tt.want {
			t.Errorf("ClassifyStatus(%d) = %s, want %s", tt.code, got, tt.want)
		}
	}
}

func TestOutcome_Level(t *testing.T) {
	t.Parallel()

	if OutcomeSuccess.Level() != slog.LevelInfo {
		t.Error("success should log at info")
	}
	if OutcomeInvalidPayload.Level() != slog.LevelWarn {
		t.Error("invalid payload should log at warn")
	}
	if OutcomeRemoteVanished.Level() != slog.LevelError {
		t.Error("vanished record should log at error")
	}
}

func TestDescribeStatus(t *testing.T) {
	t.Parallel()

	if got := DescribeStatus(400, "invalid ORCID iD"); got != "status 400 (invalid payload): invalid ORCID iD" {
		t.Errorf("unexpected description: %q", got)
	}
	if got := DescribeStatus(201, ""); got != "status 201 (success)" {
		t.Errorf("unexpected description: %q", got)
	}
}
