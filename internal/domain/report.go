package domain

import (
	"fmt"
	"log/slog"
)

// ReportLine is one operator-visible line of a batch run.
type ReportLine struct {
	Level   slog.Level
	Message string
}

func (l ReportLine) String() string {
	return fmt.Sprintf("[%s] %s", l.Level, l.Message)
}

// RunReport is the outcome of a push or pull run: counters plus the lines an
// operator reads to see what happened to each record.
type RunReport struct {
	Processed int
	Succeeded int
	Invalid   int
	Failed    int
	Skipped   int
	Lines     []ReportLine
}

func (r *RunReport) Infof(format string, args ...any) {
	r.add(slog.LevelInfo, format, args...)
}

func (r *RunReport) Warnf(format string, args ...any) {
	r.add(slog.LevelWarn, format, args...)
}

func (r *RunReport) Errorf(format string, args ...any) {
	r.add(slog.LevelError, format, args...)
}

// Addf appends a line at an arbitrary level.
func (r *RunReport) Addf(level slog.Level, format string, args ...any) {
	r.add(level, format, args...)
}

func (r *RunReport) add(level slog.Level, format string, args ...any) {
	r.Lines = append(r.Lines, ReportLine{Level: level, Message: fmt.Sprintf(format, args...)})
}

// Summary renders the counters on one line.
func (r RunReport) Summary() string {
	return fmt.Sprintf("processed=%d succeeded=%d invalid=%d failed=%d skipped=%d",
		r.Processed, r.Succeeded, r.Invalid, r.Failed, r.Skipped)
}
