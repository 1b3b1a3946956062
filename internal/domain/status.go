package domain

import (
	"fmt"
	"log/slog"
)

// Outcome is the human classification of a registry status code. It only
// drives log wording and level; retry behavior does not depend on it.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeInvalidPayload
	OutcomeRemoteVanished
	OutcomeAlreadyExists
	OutcomeUnclassified
)

// ClassifyStatus maps a registry HTTP status to an Outcome.
func ClassifyStatus(code int) Outcome {
	switch code {
	case 200, 201, 204:
		return OutcomeSuccess
	case 400:
		return OutcomeInvalidPayload
	case 404:
		return OutcomeRemoteVanished
	case 409:
		return OutcomeAlreadyExists
	}
	return OutcomeUnclassified
}

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeInvalidPayload:
		return "invalid payload"
	case OutcomeRemoteVanished:
		return "remote record vanished"
	case OutcomeAlreadyExists:
		return "remote record already exists"
	}
	return "unclassified failure"
}

// Level is the log level operators see for the outcome.
func (o Outcome) Level() slog.Level {
	switch o {
	case OutcomeSuccess:
		return slog.LevelInfo
	case OutcomeInvalidPayload:
		return slog.LevelWarn
	}
	return slog.LevelError
}

// DescribeStatus renders "status 400 (invalid payload): <message>".
func DescribeStatus(code int, message string) string {
	s := fmt.Sprintf("status %d (%s)", code, ClassifyStatus(code))
	if message != "" {
		s += ": " + message
	}
	return s
}
