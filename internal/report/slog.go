package report

import (
	"context"
	"log/slog"
)

// Slog writes updates to a structured logger.
type Slog struct {
	log *slog.Logger
}

// NewSlog returns a reporter backed by the given logger.
func NewSlog(log *slog.Logger) *Slog {
	if log == nil {
		log = slog.Default()
	}
	return &Slog{log: log}
}

func (s *Slog) Report(ctx context.Context, u Update) {
	attrs := []any{
		"client", u.Client,
		"stage", u.Stage,
		"percent", u.Percent,
	}
	if u.Message != "" {
		attrs = append(attrs, "message", u.Message)
	}
	if u.Stage == StageError {
		s.log.ErrorContext(ctx, "packet status", attrs...)
		return
	}
	s.log.InfoContext(ctx, "packet status", attrs...)
}
