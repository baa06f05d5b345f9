// Package audit delivers change records to best-effort collaborators. A
// failing sink never affects the operation that produced the record.
package audit

import (
	"context"
	"errors"
	"log/slog"

	"github.com/alexanderramin/planloom/internal/db"
	"github.com/alexanderramin/planloom/internal/domain"
	"github.com/alexanderramin/planloom/internal/repository"
)

type Entry = domain.ChangeEntry

// Sink records one audit entry.
type Sink interface {
	Record(ctx context.Context, e Entry) error
}

// Flusher is implemented by sinks that buffer.
type Flusher interface {
	Flush(ctx context.Context) error
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) Record(context.Context, Entry) error { return nil }

// SQLiteSink appends to the change_log table.
type SQLiteSink struct {
	repo repository.ChangeLogRepo
}

func NewSQLiteSink(conn db.DBTX) *SQLiteSink {
	return &SQLiteSink{repo: repository.NewSQLiteChangeLogRepo(conn)}
}

func (s *SQLiteSink) Record(ctx context.Context, e Entry) error {
	return s.repo.Append(ctx, e)
}

// LogSink writes entries as structured log lines.
type LogSink struct {
	logger *slog.Logger
	level  slog.Level
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger, level: slog.LevelInfo}
}

func (s *LogSink) Record(ctx context.Context, e Entry) error {
	s.logger.Log(ctx, s.level, "audit",
		"entity_type", string(e.EntityType),
		"entity_id", e.EntityID,
		"scenario_id", e.ScenarioID,
		"action", e.Action,
		"actor", e.Actor,
		"old", string(e.OldValue),
		"new", string(e.NewValue),
	)
	return nil
}

// MultiSink fans an entry out to every sink and joins their errors.
type MultiSink []Sink

func (m MultiSink) Record(ctx context.Context, e Entry) error {
	var errs []error
	for _, s := range m {
		if err := s.Record(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiSink) Flush(ctx context.Context) error {
	var errs []error
	for _, s := range m {
		if f, ok := s.(Flusher); ok {
			if err := f.Flush(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
