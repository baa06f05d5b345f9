package service

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/alexanderramin/planloom/internal/domain"
	"github.com/alexanderramin/planloom/internal/metrics"
)

// UseCaseEvent is reported once per service call, after it returns.
type UseCaseEvent struct {
	Name      string
	StartedAt time.Time
	Duration  time.Duration
	Err       error
	Fields    map[string]any
}

func (e UseCaseEvent) OK() bool { return e.Err == nil }

// Outcome is "ok", the PlanError code, or "error" for anything else.
func (e UseCaseEvent) Outcome() string {
	if e.Err == nil {
		return "ok"
	}
	if code := domain.CodeOf(e.Err); code != "" {
		return string(code)
	}
	return "error"
}

type UseCaseObserver interface {
	ObserveUseCase(ctx context.Context, event UseCaseEvent)
}

type NoopUseCaseObserver struct{}

func (NoopUseCaseObserver) ObserveUseCase(context.Context, UseCaseEvent) {}

type logObserver struct {
	logger *slog.Logger
}

// NewLogUseCaseObserver logs one "use_case" record per event. Caller
// mistakes (validation, not found, lock contention) are warnings; anything
// else failing is an error.
func NewLogUseCaseObserver(logger *slog.Logger) UseCaseObserver {
	if logger == nil {
		return NoopUseCaseObserver{}
	}
	return &logObserver{logger: logger}
}

func (o *logObserver) ObserveUseCase(ctx context.Context, e UseCaseEvent) {
	attrs := []slog.Attr{
		slog.String("name", e.Name),
		slog.Duration("took", e.Duration),
		slog.String("outcome", e.Outcome()),
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, e.Fields[k]))
	}

	level := slog.LevelInfo
	if !e.OK() {
		attrs = append(attrs, slog.String("error", e.Err.Error()))
		level = slog.LevelError
		switch domain.CodeOf(e.Err) {
		case domain.CodeValidation, domain.CodeNotFound, domain.CodeScenarioNotFound,
			domain.CodeConcurrentMerge, domain.CodeConcurrentCascade:
			level = slog.LevelWarn
		}
	}
	o.logger.LogAttrs(ctx, level, "use_case", attrs...)
}

type metricsObserver struct {
	m *metrics.Metrics
}

// NewMetricsUseCaseObserver feeds the use case histogram and the
// per-outcome counter.
func NewMetricsUseCaseObserver(m *metrics.Metrics) UseCaseObserver {
	if m == nil {
		return NoopUseCaseObserver{}
	}
	return &metricsObserver{m: m}
}

func (o *metricsObserver) ObserveUseCase(_ context.Context, e UseCaseEvent) {
	o.m.UseCaseDuration.WithLabelValues(e.Name).Observe(e.Duration.Seconds())
	o.m.UseCaseTotal.WithLabelValues(e.Name, e.Outcome()).Inc()
}

type fanOut []UseCaseObserver

func (f fanOut) ObserveUseCase(ctx context.Context, e UseCaseEvent) {
	for _, o := range f {
		o.ObserveUseCase(ctx, e)
	}
}

// combineObservers drops nils and only fans out when there is more than one.
func combineObservers(observers []UseCaseObserver) UseCaseObserver {
	var live fanOut
	for _, o := range observers {
		if o != nil {
			live = append(live, o)
		}
	}
	switch len(live) {
	case 0:
		return NoopUseCaseObserver{}
	case 1:
		return live[0]
	default:
		return live
	}
}
