package service

import (
	"log/slog"
	"time"

	"github.com/alexanderramin/planloom/internal/audit"
	"github.com/alexanderramin/planloom/internal/metrics"
	"github.com/alexanderramin/planloom/internal/overlay"
)

const defaultLockTTL = 30 * time.Second

// Option configures a service.
type Option func(*options)

type options struct {
	cache     *overlay.ChainCache
	sink      audit.Sink
	metrics   *metrics.Metrics
	logger    *slog.Logger
	observers []UseCaseObserver
	lockTTL   time.Duration
	pushOnly  bool
	now       func() time.Time
}

func WithChainCache(c *overlay.ChainCache) Option {
	return func(o *options) { o.cache = c }
}

// WithAudit sets the collaborator that receives change records after each
// committed write.
func WithAudit(s audit.Sink) Option {
	return func(o *options) { o.sink = s }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithObserver(obs UseCaseObserver) Option {
	return func(o *options) { o.observers = append(o.observers, obs) }
}

func WithLockTTL(d time.Duration) Option {
	return func(o *options) { o.lockTTL = d }
}

// WithPushOnly keeps cascaded successors from moving earlier.
func WithPushOnly(on bool) Option {
	return func(o *options) { o.pushOnly = on }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{
		sink:    audit.NopSink{},
		logger:  slog.Default(),
		lockTTL: defaultLockTTL,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.metrics != nil {
		o.observers = append(o.observers, NewMetricsUseCaseObserver(o.metrics))
	}
	return o
}
