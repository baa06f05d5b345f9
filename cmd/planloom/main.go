package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/alexanderramin/planloom/internal/audit"
	"github.com/alexanderramin/planloom/internal/cli"
	"github.com/alexanderramin/planloom/internal/cli/formatter"
	"github.com/alexanderramin/planloom/internal/config"
	"github.com/alexanderramin/planloom/internal/db"
	"github.com/alexanderramin/planloom/internal/domain"
	"github.com/alexanderramin/planloom/internal/metrics"
	"github.com/alexanderramin/planloom/internal/overlay"
	"github.com/alexanderramin/planloom/internal/repository"
	"github.com/alexanderramin/planloom/internal/service"
)

func main() {
	if err := run(); err != nil {
		var pe *domain.PlanError
		if errors.As(err, &pe) {
			fmt.Fprintf(os.Stderr, "Error [%s]: %v\n", pe.Code, err)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run() (err error) {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	formatter.SetColor(isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()))

	database, err := db.OpenDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	ctx := context.Background()
	m := metrics.New()
	sink, err := buildAuditSink(ctx, cfg, database, logger)
	if err != nil {
		return err
	}
	dispatcher := audit.NewDispatcher(sink, cfg.Audit.QueueSize,
		audit.WithCounters(m.AuditDropped, m.AuditFailures),
		audit.WithLogger(logger),
	)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if cerr := dispatcher.Close(closeCtx); cerr != nil {
			logger.Warn("audit flush failed", "error", cerr.Error())
		}
		if cfg.MetricsTextfile != "" {
			if werr := m.WriteTextfile(cfg.MetricsTextfile); werr != nil && err == nil {
				err = werr
			}
		}
	}()

	cache, err := overlay.NewChainCache(cfg.ChainCacheSize)
	if err != nil {
		return err
	}
	app := cli.NewApp(repository.NewRepos(database), db.NewSQLiteUnitOfWork(database), cfg.Actor,
		service.WithAudit(dispatcher),
		service.WithMetrics(m),
		service.WithLogger(logger),
		service.WithObserver(service.NewLogUseCaseObserver(logger.With("component", "service"))),
		service.WithChainCache(cache),
		service.WithLockTTL(cfg.LockTTL),
		service.WithPushOnly(cfg.CascadePushOnly),
	)

	return cli.NewRootCmd(app).ExecuteContext(ctx)
}

// buildAuditSink always records to the change_log table and adds the
// structured log and S3 archive when configured.
func buildAuditSink(ctx context.Context, cfg config.Config, database db.DBTX, logger *slog.Logger) (audit.Sink, error) {
	sinks := audit.MultiSink{audit.NewSQLiteSink(database)}
	if cfg.Audit.Log {
		sinks = append(sinks, audit.NewLogSink(logger.With("component", "audit")))
	}
	if s3cfg := cfg.Audit.S3; s3cfg.Bucket != "" {
		sc := audit.S3Config{
			Bucket:    s3cfg.Bucket,
			Region:    s3cfg.Region,
			Endpoint:  s3cfg.Endpoint,
			Prefix:    s3cfg.Prefix,
			PathStyle: s3cfg.PathStyle,
			BatchSize: s3cfg.BatchSize,
		}
		client, err := audit.NewS3Client(ctx, sc)
		if err != nil {
			return nil, err
		}
		s3sink, err := audit.NewS3Sink(client, sc)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s3sink)
	}
	return sinks, nil
}
