package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/btimofeyev/tutor-ai-core/internal/config"
	"github.com/btimofeyev/tutor-ai-core/internal/database"
	"github.com/btimofeyev/tutor-ai-core/internal/llm"
	"github.com/btimofeyev/tutor-ai-core/internal/scheduler"
	"github.com/btimofeyev/tutor-ai-core/internal/services"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	command := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		// Fatal configuration failure: abort before any learner is touched
		logger.WithError(err).Fatal("Invalid configuration")
	}

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	if err := database.RunMigrations(cfg.Database); err != nil {
		logger.WithError(err).Fatal("Failed to run migrations")
	}

	client, err := llm.NewOpenAIClient(cfg.LLM)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create completion client")
	}

	svc := services.NewServices(cfg, db.DB, client, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch command {
	case "serve":
		runServe(ctx, cfg, svc, logger)
	case "digest":
		runDigest(ctx, svc, logger, os.Args[2:])
	case "summarize", "cleanup":
		result, err := svc.Pipeline.RunBatchCleanup(ctx)
		if err != nil {
			logger.WithError(err).Fatal("Batch cleanup failed")
		}
		logger.WithFields(logrus.Fields{
			"summaries_written":    result.SummariesWritten,
			"summaries_purged":     result.SummariesPurged,
			"notifications_purged": result.NotificationsPurged,
			"failed":               result.Report.Failed,
		}).Info("Cleanup complete")
	default:
		usage()
		os.Exit(2)
	}
}

func runServe(ctx context.Context, cfg *config.Config, svc *services.Services, logger *logrus.Logger) {
	svc.Sessions.StartSweeper(ctx, time.Duration(cfg.Session.SweepIntervalMinutes)*time.Minute)

	scheduler.Every(ctx, "batch-cleanup",
		time.Duration(cfg.Batch.CleanupIntervalHours)*time.Hour,
		func(ctx context.Context) error {
			_, err := svc.Pipeline.RunBatchCleanup(ctx)
			return err
		}, logger)

	scheduler.Daily(ctx, "daily-digest", cfg.Digest.RunHour, cfg.Digest.RunMinute,
		func(ctx context.Context) error {
			_, err := svc.Pipeline.GenerateDailySummaries(ctx, time.Time{})
			return err
		}, logger)

	logger.Info("Worker started")
	<-ctx.Done()
	logger.Info("Worker stopping")
}

func runDigest(ctx context.Context, svc *services.Services, logger *logrus.Logger, args []string) {
	fs := flag.NewFlagSet("digest", flag.ExitOnError)
	dateStr := fs.String("date", "", "target date (YYYY-MM-DD), defaults to yesterday")
	fs.Parse(args)

	var date time.Time
	if *dateStr != "" {
		parsed, err := time.Parse("2006-01-02", *dateStr)
		if err != nil {
			logger.WithError(err).Fatal("Invalid -date value")
		}
		date = parsed
	}

	result, err := svc.Pipeline.GenerateDailySummaries(ctx, date)
	if err != nil {
		logger.WithError(err).Fatal("Digest run failed")
	}

	logger.WithFields(logrus.Fields{
		"date":      result.Date.Format("2006-01-02"),
		"learners":  result.TotalLearners,
		"generated": result.DigestsGenerated,
		"skipped":   result.Skipped,
		"failed":    result.Report.Failed,
	}).Info("Digest complete")
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: worker <command>

commands:
  serve       run the scheduler loop (session sweeps, cleanup, daily digest)
  digest      generate parent digests for one date (-date YYYY-MM-DD)
  cleanup     summarize ended conversations and purge expired data
  summarize   alias for cleanup`)
}
