// Package scheduler provides the self-rescheduling timer that drives
// batch runs at fixed wall-clock times, kept separate from the pipeline
// so tests can trigger runs synchronously.
package scheduler

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Job is one scheduled batch entry point
type Job func(ctx context.Context) error

// NextRun computes the next occurrence of hour:minute strictly after now,
// in now's location.
func NextRun(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}

	return next
}

// Daily runs job at the given wall-clock time once per day until ctx is
// done. Job errors are logged and the loop reschedules; a broken run must
// not kill the worker.
func Daily(ctx context.Context, name string, hour, minute int, job Job, logger *logrus.Logger) {
	if logger == nil {
		logger = logrus.New()
	}

	go func() {
		for {
			next := NextRun(time.Now(), hour, minute)
			logger.WithFields(logrus.Fields{
				"job":  name,
				"next": next.Format(time.RFC3339),
			}).Info("Scheduled next run")

			timer := time.NewTimer(time.Until(next))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}

			if err := job(ctx); err != nil {
				logger.WithError(err).WithField("job", name).Error("Scheduled run failed")
			}
		}
	}()
}

// Every runs job on a fixed interval until ctx is done
func Every(ctx context.Context, name string, interval time.Duration, job Job, logger *logrus.Logger) {
	if logger == nil {
		logger = logrus.New()
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := job(ctx); err != nil {
					logger.WithError(err).WithField("job", name).Error("Scheduled run failed")
				}
			}
		}
	}()
}
