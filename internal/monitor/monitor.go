// Package monitor periodically reports vocabulary counters in long running modes.
package monitor

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/bastiangx/wordtrie/internal/logger"
	"github.com/charmbracelet/log"
	"github.com/go-co-op/gocron/v2"
)

// StatsSource is anything with counters to report.
type StatsSource interface {
	Stats() map[string]int
}

// Sink receives every stats snapshot.
type Sink func(stats map[string]int)

// Reporter runs a single stats job on a gocron scheduler.
type Reporter struct {
	scheduler gocron.Scheduler
}

// Start schedules source to be reported every interval. A nil sink logs the
// snapshot. The first report happens one interval after Start.
func Start(source StatsSource, interval time.Duration, sink Sink) (*Reporter, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("stats interval must be positive, got %v", interval)
	}
	if sink == nil {
		sink = LogSink()
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to init stats scheduler: %w", err)
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { sink(source.Stats()) }),
		gocron.WithName("stats report"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		scheduler.Shutdown()
		return nil, fmt.Errorf("failed to schedule stats report: %w", err)
	}

	scheduler.Start()
	return &Reporter{scheduler: scheduler}, nil
}

// Stop shuts the scheduler down, waiting for a running report to finish.
func (r *Reporter) Stop() error {
	return r.scheduler.Shutdown()
}

// LogSink logs snapshots on a "stats" prefixed logger with keys in sorted order.
// Reports are asked for explicitly, so they print at any global level.
func LogSink() Sink {
	l := logger.NewWithConfig("stats", log.InfoLevel, false, true, log.TextFormatter)
	return func(stats map[string]int) {
		keyvals := make([]any, 0, 2*len(stats))
		for _, k := range slices.Sorted(maps.Keys(stats)) {
			keyvals = append(keyvals, k, stats[k])
		}
		l.Info("vocabulary", keyvals...)
	}
}
