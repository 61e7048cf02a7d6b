package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/config"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/constants"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/metrics"
)

// ExpiredTokenPurger removes token records that expired before a cutoff.
type ExpiredTokenPurger interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// RequestLogPurger removes request logs older than a cutoff.
type RequestLogPurger interface {
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// Reaper periodically deletes expired token records and old request logs.
// Blacklisted records are kept until they expire so that a replayed token
// still reports revoked instead of unknown.
type Reaper struct {
	tokens              ExpiredTokenPurger
	requestLogs         RequestLogPurger
	tokenRetention      time.Duration
	requestLogRetention time.Duration
	metrics             *metrics.Metrics
	now                 func() time.Time
	cron                *cron.Cron
}

// NewReaper creates a Reaper. requestLogs may be nil, and a zero request log
// retention keeps request logs forever.
func NewReaper(tokens ExpiredTokenPurger, requestLogs RequestLogPurger, cfg config.MaintenanceSettings, m *metrics.Metrics) *Reaper {
	return &Reaper{
		tokens:              tokens,
		requestLogs:         requestLogs,
		tokenRetention:      cfg.TokenRetention,
		requestLogRetention: cfg.RequestLogRetention,
		metrics:             m,
		now:                 time.Now,
	}
}

// Run performs one housekeeping pass and returns the rows deleted per table.
func (r *Reaper) Run(ctx context.Context) (map[string]int64, error) {
	start := time.Now()
	now := r.now().UTC()
	deleted := make(map[string]int64, 2)

	count, err := r.tokens.DeleteExpired(ctx, now.Add(-r.tokenRetention))
	if err != nil {
		return deleted, fmt.Errorf("failed to purge expired tokens: %w", err)
	}
	deleted[constants.TableTokens] = count

	if r.requestLogs != nil && r.requestLogRetention > 0 {
		count, err = r.requestLogs.DeleteOlderThan(ctx, now.Add(-r.requestLogRetention))
		if err != nil {
			return deleted, fmt.Errorf("failed to purge request logs: %w", err)
		}
		deleted[constants.TableRequestLogs] = count
	}

	elapsed := time.Since(start)
	r.metrics.ReaperRun(deleted, elapsed)
	log.Info().
		Int64("tokens_deleted", deleted[constants.TableTokens]).
		Int64("request_logs_deleted", deleted[constants.TableRequestLogs]).
		Dur("duration", elapsed).
		Msg("Housekeeping completed")

	return deleted, nil
}

// Start schedules Run on a cron spec such as "@every 1h" or "0 3 * * *".
func (r *Reaper) Start(schedule string) error {
	if schedule == "" {
		schedule = constants.DefaultReaperSchedule
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, r.runScheduled); err != nil {
		return fmt.Errorf("invalid maintenance schedule %q: %w", schedule, err)
	}

	r.cron = c
	c.Start()
	log.Info().Str("schedule", schedule).Msg("Housekeeping scheduled")
	return nil
}

// Stop halts the schedule and waits for a running pass to finish or ctx to
// expire.
func (r *Reaper) Stop(ctx context.Context) {
	if r.cron == nil {
		return
	}
	select {
	case <-r.cron.Stop().Done():
	case <-ctx.Done():
		log.Warn().Msg("Housekeeping still running at shutdown")
	}
}

func (r *Reaper) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), constants.MaintenanceTaskTimeout)
	defer cancel()

	if _, err := r.Run(ctx); err != nil {
		log.Error().Err(err).Msg("Housekeeping failed")
	}
}
