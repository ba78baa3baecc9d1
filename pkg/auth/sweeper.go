package auth

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/questlog/questlog/pkg/observability"
)

// DefaultSweepInterval is how often revoked tokens are checked for expiry
const DefaultSweepInterval = 60 * time.Second

// Sweeper periodically removes expired entries from a RevocationRegistry
type Sweeper struct {
	registry RevocationRegistry
	interval time.Duration
	now      func() time.Time
	logger   *observability.Logger
	metrics  *observability.Metrics

	cron *cron.Cron
	ctx  context.Context
}

// NewSweeper creates a sweeper. The clock is usually Codec.Now so sweeps and
// validation agree on the current time.
func NewSweeper(registry RevocationRegistry, interval time.Duration, now func() time.Time, logger *observability.Logger, metrics *observability.Metrics) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if now == nil {
		now = time.Now
	}
	s := &Sweeper{
		registry: registry,
		interval: interval,
		now:      now,
		logger:   logger.WithField("component", "revocation_sweeper"),
		metrics:  metrics,
		ctx:      context.Background(),
	}

	cl := cronLogger{logger: s.logger}
	s.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	s.cron.Schedule(cron.Every(interval), cron.FuncJob(s.run))

	return s
}

// Start begins sweeping on the configured interval. Sweeps stop using ctx
// once it is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
	s.logger.Infof("Revocation sweep scheduled every %s", s.interval)
}

// Stop halts the schedule and waits for an in-flight sweep or ctx expiry
func (s *Sweeper) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(s.ctx, s.interval)
	defer cancel()
	_, _ = s.RunOnce(ctx)
}

// RunOnce performs a single sweep and records its outcome
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	start := time.Now()

	removed, err := s.registry.Sweep(ctx, s.now())
	if err != nil {
		s.metrics.RecordSweep(0, 0, time.Since(start), err)
		s.logger.WithError(err).Error("Revocation sweep failed")
		return 0, err
	}

	remaining, err := s.registry.Len(ctx)
	if err != nil {
		s.metrics.RecordSweep(removed, 0, time.Since(start), err)
		s.logger.WithError(err).Warn("Failed to count revoked tokens after sweep")
		return removed, nil
	}

	s.metrics.RecordSweep(removed, remaining, time.Since(start), nil)
	if removed > 0 {
		s.logger.WithFields(map[string]interface{}{
			"removed":   removed,
			"remaining": remaining,
		}).Info("Revocation sweep removed expired tokens")
	}
	return removed, nil
}

// cronLogger adapts the structured logger to cron.Logger
type cronLogger struct {
	logger *observability.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(kvFields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.WithError(err).WithFields(kvFields(keysAndValues)).Error(msg)
}

func kvFields(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			fields[key] = keysAndValues[i+1]
		}
	}
	return fields
}
