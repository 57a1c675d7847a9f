// File: internal/jobs/scheduler.go
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Func is the unit of work run on each tick.
type Func func(ctx context.Context) error

// Scheduler runs named periodic jobs. A run that is still going when the next
// tick arrives causes that tick to be skipped.
type Scheduler struct {
	cron    *cron.Cron
	logger  *zap.Logger
	timeout time.Duration

	mu      sync.Mutex
	started bool
	stopped bool
}

// NewScheduler creates a Scheduler whose job runs are bounded by timeout.
func NewScheduler(logger *zap.Logger, timeout time.Duration) *Scheduler {
	named := logger.Named("Scheduler")
	cl := NewCronLogger(named.Named("cron"))
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger:  named,
		timeout: timeout,
	}
}

// Add schedules fn under spec, e.g. "@every 30s". An empty spec disables the job.
func (s *Scheduler) Add(name, spec string, fn Func) error {
	log := s.logger.With(zap.String("job", name))
	if spec == "" {
		log.Warn("Job schedule not defined. Job will not run.")
		return nil
	}

	jobID, err := s.cron.AddFunc(spec, func() { s.run(name, fn) })
	if err != nil {
		log.Error("Failed to schedule job", zap.String("spec", spec), zap.Error(err))
		return fmt.Errorf("scheduling %s: %w", name, err)
	}
	log.Info("Job scheduled", zap.String("spec", spec), zap.Any("jobID", jobID))
	return nil
}

func (s *Scheduler) run(name string, fn Func) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	if err := fn(ctx); err != nil {
		s.logger.Warn("Job run failed", zap.String("job", name), zap.Duration("took", time.Since(start)), zap.Error(err))
		return
	}
	s.logger.Debug("Job run completed", zap.String("job", name), zap.Duration("took", time.Since(start)))
}

// Start runs the scheduler in the background. It is a no-op after Stop.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true
	s.cron.Start()
}

// Stop prevents further ticks and waits for running jobs, up to ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.mu.Unlock()

	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
		s.logger.Debug("Scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
		return ctx.Err()
	}
}

// --- Cron Logger Adapter ---

// cronLogger adapts zap.Logger to cron.Logger interface.
type cronLogger struct {
	zl *zap.Logger
}

// NewCronLogger creates a new cronLogger.
func NewCronLogger(zl *zap.Logger) cron.Logger {
	return &cronLogger{zl: zl}
}

// Info logs cron's routine wake/run messages at debug; they fire on every tick.
func (cl *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	cl.zl.Debug(msg, cl.parseKeysAndValues(keysAndValues...)...)
}

func (cl *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := cl.parseKeysAndValues(keysAndValues...)
	fields = append(fields, zap.Error(err))
	cl.zl.Error(msg, fields...)
}

func (cl *cronLogger) parseKeysAndValues(keysAndValues ...interface{}) []zap.Field {
	var fields []zap.Field
	for i := 0; i < len(keysAndValues); i += 2 {
		if i+1 < len(keysAndValues) {
			fields = append(fields, zap.Any(fmt.Sprintf("%v", keysAndValues[i]), keysAndValues[i+1]))
		} else {
			fields = append(fields, zap.Any(fmt.Sprintf("%v", keysAndValues[i]), "MISSING_VALUE"))
		}
	}
	return fields
}
