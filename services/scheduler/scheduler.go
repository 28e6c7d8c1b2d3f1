// Package scheduler runs the periodic jobs of the API process.
package scheduler

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/academia/core"
)

// RetryDrainer re-evaluates the users whose completion evaluation failed.
type RetryDrainer interface {
	RetryPending(ctx context.Context) (int, error)
}

type Scheduler struct {
	cron   *cron.Cron
	retry  RetryDrainer
	logger core.Logger
}

// New schedules the completion retry drain on conf.Completion.RetrySchedule.
// A run is skipped while the previous one is still going.
func New(conf *core.Config, retry RetryDrainer, logger core.Logger) (*Scheduler, error) {
	cl := cronLogger{logger: logger}
	s := &Scheduler{
		cron:   cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		retry:  retry,
		logger: logger,
	}
	if _, err := s.cron.AddFunc(conf.Completion.RetrySchedule, s.DrainRetries); err != nil {
		return nil, errors.Wrapf(err, "scheduling completion retries %q", conf.Completion.RetrySchedule)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and returns a context done once the running jobs complete.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) DrainRetries() {
	done, err := s.retry.RetryPending(context.Background())
	if err != nil {
		s.logger.Error("scheduler: draining completion retries", err)
		return
	}
	if done > 0 {
		s.logger.Info(fmt.Sprintf("scheduler: re-evaluated %d user(s)", done))
	}
}

// cronLogger adapts core.Logger to cron.Logger.
type cronLogger struct {
	logger core.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, kvMap(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, err, kvMap(keysAndValues))
}

func kvMap(keysAndValues []interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		m[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return m
}
