package coordinator

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// cronLogger routes cron's own logging into logrus.
type cronLogger struct {
	logger *logrus.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(toFields(keysAndValues)).Debug("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(toFields(keysAndValues)).WithError(err).Error("cron: " + msg)
}

func toFields(keysAndValues []interface{}) logrus.Fields {
	fields := make(logrus.Fields, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}

// Start runs the first tick and then polls every PollInterval. A failing
// first tick is logged, not returned; the schedule keeps retrying.
func (c *Coordinator) Start(ctx context.Context) error {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	if c.scheduler != nil {
		return fmt.Errorf("coordinator is already running")
	}
	if c.ctx.Err() != nil {
		return ErrStopped
	}

	logger := cronLogger{logger: c.logger}
	scheduler := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(
			cron.SkipIfStillRunning(logger),
			cron.Recover(logger),
		),
	)
	spec := fmt.Sprintf("@every %s", c.opts.PollInterval)
	if _, err := scheduler.AddFunc(spec, c.scheduledTick); err != nil {
		return fmt.Errorf("failed to schedule poll %q: %w", spec, err)
	}

	if _, err := c.Refresh(ctx); err != nil {
		c.logger.WithError(err).Warn("Initial FileFlows refresh failed")
	}

	scheduler.Start()
	c.scheduler = scheduler
	c.logger.WithField("interval", c.opts.PollInterval).Info("FileFlows coordinator started")
	return nil
}

func (c *Coordinator) scheduledTick() {
	// errors are logged and recorded by the tick itself
	_, _ = c.Refresh(c.ctx)
}

// Stop halts polling, cancels any in-flight tick and waits for it to return
// or for ctx to expire.
func (c *Coordinator) Stop(ctx context.Context) error {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	c.cancel()
	if c.scheduler == nil {
		return nil
	}

	done := c.scheduler.Stop()
	c.scheduler = nil

	select {
	case <-done.Done():
		c.logger.Info("FileFlows coordinator stopped")
		return nil
	case <-ctx.Done():
		c.logger.Warn("Timeout waiting for FileFlows tick to finish")
		return ctx.Err()
	}
}
