package daemon

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	// maintenanceSchedule is when finished file transfers are forgotten
	maintenanceSchedule = "@every 10m"

	streamRetention = time.Hour
)

// EventLoop runs periodic maintenance on a cron schedule
type EventLoop struct {
	daemon    *Daemon
	scheduler *cron.Cron
}

// NewEventLoop creates a new event loop
func NewEventLoop(d *Daemon) *EventLoop {
	return &EventLoop{
		daemon:    d,
		scheduler: cron.New(),
	}
}

// Start schedules the maintenance job and starts the scheduler
func (e *EventLoop) Start() error {
	if _, err := e.scheduler.AddFunc(maintenanceSchedule, e.processTasks); err != nil {
		return fmt.Errorf("failed to schedule maintenance: %w", err)
	}
	e.scheduler.Start()

	e.daemon.logger.Info().Str("schedule", maintenanceSchedule).Msg("Event loop started")
	return nil
}

// Stop stops the scheduler and waits for a running job
func (e *EventLoop) Stop() {
	<-e.scheduler.Stop().Done()
	e.daemon.logger.Info().Msg("Event loop stopped")
}

// processTasks processes periodic maintenance tasks
func (e *EventLoop) processTasks() {
	if e.daemon.telegramCmd != nil {
		removed := e.daemon.telegramCmd.Streams().CleanupFinished(streamRetention)
		if removed > 0 {
			e.daemon.logger.Debug().Int("removed", removed).Msg("Forgot finished file transfers")
		}
	}
}
