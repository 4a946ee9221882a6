package taskmanager

import (
	"context"
	"fmt"
	"time"

	"github.com/Fishwaldo/go-taskmanager"
	"github.com/go-logr/logr"
)

var scheduler *taskmanager.Scheduler

func InitScheduler(log logr.Logger) {
	scheduler = taskmanager.NewScheduler(
		taskmanager.WithLogger(log),
	)
}

// Every schedules job to run at a fixed interval under name.
func Every(name string, interval time.Duration, job func(context.Context)) error {
	if scheduler == nil {
		return fmt.Errorf("scheduler not initialised, can't add %s", name)
	}
	fixedTimer, err := taskmanager.NewFixed(interval)
	if err != nil {
		return fmt.Errorf("invalid interval for %s: %w", name, err)
	}
	return scheduler.Add(context.Background(), name, fixedTimer, job)
}

func StartScheduler() bool {
	scheduler.StartAll()
	return true
}

func GetScheduler() *taskmanager.Scheduler {
	return scheduler
}

func StopScheduler() {
	if scheduler == nil {
		return
	}
	scheduler.StopAll()
}
