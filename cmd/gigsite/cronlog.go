package main

import (
	"github.com/robfig/cron/v3"

	appLog "gigsite/internal/log"
)

// cronLogger routes the scheduler's own messages through appLog so they land
// in the same stream and rotating file as everything else.
type cronLogger struct{}

var _ cron.Logger = cronLogger{}

// Info carries cron's chatty start/run/skip lines; they go out at debug level.
func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
