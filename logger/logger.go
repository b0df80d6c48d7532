package logger

import (
	"os"
	"strings"

	"github.com/inconshreveable/log15/v3"
)

// New builds the process root logger. Unknown levels fall back to info.
func New(level, format string) log15.Logger {
	lvl, err := log15.LvlFromString(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = log15.LvlInfo
	}

	fmtr := log15.LogfmtFormat()
	if strings.EqualFold(format, "json") {
		fmtr = log15.JsonFormat()
	}

	root := log15.New("app", "standup-pulse")
	root.SetHandler(log15.LvlFilterHandler(lvl, log15.StreamHandler(os.Stdout, fmtr)))
	return root
}

// Discard returns a logger that drops every record. Used by tests.
func Discard() log15.Logger {
	l := log15.New()
	l.SetHandler(log15.DiscardHandler())
	return l
}

// CronLogger adapts a log15 logger to robfig/cron's Logger interface.
type CronLogger struct {
	Log log15.Logger
}

func (c CronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.Log.Debug(msg, keysAndValues...)
}

func (c CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.Log.Error(msg, append(keysAndValues, "err", err)...)
}
