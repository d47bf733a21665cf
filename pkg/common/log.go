package common

import (
	"os"
	"sync/atomic"

	"github.com/charmbracelet/log"
)

var logger atomic.Pointer[log.Logger]

func init() {
	logger.Store(log.NewWithOptions(os.Stderr, log.Options{
		Prefix: "scorestream",
		Level:  log.WarnLevel,
	}))
}

// Logger returns the logger used for ambiguous-state warnings and debug tracing.
func Logger() *log.Logger {
	return logger.Load()
}

// SetLogger replaces the package logger. A nil logger is ignored.
func SetLogger(l *log.Logger) {
	if l != nil {
		logger.Store(l)
	}
}

// SetLevel parses level ("debug", "info", "warn", "error") and applies it to the
// current logger.
func SetLevel(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	Logger().SetLevel(lvl)
	return nil
}
