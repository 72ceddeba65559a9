package core

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var once sync.Once

type logger struct {
	*log.Logger
}

var singleton *logger

// NewLogger builds a logger with the engine's default options. The renderer
// and its drawables receive one of these instead of using the package helpers.
func NewLogger(w io.Writer, level log.Level, prefix string) *log.Logger {
	l := log.NewWithOptions(w, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          prefix,
	})
	l.SetLevel(level)
	return l
}

func getLogger() *logger {
	if singleton == nil {
		once.Do(
			func() {
				singleton = &logger{NewLogger(os.Stderr, log.DebugLevel, "Viking 🛡️ ")}
			})
	}
	return singleton
}

// Logger exposes the shared engine logger.
func Logger() *log.Logger {
	return getLogger().Logger
}

// SetLogLevel parses a level name ("debug", "info", "warn", "error", "fatal")
// and applies it to the shared logger.
func SetLogLevel(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	getLogger().SetLevel(lvl)
	return nil
}

func LogDebug(msg string, args ...interface{}) {
	getLogger().Debugf(msg, args...)
}

func LogInfo(msg string, args ...interface{}) {
	getLogger().Infof(msg, args...)
}

func LogWarn(msg string, args ...interface{}) {
	getLogger().Warnf(msg, args...)
}

func LogError(msg string, args ...interface{}) {
	getLogger().Errorf(msg, args...)
}

func LogFatal(msg string, args ...interface{}) {
	getLogger().Fatalf(msg, args...)
}
