package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Log is the application-wide structured logger.
var Log = logrus.New()

// Init configures the logger with JSON output on stdout at info level.
func Init() {
	Log.SetOutput(os.Stdout)
	Log.SetFormatter(&logrus.JSONFormatter{})
	Log.SetLevel(logrus.InfoLevel)
}

// SetLevel switches the log level, keeping the current one if level is unknown.
func SetLevel(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		Log.WithField("level", level).Warn("Unknown log level, keeping current level")
		return
	}
	Log.SetLevel(lvl)
}
