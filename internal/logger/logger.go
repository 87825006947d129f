package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

var root = logrus.New()

func init() {
	root.SetOutput(os.Stdout)
	root.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Default to info; development gets debug output
	if os.Getenv("ENV") == "development" {
		root.SetLevel(logrus.DebugLevel)
	} else {
		root.SetLevel(logrus.InfoLevel)
	}
}

// Init reconfigures the root logger from the given level name and format.
// Called once at startup; an unknown level falls back to info.
func Init(level string, jsonFormat bool) {
	if jsonFormat {
		root.SetFormatter(&logrus.JSONFormatter{})
	}

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		root.SetLevel(logrus.InfoLevel)
		root.WithField("log_level", level).Warn("specified invalid log level")
		return
	}
	root.SetLevel(parsed)
}

// New creates a logger entry for a specific component
func New(component string) *logrus.Entry {
	return root.WithField("component", component)
}
