package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

const DefaultLogFileName = "glclone.log"

var Log = logrus.New()

// LevelFromVerbosity maps the number of -v flags to a log level.
func LevelFromVerbosity(verbosity int) logrus.Level {
	switch {
	case verbosity <= 0:
		return logrus.ErrorLevel
	case verbosity == 1:
		return logrus.WarnLevel
	case verbosity == 2:
		return logrus.InfoLevel
	case verbosity == 3:
		return logrus.DebugLevel
	default:
		return logrus.TraceLevel
	}
}

// InitLogger configures the process-wide logger. An empty logFilePath keeps
// logging on stderr.
func InitLogger(verbosity int, logFilePath string) error {
	Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	Log.SetLevel(LevelFromVerbosity(verbosity))

	if logFilePath == "" {
		Log.SetOutput(os.Stderr)
		return nil
	}

	file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", logFilePath, err)
	}
	Log.SetOutput(file)
	Log.Debugf("Logging at %s level to %s", Log.GetLevel(), logFilePath)
	return nil
}

func GetLogFilePath(logFilePath string) string {
	path, err := filepath.Abs(logFilePath)
	if err != nil {
		return logFilePath
	}
	return path
}
