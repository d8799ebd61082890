// Package logging provides the process-wide logger for FaceWatch.
// It wraps logrus so all components log with a consistent format.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Logger is the shared logger instance.
var Logger *logrus.Logger

// Fields is an alias for logrus.Fields.
type Fields = logrus.Fields

func init() {
	Logger = logrus.New()
	Logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	Logger.SetOutput(os.Stderr)
	Logger.SetLevel(logrus.InfoLevel)
}

func parseLevel(level string) logrus.Level {
	switch level {
	case "debug":
		return logrus.DebugLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// Init sets the level and optionally mirrors output to a file.
func Init(level string, logFile string) error {
	Logger.SetLevel(parseLevel(level))

	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
			return err
		}
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return err
		}
		Logger.SetOutput(io.MultiWriter(os.Stderr, file))
	}

	return nil
}

// SetLevel sets the logging level by name.
func SetLevel(level string) {
	Logger.SetLevel(parseLevel(level))
}

// Debug logs a debug message.
func Debug(args ...interface{}) { Logger.Debug(args...) }

// Debugf logs a formatted debug message.
func Debugf(format string, args ...interface{}) { Logger.Debugf(format, args...) }

// Info logs an info message.
func Info(args ...interface{}) { Logger.Info(args...) }

// Infof logs a formatted info message.
func Infof(format string, args ...interface{}) { Logger.Infof(format, args...) }

// Warn logs a warning message.
func Warn(args ...interface{}) { Logger.Warn(args...) }

// Warnf logs a formatted warning message.
func Warnf(format string, args ...interface{}) { Logger.Warnf(format, args...) }

// Error logs an error message.
func Error(args ...interface{}) { Logger.Error(args...) }

// Errorf logs a formatted error message.
func Errorf(format string, args ...interface{}) { Logger.Errorf(format, args...) }

// WithFields returns an entry with fields attached.
func WithFields(fields Fields) *logrus.Entry {
	return Logger.WithFields(fields)
}

// WithField returns an entry with a single field attached.
func WithField(key string, value interface{}) *logrus.Entry {
	return Logger.WithField(key, value)
}

// WithError returns an entry with an error attached.
func WithError(err error) *logrus.Entry {
	return Logger.WithError(err)
}

// Component returns a logger entry tagged with a component name.
func Component(name string) *logrus.Entry {
	return Logger.WithField("component", name)
}
