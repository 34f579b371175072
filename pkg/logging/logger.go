package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger wraps logrus with structured logging for the price tracker
type Logger struct {
	*logrus.Logger
}

// NewLogger creates a new structured logger configured for container environments
func NewLogger(level, format string) *Logger {
	logger := logrus.New()

	// Set log level
	switch strings.ToLower(level) {
	case "debug":
		logger.SetLevel(logrus.DebugLevel)
	case "info":
		logger.SetLevel(logrus.InfoLevel)
	case "warn", "warning":
		logger.SetLevel(logrus.WarnLevel)
	case "error":
		logger.SetLevel(logrus.ErrorLevel)
	case "fatal":
		logger.SetLevel(logrus.FatalLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	// Set output format
	switch strings.ToLower(format) {
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	default:
		// Default to JSON for containers
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	}

	// Set output (stdout for containers)
	logger.SetOutput(os.Stdout)

	return &Logger{Logger: logger}
}

// WithComponent adds a component field to all log entries
func (l *Logger) WithComponent(component string) *logrus.Entry {
	return l.WithField("component", component)
}

// WithWiki adds price API context to log entries
func (l *Logger) WithWiki() *logrus.Entry {
	return l.WithField("component", "wiki_api")
}

// WithItem adds per-item context to log entries
func (l *Logger) WithItem(itemID int) *logrus.Entry {
	return l.WithField("item_id", itemID)
}

// WithError adds error context
func (l *Logger) WithError(err error) *logrus.Entry {
	return l.WithField("error", err.Error())
}

// SetOutput sets the logger output destination
func (l *Logger) SetOutput(output io.Writer) {
	l.Logger.SetOutput(output)
}

// APICall logs price API call attempts
func (l *Logger) APICall(endpoint string, method string) {
	l.WithWiki().WithFields(logrus.Fields{
		"endpoint": endpoint,
		"method":   method,
	}).Debug("API call initiated")
}

// APIError logs price API call failures. statusCode is 0 when the
// request never produced a response.
func (l *Logger) APIError(endpoint string, err error, statusCode int) {
	l.WithWiki().WithFields(logrus.Fields{
		"endpoint":    endpoint,
		"status_code": statusCode,
		"error":       err.Error(),
	}).Error("API call failed")
}

// RefreshComplete logs a completed assembly cycle
func (l *Logger) RefreshComplete(rows int, durationSeconds float64) {
	l.WithComponent("refresher").WithFields(logrus.Fields{
		"rows":             rows,
		"duration_seconds": durationSeconds,
	}).Info("Row refresh completed")
}

// RefreshError logs a failed assembly cycle
func (l *Logger) RefreshError(err error, consecutiveFails int) {
	l.WithComponent("refresher").WithFields(logrus.Fields{
		"error":             err.Error(),
		"consecutive_fails": consecutiveFails,
	}).Error("Row refresh failed")
}
