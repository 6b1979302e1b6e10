// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/samber/oops"
	"github.com/sirupsen/logrus"
)

// New returns a logger writing to w. format is "text" (default) or "json".
func New(level, format string, w io.Writer) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(w)

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	if strings.TrimSpace(level) == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	logger.SetLevel(lvl)
	return logger, nil
}

// WithError attaches err to the entry, lifting its oops code and context into fields.
func WithError(logger logrus.FieldLogger, err error) *logrus.Entry {
	entry := logger.WithError(err)
	if oopsErr, ok := oops.AsOops(err); ok {
		fields := logrus.Fields{}
		if code := fmt.Sprint(oopsErr.Code()); code != "" && code != "<nil>" {
			fields["code"] = code
		}
		for k, v := range oopsErr.Context() {
			fields[k] = v
		}
		entry = entry.WithFields(fields)
	}
	return entry
}

// MigrationLogger sends schema migration output through logrus. It satisfies goose.Logger.
type MigrationLogger struct {
	logger logrus.FieldLogger
}

func NewMigrationLogger(logger logrus.FieldLogger) *MigrationLogger {
	return &MigrationLogger{logger: logger.WithField("component", "migrate")}
}

func (l *MigrationLogger) Printf(format string, v ...any) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l *MigrationLogger) Fatalf(format string, v ...any) {
	l.logger.Fatal(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
