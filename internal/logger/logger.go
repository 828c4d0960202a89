// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package logger

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/Thermoquad/tc420ctl/internal/config"
	"github.com/Thermoquad/tc420ctl/pkg/tc420"
)

// Log is the CLI logger
type Log struct {
	*logrus.Entry
}

// Fields are a representation of formatted log fields.
type Fields map[string]interface{}

// New creates a logger writing to out. Progress output owns stdout, so the
// CLI passes stderr.
func New(cfg config.LogConf, out io.Writer) (*Log, error) {
	log := logrus.New()
	log.SetOutput(out)

	log.Formatter = &logrus.TextFormatter{
		TimestampFormat:  "2006-01-02 15:04:05.0000",
		FullTimestamp:    true,
		QuoteEmptyFields: true,
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("logger: bad level %q: %w", cfg.Level, err)
	}
	log.SetLevel(level)
	log.Debug("set level: ", level)

	return &Log{Entry: log.WithFields(nil)}, nil
}

// With will add the fields to the formatted log entry.
func (l *Log) With(fields Fields) *Log {
	return &Log{Entry: l.WithFields(logrus.Fields(fields))}
}

// GetLevel returns the current level name
func (l *Log) GetLevel() string {
	return l.Logger.Level.String()
}

// KV adapts the logger to the key/value interface taken by pkg/tc420.
func (l *Log) KV() tc420.Logger {
	return kvLogger{entry: l.Entry}
}

type kvLogger struct {
	entry *logrus.Entry
}

func (k kvLogger) Debug(msg string, keysAndValues ...interface{}) {
	k.with(keysAndValues).Debug(msg)
}

func (k kvLogger) Info(msg string, keysAndValues ...interface{}) {
	k.with(keysAndValues).Info(msg)
}

func (k kvLogger) Error(msg string, keysAndValues ...interface{}) {
	k.with(keysAndValues).Error(msg)
}

// with pairs up keysAndValues. A trailing key without a value is logged
// under "extra".
func (k kvLogger) with(keysAndValues []interface{}) *logrus.Entry {
	if len(keysAndValues) == 0 {
		return k.entry
	}
	fields := make(logrus.Fields, len(keysAndValues)/2+1)
	for i := 0; i < len(keysAndValues); i += 2 {
		if i+1 == len(keysAndValues) {
			fields["extra"] = keysAndValues[i]
			break
		}
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return k.entry.WithFields(fields)
}
