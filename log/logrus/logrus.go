// Package logrus adapts a logrus logger to the cache.Logger interface.
package logrus

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/recordhub/coherentcache/cache"
)

type Logger struct{ l *logrus.Logger }

// New wraps a *logrus.Logger.
func New(l *logrus.Logger) Logger {
	return Logger{l: l}
}

var _ cache.Logger = Logger{}

func (lr Logger) Debug(msg string, args ...any) { lr.l.WithFields(fields(args)).Debug(msg) }
func (lr Logger) Info(msg string, args ...any)  { lr.l.WithFields(fields(args)).Info(msg) }
func (lr Logger) Warn(msg string, args ...any)  { lr.l.WithFields(fields(args)).Warn(msg) }
func (lr Logger) Error(msg string, args ...any) { lr.l.WithFields(fields(args)).Error(msg) }

// fields converts alternating key-value args into logrus fields. A dangling
// value is kept under a synthetic key rather than dropped.
func fields(args []any) logrus.Fields {
	f := make(logrus.Fields, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		f[key] = args[i+1]
	}
	if len(args)%2 != 0 {
		f["arg"] = args[len(args)-1]
	}
	return f
}
