// Package zap adapts a zap logger to the cache.Logger interface.
package zap

import (
	"go.uber.org/zap"

	"github.com/recordhub/coherentcache/cache"
)

type Logger struct{ s *zap.SugaredLogger }

// New wraps a *zap.Logger.
func New(l *zap.Logger) Logger {
	return Logger{s: l.Sugar()}
}

var _ cache.Logger = Logger{}

func (z Logger) Debug(msg string, args ...any) { z.s.Debugw(msg, args...) }
func (z Logger) Info(msg string, args ...any)  { z.s.Infow(msg, args...) }
func (z Logger) Warn(msg string, args ...any)  { z.s.Warnw(msg, args...) }
func (z Logger) Error(msg string, args ...any) { z.s.Errorw(msg, args...) }
