// Copyright 2022~2024 wangqi. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package util

import (
	"context"
	"io"
	"log/slog"
	"os"
)

const (
	LevelTrace = slog.Level(-8)
	LevelFatal = slog.Level(12)
	DebugLevel = 1
	TraceLevel = 2
)

var Logger *myLogger
var levelNames = map[slog.Leveler]string{
	LevelTrace: "TRACE",
	LevelFatal: "FATAL",
}

type myLogger struct {
	*slog.Logger
	addSource bool
	logLevel  *slog.LevelVar
}

func init() {
	// default logger write to stderr
	Logger = new(myLogger)
	Logger.logLevel = new(slog.LevelVar)
	Logger.SetLevel(slog.LevelInfo)
	Logger.AddSource(false)
	Logger.SetOutput(os.Stderr)
}

func (l *myLogger) SetLevel(v slog.Level) {
	l.logLevel.Set(v)
}

// SetVerbose maps the command line verbose count to a log level:
// 0 is info, 1 is debug, 2 and above is trace.
func (l *myLogger) SetVerbose(verbose int) {
	switch {
	case verbose >= TraceLevel:
		l.SetLevel(LevelTrace)
	case verbose == DebugLevel:
		l.SetLevel(slog.LevelDebug)
	default:
		l.SetLevel(slog.LevelInfo)
	}
}

func (l *myLogger) AddSource(add bool) {
	l.addSource = add
}

func replaceLevel(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		level := a.Value.Any().(slog.Level)
		levelLabel, exists := levelNames[level]
		if !exists {
			levelLabel = level.String()
		}

		a.Value = slog.StringValue(levelLabel)
	}

	return a
}

func (l *myLogger) SetOutput(w io.Writer) {
	ho := &slog.HandlerOptions{
		AddSource:   l.addSource,
		Level:       l.logLevel,
		ReplaceAttr: replaceLevel,
	}
	l.Logger = slog.New(slog.NewTextHandler(w, ho)).With("pid", os.Getpid())
	slog.SetDefault(l.Logger)
}

// open (or create) the named file in append mode and send the log to it.
// the caller owns the returned file.
func (l *myLogger) SetOutputFile(name string) (*os.File, error) {
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return nil, err
	}
	l.SetOutput(f)
	return f, nil
}

// create a logger with fixed level, it doesn't change the default slog logger.
func (l *myLogger) CreateLogger(w io.Writer, source bool, level slog.Level) {
	ho := &slog.HandlerOptions{
		AddSource:   source,
		Level:       level,
		ReplaceAttr: replaceLevel,
	}
	l.Logger = slog.New(slog.NewTextHandler(w, ho)).With("pid", os.Getpid())
}

func (l *myLogger) Trace(msg string, args ...any) {
	l.Logger.Log(context.Background(), LevelTrace, msg, args...)
}
