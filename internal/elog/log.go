// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2026 the ebusd-go authors

// Package elog provides the leveled logging used across the daemon,
// wrapping the standard library's log.Logger the way the bus protocol
// and transport layers already log with log.Printf.
package elog

import (
	"io"
	"log"
	"os"
)

// Level is a logging severity, ordered from least to most severe.
type Level int

const (
	// LevelDebug is for symbol-by-symbol bus tracing.
	LevelDebug Level = iota
	// LevelInfo is for normal operational events: scans, seen addresses.
	LevelInfo
	// LevelNotice is for noteworthy but non-error events.
	LevelNotice
	// LevelError is for failures that affect correctness or availability.
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelNotice:
		return "NOTICE"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses the level names accepted in configuration and
// command-line flags.
func ParseLevel(s string) (Level, bool) {
	switch s {
	case "debug":
		return LevelDebug, true
	case "info":
		return LevelInfo, true
	case "notice":
		return LevelNotice, true
	case "error":
		return LevelError, true
	default:
		return 0, false
	}
}

// Logger filters log.Logger output by level.
type Logger struct {
	min Level
	log *log.Logger
}

// New creates a Logger writing to w, suppressing anything below min.
func New(w io.Writer, min Level) *Logger {
	return &Logger{min: min, log: log.New(w, "", log.LstdFlags)}
}

// Default creates a Logger writing to stderr at LevelInfo.
func Default() *Logger {
	return New(os.Stderr, LevelInfo)
}

// SetLevel changes the minimum level that will be printed.
func (l *Logger) SetLevel(level Level) { l.min = level }

func (l *Logger) printf(level Level, format string, args ...any) {
	if l == nil || level < l.min {
		return
	}
	l.log.Printf("["+level.String()+"] "+format, args...)
}

// Debugf logs at LevelDebug.
func (l *Logger) Debugf(format string, args ...any) { l.printf(LevelDebug, format, args...) }

// Infof logs at LevelInfo.
func (l *Logger) Infof(format string, args ...any) { l.printf(LevelInfo, format, args...) }

// Noticef logs at LevelNotice.
func (l *Logger) Noticef(format string, args ...any) { l.printf(LevelNotice, format, args...) }

// Errorf logs at LevelError.
func (l *Logger) Errorf(format string, args ...any) { l.printf(LevelError, format, args...) }
