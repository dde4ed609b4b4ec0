// Copyright ©2024 The Bribbon Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rlog provides rank-prefixed logging on top of the standard
// library log package: every fatal diagnostic is emitted to standard
// error with the rank id prefix.
package rlog

import (
	"fmt"
	"log"
	"os"
)

// Level controls which messages Logger.Debugf emits.
type Level int

const (
	LevelError Level = iota
	LevelInfo
	LevelDebug
)

// ParseLevel maps a CLI-supplied string to a Level, defaulting to
// LevelInfo for an unrecognised value.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger writes rank-prefixed messages to standard error.
type Logger struct {
	rank  int
	level Level
	out   *log.Logger
}

// New returns a Logger for the given rank, writing to os.Stderr with no
// built-in timestamp (runs are batch jobs; the summary records wall-clock
// time separately).
func New(rank int, level Level) *Logger {
	return &Logger{
		rank:  rank,
		level: level,
		out:   log.New(os.Stderr, "", 0),
	}
}

func (l *Logger) prefix() string {
	return fmt.Sprintf("rank %d: ", l.rank)
}

// Infof logs at LevelInfo or above.
func (l *Logger) Infof(format string, args ...interface{}) {
	if l.level < LevelInfo {
		return
	}
	l.out.Printf(l.prefix()+format, args...)
}

// Debugf logs only when the logger's level is LevelDebug.
func (l *Logger) Debugf(format string, args ...interface{}) {
	if l.level < LevelDebug {
		return
	}
	l.out.Printf(l.prefix()+format, args...)
}

// Fatalf logs unconditionally and then exits the process with a non-zero
// status, aborting the whole communicator.
func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.out.Printf(l.prefix()+format, args...)
	os.Exit(1)
}
