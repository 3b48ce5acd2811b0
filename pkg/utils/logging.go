/*
 * stalker-addon exposes a Stalker/MAG IPTV portal as a Stremio TV catalog.
 * Copyright (C) 2025  Lucas Duport
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LogConfig describes how the process logger is set up.
type LogConfig struct {
	Level        string    // debug, info, warn, error
	DebugLogging bool      // forces debug level when Level is empty
	FilePath     string    // optional log file, appended to
	Output       io.Writer // defaults to stdout
	Service      string
}

var (
	logMu   sync.RWMutex
	logger  zerolog.Logger
	logFile *os.File
)

func init() {
	// Environment defaults; the root command reconfigures from flags.
	ConfigureLogging(LogConfig{
		Level:        os.Getenv("LOG_LEVEL"),
		DebugLogging: os.Getenv("DEBUG_LOGGING") == "true",
		FilePath:     os.Getenv("LOG_FILE"),
	})
}

// ConfigureLogging replaces the process logger. Safe to call more than once.
func ConfigureLogging(cfg LogConfig) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(cfg.Level)); err == nil {
			level = parsed
		}
	} else if cfg.DebugLogging {
		level = zerolog.DebugLevel
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	logMu.Lock()
	defer logMu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	if cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating log directory: %v\n", err)
		} else if f, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
		} else {
			logFile = f
			out = io.MultiWriter(out, f)
		}
	}

	service := cfg.Service
	if service == "" {
		service = "stalker-addon"
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	logger = zerolog.New(out).Level(level).With().
		Timestamp().
		Str("service", service).
		Logger()
}

// Close closes any open log files
func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

// Logger returns the configured zerolog logger for callers that want structured fields.
func Logger() zerolog.Logger {
	logMu.RLock()
	defer logMu.RUnlock()
	return logger
}

// IsDebugLogEnabled reports whether debug messages are emitted.
func IsDebugLogEnabled() bool {
	return Logger().GetLevel() <= zerolog.DebugLevel
}

// InfoLog logs an info message
func InfoLog(format string, v ...interface{}) {
	logWithCaller(zerolog.InfoLevel, format, v...)
}

// WarnLog logs a warning message
func WarnLog(format string, v ...interface{}) {
	logWithCaller(zerolog.WarnLevel, format, v...)
}

// DebugLog logs a debug message if debug logging is enabled
func DebugLog(format string, v ...interface{}) {
	logWithCaller(zerolog.DebugLevel, format, v...)
}

// ErrorLog logs an error message
func ErrorLog(format string, v ...interface{}) {
	logWithCaller(zerolog.ErrorLevel, format, v...)
}

func logWithCaller(level zerolog.Level, format string, v ...interface{}) {
	l := Logger()
	ev := l.WithLevel(level)
	if ev == nil {
		return
	}
	if _, file, line, ok := runtime.Caller(2); ok {
		ev = ev.Str("caller", fmt.Sprintf("%s:%d", filepath.Base(file), line))
	}
	ev.Msgf(format, v...)
}
