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
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"unicode/utf8"
)

// ErrorDetailLevel represents the level of error detail to display
type ErrorDetailLevel int

const (
	// ErrorDetailNone suppresses printing; errors still carry file:line
	ErrorDetailNone ErrorDetailLevel = iota
	// ErrorDetailSimple prefixes errors with file, line and function (default)
	ErrorDetailSimple
	// ErrorDetailFull adds the goroutine stack
	ErrorDetailFull
)

// getErrorDetailLevel reads ERROR_DETAIL_LEVEL from the environment
func getErrorDetailLevel() ErrorDetailLevel {
	switch strings.ToLower(os.Getenv("ERROR_DETAIL_LEVEL")) {
	case "none":
		return ErrorDetailNone
	case "full":
		return ErrorDetailFull
	default:
		return ErrorDetailSimple
	}
}

// locate annotates err with the location of the caller skip frames up.
// The returned error wraps err so errors.Is/As keep working.
func locate(err error, skip int) error {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return fmt.Errorf("error occurred: %w", err)
	}
	fnName := "unknown"
	if fn := runtime.FuncForPC(pc); fn != nil {
		fnName = fn.Name()
	}

	if getErrorDetailLevel() == ErrorDetailFull {
		buf := make([]byte, 4096)
		n := runtime.Stack(buf, false)
		stack := strings.SplitN(string(buf[:n]), "\n", 2)
		trace := ""
		if len(stack) == 2 {
			trace = stack[1]
		}
		return fmt.Errorf("\nError Location:\n  File: %s\n  Line: %d\n  Function: %s\nError Details:\n  %w\nStack Trace:\n%s",
			filepath.Base(file), line, fnName, err, trace)
	}

	return fmt.Errorf("%s:%d [%s]: %w", filepath.Base(file), line, filepath.Base(fnName), err)
}

// ErrorWithLocation wraps an error with location information based on detail level
func ErrorWithLocation(err error) error {
	if err == nil {
		return nil
	}
	return locate(err, 2)
}

// PrintErrorAndReturn logs the located error (unless the detail level is none) and returns it
func PrintErrorAndReturn(err error) error {
	if err == nil {
		return nil
	}
	wrapped := locate(err, 2)
	if getErrorDetailLevel() != ErrorDetailNone {
		ErrorLog("%v", wrapped)
	}
	return wrapped
}

// TruncateDiagnostic keeps at most max bytes of s, cut on a rune boundary,
// with surrounding whitespace removed.
func TruncateDiagnostic(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "... [truncated]"
}
