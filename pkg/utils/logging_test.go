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
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLevels(t *testing.T) {
	var buf bytes.Buffer
	ConfigureLogging(LogConfig{Level: "warn", Output: &buf})
	t.Cleanup(func() { ConfigureLogging(LogConfig{}) })

	DebugLog("debug %d", 1)
	InfoLog("info %d", 2)
	WarnLog("warn %d", 3)
	ErrorLog("error %d", 4)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "warn 3", entry["message"])
	assert.Equal(t, "stalker-addon", entry["service"])
	assert.Contains(t, entry["caller"], "logging_test.go:")
	assert.False(t, IsDebugLogEnabled())
}

func TestDebugLoggingFlag(t *testing.T) {
	var buf bytes.Buffer
	ConfigureLogging(LogConfig{DebugLogging: true, Output: &buf})
	t.Cleanup(func() { ConfigureLogging(LogConfig{}) })

	assert.True(t, IsDebugLogEnabled())
	DebugLog("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "addon.log")
	var buf bytes.Buffer
	ConfigureLogging(LogConfig{Output: &buf, FilePath: path})
	InfoLog("to file")
	Close()
	ConfigureLogging(LogConfig{})

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
	assert.Contains(t, buf.String(), "to file")
}
