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

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 3000, cfg.HostConfig.Port)
	assert.Equal(t, DefaultTimezone, cfg.DefaultTimezone)
	assert.EqualValues(t, DefaultFreshMinBytes, cfg.FreshMinBytes)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AddonConfig)
		wantErr string
	}{
		{"missing host", func(c *AddonConfig) { c.HostConfig = nil }, "missing host configuration"},
		{"port zero", func(c *AddonConfig) { c.HostConfig.Port = 0 }, "invalid port 0"},
		{"port too large", func(c *AddonConfig) { c.HostConfig.Port = 70000 }, "invalid port 70000"},
		{"empty cache folder", func(c *AddonConfig) { c.CacheFolder = "  " }, "cache folder"},
		{"empty command", func(c *AddonConfig) { c.Generator.Command = nil }, "generator command"},
		{"zero timeout", func(c *AddonConfig) { c.Generator.Timeout = 0 }, "generator timeout"},
		{"negative concurrency", func(c *AddonConfig) { c.Generator.MaxConcurrent = -1 }, "max concurrent"},
		{"negative min bytes", func(c *AddonConfig) { c.FreshMinBytes = -1 }, "fresh min bytes"},
		{"negative max age", func(c *AddonConfig) { c.PlaylistMaxAge = -time.Second }, "playlist max age"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseCommand(t *testing.T) {
	assert.Equal(t, []string{"python3", "engine.py", "--verbose"}, ParseCommand("  python3  engine.py\t--verbose "))
	assert.Empty(t, ParseCommand("   "))
}
