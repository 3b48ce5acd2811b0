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

// Package config holds the process-level settings of the add-on server.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultTimezone is applied to portal configurations that carry none.
const DefaultTimezone = "Europe/Lisbon"

// DefaultFreshMinBytes is the smallest cached playlist considered usable.
const DefaultFreshMinBytes = 100

// HostConfiguration containt host infos
type HostConfiguration struct {
	Hostname string
	Port     int
}

// GeneratorConfig describes how the external playlist generator is launched.
type GeneratorConfig struct {
	// Command is the program and its leading arguments; the session key,
	// portal URL, MAC address and timezone are appended positionally.
	Command       []string
	WorkDir       string
	Timeout       time.Duration
	MaxConcurrent int
}

// AddonConfig is the server configuration assembled by the root command.
type AddonConfig struct {
	HostConfig     *HostConfiguration
	AdvertisedPort int
	HTTPS          bool

	CacheFolder     string
	DefaultTimezone string
	FreshMinBytes   int64
	PlaylistMaxAge  time.Duration

	Generator GeneratorConfig

	AddonName     string
	PosterBaseURL string
}

// Default returns the configuration used when no flag overrides a value.
func Default() *AddonConfig {
	return &AddonConfig{
		HostConfig:      &HostConfiguration{Port: 3000},
		CacheFolder:     "cache",
		DefaultTimezone: DefaultTimezone,
		FreshMinBytes:   DefaultFreshMinBytes,
		Generator: GeneratorConfig{
			Command: []string{"python3", "python/stalker_engine.py"},
			Timeout: 2 * time.Minute,
		},
		AddonName:     "Stalker IPTV (MAC)",
		PosterBaseURL: "https://via.placeholder.com/300x450/222/fff",
	}
}

// ParseCommand splits a generator command line on whitespace.
func ParseCommand(s string) []string {
	return strings.Fields(s)
}

// Validate reports the first setting that would prevent the server from starting.
func (c *AddonConfig) Validate() error {
	if c.HostConfig == nil {
		return errors.New("missing host configuration")
	}
	if c.HostConfig.Port <= 0 || c.HostConfig.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.HostConfig.Port)
	}
	if strings.TrimSpace(c.CacheFolder) == "" {
		return errors.New("cache folder must not be empty")
	}
	if len(c.Generator.Command) == 0 {
		return errors.New("generator command must not be empty")
	}
	if c.Generator.Timeout <= 0 {
		return fmt.Errorf("generator timeout must be positive, got %s", c.Generator.Timeout)
	}
	if c.Generator.MaxConcurrent < 0 {
		return fmt.Errorf("generator max concurrent must be >= 0, got %d", c.Generator.MaxConcurrent)
	}
	if c.FreshMinBytes < 0 {
		return fmt.Errorf("fresh min bytes must be >= 0, got %d", c.FreshMinBytes)
	}
	if c.PlaylistMaxAge < 0 {
		return fmt.Errorf("playlist max age must be >= 0, got %s", c.PlaylistMaxAge)
	}
	return nil
}
