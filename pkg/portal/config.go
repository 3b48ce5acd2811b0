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

// Package portal turns the loosely shaped portal credentials sent by clients
// into one canonical Configuration.
package portal

import (
	"strings"

	"github.com/lucasduport/stalker-addon/pkg/config"
	"github.com/lucasduport/stalker-addon/pkg/utils"
)

// Raw is a portal configuration exactly as a client supplied it.
type Raw struct {
	PortalURL  string `json:"stalker_portal" form:"stalker_portal"`
	MACAddress string `json:"stalker_mac" form:"stalker_mac"`
	Timezone   string `json:"stalker_timezone,omitempty" form:"stalker_timezone"`
	ListName   string `json:"list_name,omitempty" form:"list_name"`
}

// CredentialString is a secret-ish value that must not be logged verbatim.
type CredentialString string

func (c CredentialString) String() string {
	return string(c)
}

// Masked returns a log-safe rendering.
func (c CredentialString) Masked() string {
	return utils.MaskString(string(c))
}

// Configuration is a normalized portal configuration.
type Configuration struct {
	PortalURL  string
	MACAddress CredentialString
	Timezone   string
	ListName   string
}

// Configured reports whether both mandatory fields are present.
func (c Configuration) Configured() bool {
	return c.PortalURL != "" && c.MACAddress != ""
}

// ListNameOr returns the user's list label, or def when none was given.
func (c Configuration) ListNameOr(def string) string {
	if c.ListName == "" {
		return def
	}
	return c.ListName
}

// Raw converts the configuration back to its wire shape.
func (c Configuration) Raw() Raw {
	return Raw{
		PortalURL:  c.PortalURL,
		MACAddress: c.MACAddress.String(),
		Timezone:   c.Timezone,
		ListName:   c.ListName,
	}
}

// LogValue is a masked one-line summary for log messages.
func (c Configuration) LogValue() string {
	if !c.Configured() {
		return "unconfigured"
	}
	return "portal=" + utils.MaskURL(c.PortalURL) + " mac=" + c.MACAddress.Masked() + " tz=" + c.Timezone
}

// Normalize canonicalizes raw using the package default timezone.
func Normalize(raw Raw) Configuration {
	return NormalizeWithTimezone(raw, config.DefaultTimezone)
}

// NormalizeWithTimezone trims every field, upper-cases the MAC address and
// fills in defaultTZ when no timezone was given.
func NormalizeWithTimezone(raw Raw, defaultTZ string) Configuration {
	tz := strings.TrimSpace(raw.Timezone)
	if tz == "" {
		tz = strings.TrimSpace(defaultTZ)
	}
	if tz == "" {
		tz = config.DefaultTimezone
	}
	return Configuration{
		PortalURL:  strings.TrimSpace(raw.PortalURL),
		MACAddress: CredentialString(strings.ToUpper(strings.TrimSpace(raw.MACAddress))),
		Timezone:   tz,
		ListName:   strings.TrimSpace(raw.ListName),
	}
}
