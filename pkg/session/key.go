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

// Package session derives the cache key that addresses every artifact
// generated for one portal configuration.
package session

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"regexp"

	"github.com/lucasduport/stalker-addon/pkg/portal"
)

// KeyLength is the number of hex characters kept from the digest.
const KeyLength = 16

// DefaultKey addresses the unconfigured state.
const DefaultKey Key = "_default"

// Key identifies a normalized portal configuration.
type Key string

func (k Key) String() string {
	return string(k)
}

var keyPattern = regexp.MustCompile(`^[0-9a-f]{16}$`)

// Valid reports whether k has the shape DeriveKey produces for a configured
// portal. DefaultKey is not valid.
func (k Key) Valid() bool {
	return keyPattern.MatchString(string(k))
}

// DeriveKey hashes the canonical form of cfg. The result only depends on the
// normalized portal URL, MAC address and timezone; ListName is a label and
// does not take part.
func DeriveKey(cfg portal.Configuration) Key {
	if !cfg.Configured() {
		return DefaultKey
	}

	// encoding/json sorts map keys, which fixes the field order. URLs keep
	// their &, < and > unescaped.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(map[string]string{
		"stalker_portal":   cfg.PortalURL,
		"stalker_mac":      cfg.MACAddress.String(),
		"stalker_timezone": cfg.Timezone,
	}); err != nil {
		// map[string]string always encodes
		panic(err)
	}
	canonical := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))

	sum := sha256.Sum256(canonical)
	return Key(hex.EncodeToString(sum[:])[:KeyLength])
}
