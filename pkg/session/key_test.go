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

package session

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/lucasduport/stalker-addon/pkg/portal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func configured() portal.Configuration {
	return portal.Normalize(portal.Raw{
		PortalURL:  "http://portal.example/c/",
		MACAddress: "00:1A:79:00:00:01",
		Timezone:   "Europe/Paris",
	})
}

func TestDeriveKeyDeterministic(t *testing.T) {
	first := DeriveKey(configured())
	second := DeriveKey(configured())

	require.True(t, first.Valid(), "key %q", first)
	assert.Equal(t, first, second)
	assert.Len(t, first.String(), KeyLength)
}

func TestDeriveKeyNormalizedInputs(t *testing.T) {
	noisy := portal.Normalize(portal.Raw{
		PortalURL:  "  http://portal.example/c/ ",
		MACAddress: "00:1a:79:00:00:01",
		Timezone:   "Europe/Paris ",
	})
	assert.Equal(t, DeriveKey(configured()), DeriveKey(noisy))
}

func TestDeriveKeyIgnoresListName(t *testing.T) {
	named := configured()
	named.ListName = "Living room"
	assert.Equal(t, DeriveKey(configured()), DeriveKey(named))
}

func TestDeriveKeyDistinguishesFields(t *testing.T) {
	base := DeriveKey(configured())

	otherTZ := configured()
	otherTZ.Timezone = "Europe/Lisbon"
	assert.NotEqual(t, base, DeriveKey(otherTZ))

	otherMAC := configured()
	otherMAC.MACAddress = "00:1A:79:00:00:02"
	assert.NotEqual(t, base, DeriveKey(otherMAC))

	otherPortal := configured()
	otherPortal.PortalURL = "http://other.example/c/"
	assert.NotEqual(t, base, DeriveKey(otherPortal))
}

func TestDeriveKeyUnconfigured(t *testing.T) {
	assert.Equal(t, DefaultKey, DeriveKey(portal.Configuration{}))
	assert.Equal(t, DefaultKey, DeriveKey(portal.Normalize(portal.Raw{PortalURL: "http://portal.example/c/"})))
	assert.False(t, DefaultKey.Valid())
}

func TestKeyValid(t *testing.T) {
	tests := []struct {
		key   Key
		valid bool
	}{
		{"0123456789abcdef", true},
		{"0123456789ABCDEF", false},
		{"0123456789abcde", false},
		{"0123456789abcdef0", false},
		{"../../etc/passwd", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.valid, tt.key.Valid(), "key %q", tt.key)
	}
}

func TestDeriveKeyMatchesPlainJSONOfSortedFields(t *testing.T) {
	cfg := portal.Normalize(portal.Raw{
		PortalURL:  "http://portal.example/c/?a=1&b=<2>",
		MACAddress: "00:1A:79:00:00:01",
		Timezone:   "Europe/Paris",
	})

	canonical := `{"stalker_mac":"00:1A:79:00:00:01","stalker_portal":"http://portal.example/c/?a=1&b=<2>","stalker_timezone":"Europe/Paris"}`
	sum := sha256.Sum256([]byte(canonical))
	assert.Equal(t, Key(hex.EncodeToString(sum[:])[:KeyLength]), DeriveKey(cfg))
}
