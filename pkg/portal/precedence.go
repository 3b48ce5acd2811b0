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

package portal

import (
	"errors"

	"github.com/lucasduport/stalker-addon/pkg/utils"
)

// Origin tells which request source produced a configuration.
type Origin int

const (
	OriginNone Origin = iota
	OriginSaved
	OriginInline
	OriginLegacy
)

func (o Origin) String() string {
	switch o {
	case OriginSaved:
		return "saved"
	case OriginInline:
		return "inline"
	case OriginLegacy:
		return "legacy"
	default:
		return "none"
	}
}

// Sources collects every place a request may carry portal settings.
type Sources struct {
	// Token references a configuration saved through the configure page.
	Token string
	// Inline holds stalker_* fields sent with the request itself.
	Inline Raw
	// Legacy holds payloads from older clients (config, userData, extra),
	// already in precedence order.
	Legacy []Raw
}

// SavedLookup resolves a token to a saved configuration.
type SavedLookup interface {
	Load(token string) (Raw, error)
}

// Loader applies the one precedence order used by every resolver:
// saved config by token, then inline fields, then legacy payloads.
// The first source that normalizes to a configured Configuration wins.
type Loader struct {
	Saved           SavedLookup
	DefaultTimezone string
}

// Load resolves src. It never fails: an unusable source falls through to
// the next one and the result is unconfigured when none qualifies.
func (l *Loader) Load(src Sources) (Configuration, Origin) {
	if src.Token != "" && l.Saved != nil {
		raw, err := l.Saved.Load(src.Token)
		switch {
		case err == nil:
			if cfg := l.normalize(raw); cfg.Configured() {
				return cfg, OriginSaved
			}
			utils.WarnLog("Saved config %s is incomplete, ignoring it", utils.MaskString(src.Token))
		case errors.Is(err, ErrTokenNotFound), errors.Is(err, ErrInvalidToken):
			utils.DebugLog("No saved config for token %s", utils.MaskString(src.Token))
		default:
			utils.ErrorLog("Loading saved config %s: %v", utils.MaskString(src.Token), err)
		}
	}

	if cfg := l.normalize(src.Inline); cfg.Configured() {
		return cfg, OriginInline
	}

	for _, raw := range src.Legacy {
		if cfg := l.normalize(raw); cfg.Configured() {
			return cfg, OriginLegacy
		}
	}

	return l.normalize(Raw{}), OriginNone
}

func (l *Loader) normalize(raw Raw) Configuration {
	return NormalizeWithTimezone(raw, l.DefaultTimezone)
}
