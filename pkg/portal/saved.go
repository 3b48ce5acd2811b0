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
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/lucasduport/stalker-addon/pkg/utils"
	uuid "github.com/satori/go.uuid"
)

var (
	// ErrTokenNotFound is returned when no configuration was saved under a token.
	ErrTokenNotFound = errors.New("saved config not found")
	// ErrInvalidToken is returned for tokens that cannot name a saved config file.
	ErrInvalidToken = errors.New("invalid config token")
	// ErrIncomplete is returned when saving a configuration without portal or MAC.
	ErrIncomplete = errors.New("portal URL and MAC address are required")
)

var tokenPattern = regexp.MustCompile(`^[0-9a-f]{16,64}$`)

// SavedStore keeps configurations submitted through the configure page as
// config_<token>.json files so clients only need to carry the token.
type SavedStore struct {
	root string
}

// NewSavedStore returns a store writing under root.
func NewSavedStore(root string) *SavedStore {
	return &SavedStore{root: root}
}

func (s *SavedStore) path(token string) string {
	return filepath.Join(s.root, "config_"+token+".json")
}

// NewToken returns a fresh random token.
func NewToken() string {
	return strings.ReplaceAll(uuid.NewV4().String(), "-", "")
}

// Save normalizes raw, persists it and returns the token that references it.
func (s *SavedStore) Save(raw Raw) (string, error) {
	cfg := Normalize(raw)
	if !cfg.Configured() {
		return "", ErrIncomplete
	}

	data, err := json.MarshalIndent(cfg.Raw(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode saved config: %w", err)
	}
	if err := os.MkdirAll(s.root, 0755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}

	token := NewToken()
	if err := renameio.WriteFile(s.path(token), data, 0600); err != nil {
		return "", fmt.Errorf("write saved config: %w", err)
	}
	utils.InfoLog("Saved config %s (%s)", utils.MaskString(token), cfg.LogValue())
	return token, nil
}

// Load returns the configuration saved under token.
func (s *SavedStore) Load(token string) (Raw, error) {
	token = strings.ToLower(strings.TrimSpace(token))
	if !tokenPattern.MatchString(token) {
		return Raw{}, ErrInvalidToken
	}

	data, err := os.ReadFile(s.path(token))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Raw{}, ErrTokenNotFound
		}
		return Raw{}, fmt.Errorf("read saved config: %w", err)
	}

	var raw Raw
	if err := json.Unmarshal(data, &raw); err != nil {
		return Raw{}, fmt.Errorf("decode saved config %s: %w", utils.MaskString(token), err)
	}
	return raw, nil
}
