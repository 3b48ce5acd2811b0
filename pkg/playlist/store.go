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

// Package playlist owns the cached playlists on disk and turns them into
// channel entries.
package playlist

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/renameio/v2"
	"github.com/lucasduport/stalker-addon/pkg/session"
	"github.com/lucasduport/stalker-addon/pkg/utils"
)

// ErrNotFound is returned when no playlist is cached for a key.
var ErrNotFound = errors.New("playlist not cached")

// FileSuffix is appended to the session key to name its playlist file.
const FileSuffix = "_m3u.m3u"

// DefaultMinBytes is the default freshness threshold.
const DefaultMinBytes = 100

// CachedPlaylist describes a playlist file without its content.
type CachedPlaylist struct {
	Key          session.Key `json:"key"`
	Path         string      `json:"path"`
	SizeBytes    int64       `json:"size_bytes"`
	LastModified time.Time   `json:"last_modified"`
	Fresh        bool        `json:"fresh"`
}

// Store is the file-backed playlist cache. One file per session key lives
// in a single flat directory that is created on first use.
type Store struct {
	root     string
	minBytes int64
	maxAge   time.Duration
	now      func() time.Time

	dirMu    sync.Mutex
	dirReady bool
}

// StoreOption customizes a Store.
type StoreOption func(*Store)

// WithMinBytes sets the size a playlist must reach to be fresh.
func WithMinBytes(n int64) StoreOption {
	return func(s *Store) { s.minBytes = n }
}

// WithMaxAge additionally treats playlists older than d as stale. Zero disables the check.
func WithMaxAge(d time.Duration) StoreOption {
	return func(s *Store) { s.maxAge = d }
}

// NewStore returns a store rooted at root. Nothing touches the disk until first use.
func NewStore(root string, opts ...StoreOption) *Store {
	s := &Store{
		root:     root,
		minBytes: DefaultMinBytes,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the cache directory.
func (s *Store) Root() string {
	return s.root
}

// Path returns where the playlist of key lives.
func (s *Store) Path(key session.Key) string {
	return filepath.Join(s.root, key.String()+FileSuffix)
}

// EnsureDir creates the cache directory once. A failed attempt is retried on the next call.
func (s *Store) EnsureDir() error {
	s.dirMu.Lock()
	defer s.dirMu.Unlock()
	if s.dirReady {
		return nil
	}
	if err := os.MkdirAll(s.root, 0755); err != nil {
		return fmt.Errorf("create cache dir %s: %w", s.root, err)
	}
	s.dirReady = true
	utils.DebugLog("Cache directory ready: %s", s.root)
	return nil
}

func (s *Store) stat(key session.Key) (os.FileInfo, error) {
	if err := s.EnsureDir(); err != nil {
		return nil, err
	}
	info, err := os.Stat(s.Path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, ErrNotFound
	}
	return info, nil
}

// Exists reports whether a playlist file is present for key, whatever its size.
func (s *Store) Exists(key session.Key) bool {
	_, err := s.stat(key)
	return err == nil
}

// IsFresh reports whether the cached playlist of key may be served without
// regeneration: it exists, holds at least the minimum number of bytes and,
// when a max age is configured, is recent enough.
func (s *Store) IsFresh(key session.Key) bool {
	info, err := s.stat(key)
	if err != nil {
		return false
	}
	return s.fresh(info)
}

func (s *Store) fresh(info os.FileInfo) bool {
	if info.Size() < s.minBytes {
		return false
	}
	if s.maxAge > 0 && s.now().Sub(info.ModTime()) > s.maxAge {
		return false
	}
	return true
}

// Stat describes the cached playlist of key.
func (s *Store) Stat(key session.Key) (CachedPlaylist, error) {
	info, err := s.stat(key)
	if err != nil {
		return CachedPlaylist{}, err
	}
	return s.describe(key, info), nil
}

func (s *Store) describe(key session.Key, info os.FileInfo) CachedPlaylist {
	return CachedPlaylist{
		Key:          key,
		Path:         s.Path(key),
		SizeBytes:    info.Size(),
		LastModified: info.ModTime(),
		Fresh:        s.fresh(info),
	}
}

// Read returns the raw playlist text of key.
func (s *Store) Read(key session.Key) (string, error) {
	if err := s.EnsureDir(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(s.Path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("read playlist %s: %w", key, err)
	}
	return string(data), nil
}

// Write atomically replaces the playlist of key; readers see either the old
// or the new content, never a partial file.
func (s *Store) Write(key session.Key, text string) error {
	if err := s.EnsureDir(); err != nil {
		return err
	}
	if err := renameio.WriteFile(s.Path(key), []byte(text), 0644); err != nil {
		return fmt.Errorf("write playlist %s: %w", key, err)
	}
	return nil
}

// List describes every cached playlist, sorted by key.
func (s *Store) List() ([]CachedPlaylist, error) {
	if err := s.EnsureDir(); err != nil {
		return nil, err
	}
	dirEntries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("list cache dir: %w", err)
	}

	out := make([]CachedPlaylist, 0, len(dirEntries))
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || !strings.HasSuffix(name, FileSuffix) {
			continue
		}
		key := session.Key(strings.TrimSuffix(name, FileSuffix))
		info, err := de.Info()
		if err != nil {
			continue
		}
		out = append(out, s.describe(key, info))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
