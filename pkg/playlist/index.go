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

package playlist

import (
	"sync"
	"time"

	"github.com/lucasduport/stalker-addon/pkg/session"
)

type indexEntry struct {
	mtime   time.Time
	size    int64
	entries []Entry
	byID    map[string]int
}

// Index caches parsed playlists per session key. An entry is rebuilt when
// the file's modification time or size changes.
type Index struct {
	store *Store

	mu   sync.RWMutex
	keys map[session.Key]*indexEntry
}

// NewIndex returns an empty index over store.
func NewIndex(store *Store) *Index {
	return &Index{
		store: store,
		keys:  make(map[session.Key]*indexEntry),
	}
}

// Store returns the backing store.
func (x *Index) Store() *Store {
	return x.store
}

func (x *Index) ensure(key session.Key) (*indexEntry, error) {
	info, err := x.store.stat(key)
	if err != nil {
		x.mu.Lock()
		delete(x.keys, key)
		x.mu.Unlock()
		return nil, err
	}

	// Fast path: unchanged
	x.mu.RLock()
	cur := x.keys[key]
	x.mu.RUnlock()
	if cur != nil && cur.mtime.Equal(info.ModTime()) && cur.size == info.Size() {
		return cur, nil
	}

	text, err := x.store.Read(key)
	if err != nil {
		return nil, err
	}
	entries := Parse(text)
	byID := make(map[string]int, len(entries))
	for i, e := range entries {
		if _, dup := byID[e.ID]; !dup {
			byID[e.ID] = i
		}
	}
	built := &indexEntry{
		mtime:   info.ModTime(),
		size:    info.Size(),
		entries: entries,
		byID:    byID,
	}

	x.mu.Lock()
	x.keys[key] = built
	x.mu.Unlock()
	return built, nil
}

// Channels returns the entries of key's playlist in playlist order. The
// returned slice is shared and must not be modified.
func (x *Index) Channels(key session.Key) ([]Entry, error) {
	ie, err := x.ensure(key)
	if err != nil {
		return nil, err
	}
	return ie.entries, nil
}

// Lookup returns the first entry of key's playlist with the given id.
func (x *Index) Lookup(key session.Key, id string) (Entry, bool, error) {
	ie, err := x.ensure(key)
	if err != nil {
		return Entry{}, false, err
	}
	i, ok := ie.byID[id]
	if !ok {
		return Entry{}, false, nil
	}
	return ie.entries[i], true, nil
}
