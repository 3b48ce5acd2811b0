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
	"iter"
	"strings"
)

// UnknownChannelName is used for #EXTINF lines that carry no name.
const UnknownChannelName = "Unknown Channel"

const extinfMarker = "#EXTINF"

// Entry is one channel of a playlist.
type Entry struct {
	ID      string
	Name    string
	Locator string
}

// Entries lazily walks an extended M3U playlist. Each #EXTINF line names the
// next channel (text after its last comma) and the following non-blank,
// non-comment line is that channel's locator. Locators without a pending
// name and names never followed by a locator are dropped. Ranging over the
// result again restarts from the top.
func Entries(text string) iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		ids := newIDAllocator()
		pending := ""
		hasPending := false

		rest := text
		for len(rest) > 0 {
			var line string
			if i := strings.IndexByte(rest, '\n'); i >= 0 {
				line, rest = rest[:i], rest[i+1:]
			} else {
				line, rest = rest, ""
			}
			line = strings.TrimSpace(line)

			switch {
			case line == "":
				continue
			case strings.HasPrefix(line, extinfMarker):
				pending = channelName(line)
				hasPending = true
			case strings.HasPrefix(line, "#"):
				continue
			case hasPending:
				e := Entry{ID: ids.allocate(pending), Name: pending, Locator: line}
				pending, hasPending = "", false
				if !yield(e) {
					return
				}
			}
		}
	}
}

// Parse collects Entries(text) in playlist order.
func Parse(text string) []Entry {
	var out []Entry
	for e := range Entries(text) {
		out = append(out, e)
	}
	return out
}

func channelName(extinf string) string {
	idx := strings.LastIndex(extinf, ",")
	if idx == -1 {
		return UnknownChannelName
	}
	name := strings.TrimSpace(extinf[idx+1:])
	if name == "" {
		return UnknownChannelName
	}
	return name
}
