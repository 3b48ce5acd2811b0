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
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// IDPrefix namespaces every channel id.
const IDPrefix = "channel_"

// IDFor derives the channel id of a display name: diacritics stripped,
// every rune outside [A-Za-z0-9] replaced by '_', runs of '_' collapsed,
// lower-cased and prefixed with IDPrefix.
//
// Example: "Canal Ação HD" → "channel_canal_acao_hd"
func IDFor(name string) string {
	return IDPrefix + strings.ToLower(slug(stripMarks(name)))
}

func stripMarks(s string) string {
	// transformers keep state, so build one per call
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func slug(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastUnderscore := false
	for _, r := range s {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return b.String()
}

// idAllocator applies the duplicate-name policy of one playlist: the first
// channel with a given id keeps it, later ones get _2, _3, ... appended,
// skipping any id already handed out.
type idAllocator struct {
	used map[string]struct{}
	next map[string]int
}

func newIDAllocator() *idAllocator {
	return &idAllocator{
		used: make(map[string]struct{}),
		next: make(map[string]int),
	}
}

func (a *idAllocator) allocate(name string) string {
	base := IDFor(name)
	if _, taken := a.used[base]; !taken {
		a.used[base] = struct{}{}
		return base
	}
	n := a.next[base]
	if n < 2 {
		n = 2
	}
	stem := strings.TrimRight(base, "_")
	for {
		candidate := stem + "_" + strconv.Itoa(n)
		n++
		if _, taken := a.used[candidate]; !taken {
			a.next[base] = n
			a.used[candidate] = struct{}{}
			return candidate
		}
	}
}
