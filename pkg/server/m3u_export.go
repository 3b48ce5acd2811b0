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

package server

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/jamesnetherton/m3u"
)

var (
	lineBreaks = strings.NewReplacer("\n", " ", "\r", " ")

	// M3U readers take a tag value verbatim up to the next double quote
	tagQuotes = strings.NewReplacer(`"`, "'", "\n", " ", "\r", " ")
)

func tagValue(v string) string {
	return tagQuotes.Replace(v)
}

// writePlaylist marshals pl as an extended M3U playlist.
func writePlaylist(into io.Writer, pl *m3u.Playlist) error {
	w := bufio.NewWriter(into)
	w.WriteString("#EXTM3U\n") // nolint: errcheck
	for _, track := range pl.Tracks {
		var buffer bytes.Buffer

		buffer.WriteString("#EXTINF:")                       // nolint: errcheck
		buffer.WriteString(fmt.Sprintf("%d ", track.Length)) // nolint: errcheck
		for i := range track.Tags {
			if i == len(track.Tags)-1 {
				buffer.WriteString(fmt.Sprintf(`%s="%s"`, track.Tags[i].Name, tagValue(track.Tags[i].Value))) // nolint: errcheck
				continue
			}
			buffer.WriteString(fmt.Sprintf(`%s="%s" `, track.Tags[i].Name, tagValue(track.Tags[i].Value))) // nolint: errcheck
		}

		// names and locators are single-line by construction, keep it that way
		name := lineBreaks.Replace(track.Name)
		fmt.Fprintf(w, "%s,%s\n%s\n", strings.TrimRight(buffer.String(), " "), name, track.URI) // nolint: errcheck
	}
	return w.Flush()
}
