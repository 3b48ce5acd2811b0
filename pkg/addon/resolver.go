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

// Package addon answers the catalog, stream and meta requests of a Stremio
// client from the cached playlist of its portal configuration.
package addon

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/jamesnetherton/m3u"
	"github.com/lucasduport/stalker-addon/pkg/generator"
	"github.com/lucasduport/stalker-addon/pkg/metrics"
	"github.com/lucasduport/stalker-addon/pkg/playlist"
	"github.com/lucasduport/stalker-addon/pkg/portal"
	"github.com/lucasduport/stalker-addon/pkg/session"
	"github.com/lucasduport/stalker-addon/pkg/types"
	"github.com/lucasduport/stalker-addon/pkg/utils"
)

const (
	// ContentType is the only Stremio type served.
	ContentType = "tv"
	// Genre tags every channel.
	Genre = "IPTV"
	// PageSize is the number of metas returned per catalog page.
	PageSize = 100
	// ConfigPlaceholderID identifies the meta shown to unconfigured clients.
	ConfigPlaceholderID = "config"

	channelDescription = "IPTV channel via Stalker portal"
	generationFailed   = "failed to generate channels"
	posterTextRunes    = 15
)

// DefaultPosterBaseURL renders the channel name on a plain background.
const DefaultPosterBaseURL = "https://via.placeholder.com/300x450/222/fff"

var errPlaylistMissing = errors.New("playlist missing")

// Options configures a Resolver.
type Options struct {
	AddonName     string
	PosterBaseURL string
}

// CatalogQuery holds the optional catalog arguments.
type CatalogQuery struct {
	Search string
	Skip   int
	Genre  string
}

// Resolver composes the generation coordinator and the playlist index.
type Resolver struct {
	coord *generator.Coordinator
	index *playlist.Index
	opts  Options
}

// NewResolver returns a resolver reading playlists through index and
// refreshing them through coord. Both must share the same store.
func NewResolver(coord *generator.Coordinator, index *playlist.Index, opts Options) *Resolver {
	if opts.PosterBaseURL == "" {
		opts.PosterBaseURL = DefaultPosterBaseURL
	}
	return &Resolver{coord: coord, index: index, opts: opts}
}

// Catalog lists the channels of cfg, generating the playlist when the cache
// is not fresh. It never fails: an unconfigured request gets a single
// placeholder meta and a failed generation an empty list with Error set.
func (r *Resolver) Catalog(ctx context.Context, cfg portal.Configuration, q CatalogQuery) types.CatalogResponse {
	if !cfg.Configured() {
		metrics.RecordRequest("catalog", "unconfigured")
		return types.CatalogResponse{Metas: []types.MetaPreview{configPlaceholder()}}
	}

	key := session.DeriveKey(cfg)
	if err := r.coord.EnsureFresh(ctx, cfg, key); err != nil {
		metrics.RecordRequest("catalog", "error")
		utils.WarnLog("Catalog for session %s unavailable: %v", key, err)
		return types.CatalogResponse{Metas: []types.MetaPreview{}, Error: generationFailed}
	}

	entries, err := r.index.Channels(key)
	if err != nil {
		metrics.RecordRequest("catalog", "error")
		utils.ErrorLog("Reading playlist for session %s: %v", key, err)
		return types.CatalogResponse{Metas: []types.MetaPreview{}, Error: generationFailed}
	}

	// every channel carries the single Genre
	if g := strings.TrimSpace(q.Genre); g != "" && !strings.EqualFold(g, Genre) {
		metrics.RecordRequest("catalog", "ok")
		return types.CatalogResponse{Metas: []types.MetaPreview{}}
	}

	search := strings.ToLower(strings.TrimSpace(q.Search))
	skip := q.Skip
	if skip < 0 {
		skip = 0
	}

	metas := make([]types.MetaPreview, 0, min(len(entries), PageSize))
	matched := 0
	for _, e := range entries {
		if search != "" && !strings.Contains(strings.ToLower(e.Name), search) {
			continue
		}
		matched++
		if matched <= skip {
			continue
		}
		metas = append(metas, r.metaFor(e))
		if len(metas) == PageSize {
			break
		}
	}

	metrics.RecordRequest("catalog", "ok")
	utils.DebugLog("Catalog for session %s: %d of %d channels (search=%q skip=%d)", key, len(metas), len(entries), q.Search, skip)
	return types.CatalogResponse{Metas: metas}
}

// Stream resolves a channel id to its locator. Unconfigured requests,
// missing playlists and unknown ids all yield no streams. A generation
// running for the same configuration is waited for, never started.
func (r *Resolver) Stream(ctx context.Context, cfg portal.Configuration, id string) []types.Stream {
	e, err := r.lookup(ctx, cfg, id)
	if err != nil {
		metrics.RecordRequest("stream", outcomeOf(err))
		return []types.Stream{}
	}
	metrics.RecordRequest("stream", "ok")
	return []types.Stream{{
		Name:          r.opts.AddonName,
		Title:         e.Name,
		URL:           e.Locator,
		BehaviorHints: &types.StreamBehaviorHints{NotWebReady: false},
	}}
}

// Meta returns the display record of a channel or nil when it is unknown.
func (r *Resolver) Meta(ctx context.Context, cfg portal.Configuration, id string) *types.MetaPreview {
	e, err := r.lookup(ctx, cfg, id)
	if err != nil {
		metrics.RecordRequest("meta", outcomeOf(err))
		return nil
	}
	metrics.RecordRequest("meta", "ok")
	meta := r.metaFor(e)
	return &meta
}

// Playlist re-emits the channels of cfg as an M3U playlist whose tvg-id tags
// carry the channel ids. The playlist is generated when needed.
func (r *Resolver) Playlist(ctx context.Context, cfg portal.Configuration) (*m3u.Playlist, error) {
	if !cfg.Configured() {
		return nil, generator.ErrUnconfigured
	}
	key := session.DeriveKey(cfg)
	if err := r.coord.EnsureFresh(ctx, cfg, key); err != nil {
		return nil, err
	}
	entries, err := r.index.Channels(key)
	if err != nil {
		return nil, err
	}

	pl := &m3u.Playlist{Tracks: make([]m3u.Track, 0, len(entries))}
	for _, e := range entries {
		pl.Tracks = append(pl.Tracks, m3u.Track{
			Name:   e.Name,
			Length: -1,
			URI:    e.Locator,
			Tags: []m3u.Tag{
				{Name: "tvg-id", Value: e.ID},
				{Name: "tvg-name", Value: e.Name},
				{Name: "tvg-logo", Value: r.Poster(e.Name)},
				{Name: "group-title", Value: cfg.ListNameOr(Genre)},
			},
		})
	}
	return pl, nil
}

func (r *Resolver) lookup(ctx context.Context, cfg portal.Configuration, id string) (playlist.Entry, error) {
	if !cfg.Configured() {
		return playlist.Entry{}, generator.ErrUnconfigured
	}
	key := session.DeriveKey(cfg)
	if err := r.coord.Wait(ctx, key); err != nil {
		utils.DebugLog("Gave up waiting for playlist of session %s: %v", key, err)
		return playlist.Entry{}, err
	}
	e, ok, err := r.index.Lookup(key, id)
	if err != nil {
		if !errors.Is(err, playlist.ErrNotFound) {
			utils.ErrorLog("Reading playlist for session %s: %v", key, err)
		}
		return playlist.Entry{}, errPlaylistMissing
	}
	if !ok {
		return playlist.Entry{}, playlist.ErrNotFound
	}
	return e, nil
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, generator.ErrUnconfigured):
		return "unconfigured"
	case errors.Is(err, errPlaylistMissing):
		return "no_cache"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "not_found"
	}
}

func (r *Resolver) metaFor(e playlist.Entry) types.MetaPreview {
	return types.MetaPreview{
		ID:          e.ID,
		Type:        ContentType,
		Name:        e.Name,
		Poster:      r.Poster(e.Name),
		Description: channelDescription,
		Genres:      []string{Genre},
	}
}

// Poster returns the placeholder artwork URL for a channel name.
func (r *Resolver) Poster(name string) string {
	text := []rune(name)
	if len(text) > posterTextRunes {
		text = text[:posterTextRunes]
	}
	return r.opts.PosterBaseURL + "?text=" + url.QueryEscape(string(text))
}

func configPlaceholder() types.MetaPreview {
	return types.MetaPreview{
		ID:          ConfigPlaceholderID,
		Type:        ContentType,
		Name:        "Configure the add-on",
		Poster:      DefaultPosterBaseURL + "?text=" + url.QueryEscape("Configure"),
		Description: "Open the add-on settings and enter your Stalker portal URL and MAC address.",
		Genres:      []string{Genre},
	}
}
