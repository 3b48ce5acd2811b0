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

package types

// APIResponse is a standardized API response structure
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Manifest describes the add-on to Stremio clients
type Manifest struct {
	ID            string                 `json:"id"`
	Version       string                 `json:"version"`
	Name          string                 `json:"name"`
	Description   string                 `json:"description"`
	Resources     []string               `json:"resources"`
	Types         []string               `json:"types"`
	Catalogs      []ManifestCatalog      `json:"catalogs"`
	IDPrefixes    []string               `json:"idPrefixes,omitempty"`
	BehaviorHints *ManifestBehaviorHints `json:"behaviorHints,omitempty"`
}

// ManifestCatalog is one catalog advertised in the manifest
type ManifestCatalog struct {
	Type  string          `json:"type"`
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Extra []ManifestExtra `json:"extra,omitempty"`
}

// ManifestExtra is an optional catalog argument (search, skip, genre)
type ManifestExtra struct {
	Name       string   `json:"name"`
	IsRequired bool     `json:"isRequired"`
	Options    []string `json:"options,omitempty"`
}

// ManifestBehaviorHints tells the client the add-on needs configuring
type ManifestBehaviorHints struct {
	Configurable          bool   `json:"configurable"`
	ConfigurationRequired bool   `json:"configurationRequired,omitempty"`
	ConfigurationURL      string `json:"configurationURL,omitempty"`
	ReloadRequired        bool   `json:"reloadRequired,omitempty"`
}

// MetaPreview is a catalog entry; meta requests return the same shape
type MetaPreview struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Name        string   `json:"name"`
	Poster      string   `json:"poster,omitempty"`
	Description string   `json:"description,omitempty"`
	Genres      []string `json:"genres,omitempty"`
}

// Stream is a playable source for a channel
type Stream struct {
	Name          string               `json:"name,omitempty"`
	Title         string               `json:"title,omitempty"`
	URL           string               `json:"url"`
	BehaviorHints *StreamBehaviorHints `json:"behaviorHints,omitempty"`
}

// StreamBehaviorHints are playback hints for a Stream
type StreamBehaviorHints struct {
	NotWebReady bool `json:"notWebReady"`
}

// CatalogResponse is the body of a catalog request
type CatalogResponse struct {
	Metas []MetaPreview `json:"metas"`
	Error string        `json:"error,omitempty"`
}

// StreamResponse is the body of a stream request
type StreamResponse struct {
	Streams []Stream `json:"streams"`
}

// MetaResponse is the body of a meta request; Meta is null when unknown
type MetaResponse struct {
	Meta *MetaPreview `json:"meta"`
}
