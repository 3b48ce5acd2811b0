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
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lucasduport/stalker-addon/pkg/addon"
	"github.com/lucasduport/stalker-addon/pkg/generator"
	"github.com/lucasduport/stalker-addon/pkg/portal"
	"github.com/lucasduport/stalker-addon/pkg/types"
	"github.com/lucasduport/stalker-addon/pkg/utils"
)

const (
	manifestID      = "org.stalker.iptv"
	manifestVersion = "1.1.0"
	catalogID       = "stalker_catalog"
)

func (c *Config) manifest(ctx *gin.Context) {
	cfg := c.resolveConfig(ctx, nil)

	ctx.JSON(http.StatusOK, types.Manifest{
		ID:          manifestID,
		Version:     manifestVersion,
		Name:        c.AddonName,
		Description: "IPTV channels from a Stalker/MAG portal",
		Resources:   []string{"catalog", "stream", "meta"},
		Types:       []string{addon.ContentType},
		IDPrefixes:  []string{"channel_", addon.ConfigPlaceholderID},
		Catalogs: []types.ManifestCatalog{{
			Type: addon.ContentType,
			ID:   catalogID,
			Name: cfg.ListNameOr("IPTV Channels"),
			Extra: []types.ManifestExtra{
				{Name: "search"},
				{Name: "skip"},
				{Name: "genre", Options: []string{addon.Genre}},
			},
		}},
		BehaviorHints: &types.ManifestBehaviorHints{
			Configurable:          true,
			ConfigurationRequired: !cfg.Configured(),
			ConfigurationURL:      c.baseURL(ctx) + "/configure",
			ReloadRequired:        true,
		},
	})
}

func (c *Config) catalog(ctx *gin.Context) {
	rp, ok := parseResourcePath(ctx.Param("rest"))
	if !ok || ctx.Param("type") != addon.ContentType || rp.ID != catalogID {
		ctx.JSON(http.StatusOK, types.CatalogResponse{Metas: []types.MetaPreview{}})
		return
	}

	cfg := c.resolveConfig(ctx, rp.Extra)
	ctx.JSON(http.StatusOK, c.resolver.Catalog(ctx.Request.Context(), cfg, rp.Extra.catalogQuery()))
}

func (c *Config) stream(ctx *gin.Context) {
	rp, ok := parseResourcePath(ctx.Param("rest"))
	if !ok || ctx.Param("type") != addon.ContentType {
		ctx.JSON(http.StatusOK, types.StreamResponse{Streams: []types.Stream{}})
		return
	}

	cfg := c.resolveConfig(ctx, rp.Extra)
	ctx.JSON(http.StatusOK, types.StreamResponse{Streams: c.resolver.Stream(ctx.Request.Context(), cfg, rp.ID)})
}

func (c *Config) meta(ctx *gin.Context) {
	rp, ok := parseResourcePath(ctx.Param("rest"))
	if !ok || ctx.Param("type") != addon.ContentType {
		ctx.JSON(http.StatusOK, types.MetaResponse{})
		return
	}

	cfg := c.resolveConfig(ctx, rp.Extra)
	ctx.JSON(http.StatusOK, types.MetaResponse{Meta: c.resolver.Meta(ctx.Request.Context(), cfg, rp.ID)})
}

func (c *Config) getM3U(ctx *gin.Context) {
	cfg := c.resolveConfig(ctx, nil)
	pl, err := c.resolver.Playlist(ctx.Request.Context(), cfg)
	if err != nil {
		status := http.StatusServiceUnavailable
		msg := "Playlist generation failed"
		if errors.Is(err, generator.ErrUnconfigured) {
			status = http.StatusBadRequest
			msg = "Portal URL and MAC address are required"
		}
		utils.WarnLog("[%s] playlist export failed: %v", requestID(ctx), err)
		ctx.JSON(status, types.APIResponse{Success: false, Error: msg})
		return
	}

	ctx.Header("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, "stalker.m3u"))
	ctx.Header("Content-Type", "audio/x-mpegurl")
	ctx.Status(http.StatusOK)
	if err := writePlaylist(ctx.Writer, pl); err != nil {
		utils.ErrorLog("[%s] writing playlist: %v", requestID(ctx), err)
	}
}

// saveConfigResponse carries the token clients reference the saved config with.
type saveConfigResponse struct {
	types.APIResponse
	Token string `json:"token,omitempty"`
}

func (c *Config) saveConfig(ctx *gin.Context) {
	var raw portal.Raw
	if err := ctx.ShouldBind(&raw); err != nil {
		ctx.JSON(http.StatusBadRequest, saveConfigResponse{APIResponse: types.APIResponse{
			Success: false,
			Error:   "Invalid request body",
		}})
		return
	}

	token, err := c.saved.Save(raw)
	if err != nil {
		if errors.Is(err, portal.ErrIncomplete) {
			ctx.JSON(http.StatusBadRequest, saveConfigResponse{APIResponse: types.APIResponse{
				Success: false,
				Error:   "Portal URL and MAC address are required",
			}})
			return
		}
		utils.PrintErrorAndReturn(err)
		ctx.JSON(http.StatusInternalServerError, saveConfigResponse{APIResponse: types.APIResponse{
			Success: false,
			Error:   "Could not save configuration",
		}})
		return
	}

	ctx.JSON(http.StatusOK, saveConfigResponse{
		APIResponse: types.APIResponse{Success: true, Message: "Configuration saved"},
		Token:       token,
	})
}

func (c *Config) configure(ctx *gin.Context) {
	ctx.Data(http.StatusOK, "text/html; charset=utf-8", []byte(configurePage))
}

func (c *Config) health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, types.APIResponse{
		Success: true,
		Message: "ok",
		Data: map[string]interface{}{
			"time": time.Now().UTC().Format(time.RFC3339),
		},
	})
}
