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
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lucasduport/stalker-addon/pkg/playlist"
	"github.com/lucasduport/stalker-addon/pkg/session"
	"github.com/lucasduport/stalker-addon/pkg/types"
	"github.com/lucasduport/stalker-addon/pkg/utils"
)

// setupInternalAPI exposes cache inspection to operators holding the API key.
func (c *Config) setupInternalAPI(r *gin.Engine) {
	api := r.Group("/api/internal")
	api.Use(c.apiKeyAuth())

	api.GET("/ping", func(ctx *gin.Context) {
		utils.DebugLog("API ping received")
		ctx.JSON(http.StatusOK, types.APIResponse{
			Success: true,
			Message: "API is running",
			Data: map[string]interface{}{
				"time":         time.Now().String(),
				"cache_folder": c.CacheFolder,
			},
		})
	})
	api.GET("/cache", c.listCache)
	api.GET("/cache/:key", c.getCacheEntry)

	utils.InfoLog("Internal API routes configured successfully")
}

func (c *Config) listCache(ctx *gin.Context) {
	entries, err := c.store.List()
	if err != nil {
		utils.PrintErrorAndReturn(err)
		ctx.JSON(http.StatusInternalServerError, types.APIResponse{
			Success: false,
			Error:   "Could not list cache",
		})
		return
	}
	ctx.JSON(http.StatusOK, types.APIResponse{
		Success: true,
		Data:    entries,
	})
}

func (c *Config) getCacheEntry(ctx *gin.Context) {
	key := session.Key(ctx.Param("key"))
	if !key.Valid() && key != session.DefaultKey {
		ctx.JSON(http.StatusBadRequest, types.APIResponse{
			Success: false,
			Error:   "Invalid session key",
		})
		return
	}

	entry, err := c.store.Stat(key)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, playlist.ErrNotFound) {
			status = http.StatusNotFound
		}
		ctx.JSON(status, types.APIResponse{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	channels, err := c.index.Channels(key)
	if err != nil {
		channels = nil
	}
	ctx.JSON(http.StatusOK, types.APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"playlist": entry,
			"channels": len(channels),
		},
	})
}
