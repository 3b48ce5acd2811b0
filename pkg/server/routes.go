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
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (c *Config) routes(r *gin.Engine) {
	r.GET("/", func(ctx *gin.Context) { ctx.Redirect(http.StatusFound, "/configure") })
	r.GET("/manifest.json", c.manifest)
	r.GET("/configure", c.configure)
	r.POST("/save-config", c.saveConfig)

	// wildcards keep "<id>.json" and "<id>/<extra>.json" on one route
	r.GET("/catalog/:type/*rest", c.catalog)
	r.GET("/stream/:type/*rest", c.stream)
	r.GET("/meta/:type/*rest", c.meta)

	r.GET("/playlist.m3u", c.getM3U)
	r.GET("/health", c.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
