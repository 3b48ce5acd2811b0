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
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
)

// baseURL is the externally visible origin of the add-on. Proxy headers win
// over the configured scheme; the advertised port, when set, over the
// request's own.
func (c *Config) baseURL(ctx *gin.Context) string {
	proto := c.protocol()
	if fwd := ctx.GetHeader("X-Forwarded-Proto"); fwd != "" {
		proto = strings.TrimSpace(strings.Split(fwd, ",")[0])
	}

	host := ctx.Request.Host
	if fwd := ctx.GetHeader("X-Forwarded-Host"); fwd != "" {
		host = strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	if host == "" {
		host = fmt.Sprintf("%s:%d", c.HostConfig.Hostname, c.HostConfig.Port)
	}
	if c.AdvertisedPort > 0 {
		host = fmt.Sprintf("%s:%d", hostOnly(host), c.AdvertisedPort)
	}
	return proto + "://" + host
}

func hostOnly(hostport string) string {
	if strings.HasPrefix(hostport, "[") {
		if i := strings.Index(hostport, "]"); i > 0 {
			return hostport[:i+1]
		}
	}
	if i := strings.LastIndex(hostport, ":"); i > 0 && !strings.Contains(hostport[:i], ":") {
		return hostport[:i]
	}
	return hostport
}
