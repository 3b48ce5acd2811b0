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
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lucasduport/stalker-addon/pkg/types"
	"github.com/lucasduport/stalker-addon/pkg/utils"
)

// APIKeyEnv overrides the generated internal API key.
const APIKeyEnv = "INTERNAL_API_KEY"

// internalAPIKey reads the key from the environment or generates one.
func internalAPIKey() string {
	if key := utils.GetEnvOrDefault(APIKeyEnv, ""); key != "" {
		utils.InfoLog("Using internal API key from environment")
		return key
	}
	key := uuid.New().String()
	utils.InfoLog("Generated new internal API key: %s", key)
	return key
}

// APIKey returns the key guarding /api/internal.
func (c *Config) APIKey() string {
	return c.apiKey
}

// apiKeyAuth middleware validates the internal API key
func (c *Config) apiKeyAuth() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		key := ctx.GetHeader("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(key), []byte(c.apiKey)) != 1 {
			utils.DebugLog("API authentication failed - invalid key: %s", utils.MaskString(key))
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, types.APIResponse{
				Success: false,
				Error:   "Invalid API key",
			})
			return
		}
		utils.DebugLog("API authentication successful for endpoint: %s", ctx.Request.URL.Path)
		ctx.Next()
	}
}
