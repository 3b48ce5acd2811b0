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
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lucasduport/stalker-addon/pkg/types"
	"github.com/lucasduport/stalker-addon/pkg/utils"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// requestLogger tags every request with an id and logs it once served.
func requestLogger() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id := ctx.GetHeader(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		ctx.Set(requestIDKey, id)
		ctx.Header(requestIDHeader, id)

		start := time.Now()
		ctx.Next()

		status := ctx.Writer.Status()
		line := "[%s] %s %s -> %d (%s)"
		args := []interface{}{id, ctx.Request.Method, ctx.Request.URL.Path, status, time.Since(start).Round(time.Millisecond)}
		switch {
		case status >= http.StatusInternalServerError:
			utils.ErrorLog(line, args...)
		case status >= http.StatusBadRequest:
			utils.WarnLog(line, args...)
		default:
			utils.DebugLog(line, args...)
		}
	}
}

// recoverJSON turns a handler panic into a 500 APIResponse.
func recoverJSON() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				utils.ErrorLog("PANIC RECOVERED: %v\nStack trace: %s", err, debug.Stack())
				ctx.AbortWithStatusJSON(http.StatusInternalServerError, types.APIResponse{
					Success: false,
					Error:   "Internal server error",
				})
			}
		}()
		ctx.Next()
	}
}

func requestID(ctx *gin.Context) string {
	return ctx.GetString(requestIDKey)
}
