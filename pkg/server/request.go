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
	"encoding/base64"
	"net/url"
	"strconv"
	"strings"

	"github.com/buger/jsonparser"
	"github.com/gin-gonic/gin"
	"github.com/lucasduport/stalker-addon/pkg/addon"
	"github.com/lucasduport/stalker-addon/pkg/portal"
	"github.com/lucasduport/stalker-addon/pkg/utils"
)

// extraArgs are the optional arguments of a resource path, e.g. the
// "search=news&skip=100" of /catalog/tv/stalker_catalog/search=news&skip=100.json.
type extraArgs map[string]string

// resourcePath is the parsed tail of /<resource>/<type>/<id>[/<extra>].json.
type resourcePath struct {
	ID    string
	Extra extraArgs
}

func parseResourcePath(rest string) (resourcePath, bool) {
	rest = strings.TrimPrefix(rest, "/")
	if !strings.HasSuffix(rest, ".json") {
		return resourcePath{}, false
	}
	rest = strings.TrimSuffix(rest, ".json")
	id, extra, _ := strings.Cut(rest, "/")
	if id == "" {
		return resourcePath{}, false
	}
	return resourcePath{ID: id, Extra: parseExtra(extra)}, true
}

// parseExtra accepts either a JSON object or a query string.
func parseExtra(s string) extraArgs {
	out := extraArgs{}
	s = strings.TrimSpace(s)
	if s == "" {
		return out
	}

	if strings.HasPrefix(s, "{") {
		err := jsonparser.ObjectEach([]byte(s), func(key, value []byte, dataType jsonparser.ValueType, _ int) error {
			switch dataType {
			case jsonparser.String:
				if v, err := jsonparser.ParseString(value); err == nil {
					out[string(key)] = v
				}
			case jsonparser.Number, jsonparser.Boolean:
				out[string(key)] = string(value)
			}
			return nil
		})
		if err != nil {
			utils.DebugLog("Ignoring malformed JSON extra: %v", err)
		}
		return out
	}

	q, err := url.ParseQuery(s)
	if err != nil {
		utils.DebugLog("Ignoring malformed extra %q: %v", s, err)
		return out
	}
	for k, v := range q {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

func (e extraArgs) raw() portal.Raw {
	return portal.Raw{
		PortalURL:  e["stalker_portal"],
		MACAddress: e["stalker_mac"],
		Timezone:   e["stalker_timezone"],
		ListName:   e["list_name"],
	}
}

func (e extraArgs) catalogQuery() addon.CatalogQuery {
	q := addon.CatalogQuery{Search: e["search"], Genre: e["genre"]}
	if skip, err := strconv.Atoi(e["skip"]); err == nil && skip > 0 {
		q.Skip = skip
	}
	return q
}

// legacyPayload is a config/userData query value: JSON, possibly base64url encoded.
type legacyPayload struct {
	Raw   portal.Raw
	Token string
}

func decodeLegacy(s string) (legacyPayload, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return legacyPayload{}, false
	}
	data := []byte(s)
	if !strings.HasPrefix(s, "{") {
		decoded, ok := decodeBase64(s)
		if !ok {
			return legacyPayload{}, false
		}
		data = decoded
	}

	get := func(key string) string {
		v, err := jsonparser.GetString(data, key)
		if err != nil {
			return ""
		}
		return v
	}
	return legacyPayload{
		Raw: portal.Raw{
			PortalURL:  get("stalker_portal"),
			MACAddress: get("stalker_mac"),
			Timezone:   get("stalker_timezone"),
			ListName:   get("list_name"),
		},
		Token: get("token"),
	}, true
}

func decodeBase64(s string) ([]byte, bool) {
	for _, enc := range []*base64.Encoding{base64.RawURLEncoding, base64.URLEncoding, base64.StdEncoding, base64.RawStdEncoding} {
		if b, err := enc.DecodeString(s); err == nil && len(b) > 0 && b[0] == '{' {
			return b, true
		}
	}
	return nil, false
}

// requestSources collects every place the request may carry portal settings.
// Tokens are looked for in the query, then the extra, then the legacy payloads.
func requestSources(ctx *gin.Context, extra extraArgs) portal.Sources {
	var src portal.Sources

	var inline portal.Raw
	if err := ctx.ShouldBindQuery(&inline); err != nil {
		utils.DebugLog("Ignoring unreadable query config: %v", err)
	}
	src.Inline = inline

	var legacyTokens []string
	for _, name := range []string{"config", "userData"} {
		if p, ok := decodeLegacy(ctx.Query(name)); ok {
			src.Legacy = append(src.Legacy, p.Raw)
			legacyTokens = append(legacyTokens, p.Token)
		}
	}
	if extra != nil {
		src.Legacy = append(src.Legacy, extra.raw())
	}

	candidates := append([]string{ctx.Query("token"), extra["token"]}, legacyTokens...)
	for _, t := range candidates {
		if t = strings.TrimSpace(t); t != "" {
			src.Token = t
			break
		}
	}
	return src
}

// resolveConfig applies the configuration precedence to the request.
func (c *Config) resolveConfig(ctx *gin.Context, extra extraArgs) portal.Configuration {
	cfg, origin := c.loader.Load(requestSources(ctx, extra))
	utils.DebugLog("[%s] config from %s: %s", requestID(ctx), origin, cfg.LogValue())
	return cfg
}
