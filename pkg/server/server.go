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
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/lucasduport/stalker-addon/pkg/addon"
	"github.com/lucasduport/stalker-addon/pkg/config"
	"github.com/lucasduport/stalker-addon/pkg/generator"
	"github.com/lucasduport/stalker-addon/pkg/playlist"
	"github.com/lucasduport/stalker-addon/pkg/portal"
	"github.com/lucasduport/stalker-addon/pkg/utils"
)

const shutdownTimeout = 10 * time.Second

// Config represent the server configuration
type Config struct {
	*config.AddonConfig

	store    *playlist.Store
	index    *playlist.Index
	coord    *generator.Coordinator
	resolver *addon.Resolver
	saved    *portal.SavedStore
	loader   *portal.Loader
	apiKey   string

	// cancelled on shutdown so running generators are killed
	baseCtx    context.Context
	cancelBase context.CancelFunc
}

// NewServer wires the playlist pipeline for cfg. The generator defaults to
// the configured external command.
func NewServer(cfg *config.AddonConfig) (*Config, error) {
	gen := generator.NewExecGenerator(cfg.Generator)
	return NewServerWithGenerator(cfg, gen)
}

// NewServerWithGenerator is NewServer with an explicit generator.
func NewServerWithGenerator(cfg *config.AddonConfig, gen generator.Generator) (*Config, error) {
	if err := cfg.Validate(); err != nil {
		return nil, utils.PrintErrorAndReturn(fmt.Errorf("invalid configuration: %w", err))
	}

	baseCtx, cancel := context.WithCancel(context.Background())

	store := playlist.NewStore(cfg.CacheFolder,
		playlist.WithMinBytes(cfg.FreshMinBytes),
		playlist.WithMaxAge(cfg.PlaylistMaxAge),
	)
	index := playlist.NewIndex(store)
	coord := generator.NewCoordinator(store, gen,
		generator.WithTimeout(cfg.Generator.Timeout),
		generator.WithMaxConcurrent(cfg.Generator.MaxConcurrent),
		generator.WithBaseContext(baseCtx),
	)
	saved := portal.NewSavedStore(cfg.CacheFolder)

	c := &Config{
		AddonConfig: cfg,
		store:       store,
		index:       index,
		coord:       coord,
		resolver: addon.NewResolver(coord, index, addon.Options{
			AddonName:     cfg.AddonName,
			PosterBaseURL: cfg.PosterBaseURL,
		}),
		saved:      saved,
		loader:     &portal.Loader{Saved: saved, DefaultTimezone: cfg.DefaultTimezone},
		apiKey:     internalAPIKey(),
		baseCtx:    baseCtx,
		cancelBase: cancel,
	}

	utils.InfoLog("Cache folder: %s (fresh >= %d bytes, max age %s)", cfg.CacheFolder, cfg.FreshMinBytes, maxAgeString(cfg.PlaylistMaxAge))
	utils.InfoLog("Generator: %v (timeout %s, max concurrent %d)", cfg.Generator.Command, cfg.Generator.Timeout, cfg.Generator.MaxConcurrent)
	return c, nil
}

func maxAgeString(d time.Duration) string {
	if d <= 0 {
		return "unlimited"
	}
	return d.String()
}

// Router builds the gin engine serving every route.
func (c *Config) Router() *gin.Engine {
	router := gin.New()
	router.Use(requestLogger(), recoverJSON())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "X-API-Key", "X-Request-ID")
	router.Use(cors.New(corsCfg))

	c.routes(router)
	c.setupInternalAPI(router)
	return router
}

// Serve runs the add-on until ctx is cancelled, then shuts down gracefully.
func (c *Config) Serve(ctx context.Context) error {
	utils.InfoLog("[stalker-addon] Server is starting...")
	defer c.cancelBase()

	if err := c.store.EnsureDir(); err != nil {
		return utils.PrintErrorAndReturn(err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", c.HostConfig.Hostname, c.HostConfig.Port),
		Handler:           c.Router(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		utils.InfoLog("[stalker-addon] Server is ready and listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return utils.PrintErrorAndReturn(fmt.Errorf("http server: %w", err))
		}
		return nil
	case <-ctx.Done():
	}

	utils.InfoLog("Shutdown signal received, shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	c.cancelBase()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.ErrorLog("Server shutdown error: %v", err)
		return err
	}
	utils.InfoLog("[stalker-addon] Server stopped")
	return nil
}

// Close releases background resources of a server that was never served.
func (c *Config) Close() {
	c.cancelBase()
}

func (c *Config) protocol() string {
	if c.HTTPS {
		return "https"
	}
	return "http"
}
