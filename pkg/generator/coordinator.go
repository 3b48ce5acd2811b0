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

package generator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lucasduport/stalker-addon/pkg/metrics"
	"github.com/lucasduport/stalker-addon/pkg/playlist"
	"github.com/lucasduport/stalker-addon/pkg/portal"
	"github.com/lucasduport/stalker-addon/pkg/session"
	"github.com/lucasduport/stalker-addon/pkg/utils"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

// DefaultTimeout bounds a single generator run.
const DefaultTimeout = 2 * time.Minute

var (
	// ErrTimedOut is matched by errors.Is on generations that hit the timeout.
	ErrTimedOut = errors.New("generation timed out")
	// ErrNoPlaylist is matched when the generator succeeded without leaving a usable playlist.
	ErrNoPlaylist = errors.New("generator produced no usable playlist")
	// ErrUnconfigured is returned for configurations lacking portal or MAC.
	ErrUnconfigured = errors.New("portal is not configured")
)

// GenerationError reports a failed generation for one session key. It is
// never cached: the next EnsureFresh call tries again.
type GenerationError struct {
	Key        session.Key
	Diagnostic string
	Err        error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate playlist %s: %s", e.Key, e.Diagnostic)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Coordinator decides whether a playlist must be regenerated and runs at
// most one generation per session key at a time. Different keys generate
// in parallel, optionally capped by a global limit.
type Coordinator struct {
	store   *playlist.Store
	gen     Generator
	timeout time.Duration
	sem     *semaphore.Weighted
	base    context.Context

	group singleflight.Group

	// closed when the generation of a key ends
	mu       sync.Mutex
	inflight map[session.Key]chan struct{}
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithTimeout bounds each generator run.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxConcurrent caps the number of generator runs across all keys. Zero means unlimited.
func WithMaxConcurrent(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.sem = semaphore.NewWeighted(int64(n))
		} else {
			c.sem = nil
		}
	}
}

// WithBaseContext sets the context generator runs derive from. Cancelling it
// aborts every run in flight, e.g. on shutdown.
func WithBaseContext(ctx context.Context) Option {
	return func(c *Coordinator) { c.base = ctx }
}

// NewCoordinator returns a coordinator writing through store.
func NewCoordinator(store *playlist.Store, gen Generator, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:    store,
		gen:      gen,
		timeout:  DefaultTimeout,
		base:     context.Background(),
		inflight: make(map[session.Key]chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the playlist store the coordinator keeps fresh.
func (c *Coordinator) Store() *playlist.Store {
	return c.store
}

// EnsureFresh returns nil once the playlist of key is fresh, generating it
// if needed. Concurrent callers for the same key share one generation. When
// ctx ends first, the caller stops waiting but the generation carries on for
// the others.
func (c *Coordinator) EnsureFresh(ctx context.Context, cfg portal.Configuration, key session.Key) error {
	if !cfg.Configured() {
		return ErrUnconfigured
	}
	if c.store.IsFresh(key) {
		metrics.RecordCacheHit()
		return nil
	}

	ch := c.group.DoChan(key.String(), func() (interface{}, error) {
		defer c.track(key)()
		return nil, c.generate(cfg, key)
	})

	select {
	case res := <-ch:
		if res.Shared {
			metrics.RecordSharedWait()
		}
		return res.Err
	case <-ctx.Done():
		utils.DebugLog("Stopped waiting for generation of session %s: %v", key, ctx.Err())
		return ctx.Err()
	}
}

// Wait blocks while a generation of key is running so callers never read a
// playlist the generator is still writing. It never starts a generation and
// returns ctx's error when ctx ends first.
func (c *Coordinator) Wait(ctx context.Context, key session.Key) error {
	c.mu.Lock()
	done := c.inflight[key]
	c.mu.Unlock()
	if done == nil {
		return nil
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) track(key session.Key) func() {
	done := make(chan struct{})
	c.mu.Lock()
	c.inflight[key] = done
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.inflight, key)
		c.mu.Unlock()
		close(done)
	}
}

func (c *Coordinator) generate(cfg portal.Configuration, key session.Key) error {
	// another caller may have finished a generation while we were queued
	if c.store.IsFresh(key) {
		metrics.RecordCacheHit()
		return nil
	}
	if err := c.store.EnsureDir(); err != nil {
		return &GenerationError{Key: key, Diagnostic: "cache directory unavailable", Err: err}
	}

	ctx, cancel := context.WithTimeout(c.base, c.timeout)
	defer cancel()

	if c.sem != nil {
		if err := c.sem.Acquire(ctx, 1); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				metrics.ObserveGeneration(metrics.ResultTimeout, 0)
				return &GenerationError{Key: key, Diagnostic: ErrTimedOut.Error(), Err: ErrTimedOut}
			}
			metrics.ObserveGeneration(metrics.ResultFailure, 0)
			utils.WarnLog("Generation for session %s abandoned while queued: %v", key, err)
			return &GenerationError{Key: key, Diagnostic: "generation cancelled while queued", Err: err}
		}
		defer c.sem.Release(1)
	}

	metrics.GenerationsInFlight.Inc()
	defer metrics.GenerationsInFlight.Dec()

	utils.InfoLog("Generating playlist for session %s (%s)", key, cfg.LogValue())
	start := time.Now()
	err := c.gen.Generate(ctx, Request{
		Key:        key,
		PortalURL:  cfg.PortalURL,
		MACAddress: cfg.MACAddress.String(),
		Timezone:   cfg.Timezone,
		CacheDir:   c.store.Root(),
	})
	elapsed := time.Since(start)

	if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
		metrics.ObserveGeneration(metrics.ResultTimeout, elapsed)
		utils.WarnLog("Generation for session %s timed out after %s", key, elapsed.Round(time.Millisecond))
		return &GenerationError{Key: key, Diagnostic: ErrTimedOut.Error(), Err: ErrTimedOut}
	}
	if err != nil {
		metrics.ObserveGeneration(metrics.ResultFailure, elapsed)
		genErr := &GenerationError{Key: key, Diagnostic: diagnosticOf(err), Err: err}
		utils.ErrorLog("Generation for session %s failed: %s", key, genErr.Diagnostic)
		return genErr
	}
	if !c.store.IsFresh(key) {
		metrics.ObserveGeneration(metrics.ResultFailure, elapsed)
		utils.ErrorLog("Generation for session %s left no usable playlist at %s", key, c.store.Path(key))
		return &GenerationError{Key: key, Diagnostic: ErrNoPlaylist.Error(), Err: ErrNoPlaylist}
	}

	metrics.ObserveGeneration(metrics.ResultSuccess, elapsed)
	utils.InfoLog("Playlist for session %s ready in %s", key, elapsed.Round(time.Millisecond))
	return nil
}

func diagnosticOf(err error) string {
	var runErr *RunError
	if errors.As(err, &runErr) && runErr.Stderr != "" {
		return runErr.Stderr
	}
	return utils.TruncateDiagnostic(err.Error(), diagnosticLimit)
}
