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
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lucasduport/stalker-addon/pkg/config"
	"github.com/lucasduport/stalker-addon/pkg/playlist"
	"github.com/lucasduport/stalker-addon/pkg/portal"
	"github.com/lucasduport/stalker-addon/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var testCfg = portal.Normalize(portal.Raw{
	PortalURL:  "http://portal.example/c/",
	MACAddress: "00:1a:79:00:00:01",
})

var playlistBody = "#EXTM3U\n" + strings.Repeat("#EXTINF:-1,One\nhttp://a/1\n", 8)

// fakeGenerator writes a playlist for every request and counts its calls.
type fakeGenerator struct {
	calls   atomic.Int32
	started chan session.Key
	release chan struct{}
	body    string
	err     error
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{body: playlistBody}
}

func (f *fakeGenerator) Generate(ctx context.Context, req Request) error {
	f.calls.Add(1)
	if f.started != nil {
		f.started <- req.Key
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.err != nil {
		return f.err
	}
	if f.body == "" {
		return nil
	}
	return os.WriteFile(filepath.Join(req.CacheDir, req.Key.String()+playlist.FileSuffix), []byte(f.body), 0644)
}

func TestEnsureFreshGeneratesOnce(t *testing.T) {
	store := playlist.NewStore(t.TempDir())
	gen := newFakeGenerator()
	c := NewCoordinator(store, gen)
	key := session.DeriveKey(testCfg)

	require.NoError(t, c.EnsureFresh(context.Background(), testCfg, key))
	require.NoError(t, c.EnsureFresh(context.Background(), testCfg, key))

	assert.EqualValues(t, 1, gen.calls.Load())
	assert.True(t, store.IsFresh(key))
}

func TestEnsureFreshSkipsGeneratorForFreshCache(t *testing.T) {
	store := playlist.NewStore(t.TempDir())
	key := session.DeriveKey(testCfg)
	require.NoError(t, store.Write(key, playlistBody))

	gen := newFakeGenerator()
	c := NewCoordinator(store, gen)
	require.NoError(t, c.EnsureFresh(context.Background(), testCfg, key))
	assert.EqualValues(t, 0, gen.calls.Load())
}

func TestEnsureFreshRegeneratesUndersizedCache(t *testing.T) {
	store := playlist.NewStore(t.TempDir())
	key := session.DeriveKey(testCfg)
	require.NoError(t, store.Write(key, "#EXTM3U\n"))

	gen := newFakeGenerator()
	c := NewCoordinator(store, gen)
	require.NoError(t, c.EnsureFresh(context.Background(), testCfg, key))
	assert.EqualValues(t, 1, gen.calls.Load())
}

func TestEnsureFreshUnconfigured(t *testing.T) {
	gen := newFakeGenerator()
	c := NewCoordinator(playlist.NewStore(t.TempDir()), gen)

	err := c.EnsureFresh(context.Background(), portal.Normalize(portal.Raw{}), session.DefaultKey)
	require.ErrorIs(t, err, ErrUnconfigured)
	assert.EqualValues(t, 0, gen.calls.Load())
}

func TestEnsureFreshConcurrentCallersShareGeneration(t *testing.T) {
	store := playlist.NewStore(t.TempDir())
	gen := newFakeGenerator()
	gen.started = make(chan session.Key, 1)
	gen.release = make(chan struct{})
	c := NewCoordinator(store, gen)
	key := session.DeriveKey(testCfg)

	var wg sync.WaitGroup
	errs := make([]error, 5)
	wg.Add(1)
	go func() {
		defer wg.Done()
		errs[0] = c.EnsureFresh(context.Background(), testCfg, key)
	}()
	<-gen.started

	for i := 1; i < len(errs); i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = c.EnsureFresh(context.Background(), testCfg, key)
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(gen.release)
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.EqualValues(t, 1, gen.calls.Load())
}

func TestEnsureFreshDifferentKeysRunInParallel(t *testing.T) {
	store := playlist.NewStore(t.TempDir())
	gen := newFakeGenerator()
	gen.started = make(chan session.Key, 2)
	gen.release = make(chan struct{})
	c := NewCoordinator(store, gen)

	other := portal.Normalize(portal.Raw{PortalURL: "http://other.example/c/", MACAddress: "00:1A:79:00:00:02"})
	cfgs := []portal.Configuration{testCfg, other}

	var wg sync.WaitGroup
	for _, cfg := range cfgs {
		wg.Add(1)
		go func(cfg portal.Configuration) {
			defer wg.Done()
			assert.NoError(t, c.EnsureFresh(context.Background(), cfg, session.DeriveKey(cfg)))
		}(cfg)
	}

	seen := map[session.Key]bool{}
	for range cfgs {
		select {
		case k := <-gen.started:
			seen[k] = true
		case <-time.After(5 * time.Second):
			t.Fatal("generations for distinct keys did not overlap")
		}
	}
	close(gen.release)
	wg.Wait()

	assert.Len(t, seen, 2)
	assert.EqualValues(t, 2, gen.calls.Load())
}

func TestEnsureFreshMaxConcurrentSerializesKeys(t *testing.T) {
	store := playlist.NewStore(t.TempDir())
	var running, peak atomic.Int32
	gen := GeneratorFunc(func(ctx context.Context, req Request) error {
		n := running.Add(1)
		defer running.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		return os.WriteFile(filepath.Join(req.CacheDir, req.Key.String()+playlist.FileSuffix), []byte(playlistBody), 0644)
	})
	c := NewCoordinator(store, gen, WithMaxConcurrent(1))

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		cfg := portal.Normalize(portal.Raw{PortalURL: "http://p.example/c/", MACAddress: "00:1A:79:00:00:0" + string(rune('1'+i))})
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, c.EnsureFresh(context.Background(), cfg, session.DeriveKey(cfg)))
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, peak.Load())
}

func TestEnsureFreshFailureIsNotCached(t *testing.T) {
	store := playlist.NewStore(t.TempDir())
	gen := newFakeGenerator()
	gen.err = &RunError{ExitCode: 1, Stderr: "portal handshake failed", Err: errors.New("exit status 1")}
	c := NewCoordinator(store, gen)
	key := session.DeriveKey(testCfg)

	err := c.EnsureFresh(context.Background(), testCfg, key)
	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, key, genErr.Key)
	assert.Equal(t, "portal handshake failed", genErr.Diagnostic)

	gen.err = nil
	require.NoError(t, c.EnsureFresh(context.Background(), testCfg, key))
	assert.EqualValues(t, 2, gen.calls.Load())
}

func TestEnsureFreshSuccessWithoutPlaylist(t *testing.T) {
	store := playlist.NewStore(t.TempDir())
	gen := newFakeGenerator()
	gen.body = ""
	c := NewCoordinator(store, gen)
	key := session.DeriveKey(testCfg)

	err := c.EnsureFresh(context.Background(), testCfg, key)
	require.ErrorIs(t, err, ErrNoPlaylist)
	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "generator produced no usable playlist", genErr.Diagnostic)
}

func TestEnsureFreshTimeout(t *testing.T) {
	store := playlist.NewStore(t.TempDir())
	gen := newFakeGenerator()
	gen.release = make(chan struct{})
	c := NewCoordinator(store, gen, WithTimeout(50*time.Millisecond))
	key := session.DeriveKey(testCfg)

	err := c.EnsureFresh(context.Background(), testCfg, key)
	require.ErrorIs(t, err, ErrTimedOut)
	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "generation timed out", genErr.Diagnostic)
	assert.False(t, store.IsFresh(key))
}

func TestEnsureFreshCallerCancellationDoesNotAbortGeneration(t *testing.T) {
	store := playlist.NewStore(t.TempDir())
	gen := newFakeGenerator()
	gen.started = make(chan session.Key, 1)
	gen.release = make(chan struct{})
	c := NewCoordinator(store, gen)
	key := session.DeriveKey(testCfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.EnsureFresh(ctx, testCfg, key) }()

	<-gen.started
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	close(gen.release)
	require.Eventually(t, func() bool { return store.IsFresh(key) }, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, c.EnsureFresh(context.Background(), testCfg, key))
	assert.EqualValues(t, 1, gen.calls.Load())
}

func TestEnsureFreshBaseContextCancellation(t *testing.T) {
	store := playlist.NewStore(t.TempDir())
	gen := newFakeGenerator()
	gen.started = make(chan session.Key, 1)
	gen.release = make(chan struct{})
	base, cancel := context.WithCancel(context.Background())
	c := NewCoordinator(store, gen, WithBaseContext(base))
	key := session.DeriveKey(testCfg)

	done := make(chan error, 1)
	go func() { done <- c.EnsureFresh(context.Background(), testCfg, key) }()
	<-gen.started
	cancel()

	err := <-done
	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.ErrorIs(t, err, context.Canceled)
}

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecGeneratorPassesArguments(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()
	script := `printf '#EXTM3U\n#EXTINF:-1,%s %s\n%s\n' "$3" "$4" "$2" > "$STALKER_CACHE_DIR/$1_m3u.m3u"`
	g := NewExecGenerator(config.GeneratorConfig{Command: []string{"sh", "-c", script, "stalker_engine"}})

	err := g.Generate(context.Background(), Request{
		Key:        "0123456789abcdef",
		PortalURL:  "http://portal.example/c/",
		MACAddress: "00:1A:79:00:00:01",
		Timezone:   "Europe/Lisbon",
		CacheDir:   dir,
	})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "0123456789abcdef_m3u.m3u"))
	require.NoError(t, err)
	assert.Equal(t, "#EXTM3U\n#EXTINF:-1,00:1A:79:00:00:01 Europe/Lisbon\nhttp://portal.example/c/\n", string(data))
}

func TestExecGeneratorReportsStderr(t *testing.T) {
	requireShell(t)
	g := NewExecGenerator(config.GeneratorConfig{Command: []string{"sh", "-c", "echo 'invalid MAC' >&2; exit 3", "stalker_engine"}})

	err := g.Generate(context.Background(), Request{Key: "0123456789abcdef", CacheDir: t.TempDir()})
	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, 3, runErr.ExitCode)
	assert.Equal(t, "invalid MAC", runErr.Stderr)
	assert.Equal(t, "invalid MAC", diagnosticOf(err))
}

func TestExecGeneratorHonoursContext(t *testing.T) {
	requireShell(t)
	g := NewExecGenerator(config.GeneratorConfig{Command: []string{"sh", "-c", "exec sleep 10", "stalker_engine"}})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := g.Generate(ctx, Request{Key: "0123456789abcdef", CacheDir: t.TempDir()})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 8*time.Second)
}

func TestExecGeneratorWithCoordinator(t *testing.T) {
	requireShell(t)
	store := playlist.NewStore(t.TempDir())
	script := `for i in 1 2 3 4 5 6; do printf '#EXTINF:-1,Channel %s\nhttp://a/%s\n' $i $i; done > "$STALKER_CACHE_DIR/$1_m3u.m3u"`
	g := NewExecGenerator(config.GeneratorConfig{Command: []string{"sh", "-c", script, "stalker_engine"}})
	c := NewCoordinator(store, g, WithTimeout(10*time.Second))
	key := session.DeriveKey(testCfg)

	require.NoError(t, c.EnsureFresh(context.Background(), testCfg, key))
	text, err := store.Read(key)
	require.NoError(t, err)
	assert.Len(t, playlist.Parse(text), 6)
}

func TestExecGeneratorEmptyCommand(t *testing.T) {
	g := &ExecGenerator{}
	require.Error(t, g.Generate(context.Background(), Request{}))
}

func TestLimitedBuffer(t *testing.T) {
	b := &limitedBuffer{limit: 4}
	n, err := b.Write([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	n, err = b.Write([]byte("def"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "abcd", b.String())
}

func TestWaitWithoutGenerationReturnsImmediately(t *testing.T) {
	gen := newFakeGenerator()
	c := NewCoordinator(playlist.NewStore(t.TempDir()), gen)

	require.NoError(t, c.Wait(context.Background(), session.DeriveKey(testCfg)))
	assert.EqualValues(t, 0, gen.calls.Load())
}

func TestWaitBlocksUntilGenerationEnds(t *testing.T) {
	store := playlist.NewStore(t.TempDir())
	gen := newFakeGenerator()
	gen.started = make(chan session.Key, 1)
	gen.release = make(chan struct{})
	c := NewCoordinator(store, gen)
	key := session.DeriveKey(testCfg)

	generated := make(chan error, 1)
	go func() { generated <- c.EnsureFresh(context.Background(), testCfg, key) }()
	<-gen.started

	waited := make(chan error, 1)
	go func() { waited <- c.Wait(context.Background(), key) }()

	select {
	case <-waited:
		t.Fatal("Wait returned while the generation was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(gen.release)
	require.NoError(t, <-waited)
	require.NoError(t, <-generated)
	assert.True(t, store.IsFresh(key))
	assert.EqualValues(t, 1, gen.calls.Load())

	// other keys never block
	other := portal.Normalize(portal.Raw{PortalURL: "http://other.example/c/", MACAddress: "00:1A:79:00:00:02"})
	require.NoError(t, c.Wait(context.Background(), session.DeriveKey(other)))
}

func TestWaitHonoursCallerContext(t *testing.T) {
	store := playlist.NewStore(t.TempDir())
	gen := newFakeGenerator()
	gen.started = make(chan session.Key, 1)
	gen.release = make(chan struct{})
	c := NewCoordinator(store, gen)
	key := session.DeriveKey(testCfg)

	done := make(chan error, 1)
	go func() { done <- c.EnsureFresh(context.Background(), testCfg, key) }()
	<-gen.started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, c.Wait(ctx, key), context.Canceled)

	close(gen.release)
	require.NoError(t, <-done)
}

func TestEnsureFreshShutdownWhileQueuedIsNotATimeout(t *testing.T) {
	store := playlist.NewStore(t.TempDir())
	gen := newFakeGenerator()
	gen.started = make(chan session.Key, 2)
	gen.release = make(chan struct{})
	base, cancel := context.WithCancel(context.Background())
	c := NewCoordinator(store, gen, WithMaxConcurrent(1), WithBaseContext(base))

	first := make(chan error, 1)
	go func() { first <- c.EnsureFresh(context.Background(), testCfg, session.DeriveKey(testCfg)) }()
	<-gen.started

	other := portal.Normalize(portal.Raw{PortalURL: "http://other.example/c/", MACAddress: "00:1A:79:00:00:02"})
	queued := make(chan error, 1)
	go func() { queued <- c.EnsureFresh(context.Background(), other, session.DeriveKey(other)) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	for _, ch := range []chan error{first, queued} {
		err := <-ch
		var genErr *GenerationError
		require.ErrorAs(t, err, &genErr)
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, ErrTimedOut)
	}
}
