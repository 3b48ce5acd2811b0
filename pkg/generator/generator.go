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

// Package generator runs the external playlist generator and makes sure at
// most one run per session key is in flight.
package generator

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/lucasduport/stalker-addon/pkg/config"
	"github.com/lucasduport/stalker-addon/pkg/session"
	"github.com/lucasduport/stalker-addon/pkg/utils"
)

// CacheDirEnv tells the generator where to write its playlist.
const CacheDirEnv = "STALKER_CACHE_DIR"

const (
	outputCaptureLimit = 64 << 10
	diagnosticLimit    = 2 << 10
)

// Request carries everything a generator run needs.
type Request struct {
	Key        session.Key
	PortalURL  string
	MACAddress string
	Timezone   string
	CacheDir   string
}

// Generator produces <CacheDir>/<Key>_m3u.m3u for a portal configuration.
type Generator interface {
	Generate(ctx context.Context, req Request) error
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req Request) error

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, req Request) error {
	return f(ctx, req)
}

// RunError is returned when the generator process fails.
type RunError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *RunError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("generator exited with code %d: %s", e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("generator exited with code %d: %v", e.ExitCode, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// ExecGenerator launches an external program with the session key, portal
// URL, MAC address and timezone appended to Command as positional arguments.
type ExecGenerator struct {
	Command []string
	WorkDir string
	// Env is appended to the inherited environment.
	Env []string
}

// NewExecGenerator builds an ExecGenerator from the server configuration.
func NewExecGenerator(cfg config.GeneratorConfig) *ExecGenerator {
	return &ExecGenerator{
		Command: append([]string(nil), cfg.Command...),
		WorkDir: cfg.WorkDir,
	}
}

// Generate runs the program and waits for it. A non-zero exit yields a
// *RunError carrying the (bounded) standard error output.
func (g *ExecGenerator) Generate(ctx context.Context, req Request) error {
	if len(g.Command) == 0 {
		return errors.New("no generator command configured")
	}

	args := make([]string, 0, len(g.Command)+3)
	args = append(args, g.Command[1:]...)
	args = append(args, req.Key.String(), req.PortalURL, req.MACAddress, req.Timezone)

	cmd := exec.CommandContext(ctx, g.Command[0], args...)
	cmd.Dir = g.WorkDir
	cmd.Env = append(os.Environ(), g.Env...)
	cmd.Env = append(cmd.Env, CacheDirEnv+"="+req.CacheDir)
	// children may keep the pipes open after a kill
	cmd.WaitDelay = 5 * time.Second

	stdout := &limitedBuffer{limit: outputCaptureLimit}
	stderr := &limitedBuffer{limit: outputCaptureLimit}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	utils.DebugLog("Starting generator %s for session %s", g.Command[0], req.Key)
	err := cmd.Run()
	logOutput(req.Key, stdout.String())

	if err != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		return &RunError{
			ExitCode: code,
			Stderr:   utils.TruncateDiagnostic(stderr.String(), diagnosticLimit),
			Err:      err,
		}
	}
	if s := strings.TrimSpace(stderr.String()); s != "" {
		utils.DebugLog("Generator stderr for session %s: %s", req.Key, utils.TruncateDiagnostic(s, diagnosticLimit))
	}
	return nil
}

func logOutput(key session.Key, out string) {
	if !utils.IsDebugLogEnabled() {
		return
	}
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			utils.DebugLog("[generator %s] %s", key, line)
		}
	}
}

// limitedBuffer keeps the first limit bytes written and discards the rest.
type limitedBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if room := b.limit - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	return b.buf.String()
}
