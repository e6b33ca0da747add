// SPDX-License-Identifier: MIT

package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/relaycast/relaycast/internal/log"
	"github.com/relaycast/relaycast/internal/procgroup"
)

// ErrForcedStop marks a pipeline exit caused by our own Terminate. The
// manager treats it as benign and does not trigger another teardown.
var ErrForcedStop = errors.New("pipeline force-stopped")

// StreamConfig selects between passthrough and transcode output.
type StreamConfig struct {
	FFmpegPath  string
	Transcode   bool
	BitrateKbps int
	LowLatency  bool
}

// Pipeline is one ffmpeg process relaying a source URL to a byte
// stream. Implementations are single-use: Start once, then Done.
type Pipeline interface {
	// Start spawns the process and returns its stdout.
	Start(ctx context.Context) (io.ReadCloser, error)

	// Done yields the final exit result exactly once. A forced stop
	// surfaces as ErrForcedStop.
	Done() <-chan error

	// Terminate stops the process group, escalating after grace.
	Terminate(grace time.Duration) error

	// StderrTail returns recent stderr lines for diagnostics.
	StderrTail(n int) []string
}

type ffmpegPipeline struct {
	cfg StreamConfig
	url string

	mu     sync.Mutex
	cmd    *exec.Cmd
	ring   *lineRing
	doneCh chan error
	waitCh chan error
	forced atomic.Bool
}

func newFFmpegPipeline(cfg StreamConfig, url string) Pipeline {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	return &ffmpegPipeline{
		cfg:    cfg,
		url:    url,
		ring:   newLineRing(128),
		doneCh: make(chan error, 1),
		waitCh: make(chan error, 1),
	}
}

// buildArgs assembles the ffmpeg invocation. Live-HLS sources get
// realtime pacing and a near-live start index so the relay does not
// begin at the oldest segment in the window.
func buildArgs(cfg StreamConfig, url string) []string {
	args := []string{"-hide_banner", "-loglevel", "warning", "-nostdin"}

	if isLiveHLS(url) {
		args = append(args, "-re", "-live_start_index", "-3")
	}
	args = append(args, "-i", url)

	if cfg.Transcode {
		bitrate := cfg.BitrateKbps
		if bitrate <= 0 {
			bitrate = 4500
		}
		args = append(args,
			"-c:v", "libx264",
			"-preset", "veryfast",
			"-b:v", strconv.Itoa(bitrate)+"k",
			"-maxrate", strconv.Itoa(bitrate)+"k",
			"-bufsize", strconv.Itoa(2*bitrate)+"k",
			"-c:a", "aac",
			"-b:a", "128k",
		)
		if cfg.LowLatency {
			args = append(args, "-tune", "zerolatency", "-flags", "low_delay")
		}
	} else {
		args = append(args, "-c", "copy")
	}

	return append(args, "-f", "mpegts", "pipe:1")
}

func isLiveHLS(url string) bool {
	base := url
	if i := strings.IndexAny(base, "?#"); i >= 0 {
		base = base[:i]
	}
	return strings.HasSuffix(base, ".m3u8")
}

func (p *ffmpegPipeline) Start(ctx context.Context) (io.ReadCloser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd != nil {
		return nil, fmt.Errorf("pipeline already started")
	}

	args := buildArgs(p.cfg, p.url)
	cmd := exec.CommandContext(ctx, p.cfg.FFmpegPath, args...) // #nosec G204
	procgroup.Set(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	logger := log.WithComponentFromContext(ctx, "pipeline")
	logger.Info().Str("event", "pipeline.start").Str("command", cmd.String()).
		Bool("transcode", p.cfg.Transcode).Msg("starting ffmpeg")

	if err := cmd.Start(); err != nil {
		pipelineStartTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("ffmpeg start: %w", err)
	}
	pipelineStartTotal.WithLabelValues("ok").Inc()
	p.cmd = cmd

	go p.drainStderr(stderr)
	go p.supervise(cmd)

	return stdout, nil
}

func (p *ffmpegPipeline) drainStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		_, _ = p.ring.Write(scanner.Bytes())
		_, _ = p.ring.Write([]byte("\n"))
	}
}

func (p *ffmpegPipeline) supervise(cmd *exec.Cmd) {
	err := cmd.Wait()
	p.waitCh <- err

	if p.forced.Load() {
		pipelineExitTotal.WithLabelValues("forced").Inc()
		p.doneCh <- ErrForcedStop
		return
	}
	if err != nil {
		pipelineExitTotal.WithLabelValues("error").Inc()
	} else {
		pipelineExitTotal.WithLabelValues("clean").Inc()
	}
	p.doneCh <- err
}

func (p *ffmpegPipeline) Done() <-chan error { return p.doneCh }

func (p *ffmpegPipeline) Terminate(grace time.Duration) error {
	p.mu.Lock()
	cmd := p.cmd
	p.mu.Unlock()
	if cmd == nil {
		return nil
	}

	// Mark before signalling so supervise classifies the exit as ours.
	p.forced.Store(true)
	err := procgroup.Terminate(cmd, p.waitCh, grace)

	// A signal-death exit is the expected outcome of a forced stop,
	// not a failure.
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

func (p *ffmpegPipeline) StderrTail(n int) []string {
	return p.ring.lastN(n)
}
