package audio

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"herohire/internal/ports"
)

const (
	defaultStartTimeout = 3 * time.Second
	captureStopGrace    = 1200 * time.Millisecond
	probeDuration       = "0.1"
)

// FFMPEGCapture records the microphone as raw s16le PCM on ffmpeg's stdout.
type FFMPEGCapture struct {
	command      string
	startTimeout time.Duration
}

func NewFFMPEGCapture(command string) *FFMPEGCapture {
	if command == "" {
		command = "ffmpeg"
	}
	return &FFMPEGCapture{command: command, startTimeout: defaultStartTimeout}
}

// Probe opens the input device briefly and throws the audio away.
func (c *FFMPEGCapture) Probe(ctx context.Context, cfg ports.AudioConfig) error {
	cfg = withDefaults(cfg)
	if _, err := exec.LookPath(c.command); err != nil {
		return fmt.Errorf("%s not found: %w", c.command, err)
	}

	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	args := inputArgs(cfg, "error")
	args = append(args, "-t", probeDuration, "-f", "null", "-")
	out, err := exec.CommandContext(probeCtx, c.command, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("cannot open input device %q: %w: %s", cfg.InputDevice, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Start launches ffmpeg and returns once the first samples have arrived.
func (c *FFMPEGCapture) Start(ctx context.Context, cfg ports.AudioConfig) (ports.AudioSession, error) {
	cfg = withDefaults(cfg)

	args := inputArgs(cfg, "warning")
	args = append(args,
		"-ac", strconv.Itoa(cfg.Channels),
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-f", "s16le",
		"-",
	)
	proc := newProcess(ctx, c.command, args...)
	stdout, err := proc.cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create ffmpeg stdout pipe: %w", err)
	}
	if err := proc.start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	session := &ffmpegSession{proc: proc, pcm: bufio.NewReaderSize(stdout, 32*1024)}
	if err := session.awaitSamples(c.startTimeout); err != nil {
		proc.interrupt(captureStopGrace)
		return nil, err
	}
	return session, nil
}

func inputArgs(cfg ports.AudioConfig, logLevel string) []string {
	return []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", logLevel,
		"-f", cfg.InputFormat,
		"-i", cfg.InputDevice,
	}
}

func withDefaults(cfg ports.AudioConfig) ports.AudioConfig {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = "pulse"
	}
	if cfg.InputDevice == "" {
		cfg.InputDevice = "default"
	}
	return cfg
}

type ffmpegSession struct {
	proc *process
	pcm  *bufio.Reader

	stopOnce sync.Once
	stopErr  error
}

// awaitSamples blocks until ffmpeg has produced audio, exited, or timed out.
func (s *ffmpegSession) awaitSamples(timeout time.Duration) error {
	ready := make(chan error, 1)
	go func() {
		_, err := s.pcm.Peek(1)
		ready <- err
	}()

	select {
	case err := <-ready:
		if err == nil {
			return nil
		}
		if exitErr := s.proc.wait(); exitErr != nil {
			return fmt.Errorf("ffmpeg exited before capture started: %w", exitErr)
		}
		return errors.New("ffmpeg exited before capture started")
	case <-time.After(timeout):
		return fmt.Errorf("no audio from input device after %s", timeout)
	}
}

func (s *ffmpegSession) Read(p []byte) (int, error) {
	return s.pcm.Read(p)
}

func (s *ffmpegSession) Close() error {
	return s.Stop()
}

// Stop interrupts ffmpeg and waits for it to exit. The exit status an
// interrupt causes is not an error.
func (s *ffmpegSession) Stop() error {
	s.stopOnce.Do(func() {
		s.proc.interrupt(captureStopGrace)
		if err := s.proc.wait(); err != nil && !exitedWithStatus(err) {
			s.stopErr = err
		}
	})
	return s.stopErr
}
