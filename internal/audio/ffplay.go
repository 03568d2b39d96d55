package audio

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"herohire/internal/ports"
)

const playbackStopGrace = 500 * time.Millisecond

// FFPlayPlayer plays audio files with ffplay, without a window.
type FFPlayPlayer struct {
	command string
}

func NewFFPlayPlayer(command string) *FFPlayPlayer {
	if command == "" {
		command = "ffplay"
	}
	return &FFPlayPlayer{command: command}
}

func (p *FFPlayPlayer) Play(ctx context.Context, path string) (ports.PlaybackSession, error) {
	proc := newProcess(ctx, p.command, "-nodisp", "-autoexit", "-hide_banner", "-loglevel", "error", path)
	if err := proc.start(); err != nil {
		return nil, fmt.Errorf("failed to start ffplay: %w", err)
	}
	return &ffplaySession{proc: proc}, nil
}

type ffplaySession struct {
	proc    *process
	stopped atomic.Bool
}

// Wait returns ports.ErrPlaybackStopped when Stop ended the clip early.
func (s *ffplaySession) Wait() error {
	err := s.proc.wait()
	if s.stopped.Load() {
		return ports.ErrPlaybackStopped
	}
	return err
}

func (s *ffplaySession) Stop() error {
	if s.stopped.CompareAndSwap(false, true) {
		s.proc.interrupt(playbackStopGrace)
	}
	return nil
}
