package usecase

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"sync"

	"herohire/internal/observability"
	"herohire/internal/ports"
)

// Player plays interviewer audio. At most one clip is active; starting a new
// clip stops the previous one.
type Player struct {
	player ports.AudioPlayer
	tmpDir string

	mu      sync.Mutex
	current *playbackHandle
}

type playbackHandle struct {
	mu      sync.Mutex
	session ports.PlaybackSession
	path    string
	stopped bool
}

func (h *playbackHandle) stop() {
	h.mu.Lock()
	h.stopped = true
	session := h.session
	h.mu.Unlock()
	if session != nil {
		_ = session.Stop()
	}
}

func (h *playbackHandle) isStopped() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stopped
}

// NewPlayer builds a Player. tmpDir may be empty to use the system default.
func NewPlayer(player ports.AudioPlayer, tmpDir string) *Player {
	return &Player{player: player, tmpDir: tmpDir}
}

// Play decodes a base64 audio payload and blocks until it finishes playing.
// It returns ports.ErrPlaybackStopped when Stop or a newer Play interrupts it.
func (p *Player) Play(ctx context.Context, payload string) error {
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return fmt.Errorf("decode interviewer audio: %w", err)
	}

	handle := &playbackHandle{}
	p.mu.Lock()
	previous := p.current
	p.current = handle
	p.mu.Unlock()
	if previous != nil {
		previous.stop()
	}
	defer p.release(handle)

	path, err := p.writeClip(data)
	if err != nil {
		return err
	}
	handle.mu.Lock()
	handle.path = path
	handle.mu.Unlock()

	session, err := p.player.Play(ctx, path)
	if err != nil {
		return fmt.Errorf("start playback: %w", err)
	}

	handle.mu.Lock()
	handle.session = session
	stopped := handle.stopped
	handle.mu.Unlock()
	if stopped {
		_ = session.Stop()
		_ = session.Wait()
		return ports.ErrPlaybackStopped
	}

	waitErr := session.Wait()
	if handle.isStopped() {
		return ports.ErrPlaybackStopped
	}
	if waitErr != nil {
		return fmt.Errorf("playback: %w", waitErr)
	}
	return nil
}

// Stop interrupts the active clip. Safe to call when idle.
func (p *Player) Stop() {
	p.mu.Lock()
	current := p.current
	p.current = nil
	p.mu.Unlock()
	if current != nil {
		current.stop()
	}
}

// Active reports whether a clip is playing.
func (p *Player) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current != nil
}

func (p *Player) writeClip(data []byte) (string, error) {
	file, err := os.CreateTemp(p.tmpDir, "herohire-turn-*.wav")
	if err != nil {
		return "", fmt.Errorf("create audio file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		_ = os.Remove(file.Name())
		return "", fmt.Errorf("write audio file: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(file.Name())
		return "", fmt.Errorf("close audio file: %w", err)
	}
	return file.Name(), nil
}

func (p *Player) release(handle *playbackHandle) {
	p.mu.Lock()
	if p.current == handle {
		p.current = nil
	}
	p.mu.Unlock()

	handle.mu.Lock()
	path := handle.path
	handle.mu.Unlock()
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		observability.WithFields("component", "player").Debug("failed to remove audio file", "path", path, "error", err)
	}
}
