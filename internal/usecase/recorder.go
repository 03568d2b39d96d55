package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"herohire/internal/audio"
	"herohire/internal/domain"
	"herohire/internal/observability"
	"herohire/internal/ports"
)

var (
	ErrNoActiveRecording     = errors.New("no active recording")
	ErrRecordingActive       = errors.New("recording already in progress")
	ErrMicrophoneUnavailable = errors.New("microphone unavailable")
	ErrCaptureInterrupted    = errors.New("audio capture interrupted")
)

// RecorderConfig controls capture. Captions are streamed in the capture format.
type RecorderConfig struct {
	Audio     ports.AudioConfig
	ChunkSize int
}

// Recorder captures one answer at a time and assembles it into a WAV payload.
type Recorder struct {
	capture  ports.AudioCapture
	captions ports.CaptionProvider
	events   ports.EventSink
	cfg      RecorderConfig

	mu      sync.Mutex
	current *recordingSession
}

type recordingSession struct {
	cancel   context.CancelFunc
	audio    ports.AudioSession
	stream   ports.StreamingSession
	buffer   *fragmentBuffer
	stopping atomic.Bool

	pumpDone     chan error
	captionsDone chan struct{}
}

// NewRecorder builds a Recorder. captions may be nil.
func NewRecorder(capture ports.AudioCapture, captions ports.CaptionProvider, events ports.EventSink, cfg RecorderConfig) *Recorder {
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = 4096
	}
	return &Recorder{capture: capture, captions: captions, events: events, cfg: cfg}
}

// CheckAccess confirms the microphone can be opened.
func (r *Recorder) CheckAccess(ctx context.Context) error {
	if err := r.capture.Probe(ctx, r.cfg.Audio); err != nil {
		return fmt.Errorf("%w: %v", ErrMicrophoneUnavailable, err)
	}
	return nil
}

// Begin starts capture and returns once the device is streaming.
func (r *Recorder) Begin(ctx context.Context) error {
	r.mu.Lock()
	if r.current != nil {
		r.mu.Unlock()
		return ErrRecordingActive
	}
	r.mu.Unlock()

	sessionCtx, cancel := context.WithCancel(ctx)
	audioSession, err := r.capture.Start(sessionCtx, r.cfg.Audio)
	if err != nil {
		cancel()
		return fmt.Errorf("%w: %v", ErrMicrophoneUnavailable, err)
	}

	active := &recordingSession{
		cancel:   cancel,
		audio:    audioSession,
		buffer:   &fragmentBuffer{},
		pumpDone: make(chan error, 1),
	}

	if r.captions != nil {
		stream, err := r.captions.StartStreaming(sessionCtx, r.cfg.Audio)
		if err != nil {
			r.events.SessionError(domain.ErrorCodeCaption, err.Error())
		} else {
			active.stream = stream
			active.captionsDone = make(chan struct{})
			go consumeCaptions(stream, r.events, active.captionsDone)
		}
	}

	r.mu.Lock()
	if r.current != nil {
		r.mu.Unlock()
		r.teardown(active)
		return ErrRecordingActive
	}
	r.current = active
	r.mu.Unlock()

	go pumpAudioChunks(active.audio, active.buffer, active.stream, r.cfg.ChunkSize, &active.stopping, r.events, active.pumpDone)
	return nil
}

// End stops capture and returns the recording as a WAV payload.
func (r *Recorder) End() ([]byte, error) {
	active, err := r.take()
	if err != nil {
		return nil, err
	}

	active.stopping.Store(true)
	if err := active.audio.Stop(); err != nil {
		observability.WithFields("component", "recorder").Warn("failed to stop audio capture cleanly", "error", err)
	}
	readErr := <-active.pumpDone

	if active.stream != nil {
		_ = active.stream.CloseSend()
		if err := waitForStream(active.stream, 4*time.Second); err != nil {
			observability.WithFields("component", "recorder").Debug("caption stream ended with error", "error", err)
		}
		<-active.captionsDone
	}
	active.cancel()

	pcm := active.buffer.Concat()
	if readErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureInterrupted, readErr)
	}
	return audio.EncodeWAV(pcm, r.cfg.Audio.SampleRate, r.cfg.Audio.Channels), nil
}

// Discard stops an active recording and drops its audio. No-op when idle.
func (r *Recorder) Discard() {
	active, err := r.take()
	if err != nil {
		return
	}
	r.teardown(active)
	active.buffer.Reset()
}

// Active reports whether capture is running.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current != nil
}

func (r *Recorder) take() (*recordingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return nil, ErrNoActiveRecording
	}
	active := r.current
	r.current = nil
	return active, nil
}

func (r *Recorder) teardown(active *recordingSession) {
	active.stopping.Store(true)
	active.cancel()
	_ = active.audio.Stop()
	if active.stream != nil {
		_ = active.stream.Close()
		<-active.captionsDone
	}
	// pumpDone is only fed once the pump goroutine runs.
	select {
	case <-active.pumpDone:
	case <-time.After(2 * time.Second):
	}
}
