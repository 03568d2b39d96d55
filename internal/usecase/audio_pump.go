package usecase

import (
	"errors"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"herohire/internal/domain"
	"herohire/internal/ports"
)

var errDeviceClosed = errors.New("audio device closed the stream")

// fragmentBuffer keeps captured chunks in arrival order.
type fragmentBuffer struct {
	mu        sync.Mutex
	fragments [][]byte
	size      int
}

func (b *fragmentBuffer) Append(chunk []byte) {
	copied := append([]byte(nil), chunk...)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fragments = append(b.fragments, copied)
	b.size += len(copied)
}

// Concat joins all fragments and drops them.
func (b *fragmentBuffer) Concat() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]byte, 0, b.size)
	for _, fragment := range b.fragments {
		out = append(out, fragment...)
	}
	b.resetLocked()
	return out
}

// Reset drops all fragments.
func (b *fragmentBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetLocked()
}

func (b *fragmentBuffer) resetLocked() {
	b.fragments = nil
	b.size = 0
}

// pumpAudioChunks moves captured audio into the buffer and, when present,
// the caption stream. It returns the first read error seen before stopping.
func pumpAudioChunks(
	audio ports.AudioSession,
	buffer *fragmentBuffer,
	stream ports.StreamingSession,
	chunkSize int,
	stopping *atomic.Bool,
	events ports.EventSink,
	done chan<- error,
) {
	if chunkSize < 256 {
		chunkSize = 4096
	}

	captionsOK := stream != nil
	buf := make([]byte, chunkSize)
	for {
		n, err := audio.Read(buf)
		if n > 0 {
			buffer.Append(buf[:n])
			if captionsOK {
				if sendErr := stream.SendAudio(buf[:n]); sendErr != nil {
					captionsOK = false
					if !stopping.Load() {
						events.SessionError(domain.ErrorCodeCaption, sendErr.Error())
					}
				}
			}
		}
		if err != nil {
			switch {
			case stopping.Load() || errors.Is(err, os.ErrClosed):
				done <- nil
			case errors.Is(err, io.EOF):
				done <- errDeviceClosed
			default:
				done <- err
			}
			close(done)
			return
		}
	}
}

func waitForStream(session ports.StreamingSession, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		done <- session.Wait()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		_ = session.Close()
		return <-done
	}
}
