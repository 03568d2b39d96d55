package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"herohire/internal/observability"
	"herohire/internal/ports"
)

const (
	defaultBaseURL = "https://api.deepgram.com/v1"
	defaultModel   = "nova-2"

	outboxSize   = 64
	eventsSize   = 16
	writeTimeout = 5 * time.Second
)

var (
	ErrMissingAPIKey = errors.New("deepgram api key is not configured")
	errSendFinished  = errors.New("caption audio stream already finished")
)

var closeStreamMessage = []byte(`{"type":"CloseStream"}`)

// Config controls the Deepgram live transcription connection.
type Config struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Language    string
	SmartFormat bool
}

// Provider opens live caption sessions against Deepgram's /listen endpoint.
type Provider struct {
	cfg    Config
	dialer *websocket.Dialer
}

func NewProvider(cfg Config) *Provider {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	return &Provider{
		cfg: cfg,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

// StartStreaming opens a session for linear16 PCM in the capture format.
// The session closes itself when ctx is done.
func (p *Provider) StartStreaming(ctx context.Context, audio ports.AudioConfig) (ports.StreamingSession, error) {
	if strings.TrimSpace(p.cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	endpoint, err := listenEndpoint(p.cfg, audio)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Authorization", "Token "+p.cfg.APIKey)
	conn, resp, err := p.dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("deepgram rejected the caption stream (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to connect to deepgram: %w", err)
	}

	return newCaptionSession(ctx, conn), nil
}

// listenEndpoint builds the websocket URL. Interim results are always on so
// the caption can follow the speaker.
func listenEndpoint(cfg Config, audio ports.AudioConfig) (string, error) {
	endpoint, err := url.Parse(strings.TrimSpace(cfg.APIBaseURL))
	if err != nil {
		return "", fmt.Errorf("invalid deepgram base url: %w", err)
	}
	switch endpoint.Scheme {
	case "https":
		endpoint.Scheme = "wss"
	case "http":
		endpoint.Scheme = "ws"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("invalid deepgram base url %q: unsupported scheme", cfg.APIBaseURL)
	}
	endpoint.Path = strings.TrimRight(endpoint.Path, "/") + "/listen"

	sampleRate := audio.SampleRate
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	channels := audio.Channels
	if channels <= 0 {
		channels = 1
	}

	query := url.Values{}
	query.Set("model", cfg.Model)
	query.Set("encoding", "linear16")
	query.Set("sample_rate", strconv.Itoa(sampleRate))
	query.Set("channels", strconv.Itoa(channels))
	query.Set("interim_results", "true")
	if cfg.SmartFormat {
		query.Set("smart_format", "true")
	}
	if cfg.Language != "" {
		query.Set("language", cfg.Language)
	}
	endpoint.RawQuery = query.Encode()
	return endpoint.String(), nil
}

// captionSession sends audio from an outbox goroutine and turns Deepgram
// results into running captions on a receive goroutine.
type captionSession struct {
	conn      *websocket.Conn
	outbox    chan []byte
	events    chan ports.CaptionEvent
	done      chan struct{}
	stopWatch func() bool

	mu        sync.Mutex
	finishing bool
	closing   bool
	ended     bool
	err       error
	dropped   int

	closeOnce sync.Once

	// Owned by the receive goroutine.
	transcript runningTranscript
}

func newCaptionSession(ctx context.Context, conn *websocket.Conn) *captionSession {
	s := &captionSession{
		conn:   conn,
		outbox: make(chan []byte, outboxSize),
		events: make(chan ports.CaptionEvent, eventsSize),
		done:   make(chan struct{}),
	}
	s.stopWatch = context.AfterFunc(ctx, func() { _ = s.Close() })

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.send()
	}()
	go func() {
		defer wg.Done()
		s.receive()
	}()
	go func() {
		wg.Wait()
		_ = s.conn.Close()
		close(s.done)
	}()
	return s
}

// SendAudio queues a chunk. When the outbox is full the chunk is dropped;
// captions are display-only and must never hold up the recording.
func (s *captionSession) SendAudio(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.finishing {
		return errSendFinished
	}
	select {
	case s.outbox <- append([]byte(nil), chunk...):
	default:
		s.dropped++
	}
	return nil
}

// CloseSend flushes queued audio and asks Deepgram to finalize.
func (s *captionSession) CloseSend() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.finishing {
		s.finishing = true
		close(s.outbox)
	}
	return nil
}

func (s *captionSession) Events() <-chan ports.CaptionEvent {
	return s.events
}

// Wait blocks until both directions are finished.
func (s *captionSession) Wait() error {
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close drops the connection without waiting for final results.
func (s *captionSession) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closing = true
		s.mu.Unlock()
		_ = s.CloseSend()
		_ = s.conn.Close()
	})
	return s.Wait()
}

// fail records the first error. Errors caused by a local Close, or seen
// after the server already ended the stream, are ignored.
func (s *captionSession) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil && !s.closing && !s.ended {
		s.err = err
	}
}

func (s *captionSession) write(messageType int, data []byte) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteMessage(messageType, data)
}

func (s *captionSession) send() {
	for chunk := range s.outbox {
		if err := s.write(websocket.BinaryMessage, chunk); err != nil {
			s.fail(fmt.Errorf("failed to send audio to deepgram: %w", err))
			s.drainOutbox()
			return
		}
	}
	if err := s.write(websocket.TextMessage, closeStreamMessage); err != nil {
		s.fail(fmt.Errorf("failed to finish deepgram stream: %w", err))
	}
}

// drainOutbox discards audio queued after a send failure until CloseSend.
func (s *captionSession) drainOutbox() {
	for range s.outbox {
	}
}

func (s *captionSession) receive() {
	defer func() {
		s.mu.Lock()
		s.ended = true
		dropped := s.dropped
		s.mu.Unlock()
		close(s.events)
		s.stopWatch()
		_ = s.CloseSend()
		if dropped > 0 {
			observability.WithFields("component", "deepgram").Debug("dropped caption audio while the connection was slow", "chunks", dropped)
		}
	}()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				s.fail(fmt.Errorf("failed to read from deepgram: %w", err))
			}
			return
		}

		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "Error":
			s.fail(msg.failure())
			return
		case "Results":
			if text, changed := s.transcript.apply(msg.transcript(), msg.IsFinal || msg.SpeechFinal); changed {
				s.publish(ports.CaptionEvent{Text: text, IsFinal: msg.IsFinal || msg.SpeechFinal})
			}
		}
	}
}

// publish keeps only the newest caption when the consumer falls behind.
func (s *captionSession) publish(event ports.CaptionEvent) {
	for {
		select {
		case s.events <- event:
			return
		default:
		}
		select {
		case <-s.events:
		default:
		}
	}
}

type serverMessage struct {
	Type        string `json:"type"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`
	Channel     struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`

	Description string `json:"description"`
	Message     string `json:"message"`
}

func (m serverMessage) transcript() string {
	if len(m.Channel.Alternatives) == 0 {
		return ""
	}
	return m.Channel.Alternatives[0].Transcript
}

func (m serverMessage) failure() error {
	for _, text := range []string{m.Description, m.Message} {
		if text = strings.TrimSpace(text); text != "" {
			return fmt.Errorf("deepgram error: %s", text)
		}
	}
	return errors.New("deepgram error: no details")
}

// runningTranscript is the caption for one recording: finalized segments
// followed by the current interim segment.
type runningTranscript struct {
	final   []string
	pending string
}

// apply folds one result in and reports whether the caption changed.
func (t *runningTranscript) apply(segment string, isFinal bool) (string, bool) {
	segment = strings.TrimSpace(segment)
	before := t.text()
	switch {
	case isFinal && segment != "":
		t.final = append(t.final, segment)
		t.pending = ""
	case isFinal:
		t.pending = ""
	case segment != "":
		t.pending = segment
	}
	after := t.text()
	return after, after != before
}

func (t *runningTranscript) text() string {
	parts := t.final
	if t.pending != "" {
		parts = append(parts[:len(parts):len(parts)], t.pending)
	}
	return strings.Join(parts, " ")
}
