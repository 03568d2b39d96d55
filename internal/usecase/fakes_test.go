package usecase

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"herohire/internal/domain"
	"herohire/internal/ports"
)

type fakeAudioCapture struct {
	mu       sync.Mutex
	sessions []ports.AudioSession
	err      error
	probeErr error
	calls    int
	probes   int

	// probeStarted is closed when Probe is entered; Probe then waits on probeGate.
	probeStarted chan struct{}
	probeGate    chan struct{}
}

func (f *fakeAudioCapture) Probe(_ context.Context, _ ports.AudioConfig) error {
	if f.probeGate != nil {
		close(f.probeStarted)
		<-f.probeGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probes++
	return f.probeErr
}

func (f *fakeAudioCapture) Start(_ context.Context, _ ports.AudioConfig) (ports.AudioSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.calls >= len(f.sessions) {
		return nil, errors.New("no audio session configured")
	}
	session := f.sessions[f.calls]
	f.calls++
	return session, nil
}

// fakeAudioSession serves its chunks and then blocks until Stop, like a live
// device. With dropAfterChunks it reports EOF right away instead.
type fakeAudioSession struct {
	mu              sync.Mutex
	chunks          [][]byte
	index           int
	stopCalls       int
	stopErr         error
	dropAfterChunks bool
	stopped         chan struct{}
}

func newFakeAudioSession(chunks ...[]byte) *fakeAudioSession {
	return &fakeAudioSession{chunks: chunks, stopped: make(chan struct{})}
}

func (f *fakeAudioSession) Read(p []byte) (int, error) {
	f.mu.Lock()
	if f.index < len(f.chunks) {
		n := copy(p, f.chunks[f.index])
		f.index++
		f.mu.Unlock()
		return n, nil
	}
	drop := f.dropAfterChunks
	f.mu.Unlock()

	if !drop {
		<-f.stopped
	}
	return 0, io.EOF
}

func (f *fakeAudioSession) Close() error { return nil }

func (f *fakeAudioSession) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls++
	if f.stopCalls == 1 {
		close(f.stopped)
	}
	return f.stopErr
}

type fakeProvider struct {
	sessions []ports.StreamingSession
	err      error
	calls    int
}

func (f *fakeProvider) StartStreaming(_ context.Context, _ ports.AudioConfig) (ports.StreamingSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.calls >= len(f.sessions) {
		return nil, errors.New("no stream session configured")
	}
	session := f.sessions[f.calls]
	f.calls++
	return session, nil
}

type fakeStreamingSession struct {
	events     chan ports.CaptionEvent
	sendErr    error
	waitErr    error
	sent       int
	closeSend  int
	closeCalls int
	closed     bool
	mu         sync.Mutex
}

func newFakeStreamingSession() *fakeStreamingSession {
	return &fakeStreamingSession{events: make(chan ports.CaptionEvent, 16)}
}

func (f *fakeStreamingSession) SendAudio(_ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent++
	return f.sendErr
}

func (f *fakeStreamingSession) CloseSend() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeSend++
	if !f.closed {
		close(f.events)
		f.closed = true
	}
	return nil
}

func (f *fakeStreamingSession) Events() <-chan ports.CaptionEvent { return f.events }

func (f *fakeStreamingSession) Wait() error {
	time.Sleep(5 * time.Millisecond)
	return f.waitErr
}

func (f *fakeStreamingSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCalls++
	if !f.closed {
		close(f.events)
		f.closed = true
	}
	return nil
}

type fakeAudioPlayer struct {
	mu       sync.Mutex
	block    bool
	err      error
	waitErr  error
	sessions []*fakePlayback
	paths    []string
	started  chan struct{}
}

func newFakeAudioPlayer(block bool) *fakeAudioPlayer {
	return &fakeAudioPlayer{block: block, started: make(chan struct{}, 16)}
}

func (f *fakeAudioPlayer) Play(_ context.Context, path string) (ports.PlaybackSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, path)
	if f.err != nil {
		return nil, f.err
	}
	session := &fakePlayback{done: make(chan struct{}), waitErr: f.waitErr}
	if !f.block {
		session.finish()
	}
	f.sessions = append(f.sessions, session)
	f.started <- struct{}{}
	return session, nil
}

func (f *fakeAudioPlayer) snapshotSessions() []*fakePlayback {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakePlayback(nil), f.sessions...)
}

type fakePlayback struct {
	mu        sync.Mutex
	done      chan struct{}
	once      sync.Once
	waitErr   error
	stopCalls int
}

func (f *fakePlayback) finish() {
	f.once.Do(func() { close(f.done) })
}

func (f *fakePlayback) Wait() error {
	<-f.done
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopCalls > 0 {
		return errors.New("playback interrupted")
	}
	return f.waitErr
}

func (f *fakePlayback) Stop() error {
	f.mu.Lock()
	f.stopCalls++
	f.mu.Unlock()
	f.finish()
	return nil
}

func (f *fakePlayback) stopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopCalls > 0
}

type fakeBackend struct {
	mu    sync.Mutex
	calls []string

	loginOutcome ports.LoginOutcome
	loginErr     error
	verifyToken  string
	verifyErr    error
	meetingCode  string
	createErr    error
	startErr     error
	firstMessage ports.InterviewerMessage
	firstErr     error
	saveErr      error
	saved        []string
	nextMessages []ports.InterviewerMessage
	nextErr      error
	endErr       error
	endReason    string

	// nextHook runs inside NextMessage before it returns.
	nextHook func()
}

func (f *fakeBackend) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeBackend) snapshotCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeBackend) Login(_ context.Context, _ domain.Identity) (ports.LoginOutcome, error) {
	f.record("login")
	return f.loginOutcome, f.loginErr
}

func (f *fakeBackend) VerifyOTP(_ context.Context, _ string, _ string) (string, error) {
	f.record("verify-otp")
	return f.verifyToken, f.verifyErr
}

func (f *fakeBackend) CreateMeet(_ context.Context, _ string) (string, error) {
	f.record("create-meet")
	return f.meetingCode, f.createErr
}

func (f *fakeBackend) StartMeet(_ context.Context, _ domain.Session) error {
	f.record("start-meet")
	return f.startErr
}

func (f *fakeBackend) FirstMessage(_ context.Context, _ domain.Session) (ports.InterviewerMessage, error) {
	f.record("first-message")
	return f.firstMessage, f.firstErr
}

func (f *fakeBackend) SaveConversation(_ context.Context, _ domain.Session, base64Audio string) error {
	f.record("save-conversation")
	f.mu.Lock()
	f.saved = append(f.saved, base64Audio)
	f.mu.Unlock()
	return f.saveErr
}

func (f *fakeBackend) NextMessage(_ context.Context, _ domain.Session) (ports.InterviewerMessage, error) {
	f.record("next-message")
	if f.nextHook != nil {
		f.nextHook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.nextErr != nil {
		return ports.InterviewerMessage{}, f.nextErr
	}
	if len(f.nextMessages) == 0 {
		return ports.InterviewerMessage{}, errors.New("no next message configured")
	}
	msg := f.nextMessages[0]
	f.nextMessages = f.nextMessages[1:]
	return msg, nil
}

func (f *fakeBackend) EndMeet(_ context.Context, _ domain.Session, reason string) error {
	f.record("end-meet")
	f.mu.Lock()
	f.endReason = reason
	f.mu.Unlock()
	return f.endErr
}

type businessError struct {
	message string
}

func (e *businessError) Error() string          { return "backend: " + e.message }
func (e *businessError) BackendMessage() string { return e.message }

type fakeEventSink struct {
	mu sync.Mutex

	states   []stateEvent
	turns    []domain.ConversationTurn
	captions []string
	errors   []errEvent
}

type stateEvent struct {
	status domain.Status
	reason domain.TurnStateReason
}

type errEvent struct {
	code   domain.ErrorCode
	detail string
}

func (f *fakeEventSink) TurnStateChanged(status domain.Status, reason domain.TurnStateReason) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, stateEvent{status: status, reason: reason})
}

func (f *fakeEventSink) TurnAppended(turn domain.ConversationTurn) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.turns = append(f.turns, turn)
}

func (f *fakeEventSink) Caption(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.captions = append(f.captions, text)
}

func (f *fakeEventSink) SessionError(code domain.ErrorCode, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, errEvent{code: code, detail: detail})
}

func (f *fakeEventSink) snapshotStates() []stateEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]stateEvent, len(f.states))
	copy(out, f.states)
	return out
}

func (f *fakeEventSink) snapshotErrors() []errEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]errEvent, len(f.errors))
	copy(out, f.errors)
	return out
}

func (f *fakeEventSink) snapshotCaptions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.captions...)
}

func (f *fakeEventSink) snapshotTurns() []domain.ConversationTurn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.ConversationTurn(nil), f.turns...)
}
