package ports

import (
	"context"
	"errors"
	"io"

	"herohire/internal/domain"
)

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// AudioSession is a live capture session.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	// Probe checks that the input device can be opened at all.
	Probe(ctx context.Context, cfg AudioConfig) error
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// ErrPlaybackStopped is returned when a clip is stopped before it ends.
var ErrPlaybackStopped = errors.New("playback stopped")

// PlaybackSession is one clip being played.
type PlaybackSession interface {
	// Wait blocks until the clip ends; nil means it played to completion.
	Wait() error
	Stop() error
}

// AudioPlayer plays audio files.
type AudioPlayer interface {
	Play(ctx context.Context, path string) (PlaybackSession, error)
}

// CaptionEvent carries the running caption of the current recording:
// finalized segments followed by the latest interim one.
type CaptionEvent struct {
	Text    string
	IsFinal bool
}

// StreamingSession is one live caption connection.
type StreamingSession interface {
	SendAudio(chunk []byte) error
	CloseSend() error
	Events() <-chan CaptionEvent
	Wait() error
	Close() error
}

// CaptionProvider starts live caption sessions for 16-bit PCM captured with audio.
type CaptionProvider interface {
	StartStreaming(ctx context.Context, audio AudioConfig) (StreamingSession, error)
}

// LoginOutcome is the result of a login call: either a token or an OTP step.
type LoginOutcome struct {
	IdentityToken  string
	OTPSent        bool
	OTPAlreadySent bool
}

// InterviewerMessage is one interviewer response from the backend.
type InterviewerMessage struct {
	ConversationID    string
	ConversationText  string
	ConversationAudio string
}

// ErrLimitReached is matched by Backend errors when the conversation quota is exhausted.
var ErrLimitReached = errors.New("conversation limit reached")

// BusinessError is implemented by errors the backend reported in its response envelope.
type BusinessError interface {
	error
	BackendMessage() string
}

// Backend is the interview API.
type Backend interface {
	Login(ctx context.Context, identity domain.Identity) (LoginOutcome, error)
	VerifyOTP(ctx context.Context, email string, otp string) (string, error)
	CreateMeet(ctx context.Context, token string) (string, error)
	StartMeet(ctx context.Context, session domain.Session) error
	FirstMessage(ctx context.Context, session domain.Session) (InterviewerMessage, error)
	SaveConversation(ctx context.Context, session domain.Session, base64Audio string) error
	NextMessage(ctx context.Context, session domain.Session) (InterviewerMessage, error)
	EndMeet(ctx context.Context, session domain.Session, reason string) error
}

// SessionStore persists the identity token and meeting code.
type SessionStore interface {
	Save(token string, meetingCode string) error
	Load() (domain.Session, bool)
	Clear() error
}

// ProfileStore persists entry form pre-fill values.
type ProfileStore interface {
	SaveProfile(identity domain.Identity) error
	LoadProfile() (domain.Identity, bool)
}

// Clipboard writes text into the system clipboard.
type Clipboard interface {
	SetText(ctx context.Context, text string) error
}

// EventSink emits conversation state/events to the view.
type EventSink interface {
	TurnStateChanged(status domain.Status, reason domain.TurnStateReason)
	TurnAppended(turn domain.ConversationTurn)
	Caption(text string)
	SessionError(code domain.ErrorCode, detail string)
}
