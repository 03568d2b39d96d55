package usecase

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"herohire/internal/domain"
	"herohire/internal/observability"
	"herohire/internal/ports"
)

// EndReasonUser is sent to the backend when the candidate ends the meeting.
const EndReasonUser = "ended by user by clicking end meet button"

// ConversationController runs the turn-taking state machine for one meeting.
type ConversationController struct {
	backend     ports.Backend
	store       ports.SessionStore
	recorder    *Recorder
	player      *Player
	events      ports.EventSink
	reachOutURL string
	now         func() time.Time

	mu         sync.Mutex
	state      domain.TurnState
	reason     domain.TurnStateReason
	session    domain.Session
	turns      []domain.ConversationTurn
	thinking   bool
	speaker    domain.Speaker
	micGranted bool
	busy       bool
	message    string
}

// NewConversationController builds a controller in the ready state without a session.
func NewConversationController(
	backend ports.Backend,
	store ports.SessionStore,
	recorder *Recorder,
	player *Player,
	events ports.EventSink,
	reachOutURL string,
) *ConversationController {
	return &ConversationController{
		backend:     backend,
		store:       store,
		recorder:    recorder,
		player:      player,
		events:      events,
		reachOutURL: reachOutURL,
		now:         time.Now,
		state:       domain.TurnStateReady,
		speaker:     domain.SpeakerInterviewer,
	}
}

// Open loads the stored session and resets the conversation to ready.
// Without a usable session it clears the store and returns ErrSessionInvalid.
func (c *ConversationController) Open() (domain.Session, error) {
	c.mu.Lock()
	if (c.state != domain.TurnStateReady && c.state != domain.TurnStateFinished) || c.busy {
		c.mu.Unlock()
		return domain.Session{}, ErrInvalidTransition
	}
	c.mu.Unlock()

	session, ok := c.store.Load()
	if !ok {
		if err := c.store.Clear(); err != nil {
			observability.WithFields("component", "conversation").Warn("failed to clear session", "error", err)
		}
		c.events.TurnStateChanged(c.Status(), domain.TurnReasonSessionInvalid)
		return domain.Session{}, ErrSessionInvalid
	}

	c.mu.Lock()
	c.session = session
	c.state = domain.TurnStateReady
	c.reason = domain.TurnReasonMeetingReady
	c.turns = nil
	c.thinking = false
	c.speaker = domain.SpeakerInterviewer
	c.message = ""
	status := c.statusLocked()
	c.mu.Unlock()

	c.events.TurnStateChanged(status, domain.TurnReasonMeetingReady)
	return session, nil
}

// Start begins the meeting: mic check, start-meet, first interviewer turn.
// It blocks until the first turn has played.
func (c *ConversationController) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != domain.TurnStateReady || c.busy {
		c.mu.Unlock()
		return ErrInvalidTransition
	}
	if c.session.MeetingCode == "" {
		c.mu.Unlock()
		return ErrSessionInvalid
	}
	c.busy = true
	granted := c.micGranted
	session := c.session
	c.mu.Unlock()
	defer c.release()

	if !granted {
		if err := c.recorder.CheckAccess(ctx); err != nil {
			observability.WithFields("component", "conversation").Warn("microphone check failed", "error", err)
			c.events.SessionError(domain.ErrorCodePermission, "")
			return newNotice(domain.ErrorCodePermission, "", err)
		}
		c.mu.Lock()
		c.micGranted = true
		c.mu.Unlock()
	}

	if !c.advance(domain.TurnStateReady, domain.TurnStateInterviewerSpeaking, domain.TurnReasonMeetingStarted, true) {
		return ErrFinished
	}

	if err := c.backend.StartMeet(ctx, session); err != nil {
		if errors.Is(err, ports.ErrLimitReached) {
			return c.fail(err)
		}
		return c.finishWithNotice(domain.TurnReasonFailed, domain.ErrorCodeStartMeeting, err)
	}
	if c.finished() {
		return ErrFinished
	}

	msg, err := c.backend.FirstMessage(ctx, session)
	if err != nil {
		return c.fail(err)
	}
	return c.deliver(ctx, domain.TurnStateInterviewerSpeaking, msg)
}

// PressMic starts recording the candidate's answer.
func (c *ConversationController) PressMic(ctx context.Context) error {
	c.mu.Lock()
	if c.state != domain.TurnStateAwaitingUserSpeech || c.busy {
		c.mu.Unlock()
		return ErrInvalidTransition
	}
	c.busy = true
	c.state = domain.TurnStateUserRecording
	c.reason = domain.TurnReasonRecordingStarted
	c.speaker = domain.SpeakerCandidate
	status := c.statusLocked()
	c.mu.Unlock()
	defer c.release()

	c.events.TurnStateChanged(status, domain.TurnReasonRecordingStarted)

	if err := c.recorder.Begin(ctx); err != nil {
		observability.WithFields("component", "conversation").Warn("failed to start recording", "error", err)
		c.advance(domain.TurnStateUserRecording, domain.TurnStateAwaitingUserSpeech, domain.TurnReasonYourTurn, false)
		c.events.SessionError(domain.ErrorCodePermission, "")
		return newNotice(domain.ErrorCodePermission, "", err)
	}
	if c.finished() {
		c.recorder.Discard()
		return ErrFinished
	}
	return nil
}

// ReleaseMic ends the recording, uploads it and plays the next interviewer turn.
// It blocks until that turn has played.
func (c *ConversationController) ReleaseMic(ctx context.Context) error {
	c.mu.Lock()
	if c.state != domain.TurnStateUserRecording || c.busy {
		c.mu.Unlock()
		return ErrInvalidTransition
	}
	c.busy = true
	c.state = domain.TurnStateProcessingUserSpeech
	c.reason = domain.TurnReasonUploading
	c.thinking = true
	c.speaker = domain.SpeakerInterviewer
	session := c.session
	status := c.statusLocked()
	c.mu.Unlock()
	defer c.release()

	c.events.TurnStateChanged(status, domain.TurnReasonUploading)

	payload, err := c.recorder.End()
	if err != nil {
		return c.fail(err)
	}
	if c.finished() {
		return ErrFinished
	}

	if err := c.backend.SaveConversation(ctx, session, base64.StdEncoding.EncodeToString(payload)); err != nil {
		return c.fail(err)
	}
	if c.finished() {
		return ErrFinished
	}

	msg, err := c.backend.NextMessage(ctx, session)
	if err != nil {
		return c.fail(err)
	}
	return c.deliver(ctx, domain.TurnStateProcessingUserSpeech, msg)
}

// EndMeeting finishes the conversation and tells the backend. The session is
// cleared whether or not the backend call succeeds.
func (c *ConversationController) EndMeeting(ctx context.Context) error {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()

	if !c.enterFinished(domain.MessageMeetingEnded) {
		return ErrFinished
	}

	if err := c.backend.EndMeet(ctx, session, EndReasonUser); err != nil {
		observability.WithFields("component", "conversation", "meeting_code", session.MeetingCode).Error("end meeting failed", "error", err)
		c.mu.Lock()
		c.reason = domain.TurnReasonEndFailed
		c.message = domain.MessageEndFailed
		status := c.statusLocked()
		c.mu.Unlock()
		c.events.TurnStateChanged(status, domain.TurnReasonEndFailed)
		c.events.SessionError(domain.ErrorCodeEndMeeting, "")
		return newNotice(domain.ErrorCodeEndMeeting, "", err)
	}

	c.mu.Lock()
	c.reason = domain.TurnReasonEndedByUser
	status := c.statusLocked()
	c.mu.Unlock()
	c.events.TurnStateChanged(status, domain.TurnReasonEndedByUser)
	return nil
}

// Acknowledge confirms the final notice. Only valid once finished.
func (c *ConversationController) Acknowledge() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != domain.TurnStateFinished {
		return ErrInvalidTransition
	}
	c.session = domain.Session{}
	return nil
}

// ReachOutURL is the redirect offered after the conversation limit was hit.
// It is empty in every other case.
func (c *ConversationController) ReachOutURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != domain.TurnStateFinished || c.reason != domain.TurnReasonLimitReached {
		return ""
	}
	return c.reachOutURL
}

func (c *ConversationController) Status() domain.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

// Transcript returns the interviewer turns in arrival order.
func (c *ConversationController) Transcript() []domain.ConversationTurn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.ConversationTurn(nil), c.turns...)
}

// TranscriptText renders the transcript as plain text, one turn per paragraph.
func (c *ConversationController) TranscriptText() string {
	turns := c.Transcript()
	parts := make([]string, 0, len(turns))
	for _, turn := range turns {
		text := strings.TrimSpace(turn.TranscriptText)
		if text == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("[%s] Interviewer: %s", turn.ReceivedAt.Format("3:04 PM"), text))
	}
	return strings.Join(parts, "\n\n")
}

func (c *ConversationController) statusLocked() domain.Status {
	return domain.Status{
		State:               c.state,
		Speaker:             c.speaker,
		Mic:                 domain.MicControlFor(c.state),
		MicEnabled:          domain.MicEnabled(c.state),
		InterviewerThinking: c.thinking,
		Turns:               len(c.turns),
		Message:             c.message,
	}
}

func (c *ConversationController) release() {
	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
}

func (c *ConversationController) finished() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == domain.TurnStateFinished
}

// advance moves from -> to and emits the change. It reports false when the
// state moved on in the meantime.
func (c *ConversationController) advance(from domain.TurnState, to domain.TurnState, reason domain.TurnStateReason, thinking bool) bool {
	c.mu.Lock()
	if c.state != from {
		c.mu.Unlock()
		return false
	}
	c.state = to
	c.reason = reason
	c.thinking = thinking
	switch to {
	case domain.TurnStateAwaitingUserSpeech:
		c.speaker = domain.SpeakerCandidate
	case domain.TurnStateInterviewerSpeaking:
		c.speaker = domain.SpeakerInterviewer
	}
	status := c.statusLocked()
	c.mu.Unlock()

	c.events.TurnStateChanged(status, reason)
	return true
}

func (c *ConversationController) deliver(ctx context.Context, from domain.TurnState, msg ports.InterviewerMessage) error {
	c.mu.Lock()
	if c.state != from {
		c.mu.Unlock()
		return ErrFinished
	}
	turn := domain.ConversationTurn{
		TurnID:         msg.ConversationID,
		TranscriptText: msg.ConversationText,
		AudioPayload:   msg.ConversationAudio,
		ReceivedAt:     c.now(),
	}
	if turn.TurnID == "" {
		turn.TurnID = fmt.Sprintf("turn-%d", len(c.turns)+1)
	}
	c.turns = append(c.turns, turn)
	c.state = domain.TurnStateInterviewerSpeaking
	c.reason = domain.TurnReasonInterviewerReplied
	c.thinking = false
	c.speaker = domain.SpeakerInterviewer
	status := c.statusLocked()
	c.mu.Unlock()

	c.events.TurnAppended(turn)
	c.events.TurnStateChanged(status, domain.TurnReasonInterviewerReplied)

	if turn.AudioPayload != "" {
		if err := c.player.Play(ctx, turn.AudioPayload); err != nil {
			if c.finished() {
				return ErrFinished
			}
			return c.fail(err)
		}
	}

	if !c.advance(domain.TurnStateInterviewerSpeaking, domain.TurnStateAwaitingUserSpeech, domain.TurnReasonYourTurn, false) {
		return ErrFinished
	}
	return nil
}

// fail finishes the conversation for an unrecoverable error. The conversation
// limit gets its own notice; everything else is reported generically.
func (c *ConversationController) fail(err error) error {
	if errors.Is(err, ports.ErrLimitReached) {
		return c.finishWithNotice(domain.TurnReasonLimitReached, domain.ErrorCodeLimitReached, err)
	}
	return c.finishWithNotice(domain.TurnReasonFailed, domain.ErrorCodeUnexpected, err)
}

func (c *ConversationController) finishWithNotice(reason domain.TurnStateReason, code domain.ErrorCode, err error) error {
	notice := newNotice(code, "", err)
	if !c.enterFinished(notice.Message) {
		return ErrFinished
	}
	if reason == domain.TurnReasonLimitReached {
		observability.WithFields("component", "conversation").Info("conversation limit reached")
	} else {
		observability.WithFields("component", "conversation").Error("conversation failed", "error", err)
	}

	c.mu.Lock()
	c.reason = reason
	status := c.statusLocked()
	c.mu.Unlock()

	c.events.TurnStateChanged(status, reason)
	c.events.SessionError(code, "")
	return notice
}

// enterFinished moves to finished and runs its entry actions: stop playback,
// discard any recording, clear the session. Only the first caller wins.
func (c *ConversationController) enterFinished(message string) bool {
	c.mu.Lock()
	if c.state == domain.TurnStateFinished {
		c.mu.Unlock()
		return false
	}
	c.state = domain.TurnStateFinished
	c.thinking = false
	c.message = message
	c.mu.Unlock()

	c.player.Stop()
	c.recorder.Discard()
	if err := c.store.Clear(); err != nil {
		observability.WithFields("component", "conversation").Warn("failed to clear session", "error", err)
	}
	return true
}
