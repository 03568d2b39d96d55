package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"herohire/internal/bootstrap"
	"herohire/internal/config"
	"herohire/internal/domain"
	"herohire/internal/ports"
	"herohire/internal/usecase"
)

const (
	eventState   = "herohire:state"
	eventTurn    = "herohire:turn"
	eventCaption = "herohire:caption"
	eventError   = "herohire:error"
)

// App is the Wails application root. It backs both the entry view and the
// conversation view.
type App struct {
	ctx context.Context

	login        *usecase.LoginFlow
	conversation *usecase.ConversationController
	clipboard    ports.Clipboard
	cfg          config.Config
	bootErr      error
}

func NewApp() *App {
	return &App{clipboard: &wailsClipboard{}}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a)
	if err != nil {
		a.bootErr = err
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.cfg = services.Config
	a.login = services.Login
	a.conversation = services.Conversation
}

// OpenEntry resets the entry view and returns the saved name and email.
func (a *App) OpenEntry() (domain.Identity, error) {
	if err := a.requireReady(); err != nil {
		return domain.Identity{}, err
	}
	return a.login.Open(), nil
}

// SubmitDetails sends the entry form.
func (a *App) SubmitDetails(name string, email string) (domain.LoginResult, error) {
	if err := a.requireReady(); err != nil {
		return domain.LoginResult{}, err
	}
	return a.login.SubmitDetails(a.ctx, domain.Identity{DisplayName: name, EmailAddress: email})
}

// VerifyOTP submits the emailed code.
func (a *App) VerifyOTP(email string, otp string) (domain.LoginResult, error) {
	if err := a.requireReady(); err != nil {
		return domain.LoginResult{}, err
	}
	return a.login.VerifyOTP(a.ctx, email, otp)
}

// OpenConversation enters the conversation view. It fails without a valid
// session, in which case the frontend returns to the entry view.
func (a *App) OpenConversation() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if _, err := a.conversation.Open(); err != nil {
		return a.conversation.Status(), err
	}
	return a.conversation.Status(), nil
}

// StartMeeting starts the interview and plays the first question.
func (a *App) StartMeeting() (domain.Status, error) {
	return a.act(a.conversation.Start)
}

// PressMic starts recording an answer.
func (a *App) PressMic() (domain.Status, error) {
	return a.act(a.conversation.PressMic)
}

// ReleaseMic submits the answer and plays the next question.
func (a *App) ReleaseMic() (domain.Status, error) {
	return a.act(a.conversation.ReleaseMic)
}

// EndMeeting ends the interview.
func (a *App) EndMeeting() (domain.Status, error) {
	return a.act(a.conversation.EndMeeting)
}

// Acknowledge confirms the final notice and returns the reach-out URL when
// the conversation limit was hit.
func (a *App) Acknowledge() (string, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}
	url := a.conversation.ReachOutURL()
	if err := a.conversation.Acknowledge(); err != nil {
		return "", err
	}
	return url, nil
}

// OpenReachOut opens the reach-out page in the system browser.
func (a *App) OpenReachOut() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	url := a.conversation.ReachOutURL()
	if url == "" {
		return nil
	}
	runtime.BrowserOpenURL(a.ctx, url)
	return nil
}

// GetStatus returns the current conversation status.
func (a *App) GetStatus() domain.Status {
	if a.conversation == nil {
		if a.bootErr != nil {
			return domain.Status{State: domain.TurnStateReady, Mic: domain.MicControlDisabled, Message: a.bootErr.Error()}
		}
		return domain.Status{State: domain.TurnStateReady, Mic: domain.MicControlDisabled}
	}
	return a.conversation.Status()
}

// GetTranscript returns the interviewer turns received so far.
func (a *App) GetTranscript() []domain.ConversationTurn {
	if a.conversation == nil {
		return nil
	}
	return a.conversation.Transcript()
}

// CopyTranscript writes the transcript to the clipboard.
func (a *App) CopyTranscript() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	text := a.conversation.TranscriptText()
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if err := a.clipboard.SetText(a.ctx, text); err != nil {
		a.SessionError(domain.ErrorCodeClipboard, err.Error())
		return err
	}
	return nil
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	captions := "off"
	if a.cfg.Deepgram.CaptionsEnabled() {
		captions = "Deepgram " + a.cfg.Deepgram.Model
	}
	return map[string]string{
		"backend":          a.cfg.Backend.BaseURL,
		"captions":         captions,
		"audioInput":       a.cfg.Audio.InputDevice,
		"audioInputFormat": a.cfg.Audio.InputFormat,
		"stateFile":        a.cfg.State.Path,
	}
}

func (a *App) act(action func(context.Context) error) (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	err := action(a.ctx)
	return a.conversation.Status(), bindingError(err)
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.login == nil || a.conversation == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// TurnStateChanged emits conversation state updates to the frontend.
func (a *App) TurnStateChanged(status domain.Status, reason domain.TurnStateReason) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventState, map[string]any{
		"status":  status,
		"reason":  string(reason),
		"message": turnReasonMessage(reason),
		"micHint": domain.MicHint(status.Mic),
	})
}

// TurnAppended emits a new interviewer turn.
func (a *App) TurnAppended(turn domain.ConversationTurn) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventTurn, map[string]string{
		"turnId": turn.TurnID,
		"text":   turn.TranscriptText,
		"time":   turn.ReceivedAt.Format("3:04 PM"),
	})
}

// Caption emits the live caption for the current answer.
func (a *App) Caption(text string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventCaption, map[string]string{"text": text})
}

// SessionError emits user-facing notices to the UI.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventError, map[string]string{
		"code":    string(code),
		"message": domain.NoticeFor(code, detail),
		"detail":  detail,
	})
}

// bindingError hides stale-state rejections from the frontend; a double
// click on the mic is not worth an error dialog.
func bindingError(err error) error {
	if errors.Is(err, usecase.ErrInvalidTransition) || errors.Is(err, usecase.ErrFinished) {
		return nil
	}
	return err
}

func turnReasonMessage(reason domain.TurnStateReason) string {
	switch reason {
	case domain.TurnReasonMeetingReady:
		return "Click start when you are ready"
	case domain.TurnReasonMeetingStarted:
		return "Starting meeting..."
	case domain.TurnReasonInterviewerReplied:
		return "Interviewer is speaking"
	case domain.TurnReasonYourTurn:
		return "Your turn to speak"
	case domain.TurnReasonRecordingStarted:
		return "Listening..."
	case domain.TurnReasonUploading:
		return "Interviewer is thinking..."
	case domain.TurnReasonLimitReached:
		return domain.MessageLimitReached
	case domain.TurnReasonEndedByUser:
		return domain.MessageMeetingEnded
	case domain.TurnReasonEndFailed:
		return domain.MessageEndFailed
	case domain.TurnReasonFailed:
		return domain.MessageGenericFailure
	case domain.TurnReasonSessionInvalid:
		return "No active meeting. Please join again."
	default:
		return ""
	}
}

type wailsClipboard struct{}

func (c *wailsClipboard) SetText(ctx context.Context, text string) error {
	return runtime.ClipboardSetText(ctx, text)
}
