package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"herohire/internal/config"
	"herohire/internal/domain"
	"herohire/internal/session"
	"herohire/internal/usecase"
)

func TestTurnReasonMessage(t *testing.T) {
	t.Parallel()

	cases := map[domain.TurnStateReason]string{
		domain.TurnReasonMeetingReady:       "Click start when you are ready",
		domain.TurnReasonMeetingStarted:     "Starting meeting...",
		domain.TurnReasonInterviewerReplied: "Interviewer is speaking",
		domain.TurnReasonYourTurn:           "Your turn to speak",
		domain.TurnReasonRecordingStarted:   "Listening...",
		domain.TurnReasonUploading:          "Interviewer is thinking...",
		domain.TurnReasonLimitReached:       domain.MessageLimitReached,
		domain.TurnReasonEndedByUser:        domain.MessageMeetingEnded,
		domain.TurnReasonEndFailed:          domain.MessageEndFailed,
		domain.TurnReasonFailed:             domain.MessageGenericFailure,
		domain.TurnReasonSessionInvalid:     "No active meeting. Please join again.",
	}

	for reason, want := range cases {
		reason := reason
		want := want
		t.Run(string(reason), func(t *testing.T) {
			t.Parallel()
			if got := turnReasonMessage(reason); got != want {
				t.Fatalf("unexpected message: %q", got)
			}
		})
	}

	if got := turnReasonMessage("unknown"); got != "" {
		t.Fatalf("expected empty unknown reason message, got %q", got)
	}
}

func TestBindingError(t *testing.T) {
	t.Parallel()

	if err := bindingError(fmt.Errorf("press: %w", usecase.ErrInvalidTransition)); err != nil {
		t.Fatalf("expected stale-state error to be hidden, got %v", err)
	}
	if err := bindingError(usecase.ErrFinished); err != nil {
		t.Fatalf("expected finished error to be hidden, got %v", err)
	}
	notice := &usecase.Notice{Code: domain.ErrorCodeUnexpected, Message: domain.MessageGenericFailure}
	if err := bindingError(notice); err != notice {
		t.Fatalf("expected notice to pass through, got %v", err)
	}
}

func TestRequireReady(t *testing.T) {
	t.Parallel()

	app := &App{}
	if err := app.requireReady(); err == nil {
		t.Fatalf("expected uninitialized error")
	}
	if _, err := app.StartMeeting(); err == nil {
		t.Fatalf("expected uninitialized error from binding")
	}

	bootErr := errors.New("boot")
	app.bootErr = bootErr
	if err := app.requireReady(); !errors.Is(err, bootErr) {
		t.Fatalf("expected boot error, got %v", err)
	}
	if info := app.GetRuntimeInfo(); info["error"] != "boot" {
		t.Fatalf("unexpected runtime info: %v", info)
	}
}

func TestGetStatusWhenNotInitialized(t *testing.T) {
	t.Parallel()

	app := &App{}
	status := app.GetStatus()
	if status.State != domain.TurnStateReady || status.MicEnabled {
		t.Fatalf("unexpected status: %+v", status)
	}
	if app.GetTranscript() != nil {
		t.Fatalf("expected no transcript")
	}

	app.bootErr = errors.New("boot")
	status = app.GetStatus()
	if status.Message != "boot" {
		t.Fatalf("unexpected boot status: %+v", status)
	}
}

func TestCopyTranscriptSkipsEmptyTranscript(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore()
	clipboard := &recordingClipboard{}
	app := &App{
		ctx:          context.Background(),
		login:        usecase.NewLoginFlow(nil, store, store),
		conversation: usecase.NewConversationController(nil, store, nil, nil, nil, ""),
		clipboard:    clipboard,
		cfg:          config.Config{},
	}

	if err := app.CopyTranscript(); err != nil {
		t.Fatalf("copy failed: %v", err)
	}
	if clipboard.calls != 0 {
		t.Fatalf("expected clipboard to be untouched, got %d writes", clipboard.calls)
	}
	if info := app.GetRuntimeInfo(); info["captions"] != "off" {
		t.Fatalf("expected captions off, got %v", info)
	}
}

type recordingClipboard struct {
	calls int
}

func (c *recordingClipboard) SetText(_ context.Context, _ string) error {
	c.calls++
	return nil
}
