package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"herohire/internal/domain"
)

func TestFormatterRendersTurnsAndCaptions(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	f := NewFormatter(&buf)

	f.TurnAppended(domain.ConversationTurn{
		TranscriptText: "Tell me about yourself.",
		ReceivedAt:     time.Date(2024, 3, 1, 10, 50, 0, 0, time.UTC),
	})
	f.Caption("I have")
	f.Caption("I have five years")
	f.TurnStateChanged(domain.Status{State: domain.TurnStateProcessingUserSpeech}, domain.TurnReasonUploading)

	text := buf.String()
	if !strings.Contains(text, "[10:50 AM] Interviewer: Tell me about yourself.") {
		t.Fatalf("missing turn line:\n%s", text)
	}
	if !strings.Contains(text, "I have five years\n🤔 Interviewer is thinking...") {
		t.Fatalf("expected caption line to be closed before the next status:\n%q", text)
	}
}

func TestFormatterSessionErrorSkipsNoticesShownByState(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	f := NewFormatter(&buf)

	f.SessionError(domain.ErrorCodeLimitReached, "")
	f.SessionError(domain.ErrorCodeUnexpected, "")
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}

	f.SessionError(domain.ErrorCodePermission, "")
	if !strings.Contains(buf.String(), domain.MessageMicBlocked) {
		t.Fatalf("expected permission notice, got %q", buf.String())
	}
}

func TestFormatterFinishedStates(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	f := NewFormatter(&buf)

	f.TurnStateChanged(domain.Status{State: domain.TurnStateFinished, Message: domain.MessageLimitReached}, domain.TurnReasonLimitReached)
	f.TurnStateChanged(domain.Status{State: domain.TurnStateFinished, Message: domain.MessageMeetingEnded}, domain.TurnReasonEndedByUser)

	text := buf.String()
	if !strings.Contains(text, domain.MessageLimitReached) || !strings.Contains(text, domain.MessageMeetingEnded) {
		t.Fatalf("unexpected output:\n%s", text)
	}
}

func TestPrompt(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	f := NewFormatter(&buf)
	f.Prompt("Name *", "Aditya")
	f.Prompt("OTP *", "")
	if buf.String() != "Name * [Aditya]: OTP *: " {
		t.Fatalf("unexpected prompt output: %q", buf.String())
	}
}
