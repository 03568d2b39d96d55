package domain

import "testing"

func TestMicEnabledOnlyWhileCandidateMayTalk(t *testing.T) {
	t.Parallel()

	cases := map[TurnState]bool{
		TurnStateReady:                false,
		TurnStateInterviewerSpeaking:  false,
		TurnStateAwaitingUserSpeech:   true,
		TurnStateUserRecording:        true,
		TurnStateProcessingUserSpeech: false,
		TurnStateFinished:             false,
	}
	for state, want := range cases {
		if got := MicEnabled(state); got != want {
			t.Fatalf("MicEnabled(%s) = %v, want %v", state, got, want)
		}
		if got := MicControlFor(state) != MicControlDisabled; got != want {
			t.Fatalf("MicControlFor(%s) enabled = %v, want %v", state, got, want)
		}
	}
}

func TestMicHint(t *testing.T) {
	t.Parallel()

	if MicHint(MicControlPressed) != "Click to stop speaking" || MicHint(MicControlNormal) != "Click to speak" || MicHint(MicControlDisabled) != "Can't speak yet" {
		t.Fatalf("unexpected mic hints")
	}
}

func TestNoticeFor(t *testing.T) {
	t.Parallel()

	cases := map[ErrorCode]string{
		ErrorCodeStartup:      "Startup failed",
		ErrorCodePermission:   MessageMicBlocked,
		ErrorCodeUnexpected:   MessageGenericFailure,
		ErrorCodeStartMeeting: MessageStartFailed,
		ErrorCodeEndMeeting:   MessageEndFailed,
		ErrorCodeLimitReached: MessageLimitReached,
		ErrorCodeCaption:      "Live captions unavailable",
		ErrorCodeClipboard:    "Clipboard write failed",
	}
	for code, want := range cases {
		if got := NoticeFor(code, "ignored"); got != want {
			t.Fatalf("NoticeFor(%s) = %q", code, got)
		}
	}

	if got := NoticeFor(ErrorCodeBackend, "Invalid OTP"); got != "Invalid OTP" {
		t.Fatalf("expected backend detail, got %q", got)
	}
	if got := NoticeFor(ErrorCodeBackend, ""); got != MessageGenericFailure {
		t.Fatalf("expected generic fallback, got %q", got)
	}
	if got := NoticeFor("unknown", ""); got != "Unknown error" {
		t.Fatalf("expected unknown fallback, got %q", got)
	}
}
