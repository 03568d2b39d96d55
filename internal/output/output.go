package output

import (
	"fmt"
	"io"
	"sync"

	"herohire/internal/domain"
)

// Formatter renders the terminal views. It doubles as the conversation event
// sink, so writes are serialized.
type Formatter struct {
	mu         sync.Mutex
	w          io.Writer
	captioning bool
}

func NewFormatter(w io.Writer) *Formatter {
	return &Formatter{w: w}
}

func (f *Formatter) Error(msg string) {
	f.printf("❌ %s\n", msg)
}

func (f *Formatter) Info(msg string) {
	f.printf("ℹ️  %s\n", msg)
}

func (f *Formatter) Success(msg string) {
	f.printf("✅ %s\n", msg)
}

func (f *Formatter) Warning(msg string) {
	f.printf("⚠️  %s\n", msg)
}

// Prompt writes a label without a trailing newline.
func (f *Formatter) Prompt(label string, prefill string) {
	if prefill != "" {
		f.printf("%s [%s]: ", label, prefill)
		return
	}
	f.printf("%s: ", label)
}

func (f *Formatter) EntryHeader() {
	f.printf("HeroHire\nEnter the following details to join the meeting\n\n")
}

func (f *Formatter) MeetingJoined(code string) {
	f.printf("\n📅 Joined meeting %s\n", code)
}

func (f *Formatter) ReachOut(url string) {
	f.printf("👉 Reach out to us: %s\n", url)
}

func (f *Formatter) SetupCheck(name string, ok bool, detail string) {
	if ok {
		f.printf("  ✅ %s: %s\n", name, detail)
	} else {
		f.printf("  ❌ %s: %s\n", name, detail)
	}
}

// TurnStateChanged prints the hint for the next action.
func (f *Formatter) TurnStateChanged(status domain.Status, reason domain.TurnStateReason) {
	switch reason {
	case domain.TurnReasonMeetingReady:
		f.printf("\nPress Enter to start the interview. Type 'end' at any time to leave.\n")
	case domain.TurnReasonMeetingStarted:
		f.printf("▶️  Starting meeting...\n")
	case domain.TurnReasonYourTurn:
		f.printf("🎙️  Your turn. Press Enter to speak.\n")
	case domain.TurnReasonRecordingStarted:
		f.printf("🔴 Listening... press Enter when you are done.\n")
	case domain.TurnReasonUploading:
		f.endCaption()
		f.printf("🤔 Interviewer is thinking...\n")
	case domain.TurnReasonEndedByUser:
		f.printf("⏹️  %s\n", status.Message)
	case domain.TurnReasonLimitReached, domain.TurnReasonEndFailed, domain.TurnReasonFailed:
		f.endCaption()
		f.printf("⚠️  %s\n", status.Message)
	case domain.TurnReasonSessionInvalid:
		f.printf("⚠️  No active meeting. Run 'herohire join' to start one.\n")
	}
}

// TurnAppended prints an interviewer turn with its arrival time.
func (f *Formatter) TurnAppended(turn domain.ConversationTurn) {
	f.printf("\n[%s] Interviewer: %s\n\n", turn.ReceivedAt.Format("3:04 PM"), turn.TranscriptText)
}

// Caption rewrites the current line with the running caption.
func (f *Formatter) Caption(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.captioning = true
	fmt.Fprintf(f.w, "\r\033[K   … %s", text)
}

// SessionError prints notices that no state change already explains.
func (f *Formatter) SessionError(code domain.ErrorCode, detail string) {
	switch code {
	case domain.ErrorCodeLimitReached, domain.ErrorCodeUnexpected, domain.ErrorCodeStartMeeting, domain.ErrorCodeEndMeeting:
		return
	}
	f.endCaption()
	f.Error(domain.NoticeFor(code, detail))
}

func (f *Formatter) endCaption() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.captioning {
		fmt.Fprintln(f.w)
		f.captioning = false
	}
}

func (f *Formatter) printf(format string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fmt.Fprintf(f.w, format, args...)
}
