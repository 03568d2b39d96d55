package domain

import "time"

// TurnState models who may speak in the interview.
type TurnState string

const (
	TurnStateReady                TurnState = "ready"
	TurnStateInterviewerSpeaking  TurnState = "interviewerSpeaking"
	TurnStateAwaitingUserSpeech   TurnState = "awaitingUserSpeech"
	TurnStateUserRecording        TurnState = "userRecording"
	TurnStateProcessingUserSpeech TurnState = "processingUserSpeech"
	TurnStateFinished             TurnState = "finished"
)

// MicEnabled reports whether the mic control is interactable in state.
func MicEnabled(state TurnState) bool {
	return state == TurnStateAwaitingUserSpeech || state == TurnStateUserRecording
}

// TurnStateReason provides a structured reason for state transitions.
type TurnStateReason string

const (
	TurnReasonMeetingReady       TurnStateReason = "meeting_ready"
	TurnReasonMeetingStarted     TurnStateReason = "meeting_started"
	TurnReasonInterviewerReplied TurnStateReason = "interviewer_replied"
	TurnReasonYourTurn           TurnStateReason = "your_turn"
	TurnReasonRecordingStarted   TurnStateReason = "recording_started"
	TurnReasonUploading          TurnStateReason = "uploading"
	TurnReasonLimitReached       TurnStateReason = "limit_reached"
	TurnReasonEndedByUser        TurnStateReason = "ended_by_user"
	TurnReasonEndFailed          TurnStateReason = "end_failed"
	TurnReasonFailed             TurnStateReason = "failed"
	TurnReasonSessionInvalid     TurnStateReason = "session_invalid"
)

// ErrorCode identifies user-facing failures.
type ErrorCode string

const (
	ErrorCodeStartup      ErrorCode = "startup"
	ErrorCodeValidation   ErrorCode = "validation"
	ErrorCodePermission   ErrorCode = "permission"
	ErrorCodeBackend      ErrorCode = "backend"
	ErrorCodeUnexpected   ErrorCode = "unexpected"
	ErrorCodeStartMeeting ErrorCode = "start_meeting"
	ErrorCodeEndMeeting   ErrorCode = "end_meeting"
	ErrorCodeLimitReached ErrorCode = "limit_reached"
	ErrorCodeCaption      ErrorCode = "caption"
	ErrorCodeClipboard    ErrorCode = "clipboard"
)

// Speaker identifies whose turn the view should highlight.
type Speaker string

const (
	SpeakerInterviewer Speaker = "interviewer"
	SpeakerCandidate   Speaker = "candidate"
)

// MicControl is the rendered state of the mic button.
type MicControl string

const (
	MicControlDisabled MicControl = "disabled"
	MicControlNormal   MicControl = "normal"
	MicControlPressed  MicControl = "pressed"
)

// MicControlFor derives the mic button from the turn state.
func MicControlFor(state TurnState) MicControl {
	switch state {
	case TurnStateAwaitingUserSpeech:
		return MicControlNormal
	case TurnStateUserRecording:
		return MicControlPressed
	default:
		return MicControlDisabled
	}
}

// Identity is what the user types into the entry form.
type Identity struct {
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
}

// Session correlates the client with server-side meeting state.
type Session struct {
	IdentityToken string `json:"-"`
	MeetingCode   string `json:"meetingCode"`
}

// ConversationTurn is one interviewer response.
type ConversationTurn struct {
	TurnID         string    `json:"turnId"`
	TranscriptText string    `json:"transcriptText"`
	AudioPayload   string    `json:"-"`
	ReceivedAt     time.Time `json:"receivedAt"`
}

// Status summarizes the conversation for the view.
type Status struct {
	State               TurnState  `json:"state"`
	Speaker             Speaker    `json:"speaker"`
	Mic                 MicControl `json:"mic"`
	MicEnabled          bool       `json:"micEnabled"`
	InterviewerThinking bool       `json:"interviewerThinking"`
	Turns               int        `json:"turns"`
	Message             string     `json:"message,omitempty"`
}

// LoginState models the entry form.
type LoginState string

const (
	LoginStateCollectingDetails LoginState = "collectingDetails"
	LoginStateAwaitingOTP       LoginState = "awaitingOTP"
	LoginStateJoined            LoginState = "joined"
)

// LoginResult is returned from entry form submissions.
type LoginResult struct {
	State   LoginState `json:"state"`
	Notice  string     `json:"notice,omitempty"`
	Session *Session   `json:"session,omitempty"`
}
