package domain

const (
	MessageGenericFailure = "Some error occurred. Please try again later."
	MessageMicBlocked     = "You have blocked the microphone access. Please allow it from your system settings to continue."
	MessageStartFailed    = "Some error occurred while starting meeting. Please refresh."
	MessageEndFailed      = "Some error occurred while ending meeting. Please refresh."
	MessageLimitReached   = "This is just a prototype of the final product. To prevent abuse, we have limited the number of conversations per user. Please reach out to us if you want to try more."
	MessageMeetingEnded   = "Meeting Ended. You can now close this window or go to home page."

	MessageFillDetails    = "Please fill all the details marked with *."
	MessageFillOTP        = "Please fill in the email and the OTP"
	MessageInvalidOTP     = "Please enter a valid OTP"
	MessageOTPSent        = "An email has been sent to your email address. Please enter the OTP to verify your email address."
	MessageOTPAlreadySent = "An email has already been sent to your email address in the last 10 minutes. Please enter the OTP to verify your email address."
)

// NoticeFor maps an error code to the text shown to the user.
func NoticeFor(code ErrorCode, detail string) string {
	switch code {
	case ErrorCodeStartup:
		return "Startup failed"
	case ErrorCodeValidation:
		return detail
	case ErrorCodePermission:
		return MessageMicBlocked
	case ErrorCodeBackend:
		if detail == "" {
			return MessageGenericFailure
		}
		return detail
	case ErrorCodeUnexpected:
		return MessageGenericFailure
	case ErrorCodeStartMeeting:
		return MessageStartFailed
	case ErrorCodeEndMeeting:
		return MessageEndFailed
	case ErrorCodeLimitReached:
		return MessageLimitReached
	case ErrorCodeCaption:
		return "Live captions unavailable"
	case ErrorCodeClipboard:
		return "Clipboard write failed"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}

// MicHint is the tooltip for the mic control.
func MicHint(mic MicControl) string {
	switch mic {
	case MicControlPressed:
		return "Click to stop speaking"
	case MicControlNormal:
		return "Click to speak"
	default:
		return "Can't speak yet"
	}
}
