package usecase

import (
	"errors"

	"herohire/internal/domain"
)

var (
	ErrInvalidTransition = errors.New("action not allowed in the current state")
	ErrSessionInvalid    = errors.New("no valid session")
	ErrFinished          = errors.New("conversation already finished")
)

// Notice is a failure the view should show to the user.
type Notice struct {
	Code    domain.ErrorCode
	Message string
	Err     error
}

func (n *Notice) Error() string {
	if n.Err != nil {
		return n.Message + ": " + n.Err.Error()
	}
	return n.Message
}

func (n *Notice) Unwrap() error {
	return n.Err
}

func newNotice(code domain.ErrorCode, detail string, err error) *Notice {
	return &Notice{Code: code, Message: domain.NoticeFor(code, detail), Err: err}
}
