package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"

	"herohire/internal/domain"
	"herohire/internal/observability"
	"herohire/internal/ports"
)

// LoginFlow runs the entry form: details, optional OTP, meeting creation.
// User-facing outcomes are reported in LoginResult.Notice; the returned error
// is only set when the action does not apply to the current state.
type LoginFlow struct {
	backend  ports.Backend
	sessions ports.SessionStore
	profiles ports.ProfileStore

	mu       sync.Mutex
	state    domain.LoginState
	identity domain.Identity
	busy     bool
}

func NewLoginFlow(backend ports.Backend, sessions ports.SessionStore, profiles ports.ProfileStore) *LoginFlow {
	return &LoginFlow{
		backend:  backend,
		sessions: sessions,
		profiles: profiles,
		state:    domain.LoginStateCollectingDetails,
	}
}

// Open resets the form, clears any session and returns the saved profile.
func (f *LoginFlow) Open() domain.Identity {
	if err := f.sessions.Clear(); err != nil {
		observability.WithFields("component", "login").Warn("failed to clear session", "error", err)
	}

	f.mu.Lock()
	f.state = domain.LoginStateCollectingDetails
	f.identity = domain.Identity{}
	f.mu.Unlock()

	profile, _ := f.profiles.LoadProfile()
	return profile
}

func (f *LoginFlow) State() domain.LoginState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// SubmitDetails sends name and email to the backend. Depending on the answer
// the form moves to the OTP step or straight into a new meeting.
func (f *LoginFlow) SubmitDetails(ctx context.Context, identity domain.Identity) (domain.LoginResult, error) {
	identity.DisplayName = strings.TrimSpace(identity.DisplayName)
	identity.EmailAddress = strings.TrimSpace(identity.EmailAddress)

	if err := f.acquire(domain.LoginStateCollectingDetails); err != nil {
		return domain.LoginResult{State: f.State()}, err
	}
	defer f.release()

	if identity.DisplayName == "" || identity.EmailAddress == "" {
		return f.result(domain.MessageFillDetails), nil
	}

	outcome, err := f.backend.Login(ctx, identity)
	if err != nil {
		return f.failure(err), nil
	}

	f.mu.Lock()
	f.identity = identity
	f.mu.Unlock()

	switch {
	case outcome.OTPAlreadySent:
		f.setState(domain.LoginStateAwaitingOTP)
		return f.result(domain.MessageOTPAlreadySent), nil
	case outcome.OTPSent:
		f.setState(domain.LoginStateAwaitingOTP)
		return f.result(domain.MessageOTPSent), nil
	}
	return f.join(ctx, outcome.IdentityToken, identity), nil
}

// VerifyOTP checks the emailed code and creates the meeting.
func (f *LoginFlow) VerifyOTP(ctx context.Context, email string, otp string) (domain.LoginResult, error) {
	email = strings.TrimSpace(email)
	otp = strings.TrimSpace(otp)

	if err := f.acquire(domain.LoginStateAwaitingOTP); err != nil {
		return domain.LoginResult{State: f.State()}, err
	}
	defer f.release()

	if email == "" || otp == "" {
		return f.result(domain.MessageFillOTP), nil
	}
	if len(otp) != 6 {
		return f.result(domain.MessageInvalidOTP), nil
	}

	token, err := f.backend.VerifyOTP(ctx, email, otp)
	if err != nil {
		return f.failure(err), nil
	}

	f.mu.Lock()
	identity := f.identity
	f.mu.Unlock()
	identity.EmailAddress = email
	return f.join(ctx, token, identity), nil
}

func (f *LoginFlow) join(ctx context.Context, token string, identity domain.Identity) domain.LoginResult {
	code, err := f.backend.CreateMeet(ctx, token)
	if err != nil {
		return f.failure(err)
	}
	if err := f.sessions.Save(token, code); err != nil {
		return f.failure(err)
	}
	if err := f.profiles.SaveProfile(identity); err != nil {
		observability.WithFields("component", "login").Warn("failed to save profile", "error", err)
	}

	f.setState(domain.LoginStateJoined)
	observability.WithFields("component", "login", "meeting_code", code).Info("meeting created")
	session := domain.Session{IdentityToken: token, MeetingCode: code}
	return domain.LoginResult{State: domain.LoginStateJoined, Session: &session}
}

// failure keeps the current state. Backend messages are shown as-is; anything
// else clears the session and shows the generic notice.
func (f *LoginFlow) failure(err error) domain.LoginResult {
	var business ports.BusinessError
	if errors.As(err, &business) {
		observability.WithFields("component", "login").Info("backend rejected request", "message", business.BackendMessage())
		return f.result(domain.NoticeFor(domain.ErrorCodeBackend, business.BackendMessage()))
	}

	observability.WithFields("component", "login").Error("login request failed", "error", err)
	if clearErr := f.sessions.Clear(); clearErr != nil {
		observability.WithFields("component", "login").Warn("failed to clear session", "error", clearErr)
	}
	return f.result(domain.NoticeFor(domain.ErrorCodeUnexpected, ""))
}

func (f *LoginFlow) result(notice string) domain.LoginResult {
	return domain.LoginResult{State: f.State(), Notice: notice}
}

func (f *LoginFlow) acquire(want domain.LoginState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != want || f.busy {
		return ErrInvalidTransition
	}
	f.busy = true
	return nil
}

func (f *LoginFlow) release() {
	f.mu.Lock()
	f.busy = false
	f.mu.Unlock()
}

func (f *LoginFlow) setState(state domain.LoginState) {
	f.mu.Lock()
	f.state = state
	f.mu.Unlock()
}
