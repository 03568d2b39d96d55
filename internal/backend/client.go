package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"herohire/internal/domain"
	"herohire/internal/observability"
	"herohire/internal/ports"
)

const (
	markerEmailSent        = "email_sent"
	markerEmailAlreadySent = "email_already_sent"
	markerLimitReached     = "conversation_limit_reached"
)

var (
	// ErrLimitReached matches APIErrors carrying the conversation limit marker.
	ErrLimitReached = ports.ErrLimitReached
	// ErrMalformedResponse is returned when a response is not a valid envelope.
	ErrMalformedResponse = errors.New("malformed backend response")
)

// APIError is a business error reported by the backend envelope.
type APIError struct {
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s failed with status %d", e.Path, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func (e *APIError) BackendMessage() string {
	return e.Message
}

func (e *APIError) Is(target error) bool {
	return target == ErrLimitReached && e.Message == markerLimitReached
}

// Config controls the backend HTTP client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client implements ports.Backend over JSON HTTP.
type Client struct {
	baseURL   string
	http      *http.Client
	requestID func() string
}

func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		http:      httpClient,
		requestID: uuid.NewString,
	}
}

type envelope struct {
	Error   bool            `json:"error"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type messageData struct {
	ConversationID    flexibleID `json:"conversationId"`
	ConversationText  string     `json:"conversationText"`
	ConversationAudio string     `json:"conversationAudio"`
}

// flexibleID accepts both string and numeric identifiers.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(raw []byte) error {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		*f = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return fmt.Errorf("conversationId must be a string or number: %w", err)
	}
	*f = flexibleID(n.String())
	return nil
}

func (c *Client) Login(ctx context.Context, identity domain.Identity) (ports.LoginOutcome, error) {
	var data string
	err := c.post(ctx, "/login", "", map[string]string{
		"email": identity.EmailAddress,
		"name":  identity.DisplayName,
	}, &data)
	if err != nil {
		return ports.LoginOutcome{}, err
	}

	switch data {
	case markerEmailSent:
		return ports.LoginOutcome{OTPSent: true}, nil
	case markerEmailAlreadySent:
		return ports.LoginOutcome{OTPSent: true, OTPAlreadySent: true}, nil
	case "":
		return ports.LoginOutcome{}, fmt.Errorf("/login: %w: empty identity token", ErrMalformedResponse)
	default:
		return ports.LoginOutcome{IdentityToken: data}, nil
	}
}

func (c *Client) VerifyOTP(ctx context.Context, email string, otp string) (string, error) {
	var token string
	if err := c.post(ctx, "/verify-otp", "", map[string]string{"email": email, "otp": otp}, &token); err != nil {
		return "", err
	}
	if token == "" {
		return "", fmt.Errorf("/verify-otp: %w: empty identity token", ErrMalformedResponse)
	}
	return token, nil
}

func (c *Client) CreateMeet(ctx context.Context, token string) (string, error) {
	var code string
	if err := c.post(ctx, "/create-meet", token, nil, &code); err != nil {
		return "", err
	}
	if code == "" {
		return "", fmt.Errorf("/create-meet: %w: empty meeting code", ErrMalformedResponse)
	}
	return code, nil
}

func (c *Client) StartMeet(ctx context.Context, session domain.Session) error {
	return c.post(ctx, "/start-meet", session.IdentityToken, map[string]string{"meetCode": session.MeetingCode}, nil)
}

func (c *Client) FirstMessage(ctx context.Context, session domain.Session) (ports.InterviewerMessage, error) {
	return c.message(ctx, "/first-message", session)
}

func (c *Client) SaveConversation(ctx context.Context, session domain.Session, base64Audio string) error {
	return c.post(ctx, "/save-conversation", session.IdentityToken, map[string]string{
		"meetCode":    session.MeetingCode,
		"base64Audio": base64Audio,
	}, nil)
}

func (c *Client) NextMessage(ctx context.Context, session domain.Session) (ports.InterviewerMessage, error) {
	return c.message(ctx, "/next-message", session)
}

func (c *Client) EndMeet(ctx context.Context, session domain.Session, reason string) error {
	return c.post(ctx, "/end-meet", session.IdentityToken, map[string]string{
		"meetCode":      session.MeetingCode,
		"meetEndReason": reason,
	}, nil)
}

func (c *Client) message(ctx context.Context, path string, session domain.Session) (ports.InterviewerMessage, error) {
	var data messageData
	if err := c.post(ctx, path, session.IdentityToken, map[string]string{"meetCode": session.MeetingCode}, &data); err != nil {
		return ports.InterviewerMessage{}, err
	}
	if data.ConversationAudio == "" {
		return ports.InterviewerMessage{}, fmt.Errorf("%s: %w: missing conversation audio", path, ErrMalformedResponse)
	}
	return ports.InterviewerMessage{
		ConversationID:    string(data.ConversationID),
		ConversationText:  data.ConversationText,
		ConversationAudio: data.ConversationAudio,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, token string, body any, out any) error {
	requestID := c.requestID()
	ctx = observability.WithRequestID(ctx, requestID)
	logger := observability.LoggerFromContext(ctx).With("path", path)

	var payload io.Reader = http.NoBody
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: failed to encode request: %w", path, err)
		}
		payload = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("%s: failed to build request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-request-id", requestID)
	if token != "" {
		req.Header.Set("x-auth-token", token)
	}

	started := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		logger.Warn("backend call failed", "error", err)
		return fmt.Errorf("%s: %w", path, err)
	}
	defer res.Body.Close()

	var env envelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		logger.Warn("backend response undecodable", "status", res.StatusCode, "error", err)
		return fmt.Errorf("%s: %w: status %d", path, ErrMalformedResponse, res.StatusCode)
	}

	logger.Debug("backend call finished", "status", res.StatusCode, "error_flag", env.Error, "duration_ms", time.Since(started).Milliseconds())

	if env.Error || res.StatusCode >= http.StatusBadRequest {
		return &APIError{Path: path, Status: res.StatusCode, Message: env.Message}
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%s: %w: %v", path, ErrMalformedResponse, err)
	}
	return nil
}
