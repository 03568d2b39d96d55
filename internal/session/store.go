package session

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/golang-jwt/jwt/v5"

	"herohire/internal/domain"
	"herohire/internal/observability"
)

type stateFile struct {
	Session struct {
		IdentityToken string `toml:"identity_token"`
		MeetingCode   string `toml:"meeting_code"`
	} `toml:"session"`
	Profile struct {
		DisplayName  string `toml:"display_name"`
		EmailAddress string `toml:"email"`
	} `toml:"profile"`
}

var errCorruptState = errors.New("state file is not valid TOML")

// FileStore keeps the session and profile in a TOML state file.
type FileStore struct {
	path string
	now  func() time.Time

	mu sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

// Save persists token and meeting code, keeping the stored profile.
func (s *FileStore) Save(token string, meetingCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	warnIfExpired(token, s.now())
	state, _, err := s.readForWrite()
	if err != nil {
		return err
	}
	state.Session.IdentityToken = token
	state.Session.MeetingCode = meetingCode
	return s.write(state)
}

// Load returns the stored session if both fields are non-blank.
func (s *FileStore) Load() (domain.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.read()
	if err != nil {
		observability.WithFields("component", "session_store").Warn("failed to read session state", "error", err)
		return domain.Session{}, false
	}
	current := domain.Session{
		IdentityToken: state.Session.IdentityToken,
		MeetingCode:   state.Session.MeetingCode,
	}
	if !Usable(current) {
		return domain.Session{}, false
	}
	return current, true
}

// Clear removes the session; the profile stays.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, discarded, err := s.readForWrite()
	if err != nil {
		return err
	}
	if !discarded && state.Session.IdentityToken == "" && state.Session.MeetingCode == "" {
		return nil
	}
	state.Session.IdentityToken = ""
	state.Session.MeetingCode = ""
	return s.write(state)
}

func (s *FileStore) SaveProfile(identity domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, _, err := s.readForWrite()
	if err != nil {
		return err
	}
	state.Profile.DisplayName = identity.DisplayName
	state.Profile.EmailAddress = identity.EmailAddress
	return s.write(state)
}

func (s *FileStore) LoadProfile() (domain.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.read()
	if err != nil {
		observability.WithFields("component", "session_store").Warn("failed to read profile", "error", err)
		return domain.Identity{}, false
	}
	identity := domain.Identity{
		DisplayName:  strings.TrimSpace(state.Profile.DisplayName),
		EmailAddress: strings.TrimSpace(state.Profile.EmailAddress),
	}
	if identity.DisplayName == "" || identity.EmailAddress == "" {
		return domain.Identity{}, false
	}
	return identity, true
}

func (s *FileStore) read() (stateFile, error) {
	var state stateFile
	contents, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return state, nil
		}
		return state, fmt.Errorf("failed to read state file %q: %w", s.path, err)
	}
	if _, err := toml.Decode(string(contents), &state); err != nil {
		return stateFile{}, fmt.Errorf("%w: %q: %v", errCorruptState, s.path, err)
	}
	return state, nil
}

// readForWrite starts from an empty state when the file cannot be parsed,
// so a damaged file is replaced on the next write.
func (s *FileStore) readForWrite() (stateFile, bool, error) {
	state, err := s.read()
	if errors.Is(err, errCorruptState) {
		observability.WithFields("component", "session_store").Warn("discarding unreadable state file", "error", err)
		return stateFile{}, true, nil
	}
	return state, false, err
}

func (s *FileStore) write(state stateFile) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(state); err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// MemoryStore is a process-local store with the same semantics as FileStore.
type MemoryStore struct {
	mu      sync.Mutex
	session domain.Session
	profile domain.Identity
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (s *MemoryStore) Save(token string, meetingCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	warnIfExpired(token, s.now())
	s.session = domain.Session{IdentityToken: token, MeetingCode: meetingCode}
	return nil
}

func (s *MemoryStore) Load() (domain.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !Usable(s.session) {
		return domain.Session{}, false
	}
	return s.session, true
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = domain.Session{}
	return nil
}

func (s *MemoryStore) SaveProfile(identity domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = identity
	return nil
}

func (s *MemoryStore) LoadProfile() (domain.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(s.profile.DisplayName) == "" || strings.TrimSpace(s.profile.EmailAddress) == "" {
		return domain.Identity{}, false
	}
	return s.profile, true
}

// Usable reports whether a session may open the conversation view.
func Usable(s domain.Session) bool {
	return strings.TrimSpace(s.IdentityToken) != "" && strings.TrimSpace(s.MeetingCode) != ""
}

// TokenExpiry reads the exp claim of a JWT without verifying it. Opaque
// tokens and tokens without exp report false.
func TokenExpiry(token string) (time.Time, bool) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

func warnIfExpired(token string, now time.Time) {
	expiry, ok := TokenExpiry(token)
	if !ok || now.Before(expiry) {
		return
	}
	observability.WithFields("component", "session_store").Warn("saving an already expired identity token", "expired_at", expiry)
}
