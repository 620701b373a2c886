// Package auth owns credential verification and session-presence state:
// registration, login, logout, and the current-identity lookup the
// ledger uses to scope records to their owner.
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"defesa/core"
	applog "defesa/log"
)

// Service is the authentication gate. It holds no package-level state;
// the session lives in the durable SessionStore and the Service is
// owned by the composing application.
type Service struct {
	users      UserStore
	sessions   SessionStore
	bcryptCost int
	logger     *applog.Logger
	now        func() time.Time
}

func NewService(users UserStore, sessions SessionStore, bcryptCost int, logger *applog.Logger) *Service {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &Service{
		users:      users,
		sessions:   sessions,
		bcryptCost: bcryptCost,
		logger:     logger.WithComponent(applog.ComponentAuth),
		now:        time.Now,
	}
}

// Register creates a new identity and establishes a session for it.
// Fails with core.ErrDuplicateLogin when the login is already taken.
func (s *Service) Register(ctx context.Context, name, login, password string) (*core.Identity, error) {
	if err := core.ValidateRegistration(name, login, password); err != nil {
		return nil, err
	}

	existing, err := s.users.GetUserByLogin(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("look up login: %w", err)
	}
	if existing != nil {
		return nil, core.ErrDuplicateLogin
	}

	hash, err := HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	now := s.now()
	identity := core.Identity{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(name),
		Login:        login,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.CreateUser(ctx, identity); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := s.establishSession(ctx, identity); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "identity registered",
		applog.FieldOperation, applog.OpRegister,
		applog.FieldUserID, identity.ID,
		applog.FieldLogin, identity.Login)
	return &identity, nil
}

// Login verifies credentials and establishes a session. Fails with
// core.ErrInvalidCredentials for an unknown login or a wrong password,
// without distinguishing the two.
func (s *Service) Login(ctx context.Context, login, password string) (*core.Identity, error) {
	if err := core.ValidateLogin(login, password); err != nil {
		return nil, err
	}

	identity, err := s.users.GetUserByLogin(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("look up login: %w", err)
	}
	if identity == nil || !VerifyPassword(password, identity.PasswordHash) {
		return nil, core.ErrInvalidCredentials
	}

	if err := s.establishSession(ctx, *identity); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "identity logged in",
		applog.FieldOperation, applog.OpLogin,
		applog.FieldUserID, identity.ID)
	return identity, nil
}

// Logout clears session state unconditionally. Idempotent.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.sessions.ClearSession(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.logger.InfoContext(ctx, "session cleared",
		applog.FieldOperation, applog.OpLogout)
	return nil
}

// CurrentIdentity returns the session's identity snapshot without
// re-verifying credentials, or nil when no session exists.
func (s *Service) CurrentIdentity(ctx context.Context) (*core.Identity, error) {
	return s.sessions.SessionIdentity(ctx)
}

// IsAuthenticated reports whether a session token is present in the
// durable session store.
func (s *Service) IsAuthenticated(ctx context.Context) (bool, error) {
	token, err := s.sessions.SessionToken(ctx)
	if err != nil {
		return false, err
	}
	return token != "", nil
}

// UpdateProfile renames the current identity and refreshes the stored
// session snapshot.
func (s *Service) UpdateProfile(ctx context.Context, name string) (*core.Identity, error) {
	if err := core.ValidateName(name); err != nil {
		return nil, err
	}

	current, err := s.CurrentIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, core.ErrNotAuthenticated
	}

	identity, err := s.users.GetUserByID(ctx, current.ID)
	if err != nil {
		return nil, fmt.Errorf("look up user: %w", err)
	}
	if identity == nil {
		return nil, core.ErrNotAuthenticated
	}

	identity.Name = strings.TrimSpace(name)
	identity.UpdatedAt = s.now()
	if err := s.users.UpdateUser(ctx, *identity); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	token, err := s.sessions.SessionToken(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.SaveSession(ctx, token, *identity); err != nil {
		return nil, fmt.Errorf("refresh session snapshot: %w", err)
	}

	return identity, nil
}

func (s *Service) establishSession(ctx context.Context, identity core.Identity) error {
	token, err := newSessionToken()
	if err != nil {
		return err
	}
	if err := s.sessions.SaveSession(ctx, token, identity); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}
