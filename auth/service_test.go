package auth

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"defesa/core"
)

type memUsers struct {
	byLogin map[string]core.Identity
}

func newMemUsers() *memUsers {
	return &memUsers{byLogin: make(map[string]core.Identity)}
}

func (m *memUsers) CreateUser(ctx context.Context, identity core.Identity) error {
	if _, exists := m.byLogin[identity.Login]; exists {
		return core.ErrDuplicateLogin
	}
	m.byLogin[identity.Login] = identity
	return nil
}

func (m *memUsers) GetUserByLogin(ctx context.Context, login string) (*core.Identity, error) {
	if identity, ok := m.byLogin[login]; ok {
		return &identity, nil
	}
	return nil, nil
}

func (m *memUsers) GetUserByID(ctx context.Context, id string) (*core.Identity, error) {
	for _, identity := range m.byLogin {
		if identity.ID == id {
			return &identity, nil
		}
	}
	return nil, nil
}

func (m *memUsers) UpdateUser(ctx context.Context, identity core.Identity) error {
	m.byLogin[identity.Login] = identity
	return nil
}

type memSession struct {
	token    string
	identity *core.Identity
}

func (m *memSession) SaveSession(ctx context.Context, token string, identity core.Identity) error {
	m.token = token
	snapshot := identity
	m.identity = &snapshot
	return nil
}

func (m *memSession) SessionToken(ctx context.Context) (string, error) {
	return m.token, nil
}

func (m *memSession) SessionIdentity(ctx context.Context) (*core.Identity, error) {
	return m.identity, nil
}

func (m *memSession) ClearSession(ctx context.Context) error {
	m.token = ""
	m.identity = nil
	return nil
}

func newTestService() (*Service, *memUsers, *memSession) {
	users := newMemUsers()
	session := &memSession{}
	// Minimum cost keeps the hashing fast in tests.
	return NewService(users, session, bcrypt.MinCost, nil), users, session
}

func TestRegisterEstablishesSession(t *testing.T) {
	svc, users, session := newTestService()
	ctx := context.Background()

	identity, err := svc.Register(ctx, "Maria Silva", "maria", "secret1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if identity.ID == "" {
		t.Fatal("expected a fresh identifier")
	}
	if identity.PasswordHash == "secret1" || identity.PasswordHash == "" {
		t.Fatal("password must be stored as a hash")
	}
	if stored, _ := users.GetUserByLogin(ctx, "maria"); stored == nil {
		t.Fatal("identity not persisted")
	}

	if session.token == "" {
		t.Fatal("register must establish a session")
	}
	ok, err := svc.IsAuthenticated(ctx)
	if err != nil || !ok {
		t.Fatalf("IsAuthenticated = %v, %v", ok, err)
	}
	current, err := svc.CurrentIdentity(ctx)
	if err != nil || current == nil || current.ID != identity.ID {
		t.Fatalf("CurrentIdentity = %+v, %v", current, err)
	}
}

func TestRegisterDuplicateLogin(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "Maria Silva", "maria", "secret1"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := svc.Register(ctx, "Other Maria", "maria", "different1")
	if !errors.Is(err, core.ErrDuplicateLogin) {
		t.Fatalf("expected ErrDuplicateLogin, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Register(context.Background(), "M", "ab", "123")
	var verr *core.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestLoginRoundTrip(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	registered, err := svc.Register(ctx, "Maria Silva", "maria", "secret1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}

	identity, err := svc.Login(ctx, "maria", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if identity.ID != registered.ID {
		t.Fatalf("login returned %q, registered %q", identity.ID, registered.ID)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	svc.Register(ctx, "Maria Silva", "maria", "secret1")
	svc.Logout(ctx)

	// Unknown login and wrong password surface the same error.
	if _, err := svc.Login(ctx, "nobody", "secret1"); !errors.Is(err, core.ErrInvalidCredentials) {
		t.Fatalf("unknown login: %v", err)
	}
	if _, err := svc.Login(ctx, "maria", "wrong-pass"); !errors.Is(err, core.ErrInvalidCredentials) {
		t.Fatalf("wrong password: %v", err)
	}
	if ok, _ := svc.IsAuthenticated(ctx); ok {
		t.Fatal("failed login must not establish a session")
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	svc.Register(ctx, "Maria Silva", "maria", "secret1")
	for i := 0; i < 2; i++ {
		if err := svc.Logout(ctx); err != nil {
			t.Fatalf("logout %d: %v", i, err)
		}
	}
	if current, _ := svc.CurrentIdentity(ctx); current != nil {
		t.Fatal("session must be cleared")
	}
}

func TestUpdateProfile(t *testing.T) {
	svc, _, session := newTestService()
	ctx := context.Background()

	svc.Register(ctx, "Maria Silva", "maria", "secret1")

	updated, err := svc.UpdateProfile(ctx, "Maria S. Oliveira")
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.Name != "Maria S. Oliveira" {
		t.Fatalf("name = %q", updated.Name)
	}
	if session.identity.Name != "Maria S. Oliveira" {
		t.Fatal("session snapshot not refreshed")
	}

	svc.Logout(ctx)
	if _, err := svc.UpdateProfile(ctx, "Anyone"); !errors.Is(err, core.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("secret1", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !VerifyPassword("secret1", hash) {
		t.Fatal("verify must accept the original password")
	}
	if VerifyPassword("other", hash) {
		t.Fatal("verify must reject a wrong password")
	}
}
