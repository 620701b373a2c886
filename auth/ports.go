package auth

import (
	"context"

	"defesa/core"
)

// Ports for outbound adapters.
type (
	// UserStore persists registered identities.
	UserStore interface {
		CreateUser(ctx context.Context, identity core.Identity) error
		// GetUserByLogin returns nil without error when no identity
		// matches the login.
		GetUserByLogin(ctx context.Context, login string) (*core.Identity, error)
		GetUserByID(ctx context.Context, id string) (*core.Identity, error)
		UpdateUser(ctx context.Context, identity core.Identity) error
	}

	// SessionStore is a durable key-value store holding the single
	// process-wide session: an opaque token and a serialized snapshot
	// of the current identity. Written on login/register, cleared on
	// logout, read at startup.
	SessionStore interface {
		SaveSession(ctx context.Context, token string, identity core.Identity) error
		// SessionToken returns "" without error when no session exists.
		SessionToken(ctx context.Context) (string, error)
		// SessionIdentity returns nil without error when no session exists.
		SessionIdentity(ctx context.Context) (*core.Identity, error)
		ClearSession(ctx context.Context) error
	}
)
