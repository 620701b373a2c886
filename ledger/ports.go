package ledger

import (
	"context"
	"time"

	"defesa/core"
)

// Ports for outbound adapters.
type (
	// IdentityProvider supplies the active session's identity. Implemented
	// by auth.Service; every ledger operation is scoped to it.
	IdentityProvider interface {
		CurrentIdentity(ctx context.Context) (*core.Identity, error)
	}

	// PurchaseStore persists purchase records. Every read and write is
	// scoped to an owner; a lookup for a record owned by someone else
	// behaves exactly like a missing record.
	PurchaseStore interface {
		CreatePurchase(ctx context.Context, p core.Purchase) error
		// UpdatePurchase writes the full record. Returns false when no
		// record with p.ID is owned by p.OwnerID.
		UpdatePurchase(ctx context.Context, p core.Purchase) (bool, error)
		// DeletePurchase returns false when no record matched.
		DeletePurchase(ctx context.Context, ownerID, id string) (bool, error)
		// GetPurchase returns nil without error when no record matched.
		GetPurchase(ctx context.Context, ownerID, id string) (*core.Purchase, error)
		ListPurchases(ctx context.Context, ownerID string, filters core.PurchaseFilters) ([]core.Purchase, error)
		// ListOverdueCandidates returns IDs of in-progress purchases whose
		// due date is strictly before today (YYYY-MM-DD).
		ListOverdueCandidates(ctx context.Context, ownerID, today string) ([]string, error)
		// MarkOverdue promotes a single in-progress purchase to overdue.
		// A no-op when the record is already overdue or paid.
		MarkOverdue(ctx context.Context, ownerID, id string, updatedAt time.Time) error
		// ListPaymentHistory returns paid purchases with paid_at on or
		// after since, newest first.
		ListPaymentHistory(ctx context.Context, ownerID string, since time.Time) ([]core.Purchase, error)
	}
)
