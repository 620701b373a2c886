// Package ledger owns purchase records and their lifecycle: creation,
// edits, payment, deletion, owner-scoped queries, lazy overdue
// promotion, and dashboard aggregation.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"defesa/core"
	applog "defesa/log"
)

// DefaultHistoryWindow is the trailing window for payment history.
const DefaultHistoryWindow = 30 * 24 * time.Hour

// Service is the purchase ledger. All operations require an active
// session and are implicitly scoped to its identity.
type Service struct {
	store         PurchaseStore
	identity      IdentityProvider
	historyWindow time.Duration
	logger        *applog.Logger
	now           func() time.Time
}

func NewService(store PurchaseStore, identity IdentityProvider, historyWindow time.Duration, logger *applog.Logger) *Service {
	if historyWindow <= 0 {
		historyWindow = DefaultHistoryWindow
	}
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &Service{
		store:         store,
		identity:      identity,
		historyWindow: historyWindow,
		logger:        logger.WithComponent(applog.ComponentLedger),
		now:           time.Now,
	}
}

// CreateInput carries the fields for a new purchase. Description and
// DueDate are optional; Status defaults to ANDAMENTO.
type CreateInput struct {
	Name         string
	Description  string
	AmountCents  int64
	PurchaseDate string
	DueDate      string
	Status       core.Status
}

// UpdateInput carries a partial edit; nil fields are left unchanged.
type UpdateInput struct {
	Name         *string
	Description  *string
	AmountCents  *int64
	PurchaseDate *string
	DueDate      *string
	Status       *core.Status
	PaidAt       *time.Time
}

// Overview is the batched read used by a refreshing dashboard: the full
// purchase list, the trailing payment history, and stats folded from
// the list.
type Overview struct {
	Purchases []core.Purchase
	History   []core.Purchase
	Stats     core.DashboardStats
}

// Create persists a new purchase with a fresh identifier and current
// timestamps. A purchase created directly as PAGO gets paid_at set to now.
func (s *Service) Create(ctx context.Context, in CreateInput) (*core.Purchase, error) {
	owner, err := s.requireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	p := core.Purchase{
		ID:           uuid.NewString(),
		OwnerID:      owner.ID,
		Name:         in.Name,
		Description:  in.Description,
		Amount:       core.Money{Cents: in.AmountCents},
		PurchaseDate: core.DateOnly(in.PurchaseDate),
		DueDate:      core.DateOnly(in.DueDate),
		Status:       in.Status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if p.Status == "" {
		p.Status = core.StatusInProgress
	}
	if p.Status == core.StatusPaid {
		p.PaidAt = now
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.CreatePurchase(ctx, p); err != nil {
		return nil, fmt.Errorf("create purchase: %w", err)
	}

	s.logger.InfoContext(ctx, "purchase created",
		applog.FieldOperation, applog.OpCreate,
		applog.FieldPurchaseID, p.ID,
		applog.FieldAmountCents, p.Amount.Cents,
		applog.FieldStatus, string(p.Status))
	return &p, nil
}

// Update applies a partial edit to an owned purchase. A transition to
// PAGO without an explicit paid_at sets paid_at to now. Fails with
// core.ErrNotFound when the record does not exist or belongs to another
// identity.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*core.Purchase, error) {
	owner, err := s.requireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	p, err := s.store.GetPurchase(ctx, owner.ID, id)
	if err != nil {
		return nil, fmt.Errorf("get purchase: %w", err)
	}
	if p == nil {
		return nil, core.ErrNotFound
	}

	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.AmountCents != nil {
		p.Amount = core.Money{Cents: *in.AmountCents}
	}
	if in.PurchaseDate != nil {
		p.PurchaseDate = core.DateOnly(*in.PurchaseDate)
	}
	if in.DueDate != nil {
		p.DueDate = core.DateOnly(*in.DueDate)
	}
	if in.Status != nil {
		p.Status = *in.Status
	}
	if in.PaidAt != nil {
		p.PaidAt = *in.PaidAt
	}
	if p.Status == core.StatusPaid && p.PaidAt.IsZero() {
		p.PaidAt = s.now()
	}
	p.UpdatedAt = s.now()

	if err := p.Validate(); err != nil {
		return nil, err
	}

	ok, err := s.store.UpdatePurchase(ctx, *p)
	if err != nil {
		return nil, fmt.Errorf("update purchase: %w", err)
	}
	if !ok {
		return nil, core.ErrNotFound
	}

	s.logger.InfoContext(ctx, "purchase updated",
		applog.FieldOperation, applog.OpUpdate,
		applog.FieldPurchaseID, p.ID,
		applog.FieldStatus, string(p.Status))
	return p, nil
}

// Pay marks an owned purchase as paid now. Paying an already-paid
// purchase leaves it paid.
func (s *Service) Pay(ctx context.Context, id string) (*core.Purchase, error) {
	status := core.StatusPaid
	paidAt := s.now()
	return s.Update(ctx, id, UpdateInput{Status: &status, PaidAt: &paidAt})
}

// Delete removes an owned purchase permanently. Fails with
// core.ErrNotFound when nothing matched, never revealing whether the
// record exists under another identity.
func (s *Service) Delete(ctx context.Context, id string) error {
	owner, err := s.requireIdentity(ctx)
	if err != nil {
		return err
	}

	ok, err := s.store.DeletePurchase(ctx, owner.ID, id)
	if err != nil {
		return fmt.Errorf("delete purchase: %w", err)
	}
	if !ok {
		return core.ErrNotFound
	}

	s.logger.InfoContext(ctx, "purchase deleted",
		applog.FieldOperation, applog.OpDelete,
		applog.FieldPurchaseID, id)
	return nil
}

// GetByID returns an owned purchase, or nil when no owned record matches.
func (s *Service) GetByID(ctx context.Context, id string) (*core.Purchase, error) {
	owner, err := s.requireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	return s.store.GetPurchase(ctx, owner.ID, id)
}

// List returns the owner's purchases, newest first, after reconciling
// overdue statuses. The reconcile step persists ANDAMENTO -> ATRASADO
// transitions for purchases past their due date, so this read has a
// deliberate write side effect; the returned snapshot reflects it.
func (s *Service) List(ctx context.Context, filters core.PurchaseFilters) ([]core.Purchase, error) {
	owner, err := s.requireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := s.reconcileOverdue(ctx, owner.ID); err != nil {
		return nil, err
	}

	purchases, err := s.store.ListPurchases(ctx, owner.ID, filters)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	return purchases, nil
}

// ReconcileOverdueStatuses promotes every in-progress purchase whose due
// date is strictly before today to ATRASADO and returns how many records
// were promoted. Promotion is idempotent per record, and one record's
// failure does not abort the rest.
func (s *Service) ReconcileOverdueStatuses(ctx context.Context) (int, error) {
	owner, err := s.requireIdentity(ctx)
	if err != nil {
		return 0, err
	}
	return s.reconcileOverdue(ctx, owner.ID)
}

func (s *Service) reconcileOverdue(ctx context.Context, ownerID string) (int, error) {
	today := core.Today(s.now())
	ids, err := s.store.ListOverdueCandidates(ctx, ownerID, today)
	if err != nil {
		return 0, fmt.Errorf("list overdue candidates: %w", err)
	}

	promoted := 0
	for _, id := range ids {
		if err := s.store.MarkOverdue(ctx, ownerID, id, s.now()); err != nil {
			s.logger.WarnContext(ctx, "overdue promotion failed",
				applog.FieldOperation, applog.OpReconcile,
				applog.FieldPurchaseID, id,
				applog.FieldError, err.Error())
			continue
		}
		promoted++
	}

	if promoted > 0 {
		s.logger.InfoContext(ctx, "overdue statuses reconciled",
			applog.FieldOperation, applog.OpReconcile,
			applog.FieldPromoted, promoted)
	}
	return promoted, nil
}

// DashboardStats folds the owner's full record set into per-status
// counts and totals. It goes through List, so it inherits the overdue
// reconcile step.
func (s *Service) DashboardStats(ctx context.Context) (core.DashboardStats, error) {
	purchases, err := s.List(ctx, core.PurchaseFilters{})
	if err != nil {
		return core.DashboardStats{}, err
	}
	return core.FoldDashboardStats(purchases), nil
}

// PaymentHistory returns the owner's paid purchases from the trailing
// history window, newest payment first.
func (s *Service) PaymentHistory(ctx context.Context) ([]core.Purchase, error) {
	owner, err := s.requireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	since := s.now().Add(-s.historyWindow)
	history, err := s.store.ListPaymentHistory(ctx, owner.ID, since)
	if err != nil {
		return nil, fmt.Errorf("list payment history: %w", err)
	}
	return history, nil
}

// GetOverview fetches the purchase list and the payment history
// concurrently and folds dashboard stats from the list.
func (s *Service) GetOverview(ctx context.Context) (*Overview, error) {
	var ov Overview

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		purchases, err := s.List(ctx, core.PurchaseFilters{})
		if err != nil {
			return err
		}
		ov.Purchases = purchases
		return nil
	})
	g.Go(func() error {
		history, err := s.PaymentHistory(ctx)
		if err != nil {
			return err
		}
		ov.History = history
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ov.Stats = core.FoldDashboardStats(ov.Purchases)
	return &ov, nil
}

func (s *Service) requireIdentity(ctx context.Context) (*core.Identity, error) {
	identity, err := s.identity.CurrentIdentity(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve session identity: %w", err)
	}
	if identity == nil {
		return nil, core.ErrNotAuthenticated
	}
	return identity, nil
}
