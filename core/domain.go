package core

import (
	"errors"
	"time"
)

const (
	StatusPaid       Status = "PAGO"
	StatusInProgress Status = "ANDAMENTO"
	StatusOverdue    Status = "ATRASADO"
)

// DateLayout is the canonical calendar-date form. Dates are compared as
// strings, which orders correctly for this layout.
const DateLayout = "2006-01-02"

type (
	Status string

	Identity struct {
		ID           string
		Name         string
		Login        string
		PasswordHash string
		CreatedAt    time.Time
		UpdatedAt    time.Time
	}

	Purchase struct {
		ID           string
		OwnerID      string
		Name         string
		Description  string // optional
		Amount       Money
		PurchaseDate string // YYYY-MM-DD
		DueDate      string // YYYY-MM-DD, empty when unset
		Status       Status
		PaidAt       time.Time // zero until the purchase is paid
		CreatedAt    time.Time
		UpdatedAt    time.Time
	}

	PurchaseFilters struct {
		Status     Status
		DateFrom   string // YYYY-MM-DD, inclusive, matched against due date
		DateTo     string // YYYY-MM-DD, inclusive
		SearchTerm string // case-insensitive substring of name or description
	}

	DashboardStats struct {
		PaidCount    int
		PaidTotal    Money
		PendingCount int
		PendingTotal Money
		OverdueCount int
		OverdueTotal Money
	}
)

var (
	ErrDuplicateLogin     = errors.New("login already in use")
	ErrInvalidCredentials = errors.New("invalid login or password")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrNotFound           = errors.New("purchase not found")
	ErrInvalidAmount      = errors.New("invalid amount")
)

func (s Status) Valid() bool {
	switch s {
	case StatusPaid, StatusInProgress, StatusOverdue:
		return true
	}
	return false
}

// DateOnly truncates a date string to its YYYY-MM-DD portion, dropping
// any time-of-day suffix.
func DateOnly(s string) string {
	if len(s) > len(DateLayout) {
		return s[:len(DateLayout)]
	}
	return s
}

// Today formats a timestamp as a calendar date.
func Today(now time.Time) string {
	return now.Format(DateLayout)
}

// IsOverdue reports whether a purchase should be reclassified as overdue
// as of the given calendar date. A purchase without a due date never
// becomes overdue; paid purchases are final.
func (p Purchase) IsOverdue(today string) bool {
	if p.Status != StatusInProgress || p.DueDate == "" {
		return false
	}
	return DateOnly(p.DueDate) < DateOnly(today)
}

// FoldDashboardStats sums purchases into per-status buckets. Counts over
// the three buckets always add up to len(purchases).
func FoldDashboardStats(purchases []Purchase) DashboardStats {
	var stats DashboardStats
	for _, p := range purchases {
		switch p.Status {
		case StatusPaid:
			stats.PaidCount++
			stats.PaidTotal.Cents += p.Amount.Cents
		case StatusInProgress:
			stats.PendingCount++
			stats.PendingTotal.Cents += p.Amount.Cents
		case StatusOverdue:
			stats.OverdueCount++
			stats.OverdueTotal.Cents += p.Amount.Cents
		}
	}
	return stats
}
