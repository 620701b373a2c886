// Package storage is the SQLite persistence layer: registered users,
// purchase records, and the durable session key-value state.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"defesa/auth"
	"defesa/core"
	"defesa/ledger"
)

// Session key-value keys, mirroring the two entries the app keeps: an
// opaque token and a serialized snapshot of the current identity.
const (
	sessionTokenKey = "auth_token"
	currentUserKey  = "current_user"
)

type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (and creates if needed) the database at
// dbPath and runs migrations. Use ":memory:" for an ephemeral database.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// Single connection: keeps :memory: databases alive and makes the
	// foreign_keys pragma stick.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- users ---

// CreateUser implements auth.UserStore. A duplicate login surfaces as
// core.ErrDuplicateLogin even when two registrations race past the
// existence check.
func (r *SQLiteRepository) CreateUser(ctx context.Context, identity core.Identity) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, name, login, password, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		identity.ID, identity.Name, identity.Login, identity.PasswordHash,
		identity.CreatedAt.UTC(), identity.UpdatedAt.UTC(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return core.ErrDuplicateLogin
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetUserByLogin(ctx context.Context, login string) (*core.Identity, error) {
	return r.getUser(ctx, "login = ?", login)
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id string) (*core.Identity, error) {
	return r.getUser(ctx, "id = ?", id)
}

func (r *SQLiteRepository) getUser(ctx context.Context, where string, arg any) (*core.Identity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, login, password, created_at, updated_at FROM users WHERE `+where, arg)

	var identity core.Identity
	err := row.Scan(&identity.ID, &identity.Name, &identity.Login,
		&identity.PasswordHash, &identity.CreatedAt, &identity.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &identity, nil
}

func (r *SQLiteRepository) UpdateUser(ctx context.Context, identity core.Identity) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET name = ?, login = ?, password = ?, updated_at = ? WHERE id = ?`,
		identity.Name, identity.Login, identity.PasswordHash,
		identity.UpdatedAt.UTC(), identity.ID,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// --- purchases ---

const purchaseColumns = `id, user_id, name, description, price_cents,
	purchase_date, due_date, status, paid_at, created_at, updated_at`

func (r *SQLiteRepository) CreatePurchase(ctx context.Context, p core.Purchase) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO purchases (`+purchaseColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.OwnerID, p.Name, nullString(p.Description), p.Amount.Cents,
		p.PurchaseDate, nullString(p.DueDate), string(p.Status),
		nullTime(p.PaidAt), p.CreatedAt.UTC(), p.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert purchase: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdatePurchase(ctx context.Context, p core.Purchase) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE purchases
		 SET name = ?, description = ?, price_cents = ?, purchase_date = ?,
		     due_date = ?, status = ?, paid_at = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		p.Name, nullString(p.Description), p.Amount.Cents, p.PurchaseDate,
		nullString(p.DueDate), string(p.Status), nullTime(p.PaidAt),
		p.UpdatedAt.UTC(), p.ID, p.OwnerID,
	)
	if err != nil {
		return false, fmt.Errorf("update purchase: %w", err)
	}
	return rowsAffected(res)
}

func (r *SQLiteRepository) DeletePurchase(ctx context.Context, ownerID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM purchases WHERE id = ? AND user_id = ?`, id, ownerID)
	if err != nil {
		return false, fmt.Errorf("delete purchase: %w", err)
	}
	return rowsAffected(res)
}

func (r *SQLiteRepository) GetPurchase(ctx context.Context, ownerID, id string) (*core.Purchase, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+purchaseColumns+` FROM purchases WHERE id = ? AND user_id = ?`,
		id, ownerID)

	p, err := scanPurchase(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListPurchases returns the owner's purchases, newest first. Date-range
// filters match the date-only portion of the due date; the search term
// matches case-insensitively against name and description.
func (r *SQLiteRepository) ListPurchases(ctx context.Context, ownerID string, filters core.PurchaseFilters) ([]core.Purchase, error) {
	query := `SELECT ` + purchaseColumns + ` FROM purchases WHERE user_id = ?`
	args := []any{ownerID}

	if filters.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filters.Status))
	}
	if filters.DateFrom != "" {
		query += ` AND due_date IS NOT NULL AND substr(due_date, 1, 10) >= ?`
		args = append(args, core.DateOnly(filters.DateFrom))
	}
	if filters.DateTo != "" {
		query += ` AND due_date IS NOT NULL AND substr(due_date, 1, 10) <= ?`
		args = append(args, core.DateOnly(filters.DateTo))
	}
	if filters.SearchTerm != "" {
		query += ` AND (lower(name) LIKE ? OR lower(coalesce(description, '')) LIKE ?)`
		pattern := "%" + strings.ToLower(filters.SearchTerm) + "%"
		args = append(args, pattern, pattern)
	}
	query += ` ORDER BY created_at DESC`

	return r.queryPurchases(ctx, query, args...)
}

func (r *SQLiteRepository) ListOverdueCandidates(ctx context.Context, ownerID, today string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM purchases
		 WHERE user_id = ? AND status = ?
		   AND due_date IS NOT NULL AND due_date != ''
		   AND substr(due_date, 1, 10) < ?`,
		ownerID, string(core.StatusInProgress), core.DateOnly(today),
	)
	if err != nil {
		return nil, fmt.Errorf("query overdue candidates: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan overdue candidate: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MarkOverdue promotes a single in-progress purchase. The status
// predicate makes the write idempotent: racing callers promoting the
// same record are both no-ops after the first.
func (r *SQLiteRepository) MarkOverdue(ctx context.Context, ownerID, id string, updatedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE purchases SET status = ?, updated_at = ?
		 WHERE id = ? AND user_id = ? AND status = ?`,
		string(core.StatusOverdue), updatedAt.UTC(),
		id, ownerID, string(core.StatusInProgress),
	)
	if err != nil {
		return fmt.Errorf("mark overdue: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListPaymentHistory(ctx context.Context, ownerID string, since time.Time) ([]core.Purchase, error) {
	return r.queryPurchases(ctx,
		`SELECT `+purchaseColumns+` FROM purchases
		 WHERE user_id = ? AND status = ? AND paid_at IS NOT NULL AND paid_at >= ?
		 ORDER BY paid_at DESC`,
		ownerID, string(core.StatusPaid), since.UTC(),
	)
}

func (r *SQLiteRepository) queryPurchases(ctx context.Context, query string, args ...any) ([]core.Purchase, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query purchases: %w", err)
	}
	defer rows.Close()

	var purchases []core.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		purchases = append(purchases, *p)
	}
	return purchases, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPurchase(row rowScanner) (*core.Purchase, error) {
	var (
		p           core.Purchase
		description sql.NullString
		dueDate     sql.NullString
		status      string
		paidAt      sql.NullTime
	)
	err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &description, &p.Amount.Cents,
		&p.PurchaseDate, &dueDate, &status, &paidAt, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan purchase: %w", err)
	}
	p.Description = description.String
	p.DueDate = dueDate.String
	p.Status = core.Status(status)
	if paidAt.Valid {
		p.PaidAt = paidAt.Time
	}
	return &p, nil
}

// --- session state ---

// SaveSession implements auth.SessionStore: upserts the token and the
// JSON identity snapshot under their fixed keys.
func (r *SQLiteRepository) SaveSession(ctx context.Context, token string, identity core.Identity) error {
	snapshot, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("marshal identity snapshot: %w", err)
	}
	if err := r.setSessionValue(ctx, sessionTokenKey, token); err != nil {
		return err
	}
	return r.setSessionValue(ctx, currentUserKey, string(snapshot))
}

func (r *SQLiteRepository) SessionToken(ctx context.Context) (string, error) {
	token, _, err := r.sessionValue(ctx, sessionTokenKey)
	return token, err
}

func (r *SQLiteRepository) SessionIdentity(ctx context.Context) (*core.Identity, error) {
	raw, ok, err := r.sessionValue(ctx, currentUserKey)
	if err != nil || !ok {
		return nil, err
	}
	var identity core.Identity
	if err := json.Unmarshal([]byte(raw), &identity); err != nil {
		return nil, fmt.Errorf("unmarshal identity snapshot: %w", err)
	}
	return &identity, nil
}

func (r *SQLiteRepository) ClearSession(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM session_state WHERE key IN (?, ?)`, sessionTokenKey, currentUserKey)
	if err != nil {
		return fmt.Errorf("clear session state: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) setSessionValue(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO session_state (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set session value %q: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) sessionValue(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM session_state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get session value %q: %w", key, err)
	}
	return value, true, nil
}

// --- helpers ---

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t.UTC(), Valid: !t.IsZero()}
}

func rowsAffected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// Compile-time port checks.
var (
	_ auth.UserStore       = (*SQLiteRepository)(nil)
	_ auth.SessionStore    = (*SQLiteRepository)(nil)
	_ ledger.PurchaseStore = (*SQLiteRepository)(nil)
)
