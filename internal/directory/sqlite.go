package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration
)

const busyTimeoutMillis = 5000

const schema = `
CREATE TABLE IF NOT EXISTS tenants (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	name           TEXT    NOT NULL UNIQUE,
	token          TEXT    NOT NULL,
	webhook_key    TEXT    NOT NULL UNIQUE,
	webhook_secret TEXT    NOT NULL,
	unit           TEXT    NOT NULL,
	enabled        INTEGER NOT NULL DEFAULT 1,
	created_at     TEXT    NOT NULL,
	updated_at     TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tenants_webhook_key ON tenants(webhook_key);
`

// Store is a SQLite-backed tenant directory.
type Store struct {
	db *sql.DB
}

// Compile-time interface guards.
var (
	_ Directory = (*Store)(nil)
	_ Lister    = (*Store)(nil)
)

// Open opens (creating if necessary) the tenant database at path and runs
// migrations. The database uses WAL mode, a 5 s busy timeout, and a single
// connection (SQLite serialises writes).
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("directory: create %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("directory: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("directory: enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeoutMillis)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("directory: set busy_timeout: %w", err)
	}

	store := &Store{db: db}
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Migrate creates or upgrades the tenant schema.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("directory: migrate: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

const tenantColumns = "id, name, token, webhook_key, webhook_secret, unit, enabled, created_at, updated_at"

// FindByWebhookKey implements Directory. Disabled tenants are invisible.
func (s *Store) FindByWebhookKey(ctx context.Context, key string) (*Tenant, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+tenantColumns+" FROM tenants WHERE webhook_key = ? AND enabled = 1", key)
	return scanTenant(row)
}

// Get implements Directory. Disabled tenants are invisible.
func (s *Store) Get(ctx context.Context, id int64) (*Tenant, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+tenantColumns+" FROM tenants WHERE id = ? AND enabled = 1", id)
	return scanTenant(row)
}

// FindByName returns a tenant by name regardless of enabled state.
// Administration tooling needs to address disabled tenants too.
func (s *Store) FindByName(ctx context.Context, name string) (*Tenant, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+tenantColumns+" FROM tenants WHERE name = ?", name)
	return scanTenant(row)
}

// List returns all tenants, enabled or not, ordered by name.
func (s *Store) List(ctx context.Context) ([]Tenant, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+tenantColumns+" FROM tenants ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("directory: list tenants: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tenants []Tenant
	for rows.Next() {
		t, err := scanTenantRow(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("directory: list tenants: %w", err)
	}
	return tenants, nil
}

// Create inserts a new tenant and fills in its ID and timestamps.
func (s *Store) Create(ctx context.Context, t *Tenant) error {
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO tenants (name, token, webhook_key, webhook_secret, unit, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Name, t.Token, t.WebhookKey, t.WebhookSecret, t.Unit, boolToInt(t.Enabled),
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("directory: create tenant %s: %w", t.Name, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("directory: last insert id: %w", err)
	}
	t.ID = id
	return nil
}

// Update rewrites a tenant's mutable fields.
func (s *Store) Update(ctx context.Context, t *Tenant) error {
	t.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE tenants
		SET token = ?, webhook_key = ?, webhook_secret = ?, unit = ?, enabled = ?, updated_at = ?
		WHERE id = ?`,
		t.Token, t.WebhookKey, t.WebhookSecret, t.Unit, boolToInt(t.Enabled),
		t.UpdatedAt.Format(time.RFC3339Nano), t.ID,
	)
	if err != nil {
		return fmt.Errorf("directory: update tenant %s: %w", t.Name, err)
	}
	return affectedOrNotFound(result)
}

// SetEnabled flips a tenant's enabled flag by name.
func (s *Store) SetEnabled(ctx context.Context, name string, enabled bool) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE tenants SET enabled = ?, updated_at = ? WHERE name = ?",
		boolToInt(enabled), time.Now().UTC().Format(time.RFC3339Nano), name)
	if err != nil {
		return fmt.Errorf("directory: set enabled for %s: %w", name, err)
	}
	return affectedOrNotFound(result)
}

// Delete removes a tenant by name.
func (s *Store) Delete(ctx context.Context, name string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM tenants WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("directory: delete tenant %s: %w", name, err)
	}
	return affectedOrNotFound(result)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTenant(row *sql.Row) (*Tenant, error) {
	t, err := scanTenantRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

func scanTenantRow(row rowScanner) (*Tenant, error) {
	var (
		t          Tenant
		enabled    int
		createdStr string
		updatedStr string
	)
	if err := row.Scan(&t.ID, &t.Name, &t.Token, &t.WebhookKey, &t.WebhookSecret,
		&t.Unit, &enabled, &createdStr, &updatedStr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("directory: scan tenant: %w", err)
	}
	t.Enabled = enabled != 0

	var err error
	if t.CreatedAt, err = time.Parse(time.RFC3339Nano, createdStr); err != nil {
		return nil, fmt.Errorf("directory: parse created_at %q: %w", createdStr, err)
	}
	if t.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedStr); err != nil {
		return nil, fmt.Errorf("directory: parse updated_at %q: %w", updatedStr, err)
	}
	return &t, nil
}

func affectedOrNotFound(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("directory: rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
