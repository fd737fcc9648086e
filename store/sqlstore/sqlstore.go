/*
Package sqlstore provides a database/sql implementation of the leave store.

PURPOSE:
  Implements leave.TxStore and leave.ConfigStore on SQLite (default, via
  mattn/go-sqlite3) or PostgreSQL (via the pgx stdlib driver). Queries are
  written once with ? placeholders and rebound for PostgreSQL.

KEY TABLES:
  leave_types:     Administrator-managed configuration (self-referencing fallback)
  company_rules:   Key/value settings such as total_annual_leave_cap
  leave_requests:  Pending, approved and rejected requests
  public_holidays: Dates skipped by the working-day policy

INDEXES:
  - idx_leave_requests_employee_status: pending gate and consumption queries
  - idx_leave_requests_batch: split batch lookups
  - idx_leave_requests_one_pending: at most one pending single submission per
    employee (split batches are admitted as one submission)

CONCURRENCY:
  WithTx runs fn inside one database transaction. In-process transactions are
  serialized by a mutex. SQLite uses a single connection, so the transaction
  is also the only writer. On PostgreSQL, LockEmployee takes a transaction
  scoped advisory lock so quota re-checks across processes see committed state.

USAGE:
  store, err := sqlstore.New(ctx, sqlstore.Options{Driver: "sqlite3", DSN: "leave.db"})
  if err != nil {
      return err
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - leave/store.go: Interface definitions
  - store/memory: In-memory implementation for tests
*/
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/mattn/go-sqlite3"
	"github.com/warp/leave-engine/leave"
	"go.uber.org/zap"
)

// Dialect selects placeholder style and locking.
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

// DialectFor maps a database/sql driver name to its dialect.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "sqlite3", "sqlite":
		return DialectSQLite, nil
	case "pgx", "postgres", "postgresql":
		return DialectPostgres, nil
	}
	return 0, fmt.Errorf("unsupported database driver %q", driver)
}

// Options configures New.
type Options struct {
	Driver string // "sqlite3" or "pgx"
	DSN    string

	MaxOpenConns int
	Logger       *zap.Logger
}

// Store implements leave.TxStore and leave.ConfigStore.
type Store struct {
	*repo
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// repo runs every query against either the pool or an open transaction.
type repo struct {
	q       querier
	dialect Dialect
	inTx    bool
}

// New opens the database and migrates the schema.
func New(ctx context.Context, opts Options) (*Store, error) {
	dialect, err := DialectFor(opts.Driver)
	if err != nil {
		return nil, err
	}

	driver, dsn := opts.Driver, opts.DSN
	if dialect == DialectSQLite {
		driver = "sqlite3"
		if !strings.Contains(dsn, "?") {
			dsn += "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"
		}
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	switch {
	case dialect == DialectSQLite:
		// :memory: databases exist per connection.
		db.SetMaxOpenConns(1)
	case opts.MaxOpenConns > 0:
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := FromDB(db, dialect, opts.Logger)
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// NewSQLite opens a SQLite database at path. Use ":memory:" for tests.
func NewSQLite(path string) (*Store, error) {
	return New(context.Background(), Options{Driver: "sqlite3", DSN: path})
}

// FromDB wraps an already-open database without migrating it.
func FromDB(db *sql.DB, dialect Dialect, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		repo:   &repo{q: db, dialect: dialect},
		db:     db,
		logger: logger.Named("store.sql"),
	}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the pool for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// migrate creates the database schema.
func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w\n%s", err, stmt)
		}
	}
	s.logger.Debug("schema migrated")
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS leave_types (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	is_unpaid BOOLEAN NOT NULL DEFAULT FALSE,
	annual_allowance_days INTEGER,
	monthly_allowance_days INTEGER,
	max_days_per_request INTEGER,
	allow_retroactive_application BOOLEAN NOT NULL DEFAULT FALSE,
	fallback_leave_type_id TEXT REFERENCES leave_types(id) ON DELETE SET NULL
);

CREATE TABLE IF NOT EXISTS company_rules (
	setting_key TEXT PRIMARY KEY,
	setting_value TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS leave_requests (
	id TEXT PRIMARY KEY,
	employee_id TEXT NOT NULL,
	leave_type_id TEXT NOT NULL REFERENCES leave_types(id),
	start_date TEXT NOT NULL,
	end_date TEXT NOT NULL,
	days INTEGER NOT NULL,
	reason TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL CHECK (status IN ('pending', 'approved', 'rejected')),
	manager_comments TEXT,
	batch_id TEXT,
	source_request_id TEXT,
	portion TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	CHECK (start_date <= end_date)
);

CREATE INDEX IF NOT EXISTS idx_leave_requests_employee_status
	ON leave_requests(employee_id, status);

CREATE INDEX IF NOT EXISTS idx_leave_requests_batch
	ON leave_requests(batch_id) WHERE batch_id IS NOT NULL;

CREATE UNIQUE INDEX IF NOT EXISTS idx_leave_requests_one_pending
	ON leave_requests(employee_id) WHERE status = 'pending' AND batch_id IS NULL;

CREATE TABLE IF NOT EXISTS public_holidays (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	date TEXT NOT NULL UNIQUE
);
`

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx runs fn inside a database transaction. The transaction commits when
// fn returns nil and rolls back otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(leave.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&repo{q: tx, dialect: s.dialect, inTx: true}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// LockEmployee takes a PostgreSQL advisory lock keyed by the employee for
// the rest of the transaction. SQLite transactions are already exclusive.
func (r *repo) LockEmployee(ctx context.Context, employeeID string) error {
	if !r.inTx || r.dialect != DialectPostgres {
		return nil
	}
	_, err := r.q.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", employeeID)
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

// bind rewrites ? placeholders to $n for PostgreSQL.
func (r *repo) bind(query string) string {
	if r.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

func (r *repo) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return r.q.ExecContext(ctx, r.bind(query), args...)
}

func (r *repo) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return r.q.QueryContext(ctx, r.bind(query), args...)
}

func (r *repo) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return r.q.QueryRowContext(ctx, r.bind(query), args...)
}

// uniqueViolation reports whether err is a unique constraint failure and,
// if so, on which index or column.
func uniqueViolation(err error) (string, bool) {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return sqliteErr.Error(), true
		}
		return "", false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr.ConstraintName, true
	}
	return "", false
}

// atomic runs fn in a transaction. Inside WithTx it reuses the open one;
// on the pool it begins and commits its own.
func (r *repo) atomic(ctx context.Context, fn func(*repo) error) error {
	db, ok := r.q.(*sql.DB)
	if r.inTx || !ok {
		return fn(r)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()
	if err := fn(&repo{q: tx, dialect: r.dialect, inTx: true}); err != nil {
		return err
	}
	return tx.Commit()
}

// foreignKeyViolation reports whether err is a foreign key failure.
func foreignKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intFromNull(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func stringFromNull(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	v := n.String
	return &v
}
