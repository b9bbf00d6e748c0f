package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"rental-escrow-backend/internal/repository"
)

// queryer is satisfied by both *sql.DB and *sql.Tx so every repository can run
// against the pool or inside a transaction.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type repos struct {
	escrows    *escrowRepository
	custody    *custodyRepository
	platform   *platformRepository
	events     *eventRepository
	journal    *journalRepository
	identities *identityRepository
}

func newRepos(q queryer, d Dialect) *repos {
	return &repos{
		escrows:    &escrowRepository{q: q, d: d},
		custody:    &custodyRepository{q: q, d: d},
		platform:   &platformRepository{q: q, d: d},
		events:     &eventRepository{q: q, d: d},
		journal:    &journalRepository{q: q, d: d},
		identities: &identityRepository{q: q, d: d},
	}
}

func (r *repos) Escrows() repository.EscrowRepository { return r.escrows }
func (r *repos) Custody() repository.CustodyRepository { return r.custody }
func (r *repos) Platform() repository.PlatformRepository { return r.platform }
func (r *repos) Events() repository.EventRepository { return r.events }
func (r *repos) Journal() repository.JournalRepository { return r.journal }
func (r *repos) Identities() repository.IdentityRepository { return r.identities }

type Store struct {
	*repos
	db      *sql.DB
	dialect Dialect
}

var _ repository.Store = (*Store)(nil)

func New(db *sql.DB, d Dialect) *Store {
	return &Store{repos: newRepos(db, d), db: db, dialect: d}
}

// Open connects with the named driver and checks the connection.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	d, ok := DialectFor(driver)
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	db, err := sql.Open(d.DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.Name, err)
	}
	if d.Name == SQLite.Name {
		// One connection means one writer; transactions never interleave.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", d.Name, err)
	}
	return New(db, d), nil
}

// OpenSQLite opens (creating if needed) a SQLite database file and applies migrations.
func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	s, err := Open(ctx, SQLite.Name, SQLiteDSN(path))
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func SQLiteDSN(path string) string {
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
}

func (s *Store) Dialect() Dialect {
	return s.dialect
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// WithinTx runs fn against repositories bound to a single transaction. The transaction
// commits only when fn returns nil.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, newRepos(tx, s.dialect)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
