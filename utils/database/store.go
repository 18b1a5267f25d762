package database

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

const (
	driverPostgres = "pgx"
	driverSQLite   = "sqlite3"
)

var (
	// ErrStoreUnavailable is returned by every operation while no database
	// connection has been established.
	ErrStoreUnavailable = errors.New("database: store unavailable")
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("database: not found")
	// ErrDuplicateOwner is returned when a write would give an owner a second
	// channel in the same guild.
	ErrDuplicateOwner = errors.New("database: owner already has a channel in this guild")
)

// Store is the process-wide handle to the relational store. It starts out
// degraded and becomes available once ConnectWithRetry succeeds.
type Store struct {
	db atomic.Pointer[sqlx.DB]
}

// NewStore returns a degraded store with no connection.
func NewStore() *Store {
	return &Store{}
}

// Available reports whether a connection has been established.
func (s *Store) Available() bool {
	return s != nil && s.db.Load() != nil
}

func (s *Store) handle() (*sqlx.DB, error) {
	if s == nil {
		return nil, ErrStoreUnavailable
	}
	db := s.db.Load()
	if db == nil {
		return nil, ErrStoreUnavailable
	}
	return db, nil
}

// Close releases the connection pool and returns the store to degraded mode.
func (s *Store) Close() error {
	db := s.db.Swap(nil)
	if db == nil {
		return nil
	}
	return db.Close()
}

// OpenFunc opens and verifies a connection pool.
type OpenFunc func(ctx context.Context) (*sqlx.DB, error)

// ConnectOptions controls ConnectWithRetry.
type ConnectOptions struct {
	Open        OpenFunc
	Migrate     func(ctx context.Context, db *sqlx.DB) error
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Sleep waits between attempts. Defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ConnectWithRetry tries to open the store up to MaxAttempts times, doubling
// the delay between attempts up to MaxDelay. The schema is migrated once,
// after the first successful attempt, before the handle becomes visible to
// other goroutines. On failure the store stays degraded.
func (s *Store) ConnectWithRetry(ctx context.Context, opts ConnectOptions) error {
	if opts.Open == nil {
		return errors.New("database: no opener configured")
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.Migrate == nil {
		opts.Migrate = Migrate
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	delay := opts.BaseDelay
	if delay <= 0 {
		delay = time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		db, err := opts.Open(ctx)
		if err == nil {
			if err := opts.Migrate(ctx, db); err != nil {
				db.Close()
				return fmt.Errorf("database: migrate schema: %w", err)
			}
			if old := s.db.Swap(db); old != nil {
				old.Close()
			}
			log.Printf("database: connected driver=%s attempt=%d", db.DriverName(), attempt)
			return nil
		}
		lastErr = err
		log.Printf("database: connect attempt %d/%d failed: %v", attempt, opts.MaxAttempts, err)
		if attempt == opts.MaxAttempts {
			break
		}
		if err := opts.Sleep(ctx, delay); err != nil {
			return fmt.Errorf("database: connect aborted: %w", err)
		}
		delay *= 2
		if opts.MaxDelay > 0 && delay > opts.MaxDelay {
			delay = opts.MaxDelay
		}
	}
	return fmt.Errorf("database: giving up after %d attempts: %w", opts.MaxAttempts, lastErr)
}

// Opener returns an OpenFunc for dsn. postgres:// and postgresql:// URLs use
// pgx; sqlite://path and file: URLs use sqlite3. When verifyTLS is false the
// server certificate is not checked but TLS stays enabled.
func Opener(dsn string, verifyTLS bool) (OpenFunc, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		cfg, err := pgx.ParseConfig(dsn)
		if err != nil {
			return nil, fmt.Errorf("database: parse postgres DSN: %w", err)
		}
		if !verifyTLS {
			skipVerify(cfg.TLSConfig)
			for _, fb := range cfg.Fallbacks {
				skipVerify(fb.TLSConfig)
			}
		}
		return func(ctx context.Context) (*sqlx.DB, error) {
			db := sqlx.NewDb(stdlib.OpenDB(*cfg), driverPostgres)
			db.SetMaxOpenConns(5)
			db.SetMaxIdleConns(1)
			if err := db.PingContext(ctx); err != nil {
				db.Close()
				return nil, err
			}
			return db, nil
		}, nil
	case strings.HasPrefix(dsn, "sqlite://"), strings.HasPrefix(dsn, "file:"):
		path := strings.TrimPrefix(dsn, "sqlite://")
		return func(ctx context.Context) (*sqlx.DB, error) {
			return OpenSQLite(ctx, path)
		}, nil
	default:
		return nil, fmt.Errorf("database: unsupported DSN scheme in %q", redact(dsn))
	}
}

// OpenSQLite opens a sqlite database at path. Writes are serialized through
// a single connection.
func OpenSQLite(ctx context.Context, path string) (*sqlx.DB, error) {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	db, err := sqlx.Open(driverSQLite, path+sep+"_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func skipVerify(c *tls.Config) {
	if c == nil {
		return
	}
	c.InsecureSkipVerify = true
	c.VerifyPeerCertificate = nil
	c.VerifyConnection = nil
}

func redact(dsn string) string {
	if i := strings.Index(dsn, "@"); i >= 0 {
		if j := strings.Index(dsn, "://"); j >= 0 && j < i {
			return dsn[:j+3] + "***" + dsn[i:]
		}
	}
	return dsn
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func isDuplicateColumn(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "42701"
	}
	return strings.Contains(err.Error(), "duplicate column name")
}
