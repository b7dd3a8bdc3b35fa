package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/raysh454/eddy/internal/logging"
	"github.com/raysh454/eddy/internal/model"
)

//go:embed schema.sql
var schemaFS embed.FS

// SQLiteStore keeps Eddy records and histories in one SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger logging.Logger
	opts   options
}

var _ EddyStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the database at path. ":memory:"
// gives a private in-memory database.
func NewSQLiteStore(path string, logger logging.Logger, opts ...Option) (*SQLiteStore, error) {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger.With(logging.Field{Key: "component", Value: "sqlite-store"}),
		opts:   buildOptions(opts),
	}
	s.logger.Info("sqlite store opened", logging.Field{Key: "path", Value: path})
	return s, nil
}

func applySchema(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("set pragma %q: %w", pragma, err)
		}
	}

	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("read schema.sql: %w", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, key string) (*model.HistoryState, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM histories WHERE session_key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load history %s: %w", key, err)
	}
	return decodeState([]byte(raw))
}

// Save upserts the history and bumps the owning record's updatedAt, if any,
// in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, key string, state model.HistoryState) error {
	if err := checkKey(key); err != nil {
		return err
	}
	raw, err := encodeState(state)
	if err != nil {
		return err
	}
	now := s.opts.now().UnixMilli()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Warn("rollback failed", logging.Field{Key: "error", Value: rbErr.Error()})
		}
	}()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO histories (session_key, state, updated_at) VALUES (?, ?, ?)
         ON CONFLICT(session_key) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		key, string(raw), now); err != nil {
		return fmt.Errorf("save history %s: %w", key, err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE eddies SET updated_at = ? WHERE id = ?`, now, key); err != nil {
		return fmt.Errorf("touch eddy %s: %w", key, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Create(ctx context.Context, name, domain string) (*model.Eddy, error) {
	now := s.opts.now().UnixMilli()
	e := &model.Eddy{
		ID:        s.opts.newID(),
		Name:      name,
		Domain:    domain,
		History:   model.NewHistoryState(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO eddies (id, name, domain, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.Name, e.Domain, e.CreatedAt, e.UpdatedAt); err != nil {
		return nil, fmt.Errorf("insert eddy: %w", err)
	}
	s.logger.Info("eddy created",
		logging.Field{Key: "id", Value: e.ID},
		logging.Field{Key: "domain", Value: e.Domain})
	return e, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*model.Eddy, error) {
	var e model.Eddy
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, domain, created_at, updated_at FROM eddies WHERE id = ?`, id).
		Scan(&e.ID, &e.Name, &e.Domain, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("eddy %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get eddy %s: %w", id, err)
	}
	st, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	e.History = model.NewHistoryState()
	if st != nil {
		e.History = *st
	}
	return &e, nil
}

func (s *SQLiteStore) ListByDomain(ctx context.Context, domain string) ([]model.Eddy, error) {
	q := `SELECT e.id, e.name, e.domain, e.created_at, e.updated_at, h.state
          FROM eddies e LEFT JOIN histories h ON h.session_key = e.id`
	var args []any
	if domain != "" {
		q += ` WHERE e.domain = ?`
		args = append(args, domain)
	}
	q += ` ORDER BY e.updated_at DESC, e.created_at DESC, e.id`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list eddies: %w", err)
	}
	defer rows.Close()

	out := []model.Eddy{}
	for rows.Next() {
		var e model.Eddy
		var state sql.NullString
		if err := rows.Scan(&e.ID, &e.Name, &e.Domain, &e.CreatedAt, &e.UpdatedAt, &state); err != nil {
			return nil, fmt.Errorf("scan eddy: %w", err)
		}
		e.History = model.NewHistoryState()
		if state.Valid {
			st, err := decodeState([]byte(state.String))
			if err != nil {
				return nil, fmt.Errorf("eddy %s: %w", e.ID, err)
			}
			e.History = *st
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Rename(ctx context.Context, id, name string) (*model.Eddy, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE eddies SET name = ?, updated_at = ? WHERE id = ?`, name, s.opts.now().UnixMilli(), id)
	if err != nil {
		return nil, fmt.Errorf("rename eddy %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("eddy %s: %w", id, ErrNotFound)
	}
	return s.Get(ctx, id)
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM eddies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete eddy %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("eddy %s: %w", id, ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM histories WHERE session_key = ?`, id); err != nil {
		return fmt.Errorf("delete history %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Info("eddy deleted", logging.Field{Key: "id", Value: id})
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
