package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps every document in one jsonb table keyed by path.
// Transactions run at SERIALIZABLE isolation; the database detects
// read-write conflicts and the store reruns the transaction function on
// serialization failures, which realizes the same optimistic contract as
// the in-memory store.
type PostgresStore struct {
	pool *pgxpool.Pool
	opts options
}

// NewPostgresStore wraps an existing connection pool.
func NewPostgresStore(pool *pgxpool.Pool, opts ...Option) *PostgresStore {
	return &PostgresStore{pool: pool, opts: buildOptions(opts)}
}

// EnsureSchema creates the documents table if it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			path    TEXT PRIMARY KEY,
			body    JSONB NOT NULL,
			version BIGINT NOT NULL DEFAULT 1
		)`)
	if err != nil {
		return pgErr("ensure schema", err)
	}
	return nil
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, path string, dst any) error {
	var body []byte
	err := s.pool.QueryRow(ctx,
		`SELECT body FROM documents WHERE path = $1`, path,
	).Scan(&body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return pgErr("get "+path, err)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// List implements Store. Only documents directly under the prefix are
// returned; sub-collection documents have a deeper path and are filtered
// out by the second pattern.
func (s *PostgresStore) List(ctx context.Context, prefix string) ([]Doc, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT path, body FROM documents
		 WHERE path LIKE $1 || '/%' AND path NOT LIKE $1 || '/%/%'`,
		prefix,
	)
	if err != nil {
		return nil, pgErr("list "+prefix, err)
	}
	defer rows.Close()

	var docs []Doc
	for rows.Next() {
		var d Doc
		if err := rows.Scan(&d.Path, &d.Body); err != nil {
			return nil, pgErr("scan "+prefix, err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, pgErr("list "+prefix, err)
	}
	return docs, nil
}

// RunTransaction implements Store.
func (s *PostgresStore) RunTransaction(ctx context.Context, fn func(tx Tx) error) error {
	for attempt := 1; attempt <= s.opts.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if attempt > 1 && s.opts.onRerun != nil {
			s.opts.onRerun()
		}

		err := s.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if !isSerializationFailure(err) {
			return err
		}
	}
	return ErrConflictExhausted
}

func (s *PostgresStore) runOnce(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return pgErr("begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ptx := &pgTx{ctx: ctx, tx: tx}
	if err := fn(ptx); err != nil {
		return err
	}

	for _, w := range ptx.writes {
		if w.create {
			_, err = tx.Exec(ctx,
				`INSERT INTO documents (path, body) VALUES ($1, $2)`,
				w.path, w.body)
		} else {
			var ct pgconn.CommandTag
			ct, err = tx.Exec(ctx,
				`UPDATE documents SET body = $2, version = version + 1 WHERE path = $1`,
				w.path, w.body)
			if err == nil && ct.RowsAffected() == 0 {
				// Concurrently deleted since our read; rerun.
				return errConcurrentDelete
			}
		}
		if err != nil {
			return pgErr("write "+w.path, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return pgErr("commit", err)
	}
	return nil
}

// Delete implements Store.
func (s *PostgresStore) Delete(ctx context.Context, path string) error {
	ct, err := s.pool.Exec(ctx,
		`DELETE FROM documents WHERE path = $1 OR path LIKE $1 || '/%'`, path)
	if err != nil {
		return pgErr("delete "+path, err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AddMember implements Store. A single UPDATE keeps the operation atomic;
// the WHERE clause makes it a no-op when the member is already present.
func (s *PostgresStore) AddMember(ctx context.Context, path, field, member string) error {
	ct, err := s.pool.Exec(ctx, `
		UPDATE documents
		SET body = jsonb_set(body, ARRAY[$2],
			COALESCE(body -> $2, '[]'::jsonb) || to_jsonb($3::text)),
		    version = version + 1
		WHERE path = $1
		  AND NOT COALESCE(body -> $2, '[]'::jsonb) @> to_jsonb(ARRAY[$3::text])`,
		path, field, member)
	if err != nil {
		return pgErr("add member "+path, err)
	}
	if ct.RowsAffected() == 0 {
		return s.exists(ctx, path)
	}
	return nil
}

// RemoveMember implements Store.
func (s *PostgresStore) RemoveMember(ctx context.Context, path, field, member string) error {
	ct, err := s.pool.Exec(ctx, `
		UPDATE documents
		SET body = jsonb_set(body, ARRAY[$2],
			COALESCE(body -> $2, '[]'::jsonb) - $3::text),
		    version = version + 1
		WHERE path = $1
		  AND COALESCE(body -> $2, '[]'::jsonb) @> to_jsonb(ARRAY[$3::text])`,
		path, field, member)
	if err != nil {
		return pgErr("remove member "+path, err)
	}
	if ct.RowsAffected() == 0 {
		return s.exists(ctx, path)
	}
	return nil
}

// exists distinguishes "no-op" from "no such document" after an UPDATE that
// affected zero rows.
func (s *PostgresStore) exists(ctx context.Context, path string) error {
	var one int
	err := s.pool.QueryRow(ctx,
		`SELECT 1 FROM documents WHERE path = $1`, path).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return pgErr("check "+path, err)
	}
	return nil
}

type pgTx struct {
	ctx    context.Context
	tx     pgx.Tx
	writes []stagedWrite
}

func (t *pgTx) Get(path string, dst any) error {
	if len(t.writes) > 0 {
		return ErrReadAfterWrite
	}
	var body []byte
	err := t.tx.QueryRow(t.ctx,
		`SELECT body FROM documents WHERE path = $1`, path,
	).Scan(&body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return pgErr("tx get "+path, err)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (t *pgTx) Create(path string, v any) error {
	return t.stage(path, v, true)
}

func (t *pgTx) Update(path string, v any) error {
	return t.stage(path, v, false)
}

func (t *pgTx) stage(path string, v any, create bool) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	t.writes = append(t.writes, stagedWrite{path: path, body: body, create: create})
	return nil
}

// errConcurrentDelete forces a rerun when an update target vanished between
// the transactional read and the write flush.
var errConcurrentDelete = errors.New("document deleted concurrently")

// Postgres error codes treated as transaction conflicts: serialization
// failure, deadlock, and unique violation (two transactions racing the same
// create commit).
func isSerializationFailure(err error) bool {
	if errors.Is(err, errConcurrentDelete) {
		return true
	}
	var code *pgconn.PgError
	if errors.As(err, &code) {
		return code.Code == "40001" || code.Code == "40P01" || code.Code == "23505"
	}
	return false
}

// pgErr wraps driver failures, folding connection-level faults into
// ErrUnavailable so callers can classify them as transient.
func pgErr(op string, err error) error {
	var code *pgconn.PgError
	if errors.As(err, &code) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w (%v)", op, ErrUnavailable, err)
}
