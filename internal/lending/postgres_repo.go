package lending

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const recordColumns = `id, email, book_id, extra, created_at`

// uniqueViolation is the Postgres error code raised by the unique
// (email, book_id) index backing the duplicate-borrow invariant.
const uniqueViolation = "23505"

type PostgresRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, timeout: timeout}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	var extraRaw []byte
	if err := row.Scan(&rec.ID, &rec.Email, &rec.BookID, &extraRaw, &rec.CreatedAt); err != nil {
		return Record{}, err
	}
	if len(extraRaw) > 0 {
		var extra map[string]any
		if err := json.Unmarshal(extraRaw, &extra); err != nil {
			return Record{}, err
		}
		if len(extra) > 0 {
			rec.Extra = extra
		}
	}
	return rec, nil
}

func (r *PostgresRepo) collectRecords(ctx context.Context, sql string, args ...any) ([]Record, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	rows, err := r.db.Query(timeoutCtx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) ListAll(ctx context.Context) ([]Record, error) {
	query := fmt.Sprintf(`SELECT %s FROM borrow_records ORDER BY created_at, id`, recordColumns)
	return r.collectRecords(ctx, query)
}

func (r *PostgresRepo) ListByEmail(ctx context.Context, email string) ([]Record, error) {
	query := fmt.Sprintf(`SELECT %s FROM borrow_records WHERE email = $1 ORDER BY created_at, id`, recordColumns)
	return r.collectRecords(ctx, query, email)
}

func (r *PostgresRepo) CountByEmail(ctx context.Context, email string) (int, error) {
	const query = `SELECT COUNT(*) FROM borrow_records WHERE email = $1`
	var count int
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	if err := r.db.QueryRow(timeoutCtx, query, email).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PostgresRepo) FindByEmailAndBook(ctx context.Context, email, bookID string) (Record, error) {
	query := fmt.Sprintf(`SELECT %s FROM borrow_records WHERE email = $1 AND book_id = $2 LIMIT 1`, recordColumns)
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	rec, err := scanRecord(r.db.QueryRow(timeoutCtx, query, email, bookID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

// Insert writes a borrow record while holding a transaction-scoped advisory
// lock keyed on the email. The lock serializes inserts per user, so the
// count guard below cannot be outrun by a concurrent insert for the same
// email; the unique (email, book_id) index rejects duplicates. The loser of
// a race gets ErrCapExceeded or ErrDuplicateBorrow, same as the service
// pre-checks.
func (r *PostgresRepo) Insert(ctx context.Context, rec Record) (Record, error) {
	extraRaw, err := marshalExtra(rec.Extra)
	if err != nil {
		return Record{}, err
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.Begin(timeoutCtx)
	if err != nil {
		return Record{}, err
	}
	defer tx.Rollback(timeoutCtx)

	const lockQuery = `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`
	if _, err := tx.Exec(timeoutCtx, lockQuery, rec.Email); err != nil {
		return Record{}, err
	}

	const query = `
		INSERT INTO borrow_records (email, book_id, extra)
		SELECT $1, $2, $3
		WHERE (SELECT COUNT(*) FROM borrow_records WHERE email = $1) < $4
		RETURNING id, created_at`
	err = tx.QueryRow(timeoutCtx, query, rec.Email, rec.BookID, extraRaw, MaxActiveBorrows).
		Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrCapExceeded
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Record{}, ErrDuplicateBorrow
		}
		return Record{}, err
	}
	if err := tx.Commit(timeoutCtx); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (r *PostgresRepo) DeleteByID(ctx context.Context, id string) (int64, error) {
	if _, err := uuid.Parse(id); err != nil {
		return 0, ErrMalformedID
	}

	const query = `DELETE FROM borrow_records WHERE id = $1`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	tag, err := r.db.Exec(timeoutCtx, query, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func marshalExtra(extra map[string]any) ([]byte, error) {
	if len(extra) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(extra)
}
