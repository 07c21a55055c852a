package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const bookColumns = `id, COALESCE(category, ''), rating, extra, created_at, updated_at`

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

func scanBook(row pgx.Row) (Book, error) {
	var b Book
	var extraRaw []byte
	if err := row.Scan(&b.ID, &b.Category, &b.Rating, &extraRaw, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return Book{}, err
	}
	if len(extraRaw) > 0 {
		var extra map[string]any
		if err := json.Unmarshal(extraRaw, &extra); err != nil {
			return Book{}, err
		}
		if len(extra) > 0 {
			b.Extra = extra
		}
	}
	return b, nil
}

func (r *PostgresRepo) collectBooks(ctx context.Context, sql string, args ...any) ([]Book, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	rows, err := r.db.Query(timeoutCtx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) List(ctx context.Context, q Query) ([]Book, int, error) {
	clauses := []string{"1=1"}
	args := []any{}
	argn := 1

	if q.Category != "" {
		clauses = append(clauses, fmt.Sprintf("category = $%d", argn))
		args = append(args, q.Category)
		argn++
	}

	where := "WHERE " + strings.Join(clauses, " AND ")

	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM books %s", where)
	var total int
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	if err := r.db.QueryRow(timeoutCtx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataSQL := fmt.Sprintf(`
		SELECT %s
		FROM books
		%s
		ORDER BY created_at, id
		LIMIT $%d OFFSET $%d`,
		bookColumns, where, argn, argn+1)

	argsWithPage := append([]any{}, args...)
	argsWithPage = append(argsWithPage, q.Limit, q.Offset)
	books, err := r.collectBooks(ctx, dataSQL, argsWithPage...)
	if err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Book, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Book{}, ErrMalformedID
	}

	query := fmt.Sprintf(`SELECT %s FROM books WHERE id = $1 LIMIT 1`, bookColumns)
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	b, err := scanBook(r.db.QueryRow(timeoutCtx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Book{}, ErrNotFound
		}
		return Book{}, err
	}
	return b, nil
}

func (r *PostgresRepo) GetByIDs(ctx context.Context, ids []string) ([]Book, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM books WHERE id = ANY($1::uuid[])`, bookColumns)
	return r.collectBooks(ctx, query, valid)
}

func (r *PostgresRepo) TopRated(ctx context.Context, n int) ([]Book, error) {
	// Tie-break on id keeps the order stable within a query; across queries
	// it is store-native and carries no meaning.
	query := fmt.Sprintf(`
		SELECT %s
		FROM books
		ORDER BY rating DESC NULLS LAST, id
		LIMIT $1`, bookColumns)
	return r.collectBooks(ctx, query, n)
}

func (r *PostgresRepo) Insert(ctx context.Context, b Book) (Book, error) {
	extraRaw, err := marshalExtra(b.Extra)
	if err != nil {
		return Book{}, err
	}

	const query = `
		INSERT INTO books (category, rating, extra)
		VALUES (NULLIF($1, ''), $2, $3)
		RETURNING id, created_at, updated_at`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	if err := r.db.QueryRow(timeoutCtx, query, b.Category, b.Rating, extraRaw).
		Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return Book{}, err
	}
	return b, nil
}

// Update merges only the fields present in patch. category and rating are
// typed columns when the patch value matches their type; every other key
// merges into the extra document.
func (r *PostgresRepo) Update(ctx context.Context, id string, patch map[string]any) (int64, error) {
	if _, err := uuid.Parse(id); err != nil {
		return 0, ErrMalformedID
	}

	sets := []string{"updated_at = now()"}
	args := []any{}
	argn := 1
	extras := make(map[string]any)

	for k, v := range patch {
		switch k {
		case "id", "created_at", "updated_at":
			// store-managed
		case "category":
			if s, ok := v.(string); ok {
				sets = append(sets, fmt.Sprintf("category = NULLIF($%d, '')", argn))
				args = append(args, s)
				argn++
			} else {
				extras[k] = v
			}
		case "rating":
			if f, ok := v.(float64); ok {
				sets = append(sets, fmt.Sprintf("rating = $%d", argn))
				args = append(args, f)
				argn++
			} else {
				extras[k] = v
			}
		default:
			extras[k] = v
		}
	}

	if len(extras) > 0 {
		extraRaw, err := json.Marshal(extras)
		if err != nil {
			return 0, err
		}
		sets = append(sets, fmt.Sprintf("extra = extra || $%d::jsonb", argn))
		args = append(args, extraRaw)
		argn++
	}

	query := fmt.Sprintf("UPDATE books SET %s WHERE id = $%d", strings.Join(sets, ", "), argn)
	args = append(args, id)

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	tag, err := r.db.Exec(timeoutCtx, query, args...)
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
