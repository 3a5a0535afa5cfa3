// Package store implements the PostgreSQL storage layer behind the import
// and export pipelines using pgx connection pooling.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/stockcsv/internal/core"
)

// Store wraps a pgx pool and satisfies core.Store.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store over the given pool. The pool is owned by the caller.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// CategoryIDs returns the set of all category identifiers.
func (s *Store) CategoryIDs(ctx context.Context) (map[int64]struct{}, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM categories`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	ids := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan category id: %w", err)
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// ExistingStockIDs reports which of the given identifiers currently exist.
func (s *Store) ExistingStockIDs(ctx context.Context, ids []int64) (map[int64]struct{}, error) {
	existing := make(map[int64]struct{}, len(ids))
	if len(ids) == 0 {
		return existing, nil
	}

	rows, err := s.pool.Query(ctx, `SELECT id FROM stocks WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("query existing stock ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan stock id: %w", err)
		}
		existing[id] = struct{}{}
	}
	return existing, rows.Err()
}

// sortColumns maps query sort fields to real column names. Anything outside
// this map falls back to id so user input never reaches the ORDER BY clause
// unchecked.
var sortColumns = map[string]string{
	"id":         "id",
	"name":       "name",
	"inventory":  "inventory",
	"price":      "price",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

// ListStocks fetches one page of stock rows matching the query. Results are
// always tie-broken by ascending id so offset pagination is stable.
func (s *Store) ListStocks(ctx context.Context, q core.StockQuery) ([]core.Stock, error) {
	var (
		where []string
		args  []any
	)
	if q.Keyword != "" {
		args = append(args, "%"+q.Keyword+"%")
		where = append(where, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	if q.CategoryID != nil {
		args = append(args, *q.CategoryID)
		where = append(where, fmt.Sprintf("category_id = $%d", len(args)))
	}

	sql := `SELECT id, name, inventory, category_id, price, description, created_at, updated_at FROM stocks`
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}

	col, ok := sortColumns[q.Sort.Field]
	if !ok {
		col = "id"
	}
	dir := "ASC"
	if q.Sort.Desc {
		dir = "DESC"
	}
	sql += fmt.Sprintf(" ORDER BY %s %s, id ASC", col, dir)

	args = append(args, q.Limit)
	sql += fmt.Sprintf(" LIMIT $%d", len(args))
	args = append(args, q.Offset)
	sql += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query stocks: %w", err)
	}
	defer rows.Close()

	var out []core.Stock
	for rows.Next() {
		var (
			st         core.Stock
			categoryID pgtype.Int8
			price      pgtype.Float8
			desc       pgtype.Text
			createdAt  pgtype.Timestamptz
			updatedAt  pgtype.Timestamptz
		)
		if err := rows.Scan(&st.ID, &st.Name, &st.Inventory, &categoryID, &price, &desc, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan stock row: %w", err)
		}
		if categoryID.Valid {
			v := categoryID.Int64
			st.CategoryID = &v
		}
		if price.Valid {
			v := price.Float64
			st.Price = &v
		}
		if desc.Valid {
			st.Description = desc.String
		}
		if createdAt.Valid {
			st.CreatedAt = createdAt.Time
		}
		if updatedAt.Valid {
			st.UpdatedAt = updatedAt.Time
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// ApplyBatch applies one batch of operations inside a single transaction.
// An update whose target row vanished since the existence check falls back
// to an insert with the same id, so a stale snapshot never loses a row.
func (s *Store) ApplyBatch(ctx context.Context, ops []core.StockOp) (created, updated int, err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("begin batch transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	now := time.Now().UTC()
	explicitID := false

	for _, op := range ops {
		row := op.Row

		if op.Kind == core.OpUpdate && row.ID != nil {
			tag, uerr := tx.Exec(ctx, `
				UPDATE stocks
				SET name = $2,
				    inventory = $3,
				    category_id = $4,
				    price = $5,
				    description = $6,
				    created_at = COALESCE($7, created_at),
				    updated_at = $8
				WHERE id = $1`,
				*row.ID, row.Name, row.Inventory,
				pgInt8(row.CategoryID), pgFloat8(row.Price), pgText(row.Description),
				pgTimestamp(row.CreatedAt), now,
			)
			if uerr != nil {
				return 0, 0, fmt.Errorf("update stock %d: %w", *row.ID, uerr)
			}
			if tag.RowsAffected() > 0 {
				updated++
				continue
			}
			// Row disappeared between snapshot and write: create it instead.
		}

		createdAt := now
		if row.CreatedAt != nil {
			createdAt = *row.CreatedAt
		}

		if row.ID != nil {
			explicitID = true
			_, ierr := tx.Exec(ctx, `
				INSERT INTO stocks (id, name, inventory, category_id, price, description, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				*row.ID, row.Name, row.Inventory,
				pgInt8(row.CategoryID), pgFloat8(row.Price), pgText(row.Description),
				createdAt, now,
			)
			if ierr != nil {
				return 0, 0, fmt.Errorf("insert stock %d: %w", *row.ID, ierr)
			}
		} else {
			_, ierr := tx.Exec(ctx, `
				INSERT INTO stocks (name, inventory, category_id, price, description, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				row.Name, row.Inventory,
				pgInt8(row.CategoryID), pgFloat8(row.Price), pgText(row.Description),
				createdAt, now,
			)
			if ierr != nil {
				return 0, 0, fmt.Errorf("insert stock %q: %w", row.Name, ierr)
			}
		}
		created++
	}

	// Explicit-id inserts bypass the sequence; realign it so later
	// default-id inserts do not collide.
	if explicitID {
		if _, err := tx.Exec(ctx,
			`SELECT setval(pg_get_serial_sequence('stocks', 'id'), (SELECT COALESCE(MAX(id), 1) FROM stocks))`,
		); err != nil {
			return 0, 0, fmt.Errorf("realign stocks id sequence: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, fmt.Errorf("commit batch: %w", err)
	}
	return created, updated, nil
}

func pgInt8(v *int64) pgtype.Int8 {
	if v == nil {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: *v, Valid: true}
}

func pgFloat8(v *float64) pgtype.Float8 {
	if v == nil {
		return pgtype.Float8{}
	}
	return pgtype.Float8{Float64: *v, Valid: true}
}

func pgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func pgTimestamp(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}
