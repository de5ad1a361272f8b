package item

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/db"
	"storefront/internal/domain"
	"storefront/internal/logger"
)

type postgresRepo struct {
	db     db.DBTX
	logger *zap.Logger
}

func NewPostgres(conn db.DBTX, l *zap.Logger) Repository {
	return &postgresRepo{db: conn, logger: logger.OrNop(l).Named("item_repo")}
}

const matchClause = `($1 = '' OR title ILIKE $2 OR description ILIKE $2)`

func (r *postgresRepo) Count(ctx context.Context, search string) (int64, error) {
	q := `SELECT count(*) FROM items WHERE ` + matchClause
	var n int64
	if err := r.db.QueryRow(ctx, q, search, likePattern(search)).Scan(&n); err != nil {
		r.logger.Error("count", zap.String("search", search), zap.Error(err))
		return 0, err
	}
	return n, nil
}

func (r *postgresRepo) List(ctx context.Context, search string, sort domain.Sort, offset, limit int) ([]domain.Item, error) {
	q := `
SELECT id, title, description, img_path, price::text, created_at
FROM items
WHERE ` + matchClause + `
ORDER BY ` + orderBy(sort) + `
OFFSET $3 LIMIT $4
`
	rows, err := r.db.Query(ctx, q, search, likePattern(search), offset, limit)
	if err != nil {
		r.logger.Error("list", zap.String("search", search), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var result []domain.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	r.logger.Debug("list",
		zap.String("search", search),
		zap.String("sort", string(sort)),
		zap.Int("offset", offset),
		zap.Int("limit", limit),
		zap.Int("count", len(result)),
	)
	return result, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id int64) (*domain.Item, error) {
	const q = `
SELECT id, title, description, img_path, price::text, created_at
FROM items
WHERE id = $1
`
	it, err := scanItem(r.db.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrItemNotFound
		}
		r.logger.Error("get", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return it, nil
}

// Upsert inserts the item or updates the one with the same title.
func (r *postgresRepo) Upsert(ctx context.Context, item domain.Item) (*domain.Item, error) {
	const q = `
INSERT INTO items (title, description, img_path, price)
VALUES ($1, $2, $3, $4::numeric)
ON CONFLICT (title) DO UPDATE SET
    description = EXCLUDED.description,
    img_path = EXCLUDED.img_path,
    price = EXCLUDED.price
RETURNING id, title, description, img_path, price::text, created_at
`
	if item.Price.IsNegative() {
		return nil, fmt.Errorf("item %q: price must not be negative", item.Title)
	}
	res, err := scanItem(r.db.QueryRow(ctx, q, item.Title, item.Description, item.ImgPath, item.Price.String()))
	if err != nil {
		r.logger.Error("upsert", zap.String("title", item.Title), zap.Error(err))
		return nil, err
	}
	r.logger.Debug("upserted", zap.Int64("id", res.ID), zap.String("title", res.Title))
	return res, nil
}

func scanItem(row pgx.Row) (*domain.Item, error) {
	var (
		it    domain.Item
		price string
	)
	if err := row.Scan(&it.ID, &it.Title, &it.Description, &it.ImgPath, &price, &it.CreatedAt); err != nil {
		return nil, err
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("item %d: parse price %q: %w", it.ID, price, err)
	}
	it.Price = p
	return &it, nil
}

func orderBy(sort domain.Sort) string {
	switch sort {
	case domain.SortAlpha:
		return "title ASC, id ASC"
	case domain.SortPrice:
		return "price ASC, id ASC"
	default:
		return "id ASC"
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(search string) string {
	if search == "" {
		return ""
	}
	return "%" + likeEscaper.Replace(search) + "%"
}
