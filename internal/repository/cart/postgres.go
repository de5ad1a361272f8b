package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/db"
	"storefront/internal/domain"
	"storefront/internal/logger"
)

const pgForeignKeyViolation = "23503"

type postgresRepo struct {
	db     db.DBTX
	logger *zap.Logger
}

func NewPostgres(conn db.DBTX, l *zap.Logger) Repository {
	return &postgresRepo{db: conn, logger: logger.OrNop(l).Named("cart_repo")}
}

func (r *postgresRepo) GetOrCreateByOwner(ctx context.Context, ownerID string) (*domain.Cart, error) {
	const q = `
INSERT INTO carts (owner_id)
VALUES ($1)
ON CONFLICT (owner_id) DO UPDATE SET owner_id = EXCLUDED.owner_id
RETURNING id
`
	cart := domain.Cart{OwnerID: ownerID, Items: []domain.CartItem{}}
	if err := r.db.QueryRow(ctx, q, ownerID).Scan(&cart.ID); err != nil {
		r.logger.Error("get or create", zap.String("owner", ownerID), zap.Error(err))
		return nil, err
	}

	const linesQuery = `
SELECT ci.item_id, ci.count, i.title, i.description, i.img_path, i.price::text, i.created_at
FROM cart_items ci
JOIN items i ON i.id = ci.item_id
WHERE ci.cart_id = $1
ORDER BY ci.added_at ASC, ci.item_id ASC
`
	rows, err := r.db.Query(ctx, linesQuery, cart.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			line  domain.CartItem
			price string
		)
		if err := rows.Scan(
			&line.ItemID,
			&line.Count,
			&line.Item.Title,
			&line.Item.Description,
			&line.Item.ImgPath,
			&price,
			&line.Item.CreatedAt,
		); err != nil {
			return nil, err
		}
		p, err := decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("cart %d item %d: parse price: %w", cart.ID, line.ItemID, err)
		}
		line.CartID = cart.ID
		line.Item.ID = line.ItemID
		line.Item.Price = p
		cart.Items = append(cart.Items, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *postgresRepo) IncrementItem(ctx context.Context, cartID, itemID int64) error {
	const q = `
INSERT INTO cart_items (cart_id, item_id, count)
VALUES ($1, $2, 1)
ON CONFLICT (cart_id, item_id) DO UPDATE SET count = cart_items.count + 1
`
	if _, err := r.db.Exec(ctx, q, cartID, itemID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return domain.ErrItemNotFound
		}
		r.logger.Error("increment", zap.Int64("cart", cartID), zap.Int64("item", itemID), zap.Error(err))
		return err
	}
	return nil
}

func (r *postgresRepo) DecrementItem(ctx context.Context, cartID, itemID int64) error {
	return db.WithinTx(ctx, r.db, func(tx pgx.Tx) error {
		var count int
		err := tx.QueryRow(ctx, `
SELECT count
FROM cart_items
WHERE cart_id = $1 AND item_id = $2
FOR UPDATE
`, cartID, itemID).Scan(&count)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}

		if count <= 1 {
			_, err = tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1 AND item_id = $2`, cartID, itemID)
		} else {
			_, err = tx.Exec(ctx, `UPDATE cart_items SET count = count - 1 WHERE cart_id = $1 AND item_id = $2`, cartID, itemID)
		}
		return err
	})
}

func (r *postgresRepo) DeleteItem(ctx context.Context, cartID, itemID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1 AND item_id = $2`, cartID, itemID)
	return err
}

func (r *postgresRepo) Clear(ctx context.Context, cartID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	if err != nil {
		return err
	}
	r.logger.Debug("cleared", zap.Int64("cart", cartID), zap.Int64("rows", tag.RowsAffected()))
	return nil
}

func (r *postgresRepo) RemoveCounts(ctx context.Context, cartID int64, counts map[int64]int) error {
	if len(counts) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for itemID, n := range counts {
		batch.Queue(`DELETE FROM cart_items WHERE cart_id = $1 AND item_id = $2 AND count <= $3`, cartID, itemID, n)
		batch.Queue(`UPDATE cart_items SET count = count - $3 WHERE cart_id = $1 AND item_id = $2 AND count > $3`, cartID, itemID, n)
	}
	if err := r.db.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	r.logger.Debug("removed counts", zap.Int64("cart", cartID), zap.Int("lines", len(counts)))
	return nil
}
