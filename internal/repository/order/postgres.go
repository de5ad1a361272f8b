package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
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
	return &postgresRepo{db: conn, logger: logger.OrNop(l).Named("order_repo")}
}

func (r *postgresRepo) Create(ctx context.Context, order domain.Order) (*domain.Order, error) {
	var checkoutKey *uuid.UUID
	if order.CheckoutKey != "" {
		k, err := uuid.Parse(order.CheckoutKey)
		if err != nil {
			return nil, fmt.Errorf("order checkout key: %w", err)
		}
		checkoutKey = &k
	}

	err := db.WithinTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `
INSERT INTO orders (owner_id, checkout_key, total)
VALUES ($1, $2, $3::numeric)
RETURNING id, created_at
`, order.OwnerID, checkoutKey, order.Total.String()).Scan(&order.ID, &order.CreatedAt); err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for i := range order.Items {
			order.Items[i].OrderID = order.ID
			it := order.Items[i]
			batch.Queue(`
INSERT INTO order_items (order_id, item_id, count, title, description, img_path, price)
VALUES ($1, $2, $3, $4, $5, $6, $7::numeric)
`, order.ID, it.ItemID, it.Count, it.Title, it.Description, it.ImgPath, it.Price.String())
		}
		if batch.Len() == 0 {
			return nil
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		r.logger.Error("create", zap.String("owner", order.OwnerID), zap.Error(err))
		return nil, err
	}
	if order.Items == nil {
		order.Items = []domain.OrderItem{}
	}
	r.logger.Info("order created",
		zap.Int64("order", order.ID),
		zap.String("owner", order.OwnerID),
		zap.String("total", order.Total.String()),
		zap.Int("items", len(order.Items)),
	)
	return &order, nil
}

const orderColumns = `id, owner_id, COALESCE(checkout_key::text, ''), total::text, created_at`

func (r *postgresRepo) ListByOwner(ctx context.Context, ownerID string) ([]domain.Order, error) {
	rows, err := r.db.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE owner_id = $1 ORDER BY id DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []domain.Order{}
	index := map[int64]int{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		index[o.ID] = len(orders)
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		o := &orders[index[it.OrderID]]
		o.Items = append(o.Items, it)
	}
	return orders, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

func (r *postgresRepo) GetByCheckoutKey(ctx context.Context, key string) (*domain.Order, error) {
	k, err := uuid.Parse(key)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE checkout_key = $1`, k)
}

func (r *postgresRepo) getOne(ctx context.Context, q string, arg any) (*domain.Order, error) {
	o, err := scanOrder(r.db.QueryRow(ctx, q, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	items, err := r.loadItems(ctx, []int64{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = append(o.Items, items...)
	return o, nil
}

func (r *postgresRepo) loadItems(ctx context.Context, orderIDs []int64) ([]domain.OrderItem, error) {
	rows, err := r.db.Query(ctx, `
SELECT order_id, item_id, count, title, description, img_path, price::text
FROM order_items
WHERE order_id = ANY($1)
ORDER BY order_id, item_id
`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var (
			it    domain.OrderItem
			price string
		)
		if err := rows.Scan(&it.OrderID, &it.ItemID, &it.Count, &it.Title, &it.Description, &it.ImgPath, &price); err != nil {
			return nil, err
		}
		if it.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("order %d item %d: parse price: %w", it.OrderID, it.ItemID, err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o     domain.Order
		total string
	)
	if err := row.Scan(&o.ID, &o.OwnerID, &o.CheckoutKey, &total, &o.CreatedAt); err != nil {
		return nil, err
	}
	t, err := decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("order %d: parse total: %w", o.ID, err)
	}
	o.Total = t
	o.Items = []domain.OrderItem{}
	return &o, nil
}
