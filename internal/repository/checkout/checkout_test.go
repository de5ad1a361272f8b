package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	cartrepo "storefront/internal/repository/cart"
	itemrepo "storefront/internal/repository/item"
	"storefront/internal/repository/pgtest"
)

func TestPostgres_AttemptLifecycle(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Pool(t)
	carts := cartrepo.NewPostgres(pool, nil)
	repo := NewPostgres(pool, nil)

	lamp, err := itemrepo.NewPostgres(pool, nil).Upsert(ctx, domain.Item{Title: "Lamp", Price: decimal.NewFromInt(10)})
	require.NoError(t, err)
	cart, err := carts.GetOrCreateByOwner(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, carts.IncrementItem(ctx, cart.ID, lamp.ID))
	require.NoError(t, carts.IncrementItem(ctx, cart.ID, lamp.ID))
	cart, err = carts.GetOrCreateByOwner(ctx, "alice")
	require.NoError(t, err)

	attempt := domain.CheckoutAttempt{
		Key:     uuid.NewString(),
		OwnerID: "alice",
		CartID:  cart.ID,
		Amount:  cart.Total(),
		Lines:   domain.LinesFromCart(*cart),
		State:   domain.CheckoutPending,
	}
	require.NoError(t, repo.Create(ctx, attempt))

	second := attempt
	second.Key = uuid.NewString()
	require.ErrorIs(t, repo.Create(ctx, second), domain.ErrCheckoutInProgress)

	_, err = repo.Commit(ctx, attempt.Key)
	require.ErrorIs(t, err, domain.ErrCheckoutStateChanged)

	require.NoError(t, repo.Transition(ctx, attempt.Key, domain.CheckoutPending, domain.CheckoutDebited, "pay-1", ""))
	// a unit added after the snapshot is neither charged nor ordered, so it stays in the cart
	require.NoError(t, carts.IncrementItem(ctx, cart.ID, lamp.ID))
	require.ErrorIs(t, repo.Transition(ctx, attempt.Key, domain.CheckoutPending, domain.CheckoutFailed, "", "late"), domain.ErrCheckoutStateChanged)

	stale, err := repo.ListStale(ctx, time.Now().Add(time.Minute), domain.CheckoutDebited)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "pay-1", stale[0].PaymentID)
	require.Len(t, stale[0].Lines, 1)
	assert.Equal(t, 2, stale[0].Lines[0].Count)

	order, err := repo.Commit(ctx, attempt.Key)
	require.NoError(t, err)
	assert.True(t, order.Total.Equal(decimal.NewFromInt(20)))
	require.Len(t, order.Items, 1)
	assert.Equal(t, 2, order.Items[0].Count)

	again, err := repo.Commit(ctx, attempt.Key)
	require.NoError(t, err)
	assert.Equal(t, order.ID, again.ID)

	got, err := repo.Get(ctx, attempt.Key)
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutCommitted, got.State)

	cart, err = carts.GetOrCreateByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 1, cart.Items[0].Count)

	// the cart is free for a new checkout once the previous one is final
	require.NoError(t, repo.Create(ctx, second))
}
