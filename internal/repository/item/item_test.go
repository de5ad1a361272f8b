package item

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/repository/pgtest"
)

func TestLikePattern(t *testing.T) {
	assert.Equal(t, "", likePattern(""))
	assert.Equal(t, "%lamp%", likePattern("lamp"))
	assert.Equal(t, `%50\%\_off\\%`, likePattern(`50%_off\`))
}

func TestOrderBy(t *testing.T) {
	assert.Equal(t, "title ASC, id ASC", orderBy(domain.SortAlpha))
	assert.Equal(t, "price ASC, id ASC", orderBy(domain.SortPrice))
	assert.Equal(t, "id ASC", orderBy(domain.SortNone))
}

func TestPostgres_CountListGet(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Pool(t)
	repo := NewPostgres(pool, nil)

	seed := []domain.Item{
		{Title: "Desk Lamp", Description: "warm light", Price: decimal.RequireFromString("30.00")},
		{Title: "Armchair", Description: "soft", Price: decimal.RequireFromString("120.50")},
		{Title: "Bulb", Description: "spare for a LAMP", Price: decimal.RequireFromString("2.25")},
	}
	var ids []int64
	for _, it := range seed {
		saved, err := repo.Upsert(ctx, it)
		require.NoError(t, err)
		ids = append(ids, saved.ID)
	}

	total, err := repo.Count(ctx, "")
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)

	matched, err := repo.Count(ctx, "lamp")
	require.NoError(t, err)
	assert.EqualValues(t, 2, matched)

	alpha, err := repo.List(ctx, "", domain.SortAlpha, 0, 10)
	require.NoError(t, err)
	require.Len(t, alpha, 3)
	assert.Equal(t, []string{"Armchair", "Bulb", "Desk Lamp"}, []string{alpha[0].Title, alpha[1].Title, alpha[2].Title})

	byPrice, err := repo.List(ctx, "", domain.SortPrice, 1, 1)
	require.NoError(t, err)
	require.Len(t, byPrice, 1)
	assert.Equal(t, "Desk Lamp", byPrice[0].Title)
	assert.True(t, byPrice[0].Price.Equal(decimal.RequireFromString("30")))

	got, err := repo.GetByID(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, "Armchair", got.Title)

	_, err = repo.GetByID(ctx, 9999)
	require.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestPostgres_UpsertUpdatesByTitle(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Pool(t)
	repo := NewPostgres(pool, nil)

	first, err := repo.Upsert(ctx, domain.Item{Title: "Mug", Price: decimal.NewFromInt(5)})
	require.NoError(t, err)
	second, err := repo.Upsert(ctx, domain.Item{Title: "Mug", Description: "ceramic", Price: decimal.NewFromInt(7)})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "ceramic", second.Description)
	assert.True(t, second.Price.Equal(decimal.NewFromInt(7)))

	_, err = repo.Upsert(ctx, domain.Item{Title: "Broken", Price: decimal.NewFromInt(-1)})
	require.Error(t, err)
}
