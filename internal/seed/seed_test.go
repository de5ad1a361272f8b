package seed

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
)

type stubWriter struct {
	items []domain.Item
	err   error
}

func (s *stubWriter) Upsert(_ context.Context, item domain.Item) (*domain.Item, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.items = append(s.items, item)
	return &item, nil
}

func TestApplyUpsertsEveryItem(t *testing.T) {
	w := &stubWriter{}

	n, err := Apply(context.Background(), w)
	require.NoError(t, err)
	assert.Equal(t, len(demoItems), n)
	require.Len(t, w.items, len(demoItems))
	for _, it := range w.items {
		assert.NotEmpty(t, it.Title)
		assert.False(t, it.Price.IsNegative())
	}
}

func TestApplyStopsOnError(t *testing.T) {
	boom := errors.New("boom")

	n, err := Apply(context.Background(), &stubWriter{err: boom})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, n)
}
