package cart

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
)

// stubRepo keeps carts in memory with the same count semantics as the
// Postgres repository.
type stubRepo struct {
	catalog map[int64]domain.Item
	carts   map[string]int64
	lines   map[int64]map[int64]int
	nextID  int64
	getErr  error
	calls   int
}

func newStubRepo(items ...domain.Item) *stubRepo {
	r := &stubRepo{catalog: map[int64]domain.Item{}, carts: map[string]int64{}, lines: map[int64]map[int64]int{}}
	for _, it := range items {
		r.catalog[it.ID] = it
	}
	return r
}

func (s *stubRepo) GetOrCreateByOwner(_ context.Context, owner string) (*domain.Cart, error) {
	s.calls++
	if s.getErr != nil {
		return nil, s.getErr
	}
	id, ok := s.carts[owner]
	if !ok {
		s.nextID++
		id = s.nextID
		s.carts[owner] = id
		s.lines[id] = map[int64]int{}
	}
	cart := &domain.Cart{ID: id, OwnerID: owner, Items: []domain.CartItem{}}
	for itemID, count := range s.lines[id] {
		cart.Items = append(cart.Items, domain.CartItem{CartID: id, ItemID: itemID, Count: count, Item: s.catalog[itemID]})
	}
	sort.Slice(cart.Items, func(i, j int) bool { return cart.Items[i].ItemID < cart.Items[j].ItemID })
	return cart, nil
}

func (s *stubRepo) IncrementItem(_ context.Context, cartID, itemID int64) error {
	s.lines[cartID][itemID]++
	return nil
}

func (s *stubRepo) DecrementItem(_ context.Context, cartID, itemID int64) error {
	count, ok := s.lines[cartID][itemID]
	switch {
	case !ok:
	case count <= 1:
		delete(s.lines[cartID], itemID)
	default:
		s.lines[cartID][itemID] = count - 1
	}
	return nil
}

func (s *stubRepo) DeleteItem(_ context.Context, cartID, itemID int64) error {
	delete(s.lines[cartID], itemID)
	return nil
}

func (s *stubRepo) Clear(_ context.Context, cartID int64) error {
	s.lines[cartID] = map[int64]int{}
	return nil
}

func (s *stubRepo) RemoveCounts(_ context.Context, cartID int64, counts map[int64]int) error {
	for itemID, n := range counts {
		if s.lines[cartID][itemID] <= n {
			delete(s.lines[cartID], itemID)
		} else {
			s.lines[cartID][itemID] -= n
		}
	}
	return nil
}

type stubItems struct {
	repo *stubRepo
}

func (s stubItems) GetByID(_ context.Context, id int64) (*domain.Item, error) {
	it, ok := s.repo.catalog[id]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	return &it, nil
}

type mockBalance struct {
	mock.Mock
}

func (m *mockBalance) Balance(ctx context.Context) (decimal.Decimal, error) {
	args := m.Called(ctx)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

var (
	itemA = domain.Item{ID: 1, Title: "A", Price: decimal.RequireFromString("2.50")}
	itemB = domain.Item{ID: 2, Title: "B", Price: decimal.RequireFromString("5.00")}
	lamp  = domain.Item{ID: 42, Title: "Lamp", Price: decimal.NewFromInt(3)}
	alice = domain.Actor{OwnerID: "alice"}
)

func newService(items ...domain.Item) (*Service, *stubRepo, *mockBalance) {
	repo := newStubRepo(items...)
	payments := &mockBalance{}
	return New(repo, stubItems{repo: repo}, payments, nil), repo, payments
}

func TestParseAction(t *testing.T) {
	for in, want := range map[string]Action{"plus": ActionAdd, " MINUS ": ActionRemove, "delete": ActionDelete} {
		got, err := ParseAction(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseAction("double")
	require.ErrorIs(t, err, domain.ErrInvalidAction)
	assert.Equal(t, "minus", ActionRemove.String())
}

func TestAnonymousCartIsEmptyAndNotStored(t *testing.T) {
	svc, repo, _ := newService(lamp)

	cart, err := svc.GetOrCreate(context.Background(), domain.Actor{})
	require.NoError(t, err)
	assert.Zero(t, cart.ID)
	assert.Empty(t, cart.Items)
	assert.Zero(t, repo.calls)
}

func TestAnonymousMutationsDenied(t *testing.T) {
	svc, repo, _ := newService(lamp)
	for _, action := range []Action{ActionAdd, ActionRemove, ActionDelete} {
		_, err := svc.Apply(context.Background(), domain.Actor{}, lamp.ID, action)
		require.ErrorIs(t, err, domain.ErrAccessDenied)
	}
	assert.Zero(t, repo.calls)
}

func TestAddTwiceIncrementsSingleLine(t *testing.T) {
	svc, _, _ := newService(lamp)
	ctx := context.Background()

	cart, err := svc.Add(ctx, alice, 42)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 1, cart.Items[0].Count)

	cart, err = svc.Add(ctx, alice, 42)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Count)
	assert.True(t, cart.Total().Equal(decimal.NewFromInt(6)))
}

func TestRemoveLastUnitDeletesThenNoop(t *testing.T) {
	svc, _, _ := newService(lamp)
	ctx := context.Background()

	_, err := svc.Add(ctx, alice, 42)
	require.NoError(t, err)

	cart, err := svc.Remove(ctx, alice, 42)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	cart, err = svc.Remove(ctx, alice, 42)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestAddThenRemoveRoundTrips(t *testing.T) {
	svc, _, _ := newService(itemA, itemB)
	ctx := context.Background()

	before, err := svc.Add(ctx, alice, itemA.ID)
	require.NoError(t, err)
	_, err = svc.Add(ctx, alice, itemB.ID)
	require.NoError(t, err)
	after, err := svc.Remove(ctx, alice, itemB.ID)
	require.NoError(t, err)

	assert.Equal(t, before.Items, after.Items)
	assert.True(t, before.Total().Equal(after.Total()))
}

func TestDeleteRemovesWholeLine(t *testing.T) {
	svc, _, _ := newService(itemA, itemB)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := svc.Add(ctx, alice, itemA.ID)
		require.NoError(t, err)
	}
	_, err := svc.Add(ctx, alice, itemB.ID)
	require.NoError(t, err)

	cart, err := svc.Delete(ctx, alice, itemA.ID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, itemB.ID, cart.Items[0].ItemID)
	assert.True(t, cart.Total().Equal(decimal.RequireFromString("5.00")))
}

func TestAddUnknownItem(t *testing.T) {
	svc, repo, _ := newService(lamp)
	_, err := svc.Add(context.Background(), alice, 7)
	require.ErrorIs(t, err, domain.ErrItemNotFound)
	assert.Zero(t, repo.calls)
}

func TestUnknownActionRejected(t *testing.T) {
	svc, _, _ := newService(lamp)
	_, err := svc.Apply(context.Background(), alice, 42, Action(99))
	require.ErrorIs(t, err, domain.ErrInvalidAction)
}

type noIDRepo struct {
	*stubRepo
}

func (r noIDRepo) GetOrCreateByOwner(_ context.Context, owner string) (*domain.Cart, error) {
	return &domain.Cart{OwnerID: owner}, nil
}

func TestCartWithoutIDIsAnInvariantViolation(t *testing.T) {
	repo := newStubRepo(lamp)
	svc := New(noIDRepo{repo}, stubItems{repo: repo}, &mockBalance{}, nil)
	_, err := svc.Add(context.Background(), alice, 42)
	require.ErrorIs(t, err, domain.ErrCartNotPersisted)
}

func TestPageData(t *testing.T) {
	svc, _, payments := newService(itemA, itemB)
	ctx := context.Background()
	for _, id := range []int64{itemA.ID, itemA.ID, itemB.ID} {
		_, err := svc.Add(ctx, alice, id)
		require.NoError(t, err)
	}
	payments.On("Balance", mock.Anything).Return(decimal.RequireFromString("9.99"), nil).Once()

	page, err := svc.PageData(ctx, alice)
	require.NoError(t, err)
	assert.True(t, page.Total.Equal(decimal.NewFromInt(10)))
	assert.False(t, page.Empty)
	assert.True(t, page.DisableBuy)
	assert.Len(t, page.Items, 2)
	payments.AssertExpectations(t)
}

func TestPageDataAnonymous(t *testing.T) {
	svc, _, payments := newService()
	page, err := svc.PageData(context.Background(), domain.Actor{})
	require.NoError(t, err)
	assert.True(t, page.Empty)
	assert.True(t, page.DisableBuy)
	assert.True(t, page.Balance.IsZero())
	payments.AssertNotCalled(t, "Balance", mock.Anything)
}

func TestPageDataBalanceError(t *testing.T) {
	svc, _, payments := newService()
	payments.On("Balance", mock.Anything).Return(decimal.Zero, domain.ErrGatewayUnavailable)

	_, err := svc.PageData(context.Background(), alice)
	require.True(t, errors.Is(err, domain.ErrGatewayUnavailable))
}
