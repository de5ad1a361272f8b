package cart

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/logger"
	cartrepo "storefront/internal/repository/cart"
)

type itemRepo interface {
	GetByID(ctx context.Context, id int64) (*domain.Item, error)
}

type balanceReader interface {
	Balance(ctx context.Context) (decimal.Decimal, error)
}

type Service struct {
	repo     cartrepo.Repository
	items    itemRepo
	payments balanceReader
	logger   *zap.Logger
}

func New(repo cartrepo.Repository, items itemRepo, payments balanceReader, l *zap.Logger) *Service {
	return &Service{repo: repo, items: items, payments: payments, logger: logger.OrNop(l).Named("cart")}
}

// GetOrCreate returns the actor's cart. Anonymous actors get a fresh empty
// cart that is never stored.
func (s *Service) GetOrCreate(ctx context.Context, actor domain.Actor) (*domain.Cart, error) {
	if actor.Anonymous() {
		return &domain.Cart{Items: []domain.CartItem{}}, nil
	}
	return s.repo.GetOrCreateByOwner(ctx, actor.OwnerID)
}

func (s *Service) Add(ctx context.Context, actor domain.Actor, itemID int64) (*domain.Cart, error) {
	return s.Apply(ctx, actor, itemID, ActionAdd)
}

func (s *Service) Remove(ctx context.Context, actor domain.Actor, itemID int64) (*domain.Cart, error) {
	return s.Apply(ctx, actor, itemID, ActionRemove)
}

func (s *Service) Delete(ctx context.Context, actor domain.Actor, itemID int64) (*domain.Cart, error) {
	return s.Apply(ctx, actor, itemID, ActionDelete)
}

// Apply runs action against itemID in the actor's cart and returns the
// reloaded cart.
func (s *Service) Apply(ctx context.Context, actor domain.Actor, itemID int64, action Action) (*domain.Cart, error) {
	if actor.Anonymous() {
		return nil, domain.ErrAccessDenied
	}
	if action == ActionAdd {
		if _, err := s.items.GetByID(ctx, itemID); err != nil {
			return nil, err
		}
	}

	cart, err := s.repo.GetOrCreateByOwner(ctx, actor.OwnerID)
	if err != nil {
		return nil, err
	}
	if cart.ID == 0 {
		return nil, domain.ErrCartNotPersisted
	}

	switch action {
	case ActionAdd:
		err = s.repo.IncrementItem(ctx, cart.ID, itemID)
	case ActionRemove:
		err = s.repo.DecrementItem(ctx, cart.ID, itemID)
	case ActionDelete:
		err = s.repo.DeleteItem(ctx, cart.ID, itemID)
	default:
		return nil, domain.ErrInvalidAction
	}
	if err != nil {
		return nil, fmt.Errorf("cart %d %s item %d: %w", cart.ID, action, itemID, err)
	}
	s.logger.Debug("cart updated",
		zap.String("owner", actor.OwnerID),
		zap.Int64("item", itemID),
		zap.Stringer("action", action),
	)
	return s.repo.GetOrCreateByOwner(ctx, actor.OwnerID)
}

// PageData assembles the cart view with the buyer's balance. Anonymous
// actors get an empty view and the gateway is not consulted.
func (s *Service) PageData(ctx context.Context, actor domain.Actor) (domain.CartPage, error) {
	if actor.Anonymous() {
		return domain.CartPage{
			Items:      []domain.CartItem{},
			Total:      decimal.Zero,
			Empty:      true,
			Balance:    decimal.Zero,
			DisableBuy: true,
		}, nil
	}

	cart, err := s.repo.GetOrCreateByOwner(ctx, actor.OwnerID)
	if err != nil {
		return domain.CartPage{}, err
	}
	balance, err := s.payments.Balance(ctx)
	if err != nil {
		return domain.CartPage{}, fmt.Errorf("read balance: %w", err)
	}
	total := cart.Total()
	return domain.CartPage{
		Items:      cart.Items,
		Total:      total,
		Empty:      cart.IsEmpty(),
		Balance:    balance,
		DisableBuy: balance.LessThan(total),
	}, nil
}
