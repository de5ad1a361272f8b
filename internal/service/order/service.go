package order

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/logger"
	orderrepo "storefront/internal/repository/order"
)

type Service struct {
	repo   orderrepo.Repository
	logger *zap.Logger
}

func New(repo orderrepo.Repository, l *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger.OrNop(l).Named("order")}
}

// List returns the actor's orders, newest first.
func (s *Service) List(ctx context.Context, actor domain.Actor) ([]domain.Order, error) {
	if actor.Anonymous() {
		return nil, domain.ErrAccessDenied
	}
	orders, err := s.repo.ListByOwner(ctx, actor.OwnerID)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}

// Get returns one order. Orders of other owners are reported as missing.
func (s *Service) Get(ctx context.Context, actor domain.Actor, id int64) (*domain.Order, error) {
	if actor.Anonymous() {
		return nil, domain.ErrAccessDenied
	}
	order, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if order.OwnerID != actor.OwnerID {
		s.logger.Debug("order owned by another user", zap.Int64("order", id), zap.String("owner", actor.OwnerID))
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}
