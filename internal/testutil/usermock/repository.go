package usermock

import (
	domain "cashloan-backend/internal/domain/user"
	"context"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
// Writes default to a nil error; reads default to context.Canceled.
type Repo struct {
	CreateFn               func(ctx context.Context, u *domain.User) error
	GetByUserIDFn          func(ctx context.Context, userID string) (*domain.User, error)
	GetByUserIDForUpdateFn func(ctx context.Context, userID string) (*domain.User, error)
	SaveLimitsFn           func(ctx context.Context, u *domain.User) error
	AppendLimitHistoryFn   func(ctx context.Context, changes []domain.LimitChange) error
	ListLimitHistoryFn     func(ctx context.Context, userID string) ([]domain.LimitChange, error)
}

func (m *Repo) Create(ctx context.Context, u *domain.User) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, u)
	}
	return nil
}

func (m *Repo) GetByUserID(ctx context.Context, userID string) (*domain.User, error) {
	if m.GetByUserIDFn != nil {
		return m.GetByUserIDFn(ctx, userID)
	}
	return nil, context.Canceled
}

func (m *Repo) GetByUserIDForUpdate(ctx context.Context, userID string) (*domain.User, error) {
	if m.GetByUserIDForUpdateFn != nil {
		return m.GetByUserIDForUpdateFn(ctx, userID)
	}
	return nil, context.Canceled
}

func (m *Repo) SaveLimits(ctx context.Context, u *domain.User) error {
	if m.SaveLimitsFn != nil {
		return m.SaveLimitsFn(ctx, u)
	}
	return nil
}

func (m *Repo) AppendLimitHistory(ctx context.Context, changes []domain.LimitChange) error {
	if m.AppendLimitHistoryFn != nil {
		return m.AppendLimitHistoryFn(ctx, changes)
	}
	return nil
}

func (m *Repo) ListLimitHistory(ctx context.Context, userID string) ([]domain.LimitChange, error) {
	if m.ListLimitHistoryFn != nil {
		return m.ListLimitHistoryFn(ctx, userID)
	}
	return nil, context.Canceled
}
