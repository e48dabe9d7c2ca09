package user

import "context"

type Repository interface {
	Create(ctx context.Context, u *User) error

	// Get by public user_id
	GetByUserID(ctx context.Context, userID string) (*User, error)
	GetByUserIDForUpdate(ctx context.Context, userID string) (*User, error)

	// SaveLimits persists only the embedded loan limits.
	SaveLimits(ctx context.Context, u *User) error

	AppendLimitHistory(ctx context.Context, changes []LimitChange) error
	ListLimitHistory(ctx context.Context, userID string) ([]LimitChange, error)
}
