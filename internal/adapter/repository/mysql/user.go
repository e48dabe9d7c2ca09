package mysql

import (
	userDomain "cashloan-backend/internal/domain/user"
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) *UserRepository { return &UserRepository{db: db} }

func (r *UserRepository) Create(ctx context.Context, u *userDomain.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *UserRepository) GetByUserID(ctx context.Context, userID string) (*userDomain.User, error) {
	var out userDomain.User
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&out)
	return &out, res.Error
}

func (r *UserRepository) GetByUserIDForUpdate(ctx context.Context, userID string) (*userDomain.User, error) {
	var out userDomain.User
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&out)
	return &out, res.Error
}

func (r *UserRepository) SaveLimits(ctx context.Context, u *userDomain.User) error {
	lim := u.LoanLimits
	return r.db.WithContext(ctx).
		Model(&userDomain.User{}).
		Where("id = ?", u.ID).
		Updates(map[string]any{
			"max_total_loan_amount":       lim.MaxTotalLoanAmount,
			"max_active_loans":            lim.MaxActiveLoans,
			"max_loan_amount_per_request": lim.MaxLoanAmountPerRequest,
			"limits_updated_at":           lim.LimitsUpdatedAt,
			"limits_updated_by":           lim.LimitsUpdatedBy,
		}).Error
}

func (r *UserRepository) AppendLimitHistory(ctx context.Context, changes []userDomain.LimitChange) error {
	if len(changes) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&changes).Error
}

func (r *UserRepository) ListLimitHistory(ctx context.Context, userID string) ([]userDomain.LimitChange, error) {
	var out []userDomain.LimitChange
	res := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("changed_at DESC, id DESC").
		Find(&out)
	return out, res.Error
}
