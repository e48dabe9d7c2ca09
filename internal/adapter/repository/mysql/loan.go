package mysql

import (
	loanDomain "cashloan-backend/internal/domain/loan"
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LoanRepository struct{ db *gorm.DB }

func NewLoanRepository(db *gorm.DB) *LoanRepository { return &LoanRepository{db: db} }

// Tx runs fn in a db transaction, passing a repo bound to the tx
func (r *LoanRepository) Tx(ctx context.Context, fn func(repo loanDomain.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&LoanRepository{db: tx})
	})
}

func (r *LoanRepository) Create(ctx context.Context, l *loanDomain.Loan) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(l).Error
}

// Save writes the loan row only; requests and payments have their own writes.
func (r *LoanRepository) Save(ctx context.Context, l *loanDomain.Loan) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(l).Error
}

func (r *LoanRepository) Delete(ctx context.Context, l *loanDomain.Loan) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("loan_id = ?", l.ID).Delete(&loanDomain.PaymentRequest{}).Error; err != nil {
			return err
		}
		return tx.Delete(&loanDomain.Loan{}, l.ID).Error
	})
}

func (r *LoanRepository) withChildren(db *gorm.DB) *gorm.DB {
	byID := func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }
	return db.Preload("PaymentRequests", byID).Preload("Payments", byID)
}

func (r *LoanRepository) GetByLoanID(ctx context.Context, loanID string) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	res := r.withChildren(r.db.WithContext(ctx)).Where("loan_id = ?", loanID).First(&out)
	return &out, res.Error
}

func (r *LoanRepository) GetByLoanIDForUpdate(ctx context.Context, loanID string) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	res := r.withChildren(r.db.WithContext(ctx)).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("loan_id = ?", loanID).
		First(&out)
	return &out, res.Error
}

func (r *LoanRepository) GetByCorrelationIDForUpdate(ctx context.Context, correlationID string) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	owner := r.db.Model(&loanDomain.PaymentRequest{}).Select("loan_id").Where("correlation_id = ?", correlationID)
	res := r.withChildren(r.db.WithContext(ctx)).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = (?)", owner).
		First(&out)
	return &out, res.Error
}

func (r *LoanRepository) GetActiveLoanByUserID(ctx context.Context, userID string) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND status IN ?", userID, loanDomain.ActiveStatuses).
		Order("state_updated_at DESC, id DESC").
		First(&out)
	return &out, res.Error
}

func (r *LoanRepository) ListByUserID(ctx context.Context, userID string, statuses ...loanDomain.Status) ([]loanDomain.Loan, error) {
	var out []loanDomain.Loan
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	res := q.Order("created_at DESC, id DESC").Find(&out)
	return out, res.Error
}

func (r *LoanRepository) List(ctx context.Context, statuses ...loanDomain.Status) ([]loanDomain.Loan, error) {
	var out []loanDomain.Loan
	q := r.db.WithContext(ctx)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	res := q.Order("created_at DESC, id DESC").Find(&out)
	return out, res.Error
}

func (r *LoanRepository) AddPaymentRequest(ctx context.Context, pr *loanDomain.PaymentRequest) error {
	return r.db.WithContext(ctx).Create(pr).Error
}

// SettlePaymentRequest is the compare-and-set that guards every callback.
func (r *LoanRepository) SettlePaymentRequest(ctx context.Context, pr *loanDomain.PaymentRequest, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&loanDomain.PaymentRequest{}).
		Where("correlation_id = ? AND status = ?", pr.CorrelationID, loanDomain.PaymentRequestPending).
		Updates(map[string]any{
			"status":         pr.Status,
			"failure_reason": pr.FailureReason,
			"processed_at":   at.UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *LoanRepository) AppendPayment(ctx context.Context, p *loanDomain.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}
