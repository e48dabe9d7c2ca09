package loanmock

import (
	domain "cashloan-backend/internal/domain/loan"
	"context"
	"time"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
// Writes default to a nil error; reads default to context.Canceled.
type Repo struct {
	CreateFn                      func(ctx context.Context, l *domain.Loan) error
	SaveFn                        func(ctx context.Context, l *domain.Loan) error
	DeleteFn                      func(ctx context.Context, l *domain.Loan) error
	GetByLoanIDFn                 func(ctx context.Context, loanID string) (*domain.Loan, error)
	GetByLoanIDForUpdateFn        func(ctx context.Context, loanID string) (*domain.Loan, error)
	GetByCorrelationIDForUpdateFn func(ctx context.Context, correlationID string) (*domain.Loan, error)
	GetActiveLoanByUserIDFn       func(ctx context.Context, userID string) (*domain.Loan, error)
	ListByUserIDFn                func(ctx context.Context, userID string, statuses ...domain.Status) ([]domain.Loan, error)
	ListFn                        func(ctx context.Context, statuses ...domain.Status) ([]domain.Loan, error)
	AddPaymentRequestFn           func(ctx context.Context, pr *domain.PaymentRequest) error
	SettlePaymentRequestFn        func(ctx context.Context, pr *domain.PaymentRequest, at time.Time) (bool, error)
	AppendPaymentFn               func(ctx context.Context, p *domain.Payment) error
}

func (m *Repo) Create(ctx context.Context, l *domain.Loan) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, l)
	}
	return nil
}

func (m *Repo) Save(ctx context.Context, l *domain.Loan) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, l)
	}
	return nil
}

func (m *Repo) Delete(ctx context.Context, l *domain.Loan) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, l)
	}
	return nil
}

func (m *Repo) GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error) {
	if m.GetByLoanIDFn != nil {
		return m.GetByLoanIDFn(ctx, loanID)
	}
	return nil, context.Canceled
}

func (m *Repo) GetByLoanIDForUpdate(ctx context.Context, loanID string) (*domain.Loan, error) {
	if m.GetByLoanIDForUpdateFn != nil {
		return m.GetByLoanIDForUpdateFn(ctx, loanID)
	}
	return nil, context.Canceled
}

func (m *Repo) GetByCorrelationIDForUpdate(ctx context.Context, correlationID string) (*domain.Loan, error) {
	if m.GetByCorrelationIDForUpdateFn != nil {
		return m.GetByCorrelationIDForUpdateFn(ctx, correlationID)
	}
	return nil, context.Canceled
}

func (m *Repo) GetActiveLoanByUserID(ctx context.Context, userID string) (*domain.Loan, error) {
	if m.GetActiveLoanByUserIDFn != nil {
		return m.GetActiveLoanByUserIDFn(ctx, userID)
	}
	return nil, context.Canceled
}

func (m *Repo) ListByUserID(ctx context.Context, userID string, statuses ...domain.Status) ([]domain.Loan, error) {
	if m.ListByUserIDFn != nil {
		return m.ListByUserIDFn(ctx, userID, statuses...)
	}
	return nil, context.Canceled
}

func (m *Repo) List(ctx context.Context, statuses ...domain.Status) ([]domain.Loan, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, statuses...)
	}
	return nil, context.Canceled
}

func (m *Repo) AddPaymentRequest(ctx context.Context, pr *domain.PaymentRequest) error {
	if m.AddPaymentRequestFn != nil {
		return m.AddPaymentRequestFn(ctx, pr)
	}
	return nil
}

func (m *Repo) SettlePaymentRequest(ctx context.Context, pr *domain.PaymentRequest, at time.Time) (bool, error) {
	if m.SettlePaymentRequestFn != nil {
		return m.SettlePaymentRequestFn(ctx, pr, at)
	}
	return true, nil
}

func (m *Repo) AppendPayment(ctx context.Context, p *domain.Payment) error {
	if m.AppendPaymentFn != nil {
		return m.AppendPaymentFn(ctx, p)
	}
	return nil
}
