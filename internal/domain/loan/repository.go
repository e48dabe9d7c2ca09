package loan

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, l *Loan) error
	Save(ctx context.Context, l *Loan) error
	Delete(ctx context.Context, l *Loan) error

	GetByLoanID(ctx context.Context, loanID string) (*Loan, error)
	GetByLoanIDForUpdate(ctx context.Context, loanID string) (*Loan, error)
	// GetByCorrelationIDForUpdate locks the loan owning the payment request.
	GetByCorrelationIDForUpdate(ctx context.Context, correlationID string) (*Loan, error)
	GetActiveLoanByUserID(ctx context.Context, userID string) (*Loan, error)
	ListByUserID(ctx context.Context, userID string, statuses ...Status) ([]Loan, error)
	List(ctx context.Context, statuses ...Status) ([]Loan, error)

	AddPaymentRequest(ctx context.Context, pr *PaymentRequest) error
	// SettlePaymentRequest moves a request out of pending. It reports false when the
	// request was not pending, so only one caller can ever settle a given request.
	SettlePaymentRequest(ctx context.Context, pr *PaymentRequest, at time.Time) (bool, error)
	AppendPayment(ctx context.Context, p *Payment) error
}
