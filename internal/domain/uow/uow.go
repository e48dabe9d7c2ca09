package uow

import (
	"context"

	"cashloan-backend/internal/domain/loan"
	"cashloan-backend/internal/domain/user"
)

// Repos are the repositories bound to one transaction.
type Repos struct {
	Loans loan.Repository
	Users user.Repository
}

type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// WithinLoanTx row-locks the loan and hands it to fn inside the transaction.
	WithinLoanTx(ctx context.Context, loanID string, fn func(r Repos, l *loan.Loan) error) error
}
