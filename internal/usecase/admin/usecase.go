package admin

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	domainLoan "cashloan-backend/internal/domain/loan"
	"cashloan-backend/internal/domain/uow"
	loanuc "cashloan-backend/internal/usecase/loan"

	"gorm.io/gorm"
)

type Usecase struct {
	loanRepo domainLoan.Repository
	uow      uow.UnitOfWork
	now      func() time.Time
}

// NewUsecase: pass the loan repo for reads and a UoW for tx flows.
func NewUsecase(loans domainLoan.Repository, tx uow.UnitOfWork) *Usecase {
	return &Usecase{loanRepo: loans, uow: tx, now: time.Now}
}

// mutate locks the loan, applies fn, and saves the loan together with any
// payment fn produced, all in one transaction.
func (u *Usecase) mutate(ctx context.Context, loanID, action, adminID string, fn func(l *domainLoan.Loan, now time.Time) (*domainLoan.Payment, error)) (*loanuc.LoanDTO, error) {
	if u.uow == nil {
		return nil, domainLoan.ErrInvalidTransition
	}
	var dto *loanuc.LoanDTO

	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domainLoan.Loan) error {
		from := l.Status
		p, err := fn(l, u.now())
		if err != nil {
			return err
		}
		if err := l.CheckInvariants(); err != nil {
			return fmt.Errorf("%s left loan %s inconsistent: %w", action, l.LoanID, err)
		}
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}
		if p != nil {
			if err := r.Loans.AppendPayment(ctx, p); err != nil {
				return err
			}
		}
		log.Printf("admin %s: %s loan %s (%s -> %s)", adminID, action, l.LoanID, from, l.Status)
		dto = loanuc.ToDTO(l)
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainLoan.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return dto, nil
}

func noPayment(fn func(l *domainLoan.Loan, now time.Time) error) func(*domainLoan.Loan, time.Time) (*domainLoan.Payment, error) {
	return func(l *domainLoan.Loan, now time.Time) (*domainLoan.Payment, error) {
		return nil, fn(l, now)
	}
}

func (u *Usecase) Approve(ctx context.Context, loanID, adminID string) (*loanuc.LoanDTO, error) {
	return u.mutate(ctx, loanID, "approve", adminID, noPayment(func(l *domainLoan.Loan, now time.Time) error {
		return l.Approve(now)
	}))
}

func (u *Usecase) Reject(ctx context.Context, loanID, adminID string) (*loanuc.LoanDTO, error) {
	return u.mutate(ctx, loanID, "reject", adminID, noPayment(func(l *domainLoan.Loan, now time.Time) error {
		return l.Reject(now)
	}))
}

// MarkFullyPaid is the administrative override; the balance is booked as an override payment.
func (u *Usecase) MarkFullyPaid(ctx context.Context, loanID, adminID string) (*loanuc.LoanDTO, error) {
	return u.mutate(ctx, loanID, "mark fully paid", adminID, func(l *domainLoan.Loan, now time.Time) (*domainLoan.Payment, error) {
		return l.MarkFullyPaid(now)
	})
}

// RecordManualPayment credits money collected outside the push gateway.
func (u *Usecase) RecordManualPayment(ctx context.Context, in ManualPaymentInput) (*loanuc.LoanDTO, error) {
	return u.mutate(ctx, in.LoanID, "manual payment", in.AdminID, func(l *domainLoan.Loan, now time.Time) (*domainLoan.Payment, error) {
		return l.ApplyManualPayment(in.Amount, in.Reference, now)
	})
}

func (u *Usecase) MarkDefaulted(ctx context.Context, in DefaultInput) (*loanuc.LoanDTO, error) {
	return u.mutate(ctx, in.LoanID, "mark defaulted", in.AdminID, noPayment(func(l *domainLoan.Loan, now time.Time) error {
		return l.MarkDefaulted(in.Reason, now)
	}))
}

func (u *Usecase) ExtendRepayment(ctx context.Context, loanID, adminID string) (*loanuc.LoanDTO, error) {
	return u.mutate(ctx, loanID, "extend", adminID, noPayment(func(l *domainLoan.Loan, now time.Time) error {
		return l.ExtendRepayment(now)
	}))
}

func (u *Usecase) EditRepaymentDate(ctx context.Context, in RepaymentDateInput) (*loanuc.LoanDTO, error) {
	return u.mutate(ctx, in.LoanID, "edit repayment date", in.AdminID, noPayment(func(l *domainLoan.Loan, now time.Time) error {
		return l.RescheduleRepayment(in.RepaymentDate, now)
	}))
}

// EditApplicationDate corrects when the loan was applied for; repayment falls due at that month's end.
func (u *Usecase) EditApplicationDate(ctx context.Context, in ApplicationDateInput) (*loanuc.LoanDTO, error) {
	return u.mutate(ctx, in.LoanID, "edit application date", in.AdminID, noPayment(func(l *domainLoan.Loan, now time.Time) error {
		return l.RedateApplication(in.ApplicationDate, now)
	}))
}

func (u *Usecase) AssignCategory(ctx context.Context, in CategoryInput) (*loanuc.LoanDTO, error) {
	return u.mutate(ctx, in.LoanID, "assign category", in.AdminID, noPayment(func(l *domainLoan.Loan, _ time.Time) error {
		return l.AssignCategory(domainLoan.Category(in.Category))
	}))
}

func (u *Usecase) GetLoan(ctx context.Context, loanID string) (*loanuc.LoanDTO, error) {
	l, err := u.loanRepo.GetByLoanID(ctx, loanID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainLoan.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return loanuc.ToDTO(l), nil
}

func (u *Usecase) ListLoans(ctx context.Context, statuses ...domainLoan.Status) ([]loanuc.LoanDTO, error) {
	ls, err := u.loanRepo.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return loanuc.ToDTOs(ls), nil
}

func (u *Usecase) ListUserLoans(ctx context.Context, userID string) ([]loanuc.LoanDTO, error) {
	ls, err := u.loanRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return loanuc.ToDTOs(ls), nil
}
