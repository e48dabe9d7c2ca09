package loan

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"cashloan-backend/internal/domain/loan"
	"cashloan-backend/internal/domain/lock"
	"cashloan-backend/internal/domain/uow"
	"cashloan-backend/internal/domain/user"
	"cashloan-backend/pkg/id"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// EligibilityGate rejects an application that breaks the user's lending limits.
type EligibilityGate interface {
	Gate(ctx context.Context, u *user.User, requested decimal.Decimal) error
}

type Usecase struct {
	repo    loan.Repository
	users   user.Repository
	limits  EligibilityGate
	locker  lock.Locker
	uow     uow.UnitOfWork
	lockTTL time.Duration
	now     func() time.Time
	newID   func() string
}

func NewUsecase(r loan.Repository, users user.Repository, limits EligibilityGate, locker lock.Locker, tx uow.UnitOfWork, lockTTL time.Duration) *Usecase {
	return &Usecase{
		repo: r, users: users, limits: limits, locker: locker, uow: tx,
		lockTTL: lockTTL, now: time.Now, newID: id.NewID32,
	}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return loan.ErrNotFound
	}
	return err
}

// Apply creates a pending loan. Applications are serialized per user; the limit
// check itself is read-then-create and relies on admin approval to catch staleness.
func (u *Usecase) Apply(ctx context.Context, in ApplyInput) (*LoanDTO, error) {
	if in.UserID == "" || !in.LoanAmount.IsPositive() {
		return nil, fmt.Errorf("%w: user id and a positive loan amount are required", loan.ErrValidation)
	}

	release, err := u.locker.Acquire(ctx, lock.UserApplicationKey(in.UserID), u.lockTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	usr, err := u.activeUser(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if err := u.ensureNoActiveLoan(ctx, in.UserID, ""); err != nil {
		return nil, err
	}
	if err := u.limits.Gate(ctx, usr, in.LoanAmount); err != nil {
		return nil, err
	}

	l, err := loan.New(u.newID(), in.UserID, in.LoanAmount, u.now())
	if err != nil {
		return nil, err
	}
	if err := u.repo.Create(ctx, l); err != nil {
		return nil, err
	}
	log.Printf("loan %s applied by %s for %s", l.LoanID, l.UserID, l.LoanAmount.StringFixed(2))
	return ToDTO(l), nil
}

func (u *Usecase) Get(ctx context.Context, userID, loanID string) (*LoanDTO, error) {
	l, err := u.owned(ctx, userID, loanID)
	if err != nil {
		return nil, err
	}
	return ToDTO(l), nil
}

func (u *Usecase) List(ctx context.Context, userID string) ([]LoanDTO, error) {
	ls, err := u.repo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return ToDTOs(ls), nil
}

// Edit reprices a pending or rejected loan and resubmits it as pending.
// It is serialized with Apply per user.
func (u *Usecase) Edit(ctx context.Context, in EditInput) (*LoanDTO, error) {
	if !in.LoanAmount.IsPositive() {
		return nil, fmt.Errorf("%w: loan amount must be positive", loan.ErrValidation)
	}

	// an edit can reopen a rejected loan, so it takes the same lock as Apply
	release, err := u.locker.Acquire(ctx, lock.UserApplicationKey(in.UserID), u.lockTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	current, err := u.owned(ctx, in.UserID, in.LoanID)
	if err != nil {
		return nil, err
	}
	if !current.Editable() {
		return nil, fmt.Errorf("%w: only pending or rejected loans can be edited", loan.ErrInvalidTransition)
	}
	usr, err := u.activeUser(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if err := u.ensureNoActiveLoan(ctx, in.UserID, in.LoanID); err != nil {
		return nil, err
	}
	if err := u.limits.Gate(ctx, usr, in.LoanAmount); err != nil {
		return nil, err
	}

	var dto *LoanDTO
	err = u.uow.WithinLoanTx(ctx, in.LoanID, func(r uow.Repos, l *loan.Loan) error {
		if l.UserID != in.UserID {
			return loan.ErrForbidden
		}
		if err := l.Edit(in.LoanAmount, in.RepaymentDate, u.now()); err != nil {
			return err
		}
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}
		dto = ToDTO(l)
		return nil
	})
	if err != nil {
		return nil, notFound(err)
	}
	return dto, nil
}

func (u *Usecase) Delete(ctx context.Context, userID, loanID string) error {
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *loan.Loan) error {
		if l.UserID != userID {
			return loan.ErrForbidden
		}
		if !l.Editable() {
			return fmt.Errorf("%w: only pending or rejected loans can be deleted", loan.ErrInvalidTransition)
		}
		return r.Loans.Delete(ctx, l)
	})
	return notFound(err)
}

func (u *Usecase) owned(ctx context.Context, userID, loanID string) (*loan.Loan, error) {
	l, err := u.repo.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, notFound(err)
	}
	if l.UserID != userID {
		return nil, loan.ErrForbidden
	}
	return l, nil
}

func (u *Usecase) activeUser(ctx context.Context, userID string) (*user.User, error) {
	usr, err := u.users.GetByUserID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, user.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !usr.IsActive {
		return nil, fmt.Errorf("%w: user account is inactive", loan.ErrForbidden)
	}
	return usr, nil
}

// ensureNoActiveLoan enforces one active loan per user, ignoring exceptLoanID.
func (u *Usecase) ensureNoActiveLoan(ctx context.Context, userID, exceptLoanID string) error {
	if exceptLoanID == "" {
		active, err := u.repo.GetActiveLoanByUserID(ctx, userID)
		switch {
		case err == nil:
			return fmt.Errorf("%w: %s is %s", loan.ErrActiveLoanExists, active.LoanID, active.Status)
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil
		default:
			return err
		}
	}
	active, err := u.repo.ListByUserID(ctx, userID, loan.ActiveStatuses...)
	if err != nil {
		return err
	}
	for _, l := range active {
		if l.LoanID != exceptLoanID {
			return fmt.Errorf("%w: %s is %s", loan.ErrActiveLoanExists, l.LoanID, l.Status)
		}
	}
	return nil
}
