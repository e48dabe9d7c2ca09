package loan

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	domain "cashloan-backend/internal/domain/loan"
	"cashloan-backend/internal/domain/lock"
	"cashloan-backend/internal/domain/uow"
	"cashloan-backend/internal/domain/user"
	"cashloan-backend/internal/testutil/loanmock"
	"cashloan-backend/internal/testutil/lockmock"
	"cashloan-backend/internal/testutil/uowmock"
	"cashloan-backend/internal/testutil/usermock"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	userID = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	loanID = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
)

// gateFn adapts a func to EligibilityGate.
type gateFn func(ctx context.Context, u *user.User, requested decimal.Decimal) error

func (f gateFn) Gate(ctx context.Context, u *user.User, requested decimal.Decimal) error {
	return f(ctx, u, requested)
}

var allow = gateFn(func(context.Context, *user.User, decimal.Decimal) error { return nil })

func activeUsers() *usermock.Repo {
	return &usermock.Repo{
		GetByUserIDFn: func(_ context.Context, id string) (*user.User, error) {
			return &user.User{UserID: id, IsActive: true, LoanLimits: user.DefaultLoanLimits()}, nil
		},
	}
}

func noActiveLoan(repo *loanmock.Repo) *loanmock.Repo {
	repo.GetActiveLoanByUserIDFn = func(context.Context, string) (*domain.Loan, error) {
		return nil, gorm.ErrRecordNotFound
	}
	return repo
}

func newUC(repo *loanmock.Repo, gate EligibilityGate, locker *lockmock.Locker) *Usecase {
	uc := NewUsecase(repo, activeUsers(), gate, locker, uowmock.Passthrough(uow.Repos{Loans: repo}), time.Second)
	uc.newID = func() string { return loanID }
	return uc
}

func pendingLoan(t *testing.T, amount int64) *domain.Loan {
	t.Helper()
	l, err := domain.New(loanID, userID, decimal.NewFromInt(amount), time.Now())
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func TestApply_Success(t *testing.T) {
	var created *domain.Loan
	repo := noActiveLoan(&loanmock.Repo{
		CreateFn: func(_ context.Context, l *domain.Loan) error {
			created = l
			return nil
		},
	})
	locker := &lockmock.Locker{}
	uc := newUC(repo, allow, locker)
	now := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)
	uc.now = func() time.Time { return now }

	dto, err := uc.Apply(context.Background(), ApplyInput{UserID: userID, LoanAmount: decimal.NewFromInt(10000)})
	if err != nil {
		t.Fatalf("Apply err: %v", err)
	}
	if created == nil || dto.LoanID != loanID {
		t.Fatalf("loan not created: %+v", dto)
	}
	if dto.Status != string(domain.StatusPending) || dto.Interest != "2000.00" || dto.TotalRepayment != "12000.00" {
		t.Fatalf("unexpected dto: %+v", dto)
	}
	if want := now.AddDate(0, 0, 30); !created.RepaymentDate.Equal(want) {
		t.Fatalf("repayment date %v, want %v", created.RepaymentDate, want)
	}
	if locker.Held(lock.UserApplicationKey(userID)) {
		t.Fatalf("application lock not released")
	}
}

func TestApply_Rejects_WhenActiveLoanExists(t *testing.T) {
	uc := newUC(&loanmock.Repo{
		GetActiveLoanByUserIDFn: func(context.Context, string) (*domain.Loan, error) {
			return &domain.Loan{LoanID: "cccccccccccccccccccccccccccccccc", Status: domain.StatusApproved}, nil
		},
		CreateFn: func(context.Context, *domain.Loan) error {
			t.Fatalf("Create must not be called when an active loan exists")
			return nil
		},
	}, allow, &lockmock.Locker{})

	_, err := uc.Apply(context.Background(), ApplyInput{UserID: userID, LoanAmount: decimal.NewFromInt(1000)})
	if !errors.Is(err, domain.ErrActiveLoanExists) {
		t.Fatalf("want ErrActiveLoanExists, got %v", err)
	}
	if !strings.Contains(err.Error(), "cccccccccccccccccccccccccccccccc") {
		t.Fatalf("error %q should name the active loan", err)
	}
}

func TestApply_LimitViolation_NoMutation(t *testing.T) {
	limitErr := errors.New("loan limit exceeded")
	uc := newUC(noActiveLoan(&loanmock.Repo{
		CreateFn: func(context.Context, *domain.Loan) error {
			t.Fatalf("Create must not be called on a limit violation")
			return nil
		},
	}), gateFn(func(_ context.Context, u *user.User, requested decimal.Decimal) error {
		if u.UserID != userID || !requested.Equal(decimal.NewFromInt(25000)) {
			t.Fatalf("gate got %s %s", u.UserID, requested)
		}
		return limitErr
	}), &lockmock.Locker{})

	if _, err := uc.Apply(context.Background(), ApplyInput{UserID: userID, LoanAmount: decimal.NewFromInt(25000)}); !errors.Is(err, limitErr) {
		t.Fatalf("want limit error, got %v", err)
	}
}

func TestApply_Busy(t *testing.T) {
	locker := &lockmock.Locker{}
	release, _ := locker.Acquire(context.Background(), lock.UserApplicationKey(userID), time.Second)
	defer release()

	uc := newUC(&loanmock.Repo{}, allow, locker)
	if _, err := uc.Apply(context.Background(), ApplyInput{UserID: userID, LoanAmount: decimal.NewFromInt(100)}); !errors.Is(err, lock.ErrBusy) {
		t.Fatalf("want ErrBusy, got %v", err)
	}
}

func TestApply_InvalidInput(t *testing.T) {
	uc := newUC(&loanmock.Repo{}, allow, &lockmock.Locker{})
	_, err := uc.Apply(context.Background(), ApplyInput{UserID: userID, LoanAmount: decimal.Zero})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
}

func TestGet_OwnershipAndNotFound(t *testing.T) {
	l := pendingLoan(t, 1000)
	uc := newUC(&loanmock.Repo{
		GetByLoanIDFn: func(_ context.Context, id string) (*domain.Loan, error) {
			if id == loanID {
				return l, nil
			}
			return nil, gorm.ErrRecordNotFound
		},
	}, allow, &lockmock.Locker{})

	dto, err := uc.Get(context.Background(), userID, loanID)
	if err != nil || dto.LoanID != loanID {
		t.Fatalf("Get: %+v %v", dto, err)
	}
	if _, err := uc.Get(context.Background(), "someone-else", loanID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("want ErrForbidden, got %v", err)
	}
	if _, err := uc.Get(context.Background(), userID, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestEdit_RejectedLoanGoesBackToPending(t *testing.T) {
	l := pendingLoan(t, 1000)
	if err := l.Reject(time.Now()); err != nil {
		t.Fatal(err)
	}
	saved, lockedOnSave := false, false
	locker := &lockmock.Locker{}
	repo := &loanmock.Repo{
		GetByLoanIDFn:          func(context.Context, string) (*domain.Loan, error) { return l, nil },
		GetByLoanIDForUpdateFn: func(context.Context, string) (*domain.Loan, error) { return l, nil },
		ListByUserIDFn: func(context.Context, string, ...domain.Status) ([]domain.Loan, error) {
			return nil, nil
		},
		SaveFn: func(context.Context, *domain.Loan) error {
			saved = true
			lockedOnSave = locker.Held(lock.UserApplicationKey(userID))
			return nil
		},
	}
	uc := newUC(repo, allow, locker)

	dto, err := uc.Edit(context.Background(), EditInput{UserID: userID, LoanID: loanID, LoanAmount: decimal.NewFromInt(2000)})
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if !saved || dto.Status != string(domain.StatusPending) || dto.TotalRepayment != "2400.00" {
		t.Fatalf("saved=%v dto=%+v", saved, dto)
	}
	if !lockedOnSave {
		t.Fatal("user application lock not held while saving the edit")
	}
	if locker.Held(lock.UserApplicationKey(userID)) {
		t.Fatal("user application lock not released")
	}
}

// A rejected loan reopened by Edit must not race a concurrent Apply.
func TestEdit_Busy_WhileApplicationInProgress(t *testing.T) {
	l := pendingLoan(t, 1000)
	if err := l.Reject(time.Now()); err != nil {
		t.Fatal(err)
	}
	locker := &lockmock.Locker{}
	release, _ := locker.Acquire(context.Background(), lock.UserApplicationKey(userID), time.Second)
	defer release()

	saved := false
	uc := newUC(&loanmock.Repo{
		GetByLoanIDFn:          func(context.Context, string) (*domain.Loan, error) { return l, nil },
		GetByLoanIDForUpdateFn: func(context.Context, string) (*domain.Loan, error) { return l, nil },
		ListByUserIDFn: func(context.Context, string, ...domain.Status) ([]domain.Loan, error) {
			return nil, nil
		},
		SaveFn: func(context.Context, *domain.Loan) error {
			saved = true
			return nil
		},
	}, allow, locker)

	_, err := uc.Edit(context.Background(), EditInput{UserID: userID, LoanID: loanID, LoanAmount: decimal.NewFromInt(2000)})
	if !errors.Is(err, lock.ErrBusy) {
		t.Fatalf("want ErrBusy, got %v", err)
	}
	if saved || l.Status != domain.StatusRejected {
		t.Fatalf("busy edit mutated the loan: saved=%v status=%s", saved, l.Status)
	}
}

func TestEdit_RejectsWhenAnotherLoanIsActive(t *testing.T) {
	l := pendingLoan(t, 1000)
	if err := l.Reject(time.Now()); err != nil {
		t.Fatal(err)
	}
	repo := &loanmock.Repo{
		GetByLoanIDFn: func(context.Context, string) (*domain.Loan, error) { return l, nil },
		ListByUserIDFn: func(context.Context, string, ...domain.Status) ([]domain.Loan, error) {
			return []domain.Loan{{LoanID: "dddddddddddddddddddddddddddddddd", Status: domain.StatusPending}}, nil
		},
	}
	uc := newUC(repo, allow, &lockmock.Locker{})

	_, err := uc.Edit(context.Background(), EditInput{UserID: userID, LoanID: loanID, LoanAmount: decimal.NewFromInt(2000)})
	if !errors.Is(err, domain.ErrActiveLoanExists) {
		t.Fatalf("want ErrActiveLoanExists, got %v", err)
	}
}

func TestEdit_ApprovedLoanIsNotEditable(t *testing.T) {
	l := pendingLoan(t, 1000)
	if err := l.Approve(time.Now()); err != nil {
		t.Fatal(err)
	}
	uc := newUC(&loanmock.Repo{
		GetByLoanIDFn: func(context.Context, string) (*domain.Loan, error) { return l, nil },
	}, allow, &lockmock.Locker{})

	_, err := uc.Edit(context.Background(), EditInput{UserID: userID, LoanID: loanID, LoanAmount: decimal.NewFromInt(2000)})
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("want ErrInvalidTransition, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	l := pendingLoan(t, 1000)
	deleted := false
	repo := &loanmock.Repo{
		GetByLoanIDForUpdateFn: func(context.Context, string) (*domain.Loan, error) { return l, nil },
		DeleteFn: func(_ context.Context, got *domain.Loan) error {
			deleted = got == l
			return nil
		},
	}
	uc := newUC(repo, allow, &lockmock.Locker{})

	if err := uc.Delete(context.Background(), "intruder", loanID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("want ErrForbidden, got %v", err)
	}
	if err := uc.Delete(context.Background(), userID, loanID); err != nil || !deleted {
		t.Fatalf("Delete: deleted=%v err=%v", deleted, err)
	}

	if err := l.Approve(time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := uc.Delete(context.Background(), userID, loanID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("approved loan: want ErrInvalidTransition, got %v", err)
	}
}
