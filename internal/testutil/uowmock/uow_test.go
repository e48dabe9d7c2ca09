package uowmock

import (
	"context"
	"errors"
	"testing"

	"cashloan-backend/internal/domain/loan"
	"cashloan-backend/internal/domain/uow"
	"cashloan-backend/internal/testutil/loanmock"
	"cashloan-backend/internal/testutil/usermock"
)

func TestUoW_WithinTx_Happy(t *testing.T) {
	ctx := context.Background()

	loans := &loanmock.Repo{}
	users := &usermock.Repo{}
	repos := uow.Repos{Loans: loans, Users: users}

	innerCalled := false
	m := &UoW{
		WithinTxFn: func(gotCtx context.Context, fn func(r uow.Repos) error) error {
			if gotCtx != ctx {
				t.Fatalf("WithinTx: ctx mismatch")
			}
			return fn(repos)
		},
	}

	err := m.WithinTx(ctx, func(r uow.Repos) error {
		innerCalled = true
		if r.Loans != loans || r.Users != users {
			t.Fatalf("WithinTx: repos not forwarded correctly")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithinTx: unexpected err: %v", err)
	}
	if !innerCalled {
		t.Fatalf("WithinTx: inner fn not called")
	}
}

func TestUoW_Default_Unimplemented(t *testing.T) {
	ctx := context.Background()
	m := &UoW{} // no funcs set
	if err := m.WithinTx(ctx, func(uow.Repos) error { return nil }); !errors.Is(err, errUnimplemented) {
		t.Fatalf("WithinTx default: want errUnimplemented, got %v", err)
	}
	if err := m.WithinLoanTx(ctx, "LN-X", func(uow.Repos, *loan.Loan) error { return nil }); !errors.Is(err, errUnimplemented) {
		t.Fatalf("WithinLoanTx default: want errUnimplemented, got %v", err)
	}
}

func TestPassthrough_LoadsLockedLoan(t *testing.T) {
	ctx := context.Background()
	want := &loan.Loan{ID: 7, LoanID: "LN-7"}
	loans := &loanmock.Repo{
		GetByLoanIDForUpdateFn: func(_ context.Context, loanID string) (*loan.Loan, error) {
			if loanID != "LN-7" {
				t.Fatalf("loanID mismatch, got %s", loanID)
			}
			return want, nil
		},
	}
	m := Passthrough(uow.Repos{Loans: loans})

	called := false
	err := m.WithinLoanTx(ctx, "LN-7", func(r uow.Repos, l *loan.Loan) error {
		called = true
		if l != want || r.Loans != loans {
			t.Fatalf("loan or repos not forwarded: %+v", l)
		}
		return nil
	})
	if err != nil || !called {
		t.Fatalf("WithinLoanTx: called=%v err=%v", called, err)
	}
}

func TestPassthrough_PropagatesLookupError(t *testing.T) {
	m := Passthrough(uow.Repos{Loans: &loanmock.Repo{}})
	err := m.WithinLoanTx(context.Background(), "LN-X", func(uow.Repos, *loan.Loan) error {
		t.Fatalf("body must not run when the loan lookup fails")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestUoW_FluentSetters_And_Reset(t *testing.T) {
	m := New()
	if m.WithinTxFn != nil || m.WithinLoanTxFn != nil {
		t.Fatalf("New should start with nil funcs")
	}

	m.WithWithinTx(func(context.Context, func(uow.Repos) error) error { return nil }).
		WithWithinLoanTx(func(context.Context, string, func(uow.Repos, *loan.Loan) error) error { return nil })

	if m.WithinTxFn == nil || m.WithinLoanTxFn == nil {
		t.Fatalf("fluent setters didn't assign funcs")
	}

	m.Reset()
	if m.WithinTxFn != nil || m.WithinLoanTxFn != nil {
		t.Fatalf("Reset should clear function fields")
	}
}
