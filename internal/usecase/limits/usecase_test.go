package limits

import (
	"context"
	"errors"
	"testing"
	"time"

	"cashloan-backend/internal/domain/loan"
	"cashloan-backend/internal/domain/uow"
	"cashloan-backend/internal/domain/user"
	"cashloan-backend/internal/testutil/loanmock"
	"cashloan-backend/internal/testutil/uowmock"
	"cashloan-backend/internal/testutil/usermock"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const uid = "uuuuuuuuuuuuuuuuuuuuuuuuuuuuuuuu"

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func outstanding(balances ...int64) []loan.Loan {
	out := make([]loan.Loan, 0, len(balances))
	for _, b := range balances {
		out = append(out, loan.Loan{Status: loan.StatusApproved, RemainingBalance: d(b)})
	}
	return out
}

func hasViolation(el *Eligibility, limitType string) bool {
	for _, v := range el.Violations {
		if v.LimitType == limitType {
			return true
		}
	}
	return false
}

func TestEvaluate(t *testing.T) {
	defaults := user.DefaultLoanLimits()
	unlimited := user.LoanLimits{}

	cases := []struct {
		name      string
		limits    user.LoanLimits
		loans     []loan.Loan
		requested int64
		wantOK    bool
		wantTypes []string
	}{
		{"within limits", defaults, nil, 10000, true, nil},
		{"per request cap", defaults, nil, 25000, false, []string{user.LimitMaxLoanAmountPerRequest}},
		{"per request cap is inclusive", defaults, nil, 20000, true, nil},
		{"active count reached", defaults, outstanding(100), 1000, false, []string{user.LimitMaxActiveLoans}},
		{
			"total outstanding",
			user.LoanLimits{MaxTotalLoanAmount: d(50000), MaxActiveLoans: 5},
			outstanding(45000), 10000, false, []string{user.LimitMaxTotalLoanAmount},
		},
		{"zero means unlimited", unlimited, outstanding(1_000_000, 2_000_000), 5_000_000, true, nil},
		{
			"every violation reported",
			user.LoanLimits{MaxTotalLoanAmount: d(100), MaxActiveLoans: 1, MaxLoanAmountPerRequest: d(50)},
			outstanding(80), 60, false,
			[]string{user.LimitMaxLoanAmountPerRequest, user.LimitMaxActiveLoans, user.LimitMaxTotalLoanAmount},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			el := Evaluate(tc.limits, tc.loans, d(tc.requested))
			if el.Eligible != tc.wantOK {
				t.Fatalf("eligible=%v want %v (violations %+v)", el.Eligible, tc.wantOK, el.Violations)
			}
			if len(el.Violations) != len(tc.wantTypes) {
				t.Fatalf("violations=%+v want %v", el.Violations, tc.wantTypes)
			}
			for _, typ := range tc.wantTypes {
				if !hasViolation(el, typ) {
					t.Fatalf("missing violation %s in %+v", typ, el.Violations)
				}
			}
		})
	}
}

func TestCheckEligibility_TotalOutstandingScenario(t *testing.T) {
	loans := &loanmock.Repo{
		ListByUserIDFn: func(_ context.Context, userID string, statuses ...loan.Status) ([]loan.Loan, error) {
			if userID != uid {
				t.Fatalf("unexpected user %s", userID)
			}
			if len(statuses) != 2 || statuses[0] != loan.StatusApproved || statuses[1] != loan.StatusPartiallyPaid {
				t.Fatalf("must count approved and partially paid loans only, got %v", statuses)
			}
			return outstanding(20000, 25000), nil
		},
	}
	uc := NewUsecase(loans, &usermock.Repo{}, uowmock.New())
	usr := &user.User{UserID: uid, LoanLimits: user.LoanLimits{MaxTotalLoanAmount: d(50000)}}

	el, err := uc.CheckEligibility(context.Background(), usr, d(10000))
	if err != nil {
		t.Fatalf("CheckEligibility: %v", err)
	}
	if el.Eligible || !hasViolation(el, user.LimitMaxTotalLoanAmount) {
		t.Fatalf("want maxTotalLoanAmount violation, got %+v", el)
	}
	if !el.Usage.TotalOutstanding.Equal(d(45000)) || el.Usage.ActiveLoanCount != 2 {
		t.Fatalf("usage=%+v", el.Usage)
	}
	if !el.Violations[0].CurrentValue.Equal(d(55000)) {
		t.Fatalf("current value=%s want 55000", el.Violations[0].CurrentValue)
	}
}

func TestGate_ReturnsLimitExceededError(t *testing.T) {
	loans := &loanmock.Repo{
		ListByUserIDFn: func(context.Context, string, ...loan.Status) ([]loan.Loan, error) { return nil, nil },
	}
	uc := NewUsecase(loans, &usermock.Repo{}, uowmock.New())
	usr := &user.User{UserID: uid, LoanLimits: user.DefaultLoanLimits()}

	err := uc.Gate(context.Background(), usr, d(25000))
	var lim *LimitExceededError
	if !errors.As(err, &lim) {
		t.Fatalf("want LimitExceededError, got %v", err)
	}
	if len(lim.Violations) != 1 || lim.Violations[0].LimitType != user.LimitMaxLoanAmountPerRequest {
		t.Fatalf("violations=%+v", lim.Violations)
	}
	if err := uc.Gate(context.Background(), usr, d(1000)); err != nil {
		t.Fatalf("Gate within limits: %v", err)
	}
}

func TestCheckEligibility_RejectsNonPositiveAmount(t *testing.T) {
	uc := NewUsecase(&loanmock.Repo{}, &usermock.Repo{}, uowmock.New())
	_, err := uc.CheckEligibility(context.Background(), &user.User{UserID: uid}, d(0))
	if !errors.Is(err, loan.ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
}

func TestCheckEligibilityByUserID_NotFound(t *testing.T) {
	users := &usermock.Repo{
		GetByUserIDFn: func(context.Context, string) (*user.User, error) { return nil, gorm.ErrRecordNotFound },
	}
	uc := NewUsecase(&loanmock.Repo{}, users, uowmock.New())
	if _, err := uc.CheckEligibilityByUserID(context.Background(), "missing", d(10)); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("want user.ErrNotFound, got %v", err)
	}
}

func TestUpdateLimits_SavesAndAppendsHistory(t *testing.T) {
	usr := &user.User{UserID: uid, LoanLimits: user.DefaultLoanLimits()}
	var saved bool
	var history []user.LimitChange
	users := &usermock.Repo{
		GetByUserIDForUpdateFn: func(context.Context, string) (*user.User, error) { return usr, nil },
		SaveLimitsFn: func(_ context.Context, u *user.User) error {
			saved = true
			return nil
		},
		AppendLimitHistoryFn: func(_ context.Context, changes []user.LimitChange) error {
			history = changes
			return nil
		},
	}
	uc := NewUsecase(&loanmock.Repo{}, users, uowmock.Passthrough(uow.Repos{Users: users}))
	uc.now = func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) }

	maxActive := 3
	total := d(80000)
	dto, err := uc.UpdateLimits(context.Background(), UpdateLimitsInput{
		UserID:    uid,
		Update:    user.LimitUpdate{MaxActiveLoans: &maxActive, MaxTotalLoanAmount: &total},
		ChangedBy: "admin-1",
		Reason:    "good history",
	})
	if err != nil {
		t.Fatalf("UpdateLimits: %v", err)
	}
	if !saved || len(history) != 2 {
		t.Fatalf("saved=%v history=%+v", saved, history)
	}
	if dto.Limits.MaxActiveLoans != 3 || !dto.Limits.MaxTotalLoanAmount.Equal(total) {
		t.Fatalf("limits=%+v", dto.Limits)
	}
	if dto.Limits.LimitsUpdatedBy != "admin-1" || dto.Limits.LimitsUpdatedAt == nil {
		t.Fatalf("audit fields not set: %+v", dto.Limits)
	}
}

func TestUpdateLimits_RejectsEmptyAndNegative(t *testing.T) {
	usr := &user.User{UserID: uid, LoanLimits: user.DefaultLoanLimits()}
	users := &usermock.Repo{
		GetByUserIDForUpdateFn: func(context.Context, string) (*user.User, error) { return usr, nil },
		SaveLimitsFn: func(context.Context, *user.User) error {
			t.Fatalf("SaveLimits must not run for invalid input")
			return nil
		},
	}
	uc := NewUsecase(&loanmock.Repo{}, users, uowmock.Passthrough(uow.Repos{Users: users}))

	if _, err := uc.UpdateLimits(context.Background(), UpdateLimitsInput{UserID: uid, ChangedBy: "admin-1"}); !errors.Is(err, user.ErrInvalidLimits) {
		t.Fatalf("empty update: want ErrInvalidLimits, got %v", err)
	}
	neg := -1
	_, err := uc.UpdateLimits(context.Background(), UpdateLimitsInput{
		UserID: uid, ChangedBy: "admin-1", Update: user.LimitUpdate{MaxActiveLoans: &neg},
	})
	if !errors.Is(err, user.ErrInvalidLimits) {
		t.Fatalf("negative limit: want ErrInvalidLimits, got %v", err)
	}
	if usr.LoanLimits.MaxActiveLoans != 1 {
		t.Fatalf("limits mutated on invalid input: %+v", usr.LoanLimits)
	}
}

func TestHistory(t *testing.T) {
	users := &usermock.Repo{
		GetByUserIDFn: func(context.Context, string) (*user.User, error) {
			return &user.User{UserID: uid, LoanLimits: user.DefaultLoanLimits()}, nil
		},
		ListLimitHistoryFn: func(context.Context, string) ([]user.LimitChange, error) { return nil, nil },
	}
	uc := NewUsecase(&loanmock.Repo{}, users, uowmock.New())
	dto, err := uc.History(context.Background(), uid)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if dto.History == nil || len(dto.History) != 0 {
		t.Fatalf("want empty non-nil history, got %#v", dto.History)
	}
}
