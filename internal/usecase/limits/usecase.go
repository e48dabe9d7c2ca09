package limits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cashloan-backend/internal/domain/loan"
	"cashloan-backend/internal/domain/uow"
	"cashloan-backend/internal/domain/user"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Usecase struct {
	loans loan.Repository
	users user.Repository
	uow   uow.UnitOfWork
	now   func() time.Time
}

func NewUsecase(loans loan.Repository, users user.Repository, tx uow.UnitOfWork) *Usecase {
	return &Usecase{loans: loans, users: users, uow: tx, now: time.Now}
}

// Evaluate checks a requested amount against limits, given the user's
// outstanding (approved or partially paid) loans. A zero limit is unlimited.
func Evaluate(limits user.LoanLimits, outstanding []loan.Loan, requested decimal.Decimal) *Eligibility {
	total := decimal.Zero
	for _, l := range outstanding {
		total = total.Add(l.RemainingBalance)
	}
	count := len(outstanding)

	out := &Eligibility{
		Violations: []Violation{},
		Usage:      Usage{TotalOutstanding: total, ActiveLoanCount: count},
		Limits:     limits,
	}
	if lim := limits.MaxLoanAmountPerRequest; lim.IsPositive() && requested.GreaterThan(lim) {
		out.Violations = append(out.Violations, Violation{
			LimitType: user.LimitMaxLoanAmountPerRequest, LimitValue: lim, CurrentValue: requested,
		})
	}
	if lim := limits.MaxActiveLoans; lim > 0 && count >= lim {
		out.Violations = append(out.Violations, Violation{
			LimitType:    user.LimitMaxActiveLoans,
			LimitValue:   decimal.NewFromInt(int64(lim)),
			CurrentValue: decimal.NewFromInt(int64(count)),
		})
	}
	if lim := limits.MaxTotalLoanAmount; lim.IsPositive() && total.Add(requested).GreaterThan(lim) {
		out.Violations = append(out.Violations, Violation{
			LimitType: user.LimitMaxTotalLoanAmount, LimitValue: lim, CurrentValue: total.Add(requested),
		})
	}
	out.Eligible = len(out.Violations) == 0
	return out
}

func (u *Usecase) CheckEligibility(ctx context.Context, usr *user.User, requested decimal.Decimal) (*Eligibility, error) {
	if usr == nil {
		return nil, user.ErrNotFound
	}
	if !requested.IsPositive() {
		return nil, fmt.Errorf("%w: requested amount must be positive", loan.ErrValidation)
	}
	outstanding, err := u.loans.ListByUserID(ctx, usr.UserID, loan.OutstandingStatuses...)
	if err != nil {
		return nil, fmt.Errorf("list outstanding loans: %w", err)
	}
	return Evaluate(usr.LoanLimits, outstanding, requested), nil
}

// Gate is CheckEligibility as a hard precondition.
func (u *Usecase) Gate(ctx context.Context, usr *user.User, requested decimal.Decimal) error {
	el, err := u.CheckEligibility(ctx, usr, requested)
	if err != nil {
		return err
	}
	if !el.Eligible {
		return &LimitExceededError{Violations: el.Violations}
	}
	return nil
}

// CheckEligibilityByUserID is the admin dry run.
func (u *Usecase) CheckEligibilityByUserID(ctx context.Context, userID string, requested decimal.Decimal) (*Eligibility, error) {
	usr, err := u.getUser(ctx, u.users, userID, false)
	if err != nil {
		return nil, err
	}
	return u.CheckEligibility(ctx, usr, requested)
}

// UpdateLimits changes limits and appends the audit entries in one transaction.
func (u *Usecase) UpdateLimits(ctx context.Context, in UpdateLimitsInput) (*LimitsDTO, error) {
	if in.UserID == "" || in.ChangedBy == "" {
		return nil, fmt.Errorf("%w: user id and admin id are required", loan.ErrValidation)
	}
	var dto *LimitsDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		usr, err := u.getUser(ctx, r.Users, in.UserID, true)
		if err != nil {
			return err
		}
		changes, err := usr.UpdateLimits(in.Update, in.ChangedBy, in.Reason, u.now())
		if err != nil {
			return err
		}
		if err := r.Users.SaveLimits(ctx, usr); err != nil {
			return err
		}
		if err := r.Users.AppendLimitHistory(ctx, changes); err != nil {
			return err
		}
		dto = &LimitsDTO{UserID: usr.UserID, Limits: usr.LoanLimits, Changes: changes}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

func (u *Usecase) History(ctx context.Context, userID string) (*HistoryDTO, error) {
	usr, err := u.getUser(ctx, u.users, userID, false)
	if err != nil {
		return nil, err
	}
	hist, err := u.users.ListLimitHistory(ctx, userID)
	if err != nil {
		return nil, err
	}
	if hist == nil {
		hist = []user.LimitChange{}
	}
	return &HistoryDTO{UserID: usr.UserID, Limits: usr.LoanLimits, History: hist, AsOf: u.now().UTC()}, nil
}

func (u *Usecase) getUser(ctx context.Context, repo user.Repository, userID string, forUpdate bool) (*user.User, error) {
	get := repo.GetByUserID
	if forUpdate {
		get = repo.GetByUserIDForUpdate
	}
	usr, err := get(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, user.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return usr, nil
}
