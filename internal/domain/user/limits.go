package user

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var ErrInvalidLimits = errors.New("invalid loan limits")

// LimitUpdate carries the limits an admin wants to change; nil fields are left alone.
type LimitUpdate struct {
	MaxTotalLoanAmount      *decimal.Decimal
	MaxActiveLoans          *int
	MaxLoanAmountPerRequest *decimal.Decimal
}

func (u LimitUpdate) Empty() bool {
	return u.MaxTotalLoanAmount == nil && u.MaxActiveLoans == nil && u.MaxLoanAmountPerRequest == nil
}

func (u LimitUpdate) validate() error {
	if u.Empty() {
		return fmt.Errorf("%w: at least one limit value must be provided", ErrInvalidLimits)
	}
	if v := u.MaxTotalLoanAmount; v != nil && v.IsNegative() {
		return fmt.Errorf("%w: %s must not be negative", ErrInvalidLimits, LimitMaxTotalLoanAmount)
	}
	if v := u.MaxActiveLoans; v != nil && *v < 0 {
		return fmt.Errorf("%w: %s must not be negative", ErrInvalidLimits, LimitMaxActiveLoans)
	}
	if v := u.MaxLoanAmountPerRequest; v != nil && v.IsNegative() {
		return fmt.Errorf("%w: %s must not be negative", ErrInvalidLimits, LimitMaxLoanAmountPerRequest)
	}
	return nil
}

// UpdateLimits applies upd and returns one history entry per changed limit.
func (u *User) UpdateLimits(upd LimitUpdate, changedBy, reason string, at time.Time) ([]LimitChange, error) {
	if err := upd.validate(); err != nil {
		return nil, err
	}
	if reason == "" {
		reason = "No reason provided"
	}
	at = at.UTC()
	var changes []LimitChange
	record := func(limitType string, oldValue, newValue decimal.Decimal) {
		changes = append(changes, LimitChange{
			UserID:       u.UserID,
			LimitType:    limitType,
			OldValue:     oldValue,
			NewValue:     newValue,
			ChangedBy:    changedBy,
			ChangeReason: reason,
			ChangedAt:    at,
		})
	}

	if v := upd.MaxTotalLoanAmount; v != nil {
		record(LimitMaxTotalLoanAmount, u.LoanLimits.MaxTotalLoanAmount, *v)
		u.LoanLimits.MaxTotalLoanAmount = *v
	}
	if v := upd.MaxActiveLoans; v != nil {
		record(LimitMaxActiveLoans, decimal.NewFromInt(int64(u.LoanLimits.MaxActiveLoans)), decimal.NewFromInt(int64(*v)))
		u.LoanLimits.MaxActiveLoans = *v
	}
	if v := upd.MaxLoanAmountPerRequest; v != nil {
		record(LimitMaxLoanAmountPerRequest, u.LoanLimits.MaxLoanAmountPerRequest, *v)
		u.LoanLimits.MaxLoanAmountPerRequest = *v
	}

	u.LoanLimits.LimitsUpdatedAt = &at
	u.LoanLimits.LimitsUpdatedBy = changedBy
	return changes, nil
}
