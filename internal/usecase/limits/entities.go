package limits

import (
	"fmt"
	"strings"
	"time"

	"cashloan-backend/internal/domain/user"

	"github.com/shopspring/decimal"
)

type Violation struct {
	LimitType    string          `json:"limit_type"`
	LimitValue   decimal.Decimal `json:"limit_value"`
	CurrentValue decimal.Decimal `json:"current_value"`
}

type Usage struct {
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
	ActiveLoanCount  int             `json:"active_loan_count"`
}

type Eligibility struct {
	Eligible   bool            `json:"eligible"`
	Violations []Violation     `json:"violations"`
	Usage      Usage           `json:"current_usage"`
	Limits     user.LoanLimits `json:"limits"`
}

// LimitExceededError rejects a loan application; it carries every violated limit.
type LimitExceededError struct {
	Violations []Violation
}

func (e *LimitExceededError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s (limit %s, current %s)", v.LimitType, v.LimitValue.String(), v.CurrentValue.String()))
	}
	return "loan limit exceeded: " + strings.Join(parts, ", ")
}

type UpdateLimitsInput struct {
	UserID    string
	Update    user.LimitUpdate
	ChangedBy string
	Reason    string
}

type LimitsDTO struct {
	UserID  string             `json:"user_id"`
	Limits  user.LoanLimits    `json:"limits"`
	Changes []user.LimitChange `json:"changes"`
}

type HistoryDTO struct {
	UserID  string             `json:"user_id"`
	Limits  user.LoanLimits    `json:"limits"`
	History []user.LimitChange `json:"history"`
	AsOf    time.Time          `json:"as_of"`
}
