package admin

import (
	"time"

	"github.com/shopspring/decimal"
)

type ManualPaymentInput struct {
	LoanID    string
	Amount    decimal.Decimal
	Reference string
	AdminID   string
}

type DefaultInput struct {
	LoanID  string
	Reason  string
	AdminID string
}

type RepaymentDateInput struct {
	LoanID        string
	RepaymentDate time.Time
	AdminID       string
}

type CategoryInput struct {
	LoanID   string
	Category string
	AdminID  string
}

type ApplicationDateInput struct {
	LoanID          string
	ApplicationDate time.Time
	AdminID         string
}
