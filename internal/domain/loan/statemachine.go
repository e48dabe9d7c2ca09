package loan

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// transitions lists every legal status change. Same-state entries are repeat
// payments on a partially paid loan.
var transitions = map[Status][]Status{
	StatusPending:       {StatusApproved, StatusRejected},
	StatusApproved:      {StatusPartiallyPaid, StatusFullyPaid, StatusDefaulted},
	StatusPartiallyPaid: {StatusPartiallyPaid, StatusFullyPaid, StatusDefaulted},
	StatusRejected:      {StatusPending},
	// administrative correction only, see MarkFullyPaid
	StatusDefaulted: {StatusFullyPaid},
}

func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func IsTerminal(s Status) bool {
	return s == StatusRejected || s == StatusFullyPaid || s == StatusDefaulted
}

func IsActive(s Status) bool {
	for _, a := range ActiveStatuses {
		if a == s {
			return true
		}
	}
	return false
}

// Editable reports whether the borrower may still edit or delete the loan.
func (l *Loan) Editable() bool {
	return l.Status == StatusPending || l.Status == StatusRejected
}

// AcceptsPayments reports whether repayments move the loan through the state machine.
func (l *Loan) AcceptsPayments() bool {
	return l.Status == StatusApproved || l.Status == StatusPartiallyPaid
}

// RepaymentStatus derives the status a loan in repayment should hold for the given balance.
func RepaymentStatus(remaining decimal.Decimal) Status {
	if remaining.LessThanOrEqual(decimal.Zero) {
		return StatusFullyPaid
	}
	return StatusPartiallyPaid
}

func (l *Loan) transition(to Status, at time.Time) error {
	if !CanTransition(l.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, l.Status, to)
	}
	l.Status = to
	l.StateUpdatedAt = at.UTC()
	return nil
}
