// Package reconcile applies asynchronous gateway callbacks to loans.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"cashloan-backend/internal/domain/gateway"
	"cashloan-backend/internal/domain/loan"
	"cashloan-backend/internal/domain/uow"

	"gorm.io/gorm"
)

type Reason string

const (
	ReasonApplied                   Reason = "applied"
	ReasonGatewayFailure            Reason = "gateway_failure"
	ReasonAlreadyProcessedOrUnknown Reason = "already_processed_or_unknown"
	ReasonMalformed                 Reason = "malformed_callback"
)

type Result struct {
	Applied bool        `json:"applied"`
	Reason  Reason      `json:"reason"`
	LoanID  string      `json:"loan_id,omitempty"`
	Status  loan.Status `json:"status,omitempty"`
}

type Usecase struct {
	uow uow.UnitOfWork
	now func() time.Time
}

func NewUsecase(tx uow.UnitOfWork) *Usecase { return &Usecase{uow: tx, now: time.Now} }

// Apply settles the pending request named by cb.CorrelationID exactly once.
//
// The loan owning the request is locked, the aggregate checks the request is
// still pending, and the storage moves it out of pending with a conditional
// update that must touch exactly one row. Any other outcome rolls the whole
// transaction back, so duplicate deliveries are no-ops.
func (u *Usecase) Apply(ctx context.Context, cb gateway.Callback) (*Result, error) {
	if cb.CorrelationID == "" || (cb.Succeeded() && !cb.Amount.IsPositive()) {
		log.Printf("callback rejected as malformed: correlation=%q result=%d amount=%s", cb.CorrelationID, cb.ResultCode, cb.Amount)
		return &Result{Reason: ReasonMalformed}, nil
	}

	res := &Result{}
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		l, err := r.Loans.GetByCorrelationIDForUpdate(ctx, cb.CorrelationID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return loan.ErrUnknownPaymentRequest
		}
		if err != nil {
			return err
		}
		res.LoanID = l.LoanID
		now := u.now()

		var p *loan.Payment
		if cb.Succeeded() {
			p, err = l.ApplyGatewayPayment(loan.GatewayPayment{
				CorrelationID:   cb.CorrelationID,
				Amount:          cb.Amount,
				Receipt:         cb.Receipt,
				Phone:           cb.Phone,
				TransactionDate: cb.TransactionDate,
			}, now)
		} else {
			_, err = l.FailPaymentRequest(cb.CorrelationID, failureReason(cb), now)
		}
		if err != nil {
			return err
		}

		settled, err := r.Loans.SettlePaymentRequest(ctx, l.FindPaymentRequest(cb.CorrelationID), now)
		if err != nil {
			return err
		}
		if !settled {
			return loan.ErrPaymentRequestSettled
		}
		if p != nil {
			if err := l.CheckInvariants(); err != nil {
				return fmt.Errorf("loan %s: %w", l.LoanID, err)
			}
			if err := r.Loans.Save(ctx, l); err != nil {
				return err
			}
			if err := r.Loans.AppendPayment(ctx, p); err != nil {
				return err
			}
		}
		res.Status = l.Status
		return nil
	})

	switch {
	case errors.Is(err, loan.ErrUnknownPaymentRequest), errors.Is(err, loan.ErrPaymentRequestSettled):
		log.Printf("callback %s ignored: %v", cb.CorrelationID, err)
		return &Result{Reason: ReasonAlreadyProcessedOrUnknown, LoanID: res.LoanID}, nil
	case err != nil:
		return nil, fmt.Errorf("reconcile %s: %w", cb.CorrelationID, err)
	case !cb.Succeeded():
		log.Printf("callback %s: push failed for loan %s (%s)", cb.CorrelationID, res.LoanID, failureReason(cb))
		res.Reason = ReasonGatewayFailure
		return res, nil
	default:
		log.Printf("callback %s: applied %s to loan %s, status %s", cb.CorrelationID, cb.Amount.StringFixed(2), res.LoanID, res.Status)
		res.Applied = true
		res.Reason = ReasonApplied
		return res, nil
	}
}

const maxFailureReason = 255

func failureReason(cb gateway.Callback) string {
	reason := fmt.Sprintf("result code %d", cb.ResultCode)
	if cb.ResultDesc != "" {
		reason = fmt.Sprintf("%d: %s", cb.ResultCode, cb.ResultDesc)
	}
	if len(reason) > maxFailureReason {
		reason = reason[:maxFailureReason]
	}
	return reason
}
