package payment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"cashloan-backend/internal/domain/gateway"
	"cashloan-backend/internal/domain/loan"
	"cashloan-backend/internal/domain/lock"
	"cashloan-backend/internal/domain/uow"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type InitiateInput struct {
	UserID string
	LoanID string
	Phone  string
	Amount decimal.Decimal
}

type InitiateDTO struct {
	CorrelationID     string `json:"correlation_id"`
	MerchantRequestID string `json:"merchant_request_id"`
	LoanID            string `json:"loan_id"`
	Amount            string `json:"amount"`
	Phone             string `json:"phone"`
	Status            string `json:"status"`
}

type Usecase struct {
	loans   loan.Repository
	gw      gateway.PushGateway
	locker  lock.Locker
	uow     uow.UnitOfWork
	lockTTL time.Duration
	now     func() time.Time
}

func NewUsecase(loans loan.Repository, gw gateway.PushGateway, locker lock.Locker, tx uow.UnitOfWork, lockTTL time.Duration) *Usecase {
	return &Usecase{loans: loans, gw: gw, locker: locker, uow: tx, lockTTL: lockTTL, now: time.Now}
}

// AccountReference is the reference shown to the payer for a loan.
func AccountReference(loanID string) string {
	if len(loanID) > 6 {
		loanID = loanID[len(loanID)-6:]
	}
	return "LOAN-" + loanID
}

// Initiate pushes a payment prompt to the payer and records the pending request.
// Only one initiation per loan runs at a time; a concurrent one fails with lock.ErrBusy.
func (u *Usecase) Initiate(ctx context.Context, in InitiateInput) (*InitiateDTO, error) {
	if in.LoanID == "" || in.Phone == "" {
		return nil, fmt.Errorf("%w: loan id and phone are required", loan.ErrValidation)
	}

	release, err := u.locker.Acquire(ctx, lock.LoanInitiationKey(in.LoanID), u.lockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrBusy) {
			log.Printf("payment initiation for loan %s rejected: another initiation in progress", in.LoanID)
		}
		return nil, err
	}
	defer release()

	l, err := u.loans.GetByLoanID(ctx, in.LoanID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, loan.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if l.UserID != in.UserID {
		return nil, loan.ErrForbidden
	}
	if err := l.CanInitiatePayment(in.Amount); err != nil {
		return nil, err
	}

	res, err := u.gw.Initiate(ctx, gateway.PushRequest{
		Phone:            in.Phone,
		Amount:           in.Amount,
		AccountReference: AccountReference(l.LoanID),
		Description:      "Loan repayment",
	})
	if errors.Is(err, gateway.ErrInvalidRequest) {
		return nil, fmt.Errorf("%w: %v", loan.ErrValidation, err)
	}
	if err != nil {
		log.Printf("payment initiation for loan %s failed: %v", l.LoanID, err)
		return nil, err
	}

	var dto *InitiateDTO
	err = u.uow.WithinLoanTx(ctx, l.LoanID, func(r uow.Repos, locked *loan.Loan) error {
		pr, err := locked.AddPaymentRequest(res.CorrelationID, res.ProviderRequestID, res.Phone, in.Amount, u.now())
		if err != nil {
			return err
		}
		if err := r.Loans.AddPaymentRequest(ctx, pr); err != nil {
			return err
		}
		dto = &InitiateDTO{
			CorrelationID:     pr.CorrelationID,
			MerchantRequestID: pr.MerchantRequestID,
			LoanID:            locked.LoanID,
			Amount:            pr.Amount.StringFixed(2),
			Phone:             pr.Phone,
			Status:            string(pr.Status),
		}
		return nil
	})
	if err != nil {
		// the push is already on the payer's phone; its callback will be unknown
		log.Printf("payment request %s for loan %s not recorded: %v", res.CorrelationID, l.LoanID, err)
		return nil, err
	}
	log.Printf("payment request %s initiated for loan %s amount %s", dto.CorrelationID, dto.LoanID, dto.Amount)
	return dto, nil
}
