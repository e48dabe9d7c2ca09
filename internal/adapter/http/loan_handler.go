package http

import (
	"net/http"
	"time"

	"cashloan-backend/internal/adapter/middleware"
	"cashloan-backend/internal/usecase/loan"
	"cashloan-backend/internal/usecase/payment"

	"github.com/labstack/echo/v4"
)

// LoanHandler serves the borrower routes. The borrower is always the token subject.
type LoanHandler struct {
	uc       *loan.Usecase
	payments *payment.Usecase
}

func NewLoanHandler(uc *loan.Usecase, payments *payment.Usecase) *LoanHandler {
	return &LoanHandler{uc: uc, payments: payments}
}

type applyLoanReq struct {
	LoanAmount float64 `json:"loan_amount" validate:"required,gt=0,dec2"`
}

func (h *LoanHandler) Apply(c echo.Context) error {
	var req applyLoanReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	dto, err := h.uc.Apply(c.Request().Context(), loan.ApplyInput{
		UserID:     middleware.Subject(c),
		LoanAmount: money(req.LoanAmount),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *LoanHandler) List(c echo.Context) error {
	dtos, err := h.uc.List(c.Request().Context(), middleware.Subject(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"loans": dtos, "count": len(dtos)})
}

func (h *LoanHandler) Get(c echo.Context) error {
	loanID, ok, err := pathID(c, "loan_id")
	if !ok {
		return err
	}
	dto, err := h.uc.Get(c.Request().Context(), middleware.Subject(c), loanID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

type editLoanReq struct {
	LoanAmount float64 `json:"loan_amount" validate:"required,gt=0,dec2"`
	// canonical date `YYYY-MM-DD`
	RepaymentDate string `json:"repayment_date" validate:"omitempty,datetime=2006-01-02"`
}

func (h *LoanHandler) Edit(c echo.Context) error {
	loanID, ok, err := pathID(c, "loan_id")
	if !ok {
		return err
	}
	var req editLoanReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	in := loan.EditInput{
		UserID:     middleware.Subject(c),
		LoanID:     loanID,
		LoanAmount: money(req.LoanAmount),
	}
	if req.RepaymentDate != "" {
		d, _ := time.Parse(time.DateOnly, req.RepaymentDate)
		in.RepaymentDate = &d
	}
	dto, err := h.uc.Edit(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) Delete(c echo.Context) error {
	loanID, ok, err := pathID(c, "loan_id")
	if !ok {
		return err
	}
	if err := h.uc.Delete(c.Request().Context(), middleware.Subject(c), loanID); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type initiatePaymentReq struct {
	Phone  string  `json:"phone"  validate:"required,kephone"`
	Amount float64 `json:"amount" validate:"required,gt=0,lte=70000,intlike"`
}

// InitiatePayment sends an STK push for the loan. The response only means the
// push was accepted; the loan changes when the callback arrives.
func (h *LoanHandler) InitiatePayment(c echo.Context) error {
	loanID, ok, err := pathID(c, "loan_id")
	if !ok {
		return err
	}
	var req initiatePaymentReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	dto, err := h.payments.Initiate(c.Request().Context(), payment.InitiateInput{
		UserID: middleware.Subject(c),
		LoanID: loanID,
		Phone:  req.Phone,
		Amount: money(req.Amount),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusAccepted, dto)
}
