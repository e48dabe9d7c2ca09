package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"cashloan-backend/internal/adapter/middleware"
	domainLoan "cashloan-backend/internal/domain/loan"
	"cashloan-backend/internal/usecase/admin"
	loanuc "cashloan-backend/internal/usecase/loan"

	"github.com/labstack/echo/v4"
)

// AdminHandler serves the loan routes under /api/admin. The acting admin is the token subject.
type AdminHandler struct{ uc *admin.Usecase }

func NewAdminHandler(uc *admin.Usecase) *AdminHandler { return &AdminHandler{uc: uc} }

var loanStatuses = map[string]domainLoan.Status{
	"pending":        domainLoan.StatusPending,
	"approved":       domainLoan.StatusApproved,
	"rejected":       domainLoan.StatusRejected,
	"partially_paid": domainLoan.StatusPartiallyPaid,
	"partially paid": domainLoan.StatusPartiallyPaid,
	"fully_paid":     domainLoan.StatusFullyPaid,
	"fully paid":     domainLoan.StatusFullyPaid,
	"defaulted":      domainLoan.StatusDefaulted,
}

// ListLoans accepts ?status=a,b with either "fully paid" or "fully_paid".
func (h *AdminHandler) ListLoans(c echo.Context) error {
	var statuses []domainLoan.Status
	if raw := strings.TrimSpace(c.QueryParam("status")); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			st, ok := loanStatuses[strings.ToLower(strings.TrimSpace(s))]
			if !ok {
				return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unknown status " + strings.TrimSpace(s)})
			}
			statuses = append(statuses, st)
		}
	}
	dtos, err := h.uc.ListLoans(c.Request().Context(), statuses...)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"loans": dtos, "count": len(dtos)})
}

func (h *AdminHandler) GetLoan(c echo.Context) error {
	loanID, ok, err := pathID(c, "loan_id")
	if !ok {
		return err
	}
	dto, err := h.uc.GetLoan(c.Request().Context(), loanID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *AdminHandler) ListUserLoans(c echo.Context) error {
	userID, ok, err := pathID(c, "user_id")
	if !ok {
		return err
	}
	dtos, err := h.uc.ListUserLoans(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"user_id": userID, "loans": dtos, "count": len(dtos)})
}

type loanAction func(ctx context.Context, loanID, adminID string) (*loanuc.LoanDTO, error)

// byLoanID adapts the admin actions that need nothing beyond the loan id.
func byLoanID(action loanAction) echo.HandlerFunc {
	return func(c echo.Context) error {
		loanID, ok, err := pathID(c, "loan_id")
		if !ok {
			return err
		}
		dto, err := action(c.Request().Context(), loanID, middleware.Subject(c))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, dto)
	}
}

func (h *AdminHandler) Approve(c echo.Context) error       { return byLoanID(h.uc.Approve)(c) }
func (h *AdminHandler) Reject(c echo.Context) error        { return byLoanID(h.uc.Reject)(c) }
func (h *AdminHandler) MarkFullyPaid(c echo.Context) error { return byLoanID(h.uc.MarkFullyPaid)(c) }
func (h *AdminHandler) Extend(c echo.Context) error        { return byLoanID(h.uc.ExtendRepayment)(c) }

type manualPaymentReq struct {
	Amount    float64 `json:"amount"    validate:"required,gt=0,dec2"`
	Reference string  `json:"reference" validate:"max=64"`
}

func (h *AdminHandler) ManualPayment(c echo.Context) error {
	loanID, ok, err := pathID(c, "loan_id")
	if !ok {
		return err
	}
	var req manualPaymentReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	dto, err := h.uc.RecordManualPayment(c.Request().Context(), admin.ManualPaymentInput{
		LoanID:    loanID,
		Amount:    money(req.Amount),
		Reference: req.Reference,
		AdminID:   middleware.Subject(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

type markDefaultedReq struct {
	Reason string `json:"reason" validate:"max=255"`
}

func (h *AdminHandler) MarkDefaulted(c echo.Context) error {
	loanID, ok, err := pathID(c, "loan_id")
	if !ok {
		return err
	}
	var req markDefaultedReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	dto, err := h.uc.MarkDefaulted(c.Request().Context(), admin.DefaultInput{
		LoanID: loanID, Reason: req.Reason, AdminID: middleware.Subject(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

type repaymentDateReq struct {
	RepaymentDate string `json:"repayment_date" validate:"required,datetime=2006-01-02"`
}

func (h *AdminHandler) RepaymentDate(c echo.Context) error {
	loanID, ok, err := pathID(c, "loan_id")
	if !ok {
		return err
	}
	var req repaymentDateReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	d, _ := time.Parse(time.DateOnly, req.RepaymentDate)
	dto, err := h.uc.EditRepaymentDate(c.Request().Context(), admin.RepaymentDateInput{
		LoanID: loanID, RepaymentDate: d, AdminID: middleware.Subject(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

type applicationDateReq struct {
	ApplicationDate string `json:"application_date" validate:"required,datetime=2006-01-02"`
}

func (h *AdminHandler) ApplicationDate(c echo.Context) error {
	loanID, ok, err := pathID(c, "loan_id")
	if !ok {
		return err
	}
	var req applicationDateReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	d, _ := time.Parse(time.DateOnly, req.ApplicationDate)
	dto, err := h.uc.EditApplicationDate(c.Request().Context(), admin.ApplicationDateInput{
		LoanID: loanID, ApplicationDate: d, AdminID: middleware.Subject(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

type categoryReq struct {
	Category string `json:"category" validate:"required,oneof=permanent casual"`
}

func (h *AdminHandler) Category(c echo.Context) error {
	loanID, ok, err := pathID(c, "loan_id")
	if !ok {
		return err
	}
	var req categoryReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	dto, err := h.uc.AssignCategory(c.Request().Context(), admin.CategoryInput{
		LoanID: loanID, Category: req.Category, AdminID: middleware.Subject(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}
