package http

import (
	"net/http"

	"cashloan-backend/internal/adapter/middleware"
	"cashloan-backend/internal/domain/user"
	"cashloan-backend/internal/usecase/limits"

	"github.com/labstack/echo/v4"
)

type LimitsHandler struct{ uc *limits.Usecase }

func NewLimitsHandler(uc *limits.Usecase) *LimitsHandler { return &LimitsHandler{uc: uc} }

// zero disables a limit
type updateLimitsReq struct {
	MaxTotalLoanAmount      *float64 `json:"max_total_loan_amount"       validate:"omitempty,gte=0,dec2"`
	MaxActiveLoans          *int     `json:"max_active_loans"            validate:"omitempty,gte=0"`
	MaxLoanAmountPerRequest *float64 `json:"max_loan_amount_per_request" validate:"omitempty,gte=0,dec2"`
	Reason                  string   `json:"reason"                      validate:"max=255"`
}

func (h *LimitsHandler) Update(c echo.Context) error {
	userID, ok, err := pathID(c, "user_id")
	if !ok {
		return err
	}
	var req updateLimitsReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	dto, err := h.uc.UpdateLimits(c.Request().Context(), limits.UpdateLimitsInput{
		UserID: userID,
		Update: user.LimitUpdate{
			MaxTotalLoanAmount:      optionalMoney(req.MaxTotalLoanAmount),
			MaxActiveLoans:          req.MaxActiveLoans,
			MaxLoanAmountPerRequest: optionalMoney(req.MaxLoanAmountPerRequest),
		},
		ChangedBy: middleware.Subject(c),
		Reason:    req.Reason,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LimitsHandler) History(c echo.Context) error {
	userID, ok, err := pathID(c, "user_id")
	if !ok {
		return err
	}
	dto, err := h.uc.History(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

type eligibilityReq struct {
	LoanAmount float64 `json:"loan_amount" validate:"required,gt=0,dec2"`
}

// CheckEligibility is a dry run of the limit gate; it never writes.
func (h *LimitsHandler) CheckEligibility(c echo.Context) error {
	userID, ok, err := pathID(c, "user_id")
	if !ok {
		return err
	}
	var req eligibilityReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	dto, err := h.uc.CheckEligibilityByUserID(c.Request().Context(), userID, money(req.LoanAmount))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}
