package http

import (
	"errors"
	"log"
	"net/http"

	"cashloan-backend/internal/domain/gateway"
	"cashloan-backend/internal/domain/loan"
	"cashloan-backend/internal/domain/lock"
	"cashloan-backend/internal/domain/user"
	"cashloan-backend/internal/usecase/limits"

	"github.com/labstack/echo/v4"
)

// writeError maps domain errors to HTTP codes.
func writeError(c echo.Context, err error) error {
	var limitErr *limits.LimitExceededError
	var gwErr *gateway.Error
	switch {
	case errors.As(err, &limitErr):
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "loan limit exceeded", Violations: limitErr.Violations})
	case errors.Is(err, loan.ErrValidation), errors.Is(err, user.ErrInvalidLimits), errors.Is(err, gateway.ErrInvalidRequest):
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
	case errors.Is(err, loan.ErrNotFound), errors.Is(err, user.ErrNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, loan.ErrForbidden):
		return c.JSON(http.StatusForbidden, ErrorResponse{Error: err.Error()})
	case errors.Is(err, loan.ErrInvalidTransition), errors.Is(err, loan.ErrActiveLoanExists), errors.Is(err, loan.ErrPaymentRequestSettled):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, lock.ErrBusy):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: "another request for this resource is in progress"})
	case errors.As(err, &gwErr):
		log.Printf("gateway %s failed: %v", gwErr.Op, gwErr)
		msg := gwErr.Message
		if msg == "" {
			msg = "unavailable"
		}
		return c.JSON(http.StatusBadGateway, ErrorResponse{Error: "payment gateway error: " + msg})
	default:
		log.Printf("%s %s: %v", c.Request().Method, c.Path(), err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

// bindAndValidate decodes the body into req and runs the validator.
// When ok is false the error response has been written and err is the write result.
func bindAndValidate(c echo.Context, req any) (ok bool, err error) {
	if err := c.Bind(req); err != nil {
		return false, c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(req); err != nil {
		return false, c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	return true, nil
}
