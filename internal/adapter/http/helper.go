package http

import (
	"net/http"

	"cashloan-backend/pkg/id"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// pathID reads a 32-hex path param; on failure the 400 response is already written.
func pathID(c echo.Context, name string) (string, bool, error) {
	v := c.Param(name)
	if v == "" {
		return "", false, c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing " + name + " path param"})
	}
	if !id.Valid(v) {
		return "", false, c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + name + " path param"})
	}
	return v, true, nil
}

// money converts a validated JSON number to a 2-place decimal.
func money(f float64) decimal.Decimal { return decimal.NewFromFloat(f).Round(2) }

func optionalMoney(f *float64) *decimal.Decimal {
	if f == nil {
		return nil
	}
	d := money(*f)
	return &d
}
