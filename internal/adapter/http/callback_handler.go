package http

import (
	"io"
	"log"
	"net/http"

	"cashloan-backend/internal/adapter/gateway/mpesa"
	"cashloan-backend/internal/usecase/reconcile"

	"github.com/labstack/echo/v4"
)

const maxCallbackBytes = 64 << 10

// callbackAck is the only response the gateway ever gets; anything else makes it retry.
var callbackAck = map[string]any{"ResultCode": 0, "ResultDesc": "Accepted"}

type CallbackHandler struct{ uc *reconcile.Usecase }

func NewCallbackHandler(uc *reconcile.Usecase) *CallbackHandler { return &CallbackHandler{uc: uc} }

// Callback receives STK push results. It always acknowledges with 200;
// duplicates, unknown ids and failures are logged and dropped.
func (h *CallbackHandler) Callback(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxCallbackBytes))
	if err != nil {
		log.Printf("callback: read body: %v", err)
		return c.JSON(http.StatusOK, callbackAck)
	}
	cb, err := mpesa.ParseCallback(body)
	if err != nil {
		log.Printf("callback: %s: %v", reconcile.ReasonMalformed, err)
		return c.JSON(http.StatusOK, callbackAck)
	}

	res, err := h.uc.Apply(c.Request().Context(), *cb)
	if err != nil {
		log.Printf("callback %s: apply failed: %v", cb.CorrelationID, err)
		return c.JSON(http.StatusOK, callbackAck)
	}
	log.Printf("callback %s: applied=%t reason=%s loan=%s status=%s",
		cb.CorrelationID, res.Applied, res.Reason, res.LoanID, res.Status)
	return c.JSON(http.StatusOK, callbackAck)
}
