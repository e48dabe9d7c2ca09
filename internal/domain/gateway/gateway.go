package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidRequest is returned before anything is sent to the provider.
var ErrInvalidRequest = errors.New("invalid push request")

// PushGateway submits push payments to the payer's phone.
type PushGateway interface {
	Initiate(ctx context.Context, req PushRequest) (*PushResult, error)
}

type PushRequest struct {
	Phone            string
	Amount           decimal.Decimal
	AccountReference string
	Description      string
}

type PushResult struct {
	// CorrelationID is the provider's checkout id and the reconciliation key.
	CorrelationID     string
	ProviderRequestID string
	// Phone is the normalized number the push was sent to.
	Phone string
}

// Error is a credential, transport or provider failure during initiation.
type Error struct {
	Op         string
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Code != "" {
		return fmt.Sprintf("gateway %s failed (%s): %s", e.Op, e.Code, msg)
	}
	return fmt.Sprintf("gateway %s failed: %s", e.Op, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// ResultCodeSuccess is the provider result code of a completed push.
const ResultCodeSuccess = 0

// Callback is the provider's asynchronous report on a push.
type Callback struct {
	CorrelationID     string
	MerchantRequestID string
	ResultCode        int
	ResultDesc        string
	Amount            decimal.Decimal
	Receipt           string
	Phone             string
	TransactionDate   string
}

func (c Callback) Succeeded() bool { return c.ResultCode == ResultCodeSuccess }
