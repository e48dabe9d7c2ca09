package mpesa

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cashloan-backend/internal/domain/gateway"

	"github.com/shopspring/decimal"
)

var ErrMalformedCallback = errors.New("malformed stk callback")

// Metadata item names, as sent by the provider.
const (
	ItemAmount          = "Amount"
	ItemReceipt         = "MpesaReceiptNumber"
	ItemTransactionDate = "TransactionDate"
	ItemPhoneNumber     = "PhoneNumber"
)

type CallbackItem struct {
	Name  string `json:"Name"`
	Value any    `json:"Value,omitempty"`
}

type StkCallback struct {
	MerchantRequestID string `json:"MerchantRequestID"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
	ResultCode        int    `json:"ResultCode"`
	ResultDesc        string `json:"ResultDesc"`
	CallbackMetadata  *struct {
		Item []CallbackItem `json:"Item"`
	} `json:"CallbackMetadata,omitempty"`
}

type CallbackEnvelope struct {
	Body struct {
		StkCallback StkCallback `json:"stkCallback"`
	} `json:"Body"`
}

// ParseCallback decodes the provider's callback envelope. Numbers are kept
// exact so amounts and phone numbers never pass through float64.
func ParseCallback(body []byte) (*gateway.Callback, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var env CallbackEnvelope
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCallback, err)
	}
	stk := env.Body.StkCallback
	if stk.CheckoutRequestID == "" {
		return nil, fmt.Errorf("%w: missing CheckoutRequestID", ErrMalformedCallback)
	}

	cb := &gateway.Callback{
		CorrelationID:     stk.CheckoutRequestID,
		MerchantRequestID: stk.MerchantRequestID,
		ResultCode:        stk.ResultCode,
		ResultDesc:        stk.ResultDesc,
	}
	if stk.CallbackMetadata == nil {
		return cb, nil
	}
	for _, it := range stk.CallbackMetadata.Item {
		v := itemString(it.Value)
		switch it.Name {
		case ItemAmount:
			amt, err := decimal.NewFromString(v)
			if err != nil {
				return nil, fmt.Errorf("%w: amount %q: %v", ErrMalformedCallback, v, err)
			}
			cb.Amount = amt
		case ItemReceipt:
			cb.Receipt = v
		case ItemTransactionDate:
			cb.TransactionDate = v
		case ItemPhoneNumber:
			cb.Phone = v
		}
	}
	return cb, nil
}

func itemString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case json.Number:
		return t.String()
	case string:
		return strings.TrimSpace(t)
	default:
		return fmt.Sprint(t)
	}
}
