package gatewaymock

import (
	"context"
	"fmt"
	"sync"

	"cashloan-backend/internal/domain/gateway"
)

var _ gateway.PushGateway = (*Gateway)(nil)

// Gateway records every push. Without InitiateFn it accepts the push and
// returns sequential checkout ids.
type Gateway struct {
	InitiateFn func(ctx context.Context, req gateway.PushRequest) (*gateway.PushResult, error)

	mu    sync.Mutex
	Calls []gateway.PushRequest
}

func (m *Gateway) Initiate(ctx context.Context, req gateway.PushRequest) (*gateway.PushResult, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, req)
	n := len(m.Calls)
	m.mu.Unlock()
	if m.InitiateFn != nil {
		return m.InitiateFn(ctx, req)
	}
	return &gateway.PushResult{
		CorrelationID:     fmt.Sprintf("ws_CO_%04d", n),
		ProviderRequestID: fmt.Sprintf("mr-%04d", n),
		Phone:             req.Phone,
	}, nil
}
