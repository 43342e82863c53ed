// Package domain defines the payment gateway contract and the closed error
// taxonomy the rest of the system depends on for messaging and retry policy.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// CreateOrderRequest asks the provider to open an order for one billing
// period of a paid service.
type CreateOrderRequest struct {
	ShopID      snowflake.ID
	ServiceType string
	Amount      int64
	Currency    string
	IsRenewal   bool
}

// CaptureResult is the normalized outcome of a successful provider capture.
type CaptureResult struct {
	ProviderOrderID string
	Amount          int64
	Currency        string
	PaymentMethod   string
	PayerEmail      string
	CapturedAt      time.Time
}

// Gateway wraps a payment provider's order-create/order-capture API.
// Implementations never leak provider error strings; every failure is one
// of the sentinel errors below.
type Gateway interface {
	Provider() string
	CreateOrder(ctx context.Context, req CreateOrderRequest) (string, error)
	CaptureOrder(ctx context.Context, providerOrderID string) (CaptureResult, error)
}

// AdapterConfig carries injected provider credentials. No module-level
// client id constants.
type AdapterConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
	Config       map[string]any
}

type AdapterFactory interface {
	Provider() string
	NewAdapter(cfg AdapterConfig) (Gateway, error)
}

var (
	ErrPaymentDeclined   = errors.New("payment_declined")
	ErrInsufficientFunds = errors.New("insufficient_funds")
	ErrCardExpired       = errors.New("card_expired")
	ErrNotApproved       = errors.New("not_approved")
	ErrAlreadyCaptured   = errors.New("already_captured")
	ErrOrderCreateFailed = errors.New("order_create_failed")
	ErrCaptureTimeout    = errors.New("capture_timeout")
	ErrInvalidSession    = errors.New("invalid_session")
	ErrProviderNotFound  = errors.New("provider_not_found")
	ErrInvalidConfig     = errors.New("invalid_config")
)
