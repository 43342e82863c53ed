package payment

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	paymentdomain "github.com/tokomart/tokomart/internal/payment/domain"
)

// Metrics tracks provider call outcomes by taxonomy code.
type Metrics struct {
	captures *prometheus.CounterVec
	orders   *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		captures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_capture_total",
			Help: "Capture attempts by provider and outcome code.",
		}, []string{"provider", "code"}),
		orders: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_order_create_total",
			Help: "Order creations by provider and outcome code.",
		}, []string{"provider", "code"}),
	}
}

func (m *Metrics) ObserveCapture(provider string, err error) {
	if m == nil {
		return
	}
	m.captures.WithLabelValues(provider, outcomeCode(err)).Inc()
}

func (m *Metrics) ObserveOrderCreate(provider string, err error) {
	if m == nil {
		return
	}
	m.orders.WithLabelValues(provider, outcomeCode(err)).Inc()
}

func outcomeCode(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, paymentdomain.ErrPaymentDeclined):
		return "payment_declined"
	case errors.Is(err, paymentdomain.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, paymentdomain.ErrCardExpired):
		return "card_expired"
	case errors.Is(err, paymentdomain.ErrNotApproved):
		return "not_approved"
	case errors.Is(err, paymentdomain.ErrAlreadyCaptured):
		return "already_captured"
	case errors.Is(err, paymentdomain.ErrOrderCreateFailed):
		return "order_create_failed"
	case errors.Is(err, paymentdomain.ErrCaptureTimeout):
		return "capture_timeout"
	default:
		return "error"
	}
}
