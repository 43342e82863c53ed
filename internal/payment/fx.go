package payment

import (
	"github.com/tokomart/tokomart/internal/config"
	"github.com/tokomart/tokomart/internal/payment/adapters"
	"github.com/tokomart/tokomart/internal/payment/adapters/paypal"
	paymentdomain "github.com/tokomart/tokomart/internal/payment/domain"
	"go.uber.org/fx"
)

func NewRegistry() *adapters.Registry {
	return adapters.NewRegistry(
		paypal.NewFactory(),
	)
}

func NewGateway(cfg config.Config, registry *adapters.Registry) (paymentdomain.Gateway, error) {
	return registry.NewAdapter("paypal", paymentdomain.AdapterConfig{
		BaseURL:      cfg.PayPal.BaseURL,
		ClientID:     cfg.PayPal.ClientID,
		ClientSecret: cfg.PayPal.ClientSecret,
		Timeout:      cfg.PayPal.Timeout,
	})
}

var Module = fx.Module("payment.gateway",
	fx.Provide(NewRegistry),
	fx.Provide(NewGateway),
	fx.Provide(NewMetrics),
)
