package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ServicePlan describes the billing terms of one paid add-on service.
type ServicePlan struct {
	ServiceType     string `mapstructure:"serviceType"`
	PeriodMonths    int    `mapstructure:"periodMonths"`
	RenewWindowDays int    `mapstructure:"renewWindowDays"`
	Amount          int64  `mapstructure:"amount"`
	RenewalAmount   int64  `mapstructure:"renewalAmount"`
	Currency        string `mapstructure:"currency"`
}

type ServicePlanConfig struct {
	Plans []ServicePlan `mapstructure:"plans"`
}

func DefaultServicePlanConfig() ServicePlanConfig {
	return ServicePlanConfig{
		Plans: []ServicePlan{
			{ServiceType: "store_manager", PeriodMonths: 1, RenewWindowDays: 7, Amount: 150_000, RenewalAmount: 150_000, Currency: "USD"},
			{ServiceType: "seller_plan", PeriodMonths: 1, RenewWindowDays: 7, Amount: 90_000, RenewalAmount: 90_000, Currency: "USD"},
		},
	}
}

// ServicePlanHolder serves the current plan table and hot-reloads it when
// the mounted config file changes.
type ServicePlanHolder struct {
	current atomic.Value // holds ServicePlanConfig
}

func NewServicePlanHolder() (*ServicePlanHolder, error) {
	v := viper.New()

	v.SetConfigName("serviceplans")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/tokomart/config")
	v.AddConfigPath("/etc/tokomart")
	v.AddConfigPath(".")

	v.SetEnvPrefix("TOKOMART")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultServicePlanConfig()
		v.SetDefault("services.plans", defaults.Plans)
	}

	var cfg ServicePlanConfig
	if err := v.UnmarshalKey("services", &cfg); err != nil {
		return nil, err
	}
	if err := validateServicePlanConfig(cfg); err != nil {
		return nil, err
	}

	holder := &ServicePlanHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated ServicePlanConfig
		if err := v.UnmarshalKey("services", &updated); err != nil {
			log.Printf("[serviceplan-config] reload failed: %v", err)
			return
		}
		if err := validateServicePlanConfig(updated); err != nil {
			log.Printf("[serviceplan-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[serviceplan-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticServicePlanHolder returns a holder with a fixed config.
func NewStaticServicePlanHolder(cfg ServicePlanConfig) *ServicePlanHolder {
	holder := &ServicePlanHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *ServicePlanHolder) Get() ServicePlanConfig {
	return h.current.Load().(ServicePlanConfig)
}

// Plan returns the plan for a service type, falling back to defaults when
// the type is not configured.
func (h *ServicePlanHolder) Plan(serviceType string) (ServicePlan, bool) {
	for _, plan := range h.Get().Plans {
		if plan.ServiceType == serviceType {
			return plan, true
		}
	}
	for _, plan := range DefaultServicePlanConfig().Plans {
		if plan.ServiceType == serviceType {
			return plan, true
		}
	}
	return ServicePlan{}, false
}

func validateServicePlanConfig(cfg ServicePlanConfig) error {
	if len(cfg.Plans) == 0 {
		return errors.New("services.plans cannot be empty")
	}
	for _, plan := range cfg.Plans {
		if strings.TrimSpace(plan.ServiceType) == "" {
			return errors.New("services.plans serviceType cannot be empty")
		}
		if plan.PeriodMonths <= 0 {
			return errors.New("services.plans periodMonths must be positive")
		}
		if plan.RenewWindowDays < 0 {
			return errors.New("services.plans renewWindowDays cannot be negative")
		}
		if plan.Amount <= 0 {
			return errors.New("services.plans amount must be positive")
		}
	}
	return nil
}
