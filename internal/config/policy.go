package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// OrderPolicy bounds the quantity and rate accepted on order admission.
type OrderPolicy struct {
	MinQuantity int     `mapstructure:"min_quantity"`
	MaxQuantity int     `mapstructure:"max_quantity"`
	MinRate     float64 `mapstructure:"min_rate"`
}

func DefaultOrderPolicy() OrderPolicy {
	return OrderPolicy{
		MinQuantity: 1,
		MaxQuantity: 1000,
		MinRate:     0.01,
	}
}

// MinRateDecimal returns MinRate rounded to cents.
func (p OrderPolicy) MinRateDecimal() decimal.Decimal {
	return decimal.NewFromFloat(p.MinRate).Round(2)
}

type OrderPolicyHolder struct {
	current atomic.Value // holds OrderPolicy
}

// NewStaticOrderPolicyHolder returns a holder that never reloads.
func NewStaticOrderPolicyHolder(policy OrderPolicy) *OrderPolicyHolder {
	holder := &OrderPolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func NewOrderPolicyHolder() (*OrderPolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("orders")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/orderdesk")
	v.AddConfigPath(".")

	v.SetEnvPrefix("ORDERDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultOrderPolicy()
	v.SetDefault("orders.min_quantity", defaults.MinQuantity)
	v.SetDefault("orders.max_quantity", defaults.MaxQuantity)
	v.SetDefault("orders.min_rate", defaults.MinRate)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	var policy OrderPolicy
	if err := v.UnmarshalKey("orders", &policy); err != nil {
		return nil, err
	}
	if err := validateOrderPolicy(policy); err != nil {
		return nil, err
	}

	holder := NewStaticOrderPolicyHolder(policy)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated OrderPolicy
		if err := v.UnmarshalKey("orders", &updated); err != nil {
			log.Printf("[order-policy] reload failed: %v", err)
			return
		}
		if err := validateOrderPolicy(updated); err != nil {
			log.Printf("[order-policy] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[order-policy] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *OrderPolicyHolder) Get() OrderPolicy {
	if h == nil {
		return DefaultOrderPolicy()
	}
	policy, ok := h.current.Load().(OrderPolicy)
	if !ok {
		return DefaultOrderPolicy()
	}
	return policy
}

func validateOrderPolicy(p OrderPolicy) error {
	if p.MinQuantity < 1 {
		return errors.New("orders.min_quantity must be at least 1")
	}
	if p.MaxQuantity < p.MinQuantity {
		return errors.New("orders.max_quantity must not be below orders.min_quantity")
	}
	if p.MinRate <= 0 {
		return errors.New("orders.min_rate must be positive")
	}
	return nil
}
