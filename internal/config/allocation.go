package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// AllocationConfig carries the numbering-policy constants shared by the
// range store, the allocator and the settlement engine.
type AllocationConfig struct {
	// NumberingFloor is the minimum consignment number the whole system
	// will ever hand out. Grants below it are rejected.
	NumberingFloor int64 `mapstructure:"numberingFloor"`
	// MaxRangeSize bounds how many numbers a single grant may carry.
	MaxRangeSize int64 `mapstructure:"maxRangeSize"`
	// CommissionRatePerKg is the settlement commission rate in currency
	// units per kilogram.
	CommissionRatePerKg float64 `mapstructure:"commissionRatePerKg"`
	// MaxAttempts bounds the allocate-and-record retry loop.
	MaxAttempts int `mapstructure:"maxAttempts"`
}

func DefaultAllocationConfig() AllocationConfig {
	return AllocationConfig{
		NumberingFloor:      100_000_000,
		MaxRangeSize:        10_000,
		CommissionRatePerKg: 10,
		MaxAttempts:         5,
	}
}

// AllocationConfigHolder serves the current allocation config and hot-reloads
// it when the backing file changes.
type AllocationConfigHolder struct {
	current atomic.Value // holds AllocationConfig
}

// NewStaticAllocationConfig wraps a fixed config, bypassing file watching.
// Intended for tests and embedded use.
func NewStaticAllocationConfig(cfg AllocationConfig) *AllocationConfigHolder {
	holder := &AllocationConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewAllocationConfigHolder() (*AllocationConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("allocation")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/shipdesk/config")
	v.AddConfigPath("/etc/shipdesk")
	v.AddConfigPath(".")

	v.SetEnvPrefix("SHIPDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultAllocationConfig()
	v.SetDefault("allocation.numberingFloor", defaults.NumberingFloor)
	v.SetDefault("allocation.maxRangeSize", defaults.MaxRangeSize)
	v.SetDefault("allocation.commissionRatePerKg", defaults.CommissionRatePerKg)
	v.SetDefault("allocation.maxAttempts", defaults.MaxAttempts)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg AllocationConfig
	if err := v.UnmarshalKey("allocation", &cfg); err != nil {
		return nil, err
	}
	if err := validateAllocationConfig(cfg); err != nil {
		return nil, err
	}

	holder := &AllocationConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated AllocationConfig
		if err := v.UnmarshalKey("allocation", &updated); err != nil {
			log.Printf("[allocation-config] reload failed: %v", err)
			return
		}
		if err := validateAllocationConfig(updated); err != nil {
			log.Printf("[allocation-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[allocation-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *AllocationConfigHolder) Get() AllocationConfig {
	value := h.current.Load()
	if value == nil {
		return DefaultAllocationConfig()
	}
	return value.(AllocationConfig)
}

func validateAllocationConfig(cfg AllocationConfig) error {
	if cfg.NumberingFloor <= 0 {
		return errors.New("allocation.numberingFloor must be positive")
	}
	if cfg.MaxRangeSize <= 0 {
		return errors.New("allocation.maxRangeSize must be positive")
	}
	if cfg.CommissionRatePerKg < 0 {
		return errors.New("allocation.commissionRatePerKg cannot be negative")
	}
	if cfg.MaxAttempts <= 0 {
		return errors.New("allocation.maxAttempts must be positive")
	}
	return nil
}
