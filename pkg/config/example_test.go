package config_test

import (
	"fmt"

	"github.com/wonny/compounder/pkg/config"
)

// Example demonstrates how to use the config package
func Example() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		return
	}

	fmt.Printf("Environment: %s\n", cfg.Env)
	fmt.Printf("Provider: %s\n", cfg.FMP.BaseURL)
	fmt.Printf("Rate limit: %.1f calls/sec (burst %d)\n", cfg.FMP.RateLimit, cfg.FMP.RateBurst)
	fmt.Printf("Fundamentals TTL: %s\n", cfg.Cache.FundamentalsTTL)
}
