package redis

import (
	"context"
	"testing"

	"github.com/wonny/compounder/pkg/config"
)

func disabledClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(&config.Config{
		Redis: config.RedisConfig{Enabled: false},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client
}

func TestNewClient_Disabled(t *testing.T) {
	client := disabledClient(t)

	if client.Enabled() {
		t.Error("Expected client to be disabled")
	}

	// Close on a disabled client must not panic
	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(disabledClient(t), "test")
	budget := FMPMinuteBudget(280)

	// When Redis is disabled, all requests should be allowed
	allowed, remaining, err := limiter.Allow(context.Background(), budget)
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !allowed {
		t.Error("Expected request to be allowed when Redis disabled")
	}
	if remaining != budget.Limit {
		t.Errorf("Expected remaining = %d, got %d", budget.Limit, remaining)
	}
}

func TestBudgetWaiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(disabledClient(t), "test")
	waiter := BudgetWaiter{Limiter: limiter, Config: FMPMinuteBudget(10)}

	if err := waiter.Wait(context.Background()); err != nil {
		t.Errorf("Wait() error = %v", err)
	}
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(disabledClient(t), "test")

	// When Redis is disabled, cache operations should be no-ops
	var result string
	found, err := cache.Get(context.Background(), "key", &result)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found {
		t.Error("Expected cache miss when Redis disabled")
	}

	if err := cache.Set(context.Background(), "key", "value", TTLQuote); err != nil {
		t.Errorf("Set() error = %v", err)
	}
}

func TestFMPMinuteBudget(t *testing.T) {
	budget := FMPMinuteBudget(280)

	if budget.Key != "fmp" {
		t.Errorf("Expected key fmp, got %s", budget.Key)
	}
	if budget.Limit != 280 {
		t.Errorf("Expected limit 280, got %d", budget.Limit)
	}
}

func TestCacheKeys(t *testing.T) {
	tests := []struct {
		name     string
		fn       func() string
		expected string
	}{
		{
			name:     "QuoteKey",
			fn:       func() string { return QuoteKey("AAPL") },
			expected: "quote:AAPL",
		},
		{
			name:     "ProfileKey",
			fn:       func() string { return ProfileKey("BRK-B") },
			expected: "profile:BRK-B",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}
