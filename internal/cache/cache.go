package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Cache is the read-through cache the price resolver and project lookups sit
// behind. A zero expiration uses the backend's default TTL.
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration)
	Delete(ctx context.Context, key string)
	Flush(ctx context.Context)
}

// Key prefixes are versioned so a format change invalidates old entries.
const (
	PrefixPriceList = "pricelist:v1:"
	PrefixProject   = "project:v1:"
)

// GenerateKey joins a prefix and parameters into a colon-separated cache key.
func GenerateKey(prefix string, params ...interface{}) string {
	parts := make([]string, 0, len(params)+1)
	parts = append(parts, prefix)
	for _, p := range params {
		parts = append(parts, fmt.Sprintf("%v", p))
	}
	return strings.Join(parts, ":")
}
