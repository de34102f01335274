package utils

import (
	"time"
)

// ContextKey is the type of request-scoped values stored by handlers
type ContextKey string

// Request context keys
const (
	RequestIDKey ContextKey = "request_id"
	UserAgentKey ContextKey = "user_agent"
	IPAddressKey ContextKey = "ip_address"
	EndpointKey  ContextKey = "endpoint"
	TimeoutKey   ContextKey = "timeout"
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Price domain constants
const (
	// NationalProvinceID is the sentinel province for the nationwide aggregate
	NationalProvinceID = "NATIONAL"

	// NationalProvinceName is the display name seeded for NationalProvinceID
	NationalProvinceName = "National Aggregate"

	// MinLevelHargaID and MaxLevelHargaID bound the upstream price level taxonomy
	MinLevelHargaID = 1
	MaxLevelHargaID = 5

	// DefaultLevelHargaID is the consumer price level
	DefaultLevelHargaID = 3

	// DefaultQueryLimit is used when a price query does not set a limit
	DefaultQueryLimit = 50

	// MaxQueryLimit caps a single page of price records
	MaxQueryLimit = 1000

	// MinQueryYear is the earliest year accepted in price query date filters
	MinQueryYear = 2000
)

// Cache keys
const (
	PriceQueryCacheKey = "prices:query"
)

// DefaultRequestTimeout bounds handler work
const DefaultRequestTimeout = 30 * time.Second
