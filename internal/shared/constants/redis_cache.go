package constants

import (
	"fmt"
	"time"
)

// Redis Cache Configuration
// This file centralizes all Redis keys and TTL values for the ClinicBook application
// Pattern: clinicbook:{module}:{operation}:{identifier}:{params?}

// ================== CACHE TTL DURATIONS ==================

// Static Data (Long TTL: rarely changes)
const (
	TTL_STATIC_LONG   = 24 * time.Hour // 24 hours - for very stable data
	TTL_STATIC_MEDIUM = 12 * time.Hour // 12 hours - for catalog metadata
)

// Semi-Static Data (Medium TTL: changes occasionally)
const (
	TTL_SEMI_STATIC_SHORT = 1 * time.Hour    // 1 hour - for resource listings
	TTL_SEMI_STATIC_QUICK = 15 * time.Minute // 15 minutes - for fee schedules
)

// Dynamic Data (Short TTL: changes frequently)
const (
	TTL_DYNAMIC_MEDIUM = 10 * time.Minute // 10 minutes - for reservation lists
	TTL_DYNAMIC_SHORT  = 5 * time.Minute  // 5 minutes - for slot availability grids
)

// ================== REDIS KEY PREFIXES ==================

const (
	CACHE_PREFIX = "clinicbook"
)

// ================== CATALOG MODULE ==================

// Catalog Cache Keys
const (
	CACHE_KEY_RESOURCE_LIST   = CACHE_PREFIX + ":catalog:resources:list"
	CACHE_KEY_RESOURCE_DETAIL = CACHE_PREFIX + ":catalog:resource:uuid:" // + resource-id
)

// Catalog Cache TTLs
const (
	TTL_RESOURCE_LIST   = TTL_SEMI_STATIC_SHORT // 1 hour
	TTL_RESOURCE_DETAIL = TTL_SEMI_STATIC_SHORT // 1 hour
)

// ================== RESERVATIONS MODULE ==================

// Reservation flow keys. The idempotency record pins a client retry key
// to the reservation its first attempt created.
const (
	KEY_IDEMPOTENCY_PREFIX = CACHE_PREFIX + ":idempotency:" // + caller-id:key
)

// ================== RATE LIMITING ==================

const (
	KEY_RATELIMIT_PREFIX = CACHE_PREFIX + ":ratelimit:" // + limit-type:client-ip
)

// ================== CACHE INVALIDATION PATTERNS ==================

const (
	PATTERN_INVALIDATE_CATALOG_ALL = CACHE_PREFIX + ":catalog:*"
)

// ================== HELPER FUNCTIONS ==================

func BuildResourceDetailKey(resourceID string) string {
	return CACHE_KEY_RESOURCE_DETAIL + resourceID
}

func BuildIdempotencyKey(callerID, key string) string {
	return KEY_IDEMPOTENCY_PREFIX + callerID + ":" + key
}

func BuildRateLimitKey(limitType, clientIP string) string {
	return fmt.Sprintf("%s%s:%s", KEY_RATELIMIT_PREFIX, limitType, clientIP)
}
