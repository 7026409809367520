package models

// Plans form a closed set; anything else is rejected at the service layer.
const (
	PlanFree    = "free"
	PlanPremium = "premium"
)

const (
	// FreeGroupCap is the schema-level default of 5 broadcast targets.
	FreeGroupCap = 5
	// PremiumGroupCap lifts the target cap for paid accounts.
	PremiumGroupCap = 50

	// DefaultIntervalMinutes matches the users.interval_minutes column default.
	DefaultIntervalMinutes = 60

	// GroupBatchLimit caps how many links one bulk add may carry.
	GroupBatchLimit = 5
)

const (
	// DefaultNonceTTL limits how long a login handoff nonce stays claimable.
	DefaultNonceTTL = 10 * 60 // seconds

	// RateLimitRequests / RateLimitWindow bound per-user write traffic.
	RateLimitRequests = 20
	RateLimitWindow   = 60 // seconds
)

// DefaultAllowedIntervals are the broadcast intervals the panel offers.
var DefaultAllowedIntervals = []int{30, 45, 60}

// ValidPlan reports membership in the closed plan set.
func ValidPlan(plan string) bool {
	return plan == PlanFree || plan == PlanPremium
}
