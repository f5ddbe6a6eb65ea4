package domain

import "time"

// Decision is the outcome of a rate limit check. When denied, RetryAfter
// tells the caller how long until the oldest window slot expires.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
	Remaining  int
}

// RateLimiter decides, per caller identity, whether a new analysis may start.
// Check is atomic: an allowed check records the request in the same critical
// section, so concurrent calls cannot jointly exceed the limit. A denied
// check consumes no slot.
type RateLimiter interface {
	Check(identity string) Decision
}
