package api

import (
	"sync"

	"golang.org/x/time/rate"
)

// clientLimiter hands out one token bucket per service client key so a
// misbehaving integration cannot starve the login bot or the admin tooling.
type clientLimiter struct {
	buckets sync.Map
	rps     rate.Limit
	burst   int
}

func newClientLimiter(rps float64, burst int) *clientLimiter {
	if burst <= 0 {
		burst = 5
	}
	return &clientLimiter{rps: rate.Limit(rps), burst: burst}
}

func (l *clientLimiter) allow(clientKey string) bool {
	if v, ok := l.buckets.Load(clientKey); ok {
		return v.(*rate.Limiter).Allow()
	}

	lim := rate.NewLimiter(l.rps, l.burst)
	actual, _ := l.buckets.LoadOrStore(clientKey, lim)
	return actual.(*rate.Limiter).Allow()
}
