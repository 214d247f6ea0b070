// Package ratelimit throttles incoming scrape requests.
//
// TokenBucket wraps golang.org/x/time/rate and is what the HTTP service uses
// to answer 429 once callers exceed their budget. KeyedLimiter holds one
// bucket per client address and, with WithIdleTTL, forgets clients that went quiet.
//
//	limiter := ratelimit.PerMinute(30, 5)
//	if !limiter.Allow() {
//	    // reject
//	}
package ratelimit
