// Package ratelimit throttles outgoing requests to the remote service.
//
// TokenBucket wraps golang.org/x/time/rate. One bucket is shared by every
// crawl in the process, so batch runs stay within the same budget as a
// single crawl:
//
//	limiter := ratelimit.NewTokenBucket(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.BurstSize)
//	if err := limiter.Wait(ctx); err != nil {
//		return err
//	}
package ratelimit
