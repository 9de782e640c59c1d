package logger

import (
	"time"
)

// LogRequest logs one HTTP round trip against the remote service
func LogRequest(l Logger, method, url string, statusCode int, duration time.Duration) {
	fields := map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": statusCode,
		"duration_ms": duration.Milliseconds(),
	}

	switch {
	case statusCode >= 200 && statusCode < 300:
		l.DebugWithFields("HTTP request completed", fields)
	case statusCode >= 400 && statusCode < 500:
		l.WarnWithFields("HTTP request client error", fields)
	case statusCode >= 500:
		l.ErrorWithFields("HTTP request server error", fields)
	default:
		l.DebugWithFields("HTTP request finished", fields)
	}
}

// LogRetry logs a retried attempt
func LogRetry(l Logger, operation string, attempt, maxAttempts int, delay time.Duration, err error) {
	l.WithError(err).WarnWithFields("Retrying operation", map[string]interface{}{
		"operation":    operation,
		"attempt":      attempt,
		"max_attempts": maxAttempts,
		"delay_ms":     delay.Milliseconds(),
	})
}

// LogCrawlProgress logs per-page crawl progress
func LogCrawlProgress(l Logger, handle string, page, cursor, newItems, total int) {
	l.InfoWithFields("Page collected", map[string]interface{}{
		"handle":    handle,
		"page":      page,
		"cursor":    cursor,
		"new_items": newItems,
		"total":     total,
	})
}

// LogRateLimit logs a rate limited response
func LogRateLimit(l Logger, endpoint string, retryAfter time.Duration) {
	l.WithFields(map[string]interface{}{
		"endpoint":    endpoint,
		"retry_after": retryAfter,
		"action":      "rate_limited",
	}).Warn("Rate limit reached, backing off")
}
