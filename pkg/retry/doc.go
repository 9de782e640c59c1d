// Package retry provides bounded retries with exponential backoff.
//
//	page, err := retry.DoWithResult(ctx, func(ctx context.Context) (models.PageResult, error) {
//		return fetch(ctx)
//	}, &retry.Config{
//		MaxAttempts: 10,
//		Backoff:     retry.DefaultExponentialBackoff(),
//		Logger:      log,
//	})
//
// DefaultRetryIf retries network, signing, rate limit, server and parsing
// errors. Not found, resource exhausted and auth errors return immediately
// without spending the remaining budget. Context errors are never retried.
//
// When the budget is spent the last error is returned wrapped, so
// errors.As still reaches the typed error underneath.
package retry
