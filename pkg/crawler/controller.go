package crawler

import (
	"context"
	"fmt"
	"time"

	"ttscraper/pkg/config"
	"ttscraper/pkg/errors"
	"ttscraper/pkg/logger"
	"ttscraper/pkg/models"
	"ttscraper/pkg/retry"
)

// Fetcher performs one request for one page. Implementations must not retry.
type Fetcher interface {
	FetchPage(ctx context.Context, req models.PageRequest) models.PageResult
}

// FetcherFunc adapts a function to the Fetcher interface
type FetcherFunc func(ctx context.Context, req models.PageRequest) models.PageResult

func (f FetcherFunc) FetchPage(ctx context.Context, req models.PageRequest) models.PageResult {
	return f(ctx, req)
}

// Config holds the pagination, termination and retry policy of a crawl
type Config struct {
	PageSize           int
	EmptyPageThreshold int
	// HardAttemptCeiling bounds page fetches, only for crawls with an item limit
	HardAttemptCeiling int
	InterPageDelay     time.Duration
	// AdvanceOnEmpty moves the cursor by PageSize after an empty page
	AdvanceOnEmpty bool
	Retry          retry.Config
}

// DefaultConfig returns the policy observed to work against the listing endpoint
func DefaultConfig() Config {
	return Config{
		PageSize:           20,
		EmptyPageThreshold: 3,
		HardAttemptCeiling: 50,
		InterPageDelay:     500 * time.Millisecond,
		AdvanceOnEmpty:     true,
		Retry:              *retry.DefaultConfig(),
	}
}

// ConfigFromSettings builds a controller Config from the crawl section of the app config
func ConfigFromSettings(cc config.CrawlConfig) Config {
	return Config{
		PageSize:           cc.PageSize,
		EmptyPageThreshold: cc.EmptyPageThreshold,
		HardAttemptCeiling: cc.HardAttemptCeiling,
		InterPageDelay:     cc.InterPageDelay,
		AdvanceOnEmpty:     cc.AdvanceOnEmpty,
		Retry: retry.Config{
			MaxAttempts: cc.MaxAttempts,
			Backoff: &retry.ExponentialBackoff{
				BaseDelay:    cc.InitialBackoff,
				MaxDelay:     cc.MaxBackoff,
				Multiplier:   cc.BackoffFactor,
				JitterFactor: cc.BackoffJitter,
			},
			RetryIf: retry.DefaultRetryIf,
		},
	}
}

// Options are the per-crawl inputs
type Options struct {
	// PageSize overrides Config.PageSize when positive
	PageSize int
	// ItemLimit caps the number of items returned; nil means unlimited
	ItemLimit *int
	// StartCursor resumes from a previous run
	StartCursor int
	// Seen lists ids collected by a previous run; they are skipped as duplicates
	Seen []string
	// ItemCountHint is the advertised total, used for the completeness indicator
	ItemCountHint int
}

// Limit is a convenience for building Options.ItemLimit
func Limit(n int) *int {
	return &n
}

// Progress is reported after every page fetch
type Progress struct {
	Page     int
	Cursor   int
	NewItems []models.RawItem
	Total    int
	State    State
}

// ProgressFunc receives per-page progress. It runs on the crawl goroutine.
type ProgressFunc func(Progress)

// Controller drives a cursor-paginated crawl for one account at a time.
// A Controller may run several crawls concurrently; each crawl keeps its own state.
type Controller struct {
	fetcher  Fetcher
	cfg      Config
	logger   logger.Logger
	observer ProgressFunc
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewController creates a controller fetching pages through f
func NewController(f Fetcher, cfg Config, log logger.Logger) *Controller {
	if log == nil {
		log = logger.GetLogger()
	}
	defaults := DefaultConfig()
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaults.PageSize
	}
	if cfg.EmptyPageThreshold <= 0 {
		cfg.EmptyPageThreshold = defaults.EmptyPageThreshold
	}
	if cfg.HardAttemptCeiling <= 0 {
		cfg.HardAttemptCeiling = defaults.HardAttemptCeiling
	}
	if cfg.InterPageDelay < 0 {
		cfg.InterPageDelay = 0
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry.MaxAttempts = defaults.Retry.MaxAttempts
	}
	if cfg.Retry.Logger == nil {
		cfg.Retry.Logger = log
	}

	return &Controller{
		fetcher: f,
		cfg:     cfg,
		logger:  log,
		sleep:   retry.Wait,
	}
}

// WithObserver returns a copy of the controller that reports progress to fn
func (c *Controller) WithObserver(fn ProgressFunc) *Controller {
	cp := *c
	cp.observer = fn
	return &cp
}

// Config returns the effective policy
func (c *Controller) Config() Config {
	return c.cfg
}

// Crawl fetches every page for handle until end of data, the item limit,
// a terminal error, the attempt ceiling or cancellation.
//
// The returned Result is never nil. On cancellation it carries the items
// collected so far next to an error wrapping ctx.Err(). A crawl that ends on
// a terminal error with nothing collected returns errors.ErrNoData.
func (c *Controller) Crawl(ctx context.Context, handle models.ResourceHandle, opts Options) (*Result, error) {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = c.cfg.PageSize
	}

	log := c.logger.WithFields(map[string]interface{}{
		"handle":    string(handle),
		"page_size": pageSize,
	})

	st := newCrawlState(opts.StartCursor, opts.Seen)
	result := func(state State, lastErr error) *Result {
		return &Result{
			Items:         st.Accumulated,
			State:         state,
			ReachedLimit:  state == LimitReached,
			FinalCursor:   st.Cursor,
			Pages:         st.Attempts,
			EmptyPages:    st.emptyPages,
			Duplicates:    st.duplicates,
			MissingIDs:    st.missingIDs,
			LastError:     lastErr,
			ItemCountHint: opts.ItemCountHint,
		}
	}

	if opts.ItemLimit != nil && *opts.ItemLimit <= 0 {
		log.Debug("Item limit is zero, nothing to fetch")
		return result(LimitReached, nil), nil
	}

	log.InfoWithFields("Starting crawl", map[string]interface{}{
		"cursor": st.Cursor,
		"limit":  limitField(opts.ItemLimit),
	})

	state := Running
	for {
		if err := ctx.Err(); err != nil {
			return c.cancelled(log, result, err)
		}

		if opts.ItemLimit != nil && st.Attempts >= c.cfg.HardAttemptCeiling {
			log.WarnWithFields("Hard attempt ceiling reached", map[string]interface{}{
				"pages": st.Attempts,
				"total": len(st.Accumulated),
			})
			return result(Done, nil), nil
		}

		req := models.PageRequest{Handle: handle, Cursor: st.Cursor, PageSize: pageSize}
		page, err := c.fetchWithRetry(ctx, req)
		st.Attempts++

		if ctxErr := ctx.Err(); ctxErr != nil {
			return c.cancelled(log, result, ctxErr)
		}

		var fresh []models.RawItem
		switch {
		case err != nil:
			if len(st.Accumulated) > 0 {
				log.WithError(err).WarnWithFields("Page failed, keeping partial result", map[string]interface{}{
					"cursor": st.Cursor,
					"total":  len(st.Accumulated),
				})
				c.report(st, fresh, Done)
				return result(Done, err), nil
			}
			log.WithError(err).Error("Page failed before any item was collected")
			c.report(st, fresh, Aborted)
			return result(Aborted, err), fmt.Errorf("%w: %w", errors.ErrNoData, err)

		case page.Outcome == models.OutcomeEmpty:
			st.ConsecutiveEmpty++
			st.emptyPages++
			if st.ConsecutiveEmpty >= c.cfg.EmptyPageThreshold {
				log.InfoWithFields("Consecutive empty pages, end of data", map[string]interface{}{
					"empty_pages": st.ConsecutiveEmpty,
					"total":       len(st.Accumulated),
				})
				c.report(st, fresh, Done)
				return result(Done, nil), nil
			}
			if c.cfg.AdvanceOnEmpty {
				st.advance(st.Cursor + pageSize)
			}
			state = Draining
			log.DebugWithFields("Empty page", map[string]interface{}{
				"consecutive": st.ConsecutiveEmpty,
				"next_cursor": st.Cursor,
			})
			c.report(st, fresh, state)
			// Empty pages are re-probed without the politeness delay
			continue

		default:
			st.ConsecutiveEmpty = 0
			missing := st.missingIDs
			fresh = st.add(page.Items)
			if st.missingIDs > missing {
				log.WarnWithFields("Skipping items without an id", map[string]interface{}{
					"cursor":  st.Cursor,
					"skipped": st.missingIDs - missing,
				})
			}

			if opts.ItemLimit != nil && len(st.Accumulated) >= *opts.ItemLimit {
				excess := len(st.Accumulated) - *opts.ItemLimit
				st.truncate(*opts.ItemLimit)
				fresh = fresh[:len(fresh)-excess]
				// stop right after the last kept item so a resume fetches the dropped ones
				st.advance(st.Cursor + consumedThrough(page.Items, fresh))
				log.InfoWithFields("Item limit reached", map[string]interface{}{
					"limit": *opts.ItemLimit,
					"pages": st.Attempts,
				})
				c.report(st, fresh, LimitReached)
				return result(LimitReached, nil), nil
			}

			c.advanceCursor(st, page, len(page.Items))
			state = Running
			if !page.HasMore {
				log.Debug("Server reports no more items, continuing until empty pages confirm it")
			}
			logger.LogCrawlProgress(log, string(handle), st.Attempts, st.Cursor, len(fresh), len(st.Accumulated))
			c.report(st, fresh, state)
		}

		if err := c.sleep(ctx, c.cfg.InterPageDelay); err != nil {
			return c.cancelled(log, result, err)
		}
	}
}

// consumedThrough counts the page items up to and including the last kept one,
// duplicates and id-less items before it included
func consumedThrough(items, kept []models.RawItem) int {
	if len(kept) == 0 {
		return 0
	}
	last := kept[len(kept)-1].ID
	for i, item := range items {
		if item.ID == last {
			return i + 1
		}
	}
	return len(items)
}

// advanceCursor adopts an explicit next cursor when it moves forward,
// otherwise advances by the number of items received
func (c *Controller) advanceCursor(st *CrawlState, page models.PageResult, received int) {
	if page.NextCursor != nil && *page.NextCursor > st.Cursor {
		st.advance(*page.NextCursor)
		return
	}
	st.advance(st.Cursor + received)
}

// fetchWithRetry runs one page fetch under the retry policy. Transient
// outcomes are retried, terminal outcomes bail at once, success and empty
// return immediately.
func (c *Controller) fetchWithRetry(ctx context.Context, req models.PageRequest) (models.PageResult, error) {
	return retry.DoWithResult(ctx, func(ctx context.Context) (models.PageResult, error) {
		page := c.fetcher.FetchPage(ctx, req)
		switch page.Outcome {
		case models.OutcomeSuccess, models.OutcomeEmpty:
			return page, nil
		}
		if page.Err == nil {
			return page, errors.New(errors.ErrorTypeUnknown, 0, "fetch failed without an error")
		}
		return page, page.Err
	}, &c.cfg.Retry)
}

func (c *Controller) cancelled(log logger.Logger, result func(State, error) *Result, cause error) (*Result, error) {
	res := result(Cancelled, cause)
	log.WarnWithFields("Crawl cancelled", map[string]interface{}{
		"total":  len(res.Items),
		"cursor": res.FinalCursor,
	})
	return res, fmt.Errorf("crawl cancelled: %w", cause)
}

func (c *Controller) report(st *CrawlState, fresh []models.RawItem, state State) {
	if c.observer == nil {
		return
	}
	c.observer(Progress{
		Page:     st.Attempts,
		Cursor:   st.Cursor,
		NewItems: fresh,
		Total:    len(st.Accumulated),
		State:    state,
	})
}

func limitField(limit *int) interface{} {
	if limit == nil {
		return "unlimited"
	}
	return *limit
}
