package crawler

import (
	"context"
	"fmt"
	"sort"

	"ttscraper/pkg/errors"
	"ttscraper/pkg/models"
)

// DefaultProbeSizes are the page sizes tried when calibrating
var DefaultProbeSizes = []int{10, 16, 20, 30, 35, 50}

// Probe is the outcome of requesting the first page at one page size
type Probe struct {
	PageSize int
	Returned int
	Outcome  models.PageOutcome
	Err      error
}

// Calibration summarises a page size probe run
type Calibration struct {
	Probes []Probe
	// Recommended is the largest size the endpoint filled completely
	Recommended int
}

// Calibrate requests the first page of handle at each size and recommends
// the largest size for which the endpoint returned a full page. The endpoint
// silently caps page sizes, so the ceiling has to be measured, not trusted.
func (c *Controller) Calibrate(ctx context.Context, handle models.ResourceHandle, sizes []int) (*Calibration, error) {
	if len(sizes) == 0 {
		sizes = DefaultProbeSizes
	}
	sorted := append([]int(nil), sizes...)
	sort.Ints(sorted)

	log := c.logger.WithField("handle", string(handle))
	cal := &Calibration{}
	var full, most Probe

	for i, size := range sorted {
		if size <= 0 {
			continue
		}
		if i > 0 {
			if err := c.sleep(ctx, c.cfg.InterPageDelay); err != nil {
				return cal, fmt.Errorf("calibration cancelled: %w", err)
			}
		}

		page, err := c.fetchWithRetry(ctx, models.PageRequest{Handle: handle, Cursor: 0, PageSize: size})
		if ctxErr := ctx.Err(); ctxErr != nil {
			return cal, fmt.Errorf("calibration cancelled: %w", ctxErr)
		}

		probe := Probe{PageSize: size, Returned: len(page.Items), Outcome: page.Outcome, Err: err}
		cal.Probes = append(cal.Probes, probe)
		log.InfoWithFields("Probed page size", map[string]interface{}{
			"page_size": size,
			"returned":  probe.Returned,
			"outcome":   page.Outcome.String(),
		})

		if errors.IsTerminal(err) {
			return cal, fmt.Errorf("%w: %w", errors.ErrNoData, err)
		}

		if probe.Returned > 0 && probe.Returned >= probe.PageSize {
			full = probe
		}
		if probe.Returned > most.Returned {
			most = probe
		}
	}

	switch {
	case full.Returned > 0:
		cal.Recommended = full.PageSize
	case most.Returned > 0:
		cal.Recommended = most.PageSize
	default:
		return cal, errors.ErrNoData
	}
	return cal, nil
}
