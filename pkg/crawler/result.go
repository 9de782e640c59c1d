package crawler

import "ttscraper/pkg/models"

// Result is the outcome of one crawl
type Result struct {
	Items        []models.RawItem
	State        State
	ReachedLimit bool
	// FinalCursor is where a resumed crawl should start
	FinalCursor int
	Pages       int
	EmptyPages  int
	Duplicates  int
	// MissingIDs counts items skipped because they carried no id
	MissingIDs int
	// LastError is the page failure that ended a partial crawl, if any
	LastError     error
	ItemCountHint int
}

// Completeness is the share of the advertised item count that was collected,
// capped at 1. It returns -1 when no hint is known.
func (r *Result) Completeness() float64 {
	if r.ItemCountHint <= 0 {
		return -1
	}
	ratio := float64(len(r.Items)) / float64(r.ItemCountHint)
	if ratio > 1 {
		return 1
	}
	return ratio
}

// Complete reports whether the crawl stopped for a normal reason and,
// when a hint is known, collected at least the advertised count
func (r *Result) Complete() bool {
	switch r.State {
	case LimitReached:
		return true
	case Done:
		if r.LastError != nil {
			return false
		}
		return r.ItemCountHint <= 0 || len(r.Items) >= r.ItemCountHint
	default:
		return false
	}
}
