package crawler

import "ttscraper/pkg/models"

// State is a crawl's position in the pagination state machine
type State int

const (
	// Running means the last page carried items
	Running State = iota
	// Draining means at least one but fewer than the threshold of consecutive empty pages were seen
	Draining
	// Done is a terminal success, possibly partial
	Done
	// Aborted is a terminal failure with nothing collected
	Aborted
	// LimitReached means the caller's item limit was met
	LimitReached
	// Cancelled means the caller cancelled the crawl
	Cancelled
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Draining:
		return "draining"
	case Done:
		return "done"
	case Aborted:
		return "aborted"
	case LimitReached:
		return "limit_reached"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further pages will be fetched
func (s State) Terminal() bool {
	return s != Running && s != Draining
}

// CrawlState is the mutable state threaded through one crawl.
// len(Accumulated) == len(SeenIDs) at all times and Cursor never decreases.
type CrawlState struct {
	Cursor           int
	Accumulated      []models.RawItem
	SeenIDs          map[string]struct{}
	ConsecutiveEmpty int
	Attempts         int

	// prior holds ids collected by an earlier run being resumed
	prior      map[string]struct{}
	duplicates int
	missingIDs int
	emptyPages int
}

func newCrawlState(cursor int, prior []string) *CrawlState {
	s := &CrawlState{
		Cursor:  cursor,
		SeenIDs: make(map[string]struct{}),
		prior:   make(map[string]struct{}, len(prior)),
	}
	for _, id := range prior {
		s.prior[id] = struct{}{}
	}
	return s
}

// add appends items whose ids were never seen, in arrival order, and returns them.
// Items without an id cannot be deduplicated and are skipped.
func (s *CrawlState) add(items []models.RawItem) []models.RawItem {
	var fresh []models.RawItem
	for _, item := range items {
		if item.ID == "" {
			s.missingIDs++
			continue
		}
		if _, ok := s.SeenIDs[item.ID]; ok {
			s.duplicates++
			continue
		}
		if _, ok := s.prior[item.ID]; ok {
			s.duplicates++
			continue
		}
		s.SeenIDs[item.ID] = struct{}{}
		s.Accumulated = append(s.Accumulated, item)
		fresh = append(fresh, item)
	}
	return fresh
}

// truncate keeps the first n accumulated items
func (s *CrawlState) truncate(n int) {
	if len(s.Accumulated) <= n {
		return
	}
	for _, item := range s.Accumulated[n:] {
		delete(s.SeenIDs, item.ID)
	}
	s.Accumulated = s.Accumulated[:n]
}

// advance moves the cursor forward, never backward
func (s *CrawlState) advance(to int) {
	if to > s.Cursor {
		s.Cursor = to
	}
}
