package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"ttscraper/pkg/crawler"
)

// ProgressDisplay renders per-page crawl progress for one account.
// In line mode every page gets its own line, which keeps the output readable
// when several accounts are crawled at once.
type ProgressDisplay struct {
	mu         sync.Mutex
	out        io.Writer
	username   string
	expected   int
	resumed    int
	pages      int
	total      int
	emptyPages int
	cursor     int
	startTime  time.Time
	lineMode   bool
}

// NewProgressDisplay creates a display writing to out
func NewProgressDisplay(out io.Writer, username string, lineMode bool) *ProgressDisplay {
	return &ProgressDisplay{
		out:       out,
		username:  username,
		startTime: time.Now(),
		lineMode:  lineMode,
	}
}

// SetExpected sets the advertised post count; zero means unknown
func (p *ProgressDisplay) SetExpected(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expected = n
}

// SetResumed sets the number of posts a resumed crawl starts with
func (p *ProgressDisplay) SetResumed(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resumed = n
}

// Update consumes one page of progress. It satisfies crawler.ProgressFunc.
func (p *ProgressDisplay) Update(pr crawler.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pages = pr.Page
	p.total = p.resumed + pr.Total
	p.cursor = pr.Cursor
	if len(pr.NewItems) == 0 && pr.State == crawler.Draining {
		p.emptyPages++
	}

	if p.lineMode {
		p.printLine(pr)
		return
	}
	p.printProgress()
}

// printProgress redraws the single status line
func (p *ProgressDisplay) printProgress() {
	line := fmt.Sprintf("%s %s %s • page %d • %.1f/min",
		Cyan("@"+p.username),
		p.bar(),
		p.counts(),
		p.pages,
		p.rate(),
	)
	if eta := p.eta(); eta != "" {
		line += " • " + eta
	}
	if p.emptyPages > 0 {
		line += " • " + Dim(fmt.Sprintf("%d empty", p.emptyPages))
	}
	fmt.Fprintf(p.out, "\r%s\r%s", strings.Repeat(" ", 100), line)
}

func (p *ProgressDisplay) printLine(pr crawler.Progress) {
	marker := Green("✓")
	if len(pr.NewItems) == 0 {
		marker = Yellow("·")
	}
	fmt.Fprintf(p.out, "%s %s page %d • +%d • %s • cursor %d • %s\n",
		marker,
		Cyan("@"+p.username),
		pr.Page,
		len(pr.NewItems),
		p.counts(),
		pr.Cursor,
		Dim(pr.State.String()),
	)
}

// Complete prints the final summary line
func (p *ProgressDisplay) Complete(state crawler.State, total int, completeness float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.lineMode {
		fmt.Fprintln(p.out)
	}

	marker := Green("✓")
	switch state {
	case crawler.Aborted, crawler.Cancelled:
		marker = Red("✗")
	case crawler.LimitReached:
		marker = Yellow("■")
	}

	fmt.Fprintf(p.out, "%s @%s: %s posts (%s) in %s\n",
		marker,
		p.username,
		humanize.Comma(int64(total)),
		state.String(),
		formatDuration(time.Since(p.startTime)),
	)
	if completeness >= 0 {
		fmt.Fprintf(p.out, "  %s %.1f%% of the advertised %s posts\n",
			Dim("•"),
			completeness*100,
			humanize.Comma(int64(p.expected)),
		)
	}
	if p.emptyPages > 0 {
		fmt.Fprintf(p.out, "  %s %d empty pages over %d requests\n", Dim("•"), p.emptyPages, p.pages)
	}
}

func (p *ProgressDisplay) counts() string {
	if p.expected <= 0 {
		return humanize.Comma(int64(p.total))
	}
	return fmt.Sprintf("%s/%s", humanize.Comma(int64(p.total)), humanize.Comma(int64(p.expected)))
}

func (p *ProgressDisplay) bar() string {
	const width = 20
	if p.expected <= 0 {
		return "[" + strings.Repeat("─", width) + "]"
	}
	filled := min(p.total*width/p.expected, width)
	return "[" + strings.Repeat("━", filled) + strings.Repeat("─", width-filled) + "]"
}

func (p *ProgressDisplay) rate() float64 {
	minutes := time.Since(p.startTime).Minutes()
	if minutes == 0 {
		return 0
	}
	return float64(p.total-p.resumed) / minutes
}

// eta estimates the time remaining, or "" when it cannot
func (p *ProgressDisplay) eta() string {
	fetched := p.total - p.resumed
	remaining := p.expected - p.total
	if p.expected <= 0 || fetched <= 0 || remaining <= 0 {
		return ""
	}
	perItem := time.Since(p.startTime) / time.Duration(fetched)
	return formatDuration(perItem * time.Duration(remaining))
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
