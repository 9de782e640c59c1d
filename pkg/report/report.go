package report

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"ttscraper/pkg/metadata"
)

// DefaultTopN is how many posts and hashtags are listed by default
const DefaultTopN = 10

// Input is everything a report is built from
type Input struct {
	Username      string
	Nickname      string
	State         string
	CollectedAt   time.Time
	ItemCountHint int
	// Completeness is collected/hint, or negative when the hint is unknown
	Completeness float64
	LastError    string
	Posts        []metadata.Post
}

// HashtagCount is a hashtag and the number of posts using it
type HashtagCount struct {
	Tag   string
	Count int
}

// Summary holds aggregated figures for one crawl
type Summary struct {
	Input

	Videos        int
	Images        int
	TotalPlays    int64
	TotalLikes    int64
	TotalComments int64
	TotalShares   int64
	Oldest        time.Time
	Newest        time.Time
	TopPosts      []metadata.Post
	TopHashtags   []HashtagCount
}

// Summarize aggregates the posts in in
func Summarize(in Input, topN int) Summary {
	if topN <= 0 {
		topN = DefaultTopN
	}
	s := Summary{Input: in}

	fold := cases.Fold()
	tags := make(map[string]*HashtagCount)
	for i := range in.Posts {
		p := &in.Posts[i]
		if p.IsImagePost() {
			s.Images++
		} else {
			s.Videos++
		}
		s.TotalPlays += p.Stats.PlayCount
		s.TotalLikes += p.Stats.LikeCount
		s.TotalComments += p.Stats.CommentCount
		s.TotalShares += p.Stats.ShareCount

		if !p.CreatedAt.IsZero() {
			if s.Oldest.IsZero() || p.CreatedAt.Before(s.Oldest) {
				s.Oldest = p.CreatedAt
			}
			if p.CreatedAt.After(s.Newest) {
				s.Newest = p.CreatedAt
			}
		}

		for _, tag := range p.Hashtags {
			key := fold.String(tag)
			if hc, ok := tags[key]; ok {
				hc.Count++
			} else {
				tags[key] = &HashtagCount{Tag: tag, Count: 1}
			}
		}
	}

	top := make([]metadata.Post, len(in.Posts))
	copy(top, in.Posts)
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].Stats.PlayCount > top[j].Stats.PlayCount
	})
	if len(top) > topN {
		top = top[:topN]
	}
	s.TopPosts = top

	for _, hc := range tags {
		s.TopHashtags = append(s.TopHashtags, *hc)
	}
	sort.Slice(s.TopHashtags, func(i, j int) bool {
		if s.TopHashtags[i].Count != s.TopHashtags[j].Count {
			return s.TopHashtags[i].Count > s.TopHashtags[j].Count
		}
		return strings.ToLower(s.TopHashtags[i].Tag) < strings.ToLower(s.TopHashtags[j].Tag)
	})
	if len(s.TopHashtags) > topN {
		s.TopHashtags = s.TopHashtags[:topN]
	}

	return s
}

// Render returns the markdown report as bytes
func Render(s Summary) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write outputs the markdown report to w
func Write(w io.Writer, s Summary) error {
	md := markdown.NewMarkdown(w)

	writeHeader(md, s)
	writeTotals(md, s)
	writeTopPosts(md, s)
	writeHashtags(md, s)

	return md.Build()
}

func writeHeader(md *markdown.Markdown, s Summary) {
	title := "@" + strings.TrimPrefix(s.Username, "@")
	if s.Nickname != "" {
		title = s.Nickname + " (" + title + ")"
	}
	md.H1("Post report: " + title)
	md.PlainText("")

	collected := "unknown"
	if !s.CollectedAt.IsZero() {
		collected = s.CollectedAt.Format("2006-01-02 15:04:05 MST")
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Collected", collected},
			{"State", stateText(s.State)},
			{"Posts collected", humanize.Comma(int64(len(s.Posts)))},
			{"Posts reported by profile", hintText(s.ItemCountHint)},
			{"Completeness", CompletenessText(s.Completeness)},
		},
	})
	md.PlainText("")

	switch {
	case s.LastError != "":
		md.Warningf("The crawl stopped early: %s", s.LastError)
	case s.Completeness >= 0 && s.Completeness < 0.9:
		md.Importantf("Only %s of the posts reported by the profile were collected.", CompletenessText(s.Completeness))
	case len(s.Posts) == 0:
		md.Note("No posts were collected.")
	default:
		md.Tip("Crawl finished without errors.")
	}
	md.PlainText("")
}

func writeTotals(md *markdown.Markdown, s Summary) {
	md.H2("Totals")
	md.PlainText("")

	rows := [][]string{
		{"Videos", humanize.Comma(int64(s.Videos))},
		{"Image posts", humanize.Comma(int64(s.Images))},
		{"Plays", humanize.Comma(s.TotalPlays)},
		{"Likes", humanize.Comma(s.TotalLikes)},
		{"Comments", humanize.Comma(s.TotalComments)},
		{"Shares", humanize.Comma(s.TotalShares)},
	}
	if !s.Newest.IsZero() {
		rows = append(rows,
			[]string{"Newest post", s.Newest.Format("2006-01-02")},
			[]string{"Oldest post", s.Oldest.Format("2006-01-02")},
		)
	}
	md.Table(markdown.TableSet{Header: []string{"Metric", "Value"}, Rows: rows})
	md.PlainText("")

	if s.Videos > 0 && s.Images > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Post types"),
			piechart.WithShowData(true),
		)
		chart.LabelAndIntValue("Video", uint64(s.Videos))
		chart.LabelAndIntValue("Images", uint64(s.Images))

		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}
}

func writeTopPosts(md *markdown.Markdown, s Summary) {
	md.H2("Top posts by plays")
	md.PlainText("")

	if len(s.TopPosts) == 0 {
		md.PlainText("No posts.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(s.TopPosts))
	for i := range s.TopPosts {
		p := &s.TopPosts[i]
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			"`" + p.ID + "`",
			humanize.Comma(p.Stats.PlayCount),
			humanize.Comma(p.Stats.LikeCount),
			escapeCell(p.GetFormattedCaption(60)),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "ID", "Plays", "Likes", "Caption"},
		Rows:   rows,
	})
	md.PlainText("")
}

func writeHashtags(md *markdown.Markdown, s Summary) {
	md.H2("Top hashtags")
	md.PlainText("")

	if len(s.TopHashtags) == 0 {
		md.PlainText("No hashtags.")
		md.PlainText("")
		return
	}

	items := make([]string, 0, len(s.TopHashtags))
	for _, hc := range s.TopHashtags {
		items = append(items, fmt.Sprintf("#%s (%d)", hc.Tag, hc.Count))
	}
	md.BulletList(items...)
	md.PlainText("")
}

// CompletenessText formats a completeness ratio, "unknown" when negative
func CompletenessText(c float64) string {
	if c < 0 {
		return "unknown"
	}
	return strconv.FormatFloat(c*100, 'f', 1, 64) + "%"
}

func hintText(hint int) string {
	if hint <= 0 {
		return "unknown"
	}
	return humanize.Comma(int64(hint))
}

func stateText(state string) string {
	if state == "" {
		return "Unknown"
	}
	return cases.Title(language.English).String(strings.ReplaceAll(state, "_", " "))
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}
