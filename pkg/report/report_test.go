package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ttscraper/pkg/metadata"
)

func samplePosts() []metadata.Post {
	return []metadata.Post{
		{
			ID:          "1",
			Description: "first #Go #cats",
			CreatedAt:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			Hashtags:    []string{"Go", "cats"},
			Stats:       metadata.Stats{PlayCount: 100, LikeCount: 10},
			Video:       &metadata.Video{},
		},
		{
			ID:          "2",
			Description: "second #go",
			CreatedAt:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			Hashtags:    []string{"go"},
			Stats:       metadata.Stats{PlayCount: 5000, LikeCount: 300, ShareCount: 2},
			Images:      []string{"https://example.com/a.jpg"},
		},
		{
			ID:          "3",
			Description: "third",
			CreatedAt:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			Stats:       metadata.Stats{PlayCount: 700, CommentCount: 4},
			Video:       &metadata.Video{},
		},
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(Input{Username: "someone", Posts: samplePosts(), ItemCountHint: 4, Completeness: 0.75}, 2)

	assert.Equal(t, 2, s.Videos)
	assert.Equal(t, 1, s.Images)
	assert.EqualValues(t, 5800, s.TotalPlays)
	assert.EqualValues(t, 310, s.TotalLikes)
	assert.EqualValues(t, 4, s.TotalComments)
	assert.EqualValues(t, 2, s.TotalShares)
	assert.Equal(t, 2024, s.Oldest.Year())
	assert.Equal(t, time.January, s.Oldest.Month())
	assert.Equal(t, time.March, s.Newest.Month())

	require.Len(t, s.TopPosts, 2)
	assert.Equal(t, "2", s.TopPosts[0].ID)
	assert.Equal(t, "3", s.TopPosts[1].ID)

	require.Len(t, s.TopHashtags, 2)
	assert.Equal(t, HashtagCount{Tag: "Go", Count: 2}, s.TopHashtags[0])
	assert.Equal(t, HashtagCount{Tag: "cats", Count: 1}, s.TopHashtags[1])
}

func TestSummarizeDoesNotReorderInput(t *testing.T) {
	posts := samplePosts()
	Summarize(Input{Posts: posts}, 0)
	assert.Equal(t, "1", posts[0].ID)
}

func TestRender(t *testing.T) {
	s := Summarize(Input{
		Username:      "someone",
		Nickname:      "Some One",
		State:         "done",
		CollectedAt:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		ItemCountHint: 1500,
		Completeness:  0.002,
		Posts:         samplePosts(),
	}, 0)

	out, err := Render(s)
	require.NoError(t, err)
	text := string(out)

	assert.Contains(t, text, "# Post report: Some One (@someone)")
	assert.Contains(t, text, "1,500")
	assert.Contains(t, text, "5,800")
	assert.Contains(t, text, "0.2%")
	assert.Contains(t, text, "Done")
	assert.Contains(t, text, "## Top posts by plays")
	assert.Contains(t, text, "#Go (2)")
	assert.Contains(t, text, "mermaid")
}

func TestRenderEmpty(t *testing.T) {
	out, err := Render(Summarize(Input{Username: "nobody", Completeness: -1}, 0))
	require.NoError(t, err)
	text := string(out)

	assert.Contains(t, text, "No posts.")
	assert.Contains(t, text, "No hashtags.")
	assert.Contains(t, text, "unknown")
}

func TestCompletenessText(t *testing.T) {
	assert.Equal(t, "unknown", CompletenessText(-1))
	assert.Equal(t, "100.0%", CompletenessText(1))
	assert.Equal(t, "50.0%", CompletenessText(0.5))
}

func TestStateText(t *testing.T) {
	assert.Equal(t, "Limit Reached", stateText("limit_reached"))
	assert.Equal(t, "Unknown", stateText(""))
}
