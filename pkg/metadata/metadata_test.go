package metadata

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"ttscraper/pkg/models"
)

const rawItems = `[
{"id":"7001","desc":"Morning run #fitness #Run #fitness","createTime":1700000000,"shareEnabled":true,
 "stats":{"diggCount":120,"playCount":5400,"commentCount":8,"shareCount":3,"collectCount":11},
 "author":{"id":"68","uniqueId":"creator","nickname":"The Creator","verified":true},
 "music":{"id":"m1","title":"original sound","duration":15,"original":true},
 "video":{"id":"v1","duration":15,"ratio":"720p","cover":"https://p/cover.jpg","playAddr":"https://v/play.mp4","format":"mp4","bitrate":900}},
{"id":"7002","desc":"Carousel","createTime":1700000100,
 "author":{"id":"68","uniqueId":"creator"},
 "music":{"id":"m2"},
 "imagePost":{"images":[{"imageURL":{"urlList":["https://i/1.jpg","https://i/1b.jpg"]}},{"imageURL":{"urlList":[]}},{"imageURL":{"urlList":["https://i/2.jpg"]}}]}},
{"id":"7003","desc":"","createTime":0,"author":{"id":"68"},"music":{}}
]`

func loadRaw(t *testing.T) []models.RawItem {
	t.Helper()
	var raw []models.RawItem
	require.NoError(t, json.Unmarshal([]byte(rawItems), &raw))
	return raw
}

func TestNormalize(t *testing.T) {
	posts := Normalize(loadRaw(t))
	require.Len(t, posts, 3)

	video := posts[0]
	assert.Equal(t, "7001", video.ID)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), video.CreatedAt)
	assert.Equal(t, []string{"fitness", "Run"}, video.Hashtags)
	assert.Equal(t, int64(120), video.Stats.LikeCount)
	assert.Equal(t, int64(5400), video.Stats.PlayCount)
	assert.Equal(t, "creator", video.Author.Username)
	assert.True(t, video.Author.Verified)
	assert.True(t, video.Music.Original)
	require.NotNil(t, video.Video)
	assert.Equal(t, "https://v/play.mp4", video.Video.PlayAddr)
	assert.False(t, video.IsImagePost())

	carousel := posts[1]
	assert.Nil(t, carousel.Video)
	assert.True(t, carousel.IsImagePost())
	assert.Equal(t, []string{"https://i/1.jpg", "https://i/2.jpg"}, carousel.Images)

	bare := posts[2]
	assert.NotNil(t, bare.Video)
	assert.Nil(t, bare.Hashtags)
}

func TestNormalizeIsIdempotent(t *testing.T) {
	raw := loadRaw(t)

	first := Normalize(raw)
	second := Normalize(raw)

	assert.Equal(t, first, second)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))
}

func TestNormalizeEmpty(t *testing.T) {
	assert.Empty(t, Normalize(nil))
	assert.NotNil(t, Normalize(nil))
}

func TestExtractHashtags(t *testing.T) {
	assert.Equal(t, []string{"go", "日本", "snake_case"}, ExtractHashtags("#go is fun #日本 #Go #snake_case!"))
	assert.Nil(t, ExtractHashtags("no tags here # alone"))
}

func TestGetFormattedCaption(t *testing.T) {
	p := Post{Description: "line one\nline   two with émoji 🎉 and more text"}
	assert.Equal(t, "line one line two with émoji 🎉 and more text", p.GetFormattedCaption(100))
	assert.Equal(t, "line one l...", p.GetFormattedCaption(13))
}
