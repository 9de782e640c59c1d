package metadata

import (
	"regexp"
	"strings"
	"time"

	"ttscraper/pkg/models"
)

// Post is the normalized form of one raw listing item
type Post struct {
	// Core identifiers
	ID          string    `json:"id"`
	Description string    `json:"desc"`
	CreatedAt   time.Time `json:"created_at"`
	CreateTime  int64     `json:"createTime"`
	Hashtags    []string  `json:"hashtags,omitempty"`

	// Flags
	Digged        bool `json:"digged"`
	DuetEnabled   bool `json:"duetEnabled"`
	ForFriend     bool `json:"forFriend"`
	OfficialItem  bool `json:"officalItem"`
	OriginalItem  bool `json:"originalItem"`
	PrivateItem   bool `json:"privateItem"`
	ShareEnabled  bool `json:"shareEnabled"`
	StitchEnabled bool `json:"stitchEnabled"`

	Stats  Stats  `json:"stats"`
	Music  Music  `json:"music"`
	Author Author `json:"author"`

	// Exactly one of Video and Images is set
	Video  *Video   `json:"video,omitempty"`
	Images []string `json:"imagePost,omitempty"`
}

// Stats holds engagement counters
type Stats struct {
	LikeCount    int64 `json:"likeCount"`
	CollectCount int64 `json:"collectCount"`
	PlayCount    int64 `json:"playCount"`
	ShareCount   int64 `json:"shareCount"`
	CommentCount int64 `json:"commentCount"`
}

// Author represents the post owner
type Author struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	Nickname       string `json:"nickname"`
	AvatarLarger   string `json:"avatarLarger"`
	AvatarThumb    string `json:"avatarThumb"`
	AvatarMedium   string `json:"avatarMedium"`
	Signature      string `json:"signature"`
	Verified       bool   `json:"verified"`
	OpenFavorite   bool   `json:"openFavorite"`
	PrivateAccount bool   `json:"privateAccount"`
	IsADVirtual    bool   `json:"isADVirtual"`
	IsEmbedBanned  bool   `json:"isEmbedBanned"`
}

// Music represents the sound used by a post
type Music struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	AuthorName  string `json:"authorName"`
	PlayURL     string `json:"playUrl"`
	CoverThumb  string `json:"coverThumb"`
	CoverMedium string `json:"coverMedium"`
	CoverLarge  string `json:"coverLarge"`
	Duration    int    `json:"duration"`
	Original    bool   `json:"original"`
}

// Video holds playback details for video posts
type Video struct {
	ID           string `json:"id"`
	Duration     int    `json:"duration"`
	Ratio        string `json:"ratio"`
	Cover        string `json:"cover"`
	OriginCover  string `json:"originCover"`
	DynamicCover string `json:"dynamicCover"`
	PlayAddr     string `json:"playAddr"`
	DownloadAddr string `json:"downloadAddr"`
	Format       string `json:"format"`
	Bitrate      int    `json:"bitrate"`
}

var hashtagPattern = regexp.MustCompile(`#([\p{L}\p{N}_]+)`)

// Normalize maps raw items to posts, keeping order. It is a pure function.
func Normalize(raw []models.RawItem) []Post {
	posts := make([]Post, 0, len(raw))
	for i := range raw {
		posts = append(posts, FromRawItem(&raw[i]))
	}
	return posts
}

// FromRawItem converts one listing item to a Post
func FromRawItem(v *models.RawItem) Post {
	post := Post{
		ID:            v.ID,
		Description:   v.Desc,
		CreateTime:    v.CreateTime,
		CreatedAt:     time.Unix(v.CreateTime, 0).UTC(),
		Hashtags:      ExtractHashtags(v.Desc),
		Digged:        v.Digged,
		DuetEnabled:   v.DuetEnabled,
		ForFriend:     v.ForFriend,
		OfficialItem:  v.OfficalItem,
		OriginalItem:  v.OriginalItem,
		PrivateItem:   v.PrivateItem,
		ShareEnabled:  v.ShareEnabled,
		StitchEnabled: v.StitchEnabled,
		Stats: Stats{
			LikeCount:    v.Stats.DiggCount,
			CollectCount: v.Stats.CollectCount,
			PlayCount:    v.Stats.PlayCount,
			ShareCount:   v.Stats.ShareCount,
			CommentCount: v.Stats.CommentCount,
		},
		Music: Music{
			ID:          v.Music.ID,
			Title:       v.Music.Title,
			AuthorName:  v.Music.AuthorName,
			PlayURL:     v.Music.PlayURL,
			CoverThumb:  v.Music.CoverThumb,
			CoverMedium: v.Music.CoverMedium,
			CoverLarge:  v.Music.CoverLarge,
			Duration:    v.Music.Duration,
			Original:    v.Music.Original,
		},
		Author: Author{
			ID:             v.Author.ID,
			Username:       v.Author.UniqueID,
			Nickname:       v.Author.Nickname,
			AvatarLarger:   v.Author.AvatarLarger,
			AvatarThumb:    v.Author.AvatarThumb,
			AvatarMedium:   v.Author.AvatarMedium,
			Signature:      v.Author.Signature,
			Verified:       v.Author.Verified,
			OpenFavorite:   v.Author.OpenFavorite,
			PrivateAccount: v.Author.PrivateAccount,
			IsADVirtual:    v.Author.IsADVirtual,
			IsEmbedBanned:  v.Author.IsEmbedBanned,
		},
	}

	// Image posts carry the first URL of every image; everything else is a video
	if v.ImagePost != nil {
		post.Images = make([]string, 0, len(v.ImagePost.Images))
		for _, img := range v.ImagePost.Images {
			if len(img.ImageURL.URLList) > 0 {
				post.Images = append(post.Images, img.ImageURL.URLList[0])
			}
		}
		return post
	}

	if v.Video != nil {
		post.Video = &Video{
			ID:           v.Video.ID,
			Duration:     v.Video.Duration,
			Ratio:        v.Video.Ratio,
			Cover:        v.Video.Cover,
			OriginCover:  v.Video.OriginCover,
			DynamicCover: v.Video.DynamicCover,
			PlayAddr:     v.Video.PlayAddr,
			DownloadAddr: v.Video.DownloadAddr,
			Format:       v.Video.Format,
			Bitrate:      v.Video.Bitrate,
		}
	} else {
		post.Video = &Video{}
	}
	return post
}

// ExtractHashtags returns the distinct hashtags of a description in order of appearance
func ExtractHashtags(desc string) []string {
	matches := hashtagPattern.FindAllStringSubmatch(desc, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		key := strings.ToLower(m[1])
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		tags = append(tags, m[1])
	}
	return tags
}

// IsImagePost reports whether the post is a photo carousel
func (p *Post) IsImagePost() bool {
	return p.Images != nil
}

// GetFormattedCaption returns a single-line caption truncated for display
func (p *Post) GetFormattedCaption(maxLength int) string {
	caption := strings.Join(strings.Fields(p.Description), " ")
	runes := []rune(caption)
	if maxLength > 3 && len(runes) > maxLength {
		return string(runes[:maxLength-3]) + "..."
	}
	return caption
}
