package models

import (
	"fmt"
	"strconv"
	"strings"

	"ttscraper/pkg/errors"
)

// ResourceHandle is the opaque account id the listing endpoint pages over (TikTok secUid)
type ResourceHandle string

// Identity is what a profile lookup returns for a public username
type Identity struct {
	Handle        ResourceHandle `json:"sec_uid"`
	UserID        string         `json:"id"`
	Username      string         `json:"username"`
	Nickname      string         `json:"nickname"`
	Signature     string         `json:"signature,omitempty"`
	Verified      bool           `json:"verified"`
	Private       bool           `json:"private_account"`
	AvatarURL     string         `json:"avatar_url,omitempty"`
	ItemCountHint int            `json:"video_count"`
	Followers     int64          `json:"follower_count"`
	Following     int64          `json:"following_count"`
	Hearts        int64          `json:"heart_count"`
}

// PageRequest describes one call to the listing endpoint
type PageRequest struct {
	Handle   ResourceHandle
	Cursor   int
	PageSize int
}

// PageOutcome classifies a single page fetch
type PageOutcome int

const (
	OutcomeSuccess PageOutcome = iota
	OutcomeEmpty
	OutcomeTerminalError
	OutcomeTransientError
)

func (o PageOutcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeEmpty:
		return "empty"
	case OutcomeTerminalError:
		return "terminal_error"
	case OutcomeTransientError:
		return "transient_error"
	default:
		return "unknown"
	}
}

// PageResult is the classified result of one fetch.
// Items and NextCursor are only meaningful for OutcomeSuccess; Err only for the error outcomes.
type PageResult struct {
	Outcome    PageOutcome
	Items      []RawItem
	NextCursor *int
	HasMore    bool
	Err        *errors.Error
}

// Success builds a PageResult for a page that carried items
func Success(items []RawItem, next *int, hasMore bool) PageResult {
	return PageResult{Outcome: OutcomeSuccess, Items: items, NextCursor: next, HasMore: hasMore}
}

// Empty builds a PageResult for a page without items
func Empty() PageResult {
	return PageResult{Outcome: OutcomeEmpty}
}

// Failure builds an error PageResult, terminal or transient depending on the error type
func Failure(err *errors.Error) PageResult {
	outcome := OutcomeTransientError
	if !errors.IsRetryable(err.Type) {
		outcome = OutcomeTerminalError
	}
	return PageResult{Outcome: outcome, Err: err}
}

// ItemListResponse is the body of /api/post/item_list/
type ItemListResponse struct {
	StatusCode int       `json:"statusCode"`
	StatusMsg  string    `json:"statusMsg,omitempty"`
	Cursor     Cursor    `json:"cursor"`
	HasMore    bool      `json:"hasMore"`
	ItemList   []RawItem `json:"itemList"`
}

// RawItem is one post exactly as the listing endpoint returns it
type RawItem struct {
	ID            string     `json:"id"`
	Desc          string     `json:"desc"`
	CreateTime    int64      `json:"createTime"`
	Digged        bool       `json:"digged"`
	DuetEnabled   bool       `json:"duetEnabled"`
	ForFriend     bool       `json:"forFriend"`
	OfficalItem   bool       `json:"officalItem"`
	OriginalItem  bool       `json:"originalItem"`
	PrivateItem   bool       `json:"privateItem"`
	ShareEnabled  bool       `json:"shareEnabled"`
	StitchEnabled bool       `json:"stitchEnabled"`
	Stats         RawStats   `json:"stats"`
	Author        RawAuthor  `json:"author"`
	Music         RawMusic   `json:"music"`
	Video         *RawVideo  `json:"video,omitempty"`
	ImagePost     *ImagePost `json:"imagePost,omitempty"`
}

type RawStats struct {
	DiggCount    int64 `json:"diggCount"`
	CollectCount int64 `json:"collectCount"`
	PlayCount    int64 `json:"playCount"`
	ShareCount   int64 `json:"shareCount"`
	CommentCount int64 `json:"commentCount"`
}

type RawAuthor struct {
	ID             string `json:"id"`
	UniqueID       string `json:"uniqueId"`
	Nickname       string `json:"nickname"`
	AvatarLarger   string `json:"avatarLarger"`
	AvatarMedium   string `json:"avatarMedium"`
	AvatarThumb    string `json:"avatarThumb"`
	Signature      string `json:"signature"`
	Verified       bool   `json:"verified"`
	OpenFavorite   bool   `json:"openFavorite"`
	PrivateAccount bool   `json:"privateAccount"`
	IsADVirtual    bool   `json:"isADVirtual"`
	IsEmbedBanned  bool   `json:"isEmbedBanned"`
}

type RawMusic struct {
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

type RawVideo struct {
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

type ImagePost struct {
	Images []ImagePostImage `json:"images"`
}

type ImagePostImage struct {
	ImageURL struct {
		URLList []string `json:"urlList"`
	} `json:"imageURL"`
}

// Cursor accepts the cursor as either a JSON number or a quoted number
type Cursor int

func (c *Cursor) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*c = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid cursor %q: %w", s, err)
	}
	*c = Cursor(n)
	return nil
}
