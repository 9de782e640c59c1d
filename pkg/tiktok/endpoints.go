package tiktok

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"ttscraper/pkg/models"
	"ttscraper/pkg/signer"
)

const (
	// BaseURL is the public web origin
	BaseURL = "https://www.tiktok.com"

	// ItemListEndpoint is the cursor-paginated post listing
	ItemListEndpoint = "/api/post/item_list/"

	// DefaultPageSize is the page size the web app itself requests
	DefaultPageSize = 20

	// MaxPageSize is the largest count the listing endpoint has been seen to honour
	MaxPageSize = 50

	// StatusItemNotFound is the application status code for a missing account or item
	StatusItemNotFound = 10201

	// DefaultUserAgent is sent when no user agent is configured
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/107.0.0.0 Safari/537.36 Edg/107.0.1418.35"
)

// webParams are the fixed query parameters the web app sends with every listing call
func webParams() signer.OrderedParams {
	return signer.OrderedParams{}.
		Add("aid", "1988").
		Add("app_language", "en").
		Add("app_name", "tiktok_web").
		Add("browser_language", "en-US").
		Add("browser_name", "Mozilla").
		Add("browser_online", "true").
		Add("browser_platform", "Win32").
		Add("browser_version", "5.0 (Windows)").
		Add("channel", "tiktok_web").
		Add("cookie_enabled", "true").
		Add("device_platform", "web_pc").
		Add("focus_state", "true").
		Add("from_page", "user").
		Add("history_len", "2").
		Add("is_fullscreen", "false").
		Add("is_page_visible", "true").
		Add("os", "windows").
		Add("priority_region", "").
		Add("referer", "").
		Add("region", "US").
		Add("screen_height", "1080").
		Add("screen_width", "1920").
		Add("tz_name", "UTC").
		Add("webcast_language", "en")
}

// XTTParams returns the parameter set that is encrypted into x-tt-params for one page
func XTTParams(req models.PageRequest) signer.OrderedParams {
	return webParams().
		Add("secUid", string(req.Handle)).
		Add("cursor", strconv.Itoa(req.Cursor)).
		Add("count", strconv.Itoa(req.PageSize)).
		Add("is_encryption", "1")
}

// GetItemListURL constructs the listing URL. The per-page parameters travel in the header.
func GetItemListURL(baseURL string) string {
	return fmt.Sprintf("%s%s?%s", strings.TrimRight(baseURL, "/"), ItemListEndpoint, webParams().Encode())
}

// GetProfileURL constructs the public profile page URL for a username
func GetProfileURL(baseURL, username string) string {
	return fmt.Sprintf("%s/@%s", strings.TrimRight(baseURL, "/"), url.PathEscape(NormalizeUsername(username)))
}

// GetPostURL constructs the public URL of one post
func GetPostURL(username, id string) string {
	if id == "" {
		return ""
	}
	return fmt.Sprintf("%s/@%s/video/%s", BaseURL, NormalizeUsername(username), id)
}

// NormalizeUsername strips whitespace and a leading '@'
func NormalizeUsername(username string) string {
	return strings.TrimPrefix(strings.TrimSpace(username), "@")
}

// ClampPageSize keeps a requested page size inside what the endpoint honours
func ClampPageSize(size int) int {
	if size <= 0 {
		return DefaultPageSize
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}
