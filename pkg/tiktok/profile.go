package tiktok

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"golang.org/x/net/html"
	"ttscraper/pkg/errors"
	"ttscraper/pkg/models"
)

const rehydrationScriptID = "__UNIVERSAL_DATA_FOR_REHYDRATION__"

type rehydrationData struct {
	DefaultScope struct {
		UserDetail *struct {
			StatusCode int       `json:"statusCode"`
			UserInfo   *userInfo `json:"userInfo"`
		} `json:"webapp.user-detail"`
	} `json:"__DEFAULT_SCOPE__"`
}

type userInfo struct {
	User struct {
		ID             string `json:"id"`
		UniqueID       string `json:"uniqueId"`
		Nickname       string `json:"nickname"`
		SecUID         string `json:"secUid"`
		Signature      string `json:"signature"`
		Verified       bool   `json:"verified"`
		PrivateAccount bool   `json:"privateAccount"`
		AvatarLarger   string `json:"avatarLarger"`
	} `json:"user"`
	Stats struct {
		FollowerCount  int64 `json:"followerCount"`
		FollowingCount int64 `json:"followingCount"`
		HeartCount     int64 `json:"heartCount"`
		VideoCount     int   `json:"videoCount"`
	} `json:"stats"`
}

// ResolveIdentity looks up a public username and returns its opaque handle
// together with the profile's advertised post count.
func (c *Client) ResolveIdentity(ctx context.Context, username string) (*models.Identity, error) {
	username = NormalizeUsername(username)
	if username == "" {
		return nil, errors.New(errors.ErrorTypeNotFound, 0, "empty username")
	}

	profileURL := GetProfileURL(c.baseURL, username)
	log := c.logger.WithField("username", username)
	log.DebugWithFields("Fetching profile", map[string]interface{}{"url": profileURL})

	resp, err := c.get(ctx, profileURL, map[string]string{
		"Accept": "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	})
	if err != nil {
		return nil, err
	}
	if apiErr := statusError(resp.status); apiErr != nil {
		log.WithError(apiErr).Warn("Profile request failed")
		return nil, apiErr
	}

	identity, err := parseIdentity(resp.body)
	if err != nil {
		log.WithError(err).Warn("Failed to parse profile")
		return nil, err
	}

	log.InfoWithFields("Resolved profile", map[string]interface{}{
		"sec_uid":     string(identity.Handle),
		"video_count": identity.ItemCountHint,
	})
	return identity, nil
}

// parseIdentity extracts the user detail embedded in a profile page
func parseIdentity(page []byte) (*models.Identity, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeParsing, err, "invalid profile HTML")
	}

	script := findScript(doc, rehydrationScriptID)
	if script == "" {
		return nil, errors.New(errors.ErrorTypeNotFound, 0, "user not found")
	}

	var data rehydrationData
	if err := json.Unmarshal([]byte(script), &data); err != nil {
		return nil, errors.Wrap(errors.ErrorTypeParsing, err, "invalid rehydration data")
	}

	detail := data.DefaultScope.UserDetail
	if detail == nil || detail.UserInfo == nil || detail.UserInfo.User.SecUID == "" {
		return nil, errors.New(errors.ErrorTypeNotFound, 0, "user not found")
	}

	info := detail.UserInfo
	return &models.Identity{
		Handle:        models.ResourceHandle(info.User.SecUID),
		UserID:        info.User.ID,
		Username:      info.User.UniqueID,
		Nickname:      info.User.Nickname,
		Signature:     info.User.Signature,
		Verified:      info.User.Verified,
		Private:       info.User.PrivateAccount,
		AvatarURL:     info.User.AvatarLarger,
		ItemCountHint: info.Stats.VideoCount,
		Followers:     info.Stats.FollowerCount,
		Following:     info.Stats.FollowingCount,
		Hearts:        info.Stats.HeartCount,
	}, nil
}

// findScript returns the text of the <script> element with the given id
func findScript(n *html.Node, id string) string {
	if n.Type == html.ElementNode && n.Data == "script" {
		for _, attr := range n.Attr {
			if attr.Key == "id" && attr.Val == id {
				var b strings.Builder
				for child := n.FirstChild; child != nil; child = child.NextSibling {
					if child.Type == html.TextNode {
						b.WriteString(child.Data)
					}
				}
				return strings.TrimSpace(b.String())
			}
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if text := findScript(child, id); text != "" {
			return text
		}
	}
	return ""
}
