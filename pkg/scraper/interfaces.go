package scraper

import (
	"context"

	"ttscraper/pkg/models"
)

// Client is what the scraper needs from the TikTok client
type Client interface {
	ResolveIdentity(ctx context.Context, username string) (*models.Identity, error)
	FetchPage(ctx context.Context, req models.PageRequest) models.PageResult
}
