// Package tiktok is a small client for the TikTok web endpoints a post crawl needs.
//
// FetchPage performs one signed request against /api/post/item_list/ and
// classifies the answer into success, empty, terminal or transient outcomes.
// ResolveIdentity turns a public username into the secUid the listing
// endpoint pages over.
//
//	client, err := tiktok.NewClient(tiktok.Options{Timeout: 30 * time.Second})
//	identity, err := client.ResolveIdentity(ctx, "someone")
//	page := client.FetchPage(ctx, models.PageRequest{Handle: identity.Handle, PageSize: 20})
package tiktok
