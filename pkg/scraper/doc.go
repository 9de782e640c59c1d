// Package scraper collects every post of a TikTok account.
//
// A Scraper resolves the username to its internal id, runs the crawl
// controller over the signed listing endpoint, normalizes what comes back and
// writes posts.json (plus report.md and, optionally, a SQLite archive).
// Progress is checkpointed after every page, so an interrupted crawl resumes
// where it stopped:
//
//	s, err := scraper.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	outcome, err := s.ScrapeUserPosts(ctx, "someone", scraper.Options{Resume: true})
//
// ScrapeUsers does the same for several accounts on a bounded worker pool.
package scraper
