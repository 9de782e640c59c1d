// Package storage persists crawl output.
//
// Manager writes one posts.json (and an optional report.md) per account,
// using a temporary file plus rename so an interrupted run never leaves a
// truncated document behind. On resume, MergePosts folds freshly collected
// posts into what an earlier run already wrote.
//
// SQLiteStore is an optional archive backed by the pure-Go modernc.org/sqlite
// driver. Posts are upserted page by page, so engagement counters stay current
// across runs, and each crawl is recorded in crawl_runs under a UUID.
//
// Usage:
//
//	manager, err := storage.NewManager("output", true)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = manager.SavePosts(&storage.PostsFile{Username: "someone", Posts: posts})
package storage
