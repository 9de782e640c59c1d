// Package crawler drives a cursor-paginated crawl of one account.
//
// The controller fetches one page at a time, retries transient failures,
// drops duplicate ids and decides when to stop:
//
//   - three consecutive empty pages (configurable) mean end of data;
//   - an item limit stops the crawl and truncates to the limit in arrival order;
//   - a terminal error keeps whatever was collected, or fails with errors.ErrNoData;
//   - crawls with an item limit also stop after a fixed number of page fetches.
//
// The server's hasMore flag is not trusted.
package crawler
