// Package checkpoint saves crawl progress so an interrupted crawl can resume.
//
// A checkpoint records the cursor to resume from, the number of pages
// fetched and the ids already collected, which seed the crawler's dedup set
// on resume. Files live under $XDG_DATA_HOME/ttscraper/checkpoints/ and are
// replaced atomically on every save.
package checkpoint
