// Package report renders a markdown summary of a crawl: totals, how complete
// the collection is against the profile's post count, the most played posts
// and the most used hashtags.
package report
