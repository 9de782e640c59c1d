// Package ui holds the terminal output helpers of the ttscraper CLI: colored
// messages, the per-account crawl progress display and crawl notifications.
package ui
