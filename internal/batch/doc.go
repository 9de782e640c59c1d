// Package batch crawls several accounts at once on a bounded errgroup.
// A failing account is reported in its Result and does not stop the others.
package batch
