// Package logger provides a structured logging interface for ttscraper.
//
// It wraps zerolog with a small Logger interface so packages can take a
// logger as a dependency and tests can swap in NewTestLogger or NewNopLogger.
//
//	err := logger.Initialize(&cfg.Logging)
//	log := logger.GetLogger().WithField("handle", handle)
//	log.Info("Starting crawl")
//
// Console output is colourised. When a log file is configured, events are
// written to both the console and the file.
package logger
