// Package logging provides structured logging for Cabinet Core.
//
// It wraps log/slog with configuration-driven format and level selection,
// and stamps every record with the service name and build version. Child
// loggers carrying a component field are created with With:
//
//	log := logging.New(cfg.Logging, version)
//	shelfLog := log.With("component", "shelf")
package logging
