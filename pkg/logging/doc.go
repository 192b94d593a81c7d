// Package logging provides the process-wide structured logger.
//
// The package wraps [log/slog] and exposes a single global logger that is
// initialized once and retrieved via GetLogger. Subsystems obtain loggers
// through this package so level and destination are controlled in one place.
//
// # Initialisation
//
// Call Init (or InitDefault) once at startup:
//
//	if err := logging.Init(cfg.Logging()); err != nil {
//	    log.Fatal(err)
//	}
//
// If GetLogger is called before Init, a default stdout logger at INFO is
// created lazily, so packages that log before startup completes are safe.
//
// # Context helpers
//
// WithTx, WithPage, WithTable, WithLock, WithComponent and WithError return
// child loggers pre-populated with structured fields:
//
//	logging.WithComponent("PageStore").Debug("evicted", "page_no", 3)
package logging
