// Package log provides privacy-aware logging built on the standard slog
// package.
//
// idrecon's queries are personally identifying by definition: email
// addresses, phone numbers, names. Those values must never land in plain
// text in log files that may be shared or shipped to aggregators, even in
// verbose mode. The PIIHandler masks attribute values that either use a
// subject-bearing key (target, email, phone, name, value, ...) or match a
// PII-shaped pattern (email addresses, E.164 phone numbers).
//
// # Usage
//
//	logger := log.NewPIILogger(os.Stderr, verbose)
//	logger.Info("task settled",
//	    "scanner", "mxprobe",
//	    "target", "john@example.com", // masked
//	)
//	slog.SetDefault(logger)
//
// The handler wraps any slog.Handler, so it composes with text or JSON
// output unchanged.
package log
