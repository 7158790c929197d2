// Package logging provides structured logging for entraflow, built on Go's
// standard slog package.
//
// All log entries carry a subsystem identifier for categorization (for
// example "Config", "SessionStore", "AuthFlow", "Browser"). Log output is
// filtered by level at the handler, so filtered-out messages allocate
// nothing.
//
// Credential material (cookie values, tokens) must never be logged; callers
// log counts and usernames only.
//
// Usage:
//
//	logging.Init(logging.LevelInfo, os.Stderr)
//	logging.Info("SessionStore", "Saved session for %s", username)
//	logging.Error("AuthFlow", err, "Browser startup failed")
package logging
