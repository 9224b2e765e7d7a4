// Package logging provides the application-side logging used by the
// ringclient CLI, built on Go's standard slog package.
//
// Library packages (pkg/auth, pkg/events, pkg/ring) never log through this
// package directly; they accept a *slog.Logger through a WithLogger option.
// The CLI hands them a subsystem-tagged logger obtained from Logger.
//
// # Log Levels
//   - Debug: protocol details (frames, token refresh decisions)
//   - Info: lifecycle (login, channel opened/closed)
//   - Warn: recoverable problems (dropped frames, failed handlers)
//   - Error: failures reported to the user
//
// # Usage
//
//	logging.Init(logging.LevelInfo, logging.FormatText, os.Stderr)
//
//	logging.Info("Login", "Authenticated as %s", email)
//	logging.Error("Listen", err, "Channel for %s ended", locationID)
//
//	client := ring.New(name, systemID, os, ring.WithLogger(logging.Logger("Ring")))
//
// The level is held in a slog.LevelVar, so SetLevel takes effect for all
// loggers already handed out. Token values must never be passed to any of
// these functions.
package logging
