//go:build go1.22

package main

import "log/slog"

// setLogLoggerLevel adjusts the level used when legacy log-package output
// is bridged to the default slog handler.
func setLogLoggerLevel(level slog.Level) {
	slog.SetLogLoggerLevel(level)
}
