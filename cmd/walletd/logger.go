// logger.go - Structured logging for the wallet node
package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger creates the daemon's root logger from the configured level and
// format. Unknown levels fall back to info.
func NewLogger(level string, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if format == "json" {
		logger = zerolog.New(os.Stdout)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}
	return logger.Level(lvl).With().Timestamp().Str("service", "walletd").Logger()
}
