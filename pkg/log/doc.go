/*
Package log provides structured logging for fedsearch using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging
with component-specific loggers, configurable log levels, and helper functions
for common logging patterns. All logs include timestamps and support filtering
by severity level for production debugging.

# Usage

Initializing the logger:

	import "github.com/candig/fedsearch/pkg/log"

	// JSON output (production)
	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

	// Console output (development)
	log.Init(log.Config{
		Level:      log.DebugLevel,
		JSONOutput: false,
		Output:     os.Stdout,
	})

Simple logging:

	log.Info("server started")
	log.Warn("peer heartbeat missed")
	log.Error("failed to open registry")

Structured logging:

	log.Logger.Info().
		Str("peer_url", "https://peer-a.example.org").
		Int("status", 200).
		Msg("peer responded")

Component loggers:

	fedLog := log.WithComponent("federation")
	fedLog.Info().Msg("fan-out complete")

	peerLog := log.WithPeer("https://peer-b.example.org")
	peerLog.Error().Err(err).Msg("peer unreachable")

# Integration Points

This package integrates with:

  - pkg/api: request logging and error reporting
  - pkg/federation: fan-out and merge progress
  - pkg/backend: local dispatch and tier filtering
  - pkg/health: peer probe results
  - pkg/storage: registry lifecycle events
*/
package log
