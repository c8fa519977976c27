// Package logging provides rotating, structured file logging for Cortex.
// Setup writes logs to Config.FilePath (by default ~/.cortex/logs/cortex.log)
// via log/slog's JSON handler, mirrored to stderr unless the host opts out.
package logging
