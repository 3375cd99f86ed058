// Package logging provides structured logging for the ECU editor tools.
//
// This package wraps zap with package-level convenience functions and a few
// domain helpers for the events worth recording when an image is edited.
//
// # Log Levels
//
//   - Debug: raw map bytes before and after a patch
//   - Info: image loads, map patches, checksum writes, HTTP requests
//   - Warn: rejected edits, dropped WebSocket clients
//   - Error: save failures, server startup failures
//
// # Specialized Logging
//
//	logging.LogImageLoaded("M73", len(data), path)
//	logging.LogPatch("Fuel VE", 0xC0000, 512)
//	logging.LogChecksum("M73", 0x3FFFC, sum)
//	logging.LogRawBytes("Fuel VE before", region)
//
// # Configuration
//
// Logging is silent unless a level is passed to Initialize or set through
// ECU_EDITOR_LOG_LEVEL, so CLI output stays clean:
//
//	if err := logging.InitializeFromEnv(); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// Output goes to stderr in zap's console format.
package logging
