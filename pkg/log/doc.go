// Package log provides the logging abstraction shared by localdriver packages.
//
// Drivers, the mock server and the shutdown registrar only depend on the
// Logger interface. A zerolog-backed adapter is used by the CLI and a no-op
// logger is the default for library callers and tests.
//
// # Usage
//
//	logger := log.NewZerologAdapter()
//	logger.Info("driver started", log.String("driver", "mock"), log.Int("port", 8000))
//
// Or silence output entirely:
//
//	logger := log.NewNoopLogger()
//
// # Version
//
// Current version: 1.1.0
// Minimum compatible version: 1.0.0
package log
