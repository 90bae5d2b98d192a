// Package log provides the logging abstraction used by startstop packages.
//
// This package defines a Logger interface that can be implemented by
// any logging library. Implementations are provided for zerolog and a
// no-op logger that is the default when no logger is configured.
//
// # Usage
//
// Wrap an existing zerolog logger:
//
//	logger := log.NewZerologAdapterWithLogger(zerolog.New(os.Stderr))
//
// Bind fields once and reuse the child logger:
//
//	svcLog := logger.With(log.String("service", "http"))
//	svcLog.Info("state transition", log.String("to", "Started"))
//
// # Custom Loggers
//
// Implement the Logger interface to integrate with your existing
// logging infrastructure:
//
//	type MyLogger struct { ... }
//
//	func (l *MyLogger) Debug(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) Info(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) Warn(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) Error(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) With(fields ...log.Field) log.Logger { ... }
//
// # Version
//
// Current version: 1.1.0
// Minimum compatible version: 1.1.0
package log
