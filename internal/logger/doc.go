// Package logger wraps zap for the launcher:
//   - a global sugared logger writing to stderr, so the server console keeps stdout,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing for the --log-level flag,
//   - printf-style and key-value helpers (Infof, WarnKV, ErrorKV, etc.).
//
// Every stage receives a context and logs through the logger stored in it, so a run's
// identifier and stage name travel with each message.
package logger
