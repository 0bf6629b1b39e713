// Package logger wraps zap for the compile step:
//   - a global sugared logger with a plain console encoder suited for build logs,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing for the --log-level flag,
//   - buildpack-flavoured helpers (Status, Tip) next to the usual DebugKV, WarnKV, etc.
//
// Status and Tip lines are printed bare ("-----> ...") so the build output reads
// like any other buildpack; every other line carries time, level, name and fields.
//
// Stages receive a context and log through it, so a run-scoped build_id
// follows every line without being passed around explicitly.
package logger
