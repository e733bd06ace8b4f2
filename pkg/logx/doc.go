// Package logx is notiroute's logging layer on top of zerolog: a value
// Logger with typed fields, and a Service whose sinks (console on stderr,
// JSON file) are swapped on config reload without replacing loggers that
// were already handed out.
//
// Delivery diagnostics are written here; they never travel through the
// router itself.
package logx
