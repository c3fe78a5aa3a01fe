// Package logx wraps zerolog behind a small structured-logging facade.
//
// The Service owns the sinks (console, optional file) and can swap them at
// runtime via Apply without invalidating loggers handed out earlier.
package logx
