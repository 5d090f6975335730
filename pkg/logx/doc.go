// Package logx provides structured logging for chimed.
//
// It wraps zerolog behind a small Logger value so call sites stay
// stable while the Service swaps sinks and levels at runtime
// (console writer, optional JSON file).
package logx
