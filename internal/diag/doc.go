// Package diag defines the diagnostic model shared by the layout passes.
//
// A Diagnostic carries a Severity, a stable numeric Code (rendered as a
// prefixed ID such as PLN4001), a short Message and a primary Site naming the
// pipeline, stage, function and resource reference involved.
//
// Passes emit through a Reporter; BagReporter collects into a Bag, which the
// driver sorts and de-duplicates before handing it to internal/diagfmt.
// Fatal conditions are returned as typed errors by the passes and converted
// into SevError diagnostics by internal/pipeline; recoverable findings such as
// CgrInconsistentLibraryUsage are reported directly at SevInfo.
//
// The package performs no formatting beyond Diagnostic.Short and no I/O.
package diag
