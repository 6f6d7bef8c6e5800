// Package orchestrator drives whole runs across the selected plugins.
//
// A run is sequential by design: every plugin shares one database
// connection and one progress channel, so inter-plugin parallelism buys
// nothing and complicates transaction ownership. Two mutually exclusive
// ingestion modes exist: scanning binary plugin containers, and
// importing a pre-extracted pipe-delimited FormID list.
//
// Cancellation is cooperative, checked at every plugin boundary here
// and at every record boundary inside the scanner. Cancelling mid-run
// rolls back only the in-flight plugin; previously committed plugins
// stay committed. Each run (including every watch-triggered rescan)
// gets a fresh cancellation context, never a reused one.
//
// Per-plugin failures are aggregated, not propagated: the run-level
// summary carries outcome counts and a bounded most-recent list of
// reportable warnings. Only parameter validation and store
// initialization failures are run-fatal.
package orchestrator
