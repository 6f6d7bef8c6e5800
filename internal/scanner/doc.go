// Package scanner implements the record-extraction core: it walks an
// open plugin container, derives each record's six-digit hex form id,
// resolves a display label through a three-tier fallback (editor id,
// display name, synthesized placeholder), classifies per-record decode
// failures against an injected set of known-benign patterns, and streams
// entries in bounded batches through one storage transaction per plugin.
//
// Failure isolation is the point of the design: a single record's
// failure never aborts its plugin, and a plugin's failure never aborts
// the run. Only a mid-plugin flush failure is plugin-fatal, because the
// open transaction cannot be trusted afterwards.
package scanner
