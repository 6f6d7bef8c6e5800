// Package esm reads Bethesda-engine plugin containers (ESM/ESP/ESL files).
//
// A container is a flat binary stream of tagged records, grouped into
// nested GRUP blocks. Open validates the TES4 file header and captures the
// plugin-level flags (master, localized, light). Next walks every major
// record in container-native order, descending into groups, and keeps
// iterating past individual records whose payloads fail to decode: those
// are surfaced as *RecordError values with framing already advanced, so a
// single bad record never ends the scan.
//
// Record payloads are walked lazily as subrecords (a 4-byte tag plus a
// 16-bit size, with XXXX size-override support). Compressed record
// payloads are inflated transparently before subrecord iteration.
//
// Localized plugins store display names as keys into external string
// tables (.STRINGS, .DLSTRINGS, .ILSTRINGS); LoadStringTables loads the
// three tables for a plugin concurrently and missing tables are not an
// error, lookups simply miss.
package esm
