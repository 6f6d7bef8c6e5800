// Package types provides shared type definitions for the FormID database
// manager.
//
// This package defines the domain value types used across multiple
// components: form ids, game releases, and extracted database entries.
//
// # Core Types
//
// FormID is a record's numeric identifier inside its plugin container. Its
// canonical database representation is the container-local object id
// rendered as exactly six uppercase hex digits:
//
//	types.FormID(0x010012EB).String() // "0012EB"
//
// GameRelease identifies a specific game edition. It determines both the
// container decoding rules and the database table that receives extracted
// entries. The release set is a fixed whitelist; table names are resolved
// through an explicit map and never interpolated from unchecked input:
//
//	game, err := types.ParseGameRelease("SkyrimSE")
//	table, err := game.TableName() // "skyrimse"
//
// Entry is one extracted row: the owning plugin file name, the formatted
// form id, and the resolved record name. Entries are immutable once built
// and their Name field is never empty (label resolution always terminates
// in a synthesized placeholder).
package types
