package scanner

import (
	"fmt"

	"github.com/evildarkarchon/FormID-Database-Manager-sub001/internal/esm"
)

// Resolver produces a display label for a record. Resolution never
// fails: each tier's extraction is independently fault-tolerant and a
// failure degrades to the next tier, terminating in a synthesized
// placeholder.
type Resolver struct {
	localized bool
	tables    *esm.StringTables
}

// NewResolver builds a resolver for one plugin. tables may be nil when
// the plugin is not localized.
func NewResolver(localized bool, tables *esm.StringTables) *Resolver {
	return &Resolver{localized: localized, tables: tables}
}

// Resolve returns, in order of preference: the record's editor id, its
// display name, or the placeholder "[<Kind>_<formid>]".
func (r *Resolver) Resolve(rec *esm.Record) string {
	if edid, err := rec.EditorID(); err == nil && edid != "" {
		return edid
	}

	if name, ok, err := rec.DisplayName(r.localized, r.tables); err == nil && ok && name != "" {
		return name
	}

	return fmt.Sprintf("[%s_%s]", rec.Type, rec.FormID)
}
