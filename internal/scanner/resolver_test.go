package scanner

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evildarkarchon/FormID-Database-Manager-sub001/internal/esm"
	"github.com/evildarkarchon/FormID-Database-Manager-sub001/internal/esm/esmtest"
	"github.com/evildarkarchon/FormID-Database-Manager-sub001/pkg/types"
)

// record builds a single fixture record by running it through a real
// container round-trip.
func record(t *testing.T, b *esmtest.Builder) *esm.Record {
	t.Helper()
	data := b.Bytes()
	c, err := esm.OpenReader(bytes.NewReader(data), int64(len(data)), types.SkyrimSE)
	require.NoError(t, err)
	rec, err := c.Next()
	require.NoError(t, err)
	_, eof := c.Next()
	require.Equal(t, io.EOF, eof)
	return rec
}

func TestResolve_PrefersEditorID(t *testing.T) {
	rec := record(t, esmtest.NewBuilder(types.SkyrimSE).
		Record("WEAP", 0x000801,
			esmtest.ZSub("EDID", "IronSword"),
			esmtest.ZSub("FULL", "Iron Sword")))

	r := NewResolver(false, nil)
	assert.Equal(t, "IronSword", r.Resolve(rec))
}

func TestResolve_FallsBackToDisplayName(t *testing.T) {
	rec := record(t, esmtest.NewBuilder(types.SkyrimSE).
		Record("WEAP", 0x000801, esmtest.ZSub("FULL", "Iron Sword")))

	r := NewResolver(false, nil)
	assert.Equal(t, "Iron Sword", r.Resolve(rec))
}

func TestResolve_SynthesizesPlaceholder(t *testing.T) {
	rec := record(t, esmtest.NewBuilder(types.SkyrimSE).
		Record("WEAP", 0x000801))

	r := NewResolver(false, nil)
	assert.Equal(t, "[WEAP_000801]", r.Resolve(rec))
}

func TestResolve_KindWithoutDisplayNameCapability(t *testing.T) {
	// GMST has no display-name capability; a FULL payload on it must not
	// be read, leaving only the placeholder tier.
	rec := record(t, esmtest.NewBuilder(types.SkyrimSE).
		Record("GMST", 0x000123, esmtest.ZSub("FULL", "Should Not Appear")))

	r := NewResolver(false, nil)
	assert.Equal(t, "[GMST_000123]", r.Resolve(rec))
}

func TestResolve_LocalizedName(t *testing.T) {
	rec := record(t, esmtest.NewBuilder(types.SkyrimSE).
		Record("WEAP", 0x000801, esmtest.U32Sub("FULL", 7)))

	tables := stringTables(t, map[uint32]string{7: "Eisenschwert"})
	r := NewResolver(true, tables)
	assert.Equal(t, "Eisenschwert", r.Resolve(rec))
}

func TestResolve_LocalizedMissingKeyFallsThrough(t *testing.T) {
	rec := record(t, esmtest.NewBuilder(types.SkyrimSE).
		Record("WEAP", 0x000801, esmtest.U32Sub("FULL", 99)))

	tables := stringTables(t, map[uint32]string{7: "Eisenschwert"})
	r := NewResolver(true, tables)
	assert.Equal(t, "[WEAP_000801]", r.Resolve(rec))
}

func TestResolve_MalformedTiersDegrade(t *testing.T) {
	// A truncated subrecord stream fails both the editor-id and
	// display-name tiers; the placeholder still comes out.
	rec := record(t, esmtest.NewBuilder(types.SkyrimSE).
		RawRecord("WEAP", 0x000801, 0, []byte{'E', 'D', 'I', 'D', 0xFF, 0x00, 'x'}))

	r := NewResolver(false, nil)
	assert.Equal(t, "[WEAP_000801]", r.Resolve(rec))
}

// stringTables loads fixture tables through the real loader.
func stringTables(t *testing.T, entries map[uint32]string) *esm.StringTables {
	t.Helper()
	dir := t.TempDir()
	esmtest.WriteStringTable(t, dir, "Fixture.esp", "English", ".STRINGS", entries)
	tables, err := esm.LoadStringTables(dir, "Fixture.esp", "English")
	require.NoError(t, err)
	return tables
}
