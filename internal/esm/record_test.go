package esm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evildarkarchon/FormID-Database-Manager-sub001/internal/esm/esmtest"
)

func buildRecord(recType string, subs ...[]byte) *Record {
	var data []byte
	for _, s := range subs {
		data = append(data, s...)
	}
	return &Record{Type: recType, FormID: 0x000801, data: data}
}

func TestEditorID(t *testing.T) {
	rec := buildRecord("WEAP",
		esmtest.ZSub("EDID", "IronSword"),
		esmtest.ZSub("FULL", "Iron Sword"))

	edid, err := rec.EditorID()
	require.NoError(t, err)
	assert.Equal(t, "IronSword", edid)
}

func TestEditorID_Absent(t *testing.T) {
	rec := buildRecord("WEAP", esmtest.ZSub("FULL", "Iron Sword"))

	edid, err := rec.EditorID()
	require.NoError(t, err)
	assert.Empty(t, edid)
}

func TestEditorID_MalformedSubrecord(t *testing.T) {
	// EDID claims 200 bytes but only a handful follow.
	payload := []byte("EDID")
	payload = append(payload, 200, 0, 'a', 'b', 'c')
	rec := &Record{Type: "WEAP", data: payload}

	_, err := rec.EditorID()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected short-id field")
	assert.Contains(t, err.Error(), "malformed sub-block size")
}

func TestDisplayName_Inline(t *testing.T) {
	rec := buildRecord("WEAP", esmtest.ZSub("FULL", "Iron Sword"))

	name, ok, err := rec.DisplayName(false, nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Iron Sword", name)
}

func TestDisplayName_KindWithoutCapability(t *testing.T) {
	// GMST records never carry display names; a FULL-shaped payload on
	// one must not be probed.
	rec := buildRecord("GMST", esmtest.ZSub("FULL", "Should Not Appear"))

	name, ok, err := rec.DisplayName(false, nil)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, name)
}

func TestDisplayName_Localized(t *testing.T) {
	rec := buildRecord("WEAP", esmtest.U32Sub("FULL", 42))

	tables := &StringTables{entries: map[uint32]string{42: "Eisenschwert"}}
	name, ok, err := rec.DisplayName(true, tables)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Eisenschwert", name)

	// Missing key reports no name rather than an error.
	_, ok, err = rec.DisplayName(true, &StringTables{entries: map[uint32]string{}})
	require.NoError(t, err)
	assert.False(t, ok)

	// Nil tables behave like a miss.
	_, ok, err = rec.DisplayName(true, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWalkSubrecords_XXXXOverride(t *testing.T) {
	large := make([]byte, 70000)
	copy(large, "big payload")

	var data []byte
	data = append(data, esmtest.U32Sub("XXXX", uint32(len(large)))...)
	// The oversized subrecord's own size field is zero.
	data = append(data, "DATA"...)
	data = append(data, 0, 0)
	data = append(data, large...)
	data = append(data, esmtest.ZSub("EDID", "AfterBigData")...)

	var tags []string
	var sizes []int
	err := walkSubrecords(data, func(tag string, payload []byte) bool {
		tags = append(tags, tag)
		sizes = append(sizes, len(payload))
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"DATA", "EDID"}, tags)
	assert.Equal(t, len(large), sizes[0])
}

func TestWalkSubrecords_BadXXXX(t *testing.T) {
	data := esmtest.Sub("XXXX", []byte{1, 2})
	err := walkSubrecords(data, func(string, []byte) bool { return true })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed sub-block size")
}

func TestHasDisplayName(t *testing.T) {
	assert.True(t, (&Record{Type: "WEAP"}).HasDisplayName())
	assert.True(t, (&Record{Type: "NPC_"}).HasDisplayName())
	assert.False(t, (&Record{Type: "GMST"}).HasDisplayName())
	assert.False(t, (&Record{Type: "KYWD"}).HasDisplayName())
}

func TestZstring(t *testing.T) {
	assert.Equal(t, "abc", zstring([]byte{'a', 'b', 'c', 0}))
	assert.Equal(t, "abc", zstring([]byte{'a', 'b', 'c', 0, 'd'}))
	assert.Equal(t, "abc", zstring([]byte("abc")))
	assert.Equal(t, "", zstring(nil))
}

func TestDecompress_TruncatedPayload(t *testing.T) {
	rec := &Record{Type: "NPC_", data: []byte{1, 2}}
	err := rec.decompress()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed sub-block size")
}
