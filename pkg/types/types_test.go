package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormID_String(t *testing.T) {
	tests := []struct {
		name string
		id   FormID
		want string
	}{
		{"small id zero padded", FormID(10), "00000A"},
		{"zero", FormID(0), "000000"},
		{"full object id", FormID(0x00FFFFFF), "FFFFFF"},
		{"master index masked off", FormID(0x010012EB), "0012EB"},
		{"high master index masked off", FormID(0xFE000800), "000800"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.id.String()
			assert.Equal(t, tt.want, got)
			assert.Len(t, got, 6)
		})
	}
}

func TestFormID_ObjectID(t *testing.T) {
	assert.Equal(t, uint32(0x0012EB), FormID(0x050012EB).ObjectID())
	assert.Equal(t, uint32(0), FormID(0x01000000).ObjectID())
}

func TestParseFormID(t *testing.T) {
	id, err := ParseFormID("0012EB")
	require.NoError(t, err)
	assert.Equal(t, FormID(0x0012EB), id)

	id, err = ParseFormID("0x01000800")
	require.NoError(t, err)
	assert.Equal(t, FormID(0x01000800), id)

	id, err = ParseFormID("a")
	require.NoError(t, err)
	assert.Equal(t, FormID(0xA), id)

	for _, bad := range []string{"", "zz", "123456789", "0x"} {
		_, err := ParseFormID(bad)
		assert.ErrorIs(t, err, ErrInvalidFormID, "input %q", bad)
	}
}

func TestParseGameRelease(t *testing.T) {
	g, err := ParseGameRelease("SkyrimSE")
	require.NoError(t, err)
	assert.Equal(t, SkyrimSE, g)

	// Case-insensitive
	g, err = ParseGameRelease("fallout4vr")
	require.NoError(t, err)
	assert.Equal(t, Fallout4VR, g)

	_, err = ParseGameRelease("Morrowind")
	assert.ErrorIs(t, err, ErrUnknownGame)

	_, err = ParseGameRelease("")
	assert.ErrorIs(t, err, ErrUnknownGame)
}

func TestGameRelease_TableName(t *testing.T) {
	for _, g := range AllReleases {
		name, err := g.TableName()
		require.NoError(t, err)
		assert.NotEmpty(t, name)
	}

	_, err := GameRelease("Morrowind; DROP TABLE skyrimse").TableName()
	assert.ErrorIs(t, err, ErrUnknownGame)
}

func TestGameRelease_HeaderSize(t *testing.T) {
	assert.Equal(t, 20, Oblivion.HeaderSize())
	assert.Equal(t, 24, SkyrimSE.HeaderSize())
	assert.Equal(t, 24, Starfield.HeaderSize())
}

func TestGameRelease_SupportsLocalization(t *testing.T) {
	assert.False(t, Oblivion.SupportsLocalization())
	assert.True(t, Skyrim.SupportsLocalization())
	assert.True(t, SkyrimSE.SupportsLocalization())
}
