package scanner

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evildarkarchon/FormID-Database-Manager-sub001/internal/config"
	"github.com/evildarkarchon/FormID-Database-Manager-sub001/internal/esm"
	"github.com/evildarkarchon/FormID-Database-Manager-sub001/internal/esm/esmtest"
	"github.com/evildarkarchon/FormID-Database-Manager-sub001/internal/storage"
	"github.com/evildarkarchon/FormID-Database-Manager-sub001/pkg/types"
)

func setupStore(t *testing.T) storage.Store {
	t.Helper()
	store, err := storage.New(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.InitGame(context.Background(), types.SkyrimSE))
	return store
}

func newScanner(store storage.Store, batchSize int) *Scanner {
	return New(store, types.SkyrimSE, NewClassifier(config.DefaultIgnorablePatterns), batchSize, nil)
}

func openBuilt(t *testing.T, b *esmtest.Builder) *esm.Container {
	t.Helper()
	data := b.Bytes()
	c, err := esm.OpenReader(bytes.NewReader(data), int64(len(data)), types.SkyrimSE)
	require.NoError(t, err)
	return c
}

func TestScan_HappyPath(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	c := openBuilt(t, esmtest.NewBuilder(types.SkyrimSE).
		Record("WEAP", 0x000001, esmtest.ZSub("EDID", "TestWeapon")).
		Record("ARMO", 0x000002, esmtest.ZSub("FULL", "Test Armor")).
		Record("SPEL", 0x000003))

	outcome, err := newScanner(store, 1000).Scan(ctx, c, nil, "Test.esp", false)
	require.NoError(t, err)
	require.True(t, outcome.Succeeded)
	assert.Equal(t, 3, outcome.RecordsWritten)
	assert.Empty(t, outcome.Warnings)

	entries, err := store.LookupFormID(ctx, types.SkyrimSE, "000001")
	require.NoError(t, err)
	assert.Equal(t, "TestWeapon", entries[0].Name)

	entries, err = store.LookupFormID(ctx, types.SkyrimSE, "000002")
	require.NoError(t, err)
	assert.Equal(t, "Test Armor", entries[0].Name)

	entries, err = store.LookupFormID(ctx, types.SkyrimSE, "000003")
	require.NoError(t, err)
	assert.Equal(t, "[SPEL_000003]", entries[0].Name)
}

func TestScan_ZeroFormIDSkipped(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	c := openBuilt(t, esmtest.NewBuilder(types.SkyrimSE).
		Record("WEAP", 0, esmtest.ZSub("EDID", "NoID")).
		Record("WEAP", 0x000001, esmtest.ZSub("EDID", "HasID")))

	outcome, err := newScanner(store, 1000).Scan(ctx, c, nil, "Test.esp", false)
	require.NoError(t, err)
	assert.True(t, outcome.Succeeded)
	assert.Equal(t, 1, outcome.RecordsWritten)
	assert.Equal(t, 1, outcome.Skipped)
	assert.Empty(t, outcome.Warnings)
}

func TestScan_BadRecordDoesNotAbortPlugin(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	// The middle record has a corrupt compressed payload; iteration
	// continues past it.
	c := openBuilt(t, esmtest.NewBuilder(types.SkyrimSE).
		Record("WEAP", 0x000001, esmtest.ZSub("EDID", "Before")).
		RawRecord("NPC_", 0x000002, 0x00040000, []byte{9, 0, 0, 0, 1, 2, 3}).
		Record("WEAP", 0x000003, esmtest.ZSub("EDID", "After")))

	outcome, err := newScanner(store, 1000).Scan(ctx, c, nil, "Test.esp", false)
	require.NoError(t, err)
	assert.True(t, outcome.Succeeded)
	assert.Equal(t, 2, outcome.RecordsWritten)
	// Corrupt zlib stream is not a known quirk: one warning emitted.
	assert.Len(t, outcome.Warnings, 1)
	assert.Contains(t, outcome.Warnings[0], "Test.esp")
}

func TestScan_UpdateModeReplacesRows(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	s := newScanner(store, 1000)

	first := esmtest.NewBuilder(types.SkyrimSE).
		Record("WEAP", 0x000001, esmtest.ZSub("EDID", "OldName")).
		Record("WEAP", 0x000002, esmtest.ZSub("EDID", "Removed"))
	outcome, err := s.Scan(ctx, openBuilt(t, first), nil, "Test.esp", true)
	require.NoError(t, err)
	require.True(t, outcome.Succeeded)

	second := esmtest.NewBuilder(types.SkyrimSE).
		Record("WEAP", 0x000001, esmtest.ZSub("EDID", "NewName"))
	outcome, err = s.Scan(ctx, openBuilt(t, second), nil, "Test.esp", true)
	require.NoError(t, err)
	require.True(t, outcome.Succeeded)

	count, err := store.CountByPlugin(ctx, types.SkyrimSE, "Test.esp")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	entries, err := store.LookupFormID(ctx, types.SkyrimSE, "000001")
	require.NoError(t, err)
	assert.Equal(t, "NewName", entries[0].Name)
}

func TestScan_CancellationRollsBack(t *testing.T) {
	store := setupStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := openBuilt(t, esmtest.NewBuilder(types.SkyrimSE).
		Record("WEAP", 0x000001, esmtest.ZSub("EDID", "Never")))

	_, err := newScanner(store, 1000).Scan(ctx, c, nil, "Test.esp", false)
	require.ErrorIs(t, err, context.Canceled)

	count, err := store.CountByPlugin(context.Background(), types.SkyrimSE, "Test.esp")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestScan_LocalizedPlugin(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	dir := t.TempDir()
	esmtest.WriteStringTable(t, dir, "Loc.esp", "English", ".STRINGS", map[uint32]string{
		5: "Localized Blade",
	})
	tables, err := esm.LoadStringTables(dir, "Loc.esp", "English")
	require.NoError(t, err)

	c := openBuilt(t, esmtest.NewBuilder(types.SkyrimSE).
		Localized().
		Record("WEAP", 0x000001, esmtest.U32Sub("FULL", 5)))

	outcome, err := newScanner(store, 1000).Scan(ctx, c, tables, "Loc.esp", false)
	require.NoError(t, err)
	require.True(t, outcome.Succeeded)

	entries, err := store.LookupFormID(ctx, types.SkyrimSE, "000001")
	require.NoError(t, err)
	assert.Equal(t, "Localized Blade", entries[0].Name)
}

func TestScan_ManyRecordsBatchBoundaries(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	b := esmtest.NewBuilder(types.SkyrimSE)
	for i := 1; i <= 25; i++ {
		b.Record("MISC", types.FormID(i), esmtest.ZSub("EDID", "Item"))
	}

	// Batch cap far below the record count forces repeated mid-plugin
	// flushes through the same transaction.
	outcome, err := newScanner(store, 10).Scan(ctx, openBuilt(t, b), nil, "Many.esp", false)
	require.NoError(t, err)
	require.True(t, outcome.Succeeded)
	assert.Equal(t, 25, outcome.RecordsWritten)

	count, err := store.CountByPlugin(ctx, types.SkyrimSE, "Many.esp")
	require.NoError(t, err)
	assert.Equal(t, int64(25), count)
}
