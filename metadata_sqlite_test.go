package crossnet

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteMetadataStore {
	t.Helper()
	store, err := NewSQLiteMetadataStore(filepath.Join(t.TempDir(), "metadata.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteMetadataStore(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.LoadMetadata(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.SaveMetadata(ctx, 1, Metadata{Name: "north", HardShoulder: true}))
	md, err := store.LoadMetadata(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, Metadata{Name: "north", HardShoulder: true}, md)

	require.NoError(t, store.SaveMetadata(ctx, 1, Metadata{Name: "south"}))
	md, err = store.LoadMetadata(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, Metadata{Name: "south"}, md)

	require.NoError(t, store.DeleteMetadata(ctx, 1))
	_, err = store.LoadMetadata(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteMetadataStoreWithService(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	sim := NewMemorySimulator()
	first, err := sim.CreateCrossSection(ctx, orb.Point{0, 0}, CROSS_SECTION_DISPLAY)
	require.NoError(t, err)
	second, err := sim.CreateCrossSection(ctx, orb.Point{100, 0}, CROSS_SECTION_MEASURING)
	require.NoError(t, err)
	require.NoError(t, store.SaveMetadata(ctx, first.ID, Metadata{Name: "gantry 1", HardShoulder: true}))

	svc := NewPlacementService(sim, WithLogger(quietLogger()), WithMetadataStore(store))
	require.NoError(t, svc.Load(ctx))
	require.NoError(t, svc.WaitMetadata(ctx))

	cs, err := svc.CrossSection(first.ID)
	require.NoError(t, err)
	assert.True(t, cs.MetadataReady())
	assert.Equal(t, "gantry 1", cs.Name())
	assert.True(t, cs.HardShoulder())

	cs, err = svc.CrossSection(second.ID)
	require.NoError(t, err)
	assert.True(t, cs.MetadataReady())
	assert.Empty(t, cs.Name())

	// Combination persists the new name and drops the old records
	_, err = svc.Create(ctx, "loop", orb.Point{95, 0}, CROSS_SECTION_DISPLAY)
	require.NoError(t, err)
	crossSections := svc.CrossSections()
	require.Len(t, crossSections, 2)
	combined := crossSections[1]
	md, err := store.LoadMetadata(ctx, combined.ID)
	require.NoError(t, err)
	assert.Equal(t, "_loop", md.Name)
	_, err = store.LoadMetadata(ctx, second.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
