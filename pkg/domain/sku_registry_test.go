package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSkuRegistry_ReserveAndRelease(t *testing.T) {
	r, err := NewSkuRegistry(GlobalSkuRegistryID, "corr-1")
	require.NoError(t, err)

	require.NoError(t, r.Reserve("SKU-1", "V1"))
	assert.Equal(t, "V1", r.HolderOf("SKU-1"))

	require.NoError(t, r.Release("SKU-1", "V1"))
	assert.Empty(t, r.HolderOf("SKU-1"))
}

func TestSkuRegistry_ReserveConflict(t *testing.T) {
	r, _ := NewSkuRegistry(GlobalSkuRegistryID, "corr-1")
	require.NoError(t, r.Reserve("SKU-1", "V1"))

	err := r.Reserve("SKU-1", "V2")
	require.Error(t, err)
	var kinded Kinded
	require.ErrorAs(t, err, &kinded)
	assert.Equal(t, KindDomainRuleViolation, kinded.Kind())
}

func TestSkuRegistry_ReserveSameHolderIsNoop(t *testing.T) {
	r, _ := NewSkuRegistry(GlobalSkuRegistryID, "corr-1")
	require.NoError(t, r.Reserve("SKU-1", "V1"))
	versionAfterFirst := r.Version()

	require.NoError(t, r.Reserve("SKU-1", "V1"))
	assert.Equal(t, versionAfterFirst, r.Version(), "reserving an already-held sku for the same holder emits no event")
}

func TestSkuRegistry_SnapshotRoundTrip(t *testing.T) {
	r, _ := NewSkuRegistry(GlobalSkuRegistryID, "corr-1")
	require.NoError(t, r.Reserve("SKU-1", "V1"))

	payload, err := r.ToSnapshot()
	require.NoError(t, err)

	loaded, err := LoadSkuRegistryFromSnapshot(payload)
	require.NoError(t, err)
	assert.Equal(t, "V1", loaded.HolderOf("SKU-1"))
}
