package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProduct_PublishRequiresAtLeastOneVariant(t *testing.T) {
	p, err := NewProduct("P1", "corr-1", "Widget", "a fine widget")
	require.NoError(t, err)

	err = p.Publish()
	require.Error(t, err)
	var kinded Kinded
	require.ErrorAs(t, err, &kinded)
	assert.Equal(t, KindDomainRuleViolation, kinded.Kind())

	require.NoError(t, p.AddVariant("V1"))
	require.NoError(t, p.Publish())
	assert.Equal(t, StatusActive, p.Status())
}

func TestProduct_AddVariantRejectsDuplicate(t *testing.T) {
	p, _ := NewProduct("P1", "corr-1", "Widget", "")
	require.NoError(t, p.AddVariant("V1"))

	err := p.AddVariant("V1")
	require.Error(t, err)
}

func TestProduct_RemoveVariant(t *testing.T) {
	p, _ := NewProduct("P1", "corr-1", "Widget", "")
	require.NoError(t, p.AddVariant("V1"))
	require.NoError(t, p.RemoveVariant("V1"))
	assert.Empty(t, p.VariantIDs())
}

func TestProduct_SnapshotRoundTrip(t *testing.T) {
	p, _ := NewProduct("P1", "corr-1", "Widget", "desc")
	require.NoError(t, p.AddVariant("V1"))
	require.NoError(t, p.Publish())

	payload, err := p.ToSnapshot()
	require.NoError(t, err)

	loaded, err := LoadProductFromSnapshot(payload)
	require.NoError(t, err)
	assert.Equal(t, p.Title(), loaded.Title())
	assert.Equal(t, p.VariantIDs(), loaded.VariantIDs())
	assert.Equal(t, p.Status(), loaded.Status())
}
