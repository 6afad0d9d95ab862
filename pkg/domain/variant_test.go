package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVariant_CreatesDraftWithOneEvent(t *testing.T) {
	v, err := NewVariant("V1", "corr-1", "P1", "SKU-1", 1000, 5, map[string]string{"Size": "M"})
	require.NoError(t, err)

	assert.Equal(t, int64(0), v.Version())
	assert.Equal(t, StatusDraft, v.Status())
	assert.Len(t, v.UncommittedEvents(), 1)
	assert.Equal(t, "variant.created", v.UncommittedEvents()[0].EventName())
}

func TestVariant_Publish(t *testing.T) {
	v, _ := NewVariant("V1", "corr-1", "P1", "SKU-1", 1000, 5, nil)
	v.MarkEventsAsCommitted()

	require.NoError(t, v.Publish())

	assert.Equal(t, int64(1), v.Version())
	assert.Equal(t, StatusActive, v.Status())
	require.NotNil(t, v.PublishedAt())
	assert.Len(t, v.UncommittedEvents(), 1)
	assert.Equal(t, "variant.published", v.UncommittedEvents()[0].EventName())
}

func TestVariant_PublishWithoutSKUFails(t *testing.T) {
	v, _ := NewVariant("V2", "corr-1", "P1", "", 0, 0, nil)
	v.MarkEventsAsCommitted()

	err := v.Publish()
	require.Error(t, err)

	var kinded Kinded
	require.ErrorAs(t, err, &kinded)
	assert.Equal(t, KindDomainRuleViolation, kinded.Kind())

	assert.Equal(t, int64(0), v.Version(), "snapshot version must not advance")
	assert.Empty(t, v.UncommittedEvents(), "no event appended on a failed mutation")
}

func TestVariant_ReorderImagesPreservesCountAndOrder(t *testing.T) {
	v, _ := NewVariant("V1", "corr-1", "P1", "SKU-1", 1000, 5, nil)
	images, _ := NewImageCollection(imgs("A", "B", "C")...)
	require.NoError(t, v.UpdateImages(images))
	v.MarkEventsAsCommitted()

	reordered, err := v.Images().Reorder([]string{"C", "A", "B"})
	require.NoError(t, err)
	require.NoError(t, v.UpdateImages(reordered))

	assert.Equal(t, []string{"C", "A", "B"}, v.Images().IDs())
	assert.Len(t, v.UncommittedEvents(), 1)
	assert.Equal(t, "variant.images_updated", v.UncommittedEvents()[0].EventName())
}

func TestVariant_ReorderImagesWrongCountFails(t *testing.T) {
	v, _ := NewVariant("V1", "corr-1", "P1", "SKU-1", 1000, 5, nil)
	images, _ := NewImageCollection(imgs("A", "B", "C")...)
	require.NoError(t, v.UpdateImages(images))

	_, err := v.Images().Reorder([]string{"C", "A"})
	require.Error(t, err)
	var kinded Kinded
	require.ErrorAs(t, err, &kinded)
	assert.Equal(t, KindDomainRuleViolation, kinded.Kind())
}

func TestVariant_AttachAndDetachDigitalAsset(t *testing.T) {
	v, _ := NewVariant("V1", "corr-1", "P1", "SKU-1", 1000, 5, nil)
	v.MarkEventsAsCommitted()

	require.NoError(t, v.AttachDigitalAsset(DigitalAsset{AssetID: "A1", URL: "https://example.test/a1"}))
	assert.Equal(t, 1, v.ToView().AssetCount)

	require.NoError(t, v.DetachDigitalAsset("A1"))
	assert.Equal(t, 0, v.ToView().AssetCount)
}

func TestVariant_ArchiveIsTerminal(t *testing.T) {
	v, _ := NewVariant("V1", "corr-1", "P1", "SKU-1", 1000, 5, nil)
	require.NoError(t, v.Publish())
	require.NoError(t, v.Archive())

	err := v.Archive()
	require.Error(t, err)
}

func TestVariant_SnapshotRoundTrip(t *testing.T) {
	v, _ := NewVariant("V1", "corr-1", "P1", "SKU-1", 1000, 5, map[string]string{"Size": "M"})
	require.NoError(t, v.Publish())

	payload, err := v.ToSnapshot()
	require.NoError(t, err)

	loaded, err := LoadVariantFromSnapshot(payload)
	require.NoError(t, err)

	assert.Equal(t, v.ID(), loaded.ID())
	assert.Equal(t, v.Version(), loaded.Version())
	assert.Equal(t, v.Status(), loaded.Status())
	assert.Equal(t, v.SKU(), loaded.SKU())
	assert.Empty(t, loaded.UncommittedEvents(), "a loaded aggregate carries no pending events")
}
