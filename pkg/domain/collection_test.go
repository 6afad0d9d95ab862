package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollection_PublishRequiresAtLeastOneProduct(t *testing.T) {
	c, err := NewCollection("C1", "corr-1", "Summer Sale")
	require.NoError(t, err)

	err = c.Publish()
	require.Error(t, err)

	require.NoError(t, c.AddProduct("P1"))
	require.NoError(t, c.Publish())
}

func TestCollection_Reorder(t *testing.T) {
	c, _ := NewCollection("C1", "corr-1", "Summer Sale")
	require.NoError(t, c.AddProduct("P1"))
	require.NoError(t, c.AddProduct("P2"))
	require.NoError(t, c.AddProduct("P3"))

	require.NoError(t, c.Reorder([]string{"P3", "P1", "P2"}))
	assert.Equal(t, []string{"P3", "P1", "P2"}, c.ProductIDs())
}

func TestCollection_ReorderMismatchedSetFails(t *testing.T) {
	c, _ := NewCollection("C1", "corr-1", "Summer Sale")
	require.NoError(t, c.AddProduct("P1"))
	require.NoError(t, c.AddProduct("P2"))

	err := c.Reorder([]string{"P1", "P9"})
	require.Error(t, err)
}

func TestCollection_ArchiveFromDraft(t *testing.T) {
	c, _ := NewCollection("C1", "corr-1", "Summer Sale")
	require.NoError(t, c.Archive())
	assert.Equal(t, StatusArchived, c.Status())

	err := c.Archive()
	require.Error(t, err, "archived is terminal")
}
