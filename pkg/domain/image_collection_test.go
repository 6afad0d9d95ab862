package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func imgs(ids ...string) []Image {
	out := make([]Image, len(ids))
	for i, id := range ids {
		out[i] = Image{ImageID: id, UploadedAt: time.Now().UTC()}
	}
	return out
}

func TestNewImageCollection_EnforcesCap(t *testing.T) {
	ids := make([]string, MaxImages+1)
	for i := range ids {
		ids[i] = string(rune('a' + i%26))
	}
	_, err := NewImageCollection(imgs(ids...)...)
	require.Error(t, err)
	var kinded Kinded
	require.ErrorAs(t, err, &kinded)
	assert.Equal(t, KindDomainRuleViolation, kinded.Kind())
}

func TestImageCollection_Add(t *testing.T) {
	c, err := NewImageCollection(imgs("a", "b")...)
	require.NoError(t, err)

	next, err := c.Add(Image{ImageID: "c"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, next.IDs())
	assert.Equal(t, []string{"a", "b"}, c.IDs(), "original collection must not mutate")
}

func TestImageCollection_AddDuplicateRejected(t *testing.T) {
	c, _ := NewImageCollection(imgs("a")...)
	_, err := c.Add(Image{ImageID: "a"})
	require.Error(t, err)
}

func TestImageCollection_Remove(t *testing.T) {
	c, _ := NewImageCollection(imgs("a", "b", "c")...)
	next, err := c.Remove("b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, next.IDs())
}

func TestImageCollection_RemoveMissingIsError(t *testing.T) {
	c, _ := NewImageCollection(imgs("a")...)
	_, err := c.Remove("missing")
	require.Error(t, err)
}

func TestImageCollection_Reorder(t *testing.T) {
	c, _ := NewImageCollection(imgs("a", "b", "c")...)
	next, err := c.Reorder([]string{"c", "a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, next.IDs())
}

func TestImageCollection_ReorderWrongCountRejected(t *testing.T) {
	c, _ := NewImageCollection(imgs("a", "b", "c")...)
	_, err := c.Reorder([]string{"a", "b"})
	require.Error(t, err)
	var kinded Kinded
	require.ErrorAs(t, err, &kinded)
	assert.Equal(t, KindDomainRuleViolation, kinded.Kind())
}

func TestImageCollection_ReorderForeignIDRejected(t *testing.T) {
	c, _ := NewImageCollection(imgs("a", "b")...)
	_, err := c.Reorder([]string{"a", "z"})
	require.Error(t, err)
}

func TestImageCollection_UpdateAltText(t *testing.T) {
	c, _ := NewImageCollection(imgs("a")...)
	next, err := c.UpdateAltText("a", "a cat")
	require.NoError(t, err)
	assert.Equal(t, "a cat", next.Images()[0].AltText)
	assert.Empty(t, c.Images()[0].AltText, "original collection must not mutate")
}

func TestImageCollection_Equals(t *testing.T) {
	a, _ := NewImageCollection(imgs("a", "b")...)
	b, _ := NewImageCollection(imgs("a", "b")...)
	c, _ := NewImageCollection(imgs("b", "a")...)
	assert.True(t, a.Equals(b))
	assert.False(t, a.Equals(c), "order is significant")
}
