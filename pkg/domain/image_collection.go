package domain

import "time"

// MaxImages is the hard cap on the number of images an ImageCollection may
// hold.
const MaxImages = 100

// Image is one entry in an ImageCollection.
type Image struct {
	ImageID    string    `json:"image_id"`
	URLs       []string  `json:"urls"`
	UploadedAt time.Time `json:"uploaded_at"`
	AltText    string    `json:"alt_text"`
}

// ImageCollection is an insertion-ordered, immutable sequence of images.
// Every operation returns a new collection; the receiver is never mutated,
// so callers never hold an interior reference into a mutated collection.
type ImageCollection struct {
	BaseValueObject
	items []Image
}

// NewImageCollection builds a collection from an initial ordered set of
// images, enforcing the MaxImages cap.
func NewImageCollection(images ...Image) (ImageCollection, error) {
	c := ImageCollection{items: append([]Image(nil), images...)}
	if err := c.Validate(); err != nil {
		return ImageCollection{}, err
	}
	return c, nil
}

// Validate enforces the cap invariant.
func (c ImageCollection) Validate() error {
	if len(c.items) > MaxImages {
		return NewDomainRuleViolation("image_collection", "image collection cannot exceed 100 images")
	}
	return nil
}

// Equals compares two collections by ordered image id sequence.
func (c ImageCollection) Equals(other ValueObject) bool {
	o, ok := other.(ImageCollection)
	if !ok || len(c.items) != len(o.items) {
		return false
	}
	for i := range c.items {
		if c.items[i].ImageID != o.items[i].ImageID {
			return false
		}
	}
	return true
}

// Count returns the number of images.
func (c ImageCollection) Count() int {
	return len(c.items)
}

// Images returns a defensive copy of the ordered image list.
func (c ImageCollection) Images() []Image {
	out := make([]Image, len(c.items))
	copy(out, c.items)
	return out
}

// IDs returns the ordered image ids.
func (c ImageCollection) IDs() []string {
	ids := make([]string, len(c.items))
	for i, img := range c.items {
		ids[i] = img.ImageID
	}
	return ids
}

// Add appends an image, returning a new collection. Fails if the cap would
// be exceeded or the image id already exists.
func (c ImageCollection) Add(img Image) (ImageCollection, error) {
	for _, existing := range c.items {
		if existing.ImageID == img.ImageID {
			return ImageCollection{}, NewDomainRuleViolation("image_collection", "image id '"+img.ImageID+"' already exists")
		}
	}
	next := append(append([]Image(nil), c.items...), img)
	if len(next) > MaxImages {
		return ImageCollection{}, NewDomainRuleViolation("image_collection", "image collection cannot exceed 100 images")
	}
	return ImageCollection{items: next}, nil
}

// Remove drops the image with the given id, returning a new collection.
// A no-op remove (id absent) is an error: callers should check Contains
// first when that distinction matters.
func (c ImageCollection) Remove(imageID string) (ImageCollection, error) {
	next := make([]Image, 0, len(c.items))
	found := false
	for _, img := range c.items {
		if img.ImageID == imageID {
			found = true
			continue
		}
		next = append(next, img)
	}
	if !found {
		return ImageCollection{}, NewDomainRuleViolation("image_collection", "image id '"+imageID+"' not found")
	}
	return ImageCollection{items: next}, nil
}

// Contains reports whether imageID is present.
func (c ImageCollection) Contains(imageID string) bool {
	for _, img := range c.items {
		if img.ImageID == imageID {
			return true
		}
	}
	return false
}

// Reorder returns a new collection whose images are ordered per
// orderedImageIDs. orderedImageIDs must be a permutation of the current
// image ids; any mismatch (missing id, extra id, wrong count) is a
// DomainRuleViolation.
func (c ImageCollection) Reorder(orderedImageIDs []string) (ImageCollection, error) {
	if len(orderedImageIDs) != len(c.items) {
		return ImageCollection{}, NewDomainRuleViolation("image_collection", "reorder id set must match the current image count")
	}

	byID := make(map[string]Image, len(c.items))
	for _, img := range c.items {
		byID[img.ImageID] = img
	}

	next := make([]Image, 0, len(orderedImageIDs))
	seen := make(map[string]bool, len(orderedImageIDs))
	for _, id := range orderedImageIDs {
		img, ok := byID[id]
		if !ok || seen[id] {
			return ImageCollection{}, NewDomainRuleViolation("image_collection", "reorder id set does not match the current image ids")
		}
		seen[id] = true
		next = append(next, img)
	}

	return ImageCollection{items: next}, nil
}

// UpdateAltText returns a new collection with imageID's alt text replaced.
func (c ImageCollection) UpdateAltText(imageID, altText string) (ImageCollection, error) {
	next := make([]Image, len(c.items))
	copy(next, c.items)
	found := false
	for i := range next {
		if next[i].ImageID == imageID {
			next[i].AltText = altText
			found = true
			break
		}
	}
	if !found {
		return ImageCollection{}, NewDomainRuleViolation("image_collection", "image id '"+imageID+"' not found")
	}
	return ImageCollection{items: next}, nil
}
