package entity

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

var hexColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Category is a user-defined grouping of feeds. It is opaque to the
// pipeline (fetch scheduling and item normalization never consult category
// membership) and exists here only so the category_feed association is
// preserved end to end when a feed is deleted.
type Category struct {
	ID          uuid.UUID
	Name        string
	Description *string
	Color       *string
	Order       int
}

// Validate checks the structural invariants of a Category.
func (c *Category) Validate() error {
	if c.Name == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if c.Color != nil && !hexColorPattern.MatchString(*c.Color) {
		return &ValidationError{Field: "color", Message: fmt.Sprintf("must be a #RRGGBB hex color, got %q", *c.Color)}
	}
	return nil
}
