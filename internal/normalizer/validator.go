package normalizer

import (
	"errors"
	"fmt"

	"tgforge/internal/models"
)

// Validation errors.
var (
	ErrMissingItemID   = errors.New("item has no id")
	ErrNegativeCount   = errors.New("item has a negative engagement count")
	ErrInvalidGeo      = errors.New("item geo point out of range")
	ErrMissingSource   = errors.New("source has no key")
	ErrNotForwarded    = errors.New("item is not a forward")
	ErrInvalidParentID = errors.New("reply parent has no id")
)

// Validator checks raw items once at the normalizer boundary.
type Validator struct{}

// NewValidator creates a new validator instance.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks that an item can be normalized.
func (v *Validator) Validate(item models.RawItem, src models.Source) error {
	if src.Key == "" {
		return ErrMissingSource
	}

	if item.ID <= 0 {
		return ErrMissingItemID
	}

	counts := map[string]*int{
		"views":     item.Views,
		"forwards":  item.Forwards,
		"replies":   item.Replies,
		"reactions": item.Reactions,
	}

	for name, c := range counts {
		if c != nil && *c < 0 {
			return fmt.Errorf("%w: %s=%d", ErrNegativeCount, name, *c)
		}
	}

	if g := item.Geo; g != nil {
		if g.Lat < -90 || g.Lat > 90 || g.Long < -180 || g.Long > 180 {
			return fmt.Errorf("%w: %v, %v", ErrInvalidGeo, g.Lat, g.Long)
		}
	}

	return nil
}
