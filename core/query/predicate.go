package query

import (
	"slices"

	"github.com/siherrmann/scenegraph/model"
)

// Predicate selects entities.
type Predicate func(e *model.Entity) bool

// Any matches every entity.
func Any() Predicate {
	return func(*model.Entity) bool { return true }
}

// OfType matches entities of any of the given types.
func OfType(types ...model.EntityType) Predicate {
	return func(e *model.Entity) bool {
		return slices.Contains(types, e.Type)
	}
}

// OfClass matches entities of any of the given classes.
func OfClass(classes ...model.Class) Predicate {
	return func(e *model.Entity) bool {
		return slices.Contains(classes, e.Class)
	}
}

// WithInputID matches entities bound to the external id.
func WithInputID(externalID string) Predicate {
	return func(e *model.Entity) bool {
		return e.HasInputID(externalID)
	}
}

// And matches entities all predicates match. Nil predicates are ignored.
func And(predicates ...Predicate) Predicate {
	return func(e *model.Entity) bool {
		for _, p := range predicates {
			if p != nil && !p(e) {
				return false
			}
		}
		return true
	}
}
