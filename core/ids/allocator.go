package ids

import "strconv"

const (
	ObjectPrefix   = "O"
	PropertyPrefix = "P"
)

// Allocator issues object and property identifiers from two independent
// counters starting at 1. Identifiers are never reused.
// An Allocator is not safe for concurrent use.
type Allocator struct {
	objects    uint64
	properties uint64
}

func NewAllocator() *Allocator {
	return &Allocator{}
}

// NextObjectID returns the next object identifier (O1, O2, ...).
func (a *Allocator) NextObjectID() string {
	a.objects++
	return ObjectPrefix + strconv.FormatUint(a.objects, 10)
}

// NextPropertyID returns the next property identifier (P1, P2, ...).
func (a *Allocator) NextPropertyID() string {
	a.properties++
	return PropertyPrefix + strconv.FormatUint(a.properties, 10)
}

// Objects is the number of object identifiers issued so far.
func (a *Allocator) Objects() uint64 {
	return a.objects
}

// Properties is the number of property identifiers issued so far.
func (a *Allocator) Properties() uint64 {
	return a.properties
}
