package merge

import (
	"math"

	"github.com/siherrmann/scenegraph/helper"
	"github.com/siherrmann/scenegraph/model"
)

const (
	DefaultThreshold = 0.5
	DefaultWindow    = 1.0
)

// LocatedAtIndex is the part of the entity store the merger scans.
type LocatedAtIndex interface {
	// LocatedAtIDs returns the located_at property ids of a floor bucket in insertion order.
	LocatedAtIDs(domain model.TimeDomain, bucket int64) []string
	Get(id string) (*model.Entity, error)
}

// Merger decides whether two observed boxes are the same physical object.
type Merger struct {
	Threshold float64
	Window    float64
}

func NewMerger(threshold float64, window float64) *Merger {
	return &Merger{
		Threshold: threshold,
		Window:    window,
	}
}

// IsMergeable reports whether the overlap of a and b exceeds Threshold times
// the area of each box. Boxes without area never merge.
func (m *Merger) IsMergeable(a model.Box, b model.Box) bool {
	return IsMergeable(a, b, m.Threshold)
}

// IsMergeable compares the overlap against each box's own area, not the union.
// A small box inside a large one passes for the small box only.
func IsMergeable(a model.Box, b model.Box, threshold float64) bool {
	overlap := OverlapArea(a, b)
	return overlap > a.Area()*threshold && overlap > b.Area()*threshold
}

// OverlapArea returns the area of the intersection of a and b.
func OverlapArea(a model.Box, b model.Box) float64 {
	width := math.Max(0, math.Min(a.X()+a.Width(), b.X()+b.Width())-math.Max(a.X(), b.X()))
	height := math.Max(0, math.Min(a.Y()+a.Height(), b.Y()+b.Height())-math.Max(a.Y(), b.Y()))
	return width * height
}

// IoU is the standard intersection over union of a and b.
// It is not used for merging.
func IoU(a model.Box, b model.Box) float64 {
	overlap := OverlapArea(a, b)
	union := a.Area() + b.Area() - overlap
	if union <= 0 {
		return 0
	}
	return overlap / union
}

// Buckets returns the inclusive range of floor buckets that can hold a
// located_at within Window of t.
func (m *Merger) Buckets(t float64) (int64, int64) {
	w := math.Ceil(m.Window)
	return int64(math.Floor(t) - w), int64(math.Ceil(t) + w)
}

// FindObject scans the located_at properties near t and returns the source
// object of the first one within Window whose box is mergeable with box.
// Buckets are visited in ascending order and entries in insertion order.
func (m *Merger) FindObject(index LocatedAtIndex, domain model.TimeDomain, t float64, box model.Box) (string, bool, error) {
	first, last := m.Buckets(t)

	for bucket := first; bucket <= last; bucket++ {
		for _, propertyID := range index.LocatedAtIDs(domain, bucket) {
			property, err := index.Get(propertyID)
			if err != nil {
				return "", false, helper.NewError("get located_at property", err)
			}

			propertyTime, ok := property.Timestamp(domain)
			if !ok || math.Abs(propertyTime-t) > m.Window {
				continue
			}

			target, err := index.Get(property.Target)
			if err != nil {
				return "", false, helper.NewError("get located_at target", err)
			}
			if target.Value == nil || target.Value.Coordinates == nil {
				continue
			}

			if m.IsMergeable(box, *target.Value.Coordinates) {
				return property.Source, true, nil
			}
		}
	}

	return "", false, nil
}
