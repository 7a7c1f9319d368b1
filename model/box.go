package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Box is a bounding box [x, y, width, height] in pixels.
type Box [4]float64

func (b Box) X() float64      { return b[0] }
func (b Box) Y() float64      { return b[1] }
func (b Box) Width() float64  { return b[2] }
func (b Box) Height() float64 { return b[3] }

func (b Box) Area() float64 {
	return b[2] * b[3]
}

// Valid reports whether all numbers are finite and width and height are not negative.
func (b Box) Valid() bool {
	for _, v := range b {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b[2] >= 0 && b[3] >= 0
}

// Key is the coordinate key of the box: the four numbers comma joined
// in their shortest representation, so 10 and 10.0 yield the same key.
func (b Box) Key() string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

// Float32s returns the box as a float32 slice for vector columns.
func (b Box) Float32s() []float32 {
	return []float32{float32(b[0]), float32(b[1]), float32(b[2]), float32(b[3])}
}

func (b Box) String() string {
	return "[" + b.Key() + "]"
}

// UnmarshalJSON requires exactly four numbers.
func (b *Box) UnmarshalJSON(data []byte) error {
	var values []float64
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("coordinates: %w", err)
	}
	if len(values) != 4 {
		return fmt.Errorf("coordinates: expected 4 numbers, got %d", len(values))
	}
	copy(b[:], values)
	return nil
}
