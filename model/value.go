package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/siherrmann/scenegraph/helper"
)

// TimeDomain selects which timestamp field indexes an annotation.
type TimeDomain string

const (
	TimeDomainSeconds TimeDomain = "seconds"
	TimeDomainFrames  TimeDomain = "frames"
)

func (d TimeDomain) Valid() bool {
	return d == TimeDomainSeconds || d == TimeDomainFrames
}

// Value is the payload of an entity. Which fields are set depends on the
// entity's type and class; use the constructors below to build them.
type Value struct {
	Label       string   `json:"label,omitempty"`
	Seconds     *float64 `json:"seconds,omitempty"`
	Frames      *float64 `json:"frames,omitempty"`
	Coordinates *Box     `json:"coordinates,omitempty"`
	Classes     string   `json:"classes,omitempty"`
	ID          string   `json:"id,omitempty"`
	Person      string   `json:"person,omitempty"`
	Verbs       []string `json:"verbs,omitempty"`
	Sentence    string   `json:"sentence,omitempty"`

	// relation payloads
	Source            []string `json:"source,omitempty"`
	Target            []string `json:"target,omitempty"`
	SourceCoordinates *Box     `json:"source_coordinates,omitempty"`
	TargetCoordinates *Box     `json:"target_coordinates,omitempty"`
	RelationKB        string   `json:"relation_kb,omitempty"`
	RelationObj       string   `json:"relation_obj,omitempty"`
	Relation          string   `json:"relation,omitempty"`
}

// NewLabelValue is the payload of detected and abstract objects.
func NewLabelValue(label string) *Value {
	return &Value{Label: label}
}

// NewBoxValue is the payload of a video_box coordinate object.
func NewBoxValue(domain TimeDomain, t float64, box Box) *Value {
	v := newTimedValue(domain, t)
	v.Coordinates = &box
	return v
}

// NewSubtitleValue is the payload of a subtitle object.
func NewSubtitleValue(text string, id string) *Value {
	return &Value{Label: text, ID: id}
}

// NewEventValue is the payload of an event object.
func NewEventValue(sentence string, verbs []string) *Value {
	return &Value{Sentence: sentence, Verbs: nilIfEmpty(verbs)}
}

// NewTimedLabelValue is the payload of located_at, do, location_of and sound_of properties.
func NewTimedLabelValue(domain TimeDomain, t float64, label string) *Value {
	v := newTimedValue(domain, t)
	v.Label = label
	return v
}

// NewFeelValue is the payload of a feel property.
func NewFeelValue(domain TimeDomain, t float64, label string, person string) *Value {
	v := NewTimedLabelValue(domain, t, label)
	v.Person = person
	return v
}

// NewRelationValue is the payload of a related_to property.
func NewRelationValue(domain TimeDomain, t float64, source []string, target []string, relationKB string, relation string) *Value {
	v := newTimedValue(domain, t)
	v.Source = nilIfEmpty(source)
	v.Target = nilIfEmpty(target)
	v.RelationKB = relationKB
	v.Relation = relation
	return v
}

// NewRelationObjectValue is the payload of a related_to_object property.
func NewRelationObjectValue(domain TimeDomain, t float64, source []string, target []string, sourceBox Box, targetBox Box, subclass string, relation string) *Value {
	v := NewRelationValue(domain, t, source, target, subclass, relation)
	v.SourceCoordinates = &sourceBox
	v.TargetCoordinates = &targetBox
	v.RelationObj = subclass
	return v
}

// NewSubtitleOfValue is the payload of a subtitle_of property.
func NewSubtitleOfValue(domain TimeDomain, t float64, text string, id string) *Value {
	v := NewTimedLabelValue(domain, t, text)
	v.ID = id
	return v
}

// NewEventOfValue is the payload of an event_of property.
func NewEventOfValue(domain TimeDomain, t float64, verbs []string) *Value {
	v := newTimedValue(domain, t)
	v.Verbs = nilIfEmpty(verbs)
	return v
}

// NewMentionValue is the payload of a mentioned_in property.
func NewMentionValue(domain TimeDomain, t float64, text string, kind string) *Value {
	v := NewTimedLabelValue(domain, t, text)
	v.Classes = kind
	return v
}

func newTimedValue(domain TimeDomain, t float64) *Value {
	v := &Value{}
	if domain == TimeDomainFrames {
		v.Frames = &t
	} else {
		v.Seconds = &t
	}
	return v
}

// Timestamp returns the value's timestamp in the given domain.
func (v *Value) Timestamp(domain TimeDomain) (float64, bool) {
	var t *float64
	switch domain {
	case TimeDomainSeconds:
		t = v.Seconds
	case TimeDomainFrames:
		t = v.Frames
	}
	if t == nil {
		return 0, false
	}
	return *t, true
}

// Domain returns the time domain the value is stamped in, or "" for untimed values.
func (v *Value) Domain() TimeDomain {
	switch {
	case v == nil:
		return ""
	case v.Seconds != nil:
		return TimeDomainSeconds
	case v.Frames != nil:
		return TimeDomainFrames
	}
	return ""
}

// Clone returns a deep copy of the value.
func (v *Value) Clone() *Value {
	if v == nil {
		return nil
	}
	c := *v
	c.Seconds = cloneFloat(v.Seconds)
	c.Frames = cloneFloat(v.Frames)
	c.Coordinates = cloneBox(v.Coordinates)
	c.SourceCoordinates = cloneBox(v.SourceCoordinates)
	c.TargetCoordinates = cloneBox(v.TargetCoordinates)
	c.Verbs = slices.Clone(v.Verbs)
	c.Source = slices.Clone(v.Source)
	c.Target = slices.Clone(v.Target)
	return &c
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	c := *f
	return &c
}

func cloneBox(b *Box) *Box {
	if b == nil {
		return nil
	}
	c := *b
	return &c
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return slices.Clone(s)
}

// Value implements the driver.Valuer interface for jsonb storage
func (v Value) Value() (driver.Value, error) {
	return json.Marshal(v)
}

// Scan implements the sql.Scanner interface for jsonb retrieval
func (v *Value) Scan(src interface{}) error {
	switch s := src.(type) {
	case nil:
		*v = Value{}
		return nil
	case []byte:
		return json.Unmarshal(s, v)
	case string:
		return json.Unmarshal([]byte(s), v)
	}
	return helper.NewError("value scan", fmt.Errorf("unsupported type %T", src))
}
