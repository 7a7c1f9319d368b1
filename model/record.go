package model

import (
	"encoding/json"
	"strings"

	"github.com/invopop/jsonschema"
)

// RecordType is the annotation kind of a record.
type RecordType string

const (
	RecordTypeObject         RecordType = "object"
	RecordTypeBehavior       RecordType = "behavior"
	RecordTypeEmotion        RecordType = "emotion"
	RecordTypeRelation       RecordType = "relation"
	RecordTypeRelationObject RecordType = "relation_object"
	RecordTypeLocation       RecordType = "location"
	RecordTypeSound          RecordType = "sound"
	RecordTypeSubtitle       RecordType = "subtitle"
	RecordTypeEvent          RecordType = "event"
)

// ExternalID is an identifier assigned by an upstream annotation source.
// It decodes from JSON strings and numbers alike.
type ExternalID string

func (id *ExternalID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ExternalID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ExternalID(n.String())
	return nil
}

func (ExternalID) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		OneOf: []*jsonschema.Schema{
			{Type: "string"},
			{Type: "number"},
		},
	}
}

func (id ExternalID) String() string {
	return string(id)
}

// ObjectRef points at an object by external id, by coordinates or both.
type ObjectRef struct {
	ID          ExternalID `json:"id,omitempty"`
	Coordinates *Box       `json:"coordinates,omitempty"`
}

func (r *ObjectRef) Empty() bool {
	return r == nil || (len(r.ID) == 0 && r.Coordinates == nil)
}

type Sentence struct {
	Sentence string   `json:"sentence" validate:"required"`
	Verbs    []string `json:"verbs,omitempty"`
}

// Record is one decoded annotation. Which fields are required depends on Type.
type Record struct {
	Type        RecordType `json:"type" validate:"required,oneof=object behavior emotion relation relation_object location sound subtitle event" jsonschema:"enum=object,enum=behavior,enum=emotion,enum=relation,enum=relation_object,enum=location,enum=sound,enum=subtitle,enum=event"`
	Seconds     *float64   `json:"seconds,omitempty"`
	Frames      *float64   `json:"frames,omitempty"`
	StartTime   *float64   `json:"start_time,omitempty"`
	Coordinates *Box       `json:"coordinates,omitempty"`
	Class       string     `json:"class,omitempty"`
	Subclass    string     `json:"subclass,omitempty"`
	Label       string     `json:"label,omitempty"`
	ID          ExternalID `json:"id,omitempty"`
	Object      *ObjectRef `json:"object,omitempty"`
	Source      *ObjectRef `json:"source,omitempty"`
	Target      *ObjectRef `json:"target,omitempty"`
	Subtitle    string     `json:"subtitle,omitempty"`
	Sentences   []Sentence `json:"sentences,omitempty" validate:"dive"`
	Caption     string     `json:"caption,omitempty"`
}

// Timestamp returns the record's time in the given domain.
// Subtitle and event records carry their time as start_time.
func (r *Record) Timestamp(domain TimeDomain) (float64, bool) {
	switch domain {
	case TimeDomainFrames:
		if r.Frames != nil {
			return *r.Frames, true
		}
	case TimeDomainSeconds:
		if r.Seconds != nil {
			return *r.Seconds, true
		}
		if r.StartTime != nil {
			return *r.StartTime, true
		}
	}
	return 0, false
}

// Subject returns the object reference of behavior and emotion records.
// Frame indexed streams put id and coordinates on the record itself.
func (r *Record) Subject() *ObjectRef {
	if !r.Object.Empty() {
		return r.Object
	}
	if len(r.ID) > 0 || r.Coordinates != nil {
		return &ObjectRef{ID: r.ID, Coordinates: r.Coordinates}
	}
	return nil
}

// ApplyCaption fills a relation_object record's missing endpoint ids and
// subclass from its caption "<w0> <w1> <subclass> <target words...>".
// It reports whether the caption was used.
func (r *Record) ApplyCaption() bool {
	words := strings.Fields(r.Caption)
	if len(words) < 4 {
		return false
	}

	if r.Source == nil {
		r.Source = &ObjectRef{}
	}
	if r.Target == nil {
		r.Target = &ObjectRef{}
	}
	if len(r.Source.ID) == 0 {
		r.Source.ID = ExternalID(words[0] + "_" + words[1])
	}
	if len(r.Target.ID) == 0 {
		r.Target.ID = ExternalID(strings.Join(words[3:], "_"))
	}
	if len(r.Subclass) == 0 {
		r.Subclass = words[2]
	}
	if len(r.Class) == 0 {
		r.Class = string(ClassRelatedToObject)
	}
	return true
}

// RecordSchema returns the JSON schema of an annotation record.
func RecordSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
	}
	return reflector.Reflect(&Record{})
}
