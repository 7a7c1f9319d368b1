package model

import (
	"fmt"
	"slices"
)

// EntityType discriminates the entities of a scene graph.
type EntityType string

const (
	EntityTypeObject         EntityType = "object"
	EntityTypeProperty       EntityType = "property"
	EntityTypeRelation       EntityType = "relation"
	EntityTypeRelationObject EntityType = "relation_object"
)

// EntityTypes lists all valid entity types.
var EntityTypes = []EntityType{
	EntityTypeObject,
	EntityTypeProperty,
	EntityTypeRelation,
	EntityTypeRelationObject,
}

func (t EntityType) Valid() bool {
	return slices.Contains(EntityTypes, t)
}

// IsNode reports whether entities of this type are graph nodes.
// Only properties are edges.
func (t EntityType) IsNode() bool {
	return t.Valid() && t != EntityTypeProperty
}

// Class is the semantic subtype of an entity.
// Detected object classes (person, cup, ...) and relation type classes are free text,
// the constants below are the classes the engine itself assigns.
type Class string

const (
	ClassUnknown  Class = "unknown"
	ClassVideo    Class = "video"
	ClassVideoBox Class = "video_box"
	ClassBehavior Class = "behavior"
	ClassEmotion  Class = "emotion"
	ClassLocation Class = "location"
	ClassSound    Class = "sound"
	ClassSubtitle Class = "subtitle"
	ClassEvent    Class = "event"
	ClassMention  Class = "mention"

	ClassLocatedAt       Class = "located_at"
	ClassDo              Class = "do"
	ClassFeel            Class = "feel"
	ClassRelatedTo       Class = "related_to"
	ClassRelatedToObject Class = "related_to_object"
	ClassLocationOf      Class = "location_of"
	ClassSoundOf         Class = "sound_of"
	ClassSubtitleOf      Class = "subtitle_of"
	ClassEventOf         Class = "event_of"
	ClassMentionedIn     Class = "mentioned_in"
)

// PropertyClasses lists the classes a property entity may carry.
var PropertyClasses = []Class{
	ClassLocatedAt,
	ClassDo,
	ClassFeel,
	ClassRelatedTo,
	ClassRelatedToObject,
	ClassLocationOf,
	ClassSoundOf,
	ClassSubtitleOf,
	ClassEventOf,
	ClassMentionedIn,
}

// AbstractClasses lists the object classes deduplicated by label.
var AbstractClasses = []Class{
	ClassBehavior,
	ClassEmotion,
	ClassLocation,
	ClassSound,
	ClassSubtitle,
	ClassEvent,
	ClassMention,
}

func (c Class) IsProperty() bool {
	return slices.Contains(PropertyClasses, c)
}

func (c Class) IsAbstract() bool {
	return slices.Contains(AbstractClasses, c)
}

// Entity is a node (object, relation anchor) or an edge (property) of the scene graph.
type Entity struct {
	ID       string     `json:"id"`
	Type     EntityType `json:"entity_type"`
	Class    Class      `json:"class"`
	Source   string     `json:"source,omitempty"`
	Target   string     `json:"target,omitempty"`
	InputIDs []string   `json:"input_ids,omitempty"`
	Value    *Value     `json:"value,omitempty"`
}

// NewObject builds an object entity.
func NewObject(id string, class Class, value *Value) *Entity {
	return &Entity{
		ID:    id,
		Type:  EntityTypeObject,
		Class: class,
		Value: value,
	}
}

// NewProperty builds a property entity linking source to target.
func NewProperty(id string, class Class, source string, target string, value *Value) *Entity {
	return &Entity{
		ID:     id,
		Type:   EntityTypeProperty,
		Class:  class,
		Source: source,
		Target: target,
		Value:  value,
	}
}

// Clone returns a deep copy of the entity.
func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	c := *e
	c.InputIDs = slices.Clone(e.InputIDs)
	c.Value = e.Value.Clone()
	return &c
}

func (e *Entity) IsProperty() bool {
	return e.Type == EntityTypeProperty
}

// Label returns value.label or an empty string.
func (e *Entity) Label() string {
	if e.Value == nil {
		return ""
	}
	return e.Value.Label
}

// Timestamp returns the entity's timestamp in the given domain.
func (e *Entity) Timestamp(domain TimeDomain) (float64, bool) {
	if e.Value == nil {
		return 0, false
	}
	return e.Value.Timestamp(domain)
}

// HasInputID reports whether the external id is bound to the entity.
func (e *Entity) HasInputID(id string) bool {
	return slices.Contains(e.InputIDs, id)
}

// Validate checks that the entity carries the fields its type and class require.
func (e *Entity) Validate() error {
	if len(e.ID) == 0 {
		return fmt.Errorf("%w: missing id", ErrInvalidEntity)
	}
	if !e.Type.Valid() {
		return fmt.Errorf("%w: %s has unknown entity_type %q", ErrInvalidEntity, e.ID, e.Type)
	}
	if len(e.Class) == 0 {
		return fmt.Errorf("%w: %s has no class", ErrInvalidEntity, e.ID)
	}

	if e.Type == EntityTypeProperty {
		return e.validateProperty()
	}
	return e.validateNode()
}

func (e *Entity) validateProperty() error {
	if !e.Class.IsProperty() {
		return fmt.Errorf("%w: %s has non-property class %q", ErrInvalidEntity, e.ID, e.Class)
	}
	if len(e.Source) == 0 || len(e.Target) == 0 {
		return fmt.Errorf("%w: property %s needs source and target", ErrInvalidEntity, e.ID)
	}
	if e.Value == nil || (e.Value.Seconds == nil && e.Value.Frames == nil) {
		return fmt.Errorf("%w: property %s has no timestamp", ErrInvalidEntity, e.ID)
	}

	switch e.Class {
	case ClassFeel:
		if len(e.Value.Person) == 0 {
			return fmt.Errorf("%w: feel property %s has no person", ErrInvalidEntity, e.ID)
		}
	case ClassRelatedTo:
		if len(e.Value.Relation) == 0 {
			return fmt.Errorf("%w: related_to property %s has no relation type", ErrInvalidEntity, e.ID)
		}
	case ClassRelatedToObject:
		if len(e.Value.Relation) == 0 || e.Value.SourceCoordinates == nil || e.Value.TargetCoordinates == nil {
			return fmt.Errorf("%w: related_to_object property %s needs relation type and coordinates", ErrInvalidEntity, e.ID)
		}
	}
	return nil
}

func (e *Entity) validateNode() error {
	if len(e.Source) > 0 || len(e.Target) > 0 {
		return fmt.Errorf("%w: %s %s must not have source or target", ErrInvalidEntity, e.Type, e.ID)
	}

	switch {
	case e.Class == ClassVideoBox:
		if e.Value == nil || e.Value.Coordinates == nil || (e.Value.Seconds == nil && e.Value.Frames == nil) {
			return fmt.Errorf("%w: video_box %s needs coordinates and timestamp", ErrInvalidEntity, e.ID)
		}
	case e.Class == ClassEvent:
		if e.Value == nil || len(e.Value.Sentence) == 0 {
			return fmt.Errorf("%w: event %s needs a sentence", ErrInvalidEntity, e.ID)
		}
	case e.Class.IsAbstract():
		if len(e.Label()) == 0 {
			return fmt.Errorf("%w: %s object %s needs a label", ErrInvalidEntity, e.Class, e.ID)
		}
	}
	return nil
}
