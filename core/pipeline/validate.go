package pipeline

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator"
	"github.com/siherrmann/scenegraph/model"
)

// reservedObjectClasses can not be assigned by object records.
var reservedObjectClasses = append([]model.Class{
	model.ClassUnknown,
	model.ClassVideo,
	model.ClassVideoBox,
}, append(slices.Clone(model.AbstractClasses), model.PropertyClasses...)...)

// reservedRelationClasses can not be assigned by relation records. The relation
// property classes stay usable since captioned relation_object streams carry them.
var reservedRelationClasses = slices.DeleteFunc(slices.Clone(reservedObjectClasses), func(c model.Class) bool {
	return c == model.ClassRelatedTo || c == model.ClassRelatedToObject
})

func newRecordValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(recordStructLevel, model.Record{})
	return v
}

func recordStructLevel(sl validator.StructLevel) {
	r := sl.Current().Interface().(model.Record)

	requireField := func(ok bool, field interface{}, name string) {
		if !ok {
			sl.ReportError(field, name, name, "required", "")
		}
	}
	requireBox := func(box *model.Box, name string) {
		if box != nil && !box.Valid() {
			sl.ReportError(*box, name, name, "box", "")
		}
	}
	requireRef := func(ref *model.ObjectRef, name string) {
		requireField(!ref.Empty(), ref, name)
		if ref != nil {
			requireBox(ref.Coordinates, name+".coordinates")
		}
	}

	requireUnreserved := func(reserved []model.Class) {
		if slices.Contains(reserved, model.Class(r.Class)) {
			sl.ReportError(r.Class, "class", "Class", "reserved", r.Class)
		}
	}

	requireBox(r.Coordinates, "coordinates")

	switch r.Type {
	case model.RecordTypeObject:
		requireField(r.Coordinates != nil, r.Coordinates, "coordinates")
		requireField(len(r.Class) > 0, r.Class, "class")
		requireUnreserved(reservedObjectClasses)
	case model.RecordTypeBehavior, model.RecordTypeEmotion:
		requireField(len(r.Class) > 0, r.Class, "class")
		requireRef(r.Subject(), "object")
	case model.RecordTypeRelation:
		requireField(len(r.Class) > 0, r.Class, "class")
		requireUnreserved(reservedRelationClasses)
		requireField(len(r.Subclass) > 0, r.Subclass, "subclass")
		requireRef(r.Source, "source")
		requireRef(r.Target, "target")
	case model.RecordTypeRelationObject:
		requireField(len(r.Class) > 0, r.Class, "class")
		requireUnreserved(reservedRelationClasses)
		requireField(len(r.Subclass) > 0, r.Subclass, "subclass")
		requireRef(r.Source, "source")
		requireRef(r.Target, "target")
		requireField(r.Source != nil && r.Source.Coordinates != nil, r.Source, "source.coordinates")
		requireField(r.Target != nil && r.Target.Coordinates != nil, r.Target, "target.coordinates")
	case model.RecordTypeLocation, model.RecordTypeSound:
		requireField(len(r.Class) > 0, r.Class, "class")
	case model.RecordTypeSubtitle:
		requireField(len(r.Subtitle) > 0, r.Subtitle, "subtitle")
	case model.RecordTypeEvent:
		requireField(len(r.Subtitle) > 0, r.Subtitle, "subtitle")
		requireField(len(r.Sentences) > 0, r.Sentences, "sentences")
	}
}

// validateRecord checks the record shape and that it is stamped in domain.
func (p *Pipeline) validateRecord(r *model.Record, domain model.TimeDomain) error {
	if r == nil {
		return fmt.Errorf("%w: empty record", model.ErrMalformedRecord)
	}

	err := p.validate.Struct(r)
	if err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			fields := make([]string, 0, len(validationErrors))
			for _, fe := range validationErrors {
				fields = append(fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", model.ErrMalformedRecord, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", model.ErrMalformedRecord, err)
	}

	if _, ok := r.Timestamp(domain); !ok {
		return fmt.Errorf("%w: no %s timestamp", model.ErrMalformedRecord, domain)
	}
	return nil
}
