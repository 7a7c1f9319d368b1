package pipeline

import (
	"fmt"

	"github.com/siherrmann/scenegraph/helper"
	"github.com/siherrmann/scenegraph/model"
)

// resolution is the outcome of looking up an object reference without
// writing to the store. A nil entity means a new object has to be created.
type resolution struct {
	entity *model.Entity
	// bind is an external id that is not registered yet and has to be bound
	// to the resolved or created object.
	bind string
	// anchor marks relation endpoints created for an unregistered id.
	anchor bool
	box    *model.Box
}

// inputIDs returns the external ids the object will carry after commit.
func (r resolution) inputIDs() []string {
	var ids []string
	if r.entity != nil {
		ids = append(ids, r.entity.InputIDs...)
	}
	if len(r.bind) > 0 && (r.entity == nil || !r.entity.HasInputID(r.bind)) {
		ids = append(ids, r.bind)
	}
	return ids
}

// resolveObject looks up the object a behavior or emotion record refers to.
func (p *Pipeline) resolveObject(domain model.TimeDomain, t float64, ref *model.ObjectRef) (resolution, error) {
	if ref.Empty() {
		return resolution{}, fmt.Errorf("%w: empty object reference", model.ErrMalformedRecord)
	}

	externalID := ref.ID.String()
	if len(externalID) > 0 {
		if id, ok := p.store.ObjectIDByExternalID(externalID); ok {
			entity, err := p.store.Get(id)
			if err != nil {
				return resolution{}, err
			}
			return resolution{entity: entity}, nil
		}
		if ref.Coordinates == nil {
			return resolution{}, &model.UnresolvedReferenceError{ExternalID: externalID, Reason: "id was never registered and no coordinates were given"}
		}
	}

	res, err := p.resolveCoordinates(domain, t, *ref.Coordinates)
	if err != nil {
		return resolution{}, err
	}
	res.bind = externalID
	return res, nil
}

// resolveEndpoint looks up a relation endpoint. An unregistered external id
// becomes a relation anchor bound to that id.
func (p *Pipeline) resolveEndpoint(domain model.TimeDomain, t float64, ref *model.ObjectRef) (resolution, error) {
	if ref.Empty() {
		return resolution{}, fmt.Errorf("%w: empty relation endpoint", model.ErrMalformedRecord)
	}

	externalID := ref.ID.String()
	if len(externalID) == 0 {
		res, err := p.resolveCoordinates(domain, t, *ref.Coordinates)
		res.box = ref.Coordinates
		return res, err
	}

	if id, ok := p.store.ObjectIDByExternalID(externalID); ok {
		entity, err := p.store.Get(id)
		if err != nil {
			return resolution{}, err
		}
		return resolution{entity: entity, box: ref.Coordinates}, nil
	}
	return resolution{bind: externalID, anchor: true, box: ref.Coordinates}, nil
}

func (p *Pipeline) resolveCoordinates(domain model.TimeDomain, t float64, box model.Box) (resolution, error) {
	id, found, err := p.merger.FindObject(p.store, domain, t, box)
	if err != nil {
		return resolution{}, err
	}
	if !found {
		return resolution{}, nil
	}
	entity, err := p.store.Get(id)
	if err != nil {
		return resolution{}, err
	}
	return resolution{entity: entity}, nil
}

// commitObject creates or updates the resolved object.
func (p *Pipeline) commitObject(res resolution) (*model.Entity, error) {
	if res.entity == nil {
		entity := model.NewObject(p.store.NextObjectID(), model.ClassUnknown, nil)
		if len(res.bind) > 0 {
			entity.InputIDs = []string{res.bind}
		}
		if err := p.store.Insert(entity); err != nil {
			return nil, helper.NewError("insert unknown object", err)
		}
		return entity, nil
	}

	if len(res.bind) == 0 || res.entity.HasInputID(res.bind) {
		return res.entity, nil
	}

	entity := res.entity.Clone()
	entity.InputIDs = append(entity.InputIDs, res.bind)
	if err := p.store.Add(entity); err != nil {
		return nil, helper.NewError("bind external id", err)
	}
	return entity, nil
}

// commitEndpoint creates the relation anchor of an unregistered endpoint id or
// falls back to commitObject. relation_object endpoints keep the record's box.
func (p *Pipeline) commitEndpoint(res resolution, anchorType model.EntityType, class string) (*model.Entity, error) {
	if !res.anchor {
		entity, err := p.commitObject(res)
		if err != nil || anchorType != model.EntityTypeRelationObject || res.box == nil {
			return entity, err
		}
		return p.stampCoordinates(entity, *res.box)
	}

	value := model.NewLabelValue(class)
	if anchorType == model.EntityTypeRelationObject && res.box != nil {
		box := *res.box
		value.Coordinates = &box
	}
	entity := &model.Entity{
		ID:       p.store.NextObjectID(),
		Type:     anchorType,
		Class:    model.Class(class),
		InputIDs: []string{res.bind},
		Value:    value,
	}
	if err := p.store.Insert(entity); err != nil {
		return nil, helper.NewError("insert relation anchor", err)
	}
	return entity, nil
}

// stampCoordinates stores box as value.coordinates of an existing endpoint.
func (p *Pipeline) stampCoordinates(entity *model.Entity, box model.Box) (*model.Entity, error) {
	if entity.Value != nil && entity.Value.Coordinates != nil && *entity.Value.Coordinates == box {
		return entity, nil
	}

	stamped := entity.Clone()
	if stamped.Value == nil {
		stamped.Value = &model.Value{}
	}
	stamped.Value.Coordinates = &box
	if err := p.store.Add(stamped); err != nil {
		return nil, helper.NewError("stamp endpoint coordinates", err)
	}
	return stamped, nil
}

// videoObject returns the id of the video singleton, creating it on first use.
func (p *Pipeline) videoObject() (string, error) {
	if id, ok := p.store.VideoID(); ok {
		return id, nil
	}
	video := model.NewObject(p.store.NextObjectID(), model.ClassVideo, nil)
	if err := p.store.Insert(video); err != nil {
		return "", helper.NewError("insert video", err)
	}
	return video.ID, nil
}

// abstractObject returns the object deduplicated by (class, label), creating
// it with value on first use.
func (p *Pipeline) abstractObject(class model.Class, label string, value *model.Value) (*model.Entity, error) {
	if id, ok := p.store.AbstractObjectID(class, label); ok {
		return p.store.Get(id)
	}

	entity := model.NewObject(p.store.NextObjectID(), class, value)
	if err := p.store.Insert(entity); err != nil {
		return nil, helper.NewError("insert "+string(class), err)
	}
	if err := p.store.SetAbstractObject(class, label, entity.ID); err != nil {
		return nil, helper.NewError("index "+string(class), err)
	}
	return entity, nil
}

// coordinateObject returns the video_box for (domain, t, box), creating it on first use.
func (p *Pipeline) coordinateObject(domain model.TimeDomain, t float64, box model.Box) (string, error) {
	if id, ok := p.store.CoordinateObjectID(domain, t, box); ok {
		return id, nil
	}

	entity := model.NewObject(p.store.NextObjectID(), model.ClassVideoBox, model.NewBoxValue(domain, t, box))
	if err := p.store.Insert(entity); err != nil {
		return "", helper.NewError("insert video_box", err)
	}
	if err := p.store.SetCoordinateObject(domain, t, box, entity.ID); err != nil {
		return "", helper.NewError("index video_box", err)
	}
	return entity.ID, nil
}

func (p *Pipeline) newProperty(class model.Class, source string, target string, value *model.Value) error {
	property := model.NewProperty(p.store.NextPropertyID(), class, source, target, value)
	if err := p.store.Insert(property); err != nil {
		return helper.NewError("insert "+string(class), err)
	}
	return nil
}
