package pipeline

import (
	"fmt"

	"github.com/siherrmann/scenegraph/helper"
	"github.com/siherrmann/scenegraph/model"
)

// Ingest validates and resolves a single record in the configured time domain.
func (p *Pipeline) Ingest(record *model.Record) error {
	return p.IngestIn(p.config.Domain, record)
}

// IngestIn validates and resolves a single record in the given time domain.
// Rejected records leave the store unchanged.
func (p *Pipeline) IngestIn(domain model.TimeDomain, record *model.Record) error {
	if !domain.Valid() {
		domain = p.config.Domain
	}
	if record != nil && record.Type == model.RecordTypeRelationObject && len(record.Caption) > 0 {
		record = captioned(record)
	}
	if err := p.validateRecord(record, domain); err != nil {
		return err
	}
	return p.dispatch(domain, record)
}

// captioned returns a copy of r with its caption applied. r is not modified.
func captioned(r *model.Record) *model.Record {
	c := *r
	if r.Source != nil {
		source := *r.Source
		c.Source = &source
	}
	if r.Target != nil {
		target := *r.Target
		c.Target = &target
	}
	c.ApplyCaption()
	return &c
}

func (p *Pipeline) dispatch(domain model.TimeDomain, r *model.Record) error {
	t, _ := r.Timestamp(domain)

	switch r.Type {
	case model.RecordTypeObject:
		return p.ingestObject(domain, t, r)
	case model.RecordTypeBehavior:
		return p.ingestBehavior(domain, t, r)
	case model.RecordTypeEmotion:
		return p.ingestEmotion(domain, t, r)
	case model.RecordTypeRelation:
		return p.ingestRelation(domain, t, r, model.EntityTypeRelation, model.ClassRelatedTo)
	case model.RecordTypeRelationObject:
		return p.ingestRelation(domain, t, r, model.EntityTypeRelationObject, model.ClassRelatedToObject)
	case model.RecordTypeLocation:
		return p.ingestVideoLabel(domain, t, model.ClassLocation, model.ClassLocationOf, r.Class)
	case model.RecordTypeSound:
		return p.ingestVideoLabel(domain, t, model.ClassSound, model.ClassSoundOf, r.Class)
	case model.RecordTypeSubtitle:
		return p.ingestSubtitle(domain, t, r)
	case model.RecordTypeEvent:
		return p.ingestEvent(domain, t, r)
	}
	return fmt.Errorf("%w: unknown record type %q", model.ErrMalformedRecord, r.Type)
}

func (p *Pipeline) ingestObject(domain model.TimeDomain, t float64, r *model.Record) error {
	box := *r.Coordinates
	externalID := r.ID.String()

	var existing *model.Entity
	if len(externalID) > 0 {
		if id, ok := p.store.ObjectIDByExternalID(externalID); ok {
			entity, err := p.store.Get(id)
			if err != nil {
				return err
			}
			existing = entity
		}
	}
	if existing == nil {
		res, err := p.resolveCoordinates(domain, t, box)
		if err != nil {
			return err
		}
		existing = res.entity
	}

	var value *model.Value
	if len(r.Label) > 0 {
		value = model.NewLabelValue(r.Label)
	}

	var object *model.Entity
	if existing != nil {
		object = existing.Clone()
		object.Type = model.EntityTypeObject
		object.Class = model.Class(r.Class)
		object.Value = value
		if len(externalID) > 0 && !object.HasInputID(externalID) {
			object.InputIDs = append(object.InputIDs, externalID)
		}
		if err := p.store.Add(object); err != nil {
			return helper.NewError("update object", err)
		}
	} else {
		object = model.NewObject(p.store.NextObjectID(), model.Class(r.Class), value)
		if len(externalID) > 0 {
			object.InputIDs = []string{externalID}
		}
		if err := p.store.Insert(object); err != nil {
			return helper.NewError("insert object", err)
		}
	}

	boxID, err := p.coordinateObject(domain, t, box)
	if err != nil {
		return err
	}
	return p.newProperty(model.ClassLocatedAt, object.ID, boxID, model.NewTimedLabelValue(domain, t, r.Label))
}

func (p *Pipeline) ingestBehavior(domain model.TimeDomain, t float64, r *model.Record) error {
	res, err := p.resolveObject(domain, t, r.Subject())
	if err != nil {
		return err
	}

	object, err := p.commitObject(res)
	if err != nil {
		return err
	}
	behavior, err := p.abstractObject(model.ClassBehavior, r.Class, model.NewLabelValue(r.Class))
	if err != nil {
		return err
	}
	return p.newProperty(model.ClassDo, object.ID, behavior.ID, model.NewTimedLabelValue(domain, t, r.Class))
}

func (p *Pipeline) ingestEmotion(domain model.TimeDomain, t float64, r *model.Record) error {
	ref := r.Subject()
	res, err := p.resolveObject(domain, t, ref)
	if err != nil {
		return err
	}

	inputIDs := res.inputIDs()
	if len(inputIDs) == 0 {
		return &model.UnresolvedReferenceError{Reason: "emotion object has no external id"}
	}

	object, err := p.commitObject(res)
	if err != nil {
		return err
	}
	emotion, err := p.abstractObject(model.ClassEmotion, r.Class, model.NewLabelValue(r.Class))
	if err != nil {
		return err
	}
	return p.newProperty(model.ClassFeel, object.ID, emotion.ID, model.NewFeelValue(domain, t, r.Class, inputIDs[0]))
}

// ingestRelation resolves and commits the endpoints one after the other, so a
// relation whose endpoints share an unregistered id gets a single anchor.
// Endpoint resolution only fails on store errors, which end the session anyway.
func (p *Pipeline) ingestRelation(domain model.TimeDomain, t float64, r *model.Record, anchorType model.EntityType, propertyClass model.Class) error {
	source, err := p.relationEndpoint(domain, t, r.Source, anchorType, r.Class)
	if err != nil {
		return err
	}
	target, err := p.relationEndpoint(domain, t, r.Target, anchorType, r.Class)
	if err != nil {
		return err
	}

	relation, err := p.abstractObject(model.Class(r.Class), r.Subclass, model.NewLabelValue(r.Subclass))
	if err != nil {
		return err
	}

	var value *model.Value
	if propertyClass == model.ClassRelatedToObject {
		value = model.NewRelationObjectValue(domain, t, source.InputIDs, target.InputIDs, *r.Source.Coordinates, *r.Target.Coordinates, r.Subclass, relation.ID)
	} else {
		value = model.NewRelationValue(domain, t, source.InputIDs, target.InputIDs, r.Subclass, relation.ID)
	}
	return p.newProperty(propertyClass, source.ID, target.ID, value)
}

func (p *Pipeline) relationEndpoint(domain model.TimeDomain, t float64, ref *model.ObjectRef, anchorType model.EntityType, class string) (*model.Entity, error) {
	res, err := p.resolveEndpoint(domain, t, ref)
	if err != nil {
		return nil, err
	}
	return p.commitEndpoint(res, anchorType, class)
}

// ingestVideoLabel links an abstract location or sound object to the video.
func (p *Pipeline) ingestVideoLabel(domain model.TimeDomain, t float64, class model.Class, propertyClass model.Class, label string) error {
	object, err := p.abstractObject(class, label, model.NewLabelValue(label))
	if err != nil {
		return err
	}
	video, err := p.videoObject()
	if err != nil {
		return err
	}
	return p.newProperty(propertyClass, object.ID, video, model.NewTimedLabelValue(domain, t, label))
}

func (p *Pipeline) ingestSubtitle(domain model.TimeDomain, t float64, r *model.Record) error {
	text := r.Subtitle
	subtitleID := r.ID.String()

	subtitle, err := p.abstractObject(model.ClassSubtitle, text, model.NewSubtitleValue(text, subtitleID))
	if err != nil {
		return err
	}
	if subtitle.Value.ID != subtitleID {
		subtitle = subtitle.Clone()
		subtitle.Value.ID = subtitleID
		if err := p.store.Add(subtitle); err != nil {
			return helper.NewError("stamp subtitle", err)
		}
	}

	video, err := p.videoObject()
	if err != nil {
		return err
	}
	if err := p.newProperty(model.ClassSubtitleOf, subtitle.ID, video, model.NewSubtitleOfValue(domain, t, text, subtitleID)); err != nil {
		return err
	}

	return p.tagSubtitle(domain, t, subtitle)
}

// tagSubtitle links the mentions found by the subtitle tagger to the subtitle.
// Tagger failures only lose the enrichment, the subtitle itself is kept.
func (p *Pipeline) tagSubtitle(domain model.TimeDomain, t float64, subtitle *model.Entity) error {
	if p.SubtitleTagger == nil {
		return nil
	}

	mentions, err := p.SubtitleTagger(subtitle.Label())
	if err != nil {
		p.log.Warn("Error tagging subtitle", "subtitle", subtitle.ID, "error", err)
		return nil
	}

	for _, mention := range mentions {
		if len(mention.Text) == 0 {
			continue
		}
		value := model.NewLabelValue(mention.Text)
		value.Classes = mention.Kind
		object, err := p.abstractObject(model.ClassMention, mention.Text, value)
		if err != nil {
			return err
		}
		if err := p.newProperty(model.ClassMentionedIn, object.ID, subtitle.ID, model.NewMentionValue(domain, t, mention.Text, mention.Kind)); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) ingestEvent(domain model.TimeDomain, t float64, r *model.Record) error {
	sentence := r.Sentences[0]

	event, err := p.abstractObject(model.ClassEvent, r.Subtitle, model.NewEventValue(sentence.Sentence, sentence.Verbs))
	if err != nil {
		return err
	}
	video, err := p.videoObject()
	if err != nil {
		return err
	}
	return p.newProperty(model.ClassEventOf, event.ID, video, model.NewEventOfValue(domain, t, event.Value.Verbs))
}
