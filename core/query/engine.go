package query

import (
	"context"
	"fmt"
	"iter"
	"slices"

	"github.com/siherrmann/scenegraph/core/graph"
	"github.com/siherrmann/scenegraph/core/store"
	"github.com/siherrmann/scenegraph/helper"
	"github.com/siherrmann/scenegraph/model"
)

// Engine provides read-only queries and graph traversal over an entity store
type Engine struct {
	store *store.Store
}

// NewEngine creates a new query engine
func NewEngine(s *store.Store) *Engine {
	return &Engine{store: s}
}

// Get returns the entity with id.
func (e *Engine) Get(id string) (*model.Entity, error) {
	return e.store.Get(id)
}

// EntitiesInTimeRange returns the entities matching predicate whose timestamp
// in domain lies in [t0, t1), in insertion order. Entities without a timestamp
// in domain are never returned.
func (e *Engine) EntitiesInTimeRange(domain model.TimeDomain, predicate Predicate, t0 float64, t1 float64) ([]*model.Entity, error) {
	if !domain.Valid() {
		return nil, helper.NewError("time range query", fmt.Errorf("unknown time domain %q", domain))
	}
	if predicate == nil {
		predicate = Any()
	}

	var entities []*model.Entity
	for entity := range e.store.Select(nil, nil, domain) {
		t, ok := entity.Timestamp(domain)
		if !ok || t < t0 || t >= t1 {
			continue
		}
		if predicate(entity) {
			entities = append(entities, entity)
		}
	}
	return entities, nil
}

// Select returns the entities matching config in insertion order. The time
// domain only filters when a range bound is set.
func (e *Engine) Select(config model.QueryConfig) ([]*model.Entity, error) {
	var domain model.TimeDomain
	ranged := config.From != nil || config.To != nil
	if ranged {
		if !config.Domain.Valid() {
			return nil, helper.NewError("select", fmt.Errorf("unknown time domain %q", config.Domain))
		}
		domain = config.Domain
	}

	var entities []*model.Entity
	for entity := range e.store.Select(config.EntityTypes, config.Classes, domain) {
		if ranged {
			t, ok := entity.Timestamp(domain)
			if !ok || (config.From != nil && t < *config.From) || (config.To != nil && t >= *config.To) {
				continue
			}
		}
		entities = append(entities, entity)
		if config.Limit > 0 && len(entities) >= config.Limit {
			break
		}
	}
	return entities, nil
}

// Count returns the number of entities of the given types and classes.
func (e *Engine) Count(types []model.EntityType, classes []model.Class) int {
	return int(e.store.Count(types, classes, ""))
}

// PropertiesOf returns the properties whose source is objectID, in insertion order.
func (e *Engine) PropertiesOf(objectID string) ([]*model.Entity, error) {
	if _, err := e.store.Get(objectID); err != nil {
		return nil, err
	}
	return e.collect(e.store.Outgoing(objectID))
}

// PropertiesTo returns the properties whose target is objectID, in insertion order.
func (e *Engine) PropertiesTo(objectID string) ([]*model.Entity, error) {
	if _, err := e.store.Get(objectID); err != nil {
		return nil, err
	}
	return e.collect(e.store.Incoming(objectID))
}

// Timeline returns the properties of objectID stamped in domain, ordered by time.
// Properties with equal timestamps keep their insertion order.
func (e *Engine) Timeline(objectID string, domain model.TimeDomain) ([]*model.Entity, error) {
	properties, err := e.PropertiesOf(objectID)
	if err != nil {
		return nil, err
	}

	timeline := slices.DeleteFunc(properties, func(p *model.Entity) bool {
		_, ok := p.Timestamp(domain)
		return !ok
	})
	slices.SortStableFunc(timeline, func(a, b *model.Entity) int {
		ta, _ := a.Timestamp(domain)
		tb, _ := b.Timestamp(domain)
		switch {
		case ta < tb:
			return -1
		case ta > tb:
			return 1
		}
		return 0
	})
	return timeline, nil
}

// ObjectByExternalID returns the object bound to an upstream id.
func (e *Engine) ObjectByExternalID(externalID string) (*model.Entity, error) {
	id, ok := e.store.ObjectIDByExternalID(externalID)
	if !ok {
		return nil, fmt.Errorf("%w: external id %q", model.ErrNotFound, externalID)
	}
	return e.store.Get(id)
}

// Where yields the entities matching predicate in insertion order.
func (e *Engine) Where(predicate Predicate) iter.Seq[*model.Entity] {
	if predicate == nil {
		predicate = Any()
	}
	return func(yield func(*model.Entity) bool) {
		for entity := range e.store.Iterate() {
			if predicate(entity) && !yield(entity) {
				return
			}
		}
	}
}

// Traverse walks the graph from id with the hop limit and property filter of config.
func (e *Engine) Traverse(ctx context.Context, id string, config model.QueryConfig) ([]*graph.TraversalResult, error) {
	return graph.Traverse(ctx, e.store, id, config)
}

// Neighbors returns the entities one property away from id.
func (e *Engine) Neighbors(ctx context.Context, id string, config model.QueryConfig) ([]*model.Entity, error) {
	return graph.Neighbors(ctx, e.store, id, config.PropertyClasses, config.FollowBidirectional)
}

func (e *Engine) collect(ids []string) ([]*model.Entity, error) {
	entities := make([]*model.Entity, 0, len(ids))
	for _, id := range ids {
		entity, err := e.store.Get(id)
		if err != nil {
			return nil, helper.NewError("get property", err)
		}
		entities = append(entities, entity)
	}
	return entities, nil
}
