package graph

import (
	"context"
	"slices"

	"github.com/siherrmann/scenegraph/helper"
	"github.com/siherrmann/scenegraph/model"
)

// GraphStore defines the adjacency lookups a traversal needs
type GraphStore interface {
	Get(id string) (*model.Entity, error)
	Outgoing(id string) []string
	Incoming(id string) []string
}

// TraversalResult contains an entity and its distance from the source
type TraversalResult struct {
	Entity   *model.Entity
	Distance int
	Path     []string // Node ids from source to this entity
	Via      string   // Property id used to reach this entity
}

// step is a node reachable from the current node over one property.
type step struct {
	property string
	node     string
}

// steps returns the nodes one property away from id, outgoing properties first.
func steps(g GraphStore, id string, propertyClasses []model.Class, followBidirectional bool) ([]step, error) {
	var out []step

	follow := func(propertyIDs []string, reverse bool) error {
		for _, propertyID := range propertyIDs {
			property, err := g.Get(propertyID)
			if err != nil {
				return helper.NewError("get property", err)
			}
			if len(propertyClasses) > 0 && !slices.Contains(propertyClasses, property.Class) {
				continue
			}
			next := property.Target
			if reverse {
				next = property.Source
			}
			out = append(out, step{property: propertyID, node: next})
		}
		return nil
	}

	if err := follow(g.Outgoing(id), false); err != nil {
		return nil, err
	}
	if followBidirectional {
		if err := follow(g.Incoming(id), true); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// BFS performs breadth-first search from a source entity
func BFS(ctx context.Context, g GraphStore, sourceID string, maxHops int, propertyClasses []model.Class, followBidirectional bool) ([]*TraversalResult, error) {
	source, err := g.Get(sourceID)
	if err != nil {
		return nil, err
	}

	visited := map[string]bool{sourceID: true}
	queue := []TraversalResult{{
		Entity:   source,
		Distance: 0,
		Path:     []string{sourceID},
	}}

	var results []*TraversalResult
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		current := queue[0]
		queue = queue[1:]
		results = append(results, &current)

		if current.Distance >= maxHops {
			continue
		}

		next, err := steps(g, current.Entity.ID, propertyClasses, followBidirectional)
		if err != nil {
			return nil, err
		}
		for _, s := range next {
			if visited[s.node] {
				continue
			}
			target, err := g.Get(s.node)
			if err != nil {
				return nil, helper.NewError("get neighbor", err)
			}
			visited[s.node] = true

			queue = append(queue, TraversalResult{
				Entity:   target,
				Distance: current.Distance + 1,
				Path:     append(slices.Clone(current.Path), s.node),
				Via:      s.property,
			})
		}
	}

	return results, nil
}

// DFS performs depth-first search from a source entity
func DFS(ctx context.Context, g GraphStore, sourceID string, maxHops int, propertyClasses []model.Class, followBidirectional bool) ([]*TraversalResult, error) {
	source, err := g.Get(sourceID)
	if err != nil {
		return nil, err
	}

	var results []*TraversalResult
	visited := map[string]bool{}
	err = dfsRecursive(ctx, g, &TraversalResult{Entity: source, Path: []string{sourceID}}, maxHops, propertyClasses, followBidirectional, visited, &results)
	if err != nil {
		return nil, err
	}
	return results, nil
}

func dfsRecursive(
	ctx context.Context,
	g GraphStore,
	current *TraversalResult,
	maxHops int,
	propertyClasses []model.Class,
	followBidirectional bool,
	visited map[string]bool,
	results *[]*TraversalResult,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	visited[current.Entity.ID] = true
	*results = append(*results, current)

	if current.Distance >= maxHops {
		return nil
	}

	next, err := steps(g, current.Entity.ID, propertyClasses, followBidirectional)
	if err != nil {
		return err
	}
	for _, s := range next {
		if visited[s.node] {
			continue
		}
		target, err := g.Get(s.node)
		if err != nil {
			return helper.NewError("get neighbor", err)
		}

		err = dfsRecursive(ctx, g, &TraversalResult{
			Entity:   target,
			Distance: current.Distance + 1,
			Path:     append(slices.Clone(current.Path), s.node),
			Via:      s.property,
		}, maxHops, propertyClasses, followBidirectional, visited, results)
		if err != nil {
			return err
		}
	}
	return nil
}

// Neighbors retrieves the entities one property away from id
func Neighbors(ctx context.Context, g GraphStore, id string, propertyClasses []model.Class, followBidirectional bool) ([]*model.Entity, error) {
	results, err := BFS(ctx, g, id, 1, propertyClasses, followBidirectional)
	if err != nil {
		return nil, err
	}

	// Skip the source entity itself (first result)
	neighbors := make([]*model.Entity, 0, len(results)-1)
	for _, result := range results[1:] {
		neighbors = append(neighbors, result.Entity)
	}
	return neighbors, nil
}

// Traverse runs BFS with the hop limit and property filter of config.
func Traverse(ctx context.Context, g GraphStore, sourceID string, config model.QueryConfig) ([]*TraversalResult, error) {
	return BFS(ctx, g, sourceID, config.MaxHops, config.PropertyClasses, config.FollowBidirectional)
}
