package query

import (
	"context"
	"slices"
	"testing"

	"github.com/siherrmann/scenegraph/core/store"
	"github.com/siherrmann/scenegraph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	s := store.New()
	person := model.NewObject("O1", "person", model.NewLabelValue("ross"))
	person.InputIDs = []string{"person_1"}
	require.NoError(t, s.Insert(person))
	require.NoError(t, s.Insert(model.NewObject("O2", model.ClassVideoBox, model.NewBoxValue(model.TimeDomainSeconds, 5, model.Box{0, 0, 10, 10}))))
	require.NoError(t, s.Insert(model.NewObject("O3", model.ClassBehavior, model.NewLabelValue("sit"))))
	require.NoError(t, s.Insert(model.NewObject("O4", model.ClassEmotion, model.NewLabelValue("happy"))))
	require.NoError(t, s.Insert(model.NewProperty("P1", model.ClassLocatedAt, "O1", "O2", model.NewTimedLabelValue(model.TimeDomainSeconds, 5, "ross"))))
	require.NoError(t, s.Insert(model.NewProperty("P2", model.ClassDo, "O1", "O3", model.NewTimedLabelValue(model.TimeDomainSeconds, 4, "sit"))))
	require.NoError(t, s.Insert(model.NewProperty("P3", model.ClassFeel, "O1", "O4", model.NewFeelValue(model.TimeDomainFrames, 5, "happy", "person_1"))))
	require.NoError(t, s.Insert(model.NewProperty("P4", model.ClassDo, "O1", "O3", model.NewTimedLabelValue(model.TimeDomainSeconds, 6, "sit"))))
	return NewEngine(s)
}

func entityIDs(entities []*model.Entity) []string {
	ids := make([]string, 0, len(entities))
	for _, e := range entities {
		ids = append(ids, e.ID)
	}
	return ids
}

func TestEntitiesInTimeRange(t *testing.T) {
	e := newTestEngine(t)

	t.Run("Range is half open", func(t *testing.T) {
		entities, err := e.EntitiesInTimeRange(model.TimeDomainSeconds, nil, 4, 6)
		require.NoError(t, err)
		assert.Equal(t, []string{"O2", "P1", "P2"}, entityIDs(entities))
	})

	t.Run("Domains never mix", func(t *testing.T) {
		entities, err := e.EntitiesInTimeRange(model.TimeDomainFrames, nil, 0, 100)
		require.NoError(t, err)
		assert.Equal(t, []string{"P3"}, entityIDs(entities))
	})

	t.Run("Predicate filters", func(t *testing.T) {
		entities, err := e.EntitiesInTimeRange(model.TimeDomainSeconds, And(OfType(model.EntityTypeProperty), OfClass(model.ClassDo)), 0, 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"P2", "P4"}, entityIDs(entities))
	})

	t.Run("Empty range", func(t *testing.T) {
		entities, err := e.EntitiesInTimeRange(model.TimeDomainSeconds, nil, 5, 5)
		require.NoError(t, err)
		assert.Empty(t, entities)
	})

	t.Run("Unknown domain", func(t *testing.T) {
		_, err := e.EntitiesInTimeRange("minutes", nil, 0, 1)
		assert.Error(t, err)
	})
}

func TestSelect(t *testing.T) {
	e := newTestEngine(t)

	t.Run("Default config selects everything", func(t *testing.T) {
		entities, err := e.Select(model.DefaultQueryConfig())
		require.NoError(t, err)
		assert.Len(t, entities, 8)
	})

	t.Run("Types classes and limit", func(t *testing.T) {
		config := model.DefaultQueryConfig()
		config.EntityTypes = []model.EntityType{model.EntityTypeProperty}
		config.Classes = []model.Class{model.ClassDo, model.ClassFeel}
		config.Limit = 2

		entities, err := e.Select(config)
		require.NoError(t, err)
		assert.Equal(t, []string{"P2", "P3"}, entityIDs(entities))
	})

	t.Run("Range restricts to the domain", func(t *testing.T) {
		entities, err := e.Select(model.DefaultQueryConfig().WithRange(model.TimeDomainSeconds, 5, 10))
		require.NoError(t, err)
		assert.Equal(t, []string{"O2", "P1", "P4"}, entityIDs(entities))
	})

	t.Run("Count", func(t *testing.T) {
		assert.Equal(t, 2, e.Count([]model.EntityType{model.EntityTypeProperty}, []model.Class{model.ClassDo}))
		assert.Equal(t, 4, e.Count([]model.EntityType{model.EntityTypeObject}, nil))
	})
}

func TestPropertiesAndLookups(t *testing.T) {
	e := newTestEngine(t)

	t.Run("PropertiesOf in insertion order", func(t *testing.T) {
		properties, err := e.PropertiesOf("O1")
		require.NoError(t, err)
		assert.Equal(t, []string{"P1", "P2", "P3", "P4"}, entityIDs(properties))
	})

	t.Run("PropertiesTo", func(t *testing.T) {
		properties, err := e.PropertiesTo("O3")
		require.NoError(t, err)
		assert.Equal(t, []string{"P2", "P4"}, entityIDs(properties))
	})

	t.Run("PropertiesOf missing object", func(t *testing.T) {
		_, err := e.PropertiesOf("O99")
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("Timeline is ordered by time", func(t *testing.T) {
		timeline, err := e.Timeline("O1", model.TimeDomainSeconds)
		require.NoError(t, err)
		assert.Equal(t, []string{"P2", "P1", "P4"}, entityIDs(timeline))
	})

	t.Run("ObjectByExternalID", func(t *testing.T) {
		person, err := e.ObjectByExternalID("person_1")
		require.NoError(t, err)
		assert.Equal(t, "O1", person.ID)

		_, err = e.ObjectByExternalID("ghost")
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("Where", func(t *testing.T) {
		matched := slices.Collect(e.Where(WithInputID("person_1")))
		assert.Equal(t, []string{"O1"}, entityIDs(matched))
		assert.Len(t, slices.Collect(e.Where(nil)), 8)
	})
}

func TestEngineTraversal(t *testing.T) {
	e := newTestEngine(t)

	t.Run("Traverse follows the config", func(t *testing.T) {
		config := model.DefaultQueryConfig()
		config.MaxHops = 1
		config.PropertyClasses = []model.Class{model.ClassDo}

		results, err := e.Traverse(context.Background(), "O1", config)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "O3", results[1].Entity.ID)
		assert.Equal(t, "P2", results[1].Via)
	})

	t.Run("Neighbors", func(t *testing.T) {
		neighbors, err := e.Neighbors(context.Background(), "O3", model.DefaultQueryConfig())
		require.NoError(t, err)
		assert.Equal(t, []string{"O1"}, entityIDs(neighbors))
	})
}

func TestPredicates(t *testing.T) {
	person := model.NewObject("O1", "person", nil)
	person.InputIDs = []string{"a"}

	assert.True(t, Any()(person))
	assert.True(t, OfType(model.EntityTypeProperty, model.EntityTypeObject)(person))
	assert.False(t, OfClass(model.ClassVideo)(person))
	assert.True(t, And(nil, OfClass("person"), WithInputID("a"))(person))
	assert.False(t, And(OfClass("person"), WithInputID("b"))(person))
}
