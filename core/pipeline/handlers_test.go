package pipeline

import (
	"encoding/json"
	"io"
	"log/slog"
	"slices"
	"testing"

	"github.com/siherrmann/scenegraph/core/store"
	"github.com/siherrmann/scenegraph/helper"
	"github.com/siherrmann/scenegraph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPipeline(t *testing.T, configure ...func(*model.EngineConfig)) *Pipeline {
	t.Helper()

	config := model.DefaultEngineConfig()
	for _, c := range configure {
		c(&config)
	}
	p, err := NewPipeline(store.New(), config, helper.NewLogger(io.Discard, slog.LevelError))
	require.NoError(t, err)
	return p
}

func record(t *testing.T, data string) *model.Record {
	t.Helper()

	r := &model.Record{}
	require.NoError(t, json.Unmarshal([]byte(data), r))
	return r
}

func ingest(t *testing.T, p *Pipeline, data ...string) {
	t.Helper()

	for _, d := range data {
		require.NoError(t, p.Ingest(record(t, d)))
	}
}

func selectEntities(p *Pipeline, entityType model.EntityType, class model.Class) []*model.Entity {
	var classes []model.Class
	if len(class) > 0 {
		classes = []model.Class{class}
	}
	return slices.Collect(p.Store().Select([]model.EntityType{entityType}, classes, ""))
}

func TestNewPipeline(t *testing.T) {
	t.Run("Nil store is rejected", func(t *testing.T) {
		_, err := NewPipeline(nil, model.DefaultEngineConfig(), nil)
		assert.Error(t, err)
	})

	t.Run("Invalid config is rejected", func(t *testing.T) {
		config := model.DefaultEngineConfig()
		config.MergeThreshold = 2
		_, err := NewPipeline(store.New(), config, nil)
		assert.Error(t, err)
	})

	t.Run("Subtitle tagger can be set", func(t *testing.T) {
		p := newTestPipeline(t)
		p.SetSubtitleTagger(func(string) ([]Mention, error) { return nil, nil })
		assert.NotNil(t, p.SubtitleTagger)
	})
}

func TestIngestObjectAndBehavior(t *testing.T) {
	p := newTestPipeline(t)
	ingest(t, p,
		`{"type":"object","seconds":5.0,"coordinates":[10,10,20,20],"class":"person","label":"p1","id":"person_1"}`,
		`{"type":"behavior","seconds":5.2,"object":{"id":"person_1"},"class":"sit"}`,
	)

	t.Run("Object is bound to its external id", func(t *testing.T) {
		id, ok := p.Store().ObjectIDByExternalID("person_1")
		require.True(t, ok)
		assert.Equal(t, "O1", id)

		person, err := p.Store().Get(id)
		require.NoError(t, err)
		assert.Equal(t, model.Class("person"), person.Class)
		assert.Equal(t, "p1", person.Label())
	})

	t.Run("Coordinate object and located_at are created", func(t *testing.T) {
		boxes := selectEntities(p, model.EntityTypeObject, model.ClassVideoBox)
		require.Len(t, boxes, 1)
		assert.Equal(t, model.Box{10, 10, 20, 20}, *boxes[0].Value.Coordinates)

		locatedAt := selectEntities(p, model.EntityTypeProperty, model.ClassLocatedAt)
		require.Len(t, locatedAt, 1)
		assert.Equal(t, "O1", locatedAt[0].Source)
		assert.Equal(t, boxes[0].ID, locatedAt[0].Target)
		assert.Equal(t, "p1", locatedAt[0].Label())
	})

	t.Run("Behavior is linked by a do property", func(t *testing.T) {
		behaviors := selectEntities(p, model.EntityTypeObject, model.ClassBehavior)
		require.Len(t, behaviors, 1)
		assert.Equal(t, "sit", behaviors[0].Label())

		do := selectEntities(p, model.EntityTypeProperty, model.ClassDo)
		require.Len(t, do, 1)
		assert.Equal(t, "O1", do[0].Source)
		assert.Equal(t, behaviors[0].ID, do[0].Target)
		seconds, ok := do[0].Timestamp(model.TimeDomainSeconds)
		require.True(t, ok)
		assert.Equal(t, 5.2, seconds)
	})

	t.Run("Ids are allocated in order", func(t *testing.T) {
		objects, properties := p.Store().Allocated()
		assert.Equal(t, uint64(3), objects)
		assert.Equal(t, uint64(2), properties)
	})
}

func TestIngestObjectMerge(t *testing.T) {
	t.Run("Overlapping boxes within the window merge", func(t *testing.T) {
		p := newTestPipeline(t)
		ingest(t, p,
			`{"type":"object","seconds":1,"coordinates":[0,0,10,10],"class":"person","label":"a"}`,
			`{"type":"object","seconds":2,"coordinates":[1,1,10,10],"class":"person","label":"b"}`,
		)

		people := selectEntities(p, model.EntityTypeObject, "person")
		require.Len(t, people, 1)
		assert.Equal(t, "b", people[0].Label(), "Expected the later record to overwrite the label")

		for _, property := range selectEntities(p, model.EntityTypeProperty, model.ClassLocatedAt) {
			assert.Equal(t, people[0].ID, property.Source)
		}
	})

	t.Run("Barely touching boxes stay separate", func(t *testing.T) {
		p := newTestPipeline(t)
		ingest(t, p,
			`{"type":"object","seconds":1,"coordinates":[0,0,10,10],"class":"person"}`,
			`{"type":"object","seconds":2,"coordinates":[9,9,10,10],"class":"person"}`,
		)
		assert.Len(t, selectEntities(p, model.EntityTypeObject, "person"), 2)
	})

	t.Run("Records outside the window stay separate", func(t *testing.T) {
		p := newTestPipeline(t)
		ingest(t, p,
			`{"type":"object","seconds":1,"coordinates":[0,0,10,10],"class":"person"}`,
			`{"type":"object","seconds":3.5,"coordinates":[0,0,10,10],"class":"person"}`,
		)
		assert.Len(t, selectEntities(p, model.EntityTypeObject, "person"), 2)
	})

	t.Run("Repeated record reuses object and coordinate object", func(t *testing.T) {
		p := newTestPipeline(t)
		data := `{"type":"object","seconds":1,"coordinates":[0,0,10,10],"class":"cup","label":"c"}`
		ingest(t, p, data, data)

		assert.Len(t, selectEntities(p, model.EntityTypeObject, "cup"), 1)
		assert.Len(t, selectEntities(p, model.EntityTypeObject, model.ClassVideoBox), 1)
		assert.Len(t, selectEntities(p, model.EntityTypeProperty, model.ClassLocatedAt), 2)
	})

	t.Run("Registered id wins over coordinates", func(t *testing.T) {
		p := newTestPipeline(t)
		ingest(t, p,
			`{"type":"object","seconds":1,"coordinates":[0,0,10,10],"class":"person","id":7}`,
			`{"type":"object","seconds":1,"coordinates":[500,500,10,10],"class":"person","id":"7"}`,
		)

		people := selectEntities(p, model.EntityTypeObject, "person")
		require.Len(t, people, 1)
		assert.Equal(t, []string{"7"}, people[0].InputIDs)
		assert.Len(t, selectEntities(p, model.EntityTypeObject, model.ClassVideoBox), 2)
	})

	t.Run("Merged object collects external ids", func(t *testing.T) {
		p := newTestPipeline(t)
		ingest(t, p,
			`{"type":"object","seconds":1,"coordinates":[0,0,10,10],"class":"person","id":"a"}`,
			`{"type":"object","seconds":1.5,"coordinates":[0,0,10,10],"class":"person","id":"b"}`,
		)

		people := selectEntities(p, model.EntityTypeObject, "person")
		require.Len(t, people, 1)
		assert.Equal(t, []string{"a", "b"}, people[0].InputIDs)
	})
}

func TestIngestObjectReferences(t *testing.T) {
	object := `{"type":"object","seconds":5,"coordinates":[10,10,20,20],"class":"person","id":"person_1"}`

	t.Run("Unregistered id without coordinates is unresolved", func(t *testing.T) {
		p := newTestPipeline(t)
		ingest(t, p, object)
		before := p.Store().Len()

		err := p.Ingest(record(t, `{"type":"behavior","seconds":5,"object":{"id":"ghost"},"class":"sit"}`))
		require.ErrorIs(t, err, model.ErrUnresolvedReference)
		assert.Equal(t, before, p.Store().Len(), "Expected a rejected record to leave the store unchanged")
		objects, properties := p.Store().Allocated()
		assert.Equal(t, uint64(2), objects)
		assert.Equal(t, uint64(1), properties)
	})

	t.Run("Unregistered id with coordinates binds to matched object", func(t *testing.T) {
		p := newTestPipeline(t)
		ingest(t, p, object,
			`{"type":"behavior","seconds":5.5,"object":{"id":"track_9","coordinates":[11,11,20,20]},"class":"walk"}`,
		)

		id, ok := p.Store().ObjectIDByExternalID("track_9")
		require.True(t, ok)
		assert.Equal(t, "O1", id)
	})

	t.Run("Coordinates without match create an unknown object", func(t *testing.T) {
		p := newTestPipeline(t)
		ingest(t, p, object,
			`{"type":"behavior","seconds":5,"object":{"coordinates":[300,300,20,20]},"class":"walk"}`,
		)

		unknown := selectEntities(p, model.EntityTypeObject, model.ClassUnknown)
		require.Len(t, unknown, 1)
		do := selectEntities(p, model.EntityTypeProperty, model.ClassDo)
		require.Len(t, do, 1)
		assert.Equal(t, unknown[0].ID, do[0].Source)
	})

	t.Run("Top level reference of frame streams", func(t *testing.T) {
		p := newTestPipeline(t)
		require.NoError(t, p.IngestIn(model.TimeDomainFrames, record(t, `{"type":"object","frames":30,"coordinates":[0,0,50,50],"class":"person","id":"person_2"}`)))
		require.NoError(t, p.IngestIn(model.TimeDomainFrames, record(t, `{"type":"behavior","frames":34,"id":"person_2","class":"sit"}`)))

		do := selectEntities(p, model.EntityTypeProperty, model.ClassDo)
		require.Len(t, do, 1)
		frames, ok := do[0].Timestamp(model.TimeDomainFrames)
		require.True(t, ok)
		assert.Equal(t, 34.0, frames)
	})
}

func TestIngestEmotion(t *testing.T) {
	t.Run("Feel property names the person", func(t *testing.T) {
		p := newTestPipeline(t)
		require.NoError(t, p.IngestIn(model.TimeDomainFrames, record(t, `{"type":"object","frames":30,"coordinates":[0,0,50,50],"class":"person","id":"person_1"}`)))
		require.NoError(t, p.IngestIn(model.TimeDomainFrames, record(t, `{"type":"emotion","frames":31,"object":{"id":"person_1"},"class":"happy"}`)))

		feel := selectEntities(p, model.EntityTypeProperty, model.ClassFeel)
		require.Len(t, feel, 1)
		assert.Equal(t, "person_1", feel[0].Value.Person)
		assert.Equal(t, "happy", feel[0].Label())

		emotions := selectEntities(p, model.EntityTypeObject, model.ClassEmotion)
		require.Len(t, emotions, 1)
		assert.Equal(t, emotions[0].ID, feel[0].Target)
	})

	t.Run("Object without external id is unresolved", func(t *testing.T) {
		p := newTestPipeline(t)
		ingest(t, p, `{"type":"object","seconds":1,"coordinates":[0,0,50,50],"class":"person"}`)
		before := p.Store().Len()

		err := p.Ingest(record(t, `{"type":"emotion","seconds":1,"object":{"coordinates":[0,0,50,50]},"class":"sad"}`))
		require.ErrorIs(t, err, model.ErrUnresolvedReference)
		assert.Equal(t, before, p.Store().Len())
	})

	t.Run("Id bound by coordinates becomes the person", func(t *testing.T) {
		p := newTestPipeline(t)
		ingest(t, p,
			`{"type":"object","seconds":1,"coordinates":[0,0,50,50],"class":"person"}`,
			`{"type":"emotion","seconds":1,"object":{"id":"face_3","coordinates":[0,0,50,50]},"class":"sad"}`,
		)

		feel := selectEntities(p, model.EntityTypeProperty, model.ClassFeel)
		require.Len(t, feel, 1)
		assert.Equal(t, "face_3", feel[0].Value.Person)
	})
}

func TestIngestAbstractObjects(t *testing.T) {
	t.Run("Behaviors are deduplicated by label", func(t *testing.T) {
		p := newTestPipeline(t)
		ingest(t, p,
			`{"type":"object","seconds":1,"coordinates":[0,0,10,10],"class":"person","id":"a"}`,
			`{"type":"behavior","seconds":1,"object":{"id":"a"},"class":"sit"}`,
			`{"type":"behavior","seconds":2,"object":{"id":"a"},"class":"sit"}`,
			`{"type":"behavior","seconds":3,"object":{"id":"a"},"class":"stand"}`,
		)
		assert.Len(t, selectEntities(p, model.EntityTypeObject, model.ClassBehavior), 2)
		assert.Len(t, selectEntities(p, model.EntityTypeProperty, model.ClassDo), 3)
	})

	t.Run("Locations and sounds hang off one video", func(t *testing.T) {
		p := newTestPipeline(t)
		ingest(t, p,
			`{"type":"location","seconds":1,"class":"kitchen"}`,
			`{"type":"location","seconds":2,"class":"kitchen"}`,
			`{"type":"sound","seconds":2,"class":"laughter"}`,
		)

		videos := selectEntities(p, model.EntityTypeObject, model.ClassVideo)
		require.Len(t, videos, 1)
		assert.Len(t, selectEntities(p, model.EntityTypeObject, model.ClassLocation), 1)

		for _, property := range selectEntities(p, model.EntityTypeProperty, "") {
			assert.Equal(t, videos[0].ID, property.Target)
		}
		assert.Len(t, selectEntities(p, model.EntityTypeProperty, model.ClassLocationOf), 2)
		assert.Len(t, selectEntities(p, model.EntityTypeProperty, model.ClassSoundOf), 1)
	})

	t.Run("Subtitle id is restamped", func(t *testing.T) {
		p := newTestPipeline(t)
		ingest(t, p,
			`{"type":"subtitle","start_time":1.5,"subtitle":"How you doin?","id":1}`,
			`{"type":"subtitle","start_time":40,"subtitle":"How you doin?","id":12}`,
		)

		subtitles := selectEntities(p, model.EntityTypeObject, model.ClassSubtitle)
		require.Len(t, subtitles, 1)
		assert.Equal(t, "12", subtitles[0].Value.ID)

		subtitleOf := selectEntities(p, model.EntityTypeProperty, model.ClassSubtitleOf)
		require.Len(t, subtitleOf, 2)
		assert.Equal(t, "1", subtitleOf[0].Value.ID)
		assert.Equal(t, "12", subtitleOf[1].Value.ID)
	})

	t.Run("Event keeps the first sentence", func(t *testing.T) {
		p := newTestPipeline(t)
		ingest(t, p, `{"type":"event","start_time":12.5,"subtitle":"I'm so hungry","sentences":[{"sentence":"Joey is hungry","verbs":["be"]},{"sentence":"ignored"}]}`)

		events := selectEntities(p, model.EntityTypeObject, model.ClassEvent)
		require.Len(t, events, 1)
		assert.Equal(t, "Joey is hungry", events[0].Value.Sentence)

		eventOf := selectEntities(p, model.EntityTypeProperty, model.ClassEventOf)
		require.Len(t, eventOf, 1)
		assert.Equal(t, []string{"be"}, eventOf[0].Value.Verbs)
		seconds, ok := eventOf[0].Timestamp(model.TimeDomainSeconds)
		require.True(t, ok)
		assert.Equal(t, 12.5, seconds)
	})
}

func TestIngestSubtitleTagger(t *testing.T) {
	t.Run("Mentions are linked to the subtitle", func(t *testing.T) {
		p := newTestPipeline(t)
		p.SetSubtitleTagger(func(text string) ([]Mention, error) {
			return []Mention{{Text: "Rachel", Kind: "PER", Score: 0.9}, {Text: ""}}, nil
		})
		ingest(t, p,
			`{"type":"subtitle","start_time":1,"subtitle":"Rachel, wait!","id":1}`,
			`{"type":"subtitle","start_time":2,"subtitle":"Where is Rachel?","id":2}`,
		)

		mentions := selectEntities(p, model.EntityTypeObject, model.ClassMention)
		require.Len(t, mentions, 1)
		assert.Equal(t, "Rachel", mentions[0].Label())
		assert.Equal(t, "PER", mentions[0].Value.Classes)

		mentionedIn := selectEntities(p, model.EntityTypeProperty, model.ClassMentionedIn)
		require.Len(t, mentionedIn, 2)
		assert.NotEqual(t, mentionedIn[0].Target, mentionedIn[1].Target)
	})

	t.Run("Tagger errors keep the subtitle", func(t *testing.T) {
		p := newTestPipeline(t)
		p.SetSubtitleTagger(func(string) ([]Mention, error) {
			return nil, assert.AnError
		})
		ingest(t, p, `{"type":"subtitle","start_time":1,"subtitle":"Hi","id":1}`)

		assert.Len(t, selectEntities(p, model.EntityTypeObject, model.ClassSubtitle), 1)
		assert.Empty(t, selectEntities(p, model.EntityTypeObject, model.ClassMention))
	})
}

func TestIngestRelations(t *testing.T) {
	t.Run("Unregistered endpoints become anchors", func(t *testing.T) {
		p := newTestPipeline(t)
		ingest(t, p,
			`{"type":"relation","seconds":3,"class":"relation","subclass":"friend_of","source":{"id":"ross"},"target":{"id":"rachel"}}`,
			`{"type":"relation","seconds":4,"class":"relation","subclass":"friend_of","source":{"id":"rachel"},"target":{"id":"ross"}}`,
		)

		anchors := slices.Collect(p.Store().Select([]model.EntityType{model.EntityTypeRelation}, nil, ""))
		require.Len(t, anchors, 2)
		assert.Equal(t, []string{"ross"}, anchors[0].InputIDs)
		assert.Equal(t, []string{"rachel"}, anchors[1].InputIDs)

		relationTypes := selectEntities(p, model.EntityTypeObject, "relation")
		require.Len(t, relationTypes, 1)
		assert.Equal(t, "friend_of", relationTypes[0].Label())

		related := selectEntities(p, model.EntityTypeProperty, model.ClassRelatedTo)
		require.Len(t, related, 2)
		assert.Equal(t, anchors[0].ID, related[0].Source)
		assert.Equal(t, anchors[1].ID, related[0].Target)
		assert.Equal(t, []string{"ross"}, related[0].Value.Source)
		assert.Equal(t, []string{"rachel"}, related[0].Value.Target)
		assert.Equal(t, "friend_of", related[0].Value.RelationKB)
		assert.Equal(t, relationTypes[0].ID, related[0].Value.Relation)
	})

	t.Run("Registered endpoints are reused", func(t *testing.T) {
		p := newTestPipeline(t)
		ingest(t, p,
			`{"type":"object","seconds":1,"coordinates":[0,0,10,10],"class":"person","id":"ross"}`,
			`{"type":"relation","seconds":3,"class":"relation","subclass":"sibling_of","source":{"id":"ross"},"target":{"id":"monica"}}`,
		)

		related := selectEntities(p, model.EntityTypeProperty, model.ClassRelatedTo)
		require.Len(t, related, 1)
		assert.Equal(t, "O1", related[0].Source)
	})

	t.Run("Registered relation_object endpoints store the record box", func(t *testing.T) {
		p := newTestPipeline(t)
		ingest(t, p,
			`{"type":"object","seconds":1,"coordinates":[0,0,10,10],"class":"person","label":"ross","id":"ross"}`,
			`{"type":"object","seconds":1,"coordinates":[50,50,10,10],"class":"cup","id":"cup_1"}`,
			`{"type":"relation_object","seconds":3,"class":"related_to_object","subclass":"holds","source":{"id":"ross","coordinates":[1,1,9,9]},"target":{"id":"cup_1","coordinates":[51,51,8,8]}}`,
		)

		ross, err := p.Store().Get("O1")
		require.NoError(t, err)
		assert.Equal(t, model.EntityTypeObject, ross.Type)
		assert.Equal(t, "ross", ross.Label())
		require.NotNil(t, ross.Value.Coordinates)
		assert.Equal(t, model.Box{1, 1, 9, 9}, *ross.Value.Coordinates)

		cup, err := p.Store().Get("O3")
		require.NoError(t, err)
		assert.Equal(t, model.Class("cup"), cup.Class)
		require.NotNil(t, cup.Value.Coordinates)
		assert.Equal(t, model.Box{51, 51, 8, 8}, *cup.Value.Coordinates)

		anchors := slices.Collect(p.Store().Select([]model.EntityType{model.EntityTypeRelationObject}, nil, ""))
		assert.Empty(t, anchors, "Expected registered endpoints to be reused")

		related := selectEntities(p, model.EntityTypeProperty, model.ClassRelatedToObject)
		require.Len(t, related, 1)
		assert.Equal(t, "O1", related[0].Source)
		assert.Equal(t, "O3", related[0].Target)
	})

	t.Run("Shared endpoint id yields one anchor", func(t *testing.T) {
		p := newTestPipeline(t)
		ingest(t, p, `{"type":"relation","seconds":3,"class":"relation","subclass":"self","source":{"id":"joey"},"target":{"id":"joey"}}`)

		anchors := slices.Collect(p.Store().Select([]model.EntityType{model.EntityTypeRelation}, nil, ""))
		require.Len(t, anchors, 1)
		related := selectEntities(p, model.EntityTypeProperty, model.ClassRelatedTo)
		require.Len(t, related, 1)
		assert.Equal(t, related[0].Source, related[0].Target)
	})

	t.Run("Caption fills relation_object endpoints", func(t *testing.T) {
		p := newTestPipeline(t)
		ingest(t, p, `{"type":"relation_object","seconds":4,"caption":"ross geller holds coffee cup","source":{"coordinates":[0,0,5,5]},"target":{"coordinates":[5,5,5,5]}}`)

		anchors := slices.Collect(p.Store().Select([]model.EntityType{model.EntityTypeRelationObject}, nil, ""))
		require.Len(t, anchors, 2)
		assert.Equal(t, []string{"ross_geller"}, anchors[0].InputIDs)
		assert.Equal(t, []string{"coffee_cup"}, anchors[1].InputIDs)
		assert.Equal(t, model.Box{0, 0, 5, 5}, *anchors[0].Value.Coordinates)

		related := selectEntities(p, model.EntityTypeProperty, model.ClassRelatedToObject)
		require.Len(t, related, 1)
		assert.Equal(t, "holds", related[0].Value.RelationObj)
		assert.Equal(t, model.Box{5, 5, 5, 5}, *related[0].Value.TargetCoordinates)
	})

	t.Run("Caption does not modify the caller's record", func(t *testing.T) {
		p := newTestPipeline(t)
		r := record(t, `{"type":"relation_object","seconds":4,"caption":"ross geller holds coffee cup","source":{"coordinates":[0,0,5,5]},"target":{"coordinates":[5,5,5,5]}}`)
		require.NoError(t, p.Ingest(r))

		assert.Empty(t, r.Class)
		assert.Empty(t, r.Subclass)
		assert.Empty(t, r.Source.ID)
		assert.Empty(t, r.Target.ID)
		assert.Len(t, slices.Collect(p.Store().Select([]model.EntityType{model.EntityTypeRelationObject}, nil, "")), 2)
	})

	t.Run("Relation_object without coordinates is malformed", func(t *testing.T) {
		p := newTestPipeline(t)
		err := p.Ingest(record(t, `{"type":"relation_object","seconds":4,"class":"related_to_object","subclass":"holds","source":{"id":"a"},"target":{"id":"b"}}`))
		require.ErrorIs(t, err, model.ErrMalformedRecord)
		assert.Equal(t, 0, p.Store().Len())
	})
}

func TestIngestMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"Missing type", `{"seconds":1,"class":"kitchen"}`},
		{"Unknown type", `{"type":"smell","seconds":1,"class":"coffee"}`},
		{"Object without coordinates", `{"type":"object","seconds":1,"class":"person"}`},
		{"Object with reserved class", `{"type":"object","seconds":1,"coordinates":[0,0,1,1],"class":"video_box"}`},
		{"Object with negative box", `{"type":"object","seconds":1,"coordinates":[0,0,-1,1],"class":"person"}`},
		{"Behavior without object", `{"type":"behavior","seconds":1,"class":"sit"}`},
		{"Relation without subclass", `{"type":"relation","seconds":1,"class":"relation","source":{"id":"a"},"target":{"id":"b"}}`},
		{"Relation with event class", `{"type":"relation","seconds":1,"class":"event","subclass":"x","source":{"id":"a"},"target":{"id":"b"}}`},
		{"Relation with video class", `{"type":"relation","seconds":1,"class":"video","subclass":"x","source":{"id":"a"},"target":{"id":"b"}}`},
		{"Relation with behavior class", `{"type":"relation","seconds":1,"class":"behavior","subclass":"sit","source":{"id":"a"},"target":{"id":"b"}}`},
		{"Relation_object with video_box class", `{"type":"relation_object","seconds":1,"class":"video_box","subclass":"x","source":{"id":"a","coordinates":[0,0,1,1]},"target":{"id":"b","coordinates":[1,1,1,1]}}`},
		{"Event without sentences", `{"type":"event","start_time":1,"subtitle":"hi"}`},
		{"Event with empty sentence", `{"type":"event","start_time":1,"subtitle":"hi","sentences":[{"verbs":["be"]}]}`},
		{"Subtitle without text", `{"type":"subtitle","start_time":1,"id":1}`},
		{"No timestamp in domain", `{"type":"location","frames":1,"class":"kitchen"}`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			p := newTestPipeline(t)
			err := p.Ingest(record(t, test.data))
			require.ErrorIs(t, err, model.ErrMalformedRecord)
			assert.Equal(t, 0, p.Store().Len())
		})
	}

	t.Run("Nil record", func(t *testing.T) {
		p := newTestPipeline(t)
		assert.ErrorIs(t, p.Ingest(nil), model.ErrMalformedRecord)
	})
}
