package scenegraph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/siherrmann/scenegraph/core/pipeline"
	"github.com/siherrmann/scenegraph/core/query"
	"github.com/siherrmann/scenegraph/core/store"
	"github.com/siherrmann/scenegraph/database"
	"github.com/siherrmann/scenegraph/helper"
	"github.com/siherrmann/scenegraph/model"
	loadSql "github.com/siherrmann/scenegraph/sql"
)

// SceneGraph provides a unified interface to one ingestion session
type SceneGraph struct {
	Session  *model.Session
	Store    *store.Store
	Pipeline *pipeline.Pipeline
	Engine   *query.Engine

	// Optional persistence
	BoxIndex   model.BoxIndexConfig // Applied by Attach
	DB         *helper.Database
	SessionsDB *database.SessionsDBHandler
	EntitiesDB *database.EntitiesDBHandler

	// Logging
	log *slog.Logger
}

// New creates a SceneGraph with an empty store for a new session
func New(name string, config model.EngineConfig) (*SceneGraph, error) {
	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stderr, opts))

	return NewWithLogger(name, config, logger)
}

// NewWithLogger creates a SceneGraph logging to logger
func NewWithLogger(name string, config model.EngineConfig, logger *slog.Logger) (*SceneGraph, error) {
	s := store.New()
	p, err := pipeline.NewPipeline(s, config, logger)
	if err != nil {
		return nil, helper.NewError("create pipeline", err)
	}

	return &SceneGraph{
		Session:  model.NewSession(name, "", model.Metadata{"domain": string(config.Domain)}),
		Store:    s,
		Pipeline: p,
		Engine:   query.NewEngine(s),
		BoxIndex: model.DefaultBoxIndexConfig(),
		log:      logger,
	}, nil
}

// SessionID returns the uuid of the current session
func (g *SceneGraph) SessionID() uuid.UUID {
	return g.Session.RID
}

// UseDefaultSubtitleTagger sets up the hugot NER tagger for subtitles
func (g *SceneGraph) UseDefaultSubtitleTagger() error {
	tagger, err := pipeline.DefaultSubtitleTagger()
	if err != nil {
		return helper.NewError("create default subtitle tagger", err)
	}

	g.Pipeline.SetSubtitleTagger(tagger)
	return nil
}

// Ingest applies a single record in the configured time domain
func (g *SceneGraph) Ingest(record *model.Record) error {
	return g.Pipeline.Ingest(record)
}

// IngestStreams ingests the given streams, see pipeline.Pipeline.IngestStreams
func (g *SceneGraph) IngestStreams(ctx context.Context, streams []pipeline.Stream) (*model.IngestReport, error) {
	return g.Pipeline.IngestStreams(ctx, streams)
}

// IngestReader ingests a single NDJSON, JSON array or zstd stream
func (g *SceneGraph) IngestReader(ctx context.Context, name string, reader io.Reader) (*model.IngestReport, error) {
	return g.Pipeline.IngestReader(ctx, name, reader)
}

// Entities returns all entities in insertion order
func (g *SceneGraph) Entities() []*model.Entity {
	entities := make([]*model.Entity, 0, g.Store.Len())
	for entity := range g.Store.Iterate() {
		entities = append(entities, entity)
	}
	return entities
}

// WriteNDJSON writes all entities as one JSON object per line.
// With compress set the output is a zstd stream.
func (g *SceneGraph) WriteNDJSON(w io.Writer, compress bool) (err error) {
	if compress {
		encoder, zerr := zstd.NewWriter(w)
		if zerr != nil {
			return helper.NewError("create zstd writer", zerr)
		}
		defer func() {
			if closeErr := encoder.Close(); closeErr != nil && err == nil {
				err = helper.NewError("close zstd writer", closeErr)
			}
		}()
		w = encoder
	}

	enc := json.NewEncoder(w)
	for entity := range g.Store.Iterate() {
		if encodeErr := enc.Encode(entity); encodeErr != nil {
			return helper.NewError("encode entity "+entity.ID, encodeErr)
		}
	}
	return nil
}

// Attach connects the SceneGraph to a database and creates the session tables.
// force reloads the SQL functions even if they already exist.
func (g *SceneGraph) Attach(db *helper.Database, force bool) error {
	if db == nil {
		return helper.NewError("attach database", fmt.Errorf("database connection is nil"))
	}

	err := loadSql.Init(db.Instance)
	if err != nil {
		return helper.NewError("initialize database extensions", err)
	}

	// Sessions first, entities reference them
	sessions, err := database.NewSessionsDBHandler(db, force)
	if err != nil {
		return helper.NewError("create sessions handler", err)
	}

	entities, err := database.NewEntitiesDBHandler(db, force)
	if err != nil {
		return helper.NewError("create entities handler", err)
	}

	g.DB = db
	g.SessionsDB = sessions
	g.EntitiesDB = entities

	// The table is created with the default index
	if g.BoxIndex != model.DefaultBoxIndexConfig() {
		err = g.ChangeBoxIndex(context.Background(), g.BoxIndex)
		if err != nil {
			return helper.NewError("apply box index", err)
		}
	}
	return nil
}

// ChangeBoxIndex rebuilds the nearest-box index of the attached database
func (g *SceneGraph) ChangeBoxIndex(ctx context.Context, config model.BoxIndexConfig) error {
	if g.EntitiesDB == nil {
		return helper.NewError("change box index", fmt.Errorf("no database attached, use Attach() first"))
	}

	err := g.EntitiesDB.ChangeBoxIndex(ctx, config)
	if err != nil {
		return err
	}
	g.BoxIndex = config
	return nil
}

// Persist writes the session and a snapshot of all entities to the attached database.
// Entities stored for the session before are replaced.
func (g *SceneGraph) Persist(ctx context.Context) error {
	if g.SessionsDB == nil || g.EntitiesDB == nil {
		return helper.NewError("persist", fmt.Errorf("no database attached, use Attach() first"))
	}

	err := g.SessionsDB.InsertSession(g.Session)
	if err != nil {
		return helper.NewError("insert session", err)
	}

	err = g.EntitiesDB.DeleteEntities(g.Session.RID)
	if err != nil {
		return helper.NewError("delete old entities", err)
	}

	entities := g.Entities()
	err = g.EntitiesDB.InsertEntities(ctx, g.Session.RID, entities)
	if err != nil {
		return helper.NewError("insert entities", err)
	}

	g.log.Info("Persisted session", slog.String("session", g.Session.RID.String()), slog.Int("entities", len(entities)))

	return nil
}

// Load reads the persisted entities of a session in insertion order
func (g *SceneGraph) Load(sessionRID uuid.UUID) ([]*model.Entity, error) {
	if g.EntitiesDB == nil {
		return nil, helper.NewError("load", fmt.Errorf("no database attached, use Attach() first"))
	}
	return g.EntitiesDB.SelectEntities(sessionRID)
}

// Close closes the database connection if one is attached
func (g *SceneGraph) Close() error {
	return g.DB.Close()
}
