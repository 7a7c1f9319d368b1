package database

import (
	"context"
	dbsql "database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/siherrmann/scenegraph/helper"
	"github.com/siherrmann/scenegraph/model"
	"github.com/siherrmann/scenegraph/sql"
)

// EntitiesDBHandlerFunctions defines the interface for scene entity database operations.
type EntitiesDBHandlerFunctions interface {
	InsertEntities(ctx context.Context, sessionRID uuid.UUID, entities []*model.Entity) error
	SelectEntity(sessionRID uuid.UUID, id string) (*model.Entity, error)
	SelectEntities(sessionRID uuid.UUID) ([]*model.Entity, error)
	SelectEntitiesInRange(sessionRID uuid.UUID, domain model.TimeDomain, from float64, to float64) ([]*model.Entity, error)
	SelectEntitiesByInputID(sessionRID uuid.UUID, inputID string) ([]*model.Entity, error)
	SelectNearestBoxes(sessionRID uuid.UUID, box model.Box, limit int) ([]*BoxMatch, error)
	DeleteEntities(sessionRID uuid.UUID) error
}

// BoxMatch is an entity with coordinates and its L2 distance to a query box.
type BoxMatch struct {
	Entity   *model.Entity
	Distance float64
}

// EntitiesDBHandler handles scene entity database operations
type EntitiesDBHandler struct {
	db *helper.Database
}

// NewEntitiesDBHandler creates a new entities database handler.
// It initializes the database connection and loads entity-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
// The sessions table has to exist already.
func NewEntitiesDBHandler(db *helper.Database, force bool) (*EntitiesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	entitiesDbHandler := &EntitiesDBHandler{
		db: db,
	}

	err := sql.LoadEntitiesSql(entitiesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load entities sql", err)
	}

	err = entitiesDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized EntitiesDBHandler")

	return entitiesDbHandler, nil
}

// CreateTable creates the 'scene_entities' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary indexes.
func (h *EntitiesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_scene_entities();`)
	if err != nil {
		log.Panicf("error initializing scene entities table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table scene_entities")

	return nil
}

// InsertEntities writes the entities of a session in one transaction.
// Their position in the slice becomes their ordinal, existing rows are overwritten.
func (h *EntitiesDBHandler) InsertEntities(ctx context.Context, sessionRID uuid.UUID, entities []*model.Entity) error {
	tx, err := h.db.Instance.BeginTx(ctx, nil)
	if err != nil {
		return helper.NewError("begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `SELECT insert_scene_entity($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`)
	if err != nil {
		return helper.NewError("prepare", err)
	}
	defer stmt.Close()

	for ordinal, entity := range entities {
		var seconds, frames *float64
		var coordinates interface{}
		if entity.Value != nil {
			seconds = entity.Value.Seconds
			frames = entity.Value.Frames
			if entity.Value.Coordinates != nil {
				coordinates = pgvector.NewVector(entity.Value.Coordinates.Float32s())
			}
		}

		_, err := stmt.ExecContext(
			ctx,
			sessionRID,
			ordinal,
			entity.ID,
			entity.Type,
			entity.Class,
			entity.Source,
			entity.Target,
			pq.Array(entity.InputIDs),
			entity.Value,
			seconds,
			frames,
			coordinates,
		)
		if err != nil {
			return helper.NewError("insert entity "+entity.ID, err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return helper.NewError("commit", err)
	}

	h.db.Logger.Debug("Inserted scene entities", "session", sessionRID, "count", len(entities))

	return nil
}

// SelectEntity retrieves an entity of a session by id
func (h *EntitiesDBHandler) SelectEntity(sessionRID uuid.UUID, id string) (*model.Entity, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_scene_entity($1, $2)`,
		sessionRID,
		id,
	)

	entity, err := scanEntity(row)
	if errors.Is(err, dbsql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", model.ErrNotFound, id)
	}
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return entity, nil
}

// SelectEntities retrieves all entities of a session in insertion order
func (h *EntitiesDBHandler) SelectEntities(sessionRID uuid.UUID) ([]*model.Entity, error) {
	return h.queryEntities(`SELECT * FROM select_scene_entities($1)`, sessionRID)
}

// SelectEntitiesInRange retrieves the entities of a session stamped in [from, to) of domain
func (h *EntitiesDBHandler) SelectEntitiesInRange(sessionRID uuid.UUID, domain model.TimeDomain, from float64, to float64) ([]*model.Entity, error) {
	if !domain.Valid() {
		return nil, helper.NewError("time range validation", fmt.Errorf("unknown time domain %q", domain))
	}
	return h.queryEntities(`SELECT * FROM select_scene_entities_in_range($1, $2, $3, $4)`, sessionRID, domain, from, to)
}

// SelectEntitiesByInputID retrieves the entities of a session bound to an external id
func (h *EntitiesDBHandler) SelectEntitiesByInputID(sessionRID uuid.UUID, inputID string) ([]*model.Entity, error) {
	return h.queryEntities(`SELECT * FROM select_scene_entities_by_input_id($1, $2)`, sessionRID, inputID)
}

// SelectNearestBoxes retrieves the entities of a session whose coordinates are
// closest to box by L2 distance
func (h *EntitiesDBHandler) SelectNearestBoxes(sessionRID uuid.UUID, box model.Box, limit int) ([]*BoxMatch, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_nearest_boxes($1, $2, $3)`,
		sessionRID,
		pgvector.NewVector(box.Float32s()),
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var matches []*BoxMatch
	for rows.Next() {
		match := &BoxMatch{Entity: &model.Entity{}}
		err := rows.Scan(append(entityColumns(match.Entity), &match.Distance)...)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		normalizeEntity(match.Entity)

		matches = append(matches, match)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return matches, nil
}

// DeleteEntities deletes all entities of a session
func (h *EntitiesDBHandler) DeleteEntities(sessionRID uuid.UUID) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_scene_entities($1)`,
		sessionRID,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

func (h *EntitiesDBHandler) queryEntities(query string, args ...interface{}) ([]*model.Entity, error) {
	rows, err := h.db.Instance.Query(query, args...)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var entities []*model.Entity
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		entities = append(entities, entity)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return entities, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntity(row scanner) (*model.Entity, error) {
	entity := &model.Entity{}
	err := row.Scan(entityColumns(entity)...)
	if err != nil {
		return nil, err
	}
	normalizeEntity(entity)
	return entity, nil
}

func entityColumns(entity *model.Entity) []interface{} {
	return []interface{}{
		&entity.ID,
		&entity.Type,
		&entity.Class,
		&entity.Source,
		&entity.Target,
		pq.Array(&entity.InputIDs),
		&entity.Value,
	}
}

// normalizeEntity maps empty arrays back to nil so entities compare equal to the stored ones.
func normalizeEntity(entity *model.Entity) {
	if len(entity.InputIDs) == 0 {
		entity.InputIDs = nil
	}
}
