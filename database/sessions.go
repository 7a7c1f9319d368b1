package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/scenegraph/helper"
	"github.com/siherrmann/scenegraph/model"
	"github.com/siherrmann/scenegraph/sql"
)

// SessionsDBHandlerFunctions defines the interface for Sessions database operations.
type SessionsDBHandlerFunctions interface {
	InsertSession(session *model.Session) error
	SelectSession(rid uuid.UUID) (*model.Session, error)
	SelectAllSessions(lastCreatedAt *time.Time, limit int) ([]*model.Session, error)
	DeleteSession(rid uuid.UUID) error
}

// SessionsDBHandler handles session-related database operations
type SessionsDBHandler struct {
	db *helper.Database
}

// NewSessionsDBHandler creates a new sessions database handler.
// It initializes the database connection and loads session-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewSessionsDBHandler(db *helper.Database, force bool) (*SessionsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	sessionsDbHandler := &SessionsDBHandler{
		db: db,
	}

	err := sql.LoadSessionsSql(sessionsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load sessions sql", err)
	}

	err = sessionsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized SessionsDBHandler")

	return sessionsDbHandler, nil
}

// CreateTable creates the 'scene_sessions' table in the database.
// If the table already exists, it does not create it again.
func (h *SessionsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_sessions();`)
	if err != nil {
		log.Panicf("error initializing sessions table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table scene_sessions")

	return nil
}

// InsertSession inserts a session or updates the session with the same RID
func (h *SessionsDBHandler) InsertSession(session *model.Session) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_session($1, $2, $3, $4)`,
		session.RID,
		session.Name,
		session.Source,
		session.Metadata,
	)

	err := row.Scan(
		&session.ID,
		&session.RID,
		&session.Name,
		&session.Source,
		&session.Metadata,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectSession retrieves a session by RID
func (h *SessionsDBHandler) SelectSession(rid uuid.UUID) (*model.Session, error) {
	session := &model.Session{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_session($1)`,
		rid,
	)

	err := row.Scan(
		&session.ID,
		&session.RID,
		&session.Name,
		&session.Source,
		&session.Metadata,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return session, nil
}

// SelectAllSessions retrieves sessions, newest first, with pagination
func (h *SessionsDBHandler) SelectAllSessions(lastCreatedAt *time.Time, limit int) ([]*model.Session, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_all_sessions($1, $2)`,
		lastCreatedAt,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var sessions []*model.Session
	for rows.Next() {
		session := &model.Session{}
		err := rows.Scan(
			&session.ID,
			&session.RID,
			&session.Name,
			&session.Source,
			&session.Metadata,
			&session.CreatedAt,
			&session.UpdatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		sessions = append(sessions, session)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return sessions, nil
}

// DeleteSession deletes a session and all its entities
func (h *SessionsDBHandler) DeleteSession(rid uuid.UUID) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_session($1)`,
		rid,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}
