package database

import (
	"context"
	"fmt"
	"time"

	"github.com/siherrmann/scenegraph/helper"
	"github.com/siherrmann/scenegraph/model"
)

const boxIndexName = "idx_scene_entities_coordinates"

func boxIndexSQL(config model.BoxIndexConfig) string {
	if config.Type == model.BoxIndexIVFFlat {
		return fmt.Sprintf(
			`CREATE INDEX %s ON scene_entities USING ivfflat (coordinates vector_l2_ops) WITH (lists = %d);`,
			boxIndexName, config.Lists,
		)
	}
	return fmt.Sprintf(
		`CREATE INDEX %s ON scene_entities USING hnsw (coordinates vector_l2_ops) WITH (m = %d, ef_construction = %d);`,
		boxIndexName, config.M, config.EfConstruction,
	)
}

// ChangeBoxIndex rebuilds the coordinates index used by SelectNearestBoxes.
// Drop and create run in one transaction, a failed rebuild keeps the old index.
func (h *EntitiesDBHandler) ChangeBoxIndex(ctx context.Context, config model.BoxIndexConfig) error {
	if err := config.Validate(); err != nil {
		return helper.NewError("change box index", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	tx, err := h.db.Instance.BeginTx(ctx, nil)
	if err != nil {
		return helper.NewError("begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `DROP INDEX IF EXISTS `+boxIndexName+`;`)
	if err != nil {
		return helper.NewError("drop index", err)
	}
	_, err = tx.ExecContext(ctx, boxIndexSQL(config))
	if err != nil {
		return helper.NewError("create index", err)
	}

	err = tx.Commit()
	if err != nil {
		return helper.NewError("commit", err)
	}

	h.db.Logger.Info("Rebuilt box index", "type", config.Type, "m", config.M, "ef_construction", config.EfConstruction, "lists", config.Lists)

	return nil
}

// BoxIndexType returns the access method of the current coordinates index.
func (h *EntitiesDBHandler) BoxIndexType(ctx context.Context) (model.BoxIndexType, error) {
	var method string
	err := h.db.Instance.QueryRowContext(ctx, `
		SELECT am.amname
		FROM pg_class c
		JOIN pg_am am ON am.oid = c.relam
		WHERE c.relname = $1`,
		boxIndexName,
	).Scan(&method)
	if err != nil {
		return "", helper.NewError("select index type", err)
	}
	return model.BoxIndexType(method), nil
}
