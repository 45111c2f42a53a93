package postgresql

import (
	"context"

	"github.com/google/uuid"

	"github.com/rackhaus/rackd/internal/common/apperrors"
	"github.com/rackhaus/rackd/internal/inventory/db/dberror"
	"github.com/rackhaus/rackd/internal/inventory/db/models"
)

const itModelColumns = `model_id, vendor, model_number, height, display_color, cpu, memory, storage, port_template, created_at`

func scanITModel(row interface{ Scan(...any) error }) (*models.ITModel, error) {
	var m models.ITModel
	err := row.Scan(&m.ModelID, &m.Vendor, &m.ModelNumber, &m.Height, &m.DisplayColor,
		&m.CPU, &m.Memory, &m.Storage, &m.PortTemplate, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (mm *inventoryManager) CreateITModel(ctx context.Context, model *models.ITModel) apperrors.Error {
	if model.Height < 1 {
		return dberror.ErrInvalidInput.Msg("model height must be at least 1")
	}
	if model.ModelID == uuid.Nil {
		model.ModelID = uuid.New()
	}
	query := `
		INSERT INTO it_models (model_id, vendor, model_number, height, display_color, cpu, memory, storage, port_template)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at;
	`
	errdb := mm.conn().QueryRowContext(ctx, query,
		model.ModelID, model.Vendor, model.ModelNumber, model.Height, model.DisplayColor,
		model.CPU, model.Memory, model.Storage, model.PortTemplate).Scan(&model.CreatedAt)
	if errdb != nil {
		return mapPgError(ctx, errdb, "model")
	}
	return nil
}

func (mm *inventoryManager) GetITModel(ctx context.Context, modelID uuid.UUID) (*models.ITModel, apperrors.Error) {
	row := mm.conn().QueryRowContext(ctx,
		`SELECT `+itModelColumns+` FROM it_models WHERE model_id = $1;`, modelID)
	model, err := scanITModel(row)
	if err != nil {
		return nil, mapPgError(ctx, err, "model")
	}
	return model, nil
}

func (mm *inventoryManager) ListITModels(ctx context.Context) ([]*models.ITModel, apperrors.Error) {
	rows, errdb := mm.conn().QueryContext(ctx,
		`SELECT `+itModelColumns+` FROM it_models ORDER BY vendor, model_number;`)
	if errdb != nil {
		return nil, mapPgError(ctx, errdb, "model")
	}
	defer rows.Close()

	var list []*models.ITModel
	for rows.Next() {
		model, err := scanITModel(rows)
		if err != nil {
			return nil, mapPgError(ctx, err, "model")
		}
		list = append(list, model)
	}
	if errdb := rows.Err(); errdb != nil {
		return nil, mapPgError(ctx, errdb, "model")
	}
	return list, nil
}

// DeleteITModel removes a model no asset references.
func (mm *inventoryManager) DeleteITModel(ctx context.Context, modelID uuid.UUID) (err apperrors.Error) {
	tx, finish, err := begin(ctx, mm.conn())
	if err != nil {
		return err
	}
	defer finish(&err)

	var refs int
	errdb := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM assets WHERE model_id = $1;`, modelID).Scan(&refs)
	if errdb != nil {
		return mapPgError(ctx, errdb, "model")
	}
	if refs > 0 {
		return dberror.ErrInUse.Msg("model still referenced by assets")
	}

	res, errdb := tx.ExecContext(ctx, `DELETE FROM it_models WHERE model_id = $1;`, modelID)
	if errdb != nil {
		return mapPgError(ctx, errdb, "model")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return dberror.ErrNotFound.Msg("model not found")
	}
	return nil
}
