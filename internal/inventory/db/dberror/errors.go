package dberror

import (
	"net/http"

	"github.com/rackhaus/rackd/internal/common/apperrors"
)

var (
	ErrDatabase      apperrors.Error = apperrors.New("db error").SetStatusCode(http.StatusInternalServerError)
	ErrAlreadyExists apperrors.Error = ErrDatabase.New("already exists").SetStatusCode(http.StatusConflict)
	ErrNotFound      apperrors.Error = ErrDatabase.New("not found").SetStatusCode(http.StatusNotFound)
	ErrInvalidInput  apperrors.Error = ErrDatabase.New("invalid input").SetStatusCode(http.StatusBadRequest)

	// ErrUniqueViolation covers hostname / asset-number / outlet collisions
	// surfaced by unique indexes at write time.
	ErrUniqueViolation apperrors.Error = ErrDatabase.New("uniqueness violation").SetStatusCode(http.StatusConflict)
	// ErrInUse is returned when deleting an entity other rows still depend
	// on, e.g. a rack with assets or a model referenced by assets.
	ErrInUse apperrors.Error = ErrDatabase.New("still referenced").SetStatusCode(http.StatusConflict)
	// ErrPoolExhausted is returned when no asset number is free in the
	// configured allocation pool.
	ErrPoolExhausted apperrors.Error = ErrDatabase.New("asset number pool exhausted").SetStatusCode(http.StatusConflict)
)
