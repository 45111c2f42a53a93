package placement

import (
	"net/http"

	"github.com/rackhaus/rackd/internal/common/apperrors"
)

var (
	ErrPlacement apperrors.Error = apperrors.New("placement error").SetStatusCode(http.StatusBadRequest)
	// ErrOutOfRackBounds is returned when any occupied unit falls below 1 or
	// above the rack height.
	ErrOutOfRackBounds apperrors.Error = ErrPlacement.New("placement out of rack bounds")
	// ErrLocationConflict is returned when the candidate range shares a unit
	// with another asset. The message names the offending asset.
	ErrLocationConflict apperrors.Error = ErrPlacement.New("location conflict").SetStatusCode(http.StatusConflict)
	// ErrBatchConflict is returned when two rows of one incoming batch claim
	// the same unit, before any database write.
	ErrBatchConflict apperrors.Error = ErrPlacement.New("conflict within batch").SetStatusCode(http.StatusConflict)
)
