package assetsvc

import (
	"github.com/rackhaus/rackd/internal/common/apperrors"
)

var (
	ErrAssetSvc apperrors.Error = apperrors.New("asset service error").SetStatusCode(500)

	ErrInvalidAsset      apperrors.Error = ErrAssetSvc.New("invalid asset").SetStatusCode(400)
	ErrUnknownModel      apperrors.Error = ErrAssetSvc.New("unknown model").SetStatusCode(404)
	ErrUnknownRack       apperrors.Error = ErrAssetSvc.New("unknown rack").SetStatusCode(404)
	ErrNotLive           apperrors.Error = ErrAssetSvc.New("operation requires a live asset").SetStatusCode(409)
	ErrDecommissionDraft apperrors.Error = ErrAssetSvc.New("asset is new to the plan; delete the draft instead").SetStatusCode(409)
)
