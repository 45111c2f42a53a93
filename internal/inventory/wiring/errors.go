package wiring

import (
	"github.com/rackhaus/rackd/internal/common/apperrors"
)

var (
	ErrWiring apperrors.Error = apperrors.New("wiring error").SetStatusCode(500)

	// ErrMissingConnectionEndpoint flags a request naming a destination host
	// without a port or a port without a host.
	ErrMissingConnectionEndpoint apperrors.Error = ErrWiring.New("destination hostname and port must both be present or both absent").SetStatusCode(400)
	ErrUnknownSourcePort         apperrors.Error = ErrWiring.New("no such port on this asset").SetStatusCode(404)
	ErrUnknownDestinationHost    apperrors.Error = ErrWiring.New("destination hostname does not resolve to an asset").SetStatusCode(404)
	ErrUnknownDestinationPort    apperrors.Error = ErrWiring.New("no such port on destination asset").SetStatusCode(404)
	ErrConnectionConflict        apperrors.Error = ErrWiring.New("destination port is already connected").SetStatusCode(409)
	ErrSelfConnection            apperrors.Error = ErrWiring.New("a port cannot be connected to its own asset").SetStatusCode(400)
	ErrUnknownOutlet             apperrors.Error = ErrWiring.New("no such pdu outlet on this rack").SetStatusCode(404)
	ErrOutletConflict            apperrors.Error = ErrWiring.New("pdu outlet is already in use").SetStatusCode(409)
)
