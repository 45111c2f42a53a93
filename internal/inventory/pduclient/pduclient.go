// Package pduclient pushes desired outlet state to the PDU controller. The
// controller is advisory: pushes happen after inventory state commits, are
// retried briefly, and failures are logged rather than surfaced — inventory
// is the source of truth, the controller converges.
package pduclient

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// OutletState is the desired assignment of one outlet.
type OutletState struct {
	Datacenter string `json:"datacenter"`
	RackLabel  string `json:"rack_label"`
	Side       string `json:"side"`
	PortNumber int    `json:"port_number"`
	// AssetNumber is the number label of the connected asset, "" when the
	// outlet is free.
	AssetNumber string `json:"asset_number"`
}

type Client struct {
	rc *resty.Client
}

// New builds a client for the controller at baseURL. An empty baseURL
// returns nil; callers treat a nil client as "push disabled".
func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		return nil
	}
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	return &Client{rc: rc}
}

// PushOutletStates posts the desired state of the given outlets. Errors are
// logged and swallowed.
func (c *Client) PushOutletStates(ctx context.Context, states []OutletState) {
	if c == nil || len(states) == 0 {
		return
	}
	err := retry.Do(
		func() error {
			rsp, err := c.rc.R().
				SetContext(ctx).
				SetBody(states).
				Post("/v1/outlets")
			if err != nil {
				return err
			}
			if rsp.IsError() {
				return retry.Unrecoverable(errStatus(rsp.StatusCode()))
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Int("outlets", len(states)).Msg("pdu controller push failed")
		return
	}
	log.Ctx(ctx).Debug().Int("outlets", len(states)).Msg("pdu controller push ok")
}

type errStatus int

func (e errStatus) Error() string {
	return fmt.Sprintf("pdu controller returned status %d", int(e))
}
