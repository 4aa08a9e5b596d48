package discovery

import (
	"context"
	"errors"
	"time"

	"github.com/jeromeof/pywiim-sub000/internal/corerr"
	"github.com/jeromeof/pywiim-sub000/internal/endpoint"
	"github.com/jeromeof/pywiim-sub000/internal/profile"
	"github.com/jeromeof/pywiim-sub000/internal/transport"
)

// probeResolver and probeProfile are shared across probes: the chain they
// resolve (player_status) never varies by device identity at this stage,
// since nothing is known about the candidate yet beyond its host.
var probeResolver = endpoint.NewResolver()
var probeProfile = profile.NewRegistry().Resolve(profile.DeviceInfo{})

// probePlayerStatus confirms a probe-required candidate actually speaks the
// LinkPlay HTTP API by walking the generic player_status command chain
// against a throwaway transport.Client for that host. It returns nil only
// if one of the chain's commands succeeds.
func probePlayerStatus(ctx context.Context, host string) error {
	return probeWithClient(ctx, transport.NewClient(host, nil))
}

// probeWithClient is the testable core of probePlayerStatus: it takes an
// already-constructed client so tests can point it at an httptest server
// via SetEndpoint without needing a real SSDP-advertised host.
func probeWithClient(ctx context.Context, xport *transport.Client) error {
	chain, err := probeResolver.Chain(probeProfile, endpoint.PlayerStatus)
	if err != nil {
		return err
	}

	var lastErr error
	for _, cmd := range chain {
		_, err := xport.Execute(ctx, probeProfile, cmd)
		if err == nil {
			return nil
		}
		var cancelled *corerr.CancelledError
		if errors.As(err, &cancelled) {
			return err
		}
		lastErr = err
	}
	return lastErr
}

// DefaultProbeTimeout bounds a single candidate's player_status probe so
// one unreachable device never stalls the whole discovery pass.
const DefaultProbeTimeout = 5 * time.Second
