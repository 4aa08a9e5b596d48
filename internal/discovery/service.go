package discovery

import (
	"context"
	"net/url"
	"strings"
	"time"
)

// Candidate is a discovered device awaiting construction via player.New.
// Discovery never builds a Player itself.
type Candidate struct {
	Host     string
	Location string
	USN      string
	Verdict  Verdict
}

// Options configures one Discover call.
type Options struct {
	// Passes is the number of M-SEARCH bursts sent, spaced PassInterval
	// apart, before the read deadline of Timeout is applied.
	Passes       int
	PassInterval time.Duration
	Timeout      time.Duration
	// ProbeTimeout bounds each individual player_status probe.
	ProbeTimeout time.Duration
}

// DefaultOptions returns the multi-pass SSDP parameters the teacher's
// discovery loop used, plus a probe timeout sized for a LAN round trip.
func DefaultOptions() Options {
	return Options{
		Passes:       3,
		PassInterval: 2 * time.Second,
		Timeout:      3 * time.Second,
		ProbeTimeout: DefaultProbeTimeout,
	}
}

// Discover performs SSDP M-SEARCH discovery and classifies each response,
// probing only the ones that require it. It is a pure helper: apart from
// the SSDP multi-pass loop and the transport client's own backoff retries
// inside each probe (bounded by ProbeTimeout), it does not retry; it does
// no Player construction, and it
// never runs on its own — a caller invokes it explicitly.
func Discover(ctx context.Context, opts Options) ([]Candidate, error) {
	responses, err := discoverSSDP(ctx, opts.Passes, opts.PassInterval, opts.Timeout)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(responses))
	for _, resp := range responses {
		host := extractHost(resp.Location)
		if host == "" {
			continue
		}

		verdict := Classify(resp)
		if verdict == VerdictReject {
			continue
		}
		if verdict == VerdictProbeRequired {
			probeCtx, cancel := context.WithTimeout(ctx, opts.ProbeTimeout)
			err := probePlayerStatus(probeCtx, host)
			cancel()
			if err != nil {
				continue
			}
		}

		candidates = append(candidates, Candidate{
			Host:     host,
			Location: resp.Location,
			USN:      resp.USN,
			Verdict:  verdict,
		})
	}
	return candidates, nil
}

func extractHost(location string) string {
	if location == "" {
		return ""
	}
	parsed, err := url.Parse(location)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(parsed.Hostname())
}
