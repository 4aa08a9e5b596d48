// Package transport implements the HTTP(S) client used to talk to LinkPlay
// devices: protocol/port probing with a permanent cache, bounded
// exponential-backoff retries, self-signed/mTLS handling, and the non-JSON
// response allow-list.
package transport

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jeromeof/pywiim-sub000/internal/corerr"
	"github.com/jeromeof/pywiim-sub000/internal/profile"
)

// Endpoint is a resolved (protocol, host, port) tuple, cached permanently
// once a probe succeeds.
type Endpoint struct {
	Protocol string // "http" or "https"
	Host     string
	Port     int
}

func (e Endpoint) baseURL() string {
	return fmt.Sprintf("%s://%s:%d", e.Protocol, e.Host, e.Port)
}

// Client issues commands against a single LinkPlay device host. It probes
// the working (protocol, port) combination once and caches it permanently;
// transient failures never clear that cache — only an explicit Reprobe
// does.
type Client struct {
	host       string
	clientCert *tls.Certificate

	mu       sync.RWMutex
	endpoint *Endpoint

	httpClient *http.Client
}

// NewClient builds a Client for a single device host. clientCert may be
// nil; when set, it is offered to any TLS server that asks for a client
// certificate, whatever the resolved profile says.
func NewClient(host string, clientCert *tls.Certificate) *Client {
	tlsCfg := deviceTLSConfig(clientCert)
	return &Client{
		host:       host,
		clientCert: clientCert,
		httpClient: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig:     tlsCfg,
				DialContext:         (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Reprobe clears the cached (protocol, port) tuple, forcing the next
// command to re-run discovery. Used by callers after a firmware update.
func (c *Client) Reprobe() {
	c.mu.Lock()
	c.endpoint = nil
	c.mu.Unlock()
}

// SetEndpoint seeds the permanent endpoint cache directly, skipping the
// probe cascade. Used when a caller already knows the working
// protocol/port — e.g. discovery has just confirmed it — and in tests.
func (c *Client) SetEndpoint(protocol string, port int) {
	c.cacheEndpoint(Endpoint{Protocol: protocol, Host: c.host, Port: port})
}

func (c *Client) cachedEndpoint() (Endpoint, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.endpoint == nil {
		return Endpoint{}, false
	}
	return *c.endpoint, true
}

func (c *Client) cacheEndpoint(e Endpoint) {
	c.mu.Lock()
	c.endpoint = &e
	c.mu.Unlock()
}

// probeOptions captures the caller hints accepted by the protocol/port
// probe (spec §4.2).
type probeOptions struct {
	Protocol string // "" if unspecified
	Port     int    // 0 if unspecified
}

var standardPairs = []struct {
	Protocol string
	Port     int
}{
	{"https", 443},
	{"https", 4443},
	{"https", 8443},
	{"http", 80},
	{"http", 8080},
}

// probe establishes the working (protocol, port) for the device, honoring
// caller hints and falling back to the profile-preferred pairs, then the
// standard list.
func (c *Client) probe(ctx context.Context, p profile.DeviceProfile, opts probeOptions, statusCommand string) (Endpoint, error) {
	candidates := probeCandidates(p, opts)

	var lastErr error
	for _, cand := range candidates {
		ep := Endpoint{Protocol: cand.Protocol, Host: c.host, Port: cand.Port}
		if err := c.probeOne(ctx, ep, statusCommand); err != nil {
			lastErr = err
			continue
		}
		return ep, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no candidate protocol/port pairs")
	}
	return Endpoint{}, &corerr.ConnectionError{Host: c.host, Endpoint: statusCommand, Err: lastErr}
}

func probeCandidates(p profile.DeviceProfile, opts probeOptions) []struct {
	Protocol string
	Port     int
} {
	type pair struct {
		Protocol string
		Port     int
	}

	if opts.Protocol != "" && opts.Port != 0 {
		return []pair{{opts.Protocol, opts.Port}}
	}
	if opts.Port != 0 {
		return []pair{{"https", opts.Port}, {"http", opts.Port}}
	}

	var out []pair
	seen := map[pair]bool{}
	add := func(pr pair) {
		if seen[pr] {
			return
		}
		seen[pr] = true
		out = append(out, pr)
	}

	for _, proto := range p.Connection.ProtocolPriority {
		for _, port := range p.Connection.PreferredPorts {
			add(pair{proto, port})
		}
	}
	// Always fall through to the standard list: a resolved profile's
	// preferred ports don't preclude a device answering on a standard one
	// (e.g. after a Reprobe following a firmware/network change).
	for _, sp := range standardPairs {
		add(pair{sp.Protocol, sp.Port})
	}
	return out
}

// probeOne issues a single request for the canonical status command and
// reports whether it produced a parseable body or a plain "OK".
func (c *Client) probeOne(ctx context.Context, ep Endpoint, statusCommand string) error {
	body, err := c.doOnce(ctx, ep, statusCommand)
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return fmt.Errorf("empty probe response")
	}
	if strings.EqualFold(strings.TrimSpace(string(body)), "OK") {
		return nil
	}
	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("unparseable probe response: %w", err)
	}
	return nil
}

// doOnce issues exactly one HTTP request with no retry logic.
func (c *Client) doOnce(ctx context.Context, ep Endpoint, command string) ([]byte, error) {
	url := fmt.Sprintf("%s/httpapi.asp?command=%s", ep.baseURL(), command)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// Execute resolves the working endpoint (probing once, then reusing the
// permanent cache) and issues command with bounded exponential-backoff
// retries on transient failures. It returns the parsed JSON body as
// map[string]any, or {"raw": "OK"} for commands on the non-JSON allow-list.
func (c *Client) Execute(ctx context.Context, p profile.DeviceProfile, command string) (map[string]any, error) {
	// Probe with the canonical status command, not the command being issued.
	ep, err := c.resolveEndpoint(ctx, p, probeOptions{}, "getStatusEx")
	if err != nil {
		return nil, err
	}

	var body []byte
	op := func() error {
		b, err := c.doOnce(ctx, ep, command)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(&corerr.CancelledError{Err: ctx.Err()})
			}
			return err
		}
		body = b
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = p.Connection.ResponseTimeout * 4
	attempt := 0
	notify := func(err error, wait time.Duration) {
		attempt++
		switch {
		case attempt <= 2:
			log.Printf("WARN transport: host=%s command=%s attempt=%d retrying in %s: %v", c.host, command, attempt, wait, err)
		case attempt <= 4:
			log.Printf("DEBUG transport: host=%s command=%s attempt=%d retrying in %s: %v", c.host, command, attempt, wait, err)
		default:
			log.Printf("ERROR transport: host=%s command=%s attempt=%d retrying in %s: %v", c.host, command, attempt, wait, err)
		}
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(bo, ctx), notify); err != nil {
		var cancelled *corerr.CancelledError
		if errors.As(err, &cancelled) {
			return nil, cancelled
		}
		if ctx.Err() != nil {
			return nil, &corerr.TimeoutError{Host: c.host, Endpoint: command, Err: ctx.Err()}
		}
		return nil, &corerr.ConnectionError{Host: c.host, Endpoint: command, Err: err}
	}

	return parseBody(c.host, command, body)
}

func (c *Client) resolveEndpoint(ctx context.Context, p profile.DeviceProfile, opts probeOptions, statusCommand string) (Endpoint, error) {
	if ep, ok := c.cachedEndpoint(); ok {
		return ep, nil
	}
	ep, err := c.probe(ctx, p, opts, statusCommand)
	if err != nil {
		return Endpoint{}, err
	}
	c.cacheEndpoint(ep)
	return ep, nil
}

func parseBody(host, command string, body []byte) (map[string]any, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" || strings.EqualFold(trimmed, "ok") {
		if isNonJSONAllowed(command) {
			return map[string]any{"raw": "OK"}, nil
		}
		return nil, &corerr.ResponseMalformedError{Host: host, Endpoint: command, Body: trimmed, Err: fmt.Errorf("empty or non-JSON body")}
	}

	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		if isNonJSONAllowed(command) {
			return map[string]any{"raw": trimmed}, nil
		}
		return nil, &corerr.ResponseMalformedError{Host: host, Endpoint: command, Body: trimmed, Err: err}
	}
	return parsed, nil
}
