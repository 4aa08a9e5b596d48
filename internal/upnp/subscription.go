package upnp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"time"
)

// ErrSubscriptionNotFound is returned by Renew when the device answers
// HTTP 412, meaning the subscription no longer exists server-side.
var ErrSubscriptionNotFound = errors.New("upnp subscription not found")

// SubscriptionClient issues GENA SUBSCRIBE/RENEW/UNSUBSCRIBE requests
// against a device's event URL. Unlike Sonos's fixed port-1400 control
// points, LinkPlay event paths are addressed by the full URL the caller
// resolves from the device's description document, since port and path
// both vary by profile and generation.
type SubscriptionClient struct {
	httpClient *http.Client
}

// NewSubscriptionClient builds a SubscriptionClient with the given request
// timeout.
func NewSubscriptionClient(timeout time.Duration) *SubscriptionClient {
	return &SubscriptionClient{httpClient: &http.Client{Timeout: timeout}}
}

// Subscribe sends SUBSCRIBE to eventURL and returns the SID and the
// timeout the device actually granted.
func (c *SubscriptionClient) Subscribe(ctx context.Context, eventURL, callbackURL string, timeoutSec int) (sid string, actualTimeout int, err error) {
	req, err := http.NewRequestWithContext(ctx, "SUBSCRIBE", eventURL, nil)
	if err != nil {
		return "", 0, fmt.Errorf("create subscribe request: %w", err)
	}
	req.Header.Set("CALLBACK", fmt.Sprintf("<%s>", callbackURL))
	req.Header.Set("NT", "upnp:event")
	req.Header.Set("TIMEOUT", fmt.Sprintf("Second-%d", timeoutSec))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("subscribe request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("subscribe failed: %s", resp.Status)
	}

	sid = ParseSID(resp.Header.Get("SID"))
	if sid == "" {
		return "", 0, fmt.Errorf("no SID in subscribe response")
	}
	actualTimeout = ParseTimeout(resp.Header.Get("TIMEOUT"))
	return sid, actualTimeout, nil
}

// Renew extends an existing subscription.
func (c *SubscriptionClient) Renew(ctx context.Context, eventURL, sid string, timeoutSec int) (actualTimeout int, err error) {
	req, err := http.NewRequestWithContext(ctx, "SUBSCRIBE", eventURL, nil)
	if err != nil {
		return 0, fmt.Errorf("create renew request: %w", err)
	}
	req.Header.Set("SID", sid)
	req.Header.Set("TIMEOUT", fmt.Sprintf("Second-%d", timeoutSec))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("renew request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusPreconditionFailed {
		return 0, ErrSubscriptionNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("renew failed: %s", resp.Status)
	}
	return ParseTimeout(resp.Header.Get("TIMEOUT")), nil
}

// Unsubscribe sends UNSUBSCRIBE. Network errors are swallowed — the device
// may already be offline, which is not a caller-actionable failure.
func (c *SubscriptionClient) Unsubscribe(ctx context.Context, eventURL, sid string) error {
	req, err := http.NewRequestWithContext(ctx, "UNSUBSCRIBE", eventURL, nil)
	if err != nil {
		return fmt.Errorf("create unsubscribe request: %w", err)
	}
	req.Header.Set("SID", sid)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusPreconditionFailed {
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unsubscribe failed: %s", resp.Status)
	}
	return nil
}

var sidHeaderPattern = regexp.MustCompile(`^uuid:.+$`)

// ParseSID extracts the SID header value, validating its uuid: prefix.
func ParseSID(header string) string {
	if sidHeaderPattern.MatchString(header) {
		return header
	}
	return ""
}

// ParseTimeout parses a "Second-NNN" or "Second-infinite" TIMEOUT header.
// "infinite" is mapped to 86400s rather than a negative renewal buffer.
func ParseTimeout(header string) int {
	const prefix = "Second-"
	if len(header) <= len(prefix) {
		return 0
	}
	value := header[len(prefix):]
	if value == "infinite" {
		return 86400
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}
