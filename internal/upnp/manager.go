package upnp

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// deviceSubscriptionState tracks idempotency and backoff for one device's
// set of subscriptions.
type deviceSubscriptionState struct {
	subscribed   bool
	failureCount int
	lastAttempt  time.Time
}

// shouldAttemptSubscription reports whether enough time has passed since
// the last failed attempt, per an exponential backoff capped at 600s.
func (d *deviceSubscriptionState) shouldAttemptSubscription(now time.Time) bool {
	if d.failureCount == 0 {
		return true
	}
	backoffSec := 30 * (1 << uint(d.failureCount))
	if backoffSec > 600 {
		backoffSec = 600
	}
	return now.Sub(d.lastAttempt) >= time.Duration(backoffSec)*time.Second
}

// EventHandler is invoked with every parsed NOTIFY. It must not block.
type EventHandler func(Event)

// Manager orchestrates GENA subscription lifecycle for any number of
// devices: idempotent subscribe, auto-renewal, auto-resubscribe, and
// per-device backoff on failure.
type Manager struct {
	cfg    ManagerConfig
	client *SubscriptionClient

	mu            sync.Mutex
	subscriptions map[string]*Subscription // keyed by SID
	byDevice      map[string][]string      // deviceHost -> SIDs
	deviceState   map[string]*deviceSubscriptionState

	stats Stats

	onEvent EventHandler

	now func() time.Time

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewManager builds a Manager that delivers parsed events to onEvent.
func NewManager(cfg ManagerConfig, client *SubscriptionClient, onEvent EventHandler) *Manager {
	return &Manager{
		cfg:           cfg,
		client:        client,
		subscriptions: map[string]*Subscription{},
		byDevice:      map[string][]string{},
		deviceState:   map[string]*deviceSubscriptionState{},
		onEvent:       onEvent,
		now:           time.Now,
		stopCh:        make(chan struct{}),
	}
}

// Start begins the background renewal loop. It is safe to call even when
// cfg.Enabled is false — the loop simply has nothing to renew.
func (m *Manager) Start() {
	m.wg.Add(1)
	go m.renewalLoop()
}

// Stop halts the renewal loop and unsubscribes every active subscription.
// Idempotent.
func (m *Manager) Stop(ctx context.Context) {
	select {
	case <-m.stopCh:
		return // already stopped
	default:
		close(m.stopCh)
	}
	m.wg.Wait()
	m.unsubscribeAll(ctx)
}

// SubscribeDevice subscribes to eventURL for service on behalf of
// deviceHost/deviceUUID, building the callback URL from callbackBase (this
// process's externally reachable base URL, e.g. "http://192.168.1.50:9100")
// and the inferred service path suffix. Idempotent: a device already
// subscribed to this service is a no-op success.
func (m *Manager) SubscribeDevice(ctx context.Context, deviceHost, deviceUUID, eventURL string, service ServiceType, callbackBase string) error {
	if !m.cfg.Enabled {
		return nil
	}

	m.mu.Lock()
	state, ok := m.deviceState[deviceHost]
	if !ok {
		state = &deviceSubscriptionState{}
		m.deviceState[deviceHost] = state
	}
	already := false
	for _, sid := range m.byDevice[deviceHost] {
		if sub, ok := m.subscriptions[sid]; ok && sub.Service == service {
			already = true
		}
	}
	attemptAllowed := state.shouldAttemptSubscription(m.now())
	m.mu.Unlock()

	if already {
		return nil
	}
	if !attemptAllowed {
		return errors.New("subscription backoff in effect for " + deviceHost)
	}

	callbackURL := buildCallbackURL(callbackBase, service)
	sid, timeout, err := m.client.Subscribe(ctx, eventURL, callbackURL, m.cfg.SubscriptionTimeout)

	m.mu.Lock()
	defer m.mu.Unlock()
	state.lastAttempt = m.now()
	if err != nil {
		state.failureCount++
		m.stats.SubscriptionFailures++
		return err
	}

	renewAt := m.now().Add(time.Duration(max(timeout-m.cfg.RenewalBuffer, 60)) * time.Second)
	sub := &Subscription{
		SID:          sid,
		DeviceHost:   deviceHost,
		DeviceUUID:   deviceUUID,
		EventPath:    eventURL,
		Service:      service,
		CallbackURL:  callbackURL,
		Timeout:      timeout,
		SubscribedAt: m.now(),
		RenewAt:      renewAt,
	}
	m.subscriptions[sid] = sub
	m.byDevice[deviceHost] = append(m.byDevice[deviceHost], sid)
	state.subscribed = true
	state.failureCount = 0
	m.stats.ActiveSubscriptions = len(m.subscriptions)
	return nil
}

// UnsubscribeDevice unsubscribes every active subscription for deviceHost.
func (m *Manager) UnsubscribeDevice(ctx context.Context, deviceHost string) {
	m.mu.Lock()
	sids := append([]string(nil), m.byDevice[deviceHost]...)
	m.mu.Unlock()

	for _, sid := range sids {
		m.mu.Lock()
		sub, ok := m.subscriptions[sid]
		m.mu.Unlock()
		if !ok {
			continue
		}
		_ = m.client.Unsubscribe(ctx, sub.EventPath, sub.SID)
		m.removeSubscription(sid)
	}

	m.mu.Lock()
	delete(m.deviceState, deviceHost)
	m.mu.Unlock()
}

func (m *Manager) removeSubscription(sid string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subscriptions[sid]
	if !ok {
		return
	}
	delete(m.subscriptions, sid)
	sids := m.byDevice[sub.DeviceHost]
	for i, s := range sids {
		if s == sid {
			m.byDevice[sub.DeviceHost] = append(sids[:i], sids[i+1:]...)
			break
		}
	}
	if state, ok := m.deviceState[sub.DeviceHost]; ok {
		state.subscribed = len(m.byDevice[sub.DeviceHost]) > 0
	}
	m.stats.ActiveSubscriptions = len(m.subscriptions)
}

// HandleNotify feeds a raw NOTIFY body through the parser and invokes the
// handler. Empty fields from the parser (spec §4.4's broken-subscription
// signal) are logged and not delivered.
func (m *Manager) HandleNotify(sid string, seq int, body []byte) {
	m.mu.Lock()
	sub, ok := m.subscriptions[sid]
	m.mu.Unlock()
	if !ok {
		log.Printf("WARN upnp: notify for unknown sid=%s", sid)
		return
	}

	fields, err := ParseNotifyBody(sub.Service, body)
	if err != nil {
		log.Printf("WARN upnp: parse notify failed: host=%s service=%s: %v", sub.DeviceHost, sub.Service, err)
		return
	}
	if len(fields) == 0 {
		log.Printf("WARN upnp: empty state_variables, possible broken subscription: host=%s service=%s", sub.DeviceHost, sub.Service)
		return
	}

	m.mu.Lock()
	sub.SEQ = seq
	m.stats.EventsReceived++
	m.stats.LastEventAt = m.now()
	m.mu.Unlock()

	if m.onEvent != nil {
		m.onEvent(Event{DeviceHost: sub.DeviceHost, DeviceUUID: sub.DeviceUUID, Service: sub.Service, SEQ: seq, Fields: fields})
	}
}

func (m *Manager) renewalLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.RenewalInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.renewExpiring(context.Background())
		}
	}
}

func (m *Manager) renewExpiring(ctx context.Context) {
	m.mu.Lock()
	var expiring []*Subscription
	for _, sub := range m.subscriptions {
		if sub.IsExpiringSoon() {
			expiring = append(expiring, sub)
		}
	}
	m.mu.Unlock()

	for _, sub := range expiring {
		timeout, err := m.client.Renew(ctx, sub.EventPath, sub.SID, m.cfg.SubscriptionTimeout)
		if err != nil {
			m.mu.Lock()
			m.stats.RenewalFailures++
			m.mu.Unlock()
			if errors.Is(err, ErrSubscriptionNotFound) {
				m.removeSubscription(sub.SID)
			}
			continue
		}
		m.mu.Lock()
		sub.Timeout = timeout
		sub.RenewAt = m.now().Add(time.Duration(max(timeout-m.cfg.RenewalBuffer, 60)) * time.Second)
		m.mu.Unlock()
	}
}

func (m *Manager) unsubscribeAll(ctx context.Context) {
	m.mu.Lock()
	all := make([]*Subscription, 0, len(m.subscriptions))
	for _, s := range m.subscriptions {
		all = append(all, s)
	}
	m.mu.Unlock()

	for _, sub := range all {
		_ = m.client.Unsubscribe(ctx, sub.EventPath, sub.SID)
		m.removeSubscription(sub.SID)
	}
}

// Stats returns a snapshot of manager-wide counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

func buildCallbackURL(base string, service ServiceType) string {
	switch service {
	case ServiceAVTransport:
		return base + "/upnp/event/avtransport1"
	case ServiceRenderingControl:
		return base + "/upnp/event/renderingcontrol1"
	default:
		return base + "/upnp/event/unknown"
	}
}
