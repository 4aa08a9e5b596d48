package player

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jeromeof/pywiim-sub000/internal/corerr"
	"github.com/jeromeof/pywiim-sub000/internal/coverart"
	"github.com/jeromeof/pywiim-sub000/internal/endpoint"
	"github.com/jeromeof/pywiim-sub000/internal/parser"
	"github.com/jeromeof/pywiim-sub000/internal/profile"
	"github.com/jeromeof/pywiim-sub000/internal/statesync"
	"github.com/jeromeof/pywiim-sub000/internal/transport"
	"github.com/jeromeof/pywiim-sub000/internal/upnp"
)

const periodicRefreshInterval = 60 * time.Second

// Player is a per-device facade: it owns the Transport connection, the
// State Synchronizer, and the resolved Profile for one host, and exposes
// typed getters over MergedState plus the universal command pattern.
type Player struct {
	mu sync.Mutex

	id       string
	host     string
	registry *profile.Registry
	resolver *endpoint.Resolver
	xport    *transport.Client
	sync     *statesync.Synchronizer

	info    profile.DeviceInfo
	prof    profile.DeviceProfile
	hasInfo bool

	role       Role
	groupID    string
	masterUUID string
	masterIP   string

	art *coverart.Fetcher

	lastFullRefresh  time.Time
	firstRefreshDone bool

	delegate func(ctx context.Context, command string) error // command routing to group master, set by Group

	onStateChanged StateChangeFunc
}

// New builds a Player for host. id is a stable caller-chosen identifier
// (typically the device uuid once known, or the host string beforehand).
func New(id, host string, registry *profile.Registry, xport *transport.Client, onStateChanged StateChangeFunc) *Player {
	return &Player{
		id:             id,
		host:           host,
		registry:       registry,
		resolver:       endpoint.NewResolver(),
		xport:          xport,
		sync:           statesync.New(),
		prof:           registry.Resolve(profile.DeviceInfo{}), // generic until first refresh resolves it
		art:            coverart.NewFetcher(coverart.New(coverart.DefaultTTL, coverart.DefaultCapacity), nil),
		onStateChanged: onStateChanged,
	}
}

// ID returns the Player's stable identifier.
func (p *Player) ID() string { return p.id }

// Profile returns the currently resolved DeviceProfile.
func (p *Player) Profile() profile.DeviceProfile {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.prof
}

// DeviceInfo returns the identity fields captured on the last full refresh.
func (p *Player) DeviceInfo() profile.DeviceInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.info
}

// Role returns the last-detected multiroom role.
func (p *Player) Role() Role {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.role
}

// Host returns the device host address this Player was constructed with.
func (p *Player) Host() string { return p.host }

// FireGroupChanged invokes the onStateChanged callback with the player's
// current role/group snapshot. Group calls this on every affected member
// after a join/leave/disband, since topology fields live outside
// MergedState and wouldn't otherwise be seen as a diff by Refresh.
func (p *Player) FireGroupChanged() {
	if p.onStateChanged == nil {
		return
	}
	s := p.Status()
	p.onStateChanged(p.id, map[string]any{
		"role":        string(s.Role),
		"group_id":    s.GroupID,
		"master_uuid": s.MasterUUID,
		"master_ip":   s.MasterIP,
	})
}

// ExecuteRaw issues command directly against the device's own Transport,
// bypassing command routing. Used by the Group layer for multiroom
// primitives (join/leave/master assignment) that have no per-Player
// command wrapper of their own.
func (p *Player) ExecuteRaw(ctx context.Context, command string) (map[string]any, error) {
	return p.xport.Execute(ctx, p.Profile(), command)
}

// PushPropagated writes master-sourced metadata/transport fields into this
// Player's Synchronizer tagged source=propagated, then fires the callback
// if anything changed. Used by Group after a successful master refresh.
func (p *Player) PushPropagated(fields map[string]any) {
	before := p.sync.Snapshot()
	after := p.sync.UpdateFromHTTP(fields, statesync.SourcePropagated)
	p.fireIfChanged(before, after)
}

// SetGroupRoute installs the function used to route transport-level
// commands to a group master when this Player is a slave. Group wires this
// in when it links a Player as a slave member.
func (p *Player) SetGroupRoute(route func(ctx context.Context, command string) error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.delegate = route
}

// Refresh fetches fresh state from the device. The first call is always
// treated as a full refresh (spec §4.6 step 1).
func (p *Player) Refresh(ctx context.Context) error {
	p.mu.Lock()
	full := !p.firstRefreshDone
	p.firstRefreshDone = true
	sinceFull := time.Since(p.lastFullRefresh)
	p.mu.Unlock()

	if full || sinceFull >= periodicRefreshInterval {
		if err := p.refreshDeviceInfo(ctx); err != nil {
			return err
		}
	}

	before := p.sync.Snapshot()

	statusRaw, err := p.executeChain(ctx, endpoint.PlayerStatus)
	if err != nil {
		return err
	}
	fields := parser.DecodeStatusFields(p.Profile(), statusRaw)
	p.sync.UpdateFromHTTP(fields, "")

	checkSlaveList := full || sinceFull >= periodicRefreshInterval
	if err := p.refreshRole(ctx, checkSlaveList); err != nil {
		return err
	}

	after := p.sync.Snapshot()
	titleChanged := after["title"] != before["title"] || after["artist"] != before["artist"]
	if titleChanged {
		p.refreshMetadata(ctx)
	}

	if full || sinceFull >= periodicRefreshInterval {
		p.refreshAncillary(ctx)
		p.mu.Lock()
		p.lastFullRefresh = time.Now()
		p.mu.Unlock()
	}

	p.fireIfChanged(before, p.sync.Snapshot())
	return nil
}

func (p *Player) refreshDeviceInfo(ctx context.Context) error {
	raw, err := p.executeChain(ctx, endpoint.PlayerStatus)
	if err != nil {
		return err
	}
	info := parser.DecodeDeviceInfo(raw)
	info.UUID = firstNonEmpty(info.UUID, p.id)

	prof := p.registry.Resolve(info)

	p.mu.Lock()
	p.info = info
	p.hasInfo = true
	p.prof = prof
	p.mu.Unlock()

	p.sync.SetProfile(prof)
	return nil
}

// refreshRole determines solo/master/slave status. The slave-side check
// (group/master_uuid from the primary GroupInfo call) is cheap and always
// run. The master-side check requires the separate multiroom:getSlaveList
// probe, which is gated by checkSlaveList the same way refreshAncillary is
// gated by the full/periodic condition in Refresh, so a plain status poll
// never pays for it. When checkSlaveList is false and the device isn't
// reporting itself a slave, the previously known role is left untouched
// until the next full/periodic refresh re-confirms it authoritatively.
func (p *Player) refreshRole(ctx context.Context, checkSlaveList bool) error {
	raw, err := p.executeChain(ctx, endpoint.GroupInfo)
	if err != nil {
		if corerr.IsUnsupported(err) {
			return nil
		}
		return err
	}

	group, _ := raw["group"].(string)
	masterUUID, _ := raw["master_uuid"].(string)
	masterIP, _ := raw["master_ip"].(string)

	isSlave := group != "" && group != "0" && masterUUID != "" && masterUUID != p.info.UUID

	isMaster := false
	if checkSlaveList {
		slaves, slaveErr := p.executeChain(ctx, endpoint.SlaveList)
		if slaveErr == nil {
			if list, ok := slaves["slave_list"].([]any); ok {
				isMaster = len(list) > 0
			}
		}
	}

	p.mu.Lock()
	switch {
	case isSlave:
		p.role = RoleSlave
		p.groupID = group
		p.masterUUID = masterUUID
		p.masterIP = masterIP
	case isMaster:
		p.role = RoleMaster
		p.groupID = ""
		p.masterUUID = ""
		p.masterIP = ""
	case checkSlaveList:
		p.role = RoleSolo
		p.groupID = ""
		p.masterUUID = ""
		p.masterIP = ""
	}
	p.mu.Unlock()
	return nil
}

func (p *Player) refreshMetadata(ctx context.Context) {
	raw, err := p.executeChain(ctx, endpoint.Metadata)
	if err != nil {
		return // metadata is best-effort; absence doesn't fail Refresh
	}
	fields := parser.DecodeMetadataFields(raw)
	p.sync.UpdateFromHTTP(fields, "")
	p.refreshAncillary(ctx)
}

// refreshAncillary fetches EQ presets, preset stations, audio-output mode,
// and Bluetooth pairing history. These are best-effort: a profile without
// the matching capability flag, or a device that errors, simply leaves the
// field absent from MergedState rather than failing the whole refresh.
func (p *Player) refreshAncillary(ctx context.Context) {
	for field, logical := range map[string]string{
		"eq_preset":         endpoint.EQPresets,
		"preset_stations":   endpoint.PresetStations,
		"audio_output_mode": endpoint.AudioOutput,
		"bluetooth_history": endpoint.BluetoothHistory,
	} {
		raw, err := p.executeChain(ctx, logical)
		if err != nil {
			continue
		}
		p.sync.UpdateFromHTTP(map[string]any{field: raw}, "")
	}
}

func (p *Player) fireIfChanged(before, after map[string]any) {
	changed := map[string]any{}
	for k, v := range after {
		if bv, ok := before[k]; !ok || bv != v {
			changed[k] = v
		}
	}
	if len(changed) == 0 {
		return
	}
	if p.onStateChanged != nil {
		p.onStateChanged(p.id, changed)
	}
}

// HandleUPnPEvent feeds a parsed NOTIFY into the Synchronizer and fires the
// callback if the merge changed anything. Wired by the fleet-level
// dispatcher that owns the shared upnp.Manager and routes events by
// DeviceUUID.
func (p *Player) HandleUPnPEvent(evt upnp.Event) {
	before := p.sync.Snapshot()
	fields := parser.DecodeUPnPFields(evt.Fields)
	after := p.sync.UpdateFromUPnP(fields)
	p.fireIfChanged(before, after)
}

// executeChain tries each concrete command in the logical endpoint's chain
// in order, returning the first successful parse. UnsupportedOperation and
// Cancelled short-circuit immediately; other errors fall through to the
// next candidate, re-raising the last error if every candidate fails.
func (p *Player) executeChain(ctx context.Context, logical string) (map[string]any, error) {
	chain, err := p.resolver.Chain(p.Profile(), logical)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, cmd := range chain {
		result, err := p.xport.Execute(ctx, p.Profile(), cmd)
		if err == nil {
			return result, nil
		}
		if corerr.IsUnsupported(err) {
			return nil, err
		}
		var cancelled *corerr.CancelledError
		if errors.As(err, &cancelled) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// Artwork resolves the image bytes for the current track's image_url,
// serving from the per-player cover-art cache on a hit and fetching over
// HTTP(S) on a miss. The embedded sentinel (a data: URL) is decoded
// in-process and never touches the cache or network.
func (p *Player) Artwork(ctx context.Context) ([]byte, error) {
	url := p.Status().ImageURL
	return p.art.Resolve(ctx, url)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
