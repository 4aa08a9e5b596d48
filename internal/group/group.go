package group

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/jeromeof/pywiim-sub000/internal/corerr"
	"github.com/jeromeof/pywiim-sub000/internal/player"
)

// New creates a Group with master as its coordinator and no slaves yet,
// minting a stable id from the master's device uuid.
func New(master *player.Player) *Group {
	return &Group{
		id:     mintGroupID(master.DeviceInfo().UUID),
		master: master,
		slaves: map[string]*player.Player{},
	}
}

// ID returns the Group's identifier.
func (g *Group) ID() string { return g.id }

// Master returns the coordinating Player.
func (g *Group) Master() *player.Player { return g.master }

// Members returns master plus every linked slave.
func (g *Group) Members() []*player.Player {
	out := make([]*player.Player, 0, len(g.slaves)+1)
	out = append(out, g.master)
	for _, s := range g.slaves {
		out = append(out, s)
	}
	return out
}

// CreateGroup issues the LinkPlay master-assignment command, making master
// the coordinator of a new, still-empty group.
func CreateGroup(ctx context.Context, master *player.Player) (*Group, error) {
	if _, err := master.ExecuteRaw(ctx, "setMultiroom:Master"); err != nil {
		return nil, err
	}
	return New(master), nil
}

// wmrmMajor returns the major version number of a device's wmrm_version
// string ("4.2" -> 4), or -1 when absent/unparseable.
func wmrmMajor(version string) int {
	if version == "" {
		return -1
	}
	major := 0
	for _, r := range version {
		if r == '.' {
			break
		}
		if r < '0' || r > '9' {
			return -1
		}
		major = major*10 + int(r-'0')
	}
	return major
}

func checkWMRMCompatible(a, b *player.Player) error {
	ma := wmrmMajor(a.DeviceInfo().WMRMVersion)
	mb := wmrmMajor(b.DeviceInfo().WMRMVersion)
	if ma == -1 || mb == -1 {
		return nil // unknown version: don't block on missing data
	}
	if ma != mb {
		return &corerr.InconsistentStateError{
			Detail: fmt.Sprintf("incompatible wmrm_version major numbers: %d vs %d", ma, mb),
		}
	}
	return nil
}

// JoinGroup links slave to master, handling the documented preconditions in
// order: wmrm-version compatibility is checked first and before any device
// I/O; a master that is itself a slave elsewhere leaves that group next; a
// solo master is promoted via CreateGroup; a slave that is itself a master
// is disbanded first; a slave already linked elsewhere leaves first. Only
// then is the join command issued to the slave device.
func JoinGroup(ctx context.Context, slave, master *player.Player, registry GroupRegistry) (*Group, error) {
	if err := checkWMRMCompatible(master, slave); err != nil {
		return nil, err
	}

	if mg := registry.GroupOf(master); mg != nil && mg.master.ID() != master.ID() {
		if err := LeaveGroup(ctx, mg, master, registry); err != nil {
			return nil, err
		}
	}

	g := registry.GroupOf(master)
	if g == nil || g.master.ID() != master.ID() {
		created, err := CreateGroup(ctx, master)
		if err != nil {
			return nil, err
		}
		g = created
		registry.SetGroupOf(master, g)
	}

	if sg := registry.GroupOf(slave); sg != nil {
		if sg.master.ID() == slave.ID() {
			if err := Disband(ctx, sg, registry); err != nil {
				return nil, err
			}
		} else if sg != g {
			if err := LeaveGroup(ctx, sg, slave, registry); err != nil {
				return nil, err
			}
		}
	}

	if err := issueJoinCommand(ctx, slave, master); err != nil {
		return nil, err
	}

	g.slaves[slave.ID()] = slave
	slave.SetGroupRoute(func(ctx context.Context, command string) error {
		_, err := g.master.ExecuteRaw(ctx, command)
		return err
	})
	registry.SetGroupOf(slave, g)

	fireAffected(g)
	return g, nil
}

// issueJoinCommand sends the device-specific join command to the slave,
// using WiFi-Direct form for Gen1 devices and the router-based form for
// Gen2+, falling back to router mode with a warning when a Gen1 SSID can't
// be resolved (spec §4.7).
func issueJoinCommand(ctx context.Context, slave, master *player.Player) error {
	masterProfile := master.Profile()
	masterHost := master.Host()

	if masterProfile.Grouping.UsesWiFiDirect {
		ssid := master.DeviceInfo().SSID
		channel := master.DeviceInfo().WiFiChannel
		if ssid == "" {
			// SSID unknown: fall back to router-based mode rather than fail.
			log.Printf("WARN group join: master %s SSID unknown; falling back to router-based join", masterHost)
			cmd := fmt.Sprintf("ConnectMasterAp:JoinGroupMaster:eth%s:wifi0.0.0.0", masterHost)
			_, err := slave.ExecuteRaw(ctx, cmd)
			return err
		}
		cmd := fmt.Sprintf("ConnectMasterAp:ssid=%s:ch=%s:auth=OPEN:encry=NONE:pwd=:chext=0",
			hexEncodeSSID(ssid), channel)
		_, err := slave.ExecuteRaw(ctx, cmd)
		return err
	}

	cmd := fmt.Sprintf("ConnectMasterAp:JoinGroupMaster:eth%s:wifi0.0.0.0", masterHost)
	_, err := slave.ExecuteRaw(ctx, cmd)
	return err
}

func hexEncodeSSID(ssid string) string {
	var b strings.Builder
	for i := 0; i < len(ssid); i++ {
		fmt.Fprintf(&b, "%02x", ssid[i])
	}
	return b.String()
}

// LeaveGroup removes slave from g. Idempotent: a slave not actually linked
// is a no-op.
func LeaveGroup(ctx context.Context, g *Group, slave *player.Player, registry GroupRegistry) error {
	if _, linked := g.slaves[slave.ID()]; !linked {
		return nil
	}

	cmd := "multiroom:SlaveKickout:" + slave.Host()
	if _, err := g.master.ExecuteRaw(ctx, cmd); err != nil {
		return err
	}

	delete(g.slaves, slave.ID())
	slave.SetGroupRoute(nil)
	registry.ClearGroupOf(slave)

	fireAffected(g)
	slave.FireGroupChanged()
	return nil
}

// Disband tears down g entirely: every slave leaves, and the master
// reverts to solo.
func Disband(ctx context.Context, g *Group, registry GroupRegistry) error {
	members := g.Members()
	for _, slave := range g.slaves {
		slave.SetGroupRoute(nil)
		registry.ClearGroupOf(slave)
	}
	g.slaves = map[string]*player.Player{}

	if _, err := g.master.ExecuteRaw(ctx, "multiroom:Ungroup"); err != nil {
		return err
	}
	registry.ClearGroupOf(g.master)

	for _, m := range members {
		m.FireGroupChanged()
	}
	return nil
}

// fireAffected notifies every current member's onStateChanged callback of
// the new group topology (spec §4.7: "fire onStateChanged on every
// affected Player").
func fireAffected(g *Group) {
	for _, m := range g.Members() {
		m.FireGroupChanged()
	}
}

// PropagateMetadata pushes the master's current transport/metadata fields
// into every linked slave's Synchronizer with source=propagated. Called
// after a successful master refresh. Volume, source, and mute are
// deliberately excluded.
func (g *Group) PropagateMetadata() {
	status := g.master.Status()
	fields := map[string]any{
		"title":       status.Title,
		"artist":      status.Artist,
		"album":       status.Album,
		"image_url":   status.ImageURL,
		"play_state":  string(status.PlayState),
		"source_name": g.master.DeviceInfo().Name,
	}
	if status.PositionS != nil {
		fields["position_s"] = *status.PositionS
	}
	if status.DurationS != nil {
		fields["duration_s"] = *status.DurationS
	}
	if status.SampleRate != 0 {
		fields["sample_rate"] = status.SampleRate
	}
	if status.BitDepth != 0 {
		fields["bit_depth"] = status.BitDepth
	}
	if status.BitRate != 0 {
		fields["bit_rate"] = status.BitRate
	}

	for _, slave := range g.slaves {
		slave.PushPropagated(fields)
	}
}

// Refresh refreshes the master Player and, when that succeeds, pushes its
// metadata to every linked slave via PropagateMetadata.
func (g *Group) Refresh(ctx context.Context) error {
	if err := g.master.Refresh(ctx); err != nil {
		return err
	}
	g.PropagateMetadata()
	return nil
}

// Volume is the virtual-master volume: the maximum over all members.
func (g *Group) Volume() int {
	max := g.master.Status().Volume
	for _, s := range g.slaves {
		if v := s.Status().Volume; v > max {
			max = v
		}
	}
	return max
}

// SetVolumeAll applies target to the group as a whole: delta = target -
// current max is applied to every member (clamped to [0,100]); if every
// member is already at 0 and target > 0, every member is set to target
// directly instead of leaving the delta at 0.
func (g *Group) SetVolumeAll(ctx context.Context, target int) error {
	members := g.Members()
	current := g.Volume()

	delta := target - current
	allZero := current == 0
	for _, m := range members {
		var next int
		if allZero && target > 0 {
			next = target
		} else {
			next = clamp(m.Status().Volume+delta, 0, 100)
		}
		if err := m.SetVolume(ctx, next); err != nil {
			return err
		}
	}
	return nil
}

// MuteAll applies mute to every member explicitly; individual
// Player.SetMute calls never propagate on their own.
func (g *Group) MuteAll(ctx context.Context, muted bool) error {
	for _, m := range g.Members() {
		if err := m.SetMute(ctx, muted); err != nil {
			return err
		}
	}
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// GroupRegistry is the minimal lookup surface Group needs from whatever
// fleet-level component tracks which Group (if any) a Player currently
// belongs to. Implemented by the caller, not by this package, so Group
// stays free of any global state.
type GroupRegistry interface {
	GroupOf(p *player.Player) *Group
	SetGroupOf(p *player.Player, g *Group)
	ClearGroupOf(p *player.Player)
}
