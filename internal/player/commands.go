package player

import (
	"context"
	"fmt"
	"strings"

	"github.com/jeromeof/pywiim-sub000/internal/corerr"
	"github.com/jeromeof/pywiim-sub000/internal/parser"
)

// transportCommands that move playback are delegated to the group master
// when this Player is a linked slave (spec §4.7 command routing).
var transportCommands = map[string]bool{
	"play": true, "pause": true, "resume": true, "stop": true,
	"next": true, "previous": true, "seek": true,
}

func (p *Player) issue(ctx context.Context, command string) error {
	p.mu.Lock()
	role := p.role
	delegate := p.delegate
	p.mu.Unlock()

	if role == RoleSlave && transportCommands[baseCommand(command)] {
		if delegate == nil {
			return &corerr.InconsistentStateError{Detail: "slave player has no linked group master to route command to"}
		}
		return delegate(ctx, command)
	}

	_, err := p.xport.Execute(ctx, p.Profile(), command)
	return err
}

func baseCommand(command string) string {
	trimmed := strings.TrimPrefix(command, "setPlayerCmd:")
	if idx := strings.IndexByte(trimmed, ':'); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	if trimmed == "prev" {
		return "previous"
	}
	return trimmed
}

func (p *Player) optimisticUpdate(field string, value any) {
	before := p.sync.Snapshot()
	after := p.sync.UpdateFromHTTP(map[string]any{field: value}, "")
	p.fireIfChanged(before, after)
}

// Play starts playback.
func (p *Player) Play(ctx context.Context) error {
	if err := p.issue(ctx, "setPlayerCmd:play"); err != nil {
		return err
	}
	p.optimisticUpdate("play_state", string(parser.PlayStatePlay))
	return nil
}

// Pause pauses playback.
func (p *Player) Pause(ctx context.Context) error {
	if err := p.issue(ctx, "setPlayerCmd:pause"); err != nil {
		return err
	}
	p.optimisticUpdate("play_state", string(parser.PlayStatePause))
	return nil
}

// Resume continues playback from pause.
func (p *Player) Resume(ctx context.Context) error {
	if err := p.issue(ctx, "setPlayerCmd:resume"); err != nil {
		return err
	}
	p.optimisticUpdate("play_state", string(parser.PlayStatePlay))
	return nil
}

// Stop halts playback. Reported play_state is normalized to pause — the
// Player never exposes a separate stopped state (spec §4.6).
func (p *Player) Stop(ctx context.Context) error {
	if err := p.issue(ctx, "setPlayerCmd:stop"); err != nil {
		return err
	}
	p.optimisticUpdate("play_state", string(parser.PlayStatePause))
	return nil
}

// Next skips to the next track.
func (p *Player) Next(ctx context.Context) error {
	return p.issue(ctx, "setPlayerCmd:next")
}

// Previous skips to the previous track.
func (p *Player) Previous(ctx context.Context) error {
	return p.issue(ctx, "setPlayerCmd:prev")
}

// Seek moves playback to positionS seconds into the current track.
func (p *Player) Seek(ctx context.Context, positionS int64) error {
	if positionS < 0 {
		return &corerr.PreconditionFailureError{Detail: "seek position must be non-negative"}
	}
	if err := p.issue(ctx, fmt.Sprintf("setPlayerCmd:seek:%d", positionS)); err != nil {
		return err
	}
	p.optimisticUpdate("position_s", positionS)
	return nil
}

// MediaPlayPause implements the universal toggle: resume from pause, pause
// from play, or play from idle — this avoids restarting streaming sources
// from the beginning (spec §4.6).
func (p *Player) MediaPlayPause(ctx context.Context) error {
	switch parser.PlayState(p.snapshotField("play_state")) {
	case parser.PlayStatePause:
		return p.Resume(ctx)
	case parser.PlayStatePlay:
		return p.Pause(ctx)
	default:
		return p.Play(ctx)
	}
}

// SetVolume sets playback volume in [0,100].
func (p *Player) SetVolume(ctx context.Context, volume int) error {
	if volume < 0 || volume > 100 {
		return &corerr.PreconditionFailureError{Detail: "volume must be in [0,100]"}
	}
	if _, err := p.xport.Execute(ctx, p.Profile(), fmt.Sprintf("setPlayerCmd:vol:%d", volume)); err != nil {
		return err
	}
	p.optimisticUpdate("volume", volume)
	return nil
}

// SetMute sets the mute flag directly; it never propagates to a group
// (spec §4.7 — mute is group-wide only via Group.MuteAll).
func (p *Player) SetMute(ctx context.Context, muted bool) error {
	on := 0
	if muted {
		on = 1
	}
	if _, err := p.xport.Execute(ctx, p.Profile(), fmt.Sprintf("setPlayerCmd:mute:%d", on)); err != nil {
		return err
	}
	p.optimisticUpdate("muted", muted)
	return nil
}

// SetShuffle sets the shuffle flag, re-encoding the combined loop-mode raw
// value for the active profile. Forbidden for blacklisted sources and for
// slave-role players.
func (p *Player) SetShuffle(ctx context.Context, shuffle bool) error {
	return p.setLoopMode(ctx, shuffle, parser.RepeatMode(p.snapshotFieldOr("repeat", string(parser.RepeatOff))))
}

// SetRepeat sets the repeat mode, subject to the same restrictions as
// SetShuffle.
func (p *Player) SetRepeat(ctx context.Context, repeat parser.RepeatMode) error {
	shuffle, _ := p.sync.Snapshot()["shuffle"].(bool)
	return p.setLoopMode(ctx, shuffle, repeat)
}

func (p *Player) setLoopMode(ctx context.Context, shuffle bool, repeat parser.RepeatMode) error {
	p.mu.Lock()
	role := p.role
	p.mu.Unlock()

	sourceID := p.snapshotField("source")
	if parser.ShuffleRepeatUnsupported(sourceID, role == RoleSlave) {
		return &corerr.UnsupportedOperationError{Operation: "shuffle/repeat", Reason: "not supported for source " + sourceID}
	}

	raw := parser.EncodeLoopMode(p.Profile().LoopModeScheme, parser.LoopMode{Shuffle: shuffle, Repeat: repeat})
	if _, err := p.xport.Execute(ctx, p.Profile(), fmt.Sprintf("setPlayerCmd:loopmode:%d", raw)); err != nil {
		return err
	}

	before := p.sync.Snapshot()
	after := p.sync.UpdateFromHTTP(map[string]any{
		"shuffle":       shuffle,
		"repeat":        string(repeat),
		"loop_mode_raw": raw,
	}, "")
	p.fireIfChanged(before, after)
	return nil
}

func (p *Player) snapshotField(field string) string {
	v, _ := p.sync.Snapshot()[field].(string)
	return v
}

func (p *Player) snapshotFieldOr(field, fallback string) string {
	if v := p.snapshotField(field); v != "" {
		return v
	}
	return fallback
}
