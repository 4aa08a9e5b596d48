// Package group implements the Group model: lazily-constructed objects
// that let the Player layer route group-wide operations and propagate
// metadata. Role itself always comes from the device's own reported state
// (see internal/player); Group is not the source of truth for it.
package group

import (
	"github.com/google/uuid"
	"github.com/jeromeof/pywiim-sub000/internal/player"
)

// groupIDNamespace is a fixed UUID namespace used to mint deterministic
// group identifiers from a master's device uuid, mirroring the teacher's
// stereo-pair/home-theater id derivation.
var groupIDNamespace = uuid.MustParse("6f6e6b9a-2f0a-4f63-9f1b-9a6e9a7c1b2e")

// propagatedFields lists the PlayerStatus fields a master pushes into each
// linked slave's Synchronizer after a successful refresh (spec §4.7).
// PropagateMetadata also pushes source_name, which this list omits.
// Volume, source, and mute are deliberately excluded.
var propagatedFields = []string{
	"title", "artist", "album", "image_url",
	"play_state", "position_s", "duration_s",
	"sample_rate", "bit_depth", "bit_rate",
}

// Group is {master, slaves}. A Player belongs to at most one Group's slave
// set, and a master Player is in no other Group's slave set.
type Group struct {
	id     string
	master *player.Player
	slaves map[string]*player.Player // keyed by Player.ID()
}

func mintGroupID(masterUUID string) string {
	return uuid.NewSHA1(groupIDNamespace, []byte(masterUUID)).String()
}
