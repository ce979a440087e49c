package bot

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/freeeve/iron-rails/api/pkg/railgame"
)

// WorldSnapshot is the immutable per-turn view of everything the bot is
// allowed to reason about. It is produced fresh each turn by the
// snapshot provider and never mutated by the pipeline.
type WorldSnapshot struct {
	GameID   string `json:"game_id"`
	PlayerID string `json:"player_id"`
	UserID   string `json:"user_id"`

	Cash      int                `json:"cash"`
	TrainType railgame.TrainType `json:"train_type"`
	// TrainPos is nil until the initial train placement has happened.
	TrainPos *railgame.GridPos `json:"train_pos,omitempty"`

	Loads       []railgame.Load         `json:"loads"`
	Track       []railgame.TrackSegment `json:"track"`
	DemandCards []railgame.DemandCard   `json:"demand_cards"`

	ConnectedMajorCities int `json:"connected_major_cities"`

	MapPoints        map[string]railgame.MapPoint `json:"map_points"`
	LoadAvailability map[railgame.Load]int        `json:"load_availability"`

	TurnNumber int `json:"turn_number"`
}

// SnapshotProvider captures the current world state for one bot. It is
// an external collaborator and may fail (storage or network error).
type SnapshotProvider interface {
	Snapshot(ctx context.Context, gameID, playerID string) (*WorldSnapshot, error)
}

// Fingerprint returns a short deterministic digest of the snapshot's
// decision-relevant fields, used to correlate audits across turns. It is
// not an integrity check.
func (s *WorldSnapshot) Fingerprint() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%d|", s.GameID, s.PlayerID, s.Cash)
	if s.TrainPos != nil {
		fmt.Fprintf(&b, "%d,%d|", s.TrainPos.Row, s.TrainPos.Col)
	} else {
		b.WriteString("unplaced|")
	}
	for _, l := range s.Loads {
		b.WriteString(string(l))
		b.WriteByte(',')
	}
	fmt.Fprintf(&b, "|%d", len(s.Track))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:6])
}

// CarriedCount returns how many loads the train is carrying.
func (s *WorldSnapshot) CarriedCount() int { return len(s.Loads) }

// Capacity returns the train's load capacity.
func (s *WorldSnapshot) Capacity() int { return s.TrainType.Spec().Capacity }

// HasLoad reports whether the train carries at least one unit of load l.
func (s *WorldSnapshot) HasLoad(l railgame.Load) bool {
	for _, carried := range s.Loads {
		if carried == l {
			return true
		}
	}
	return false
}
