package model

import (
	"encoding/json"
	"time"
)

// Game represents one rail logistics match.
type Game struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	CreatorID  string     `json:"creator_id"`
	Status     string     `json:"status"` // waiting, active, finished
	Winner     string     `json:"winner,omitempty"`
	TurnNumber int        `json:"turn_number"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Players    []Player   `json:"players,omitempty"`
}

// Player represents a seat in a game, human or bot. Loads, demand cards,
// and track are stored as JSON documents; the bot pipeline decodes them
// into its own snapshot types.
type Player struct {
	ID                   string          `json:"id"`
	GameID               string          `json:"game_id"`
	UserID               string          `json:"user_id"`
	IsBot                bool            `json:"is_bot"`
	BotSkill             string          `json:"bot_skill,omitempty"`
	BotArchetype         string          `json:"bot_archetype,omitempty"`
	Cash                 int             `json:"cash"`
	TrainType            string          `json:"train_type"`
	TrainRow             *int            `json:"train_row,omitempty"`
	TrainCol             *int            `json:"train_col,omitempty"`
	PixelX               int             `json:"pixel_x"`
	PixelY               int             `json:"pixel_y"`
	Loads                json.RawMessage `json:"loads"`
	DemandCards          json.RawMessage `json:"demand_cards"`
	Track                json.RawMessage `json:"track"`
	ConnectedMajorCities int             `json:"connected_major_cities"`
	JoinedAt             time.Time       `json:"joined_at"`
}

// TurnAudit is a persisted bot decision record. The audit column holds
// the full serialized strategy audit; the other columns exist for
// indexed lookup.
type TurnAudit struct {
	ID         string          `json:"id"`
	GameID     string          `json:"game_id"`
	PlayerID   string          `json:"player_id"`
	TurnNumber int             `json:"turn_number"`
	Audit      json.RawMessage `json:"audit"`
	CreatedAt  time.Time       `json:"created_at"`
}
