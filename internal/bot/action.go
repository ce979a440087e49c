package bot

import (
	"encoding/json"
	"fmt"

	"github.com/freeeve/iron-rails/api/pkg/railgame"
)

// ActionType identifies what kind of move a candidate action is.
type ActionType string

const (
	ActionDeliverLoad          ActionType = "deliver_load"
	ActionPickupAndDeliver     ActionType = "pickup_and_deliver"
	ActionBuildTrack           ActionType = "build_track"
	ActionBuildTowardMajorCity ActionType = "build_toward_major_city"
	ActionUpgradeTrain         ActionType = "upgrade_train"
	ActionPassTurn             ActionType = "pass_turn"
)

// ActionParams is the closed set of per-action argument payloads. Each
// action type has exactly one params type; the scorer and executor
// switch exhaustively over them.
type ActionParams interface {
	isActionParams()
}

// DeliverLoadParams describes delivering a carried load against a held
// demand card.
type DeliverLoadParams struct {
	Load        railgame.Load `json:"load"`
	City        string        `json:"city"`
	Payment     int           `json:"payment"`
	CardIndex   int           `json:"card_index"`
	DemandIndex int           `json:"demand_index"`
	PathLength  int           `json:"path_length"`
}

// PickupAndDeliverParams describes picking up a load at a source city
// and hauling it to a demand destination in a later turn.
type PickupAndDeliverParams struct {
	Load        railgame.Load `json:"load"`
	PickupCity  string        `json:"pickup_city"`
	DeliverCity string        `json:"deliver_city"`
	Payment     int           `json:"payment"`
	CardIndex   int           `json:"card_index"`
	DemandIndex int           `json:"demand_index"`
	PathLength  int           `json:"path_length"`
}

// BuildTrackParams describes extending the bot's network.
type BuildTrackParams struct {
	Segments  []railgame.TrackSegment `json:"segments"`
	TotalCost int                     `json:"total_cost"`
	Toward    string                  `json:"toward,omitempty"`
}

// BuildTowardMajorCityParams describes building specifically to connect
// another major city, the intentional path to victory-by-cities.
type BuildTowardMajorCityParams struct {
	City      string                  `json:"city"`
	Segments  []railgame.TrackSegment `json:"segments"`
	TotalCost int                     `json:"total_cost"`
}

// UpgradeTrainParams describes replacing the current train.
type UpgradeTrainParams struct {
	To           railgame.TrainType `json:"to"`
	Cost         int                `json:"cost"`
	SpeedGain    int                `json:"speed_gain"`
	CapacityGain int                `json:"capacity_gain"`
}

// PassTurnParams is the empty payload of the unconditional fallback.
type PassTurnParams struct{}

func (DeliverLoadParams) isActionParams()          {}
func (PickupAndDeliverParams) isActionParams()     {}
func (BuildTrackParams) isActionParams()           {}
func (BuildTowardMajorCityParams) isActionParams() {}
func (UpgradeTrainParams) isActionParams()         {}
func (PassTurnParams) isActionParams()             {}

// FeasibleOption is a candidate action the generator believes is
// currently legal, with everything needed to validate and execute it.
type FeasibleOption struct {
	Type        ActionType   `json:"type"`
	Description string       `json:"description"`
	Params      ActionParams `json:"params"`
}

// UnmarshalJSON restores the concrete params type named by the action
// type, so audits survive storage round-trips.
func (f *FeasibleOption) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type        ActionType      `json:"type"`
		Description string          `json:"description"`
		Params      json.RawMessage `json:"params"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	f.Type = raw.Type
	f.Description = raw.Description
	f.Params = nil
	if len(raw.Params) == 0 || string(raw.Params) == "null" {
		return nil
	}

	switch raw.Type {
	case ActionDeliverLoad:
		var p DeliverLoadParams
		if err := json.Unmarshal(raw.Params, &p); err != nil {
			return err
		}
		f.Params = p
	case ActionPickupAndDeliver:
		var p PickupAndDeliverParams
		if err := json.Unmarshal(raw.Params, &p); err != nil {
			return err
		}
		f.Params = p
	case ActionBuildTrack:
		var p BuildTrackParams
		if err := json.Unmarshal(raw.Params, &p); err != nil {
			return err
		}
		f.Params = p
	case ActionBuildTowardMajorCity:
		var p BuildTowardMajorCityParams
		if err := json.Unmarshal(raw.Params, &p); err != nil {
			return err
		}
		f.Params = p
	case ActionUpgradeTrain:
		var p UpgradeTrainParams
		if err := json.Unmarshal(raw.Params, &p); err != nil {
			return err
		}
		f.Params = p
	case ActionPassTurn:
		f.Params = PassTurnParams{}
	default:
		return fmt.Errorf("unknown action type %q", raw.Type)
	}
	return nil
}

// InfeasibleOption records an action the generator considered and
// rejected, kept only for audit transparency.
type InfeasibleOption struct {
	Type   ActionType `json:"type"`
	Reason string     `json:"reason"`
}

// ScoredOption is a feasible option with its score and a short
// explanation of where the score came from. Created once per option per
// turn and never mutated; only list order changes across stages.
type ScoredOption struct {
	FeasibleOption
	Score     float64 `json:"score"`
	Rationale string  `json:"rationale"`
}

// UnmarshalJSON exists because the embedded FeasibleOption's custom
// decoder would otherwise be promoted and drop the score fields.
func (s *ScoredOption) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &s.FeasibleOption); err != nil {
		return err
	}
	var extra struct {
		Score     float64 `json:"score"`
		Rationale string  `json:"rationale"`
	}
	if err := json.Unmarshal(data, &extra); err != nil {
		return err
	}
	s.Score = extra.Score
	s.Rationale = extra.Rationale
	return nil
}

// TurnPlan is the action chosen for this turn. It always holds exactly
// one action in the current single-action-per-turn design.
type TurnPlan struct {
	Actions []FeasibleOption `json:"actions"`
}

// ExecutionResult reports what the executor did.
type ExecutionResult struct {
	Success         bool   `json:"success"`
	ActionsExecuted int    `json:"actions_executed"`
	Error           string `json:"error,omitempty"`
	DurationMs      int64  `json:"duration_ms"`
}

// PassTurnOption returns the always-legal do-nothing action.
func PassTurnOption() FeasibleOption {
	return FeasibleOption{
		Type:        ActionPassTurn,
		Description: "pass the turn",
		Params:      PassTurnParams{},
	}
}
