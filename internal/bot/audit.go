package bot

import (
	"context"
	"fmt"
	"strings"
)

// StrategyAudit is the durable record of one bot turn: everything the
// bot considered, rejected, chose, and did. Created once per turn,
// persisted best-effort, never updated afterward.
type StrategyAudit struct {
	TurnNumber          int                `json:"turn_number"`
	Archetype           string             `json:"archetype"`
	SkillLevel          string             `json:"skill_level"`
	SnapshotFingerprint string             `json:"snapshot_fingerprint"`
	ChosenPlan          string             `json:"chosen_plan"`
	ArchetypeRationale  string             `json:"archetype_rationale"`
	FeasibleOptions     []ScoredOption     `json:"feasible_options"`
	RejectedOptions     []InfeasibleOption `json:"rejected_options"`
	SelectedPlan        []FeasibleOption   `json:"selected_plan"`
	ExecutionResult     ExecutionResult    `json:"execution_result"`
	BotStatus           BotStatus          `json:"bot_status"`
	TotalDurationMs     int64              `json:"total_duration_ms"`
}

// BotStatus is a compact summary of the bot at decision time.
type BotStatus struct {
	Cash                 int      `json:"cash"`
	TrainType            string   `json:"train_type"`
	Loads                []string `json:"loads"`
	MajorCitiesConnected int      `json:"major_cities_connected"`
}

// AuditRepository persists strategy audits. Saving is fire-and-forget
// from the engine's point of view: errors are logged, never surfaced.
type AuditRepository interface {
	SaveTurnAudit(ctx context.Context, gameID, playerID string, audit *StrategyAudit) error
	ListTurnAudits(ctx context.Context, gameID, playerID string) ([]StrategyAudit, error)
}

// auditInput gathers everything the pipeline produced for one turn.
type auditInput struct {
	turnNumber int
	config     Config
	snapshot   *WorldSnapshot
	feasible   []ScoredOption
	rejected   []InfeasibleOption
	selected   []FeasibleOption
	execution  ExecutionResult
	durationMs int64
}

// buildAudit assembles the audit record. Apart from the timing fields,
// identical inputs produce identical serialized output.
func buildAudit(in auditInput) *StrategyAudit {
	archetype := ArchetypeProfileFor(in.config.Archetype)

	audit := &StrategyAudit{
		TurnNumber:         in.turnNumber,
		Archetype:          archetype.Name,
		SkillLevel:         string(in.config.Skill),
		ChosenPlan:         describePlan(in.selected),
		ArchetypeRationale: archetype.Description,
		FeasibleOptions:    in.feasible,
		RejectedOptions:    in.rejected,
		SelectedPlan:       in.selected,
		ExecutionResult:    in.execution,
		TotalDurationMs:    in.durationMs,
	}

	if in.snapshot != nil {
		audit.SnapshotFingerprint = in.snapshot.Fingerprint()
		loads := make([]string, len(in.snapshot.Loads))
		for i, l := range in.snapshot.Loads {
			loads[i] = string(l)
		}
		audit.BotStatus = BotStatus{
			Cash:                 in.snapshot.Cash,
			TrainType:            string(in.snapshot.TrainType),
			Loads:                loads,
			MajorCitiesConnected: in.snapshot.ConnectedMajorCities,
		}
	}
	return audit
}

func describePlan(actions []FeasibleOption) string {
	if len(actions) == 0 {
		return "no action taken"
	}
	parts := make([]string, len(actions))
	for i, a := range actions {
		parts[i] = a.Description
	}
	return strings.Join(parts, "; ")
}

// String renders a one-line summary for logs.
func (a *StrategyAudit) String() string {
	return fmt.Sprintf("turn %d [%s/%s]: %s (success=%t, %d feasible, %d rejected)",
		a.TurnNumber, a.SkillLevel, a.Archetype, a.ChosenPlan,
		a.ExecutionResult.Success, len(a.FeasibleOptions), len(a.RejectedOptions))
}
