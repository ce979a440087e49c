package bot

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/iron-rails/api/pkg/railgame"
)

// Event types emitted to the transport layer around a bot turn.
const (
	EventBotTurnStart    = "bot_turn_start"
	EventBotTurnComplete = "bot_turn_complete"
)

// Broadcaster sends real-time events to connected clients. Implemented
// by the WebSocket hub; a no-op implementation exists for tests.
type Broadcaster interface {
	BroadcastGameEvent(gameID string, eventType string, data any)
}

// NoopBroadcaster drops all events.
type NoopBroadcaster struct{}

func (NoopBroadcaster) BroadcastGameEvent(string, string, any) {}

// maxRetries bounds how many ranked candidates the engine will try
// before falling back to passing the turn.
const maxRetries = 3

// OptionGenerator enumerates candidate actions from a snapshot.
// Satisfied by Generator; an interface so tests can script candidate
// sets the enumeration rules would never produce.
type OptionGenerator interface {
	Generate(snap *WorldSnapshot) ([]FeasibleOption, []InfeasibleOption)
}

// PlanValidator re-checks a plan immediately before execution.
// Satisfied by Validator; an interface so tests can reject candidates
// that were feasible at generation time.
type PlanValidator interface {
	Validate(plan *TurnPlan, snap *WorldSnapshot) (ValidationResult, error)
}

// TurnResult is what a completed bot turn reports back to the caller.
type TurnResult struct {
	Success        bool           `json:"success"`
	Audit          *StrategyAudit `json:"audit"`
	RetriesUsed    int            `json:"retries_used"`
	FellBackToPass bool           `json:"fell_back_to_pass"`
}

// Engine runs the turn-decision pipeline: snapshot, generate, score,
// reorder, validate/execute with bounded retry, guaranteed pass-turn
// fallback, audit. It holds no per-turn state; the static profile
// tables are the only thing shared between turns.
type Engine struct {
	snapshots   SnapshotProvider
	executor    *Executor
	store       GameStore
	audits      AuditRepository
	broadcaster Broadcaster
	generator   OptionGenerator
	scorer      Scorer
	validator   PlanValidator
	rng         Rng
}

// NewEngine wires an Engine with the standard generator and validator.
// Pass a seeded Rng for reproducible play.
func NewEngine(snapshots SnapshotProvider, store GameStore, audits AuditRepository, broadcaster Broadcaster, rng Rng) *Engine {
	if rng == nil {
		rng = NewRng()
	}
	return &Engine{
		snapshots:   snapshots,
		executor:    NewExecutor(store),
		store:       store,
		audits:      audits,
		broadcaster: broadcaster,
		generator:   Generator{},
		validator:   Validator{},
		rng:         rng,
	}
}

// TakeTurn decides and executes one turn for a bot. It always returns
// exactly one TurnResult and always attempts exactly one terminal
// action: a genuine candidate or the pass-turn fallback. The game can
// proceed after every call.
func (e *Engine) TakeTurn(ctx context.Context, gameID, botPlayerID, botUserID string, cfg Config, turnNumber int) *TurnResult {
	start := time.Now()

	e.broadcaster.BroadcastGameEvent(gameID, EventBotTurnStart, map[string]any{
		"bot_player_id": botPlayerID,
		"turn_number":   turnNumber,
	})

	snap, err := e.snapshots.Snapshot(ctx, gameID, botPlayerID)
	if err != nil {
		// Nothing trustworthy to reason about; audit the failure and stop.
		log.Error().Err(err).Str("gameId", gameID).Str("playerId", botPlayerID).Msg("Snapshot capture failed")
		audit := buildAudit(auditInput{
			turnNumber: turnNumber,
			config:     cfg,
			execution:  ExecutionResult{Success: false, ActionsExecuted: 0, Error: err.Error()},
			durationMs: time.Since(start).Milliseconds(),
		})
		e.finishTurn(ctx, gameID, botPlayerID, audit)
		return &TurnResult{Success: false, Audit: audit, RetriesUsed: 0, FellBackToPass: true}
	}
	snap.UserID = botUserID
	snap.TurnNumber = turnNumber

	feasible, infeasible := e.generator.Generate(snap)
	scored := e.scorer.Score(feasible, snap, cfg)

	skill := SkillProfileFor(cfg.Skill)
	candidates := SelectCandidateOrder(scored, skill.RandomChoicePercent, skill.SuboptimalityPercent, e.rng)

	retriesUsed := 0
	attempts := len(candidates)
	if attempts > maxRetries {
		attempts = maxRetries
	}

	for attempt := 0; attempt < attempts; attempt++ {
		candidate := candidates[attempt]
		plan := &TurnPlan{Actions: []FeasibleOption{candidate.FeasibleOption}}

		result, err := e.validator.Validate(plan, snap)
		if err != nil {
			log.Warn().Err(err).Str("gameId", gameID).Msg("Candidate plan malformed, skipping")
			retriesUsed++
			continue
		}
		if !result.Valid {
			log.Debug().Strs("errors", result.Errors).Str("action", string(candidate.Type)).Msg("Candidate failed validation")
			retriesUsed++
			continue
		}

		execResult := e.executor.Execute(ctx, plan, snap)
		if !execResult.Success {
			log.Warn().Str("error", execResult.Error).Str("action", string(candidate.Type)).Msg("Candidate execution failed")
			retriesUsed++
			continue
		}

		audit := buildAudit(auditInput{
			turnNumber: turnNumber,
			config:     cfg,
			snapshot:   snap,
			feasible:   scored,
			rejected:   infeasible,
			selected:   plan.Actions,
			execution:  execResult,
			durationMs: time.Since(start).Milliseconds(),
		})
		e.finishTurn(ctx, gameID, botPlayerID, audit)
		log.Info().Str("gameId", gameID).Str("playerId", botPlayerID).Msg(audit.String())
		return &TurnResult{Success: true, Audit: audit, RetriesUsed: retriesUsed, FellBackToPass: false}
	}

	// Every candidate exhausted: pass unconditionally. Passing is legal
	// by definition, so its validation is skipped.
	passPlan := &TurnPlan{Actions: []FeasibleOption{PassTurnOption()}}
	execResult := e.executor.Execute(ctx, passPlan, snap)

	audit := buildAudit(auditInput{
		turnNumber: turnNumber,
		config:     cfg,
		snapshot:   snap,
		feasible:   scored,
		rejected:   infeasible,
		selected:   passPlan.Actions,
		execution:  execResult,
		durationMs: time.Since(start).Milliseconds(),
	})
	e.finishTurn(ctx, gameID, botPlayerID, audit)
	log.Info().Str("gameId", gameID).Str("playerId", botPlayerID).Int("retries", retriesUsed).Msg("Bot fell back to passing the turn")
	return &TurnResult{Success: execResult.Success, Audit: audit, RetriesUsed: retriesUsed, FellBackToPass: true}
}

// finishTurn persists the audit and emits the turn-complete event. Both
// run on every exit path, exactly once per turn. Audit persistence
// failures are logged and swallowed: the turn's game-state outcome is
// already final and must not be undone by a logging problem.
func (e *Engine) finishTurn(ctx context.Context, gameID, playerID string, audit *StrategyAudit) {
	if err := e.audits.SaveTurnAudit(ctx, gameID, playerID, audit); err != nil {
		log.Error().Err(err).Str("gameId", gameID).Str("playerId", playerID).Msg("Failed to persist turn audit")
	}
	e.broadcaster.BroadcastGameEvent(gameID, EventBotTurnComplete, map[string]any{
		"bot_player_id": playerID,
		"audit":         audit,
	})
}

// PlaceInitialTrain chooses a starting major city for a bot with no
// train position: the major city closest, in aggregate, to the cities
// named on the bot's demand cards. Demand cities with unknown positions
// contribute nothing; the first maximum in name order wins.
func (e *Engine) PlaceInitialTrain(ctx context.Context, gameID, botPlayerID string) error {
	snap, err := e.snapshots.Snapshot(ctx, gameID, botPlayerID)
	if err != nil {
		return fmt.Errorf("snapshot for placement: %w", err)
	}

	demandCities := make(map[string]bool)
	for _, card := range snap.DemandCards {
		for _, d := range card.Demands {
			demandCities[d.City] = true
		}
	}

	names := make([]string, 0, len(snap.MapPoints))
	for name := range snap.MapPoints {
		names = append(names, name)
	}
	sort.Strings(names)

	var best *railgame.MapPoint
	bestScore := -1.0
	for _, name := range names {
		point := snap.MapPoints[name]
		if !point.IsMajorCity {
			continue
		}
		score := 0.0
		for city := range demandCities {
			target, ok := snap.MapPoints[city]
			if !ok {
				continue
			}
			score += 1 / (1 + float64(railgame.HexDistance(point.Pos, target.Pos)))
		}
		if score > bestScore {
			p := point
			best = &p
			bestScore = score
		}
	}
	if best == nil {
		return fmt.Errorf("no major city found on map for game %s", gameID)
	}

	if err := e.store.UpdateTrainPosition(ctx, gameID, botPlayerID, best.Pos.Row, best.Pos.Col, best.PixelX, best.PixelY); err != nil {
		return fmt.Errorf("persist train position: %w", err)
	}
	log.Info().Str("gameId", gameID).Str("playerId", botPlayerID).Str("city", best.Name).Msg("Initial train placed")
	return nil
}
