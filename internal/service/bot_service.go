package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/iron-rails/api/internal/bot"
	"github.com/freeeve/iron-rails/api/internal/repository"
	"github.com/freeeve/iron-rails/api/pkg/railgame"
)

// ErrTurnInProgress is returned when a bot turn is requested while
// another turn for the same game is still running.
var ErrTurnInProgress = errors.New("turn already in progress")

// BotService orchestrates bot play around the turn engine: game-level
// locking, turn advancement, cache upkeep, and victory detection.
type BotService struct {
	games       repository.GameRepository
	audits      repository.AuditRepository
	cache       repository.WorldCache
	broadcaster Broadcaster
	engine      *bot.Engine
}

// NewBotService creates a BotService. A nil rng gives nondeterministic
// play; tests pass a seeded one.
func NewBotService(
	games repository.GameRepository,
	audits repository.AuditRepository,
	cache repository.WorldCache,
	broadcaster Broadcaster,
	rng bot.Rng,
) *BotService {
	if broadcaster == nil {
		broadcaster = NoopBroadcaster{}
	}
	snapshots := NewSnapshotService(games, cache)
	return &BotService{
		games:       games,
		audits:      audits,
		cache:       cache,
		broadcaster: broadcaster,
		engine:      bot.NewEngine(snapshots, games, audits, broadcaster, rng),
	}
}

// SetupGame seeds a game with the builtin map, load stock, and a
// shuffled demand deck, and primes the cache. Must run before any seat
// joins, since joining deals from the deck.
func (s *BotService) SetupGame(ctx context.Context, gameID string, seed int64) error {
	world := railgame.DefaultMap()
	doc, err := json.Marshal(world)
	if err != nil {
		return fmt.Errorf("encode world: %w", err)
	}

	availability := make(map[string]int, len(world.LoadAvailability))
	for load, count := range world.LoadAvailability {
		availability[string(load)] = count
	}
	if err := s.games.SetWorld(ctx, gameID, doc, availability); err != nil {
		return err
	}

	deck := railgame.StandardDeck()
	rnd := rand.New(rand.NewSource(seed))
	rnd.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
	if err := s.games.SetDemandDeck(ctx, gameID, deck); err != nil {
		return err
	}

	if err := s.cache.SetWorldState(ctx, gameID, doc); err != nil {
		log.Warn().Err(err).Str("gameId", gameID).Msg("Failed to prime world cache")
	}
	if err := s.cache.SetLoadAvailability(ctx, gameID, availability); err != nil {
		log.Warn().Err(err).Str("gameId", gameID).Msg("Failed to prime availability cache")
	}
	return nil
}

// PlaceBotTrain chooses and persists a bot's starting position.
func (s *BotService) PlaceBotTrain(ctx context.Context, gameID, playerID string) error {
	player, err := s.games.FindPlayer(ctx, gameID, playerID)
	if err != nil {
		return fmt.Errorf("load player: %w", err)
	}
	if player == nil || !player.IsBot {
		return fmt.Errorf("player %s is not a bot in game %s", playerID, gameID)
	}
	return s.engine.PlaceInitialTrain(ctx, gameID, playerID)
}

// TakeBotTurn runs one full bot turn under the game's turn lock. The
// engine guarantees the game can proceed afterward; this layer adds the
// bookkeeping around it.
func (s *BotService) TakeBotTurn(ctx context.Context, gameID, playerID string) (*bot.TurnResult, error) {
	player, err := s.games.FindPlayer(ctx, gameID, playerID)
	if err != nil {
		return nil, fmt.Errorf("load player: %w", err)
	}
	if player == nil || !player.IsBot {
		return nil, fmt.Errorf("player %s is not a bot in game %s", playerID, gameID)
	}

	acquired, err := s.cache.AcquireTurnLock(ctx, gameID, playerID)
	if err != nil {
		return nil, fmt.Errorf("acquire turn lock: %w", err)
	}
	if !acquired {
		return nil, ErrTurnInProgress
	}
	defer func() {
		if err := s.cache.ReleaseTurnLock(ctx, gameID, playerID); err != nil {
			log.Warn().Err(err).Str("gameId", gameID).Msg("Failed to release turn lock")
		}
	}()

	turn, err := s.games.AdvanceTurn(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("advance turn: %w", err)
	}

	cfg := bot.Config{
		Skill:     bot.SkillLevel(player.BotSkill),
		Archetype: bot.Archetype(player.BotArchetype),
	}
	result := s.engine.TakeTurn(ctx, gameID, playerID, player.UserID, cfg, turn)

	s.refreshCaches(ctx, gameID, turn)
	if result.Success {
		s.checkVictory(ctx, gameID, playerID)
	}
	return result, nil
}

// refreshCaches re-syncs the live counters and the cached turn number
// from Postgres after a turn. Best-effort: the cache self-heals on the
// next snapshot miss.
func (s *BotService) refreshCaches(ctx context.Context, gameID string, turn int) {
	availability, err := s.games.GetLoadAvailability(ctx, gameID)
	if err != nil {
		log.Warn().Err(err).Str("gameId", gameID).Msg("Failed to reload availability")
	} else if err := s.cache.SetLoadAvailability(ctx, gameID, availability); err != nil {
		log.Warn().Err(err).Str("gameId", gameID).Msg("Failed to refresh availability cache")
	}

	doc, err := s.games.GetWorld(ctx, gameID)
	if err != nil {
		log.Warn().Err(err).Str("gameId", gameID).Msg("Failed to reload world")
		return
	}
	var world railgame.WorldState
	if err := json.Unmarshal(doc, &world); err != nil {
		log.Warn().Err(err).Str("gameId", gameID).Msg("Failed to decode world")
		return
	}
	world.TurnNumber = turn
	updated, err := json.Marshal(world)
	if err != nil {
		return
	}
	if err := s.cache.SetWorldState(ctx, gameID, updated); err != nil {
		log.Warn().Err(err).Str("gameId", gameID).Msg("Failed to refresh world cache")
	}
}

// checkVictory finishes the game when the player has crossed either
// victory threshold.
func (s *BotService) checkVictory(ctx context.Context, gameID, playerID string) {
	player, err := s.games.FindPlayer(ctx, gameID, playerID)
	if err != nil || player == nil {
		log.Warn().Err(err).Str("gameId", gameID).Msg("Victory check could not reload player")
		return
	}
	if player.Cash < railgame.CashVictoryThreshold &&
		player.ConnectedMajorCities < railgame.MajorCityVictoryThreshold {
		return
	}

	if err := s.games.SetFinished(ctx, gameID, player.UserID); err != nil {
		log.Error().Err(err).Str("gameId", gameID).Msg("Failed to finish game")
		return
	}
	s.broadcaster.BroadcastGameEvent(gameID, "game_over", map[string]any{
		"winner":    player.UserID,
		"player_id": player.ID,
		"cash":      player.Cash,
		"cities":    player.ConnectedMajorCities,
	})
	log.Info().Str("gameId", gameID).Str("winner", player.UserID).Msg("Game finished")
}

// TurnAudits returns a seat's decision history.
func (s *BotService) TurnAudits(ctx context.Context, gameID, playerID string) ([]bot.StrategyAudit, error) {
	return s.audits.ListTurnAudits(ctx, gameID, playerID)
}

// RecoverActiveGames rehydrates Redis state for all active games from
// Postgres. Called on server startup.
func (s *BotService) RecoverActiveGames(ctx context.Context) error {
	games, err := s.games.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active games: %w", err)
	}
	if len(games) == 0 {
		log.Info().Msg("No active games to recover")
		return nil
	}
	log.Info().Int("count", len(games)).Msg("Recovering active games after restart")

	for _, game := range games {
		doc, err := s.games.GetWorld(ctx, game.ID)
		if err != nil {
			log.Error().Err(err).Str("gameId", game.ID).Msg("Failed to load world during recovery")
			continue
		}
		if err := s.cache.SetWorldState(ctx, game.ID, doc); err != nil {
			log.Error().Err(err).Str("gameId", game.ID).Msg("Failed to restore world cache")
			continue
		}
		availability, err := s.games.GetLoadAvailability(ctx, game.ID)
		if err != nil {
			log.Error().Err(err).Str("gameId", game.ID).Msg("Failed to load availability during recovery")
			continue
		}
		if err := s.cache.SetLoadAvailability(ctx, game.ID, availability); err != nil {
			log.Error().Err(err).Str("gameId", game.ID).Msg("Failed to restore availability cache")
			continue
		}
		log.Info().Str("gameId", game.ID).Int("turn", game.TurnNumber).Msg("Recovered game state")
	}
	return nil
}
