package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/iron-rails/api/internal/bot"
	"github.com/freeeve/iron-rails/api/internal/model"
	"github.com/freeeve/iron-rails/api/internal/repository"
	"github.com/freeeve/iron-rails/api/pkg/railgame"
)

// SnapshotService assembles the bot's per-turn world snapshot: the
// shared world document from the cache (falling back to Postgres when
// cold), live load availability, and the player's own state from the
// game repository.
type SnapshotService struct {
	games repository.GameRepository
	cache repository.WorldCache
}

// NewSnapshotService creates a SnapshotService.
func NewSnapshotService(games repository.GameRepository, cache repository.WorldCache) *SnapshotService {
	return &SnapshotService{games: games, cache: cache}
}

// Snapshot implements bot.SnapshotProvider.
func (s *SnapshotService) Snapshot(ctx context.Context, gameID, playerID string) (*bot.WorldSnapshot, error) {
	player, err := s.games.FindPlayer(ctx, gameID, playerID)
	if err != nil {
		return nil, fmt.Errorf("load player: %w", err)
	}
	if player == nil {
		return nil, fmt.Errorf("player %s not in game %s", playerID, gameID)
	}

	world, err := s.worldState(ctx, gameID)
	if err != nil {
		return nil, err
	}
	availability, err := s.loadAvailability(ctx, gameID, world)
	if err != nil {
		return nil, err
	}

	return assembleSnapshot(gameID, player, world, availability)
}

// worldState reads the cached world document, rehydrating the cache
// from Postgres on a miss.
func (s *SnapshotService) worldState(ctx context.Context, gameID string) (*railgame.WorldState, error) {
	doc, err := s.cache.GetWorldState(ctx, gameID)
	if err != nil {
		log.Warn().Err(err).Str("gameId", gameID).Msg("World cache read failed, falling back to postgres")
	}
	if doc == nil {
		doc, err = s.games.GetWorld(ctx, gameID)
		if err != nil {
			return nil, fmt.Errorf("load world: %w", err)
		}
		if cacheErr := s.cache.SetWorldState(ctx, gameID, doc); cacheErr != nil {
			log.Warn().Err(cacheErr).Str("gameId", gameID).Msg("Failed to rehydrate world cache")
		}
	}
	var world railgame.WorldState
	if err := json.Unmarshal(doc, &world); err != nil {
		return nil, fmt.Errorf("decode world: %w", err)
	}
	return &world, nil
}

// loadAvailability prefers the live Redis counters and falls back to
// the Postgres column, seeding the cache for the next caller.
func (s *SnapshotService) loadAvailability(ctx context.Context, gameID string, world *railgame.WorldState) (map[railgame.Load]int, error) {
	cached, err := s.cache.GetLoadAvailability(ctx, gameID)
	if err != nil {
		log.Warn().Err(err).Str("gameId", gameID).Msg("Availability cache read failed, falling back to postgres")
		cached = nil
	}
	if len(cached) == 0 {
		stored, err := s.games.GetLoadAvailability(ctx, gameID)
		if err != nil {
			return nil, fmt.Errorf("load availability: %w", err)
		}
		cached = stored
		if cacheErr := s.cache.SetLoadAvailability(ctx, gameID, stored); cacheErr != nil {
			log.Warn().Err(cacheErr).Str("gameId", gameID).Msg("Failed to seed availability cache")
		}
	}

	availability := make(map[railgame.Load]int, len(cached))
	for load, count := range cached {
		availability[railgame.Load(load)] = count
	}
	// Fill in loads the counters have never seen.
	for load, count := range world.LoadAvailability {
		if _, ok := availability[load]; !ok {
			availability[load] = count
		}
	}
	return availability, nil
}

func assembleSnapshot(gameID string, player *model.Player, world *railgame.WorldState, availability map[railgame.Load]int) (*bot.WorldSnapshot, error) {
	snap := &bot.WorldSnapshot{
		GameID:               gameID,
		PlayerID:             player.ID,
		UserID:               player.UserID,
		Cash:                 player.Cash,
		TrainType:            railgame.TrainType(player.TrainType),
		ConnectedMajorCities: player.ConnectedMajorCities,
		MapPoints:            world.MapPoints,
		LoadAvailability:     availability,
		TurnNumber:           world.TurnNumber,
	}
	if player.TrainRow != nil && player.TrainCol != nil {
		snap.TrainPos = &railgame.GridPos{Row: *player.TrainRow, Col: *player.TrainCol}
	}
	if err := json.Unmarshal(player.Loads, &snap.Loads); err != nil {
		return nil, fmt.Errorf("decode loads: %w", err)
	}
	if err := json.Unmarshal(player.Track, &snap.Track); err != nil {
		return nil, fmt.Errorf("decode track: %w", err)
	}
	if err := json.Unmarshal(player.DemandCards, &snap.DemandCards); err != nil {
		return nil, fmt.Errorf("decode demand cards: %w", err)
	}
	return snap, nil
}
