package repository

import (
	"context"
	"encoding/json"

	"github.com/freeeve/iron-rails/api/internal/bot"
	"github.com/freeeve/iron-rails/api/internal/model"
	"github.com/freeeve/iron-rails/api/pkg/railgame"
)

// GameRepository defines game and player data operations. The Apply*
// methods mirror bot.GameStore so the postgres implementation can be
// handed straight to the turn engine.
type GameRepository interface {
	bot.GameStore

	Create(ctx context.Context, name, creatorID string) (*model.Game, error)
	FindByID(ctx context.Context, id string) (*model.Game, error)
	ListActive(ctx context.Context) ([]model.Game, error)
	JoinGame(ctx context.Context, gameID, userID string) (*model.Player, error)
	JoinGameAsBot(ctx context.Context, gameID, userID, skill, archetype string) (*model.Player, error)
	FindPlayer(ctx context.Context, gameID, playerID string) (*model.Player, error)
	ListPlayers(ctx context.Context, gameID string) ([]model.Player, error)
	UpdateBotProfile(ctx context.Context, gameID, playerID, skill, archetype string) error
	SetWorld(ctx context.Context, gameID string, world json.RawMessage, availability map[string]int) error
	SetDemandDeck(ctx context.Context, gameID string, deck []railgame.DemandCard) error
	GetWorld(ctx context.Context, gameID string) (json.RawMessage, error)
	GetLoadAvailability(ctx context.Context, gameID string) (map[string]int, error)
	AdvanceTurn(ctx context.Context, gameID string) (int, error)
	SetFinished(ctx context.Context, gameID, winner string) error
	Delete(ctx context.Context, gameID string) error
}

// AuditRepository persists and lists bot turn audits.
type AuditRepository interface {
	bot.AuditRepository

	ListByGame(ctx context.Context, gameID string) ([]model.TurnAudit, error)
}

// WorldCache defines live world state operations (Redis): the shared
// map, global load availability, and the turn lock that keeps two
// callers from running the same bot turn concurrently.
type WorldCache interface {
	SetWorldState(ctx context.Context, gameID string, state json.RawMessage) error
	GetWorldState(ctx context.Context, gameID string) (json.RawMessage, error)
	SetLoadAvailability(ctx context.Context, gameID string, availability map[string]int) error
	GetLoadAvailability(ctx context.Context, gameID string) (map[string]int, error)
	AcquireTurnLock(ctx context.Context, gameID, playerID string) (bool, error)
	ReleaseTurnLock(ctx context.Context, gameID, playerID string) error
	DeleteGameData(ctx context.Context, gameID string) error
}
