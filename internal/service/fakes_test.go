package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/freeeve/iron-rails/api/internal/bot"
	"github.com/freeeve/iron-rails/api/internal/model"
	"github.com/freeeve/iron-rails/api/pkg/railgame"
)

// memGameRepo is an in-memory GameRepository good enough for service
// tests: one game, JSON-backed player state, no SQL.
type memGameRepo struct {
	mu           sync.Mutex
	game         *model.Game
	players      map[string]*model.Player
	world        json.RawMessage
	availability map[string]int
	deck         []railgame.DemandCard
	nextID       int
	failFind     error
}

func newMemGameRepo() *memGameRepo {
	return &memGameRepo{players: map[string]*model.Player{}}
}

func (m *memGameRepo) Create(_ context.Context, name, creatorID string) (*model.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.game = &model.Game{ID: "game-1", Name: name, CreatorID: creatorID, Status: "active"}
	return m.game, nil
}

func (m *memGameRepo) FindByID(context.Context, string) (*model.Game, error) {
	return m.game, nil
}

func (m *memGameRepo) ListActive(context.Context) ([]model.Game, error) {
	if m.game == nil {
		return nil, nil
	}
	return []model.Game{*m.game}, nil
}

func (m *memGameRepo) JoinGame(ctx context.Context, gameID, userID string) (*model.Player, error) {
	return m.join(gameID, userID, false, "", "")
}

func (m *memGameRepo) JoinGameAsBot(ctx context.Context, gameID, userID, skill, archetype string) (*model.Player, error) {
	return m.join(gameID, userID, true, skill, archetype)
}

func (m *memGameRepo) join(gameID, userID string, isBot bool, skill, archetype string) (*model.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	hand := m.deck
	if len(hand) > railgame.DemandCardsPerPlayer {
		hand = hand[:railgame.DemandCardsPerPlayer]
	}
	m.deck = m.deck[len(hand):]
	cards, _ := json.Marshal(hand)
	p := &model.Player{
		ID: fmt.Sprintf("player-%d", m.nextID), GameID: gameID, UserID: userID,
		IsBot: isBot, BotSkill: skill, BotArchetype: archetype,
		Cash: railgame.StartingCash, TrainType: string(railgame.Freight),
		Loads: json.RawMessage(`[]`), DemandCards: cards, Track: json.RawMessage(`[]`),
	}
	m.players[p.ID] = p
	return p, nil
}

func (m *memGameRepo) FindPlayer(_ context.Context, _, playerID string) (*model.Player, error) {
	if m.failFind != nil {
		return nil, m.failFind
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[playerID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memGameRepo) ListPlayers(context.Context, string) ([]model.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Player
	for _, p := range m.players {
		out = append(out, *p)
	}
	return out, nil
}

func (m *memGameRepo) UpdateBotProfile(_ context.Context, _, playerID, skill, archetype string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.players[playerID]; ok {
		p.BotSkill, p.BotArchetype = skill, archetype
	}
	return nil
}

func (m *memGameRepo) SetWorld(_ context.Context, _ string, world json.RawMessage, availability map[string]int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.world = world
	m.availability = availability
	return nil
}

func (m *memGameRepo) SetDemandDeck(_ context.Context, _ string, deck []railgame.DemandCard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deck = deck
	return nil
}

func (m *memGameRepo) GetWorld(context.Context, string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.world == nil {
		return nil, errors.New("no world")
	}
	return m.world, nil
}

func (m *memGameRepo) GetLoadAvailability(context.Context, string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(m.availability))
	for k, v := range m.availability {
		out[k] = v
	}
	return out, nil
}

func (m *memGameRepo) AdvanceTurn(context.Context, string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.game.TurnNumber++
	return m.game.TurnNumber, nil
}

func (m *memGameRepo) SetFinished(_ context.Context, _, winner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.game.Status = "finished"
	m.game.Winner = winner
	return nil
}

func (m *memGameRepo) Delete(context.Context, string) error { return nil }

func (m *memGameRepo) withPlayer(playerID string, f func(*model.Player)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.players[playerID]; ok {
		f(p)
	}
}

// bot.GameStore methods. Only what the tests drive is fully modeled.

func (m *memGameRepo) ApplyDelivery(_ context.Context, _, playerID string, load railgame.Load, payment, cardIndex int) error {
	m.withPlayer(playerID, func(p *model.Player) {
		var loads []railgame.Load
		json.Unmarshal(p.Loads, &loads)
		for i, l := range loads {
			if l == load {
				loads = append(loads[:i], loads[i+1:]...)
				break
			}
		}
		p.Loads, _ = json.Marshal(loads)
		p.Cash += payment
	})
	return nil
}

func (m *memGameRepo) ApplyPickup(_ context.Context, _, playerID string, load railgame.Load, _ string) error {
	m.withPlayer(playerID, func(p *model.Player) {
		var loads []railgame.Load
		json.Unmarshal(p.Loads, &loads)
		loads = append(loads, load)
		p.Loads, _ = json.Marshal(loads)
	})
	m.mu.Lock()
	m.availability[string(load)]--
	m.mu.Unlock()
	return nil
}

func (m *memGameRepo) ApplyTrackBuild(_ context.Context, _, playerID string, segments []railgame.TrackSegment, cost int, majorCity string) error {
	m.withPlayer(playerID, func(p *model.Player) {
		var track []railgame.TrackSegment
		json.Unmarshal(p.Track, &track)
		track = append(track, segments...)
		p.Track, _ = json.Marshal(track)
		p.Cash -= cost
		if majorCity != "" {
			p.ConnectedMajorCities++
		}
	})
	return nil
}

func (m *memGameRepo) ApplyTrainUpgrade(_ context.Context, _, playerID string, to railgame.TrainType, cost int) error {
	m.withPlayer(playerID, func(p *model.Player) {
		p.TrainType = string(to)
		p.Cash -= cost
	})
	return nil
}

func (m *memGameRepo) ApplyPass(context.Context, string, string, int) error { return nil }

func (m *memGameRepo) UpdateTrainPosition(_ context.Context, _, playerID string, row, col, px, py int) error {
	m.withPlayer(playerID, func(p *model.Player) {
		r, c := row, col
		p.TrainRow, p.TrainCol = &r, &c
		p.PixelX, p.PixelY = px, py
	})
	return nil
}

// memAuditRepo keeps audits in memory.
type memAuditRepo struct {
	mu    sync.Mutex
	saved []*bot.StrategyAudit
}

func (m *memAuditRepo) SaveTurnAudit(_ context.Context, _, _ string, audit *bot.StrategyAudit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, audit)
	return nil
}

func (m *memAuditRepo) ListTurnAudits(context.Context, string, string) ([]bot.StrategyAudit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]bot.StrategyAudit, len(m.saved))
	for i, a := range m.saved {
		out[i] = *a
	}
	return out, nil
}

func (m *memAuditRepo) ListByGame(context.Context, string) ([]model.TurnAudit, error) {
	return nil, nil
}

// memCache is an in-memory WorldCache with a real lock semantic.
type memCache struct {
	mu           sync.Mutex
	world        map[string]json.RawMessage
	availability map[string]map[string]int
	locks        map[string]string
	failWorld    error
}

func newMemCache() *memCache {
	return &memCache{
		world:        map[string]json.RawMessage{},
		availability: map[string]map[string]int{},
		locks:        map[string]string{},
	}
}

func (m *memCache) SetWorldState(_ context.Context, gameID string, state json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.world[gameID] = state
	return nil
}

func (m *memCache) GetWorldState(_ context.Context, gameID string) (json.RawMessage, error) {
	if m.failWorld != nil {
		return nil, m.failWorld
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.world[gameID], nil
}

func (m *memCache) SetLoadAvailability(_ context.Context, gameID string, availability map[string]int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make(map[string]int, len(availability))
	for k, v := range availability {
		cp[k] = v
	}
	m.availability[gameID] = cp
	return nil
}

func (m *memCache) GetLoadAvailability(_ context.Context, gameID string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.availability[gameID], nil
}

func (m *memCache) AcquireTurnLock(_ context.Context, gameID, playerID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.locks[gameID]; held {
		return false, nil
	}
	m.locks[gameID] = playerID
	return true, nil
}

func (m *memCache) ReleaseTurnLock(_ context.Context, gameID, playerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[gameID] == playerID {
		delete(m.locks, gameID)
	}
	return nil
}

func (m *memCache) DeleteGameData(_ context.Context, gameID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.world, gameID)
	delete(m.availability, gameID)
	delete(m.locks, gameID)
	return nil
}

// recordingBroadcaster captures event types in order.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingBroadcaster) BroadcastGameEvent(_ string, eventType string, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType)
}
