package service

import (
	"context"
	"errors"
	"testing"

	"github.com/freeeve/iron-rails/api/internal/bot"
	"github.com/freeeve/iron-rails/api/internal/model"
	"github.com/freeeve/iron-rails/api/pkg/railgame"
)

func newTestSetup(t *testing.T) (*BotService, *memGameRepo, *memAuditRepo, *memCache, *recordingBroadcaster, string) {
	t.Helper()
	ctx := context.Background()

	games := newMemGameRepo()
	audits := &memAuditRepo{}
	cache := newMemCache()
	bc := &recordingBroadcaster{}
	svc := NewBotService(games, audits, cache, bc, bot.NewSeededRng(1))

	game, err := games.Create(ctx, "test match", "user-human")
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	if err := svc.SetupGame(ctx, game.ID, 1); err != nil {
		t.Fatalf("setup game: %v", err)
	}
	player, err := games.JoinGameAsBot(ctx, game.ID, "user-bot", "expert", "balanced")
	if err != nil {
		t.Fatalf("join as bot: %v", err)
	}
	return svc, games, audits, cache, bc, player.ID
}

func TestSetupGame_SeedsWorldDeckAndCache(t *testing.T) {
	_, games, _, cache, _, _ := newTestSetup(t)

	if games.world == nil {
		t.Error("world document not persisted")
	}
	if len(games.availability) == 0 {
		t.Error("load availability not persisted")
	}
	if len(games.deck) == 0 {
		t.Error("demand deck not persisted (beyond the dealt hand)")
	}
	if cache.world["game-1"] == nil {
		t.Error("world cache not primed")
	}
	if len(cache.availability["game-1"]) == 0 {
		t.Error("availability cache not primed")
	}
}

func TestPlaceBotTrain_PersistsPosition(t *testing.T) {
	svc, games, _, _, _, playerID := newTestSetup(t)
	ctx := context.Background()

	if err := svc.PlaceBotTrain(ctx, "game-1", playerID); err != nil {
		t.Fatalf("place train: %v", err)
	}
	p, _ := games.FindPlayer(ctx, "game-1", playerID)
	if p.TrainRow == nil || p.TrainCol == nil {
		t.Fatal("train position not persisted")
	}
	// Placement always picks a major city.
	world := railgame.DefaultMap()
	placedAtMajor := false
	for _, point := range world.MapPoints {
		if point.IsMajorCity && point.Pos.Row == *p.TrainRow && point.Pos.Col == *p.TrainCol {
			placedAtMajor = true
		}
	}
	if !placedAtMajor {
		t.Errorf("train placed at %d,%d which is not a major city", *p.TrainRow, *p.TrainCol)
	}
}

func TestPlaceBotTrain_RejectsNonBot(t *testing.T) {
	svc, games, _, _, _, _ := newTestSetup(t)
	ctx := context.Background()

	human, _ := games.JoinGame(ctx, "game-1", "user-human")
	if err := svc.PlaceBotTrain(ctx, "game-1", human.ID); err == nil {
		t.Error("placing a human's train through the bot service should fail")
	}
}

func TestTakeBotTurn_RunsAndAudits(t *testing.T) {
	svc, games, audits, _, bc, playerID := newTestSetup(t)
	ctx := context.Background()

	if err := svc.PlaceBotTrain(ctx, "game-1", playerID); err != nil {
		t.Fatalf("place train: %v", err)
	}
	result, err := svc.TakeBotTurn(ctx, "game-1", playerID)
	if err != nil {
		t.Fatalf("take turn: %v", err)
	}
	if result.Audit == nil {
		t.Fatal("missing audit")
	}
	if result.Audit.TurnNumber != 1 {
		t.Errorf("first turn should be numbered 1, got %d", result.Audit.TurnNumber)
	}
	if len(audits.saved) != 1 {
		t.Errorf("expected one persisted audit, got %d", len(audits.saved))
	}
	if games.game.TurnNumber != 1 {
		t.Errorf("game turn counter not advanced, got %d", games.game.TurnNumber)
	}

	sawStart, sawComplete := false, false
	for _, e := range bc.events {
		switch e {
		case bot.EventBotTurnStart:
			sawStart = true
		case bot.EventBotTurnComplete:
			sawComplete = true
		}
	}
	if !sawStart || !sawComplete {
		t.Errorf("expected start and complete events, got %v", bc.events)
	}
}

func TestTakeBotTurn_LockBlocksConcurrentTurn(t *testing.T) {
	svc, _, _, cache, _, playerID := newTestSetup(t)
	ctx := context.Background()

	// Simulate a turn already running for this game.
	if ok, _ := cache.AcquireTurnLock(ctx, "game-1", "someone-else"); !ok {
		t.Fatal("setup: could not take lock")
	}
	if _, err := svc.TakeBotTurn(ctx, "game-1", playerID); !errors.Is(err, ErrTurnInProgress) {
		t.Errorf("expected ErrTurnInProgress, got %v", err)
	}
}

func TestTakeBotTurn_ReleasesLock(t *testing.T) {
	svc, _, _, cache, _, playerID := newTestSetup(t)
	ctx := context.Background()

	if err := svc.PlaceBotTrain(ctx, "game-1", playerID); err != nil {
		t.Fatalf("place train: %v", err)
	}
	if _, err := svc.TakeBotTurn(ctx, "game-1", playerID); err != nil {
		t.Fatalf("take turn: %v", err)
	}
	if _, held := cache.locks["game-1"]; held {
		t.Error("turn lock not released")
	}
}

func TestTakeBotTurn_UnplacedBotStillCompletes(t *testing.T) {
	// Without a placed train most candidates are infeasible; the engine
	// still produces a terminal action and the service still audits it.
	svc, _, audits, _, _, playerID := newTestSetup(t)

	result, err := svc.TakeBotTurn(context.Background(), "game-1", playerID)
	if err != nil {
		t.Fatalf("take turn: %v", err)
	}
	if result.Audit == nil || len(audits.saved) != 1 {
		t.Error("turn not audited")
	}
}

func TestTakeBotTurn_VictoryFinishesGame(t *testing.T) {
	svc, games, _, _, bc, playerID := newTestSetup(t)
	ctx := context.Background()

	if err := svc.PlaceBotTrain(ctx, "game-1", playerID); err != nil {
		t.Fatalf("place train: %v", err)
	}
	// Rich enough that the turn's spending cannot drop below the line.
	games.withPlayer(playerID, func(p *model.Player) {
		p.Cash = railgame.CashVictoryThreshold + 100
	})

	result, err := svc.TakeBotTurn(ctx, "game-1", playerID)
	if err != nil {
		t.Fatalf("take turn: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected a successful turn, got %+v", result)
	}
	if games.game.Status != "finished" || games.game.Winner != "user-bot" {
		t.Errorf("game should be finished with the bot as winner, got %s/%s",
			games.game.Status, games.game.Winner)
	}
	sawGameOver := false
	for _, e := range bc.events {
		if e == "game_over" {
			sawGameOver = true
		}
	}
	if !sawGameOver {
		t.Errorf("expected a game_over broadcast, got %v", bc.events)
	}
}
