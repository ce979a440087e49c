//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"testing"

	"github.com/freeeve/iron-rails/api/internal/bot"
	"github.com/freeeve/iron-rails/api/internal/model"
	"github.com/freeeve/iron-rails/api/internal/testutil"
	"github.com/freeeve/iron-rails/api/pkg/railgame"
)

var testDB *sql.DB

func setup(t *testing.T) {
	t.Helper()
	if testDB == nil {
		testDB = testutil.SetupDB(t)
	}
	testutil.CleanupDB(t, testDB)
}

// createTestGame inserts a game with the default map and a full demand
// deck, mirroring what BotService.SetupGame does.
func createTestGame(t *testing.T, repo *GameRepo) *model.Game {
	t.Helper()
	ctx := context.Background()

	g, err := repo.Create(ctx, "integration game", "creator-1")
	if err != nil {
		t.Fatalf("create game: %v", err)
	}

	world := railgame.DefaultMap()
	worldJSON, err := json.Marshal(world)
	if err != nil {
		t.Fatalf("marshal world: %v", err)
	}
	availability := make(map[string]int, len(world.LoadAvailability))
	for load, count := range world.LoadAvailability {
		availability[string(load)] = count
	}
	if err := repo.SetWorld(ctx, g.ID, worldJSON, availability); err != nil {
		t.Fatalf("set world: %v", err)
	}
	if err := repo.SetDemandDeck(ctx, g.ID, railgame.StandardDeck()); err != nil {
		t.Fatalf("set demand deck: %v", err)
	}
	return g
}

func joinTestBot(t *testing.T, repo *GameRepo, gameID string) *model.Player {
	t.Helper()
	p, err := repo.JoinGameAsBot(context.Background(), gameID, "bot-user-1", "hard", "hauler")
	if err != nil {
		t.Fatalf("join as bot: %v", err)
	}
	return p
}

func TestCreateAndFindGame(t *testing.T) {
	setup(t)
	repo := NewGameRepo(testDB)

	g := createTestGame(t, repo)
	if g.ID == "" {
		t.Fatal("expected non-empty game ID")
	}
	if g.Status != "active" {
		t.Fatalf("expected active status, got %s", g.Status)
	}

	found, err := repo.FindByID(context.Background(), g.ID)
	if err != nil {
		t.Fatalf("find game: %v", err)
	}
	if found == nil || found.Name != "integration game" {
		t.Fatalf("unexpected game: %+v", found)
	}
}

func TestFindGameNotFound(t *testing.T) {
	setup(t)
	repo := NewGameRepo(testDB)

	found, err := repo.FindByID(context.Background(), "00000000-0000-0000-0000-000000000000")
	if err != nil {
		t.Fatalf("find missing game: %v", err)
	}
	if found != nil {
		t.Fatal("expected nil for missing game")
	}
}

func TestListActiveExcludesFinished(t *testing.T) {
	setup(t)
	repo := NewGameRepo(testDB)
	ctx := context.Background()

	g1 := createTestGame(t, repo)
	g2 := createTestGame(t, repo)
	if err := repo.SetFinished(ctx, g2.ID, "bot-user-1"); err != nil {
		t.Fatalf("set finished: %v", err)
	}

	games, err := repo.ListActive(ctx)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(games) != 1 || games[0].ID != g1.ID {
		t.Fatalf("expected only %s active, got %+v", g1.ID, games)
	}
}

func TestJoinGameAsBotDealsHand(t *testing.T) {
	setup(t)
	repo := NewGameRepo(testDB)
	g := createTestGame(t, repo)

	p := joinTestBot(t, repo, g.ID)
	if !p.IsBot || p.BotSkill != "hard" || p.BotArchetype != "hauler" {
		t.Fatalf("unexpected bot profile: %+v", p)
	}
	if p.Cash != railgame.StartingCash {
		t.Fatalf("expected starting cash %d, got %d", railgame.StartingCash, p.Cash)
	}

	var hand []railgame.DemandCard
	if err := json.Unmarshal(p.DemandCards, &hand); err != nil {
		t.Fatalf("decode hand: %v", err)
	}
	if len(hand) != railgame.DemandCardsPerPlayer {
		t.Fatalf("expected %d cards, got %d", railgame.DemandCardsPerPlayer, len(hand))
	}
}

func TestJoinGameShrinksDeck(t *testing.T) {
	setup(t)
	repo := NewGameRepo(testDB)
	g := createTestGame(t, repo)
	ctx := context.Background()

	joinTestBot(t, repo, g.ID)

	var deckJSON []byte
	if err := testDB.QueryRowContext(ctx,
		`SELECT demand_deck FROM games WHERE id = $1`, g.ID).Scan(&deckJSON); err != nil {
		t.Fatalf("read deck: %v", err)
	}
	var deck []railgame.DemandCard
	json.Unmarshal(deckJSON, &deck)

	want := len(railgame.StandardDeck()) - railgame.DemandCardsPerPlayer
	if len(deck) != want {
		t.Fatalf("expected deck of %d after deal, got %d", want, len(deck))
	}
}

func TestJoinGameDuplicateUser(t *testing.T) {
	setup(t)
	repo := NewGameRepo(testDB)
	g := createTestGame(t, repo)
	ctx := context.Background()

	if _, err := repo.JoinGame(ctx, g.ID, "user-1"); err != nil {
		t.Fatalf("first join: %v", err)
	}
	if _, err := repo.JoinGame(ctx, g.ID, "user-1"); err == nil {
		t.Fatal("expected duplicate join to fail")
	}
}

func TestUpdateBotProfileIgnoresHumans(t *testing.T) {
	setup(t)
	repo := NewGameRepo(testDB)
	g := createTestGame(t, repo)
	ctx := context.Background()

	human, err := repo.JoinGame(ctx, g.ID, "human-1")
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	if err := repo.UpdateBotProfile(ctx, g.ID, human.ID, "expert", "blocker"); err != nil {
		t.Fatalf("update profile: %v", err)
	}
	p, _ := repo.FindPlayer(ctx, g.ID, human.ID)
	if p.BotSkill == "expert" {
		t.Fatal("expected human seat to be untouched")
	}
}

func TestWorldRoundTrip(t *testing.T) {
	setup(t)
	repo := NewGameRepo(testDB)
	g := createTestGame(t, repo)
	ctx := context.Background()

	worldJSON, err := repo.GetWorld(ctx, g.ID)
	if err != nil {
		t.Fatalf("get world: %v", err)
	}
	var world railgame.WorldState
	if err := json.Unmarshal(worldJSON, &world); err != nil {
		t.Fatalf("decode world: %v", err)
	}
	if len(world.MajorCities()) != railgame.MajorCityVictoryThreshold {
		t.Fatalf("expected %d major cities, got %d",
			railgame.MajorCityVictoryThreshold, len(world.MajorCities()))
	}

	avail, err := repo.GetLoadAvailability(ctx, g.ID)
	if err != nil {
		t.Fatalf("get availability: %v", err)
	}
	if len(avail) == 0 {
		t.Fatal("expected seeded load availability")
	}
}

func TestAdvanceTurn(t *testing.T) {
	setup(t)
	repo := NewGameRepo(testDB)
	g := createTestGame(t, repo)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		turn, err := repo.AdvanceTurn(ctx, g.ID)
		if err != nil {
			t.Fatalf("advance turn: %v", err)
		}
		if turn != want {
			t.Fatalf("expected turn %d, got %d", want, turn)
		}
	}
}

func TestApplyPickupAndDelivery(t *testing.T) {
	setup(t)
	repo := NewGameRepo(testDB)
	g := createTestGame(t, repo)
	p := joinTestBot(t, repo, g.ID)
	ctx := context.Background()

	var hand []railgame.DemandCard
	json.Unmarshal(p.DemandCards, &hand)
	load := hand[0].Demands[0].Load
	payment := hand[0].Demands[0].Payment

	if err := repo.ApplyPickup(ctx, g.ID, p.ID, load, "Chicago"); err != nil {
		t.Fatalf("pickup: %v", err)
	}

	avail, _ := repo.GetLoadAvailability(ctx, g.ID)
	world := railgame.DefaultMap()
	if avail[string(load)] != world.LoadAvailability[load]-1 {
		t.Fatalf("expected availability decremented for %s", load)
	}

	if err := repo.ApplyDelivery(ctx, g.ID, p.ID, load, payment, 0); err != nil {
		t.Fatalf("delivery: %v", err)
	}

	after, _ := repo.FindPlayer(ctx, g.ID, p.ID)
	if after.Cash != railgame.StartingCash+payment {
		t.Fatalf("expected cash %d, got %d", railgame.StartingCash+payment, after.Cash)
	}
	var loads []railgame.Load
	json.Unmarshal(after.Loads, &loads)
	if len(loads) != 0 {
		t.Fatalf("expected empty train after delivery, got %v", loads)
	}
	// Fulfilled card was replaced by a fresh draw.
	var afterHand []railgame.DemandCard
	json.Unmarshal(after.DemandCards, &afterHand)
	if len(afterHand) != railgame.DemandCardsPerPlayer {
		t.Fatalf("expected full hand after redraw, got %d", len(afterHand))
	}
}

func TestApplyDeliveryWithoutLoad(t *testing.T) {
	setup(t)
	repo := NewGameRepo(testDB)
	g := createTestGame(t, repo)
	p := joinTestBot(t, repo, g.ID)

	err := repo.ApplyDelivery(context.Background(), g.ID, p.ID, railgame.Load("coal"), 10, 0)
	if err == nil {
		t.Fatal("expected delivery of uncarried load to fail")
	}
	if !strings.Contains(err.Error(), "does not carry") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestApplyPickupRespectsCapacity(t *testing.T) {
	setup(t)
	repo := NewGameRepo(testDB)
	g := createTestGame(t, repo)
	p := joinTestBot(t, repo, g.ID)
	ctx := context.Background()

	capacity := railgame.Freight.Spec().Capacity
	world := railgame.DefaultMap()

	// Pick a load with enough stock to fill the train.
	var load railgame.Load
	for l, n := range world.LoadAvailability {
		if n > capacity {
			load = l
			break
		}
	}
	if load == "" {
		t.Skip("no load with stock above train capacity")
	}

	for i := 0; i < capacity; i++ {
		if err := repo.ApplyPickup(ctx, g.ID, p.ID, load, "Chicago"); err != nil {
			t.Fatalf("pickup %d: %v", i, err)
		}
	}
	if err := repo.ApplyPickup(ctx, g.ID, p.ID, load, "Chicago"); err == nil {
		t.Fatal("expected pickup beyond capacity to fail")
	}
}

func TestApplyTrackBuild(t *testing.T) {
	setup(t)
	repo := NewGameRepo(testDB)
	g := createTestGame(t, repo)
	p := joinTestBot(t, repo, g.ID)
	ctx := context.Background()

	segments := []railgame.TrackSegment{
		{From: railgame.GridPos{Row: 1, Col: 1}, To: railgame.GridPos{Row: 1, Col: 2}, Cost: 1},
		{From: railgame.GridPos{Row: 1, Col: 2}, To: railgame.GridPos{Row: 2, Col: 2}, Cost: 2},
	}
	if err := repo.ApplyTrackBuild(ctx, g.ID, p.ID, segments, 3, "Chicago"); err != nil {
		t.Fatalf("track build: %v", err)
	}

	after, _ := repo.FindPlayer(ctx, g.ID, p.ID)
	if after.Cash != railgame.StartingCash-3 {
		t.Fatalf("expected cash debited to %d, got %d", railgame.StartingCash-3, after.Cash)
	}
	if after.ConnectedMajorCities != 1 {
		t.Fatalf("expected 1 connected major city, got %d", after.ConnectedMajorCities)
	}
	var track []railgame.TrackSegment
	json.Unmarshal(after.Track, &track)
	if len(track) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(track))
	}
}

func TestApplyTrainUpgrade(t *testing.T) {
	setup(t)
	repo := NewGameRepo(testDB)
	g := createTestGame(t, repo)
	p := joinTestBot(t, repo, g.ID)
	ctx := context.Background()

	if err := repo.ApplyTrainUpgrade(ctx, g.ID, p.ID, railgame.FastFreight, 20); err != nil {
		t.Fatalf("upgrade: %v", err)
	}
	after, _ := repo.FindPlayer(ctx, g.ID, p.ID)
	if after.TrainType != string(railgame.FastFreight) {
		t.Fatalf("expected fast_freight, got %s", after.TrainType)
	}
	if after.Cash != railgame.StartingCash-20 {
		t.Fatalf("expected cash %d, got %d", railgame.StartingCash-20, after.Cash)
	}
}

func TestUpdateTrainPosition(t *testing.T) {
	setup(t)
	repo := NewGameRepo(testDB)
	g := createTestGame(t, repo)
	p := joinTestBot(t, repo, g.ID)
	ctx := context.Background()

	if err := repo.UpdateTrainPosition(ctx, g.ID, p.ID, 4, 7, 120, 88); err != nil {
		t.Fatalf("update position: %v", err)
	}
	after, _ := repo.FindPlayer(ctx, g.ID, p.ID)
	if after.TrainRow == nil || *after.TrainRow != 4 || after.TrainCol == nil || *after.TrainCol != 7 {
		t.Fatalf("unexpected position: %+v", after)
	}
	if after.PixelX != 120 || after.PixelY != 88 {
		t.Fatalf("unexpected pixel position: %d,%d", after.PixelX, after.PixelY)
	}
}

func TestDeleteGameCascades(t *testing.T) {
	setup(t)
	gameRepo := NewGameRepo(testDB)
	auditRepo := NewAuditRepo(testDB)
	g := createTestGame(t, gameRepo)
	p := joinTestBot(t, gameRepo, g.ID)
	ctx := context.Background()

	audit := &bot.StrategyAudit{TurnNumber: 1, Archetype: "hauler", SkillLevel: "hard"}
	if err := auditRepo.SaveTurnAudit(ctx, g.ID, p.ID, audit); err != nil {
		t.Fatalf("save audit: %v", err)
	}

	if err := gameRepo.Delete(ctx, g.ID); err != nil {
		t.Fatalf("delete game: %v", err)
	}

	if found, _ := gameRepo.FindByID(ctx, g.ID); found != nil {
		t.Fatal("expected game deleted")
	}
	if found, _ := gameRepo.FindPlayer(ctx, g.ID, p.ID); found != nil {
		t.Fatal("expected player deleted with game")
	}
	audits, err := auditRepo.ListTurnAudits(ctx, g.ID, p.ID)
	if err != nil {
		t.Fatalf("list audits: %v", err)
	}
	if len(audits) != 0 {
		t.Fatal("expected audits deleted with game")
	}
}

func TestAuditRoundTrip(t *testing.T) {
	setup(t)
	gameRepo := NewGameRepo(testDB)
	auditRepo := NewAuditRepo(testDB)
	g := createTestGame(t, gameRepo)
	p := joinTestBot(t, gameRepo, g.ID)
	ctx := context.Background()

	saved := &bot.StrategyAudit{
		TurnNumber:          2,
		Archetype:           "hauler",
		SkillLevel:          "hard",
		SnapshotFingerprint: "abc123",
		ChosenPlan:          "deliver coal to Chicago",
	}
	if err := auditRepo.SaveTurnAudit(ctx, g.ID, p.ID, saved); err != nil {
		t.Fatalf("save audit: %v", err)
	}

	audits, err := auditRepo.ListTurnAudits(ctx, g.ID, p.ID)
	if err != nil {
		t.Fatalf("list audits: %v", err)
	}
	if len(audits) != 1 {
		t.Fatalf("expected 1 audit, got %d", len(audits))
	}
	if audits[0].ChosenPlan != saved.ChosenPlan || audits[0].TurnNumber != 2 {
		t.Fatalf("audit round-trip mismatch: %+v", audits[0])
	}

	byGame, err := auditRepo.ListByGame(ctx, g.ID)
	if err != nil {
		t.Fatalf("list by game: %v", err)
	}
	if len(byGame) != 1 || byGame[0].PlayerID != p.ID {
		t.Fatalf("unexpected game audits: %+v", byGame)
	}
}
