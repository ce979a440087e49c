package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/freeeve/iron-rails/api/internal/model"
	"github.com/freeeve/iron-rails/api/pkg/railgame"
)

func TestSnapshot_AssemblesPlayerAndWorld(t *testing.T) {
	_, games, _, cache, _, playerID := newTestSetup(t)
	ctx := context.Background()

	snaps := NewSnapshotService(games, cache)
	snap, err := snaps.Snapshot(ctx, "game-1", playerID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.PlayerID != playerID || snap.UserID != "user-bot" {
		t.Errorf("identity wrong: %s/%s", snap.PlayerID, snap.UserID)
	}
	if snap.Cash != railgame.StartingCash {
		t.Errorf("cash = %d, want %d", snap.Cash, railgame.StartingCash)
	}
	if snap.TrainType != railgame.Freight {
		t.Errorf("train type = %s", snap.TrainType)
	}
	if snap.TrainPos != nil {
		t.Error("unplaced train should have nil position")
	}
	if len(snap.DemandCards) != railgame.DemandCardsPerPlayer {
		t.Errorf("expected %d demand cards, got %d", railgame.DemandCardsPerPlayer, len(snap.DemandCards))
	}
	if len(snap.MapPoints) != len(railgame.DefaultMap().MapPoints) {
		t.Errorf("map points missing: %d", len(snap.MapPoints))
	}
	if snap.LoadAvailability["coal"] != 8 {
		t.Errorf("availability not assembled: %v", snap.LoadAvailability)
	}
}

func TestSnapshot_ColdCacheFallsBackToPostgres(t *testing.T) {
	_, games, _, cache, _, playerID := newTestSetup(t)
	ctx := context.Background()

	// Simulate a cache wipe (Redis restart).
	if err := cache.DeleteGameData(ctx, "game-1"); err != nil {
		t.Fatal(err)
	}

	snaps := NewSnapshotService(games, cache)
	snap, err := snaps.Snapshot(ctx, "game-1", playerID)
	if err != nil {
		t.Fatalf("snapshot after cache wipe: %v", err)
	}
	if len(snap.MapPoints) == 0 {
		t.Error("world not recovered from postgres")
	}
	// The fallback reseeds the cache for the next caller.
	if cache.world["game-1"] == nil {
		t.Error("world cache not rehydrated")
	}
	if len(cache.availability["game-1"]) == 0 {
		t.Error("availability cache not rehydrated")
	}
}

func TestSnapshot_CacheErrorStillServes(t *testing.T) {
	_, games, _, cache, _, playerID := newTestSetup(t)
	cache.failWorld = errors.New("redis timeout")

	snaps := NewSnapshotService(games, cache)
	snap, err := snaps.Snapshot(context.Background(), "game-1", playerID)
	if err != nil {
		t.Fatalf("cache errors should fall back, got %v", err)
	}
	if len(snap.MapPoints) == 0 {
		t.Error("world missing after fallback")
	}
}

func TestSnapshot_UnknownPlayer(t *testing.T) {
	_, games, _, cache, _, _ := newTestSetup(t)
	snaps := NewSnapshotService(games, cache)

	if _, err := snaps.Snapshot(context.Background(), "game-1", "nobody"); err == nil {
		t.Error("expected an error for an unknown player")
	}
}

func TestSnapshot_DecodesTrackAndPosition(t *testing.T) {
	_, games, _, cache, _, playerID := newTestSetup(t)
	ctx := context.Background()

	track := []railgame.TrackSegment{
		{From: railgame.GridPos{Row: 5, Col: 9}, To: railgame.GridPos{Row: 5, Col: 10}, Cost: 1},
	}
	trackJSON, err := json.Marshal(track)
	if err != nil {
		t.Fatal(err)
	}
	games.withPlayer(playerID, func(p *model.Player) {
		p.Track = trackJSON
		row, col := 5, 9
		p.TrainRow, p.TrainCol = &row, &col
		p.Loads = json.RawMessage(`["coal"]`)
	})

	snaps := NewSnapshotService(games, cache)
	snap, err := snaps.Snapshot(ctx, "game-1", playerID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.TrainPos == nil || snap.TrainPos.Row != 5 || snap.TrainPos.Col != 9 {
		t.Errorf("train position not decoded: %v", snap.TrainPos)
	}
	if len(snap.Track) != 1 || snap.Track[0].Cost != 1 {
		t.Errorf("track not decoded: %v", snap.Track)
	}
	if len(snap.Loads) != 1 || snap.Loads[0] != "coal" {
		t.Errorf("loads not decoded: %v", snap.Loads)
	}
}
