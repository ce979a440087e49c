package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/iron-rails/api/internal/bot"
	"github.com/freeeve/iron-rails/api/pkg/railgame"
)

// matchResult summarizes one simulated game.
type matchResult struct {
	Game        int            `json:"game"`
	Turns       int            `json:"turns"`
	FinalCash   int            `json:"final_cash"`
	MajorCities int            `json:"major_cities"`
	Won         bool           `json:"won"`
	Passes      int            `json:"passes"`
	Actions     map[string]int `json:"actions"`
}

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	var (
		skill     string
		archetype string
		maxTurns  int
		numGames  int
		seed      int64
		verbose   bool
		jsonOut   bool
	)

	flag.StringVar(&skill, "skill", "hard", "Bot skill (easy, medium, hard, expert)")
	flag.StringVar(&archetype, "archetype", "balanced", "Bot archetype (balanced, hauler, builder, racer, blocker)")
	flag.IntVar(&maxTurns, "turns", 60, "Max turns per game")
	flag.IntVar(&numGames, "n", 1, "Number of games to run")
	flag.Int64Var(&seed, "seed", 1, "Base seed")
	flag.BoolVar(&verbose, "v", false, "Log every chosen plan")
	flag.BoolVar(&jsonOut, "json", false, "Output results as JSON")
	flag.Parse()

	if !verbose {
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}

	cfg := bot.Config{Skill: bot.SkillLevel(skill), Archetype: bot.Archetype(archetype)}
	ctx := context.Background()

	results := make([]matchResult, 0, numGames)
	for i := 0; i < numGames; i++ {
		gameSeed := seed + int64(i)
		sim := newSim(gameSeed)
		engine := bot.NewEngine(sim, sim, sim, bot.NoopBroadcaster{}, bot.NewSeededRng(gameSeed))

		if err := engine.PlaceInitialTrain(ctx, sim.gameID, sim.playerID); err != nil {
			log.Error().Err(err).Int("game", i+1).Msg("Placement failed")
			continue
		}

		result := matchResult{Game: i + 1, Actions: map[string]int{}}
		for turn := 1; turn <= maxTurns; turn++ {
			sim.world.TurnNumber = turn
			tr := engine.TakeTurn(ctx, sim.gameID, sim.playerID, "sim-bot", cfg, turn)
			result.Turns = turn
			if tr.Audit != nil {
				for _, a := range tr.Audit.SelectedPlan {
					result.Actions[string(a.Type)]++
				}
				if verbose {
					log.Info().Int("game", i+1).Msg(tr.Audit.String())
				}
			}
			if tr.FellBackToPass {
				result.Passes++
			}
			if sim.player.cash >= railgame.CashVictoryThreshold ||
				sim.player.cities >= railgame.MajorCityVictoryThreshold {
				result.Won = true
				break
			}
		}
		result.FinalCash = sim.player.cash
		result.MajorCities = sim.player.cities
		results = append(results, result)
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(results)
		return
	}
	printSummary(results, skill, archetype, maxTurns)
}

func printSummary(results []matchResult, skill, archetype string, maxTurns int) {
	wins := 0
	totalCash, totalTurns := 0, 0
	actions := map[string]int{}
	for _, r := range results {
		if r.Won {
			wins++
		}
		totalCash += r.FinalCash
		totalTurns += r.Turns
		for a, n := range r.Actions {
			actions[a] += n
		}
	}
	n := len(results)
	if n == 0 {
		fmt.Println("no games completed")
		return
	}

	fmt.Printf("\n%s/%s over %d games (max %d turns):\n", skill, archetype, n, maxTurns)
	fmt.Printf("  wins: %d/%d, avg cash: %.1f, avg turns: %.1f\n",
		wins, n, float64(totalCash)/float64(n), float64(totalTurns)/float64(n))
	for a, c := range actions {
		fmt.Printf("  %-14s %d\n", a, c)
	}
}

// simPlayer is the single bot seat in a simulated game.
type simPlayer struct {
	cash      int
	trainType railgame.TrainType
	pos       *railgame.GridPos
	loads     []railgame.Load
	cards     []railgame.DemandCard
	track     []railgame.TrackSegment
	cities    int
	passes    int
}

// sim is a self-contained one-seat game: it backs the engine as snapshot
// provider, game store, and audit repository at once.
type sim struct {
	gameID   string
	playerID string
	world    railgame.WorldState
	deck     []railgame.DemandCard
	player   simPlayer
	audits   []bot.StrategyAudit
}

func newSim(seed int64) *sim {
	world := railgame.DefaultMap()
	deck := railgame.StandardDeck()
	rnd := rand.New(rand.NewSource(seed))
	rnd.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })

	s := &sim{
		gameID:   "sim",
		playerID: "seat-1",
		world:    world,
		player: simPlayer{
			cash:      railgame.StartingCash,
			trainType: railgame.Freight,
		},
	}
	s.player.cards = deck[:railgame.DemandCardsPerPlayer]
	s.deck = deck[railgame.DemandCardsPerPlayer:]
	return s
}

func (s *sim) Snapshot(_ context.Context, _, _ string) (*bot.WorldSnapshot, error) {
	snap := &bot.WorldSnapshot{
		GameID:               s.gameID,
		PlayerID:             s.playerID,
		Cash:                 s.player.cash,
		TrainType:            s.player.trainType,
		Loads:                append([]railgame.Load(nil), s.player.loads...),
		Track:                append([]railgame.TrackSegment(nil), s.player.track...),
		DemandCards:          append([]railgame.DemandCard(nil), s.player.cards...),
		ConnectedMajorCities: s.player.cities,
		MapPoints:            s.world.MapPoints,
		TurnNumber:           s.world.TurnNumber,
	}
	if s.player.pos != nil {
		p := *s.player.pos
		snap.TrainPos = &p
	}
	snap.LoadAvailability = make(map[railgame.Load]int, len(s.world.LoadAvailability))
	for l, c := range s.world.LoadAvailability {
		snap.LoadAvailability[l] = c
	}
	return snap, nil
}

func (s *sim) ApplyDelivery(_ context.Context, _, _ string, load railgame.Load, payment, cardIndex int) error {
	for i, l := range s.player.loads {
		if l == load {
			s.player.loads = append(s.player.loads[:i], s.player.loads[i+1:]...)
			break
		}
	}
	s.player.cash += payment
	if cardIndex >= 0 && cardIndex < len(s.player.cards) {
		if len(s.deck) > 0 {
			s.player.cards[cardIndex] = s.deck[0]
			s.deck = s.deck[1:]
		} else {
			s.player.cards = append(s.player.cards[:cardIndex], s.player.cards[cardIndex+1:]...)
		}
	}
	return nil
}

func (s *sim) ApplyPickup(_ context.Context, _, _ string, load railgame.Load, _ string) error {
	s.player.loads = append(s.player.loads, load)
	s.world.LoadAvailability[load]--
	return nil
}

func (s *sim) ApplyTrackBuild(_ context.Context, _, _ string, segments []railgame.TrackSegment, cost int, majorCity string) error {
	s.player.track = append(s.player.track, segments...)
	s.player.cash -= cost
	if majorCity != "" {
		s.player.cities++
	}
	return nil
}

func (s *sim) ApplyTrainUpgrade(_ context.Context, _, _ string, to railgame.TrainType, cost int) error {
	s.player.trainType = to
	s.player.cash -= cost
	return nil
}

func (s *sim) ApplyPass(context.Context, string, string, int) error {
	s.player.passes++
	return nil
}

func (s *sim) UpdateTrainPosition(_ context.Context, _, _ string, row, col, _, _ int) error {
	s.player.pos = &railgame.GridPos{Row: row, Col: col}
	return nil
}

func (s *sim) SaveTurnAudit(_ context.Context, _, _ string, audit *bot.StrategyAudit) error {
	s.audits = append(s.audits, *audit)
	return nil
}

func (s *sim) ListTurnAudits(context.Context, string, string) ([]bot.StrategyAudit, error) {
	return s.audits, nil
}
