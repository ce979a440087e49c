package bot

import (
	"context"
	"errors"

	"github.com/freeeve/iron-rails/api/pkg/railgame"
)

// newTestSnapshot builds a snapshot with a rich set of candidates:
// one delivery (coal to Chicago), two pickups (steel to Erie, lumber to
// Atlanta), both build types, and two train upgrades.
func newTestSnapshot() *WorldSnapshot {
	trainPos := railgame.GridPos{Row: 10, Col: 10}
	return &WorldSnapshot{
		GameID:    "game-1",
		PlayerID:  "bot-1",
		UserID:    "user-1",
		Cash:      40,
		TrainType: railgame.Freight,
		TrainPos:  &trainPos,
		Loads:     []railgame.Load{"coal"},
		Track: []railgame.TrackSegment{
			{From: railgame.GridPos{Row: 10, Col: 10}, To: railgame.GridPos{Row: 4, Col: 6}, Cost: 6},
			{From: railgame.GridPos{Row: 4, Col: 6}, To: railgame.GridPos{Row: 6, Col: 8}, Cost: 3},
		},
		DemandCards: []railgame.DemandCard{
			{Demands: [3]railgame.Demand{
				{City: "Chicago", Load: "coal", Payment: 18},
				{City: "Boston", Load: "steel", Payment: 20},
				{City: "Denver", Load: "lumber", Payment: 10},
			}},
			{Demands: [3]railgame.Demand{
				{City: "Erie", Load: "steel", Payment: 12},
				{City: "Atlanta", Load: "lumber", Payment: 8},
				{City: "Boston", Load: "coal", Payment: 16},
			}},
		},
		ConnectedMajorCities: 2,
		MapPoints: map[string]railgame.MapPoint{
			"Atlanta": {Name: "Atlanta", Pos: railgame.GridPos{Row: 10, Col: 10}, PixelX: 500, PixelY: 520, IsMajorCity: true},
			"Boston":  {Name: "Boston", Pos: railgame.GridPos{Row: 2, Col: 14}, PixelX: 700, PixelY: 110, IsMajorCity: true},
			"Chicago": {Name: "Chicago", Pos: railgame.GridPos{Row: 4, Col: 6}, PixelX: 300, PixelY: 200, IsMajorCity: true, Loads: []railgame.Load{"steel"}},
			"Denver":  {Name: "Denver", Pos: railgame.GridPos{Row: 8, Col: 2}, PixelX: 110, PixelY: 420, Loads: []railgame.Load{"coal"}},
			"Erie":    {Name: "Erie", Pos: railgame.GridPos{Row: 6, Col: 8}, PixelX: 390, PixelY: 300, Loads: []railgame.Load{"lumber"}},
		},
		LoadAvailability: map[railgame.Load]int{"coal": 2, "steel": 3, "lumber": 8},
		TurnNumber:       5,
	}
}

// fixedRng returns scripted values so tests can force orderer branches.
type fixedRng struct {
	floats []float64
	ints   []int
	fi, ii int
}

func (r *fixedRng) Float64() float64 {
	if r.fi >= len(r.floats) {
		return 0.99
	}
	v := r.floats[r.fi]
	r.fi++
	return v
}

func (r *fixedRng) Intn(int) int {
	if r.ii >= len(r.ints) {
		return 0
	}
	v := r.ints[r.ii]
	r.ii++
	return v
}

// fakeSnapshots serves a canned snapshot or a canned error.
type fakeSnapshots struct {
	snap *WorldSnapshot
	err  error
}

func (f *fakeSnapshots) Snapshot(context.Context, string, string) (*WorldSnapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	// Copy so engine mutations of UserID/TurnNumber don't leak between calls.
	snap := *f.snap
	return &snap, nil
}

// fakeStore records applied actions and can fail a fixed number of
// calls before succeeding.
type fakeStore struct {
	applied   []string
	failTimes int
	failErr   error
	positions [][4]int
}

func (f *fakeStore) fail() error {
	if f.failTimes > 0 {
		f.failTimes--
		if f.failErr != nil {
			return f.failErr
		}
		return errors.New("store unavailable")
	}
	return nil
}

func (f *fakeStore) ApplyDelivery(_ context.Context, _, _ string, load railgame.Load, _, _ int) error {
	if err := f.fail(); err != nil {
		return err
	}
	f.applied = append(f.applied, "deliver:"+string(load))
	return nil
}

func (f *fakeStore) ApplyPickup(_ context.Context, _, _ string, load railgame.Load, city string) error {
	if err := f.fail(); err != nil {
		return err
	}
	f.applied = append(f.applied, "pickup:"+string(load)+"@"+city)
	return nil
}

func (f *fakeStore) ApplyTrackBuild(_ context.Context, _, _ string, _ []railgame.TrackSegment, _ int, majorCity string) error {
	if err := f.fail(); err != nil {
		return err
	}
	f.applied = append(f.applied, "build:"+majorCity)
	return nil
}

func (f *fakeStore) ApplyTrainUpgrade(_ context.Context, _, _ string, to railgame.TrainType, _ int) error {
	if err := f.fail(); err != nil {
		return err
	}
	f.applied = append(f.applied, "upgrade:"+string(to))
	return nil
}

func (f *fakeStore) ApplyPass(_ context.Context, _, _ string, _ int) error {
	if err := f.fail(); err != nil {
		return err
	}
	f.applied = append(f.applied, "pass")
	return nil
}

func (f *fakeStore) UpdateTrainPosition(_ context.Context, _, _ string, row, col, px, py int) error {
	if err := f.fail(); err != nil {
		return err
	}
	f.positions = append(f.positions, [4]int{row, col, px, py})
	return nil
}

// scriptedValidator rejects the first n plans it sees and passes the
// rest, recording every action it was asked about. It simulates game
// state moving between generation and the pre-execution re-check.
type scriptedValidator struct {
	rejects int
	seen    []ActionType
}

func (v *scriptedValidator) Validate(plan *TurnPlan, _ *WorldSnapshot) (ValidationResult, error) {
	v.seen = append(v.seen, plan.Actions[0].Type)
	if v.rejects > 0 {
		v.rejects--
		return ValidationResult{Valid: false, Errors: []string{"state changed since generation"}}, nil
	}
	return ValidationResult{Valid: true}, nil
}

// fakeAudits records saved audits and can reject saves.
type fakeAudits struct {
	saved []*StrategyAudit
	err   error
}

func (f *fakeAudits) SaveTurnAudit(_ context.Context, _, _ string, audit *StrategyAudit) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, audit)
	return nil
}

func (f *fakeAudits) ListTurnAudits(context.Context, string, string) ([]StrategyAudit, error) {
	audits := make([]StrategyAudit, len(f.saved))
	for i, a := range f.saved {
		audits[i] = *a
	}
	return audits, nil
}

// fakeBroadcaster records emitted events.
type fakeBroadcaster struct {
	events []string
}

func (f *fakeBroadcaster) BroadcastGameEvent(_ string, eventType string, _ any) {
	f.events = append(f.events, eventType)
}
