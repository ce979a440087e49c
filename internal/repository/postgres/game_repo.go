package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/freeeve/iron-rails/api/internal/model"
	"github.com/freeeve/iron-rails/api/pkg/railgame"
)

// GameRepo handles game and player database operations, including the
// per-action state mutations the bot engine executes through it. Every
// Apply* method runs in a single transaction with the player row locked,
// so an action either lands whole or not at all.
type GameRepo struct {
	db *sql.DB
}

// NewGameRepo creates a GameRepo.
func NewGameRepo(db *sql.DB) *GameRepo {
	return &GameRepo{db: db}
}

// Create inserts a new game with a freshly shuffled demand deck and the
// standard load stock.
func (r *GameRepo) Create(ctx context.Context, name, creatorID string) (*model.Game, error) {
	var g model.Game
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO games (name, creator_id)
		 VALUES ($1, $2)
		 RETURNING id, name, creator_id, status, turn_number, created_at`,
		name, creatorID,
	).Scan(&g.ID, &g.Name, &g.CreatorID, &g.Status, &g.TurnNumber, &g.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}
	return &g, nil
}

// FindByID returns a game by ID with its players.
func (r *GameRepo) FindByID(ctx context.Context, id string) (*model.Game, error) {
	var g model.Game
	var winner sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, creator_id, status, winner, turn_number, created_at, started_at, finished_at
		 FROM games WHERE id = $1`, id,
	).Scan(&g.ID, &g.Name, &g.CreatorID, &g.Status, &winner, &g.TurnNumber, &g.CreatedAt, &g.StartedAt, &g.FinishedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find game: %w", err)
	}
	g.Winner = winner.String

	players, err := r.ListPlayers(ctx, id)
	if err != nil {
		return nil, err
	}
	g.Players = players
	return &g, nil
}

// ListActive returns all games with status 'active', including players.
func (r *GameRepo) ListActive(ctx context.Context) ([]model.Game, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, creator_id, status, turn_number, created_at
		 FROM games WHERE status = 'active' ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list active games: %w", err)
	}
	defer rows.Close()

	var games []model.Game
	for rows.Next() {
		var g model.Game
		if err := rows.Scan(&g.ID, &g.Name, &g.CreatorID, &g.Status, &g.TurnNumber, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		players, err := r.ListPlayers(ctx, g.ID)
		if err != nil {
			return nil, err
		}
		g.Players = players
		games = append(games, g)
	}
	return games, rows.Err()
}

// JoinGame seats a human player with starting cash, a base freight
// train, and a dealt hand of demand cards.
func (r *GameRepo) JoinGame(ctx context.Context, gameID, userID string) (*model.Player, error) {
	return r.join(ctx, gameID, userID, false, "", "")
}

// JoinGameAsBot seats a bot player. Empty profile fields default to a
// medium balanced bot.
func (r *GameRepo) JoinGameAsBot(ctx context.Context, gameID, userID, skill, archetype string) (*model.Player, error) {
	if skill == "" {
		skill = "medium"
	}
	if archetype == "" {
		archetype = "balanced"
	}
	return r.join(ctx, gameID, userID, true, skill, archetype)
}

func (r *GameRepo) join(ctx context.Context, gameID, userID string, isBot bool, skill, archetype string) (*model.Player, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	hand, err := dealCards(ctx, tx, gameID, railgame.DemandCardsPerPlayer)
	if err != nil {
		return nil, err
	}
	handJSON, err := json.Marshal(hand)
	if err != nil {
		return nil, fmt.Errorf("marshal hand: %w", err)
	}

	var p model.Player
	err = tx.QueryRowContext(ctx,
		`INSERT INTO game_players (game_id, user_id, is_bot, bot_skill, bot_archetype, cash, train_type, demand_cards)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, game_id, user_id, is_bot, bot_skill, bot_archetype, cash, train_type,
		           pixel_x, pixel_y, loads, demand_cards, track, connected_major_cities, joined_at`,
		gameID, userID, isBot, skill, archetype, railgame.StartingCash, string(railgame.Freight), handJSON,
	).Scan(&p.ID, &p.GameID, &p.UserID, &p.IsBot, &p.BotSkill, &p.BotArchetype, &p.Cash, &p.TrainType,
		&p.PixelX, &p.PixelY, &p.Loads, &p.DemandCards, &p.Track, &p.ConnectedMajorCities, &p.JoinedAt)
	if err != nil {
		return nil, fmt.Errorf("join game: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit join: %w", err)
	}
	return &p, nil
}

// FindPlayer returns one seat in a game.
func (r *GameRepo) FindPlayer(ctx context.Context, gameID, playerID string) (*model.Player, error) {
	p, err := scanPlayer(r.db.QueryRowContext(ctx,
		`SELECT id, game_id, user_id, is_bot, bot_skill, bot_archetype, cash, train_type,
		        train_row, train_col, pixel_x, pixel_y, loads, demand_cards, track, connected_major_cities, joined_at
		 FROM game_players WHERE game_id = $1 AND id = $2`, gameID, playerID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find player: %w", err)
	}
	return p, nil
}

// ListPlayers returns all players in a game in join order.
func (r *GameRepo) ListPlayers(ctx context.Context, gameID string) ([]model.Player, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, game_id, user_id, is_bot, bot_skill, bot_archetype, cash, train_type,
		        train_row, train_col, pixel_x, pixel_y, loads, demand_cards, track, connected_major_cities, joined_at
		 FROM game_players WHERE game_id = $1 ORDER BY joined_at`, gameID)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	var players []model.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		players = append(players, *p)
	}
	return players, rows.Err()
}

// UpdateBotProfile changes a bot seat's skill and archetype.
func (r *GameRepo) UpdateBotProfile(ctx context.Context, gameID, playerID, skill, archetype string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE game_players SET bot_skill = $1, bot_archetype = $2
		 WHERE game_id = $3 AND id = $4 AND is_bot = true`,
		skill, archetype, gameID, playerID)
	if err != nil {
		return fmt.Errorf("update bot profile: %w", err)
	}
	return nil
}

// SetWorld stores the game's map document and seeds the global load
// stock. Called once during game setup.
func (r *GameRepo) SetWorld(ctx context.Context, gameID string, world json.RawMessage, availability map[string]int) error {
	availJSON, err := json.Marshal(availability)
	if err != nil {
		return fmt.Errorf("encode availability: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE games SET world = $1, load_availability = $2 WHERE id = $3`,
		[]byte(world), availJSON, gameID)
	if err != nil {
		return fmt.Errorf("set world: %w", err)
	}
	return nil
}

// SetDemandDeck replaces the game's demand deck. Called once during
// game setup with a freshly shuffled deck.
func (r *GameRepo) SetDemandDeck(ctx context.Context, gameID string, deck []railgame.DemandCard) error {
	deckJSON, err := json.Marshal(deck)
	if err != nil {
		return fmt.Errorf("encode demand deck: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE games SET demand_deck = $1 WHERE id = $2`, deckJSON, gameID)
	if err != nil {
		return fmt.Errorf("set demand deck: %w", err)
	}
	return nil
}

// GetWorld returns the game's map document.
func (r *GameRepo) GetWorld(ctx context.Context, gameID string) (json.RawMessage, error) {
	var world []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT world FROM games WHERE id = $1`, gameID,
	).Scan(&world)
	if err != nil {
		return nil, fmt.Errorf("get world: %w", err)
	}
	return world, nil
}

// GetLoadAvailability returns the authoritative global load stock.
func (r *GameRepo) GetLoadAvailability(ctx context.Context, gameID string) (map[string]int, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT load_availability FROM games WHERE id = $1`, gameID,
	).Scan(&raw)
	if err != nil {
		return nil, fmt.Errorf("get load availability: %w", err)
	}
	var availability map[string]int
	if err := json.Unmarshal(raw, &availability); err != nil {
		return nil, fmt.Errorf("decode load availability: %w", err)
	}
	return availability, nil
}

// AdvanceTurn increments and returns the game's turn counter.
func (r *GameRepo) AdvanceTurn(ctx context.Context, gameID string) (int, error) {
	var turn int
	err := r.db.QueryRowContext(ctx,
		`UPDATE games SET turn_number = turn_number + 1 WHERE id = $1 RETURNING turn_number`,
		gameID,
	).Scan(&turn)
	if err != nil {
		return 0, fmt.Errorf("advance turn: %w", err)
	}
	return turn, nil
}

// SetFinished marks a game as finished.
func (r *GameRepo) SetFinished(ctx context.Context, gameID, winner string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE games SET status = 'finished', winner = $1, finished_at = now() WHERE id = $2`,
		winner, gameID)
	if err != nil {
		return fmt.Errorf("set finished: %w", err)
	}
	return nil
}

// Delete removes a game and all associated data (cascades to players
// and audits).
func (r *GameRepo) Delete(ctx context.Context, gameID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM games WHERE id = $1`, gameID)
	if err != nil {
		return fmt.Errorf("delete game: %w", err)
	}
	return nil
}

// ApplyDelivery removes the delivered load, credits the payment, and
// replaces the fulfilled demand card with a fresh draw from the deck.
func (r *GameRepo) ApplyDelivery(ctx context.Context, gameID, playerID string, load railgame.Load, payment, cardIndex int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	state, err := lockPlayerState(ctx, tx, gameID, playerID)
	if err != nil {
		return err
	}

	idx := -1
	for i, l := range state.loads {
		if l == load {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("deliver: player %s does not carry %s", playerID, load)
	}
	state.loads = append(state.loads[:idx], state.loads[idx+1:]...)

	if cardIndex < 0 || cardIndex >= len(state.cards) {
		return fmt.Errorf("deliver: card index %d out of range", cardIndex)
	}
	drawn, err := dealCards(ctx, tx, gameID, 1)
	if err != nil {
		return err
	}
	if len(drawn) == 1 {
		state.cards[cardIndex] = drawn[0]
	} else {
		// Deck exhausted; the fulfilled card just leaves the hand.
		state.cards = append(state.cards[:cardIndex], state.cards[cardIndex+1:]...)
	}

	if err := writePlayerState(ctx, tx, gameID, playerID, state, payment); err != nil {
		return err
	}
	return tx.Commit()
}

// ApplyPickup adds the load to the train and decrements the game's
// global availability for it.
func (r *GameRepo) ApplyPickup(ctx context.Context, gameID, playerID string, load railgame.Load, city string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	state, err := lockPlayerState(ctx, tx, gameID, playerID)
	if err != nil {
		return err
	}

	capacity := railgame.TrainType(state.trainType).Spec().Capacity
	if len(state.loads) >= capacity {
		return fmt.Errorf("pickup: train at capacity (%d/%d)", len(state.loads), capacity)
	}

	var availability map[railgame.Load]int
	var raw []byte
	if err := tx.QueryRowContext(ctx,
		`SELECT load_availability FROM games WHERE id = $1 FOR UPDATE`, gameID,
	).Scan(&raw); err != nil {
		return fmt.Errorf("lock availability: %w", err)
	}
	if err := json.Unmarshal(raw, &availability); err != nil {
		return fmt.Errorf("decode availability: %w", err)
	}
	if availability[load] <= 0 {
		return fmt.Errorf("pickup: no %s available", load)
	}
	availability[load]--
	availJSON, err := json.Marshal(availability)
	if err != nil {
		return fmt.Errorf("encode availability: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE games SET load_availability = $1 WHERE id = $2`, availJSON, gameID); err != nil {
		return fmt.Errorf("update availability: %w", err)
	}

	state.loads = append(state.loads, load)
	if err := writePlayerState(ctx, tx, gameID, playerID, state, 0); err != nil {
		return err
	}
	return tx.Commit()
}

// ApplyTrackBuild appends segments and debits the cost. majorCity is
// non-empty when the build connects a new major city.
func (r *GameRepo) ApplyTrackBuild(ctx context.Context, gameID, playerID string, segments []railgame.TrackSegment, cost int, majorCity string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	state, err := lockPlayerState(ctx, tx, gameID, playerID)
	if err != nil {
		return err
	}
	if state.cash < cost {
		return fmt.Errorf("build: insufficient cash (need %d, have %d)", cost, state.cash)
	}

	state.track = append(state.track, segments...)
	trackJSON, err := json.Marshal(state.track)
	if err != nil {
		return fmt.Errorf("encode track: %w", err)
	}

	query := `UPDATE game_players SET cash = cash - $1, track = $2 WHERE game_id = $3 AND id = $4`
	args := []any{cost, trackJSON, gameID, playerID}
	if majorCity != "" {
		query = `UPDATE game_players SET cash = cash - $1, track = $2, connected_major_cities = connected_major_cities + 1
		         WHERE game_id = $3 AND id = $4`
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("apply track build: %w", err)
	}
	return tx.Commit()
}

// ApplyTrainUpgrade swaps the train type and debits the cost.
func (r *GameRepo) ApplyTrainUpgrade(ctx context.Context, gameID, playerID string, to railgame.TrainType, cost int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE game_players SET train_type = $1, cash = cash - $2
		 WHERE game_id = $3 AND id = $4 AND cash >= $2`,
		string(to), cost, gameID, playerID)
	if err != nil {
		return fmt.Errorf("apply train upgrade: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("apply train upgrade: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("upgrade: player %s missing or short of cash", playerID)
	}
	return nil
}

// ApplyPass records that the seat took no productive action this turn.
func (r *GameRepo) ApplyPass(ctx context.Context, gameID, playerID string, turnNumber int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE game_players SET last_passed_turn = $1 WHERE game_id = $2 AND id = $3`,
		turnNumber, gameID, playerID)
	if err != nil {
		return fmt.Errorf("apply pass: %w", err)
	}
	return nil
}

// UpdateTrainPosition persists the train's grid and pixel coordinates.
func (r *GameRepo) UpdateTrainPosition(ctx context.Context, gameID, playerID string, row, col, pixelX, pixelY int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE game_players SET train_row = $1, train_col = $2, pixel_x = $3, pixel_y = $4
		 WHERE game_id = $5 AND id = $6`,
		row, col, pixelX, pixelY, gameID, playerID)
	if err != nil {
		return fmt.Errorf("update train position: %w", err)
	}
	return nil
}

// playerState is the decoded mutable slice of a player row that the
// apply methods edit in Go and write back.
type playerState struct {
	cash      int
	trainType string
	loads     []railgame.Load
	cards     []railgame.DemandCard
	track     []railgame.TrackSegment
}

func lockPlayerState(ctx context.Context, tx *sql.Tx, gameID, playerID string) (*playerState, error) {
	var s playerState
	var loads, cards, track []byte
	err := tx.QueryRowContext(ctx,
		`SELECT cash, train_type, loads, demand_cards, track
		 FROM game_players WHERE game_id = $1 AND id = $2 FOR UPDATE`,
		gameID, playerID,
	).Scan(&s.cash, &s.trainType, &loads, &cards, &track)
	if err != nil {
		return nil, fmt.Errorf("lock player: %w", err)
	}
	if err := json.Unmarshal(loads, &s.loads); err != nil {
		return nil, fmt.Errorf("decode loads: %w", err)
	}
	if err := json.Unmarshal(cards, &s.cards); err != nil {
		return nil, fmt.Errorf("decode demand cards: %w", err)
	}
	if err := json.Unmarshal(track, &s.track); err != nil {
		return nil, fmt.Errorf("decode track: %w", err)
	}
	return &s, nil
}

func writePlayerState(ctx context.Context, tx *sql.Tx, gameID, playerID string, s *playerState, cashDelta int) error {
	loads, err := json.Marshal(s.loads)
	if err != nil {
		return fmt.Errorf("encode loads: %w", err)
	}
	cards, err := json.Marshal(s.cards)
	if err != nil {
		return fmt.Errorf("encode demand cards: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE game_players SET cash = cash + $1, loads = $2, demand_cards = $3
		 WHERE game_id = $4 AND id = $5`,
		cashDelta, loads, cards, gameID, playerID)
	if err != nil {
		return fmt.Errorf("write player state: %w", err)
	}
	return nil
}

// dealCards pops up to n cards off the game's demand deck. Returns
// fewer when the deck runs dry.
func dealCards(ctx context.Context, tx *sql.Tx, gameID string, n int) ([]railgame.DemandCard, error) {
	var raw []byte
	if err := tx.QueryRowContext(ctx,
		`SELECT demand_deck FROM games WHERE id = $1 FOR UPDATE`, gameID,
	).Scan(&raw); err != nil {
		return nil, fmt.Errorf("lock demand deck: %w", err)
	}
	var deck []railgame.DemandCard
	if err := json.Unmarshal(raw, &deck); err != nil {
		return nil, fmt.Errorf("decode demand deck: %w", err)
	}
	if n > len(deck) {
		n = len(deck)
	}
	dealt := deck[:n]
	rest, err := json.Marshal(deck[n:])
	if err != nil {
		return nil, fmt.Errorf("encode demand deck: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE games SET demand_deck = $1 WHERE id = $2`, rest, gameID); err != nil {
		return nil, fmt.Errorf("update demand deck: %w", err)
	}
	return dealt, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlayer(row rowScanner) (*model.Player, error) {
	var p model.Player
	var skill, archetype sql.NullString
	var trainRow, trainCol sql.NullInt64
	err := row.Scan(&p.ID, &p.GameID, &p.UserID, &p.IsBot, &skill, &archetype, &p.Cash, &p.TrainType,
		&trainRow, &trainCol, &p.PixelX, &p.PixelY, &p.Loads, &p.DemandCards, &p.Track, &p.ConnectedMajorCities, &p.JoinedAt)
	if err != nil {
		return nil, err
	}
	p.BotSkill = skill.String
	p.BotArchetype = archetype.String
	if trainRow.Valid {
		v := int(trainRow.Int64)
		p.TrainRow = &v
	}
	if trainCol.Valid {
		v := int(trainCol.Int64)
		p.TrainCol = &v
	}
	return &p, nil
}
