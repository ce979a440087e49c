package handler

import (
	"net/http"
	"time"

	"github.com/freeeve/iron-rails/api/internal/auth"
	"github.com/freeeve/iron-rails/api/internal/repository"
	"github.com/freeeve/iron-rails/api/internal/service"
)

// GameHandler handles game lifecycle endpoints.
type GameHandler struct {
	games repository.GameRepository
	bots  *service.BotService
	wsHub *Hub
}

// NewGameHandler creates a GameHandler.
func NewGameHandler(games repository.GameRepository, bots *service.BotService, wsHub *Hub) *GameHandler {
	return &GameHandler{games: games, bots: bots, wsHub: wsHub}
}

// CreateGame handles POST /api/v1/games — creates a game and seeds its
// map, load stock, and demand deck.
func (h *GameHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	var req struct {
		Name string `json:"name"`
		Seed int64  `json:"seed,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	game, err := h.games.Create(r.Context(), req.Name, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	seed := req.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if err := h.bots.SetupGame(r.Context(), game.ID, seed); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, game)
}

// ListGames handles GET /api/v1/games
func (h *GameHandler) ListGames(w http.ResponseWriter, r *http.Request) {
	games, err := h.games.ListActive(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if games == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, games)
}

// GetGame handles GET /api/v1/games/{id}
func (h *GameHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")
	game, err := h.games.FindByID(r.Context(), gameID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if game == nil {
		writeError(w, http.StatusNotFound, "game not found")
		return
	}
	players, err := h.games.ListPlayers(r.Context(), gameID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	game.Players = players
	writeJSON(w, http.StatusOK, game)
}

// JoinGame handles POST /api/v1/games/{id}/join — joins as the caller,
// or seats a bot when as_bot is set.
func (h *GameHandler) JoinGame(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")
	userID := auth.UserIDFromContext(r.Context())

	var req struct {
		AsBot     bool   `json:"as_bot,omitempty"`
		BotUserID string `json:"bot_user_id,omitempty"`
		Skill     string `json:"skill,omitempty"`
		Archetype string `json:"archetype,omitempty"`
	}
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	game, err := h.games.FindByID(r.Context(), gameID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if game == nil {
		writeError(w, http.StatusNotFound, "game not found")
		return
	}

	var player any
	if req.AsBot {
		seatID := req.BotUserID
		if seatID == "" {
			seatID = "bot-" + userID
		}
		player, err = h.games.JoinGameAsBot(r.Context(), gameID, seatID, req.Skill, req.Archetype)
	} else {
		player, err = h.games.JoinGame(r.Context(), gameID, userID)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.wsHub.BroadcastToGame(gameID, WSEvent{
		Type:   EventPlayerJoined,
		GameID: gameID,
		Data:   player,
	})
	writeJSON(w, http.StatusCreated, player)
}

// UpdateBotProfile handles PATCH /api/v1/games/{id}/players/{playerId}/bot-profile
func (h *GameHandler) UpdateBotProfile(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")
	playerID := r.PathValue("playerId")

	var req struct {
		Skill     string `json:"skill"`
		Archetype string `json:"archetype"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Skill == "" && req.Archetype == "" {
		writeError(w, http.StatusBadRequest, "skill or archetype is required")
		return
	}

	player, err := h.games.FindPlayer(r.Context(), gameID, playerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if player == nil {
		writeError(w, http.StatusNotFound, "player not found")
		return
	}
	if !player.IsBot {
		writeError(w, http.StatusBadRequest, "player is not a bot")
		return
	}
	if req.Skill == "" {
		req.Skill = player.BotSkill
	}
	if req.Archetype == "" {
		req.Archetype = player.BotArchetype
	}

	if err := h.games.UpdateBotProfile(r.Context(), gameID, playerID, req.Skill, req.Archetype); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// DeleteGame handles DELETE /api/v1/games/{id}
func (h *GameHandler) DeleteGame(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")

	game, err := h.games.FindByID(r.Context(), gameID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if game == nil {
		writeError(w, http.StatusNotFound, "game not found")
		return
	}
	if game.CreatorID != auth.UserIDFromContext(r.Context()) {
		writeError(w, http.StatusForbidden, "only the creator can delete a game")
		return
	}

	if err := h.games.Delete(r.Context(), gameID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
