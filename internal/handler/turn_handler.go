package handler

import (
	"errors"
	"net/http"

	"github.com/freeeve/iron-rails/api/internal/service"
)

// TurnHandler exposes bot turn invocation and the decision audit trail.
type TurnHandler struct {
	bots  *service.BotService
	wsHub *Hub
}

// NewTurnHandler creates a TurnHandler.
func NewTurnHandler(bots *service.BotService, wsHub *Hub) *TurnHandler {
	return &TurnHandler{bots: bots, wsHub: wsHub}
}

// TakeBotTurn handles POST /api/v1/games/{id}/bot-turn — runs one full
// turn for the named bot seat. The engine broadcasts turn start and
// completion to game subscribers itself.
func (h *TurnHandler) TakeBotTurn(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")

	var req struct {
		PlayerID string `json:"player_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PlayerID == "" {
		writeError(w, http.StatusBadRequest, "player_id is required")
		return
	}

	result, err := h.bots.TakeBotTurn(r.Context(), gameID, req.PlayerID)
	if err != nil {
		if errors.Is(err, service.ErrTurnInProgress) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// PlaceBotTrain handles POST /api/v1/games/{id}/bot-place — picks and
// persists the bot's starting city.
func (h *TurnHandler) PlaceBotTrain(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")

	var req struct {
		PlayerID string `json:"player_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PlayerID == "" {
		writeError(w, http.StatusBadRequest, "player_id is required")
		return
	}

	if err := h.bots.PlaceBotTrain(r.Context(), gameID, req.PlayerID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.wsHub.BroadcastToGame(gameID, WSEvent{
		Type:   EventTrainPlaced,
		GameID: gameID,
		Data:   map[string]string{"player_id": req.PlayerID},
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "placed"})
}

// ListAudits handles GET /api/v1/games/{id}/bot-audits?player_id=...
func (h *TurnHandler) ListAudits(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")
	playerID := r.URL.Query().Get("player_id")
	if playerID == "" {
		writeError(w, http.StatusBadRequest, "player_id query parameter is required")
		return
	}

	audits, err := h.bots.TurnAudits(r.Context(), gameID, playerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if audits == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, audits)
}
