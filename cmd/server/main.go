package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/iron-rails/api/internal/auth"
	"github.com/freeeve/iron-rails/api/internal/bot"
	"github.com/freeeve/iron-rails/api/internal/config"
	"github.com/freeeve/iron-rails/api/internal/handler"
	"github.com/freeeve/iron-rails/api/internal/logger"
	"github.com/freeeve/iron-rails/api/internal/middleware"
	"github.com/freeeve/iron-rails/api/internal/repository/postgres"
	redisrepo "github.com/freeeve/iron-rails/api/internal/repository/redis"
	"github.com/freeeve/iron-rails/api/internal/service"
)

func main() {
	logger.Init()
	cfg := config.Load()
	log.Info().Str("databaseURL", cfg.DatabaseURL).Msg("Config loaded")

	// Database
	db, err := postgres.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Database connection failed")
	}
	defer db.Close()

	// Redis
	redisClient, err := redisrepo.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Redis connection failed")
	}
	defer redisClient.Close()

	// Repos
	gameRepo := postgres.NewGameRepo(db)
	auditRepo := postgres.NewAuditRepo(db)

	// Auth
	jwtMgr := auth.NewJWTManager(cfg.JWTSecret)

	// WebSocket hub
	wsHub := handler.NewHub()

	// Services
	botSvc := service.NewBotService(gameRepo, auditRepo, redisClient, wsHub, bot.NewRng())

	// Handlers
	gameHandler := handler.NewGameHandler(gameRepo, botSvc, wsHub)
	turnHandler := handler.NewTurnHandler(botSvc, wsHub)
	wsHandler := handler.NewWSHandler(wsHub, jwtMgr)

	// Router
	mux := http.NewServeMux()
	authMw := auth.Middleware(jwtMgr)

	// Health
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Dev-only token mint so local clients can talk to the API.
	if os.Getenv("DEV") == "true" {
		mux.HandleFunc("GET /auth/dev", func(w http.ResponseWriter, r *http.Request) {
			userID := r.URL.Query().Get("user_id")
			if userID == "" {
				userID = "dev-user"
			}
			token, err := jwtMgr.GenerateToken(userID)
			if err != nil {
				http.Error(w, `{"error":"token generation failed"}`, http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"token":"` + token + `"}`))
		})
	}

	// Protected API routes
	api := http.NewServeMux()
	api.HandleFunc("POST /games", gameHandler.CreateGame)
	api.HandleFunc("GET /games", gameHandler.ListGames)
	api.HandleFunc("GET /games/{id}", gameHandler.GetGame)
	api.HandleFunc("POST /games/{id}/join", gameHandler.JoinGame)
	api.HandleFunc("DELETE /games/{id}", gameHandler.DeleteGame)
	api.HandleFunc("PATCH /games/{id}/players/{playerId}/bot-profile", gameHandler.UpdateBotProfile)
	api.HandleFunc("POST /games/{id}/bot-turn", turnHandler.TakeBotTurn)
	api.HandleFunc("POST /games/{id}/bot-place", turnHandler.PlaceBotTrain)
	api.HandleFunc("GET /games/{id}/bot-audits", turnHandler.ListAudits)

	mux.Handle("/api/v1/", http.StripPrefix("/api/v1", authMw(api)))

	// WebSocket (auth via query param, not middleware)
	mux.HandleFunc("GET /api/v1/ws", wsHandler.ServeWS)

	// Apply global middleware
	root := middleware.Chain(mux, middleware.Logger, middleware.CORS("*"), middleware.JSON)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Recover active games (rehydrate Redis from Postgres after restart)
	if err := botSvc.RecoverActiveGames(context.Background()); err != nil {
		log.Error().Err(err).Msg("Failed to recover active games (non-fatal)")
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server shutdown error")
	}
	log.Info().Msg("Server stopped")
}
