package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"chess-coach/internal/middleware"
)

// Handlers groups everything the router serves.
type Handlers struct {
	Auth        *middleware.AuthMiddleware
	RateLimiter *middleware.RateLimiter
	Players     *PlayerHandler
	Engine      *EngineHandler
	Games       *GameHandler
	Curriculum  *CurriculumHandler
	Progress    *ProgressHandler
	Leaderboard *LeaderboardHandler
	WebSocket   *WebSocketHandler
}

func NewRouter(h Handlers) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.SecurityHeaders())
	limit := h.RateLimiter.Limit

	// WebSocket routes
	ws := router.PathPrefix("/ws").Subrouter()
	ws.Use(limit(middleware.LimitWebSocket), h.Auth.RequireAuth)
	ws.HandleFunc("/games/{sessionId}", h.WebSocket.HandleWebSocket).Methods("GET")

	// API routes
	api := router.PathPrefix("/api").Subrouter()

	// Player routes
	api.Handle("/players", limit(middleware.LimitPlayers)(http.HandlerFunc(h.Players.CreatePlayer))).Methods("POST")
	api.Handle("/players/me", h.Auth.RequireAuth(http.HandlerFunc(h.Players.DeletePlayer))).Methods("DELETE")

	// Engine routes (public; token holders are limited per player)
	engineApi := api.PathPrefix("/engine").Subrouter()
	engineApi.Use(h.Auth.OptionalAuth, limit(middleware.LimitEngine))
	engineApi.HandleFunc("/move", h.Engine.Move).Methods("POST")
	engineApi.HandleFunc("/analyze", h.Engine.Analyze).Methods("POST")
	engineApi.HandleFunc("/hint", h.Engine.Hint).Methods("POST")
	engineApi.HandleFunc("/describe", h.Engine.Describe).Methods("POST")

	// Game routes (player token required)
	gameApi := api.PathPrefix("/games").Subrouter()
	gameApi.Use(h.Auth.RequireAuth)
	gameApi.Handle("", limit(middleware.LimitGames)(http.HandlerFunc(h.Games.CreateGame))).Methods("POST")
	gameApi.HandleFunc("/{sessionId}", h.Games.GetGame).Methods("GET")
	gameApi.HandleFunc("/{sessionId}/move", h.Games.MakeMove).Methods("POST")
	gameApi.HandleFunc("/{sessionId}/resign", h.Games.ResignGame).Methods("POST")

	// Curriculum routes
	api.HandleFunc("/curriculum", h.Curriculum.GetCurriculum).Methods("GET")
	api.HandleFunc("/curriculum/scenarios/{id}/check", h.Curriculum.CheckScenario).Methods("POST")
	curApi := api.PathPrefix("/curriculum").Subrouter()
	curApi.Use(h.Auth.RequireAuth)
	curApi.Handle("/chapters/{id:[0-9]+}/unlock", limit(middleware.LimitUnlock)(http.HandlerFunc(h.Curriculum.UnlockChapter))).Methods("POST")
	curApi.HandleFunc("/lessons/{id}/complete", h.Curriculum.CompleteLesson).Methods("POST")
	curApi.HandleFunc("/scenarios/{id}/complete", h.Curriculum.CompleteScenario).Methods("POST")
	curApi.HandleFunc("/principles/{id}/complete", h.Curriculum.CompletePrinciple).Methods("POST")

	// Progress routes
	progressApi := api.PathPrefix("/progress").Subrouter()
	progressApi.Use(h.Auth.RequireAuth)
	progressApi.HandleFunc("", h.Progress.GetProgress).Methods("GET")
	progressApi.HandleFunc("/stats", h.Progress.GetStatistics).Methods("GET")
	progressApi.HandleFunc("/reset", h.Progress.ResetProgress).Methods("POST")

	// Documentation
	api.HandleFunc("/docs", ServeAPIDocs).Methods("GET")

	// Leaderboard (public)
	api.HandleFunc("/leaderboard", h.Leaderboard.GetLeaderboard).Methods("GET")

	// Health check
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	return router
}
