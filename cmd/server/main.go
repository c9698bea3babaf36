package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"chess-coach/internal/agent"
	"chess-coach/internal/audit"
	"chess-coach/internal/auth"
	"chess-coach/internal/coach"
	"chess-coach/internal/config"
	"chess-coach/internal/curriculum"
	"chess-coach/internal/db"
	"chess-coach/internal/engine"
	"chess-coach/internal/eventbus"
	"chess-coach/internal/handlers"
	"chess-coach/internal/middleware"
	"chess-coach/internal/progress"
	"chess-coach/internal/session"
)

func main() {
	// Load configuration
	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Starting chess coach server in %s mode", cfg.Environment)

	// Engine and caller-side runner
	defaultDifficulty := engine.Medium
	if cfg.Engine.DefaultDifficulty != "" {
		if defaultDifficulty, err = engine.ParseDifficulty(cfg.Engine.DefaultDifficulty); err != nil {
			log.Fatalf("Invalid engine.defaultDifficulty: %v", err)
		}
	}
	fallback := engine.Easy
	if cfg.Engine.FallbackDifficulty != "" {
		if fallback, err = engine.ParseDifficulty(cfg.Engine.FallbackDifficulty); err != nil {
			log.Fatalf("Invalid engine.fallbackDifficulty: %v", err)
		}
	}
	runner := agent.NewRunner(engine.New(), agent.Config{
		Timeout:         cfg.MoveTimeout(),
		FallbackTimeout: cfg.FallbackTimeout(),
		Fallback:        fallback,
	})

	// Curriculum content; chapter passwords are hashed on load
	passwordService := auth.NewPasswordService(cfg.Curriculum.PasswordCost)
	catalog, err := curriculum.Load(cfg.Curriculum.File, passwordService)
	if err != nil {
		log.Fatalf("Failed to load curriculum: %v", err)
	}
	log.Printf("Curriculum loaded: %d chapters", len(catalog.Chapters()))

	// Persistence: MongoDB when configured, otherwise process memory
	var (
		progressStore progress.Store     = progress.NewMemoryStore()
		gameRepo      session.Repository = session.NewMemoryRepository()
		auditSink     audit.Sink         = audit.LogSink{}
		mongodb       *db.MongoDB
	)
	if cfg.MongoDB.URI != "" {
		mongodb, err = db.NewMongoDB(cfg.MongoDB.URI, cfg.MongoDB.Database)
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			mongodb.Close(ctx)
		}()
		log.Printf("Connected to MongoDB database: %s", cfg.MongoDB.Database)

		progressStore = db.NewProgressStore(mongodb)
		gameRepo = db.NewGameRepository(mongodb)
		auditSink = audit.NewMongoSink(mongodb)
	} else {
		log.Println("No MongoDB configured; state is kept in memory")
	}
	auditLogger := audit.NewLogger(auditSink)

	// Services
	progressService := progress.NewService(progressStore, catalog)
	sessions := session.NewService(gameRepo, runner, progressService)

	sweeper := session.NewSweeper(sessions, cfg.SweepInterval(), cfg.SweepThreshold())
	if mongodb != nil {
		sweeper.SetLocker(mongodb)
	}
	sweeper.Start()
	defer sweeper.Stop()

	// Auth and rate limiting
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.TokenTTL())
	limits := middleware.DefaultLimits()
	if err := middleware.ApplyLimits(limits, cfg.RateLimits); err != nil {
		log.Fatalf("Invalid rate limits: %v", err)
	}
	rateLimiter := middleware.NewRateLimiter(limits)
	defer rateLimiter.Stop()

	// Create handlers
	wsHandler := handlers.NewWebSocketHandler(sessions)
	sessions.SetNotifier(wsHandler)
	defer wsHandler.GetHub().Stop()

	// Relay game updates between instances sharing the database
	if mongodb != nil {
		bus := eventbus.New(mongodb.GameEvents(), wsHandler.GetHub().BroadcastToSession)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := bus.EnsureIndexes(ctx); err != nil {
				log.Printf("Warning: failed to create game_events index: %v", err)
			}
		}()
		bus.Start()
		defer bus.Stop()
		wsHandler.SetPublisher(bus)
	}

	router := handlers.NewRouter(handlers.Handlers{
		Auth:        middleware.NewAuthMiddleware(jwtService),
		RateLimiter: rateLimiter,
		Players:     handlers.NewPlayerHandler(jwtService, progressService, auditLogger),
		Engine:      handlers.NewEngineHandler(runner, coach.New(runner), defaultDifficulty),
		Games:       handlers.NewGameHandler(sessions, defaultDifficulty),
		Curriculum:  handlers.NewCurriculumHandler(catalog, progressService, auditLogger),
		Progress:    handlers.NewProgressHandler(progressService, auditLogger),
		Leaderboard: handlers.NewLeaderboardHandler(progressService),
		WebSocket:   wsHandler,
	})

	// CORS middleware
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.Frontend.URL},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	// Create server
	addr := cfg.Addr()
	server := &http.Server{
		Addr:         addr,
		Handler:      corsHandler.Handler(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second, // engine replies run inside the request
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	auditLogger.Wait()

	log.Println("Server stopped")
}
