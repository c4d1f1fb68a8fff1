package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"game-night/internal/auth"
	"game-night/internal/cache"
	"game-night/internal/catalog"
	"game-night/internal/config"
	"game-night/internal/db"
	"game-night/internal/email"
	"game-night/internal/eventbus"
	"game-night/internal/handlers"
	"game-night/internal/middleware"
	"game-night/internal/models"
	"game-night/internal/services"
	"game-night/internal/stats"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

func main() {
	// Load configuration
	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Starting game-night server in %s mode", cfg.Environment)

	// Connect to MongoDB
	mongodb, err := db.NewMongoDB(cfg.MongoDB.URI, cfg.MongoDB.Database)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		mongodb.Close(ctx)
	}()

	log.Printf("Connected to MongoDB database: %s", cfg.MongoDB.Database)

	// Connect to Redis (optional)
	redisClient, err := cache.Connect(context.Background(), cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	if redisClient == nil {
		log.Println("Redis not configured, leaderboard cache disabled")
	}
	lbCache := cache.NewLeaderboardCache(redisClient)

	// Initialize auth services
	jwtService := auth.NewJWTService(cfg.JWT.AccessSecret, cfg.JWT.RefreshSecret)
	passwordService := auth.NewPasswordService()
	googleOAuth := auth.NewGoogleOAuthService(
		cfg.OAuth.GoogleClientID,
		cfg.OAuth.GoogleClientSecret,
		cfg.OAuth.GoogleRedirectURL,
	)

	// Stats pipeline: Mongo-backed store, aggregator, async recompute worker
	statsStore := stats.NewMongoStore(mongodb)
	aggregator := stats.NewAggregator(statsStore)
	leaderboard := stats.NewLeaderboard(statsStore)

	recomputer := stats.NewRecomputer(aggregator)

	// Live feed over WebSocket, fanned out across instances by the event bus
	feedHandler := handlers.NewFeedHandler()
	bus := eventbus.New(mongodb.WSEvents(), feedHandler.Deliver)
	bus.Start()
	defer bus.Stop()

	// After every recompute: drop cached standings and tell the feed
	recomputer.OnRecompute = func(playerStats *models.PlayerStats) {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		lbCache.Invalidate(ctx)
		if payload := handlers.MarshalStatsUpdated(playerStats.PlayerID.Hex()); payload != nil {
			bus.Publish(eventbus.EventStatsUpdated, payload)
		}
	}
	recomputer.Start()
	defer recomputer.Stop()

	// Periodic full rebuild behind a distributed lock
	repairService := services.NewStatsRepairService(mongodb, aggregator, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		lbCache.Invalidate(ctx)
	})
	repairService.Start()
	defer repairService.Stop()
	go repairService.RunImmediateRepair()

	// Optional session summary emails
	var notifier handlers.Notifier
	if cfg.Email.ResendAPIKey != "" {
		notifier = email.NewResendService(cfg.Email.ResendAPIKey, cfg.Email.FromAddress, cfg.Frontend.URL, cfg.Club.Name)
	} else {
		log.Println("Email not configured, session summaries disabled")
	}

	catalogClient := catalog.NewClient()

	// Create middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService, mongodb)
	loginLimiter := middleware.NewRateLimiter(middleware.LoginRateLimit)
	registerLimiter := middleware.NewRateLimiter(middleware.RegisterRateLimit)
	refreshLimiter := middleware.NewRateLimiter(middleware.RefreshRateLimit)
	oauthLimiter := middleware.NewRateLimiter(middleware.OAuthRateLimit)
	sessionLimiter := middleware.NewRateLimiter(middleware.SessionRecordRateLimit)
	catalogLimiter := middleware.NewRateLimiter(middleware.CatalogSearchRateLimit)
	defer loginLimiter.Stop()
	defer registerLimiter.Stop()
	defer refreshLimiter.Stop()
	defer oauthLimiter.Stop()
	defer sessionLimiter.Stop()
	defer catalogLimiter.Stop()

	// Create handlers
	authHandler := handlers.NewAuthHandler(mongodb, jwtService, passwordService, googleOAuth, cfg.Frontend.URL)
	sessionHandler := handlers.NewSessionHandler(mongodb, recomputer, bus, notifier)
	gameHandler := handlers.NewGameHandler(mongodb, catalogClient)
	playerHandler := handlers.NewPlayerHandler(mongodb, statsStore)
	leaderboardHandler := handlers.NewLeaderboardHandler(leaderboard, lbCache)
	adminHandler := handlers.NewAdminHandler(mongodb, aggregator, lbCache)
	eventHandler := handlers.NewEventHandler(mongodb, cfg.Club.Name)

	// Set up router
	router := mux.NewRouter()
	router.Use(middleware.SecurityHeaders())

	// WebSocket live feed
	router.HandleFunc("/ws/feed", feedHandler.HandleFeed)

	// Public calendar subscription
	router.HandleFunc("/calendar.ics", eventHandler.GetCalendar).Methods("GET")

	// API routes
	api := router.PathPrefix("/api").Subrouter()

	// Auth routes (public, rate limited)
	api.Handle("/auth/register", middleware.RateLimitMiddleware(registerLimiter)(http.HandlerFunc(authHandler.Register))).Methods("POST")
	api.Handle("/auth/login", middleware.RateLimitMiddleware(loginLimiter)(http.HandlerFunc(authHandler.Login))).Methods("POST")
	api.Handle("/auth/refresh", middleware.RateLimitMiddleware(refreshLimiter)(http.HandlerFunc(authHandler.Refresh))).Methods("POST")
	api.Handle("/auth/google", middleware.RateLimitMiddleware(oauthLimiter)(http.HandlerFunc(authHandler.GoogleOAuth))).Methods("GET")
	api.HandleFunc("/auth/google/callback", authHandler.GoogleOAuthCallback).Methods("GET")

	// Auth routes (protected)
	authApi := api.PathPrefix("/auth").Subrouter()
	authApi.Use(authMiddleware.RequireAuth)
	authApi.HandleFunc("/logout", authHandler.Logout).Methods("POST")
	authApi.HandleFunc("/me", authHandler.GetMe).Methods("GET")

	// Session routes: reads are public, recording requires a login
	api.HandleFunc("/sessions", sessionHandler.ListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", sessionHandler.GetSession).Methods("GET")
	api.Handle("/sessions",
		middleware.RateLimitMiddleware(sessionLimiter)(
			authMiddleware.RequireAuth(http.HandlerFunc(sessionHandler.RecordSession)))).Methods("POST")
	api.Handle("/sessions/{id}",
		authMiddleware.RequireAdmin(http.HandlerFunc(sessionHandler.DeleteSession))).Methods("DELETE")

	// Game library: reads public, writes admin
	api.HandleFunc("/games", gameHandler.ListGames).Methods("GET")
	api.HandleFunc("/games/{id}", gameHandler.GetGame).Methods("GET")
	api.Handle("/games", authMiddleware.RequireAdmin(http.HandlerFunc(gameHandler.CreateGame))).Methods("POST")
	api.Handle("/games/{id}", authMiddleware.RequireAdmin(http.HandlerFunc(gameHandler.UpdateGame))).Methods("PUT")
	api.Handle("/games/{id}", authMiddleware.RequireAdmin(http.HandlerFunc(gameHandler.RetireGame))).Methods("DELETE")

	// Catalog proxy (rate limited, requires a login)
	catalogApi := api.PathPrefix("/catalog").Subrouter()
	catalogApi.Use(middleware.RateLimitMiddleware(catalogLimiter), authMiddleware.RequireAuth)
	catalogApi.HandleFunc("/search", gameHandler.SearchCatalog).Methods("GET")
	catalogApi.HandleFunc("/{bggId}", gameHandler.LookupCatalog).Methods("GET")

	// Roster: reads public, writes admin
	api.HandleFunc("/players", playerHandler.ListPlayers).Methods("GET")
	api.HandleFunc("/players/{id}", playerHandler.GetPlayer).Methods("GET")
	api.HandleFunc("/players/{id}/stats", playerHandler.GetPlayerStats).Methods("GET")
	api.Handle("/players", authMiddleware.RequireAdmin(http.HandlerFunc(playerHandler.CreatePlayer))).Methods("POST")
	api.Handle("/players/{id}", authMiddleware.RequireAdmin(http.HandlerFunc(playerHandler.UpdatePlayer))).Methods("PUT")
	api.Handle("/players/{id}", authMiddleware.RequireAdmin(http.HandlerFunc(playerHandler.DeletePlayer))).Methods("DELETE")

	// Leaderboards (public)
	api.HandleFunc("/leaderboard", leaderboardHandler.GetOverall).Methods("GET")
	api.HandleFunc("/leaderboard/monthly", leaderboardHandler.GetMonthly).Methods("GET")
	api.HandleFunc("/leaderboard/awards", leaderboardHandler.GetAwards).Methods("GET")
	api.HandleFunc("/leaderboard/champions", leaderboardHandler.GetChampions).Methods("GET")
	api.HandleFunc("/leaderboard/games/{gameId}", leaderboardHandler.GetForGame).Methods("GET")

	// Events: reads public, writes require a login
	api.HandleFunc("/events", eventHandler.ListEvents).Methods("GET")
	api.Handle("/events", authMiddleware.RequireAuth(http.HandlerFunc(eventHandler.CreateEvent))).Methods("POST")
	api.Handle("/events/{id}", authMiddleware.RequireAuth(http.HandlerFunc(eventHandler.DeleteEvent))).Methods("DELETE")

	// Admin
	api.Handle("/admin/recalculate", authMiddleware.RequireAdmin(http.HandlerFunc(adminHandler.RecalculateStats))).Methods("POST")

	// Health check
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	// CORS middleware
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.Frontend.URL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      corsHandler.Handler(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
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
		log.Fatalf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
