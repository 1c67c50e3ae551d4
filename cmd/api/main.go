package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/pongarena/server/internal/config"
	"github.com/pongarena/server/internal/repository/postgres"
	"github.com/pongarena/server/internal/repository/redis"
	"github.com/pongarena/server/internal/service/cleanup"
	"github.com/pongarena/server/internal/service/identity"
	"github.com/pongarena/server/internal/service/match"
	"github.com/pongarena/server/internal/service/tournament"
	transportHttp "github.com/pongarena/server/internal/transport/http"
	"github.com/pongarena/server/internal/transport/http/middleware"
	"github.com/pongarena/server/internal/transport/websocket"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../.env"); err != nil {
			log.Println("No .env file found")
		}
	}

	cfg := config.LoadConfig()

	db, err := postgres.Open(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	log.Println("Running database migrations...")
	if err := postgres.RunMigrations(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Database migration completed successfully")

	if err := redis.InitRedis(); err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}
	defer redis.CloseRedis()

	// Repositories
	matchRepo := postgres.NewMatchRepo(db)
	tournamentRepo := postgres.NewTournamentRepo(db)
	userRepo := postgres.NewUserRepo(db)
	matchStore := redis.NewMatchStore(redis.RedisClient)
	cache := redis.NewRedisCache(redis.RedisClient)

	// Services
	identityService := identity.NewService(userRepo, cache)
	connManager := websocket.NewConnectionManager()

	completions := make(chan match.CompletionSignal, 64)
	engineCfg := match.DefaultConfig()
	engineCfg.WalkoverGrace = cfg.WalkoverGrace
	engineCfg.RedirectURL = cfg.FrontendURL + "/tournaments"
	hub := match.NewHub(matchStore, matchRepo, tournamentRepo, identityService, connManager, completions, engineCfg)

	tournamentService := tournament.NewService(tournamentRepo, connManager, identityService)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tournamentService.Run(ctx, completions)

	cleanupWorker := cleanup.NewWorker(matchStore, hub, connManager)
	cleanupWorker.Start()

	// HTTP handlers
	tournamentHandler := transportHttp.NewTournamentHandler(tournamentService, tournamentRepo)
	wsHandler := websocket.NewHandler(connManager, hub)

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.CORSMiddleware())

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	protected := router.Group("/")
	protected.Use(middleware.AuthMiddleware())
	{
		protected.GET("/api/tournaments/:id", tournamentHandler.GetTournament)
		protected.POST("/api/tournaments/:id/start", tournamentHandler.StartTournament)
	}

	// WebSocket routes (auth handled inside the WS handler itself)
	router.GET("/ws/game/:match_id", wsHandler.HandleGameWS)
	router.GET("/ws/tournament", wsHandler.HandleTournamentWS)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited gracefully")
}
