package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"

	"github.com/linechime/backend/internal/api"
	"github.com/linechime/backend/internal/config"
	"github.com/linechime/backend/internal/database"
	"github.com/linechime/backend/internal/migrations"
	"github.com/linechime/backend/internal/redis"
	"github.com/linechime/backend/internal/sandbox"
	"github.com/linechime/backend/internal/ws"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The melody library is optional; sessions work without it.
	var db *sqlx.DB
	if cfg.DatabaseURL != "" {
		if cfg.MigrateOnStart {
			log.Println("[MIGRATE] Running DB migrations on startup...")
			if err := migrations.RunMigrations(cfg.DatabaseURL, getMigrationsDir()); err != nil {
				log.Fatalf("Failed to run migrations: %v", err)
			}
		}
		conn, err := database.Connect(cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
		if err != nil {
			log.Printf("[DB] Melody library disabled: %v", err)
		} else {
			db = conn
			defer db.Close()
		}
	}

	// Without Redis, events are delivered in-process and idle sessions are
	// reaped from memory.
	var rdb *goredis.Client
	if cfg.RedisURL != "" {
		conn, err := redis.Connect(cfg.RedisURL)
		if err != nil {
			log.Printf("[REDIS] Running without Redis: %v", err)
		} else {
			rdb = conn
			defer rdb.Close()
		}
	}

	hub := ws.NewHub()
	go hub.Run(ctx)

	mgr := sandbox.NewManager(ctx, rdb, cfg)
	mgr.SetDelivery(hub.Deliver, hub.RoomSize)
	ws.StartEventRelay(ctx, rdb, hub)
	sandbox.StartIdleWorker(ctx, rdb, cfg, mgr)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	api.SetupRoutes(router, db, cfg, mgr, hub)

	port := cfg.Port
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{Addr: ":" + port, Handler: router}

	go func() {
		log.Printf("Starting linechime server on port %s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")
	mgr.CloseAll("shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}

func getMigrationsDir() string {
	if dir := os.Getenv("MIGRATIONS_DIR"); dir != "" {
		return dir
	}
	return "migrations"
}
