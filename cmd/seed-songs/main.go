package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/linechime/backend/internal/config"
	"github.com/linechime/backend/internal/database"
	"github.com/linechime/backend/internal/library"
	"github.com/linechime/backend/internal/music"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	db, err := database.Connect(cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	for _, song := range music.Songs() {
		id, err := library.UpsertDemo(ctx, db, song)
		if err != nil {
			log.Fatalf("Failed to seed %q: %v", song.Name, err)
		}
		log.Printf("✓ Seeded demo song %q id=%d events=%d", song.Name, id, len(song.Melody))
	}
}
