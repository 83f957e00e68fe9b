package main

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/vidora/vidora-backend/config"
	"github.com/vidora/vidora-backend/pkg/helpers"
)

// seed creates two demo users, a couple of videos, a subscription, and a
// short watch history for local development.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := sql.Open("pgx", cfg.PostgresDSN())
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	password := "password123"
	hash, err := helpers.HashPassword(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	creatorID := upsertUser(db, "democreator", "creator@vidora.dev", "Demo Creator", hash)
	viewerID := upsertUser(db, "demoviewer", "viewer@vidora.dev", "Demo Viewer", hash)
	fmt.Printf("seeded users: creator=%s viewer=%s password=%s\n", creatorID, viewerID, password)

	video1 := upsertVideo(db, creatorID, "Getting started with Vidora", 314)
	video2 := upsertVideo(db, creatorID, "Channel tour", 128)

	if _, err := db.Exec(`
		INSERT INTO subscriptions (subscriber_id, channel_id)
		VALUES ($1, $2)
		ON CONFLICT (subscriber_id, channel_id) DO NOTHING
	`, viewerID, creatorID); err != nil {
		log.Fatalf("failed to seed subscription: %v", err)
	}

	for i, vid := range []string{video1, video2} {
		if _, err := db.Exec(`
			INSERT INTO watch_history (user_id, position, video_id)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_id, position) DO NOTHING
		`, viewerID, i, vid); err != nil {
			log.Fatalf("failed to seed watch history: %v", err)
		}
	}
	fmt.Println("seeded videos, subscription, and watch history")
}

func upsertUser(db *sql.DB, username, email, fullname, hash string) string {
	var id string
	err := db.QueryRow(`
		INSERT INTO users (username, email, fullname, password_hash, avatar_url)
		VALUES ($1, $2, $3, $4, '')
		ON CONFLICT (email) DO UPDATE SET fullname = EXCLUDED.fullname
		RETURNING id
	`, username, email, fullname, hash).Scan(&id)
	if err != nil {
		log.Fatalf("failed to seed user %s: %v", username, err)
	}
	return id
}

func upsertVideo(db *sql.DB, ownerID, title string, duration int) string {
	var id string
	err := db.QueryRow(`
		SELECT id FROM videos WHERE owner_id = $1 AND title = $2
	`, ownerID, title).Scan(&id)
	if err == nil {
		return id
	}
	err = db.QueryRow(`
		INSERT INTO videos (owner_id, title, duration_seconds)
		VALUES ($1, $2, $3)
		RETURNING id
	`, ownerID, title, duration).Scan(&id)
	if err != nil {
		log.Fatalf("failed to seed video %q: %v", title, err)
	}
	return id
}
