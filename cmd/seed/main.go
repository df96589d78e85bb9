package main

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/oggyb/talenthub/internal/auth"
	"github.com/oggyb/talenthub/internal/config"
	"github.com/oggyb/talenthub/internal/db"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := config.New()

	database, err := db.NewDB(cfg)
	if err != nil {
		log.Fatalf("failed to init db: %v", err)
	}

	users, err := db.SeedTestData(database)
	if err != nil {
		log.Fatalf("failed to seed: %v", err)
	}

	log.Println("Seeding completed. Development tokens (24h):")
	for _, u := range users {
		tok, err := auth.Issue(cfg.Auth.JWTSecret, u.ID, string(u.Role), 24*time.Hour)
		if err != nil {
			log.Fatalf("failed to issue token for %s: %v", u.Email, err)
		}
		fmt.Printf("%-28s %-9s %s\n", u.Email, u.Role, tok)
	}
}
