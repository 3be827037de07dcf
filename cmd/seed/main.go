// Command seed wipes the database and loads development fixtures: a known
// test user plus a handful of random users with sample notes.
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"

	"example.com/notes-api/internal/auth"
	"example.com/notes-api/internal/config"
	"example.com/notes-api/internal/db"
	"example.com/notes-api/internal/notes"
	"example.com/notes-api/internal/users"
)

func main() {
	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()

	dbConn, err := db.Open(ctx, cfg.DatabaseURL, cfg.MaxOpenConns, cfg.MaxIdleConns, cfg.ConnMaxLifetime, cfg.ConnMaxIdleTime)
	if err != nil {
		log.Fatal(err)
	}
	defer dbConn.SQL.Close()

	if err := db.Migrate(ctx, dbConn.SQL); err != nil {
		log.Fatal(err)
	}

	fmt.Println("Deleting existing users...")
	// notes go with them via ON DELETE CASCADE
	if _, err := dbConn.SQL.ExecContext(ctx, `DELETE FROM users`); err != nil {
		log.Fatal(err)
	}

	usersRepo, err := users.NewRepository(ctx, dbConn.SQL)
	if err != nil {
		log.Fatal(err)
	}
	defer usersRepo.Close()

	notesRepo, err := notes.NewRepository(ctx, dbConn.SQL)
	if err != nil {
		log.Fatal(err)
	}
	defer notesRepo.Close()

	fmt.Println("Creating users...")

	testUser, err := createUser(ctx, usersRepo, "testuser", "password123", cfg.BcryptCost)
	if err != nil {
		log.Fatal(err)
	}
	created := 1

	for i := 0; i < 5; i++ {
		name := fmt.Sprintf("user_%04d", rand.Intn(10000))
		if _, err := createUser(ctx, usersRepo, name, "password", cfg.BcryptCost); err != nil {
			// random name collided, not worth retrying in a seed script
			continue
		}
		created++
	}

	for i := 1; i <= 15; i++ {
		title := fmt.Sprintf("Note %d", i)
		content := fmt.Sprintf("Sample content for note %d", i)
		if _, err := notesRepo.Create(ctx, testUser.ID, title, content); err != nil {
			log.Fatal(err)
		}
	}

	fmt.Printf("Seeded %d users\n", created)
	fmt.Println(`Test user: username="testuser", password="password123" (15 notes)`)
}

func createUser(ctx context.Context, repo *users.Repository, username, password string, cost int) (users.User, error) {
	hash, err := auth.HashPassword(password, cost)
	if err != nil {
		return users.User{}, err
	}
	return repo.Create(ctx, username, hash)
}
