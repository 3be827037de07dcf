package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"example.com/notes-api/internal/api"
	"example.com/notes-api/internal/auth"
	"example.com/notes-api/internal/config"
	"example.com/notes-api/internal/db"
	"example.com/notes-api/internal/notes"
	"example.com/notes-api/internal/users"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		log.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	if cfg.JWTSecret == "" {
		log.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	ctx := context.Background()

	dbConn, err := db.Open(ctx, cfg.DatabaseURL, cfg.MaxOpenConns, cfg.MaxIdleConns, cfg.ConnMaxLifetime, cfg.ConnMaxIdleTime)
	if err != nil {
		log.Error("open database", "error", err)
		os.Exit(1)
	}
	defer dbConn.SQL.Close()

	if err := db.Migrate(ctx, dbConn.SQL); err != nil {
		log.Error("run migrations", "error", err)
		os.Exit(1)
	}

	usersRepo, err := users.NewRepository(ctx, dbConn.SQL)
	if err != nil {
		log.Error("init users repository", "error", err)
		os.Exit(1)
	}
	defer usersRepo.Close()

	notesRepo, err := notes.NewRepository(ctx, dbConn.SQL)
	if err != nil {
		log.Error("init notes repository", "error", err)
		os.Exit(1)
	}
	defer notesRepo.Close()

	tokens := auth.NewTokenService([]byte(cfg.JWTSecret))
	authMW := auth.Middleware(tokens, auth.ResolverFunc(func(ctx context.Context, id int64) (auth.Identity, error) {
		u, err := usersRepo.FindByID(ctx, id)
		if err != nil {
			return auth.Identity{}, err
		}
		return auth.Identity{ID: u.ID, Username: u.Username}, nil
	}))

	usersH := users.NewHandlers(usersRepo, tokens, cfg.BcryptCost, log)
	notesH := notes.NewHandlers(notesRepo, log)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(log, usersH, notesH, authMW),
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info("notes API listening", "addr", cfg.HTTPAddr)
	if err := srv.ListenAndServe(); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
