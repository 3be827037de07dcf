package users

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrDuplicateUsername is returned by Create when the username is taken.
// Uniqueness is enforced by the DB constraint, not a pre-check, so two
// concurrent signups for the same name cannot both succeed.
var ErrDuplicateUsername = errors.New("username already exists")

type Repository struct {
	db *sql.DB

	stmtByUsername *sql.Stmt
	stmtByID       *sql.Stmt
}

func NewRepository(ctx context.Context, db *sql.DB) (*Repository, error) {
	byName, err := db.PrepareContext(ctx, `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE username = $1
	`)
	if err != nil {
		return nil, err
	}

	byID, err := db.PrepareContext(ctx, `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE id = $1
	`)
	if err != nil {
		return nil, err
	}

	return &Repository{
		db:             db,
		stmtByUsername: byName,
		stmtByID:       byID,
	}, nil
}

func (r *Repository) Close() error {
	for _, s := range []*sql.Stmt{r.stmtByUsername, r.stmtByID} {
		if s != nil {
			_ = s.Close()
		}
	}
	return nil
}

// Create inserts a new user. passwordHash must already be hashed; this layer
// never sees a plaintext password.
func (r *Repository) Create(ctx context.Context, username, passwordHash string) (User, error) {
	var u User
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO users (username, password_hash) VALUES ($1, $2)
		RETURNING id, username, password_hash, created_at
	`, username, passwordHash).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrUniqueViolation {
			return User{}, ErrDuplicateUsername
		}
		return User{}, err
	}
	return u, nil
}

const pgerrUniqueViolation = "23505"

func (r *Repository) FindByUsername(ctx context.Context, username string) (User, error) {
	var u User
	err := r.stmtByUsername.QueryRowContext(ctx, username).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, sql.ErrNoRows
	}
	return u, err
}

func (r *Repository) FindByID(ctx context.Context, id int64) (User, error) {
	var u User
	err := r.stmtByID.QueryRowContext(ctx, id).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, sql.ErrNoRows
	}
	return u, err
}
