package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"fieldlog/api/internal/apperr"
	"fieldlog/api/internal/ids"
	"fieldlog/api/internal/models"
)

// pgUniqueViolation is the Postgres error code for a unique constraint hit.
const pgUniqueViolation = "23505"

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// NormalizeEmail is the canonical form enforced by the unique index.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create inserts a user with a freshly hashed secret. A duplicate email
// surfaces as a conflict, never as a raw constraint error. The returned
// user carries no password hash.
func (r *UserRepository) Create(ctx context.Context, name string, email string, passwordHash []byte, role models.Role) (models.User, error) {
	const query = `
		INSERT INTO users (id, name, email, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, name, email, role, created_at
	`

	user := models.User{}
	row := r.pool.QueryRow(ctx, query,
		ids.New(),
		strings.TrimSpace(name),
		NormalizeEmail(email),
		passwordHash,
		role,
	)
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.Role, &user.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return models.User{}, apperr.Conflict("email already registered")
		}
		return models.User{}, err
	}
	return user, nil
}

// FindByEmail returns the full record including the password hash; it is
// the only read that exposes the hash, for credential verification.
// A missing user is reported as found=false, not an error.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, bool, error) {
	const query = `
		SELECT id, name, email, password_hash, role, created_at
		FROM users WHERE email = $1
	`

	var user models.User
	row := r.pool.QueryRow(ctx, query, NormalizeEmail(email))
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, false, nil
		}
		return models.User{}, false, err
	}
	return user, true, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (models.User, bool, error) {
	const query = `
		SELECT id, name, email, role, created_at
		FROM users WHERE id = $1
	`

	var user models.User
	row := r.pool.QueryRow(ctx, query, id)
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.Role, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, false, nil
		}
		return models.User{}, false, err
	}
	return user, true, nil
}

func (r *UserRepository) ListAll(ctx context.Context) ([]models.User, error) {
	const query = `
		SELECT id, name, email, role, created_at
		FROM users
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &user.Role, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// DeleteByID removes the user; the FK cascade removes the user's visits in
// the same transaction.
func (r *UserRepository) DeleteByID(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return apperr.NotFound("user not found")
	}
	return nil
}
