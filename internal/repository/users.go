package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Clark-Hu/cinerate/internal/domain"
)

// UsersRepository stores identity-provider accounts.
type UsersRepository struct {
	db DB
}

const userColumns = `id::text, username, email, password_hash, created_at`

// Create inserts a user. A taken username yields domain.ErrConflict.
func (r *UsersRepository) Create(ctx context.Context, username, email, passwordHash string) (domain.User, error) {
	query := fmt.Sprintf(`
        INSERT INTO users (username, email, password_hash)
        VALUES ($1,$2,$3)
        RETURNING %s
    `, userColumns)

	user, err := scanUser(r.db.QueryRow(ctx, query, username, email, passwordHash))
	if err != nil {
		return domain.User{}, translate(err)
	}
	return user, nil
}

// GetByUsername looks a user up case-insensitively.
func (r *UsersRepository) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE lower(username) = lower($1)`, userColumns)
	user, err := scanUser(r.db.QueryRow(ctx, query, username))
	if err != nil {
		return domain.User{}, translate(err)
	}
	return user, nil
}

// GetByID fetches a user by identifier.
func (r *UsersRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return domain.User{}, translate(err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	return u, err
}
