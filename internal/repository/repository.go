package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Clark-Hu/cinerate/internal/domain"
	"github.com/Clark-Hu/cinerate/internal/store"
)

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = domain.ErrNotFound

// Postgres error codes the repositories translate.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeInvalidText         = "22P02"
)

// DB is the subset of pgxpool.Pool the repositories use.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository aggregates all domain-specific repositories.
type Repository struct {
	Users   *UsersRepository
	Movies  *MoviesRepository
	Ratings *RatingsRepository
}

// New constructs a Repository backed by the provided store.
func New(st *store.Store) *Repository {
	return NewWithDB(st.Pool())
}

// NewWithDB allows constructing repositories directly from a pgx pool or a mock.
func NewWithDB(db DB) *Repository {
	return &Repository{
		Users:   &UsersRepository{db: db},
		Movies:  &MoviesRepository{db: db},
		Ratings: &RatingsRepository{db: db},
	}
}

// translate maps driver errors onto domain errors. Malformed identifiers and dangling references
// both mean the referenced row does not exist.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeForeignKeyViolation, codeInvalidText:
			return domain.ErrNotFound
		case codeUniqueViolation:
			return domain.ErrConflict
		}
	}
	return err
}
