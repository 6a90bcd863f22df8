// Package catalog holds the movie store and the rating service. Both enforce caller identity and
// field validation before touching storage; ownership is checked again inside the write statement.
package catalog

import (
	"context"

	"github.com/google/uuid"

	"github.com/Clark-Hu/cinerate/internal/domain"
	"github.com/Clark-Hu/cinerate/internal/repository"
)

// MovieRepository is the movie persistence the services rely on.
type MovieRepository interface {
	Create(ctx context.Context, params repository.MovieCreateParams) (domain.Movie, error)
	GetByID(ctx context.Context, id string) (domain.Movie, error)
	Update(ctx context.Context, id, ownerID string, params repository.MovieUpdateParams) (domain.Movie, error)
	Delete(ctx context.Context, id, ownerID string) error
	List(ctx context.Context, filters repository.MovieListFilters) (repository.MovieListResult, error)
}

// RatingRepository is the rating persistence the services rely on.
type RatingRepository interface {
	Upsert(ctx context.Context, params repository.RatingUpsertParams) (domain.Rating, bool, error)
	UpdateComment(ctx context.Context, movieID, userID string, comment *string) (domain.Rating, error)
	ListByMovie(ctx context.Context, movieID string) ([]domain.Rating, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Rating, error)
	Aggregate(ctx context.Context, movieID string) (domain.RatingAggregate, error)
}

// validID reports whether id can name a stored row.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
