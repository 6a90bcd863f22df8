package catalog

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/Clark-Hu/cinerate/internal/domain"
	"github.com/Clark-Hu/cinerate/internal/repository"
)

type mockMovies struct {
	mock.Mock
}

func (m *mockMovies) Create(ctx context.Context, params repository.MovieCreateParams) (domain.Movie, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(domain.Movie), args.Error(1)
}

func (m *mockMovies) GetByID(ctx context.Context, id string) (domain.Movie, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Movie), args.Error(1)
}

func (m *mockMovies) Update(ctx context.Context, id, ownerID string, params repository.MovieUpdateParams) (domain.Movie, error) {
	args := m.Called(ctx, id, ownerID, params)
	return args.Get(0).(domain.Movie), args.Error(1)
}

func (m *mockMovies) Delete(ctx context.Context, id, ownerID string) error {
	return m.Called(ctx, id, ownerID).Error(0)
}

func (m *mockMovies) List(ctx context.Context, filters repository.MovieListFilters) (repository.MovieListResult, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).(repository.MovieListResult), args.Error(1)
}

type mockRatings struct {
	mock.Mock
}

func (m *mockRatings) Upsert(ctx context.Context, params repository.RatingUpsertParams) (domain.Rating, bool, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(domain.Rating), args.Bool(1), args.Error(2)
}

func (m *mockRatings) UpdateComment(ctx context.Context, movieID, userID string, comment *string) (domain.Rating, error) {
	args := m.Called(ctx, movieID, userID, comment)
	return args.Get(0).(domain.Rating), args.Error(1)
}

func (m *mockRatings) ListByMovie(ctx context.Context, movieID string) ([]domain.Rating, error) {
	args := m.Called(ctx, movieID)
	ratings, _ := args.Get(0).([]domain.Rating)
	return ratings, args.Error(1)
}

func (m *mockRatings) ListByUser(ctx context.Context, userID string) ([]domain.Rating, error) {
	args := m.Called(ctx, userID)
	ratings, _ := args.Get(0).([]domain.Rating)
	return ratings, args.Error(1)
}

func (m *mockRatings) Aggregate(ctx context.Context, movieID string) (domain.RatingAggregate, error) {
	args := m.Called(ctx, movieID)
	return args.Get(0).(domain.RatingAggregate), args.Error(1)
}
