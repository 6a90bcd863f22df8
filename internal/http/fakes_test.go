package httpserver

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"

	"github.com/Clark-Hu/cinerate/internal/catalog"
	"github.com/Clark-Hu/cinerate/internal/config"
	"github.com/Clark-Hu/cinerate/internal/domain"
	"github.com/Clark-Hu/cinerate/internal/identity"
	"github.com/Clark-Hu/cinerate/internal/omdb"
	"github.com/Clark-Hu/cinerate/internal/repository"
)

const (
	ownerToken = "owner-token"
	ownerID    = "1d3b8a53-3f0c-4d8e-9b53-0a7f0c9e5b11"
	movieID    = "8f8c6f2e-2b9f-4a55-9d47-2f0f1b9c1a01"
)

var owner = domain.Principal{UserID: ownerID, Username: "owner"}

type fakeHealth struct{ err error }

func (f fakeHealth) HealthCheck(context.Context) error { return f.err }

type mockMovies struct{ mock.Mock }

func (m *mockMovies) List(ctx context.Context, q catalog.MovieQuery) (repository.MovieListResult, error) {
	args := m.Called(ctx, q)
	return args.Get(0).(repository.MovieListResult), args.Error(1)
}

func (m *mockMovies) Create(ctx context.Context, caller domain.Principal, in catalog.MovieInput) (domain.Movie, error) {
	args := m.Called(ctx, caller, in)
	return args.Get(0).(domain.Movie), args.Error(1)
}

func (m *mockMovies) Get(ctx context.Context, id string) (domain.MovieDetail, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.MovieDetail), args.Error(1)
}

func (m *mockMovies) Update(ctx context.Context, caller domain.Principal, id string, in catalog.MovieInput, partial bool) (domain.Movie, error) {
	args := m.Called(ctx, caller, id, in, partial)
	return args.Get(0).(domain.Movie), args.Error(1)
}

func (m *mockMovies) Delete(ctx context.Context, caller domain.Principal, id string) error {
	return m.Called(ctx, caller, id).Error(0)
}

func (m *mockMovies) Authorize(ctx context.Context, caller domain.Principal, id string) error {
	return m.Called(ctx, caller, id).Error(0)
}

type mockRatings struct{ mock.Mock }

func (m *mockRatings) Submit(ctx context.Context, caller domain.Principal, movieID string, in catalog.RatingInput) (domain.Rating, bool, error) {
	args := m.Called(ctx, caller, movieID, in)
	return args.Get(0).(domain.Rating), args.Bool(1), args.Error(2)
}

func (m *mockRatings) ListForMovie(ctx context.Context, movieID string) ([]domain.Rating, error) {
	args := m.Called(ctx, movieID)
	ratings, _ := args.Get(0).([]domain.Rating)
	return ratings, args.Error(1)
}

func (m *mockRatings) CheckTarget(ctx context.Context, caller domain.Principal, movieID string) error {
	return m.Called(ctx, caller, movieID).Error(0)
}

func (m *mockRatings) ListForUser(ctx context.Context, userID string) ([]domain.Rating, error) {
	args := m.Called(ctx, userID)
	ratings, _ := args.Get(0).([]domain.Rating)
	return ratings, args.Error(1)
}

type mockSearch struct{ mock.Mock }

func (m *mockSearch) Search(ctx context.Context, query string) (omdb.Result, error) {
	args := m.Called(ctx, query)
	return args.Get(0).(omdb.Result), args.Error(1)
}

type mockIdentity struct{ mock.Mock }

func (m *mockIdentity) Register(ctx context.Context, in identity.RegisterInput) (domain.User, identity.TokenPair, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(domain.User), args.Get(1).(identity.TokenPair), args.Error(2)
}

func (m *mockIdentity) Login(ctx context.Context, username, password string) (domain.User, identity.TokenPair, error) {
	args := m.Called(ctx, username, password)
	return args.Get(0).(domain.User), args.Get(1).(identity.TokenPair), args.Error(2)
}

func (m *mockIdentity) Refresh(ctx context.Context, token string) (identity.TokenPair, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(identity.TokenPair), args.Error(1)
}

// ParseAccess accepts ownerToken only.
func (m *mockIdentity) ParseAccess(token string) (domain.Principal, error) {
	if token == ownerToken {
		return owner, nil
	}
	return domain.Principal{}, identity.ErrInvalidToken
}

type testServer struct {
	*Server
	movies   *mockMovies
	ratings  *mockRatings
	search   *mockSearch
	identity *mockIdentity
}

func buildTestServer(tb testing.TB) *testServer {
	tb.Helper()
	cfg := config.Config{
		Port:             "0",
		AllowOrigins:     "*",
		ReadTimeoutSecs:  15,
		WriteTimeoutSecs: 15,
		IdleTimeoutSecs:  60,
	}
	ts := &testServer{
		movies:   &mockMovies{},
		ratings:  &mockRatings{},
		search:   &mockSearch{},
		identity: &mockIdentity{},
	}
	ts.Server = New(cfg, Deps{
		Health:   fakeHealth{},
		Movies:   ts.movies,
		Ratings:  ts.ratings,
		Search:   ts.search,
		Identity: ts.identity,
	}, zerolog.Nop())
	return ts
}

var errBoom = errors.New("boom")
