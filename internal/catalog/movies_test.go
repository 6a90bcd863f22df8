package catalog

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/cinerate/internal/domain"
	"github.com/Clark-Hu/cinerate/internal/repository"
)

const (
	movieID = "8f8c6f2e-2b9f-4a55-9d47-2f0f1b9c1a01"
	ownerID = "1d3b8a53-3f0c-4d8e-9b53-0a7f0c9e5b11"
	otherID = "5c2e0a8d-7e6b-4f4f-8a3c-9d1b2e3f4a22"
)

var (
	owner    = domain.Principal{UserID: ownerID, Username: "owner"}
	stranger = domain.Principal{UserID: otherID, Username: "stranger"}
	stored   = domain.Movie{ID: movieID, Title: "Heat", ReleaseYear: 1995, CreatedBy: ownerID}
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func newMovieService() (*MovieService, *mockMovies, *mockRatings) {
	movies := &mockMovies{}
	ratings := &mockRatings{}
	return NewMovieService(movies, ratings, zerolog.Nop()), movies, ratings
}

func TestParseOrdering(t *testing.T) {
	got, err := ParseOrdering(" -release_year, title ")
	require.NoError(t, err)
	assert.Equal(t, []repository.MovieOrder{{Field: "release_year", Desc: true}, {Field: "title"}}, got)

	got, err = ParseOrdering("")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = ParseOrdering("-password_hash")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "ordering")
}

func TestMovieListPassesFilters(t *testing.T) {
	svc, movies, _ := newMovieService()
	search := "heat"
	movies.On("List", mock.Anything, repository.MovieListFilters{
		Search:   &search,
		Ordering: []repository.MovieOrder{{Field: "title"}},
		Limit:    5,
		Offset:   10,
	}).Return(repository.MovieListResult{Items: []domain.Movie{stored}, Count: 11}, nil)

	res, err := svc.List(context.Background(), MovieQuery{Search: " heat ", Ordering: "title", Limit: 5, Offset: 10})
	require.NoError(t, err)
	assert.Len(t, res.Items, 1)
	movies.AssertExpectations(t)
}

func TestMovieListRejectsBadParams(t *testing.T) {
	svc, movies, _ := newMovieService()
	ctx := context.Background()

	var verr *domain.ValidationError
	_, err := svc.List(ctx, MovieQuery{Ordering: "rating"})
	assert.ErrorAs(t, err, &verr)
	_, err = svc.List(ctx, MovieQuery{Offset: -1})
	assert.ErrorAs(t, err, &verr)
	movies.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestMovieCreate(t *testing.T) {
	svc, movies, _ := newMovieService()
	movies.On("Create", mock.Anything, repository.MovieCreateParams{
		Title:       "Heat",
		Genre:       "Crime",
		ReleaseYear: 1995,
		CreatedBy:   ownerID,
	}).Return(stored, nil)

	movie, err := svc.Create(context.Background(), owner, MovieInput{
		Title:       strPtr("  Heat "),
		Genre:       strPtr("Crime"),
		ReleaseYear: intPtr(1995),
	})
	require.NoError(t, err)
	assert.Equal(t, movieID, movie.ID)
	movies.AssertExpectations(t)
}

func TestMovieCreateRequiresCaller(t *testing.T) {
	svc, _, _ := newMovieService()
	_, err := svc.Create(context.Background(), domain.Principal{}, MovieInput{Title: strPtr("Heat"), ReleaseYear: intPtr(1995)})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestMovieCreateValidation(t *testing.T) {
	svc, movies, _ := newMovieService()

	_, err := svc.Create(context.Background(), owner, MovieInput{Title: strPtr("   "), ReleaseYear: intPtr(1500)})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "this field is required", verr.Fields["title"])
	assert.Contains(t, verr.Fields, "release_year")

	_, err = svc.Create(context.Background(), owner, MovieInput{})
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 2)
	movies.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestMovieGet(t *testing.T) {
	svc, movies, ratings := newMovieService()
	movies.On("GetByID", mock.Anything, movieID).Return(stored, nil)
	ratings.On("Aggregate", mock.Anything, movieID).Return(domain.RatingAggregate{Average: 8.5, Count: 2}, nil)

	detail, err := svc.Get(context.Background(), movieID)
	require.NoError(t, err)
	assert.Equal(t, "Heat", detail.Title)
	assert.EqualValues(t, 2, detail.Ratings.Count)

	_, err = svc.Get(context.Background(), "42")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMovieUpdateAuthorizationOrder(t *testing.T) {
	missingID := "0b0f3c1e-8f59-4a43-8f0d-5c8e2b7d9a33"
	cases := []struct {
		name   string
		caller domain.Principal
		id     string
		input  MovieInput
		want   error
	}{
		{"anonymous", domain.Principal{}, movieID, MovieInput{}, domain.ErrUnauthorized},
		{"missing movie for stranger", stranger, missingID, MovieInput{}, domain.ErrNotFound},
		{"malformed id", stranger, "abc", MovieInput{}, domain.ErrNotFound},
		{"stranger with invalid payload", stranger, movieID, MovieInput{Title: strPtr("")}, domain.ErrForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, movies, _ := newMovieService()
			movies.On("GetByID", mock.Anything, movieID).Return(stored, nil).Maybe()
			movies.On("GetByID", mock.Anything, missingID).Return(domain.Movie{}, domain.ErrNotFound).Maybe()

			_, err := svc.Update(context.Background(), tc.caller, tc.id, tc.input, true)
			assert.ErrorIs(t, err, tc.want)

			assert.ErrorIs(t, svc.Delete(context.Background(), tc.caller, tc.id), tc.want)
			assert.ErrorIs(t, svc.Authorize(context.Background(), tc.caller, tc.id), tc.want)
			movies.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			movies.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestMovieAuthorizeOwner(t *testing.T) {
	svc, movies, _ := newMovieService()
	movies.On("GetByID", mock.Anything, movieID).Return(stored, nil)

	assert.NoError(t, svc.Authorize(context.Background(), owner, movieID))
	movies.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMovieUpdatePartial(t *testing.T) {
	svc, movies, _ := newMovieService()
	movies.On("GetByID", mock.Anything, movieID).Return(stored, nil)
	movies.On("Update", mock.Anything, movieID, ownerID, repository.MovieUpdateParams{Genre: strPtr("Thriller")}).
		Return(domain.Movie{ID: movieID, Title: "Heat", Genre: "Thriller", ReleaseYear: 1995, CreatedBy: ownerID}, nil)

	movie, err := svc.Update(context.Background(), owner, movieID, MovieInput{Genre: strPtr("Thriller")}, true)
	require.NoError(t, err)
	assert.Equal(t, "Thriller", movie.Genre)
	movies.AssertExpectations(t)
}

func TestMovieUpdateFullRequiresFields(t *testing.T) {
	svc, movies, _ := newMovieService()
	movies.On("GetByID", mock.Anything, movieID).Return(stored, nil)

	_, err := svc.Update(context.Background(), owner, movieID, MovieInput{Genre: strPtr("Thriller")}, false)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "title")
	assert.Contains(t, verr.Fields, "release_year")
}

func TestMovieUpdateFullClearsOptionalFields(t *testing.T) {
	svc, movies, _ := newMovieService()
	movies.On("GetByID", mock.Anything, movieID).Return(stored, nil)
	movies.On("Update", mock.Anything, movieID, ownerID, repository.MovieUpdateParams{
		Title:       strPtr("Heat"),
		Description: strPtr(""),
		Genre:       strPtr(""),
		Director:    strPtr("Michael Mann"),
		ReleaseYear: intPtr(1995),
	}).Return(stored, nil)

	_, err := svc.Update(context.Background(), owner, movieID, MovieInput{
		Title:       strPtr("Heat"),
		Director:    strPtr("Michael Mann"),
		ReleaseYear: intPtr(1995),
	}, false)
	require.NoError(t, err)
	movies.AssertExpectations(t)
}

func TestMovieDeleteByOwner(t *testing.T) {
	svc, movies, _ := newMovieService()
	movies.On("GetByID", mock.Anything, movieID).Return(stored, nil)
	movies.On("Delete", mock.Anything, movieID, ownerID).Return(nil)

	require.NoError(t, svc.Delete(context.Background(), owner, movieID))
	movies.AssertExpectations(t)
}
