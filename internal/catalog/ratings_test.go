package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/cinerate/internal/domain"
	"github.com/Clark-Hu/cinerate/internal/metrics"
	"github.com/Clark-Hu/cinerate/internal/repository"
)

func newRatingService() (*RatingService, *mockMovies, *mockRatings) {
	movies := &mockMovies{}
	ratings := &mockRatings{}
	return NewRatingService(movies, ratings, zerolog.Nop()), movies, ratings
}

func TestSubmitCreatesThenUpdates(t *testing.T) {
	svc, movies, ratings := newRatingService()
	movies.On("GetByID", mock.Anything, movieID).Return(stored, nil)
	ratings.On("Upsert", mock.Anything, repository.RatingUpsertParams{MovieID: movieID, UserID: otherID, Score: 7}).
		Return(domain.Rating{ID: "r1", MovieID: movieID, UserID: otherID, Score: 7}, true, nil).Once()
	ratings.On("Upsert", mock.Anything, repository.RatingUpsertParams{MovieID: movieID, UserID: otherID, Score: 9}).
		Return(domain.Rating{ID: "r1", MovieID: movieID, UserID: otherID, Score: 9}, false, nil).Once()

	created := testutil.ToFloat64(metrics.RatingSubmissions.WithLabelValues("created"))
	updated := testutil.ToFloat64(metrics.RatingSubmissions.WithLabelValues("updated"))

	first, isNew, err := svc.Submit(context.Background(), stranger, movieID, RatingInput{Score: intPtr(7)})
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.Equal(t, 7, first.Score)

	second, isNew, err := svc.Submit(context.Background(), stranger, movieID, RatingInput{Score: intPtr(9)})
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 9, second.Score)

	assert.Equal(t, created+1, testutil.ToFloat64(metrics.RatingSubmissions.WithLabelValues("created")))
	assert.Equal(t, updated+1, testutil.ToFloat64(metrics.RatingSubmissions.WithLabelValues("updated")))
	ratings.AssertExpectations(t)
}

func TestSubmitRejectsOutOfRangeScore(t *testing.T) {
	for _, score := range []int{0, 11, -3} {
		svc, movies, ratings := newRatingService()
		movies.On("GetByID", mock.Anything, movieID).Return(stored, nil)

		_, _, err := svc.Submit(context.Background(), stranger, movieID, RatingInput{Score: intPtr(score)})
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr, "score %d", score)
		assert.Contains(t, verr.Fields, "score")
		ratings.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	}
}

func TestSubmitRejectsOutOfRangeScoreForExistingRating(t *testing.T) {
	svc, movies, ratings := newRatingService()
	movies.On("GetByID", mock.Anything, movieID).Return(stored, nil)
	ratings.On("Upsert", mock.Anything, repository.RatingUpsertParams{MovieID: movieID, UserID: otherID, Score: 9}).
		Return(domain.Rating{ID: "r1", MovieID: movieID, UserID: otherID, Score: 9}, true, nil).Once()

	_, created, err := svc.Submit(context.Background(), stranger, movieID, RatingInput{Score: intPtr(9)})
	require.NoError(t, err)
	require.True(t, created)

	_, _, err = svc.Submit(context.Background(), stranger, movieID, RatingInput{Score: intPtr(11)})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "score")
	ratings.AssertNumberOfCalls(t, "Upsert", 1)
	ratings.AssertNotCalled(t, "UpdateComment", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckTarget(t *testing.T) {
	svc, movies, ratings := newRatingService()
	missing := "0b0f3c1e-8f59-4a43-8f0d-5c8e2b7d9a33"
	movies.On("GetByID", mock.Anything, movieID).Return(stored, nil)
	movies.On("GetByID", mock.Anything, missing).Return(domain.Movie{}, domain.ErrNotFound)

	ctx := context.Background()
	assert.ErrorIs(t, svc.CheckTarget(ctx, domain.Principal{}, movieID), domain.ErrUnauthorized)
	assert.ErrorIs(t, svc.CheckTarget(ctx, stranger, "not-a-uuid"), domain.ErrNotFound)
	assert.ErrorIs(t, svc.CheckTarget(ctx, stranger, missing), domain.ErrNotFound)
	assert.NoError(t, svc.CheckTarget(ctx, stranger, movieID))
	ratings.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestSubmitRejectsLongComment(t *testing.T) {
	svc, movies, _ := newRatingService()
	movies.On("GetByID", mock.Anything, movieID).Return(stored, nil)
	long := make([]byte, 1001)
	for i := range long {
		long[i] = 'a'
	}

	_, _, err := svc.Submit(context.Background(), stranger, movieID, RatingInput{Score: intPtr(5), Comment: strPtr(string(long))})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "comment")
}

func TestSubmitCheckOrder(t *testing.T) {
	svc, movies, _ := newRatingService()
	missing := "0b0f3c1e-8f59-4a43-8f0d-5c8e2b7d9a33"
	movies.On("GetByID", mock.Anything, missing).Return(domain.Movie{}, domain.ErrNotFound)

	_, _, err := svc.Submit(context.Background(), domain.Principal{}, movieID, RatingInput{Score: intPtr(99)})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, _, err = svc.Submit(context.Background(), stranger, missing, RatingInput{Score: intPtr(99)})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, _, err = svc.Submit(context.Background(), stranger, "not-a-uuid", RatingInput{Score: intPtr(5)})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSubmitCommentOnly(t *testing.T) {
	svc, movies, ratings := newRatingService()
	movies.On("GetByID", mock.Anything, movieID).Return(stored, nil)
	comment := strPtr("second thoughts")
	ratings.On("UpdateComment", mock.Anything, movieID, otherID, comment).
		Return(domain.Rating{ID: "r1", Score: 7, Comment: "second thoughts"}, nil)

	rating, created, err := svc.Submit(context.Background(), stranger, movieID, RatingInput{Comment: comment})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 7, rating.Score)
}

func TestSubmitFirstWriteNeedsScore(t *testing.T) {
	svc, movies, ratings := newRatingService()
	movies.On("GetByID", mock.Anything, movieID).Return(stored, nil)
	ratings.On("UpdateComment", mock.Anything, movieID, otherID, (*string)(nil)).Return(domain.Rating{}, domain.ErrNotFound)

	_, _, err := svc.Submit(context.Background(), stranger, movieID, RatingInput{})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "this field is required", verr.Fields["score"])
}

func TestSubmitMovieDeletedConcurrently(t *testing.T) {
	svc, movies, ratings := newRatingService()
	movies.On("GetByID", mock.Anything, movieID).Return(stored, nil)
	ratings.On("Upsert", mock.Anything, mock.Anything).Return(domain.Rating{}, false, domain.ErrNotFound)

	_, _, err := svc.Submit(context.Background(), stranger, movieID, RatingInput{Score: intPtr(5)})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListForMovie(t *testing.T) {
	svc, movies, ratings := newRatingService()
	missing := "0b0f3c1e-8f59-4a43-8f0d-5c8e2b7d9a33"
	movies.On("GetByID", mock.Anything, movieID).Return(stored, nil)
	movies.On("GetByID", mock.Anything, missing).Return(domain.Movie{}, domain.ErrNotFound)
	ratings.On("ListByMovie", mock.Anything, movieID).Return([]domain.Rating{{ID: "r1"}}, nil)

	got, err := svc.ListForMovie(context.Background(), movieID)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = svc.ListForMovie(context.Background(), missing)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListForUser(t *testing.T) {
	svc, _, ratings := newRatingService()
	unknown := "0b0f3c1e-8f59-4a43-8f0d-5c8e2b7d9a33"
	ratings.On("ListByUser", mock.Anything, otherID).Return([]domain.Rating{{ID: "r1"}, {ID: "r2"}}, nil)
	ratings.On("ListByUser", mock.Anything, unknown).Return([]domain.Rating{}, nil)
	ratings.On("ListByUser", mock.Anything, ownerID).Return(nil, errors.New("db down"))

	got, err := svc.ListForUser(context.Background(), otherID)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = svc.ListForUser(context.Background(), unknown)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = svc.ListForUser(context.Background(), "garbage")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	_, err = svc.ListForUser(context.Background(), ownerID)
	assert.Error(t, err)
}
