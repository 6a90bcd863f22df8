package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Clark-Hu/cinerate/internal/domain"
	"github.com/Clark-Hu/cinerate/internal/metrics"
	"github.com/Clark-Hu/cinerate/internal/repository"
	"github.com/Clark-Hu/cinerate/internal/validation"
)

// RatingInput is a rating submission. A nil Score keeps the stored score, a nil Comment keeps the
// stored comment.
type RatingInput struct {
	Score   *int    `json:"score" validate:"omitnil,min=1,max=10"`
	Comment *string `json:"comment" validate:"omitnil,max=1000"`
}

// RatingService records one rating per (movie, user) pair.
type RatingService struct {
	movies  MovieRepository
	ratings RatingRepository
	logger  zerolog.Logger
}

// NewRatingService wires the service to its repositories.
func NewRatingService(movies MovieRepository, ratings RatingRepository, logger zerolog.Logger) *RatingService {
	return &RatingService{
		movies:  movies,
		ratings: ratings,
		logger:  logger.With().Str("component", "ratings").Logger(),
	}
}

// CheckTarget reports whether caller may rate movieID: the caller must be known and the movie must exist.
func (s *RatingService) CheckTarget(ctx context.Context, caller domain.Principal, movieID string) error {
	if !caller.Authenticated() {
		return domain.ErrUnauthorized
	}
	if !validID(movieID) {
		return domain.ErrNotFound
	}
	_, err := s.movies.GetByID(ctx, movieID)
	return err
}

// Submit creates the caller's rating for movieID or updates the existing one. The boolean reports
// whether a new rating was created.
func (s *RatingService) Submit(ctx context.Context, caller domain.Principal, movieID string, in RatingInput) (domain.Rating, bool, error) {
	if err := s.CheckTarget(ctx, caller, movieID); err != nil {
		return domain.Rating{}, false, err
	}
	if err := validation.Struct(in); err != nil {
		return domain.Rating{}, false, err
	}

	if in.Score == nil {
		rating, err := s.ratings.UpdateComment(ctx, movieID, caller.UserID, in.Comment)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.Rating{}, false, domain.NewValidationError("score", requiredMessage)
			}
			return domain.Rating{}, false, fmt.Errorf("update rating comment: %w", err)
		}
		s.record(rating, false)
		return rating, false, nil
	}

	rating, created, err := s.ratings.Upsert(ctx, repository.RatingUpsertParams{
		MovieID: movieID,
		UserID:  caller.UserID,
		Score:   *in.Score,
		Comment: in.Comment,
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Rating{}, false, err
		}
		return domain.Rating{}, false, fmt.Errorf("upsert rating: %w", err)
	}
	s.record(rating, created)
	return rating, created, nil
}

func (s *RatingService) record(rating domain.Rating, created bool) {
	result := "updated"
	if created {
		result = "created"
	}
	metrics.RatingSubmissions.WithLabelValues(result).Inc()
	s.logger.Debug().
		Str("movie_id", rating.MovieID).
		Str("user_id", rating.UserID).
		Int("score", rating.Score).
		Str("result", result).
		Msg("rating submitted")
}

// ListForMovie returns a movie's ratings, newest first.
func (s *RatingService) ListForMovie(ctx context.Context, movieID string) ([]domain.Rating, error) {
	if !validID(movieID) {
		return nil, domain.ErrNotFound
	}
	if _, err := s.movies.GetByID(ctx, movieID); err != nil {
		return nil, err
	}
	ratings, err := s.ratings.ListByMovie(ctx, movieID)
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	return ratings, nil
}

// ListForUser returns every rating userID submitted. Unknown users have none.
func (s *RatingService) ListForUser(ctx context.Context, userID string) ([]domain.Rating, error) {
	if !validID(userID) {
		return []domain.Rating{}, nil
	}
	ratings, err := s.ratings.ListByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return []domain.Rating{}, nil
		}
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	return ratings, nil
}
