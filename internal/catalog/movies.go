package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Clark-Hu/cinerate/internal/domain"
	"github.com/Clark-Hu/cinerate/internal/repository"
	"github.com/Clark-Hu/cinerate/internal/validation"
)

const requiredMessage = "this field is required"

// MovieInput is the writable part of a movie. Nil fields were not supplied.
type MovieInput struct {
	Title       *string `json:"title" validate:"omitnil,notblank,max=200"`
	Description *string `json:"description" validate:"omitnil,max=5000"`
	Genre       *string `json:"genre" validate:"omitnil,max=100"`
	Director    *string `json:"director" validate:"omitnil,max=200"`
	ReleaseYear *int    `json:"release_year" validate:"omitnil,min=1888,max=2100"`
}

// validate checks the supplied fields; a full write also needs title and release_year.
func (in MovieInput) validate(partial bool) error {
	verr := &domain.ValidationError{}
	if err := validation.Struct(in); err != nil {
		if !errors.As(err, &verr) {
			return err
		}
	}
	if !partial {
		if in.Title == nil {
			verr.Add("title", requiredMessage)
		}
		if in.ReleaseYear == nil {
			verr.Add("release_year", requiredMessage)
		}
	}
	if verr.Empty() {
		return nil
	}
	return verr
}

func (in MovieInput) normalize() MovieInput {
	trim := func(s *string) *string {
		if s == nil {
			return nil
		}
		v := strings.TrimSpace(*s)
		return &v
	}
	return MovieInput{
		Title:       trim(in.Title),
		Description: trim(in.Description),
		Genre:       trim(in.Genre),
		Director:    trim(in.Director),
		ReleaseYear: in.ReleaseYear,
	}
}

// MovieQuery carries the list parameters as received from the caller.
type MovieQuery struct {
	Search   string
	Ordering string
	Limit    int
	Offset   int
}

// MovieService is the movie store: public reads, authenticated creation and owner-only mutation.
type MovieService struct {
	movies  MovieRepository
	ratings RatingRepository
	logger  zerolog.Logger
}

// NewMovieService wires the store to its repositories.
func NewMovieService(movies MovieRepository, ratings RatingRepository, logger zerolog.Logger) *MovieService {
	return &MovieService{
		movies:  movies,
		ratings: ratings,
		logger:  logger.With().Str("component", "movies").Logger(),
	}
}

// ParseOrdering turns "field,-field" into order terms. Unknown fields are a validation error.
func ParseOrdering(raw string) ([]repository.MovieOrder, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ordering := make([]repository.MovieOrder, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		desc := strings.HasPrefix(part, "-")
		field := strings.TrimPrefix(part, "-")
		if !repository.ValidOrderField(field) {
			return nil, domain.NewValidationError("ordering", fmt.Sprintf("unsupported ordering %q", part))
		}
		ordering = append(ordering, repository.MovieOrder{Field: field, Desc: desc})
	}
	return ordering, nil
}

// List returns a page of movies matching q.
func (s *MovieService) List(ctx context.Context, q MovieQuery) (repository.MovieListResult, error) {
	ordering, err := ParseOrdering(q.Ordering)
	if err != nil {
		return repository.MovieListResult{}, err
	}
	if q.Limit < 0 {
		return repository.MovieListResult{}, domain.NewValidationError("limit", "must be greater than or equal to 0")
	}
	if q.Offset < 0 {
		return repository.MovieListResult{}, domain.NewValidationError("offset", "must be greater than or equal to 0")
	}

	filters := repository.MovieListFilters{
		Ordering: ordering,
		Limit:    q.Limit,
		Offset:   q.Offset,
	}
	if search := strings.TrimSpace(q.Search); search != "" {
		filters.Search = &search
	}

	res, err := s.movies.List(ctx, filters)
	if err != nil {
		return repository.MovieListResult{}, fmt.Errorf("list movies: %w", err)
	}
	return res, nil
}

// Create stores a new movie owned by the caller.
func (s *MovieService) Create(ctx context.Context, caller domain.Principal, in MovieInput) (domain.Movie, error) {
	if !caller.Authenticated() {
		return domain.Movie{}, domain.ErrUnauthorized
	}
	in = in.normalize()
	if err := in.validate(false); err != nil {
		return domain.Movie{}, err
	}

	params := repository.MovieCreateParams{
		Title:       *in.Title,
		Description: deref(in.Description),
		Genre:       deref(in.Genre),
		Director:    deref(in.Director),
		ReleaseYear: *in.ReleaseYear,
		CreatedBy:   caller.UserID,
	}
	movie, err := s.movies.Create(ctx, params)
	if err != nil {
		return domain.Movie{}, fmt.Errorf("create movie: %w", err)
	}
	s.logger.Info().Str("movie_id", movie.ID).Str("user_id", caller.UserID).Msg("movie created")
	return movie, nil
}

// Get returns a movie with its rating summary.
func (s *MovieService) Get(ctx context.Context, id string) (domain.MovieDetail, error) {
	if !validID(id) {
		return domain.MovieDetail{}, domain.ErrNotFound
	}
	movie, err := s.movies.GetByID(ctx, id)
	if err != nil {
		return domain.MovieDetail{}, err
	}
	agg, err := s.ratings.Aggregate(ctx, id)
	if err != nil {
		return domain.MovieDetail{}, err
	}
	return domain.MovieDetail{Movie: movie, Ratings: agg}, nil
}

// Update changes a movie the caller owns. With partial set only supplied fields are required and
// changed; otherwise title and release_year must be present.
func (s *MovieService) Update(ctx context.Context, caller domain.Principal, id string, in MovieInput, partial bool) (domain.Movie, error) {
	if _, err := s.authorize(ctx, caller, id); err != nil {
		return domain.Movie{}, err
	}
	in = in.normalize()
	if err := in.validate(partial); err != nil {
		return domain.Movie{}, err
	}

	params := repository.MovieUpdateParams{
		Title:       in.Title,
		Description: in.Description,
		Genre:       in.Genre,
		Director:    in.Director,
		ReleaseYear: in.ReleaseYear,
	}
	if !partial {
		// a full replace clears optional fields the caller left out
		params.Description = orEmpty(in.Description)
		params.Genre = orEmpty(in.Genre)
		params.Director = orEmpty(in.Director)
	}

	movie, err := s.movies.Update(ctx, id, caller.UserID, params)
	if err != nil {
		return domain.Movie{}, err
	}
	return movie, nil
}

// Delete removes a movie the caller owns together with its ratings.
func (s *MovieService) Delete(ctx context.Context, caller domain.Principal, id string) error {
	if _, err := s.authorize(ctx, caller, id); err != nil {
		return err
	}
	if err := s.movies.Delete(ctx, id, caller.UserID); err != nil {
		return err
	}
	s.logger.Info().Str("movie_id", id).Str("user_id", caller.UserID).Msg("movie deleted")
	return nil
}

// Authorize reports whether caller may modify movie id without changing anything.
func (s *MovieService) Authorize(ctx context.Context, caller domain.Principal, id string) error {
	_, err := s.authorize(ctx, caller, id)
	return err
}

// authorize runs the mutation gate: identity, existence, then ownership.
func (s *MovieService) authorize(ctx context.Context, caller domain.Principal, id string) (domain.Movie, error) {
	if !caller.Authenticated() {
		return domain.Movie{}, domain.ErrUnauthorized
	}
	if !validID(id) {
		return domain.Movie{}, domain.ErrNotFound
	}
	movie, err := s.movies.GetByID(ctx, id)
	if err != nil {
		return domain.Movie{}, err
	}
	if !movie.OwnedBy(caller.UserID) {
		return domain.Movie{}, domain.ErrForbidden
	}
	return movie, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func orEmpty(s *string) *string {
	v := deref(s)
	return &v
}
