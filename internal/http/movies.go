package httpserver

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/cinerate/internal/catalog"
	"github.com/Clark-Hu/cinerate/internal/domain"
)

type movieListResponse struct {
	Items      []movieResponse `json:"items"`
	Count      int64           `json:"count"`
	NextOffset *int            `json:"nextOffset,omitempty"`
}

type movieResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Genre       string    `json:"genre"`
	Director    string    `json:"director"`
	ReleaseYear int       `json:"release_year"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type movieDetailResponse struct {
	movieResponse
	AverageRating float32 `json:"average_rating"`
	RatingsCount  int64   `json:"ratings_count"`
}

func (s *Server) handleListMovies(w http.ResponseWriter, r *http.Request) {
	q, err := buildMovieQuery(r.URL.Query())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	result, err := s.movies.List(r.Context(), q)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	items := make([]movieResponse, 0, len(result.Items))
	for _, movie := range result.Items {
		items = append(items, toMovieResponse(movie))
	}
	s.respondJSON(w, http.StatusOK, movieListResponse{
		Items:      items,
		Count:      result.Count,
		NextOffset: result.NextOffset,
	})
}

// buildMovieQuery reads search, ordering, limit and offset. Non-numeric paging values are field
// errors.
func buildMovieQuery(query url.Values) (catalog.MovieQuery, error) {
	q := catalog.MovieQuery{
		Search:   strings.TrimSpace(query.Get("search")),
		Ordering: strings.TrimSpace(query.Get("ordering")),
	}
	verr := &domain.ValidationError{}
	if val := strings.TrimSpace(query.Get("limit")); val != "" {
		limit, err := strconv.Atoi(val)
		if err != nil || limit < 0 {
			verr.Add("limit", "must be a non-negative integer")
		}
		q.Limit = limit
	}
	if val := strings.TrimSpace(query.Get("offset")); val != "" {
		offset, err := strconv.Atoi(val)
		if err != nil || offset < 0 {
			verr.Add("offset", "must be a non-negative integer")
		}
		q.Offset = offset
	}
	if !verr.Empty() {
		return catalog.MovieQuery{}, verr
	}
	return q, nil
}

func (s *Server) handleCreateMovie(w http.ResponseWriter, r *http.Request) {
	caller := principalFrom(r.Context())
	if !caller.Authenticated() {
		s.respondServiceError(w, r, domain.ErrUnauthorized)
		return
	}

	var req catalog.MovieInput
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	movie, err := s.movies.Create(r.Context(), caller, req)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/movies/%s", url.PathEscape(movie.ID)))
	s.respondJSON(w, http.StatusCreated, toMovieResponse(movie))
}

func (s *Server) handleGetMovie(w http.ResponseWriter, r *http.Request) {
	detail, err := s.movies.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, movieDetailResponse{
		movieResponse: toMovieResponse(detail.Movie),
		AverageRating: roundToOneDecimal(detail.Ratings.Average),
		RatingsCount:  detail.Ratings.Count,
	})
}

func (s *Server) handleReplaceMovie(w http.ResponseWriter, r *http.Request) {
	s.updateMovie(w, r, false)
}

func (s *Server) handlePatchMovie(w http.ResponseWriter, r *http.Request) {
	s.updateMovie(w, r, true)
}

func (s *Server) updateMovie(w http.ResponseWriter, r *http.Request, partial bool) {
	caller := principalFrom(r.Context())
	if !caller.Authenticated() {
		s.respondServiceError(w, r, domain.ErrUnauthorized)
		return
	}

	id := chi.URLParam(r, "id")
	var req catalog.MovieInput
	if err := decodeJSONBody(w, r, &req); err != nil {
		if aerr := s.movies.Authorize(r.Context(), caller, id); aerr != nil {
			s.respondServiceError(w, r, aerr)
			return
		}
		s.respondDecodeError(w, err)
		return
	}

	movie, err := s.movies.Update(r.Context(), caller, id, req, partial)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toMovieResponse(movie))
}

func (s *Server) handleDeleteMovie(w http.ResponseWriter, r *http.Request) {
	if err := s.movies.Delete(r.Context(), principalFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toMovieResponse(movie domain.Movie) movieResponse {
	return movieResponse{
		ID:          movie.ID,
		Title:       movie.Title,
		Description: movie.Description,
		Genre:       movie.Genre,
		Director:    movie.Director,
		ReleaseYear: movie.ReleaseYear,
		CreatedBy:   movie.CreatedBy,
		CreatedAt:   movie.CreatedAt,
		UpdatedAt:   movie.UpdatedAt,
	}
}
