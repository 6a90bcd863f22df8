package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/cinerate/internal/catalog"
	"github.com/Clark-Hu/cinerate/internal/domain"
)

type ratingResponse struct {
	ID        string    `json:"id"`
	MovieID   string    `json:"movie"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"user"`
	Score     int       `json:"score"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Server) handleSubmitRating(w http.ResponseWriter, r *http.Request) {
	caller := principalFrom(r.Context())
	if !caller.Authenticated() {
		s.respondServiceError(w, r, domain.ErrUnauthorized)
		return
	}

	movieID := chi.URLParam(r, "id")
	var req catalog.RatingInput
	if err := decodeJSONBody(w, r, &req); err != nil {
		// a missing movie outranks a bad body
		if terr := s.ratings.CheckTarget(r.Context(), caller, movieID); terr != nil {
			s.respondServiceError(w, r, terr)
			return
		}
		s.respondDecodeError(w, err)
		return
	}

	rating, created, err := s.ratings.Submit(r.Context(), caller, movieID, req)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	s.respondJSON(w, status, toRatingResponse(rating))
}

func (s *Server) handleListMovieRatings(w http.ResponseWriter, r *http.Request) {
	ratings, err := s.ratings.ListForMovie(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toRatingResponses(ratings))
}

func (s *Server) handleListUserRatings(w http.ResponseWriter, r *http.Request) {
	ratings, err := s.ratings.ListForUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toRatingResponses(ratings))
}

func toRatingResponse(rating domain.Rating) ratingResponse {
	return ratingResponse{
		ID:        rating.ID,
		MovieID:   rating.MovieID,
		UserID:    rating.UserID,
		Username:  rating.Username,
		Score:     rating.Score,
		Comment:   rating.Comment,
		CreatedAt: rating.CreatedAt,
		UpdatedAt: rating.UpdatedAt,
	}
}

func toRatingResponses(ratings []domain.Rating) []ratingResponse {
	out := make([]ratingResponse, 0, len(ratings))
	for _, rating := range ratings {
		out = append(out, toRatingResponse(rating))
	}
	return out
}
