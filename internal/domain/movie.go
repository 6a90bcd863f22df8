package domain

import "time"

// Movie represents the canonical movie entity in the database/service.
type Movie struct {
	ID          string
	Title       string
	Description string
	Genre       string
	Director    string
	ReleaseYear int
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OwnedBy reports whether userID created the movie.
func (m Movie) OwnedBy(userID string) bool {
	return userID != "" && m.CreatedBy == userID
}

// MovieDetail is a movie together with its rating summary.
type MovieDetail struct {
	Movie
	Ratings RatingAggregate
}
