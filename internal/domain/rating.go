package domain

import "time"

// Rating represents a single user's rating for a movie.
type Rating struct {
	ID        string
	MovieID   string
	UserID    string
	Username  string
	Score     int
	Comment   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RatingAggregate provides average and count for a movie's ratings.
type RatingAggregate struct {
	Average float32
	Count   int64
}
