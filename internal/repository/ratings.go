package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Clark-Hu/cinerate/internal/domain"
)

// RatingsRepository provides helpers for movie ratings.
type RatingsRepository struct {
	db DB
}

// ratingSelect joins the rater's username onto rows produced by the CTE or table named r.
const ratingSelect = `
    SELECT r.id::text, r.movie_id::text, r.user_id::text, u.username, r.score, r.comment, r.created_at, r.updated_at
`

// RatingUpsertParams captures the payload required to upsert a rating. A nil Comment keeps the
// stored comment on update and stores an empty one on insert.
type RatingUpsertParams struct {
	MovieID string
	UserID  string
	Score   int
	Comment *string
}

// Upsert inserts or updates a rating and indicates whether it was newly created. The unique
// (movie_id, user_id) constraint arbitrates concurrent submissions.
func (r *RatingsRepository) Upsert(ctx context.Context, params RatingUpsertParams) (domain.Rating, bool, error) {
	query := `
        WITH r AS (
            INSERT INTO ratings (movie_id, user_id, score, comment)
            VALUES ($1, $2, $3, COALESCE($4::text, ''))
            ON CONFLICT (movie_id, user_id)
            DO UPDATE SET score = EXCLUDED.score,
                          comment = COALESCE($4::text, ratings.comment),
                          updated_at = now()
            RETURNING id, movie_id, user_id, score, comment, created_at, updated_at, (xmax = 0) AS inserted
        )` + ratingSelect + `, r.inserted
        FROM r JOIN users u ON u.id = r.user_id
    `

	var inserted bool
	rating, err := scanRating(r.db.QueryRow(ctx, query, params.MovieID, params.UserID, params.Score, params.Comment), &inserted)
	if err != nil {
		return domain.Rating{}, false, translate(err)
	}
	return rating, inserted, nil
}

// UpdateComment changes only the comment of an existing rating. ErrNotFound means the pair has
// not been rated yet.
func (r *RatingsRepository) UpdateComment(ctx context.Context, movieID, userID string, comment *string) (domain.Rating, error) {
	query := `
        WITH r AS (
            UPDATE ratings
            SET comment = COALESCE($3::text, comment),
                updated_at = now()
            WHERE movie_id = $1 AND user_id = $2
            RETURNING id, movie_id, user_id, score, comment, created_at, updated_at
        )` + ratingSelect + `
        FROM r JOIN users u ON u.id = r.user_id
    `

	rating, err := scanRating(r.db.QueryRow(ctx, query, movieID, userID, comment))
	if err != nil {
		return domain.Rating{}, translate(err)
	}
	return rating, nil
}

// ListByMovie returns every rating of a movie, newest first.
func (r *RatingsRepository) ListByMovie(ctx context.Context, movieID string) ([]domain.Rating, error) {
	return r.list(ctx, `WHERE r.movie_id = $1`, movieID)
}

// ListByUser returns every rating a user submitted, newest first. Unknown users yield an empty slice.
func (r *RatingsRepository) ListByUser(ctx context.Context, userID string) ([]domain.Rating, error) {
	return r.list(ctx, `WHERE r.user_id = $1`, userID)
}

func (r *RatingsRepository) list(ctx context.Context, where string, arg string) ([]domain.Rating, error) {
	query := ratingSelect + `
        FROM ratings r JOIN users u ON u.id = r.user_id
        ` + where + `
        ORDER BY r.created_at DESC, r.id
    `
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	ratings := make([]domain.Rating, 0)
	for rows.Next() {
		rating, err := scanRating(rows)
		if err != nil {
			return nil, err
		}
		ratings = append(ratings, rating)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err)
	}
	return ratings, nil
}

// Aggregate returns the rating average and count for a movie.
func (r *RatingsRepository) Aggregate(ctx context.Context, movieID string) (domain.RatingAggregate, error) {
	const query = `
        SELECT COALESCE(ROUND(AVG(score)::numeric, 1), 0)::float4 AS average,
               COUNT(*)::int8 AS count
        FROM ratings
        WHERE movie_id = $1
    `

	var agg domain.RatingAggregate
	err := r.db.QueryRow(ctx, query, movieID).Scan(&agg.Average, &agg.Count)
	if err != nil {
		return domain.RatingAggregate{}, fmt.Errorf("aggregate ratings: %w", err)
	}
	return agg, nil
}

// Get retrieves a rating for a specific user/movie combination.
func (r *RatingsRepository) Get(ctx context.Context, movieID, userID string) (domain.Rating, error) {
	query := ratingSelect + `
        FROM ratings r JOIN users u ON u.id = r.user_id
        WHERE r.movie_id = $1 AND r.user_id = $2
    `
	rating, err := scanRating(r.db.QueryRow(ctx, query, movieID, userID))
	if err != nil {
		return domain.Rating{}, translate(err)
	}
	return rating, nil
}

func scanRating(row pgx.Row, extra ...any) (domain.Rating, error) {
	var rating domain.Rating
	dest := []any{
		&rating.ID,
		&rating.MovieID,
		&rating.UserID,
		&rating.Username,
		&rating.Score,
		&rating.Comment,
		&rating.CreatedAt,
		&rating.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return domain.Rating{}, err
	}
	return rating, nil
}
