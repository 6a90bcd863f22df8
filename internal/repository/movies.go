package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Clark-Hu/cinerate/internal/domain"
)

// MoviesRepository provides persistence helpers for movie entities.
type MoviesRepository struct {
	db DB
}

const movieColumns = `
    id::text,
    title,
    description,
    genre,
    director,
    release_year,
    created_by::text,
    created_at,
    updated_at
`

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// orderColumns whitelists the sortable columns.
var orderColumns = map[string]string{
	"created_at":   "created_at",
	"release_year": "release_year",
	"title":        "title",
}

// MovieCreateParams bundles the fields required to create a movie.
type MovieCreateParams struct {
	Title       string
	Description string
	Genre       string
	Director    string
	ReleaseYear int
	CreatedBy   string
}

// MovieUpdateParams carries the fields to change; nil leaves the stored value untouched.
type MovieUpdateParams struct {
	Title       *string
	Description *string
	Genre       *string
	Director    *string
	ReleaseYear *int
}

// MovieOrder is one ORDER BY term.
type MovieOrder struct {
	Field string
	Desc  bool
}

// MovieListFilters encapsulates search, ordering and pagination options.
type MovieListFilters struct {
	Search   *string
	Ordering []MovieOrder
	Limit    int
	Offset   int
}

// MovieListResult returns the paginated payload.
type MovieListResult struct {
	Items      []domain.Movie
	Count      int64
	NextOffset *int
}

// Create inserts a new movie row and returns the stored entity.
func (r *MoviesRepository) Create(ctx context.Context, params MovieCreateParams) (domain.Movie, error) {
	query := fmt.Sprintf(`
        INSERT INTO movies (title, description, genre, director, release_year, created_by)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING %s
    `, movieColumns)

	row := r.db.QueryRow(ctx, query, params.Title, params.Description, params.Genre, params.Director, params.ReleaseYear, params.CreatedBy)
	movie, err := scanMovie(row)
	if err != nil {
		return domain.Movie{}, translate(err)
	}
	return movie, nil
}

// GetByID fetches a movie by its identifier.
func (r *MoviesRepository) GetByID(ctx context.Context, id string) (domain.Movie, error) {
	query := fmt.Sprintf(`SELECT %s FROM movies WHERE id = $1`, movieColumns)
	movie, err := scanMovie(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return domain.Movie{}, translate(err)
	}
	return movie, nil
}

// Update applies params to the movie owned by ownerID. A movie that vanished or changed hands
// yields ErrNotFound.
func (r *MoviesRepository) Update(ctx context.Context, id, ownerID string, params MovieUpdateParams) (domain.Movie, error) {
	query := fmt.Sprintf(`
        UPDATE movies
        SET title = COALESCE($3, title),
            description = COALESCE($4, description),
            genre = COALESCE($5, genre),
            director = COALESCE($6, director),
            release_year = COALESCE($7, release_year),
            updated_at = now()
        WHERE id = $1 AND created_by = $2
        RETURNING %s
    `, movieColumns)

	row := r.db.QueryRow(ctx, query, id, ownerID, params.Title, params.Description, params.Genre, params.Director, params.ReleaseYear)
	movie, err := scanMovie(row)
	if err != nil {
		return domain.Movie{}, translate(err)
	}
	return movie, nil
}

// Delete removes the movie owned by ownerID; its ratings go with it through the foreign key.
func (r *MoviesRepository) Delete(ctx context.Context, id, ownerID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM movies WHERE id = $1 AND created_by = $2`, id, ownerID)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns movies that match the provided filters.
func (r *MoviesRepository) List(ctx context.Context, filters MovieListFilters) (MovieListResult, error) {
	if filters.Limit <= 0 {
		filters.Limit = DefaultListLimit
	} else if filters.Limit > MaxListLimit {
		filters.Limit = MaxListLimit
	}
	if filters.Offset < 0 {
		filters.Offset = 0
	}

	orderBy, err := buildOrderBy(filters.Ordering)
	if err != nil {
		return MovieListResult{}, err
	}

	where := make([]string, 0)
	args := make([]any, 0)
	arg := func(value any) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filters.Search != nil && strings.TrimSpace(*filters.Search) != "" {
		p := arg("%" + escapeLike(strings.TrimSpace(*filters.Search)) + "%")
		where = append(where, fmt.Sprintf(
			"(title ILIKE %[1]s OR description ILIKE %[1]s OR genre ILIKE %[1]s OR director ILIKE %[1]s)", p))
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	var count int64
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM movies"+whereClause, args...).Scan(&count); err != nil {
		return MovieListResult{}, fmt.Errorf("count movies: %w", err)
	}

	queryBuilder := strings.Builder{}
	queryBuilder.WriteString("SELECT ")
	queryBuilder.WriteString(movieColumns)
	queryBuilder.WriteString(" FROM movies")
	queryBuilder.WriteString(whereClause)
	queryBuilder.WriteString(" ORDER BY ")
	queryBuilder.WriteString(orderBy)
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", filters.Limit, filters.Offset))

	rows, err := r.db.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return MovieListResult{}, err
	}
	defer rows.Close()

	items := make([]domain.Movie, 0)
	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return MovieListResult{}, err
		}
		items = append(items, movie)
	}
	if err := rows.Err(); err != nil {
		return MovieListResult{}, err
	}

	var nextOffset *int
	if next := filters.Offset + len(items); len(items) == filters.Limit && int64(next) < count {
		nextOffset = &next
	}

	return MovieListResult{Items: items, Count: count, NextOffset: nextOffset}, nil
}

// ValidOrderField reports whether field can be used in MovieOrder.
func ValidOrderField(field string) bool {
	_, ok := orderColumns[field]
	return ok
}

func buildOrderBy(ordering []MovieOrder) (string, error) {
	if len(ordering) == 0 {
		ordering = []MovieOrder{{Field: "created_at", Desc: true}}
	}
	terms := make([]string, 0, len(ordering)+1)
	for _, o := range ordering {
		col, ok := orderColumns[o.Field]
		if !ok {
			return "", fmt.Errorf("unsupported ordering field %q", o.Field)
		}
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		terms = append(terms, col+" "+dir)
	}
	// id keeps pages stable when the requested columns tie
	terms = append(terms, "id ASC")
	return strings.Join(terms, ", "), nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func scanMovie(row pgx.Row) (domain.Movie, error) {
	var movie domain.Movie
	err := row.Scan(
		&movie.ID,
		&movie.Title,
		&movie.Description,
		&movie.Genre,
		&movie.Director,
		&movie.ReleaseYear,
		&movie.CreatedBy,
		&movie.CreatedAt,
		&movie.UpdatedAt,
	)
	if err != nil {
		return domain.Movie{}, err
	}
	return movie, nil
}
