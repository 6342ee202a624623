package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/movie-catalog/internal/domain"
)

// MoviesRepository provides persistence helpers for movie entities.
type MoviesRepository struct {
	pool *pgxpool.Pool
}

const movieColumns = `
    id::text,
    title,
    year,
    directors,
    genre,
    plot,
    rating,
    poster_url,
    poster,
    created_at,
    updated_at
`

// Page size bounds applied by List.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// MovieListFilters encapsulates search predicates and pagination options.
// Nil predicates impose no constraint.
type MovieListFilters struct {
	Title     *string
	Genre     *string
	Directors *string
	Year      *int
	YearMin   *int
	YearMax   *int
	RatingMin *float64
	RatingMax *float64
	Limit     int
	Offset    int
}

// MovieListResult returns one page plus the total number of matches.
type MovieListResult struct {
	Items []domain.Movie
	Total int64
}

// Create inserts a new movie row and returns the stored entity. The poster
// column is never written here.
func (r *MoviesRepository) Create(ctx context.Context, movie domain.Movie) (domain.Movie, error) {
	query := fmt.Sprintf(`
        INSERT INTO movies (title, year, directors, genre, plot, rating, poster_url)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING %s
    `, movieColumns)

	row := r.pool.QueryRow(ctx, query,
		movie.Title, movie.Year, movie.Directors, movie.Genre, movie.Plot, movie.Rating, nullIfBlank(movie.PosterURL))
	return scanMovie(row)
}

// GetByID fetches a movie by its identifier.
func (r *MoviesRepository) GetByID(ctx context.Context, id string) (domain.Movie, error) {
	id, ok := normalizeID(id)
	if !ok {
		return domain.Movie{}, ErrNotFound
	}
	query := fmt.Sprintf(`SELECT %s FROM movies WHERE id = $1`, movieColumns)
	return notFoundOnNoRows(scanMovie(r.pool.QueryRow(ctx, query, id)))
}

// Update writes the editable columns of movie. poster_url only changes when
// it is currently empty and the poster column is left untouched.
func (r *MoviesRepository) Update(ctx context.Context, movie domain.Movie) (domain.Movie, error) {
	id, ok := normalizeID(movie.ID)
	if !ok {
		return domain.Movie{}, ErrNotFound
	}
	query := fmt.Sprintf(`
        UPDATE movies
        SET title = $2,
            year = $3,
            directors = $4,
            genre = $5,
            plot = $6,
            rating = $7,
            poster_url = COALESCE(NULLIF(poster_url, ''), $8),
            updated_at = now()
        WHERE id = $1
        RETURNING %s
    `, movieColumns)

	row := r.pool.QueryRow(ctx, query,
		id, movie.Title, movie.Year, movie.Directors, movie.Genre, movie.Plot, movie.Rating, nullIfBlank(movie.PosterURL))
	return notFoundOnNoRows(scanMovie(row))
}

// SetPoster attaches a stored image path to a movie that has none yet.
func (r *MoviesRepository) SetPoster(ctx context.Context, id, poster string) (domain.Movie, error) {
	id, ok := normalizeID(id)
	if !ok {
		return domain.Movie{}, ErrNotFound
	}
	query := fmt.Sprintf(`
        UPDATE movies
        SET poster = $2,
            updated_at = now()
        WHERE id = $1 AND (poster IS NULL OR poster = '')
        RETURNING %s
    `, movieColumns)

	movie, err := scanMovie(r.pool.QueryRow(ctx, query, id, poster))
	if err == nil {
		return movie, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Movie{}, err
	}
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return domain.Movie{}, getErr
	}
	return domain.Movie{}, ErrPosterExists
}

// Delete removes a movie and returns the row as it was before deletion.
func (r *MoviesRepository) Delete(ctx context.Context, id string) (domain.Movie, error) {
	id, ok := normalizeID(id)
	if !ok {
		return domain.Movie{}, ErrNotFound
	}
	query := fmt.Sprintf(`DELETE FROM movies WHERE id = $1 RETURNING %s`, movieColumns)
	return notFoundOnNoRows(scanMovie(r.pool.QueryRow(ctx, query, id)))
}

// List returns movies that match the provided filters, newest first.
func (r *MoviesRepository) List(ctx context.Context, filters MovieListFilters) (MovieListResult, error) {
	if filters.Limit <= 0 {
		filters.Limit = DefaultPageSize
	} else if filters.Limit > MaxPageSize {
		filters.Limit = MaxPageSize
	}
	if filters.Offset < 0 {
		filters.Offset = 0
	}

	where := make([]string, 0)
	args := make([]interface{}, 0)
	arg := func(value interface{}) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filters.Title != nil && strings.TrimSpace(*filters.Title) != "" {
		where = append(where, fmt.Sprintf("title ILIKE %s", arg(containsPattern(*filters.Title))))
	}
	if filters.Genre != nil && strings.TrimSpace(*filters.Genre) != "" {
		where = append(where, fmt.Sprintf("genre ILIKE %s", arg(containsPattern(*filters.Genre))))
	}
	if filters.Directors != nil {
		where = append(where, fmt.Sprintf("directors = %s", arg(*filters.Directors)))
	}
	if filters.Year != nil {
		where = append(where, fmt.Sprintf("year = %s", arg(*filters.Year)))
	}
	if filters.YearMin != nil {
		where = append(where, fmt.Sprintf("year >= %s", arg(*filters.YearMin)))
	}
	if filters.YearMax != nil {
		where = append(where, fmt.Sprintf("year <= %s", arg(*filters.YearMax)))
	}
	if filters.RatingMin != nil {
		where = append(where, fmt.Sprintf("rating >= %s", arg(*filters.RatingMin)))
	}
	if filters.RatingMax != nil {
		where = append(where, fmt.Sprintf("rating <= %s", arg(*filters.RatingMax)))
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM movies"+whereClause, args...).Scan(&total); err != nil {
		return MovieListResult{}, fmt.Errorf("count movies: %w", err)
	}

	queryBuilder := strings.Builder{}
	queryBuilder.WriteString("SELECT ")
	queryBuilder.WriteString(movieColumns)
	queryBuilder.WriteString(" FROM movies")
	queryBuilder.WriteString(whereClause)
	queryBuilder.WriteString(" ORDER BY created_at DESC, id DESC")
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", filters.Limit, filters.Offset))

	rows, err := r.pool.Query(ctx, queryBuilder.String(), args...)
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

	return MovieListResult{Items: items, Total: total}, nil
}

func scanMovie(row pgx.Row) (domain.Movie, error) {
	var movie domain.Movie
	err := row.Scan(
		&movie.ID,
		&movie.Title,
		&movie.Year,
		&movie.Directors,
		&movie.Genre,
		&movie.Plot,
		&movie.Rating,
		&movie.PosterURL,
		&movie.Poster,
		&movie.CreatedAt,
		&movie.UpdatedAt,
	)
	if err != nil {
		return domain.Movie{}, err
	}
	return movie, nil
}

func notFoundOnNoRows(movie domain.Movie, err error) (domain.Movie, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Movie{}, ErrNotFound
		}
		return domain.Movie{}, err
	}
	return movie, nil
}

// normalizeID canonicalizes a UUID path parameter; anything else cannot match a row.
func normalizeID(id string) (string, bool) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return parsed.String(), true
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(value string) string {
	return "%" + likeEscaper.Replace(strings.TrimSpace(value)) + "%"
}

func nullIfBlank(value *string) *string {
	if domain.IsBlank(value) {
		return nil
	}
	return value
}
