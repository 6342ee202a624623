package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/movie-catalog/internal/domain"
	"github.com/Clark-Hu/movie-catalog/internal/enrich"
	"github.com/Clark-Hu/movie-catalog/internal/repository"
)

const maxRequestBody = 1 << 20 // 1 MiB

var tooLongMessage = fmt.Sprintf("Ensure this field has no more than %d characters.", domain.MaxTextLength)

// Fields clients may send but which are owned by the service.
var readOnlyFields = map[string]struct{}{
	"id":         {},
	"poster_url": {},
	"poster":     {},
	"created_at": {},
	"updated_at": {},
}

type errorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type movieListResponse struct {
	Count    int64           `json:"count"`
	Next     *string         `json:"next"`
	Previous *string         `json:"previous"`
	Results  []movieResponse `json:"results"`
}

type movieResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Year      *int      `json:"year"`
	Directors *string   `json:"directors"`
	Genre     *string   `json:"genre"`
	Plot      *string   `json:"plot"`
	Rating    *float64  `json:"rating"`
	PosterURL *string   `json:"poster_url"`
	Poster    *string   `json:"poster"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// movieWrite is a decoded create/update body. present records which keys the
// client sent so PATCH can tell "absent" from an explicit null.
type movieWrite struct {
	Title     *string
	Year      *int
	Directors *string
	Genre     *string
	Plot      *string
	Rating    *float64
	present   map[string]bool
}

// validationError carries per-field messages for a 400 response.
type validationError struct {
	fields map[string]string
}

func (e *validationError) Error() string {
	parts := make([]string, 0, len(e.fields))
	for field, msg := range e.fields {
		parts = append(parts, field+": "+msg)
	}
	return strings.Join(parts, "; ")
}

func newValidationError(field, msg string) *validationError {
	return &validationError{fields: map[string]string{field: msg}}
}

func (s *Server) handleListMovies(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filters := buildMovieFilters(query)
	page, pageSize := parsePage(query)
	filters.Limit = pageSize
	filters.Offset = (page - 1) * pageSize

	result, err := s.repo.Movies.List(r.Context(), filters)
	if err != nil {
		s.logger.Printf("list movies error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list movies")
		return
	}
	if page > 1 && len(result.Items) == 0 {
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Invalid page")
		return
	}

	items := make([]movieResponse, 0, len(result.Items))
	for _, movie := range result.Items {
		items = append(items, s.toMovieResponse(movie))
	}

	resp := movieListResponse{
		Count:   result.Total,
		Results: items,
	}
	if int64(filters.Offset+len(result.Items)) < result.Total {
		resp.Next = pageLink(r.URL, page+1)
	}
	if page > 1 {
		resp.Previous = pageLink(r.URL, page-1)
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// buildMovieFilters maps query parameters onto repository predicates.
// Malformed numeric values are dropped rather than rejected.
func buildMovieFilters(query url.Values) repository.MovieListFilters {
	var filters repository.MovieListFilters

	if val := strings.TrimSpace(query.Get("title")); val != "" {
		filters.Title = &val
	}
	if val := strings.TrimSpace(query.Get("genre")); val != "" {
		filters.Genre = &val
	}
	if val := strings.TrimSpace(query.Get("directors")); val != "" {
		filters.Directors = &val
	}
	filters.Year = parseIntParam(query, "year")
	filters.YearMin = parseIntParam(query, "year_min")
	filters.YearMax = parseIntParam(query, "year_max")
	filters.RatingMin = parseFloatParam(query, "rating_min")
	filters.RatingMax = parseFloatParam(query, "rating_max")
	return filters
}

func parseIntParam(query url.Values, key string) *int {
	val := strings.TrimSpace(query.Get(key))
	if val == "" {
		return nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return nil
	}
	return &parsed
}

func parseFloatParam(query url.Values, key string) *float64 {
	val := strings.TrimSpace(query.Get(key))
	if val == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return nil
	}
	return &parsed
}

const maxPage = math.MaxInt / repository.MaxPageSize

// parsePage reads page/page_size, falling back to defaults on bad input.
func parsePage(query url.Values) (int, int) {
	page := 1
	if val := parseIntParam(query, "page"); val != nil && *val > 0 {
		page = *val
	}
	// Keeps (page-1)*size within int range.
	if page > maxPage {
		page = maxPage
	}
	size := repository.DefaultPageSize
	if val := parseIntParam(query, "page_size"); val != nil && *val > 0 {
		size = *val
	}
	if size > repository.MaxPageSize {
		size = repository.MaxPageSize
	}
	return page, size
}

func pageLink(current *url.URL, page int) *string {
	q := current.Query()
	q.Set("page", strconv.Itoa(page))
	link := (&url.URL{Path: current.Path, RawQuery: q.Encode()}).String()
	return &link
}

func (s *Server) handleCreateMovie(w http.ResponseWriter, r *http.Request) {
	req, err := decodeMovieWrite(w, r)
	if err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if !req.present["title"] {
		s.respondValidation(w, newValidationError("title", "This field is required."))
		return
	}

	var movie domain.Movie
	if err := req.applyTo(&movie, true); err != nil {
		s.respondValidation(w, err)
		return
	}

	s.enricher.Enrich(r.Context(), &movie)

	created, err := s.repo.Movies.Create(r.Context(), movie)
	if err != nil {
		s.logger.Printf("create movie error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create movie")
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/movies/%s/", created.ID))
	s.respondJSON(w, http.StatusCreated, s.toMovieResponse(created))
}

func (s *Server) handleGetMovie(w http.ResponseWriter, r *http.Request) {
	movie, ok := s.loadMovie(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, s.toMovieResponse(movie))
}

func (s *Server) handleReplaceMovie(w http.ResponseWriter, r *http.Request) {
	s.updateMovie(w, r, true)
}

func (s *Server) handlePatchMovie(w http.ResponseWriter, r *http.Request) {
	s.updateMovie(w, r, false)
}

// updateMovie serves PUT (replace=true) and PATCH. Enrichment runs again
// while the stored record is still incomplete.
func (s *Server) updateMovie(w http.ResponseWriter, r *http.Request, replace bool) {
	movie, ok := s.loadMovie(w, r)
	if !ok {
		return
	}

	req, err := decodeMovieWrite(w, r)
	if err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if replace && !req.present["title"] {
		s.respondValidation(w, newValidationError("title", "This field is required."))
		return
	}
	if err := req.applyTo(&movie, replace); err != nil {
		s.respondValidation(w, err)
		return
	}

	if enrich.NeedsEnrichment(movie) {
		s.enricher.Enrich(r.Context(), &movie)
	}

	updated, err := s.repo.Movies.Update(r.Context(), movie)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
			return
		}
		s.logger.Printf("update movie error id=%s: %v", movie.ID, err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update movie")
		return
	}
	s.respondJSON(w, http.StatusOK, s.toMovieResponse(updated))
}

func (s *Server) handleDeleteMovie(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.repo.Movies.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
			return
		}
		s.logger.Printf("delete movie error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete movie")
		return
	}

	if deleted.HasPoster() && s.media != nil {
		if err := s.media.Delete(*deleted.Poster); err != nil {
			s.logger.Printf("remove poster file failed id=%s path=%s: %v", deleted.ID, *deleted.Poster, err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) loadMovie(w http.ResponseWriter, r *http.Request) (domain.Movie, bool) {
	movie, err := s.repo.Movies.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
			return domain.Movie{}, false
		}
		s.logger.Printf("fetch movie error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch movie")
		return domain.Movie{}, false
	}
	return movie, true
}

func decodeMovieWrite(w http.ResponseWriter, r *http.Request) (movieWrite, error) {
	req := movieWrite{present: make(map[string]bool)}

	var raw map[string]json.RawMessage
	if err := decodeJSONBody(w, r, &raw); err != nil {
		return req, err
	}
	if raw == nil {
		return req, newValidationError("body", "Expected a JSON object.")
	}

	for key, value := range raw {
		var target interface{}
		switch key {
		case "title":
			target = &req.Title
		case "year":
			target = &req.Year
		case "directors":
			target = &req.Directors
		case "genre":
			target = &req.Genre
		case "plot":
			target = &req.Plot
		case "rating":
			target = &req.Rating
		default:
			if _, ok := readOnlyFields[key]; ok {
				continue
			}
			return req, newValidationError(key, "Unknown field.")
		}
		if err := json.Unmarshal(value, target); err != nil {
			return req, newValidationError(key, "Invalid value.")
		}
		req.present[key] = true
	}
	return req, nil
}

// applyTo validates the request and copies it onto movie. With replace set,
// editable fields missing from the request are cleared.
func (req movieWrite) applyTo(movie *domain.Movie, replace bool) error {
	title := ""
	if req.present["title"] {
		if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
			return newValidationError("title", "Title must not be empty.")
		}
		title = strings.TrimSpace(*req.Title)
		if !domain.FitsText(title) {
			return newValidationError("title", tooLongMessage)
		}
	}
	if req.present["rating"] && req.Rating != nil && !domain.ValidRating(*req.Rating) {
		return newValidationError("rating", fmt.Sprintf("Rating must be between %.0f and %.0f.", domain.MinRating, domain.MaxRating))
	}
	for field, val := range map[string]*string{"directors": req.Directors, "genre": req.Genre} {
		if req.present[field] && val != nil && !domain.FitsText(strings.TrimSpace(*val)) {
			return newValidationError(field, tooLongMessage)
		}
	}

	if req.present["title"] {
		movie.Title = title
	}

	if replace || req.present["year"] {
		movie.Year = req.Year
	}
	if replace || req.present["directors"] {
		movie.Directors = normalizeStringPtr(req.Directors)
	}
	if replace || req.present["genre"] {
		movie.Genre = normalizeStringPtr(req.Genre)
	}
	if replace || req.present["plot"] {
		movie.Plot = normalizeStringPtr(req.Plot)
	}
	if replace || req.present["rating"] {
		movie.Rating = req.Rating
	}
	return nil
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("body must contain a single JSON object")
	}
	return nil
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Printf("failed to encode response: %v", err)
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

func (s *Server) respondValidation(w http.ResponseWriter, err error) {
	var vErr *validationError
	if errors.As(err, &vErr) {
		s.respondJSON(w, http.StatusBadRequest, errorResponse{
			Code:    "VALIDATION_ERROR",
			Message: vErr.Error(),
			Details: vErr.fields,
		})
		return
	}
	s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
}

func (s *Server) respondDecodeError(w http.ResponseWriter, err error) {
	var syntaxError *json.SyntaxError
	var typeError *json.UnmarshalTypeError
	var maxBytesError *http.MaxBytesError
	var vErr *validationError
	switch {
	case errors.As(err, &vErr):
		s.respondValidation(w, vErr)
	case errors.As(err, &syntaxError):
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Malformed JSON payload")
	case errors.As(err, &typeError):
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Expected a JSON object")
	case errors.As(err, &maxBytesError):
		s.respondError(w, http.StatusRequestEntityTooLarge, "VALIDATION_ERROR", "Request body too large")
	case errors.Is(err, io.EOF):
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Request body cannot be empty")
	default:
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Unable to parse request body")
	}
}

func (s *Server) toMovieResponse(movie domain.Movie) movieResponse {
	resp := movieResponse{
		ID:        movie.ID,
		Title:     movie.Title,
		Year:      movie.Year,
		Directors: movie.Directors,
		Genre:     movie.Genre,
		Plot:      movie.Plot,
		Rating:    movie.Rating,
		PosterURL: movie.PosterURL,
		CreatedAt: movie.CreatedAt,
		UpdatedAt: movie.UpdatedAt,
	}
	if movie.HasPoster() {
		access := *movie.Poster
		if s.media != nil {
			access = s.media.URL(*movie.Poster)
		}
		resp.Poster = &access
	}
	return resp
}

func normalizeStringPtr(ptr *string) *string {
	if ptr == nil {
		return nil
	}
	val := strings.TrimSpace(*ptr)
	if val == "" {
		return nil
	}
	return &val
}
