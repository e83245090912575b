package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/helixir/paper-discovery-service/internal/discovery"
	"github.com/helixir/paper-discovery-service/internal/domain"
	"github.com/helixir/paper-discovery-service/internal/quality"
)

const maxRequestBodySize = 4 << 20 // 4 MB limit for request bodies

// searchRequest is the JSON request body for a parallel search. The embedded
// criteria are applied to the ranked results.
type searchRequest struct {
	Query               string   `json:"query" validate:"required,max=1000"`
	Sources             []string `json:"sources,omitempty" validate:"max=6,dive,required"`
	MaxResultsPerSource int      `json:"max_results_per_source,omitempty" validate:"min=0,max=100"`
	SmartSearch         *bool    `json:"smart_search,omitempty"`
	SkipCache           bool     `json:"skip_cache,omitempty"`
	Explain             bool     `json:"explain,omitempty"`

	quality.Criteria
}

// rankRequest is the JSON request body for ranking caller-supplied papers.
type rankRequest struct {
	Papers   []*domain.Paper `json:"papers" validate:"required,min=1,max=1000,dive,required"`
	MinScore float64         `json:"min_score,omitempty" validate:"min=0,max=1"`
	Explain  bool            `json:"explain,omitempty"`
}

// newValidator returns a validator that reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// searchPapers handles POST /api/v1/search.
func (s *Server) searchPapers(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.runSearch(w, r, req)
}

// searchPapersQuery handles GET /api/v1/search?q=&sources=&limit=.
func (s *Server) searchPapersQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := searchRequest{
		Query:   q.Get("q"),
		Explain: q.Get("explain") == "true",
	}
	if raw := q.Get("sources"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			if name = strings.TrimSpace(name); name != "" {
				req.Sources = append(req.Sources, name)
			}
		}
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		req.MaxResultsPerSource = limit
	}
	if raw := q.Get("smart"); raw != "" {
		smart, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "smart must be a boolean")
			return
		}
		req.SmartSearch = &smart
	}
	if raw := q.Get("min_quality"); raw != "" {
		minQuality, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "min_quality must be a number")
			return
		}
		req.MinQuality = minQuality
	}
	s.runSearch(w, r, req)
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, req searchRequest) {
	req.Query = strings.TrimSpace(req.Query)
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}
	if req.YearFrom > 0 && req.YearTo > 0 && req.YearTo < req.YearFrom {
		writeError(w, http.StatusBadRequest, "year_to must not be before year_from")
		return
	}

	sources, err := parseSources(req.Sources)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	result, err := s.searcher.Search(r.Context(), discovery.Request{
		Query:               req.Query,
		Sources:             sources,
		MaxResultsPerSource: req.MaxResultsPerSource,
		SmartSearch:         req.SmartSearch,
		SkipCache:           req.SkipCache,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	papers := result.Papers
	if !req.Criteria.IsZero() {
		papers = req.Criteria.Apply(papers)
	}
	writeJSON(w, http.StatusOK, searchResponse{
		SearchID: result.Metrics.SearchID,
		Results:  papersToResponse(papers, s.searcher.Scorer(), req.Explain),
		Count:    len(papers),
		Metrics:  result.Metrics,
	})
}

// rankPapers handles POST /api/v1/rank. It scores caller-supplied papers
// without contacting any source.
func (s *Server) rankPapers(w http.ResponseWriter, r *http.Request) {
	var req rankRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	for _, p := range req.Papers {
		p.Normalize()
	}
	scorer := s.searcher.Scorer()
	ranked := scorer.Rank(req.Papers)
	kept := quality.FilterByQuality(ranked, req.MinScore)

	writeJSON(w, http.StatusOK, rankResponse{
		Results: papersToResponse(kept, scorer, req.Explain),
		Count:   len(kept),
		Dropped: len(ranked) - len(kept),
	})
}

// listSources handles GET /api/v1/sources.
func (s *Server) listSources(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, listSourcesResponse{Sources: s.searcher.Agents()})
}

// decodeJSON reads a size-limited JSON body into v, writing a 400 response
// and returning false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return false
	}
	return true
}

// parseSources resolves source names, rejecting unknown ones.
func parseSources(names []string) ([]domain.SourceType, error) {
	if len(names) == 0 {
		return nil, nil
	}
	out := make([]domain.SourceType, 0, len(names))
	for _, name := range names {
		st, ok := domain.ParseSourceType(name)
		if !ok {
			return nil, domain.NewValidationError("sources", fmt.Sprintf("unsupported source: %s", name))
		}
		out = append(out, st)
	}
	return out, nil
}

// validationMessage renders the first validator failure using JSON field names.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// writeDomainError maps domain errors to HTTP status codes and writes a JSON
// error response. Internal error details are not leaked to clients.
func writeDomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
		} else {
			writeError(w, http.StatusBadRequest, "invalid input")
		}
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate limited")
	case errors.Is(err, domain.ErrServiceUnavailable), errors.Is(err, domain.ErrNoSources):
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "search timed out")
	case errors.Is(err, context.Canceled):
		writeError(w, http.StatusConflict, "operation cancelled")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
