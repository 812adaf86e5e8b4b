package handlers

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"kaku/application/queries"
	querybus "kaku/application/queries/bus"
	pkgerrors "kaku/pkg/errors"
)

// SearchHandler serves GET /projects/{projectID}/search
type SearchHandler struct {
	base
	queryBus *querybus.QueryBus
}

// NewSearchHandler creates a search handler
func NewSearchHandler(queryBus *querybus.QueryBus, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{base: base{errors: errs, logger: logger}, queryBus: queryBus}
}

// Search handles GET /projects/{projectID}/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	q, err := parseSearch(chi.URLParam(r, "projectID"), r.URL.Query())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	result, err := querybus.Ask[*queries.SearchResult](r.Context(), h.queryBus, q)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if result.Items == nil {
		result.Items = []queries.PoIView{}
	}
	h.respondJSON(w, http.StatusOK, result)
}

func parseSearch(projectID string, v url.Values) (queries.SearchPoIsQuery, error) {
	q := queries.SearchPoIsQuery{
		ProjectID:    projectID,
		Text:         v.Get("q"),
		Category:     v.Get("category"),
		CategoryGlob: v.Get("category_glob"),
		Tag:          v.Get("tag"),
		LinkedTo:     v.Get("linked_to"),
		LinkedFrom:   v.Get("linked_from"),
		Variation:    v.Get("variation"),
	}

	var err error
	if s := v.Get("min_similarity"); s != "" {
		f, perr := strconv.ParseFloat(s, 64)
		if perr != nil {
			return q, pkgerrors.NewValidationError("min_similarity must be a number")
		}
		q.MinSimilarity = &f
	}
	if q.IncludeScratched, err = parseBool(v, "include_scratched"); err != nil {
		return q, err
	}
	if q.Explain, err = parseBool(v, "explain"); err != nil {
		return q, err
	}
	if q.Limit, err = parseInt(v, "limit"); err != nil {
		return q, err
	}
	if q.Offset, err = parseInt(v, "offset"); err != nil {
		return q, err
	}
	return q, nil
}

func parseBool(v url.Values, key string) (bool, error) {
	s := v.Get(key)
	if s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, pkgerrors.NewValidationErrorf("%s must be a boolean", key)
	}
	return b, nil
}

func parseInt(v url.Values, key string) (int, error) {
	s := v.Get(key)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, pkgerrors.NewValidationErrorf("%s must be an integer", key)
	}
	return n, nil
}
