package handlers

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"kaku/application/ports"
	"kaku/application/queries"
	"kaku/application/queries/planner"
	"kaku/application/services"
	"kaku/domain/core/entities"
	"kaku/domain/core/valueobjects"
	"kaku/domain/index"
)

const (
	// DefaultSearchLimit applies when a search names no limit
	DefaultSearchLimit = 20

	fetchBatchSize   = 100
	fetchConcurrency = 4
)

// SearchPoIsHandler runs composed searches: exact index filters first, then
// text ranking and pagination over the indexed documents, then the record
// fetch for the returned page.
type SearchPoIsHandler struct {
	graph    *services.GraphService
	pois     ports.PoIRepository
	settings ports.SearchSettings
	logger   *zap.Logger
}

// NewSearchPoIsHandler creates a new search handler
func NewSearchPoIsHandler(graph *services.GraphService, pois ports.PoIRepository, settings ports.SearchSettings, logger *zap.Logger) *SearchPoIsHandler {
	return &SearchPoIsHandler{graph: graph, pois: pois, settings: settings, logger: logger}
}

// Handle executes the search. No match is an empty page, never an error.
func (h *SearchPoIsHandler) Handle(ctx context.Context, q queries.SearchPoIsQuery) (*queries.SearchResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	projectID, err := valueobjects.ParseProjectID(q.ProjectID)
	if err != nil {
		return nil, err
	}
	filter, err := h.filter(q)
	if err != nil {
		return nil, err
	}

	pi, err := h.graph.ProjectIndex(ctx, projectID)
	if err != nil {
		return nil, err
	}

	// Filtering, scoring and ordering use the index snapshot taken under the
	// read lock, so a command between its store commit and its index apply
	// is seen entirely before or entirely after. Only the returned page is
	// loaded from the store.
	var plan *planner.Plan
	var candidates int
	var hits []hit
	err = pi.Read(func(v index.View) error {
		if plan, err = planner.Build(v, filter); err != nil {
			return err
		}
		set := plan.Candidates()
		candidates = set.Len()
		hits = rank(v, set, filter)
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &queries.SearchResult{
		Items:  []queries.PoIView{},
		Total:  len(hits),
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	if q.Explain {
		result.Plan = plan.Explain()
	}
	if filter.Offset < len(hits) {
		end := filter.Offset + filter.Limit
		if end > len(hits) {
			end = len(hits)
		}
		page := hits[filter.Offset:end]
		if result.Items, err = h.render(ctx, page, filter.HasText()); err != nil {
			return nil, err
		}
	}

	h.logger.Debug("Search executed",
		zap.String("projectID", projectID.String()),
		zap.Int("candidates", candidates),
		zap.Int("matches", len(hits)),
	)
	return result, nil
}

// render loads the page records and keeps the ranked order
func (h *SearchPoIsHandler) render(ctx context.Context, page []hit, scored bool) ([]queries.PoIView, error) {
	ids := make([]valueobjects.PoIID, len(page))
	for i, r := range page {
		ids[i] = r.id
	}
	records, err := h.fetch(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[valueobjects.PoIID]*entities.PoI, len(records))
	for _, p := range records {
		byID[p.ID()] = p
	}

	out := make([]queries.PoIView, 0, len(page))
	for _, r := range page {
		p, ok := byID[r.id]
		if !ok {
			h.logger.Warn("Indexed poi missing from store", zap.String("poiID", r.id.String()))
			continue
		}
		view := queries.NewPoIView(p)
		if scored {
			score := r.score
			view.Score = &score
		}
		out = append(out, view)
	}
	return out, nil
}

func (h *SearchPoIsHandler) filter(q queries.SearchPoIsQuery) (planner.Filter, error) {
	f := planner.Filter{
		Text:             q.Text,
		MinSimilarity:    h.settings.DefaultMinSimilarity(),
		CategoryGlob:     q.CategoryGlob,
		Variation:        entities.Variant(q.Variation),
		IncludeScratched: q.IncludeScratched,
		Limit:            q.Limit,
		Offset:           q.Offset,
	}
	if q.MinSimilarity != nil {
		f.MinSimilarity = *q.MinSimilarity
	}
	if f.Limit <= 0 {
		f.Limit = DefaultSearchLimit
	}
	if maxLimit := h.settings.MaxLimit(); maxLimit > 0 && f.Limit > maxLimit {
		f.Limit = maxLimit
	}

	var err error
	if q.Category != "" {
		if f.Category, err = valueobjects.NewCategoryPath(q.Category); err != nil {
			return f, err
		}
	}
	if q.Tag != "" {
		if f.Tag, err = valueobjects.NewTag(q.Tag); err != nil {
			return f, err
		}
	}
	if q.LinkedTo != "" {
		if f.LinkedTo, err = valueobjects.ParsePoIID(q.LinkedTo); err != nil {
			return f, err
		}
	}
	if q.LinkedFrom != "" {
		if f.LinkedFrom, err = valueobjects.ParsePoIID(q.LinkedFrom); err != nil {
			return f, err
		}
	}
	return f, nil
}

// fetch loads the candidate records in bounded concurrent batches
func (h *SearchPoIsHandler) fetch(ctx context.Context, ids []valueobjects.PoIID) ([]*entities.PoI, error) {
	var mu sync.Mutex
	out := make([]*entities.PoI, 0, len(ids))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for start := 0; start < len(ids); start += fetchBatchSize {
		end := start + fetchBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]
		g.Go(func() error {
			records, err := h.pois.GetMany(ctx, batch)
			if err != nil {
				return err
			}
			mu.Lock()
			out = append(out, records...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

type hit struct {
	id      valueobjects.PoIID
	created time.Time
	score   float64
}

// rank applies the variation, scratched and text filters to the indexed
// documents, then orders by score (with text) or creation time, newest
// first, ties by id.
func rank(v index.View, candidates index.Set, f planner.Filter) []hit {
	hits := make([]hit, 0, candidates.Len())
	for id := range candidates {
		d, ok := v.Document(id)
		if !ok {
			continue
		}
		if f.Variation != "" && d.Variant != f.Variation {
			continue
		}
		if d.Scratched && !f.IncludeScratched {
			continue
		}
		score := 0.0
		if f.HasText() {
			score = index.Similarity(f.Text, d.Text())
			if score == 0 || score < f.MinSimilarity {
				continue
			}
		}
		hits = append(hits, hit{id: id, created: d.CreatedAt, score: score})
	}

	sort.Slice(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if !a.created.Equal(b.created) {
			return a.created.After(b.created)
		}
		return a.id.String() < b.id.String()
	})
	return hits
}
