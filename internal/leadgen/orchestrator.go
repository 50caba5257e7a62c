// Package leadgen drives the end-to-end lead pipeline: price-band search
// expansion, cached visual verification, quality reconciliation, and batch
// assembly.
package leadgen

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/homescout/leadgen/internal/cache"
	"github.com/homescout/leadgen/internal/model"
	"github.com/homescout/leadgen/internal/quality"
	"github.com/homescout/leadgen/internal/vision"
	"github.com/homescout/leadgen/pkg/listings"
)

const (
	// candidateBuffer is the extra candidate count fetched beyond the
	// requested lead count, absorbing validation attrition whose true rate is
	// unknowable in advance.
	candidateBuffer = 15

	// bandYieldEstimate is the assumed result count per price band, used to
	// decide how many leading bands to search.
	bandYieldEstimate = 20

	// validationTTL bounds how long a verification result is reused for a
	// given (coordinates, category) pair.
	validationTTL = 1800 * time.Second

	// validityConfidence is the minimum vision confidence for a candidate to
	// count as a deliverable lead.
	validityConfidence = 60
)

// priceBands partitions a location search into ascending price ranges so the
// provider returns more total results than a single query would.
var priceBands = []listings.Filters{
	{PriceMin: 0, PriceMax: 500_000},
	{PriceMin: 500_000, PriceMax: 1_000_000},
	{PriceMin: 1_000_000, PriceMax: 2_000_000},
	{PriceMin: 2_000_000, PriceMax: 5_000_000},
}

// bedroomFilters is the per-category default bedroom-count filter applied to
// every band search.
var bedroomFilters = map[model.LeadCategory]int{
	model.CategoryPool:     2,
	model.CategoryBackyard: 3,
}

// allowedSizes is the fixed enumeration of requestable lead counts.
var allowedSizes = map[int]bool{10: true, 25: true, 50: true, 100: true}

// Request describes one batch generation run.
type Request struct {
	Location       string             `json:"location"`
	Category       model.LeadCategory `json:"category"`
	RequestedLeads int                `json:"requested_leads"`
}

// CategoryOutcome is one category's result within a multi-category run.
// Exactly one of Result or Error is set.
type CategoryOutcome struct {
	Result *model.BatchResult `json:"result,omitempty"`
	Error  string             `json:"error,omitempty"`
}

// MultiResult keys per-category outcomes by category name. A category-level
// failure never aborts its siblings.
type MultiResult struct {
	Location string                                  `json:"location"`
	Outcomes map[model.LeadCategory]*CategoryOutcome `json:"outcomes"`
}

// Orchestrator assembles quality-scored leads for a (location, category)
// pair.
type Orchestrator struct {
	listings   listings.Client
	verifier   *vision.Verifier
	reconciler *quality.Reconciler
	store      *cache.Store
	now        func() time.Time
}

// NewOrchestrator wires the pipeline. The cache store is injected so tests
// control memoization state explicitly.
func NewOrchestrator(lc listings.Client, v *vision.Verifier, r *quality.Reconciler, store *cache.Store) *Orchestrator {
	return &Orchestrator{
		listings:   lc,
		verifier:   v,
		reconciler: r,
		store:      store,
		now:        time.Now,
	}
}

// WithNow fixes the timestamp source for testing.
func (o *Orchestrator) WithNow(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// Generate runs the full pipeline and delivers up to req.RequestedLeads
// valid leads. Delivering fewer than requested is degraded success, not an
// error; callers distinguish it via DeliveredLeads < RequestedLeads.
func (o *Orchestrator) Generate(ctx context.Context, req Request) (*model.BatchResult, error) {
	if strings.TrimSpace(req.Location) == "" {
		return nil, eris.Wrap(model.ErrInvalidInput, "leadgen: location is required")
	}
	if !req.Category.Valid() {
		return nil, eris.Wrap(model.ErrInvalidInput, "leadgen: unsupported category "+string(req.Category))
	}
	if !allowedSizes[req.RequestedLeads] {
		return nil, eris.Wrapf(model.ErrInvalidRequestSize, "leadgen: requested leads must be one of 10/25/50/100, got %d", req.RequestedLeads)
	}

	log := zap.L().With(
		zap.String("location", req.Location),
		zap.String("category", string(req.Category)),
		zap.Int("requested", req.RequestedLeads),
	)

	fetchTarget := req.RequestedLeads + candidateBuffer
	candidates, bandsSearched, err := o.searchBands(ctx, req, fetchTarget, log)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, eris.Wrap(model.ErrNoPropertiesFound, "leadgen: no properties found for "+req.Location)
	}

	log.Info("candidate pool assembled",
		zap.Int("candidates", len(candidates)),
		zap.Int("bands_searched", bandsSearched),
	)

	leads, stats := o.validate(ctx, req, candidates)
	stats.PriceBandsSearched = bandsSearched
	stats.CandidatesFetched = len(candidates)

	return &model.BatchResult{
		Location:       req.Location,
		Category:       req.Category,
		RequestedLeads: req.RequestedLeads,
		DeliveredLeads: len(leads),
		Leads:          leads,
		Stats:          stats,
		GeneratedAt:    o.now().UTC(),
	}, nil
}

// searchBands queries ascending price bands until the deduplicated pool
// meets the fetch target or bands run out. A single band's failure is logged
// and treated as zero results; it never aborts the search.
func (o *Orchestrator) searchBands(ctx context.Context, req Request, fetchTarget int, log *zap.Logger) ([]model.PropertyCandidate, int, error) {
	bandsNeeded := (fetchTarget + bandYieldEstimate - 1) / bandYieldEstimate
	if bandsNeeded > len(priceBands) {
		bandsNeeded = len(priceBands)
	}

	seen := make(map[string]bool)
	var pool []model.PropertyCandidate
	searched := 0

	for i := 0; i < bandsNeeded; i++ {
		if len(pool) >= fetchTarget {
			break
		}
		if ctx.Err() != nil {
			return nil, searched, eris.Wrap(ctx.Err(), "leadgen: search canceled")
		}

		filters := priceBands[i]
		filters.BedroomsMin = bedroomFilters[req.Category]

		searched++
		found, err := o.listings.Search(ctx, req.Location, filters)
		if err != nil {
			log.Warn("price band search failed, continuing",
				zap.Float64("price_min", filters.PriceMin),
				zap.Float64("price_max", filters.PriceMax),
				zap.Error(err),
			)
			continue
		}

		for _, c := range found {
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			pool = append(pool, c)
		}
	}

	return pool, searched, nil
}

// validate walks candidates in discovery order, verifying each against the
// cache-backed vision pipeline and short-circuiting once the requested lead
// count is reached. Validation is deliberately sequential: it preserves the
// original discovery-order truncation semantics and bounds vision spend to
// exactly the candidates charged. Concurrency lives at the category level
// (GenerateAll) instead.
func (o *Orchestrator) validate(ctx context.Context, req Request, candidates []model.PropertyCandidate) ([]model.Lead, model.BatchStats) {
	var (
		leads      []model.Lead
		stats      model.BatchStats
		confidence int
	)

	log := zap.L().With(zap.String("category", string(req.Category)))

	for _, candidate := range candidates {
		if len(leads) >= req.RequestedLeads {
			break
		}
		if ctx.Err() != nil {
			break
		}

		stats.CandidatesChecked++

		if candidate.Coordinates == nil {
			log.Debug("candidate skipped: missing coordinates", zap.String("property", candidate.ID))
			continue
		}

		record, hit, err := o.lookupOrVerify(ctx, candidate, req.Category)
		if err != nil {
			log.Warn("candidate verification failed",
				zap.String("property", candidate.ID),
				zap.Error(err),
			)
			continue
		}
		if hit {
			stats.CacheHits++
		}

		if reason, ok := validityReason(req.Category, record.Analysis); !ok {
			log.Debug("candidate failed validity predicate",
				zap.String("property", candidate.ID),
				zap.String("reason", reason),
			)
			continue
		}

		report := o.reconciler.Evaluate(candidate, record, req.Category)

		leads = append(leads, model.Lead{
			ID:         uuid.NewString(),
			Category:   req.Category,
			Property:   candidate,
			Validation: *record,
			Quality:    report,
		})
		confidence += record.Analysis.Confidence
	}

	if stats.CandidatesChecked > 0 {
		stats.ValidationRate = float64(len(leads)) / float64(stats.CandidatesChecked)
	}
	if len(leads) > 0 {
		stats.MeanConfidence = float64(confidence) / float64(len(leads))
	}

	return leads, stats
}

// lookupOrVerify returns the cached ValidationRecord for (coordinates,
// category) or runs the verifier and caches the result. The reported bool is
// true on a cache hit.
func (o *Orchestrator) lookupOrVerify(ctx context.Context, candidate model.PropertyCandidate, category model.LeadCategory) (*model.ValidationRecord, bool, error) {
	coords := *candidate.Coordinates
	key := cache.Key("vision", map[string]string{
		"lat":      fmt.Sprintf("%.6f", coords.Latitude),
		"lon":      fmt.Sprintf("%.6f", coords.Longitude),
		"category": string(category),
	})

	if cached, ok := o.store.Get(key); ok {
		if record, ok := cached.(*model.ValidationRecord); ok {
			return record, true, nil
		}
	}

	record, err := o.verifier.Verify(ctx, coords.Latitude, coords.Longitude, category, candidate.Attributes)
	if err != nil {
		return nil, false, err
	}

	o.store.Set(key, record, validationTTL)
	return record, false, nil
}

// validityReason applies the category validity predicate. It returns the
// failure reason when the candidate is not deliverable.
func validityReason(category model.LeadCategory, analysis model.VisionAnalysis) (string, bool) {
	if analysis.Confidence < validityConfidence {
		return fmt.Sprintf("confidence %d below %d", analysis.Confidence, validityConfidence), false
	}

	switch category {
	case model.CategoryPool:
		if !analysis.HasPool {
			return "no pool visible", false
		}
	case model.CategoryBackyard:
		if analysis.IsEmpty {
			return "backyard appears empty", false
		}
		// Impervious surfaces are not developable.
		if analysis.SurfaceType == "concrete" {
			return "backyard surface is concrete", false
		}
	}

	return "", true
}

// GenerateAll runs Generate independently for every category, in parallel.
// Each category failure is captured in its outcome entry; siblings still
// succeed.
func (o *Orchestrator) GenerateAll(ctx context.Context, location string, requestedLeads int) (*MultiResult, error) {
	if strings.TrimSpace(location) == "" {
		return nil, eris.Wrap(model.ErrInvalidInput, "leadgen: location is required")
	}
	if !allowedSizes[requestedLeads] {
		return nil, eris.Wrapf(model.ErrInvalidRequestSize, "leadgen: requested leads must be one of 10/25/50/100, got %d", requestedLeads)
	}

	multi := &MultiResult{
		Location: location,
		Outcomes: make(map[model.LeadCategory]*CategoryOutcome, len(model.AllCategories())),
	}
	for _, category := range model.AllCategories() {
		multi.Outcomes[category] = &CategoryOutcome{}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, category := range model.AllCategories() {
		outcome := multi.Outcomes[category]
		g.Go(func() error {
			result, err := o.Generate(gctx, Request{
				Location:       location,
				Category:       category,
				RequestedLeads: requestedLeads,
			})
			if err != nil {
				outcome.Error = err.Error()
				zap.L().Error("category generation failed",
					zap.String("category", string(category)),
					zap.Error(err),
				)
				return nil // category failures don't abort siblings
			}
			outcome.Result = result
			return nil
		})
	}
	_ = g.Wait()

	return multi, nil
}
