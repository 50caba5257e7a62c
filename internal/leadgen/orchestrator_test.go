package leadgen

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homescout/leadgen/internal/cache"
	"github.com/homescout/leadgen/internal/model"
	"github.com/homescout/leadgen/internal/quality"
	"github.com/homescout/leadgen/internal/vision"
	"github.com/homescout/leadgen/pkg/listings"
	"github.com/homescout/leadgen/pkg/staticmap"
)

// fakeListings serves canned results per price band, keyed by PriceMax.
type fakeListings struct {
	mu      sync.Mutex
	byBand  map[float64][]model.PropertyCandidate
	errBand map[float64]error
	// errFn, when set, overrides byBand entirely.
	errFn func(location string, filters listings.Filters) error
	calls []listings.Filters
}

func (f *fakeListings) Search(_ context.Context, location string, filters listings.Filters) ([]model.PropertyCandidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, filters)

	if f.errFn != nil {
		if err := f.errFn(location, filters); err != nil {
			return nil, err
		}
	}
	if err := f.errBand[filters.PriceMax]; err != nil {
		return nil, err
	}
	return f.byBand[filters.PriceMax], nil
}

// queueProvider replays responses in call order. An entry with a non-nil err
// simulates a transport failure.
type queueProvider struct {
	mu    sync.Mutex
	queue []queueEntry
	last  string
	calls int
}

type queueEntry struct {
	text string
	err  error
}

func (q *queueProvider) Name() string    { return "fake" }
func (q *queueProvider) Available() bool { return true }

func (q *queueProvider) Classify(_ context.Context, _ *staticmap.ImageRef, _ string) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.calls++
	if len(q.queue) > 0 {
		e := q.queue[0]
		q.queue = q.queue[1:]
		if e.err != nil {
			return "", e.err
		}
		return e.text, nil
	}
	return q.last, nil
}

type stubImagery struct{}

func (stubImagery) FetchSatelliteImage(_ context.Context, lat, lon float64) (*staticmap.ImageRef, error) {
	return &staticmap.ImageRef{
		URL:       fmt.Sprintf("https://maps.example.com/img?lat=%.6f&lon=%.6f", lat, lon),
		MediaType: "image/png",
		Data:      []byte{0x89},
	}, nil
}

const confirmedPool = `{"has_pool": true, "confidence": 90, "pool_type": "in_ground"}`

func candidates(prefix string, n int) []model.PropertyCandidate {
	out := make([]model.PropertyCandidate, 0, n)
	for i := 0; i < n; i++ {
		yes := true
		out = append(out, model.PropertyCandidate{
			ID:      fmt.Sprintf("%s-%d", prefix, i),
			Address: fmt.Sprintf("%d Main St", i),
			Coordinates: &model.Coordinates{
				Latitude:  33.0 + float64(i)*0.001,
				Longitude: -112.0 - float64(i)*0.001,
			},
			Price:      250_000,
			Bedrooms:   3,
			Attributes: model.ListingAttributes{HasPool: &yes},
		})
	}
	return out
}

func newTestOrchestrator(lc listings.Client, provider vision.Provider) (*Orchestrator, *cache.Store) {
	store := cache.New()
	verifier := vision.NewVerifier(stubImagery{}, provider)
	return NewOrchestrator(lc, verifier, quality.NewReconciler(), store), store
}

func TestGenerateValidatesRequest(t *testing.T) {
	o, _ := newTestOrchestrator(&fakeListings{}, &queueProvider{last: confirmedPool})

	tests := []struct {
		name     string
		req      Request
		sentinel error
	}{
		{"blank location", Request{Location: "  ", Category: model.CategoryPool, RequestedLeads: 10}, model.ErrInvalidInput},
		{"bad category", Request{Location: "Austin, TX", Category: "garage", RequestedLeads: 10}, model.ErrInvalidInput},
		{"size not in enumeration", Request{Location: "Austin, TX", Category: model.CategoryPool, RequestedLeads: 15}, model.ErrInvalidRequestSize},
		{"zero size", Request{Location: "Austin, TX", Category: model.CategoryPool, RequestedLeads: 0}, model.ErrInvalidRequestSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := o.Generate(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.sentinel))
		})
	}
}

func TestGenerateNoPropertiesFound(t *testing.T) {
	o, _ := newTestOrchestrator(&fakeListings{byBand: map[float64][]model.PropertyCandidate{}}, &queueProvider{last: confirmedPool})

	_, err := o.Generate(context.Background(), Request{
		Location: "Nowhere, KS", Category: model.CategoryPool, RequestedLeads: 10,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrNoPropertiesFound))
}

func TestGenerateHappyPath(t *testing.T) {
	lc := &fakeListings{byBand: map[float64][]model.PropertyCandidate{
		500_000: candidates("a", 30),
	}}
	o, _ := newTestOrchestrator(lc, &queueProvider{last: confirmedPool})

	result, err := o.Generate(context.Background(), Request{
		Location: "Phoenix, AZ", Category: model.CategoryPool, RequestedLeads: 10,
	})
	require.NoError(t, err)

	assert.Equal(t, 10, result.DeliveredLeads)
	assert.Len(t, result.Leads, 10)
	// Short-circuit: validation stops as soon as the request is filled.
	assert.Equal(t, 10, result.Stats.CandidatesChecked)
	assert.Equal(t, 30, result.Stats.CandidatesFetched)
	assert.InDelta(t, 1.0, result.Stats.ValidationRate, 0.001)
	assert.InDelta(t, 90.0, result.Stats.MeanConfidence, 0.001)
	assert.False(t, result.GeneratedAt.IsZero())

	for _, lead := range result.Leads {
		assert.NotEmpty(t, lead.ID)
		assert.Equal(t, model.CategoryPool, lead.Category)
		assert.Equal(t, model.RecommendApprove, lead.Quality.Recommendation)
	}
}

func TestGenerateSearchesBandsUntilTargetMet(t *testing.T) {
	// First band yields only 5; the pool needs 25 (10 requested + buffer), so
	// the second band is searched too.
	lc := &fakeListings{byBand: map[float64][]model.PropertyCandidate{
		500_000:   candidates("a", 5),
		1_000_000: candidates("b", 30),
	}}
	o, _ := newTestOrchestrator(lc, &queueProvider{last: confirmedPool})

	result, err := o.Generate(context.Background(), Request{
		Location: "Phoenix, AZ", Category: model.CategoryPool, RequestedLeads: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Stats.PriceBandsSearched)
	assert.Equal(t, 35, result.Stats.CandidatesFetched)
}

func TestGenerateStopsSearchingOnceTargetMet(t *testing.T) {
	lc := &fakeListings{byBand: map[float64][]model.PropertyCandidate{
		500_000:   candidates("a", 40),
		1_000_000: candidates("b", 40),
	}}
	o, _ := newTestOrchestrator(lc, &queueProvider{last: confirmedPool})

	result, err := o.Generate(context.Background(), Request{
		Location: "Phoenix, AZ", Category: model.CategoryPool, RequestedLeads: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Stats.PriceBandsSearched, "the second band is skipped once the pool covers the target")
}

func TestGenerateBandFailureContinues(t *testing.T) {
	lc := &fakeListings{
		byBand: map[float64][]model.PropertyCandidate{
			1_000_000: candidates("b", 30),
		},
		errBand: map[float64]error{
			500_000: errors.New("listings: unexpected status 500"),
		},
	}
	o, _ := newTestOrchestrator(lc, &queueProvider{last: confirmedPool})

	result, err := o.Generate(context.Background(), Request{
		Location: "Phoenix, AZ", Category: model.CategoryPool, RequestedLeads: 10,
	})
	require.NoError(t, err, "one failed band degrades the pool, never the batch")
	assert.Equal(t, 10, result.DeliveredLeads)
	assert.Equal(t, 2, result.Stats.PriceBandsSearched)
}

func TestGenerateDeduplicatesAcrossBands(t *testing.T) {
	shared := candidates("dup", 5)
	lc := &fakeListings{byBand: map[float64][]model.PropertyCandidate{
		500_000:   shared,
		1_000_000: append(append([]model.PropertyCandidate{}, shared...), candidates("uniq", 25)...),
	}}
	o, _ := newTestOrchestrator(lc, &queueProvider{last: confirmedPool})

	result, err := o.Generate(context.Background(), Request{
		Location: "Phoenix, AZ", Category: model.CategoryPool, RequestedLeads: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 30, result.Stats.CandidatesFetched, "duplicate IDs collapse to one candidate")
}

func TestGenerateAppliesBedroomFilter(t *testing.T) {
	lc := &fakeListings{byBand: map[float64][]model.PropertyCandidate{
		500_000: candidates("a", 30),
	}}
	o, _ := newTestOrchestrator(lc, &queueProvider{last: confirmedPool})

	_, err := o.Generate(context.Background(), Request{
		Location: "Phoenix, AZ", Category: model.CategoryPool, RequestedLeads: 10,
	})
	require.NoError(t, err)
	require.NotEmpty(t, lc.calls)
	assert.Equal(t, 2, lc.calls[0].BedroomsMin)
}

func TestGenerateSkipsCandidatesWithoutCoordinates(t *testing.T) {
	pool := candidates("a", 15)
	pool[0].Coordinates = nil
	pool[1].Coordinates = nil
	lc := &fakeListings{byBand: map[float64][]model.PropertyCandidate{500_000: pool}}

	provider := &queueProvider{last: confirmedPool}
	o, _ := newTestOrchestrator(lc, provider)

	result, err := o.Generate(context.Background(), Request{
		Location: "Phoenix, AZ", Category: model.CategoryPool, RequestedLeads: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 10, result.DeliveredLeads)
	assert.Equal(t, 12, result.Stats.CandidatesChecked)
	assert.Equal(t, 10, provider.calls, "no vision spend on coordinate-less candidates")
}

func TestGenerateVisionFailureSkipsCandidate(t *testing.T) {
	lc := &fakeListings{byBand: map[float64][]model.PropertyCandidate{
		500_000: candidates("a", 12),
	}}
	provider := &queueProvider{
		queue: []queueEntry{{err: errors.New("rate limited")}},
		last:  confirmedPool,
	}
	o, _ := newTestOrchestrator(lc, provider)

	result, err := o.Generate(context.Background(), Request{
		Location: "Phoenix, AZ", Category: model.CategoryPool, RequestedLeads: 10,
	})
	require.NoError(t, err, "a per-candidate vision failure is recovered locally")
	assert.Equal(t, 10, result.DeliveredLeads)
	assert.Equal(t, 11, result.Stats.CandidatesChecked)
}

func TestGenerateValidityPredicateFiltersLeads(t *testing.T) {
	lc := &fakeListings{byBand: map[float64][]model.PropertyCandidate{
		500_000: candidates("a", 13),
	}}
	provider := &queueProvider{
		queue: []queueEntry{
			{text: `{"has_pool": false, "confidence": 95}`}, // no pool visible
			{text: `{"has_pool": true, "confidence": 40}`},  // below validity confidence
			{text: `{"has_pool": true, "confidence": 60}`},  // exactly at the bound: valid
		},
		last: confirmedPool,
	}
	o, _ := newTestOrchestrator(lc, provider)

	result, err := o.Generate(context.Background(), Request{
		Location: "Phoenix, AZ", Category: model.CategoryPool, RequestedLeads: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 10, result.DeliveredLeads)
	assert.Equal(t, 12, result.Stats.CandidatesChecked)
	assert.Equal(t, 60, result.Leads[0].Quality.Confidence)
}

func TestGenerateDegradedSuccess(t *testing.T) {
	// Only 6 candidates exist: the batch succeeds with fewer leads than
	// requested.
	lc := &fakeListings{byBand: map[float64][]model.PropertyCandidate{
		500_000: candidates("a", 6),
	}}
	o, _ := newTestOrchestrator(lc, &queueProvider{last: confirmedPool})

	result, err := o.Generate(context.Background(), Request{
		Location: "Phoenix, AZ", Category: model.CategoryPool, RequestedLeads: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 6, result.DeliveredLeads)
	assert.Equal(t, 10, result.RequestedLeads)
}

func TestGenerateReusesCachedValidation(t *testing.T) {
	pool := candidates("a", 15)
	// Two distinct listings at the same coordinates.
	pool[1].Coordinates = pool[0].Coordinates

	lc := &fakeListings{byBand: map[float64][]model.PropertyCandidate{500_000: pool}}
	provider := &queueProvider{last: confirmedPool}
	o, _ := newTestOrchestrator(lc, provider)

	result, err := o.Generate(context.Background(), Request{
		Location: "Phoenix, AZ", Category: model.CategoryPool, RequestedLeads: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Stats.CacheHits)
	assert.Equal(t, 9, provider.calls, "the shared coordinate pair is verified once")
}

func TestGenerateCacheSharedAcrossBatches(t *testing.T) {
	lc := &fakeListings{byBand: map[float64][]model.PropertyCandidate{
		500_000: candidates("a", 30),
	}}
	provider := &queueProvider{last: confirmedPool}
	o, _ := newTestOrchestrator(lc, provider)

	req := Request{Location: "Phoenix, AZ", Category: model.CategoryPool, RequestedLeads: 10}

	first, err := o.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 0, first.Stats.CacheHits)

	second, err := o.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 10, second.Stats.CacheHits)
	assert.Equal(t, 10, provider.calls, "the second batch is served entirely from cache")
}

func TestGenerateAllIsolatesCategoryFailures(t *testing.T) {
	// Backyard searches (BedroomsMin 3) return nothing; pool searches succeed.
	lc := &fakeListings{
		byBand: map[float64][]model.PropertyCandidate{
			500_000: candidates("a", 30),
		},
		errFn: func(_ string, filters listings.Filters) error {
			if filters.BedroomsMin == 3 {
				return errors.New("listings: unexpected status 500")
			}
			return nil
		},
	}
	o, _ := newTestOrchestrator(lc, &queueProvider{last: confirmedPool})

	multi, err := o.GenerateAll(context.Background(), "Phoenix, AZ", 10)
	require.NoError(t, err)

	poolOutcome := multi.Outcomes[model.CategoryPool]
	require.NotNil(t, poolOutcome)
	assert.Empty(t, poolOutcome.Error)
	require.NotNil(t, poolOutcome.Result)
	assert.Equal(t, 10, poolOutcome.Result.DeliveredLeads)

	yardOutcome := multi.Outcomes[model.CategoryBackyard]
	require.NotNil(t, yardOutcome)
	assert.Nil(t, yardOutcome.Result)
	assert.Contains(t, yardOutcome.Error, "no properties found")
}

func TestValidityReason(t *testing.T) {
	tests := []struct {
		name     string
		category model.LeadCategory
		analysis model.VisionAnalysis
		valid    bool
	}{
		{"pool present at bound", model.CategoryPool, model.VisionAnalysis{HasPool: true, Confidence: 60}, true},
		{"pool below confidence bound", model.CategoryPool, model.VisionAnalysis{HasPool: true, Confidence: 59}, false},
		{"no pool visible", model.CategoryPool, model.VisionAnalysis{HasPool: false, Confidence: 95}, false},
		{"backyard usable", model.CategoryBackyard, model.VisionAnalysis{SurfaceType: "grass", Confidence: 75}, true},
		{"backyard empty", model.CategoryBackyard, model.VisionAnalysis{IsEmpty: true, SurfaceType: "grass", Confidence: 75}, false},
		{"backyard concrete", model.CategoryBackyard, model.VisionAnalysis{SurfaceType: "concrete", Confidence: 75}, false},
		{"backyard below confidence bound", model.CategoryBackyard, model.VisionAnalysis{SurfaceType: "grass", Confidence: 50}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, ok := validityReason(tt.category, tt.analysis)
			assert.Equal(t, tt.valid, ok)
			if !tt.valid {
				assert.NotEmpty(t, reason)
			}
		})
	}
}

func TestGenerateAllValidatesInput(t *testing.T) {
	o, _ := newTestOrchestrator(&fakeListings{}, &queueProvider{last: confirmedPool})

	_, err := o.GenerateAll(context.Background(), "", 10)
	assert.True(t, errors.Is(err, model.ErrInvalidInput))

	_, err = o.GenerateAll(context.Background(), "Phoenix, AZ", 42)
	assert.True(t, errors.Is(err, model.ErrInvalidRequestSize))
}
