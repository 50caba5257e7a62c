// Package model defines the shared domain types for the lead-generation pipeline.
package model

import (
	"time"
)

// LeadCategory identifies one of the supported validation domains. Each
// category carries its own analysis schema, validity predicate, and
// discrepancy policy.
type LeadCategory string

const (
	// CategoryPool validates provider-asserted pools against satellite imagery.
	CategoryPool LeadCategory = "pool"
	// CategoryBackyard validates backyard development potential.
	CategoryBackyard LeadCategory = "backyard"
)

// Valid reports whether c is a supported category.
func (c LeadCategory) Valid() bool {
	return c == CategoryPool || c == CategoryBackyard
}

// AllCategories lists every supported category, in the order the
// multi-category orchestrator runs them.
func AllCategories() []LeadCategory {
	return []LeadCategory{CategoryPool, CategoryBackyard}
}

// Coordinates is a WGS84 latitude/longitude pair. Both values are required
// before any vision call is made.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// InRange reports whether the pair is a plausible WGS84 coordinate.
func (c Coordinates) InRange() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

// ListingAttributes are the provider-asserted facts about a property that the
// reconciler cross-checks against vision output. Pointer booleans distinguish
// "asserted false" from "not asserted".
type ListingAttributes struct {
	HasPool         *bool  `json:"has_pool,omitempty"`
	PoolType        string `json:"pool_type,omitempty"`
	HasBackyard     *bool  `json:"has_backyard,omitempty"`
	BackyardSurface string `json:"backyard_surface,omitempty"`
	LotSizeSqFt     int    `json:"lot_size_sqft,omitempty"`
}

// PropertyCandidate is a provider-sourced listing record. Immutable once
// fetched; owned by the orchestrator for the duration of one batch request.
type PropertyCandidate struct {
	ID          string            `json:"id"`
	Address     string            `json:"address"`
	City        string            `json:"city,omitempty"`
	State       string            `json:"state,omitempty"`
	ZipCode     string            `json:"zip_code,omitempty"`
	Coordinates *Coordinates      `json:"coordinates"`
	Price       float64           `json:"price"`
	Bedrooms    int               `json:"bedrooms"`
	Bathrooms   float64           `json:"bathrooms"`
	Attributes  ListingAttributes `json:"attributes"`
	Raw         map[string]any    `json:"raw,omitempty"`
}

// DevelopmentPotential is the vision model's judgement of how much a backyard
// could be improved.
type DevelopmentPotential string

const (
	PotentialLow    DevelopmentPotential = "low"
	PotentialMedium DevelopmentPotential = "medium"
	PotentialHigh   DevelopmentPotential = "high"
)

// VisionAnalysis is the normalized output of a vision provider for one
// coordinate pair and one category. Field population depends on Category:
// pool fields for CategoryPool, backyard fields for CategoryBackyard.
// Confidence is always an integer in [0,100].
type VisionAnalysis struct {
	Category   LeadCategory `json:"category"`
	Confidence int          `json:"confidence"`
	Reasoning  string       `json:"reasoning,omitempty"`
	Provider   string       `json:"provider,omitempty"`

	// Pool fields.
	HasPool  bool   `json:"has_pool,omitempty"`
	PoolType string `json:"pool_type,omitempty"` // in_ground | above_ground | unknown
	PoolSize string `json:"pool_size,omitempty"` // small | medium | large | unknown

	// Backyard fields.
	IsEmpty              bool                 `json:"is_empty,omitempty"`
	IsUnderdeveloped     bool                 `json:"is_underdeveloped,omitempty"`
	SurfaceType          string               `json:"surface_type,omitempty"` // grass | dirt | concrete | mixed | unknown
	Structures           []string             `json:"structures,omitempty"`
	FreeAreaEstimate     string               `json:"free_area_estimate,omitempty"` // low | medium | high
	DevelopmentPotential DevelopmentPotential `json:"development_potential,omitempty"`
}

// ValidationRecord pairs a VisionAnalysis with the satellite image it was
// derived from. This is the cache payload and the unit the reconciler consumes.
type ValidationRecord struct {
	Analysis   VisionAnalysis `json:"analysis"`
	ImageURL   string         `json:"image_url"`
	VerifiedAt time.Time      `json:"verified_at"`
}

// QualityScore is the three-level lead quality classification.
type QualityScore string

const (
	QualityHigh   QualityScore = "high"
	QualityMedium QualityScore = "medium"
	QualityLow    QualityScore = "low"
)

// Recommendation is the action the reconciler suggests for a lead.
type Recommendation string

const (
	RecommendApprove Recommendation = "APPROVE"
	RecommendReview  Recommendation = "REVIEW"
	RecommendReject  Recommendation = "REJECT"
)

// QualityReport is the reconciliation output for one (candidate, category)
// evaluation. Confidence always mirrors the underlying VisionAnalysis.
type QualityReport struct {
	Score          QualityScore   `json:"quality_score"`
	Confidence     int            `json:"confidence"`
	Reasoning      []string       `json:"reasoning"`
	Discrepancy    Discrepancy    `json:"discrepancy"`
	Recommendation Recommendation `json:"recommendation"`
	Rationale      string         `json:"rationale"`
	Flag           *Flag          `json:"flag,omitempty"`
}

// Lead is a PropertyCandidate enriched with its validation and quality
// artifacts; the unit returned to callers.
type Lead struct {
	ID         string            `json:"id"`
	Category   LeadCategory      `json:"category"`
	Property   PropertyCandidate `json:"property"`
	Validation ValidationRecord  `json:"validation"`
	Quality    QualityReport     `json:"quality_report"`
}

// BatchStats aggregates outcome statistics for one batch run.
type BatchStats struct {
	ValidationRate     float64 `json:"validation_rate"`
	PriceBandsSearched int     `json:"price_bands_searched"`
	MeanConfidence     float64 `json:"mean_confidence"`
	CandidatesFetched  int     `json:"candidates_fetched"`
	CandidatesChecked  int     `json:"candidates_checked"`
	CacheHits          int     `json:"cache_hits"`
}

// BatchResult is the orchestrator output for one (location, category) run.
// DeliveredLeads < RequestedLeads signals degraded success, not failure.
type BatchResult struct {
	Location       string       `json:"location"`
	Category       LeadCategory `json:"category"`
	RequestedLeads int          `json:"requested_leads"`
	DeliveredLeads int          `json:"delivered_leads"`
	Leads          []Lead       `json:"leads"`
	Stats          BatchStats   `json:"stats"`
	GeneratedAt    time.Time    `json:"generated_at"`
}
