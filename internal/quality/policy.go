package quality

import (
	"fmt"
	"strconv"

	"github.com/homescout/leadgen/internal/model"
)

// Confidence thresholds for discrepancy severity. Bounds are inclusive: a
// mismatch at exactly 80 is major, at exactly 60 is minor.
const (
	majorConfidence = 80
	minorConfidence = 60

	// Backyard size disagreement is only actionable when near-certain.
	backyardSizeConfidence = 90
)

// discrepancyPolicy encodes one category's business rules for comparing
// provider-asserted attributes against vision output. Policies are explicit
// strategy objects so each category's asymmetry stays visible and
// independently testable.
type discrepancyPolicy interface {
	Category() model.LeadCategory
	Detect(listing model.ListingAttributes, analysis model.VisionAnalysis) model.Discrepancy
}

// policyFor returns the discrepancy policy for a category.
func policyFor(category model.LeadCategory) discrepancyPolicy {
	switch category {
	case model.CategoryBackyard:
		return backyardPolicy{}
	default:
		return poolPolicy{}
	}
}

// poolPolicy flags presence and sub-type disagreements. Severity scales with
// vision confidence: low-confidence vision claims do not downgrade quality.
type poolPolicy struct{}

func (poolPolicy) Category() model.LeadCategory { return model.CategoryPool }

func (poolPolicy) Detect(listing model.ListingAttributes, analysis model.VisionAnalysis) model.Discrepancy {
	d := model.Discrepancy{Severity: model.SeverityNone}

	if listing.HasPool != nil && *listing.HasPool != analysis.HasPool {
		severity := model.SeverityNone
		switch {
		case analysis.Confidence >= majorConfidence:
			severity = model.SeverityMajor
		case analysis.Confidence >= minorConfidence:
			severity = model.SeverityMinor
		}

		d.Detected = true
		d.Type = model.DiscrepancyPoolMismatch
		d.Severity = severity
		d.Mismatches = append(d.Mismatches, model.FieldMismatch{
			Field:    "has_pool",
			Listing:  strconv.FormatBool(*listing.HasPool),
			Vision:   strconv.FormatBool(analysis.HasPool),
			Severity: severity,
		})
	}

	// Sub-type disagreement when both sides assert presence and both name a
	// type. Never overrides the severity from the presence check.
	bothPresent := listing.HasPool != nil && *listing.HasPool && analysis.HasPool
	if bothPresent && listing.PoolType != "" && analysis.PoolType != "" && analysis.PoolType != "unknown" &&
		listing.PoolType != analysis.PoolType {
		if !d.Detected {
			d.Detected = true
			d.Type = model.DiscrepancyPoolTypeMismatch
			d.Severity = model.SeverityMinor
		}
		d.Mismatches = append(d.Mismatches, model.FieldMismatch{
			Field:    "pool_type",
			Listing:  listing.PoolType,
			Vision:   analysis.PoolType,
			Severity: model.SeverityMinor,
		})
	}

	return d
}

// backyardPolicy carries the favorable-bias rules for backyard leads:
// underdevelopment is a positive signal for this category, not a defect.
type backyardPolicy struct{}

func (backyardPolicy) Category() model.LeadCategory { return model.CategoryBackyard }

func (backyardPolicy) Detect(listing model.ListingAttributes, analysis model.VisionAnalysis) model.Discrepancy {
	// Underdeveloped with high potential is the ideal match for this lead
	// type: skip every further check regardless of other fields.
	if isIdealBackyard(analysis) {
		return model.Discrepancy{Severity: model.SeverityNone}
	}

	d := model.Discrepancy{Severity: model.SeverityNone}

	if listing.HasBackyard != nil && *listing.HasBackyard &&
		analysis.FreeAreaEstimate == "low" &&
		analysis.Confidence >= backyardSizeConfidence {
		d.Detected = true
		d.Type = model.DiscrepancyBackyardSize
		d.Severity = model.SeverityMajor
		d.Mismatches = append(d.Mismatches, model.FieldMismatch{
			Field:    "backyard_size",
			Listing:  fmt.Sprintf("asserted, %d sqft lot", listing.LotSizeSqFt),
			Vision:   "free area low",
			Severity: model.SeverityMajor,
		})
	}

	// Surfaces are mutable and not disqualifying: always recorded, capped at
	// minor.
	if listing.BackyardSurface != "" && analysis.SurfaceType != "" && analysis.SurfaceType != "unknown" &&
		listing.BackyardSurface != analysis.SurfaceType {
		if !d.Detected {
			d.Detected = true
			d.Type = model.DiscrepancySurfaceType
			d.Severity = model.SeverityMinor
		}
		d.Mismatches = append(d.Mismatches, model.FieldMismatch{
			Field:    "surface_type",
			Listing:  listing.BackyardSurface,
			Vision:   analysis.SurfaceType,
			Severity: model.SeverityMinor,
		})
	}

	return d
}

// isIdealBackyard reports the underdeveloped-with-high-potential combination.
func isIdealBackyard(analysis model.VisionAnalysis) bool {
	return analysis.IsUnderdeveloped && analysis.DevelopmentPotential == model.PotentialHigh
}
