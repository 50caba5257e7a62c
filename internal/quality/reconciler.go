// Package quality reconciles provider-asserted listing facts against vision
// analysis and produces the quality report attached to every lead.
package quality

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/homescout/leadgen/internal/model"
)

// Quality-score confidence tiers for evaluations without a gating
// discrepancy. Lower bounds are inclusive.
const (
	highConfidence   = 80
	mediumConfidence = 60
)

// Reconciler produces exactly one QualityReport per (candidate, category)
// evaluation.
type Reconciler struct {
	now func() time.Time
}

// NewReconciler creates a Reconciler.
func NewReconciler() *Reconciler {
	return &Reconciler{now: time.Now}
}

// WithNow fixes the timestamp source for testing.
func (r *Reconciler) WithNow(now func() time.Time) *Reconciler {
	r.now = now
	return r
}

// Evaluate compares the candidate's asserted attributes against the
// validation record and computes score, recommendation, and an optional
// flag. The report's confidence always mirrors the underlying analysis.
func (r *Reconciler) Evaluate(candidate model.PropertyCandidate, record *model.ValidationRecord, category model.LeadCategory) model.QualityReport {
	if record == nil {
		return model.QualityReport{
			Score:      model.QualityLow,
			Confidence: 0,
			Reasoning:  []string{"no vision analysis available"},
			Discrepancy: model.Discrepancy{
				Severity: model.SeverityNone,
			},
			Recommendation: model.RecommendReject,
			Rationale:      "REJECT: property could not be visually verified",
		}
	}

	analysis := record.Analysis
	discrepancy := policyFor(category).Detect(candidate.Attributes, analysis)

	score, reasoning := calculateQuality(analysis, discrepancy, category)

	recommendation, rationale := recommend(score, discrepancy.Severity)

	report := model.QualityReport{
		Score:          score,
		Confidence:     analysis.Confidence,
		Reasoning:      reasoning,
		Discrepancy:    discrepancy,
		Recommendation: recommendation,
		Rationale:      rationale,
	}

	// A major discrepancy always raises a flag. Flags are audit artifacts
	// and never alter the recommendation.
	if discrepancy.Detected && discrepancy.Severity == model.SeverityMajor {
		report.Flag = &model.Flag{
			ID:        uuid.NewString(),
			LeadID:    candidate.ID,
			Type:      discrepancy.Type,
			FlaggedAt: r.now().UTC(),
			Evidence: model.FlagEvidence{
				ImageURL:   record.ImageURL,
				Listing:    candidate.Attributes,
				Vision:     analysis,
				Confidence: analysis.Confidence,
			},
		}
	}

	return report
}

// calculateQuality maps (analysis, discrepancy, category) to a score plus
// ordered human-readable reasoning. The reasoning is for audit and
// debugging, never for further computation.
func calculateQuality(analysis model.VisionAnalysis, discrepancy model.Discrepancy, category model.LeadCategory) (model.QualityScore, []string) {
	var reasoning []string

	gating := discrepancy.Detected && discrepancy.Severity != model.SeverityNone
	if discrepancy.Detected && discrepancy.Severity == model.SeverityNone {
		reasoning = append(reasoning, fmt.Sprintf(
			"%s noted at confidence %d, below the minor threshold; not held against the lead",
			discrepancy.Type, analysis.Confidence))
	}

	var score model.QualityScore
	switch {
	case gating && discrepancy.Severity == model.SeverityMajor:
		score = model.QualityLow
		reasoning = append(reasoning, fmt.Sprintf(
			"major %s at vision confidence %d", discrepancy.Type, analysis.Confidence))

	case gating && discrepancy.Severity == model.SeverityMinor:
		score = model.QualityMedium
		reasoning = append(reasoning, fmt.Sprintf(
			"minor %s at vision confidence %d", discrepancy.Type, analysis.Confidence))
		if category == model.CategoryBackyard {
			reasoning = append(reasoning, "lead remains viable: minor backyard discrepancies are not gating")
		}

	default:
		switch {
		case analysis.Confidence >= highConfidence:
			score = model.QualityHigh
			reasoning = append(reasoning, fmt.Sprintf(
				"uncontradicted analysis at high confidence %d", analysis.Confidence))
		case analysis.Confidence >= mediumConfidence:
			score = model.QualityMedium
			reasoning = append(reasoning, fmt.Sprintf(
				"uncontradicted analysis at confidence %d", analysis.Confidence))
		case analysis.Confidence >= 50:
			// Explicitly not low: absence of contradiction is itself valuable.
			score = model.QualityMedium
			reasoning = append(reasoning, fmt.Sprintf(
				"moderate confidence %d with no contradiction", analysis.Confidence))
		default:
			score = model.QualityMedium
			reasoning = append(reasoning, fmt.Sprintf(
				"low-confidence-but-uncontradicted analysis at confidence %d", analysis.Confidence))
		}
	}

	// Backyard bonus: the ideal underdeveloped-with-high-potential match
	// upgrades a medium to high.
	if category == model.CategoryBackyard && isIdealBackyard(analysis) && score == model.QualityMedium {
		score = model.QualityHigh
		reasoning = append(reasoning, "upgraded to high: underdeveloped yard with high development potential")
	}

	return score, reasoning
}

// recommend maps (score, severity) to a recommendation. Pure function of its
// two inputs, no other state.
func recommend(score model.QualityScore, severity model.Severity) (model.Recommendation, string) {
	switch score {
	case model.QualityHigh:
		return model.RecommendApprove, "APPROVE: high-quality lead with visually confirmed attributes"
	case model.QualityMedium:
		if severity == model.SeverityMajor {
			return model.RecommendReview, "REVIEW: usable lead but a major discrepancy needs human review"
		}
		return model.RecommendApprove, "APPROVE: acceptable lead quality"
	default:
		return model.RecommendReject, "REJECT: quality too low to deliver"
	}
}
