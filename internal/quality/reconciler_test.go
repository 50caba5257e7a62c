package quality

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homescout/leadgen/internal/model"
)

func poolRecord(analysis model.VisionAnalysis) *model.ValidationRecord {
	analysis.Category = model.CategoryPool
	return &model.ValidationRecord{
		Analysis:   analysis,
		ImageURL:   "https://maps.example.com/img",
		VerifiedAt: time.Now().UTC(),
	}
}

func TestEvaluateNilRecordRejects(t *testing.T) {
	r := NewReconciler()
	report := r.Evaluate(model.PropertyCandidate{ID: "p1"}, nil, model.CategoryPool)

	assert.Equal(t, model.QualityLow, report.Score)
	assert.Equal(t, 0, report.Confidence)
	assert.Equal(t, model.RecommendReject, report.Recommendation)
	assert.Nil(t, report.Flag)
}

func TestEvaluateConfirmedPoolHighQuality(t *testing.T) {
	r := NewReconciler()
	candidate := model.PropertyCandidate{
		ID:         "p1",
		Attributes: model.ListingAttributes{HasPool: boolPtr(true)},
	}
	record := poolRecord(model.VisionAnalysis{HasPool: true, Confidence: 92})

	report := r.Evaluate(candidate, record, model.CategoryPool)
	assert.Equal(t, model.QualityHigh, report.Score)
	assert.Equal(t, 92, report.Confidence)
	assert.Equal(t, model.RecommendApprove, report.Recommendation)
	assert.False(t, report.Discrepancy.Detected)
	assert.Nil(t, report.Flag)
}

// Listing asserts a pool, vision confidently sees none: flagged, low quality,
// rejected.
func TestEvaluateMajorContradiction(t *testing.T) {
	fixed := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	r := NewReconciler().WithNow(func() time.Time { return fixed })

	candidate := model.PropertyCandidate{
		ID:         "p1",
		Attributes: model.ListingAttributes{HasPool: boolPtr(true)},
	}
	record := poolRecord(model.VisionAnalysis{HasPool: false, Confidence: 90})

	report := r.Evaluate(candidate, record, model.CategoryPool)
	assert.Equal(t, model.QualityLow, report.Score)
	assert.Equal(t, model.RecommendReject, report.Recommendation)
	assert.Equal(t, model.SeverityMajor, report.Discrepancy.Severity)

	require.NotNil(t, report.Flag)
	assert.NotEmpty(t, report.Flag.ID)
	assert.Equal(t, "p1", report.Flag.LeadID)
	assert.Equal(t, model.DiscrepancyPoolMismatch, report.Flag.Type)
	assert.Equal(t, fixed, report.Flag.FlaggedAt)
	assert.Equal(t, record.ImageURL, report.Flag.Evidence.ImageURL)
	assert.Equal(t, 90, report.Flag.Evidence.Confidence)
}

// The same contradiction at middling confidence is minor: medium quality,
// still approved, no flag.
func TestEvaluateMinorContradiction(t *testing.T) {
	r := NewReconciler()
	candidate := model.PropertyCandidate{
		ID:         "p1",
		Attributes: model.ListingAttributes{HasPool: boolPtr(true)},
	}
	record := poolRecord(model.VisionAnalysis{HasPool: false, Confidence: 65})

	report := r.Evaluate(candidate, record, model.CategoryPool)
	assert.Equal(t, model.QualityMedium, report.Score)
	assert.Equal(t, model.RecommendApprove, report.Recommendation)
	assert.Nil(t, report.Flag, "only major discrepancies raise flags")
}

// Below the minor bound the contradiction is noted but never held against the
// lead.
func TestEvaluateSubThresholdContradiction(t *testing.T) {
	r := NewReconciler()
	candidate := model.PropertyCandidate{
		ID:         "p1",
		Attributes: model.ListingAttributes{HasPool: boolPtr(true)},
	}
	record := poolRecord(model.VisionAnalysis{HasPool: false, Confidence: 55})

	report := r.Evaluate(candidate, record, model.CategoryPool)
	assert.Equal(t, model.QualityMedium, report.Score)
	assert.Equal(t, model.RecommendApprove, report.Recommendation)
	assert.True(t, report.Discrepancy.Detected)
	assert.Equal(t, model.SeverityNone, report.Discrepancy.Severity)
	assert.Nil(t, report.Flag)
}

func TestEvaluateUncontradictedConfidenceTiers(t *testing.T) {
	r := NewReconciler()
	candidate := model.PropertyCandidate{ID: "p1"}

	tests := []struct {
		confidence int
		want       model.QualityScore
	}{
		{95, model.QualityHigh},
		{80, model.QualityHigh},
		{79, model.QualityMedium},
		{60, model.QualityMedium},
		{55, model.QualityMedium},
		{30, model.QualityMedium}, // absence of contradiction is itself valuable
	}

	for _, tt := range tests {
		record := poolRecord(model.VisionAnalysis{HasPool: true, Confidence: tt.confidence})
		report := r.Evaluate(candidate, record, model.CategoryPool)
		assert.Equal(t, tt.want, report.Score, "confidence %d", tt.confidence)
	}
}

func TestEvaluateBackyardIdealMatchUpgrade(t *testing.T) {
	r := NewReconciler()
	candidate := model.PropertyCandidate{ID: "p1"}
	record := &model.ValidationRecord{
		Analysis: model.VisionAnalysis{
			Category:             model.CategoryBackyard,
			IsUnderdeveloped:     true,
			DevelopmentPotential: model.PotentialHigh,
			SurfaceType:          "dirt",
			Confidence:           70, // medium tier on its own
		},
	}

	report := r.Evaluate(candidate, record, model.CategoryBackyard)
	assert.Equal(t, model.QualityHigh, report.Score)
	assert.Equal(t, model.RecommendApprove, report.Recommendation)
}

func TestEvaluateRationalePrefixMatchesRecommendation(t *testing.T) {
	r := NewReconciler()
	candidate := model.PropertyCandidate{
		ID:         "p1",
		Attributes: model.ListingAttributes{HasPool: boolPtr(true)},
	}

	tests := []struct {
		name   string
		record *model.ValidationRecord
		prefix string
	}{
		{"approve", poolRecord(model.VisionAnalysis{HasPool: true, Confidence: 92}), "APPROVE:"},
		{"reject", poolRecord(model.VisionAnalysis{HasPool: false, Confidence: 92}), "REJECT:"},
		{"reject unverified", nil, "REJECT:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := r.Evaluate(candidate, tt.record, model.CategoryPool)
			assert.True(t, len(report.Rationale) > len(tt.prefix))
			assert.Equal(t, tt.prefix, report.Rationale[:len(tt.prefix)])
		})
	}
}

func TestRecommendPureMapping(t *testing.T) {
	tests := []struct {
		score    model.QualityScore
		severity model.Severity
		want     model.Recommendation
	}{
		{model.QualityHigh, model.SeverityNone, model.RecommendApprove},
		{model.QualityMedium, model.SeverityNone, model.RecommendApprove},
		{model.QualityMedium, model.SeverityMinor, model.RecommendApprove},
		{model.QualityMedium, model.SeverityMajor, model.RecommendReview},
		{model.QualityLow, model.SeverityNone, model.RecommendReject},
		{model.QualityLow, model.SeverityMajor, model.RecommendReject},
	}

	for _, tt := range tests {
		got, rationale := recommend(tt.score, tt.severity)
		assert.Equal(t, tt.want, got, "score=%s severity=%s", tt.score, tt.severity)
		assert.NotEmpty(t, rationale)
	}
}

func TestEvaluateReasoningNeverEmpty(t *testing.T) {
	r := NewReconciler()
	report := r.Evaluate(model.PropertyCandidate{ID: "p1"},
		poolRecord(model.VisionAnalysis{HasPool: true, Confidence: 75}), model.CategoryPool)
	assert.NotEmpty(t, report.Reasoning)
}
