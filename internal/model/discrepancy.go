package model

import "time"

// Severity grades a detected discrepancy. It controls both quality-score
// impact and whether a Flag is raised.
type Severity string

const (
	SeverityNone  Severity = "none"
	SeverityMinor Severity = "minor"
	SeverityMajor Severity = "major"
)

// DiscrepancyType tags the kind of mismatch between provider-asserted and
// vision-derived facts.
type DiscrepancyType string

const (
	DiscrepancyPoolMismatch     DiscrepancyType = "pool_mismatch"
	DiscrepancyPoolTypeMismatch DiscrepancyType = "pool_type_mismatch"
	DiscrepancyBackyardSize     DiscrepancyType = "backyard_size_mismatch"
	DiscrepancySurfaceType      DiscrepancyType = "surface_type_mismatch"
)

// FieldMismatch records one field-level disagreement between the two sources.
type FieldMismatch struct {
	Field    string `json:"field"`
	Listing  string `json:"listing_value"`
	Vision   string `json:"vision_value"`
	Severity Severity `json:"severity"`
}

// Discrepancy is the outcome of comparing a candidate's asserted attributes
// against its VisionAnalysis. Computed fresh per evaluation; never persisted
// independently of the QualityReport that contains it.
type Discrepancy struct {
	Detected   bool            `json:"detected"`
	Type       DiscrepancyType `json:"type,omitempty"`
	Severity   Severity        `json:"severity"`
	Mismatches []FieldMismatch `json:"mismatches,omitempty"`
}

// FlagEvidence bundles the material needed to audit a flagged lead.
type FlagEvidence struct {
	ImageURL   string            `json:"image_url"`
	Listing    ListingAttributes `json:"listing_attributes"`
	Vision     VisionAnalysis    `json:"vision_analysis"`
	Confidence int               `json:"confidence"`
}

// Flag marks a lead whose discrepancy severity is major. Flags are
// informational audit artifacts and never alter the recommendation.
type Flag struct {
	ID        string          `json:"id"`
	LeadID    string          `json:"lead_id"`
	Type      DiscrepancyType `json:"type"`
	FlaggedAt time.Time       `json:"flagged_at"`
	Evidence  FlagEvidence    `json:"evidence"`
}
