package vision

import (
	"fmt"

	"github.com/homescout/leadgen/internal/model"
)

// buildPrompt returns the category-specific instruction sent alongside the
// satellite image. Each prompt demands a strict JSON object; the schemas here
// must stay in sync with the validators in parse.go.
func buildPrompt(category model.LeadCategory, listing model.ListingAttributes) string {
	switch category {
	case model.CategoryPool:
		return poolPrompt(listing)
	case model.CategoryBackyard:
		return backyardPrompt(listing)
	default:
		return ""
	}
}

func poolPrompt(listing model.ListingAttributes) string {
	context := "The listing does not state whether a pool is present."
	if listing.HasPool != nil {
		if *listing.HasPool {
			context = "The listing claims this property has a pool."
		} else {
			context = "The listing claims this property has no pool."
		}
	}

	return fmt.Sprintf(`You are analyzing a satellite image of a residential property. The red marker indicates the exact property. %s

Determine whether a swimming pool is visible on this property.

Respond with ONLY a JSON object in exactly this format:
{
  "has_pool": true or false,
  "confidence": 0-100,
  "pool_type": "in_ground" or "above_ground" or "unknown",
  "pool_size": "small" or "medium" or "large" or "unknown",
  "reasoning": "brief explanation of what you see"
}

"has_pool" and "confidence" are required. Do not include any text outside the JSON object.`, context)
}

func backyardPrompt(listing model.ListingAttributes) string {
	context := ""
	if listing.LotSizeSqFt > 0 {
		context = fmt.Sprintf(" The listing reports a lot size of %d sq ft.", listing.LotSizeSqFt)
	}

	return fmt.Sprintf(`You are analyzing a satellite image of a residential property. The red marker indicates the exact property.%s

Assess the backyard area behind the main structure for development potential.

Respond with ONLY a JSON object in exactly this format:
{
  "is_empty": true or false,
  "is_underdeveloped": true or false,
  "surface_type": "grass" or "dirt" or "concrete" or "mixed" or "unknown",
  "structures": ["list", "of", "visible", "structures"],
  "free_area_estimate": "low" or "medium" or "high",
  "development_potential": "low" or "medium" or "high",
  "confidence": 0-100,
  "reasoning": "brief explanation of what you see"
}

All fields except "free_area_estimate" are required. Do not include any text outside the JSON object.`, context)
}
