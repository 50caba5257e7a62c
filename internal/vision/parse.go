package vision

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/homescout/leadgen/internal/model"
)

// extractJSON pulls the first JSON object out of free-form response text.
// Vision providers are not guaranteed to return pure JSON: some wrap it in
// markdown fences, some add prose around it.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

// payload mirrors the union of both category schemas with pointer fields so
// missing keys are distinguishable from zero values.
type payload struct {
	HasPool  *bool   `json:"has_pool"`
	PoolType *string `json:"pool_type"`
	PoolSize *string `json:"pool_size"`

	IsEmpty              *bool     `json:"is_empty"`
	IsUnderdeveloped     *bool     `json:"is_underdeveloped"`
	SurfaceType          *string   `json:"surface_type"`
	Structures           *[]string `json:"structures"`
	FreeAreaEstimate     *string   `json:"free_area_estimate"`
	DevelopmentPotential *string   `json:"development_potential"`

	Confidence *float64 `json:"confidence"`
	Reasoning  *string  `json:"reasoning"`
}

var (
	poolTypes  = map[string]bool{"in_ground": true, "above_ground": true, "unknown": true}
	poolSizes  = map[string]bool{"small": true, "medium": true, "large": true, "unknown": true}
	surfaces   = map[string]bool{"grass": true, "dirt": true, "concrete": true, "mixed": true, "unknown": true}
	potentials = map[string]bool{"low": true, "medium": true, "high": true}
)

// parseAnalysis converts raw provider text into a validated VisionAnalysis.
// A missing required field or out-of-range value is a MalformedAnalysis
// error: the response was received, it is simply invalid, so it is never
// retried against another provider.
func parseAnalysis(text string, category model.LeadCategory) (*model.VisionAnalysis, error) {
	cleaned := extractJSON(text)

	var p payload
	if err := json.Unmarshal([]byte(cleaned), &p); err != nil {
		return nil, eris.Wrap(model.ErrMalformedAnalysis, "vision: response is not valid JSON: "+err.Error())
	}

	if p.Confidence == nil {
		return nil, eris.Wrap(model.ErrMalformedAnalysis, "vision: missing required field confidence")
	}
	if *p.Confidence < 0 || *p.Confidence > 100 {
		return nil, eris.Wrap(model.ErrMalformedAnalysis, "vision: confidence out of range [0,100]")
	}

	analysis := &model.VisionAnalysis{
		Category:   category,
		Confidence: int(math.Round(*p.Confidence)),
	}
	if p.Reasoning != nil {
		analysis.Reasoning = *p.Reasoning
	}

	switch category {
	case model.CategoryPool:
		if err := fillPool(analysis, p); err != nil {
			return nil, err
		}
	case model.CategoryBackyard:
		if err := fillBackyard(analysis, p); err != nil {
			return nil, err
		}
	default:
		return nil, eris.Wrap(model.ErrInvalidInput, "vision: unsupported category "+string(category))
	}

	return analysis, nil
}

func fillPool(a *model.VisionAnalysis, p payload) error {
	if p.HasPool == nil {
		return eris.Wrap(model.ErrMalformedAnalysis, "vision: missing required field has_pool")
	}
	a.HasPool = *p.HasPool

	a.PoolType = "unknown"
	if p.PoolType != nil {
		if !poolTypes[*p.PoolType] {
			return eris.Wrap(model.ErrMalformedAnalysis, "vision: invalid pool_type "+*p.PoolType)
		}
		a.PoolType = *p.PoolType
	}

	a.PoolSize = "unknown"
	if p.PoolSize != nil {
		if !poolSizes[*p.PoolSize] {
			return eris.Wrap(model.ErrMalformedAnalysis, "vision: invalid pool_size "+*p.PoolSize)
		}
		a.PoolSize = *p.PoolSize
	}

	return nil
}

func fillBackyard(a *model.VisionAnalysis, p payload) error {
	if p.IsEmpty == nil {
		return eris.Wrap(model.ErrMalformedAnalysis, "vision: missing required field is_empty")
	}
	if p.IsUnderdeveloped == nil {
		return eris.Wrap(model.ErrMalformedAnalysis, "vision: missing required field is_underdeveloped")
	}
	if p.SurfaceType == nil {
		return eris.Wrap(model.ErrMalformedAnalysis, "vision: missing required field surface_type")
	}
	if !surfaces[*p.SurfaceType] {
		return eris.Wrap(model.ErrMalformedAnalysis, "vision: invalid surface_type "+*p.SurfaceType)
	}
	if p.Structures == nil {
		return eris.Wrap(model.ErrMalformedAnalysis, "vision: missing required field structures")
	}
	if p.DevelopmentPotential == nil {
		return eris.Wrap(model.ErrMalformedAnalysis, "vision: missing required field development_potential")
	}
	if !potentials[*p.DevelopmentPotential] {
		return eris.Wrap(model.ErrMalformedAnalysis, "vision: invalid development_potential "+*p.DevelopmentPotential)
	}

	a.IsEmpty = *p.IsEmpty
	a.IsUnderdeveloped = *p.IsUnderdeveloped
	a.SurfaceType = *p.SurfaceType
	a.Structures = *p.Structures
	a.DevelopmentPotential = model.DevelopmentPotential(*p.DevelopmentPotential)

	if p.FreeAreaEstimate != nil {
		if !potentials[*p.FreeAreaEstimate] {
			return eris.Wrap(model.ErrMalformedAnalysis, "vision: invalid free_area_estimate "+*p.FreeAreaEstimate)
		}
		a.FreeAreaEstimate = *p.FreeAreaEstimate
	}

	return nil
}
