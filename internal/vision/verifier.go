// Package vision turns coordinates into a validated satellite-imagery
// analysis by cascading across ranked vision providers.
package vision

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/homescout/leadgen/internal/model"
	"github.com/homescout/leadgen/pkg/staticmap"
)

// Verifier resolves a satellite image for a coordinate pair and asks a
// ranked chain of vision providers to classify it. It keeps no cache of its
// own: memoization is the caller's responsibility, which keeps this
// component pure and independently testable.
type Verifier struct {
	imagery   staticmap.Client
	providers []Provider
	now       func() time.Time
}

// NewVerifier creates a Verifier over the given imagery client and ranked
// providers (tried in slice order).
func NewVerifier(imagery staticmap.Client, providers ...Provider) *Verifier {
	return &Verifier{
		imagery:   imagery,
		providers: providers,
		now:       time.Now,
	}
}

// WithNow fixes the timestamp source for testing.
func (v *Verifier) WithNow(now func() time.Time) *Verifier {
	v.now = now
	return v
}

// Verify analyzes the property at (lat, lon) for the given category.
//
// Providers are tried in rank order; only transport/auth failures advance
// the chain. A provider that responds with schema-violating content fails
// the whole operation with ErrMalformedAnalysis — the response was
// received, it is simply invalid. If every provider fails at the transport
// level the operation fails with ErrVisionUnavailable carrying the primary
// provider's error message.
func (v *Verifier) Verify(ctx context.Context, lat, lon float64, category model.LeadCategory, listing model.ListingAttributes) (*model.ValidationRecord, error) {
	coords := model.Coordinates{Latitude: lat, Longitude: lon}
	if !coords.InRange() {
		return nil, eris.Wrapf(model.ErrInvalidInput, "vision: coordinates out of range (%f, %f)", lat, lon)
	}
	if !category.Valid() {
		return nil, eris.Wrap(model.ErrInvalidInput, "vision: unsupported category "+string(category))
	}

	img, err := v.imagery.FetchSatelliteImage(ctx, lat, lon)
	if err != nil {
		return nil, eris.Wrap(model.ErrImageRetrieval, err.Error())
	}

	prompt := buildPrompt(category, listing)

	text, providerName, err := v.classify(ctx, img, prompt)
	if err != nil {
		return nil, err
	}

	analysis, err := parseAnalysis(text, category)
	if err != nil {
		zap.L().Warn("vision: provider returned invalid analysis",
			zap.String("provider", providerName),
			zap.String("category", string(category)),
			zap.Error(err),
		)
		return nil, err
	}
	analysis.Provider = providerName

	return &model.ValidationRecord{
		Analysis:   *analysis,
		ImageURL:   img.URL,
		VerifiedAt: v.now().UTC(),
	}, nil
}

// classify runs the provider chain and returns the first raw response text.
func (v *Verifier) classify(ctx context.Context, img *staticmap.ImageRef, prompt string) (string, string, error) {
	var primaryErr error

	for _, p := range v.providers {
		if !p.Available() {
			continue
		}

		text, err := p.Classify(ctx, img, prompt)
		if err == nil {
			return text, p.Name(), nil
		}

		if primaryErr == nil {
			primaryErr = err
		}
		zap.L().Debug("vision: provider failed, trying next",
			zap.String("provider", p.Name()),
			zap.Error(err),
		)

		if ctx.Err() != nil {
			break
		}
	}

	if primaryErr == nil {
		return "", "", eris.Wrap(model.ErrVisionUnavailable, "vision: no providers configured")
	}
	return "", "", eris.Wrap(model.ErrVisionUnavailable, primaryErr.Error())
}
