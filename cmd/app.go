package main

import (
	"time"

	"github.com/homescout/leadgen/internal/cache"
	"github.com/homescout/leadgen/internal/config"
	"github.com/homescout/leadgen/internal/leadgen"
	"github.com/homescout/leadgen/internal/quality"
	"github.com/homescout/leadgen/internal/vision"
	"github.com/homescout/leadgen/pkg/anthropic"
	"github.com/homescout/leadgen/pkg/gemini"
	"github.com/homescout/leadgen/pkg/listings"
	"github.com/homescout/leadgen/pkg/openai"
	"github.com/homescout/leadgen/pkg/staticmap"
)

// app holds the wired pipeline shared by the serve and generate commands.
type app struct {
	store        *cache.Store
	orchestrator *leadgen.Orchestrator
}

// initApp constructs the cache, clients, and orchestrator from config. The
// cache is created here, once per process, and torn down by Close.
func initApp(cfg *config.Config) *app {
	store := cache.New(
		cache.WithSweepInterval(time.Duration(cfg.Cache.SweepIntervalSecs) * time.Second),
	)
	store.Start()

	var listingOpts []listings.Option
	if cfg.Listings.BaseURL != "" {
		listingOpts = append(listingOpts, listings.WithBaseURL(cfg.Listings.BaseURL))
	}
	if cfg.Listings.RateLimit > 0 {
		listingOpts = append(listingOpts, listings.WithRateLimit(cfg.Listings.RateLimit))
	}
	listingsClient := listings.NewClient(cfg.Listings.Key, listingOpts...)

	var imageryOpts []staticmap.Option
	if cfg.Imagery.BaseURL != "" {
		imageryOpts = append(imageryOpts, staticmap.WithBaseURL(cfg.Imagery.BaseURL))
	}
	imagery := staticmap.NewClient(cfg.Imagery.Key, imageryOpts...)

	// Ranked provider chain: anthropic primary, openai secondary, gemini
	// tertiary. Providers without a key report unavailable and are skipped.
	providers := make([]vision.Provider, 0, 3)
	if cfg.Vision.AnthropicKey != "" {
		providers = append(providers, vision.NewAnthropicProvider(
			anthropic.NewClient(cfg.Vision.AnthropicKey, anthropic.WithModel(cfg.Vision.AnthropicModel)),
		))
	}
	if cfg.Vision.OpenAIKey != "" {
		providers = append(providers, vision.NewOpenAIProvider(
			openai.NewClient(cfg.Vision.OpenAIKey, openai.WithModel(cfg.Vision.OpenAIModel)),
		))
	}
	if cfg.Vision.GeminiKey != "" {
		providers = append(providers, vision.NewGeminiProvider(
			gemini.NewClient(cfg.Vision.GeminiKey, gemini.WithModel(cfg.Vision.GeminiModel)),
		))
	}

	verifier := vision.NewVerifier(imagery, providers...)
	reconciler := quality.NewReconciler()
	orchestrator := leadgen.NewOrchestrator(listingsClient, verifier, reconciler, store)

	return &app{
		store:        store,
		orchestrator: orchestrator,
	}
}

// Close releases process-lifetime resources.
func (a *app) Close() {
	a.store.Stop()
}
