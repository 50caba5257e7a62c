package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/homescout/leadgen/internal/config"
	"github.com/homescout/leadgen/internal/format"
	"github.com/homescout/leadgen/internal/invest"
	"github.com/homescout/leadgen/internal/leadgen"
	"github.com/homescout/leadgen/internal/model"
)

// newRouter builds the HTTP API over the wired pipeline.
func newRouter(a *app, cfg *config.Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
	}))
	r.Use(rateLimiter(cfg.Server.RateLimitRPS))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/leads/generate", handleGenerate(a))
		r.Post("/leads/generate-all", handleGenerateAll(a))
		r.Post("/leads/export", handleExport(a))
		r.Get("/cache/stats", handleCacheStats(a))
		r.Delete("/cache", handleCacheClear(a))
		r.Post("/investment/analyze", handleInvestment(cfg))
	})

	return r
}

// rateLimiter applies a process-wide token bucket to every request.
func rateLimiter(rps float64) func(http.Handler) http.Handler {
	if rps <= 0 {
		rps = 10
	}
	limiter := rate.NewLimiter(rate.Limit(rps), int(rps)+1)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// generateRequest is the wire shape for single-category generation.
type generateRequest struct {
	Location       string `json:"location"`
	Category       string `json:"category"`
	RequestedLeads int    `json:"requested_leads"`
}

// batchView is the wire shape of a BatchResult with flattened leads.
type batchView struct {
	Location       string             `json:"location"`
	Category       model.LeadCategory `json:"category"`
	RequestedLeads int                `json:"requested_leads"`
	DeliveredLeads int                `json:"delivered_leads"`
	Leads          []format.LeadView  `json:"leads"`
	Stats          model.BatchStats   `json:"stats"`
	GeneratedAt    time.Time          `json:"generated_at"`
}

func toBatchView(res *model.BatchResult) batchView {
	views := make([]format.LeadView, 0, len(res.Leads))
	for _, lead := range res.Leads {
		views = append(views, format.ToView(lead))
	}
	return batchView{
		Location:       res.Location,
		Category:       res.Category,
		RequestedLeads: res.RequestedLeads,
		DeliveredLeads: res.DeliveredLeads,
		Leads:          views,
		Stats:          res.Stats,
		GeneratedAt:    res.GeneratedAt,
	}
}

func handleGenerate(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := a.orchestrator.Generate(r.Context(), leadgen.Request{
			Location:       req.Location,
			Category:       model.LeadCategory(req.Category),
			RequestedLeads: req.RequestedLeads,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBatchView(result))
	}
}

func handleGenerateAll(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		multi, err := a.orchestrator.GenerateAll(r.Context(), req.Location, req.RequestedLeads)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		type outcomeView struct {
			Result *batchView `json:"result,omitempty"`
			Error  string     `json:"error,omitempty"`
		}
		outcomes := make(map[model.LeadCategory]outcomeView, len(multi.Outcomes))
		for category, outcome := range multi.Outcomes {
			ov := outcomeView{Error: outcome.Error}
			if outcome.Result != nil {
				bv := toBatchView(outcome.Result)
				ov.Result = &bv
			}
			outcomes[category] = ov
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"location": multi.Location,
			"outcomes": outcomes,
		})
	}
}

func handleExport(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := a.orchestrator.Generate(r.Context(), leadgen.Request{
			Location:       req.Location,
			Category:       model.LeadCategory(req.Category),
			RequestedLeads: req.RequestedLeads,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		if r.URL.Query().Get("format") == "xlsx" {
			w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
			w.Header().Set("Content-Disposition", `attachment; filename="leads.xlsx"`)
			if err := format.WriteXLSX(w, result.Leads); err != nil {
				zap.L().Error("xlsx export failed", zap.Error(err))
			}
			return
		}

		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="leads.csv"`)
		if err := format.WriteCSV(w, result.Leads); err != nil {
			zap.L().Error("csv export failed", zap.Error(err))
		}
	}
}

func handleCacheStats(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, a.store.Stats())
	}
}

func handleCacheClear(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		removed := a.store.Clear()
		writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
	}
}

// investmentRequest allows per-request overrides of the configured
// financing assumptions.
type investmentRequest struct {
	Price           float64  `json:"price"`
	Category        string   `json:"category"`
	MonthlyRent     float64  `json:"monthly_rent"`
	MonthlyExpenses float64  `json:"monthly_expenses"`
	DownPaymentPct  *float64 `json:"down_payment_pct,omitempty"`
	InterestRatePct *float64 `json:"interest_rate_pct,omitempty"`
}

func handleInvestment(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req investmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Price <= 0 {
			writeError(w, http.StatusBadRequest, "price must be positive")
			return
		}

		assumptions := invest.Assumptions{
			DownPaymentPct:  cfg.Invest.DownPaymentPct,
			InterestRatePct: cfg.Invest.InterestRatePct,
			LoanTermYears:   cfg.Invest.LoanTermYears,
			VacancyRatePct:  cfg.Invest.VacancyRatePct,
			MonthlyRent:     req.MonthlyRent,
			MonthlyExpenses: req.MonthlyExpenses,
		}
		assumptions.ImprovementCost, assumptions.RentPremiumAfter =
			invest.ImprovementDefaults(model.LeadCategory(req.Category))
		if req.DownPaymentPct != nil {
			assumptions.DownPaymentPct = *req.DownPaymentPct
		}
		if req.InterestRatePct != nil {
			assumptions.InterestRatePct = *req.InterestRatePct
		}

		writeJSON(w, http.StatusOK, invest.Analyze(req.Price, assumptions))
	}
}

// writeDomainError maps pipeline errors to HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidInput), errors.Is(err, model.ErrInvalidRequestSize):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrNoPropertiesFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrVisionUnavailable), errors.Is(err, model.ErrImageRetrieval):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		zap.L().Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
