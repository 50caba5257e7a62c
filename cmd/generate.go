package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/homescout/leadgen/internal/format"
	"github.com/homescout/leadgen/internal/leadgen"
	"github.com/homescout/leadgen/internal/model"
)

var (
	genLocation string
	genCategory string
	genCount    int
	genOut      string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run a one-shot lead generation batch and export the results",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := initApp(cfg)
		defer a.Close()

		var leads []model.Lead
		if genCategory == "all" {
			multi, err := a.orchestrator.GenerateAll(cmd.Context(), genLocation, genCount)
			if err != nil {
				return err
			}
			for category, outcome := range multi.Outcomes {
				if outcome.Error != "" {
					zap.L().Warn("category failed",
						zap.String("category", string(category)),
						zap.String("error", outcome.Error))
					continue
				}
				leads = append(leads, outcome.Result.Leads...)
			}
		} else {
			result, err := a.orchestrator.Generate(cmd.Context(), leadgen.Request{
				Location:       genLocation,
				Category:       model.LeadCategory(genCategory),
				RequestedLeads: genCount,
			})
			if err != nil {
				return err
			}
			leads = result.Leads
			zap.L().Info("batch complete",
				zap.Int("delivered", result.DeliveredLeads),
				zap.Float64("validation_rate", result.Stats.ValidationRate),
				zap.Int("cache_hits", result.Stats.CacheHits))
		}

		f, err := os.Create(genOut)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()

		if strings.HasSuffix(genOut, ".xlsx") {
			if err := format.WriteXLSX(f, leads); err != nil {
				return err
			}
		} else {
			if err := format.WriteCSV(f, leads); err != nil {
				return err
			}
		}

		zap.L().Info("export written", zap.String("path", genOut), zap.Int("leads", len(leads)))
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVar(&genLocation, "location", "", "target location, e.g. \"Austin, TX\"")
	generateCmd.Flags().StringVar(&genCategory, "category", "pool", "lead category: pool, backyard, or all")
	generateCmd.Flags().IntVar(&genCount, "count", 10, "requested lead count (10, 25, 50, or 100)")
	generateCmd.Flags().StringVar(&genOut, "out", "leads.csv", "output path (.csv or .xlsx)")
	_ = generateCmd.MarkFlagRequired("location")
	rootCmd.AddCommand(generateCmd)
}
