// Package format shapes orchestrator output for the wire and exports leads
// as CSV or XLSX.
package format

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/homescout/leadgen/internal/model"
)

// LeadView is the flattened wire shape for a single lead.
type LeadView struct {
	ID             string               `json:"id"`
	Address        string               `json:"address"`
	City           string               `json:"city,omitempty"`
	State          string               `json:"state,omitempty"`
	ZipCode        string               `json:"zip_code,omitempty"`
	Latitude       float64              `json:"latitude"`
	Longitude      float64              `json:"longitude"`
	Price          float64              `json:"price"`
	Bedrooms       int                  `json:"bedrooms"`
	Bathrooms      float64              `json:"bathrooms"`
	Category       model.LeadCategory   `json:"category"`
	QualityScore   model.QualityScore   `json:"quality_score"`
	Confidence     int                  `json:"confidence"`
	Recommendation model.Recommendation `json:"recommendation"`
	Rationale      string               `json:"rationale"`
	Flagged        bool                 `json:"flagged"`
	ImageURL       string               `json:"image_url"`
	VisionSummary  string               `json:"vision_summary"`
}

// ToView flattens a Lead into its wire shape.
func ToView(lead model.Lead) LeadView {
	v := LeadView{
		ID:             lead.ID,
		Address:        lead.Property.Address,
		City:           lead.Property.City,
		State:          lead.Property.State,
		ZipCode:        lead.Property.ZipCode,
		Price:          lead.Property.Price,
		Bedrooms:       lead.Property.Bedrooms,
		Bathrooms:      lead.Property.Bathrooms,
		Category:       lead.Category,
		QualityScore:   lead.Quality.Score,
		Confidence:     lead.Quality.Confidence,
		Recommendation: lead.Quality.Recommendation,
		Rationale:      lead.Quality.Rationale,
		Flagged:        lead.Quality.Flag != nil,
		ImageURL:       lead.Validation.ImageURL,
		VisionSummary:  visionSummary(lead.Validation.Analysis),
	}
	if lead.Property.Coordinates != nil {
		v.Latitude = lead.Property.Coordinates.Latitude
		v.Longitude = lead.Property.Coordinates.Longitude
	}
	return v
}

// visionSummary renders the category-relevant analysis fields as one line.
func visionSummary(a model.VisionAnalysis) string {
	switch a.Category {
	case model.CategoryPool:
		if !a.HasPool {
			return "no pool visible"
		}
		return fmt.Sprintf("pool visible (%s, %s)", a.PoolType, a.PoolSize)
	case model.CategoryBackyard:
		parts := []string{"surface " + a.SurfaceType, "potential " + string(a.DevelopmentPotential)}
		if a.IsUnderdeveloped {
			parts = append(parts, "underdeveloped")
		}
		if len(a.Structures) > 0 {
			parts = append(parts, "structures: "+strings.Join(a.Structures, ", "))
		}
		return strings.Join(parts, "; ")
	default:
		return ""
	}
}

// exportColumns defines the ordered export header shared by CSV and XLSX.
var exportColumns = []string{
	"Lead ID",
	"Address",
	"City",
	"State",
	"Zip Code",
	"Latitude",
	"Longitude",
	"Price",
	"Bedrooms",
	"Bathrooms",
	"Category",
	"Quality Score",
	"Confidence",
	"Recommendation",
	"Flagged",
	"Image URL",
	"Vision Summary",
}

func exportRow(lead model.Lead) []string {
	v := ToView(lead)
	return []string{
		v.ID,
		v.Address,
		v.City,
		v.State,
		v.ZipCode,
		strconv.FormatFloat(v.Latitude, 'f', 6, 64),
		strconv.FormatFloat(v.Longitude, 'f', 6, 64),
		strconv.FormatFloat(v.Price, 'f', 0, 64),
		strconv.Itoa(v.Bedrooms),
		strconv.FormatFloat(v.Bathrooms, 'f', 1, 64),
		string(v.Category),
		string(v.QualityScore),
		strconv.Itoa(v.Confidence),
		string(v.Recommendation),
		strconv.FormatBool(v.Flagged),
		v.ImageURL,
		v.VisionSummary,
	}
}

// WriteCSV writes leads as CSV to w, header first.
func WriteCSV(w io.Writer, leads []model.Lead) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(exportColumns); err != nil {
		return eris.Wrap(err, "format: write csv header")
	}
	for _, lead := range leads {
		if err := cw.Write(exportRow(lead)); err != nil {
			return eris.Wrap(err, "format: write csv row")
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "format: flush csv")
	}
	return nil
}

// WriteXLSX writes leads as a single-sheet workbook to w.
func WriteXLSX(w io.Writer, leads []model.Lead) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Leads")
	if err != nil {
		return eris.Wrap(err, "format: add xlsx sheet")
	}

	header := sheet.AddRow()
	for _, col := range exportColumns {
		header.AddCell().SetString(col)
	}
	for _, lead := range leads {
		row := sheet.AddRow()
		for _, val := range exportRow(lead) {
			row.AddCell().SetString(val)
		}
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "format: write xlsx")
	}
	return nil
}
