package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/financebot/financebot/internal/model"
)

// Narrator produces the markdown narrative for a report.
type Narrator interface {
	GenerateReport(ctx context.Context, payload map[string]any, reportType model.ReportType) (string, error)
}

// Metadata identifies a freshly generated report artifact.
type Metadata struct {
	ReportID string
	Filename string
	Path     string
}

// Generator turns call payloads into stored PDF artifacts.
type Generator struct {
	narrator Narrator
	dir      string
}

// NewGenerator creates a report generator writing artifacts under dir.
func NewGenerator(narrator Narrator, dir string) *Generator {
	return &Generator{narrator: narrator, dir: dir}
}

// Generate produces the narrative, renders it to PDF, and returns the
// artifact metadata. A narrative failure fails the whole generation; no
// empty report is ever written.
func (g *Generator) Generate(ctx context.Context, ownerID string, payload map[string]any, reportType model.ReportType) (*Metadata, error) {
	markdown, err := g.narrator.GenerateReport(ctx, payload, reportType)
	if err != nil {
		return nil, eris.Wrap(err, "report: generate narrative")
	}

	reportID := uuid.NewString()
	filename := fmt.Sprintf("%s_%s.pdf", reportType, reportID)
	path := filepath.Join(g.dir, filename)

	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return nil, eris.Wrap(err, "report: create artifact dir")
	}
	if err := renderPDF(reportType.Title(), markdown, path); err != nil {
		return nil, eris.Wrap(err, "report: render pdf")
	}

	zap.L().Info("report artifact written",
		zap.String("owner_id", ownerID),
		zap.String("report_id", reportID),
		zap.String("path", path),
	)

	return &Metadata{ReportID: reportID, Filename: filename, Path: path}, nil
}
