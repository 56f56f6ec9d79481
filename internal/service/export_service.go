package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/openclass/openclass-api/internal/models"
	appErrors "github.com/openclass/openclass-api/pkg/errors"
	"github.com/openclass/openclass-api/pkg/export"
)

// ExportFormat selects the report rendering backend.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)

// ExportResult carries rendered report bytes and HTTP delivery hints.
type ExportResult struct {
	FileName    string
	ContentType string
	Content     []byte
}

// ExportServiceConfig bounds report size.
type ExportServiceConfig struct {
	MaxRows int
}

// ExportService renders the grade report from live analytics reads.
type ExportService struct {
	analytics *AnalyticsService
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	logger    *zap.Logger
	now       func() time.Time
	cfg       ExportServiceConfig
}

// NewExportService constructs an export service.
func NewExportService(analytics *AnalyticsService, logger *zap.Logger, cfg ExportServiceConfig) *ExportService {
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 1000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		analytics: analytics,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		logger:    logger,
		now:       time.Now,
		cfg:       cfg,
	}
}

// GradeReport renders course mean grades and the letter distribution in
// the requested format.
func (s *ExportService) GradeReport(ctx context.Context, scope models.AnalyticsScope, format ExportFormat) (*ExportResult, error) {
	performance, _, err := s.analytics.CoursePerformance(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("load course performance: %w", err)
	}
	distribution, _, err := s.analytics.GradeDistribution(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("load grade distribution: %w", err)
	}

	dataset := export.Dataset{
		Headers: []string{"Section", "Name", "Value"},
		Rows:    make([]map[string]string, 0, len(performance)+len(distribution)),
	}
	for _, row := range performance {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Section": "Course Performance",
			"Name":    row.CourseTitle,
			"Value":   fmt.Sprintf("%s (%s)", strconv.FormatFloat(row.AverageGrade, 'f', 2, 64), models.GradeBucket(row.AverageGrade)),
		})
	}
	for _, bin := range distribution {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Section": "Grade Distribution",
			"Name":    bin.Bucket,
			"Value":   strconv.Itoa(bin.Count),
		})
	}
	if len(dataset.Rows) > s.cfg.MaxRows {
		s.logger.Warn("grade report truncated",
			zap.Int("rows", len(dataset.Rows)),
			zap.Int("max_rows", s.cfg.MaxRows))
		dataset.Rows = dataset.Rows[:s.cfg.MaxRows]
	}

	stamp := s.now().UTC().Format("2006-01-02")
	switch format {
	case ExportCSV:
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, fmt.Errorf("render csv report: %w", err)
		}
		return &ExportResult{
			FileName:    fmt.Sprintf("grade-report-%s.csv", stamp),
			ContentType: "text/csv",
			Content:     content,
		}, nil
	case ExportPDF:
		content, err := s.pdf.Render(dataset, "Grade Report")
		if err != nil {
			return nil, fmt.Errorf("render pdf report: %w", err)
		}
		return &ExportResult{
			FileName:    fmt.Sprintf("grade-report-%s.pdf", stamp),
			ContentType: "application/pdf",
			Content:     content,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}
