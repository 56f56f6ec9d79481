package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/openclass/openclass-api/pkg/errors"

	"github.com/openclass/openclass-api/internal/models"
)

func newExportService(repo *fakeAnalyticsRepo, maxRows int) *ExportService {
	analytics := newAnalyticsService(repo)
	return NewExportService(analytics, zap.NewNop(), ExportServiceConfig{MaxRows: maxRows})
}

func TestGradeReportRendersBothSections(t *testing.T) {
	repo := &fakeAnalyticsRepo{
		performance: []models.CourseAverageGrade{
			{CourseID: "c1", CourseTitle: "Go", AverageGrade: 92.5},
		},
		buckets: []models.GradeBucketCount{{Bucket: "A", Count: 3}},
	}
	svc := newExportService(repo, 0)

	result, err := svc.GradeReport(context.Background(), models.AnalyticsScope{}, ExportCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)

	body := string(result.Content)
	assert.Contains(t, body, "Course Performance,Go,92.50 (A)")
	assert.Contains(t, body, "Grade Distribution,A,3")
}

func TestGradeReportCapsRowCount(t *testing.T) {
	repo := &fakeAnalyticsRepo{}
	for i := 0; i < 10; i++ {
		repo.performance = append(repo.performance, models.CourseAverageGrade{
			CourseID:     fmt.Sprintf("c%d", i),
			CourseTitle:  fmt.Sprintf("course-%d", i),
			AverageGrade: 80,
		})
	}
	svc := newExportService(repo, 8)

	result, err := svc.GradeReport(context.Background(), models.AnalyticsScope{}, ExportCSV)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(result.Content), "\n"), "\n")
	// Header plus the capped row count; the distribution rows fall off
	// the end.
	require.Len(t, lines, 9)
	assert.Equal(t, "Section,Name,Value", lines[0])
}

func TestGradeReportRejectsUnknownFormat(t *testing.T) {
	svc := newExportService(&fakeAnalyticsRepo{}, 0)

	_, err := svc.GradeReport(context.Background(), models.AnalyticsScope{}, ExportFormat("xlsx"))
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
