package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openclass/openclass-api/internal/models"
)

type fakeAnalyticsRepo struct {
	summary     *models.SummaryStats
	students    []models.CourseStudentCount
	status      *models.AssignmentStatusCounts
	performance []models.CourseAverageGrade
	trend       []models.MonthlyAverageGrade
	completion  []models.AssignmentCompletion
	buckets     []models.GradeBucketCount
	courseRows  []models.CourseEventRow
	enrollRows  []models.EnrollmentEventRow
	err         error

	lastEventLimit int
}

func (f *fakeAnalyticsRepo) SummaryStats(context.Context, models.AnalyticsScope) (*models.SummaryStats, error) {
	return f.summary, f.err
}

func (f *fakeAnalyticsRepo) StudentsPerCourse(context.Context, models.AnalyticsScope) ([]models.CourseStudentCount, error) {
	return f.students, f.err
}

func (f *fakeAnalyticsRepo) AssignmentStatus(context.Context, models.AnalyticsScope) (*models.AssignmentStatusCounts, error) {
	return f.status, f.err
}

func (f *fakeAnalyticsRepo) CoursePerformance(context.Context, models.AnalyticsScope, int) ([]models.CourseAverageGrade, error) {
	return f.performance, f.err
}

func (f *fakeAnalyticsRepo) ProgressTrend(context.Context, models.AnalyticsScope, time.Time) ([]models.MonthlyAverageGrade, error) {
	return f.trend, f.err
}

func (f *fakeAnalyticsRepo) CompletionRates(context.Context, models.AnalyticsScope, int) ([]models.AssignmentCompletion, error) {
	return f.completion, f.err
}

func (f *fakeAnalyticsRepo) GradeDistribution(context.Context, models.AnalyticsScope) ([]models.GradeBucketCount, error) {
	return f.buckets, f.err
}

func (f *fakeAnalyticsRepo) CourseEvents(_ context.Context, _ models.AnalyticsScope, limit int) ([]models.CourseEventRow, error) {
	f.lastEventLimit = limit
	return f.courseRows, f.err
}

func (f *fakeAnalyticsRepo) EnrollmentEvents(_ context.Context, _ models.AnalyticsScope, limit int) ([]models.EnrollmentEventRow, error) {
	f.lastEventLimit = limit
	return f.enrollRows, f.err
}

func newAnalyticsService(repo *fakeAnalyticsRepo) *AnalyticsService {
	return NewAnalyticsService(repo, nil, nil, zap.NewNop(), AnalyticsServiceConfig{})
}

func TestSummaryStatsRoundsToOneDecimal(t *testing.T) {
	// Grades 80, 90, 70 plus one pending: average 80, one decimal.
	repo := &fakeAnalyticsRepo{summary: &models.SummaryStats{
		TotalCourses:       2,
		TotalStudents:      3,
		AverageGrade:       79.96667,
		PendingReviewCount: 1,
	}}
	svc := newAnalyticsService(repo)

	stats, hit, err := svc.SummaryStats(context.Background(), models.AnalyticsScope{})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 80.0, stats.AverageGrade)
	assert.Equal(t, 1, stats.PendingReviewCount)
}

func TestCompletionRatesSkipAndCap(t *testing.T) {
	repo := &fakeAnalyticsRepo{completion: []models.AssignmentCompletion{
		{AssignmentID: "a1", Title: "Essay", CourseTitle: "Go", EnrolledCount: 3, SubmittedCount: 2},
		{AssignmentID: "a2", Title: "Quiz", CourseTitle: "Go", EnrolledCount: 0, SubmittedCount: 4},
		{AssignmentID: "a3", Title: "Lab", CourseTitle: "Go", EnrolledCount: 2, SubmittedCount: 5},
	}}
	svc := newAnalyticsService(repo)

	entries, _, err := svc.CompletionRates(context.Background(), models.AnalyticsScope{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a1", entries[0].AssignmentID)
	assert.Equal(t, 66.67, entries[0].CompletionRate)
	// Stray submissions never push the rate past 100.
	assert.Equal(t, "a3", entries[1].AssignmentID)
	assert.Equal(t, 100.0, entries[1].CompletionRate)
}

func TestGradeDistributionZeroFillsBuckets(t *testing.T) {
	repo := &fakeAnalyticsRepo{buckets: []models.GradeBucketCount{
		{Bucket: "B", Count: 4},
		{Bucket: "F", Count: 1},
	}}
	svc := newAnalyticsService(repo)

	bins, _, err := svc.GradeDistribution(context.Background(), models.AnalyticsScope{})
	require.NoError(t, err)
	require.Len(t, bins, 5)

	expected := map[string]int{"A": 0, "B": 4, "C": 0, "D": 0, "F": 1}
	order := []string{"A", "B", "C", "D", "F"}
	for i, bin := range bins {
		assert.Equal(t, order[i], bin.Bucket)
		assert.Equal(t, expected[bin.Bucket], bin.Count)
	}
}

func TestProgressTrendOrdersByTimestampNotLabel(t *testing.T) {
	// "Apr 2025" sorts before "Dec 2024" lexically; timestamps must win.
	dec := time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC)
	apr := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
	repo := &fakeAnalyticsRepo{trend: []models.MonthlyAverageGrade{
		{Month: apr, AverageGrade: 91.234},
		{Month: dec, AverageGrade: 74.5},
	}}
	svc := newAnalyticsService(repo)

	points, _, err := svc.ProgressTrend(context.Background(), models.AnalyticsScope{})
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "Dec 2024", points[0].Label)
	assert.Equal(t, 74.5, points[0].AverageGrade)
	assert.Equal(t, "Apr 2025", points[1].Label)
	assert.Equal(t, 91.23, points[1].AverageGrade)
}

func TestRecentActivityMergesAndTruncates(t *testing.T) {
	base := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	repo := &fakeAnalyticsRepo{}
	for i := 0; i < 15; i++ {
		ts := base.Add(time.Duration(2*i) * time.Hour)
		repo.courseRows = append(repo.courseRows, models.CourseEventRow{
			CourseTitle: fmt.Sprintf("course-%d", i),
			TeacherName: "Teacher",
			CreatedAt:   ts,
			UpdatedAt:   ts,
		})
		repo.enrollRows = append(repo.enrollRows, models.EnrollmentEventRow{
			CourseTitle: fmt.Sprintf("course-%d", i),
			StudentName: "Student",
			EnrolledAt:  base.Add(time.Duration(2*i+1) * time.Hour),
		})
	}
	svc := newAnalyticsService(repo)

	events, _, err := svc.RecentActivity(context.Background(), models.AnalyticsScope{}, 10)
	require.NoError(t, err)
	require.Len(t, events, 10)

	for i, event := range events {
		assert.Equal(t, fmt.Sprintf("activity-%d", i), event.ID)
		if i > 0 {
			assert.False(t, events[i-1].OccurredAt.Before(event.OccurredAt))
		}
	}
	// The newest event overall is the last enrollment.
	assert.Equal(t, models.ActivityEnrollment, events[0].Type)
}

func TestRecentActivityClampsRequestedLimit(t *testing.T) {
	repo := &fakeAnalyticsRepo{}
	svc := newAnalyticsService(repo)

	_, _, err := svc.RecentActivity(context.Background(), models.AnalyticsScope{}, 5000)
	require.NoError(t, err)
	assert.Equal(t, 50, repo.lastEventLimit)

	_, _, err = svc.RecentActivity(context.Background(), models.AnalyticsScope{}, -3)
	require.NoError(t, err)
	assert.Equal(t, 10, repo.lastEventLimit)
}

func TestRecentActivityCourseUpdateWinsOverCreate(t *testing.T) {
	created := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	updated := created.Add(48 * time.Hour)
	repo := &fakeAnalyticsRepo{courseRows: []models.CourseEventRow{
		{CourseTitle: "Databases", TeacherName: "T", CreatedAt: created, UpdatedAt: updated},
		{CourseTitle: "Networks", TeacherName: "T", CreatedAt: created, UpdatedAt: created},
	}}
	svc := newAnalyticsService(repo)

	events, _, err := svc.RecentActivity(context.Background(), models.AnalyticsScope{}, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, models.ActivityCourseUpdated, events[0].Type)
	assert.Equal(t, updated, events[0].OccurredAt)
	assert.Equal(t, models.ActivityCourseCreated, events[1].Type)
}

func TestOverviewComposesAllSections(t *testing.T) {
	repo := &fakeAnalyticsRepo{
		summary: &models.SummaryStats{TotalCourses: 1, AverageGrade: 88.84},
		status:  &models.AssignmentStatusCounts{CompletedCount: 3, PendingCount: 2},
		courseRows: []models.CourseEventRow{
			{CourseTitle: "Go", TeacherName: "T", CreatedAt: time.Now(), UpdatedAt: time.Now()},
		},
	}
	svc := newAnalyticsService(repo)

	overview, err := svc.Overview(context.Background(), models.AnalyticsScope{TeacherID: "t1"})
	require.NoError(t, err)
	assert.Equal(t, 88.8, overview.Summary.AverageGrade)
	assert.Equal(t, 3, overview.AssignmentStatus.CompletedCount)
	require.Len(t, overview.RecentActivity, 1)
	assert.Equal(t, "activity-0", overview.RecentActivity[0].ID)
}

func TestAnalyticsCacheKeyIsScopeQualified(t *testing.T) {
	platform := analyticsCacheKey(models.AnalyticsScope{}, "summary")
	scoped := analyticsCacheKey(models.AnalyticsScope{TeacherID: "t1"}, "summary")
	assert.Equal(t, "analytics:platform:summary", platform)
	assert.Equal(t, "analytics:teacher:t1:summary", scoped)
	assert.NotEqual(t, platform, scoped)
}
