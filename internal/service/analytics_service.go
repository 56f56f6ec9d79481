package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/openclass/openclass-api/internal/dto"
	"github.com/openclass/openclass-api/internal/models"
)

// AnalyticsRepository describes the persistence layer required by
// AnalyticsService.
type AnalyticsRepository interface {
	SummaryStats(ctx context.Context, scope models.AnalyticsScope) (*models.SummaryStats, error)
	StudentsPerCourse(ctx context.Context, scope models.AnalyticsScope) ([]models.CourseStudentCount, error)
	AssignmentStatus(ctx context.Context, scope models.AnalyticsScope) (*models.AssignmentStatusCounts, error)
	CoursePerformance(ctx context.Context, scope models.AnalyticsScope, limit int) ([]models.CourseAverageGrade, error)
	ProgressTrend(ctx context.Context, scope models.AnalyticsScope, windowStart time.Time) ([]models.MonthlyAverageGrade, error)
	CompletionRates(ctx context.Context, scope models.AnalyticsScope, limit int) ([]models.AssignmentCompletion, error)
	GradeDistribution(ctx context.Context, scope models.AnalyticsScope) ([]models.GradeBucketCount, error)
	CourseEvents(ctx context.Context, scope models.AnalyticsScope, limit int) ([]models.CourseEventRow, error)
	EnrollmentEvents(ctx context.Context, scope models.AnalyticsScope, limit int) ([]models.EnrollmentEventRow, error)
}

// AnalyticsServiceConfig tunes shaping defaults.
type AnalyticsServiceConfig struct {
	TrendWindowMonths int
	ActivityLimit     int
	TopCourses        int
	TopAssignments    int
	CacheTTL          time.Duration
}

// AnalyticsService shapes repository rows into chart-ready payloads with
// cache integration. The boolean on each read indicates whether data
// originated from cache.
type AnalyticsService struct {
	repo    AnalyticsRepository
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
	cfg     AnalyticsServiceConfig
}

// NewAnalyticsService constructs an analytics service with sane defaults.
func NewAnalyticsService(repo AnalyticsRepository, cache *CacheService, metrics *MetricsService, logger *zap.Logger, cfg AnalyticsServiceConfig) *AnalyticsService {
	if cfg.TrendWindowMonths <= 0 {
		cfg.TrendWindowMonths = 6
	}
	if cfg.ActivityLimit <= 0 {
		cfg.ActivityLimit = 10
	}
	if cfg.TopCourses <= 0 {
		cfg.TopCourses = 5
	}
	if cfg.TopAssignments <= 0 {
		cfg.TopAssignments = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{repo: repo, cache: cache, metrics: metrics, logger: logger, now: time.Now, cfg: cfg}
}

func scopeKey(scope models.AnalyticsScope) string {
	if scope.Scoped() {
		return "teacher:" + scope.TeacherID
	}
	return "platform"
}

func analyticsCacheKey(scope models.AnalyticsScope, op string) string {
	return fmt.Sprintf("analytics:%s:%s", scopeKey(scope), op)
}

// InvalidateScope drops cached analytics for the teacher's scope and the
// platform-wide scope, which always includes the teacher's rows.
func (s *AnalyticsService) InvalidateScope(ctx context.Context, teacherID string) error {
	if s.cache == nil {
		return nil
	}
	if teacherID != "" {
		if err := s.cache.Invalidate(ctx, fmt.Sprintf("analytics:teacher:%s:*", teacherID)); err != nil {
			return err
		}
	}
	return s.cache.Invalidate(ctx, "analytics:platform:*")
}

// SummaryStats returns the dashboard headline counters.
func (s *AnalyticsService) SummaryStats(ctx context.Context, scope models.AnalyticsScope) (*models.SummaryStats, bool, error) {
	cacheKey := analyticsCacheKey(scope, "summary")
	var cached models.SummaryStats
	if hit, err := s.cacheGet(ctx, cacheKey, &cached); err != nil {
		return nil, false, err
	} else if hit {
		return &cached, true, nil
	}

	start := time.Now()
	stats, err := s.repo.SummaryStats(ctx, scope)
	if err != nil {
		return nil, false, err
	}
	s.observeQuery("analytics_summary", start)

	stats.AverageGrade = round1(stats.AverageGrade)
	s.cacheSet(ctx, cacheKey, stats)
	return stats, false, nil
}

// StudentsPerCourse returns enrollment counts per course, zero-enrollment
// courses included, ordered by count descending.
func (s *AnalyticsService) StudentsPerCourse(ctx context.Context, scope models.AnalyticsScope) ([]models.CourseStudentCount, bool, error) {
	cacheKey := analyticsCacheKey(scope, "students-per-course")
	var cached []models.CourseStudentCount
	if hit, err := s.cacheGet(ctx, cacheKey, &cached); err != nil {
		return nil, false, err
	} else if hit {
		return cached, true, nil
	}

	start := time.Now()
	counts, err := s.repo.StudentsPerCourse(ctx, scope)
	if err != nil {
		return nil, false, err
	}
	s.observeQuery("analytics_students_per_course", start)

	if counts == nil {
		counts = []models.CourseStudentCount{}
	}
	s.cacheSet(ctx, cacheKey, counts)
	return counts, false, nil
}

// AssignmentStatus partitions submissions by completion.
func (s *AnalyticsService) AssignmentStatus(ctx context.Context, scope models.AnalyticsScope) (*models.AssignmentStatusCounts, bool, error) {
	cacheKey := analyticsCacheKey(scope, "assignment-status")
	var cached models.AssignmentStatusCounts
	if hit, err := s.cacheGet(ctx, cacheKey, &cached); err != nil {
		return nil, false, err
	} else if hit {
		return &cached, true, nil
	}

	start := time.Now()
	counts, err := s.repo.AssignmentStatus(ctx, scope)
	if err != nil {
		return nil, false, err
	}
	s.observeQuery("analytics_assignment_status", start)

	s.cacheSet(ctx, cacheKey, counts)
	return counts, false, nil
}

// CoursePerformance returns the top courses by mean grade descending.
// Courses without graded submissions are excluded, not zero-filled.
func (s *AnalyticsService) CoursePerformance(ctx context.Context, scope models.AnalyticsScope) ([]models.CourseAverageGrade, bool, error) {
	cacheKey := analyticsCacheKey(scope, "course-performance")
	var cached []models.CourseAverageGrade
	if hit, err := s.cacheGet(ctx, cacheKey, &cached); err != nil {
		return nil, false, err
	} else if hit {
		return cached, true, nil
	}

	start := time.Now()
	rows, err := s.repo.CoursePerformance(ctx, scope, s.cfg.TopCourses)
	if err != nil {
		return nil, false, err
	}
	s.observeQuery("analytics_course_performance", start)

	shaped := make([]models.CourseAverageGrade, 0, len(rows))
	for _, row := range rows {
		row.AverageGrade = round2(row.AverageGrade)
		shaped = append(shaped, row)
	}
	s.cacheSet(ctx, cacheKey, shaped)
	return shaped, false, nil
}

// ProgressTrend returns calendar-month mean grades over the trailing
// window, ordered chronologically. Month labels are display strings and
// must never drive ordering.
func (s *AnalyticsService) ProgressTrend(ctx context.Context, scope models.AnalyticsScope) ([]dto.ProgressTrendPoint, bool, error) {
	cacheKey := analyticsCacheKey(scope, "progress-trend")
	var cached []dto.ProgressTrendPoint
	if hit, err := s.cacheGet(ctx, cacheKey, &cached); err != nil {
		return nil, false, err
	} else if hit {
		return cached, true, nil
	}

	now := s.now().UTC()
	windowStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(s.cfg.TrendWindowMonths - 1), 0)

	start := time.Now()
	rows, err := s.repo.ProgressTrend(ctx, scope, windowStart)
	if err != nil {
		return nil, false, err
	}
	s.observeQuery("analytics_progress_trend", start)

	points := shapeTrendPoints(rows)
	s.cacheSet(ctx, cacheKey, points)
	return points, false, nil
}

func shapeTrendPoints(rows []models.MonthlyAverageGrade) []dto.ProgressTrendPoint {
	sorted := make([]models.MonthlyAverageGrade, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Month.Before(sorted[j].Month)
	})
	points := make([]dto.ProgressTrendPoint, 0, len(sorted))
	for _, row := range sorted {
		points = append(points, dto.ProgressTrendPoint{
			Label:        row.Month.Format("Jan 2006"),
			AverageGrade: round2(row.AverageGrade),
		})
	}
	return points
}

// CompletionRates returns completion percentages for the most recently
// created assignments. Assignments without enrolled students are
// excluded; rates never exceed 100 even with duplicate submissions.
func (s *AnalyticsService) CompletionRates(ctx context.Context, scope models.AnalyticsScope) ([]dto.CompletionRateEntry, bool, error) {
	cacheKey := analyticsCacheKey(scope, "completion-rates")
	var cached []dto.CompletionRateEntry
	if hit, err := s.cacheGet(ctx, cacheKey, &cached); err != nil {
		return nil, false, err
	} else if hit {
		return cached, true, nil
	}

	start := time.Now()
	rows, err := s.repo.CompletionRates(ctx, scope, s.cfg.TopAssignments)
	if err != nil {
		return nil, false, err
	}
	s.observeQuery("analytics_completion_rates", start)

	entries := shapeCompletionRates(rows)
	s.cacheSet(ctx, cacheKey, entries)
	return entries, false, nil
}

func shapeCompletionRates(rows []models.AssignmentCompletion) []dto.CompletionRateEntry {
	entries := make([]dto.CompletionRateEntry, 0, len(rows))
	for _, row := range rows {
		if row.EnrolledCount <= 0 {
			continue
		}
		rate := float64(row.SubmittedCount) / float64(row.EnrolledCount) * 100
		if rate > 100 {
			rate = 100
		}
		entries = append(entries, dto.CompletionRateEntry{
			AssignmentID:   row.AssignmentID,
			Title:          row.Title,
			CourseTitle:    row.CourseTitle,
			CompletionRate: round2(rate),
		})
	}
	return entries
}

var gradeBucketOrder = []string{"A", "B", "C", "D", "F"}

// maxActivityLimit caps the activity feed page size regardless of what
// the client asks for.
const maxActivityLimit = 50

// GradeDistribution returns counts per letter bucket, ordered A through F
// with empty buckets zero-filled.
func (s *AnalyticsService) GradeDistribution(ctx context.Context, scope models.AnalyticsScope) ([]dto.GradeDistributionBin, bool, error) {
	cacheKey := analyticsCacheKey(scope, "grade-distribution")
	var cached []dto.GradeDistributionBin
	if hit, err := s.cacheGet(ctx, cacheKey, &cached); err != nil {
		return nil, false, err
	} else if hit {
		return cached, true, nil
	}

	start := time.Now()
	rows, err := s.repo.GradeDistribution(ctx, scope)
	if err != nil {
		return nil, false, err
	}
	s.observeQuery("analytics_grade_distribution", start)

	bins := shapeDistribution(rows)
	s.cacheSet(ctx, cacheKey, bins)
	return bins, false, nil
}

func shapeDistribution(rows []models.GradeBucketCount) []dto.GradeDistributionBin {
	counts := make(map[string]int, len(gradeBucketOrder))
	for _, row := range rows {
		counts[row.Bucket] += row.Count
	}
	bins := make([]dto.GradeDistributionBin, 0, len(gradeBucketOrder))
	for _, bucket := range gradeBucketOrder {
		bins = append(bins, dto.GradeDistributionBin{Bucket: bucket, Count: counts[bucket]})
	}
	return bins
}

// RecentActivity merges the course and enrollment event streams into one
// chronological feed. Both streams are mapped into the common envelope
// before sorting, then truncated and assigned positional ids.
func (s *AnalyticsService) RecentActivity(ctx context.Context, scope models.AnalyticsScope, limit int) ([]models.ActivityEvent, bool, error) {
	if limit <= 0 {
		limit = s.cfg.ActivityLimit
	}
	// The limit is caller-supplied and feeds both the SQL LIMIT and the
	// cache key, so it gets a hard ceiling.
	if limit > maxActivityLimit {
		limit = maxActivityLimit
	}
	cacheKey := fmt.Sprintf("%s:%d", analyticsCacheKey(scope, "activity"), limit)
	var cached []models.ActivityEvent
	if hit, err := s.cacheGet(ctx, cacheKey, &cached); err != nil {
		return nil, false, err
	} else if hit {
		return cached, true, nil
	}

	start := time.Now()
	courseRows, err := s.repo.CourseEvents(ctx, scope, limit)
	if err != nil {
		return nil, false, err
	}
	enrollmentRows, err := s.repo.EnrollmentEvents(ctx, scope, limit)
	if err != nil {
		return nil, false, err
	}
	s.observeQuery("analytics_recent_activity", start)

	events := mergeActivity(courseRows, enrollmentRows, limit)
	s.cacheSet(ctx, cacheKey, events)
	return events, false, nil
}

func mergeActivity(courses []models.CourseEventRow, enrollments []models.EnrollmentEventRow, limit int) []models.ActivityEvent {
	events := make([]models.ActivityEvent, 0, len(courses)+len(enrollments))
	for _, row := range courses {
		eventType := models.ActivityCourseCreated
		occurred := row.CreatedAt
		if row.UpdatedAt.After(row.CreatedAt) {
			eventType = models.ActivityCourseUpdated
			occurred = row.UpdatedAt
		}
		events = append(events, models.ActivityEvent{
			Type:        eventType,
			ActorName:   row.TeacherName,
			ActorAvatar: row.TeacherAvatar,
			CourseName:  row.CourseTitle,
			OccurredAt:  occurred,
		})
	}
	for _, row := range enrollments {
		events = append(events, models.ActivityEvent{
			Type:        models.ActivityEnrollment,
			ActorName:   row.StudentName,
			ActorAvatar: row.StudentAvatar,
			CourseName:  row.CourseTitle,
			StudentName: row.StudentName,
			OccurredAt:  row.EnrolledAt,
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].OccurredAt.After(events[j].OccurredAt)
	})
	if len(events) > limit {
		events = events[:limit]
	}
	for i := range events {
		events[i].ID = fmt.Sprintf("activity-%d", i)
	}
	return events
}

// Overview composes the dashboard landing payload. The three reads are
// independent and issued concurrently; either the full payload or an
// error is returned, never a partial result.
func (s *AnalyticsService) Overview(ctx context.Context, scope models.AnalyticsScope) (*dto.OverviewResponse, error) {
	var (
		summary  *models.SummaryStats
		status   *models.AssignmentStatusCounts
		activity []models.ActivityEvent

		summaryErr  error
		statusErr   error
		activityErr error
	)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		summary, _, summaryErr = s.SummaryStats(ctx, scope)
	}()
	go func() {
		defer wg.Done()
		status, _, statusErr = s.AssignmentStatus(ctx, scope)
	}()
	go func() {
		defer wg.Done()
		activity, _, activityErr = s.RecentActivity(ctx, scope, 0)
	}()
	wg.Wait()

	for _, err := range []error{summaryErr, statusErr, activityErr} {
		if err != nil {
			return nil, err
		}
	}

	return &dto.OverviewResponse{
		Summary:          *summary,
		AssignmentStatus: *status,
		RecentActivity:   activity,
	}, nil
}

// SystemMetrics returns the instrumentation snapshot.
func (s *AnalyticsService) SystemMetrics() models.SystemMetrics {
	if s.metrics == nil {
		return models.SystemMetrics{}
	}
	return s.metrics.Snapshot()
}

// cacheGet treats cache failures as misses so analytics reads survive a
// Redis outage.
func (s *AnalyticsService) cacheGet(ctx context.Context, key string, dest interface{}) (bool, error) {
	if s.cache == nil {
		return false, nil
	}
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		return false, nil
	}
	return hit, nil
}

func (s *AnalyticsService) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cfg.CacheTTL); err != nil && s.logger != nil {
		s.logger.Warn("cache analytics payload", zap.String("key", key), zap.Error(err))
	}
}

func (s *AnalyticsService) observeQuery(label string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveDBQuery(label, time.Since(start))
	}
}

func round1(value float64) float64 {
	return math.Round(value*10) / 10
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
