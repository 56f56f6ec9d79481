package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclass/openclass-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func TestSummaryStatsPlatformScope(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAnalyticsRepository(db)

	rows := sqlmock.NewRows([]string{"total_courses", "total_students", "average_grade", "pending_review_count"}).
		AddRow(4, 12, 81.25, 3)
	mock.ExpectQuery("SELECT").WillReturnRows(rows)

	stats, err := repo.SummaryStats(context.Background(), models.AnalyticsScope{})
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalCourses)
	assert.Equal(t, 12, stats.TotalStudents)
	assert.Equal(t, 81.25, stats.AverageGrade)
	assert.Equal(t, 3, stats.PendingReviewCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentsPerCourseScopedToTeacher(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAnalyticsRepository(db)

	rows := sqlmock.NewRows([]string{"course_id", "course_title", "student_count"}).
		AddRow("c1", "Algorithms", 9).
		AddRow("c2", "Compilers", 0)
	mock.ExpectQuery(regexp.QuoteMeta("AND c.teacher_id = $1 GROUP BY c.id, c.title ORDER BY student_count DESC, c.title ASC")).
		WithArgs("t1").
		WillReturnRows(rows)

	counts, err := repo.StudentsPerCourse(context.Background(), models.AnalyticsScope{TeacherID: "t1"})
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, 9, counts[0].StudentCount)
	// Zero-enrollment courses survive the left join.
	assert.Equal(t, 0, counts[1].StudentCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCoursePerformanceLimit(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAnalyticsRepository(db)

	rows := sqlmock.NewRows([]string{"course_id", "course_title", "average_grade"}).
		AddRow("c1", "Algorithms", 92.5)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY average_grade DESC LIMIT $1")).
		WithArgs(5).
		WillReturnRows(rows)

	performance, err := repo.CoursePerformance(context.Background(), models.AnalyticsScope{}, 5)
	require.NoError(t, err)
	require.Len(t, performance, 1)
	assert.Equal(t, 92.5, performance[0].AverageGrade)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProgressTrendWindowArg(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAnalyticsRepository(db)

	windowStart := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"month", "average_grade"}).
		AddRow(windowStart, 78.9).
		AddRow(windowStart.AddDate(0, 1, 0), 82.1)
	mock.ExpectQuery(regexp.QuoteMeta("date_trunc('month', s.submitted_at)")).
		WithArgs(windowStart).
		WillReturnRows(rows)

	trend, err := repo.ProgressTrend(context.Background(), models.AnalyticsScope{}, windowStart)
	require.NoError(t, err)
	require.Len(t, trend, 2)
	assert.True(t, trend[0].Month.Before(trend[1].Month))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompletionRatesCounters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAnalyticsRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"assignment_id", "title", "course_title", "created_at", "enrolled_count", "submitted_count"}).
		AddRow("a1", "Essay", "Algorithms", now, 10, 7)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY a.created_at DESC LIMIT $2")).
		WithArgs("t1", 5).
		WillReturnRows(rows)

	completion, err := repo.CompletionRates(context.Background(), models.AnalyticsScope{TeacherID: "t1"}, 5)
	require.NoError(t, err)
	require.Len(t, completion, 1)
	assert.Equal(t, 10, completion[0].EnrolledCount)
	assert.Equal(t, 7, completion[0].SubmittedCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeDistributionBuckets(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAnalyticsRepository(db)

	rows := sqlmock.NewRows([]string{"bucket", "count"}).
		AddRow("A", 2).
		AddRow("F", 1)
	mock.ExpectQuery(regexp.QuoteMeta("WHEN s.grade >= 90 THEN 'A'")).
		WillReturnRows(rows)

	buckets, err := repo.GradeDistribution(context.Background(), models.AnalyticsScope{})
	require.NoError(t, err)
	require.Len(t, buckets, 2)
	assert.Equal(t, "A", buckets[0].Bucket)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseEventsOrderByLatestTouch(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAnalyticsRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"course_title", "teacher_name", "teacher_avatar", "created_at", "updated_at"}).
		AddRow("Algorithms", "Ada", "", now.Add(-time.Hour), now)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY GREATEST(c.created_at, c.updated_at) DESC LIMIT $1")).
		WithArgs(10).
		WillReturnRows(rows)

	events, err := repo.CourseEvents(context.Background(), models.AnalyticsScope{}, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].UpdatedAt.After(events[0].CreatedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}
