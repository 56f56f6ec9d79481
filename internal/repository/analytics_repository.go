package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/openclass/openclass-api/internal/models"
)

// AnalyticsRepository exposes read-optimised queries for analytics
// endpoints. Every query takes a scope; an empty scope aggregates
// platform-wide, otherwise rows are filtered to courses owned by the
// scoped teacher.
type AnalyticsRepository struct {
	db *sqlx.DB
}

// NewAnalyticsRepository instantiates the repository.
func NewAnalyticsRepository(db *sqlx.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// scopeClause returns the teacher predicate suffix and its args. The
// predicate always references the courses table aliased as c.
func scopeClause(scope models.AnalyticsScope) (string, []interface{}) {
	if !scope.Scoped() {
		return "", nil
	}
	return " AND c.teacher_id = $1", []interface{}{scope.TeacherID}
}

// SummaryStats aggregates the dashboard headline counters in one round trip.
func (r *AnalyticsRepository) SummaryStats(ctx context.Context, scope models.AnalyticsScope) (*models.SummaryStats, error) {
	cond, args := scopeClause(scope)
	query := fmt.Sprintf(`SELECT
        (SELECT COUNT(*) FROM courses c WHERE 1=1%[1]s) AS total_courses,
        (SELECT COUNT(DISTINCT e.student_id) FROM enrollments e JOIN courses c ON c.id = e.course_id WHERE 1=1%[1]s) AS total_students,
        (SELECT COALESCE(AVG(s.grade), 0) FROM submissions s
            JOIN assignments a ON a.id = s.assignment_id
            JOIN courses c ON c.id = a.course_id
            WHERE s.grade IS NOT NULL%[1]s) AS average_grade,
        (SELECT COUNT(*) FROM submissions s
            JOIN assignments a ON a.id = s.assignment_id
            JOIN courses c ON c.id = a.course_id
            WHERE s.grade IS NULL%[1]s) AS pending_review_count`, cond)

	var row struct {
		TotalCourses       int     `db:"total_courses"`
		TotalStudents      int     `db:"total_students"`
		AverageGrade       float64 `db:"average_grade"`
		PendingReviewCount int     `db:"pending_review_count"`
	}
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return nil, fmt.Errorf("query summary stats: %w", err)
	}
	return &models.SummaryStats{
		TotalCourses:       row.TotalCourses,
		TotalStudents:      row.TotalStudents,
		AverageGrade:       row.AverageGrade,
		PendingReviewCount: row.PendingReviewCount,
	}, nil
}

// StudentsPerCourse counts enrollments per course. Courses without
// enrollments are retained with a zero count via the left join.
func (r *AnalyticsRepository) StudentsPerCourse(ctx context.Context, scope models.AnalyticsScope) ([]models.CourseStudentCount, error) {
	var builder strings.Builder
	builder.WriteString(`SELECT c.id AS course_id, c.title AS course_title, COUNT(e.id) AS student_count
        FROM courses c
        LEFT JOIN enrollments e ON e.course_id = c.id
        WHERE 1=1`)
	cond, args := scopeClause(scope)
	builder.WriteString(cond)
	builder.WriteString(" GROUP BY c.id, c.title ORDER BY student_count DESC, c.title ASC")

	var counts []models.CourseStudentCount
	if err := r.db.SelectContext(ctx, &counts, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("query students per course: %w", err)
	}
	return counts, nil
}

// AssignmentStatus partitions all submissions in scope by grade null-ness.
func (r *AnalyticsRepository) AssignmentStatus(ctx context.Context, scope models.AnalyticsScope) (*models.AssignmentStatusCounts, error) {
	var builder strings.Builder
	builder.WriteString(`SELECT
        COALESCE(SUM(CASE WHEN s.grade IS NOT NULL THEN 1 ELSE 0 END), 0) AS completed_count,
        COALESCE(SUM(CASE WHEN s.grade IS NULL THEN 1 ELSE 0 END), 0) AS pending_count
        FROM submissions s
        JOIN assignments a ON a.id = s.assignment_id
        JOIN courses c ON c.id = a.course_id
        WHERE 1=1`)
	cond, args := scopeClause(scope)
	builder.WriteString(cond)

	var counts models.AssignmentStatusCounts
	if err := r.db.GetContext(ctx, &counts, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("query assignment status: %w", err)
	}
	return &counts, nil
}

// CoursePerformance returns the top courses by mean grade. Courses with
// no graded submissions drop out through the inner join on grade.
func (r *AnalyticsRepository) CoursePerformance(ctx context.Context, scope models.AnalyticsScope, limit int) ([]models.CourseAverageGrade, error) {
	var builder strings.Builder
	builder.WriteString(`SELECT c.id AS course_id, c.title AS course_title, AVG(s.grade) AS average_grade
        FROM courses c
        JOIN assignments a ON a.course_id = c.id
        JOIN submissions s ON s.assignment_id = a.id
        WHERE s.grade IS NOT NULL`)
	cond, args := scopeClause(scope)
	builder.WriteString(cond)
	args = append(args, limit)
	builder.WriteString(fmt.Sprintf(" GROUP BY c.id, c.title ORDER BY average_grade DESC LIMIT $%d", len(args)))

	var rows []models.CourseAverageGrade
	if err := r.db.SelectContext(ctx, &rows, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("query course performance: %w", err)
	}
	return rows, nil
}

// ProgressTrend buckets graded submissions by calendar month from the
// window start. Ordering is on the truncated timestamp, not the label.
func (r *AnalyticsRepository) ProgressTrend(ctx context.Context, scope models.AnalyticsScope, windowStart time.Time) ([]models.MonthlyAverageGrade, error) {
	var builder strings.Builder
	builder.WriteString(`SELECT date_trunc('month', s.submitted_at) AS month, AVG(s.grade) AS average_grade
        FROM submissions s
        JOIN assignments a ON a.id = s.assignment_id
        JOIN courses c ON c.id = a.course_id
        WHERE s.grade IS NOT NULL`)
	cond, args := scopeClause(scope)
	builder.WriteString(cond)
	args = append(args, windowStart)
	builder.WriteString(fmt.Sprintf(" AND s.submitted_at >= $%d", len(args)))
	builder.WriteString(" GROUP BY month ORDER BY month ASC")

	var rows []models.MonthlyAverageGrade
	if err := r.db.SelectContext(ctx, &rows, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("query progress trend: %w", err)
	}
	return rows, nil
}

// CompletionRates fetches raw enrolled/submitted counters for the most
// recently created assignments. Only submissions from students actually
// enrolled in the assignment's course are counted, deduplicated per
// student.
func (r *AnalyticsRepository) CompletionRates(ctx context.Context, scope models.AnalyticsScope, limit int) ([]models.AssignmentCompletion, error) {
	var builder strings.Builder
	builder.WriteString(`SELECT a.id AS assignment_id, a.title, c.title AS course_title, a.created_at,
        (SELECT COUNT(*) FROM enrollments e WHERE e.course_id = a.course_id) AS enrolled_count,
        (SELECT COUNT(DISTINCT s.student_id) FROM submissions s
            JOIN enrollments e2 ON e2.course_id = a.course_id AND e2.student_id = s.student_id
            WHERE s.assignment_id = a.id) AS submitted_count
        FROM assignments a
        JOIN courses c ON c.id = a.course_id
        WHERE 1=1`)
	cond, args := scopeClause(scope)
	builder.WriteString(cond)
	args = append(args, limit)
	builder.WriteString(fmt.Sprintf(" ORDER BY a.created_at DESC LIMIT $%d", len(args)))

	var rows []models.AssignmentCompletion
	if err := r.db.SelectContext(ctx, &rows, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("query completion rates: %w", err)
	}
	return rows, nil
}

// GradeDistribution counts graded submissions per letter bucket. Missing
// buckets are zero-filled at the shaping layer.
func (r *AnalyticsRepository) GradeDistribution(ctx context.Context, scope models.AnalyticsScope) ([]models.GradeBucketCount, error) {
	var builder strings.Builder
	builder.WriteString(`SELECT CASE
            WHEN s.grade >= 90 THEN 'A'
            WHEN s.grade >= 80 THEN 'B'
            WHEN s.grade >= 70 THEN 'C'
            WHEN s.grade >= 60 THEN 'D'
            ELSE 'F'
        END AS bucket, COUNT(*) AS count
        FROM submissions s
        JOIN assignments a ON a.id = s.assignment_id
        JOIN courses c ON c.id = a.course_id
        WHERE s.grade IS NOT NULL`)
	cond, args := scopeClause(scope)
	builder.WriteString(cond)
	builder.WriteString(" GROUP BY bucket")

	var rows []models.GradeBucketCount
	if err := r.db.SelectContext(ctx, &rows, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("query grade distribution: %w", err)
	}
	return rows, nil
}

// CourseEvents returns the course stream feeding the activity merge, most
// recent first.
func (r *AnalyticsRepository) CourseEvents(ctx context.Context, scope models.AnalyticsScope, limit int) ([]models.CourseEventRow, error) {
	var builder strings.Builder
	builder.WriteString(`SELECT c.title AS course_title, u.full_name AS teacher_name, u.avatar_url AS teacher_avatar, c.created_at, c.updated_at
        FROM courses c
        JOIN users u ON u.id = c.teacher_id
        WHERE 1=1`)
	cond, args := scopeClause(scope)
	builder.WriteString(cond)
	args = append(args, limit)
	builder.WriteString(fmt.Sprintf(" ORDER BY GREATEST(c.created_at, c.updated_at) DESC LIMIT $%d", len(args)))

	var rows []models.CourseEventRow
	if err := r.db.SelectContext(ctx, &rows, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("query course events: %w", err)
	}
	return rows, nil
}

// EnrollmentEvents returns the enrollment stream feeding the activity
// merge, most recent first.
func (r *AnalyticsRepository) EnrollmentEvents(ctx context.Context, scope models.AnalyticsScope, limit int) ([]models.EnrollmentEventRow, error) {
	var builder strings.Builder
	builder.WriteString(`SELECT c.title AS course_title, u.full_name AS student_name, u.avatar_url AS student_avatar, e.enrolled_at
        FROM enrollments e
        JOIN courses c ON c.id = e.course_id
        JOIN users u ON u.id = e.student_id
        WHERE 1=1`)
	cond, args := scopeClause(scope)
	builder.WriteString(cond)
	args = append(args, limit)
	builder.WriteString(fmt.Sprintf(" ORDER BY e.enrolled_at DESC LIMIT $%d", len(args)))

	var rows []models.EnrollmentEventRow
	if err := r.db.SelectContext(ctx, &rows, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("query enrollment events: %w", err)
	}
	return rows, nil
}
