package models

import "time"

// AnalyticsScope restricts aggregation to a single teacher's courses.
// An empty TeacherID means platform-wide (admin) scope. The scope is
// always derived from the authenticated principal, never from request
// parameters.
type AnalyticsScope struct {
	TeacherID string
}

// Scoped reports whether the scope is restricted to one teacher.
func (s AnalyticsScope) Scoped() bool {
	return s.TeacherID != ""
}

// SummaryStats is the dashboard headline row.
type SummaryStats struct {
	TotalCourses       int     `json:"total_courses"`
	TotalStudents      int     `json:"total_students"`
	AverageGrade       float64 `json:"average_grade"`
	PendingReviewCount int     `json:"pending_review_count"`
}

// CourseStudentCount is one row of the students-per-course chart.
type CourseStudentCount struct {
	CourseID     string `db:"course_id" json:"course_id"`
	CourseTitle  string `db:"course_title" json:"course_title"`
	StudentCount int    `db:"student_count" json:"student_count"`
}

// AssignmentStatusCounts partitions submissions by grade null-ness.
type AssignmentStatusCounts struct {
	CompletedCount int `db:"completed_count" json:"completed_count"`
	PendingCount   int `db:"pending_count" json:"pending_count"`
}

// CourseAverageGrade is one row of the course performance chart.
type CourseAverageGrade struct {
	CourseID     string  `db:"course_id" json:"course_id"`
	CourseTitle  string  `db:"course_title" json:"course_title"`
	AverageGrade float64 `db:"average_grade" json:"average_grade"`
}

// MonthlyAverageGrade is a calendar-month trend bucket. Month is the
// truncated month start; ordering always uses it, never the label.
type MonthlyAverageGrade struct {
	Month        time.Time `db:"month" json:"-"`
	AverageGrade float64   `db:"average_grade" json:"average_grade"`
}

// AssignmentCompletion carries raw completion counters for one assignment.
type AssignmentCompletion struct {
	AssignmentID   string    `db:"assignment_id" json:"assignment_id"`
	Title          string    `db:"title" json:"title"`
	CourseTitle    string    `db:"course_title" json:"course_title"`
	EnrolledCount  int       `db:"enrolled_count" json:"enrolled_count"`
	SubmittedCount int       `db:"submitted_count" json:"submitted_count"`
	CreatedAt      time.Time `db:"created_at" json:"-"`
}

// GradeBucket maps a numeric grade to its letter bucket. The buckets
// partition [0, 100]: A >= 90, B >= 80, C >= 70, D >= 60, F below.
func GradeBucket(grade float64) string {
	switch {
	case grade >= 90:
		return "A"
	case grade >= 80:
		return "B"
	case grade >= 70:
		return "C"
	case grade >= 60:
		return "D"
	default:
		return "F"
	}
}

// GradeBucketCount is one raw bucket row from the distribution query.
type GradeBucketCount struct {
	Bucket string `db:"bucket" json:"bucket"`
	Count  int    `db:"count" json:"count"`
}

// ActivityEventType tags entries of the unified activity feed.
type ActivityEventType string

const (
	ActivityCourseCreated ActivityEventType = "course_created"
	ActivityCourseUpdated ActivityEventType = "course_updated"
	ActivityEnrollment    ActivityEventType = "enrollment"
)

// ActivityEvent is the common envelope both event streams are mapped
// into before the merge. ID is positional and assigned after sorting.
type ActivityEvent struct {
	ID          string            `json:"id"`
	Type        ActivityEventType `json:"type"`
	ActorName   string            `json:"actor_name"`
	ActorAvatar string            `json:"actor_avatar"`
	CourseName  string            `json:"course_name"`
	StudentName string            `json:"student_name,omitempty"`
	OccurredAt  time.Time         `json:"occurred_at"`
}

// CourseEventRow is the raw course stream feeding the activity merge.
type CourseEventRow struct {
	CourseTitle   string    `db:"course_title"`
	TeacherName   string    `db:"teacher_name"`
	TeacherAvatar string    `db:"teacher_avatar"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// EnrollmentEventRow is the raw enrollment stream feeding the merge.
type EnrollmentEventRow struct {
	CourseTitle   string    `db:"course_title"`
	StudentName   string    `db:"student_name"`
	StudentAvatar string    `db:"student_avatar"`
	EnrolledAt    time.Time `db:"enrolled_at"`
}

// SystemMetrics is the instrumentation snapshot exposed to admins.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
