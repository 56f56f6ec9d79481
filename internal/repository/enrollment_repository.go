package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/openclass/openclass-api/internal/models"
)

// EnrollmentRepository persists enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository instantiates the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Create inserts an enrollment row. The unique (student_id, course_id)
// constraint surfaces duplicates as a database error.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	query := `INSERT INTO enrollments (id, student_id, course_id, enrolled_at) VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, query,
		enrollment.ID, enrollment.StudentID, enrollment.CourseID, enrollment.EnrolledAt); err != nil {
		return fmt.Errorf("insert enrollment: %w", err)
	}
	return nil
}

// Exists reports whether the student is already enrolled in the course.
func (r *EnrollmentRepository) Exists(ctx context.Context, studentID, courseID string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM enrollments WHERE student_id = $1 AND course_id = $2`
	if err := r.db.GetContext(ctx, &count, query, studentID, courseID); err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return count > 0, nil
}

// ListByCourse returns enrollments with student display fields.
func (r *EnrollmentRepository) ListByCourse(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error) {
	query := `SELECT e.id, e.student_id, e.course_id, e.enrolled_at,
        u.full_name AS student_name, u.avatar_url AS student_avatar
        FROM enrollments e
        JOIN users u ON u.id = e.student_id
        WHERE e.course_id = $1
        ORDER BY e.enrolled_at DESC`
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, courseID); err != nil {
		return nil, fmt.Errorf("list enrollments by course: %w", err)
	}
	return enrollments, nil
}

// Delete removes the enrollment for the given pair.
func (r *EnrollmentRepository) Delete(ctx context.Context, studentID, courseID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM enrollments WHERE student_id = $1 AND course_id = $2`, studentID, courseID)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("enrollment not found")
	}
	return nil
}
