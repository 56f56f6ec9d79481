package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/openclass/openclass-api/internal/models"
)

// CourseRepository persists courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository instantiates the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// Create inserts a course row.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	query := `INSERT INTO courses (id, title, description, teacher_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(ctx, query,
		course.ID, course.Title, course.Description, course.TeacherID, course.CreatedAt, course.UpdatedAt); err != nil {
		return fmt.Errorf("insert course: %w", err)
	}
	return nil
}

// FindByID loads one course.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	var course models.Course
	query := `SELECT id, title, description, teacher_id, created_at, updated_at FROM courses WHERE id = $1`
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// List returns courses matching the filter plus a total count.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	var conditions strings.Builder
	conditions.WriteString(" FROM courses WHERE 1=1")
	var args []interface{}
	if filter.TeacherID != "" {
		args = append(args, filter.TeacherID)
		conditions.WriteString(fmt.Sprintf(" AND teacher_id = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conditions.WriteString(fmt.Sprintf(" AND title ILIKE $%d", len(args)))
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*)"+conditions.String(), args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}

	query := "SELECT id, title, description, teacher_id, created_at, updated_at" + conditions.String() + " ORDER BY created_at DESC"
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		args = append(args, filter.PageSize)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
		args = append(args, (page-1)*filter.PageSize)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}
	return courses, total, nil
}

// Update rewrites mutable fields and bumps updated_at.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	query := `UPDATE courses SET title = $1, description = $2, updated_at = $3 WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, course.Title, course.Description, course.UpdatedAt, course.ID)
	if err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("course %s not found", course.ID)
	}
	return nil
}

// Delete removes the course row.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return nil
}
