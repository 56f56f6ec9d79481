package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/openclass/openclass-api/internal/models"
)

// AssignmentRepository persists assignments.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository instantiates the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// Create inserts an assignment row.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	query := `INSERT INTO assignments (id, course_id, title, due_date, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query,
		assignment.ID, assignment.CourseID, assignment.Title, assignment.DueDate, assignment.CreatedAt); err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}
	return nil
}

// FindByID loads one assignment.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	var assignment models.Assignment
	query := `SELECT id, course_id, title, due_date, created_at FROM assignments WHERE id = $1`
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// ListByCourse returns assignments for a course, newest first.
func (r *AssignmentRepository) ListByCourse(ctx context.Context, courseID string) ([]models.Assignment, error) {
	query := `SELECT id, course_id, title, due_date, created_at FROM assignments WHERE course_id = $1 ORDER BY created_at DESC`
	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query, courseID); err != nil {
		return nil, fmt.Errorf("list assignments by course: %w", err)
	}
	return assignments, nil
}

// Update rewrites mutable assignment fields.
func (r *AssignmentRepository) Update(ctx context.Context, assignment *models.Assignment) error {
	result, err := r.db.ExecContext(ctx, `UPDATE assignments SET title = $1, due_date = $2 WHERE id = $3`,
		assignment.Title, assignment.DueDate, assignment.ID)
	if err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("assignment %s not found", assignment.ID)
	}
	return nil
}

// Delete removes the assignment row.
func (r *AssignmentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM assignments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("assignment %s not found", id)
	}
	return nil
}
