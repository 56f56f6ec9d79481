package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/openclass/openclass-api/internal/models"
)

// SubmissionRepository persists submissions.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Create inserts a submission with a null grade (pending review).
func (r *SubmissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	query := `INSERT INTO submissions (id, assignment_id, student_id, grade, submitted_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query,
		submission.ID, submission.AssignmentID, submission.StudentID, submission.Grade, submission.SubmittedAt); err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

// FindByID loads one submission.
func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	var submission models.Submission
	query := `SELECT id, assignment_id, student_id, grade, submitted_at FROM submissions WHERE id = $1`
	if err := r.db.GetContext(ctx, &submission, query, id); err != nil {
		return nil, err
	}
	return &submission, nil
}

// ListByAssignment returns submissions for an assignment, newest first.
func (r *SubmissionRepository) ListByAssignment(ctx context.Context, assignmentID string) ([]models.Submission, error) {
	query := `SELECT id, assignment_id, student_id, grade, submitted_at FROM submissions WHERE assignment_id = $1 ORDER BY submitted_at DESC`
	var submissions []models.Submission
	if err := r.db.SelectContext(ctx, &submissions, query, assignmentID); err != nil {
		return nil, fmt.Errorf("list submissions by assignment: %w", err)
	}
	return submissions, nil
}

// SetGrade records a review result on the submission.
func (r *SubmissionRepository) SetGrade(ctx context.Context, id string, grade float64) error {
	result, err := r.db.ExecContext(ctx, `UPDATE submissions SET grade = $1 WHERE id = $2`, grade, id)
	if err != nil {
		return fmt.Errorf("grade submission: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("submission %s not found", id)
	}
	return nil
}
