package models

import "time"

// Submission is a student's answer to an assignment. Grade is null until
// reviewed; when present it lies in [0,100].
type Submission struct {
	ID           string    `db:"id" json:"id"`
	AssignmentID string    `db:"assignment_id" json:"assignment_id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	Grade        *float64  `db:"grade" json:"grade"`
	SubmittedAt  time.Time `db:"submitted_at" json:"submitted_at"`
}
