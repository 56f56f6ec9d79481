package models

import "time"

// Enrollment links a student to a course. The (student_id, course_id)
// pair is unique.
type Enrollment struct {
	ID         string    `db:"id" json:"id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	CourseID   string    `db:"course_id" json:"course_id"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolled_at"`
}

// EnrollmentDetail joins enrollment with student display fields.
type EnrollmentDetail struct {
	Enrollment
	StudentName   string `db:"student_name" json:"student_name"`
	StudentAvatar string `db:"student_avatar" json:"student_avatar"`
}
