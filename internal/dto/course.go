package dto

// CreateCourseRequest creates a course owned by the calling teacher.
type CreateCourseRequest struct {
	Title       string `json:"title" validate:"required,min=3,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

// UpdateCourseRequest updates mutable course fields.
type UpdateCourseRequest struct {
	Title       string `json:"title" validate:"required,min=3,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

// EnrollRequest enrolls a student into a course.
type EnrollRequest struct {
	StudentID string `json:"student_id" validate:"required"`
}

// CreateAssignmentRequest creates an assignment under a course.
type CreateAssignmentRequest struct {
	Title   string `json:"title" validate:"required,min=3,max=200"`
	DueDate string `json:"due_date" validate:"required"`
}

// UpdateAssignmentRequest rewrites mutable assignment fields.
type UpdateAssignmentRequest struct {
	Title   string `json:"title" validate:"required,min=3,max=200"`
	DueDate string `json:"due_date" validate:"required"`
}

// SubmitRequest records a student submission for an assignment.
type SubmitRequest struct {
	AssignmentID string `json:"assignment_id" validate:"required"`
}

// GradeRequest sets the grade on a submission. Bounds match the stored
// invariant: grades live in [0,100].
type GradeRequest struct {
	Grade float64 `json:"grade" validate:"gte=0,lte=100"`
}
