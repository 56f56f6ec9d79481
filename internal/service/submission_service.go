package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openclass/openclass-api/internal/dto"
	"github.com/openclass/openclass-api/internal/models"
	appErrors "github.com/openclass/openclass-api/pkg/errors"
)

// SubmissionRepositoryPort describes submission persistence.
type SubmissionRepositoryPort interface {
	Create(ctx context.Context, submission *models.Submission) error
	FindByID(ctx context.Context, id string) (*models.Submission, error)
	ListByAssignment(ctx context.Context, assignmentID string) ([]models.Submission, error)
	SetGrade(ctx context.Context, id string, grade float64) error
}

// SubmissionService records student work and teacher reviews. A
// submission is pending until a grade is set; grading moves it to
// completed for the status rollups.
type SubmissionService struct {
	repo        SubmissionRepositoryPort
	assignments AssignmentRepositoryPort
	courses     CourseRepositoryPort
	enrollments EnrollmentRepositoryPort
	validate    *validator.Validate
	invalidator Invalidator
	logger      *zap.Logger
	now         func() time.Time
}

// NewSubmissionService constructs a submission service.
func NewSubmissionService(repo SubmissionRepositoryPort, assignments AssignmentRepositoryPort, courses CourseRepositoryPort, enrollments EnrollmentRepositoryPort, invalidator Invalidator, logger *zap.Logger) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionService{
		repo:        repo,
		assignments: assignments,
		courses:     courses,
		enrollments: enrollments,
		validate:    validator.New(),
		invalidator: invalidator,
		logger:      logger,
		now:         time.Now,
	}
}

// Submit records a submission by the acting student. The student must be
// enrolled in the assignment's course.
func (s *SubmissionService) Submit(ctx context.Context, actor models.JWTClaims, req dto.SubmitRequest) (*models.Submission, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	assignment, err := s.assignments.FindByID(ctx, req.AssignmentID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
	}

	enrolled, err := s.enrollments.Exists(ctx, actor.UserID, assignment.CourseID)
	if err != nil {
		return nil, err
	}
	if !enrolled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "student is not enrolled in this course")
	}

	submission := &models.Submission{
		ID:           uuid.NewString(),
		AssignmentID: req.AssignmentID,
		StudentID:    actor.UserID,
		SubmittedAt:  s.now().UTC(),
	}
	if err := s.repo.Create(ctx, submission); err != nil {
		return nil, err
	}

	s.logger.Info("submission recorded",
		zap.String("submission_id", submission.ID),
		zap.String("assignment_id", req.AssignmentID))
	s.invalidateForCourse(ctx, assignment.CourseID)
	return submission, nil
}

// ListByAssignment returns submissions for the assignment after an
// ownership check on the parent course.
func (s *SubmissionService) ListByAssignment(ctx context.Context, actor models.JWTClaims, assignmentID string) ([]models.Submission, error) {
	assignment, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		return nil, appErrors.ErrNotFound
	}
	if err := s.authorizeCourse(ctx, actor, assignment.CourseID); err != nil {
		return nil, err
	}

	submissions, err := s.repo.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if submissions == nil {
		submissions = []models.Submission{}
	}
	return submissions, nil
}

// Grade sets the review result on a submission.
func (s *SubmissionService) Grade(ctx context.Context, actor models.JWTClaims, submissionID string, req dto.GradeRequest) (*models.Submission, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	submission, err := s.repo.FindByID(ctx, submissionID)
	if err != nil {
		return nil, appErrors.ErrNotFound
	}
	assignment, err := s.assignments.FindByID(ctx, submission.AssignmentID)
	if err != nil {
		return nil, appErrors.ErrNotFound
	}
	if err := s.authorizeCourse(ctx, actor, assignment.CourseID); err != nil {
		return nil, err
	}

	if err := s.repo.SetGrade(ctx, submissionID, req.Grade); err != nil {
		return nil, err
	}
	grade := req.Grade
	submission.Grade = &grade

	s.logger.Info("submission graded",
		zap.String("submission_id", submissionID),
		zap.Float64("grade", req.Grade))
	s.invalidateForCourse(ctx, assignment.CourseID)
	return submission, nil
}

func (s *SubmissionService) authorizeCourse(ctx context.Context, actor models.JWTClaims, courseID string) error {
	if actor.Role == models.RoleAdmin {
		return nil
	}
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return appErrors.ErrNotFound
	}
	if actor.Role == models.RoleTeacher && course.TeacherID == actor.UserID {
		return nil
	}
	return appErrors.ErrForbidden
}

func (s *SubmissionService) invalidateForCourse(ctx context.Context, courseID string) {
	if s.invalidator == nil {
		return
	}
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		s.logger.Warn("resolve course for invalidation", zap.String("course_id", courseID), zap.Error(err))
		return
	}
	s.invalidator.InvalidateAnalytics(course.TeacherID)
}
