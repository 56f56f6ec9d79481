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

// EnrollmentRepositoryPort describes enrollment persistence.
type EnrollmentRepositoryPort interface {
	Create(ctx context.Context, enrollment *models.Enrollment) error
	Exists(ctx context.Context, studentID, courseID string) (bool, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error)
	Delete(ctx context.Context, studentID, courseID string) error
}

// EnrollmentService manages course membership. Enrolling the same
// student twice is a conflict, not a silent no-op.
type EnrollmentService struct {
	repo        EnrollmentRepositoryPort
	courses     CourseRepositoryPort
	users       UserRepository
	validate    *validator.Validate
	invalidator Invalidator
	logger      *zap.Logger
	now         func() time.Time
}

// NewEnrollmentService constructs an enrollment service.
func NewEnrollmentService(repo EnrollmentRepositoryPort, courses CourseRepositoryPort, users UserRepository, invalidator Invalidator, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		repo:        repo,
		courses:     courses,
		users:       users,
		validate:    validator.New(),
		invalidator: invalidator,
		logger:      logger,
		now:         time.Now,
	}
}

// Enroll adds a student to a course.
func (s *EnrollmentService) Enroll(ctx context.Context, actor models.JWTClaims, courseID string, req dto.EnrollRequest) (*models.Enrollment, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, appErrors.ErrNotFound
	}
	if actor.Role == models.RoleTeacher && course.TeacherID != actor.UserID {
		return nil, appErrors.ErrForbidden
	}

	student, err := s.users.FindByID(ctx, req.StudentID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only students can be enrolled")
	}

	exists, err := s.repo.Exists(ctx, req.StudentID, courseID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student is already enrolled")
	}

	enrollment := &models.Enrollment{
		ID:         uuid.NewString(),
		StudentID:  req.StudentID,
		CourseID:   courseID,
		EnrolledAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		return nil, err
	}

	s.logger.Info("student enrolled",
		zap.String("course_id", courseID),
		zap.String("student_id", req.StudentID))
	s.invalidate(course.TeacherID)
	return enrollment, nil
}

// ListByCourse returns enrollments with student display fields.
func (s *EnrollmentService) ListByCourse(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error) {
	enrollments, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if enrollments == nil {
		enrollments = []models.EnrollmentDetail{}
	}
	return enrollments, nil
}

// Unenroll removes a student from a course.
func (s *EnrollmentService) Unenroll(ctx context.Context, actor models.JWTClaims, courseID, studentID string) error {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return appErrors.ErrNotFound
	}
	if actor.Role == models.RoleTeacher && course.TeacherID != actor.UserID {
		return appErrors.ErrForbidden
	}

	if err := s.repo.Delete(ctx, studentID, courseID); err != nil {
		return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
	}
	s.invalidate(course.TeacherID)
	return nil
}

func (s *EnrollmentService) invalidate(teacherID string) {
	if s.invalidator != nil {
		s.invalidator.InvalidateAnalytics(teacherID)
	}
}
