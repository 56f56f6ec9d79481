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

// AssignmentRepositoryPort describes assignment persistence.
type AssignmentRepositoryPort interface {
	Create(ctx context.Context, assignment *models.Assignment) error
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.Assignment, error)
	Update(ctx context.Context, assignment *models.Assignment) error
	Delete(ctx context.Context, id string) error
}

// AssignmentService manages assignments under teacher-owned courses.
type AssignmentService struct {
	repo        AssignmentRepositoryPort
	courses     CourseRepositoryPort
	validate    *validator.Validate
	invalidator Invalidator
	logger      *zap.Logger
	now         func() time.Time
}

// NewAssignmentService constructs an assignment service.
func NewAssignmentService(repo AssignmentRepositoryPort, courses CourseRepositoryPort, invalidator Invalidator, logger *zap.Logger) *AssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		repo:        repo,
		courses:     courses,
		validate:    validator.New(),
		invalidator: invalidator,
		logger:      logger,
		now:         time.Now,
	}
}

// Create adds an assignment to a course owned by the actor.
func (s *AssignmentService) Create(ctx context.Context, actor models.JWTClaims, courseID string, req dto.CreateAssignmentRequest) (*models.Assignment, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	dueDate, err := time.Parse(time.RFC3339, req.DueDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "due_date must be RFC 3339")
	}

	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, appErrors.ErrNotFound
	}
	if actor.Role == models.RoleTeacher && course.TeacherID != actor.UserID {
		return nil, appErrors.ErrForbidden
	}

	assignment := &models.Assignment{
		ID:        uuid.NewString(),
		CourseID:  courseID,
		Title:     req.Title,
		DueDate:   dueDate.UTC(),
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, assignment); err != nil {
		return nil, err
	}

	s.logger.Info("assignment created",
		zap.String("assignment_id", assignment.ID),
		zap.String("course_id", courseID))
	s.invalidate(course.TeacherID)
	return assignment, nil
}

// ListByCourse returns assignments for a course, newest first.
func (s *AssignmentService) ListByCourse(ctx context.Context, courseID string) ([]models.Assignment, error) {
	assignments, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if assignments == nil {
		assignments = []models.Assignment{}
	}
	return assignments, nil
}

// Update rewrites mutable assignment fields after an ownership check.
func (s *AssignmentService) Update(ctx context.Context, actor models.JWTClaims, id string, req dto.UpdateAssignmentRequest) (*models.Assignment, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	dueDate, err := time.Parse(time.RFC3339, req.DueDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "due_date must be RFC 3339")
	}

	assignment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.ErrNotFound
	}
	course, err := s.courses.FindByID(ctx, assignment.CourseID)
	if err != nil {
		return nil, appErrors.ErrNotFound
	}
	if actor.Role == models.RoleTeacher && course.TeacherID != actor.UserID {
		return nil, appErrors.ErrForbidden
	}

	assignment.Title = req.Title
	assignment.DueDate = dueDate.UTC()
	if err := s.repo.Update(ctx, assignment); err != nil {
		return nil, err
	}
	s.invalidate(course.TeacherID)
	return assignment, nil
}

// Delete removes an assignment after an ownership check.
func (s *AssignmentService) Delete(ctx context.Context, actor models.JWTClaims, id string) error {
	assignment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return appErrors.ErrNotFound
	}
	course, err := s.courses.FindByID(ctx, assignment.CourseID)
	if err != nil {
		return appErrors.ErrNotFound
	}
	if actor.Role == models.RoleTeacher && course.TeacherID != actor.UserID {
		return appErrors.ErrForbidden
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(course.TeacherID)
	return nil
}

func (s *AssignmentService) invalidate(teacherID string) {
	if s.invalidator != nil {
		s.invalidator.InvalidateAnalytics(teacherID)
	}
}
