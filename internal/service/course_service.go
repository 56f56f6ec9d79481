package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openclass/openclass-api/internal/dto"
	"github.com/openclass/openclass-api/internal/models"
	appErrors "github.com/openclass/openclass-api/pkg/errors"
)

// CourseRepositoryPort describes course persistence used by the service.
type CourseRepositoryPort interface {
	Create(ctx context.Context, course *models.Course) error
	FindByID(ctx context.Context, id string) (*models.Course, error)
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
}

// CourseService owns course lifecycle and ownership rules: teachers
// manage only their own courses, admins manage any.
type CourseService struct {
	repo        CourseRepositoryPort
	validate    *validator.Validate
	invalidator Invalidator
	logger      *zap.Logger
	now         func() time.Time
}

// NewCourseService constructs a course service.
func NewCourseService(repo CourseRepositoryPort, invalidator Invalidator, logger *zap.Logger) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{
		repo:        repo,
		validate:    validator.New(),
		invalidator: invalidator,
		logger:      logger,
		now:         time.Now,
	}
}

// Create registers a course owned by the acting teacher.
func (s *CourseService) Create(ctx context.Context, actor models.JWTClaims, req dto.CreateCourseRequest) (*models.Course, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	now := s.now().UTC()
	course := &models.Course{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		TeacherID:   actor.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, err
	}

	s.logger.Info("course created",
		zap.String("course_id", course.ID),
		zap.String("teacher_id", course.TeacherID))
	s.invalidate(course.TeacherID)
	return course, nil
}

// Get loads one course.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, err
	}
	return course, nil
}

// List returns courses for the filter. Teachers are pinned to their own
// scope regardless of the requested filter.
func (s *CourseService) List(ctx context.Context, actor models.JWTClaims, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	if actor.Role == models.RoleTeacher {
		filter.TeacherID = actor.UserID
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.Page < 1 {
		filter.Page = 1
	}

	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, err
	}
	if courses == nil {
		courses = []models.Course{}
	}
	return courses, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Update rewrites mutable fields after an ownership check.
func (s *CourseService) Update(ctx context.Context, actor models.JWTClaims, id string, req dto.UpdateCourseRequest) (*models.Course, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	course, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, course); err != nil {
		return nil, err
	}

	course.Title = req.Title
	course.Description = req.Description
	course.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, course); err != nil {
		return nil, err
	}

	s.invalidate(course.TeacherID)
	return course, nil
}

// Delete removes the course after an ownership check.
func (s *CourseService) Delete(ctx context.Context, actor models.JWTClaims, id string) error {
	course, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(actor, course); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("course deleted",
		zap.String("course_id", id),
		zap.String("actor_id", actor.UserID))
	s.invalidate(course.TeacherID)
	return nil
}

func (s *CourseService) authorize(actor models.JWTClaims, course *models.Course) error {
	if actor.Role == models.RoleAdmin {
		return nil
	}
	if actor.Role == models.RoleTeacher && course.TeacherID == actor.UserID {
		return nil
	}
	return appErrors.ErrForbidden
}

func (s *CourseService) invalidate(teacherID string) {
	if s.invalidator != nil {
		s.invalidator.InvalidateAnalytics(teacherID)
	}
}
