package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openclass/openclass-api/internal/dto"
	"github.com/openclass/openclass-api/internal/models"
	appErrors "github.com/openclass/openclass-api/pkg/errors"
)

type fakeCourseRepo struct {
	courses map[string]*models.Course
	created *models.Course
	updated *models.Course
	deleted string
}

func newFakeCourseRepo(courses ...*models.Course) *fakeCourseRepo {
	repo := &fakeCourseRepo{courses: map[string]*models.Course{}}
	for _, course := range courses {
		repo.courses[course.ID] = course
	}
	return repo
}

func (f *fakeCourseRepo) Create(_ context.Context, course *models.Course) error {
	f.created = course
	f.courses[course.ID] = course
	return nil
}

func (f *fakeCourseRepo) FindByID(_ context.Context, id string) (*models.Course, error) {
	course, ok := f.courses[id]
	if !ok {
		return nil, appErrors.ErrNotFound
	}
	copied := *course
	return &copied, nil
}

func (f *fakeCourseRepo) List(_ context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	var out []models.Course
	for _, course := range f.courses {
		if filter.TeacherID != "" && course.TeacherID != filter.TeacherID {
			continue
		}
		out = append(out, *course)
	}
	return out, len(out), nil
}

func (f *fakeCourseRepo) Update(_ context.Context, course *models.Course) error {
	f.updated = course
	f.courses[course.ID] = course
	return nil
}

func (f *fakeCourseRepo) Delete(_ context.Context, id string) error {
	f.deleted = id
	delete(f.courses, id)
	return nil
}

type fakeInvalidator struct {
	teacherIDs []string
}

func (f *fakeInvalidator) InvalidateAnalytics(teacherID string) {
	f.teacherIDs = append(f.teacherIDs, teacherID)
}

func teacherClaims(id string) models.JWTClaims {
	return models.JWTClaims{UserID: id, Role: models.RoleTeacher}
}

func TestCourseCreateOwnedByActor(t *testing.T) {
	repo := newFakeCourseRepo()
	inv := &fakeInvalidator{}
	svc := NewCourseService(repo, inv, zap.NewNop())

	course, err := svc.Create(context.Background(), teacherClaims("t1"), dto.CreateCourseRequest{Title: "Distributed Systems"})
	require.NoError(t, err)
	assert.Equal(t, "t1", course.TeacherID)
	assert.NotEmpty(t, course.ID)
	assert.Equal(t, []string{"t1"}, inv.teacherIDs)
}

func TestCourseCreateValidation(t *testing.T) {
	svc := NewCourseService(newFakeCourseRepo(), nil, zap.NewNop())

	_, err := svc.Create(context.Background(), teacherClaims("t1"), dto.CreateCourseRequest{Title: "ab"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestCourseUpdateForbiddenForOtherTeacher(t *testing.T) {
	repo := newFakeCourseRepo(&models.Course{ID: "c1", Title: "Algorithms", TeacherID: "t1"})
	svc := NewCourseService(repo, nil, zap.NewNop())

	_, err := svc.Update(context.Background(), teacherClaims("t2"), "c1", dto.UpdateCourseRequest{Title: "Stolen"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	assert.Nil(t, repo.updated)
}

func TestCourseUpdateAllowedForAdmin(t *testing.T) {
	repo := newFakeCourseRepo(&models.Course{ID: "c1", Title: "Algorithms", TeacherID: "t1"})
	inv := &fakeInvalidator{}
	svc := NewCourseService(repo, inv, zap.NewNop())

	course, err := svc.Update(context.Background(), models.JWTClaims{UserID: "admin", Role: models.RoleAdmin}, "c1", dto.UpdateCourseRequest{Title: "Advanced Algorithms"})
	require.NoError(t, err)
	assert.Equal(t, "Advanced Algorithms", course.Title)
	// Invalidation targets the owner's scope, not the actor's.
	assert.Equal(t, []string{"t1"}, inv.teacherIDs)
}

func TestCourseListPinsTeacherScope(t *testing.T) {
	repo := newFakeCourseRepo(
		&models.Course{ID: "c1", TeacherID: "t1"},
		&models.Course{ID: "c2", TeacherID: "t2"},
	)
	svc := NewCourseService(repo, nil, zap.NewNop())

	courses, pagination, err := svc.List(context.Background(), teacherClaims("t1"), models.CourseFilter{TeacherID: "t2"})
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "c1", courses[0].ID)
	assert.Equal(t, 1, pagination.TotalCount)
}
