package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclass/openclass-api/internal/models"
)

func TestCreateCourse(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec("INSERT INTO courses").WillReturnResult(sqlmock.NewResult(1, 1))

	now := time.Now()
	err := repo.Create(context.Background(), &models.Course{
		ID:        "c1",
		Title:     "Algorithms",
		TeacherID: "t1",
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListCoursesFiltersByTeacher(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	countRows := sqlmock.NewRows([]string{"count"}).AddRow(1)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM courses WHERE 1=1 AND teacher_id = $1")).
		WithArgs("t1").
		WillReturnRows(countRows)

	now := time.Now()
	listRows := sqlmock.NewRows([]string{"id", "title", "description", "teacher_id", "created_at", "updated_at"}).
		AddRow("c1", "Algorithms", "", "t1", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("AND teacher_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3")).
		WithArgs("t1", 20, 0).
		WillReturnRows(listRows)

	courses, total, err := repo.List(context.Background(), models.CourseFilter{TeacherID: "t1", Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Len(t, courses, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateCourseNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec("UPDATE courses SET").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Course{ID: "missing", Title: "X", UpdatedAt: time.Now()})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetGrade(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE submissions SET grade = $1 WHERE id = $2")).
		WithArgs(87.5, "s1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SetGrade(context.Background(), "s1", 87.5)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
