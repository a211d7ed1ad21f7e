package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-standing/internal/models"
)

var gradedEnrollmentColumns = []string{"id", "student_id", "semester_id", "course_offering_id", "grade", "status",
	"course_code", "course_name", "credit_hours", "academic_year", "semester_number"}

func TestEnrollmentRepositoryListGradedBySemester(t *testing.T) {
	db, mock, cleanup := newAcademicMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows(gradedEnrollmentColumns).
		AddRow("enr-1", "stu-1", "sem-1", "off-1", "A", "COMPLETED", "MTH101", "Calculus I", 3, "2023/2024", 1).
		AddRow("enr-2", "stu-1", "sem-1", "off-2", "B+", "ACTIVE", "PHY101", "Physics I", 3, "2023/2024", 1)
	mock.ExpectQuery(regexp.QuoteMeta("e.grade IS NOT NULL AND e.status IN ($3, $4)")).
		WithArgs("stu-1", "sem-1", models.EnrollmentStatusCompleted, models.EnrollmentStatusActive).
		WillReturnRows(rows)

	enrollments, err := repo.ListGradedBySemester(context.Background(), "stu-1", "sem-1")
	require.NoError(t, err)
	require.Len(t, enrollments, 2)
	require.NotNil(t, enrollments[1].Grade)
	assert.Equal(t, "B+", *enrollments[1].Grade)
	assert.Equal(t, models.EnrollmentStatusActive, enrollments[1].Status)
	assert.Equal(t, 3, enrollments[0].CreditHours)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListCompletedGraded(t *testing.T) {
	db, mock, cleanup := newAcademicMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows(gradedEnrollmentColumns).
		AddRow("enr-1", "stu-1", "sem-1", "off-1", "A", "COMPLETED", "MTH101", "Calculus I", 3, "2023/2024", 1)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY s.academic_year, s.semester_number, c.code")).
		WithArgs("stu-1", models.EnrollmentStatusCompleted).
		WillReturnRows(rows)

	enrollments, err := repo.ListCompletedGraded(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	assert.Equal(t, "Calculus I", enrollments[0].CourseName)
	assert.NoError(t, mock.ExpectationsWereMet())
}
