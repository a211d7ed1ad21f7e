package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStudentRepositoryFindProfile(t *testing.T) {
	db, mock, cleanup := newAcademicMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "full_name", "student_number", "program_id", "program_name"}).
		AddRow("stu-1", "Ayu Lestari", "2023001", "prog-1", "Informatics")
	mock.ExpectQuery(regexp.QuoteMeta("LEFT JOIN programs p ON p.id = st.program_id")).
		WithArgs("stu-1").
		WillReturnRows(rows)

	profile, err := repo.FindProfile(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, "Ayu Lestari", profile.FullName)
	require.NotNil(t, profile.ProgramName)
	assert.Equal(t, "Informatics", *profile.ProgramName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindProgramWithoutRequirement(t *testing.T) {
	db, mock, cleanup := newAcademicMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, required_credits FROM programs WHERE id = $1")).
		WithArgs("prog-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "required_credits"}).AddRow("prog-1", "Informatics", nil))

	program, err := repo.FindProgram(context.Background(), "prog-1")
	require.NoError(t, err)
	assert.Nil(t, program.RequiredCredits)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositorySemesterExists(t *testing.T) {
	db, mock, cleanup := newAcademicMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM semesters WHERE id = $1")).
		WithArgs("sem-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM semesters WHERE id = $1")).
		WithArgs("sem-9").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM semesters WHERE id = $1")).
		WithArgs("sem-x").
		WillReturnError(errors.New("connection reset"))

	exists, err := repo.SemesterExists(context.Background(), "sem-1")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.SemesterExists(context.Background(), "sem-9")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = repo.SemesterExists(context.Background(), "sem-x")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
