package seed

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chuanghiduoc/progress-mailer/internal/repository"
)

const roster = `student_name,registration_no,semester,cgpa,credits,email
Asha Rao,R100,5,8.5,120,asha.parent@example.com
Ravi Kumar,R101,3,7.9,64,not-an-email

Meera Shah,R102,7,9.1,168,meera.parent@example.com
`

func TestStudents_Import(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryStudentRepository()

	res, err := Students(ctx, strings.NewReader(roster), repo)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Imported)
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, 3, res.Rejected[0].Line)
	assert.Contains(t, res.Rejected[0].Error(), "line 3")
	assert.Contains(t, res.Rejected[0].Reason, "Email")

	total, err := repo.Count(ctx, repository.StudentFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestStudents_ReimportUpdates(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryStudentRepository()

	_, err := Students(ctx, strings.NewReader(roster), repo)
	require.NoError(t, err)

	updated := "registration_no,student_name,email,semester,cgpa,credits\nR100,Asha Rao,asha.parent@example.com,6,8.8,144\n"
	res, err := Students(ctx, strings.NewReader(updated), repo)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)

	rows, err := repo.List(ctx, repository.StudentFilter{Search: "R100"}, 10, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "8.8", rows[0].GPA)
	assert.Equal(t, "6", rows[0].Semester)

	total, _ := repo.Count(ctx, repository.StudentFilter{})
	assert.Equal(t, int64(2), total)
}

func TestStudents_BadHeader(t *testing.T) {
	_, err := Students(context.Background(), strings.NewReader("name,email\nA,a@b.c\n"), repository.NewMemoryStudentRepository())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registration_no")
}

func TestStudents_Empty(t *testing.T) {
	_, err := Students(context.Background(), strings.NewReader(""), repository.NewMemoryStudentRepository())
	assert.Error(t, err)
}

func TestStudents_ByteOrderMark(t *testing.T) {
	repo := repository.NewMemoryStudentRepository()
	res, err := Students(context.Background(), strings.NewReader("\ufeff"+roster), repo)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
}
