package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-lifecycle-api/internal/models"
)

func TestSettlementRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSettlementRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (student_id, course_id, tutor_id)")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	paidAt := time.Now()
	settlement := &models.Settlement{
		StudentID:     "student-1",
		CourseID:      "course-1",
		TutorID:       "tutor-1",
		Status:        models.SettlementPaid,
		Amount:        1500,
		Phone:         "0800",
		TransactionID: "TX1",
		TimeOfPayment: &paidAt,
	}
	require.NoError(t, repo.Upsert(context.Background(), settlement))
	assert.False(t, settlement.UpdatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSettlementRepositoryFindIsScopedToTutor(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSettlementRepository(db)

	rows := sqlmock.NewRows([]string{"student_id", "course_id", "tutor_id", "status", "amount", "phone", "transaction_id", "time_of_payment", "updated_at"}).
		AddRow("student-1", "course-1", "tutor-1", "PAID", 1500.0, "0800", "TX1", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("WHERE student_id = $1 AND course_id = $2 AND tutor_id = $3")).
		WithArgs("student-1", "course-1", "tutor-1").
		WillReturnRows(rows)

	settlement, err := repo.Find(context.Background(), "student-1", "course-1", "tutor-1")
	require.NoError(t, err)
	assert.Equal(t, "TX1", settlement.TransactionID)
	assert.Equal(t, models.SettlementPaid, settlement.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSettlementRepositoryListLedger(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSettlementRepository(db)

	rows := sqlmock.NewRows([]string{"tutor_id", "tutor_name", "student_id", "student_name", "course_id", "roster", "course_fee", "settlement_status", "settlement_amount", "transaction_id"}).
		AddRow("tutor-1", "Ayu", "student-1", "Budi", "course-1", "ACTIVE", 10000.0, "PAID", 1500.0, "TX1").
		AddRow("tutor-1", "Ayu", "student-2", "Citra", "course-1", "CERTIFIED", nil, nil, nil, nil).
		AddRow("tutor-2", "Rina", "student-1", "Budi", "course-1", "RELEASED", 10000.0, "PAID", 1500.0, "TX0")
	mock.ExpectQuery(regexp.QuoteMeta("LEFT JOIN settlements s ON s.student_id = ts.student_id")).
		WillReturnRows(rows)

	entries, err := repo.ListLedger(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.True(t, entries[0].Paid())
	assert.Equal(t, 1500.0, *entries[0].SettlementAmount)
	assert.False(t, entries[1].Paid())
	assert.Nil(t, entries[1].CourseFee)
	assert.Equal(t, models.RosterCertified, entries[1].Roster)
	assert.Equal(t, models.RosterReleased, entries[2].Roster)
	assert.True(t, entries[2].Paid())
	require.NoError(t, mock.ExpectationsWereMet())
}
