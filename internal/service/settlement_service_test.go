package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-lifecycle-api/internal/dto"
	"github.com/noah-isme/academy-lifecycle-api/internal/models"
	appErrors "github.com/noah-isme/academy-lifecycle-api/pkg/errors"
)

func TestComputeShare(t *testing.T) {
	assert.Equal(t, 1500.0, ComputeShare(10000))
	assert.Equal(t, 0.0, ComputeShare(0))
	assert.Equal(t, 3000.0, ComputeShare(20000))
}

func TestSettlementServiceAggregateAsymmetry(t *testing.T) {
	svc := NewSettlementService(SettlementServiceParams{})
	pending := models.SettlementPending
	paid := models.SettlementPaid
	amount := 2500.0

	agg := svc.Aggregate([]models.LedgerEntry{
		{CourseFee: feePtr(10000), SettlementStatus: &pending},
		{CourseFee: feePtr(20000), SettlementStatus: &paid, SettlementAmount: &amount},
	})

	assert.Equal(t, 30000.0, agg.TotalRevenue)
	assert.Equal(t, 1500.0, agg.TotalPendingToTutors)
	assert.Equal(t, 2500.0, agg.TotalPaidToTutors)
	assert.Equal(t, 26000.0, agg.AdminRevenue)
}

func TestSettlementServiceAggregateTreatsFailedAndMissingAsNominal(t *testing.T) {
	svc := NewSettlementService(SettlementServiceParams{})
	failed := models.SettlementFailed
	amount := 999.0

	agg := svc.Aggregate([]models.LedgerEntry{
		{CourseFee: feePtr(20000), SettlementStatus: &failed, SettlementAmount: &amount},
		{CourseFee: nil},
	})

	assert.Equal(t, 30000.0, agg.TotalRevenue)
	assert.Equal(t, 4500.0, agg.TotalPendingToTutors)
	assert.Zero(t, agg.TotalPaidToTutors)
	assert.Equal(t, 25500.0, agg.AdminRevenue)
}

func newPaymentFixture(t *testing.T) *services {
	t.Helper()
	svc := newAssignmentFixture(t)
	_, err := svc.assignments.Assign(context.Background(), adminActor, "c1", "s1", dto.AssignRequest{TutorID: "t1"})
	require.NoError(t, err)
	return svc
}

func TestSettlementServiceRecordPaymentIsLastWriteWins(t *testing.T) {
	svc := newPaymentFixture(t)
	ctx := context.Background()
	req := dto.PaymentRequest{Amount: 1500, Phone: "0812", TransactionID: "TX-1"}

	first, err := svc.settlements.RecordPayment(ctx, adminActor, "t1", "s1", req)
	require.NoError(t, err)
	second, err := svc.settlements.RecordPayment(ctx, adminActor, "t1", "s1", req)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.Len(t, svc.world.settlements, 1)
	stored := svc.world.settlements[key("s1", "c1", "t1")]
	assert.Equal(t, models.SettlementPaid, stored.Status)
	assert.Equal(t, 1500.0, stored.Amount)
	assert.Equal(t, "TX-1", stored.TransactionID)
	require.NotNil(t, stored.TimeOfPayment)
	assert.Equal(t, fixedNow, *stored.TimeOfPayment)

	_, err = svc.settlements.RecordPayment(ctx, adminActor, "t1", "s1", dto.PaymentRequest{Amount: 1800, Phone: "0812", TransactionID: "TX-2"})
	require.NoError(t, err)
	stored = svc.world.settlements[key("s1", "c1", "t1")]
	assert.Equal(t, 1800.0, stored.Amount)
	assert.Equal(t, "TX-2", stored.TransactionID)
}

func TestSettlementServiceRecordPaymentRejections(t *testing.T) {
	svc := newPaymentFixture(t)
	ctx := context.Background()

	_, err := svc.settlements.RecordPayment(ctx, adminActor, "t2", "s1", dto.PaymentRequest{Amount: 100, Phone: "0812", TransactionID: "TX"})
	require.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.Equal(t, "student not found in tutor records", appErrors.FromError(err).Message)

	cases := map[string]dto.PaymentRequest{
		"zero amount":     {Amount: 0, Phone: "0812", TransactionID: "TX"},
		"negative amount": {Amount: -5, Phone: "0812", TransactionID: "TX"},
		"blank phone":     {Amount: 10, Phone: "  ", TransactionID: "TX"},
		"blank tx":        {Amount: 10, Phone: "0812", TransactionID: ""},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.settlements.RecordPayment(ctx, adminActor, "t1", "s1", req)
			require.ErrorIs(t, err, appErrors.ErrValidation)
			assert.NotEmpty(t, appErrors.FromError(err).Rules)
		})
	}
}

func TestSettlementServiceFinanceOverviewCachedAndInvalidated(t *testing.T) {
	svc := newPaymentFixture(t)
	ctx := context.Background()

	overview, hit, err := svc.settlements.FinanceOverview(ctx)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 10000.0, overview.TotalRevenue)
	assert.Equal(t, 1500.0, overview.TotalPendingToTutors)
	assert.Equal(t, 1, overview.TotalStudents)
	assert.Equal(t, 2, overview.TotalTutors)

	_, hit, err = svc.settlements.FinanceOverview(ctx)
	require.NoError(t, err)
	assert.True(t, hit)

	_, err = svc.settlements.RecordPayment(ctx, adminActor, "t1", "s1", dto.PaymentRequest{Amount: 2000, Phone: "0812", TransactionID: "TX"})
	require.NoError(t, err)

	overview, hit, err = svc.settlements.FinanceOverview(ctx)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2000.0, overview.TotalPaidToTutors)
	assert.Zero(t, overview.TotalPendingToTutors)
	assert.Equal(t, 8000.0, overview.AdminRevenue)
}

func TestSettlementServiceExportLedgerCSV(t *testing.T) {
	svc := newPaymentFixture(t)
	_, err := svc.settlements.RecordPayment(context.Background(), adminActor, "t1", "s1", dto.PaymentRequest{Amount: 1500, Phone: "0812", TransactionID: "TX-9"})
	require.NoError(t, err)

	content, err := svc.settlements.ExportLedgerCSV(context.Background())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Tutor,Student,Course,Roster,Course fee,Tutor share,Status,Amount paid,Transaction ID", lines[0])
	assert.Equal(t, "Ayu,Budi,c1,ACTIVE,10000.00,1500.00,PAID,1500.00,TX-9", lines[1])
}

func TestSettlementServiceSettlement(t *testing.T) {
	svc := newPaymentFixture(t)
	ctx := context.Background()

	pending, err := svc.settlements.Settlement(ctx, "t1", "s1", "")
	require.NoError(t, err)
	assert.Equal(t, models.SettlementPending, pending.Status)

	_, err = svc.settlements.RecordPayment(ctx, adminActor, "t1", "s1", dto.PaymentRequest{Amount: 1500, Phone: "0812", TransactionID: "TX-1"})
	require.NoError(t, err)
	paid, err := svc.settlements.Settlement(ctx, "t1", "s1", "")
	require.NoError(t, err)
	assert.Equal(t, models.SettlementPaid, paid.Status)
	assert.Equal(t, 1500.0, paid.Amount)

	_, err = svc.settlements.Settlement(ctx, "t2", "s1", "")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestSettlementServiceReleaseKeepsPaidHistory(t *testing.T) {
	svc := newPaymentFixture(t)
	ctx := context.Background()

	_, err := svc.settlements.RecordPayment(ctx, adminActor, "t1", "s1", dto.PaymentRequest{Amount: 1500, Phone: "0812", TransactionID: "TX-1"})
	require.NoError(t, err)
	_, err = svc.assignments.Release(ctx, adminActor, "c1", "s1")
	require.NoError(t, err)
	_, err = svc.assignments.Assign(ctx, adminActor, "c1", "s1", dto.AssignRequest{TutorID: "t2"})
	require.NoError(t, err)
	_, err = svc.settlements.RecordPayment(ctx, adminActor, "t2", "s1", dto.PaymentRequest{Amount: 1500, Phone: "0813", TransactionID: "TX-2"})
	require.NoError(t, err)

	assert.Len(t, svc.world.settlements, 2)
	assert.Equal(t, []string{"s1"}, svc.world.rosterOf("t1", models.RosterReleased))

	first, err := svc.settlements.Settlement(ctx, "t1", "s1", "")
	require.NoError(t, err)
	assert.Equal(t, models.SettlementPaid, first.Status)
	assert.Equal(t, "TX-1", first.TransactionID)
	second, err := svc.settlements.Settlement(ctx, "t2", "s1", "")
	require.NoError(t, err)
	assert.Equal(t, "TX-2", second.TransactionID)

	overview, _, err := svc.settlements.FinanceOverview(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10000.0, overview.TotalRevenue)
	assert.Equal(t, 3000.0, overview.TotalPaidToTutors)
	assert.Zero(t, overview.TotalPendingToTutors)
	assert.Equal(t, 7000.0, overview.AdminRevenue)
	assert.Equal(t, 1, overview.TotalStudents)

	content, err := svc.settlements.ExportLedgerCSV(ctx)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Ayu,Budi,c1,RELEASED,10000.00,1500.00,PAID,1500.00,TX-1", lines[1])
	assert.Equal(t, "Rina,Budi,c1,ACTIVE,10000.00,1500.00,PAID,1500.00,TX-2", lines[2])

	detail, err := svc.assignments.TutorDetail(ctx, "t1")
	require.NoError(t, err)
	assert.Zero(t, detail.AssignedCount)
	assert.Empty(t, detail.MyStudents)
}

func TestSettlementServiceReassigningReleasedTutorKeepsSettlement(t *testing.T) {
	svc := newPaymentFixture(t)
	ctx := context.Background()

	_, err := svc.settlements.RecordPayment(ctx, adminActor, "t1", "s1", dto.PaymentRequest{Amount: 1500, Phone: "0812", TransactionID: "TX-1"})
	require.NoError(t, err)
	_, err = svc.assignments.Release(ctx, adminActor, "c1", "s1")
	require.NoError(t, err)
	_, err = svc.assignments.Assign(ctx, adminActor, "c1", "s1", dto.AssignRequest{TutorID: "t1"})
	require.NoError(t, err)

	assert.Equal(t, []string{"s1"}, svc.world.rosterOf("t1", models.RosterActive))
	assert.Empty(t, svc.world.rosterOf("t1", models.RosterReleased))
	stored, err := svc.settlements.Settlement(ctx, "t1", "s1", "c1")
	require.NoError(t, err)
	assert.Equal(t, models.SettlementPaid, stored.Status)
	assert.Equal(t, "TX-1", stored.TransactionID)
}

func TestSettlementServiceSelectsCourse(t *testing.T) {
	svc := newPaymentFixture(t)
	ctx := context.Background()

	_, err := svc.settlements.Settlement(ctx, "t1", "s1", "c9")
	require.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.Equal(t, "student not found in tutor records", appErrors.FromError(err).Message)

	_, err = svc.settlements.RecordPayment(ctx, adminActor, "t1", "s1", dto.PaymentRequest{Amount: 1500, Phone: "0812", TransactionID: "TX-1", CourseID: "c9"})
	require.ErrorIs(t, err, appErrors.ErrNotFound)

	paid, err := svc.settlements.RecordPayment(ctx, adminActor, "t1", "s1", dto.PaymentRequest{Amount: 1500, Phone: "0812", TransactionID: "TX-1", CourseID: " c1 "})
	require.NoError(t, err)
	assert.Equal(t, "c1", paid.CourseID)
}
