package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academy-lifecycle-api/internal/models"
)

// SettlementRepository persists tutor settlements keyed by (student, course, tutor).
type SettlementRepository struct {
	db *sqlx.DB
}

// NewSettlementRepository constructs the repository.
func NewSettlementRepository(db *sqlx.DB) *SettlementRepository {
	return &SettlementRepository{db: db}
}

// Find returns the settlement a tutor holds for an enrollment.
func (r *SettlementRepository) Find(ctx context.Context, studentID, courseID, tutorID string) (*models.Settlement, error) {
	const query = `SELECT student_id, course_id, tutor_id, status, amount, phone, transaction_id, time_of_payment, updated_at
		FROM settlements WHERE student_id = $1 AND course_id = $2 AND tutor_id = $3`
	var settlement models.Settlement
	if err := r.db.GetContext(ctx, &settlement, query, studentID, courseID, tutorID); err != nil {
		return nil, err
	}
	return &settlement, nil
}

// Upsert writes the settlement, replacing any previous state the tutor holds for the enrollment.
func (r *SettlementRepository) Upsert(ctx context.Context, settlement *models.Settlement) error {
	if settlement.UpdatedAt.IsZero() {
		settlement.UpdatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO settlements (student_id, course_id, tutor_id, status, amount, phone, transaction_id, time_of_payment, updated_at)
		VALUES (:student_id, :course_id, :tutor_id, :status, :amount, :phone, :transaction_id, :time_of_payment, :updated_at)
		ON CONFLICT (student_id, course_id, tutor_id)
		DO UPDATE SET status = EXCLUDED.status, amount = EXCLUDED.amount, phone = EXCLUDED.phone,
			transaction_id = EXCLUDED.transaction_id, time_of_payment = EXCLUDED.time_of_payment, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, settlement); err != nil {
		return fmt.Errorf("upsert settlement: %w", err)
	}
	return nil
}

// ListLedger returns every (tutor, student) roster pair with its fee and settlement state.
func (r *SettlementRepository) ListLedger(ctx context.Context) ([]models.LedgerEntry, error) {
	const query = `SELECT ts.tutor_id, t.name AS tutor_name, ts.student_id, st.full_name AS student_name, ts.course_id, ts.roster,
       st.course_fee, s.status AS settlement_status, s.amount AS settlement_amount, s.transaction_id
FROM tutor_students ts
JOIN tutors t ON t.id = ts.tutor_id
JOIN students st ON st.id = ts.student_id
LEFT JOIN settlements s ON s.student_id = ts.student_id AND s.course_id = ts.course_id AND s.tutor_id = ts.tutor_id
ORDER BY t.name ASC, ts.assigned_at ASC`
	entries := []models.LedgerEntry{}
	if err := r.db.SelectContext(ctx, &entries, query); err != nil {
		return nil, fmt.Errorf("list settlement ledger: %w", err)
	}
	return entries, nil
}
