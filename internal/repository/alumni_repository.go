package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academy-lifecycle-api/internal/models"
)

const alumnusColumns = `id, student_id, course_id, full_name, exams, gpa, graduated_at`

// PromoteParams carries the writes of a graduation.
type PromoteParams struct {
	Student *models.Student
	Alumnus *models.Alumnus
}

// AlumniRepository persists alumni with their CPD records and subscription payments.
type AlumniRepository struct {
	db *sqlx.DB
}

// NewAlumniRepository constructs the repository.
func NewAlumniRepository(db *sqlx.DB) *AlumniRepository {
	return &AlumniRepository{db: db}
}

// FindByID returns an alumnus by id.
func (r *AlumniRepository) FindByID(ctx context.Context, id string) (*models.Alumnus, error) {
	query := `SELECT ` + alumnusColumns + ` FROM alumni WHERE id = $1`
	var alumnus models.Alumnus
	if err := r.db.GetContext(ctx, &alumnus, query, id); err != nil {
		return nil, err
	}
	return &alumnus, nil
}

// FindByStudentID returns the alumnus created from a student.
func (r *AlumniRepository) FindByStudentID(ctx context.Context, studentID string) (*models.Alumnus, error) {
	query := `SELECT ` + alumnusColumns + ` FROM alumni WHERE student_id = $1`
	var alumnus models.Alumnus
	if err := r.db.GetContext(ctx, &alumnus, query, studentID); err != nil {
		return nil, err
	}
	return &alumnus, nil
}

// Promote flags the student as alumni, creates the alumnus and certifies the student on every
// active tutor roster. Either all writes land or none do.
func (r *AlumniRepository) Promote(ctx context.Context, params PromoteParams) error {
	student, alumnus := params.Student, params.Alumnus
	if alumnus.ID == "" {
		alumnus.ID = uuid.NewString()
	}
	if alumnus.GraduatedAt.IsZero() {
		alumnus.GraduatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin promote tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const flagStudent = `UPDATE students SET exams = $2, is_alumni = TRUE, version = version + 1, updated_at = $3
		WHERE id = $1 AND version = $4 AND is_alumni = FALSE`
	result, err := tx.ExecContext(ctx, flagStudent, student.ID, student.Exams, alumnus.GraduatedAt, student.Version)
	if err != nil {
		return fmt.Errorf("flag student alumni: %w", err)
	}
	if err := expectOneRow(result, "flag student alumni"); err != nil {
		return err
	}

	const insertAlumnus = `INSERT INTO alumni (id, student_id, course_id, full_name, exams, gpa, graduated_at)
		VALUES (:id, :student_id, :course_id, :full_name, :exams, :gpa, :graduated_at)`
	if _, err := tx.NamedExecContext(ctx, insertAlumnus, alumnus); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert alumnus: %w", err)
	}

	const certify = `UPDATE tutor_students SET roster = 'CERTIFIED', certified_at = $2 WHERE student_id = $1 AND roster = 'ACTIVE'`
	if _, err := tx.ExecContext(ctx, certify, student.ID, alumnus.GraduatedAt); err != nil {
		return fmt.Errorf("certify roster entries: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit promote tx: %w", err)
	}
	student.IsAlumni = true
	student.Version++
	student.UpdatedAt = alumnus.GraduatedAt
	return nil
}

// UpsertCpd writes the CPD record of an alumnus for a year, replacing any earlier record.
func (r *AlumniRepository) UpsertCpd(ctx context.Context, record *models.CpdRecord) error {
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO cpd_records (alumnus_id, year, date_taken, result, score, remarks, updated_at)
		VALUES (:alumnus_id, :year, :date_taken, :result, :score, :remarks, :updated_at)
		ON CONFLICT (alumnus_id, year)
		DO UPDATE SET date_taken = EXCLUDED.date_taken, result = EXCLUDED.result, score = EXCLUDED.score,
			remarks = EXCLUDED.remarks, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("upsert cpd record: %w", err)
	}
	return nil
}

// ListCpd returns the CPD records of an alumnus, newest year first.
func (r *AlumniRepository) ListCpd(ctx context.Context, alumnusID string) ([]models.CpdRecord, error) {
	const query = `SELECT alumnus_id, year, date_taken, result, score, remarks, updated_at
		FROM cpd_records WHERE alumnus_id = $1 ORDER BY year DESC`
	records := []models.CpdRecord{}
	if err := r.db.SelectContext(ctx, &records, query, alumnusID); err != nil {
		return nil, fmt.Errorf("list cpd records: %w", err)
	}
	return records, nil
}

// CreateSubscriptionPayment appends a subscription payment. A second payment for the same year returns
// ErrDuplicateYear, a reused transaction id returns ErrDuplicate.
func (r *AlumniRepository) CreateSubscriptionPayment(ctx context.Context, payment *models.SubscriptionPayment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	if payment.PaymentDate.IsZero() {
		payment.PaymentDate = time.Now().UTC()
	}
	const query = `INSERT INTO subscription_payments (id, alumnus_id, year, amount, payment_method, transaction_id, payment_date)
		VALUES (:id, :alumnus_id, :year, :amount, :payment_method, :transaction_id, :payment_date)`
	if _, err := r.db.NamedExecContext(ctx, query, payment); err != nil {
		if isUniqueViolation(err) {
			if violatedConstraint(err) == subscriptionYearConstraint {
				return ErrDuplicateYear
			}
			return ErrDuplicate
		}
		return fmt.Errorf("create subscription payment: %w", err)
	}
	return nil
}

// ListSubscriptionPayments returns all payments made for a subscription year.
func (r *AlumniRepository) ListSubscriptionPayments(ctx context.Context, year int) ([]models.SubscriptionPayment, error) {
	const query = `SELECT p.id, p.alumnus_id, a.full_name, p.year, p.amount, p.payment_method, p.transaction_id, p.payment_date
		FROM subscription_payments p JOIN alumni a ON a.id = p.alumnus_id
		WHERE p.year = $1 ORDER BY p.payment_date ASC`
	payments := []models.SubscriptionPayment{}
	if err := r.db.SelectContext(ctx, &payments, query, year); err != nil {
		return nil, fmt.Errorf("list subscription payments: %w", err)
	}
	return payments, nil
}

// ListGraduatedBefore returns alumni who graduated strictly before the cutoff.
func (r *AlumniRepository) ListGraduatedBefore(ctx context.Context, cutoff time.Time) ([]models.AlumnusSummary, error) {
	const query = `SELECT id, full_name, graduated_at FROM alumni WHERE graduated_at < $1 ORDER BY graduated_at ASC`
	alumni := []models.AlumnusSummary{}
	if err := r.db.SelectContext(ctx, &alumni, query, cutoff); err != nil {
		return nil, fmt.Errorf("list graduated alumni: %w", err)
	}
	return alumni, nil
}
