package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academy-lifecycle-api/internal/models"
)

const enrollmentColumns = `course_id, student_id, assignment_status, tutor_id, admin_notes, version, created_at, updated_at`

// EnrollmentRepository persists course enrollments and the tutor roster changes bound to them.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Get returns the enrollment of a student in a course.
func (r *EnrollmentRepository) Get(ctx context.Context, courseID, studentID string) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE course_id = $1 AND student_id = $2`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, courseID, studentID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ListByCourse returns the course roster, optionally restricted to one status.
func (r *EnrollmentRepository) ListByCourse(ctx context.Context, courseID string, status models.AssignmentStatus) ([]models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE course_id = $1`
	args := []interface{}{courseID}
	if status != "" {
		query += ` AND assignment_status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at ASC, student_id ASC`
	enrollments := []models.Enrollment{}
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, fmt.Errorf("list course enrollments: %w", err)
	}
	return enrollments, nil
}

// Upsert inserts a new enrollment (Version 0) or updates an existing one guarded by its version.
// On success enrollment.Version reflects the stored row.
func (r *EnrollmentRepository) Upsert(ctx context.Context, enrollment *models.Enrollment) error {
	return upsertEnrollment(ctx, r.db, enrollment)
}

// Assign stores an ASSIGNED enrollment, appends the student to the tutor's active roster and seeds a
// pending settlement for the (student, course, tutor) triple when none exists yet. All writes share one
// transaction. Re-assigning a released tutor reactivates the existing roster entry.
func (r *EnrollmentRepository) Assign(ctx context.Context, enrollment *models.Enrollment, entry models.TutorStudent) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin assign: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := upsertEnrollment(ctx, tx, enrollment); err != nil {
		return err
	}
	const roster = `INSERT INTO tutor_students (tutor_id, student_id, course_id, roster, assigned_at, certified_at)
		VALUES (:tutor_id, :student_id, :course_id, :roster, :assigned_at, :certified_at)
		ON CONFLICT (tutor_id, student_id, course_id)
		DO UPDATE SET roster = EXCLUDED.roster, assigned_at = EXCLUDED.assigned_at, certified_at = NULL`
	if _, err := tx.NamedExecContext(ctx, roster, entry); err != nil {
		return fmt.Errorf("add tutor roster entry: %w", err)
	}
	const seed = `INSERT INTO settlements (student_id, course_id, tutor_id, status, amount, phone, transaction_id, time_of_payment, updated_at)
		VALUES ($1, $2, $3, $4, 0, '', '', NULL, $5)
		ON CONFLICT (student_id, course_id, tutor_id) DO NOTHING`
	if _, err := tx.ExecContext(ctx, seed, entry.StudentID, entry.CourseID, entry.TutorID, models.SettlementPending, enrollment.UpdatedAt); err != nil {
		return fmt.Errorf("seed pending settlement: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit assign: %w", err)
	}
	return nil
}

// Release stores the enrollment back as PENDING and marks the tutor's active roster entry RELEASED.
// The entry and its settlement stay so the ledger keeps what was paid to the released tutor.
func (r *EnrollmentRepository) Release(ctx context.Context, enrollment *models.Enrollment, tutorID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin release: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := upsertEnrollment(ctx, tx, enrollment); err != nil {
		return err
	}
	const roster = `UPDATE tutor_students SET roster = $4
		WHERE tutor_id = $1 AND student_id = $2 AND course_id = $3 AND roster = $5`
	if _, err := tx.ExecContext(ctx, roster, tutorID, enrollment.StudentID, enrollment.CourseID, models.RosterReleased, models.RosterActive); err != nil {
		return fmt.Errorf("release tutor roster entry: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit release: %w", err)
	}
	return nil
}

func upsertEnrollment(ctx context.Context, db sqlx.ExtContext, enrollment *models.Enrollment) error {
	now := time.Now().UTC()
	if enrollment.Version == 0 {
		if enrollment.CreatedAt.IsZero() {
			enrollment.CreatedAt = now
		}
		enrollment.UpdatedAt = now
		enrollment.Version = 1
		const insert = `INSERT INTO enrollments (course_id, student_id, assignment_status, tutor_id, admin_notes, version, created_at, updated_at)
			VALUES (:course_id, :student_id, :assignment_status, :tutor_id, :admin_notes, :version, :created_at, :updated_at)`
		if _, err := sqlx.NamedExecContext(ctx, db, insert, enrollment); err != nil {
			enrollment.Version = 0
			if isUniqueViolation(err) {
				return ErrDuplicate
			}
			return fmt.Errorf("insert enrollment: %w", err)
		}
		return nil
	}

	const update = `UPDATE enrollments SET assignment_status = $3, tutor_id = $4, admin_notes = $5, version = version + 1, updated_at = $6
		WHERE course_id = $1 AND student_id = $2 AND version = $7`
	result, err := db.ExecContext(ctx, update, enrollment.CourseID, enrollment.StudentID, enrollment.AssignmentStatus,
		enrollment.TutorID, enrollment.AdminNotes, now, enrollment.Version)
	if err != nil {
		return fmt.Errorf("update enrollment: %w", err)
	}
	if err := expectOneRow(result, "update enrollment"); err != nil {
		return err
	}
	enrollment.Version++
	enrollment.UpdatedAt = now
	return nil
}
