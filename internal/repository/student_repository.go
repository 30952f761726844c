package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academy-lifecycle-api/internal/models"
)

const studentColumns = `id, admission_number, full_name, course_id, course_fee, upfront_fee, exams, is_alumni, version, created_at, updated_at`

// StudentRepository handles persistence of student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID returns a student by id.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// UpdateExams replaces the exam list guarded by the student's version.
func (r *StudentRepository) UpdateExams(ctx context.Context, student *models.Student) error {
	now := time.Now().UTC()
	const query = `UPDATE students SET exams = $2, version = version + 1, updated_at = $3 WHERE id = $1 AND version = $4`
	result, err := r.db.ExecContext(ctx, query, student.ID, student.Exams, now, student.Version)
	if err != nil {
		return fmt.Errorf("update student exams: %w", err)
	}
	if err := expectOneRow(result, "update student exams"); err != nil {
		return err
	}
	student.Version++
	student.UpdatedAt = now
	return nil
}

// CountOnRosters returns the number of distinct students on an active or certified tutor roster.
func (r *StudentRepository) CountOnRosters(ctx context.Context) (int, error) {
	var total int
	const query = `SELECT COUNT(DISTINCT student_id) FROM tutor_students WHERE roster <> $1`
	if err := r.db.GetContext(ctx, &total, query, models.RosterReleased); err != nil {
		return 0, fmt.Errorf("count rostered students: %w", err)
	}
	return total, nil
}
