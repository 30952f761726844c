package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academy-lifecycle-api/internal/models"
)

const rosterColumns = `tutor_id, student_id, course_id, roster, assigned_at, certified_at`

// TutorRepository reads tutors and their rosters.
type TutorRepository struct {
	db *sqlx.DB
}

// NewTutorRepository constructs the repository.
func NewTutorRepository(db *sqlx.DB) *TutorRepository {
	return &TutorRepository{db: db}
}

// FindByID returns a tutor by id.
func (r *TutorRepository) FindByID(ctx context.Context, id string) (*models.Tutor, error) {
	const query = `SELECT id, name, phone, created_at FROM tutors WHERE id = $1`
	var tutor models.Tutor
	if err := r.db.GetContext(ctx, &tutor, query, id); err != nil {
		return nil, err
	}
	return &tutor, nil
}

// ListRoster returns every roster entry of the tutor, active and certified.
func (r *TutorRepository) ListRoster(ctx context.Context, tutorID string) ([]models.TutorStudent, error) {
	query := `SELECT ` + rosterColumns + ` FROM tutor_students WHERE tutor_id = $1 ORDER BY assigned_at ASC`
	entries := []models.TutorStudent{}
	if err := r.db.SelectContext(ctx, &entries, query, tutorID); err != nil {
		return nil, fmt.Errorf("list tutor roster: %w", err)
	}
	return entries, nil
}

// FindRosterEntry returns a roster entry of a student under a tutor, in any roster. An empty courseID
// selects the most recently assigned course.
func (r *TutorRepository) FindRosterEntry(ctx context.Context, tutorID, studentID, courseID string) (*models.TutorStudent, error) {
	query := `SELECT ` + rosterColumns + ` FROM tutor_students WHERE tutor_id = $1 AND student_id = $2`
	args := []interface{}{tutorID, studentID}
	if courseID != "" {
		query += ` AND course_id = $3`
		args = append(args, courseID)
	}
	query += ` ORDER BY assigned_at DESC LIMIT 1`
	var entry models.TutorStudent
	if err := r.db.GetContext(ctx, &entry, query, args...); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Count returns the number of tutors.
func (r *TutorRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM tutors`); err != nil {
		return 0, fmt.Errorf("count tutors: %w", err)
	}
	return total, nil
}
