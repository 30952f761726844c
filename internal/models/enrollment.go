package models

import (
	"errors"
	"strings"
	"time"
)

// AssignmentStatus represents where an enrollment sits in the tutor assignment lifecycle.
type AssignmentStatus string

// Possible assignment statuses.
const (
	AssignmentStatusPending   AssignmentStatus = "PENDING"
	AssignmentStatusAssigned  AssignmentStatus = "ASSIGNED"
	AssignmentStatusCancelled AssignmentStatus = "CANCELLED"
)

// Valid reports whether s is one of the known statuses.
func (s AssignmentStatus) Valid() bool {
	switch s {
	case AssignmentStatusPending, AssignmentStatusAssigned, AssignmentStatusCancelled:
		return true
	}
	return false
}

// Enrollment is a student's membership in one course together with its assignment state.
type Enrollment struct {
	CourseID         string           `db:"course_id" json:"course_id"`
	StudentID        string           `db:"student_id" json:"student_id"`
	AssignmentStatus AssignmentStatus `db:"assignment_status" json:"assignment_status"`
	TutorID          *string          `db:"tutor_id" json:"tutor_id,omitempty"`
	AdminNotes       *string          `db:"admin_notes" json:"admin_notes,omitempty"`
	Version          int              `db:"version" json:"version"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}

// Validate checks the status invariants of the record.
func (e Enrollment) Validate() error {
	switch e.AssignmentStatus {
	case AssignmentStatusPending:
		return nil
	case AssignmentStatusAssigned:
		if e.TutorID == nil || strings.TrimSpace(*e.TutorID) == "" {
			return errors.New("assigned enrollment requires a tutor")
		}
		return nil
	case AssignmentStatusCancelled:
		if e.AdminNotes == nil || strings.TrimSpace(*e.AdminNotes) == "" {
			return errors.New("cancelled enrollment requires a reason")
		}
		return nil
	}
	return errors.New("unknown assignment status")
}

// AssignmentBuckets partitions a course roster by assignment status.
type AssignmentBuckets struct {
	CourseID  string       `json:"course_id"`
	Pending   []Enrollment `json:"pending"`
	Assigned  []Enrollment `json:"assigned"`
	Cancelled []Enrollment `json:"cancelled"`
}

// PartitionEnrollments splits enrollments into status buckets keeping their input order.
func PartitionEnrollments(courseID string, enrollments []Enrollment) AssignmentBuckets {
	buckets := AssignmentBuckets{
		CourseID:  courseID,
		Pending:   []Enrollment{},
		Assigned:  []Enrollment{},
		Cancelled: []Enrollment{},
	}
	for _, e := range enrollments {
		switch e.AssignmentStatus {
		case AssignmentStatusAssigned:
			buckets.Assigned = append(buckets.Assigned, e)
		case AssignmentStatusCancelled:
			buckets.Cancelled = append(buckets.Cancelled, e)
		default:
			buckets.Pending = append(buckets.Pending, e)
		}
	}
	return buckets
}
