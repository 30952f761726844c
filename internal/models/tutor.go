package models

import "time"

// RosterKind distinguishes active assignees from graduated or released ones kept for settlement history.
type RosterKind string

const (
	RosterActive    RosterKind = "ACTIVE"
	RosterCertified RosterKind = "CERTIFIED"
	RosterReleased  RosterKind = "RELEASED"
)

// Tutor delivers courses to assigned students.
type Tutor struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Phone     string    `db:"phone" json:"phone"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// TutorStudent is one entry on a tutor's roster.
type TutorStudent struct {
	TutorID     string     `db:"tutor_id" json:"tutor_id"`
	StudentID   string     `db:"student_id" json:"student_id"`
	CourseID    string     `db:"course_id" json:"course_id"`
	Roster      RosterKind `db:"roster" json:"roster"`
	AssignedAt  time.Time  `db:"assigned_at" json:"assigned_at"`
	CertifiedAt *time.Time `db:"certified_at" json:"certified_at,omitempty"`
}

// TutorDetail exposes a tutor with both rosters. AssignedCount is informational, never a cap.
type TutorDetail struct {
	Tutor
	MyStudents        []TutorStudent `json:"my_students"`
	CertifiedStudents []TutorStudent `json:"certified_students"`
	AssignedCount     int            `json:"assigned_count"`
}

// NewTutorDetail splits roster entries by kind. Released entries only back settlement history.
func NewTutorDetail(t Tutor, roster []TutorStudent) TutorDetail {
	d := TutorDetail{Tutor: t, MyStudents: []TutorStudent{}, CertifiedStudents: []TutorStudent{}}
	for _, entry := range roster {
		switch entry.Roster {
		case RosterCertified:
			d.CertifiedStudents = append(d.CertifiedStudents, entry)
		case RosterActive:
			d.MyStudents = append(d.MyStudents, entry)
		}
	}
	d.AssignedCount = len(d.MyStudents)
	return d
}
