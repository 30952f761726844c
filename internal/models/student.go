package models

import "time"

// DefaultCourseFee stands in for a missing course fee on legacy student records.
// It is a data-quality fallback, not a business price.
const DefaultCourseFee = 10000.0

// Student represents a learner admitted to a course.
type Student struct {
	ID              string    `db:"id" json:"id"`
	AdmissionNumber string    `db:"admission_number" json:"admission_number"`
	FullName        string    `db:"full_name" json:"full_name"`
	CourseID        string    `db:"course_id" json:"course_id"`
	CourseFee       *float64  `db:"course_fee" json:"course_fee,omitempty"`
	UpfrontFee      float64   `db:"upfront_fee" json:"upfront_fee"`
	Exams           ExamList  `db:"exams" json:"exams"`
	IsAlumni        bool      `db:"is_alumni" json:"is_alumni"`
	Version         int       `db:"version" json:"version"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// EffectiveCourseFee resolves a stored course fee, reporting whether the fallback was used.
func EffectiveCourseFee(fee *float64) (float64, bool) {
	if fee == nil {
		return DefaultCourseFee, true
	}
	return *fee, false
}

// GraduationChecklist summarises the promotion requirements for a student.
type GraduationChecklist struct {
	StudentID      string   `json:"student_id"`
	FeeComplete    bool     `json:"fee_complete"`
	GradesComplete bool     `json:"grades_complete"`
	Eligible       bool     `json:"eligible"`
	Missing        []string `json:"missing,omitempty"`
}

// Checklist evaluates fee completion and grade completeness.
func (s Student) Checklist() GraduationChecklist {
	fee, _ := EffectiveCourseFee(s.CourseFee)
	c := GraduationChecklist{
		StudentID:      s.ID,
		FeeComplete:    s.UpfrontFee >= fee,
		GradesComplete: s.Exams.GradesComplete(),
	}
	if !c.FeeComplete {
		c.Missing = append(c.Missing, "course fee not fully paid")
	}
	if !c.GradesComplete {
		if len(s.Exams) == 0 {
			c.Missing = append(c.Missing, "no exams on record")
		} else {
			c.Missing = append(c.Missing, "exam grades incomplete")
		}
	}
	c.Eligible = c.FeeComplete && c.GradesComplete
	return c
}
