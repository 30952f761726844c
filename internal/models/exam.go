package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Grade is the label awarded for an exam. The empty grade means not yet graded.
type Grade string

// The fixed grade scale.
const (
	GradeDistinction Grade = "Distinction"
	GradeMerit       Grade = "Merit"
	GradeCredit      Grade = "Credit"
	GradePass        Grade = "Pass"
	GradeFail        Grade = "Fail"
)

var gradePoints = map[Grade]float64{
	GradeDistinction: 4.0,
	GradeMerit:       3.5,
	GradeCredit:      3.0,
	GradePass:        2.0,
	GradeFail:        0.0,
}

// Points returns the GPA points for the grade.
func (g Grade) Points() (float64, bool) {
	p, ok := gradePoints[g]
	return p, ok
}

// Valid reports whether g is a non-empty label on the grade scale.
func (g Grade) Valid() bool {
	_, ok := gradePoints[g]
	return ok
}

// Exam is a single assessment on a student's record.
type Exam struct {
	Name  string `json:"name"`
	Score Grade  `json:"score"`
}

// ExamList is stored as a JSONB array.
type ExamList []Exam

// GradesComplete is true when there is at least one exam and every exam carries a grade.
func (l ExamList) GradesComplete() bool {
	if len(l) == 0 {
		return false
	}
	for _, e := range l {
		if !e.Score.Valid() {
			return false
		}
	}
	return true
}

// GPA averages grade points over all exams. Ungraded exams count as zero.
func (l ExamList) GPA() float64 {
	if len(l) == 0 {
		return 0
	}
	var total float64
	for _, e := range l {
		p, _ := e.Score.Points()
		total += p
	}
	return total / float64(len(l))
}

// Clone returns an independent copy.
func (l ExamList) Clone() ExamList {
	if l == nil {
		return nil
	}
	out := make(ExamList, len(l))
	copy(out, l)
	return out
}

// Value implements driver.Valuer.
func (l ExamList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *ExamList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = ExamList{}
		return nil
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	}
	return fmt.Errorf("unsupported exam list source %T", src)
}
