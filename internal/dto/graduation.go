package dto

import "github.com/noah-isme/academy-lifecycle-api/internal/models"

// ExamGrade sets the score of the exam at ExamIndex.
type ExamGrade struct {
	ExamIndex int          `json:"examIndex" validate:"min=0"`
	Score     models.Grade `json:"score" validate:"required,oneof=Distinction Merit Credit Pass Fail"`
}

// UpdateGradesRequest applies one or more exam grades.
type UpdateGradesRequest struct {
	ExamGrades []ExamGrade `json:"examGrades" validate:"required,min=1,dive"`
}

// GraduateRequest promotes a student, optionally applying final grades in the same transaction.
type GraduateRequest struct {
	ExamGrades []ExamGrade `json:"examGrades" validate:"omitempty,dive"`
}
