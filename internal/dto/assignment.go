package dto

// EnrollRequest registers a student on a course roster as PENDING.
type EnrollRequest struct {
	StudentID string `json:"studentId" validate:"required"`
}

// AssignRequest binds a pending enrollment to a tutor.
type AssignRequest struct {
	TutorID string `json:"tutorId" validate:"required"`
}

// CancelRequest cancels an enrollment. The reason is kept as admin notes.
type CancelRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}
