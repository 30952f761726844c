package dto

// PaymentRequest records a tutor settlement payment for one student. CourseID picks the enrollment
// when the student is on the tutor's roster for several courses.
type PaymentRequest struct {
	Amount        float64 `json:"amount" validate:"gt=0"`
	Phone         string  `json:"phone" validate:"required,max=32"`
	TransactionID string  `json:"transactionId" validate:"required,max=128"`
	CourseID      string  `json:"courseId,omitempty" validate:"omitempty,max=64"`
}
