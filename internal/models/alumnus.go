package models

import "time"

// Alumnus is a graduated student tracked for CPD and subscriptions.
type Alumnus struct {
	ID          string    `db:"id" json:"id"`
	StudentID   string    `db:"student_id" json:"student_id"`
	CourseID    string    `db:"course_id" json:"course_id"`
	FullName    string    `db:"full_name" json:"full_name"`
	Exams       ExamList  `db:"exams" json:"exams"`
	GPA         float64   `db:"gpa" json:"gpa"`
	GraduatedAt time.Time `db:"graduated_at" json:"graduated_at"`
}

// CpdResult is the outcome of a yearly CPD exam.
type CpdResult string

const (
	CpdPass CpdResult = "pass"
	CpdFail CpdResult = "fail"
)

// CpdRecord is the single CPD entry of an alumnus for one year.
type CpdRecord struct {
	AlumnusID string    `db:"alumnus_id" json:"alumnus_id"`
	Year      int       `db:"year" json:"year"`
	DateTaken time.Time `db:"date_taken" json:"date_taken"`
	Result    CpdResult `db:"result" json:"result"`
	Score     float64   `db:"score" json:"score"`
	Remarks   string    `db:"remarks" json:"remarks"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SubscriptionPayment is a yearly subscription fee paid by an alumnus.
type SubscriptionPayment struct {
	ID            string    `db:"id" json:"id"`
	AlumnusID     string    `db:"alumnus_id" json:"alumnus_id"`
	FullName      string    `db:"full_name" json:"full_name,omitempty"`
	Year          int       `db:"year" json:"year"`
	Amount        float64   `db:"amount" json:"amount"`
	PaymentMethod string    `db:"payment_method" json:"payment_method"`
	TransactionID string    `db:"transaction_id" json:"transaction_id"`
	PaymentDate   time.Time `db:"payment_date" json:"payment_date"`
}

// AlumnusSummary is the slim projection used for yearly statistics.
type AlumnusSummary struct {
	ID          string    `db:"id" json:"id"`
	FullName    string    `db:"full_name" json:"full_name"`
	GraduatedAt time.Time `db:"graduated_at" json:"graduated_at"`
}

// PracticingStatus is the public yearly flag of a certified professional.
type PracticingStatus string

const (
	PracticingActive   PracticingStatus = "active"
	PracticingInactive PracticingStatus = "inactive"
)

// PracticingYear is one row of the public practicing history.
type PracticingYear struct {
	Year      int              `json:"year"`
	Status    PracticingStatus `json:"status"`
	CpdPoints float64          `json:"cpd_points"`
}

// PaidAlumnus lists an alumnus who paid their subscription in a year.
type PaidAlumnus struct {
	AlumnusID     string    `json:"alumnus_id"`
	FullName      string    `json:"full_name"`
	Amount        float64   `json:"amount"`
	PaymentMethod string    `json:"payment_method"`
	PaymentDate   time.Time `json:"payment_date"`
}

// SubscriptionStats aggregates subscription payments for one year.
type SubscriptionStats struct {
	Year            int                `json:"year"`
	Paid            int                `json:"paid"`
	Pending         int                `json:"pending"`
	Expired         int                `json:"expired"`
	TotalRevenue    float64            `json:"total_revenue"`
	RevenueByMethod map[string]float64 `json:"revenue_by_method"`
	PaidAlumni      []PaidAlumnus      `json:"paid_alumni"`
}
