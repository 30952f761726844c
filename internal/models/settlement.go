package models

import "time"

// SettlementStatus tracks whether a tutor has been paid for one enrollment.
type SettlementStatus string

const (
	SettlementPending SettlementStatus = "PENDING"
	SettlementPaid    SettlementStatus = "PAID"
	SettlementFailed  SettlementStatus = "FAILED"
)

// TutorSharePercent is the nominal tutor revenue share of a course fee.
const TutorSharePercent = 15

// Settlement records payment of a tutor's share for one (student, course) enrollment. Each tutor that held
// the enrollment has its own row.
type Settlement struct {
	StudentID     string           `db:"student_id" json:"student_id"`
	CourseID      string           `db:"course_id" json:"course_id"`
	TutorID       string           `db:"tutor_id" json:"tutor_id"`
	Status        SettlementStatus `db:"status" json:"status"`
	Amount        float64          `db:"amount" json:"amount"`
	Phone         string           `db:"phone" json:"phone"`
	TransactionID string           `db:"transaction_id" json:"transaction_id"`
	TimeOfPayment *time.Time       `db:"time_of_payment" json:"time_of_payment,omitempty"`
	UpdatedAt     time.Time        `db:"updated_at" json:"updated_at"`
}

// LedgerEntry is one (tutor, student) roster pair joined with its settlement, if any.
type LedgerEntry struct {
	TutorID          string            `db:"tutor_id" json:"tutor_id"`
	TutorName        string            `db:"tutor_name" json:"tutor_name"`
	StudentID        string            `db:"student_id" json:"student_id"`
	StudentName      string            `db:"student_name" json:"student_name"`
	CourseID         string            `db:"course_id" json:"course_id"`
	Roster           RosterKind        `db:"roster" json:"roster"`
	CourseFee        *float64          `db:"course_fee" json:"course_fee,omitempty"`
	SettlementStatus *SettlementStatus `db:"settlement_status" json:"settlement_status,omitempty"`
	SettlementAmount *float64          `db:"settlement_amount" json:"settlement_amount,omitempty"`
	TransactionID    *string           `db:"transaction_id" json:"transaction_id,omitempty"`
}

// Paid reports whether the entry has a PAID settlement.
func (e LedgerEntry) Paid() bool {
	return e.SettlementStatus != nil && *e.SettlementStatus == SettlementPaid
}

// RevenueAggregate rolls settlements into revenue figures.
type RevenueAggregate struct {
	TotalRevenue         float64 `json:"total_revenue"`
	TotalPaidToTutors    float64 `json:"total_paid_to_tutors"`
	TotalPendingToTutors float64 `json:"total_pending_to_tutors"`
	AdminRevenue         float64 `json:"admin_revenue"`
}

// FinanceOverview is the admin finance dashboard payload.
type FinanceOverview struct {
	RevenueAggregate
	TotalStudents int       `json:"total_students"`
	TotalTutors   int       `json:"total_tutors"`
	GeneratedAt   time.Time `json:"generated_at"`
}
