package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	// ErrStaleVersion is returned when an optimistic update lost the race against another writer.
	ErrStaleVersion = errors.New("record was modified concurrently")
	// ErrDuplicate is returned when an insert collides with an existing key.
	ErrDuplicate = errors.New("record already exists")
	// ErrDuplicateYear is returned when an alumnus already paid the subscription for a year.
	ErrDuplicateYear = errors.New("subscription year already paid")
)

const (
	uniqueViolation = "23505"

	subscriptionYearConstraint = "subscription_payments_alumnus_id_year_key"
)

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// violatedConstraint names the constraint behind a unique violation, or "" for any other error.
func violatedConstraint(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return pqErr.Constraint
	}
	return ""
}

// expectOneRow turns a zero-row update into ErrStaleVersion.
func expectOneRow(result sql.Result, op string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return ErrStaleVersion
	}
	return nil
}
