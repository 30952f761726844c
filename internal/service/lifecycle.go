package service

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/academy-lifecycle-api/internal/models"
	"github.com/noah-isme/academy-lifecycle-api/internal/repository"
	appErrors "github.com/noah-isme/academy-lifecycle-api/pkg/errors"
)

// Operation names reported to metrics.
const (
	opEnroll              = "enroll"
	opAssign              = "assign"
	opCancel              = "cancel"
	opRelease             = "release"
	opRecordPayment       = "record_payment"
	opUpdateGrades        = "update_grades"
	opGraduate            = "graduate"
	opRecordCpd           = "record_cpd"
	opSubscriptionPayment = "subscription_payment"
)

// Cache keys of derived read models.
const (
	financeOverviewKey    = "finance:overview"
	subscriptionStatsKey  = "subs:stats:%d"
	subscriptionStatsGlob = "subs:stats:*"
)

type operationRecorder interface {
	RecordOperation(operation, outcome string)
}

// authorize rejects callers that may not run back-office mutations.
func authorize(actor *models.AuthContext) error {
	if actor == nil || actor.UserID == "" {
		return appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	if !actor.IsAdmin() {
		return appErrors.Clone(appErrors.ErrForbidden, "admin role required")
	}
	return nil
}

// storeError translates repository failures.
func storeError(err error, notFound, action string) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	case errors.Is(err, repository.ErrStaleVersion):
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, action+": record was modified concurrently, reload and retry")
	case errors.Is(err, repository.ErrDuplicate):
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, action+": record already exists")
	}
	return appErrors.Internal(err, "failed to "+action)
}

func validationError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

// invalidPayload names every field rule a request broke.
func invalidPayload(err error, subject string) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return validationError(err, subject)
	}
	rules := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		rules = append(rules, describeRule(fe))
	}
	appErr := appErrors.Violations(appErrors.ErrValidation, subject, rules)
	appErr.Err = err
	return appErr
}

func describeRule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "lte", "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
}

// outcomeOf classifies an operation result for metrics.
func outcomeOf(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	if appErr := appErrors.FromError(err); appErr.Status < 500 {
		return OutcomeRejected
	}
	return OutcomeError
}

func record(metrics operationRecorder, operation string, err error) {
	if metrics == nil {
		return
	}
	metrics.RecordOperation(operation, outcomeOf(err))
}
