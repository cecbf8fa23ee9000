package domain

import "errors"

// Domain errors represent business-level errors that can occur in the system.
// These errors are used across layers to communicate specific failure conditions.
var (
	// Input errors
	ErrInvalidDateTime = errors.New("invalid restore date/time")
	ErrInvalidTimezone = errors.New("invalid timezone")
	ErrInvalidParam    = errors.New("invalid parameter")
	ErrUnknownStep     = errors.New("unknown step")

	// Discovery errors
	ErrNoRestoreTargets  = errors.New("no restore targets found")
	ErrResourceNotFound  = errors.New("resource not found")
	ErrDirectoryQuery    = errors.New("resource directory query failed")
	ErrDerivedNameExists = errors.New("derived database already exists")

	// Retention errors
	ErrRestorePointTooOld = errors.New("restore point is older than the retention window")
	ErrRestorePointTooNew = errors.New("restore point is newer than the latest safe instant")

	// Restore errors
	ErrRestoreRejected = errors.New("restore request rejected")
	ErrRestoreFailed   = errors.New("restore failed")
	ErrTimedOut        = errors.New("timed out waiting for restore")
	ErrStatusUnknown   = errors.New("database status inconclusive")

	// Run errors
	ErrUnauthorized  = errors.New("unauthorized")
	ErrNotApproved   = errors.New("run not approved")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ErrorCategory classifies failures for propagation and exit codes.
type ErrorCategory string

const (
	CategoryGeneral        ErrorCategory = "general"
	CategoryValidation     ErrorCategory = "validation"
	CategoryConflict       ErrorCategory = "conflict"
	CategoryTransientPoll  ErrorCategory = "transient_poll"
	CategoryTimeout        ErrorCategory = "timeout"
	CategoryAuthentication ErrorCategory = "authentication"
	CategoryPrerequisite   ErrorCategory = "prerequisite"
)

// Error is a categorized failure tied to an operation and optionally a target.
type Error struct {
	Category ErrorCategory
	Op       string
	Target   string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Target != "" {
		msg += " [" + e.Target + "]"
	}
	if e.Err != nil {
		if msg != "" {
			msg += ": "
		}
		msg += e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(category ErrorCategory, op, target string, err error) *Error {
	return &Error{Category: category, Op: op, Target: target, Err: err}
}

// NewValidationError reports bad input or a violated retention window.
func NewValidationError(op, target string, err error) *Error {
	return newError(CategoryValidation, op, target, err)
}

// NewConflictError reports a derived name that already exists.
func NewConflictError(op, target string, err error) *Error {
	return newError(CategoryConflict, op, target, err)
}

// NewTransientPollError reports a single failed status query.
func NewTransientPollError(op, target string, err error) *Error {
	return newError(CategoryTransientPoll, op, target, err)
}

// NewTimeoutError reports a target that exceeded its wait budget.
func NewTimeoutError(op, target string, err error) *Error {
	return newError(CategoryTimeout, op, target, err)
}

// NewAuthenticationError reports missing or rejected credentials.
func NewAuthenticationError(op string, err error) *Error {
	return newError(CategoryAuthentication, op, "", err)
}

// NewPrerequisiteError reports a missing resource or invalid configuration.
func NewPrerequisiteError(op string, err error) *Error {
	return newError(CategoryPrerequisite, op, "", err)
}

// CategoryOf returns the category of err, CategoryGeneral when uncategorized.
func CategoryOf(err error) ErrorCategory {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Category
	}
	switch {
	case errors.Is(err, ErrUnauthorized):
		return CategoryAuthentication
	case errors.Is(err, ErrInvalidConfig), errors.Is(err, ErrInvalidParam), errors.Is(err, ErrUnknownStep):
		return CategoryPrerequisite
	case errors.Is(err, ErrTimedOut):
		return CategoryTimeout
	}
	return CategoryGeneral
}

// IsFatal reports whether err must abort the whole run.
func IsFatal(err error) bool {
	switch CategoryOf(err) {
	case CategoryAuthentication, CategoryPrerequisite:
		return true
	default:
		return false
	}
}

// Process exit codes.
const (
	ExitSuccess        = 0
	ExitGeneral        = 1
	ExitPrerequisite   = 2
	ExitAuthentication = 3
	ExitTimeout        = 4
)

// ExitCodeFor maps an error to the process exit code.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}
	switch CategoryOf(err) {
	case CategoryPrerequisite, CategoryValidation:
		return ExitPrerequisite
	case CategoryAuthentication:
		return ExitAuthentication
	case CategoryTimeout:
		return ExitTimeout
	default:
		return ExitGeneral
	}
}
