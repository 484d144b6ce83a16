package ledger

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	// ErrValidation indicates bad caller input or a forbidden state transition.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates a referenced material, batch, invoice or product does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInsufficientStock indicates a consumption larger than the active stock.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrConflict indicates a uniqueness or constraint violation in the store.
	ErrConflict = errors.New("conflict")
	// ErrTransient indicates a lost connection, lock timeout or deadlock.
	ErrTransient = errors.New("transient database failure")
)

// Violation describes why a material cannot be consumed.
type Violation struct {
	MaterialID   uint            `json:"material_id"`
	MaterialName string          `json:"material_name,omitempty"`
	Reason       string          `json:"reason"`
	Requested    decimal.Decimal `json:"requested"`
	Available    decimal.Decimal `json:"available"`
}

const (
	ReasonInsufficient = "insufficient stock"
	ReasonNotActive    = "material is not active"
	ReasonNotFound     = "material not found"
	ReasonDuplicate    = "material listed more than once"
	ReasonMeasurement  = "measurement must be positive"
	ReasonPrecision    = "quantity has more than 4 decimal places"
)

// Error is the error type returned by every ledger operation.
type Error struct {
	Kind       error
	Op         string
	Message    string
	Cause      error
	Violations []Violation
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Kind != nil {
		msg = e.Kind.Error()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

func ValidationError(msg string) error {
	return &Error{Kind: ErrValidation, Message: strings.TrimSpace(msg)}
}

func ValidationErrorf(format string, args ...any) error {
	return ValidationError(fmt.Sprintf(format, args...))
}

func NotFoundError(entity string, id uint) error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf("%s %d not found", entity, id)}
}

func InsufficientStockError(violations ...Violation) error {
	return &Error{Kind: ErrInsufficientStock, Message: "Insufficient stock", Violations: violations}
}

func ConflictError(msg string, cause error) error {
	return &Error{Kind: ErrConflict, Message: strings.TrimSpace(msg), Cause: cause}
}

func TransientDatabaseError(cause error) error {
	return &Error{Kind: ErrTransient, Message: "database temporarily unavailable", Cause: cause}
}

// Code returns a short machine-readable code for err.
func Code(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrTransient):
		return "transient"
	default:
		return "internal"
	}
}

// IsRejection reports whether err is a business rejection rather than a failure.
func IsRejection(err error) bool {
	switch Code(err) {
	case "validation", "not_found", "insufficient_stock", "conflict":
		return true
	}
	return false
}

// ViolationsOf returns the violations attached to err, if any.
func ViolationsOf(err error) []Violation {
	var le *Error
	if errors.As(err, &le) {
		return le.Violations
	}
	return nil
}

// MapError converts infrastructure failures into ledger errors tagged with op.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var le *Error
	if errors.As(err, &le) {
		if le.Op == "" {
			le.Op = op
		}
		return err
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &Error{Kind: ErrNotFound, Op: op, Message: "record not found", Cause: err}
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone):
		return &Error{Kind: ErrTransient, Op: op, Message: "database temporarily unavailable", Cause: err}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		code := strings.TrimSpace(pgErr.Code)
		switch {
		case code == "23505": // unique_violation
			return &Error{Kind: ErrConflict, Op: op, Message: "duplicate record", Cause: err}
		case code == "23514": // check_violation
			return &Error{Kind: ErrConflict, Op: op, Message: "stock constraint violated", Cause: err}
		case code == "23503": // foreign_key_violation
			return &Error{Kind: ErrConflict, Op: op, Message: "referenced record missing", Cause: err}
		case code == "40001", code == "40P01", code == "55P03", code == "57014":
			return &Error{Kind: ErrTransient, Op: op, Message: "database temporarily unavailable", Cause: err}
		case strings.HasPrefix(code, "08"), strings.HasPrefix(code, "53"):
			return &Error{Kind: ErrTransient, Op: op, Message: "database temporarily unavailable", Cause: err}
		}
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.Timeout(err) {
		return &Error{Kind: ErrTransient, Op: op, Message: "database temporarily unavailable", Cause: err}
	}

	// sqlite and driver messages without typed errors
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique constraint"), strings.Contains(msg, "duplicate key"):
		return &Error{Kind: ErrConflict, Op: op, Message: "duplicate record", Cause: err}
	case strings.Contains(msg, "check constraint"):
		return &Error{Kind: ErrConflict, Op: op, Message: "stock constraint violated", Cause: err}
	case strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "deadlock"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "broken pipe"):
		return &Error{Kind: ErrTransient, Op: op, Message: "database temporarily unavailable", Cause: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}
