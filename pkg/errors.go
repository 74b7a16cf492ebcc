package pkg

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

var ExposeErrorDetails = false

func init() {
	if gin.DebugMode == gin.Mode() || gin.TestMode == gin.Mode() {
		ExposeErrorDetails = true
	}
}

// Reusable errors
var (
	SqlErrForeignKeyViolation = errors.New("foreign key violation")
	SqlErrAuditImmutable      = errors.New("payment audit is append-only")
	SqlError                  = errors.New("sql error")

	ErrInvalidOrder          = errors.New("invalid order")
	ErrInvalidHandle         = errors.New("invalid merchant handle")
	ErrUnknownOrder          = errors.New("unknown order")
	ErrStatusCheck           = errors.New("payment status check failed")
	ErrPersistence           = errors.New("persistence failure")
	ErrPaymentMethodDisabled = errors.New("payment method disabled")
	ErrInvalidSignature      = errors.New("invalid return signature")
)

// ErrorCode defines a standardized error code
type ErrorCode struct {
	Code    string
	Status  int
	Message string // default message
}

var (
	// Generic app
	ErrInvalidInputCode   = ErrorCode{Code: "APP_INVALID_INPUT", Status: http.StatusBadRequest, Message: "invalid input"}
	ErrServerCode         = ErrorCode{Code: "APP_INTERNAL", Status: http.StatusInternalServerError, Message: "internal server error"}
	ErrRecordNotFoundCode = ErrorCode{Code: "APP_NOT_FOUND", Status: http.StatusNotFound, Message: "record not found"}

	// Checkout and reconciliation
	ErrInvalidOrderCode          = ErrorCode{Code: "CHECKOUT_INVALID_ORDER", Status: http.StatusUnprocessableEntity, Message: "invalid order"}
	ErrInvalidHandleCode         = ErrorCode{Code: "CHECKOUT_INVALID_HANDLE", Status: http.StatusUnprocessableEntity, Message: "invalid merchant handle"}
	ErrPaymentMethodDisabledCode = ErrorCode{Code: "CHECKOUT_METHOD_DISABLED", Status: http.StatusConflict, Message: "payment method disabled"}
	ErrUnknownOrderCode          = ErrorCode{Code: "RECONCILE_UNKNOWN_ORDER", Status: http.StatusNotFound, Message: "unknown order"}
	ErrStatusCheckCode           = ErrorCode{Code: "RECONCILE_STATUS_CHECK", Status: http.StatusBadGateway, Message: "payment status check failed"}
	ErrPersistenceCode           = ErrorCode{Code: "RECONCILE_PERSISTENCE", Status: http.StatusInternalServerError, Message: "persistence failure"}

	// SQL layer
	ErrSQLUnknownCode   = ErrorCode{Code: "SQL_UNKNOWN", Status: http.StatusInternalServerError, Message: "sql error"}
	ErrSQLConflictCode  = ErrorCode{Code: "SQL_CONFLICT", Status: http.StatusConflict, Message: "sql conflict"}
	ErrSQLDuplicateCode = ErrorCode{Code: "SQL_DUPLICATE", Status: http.StatusConflict, Message: "duplicate record"}
	ErrSQLInvalidInput  = ErrorCode{Code: "SQL_INVALID_INPUT", Status: http.StatusBadRequest, Message: "invalid input"}
)

type AppError struct {
	Code    ErrorCode
	Message string // public-facing message
	Cause   error  // internal cause (wrapped)
}

func (e AppError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}
func (e AppError) Unwrap() error { return e.Cause }

func NewAppError(code ErrorCode, msg string, cause error) error {
	return AppError{Code: code, Message: msg, Cause: cause}
}

// ErrorResponse defines the standardized error response format
type ErrorResponse struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ToErrorResponse converts an error into an ErrorResponse, logging details and optionally exposing error messages.
// If the error is not an AppError, it is converted to a generic 500 error.
func ToErrorResponse(logger *zap.Logger, traceID string, err error) ErrorResponse {
	var appErr AppError
	if errors.As(err, &appErr) {
		resp := ErrorResponse{
			Status:  appErr.Code.Status,
			Code:    appErr.Code.Code,
			Message: appErr.Message,
		}
		logger.Error("application error", zap.String(TraceId, traceID), zap.Error(err))
		if ExposeErrorDetails {
			resp.Details = err.Error()
		}
		return resp
	}
	// Unknown error : 500
	resp := ErrorResponse{
		Status:  ErrServerCode.Status,
		Code:    ErrServerCode.Code,
		Message: ErrServerCode.Message,
	}
	logger.Error("application error", zap.String(TraceId, traceID), zap.Error(err))
	if ExposeErrorDetails {
		resp.Details = err.Error()
	}
	return resp
}

// HandleSQLError maps pg errors -> AppError with proper codes/status
func HandleSQLError(traceId string, logger *zap.Logger, err error) error {
	var pgErr *pgconn.PgError
	if errors.Is(err, pgx.ErrNoRows) {
		logger.Warn("sql error : no records found", zap.String(TraceId, traceId))
		return NewAppError(ErrRecordNotFoundCode, "no records found", err)
	}
	if !errors.As(err, &pgErr) {
		logger.Error("sql error : unknown", zap.String(TraceId, traceId), zap.Error(err))
		return NewAppError(ErrSQLUnknownCode, "sql error", err)
	}

	// Log rich pg error context
	logger.Error("sql error",
		zap.String(TraceId, traceId),
		zap.String("code", pgErr.Code),
		zap.String("message", pgErr.Message),
		zap.String("detail", pgErr.Detail),
		zap.String("table", pgErr.TableName),
		zap.String("constraint", pgErr.ConstraintName),
	)

	switch pgErr.Code {
	case "23505": // unique_violation
		return NewAppError(ErrSQLDuplicateCode, "duplicate value violates unique constraint", SqlError)
	case "23503": // foreign_key_violation, e.g. a note for a missing order
		return NewAppError(ErrSQLConflictCode, "order does not exist", SqlErrForeignKeyViolation)
	case "23514": // check_violation on order status, quantity or unit value
		return NewAppError(ErrSQLInvalidInput, "order data violates a constraint", SqlError)
	case "42501": // raised by the payment_audit append-only trigger
		return NewAppError(ErrSQLConflictCode, "payment audit records cannot change", SqlErrAuditImmutable)
	case "22001", "22003": // value too long, numeric out of range
		return NewAppError(ErrSQLInvalidInput, "value does not fit the column", SqlError)
	default:
		return NewAppError(ErrSQLUnknownCode, "sql error", SqlError)
	}
}
