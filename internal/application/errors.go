package application

import (
	"errors"
	"fmt"
	"net/http"
)

// APPLICATION-LEVEL ERRORS (Orchestration)

type ServiceError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeSignatureInvalid   = "SIGNATURE_INVALID"
	ErrCodeMalformedPayload   = "MALFORMED_PAYLOAD"
	ErrCodeOrderNotFound      = "ORDER_NOT_FOUND"
	ErrCodeGatewayUnavailable = "GATEWAY_UNAVAILABLE"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// NewSignatureInvalidError fails closed: the notification is untrusted and
// must not be processed, not merely logged.
func NewSignatureInvalidError() *ServiceError {
	return &ServiceError{
		Code:       ErrCodeSignatureInvalid,
		Message:    "notification signature verification failed",
		HTTPStatus: http.StatusForbidden,
	}
}

func NewMalformedPayloadError(reason string) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeMalformedPayload,
		Message:    fmt.Sprintf("malformed notification payload: %s", reason),
		HTTPStatus: http.StatusBadRequest,
	}
}

func NewOrderNotFoundError(id int64) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeOrderNotFound,
		Message:    fmt.Sprintf("no order found for id %d", id),
		HTTPStatus: http.StatusNotFound,
	}
}

func NewGatewayUnavailableError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeGatewayUnavailable,
		Message:    "payment processor query failed",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func NewInternalError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInternal,
		Message:    "An internal error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func IsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	ok := errors.As(err, &svcErr)
	return svcErr, ok
}

// ToHTTPStatus maps any error to the response status the callback contract
// demands; unknown errors are internal.
func ToHTTPStatus(err error) int {
	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// ToErrorCode extracts the machine-readable code for logging and responses.
func ToErrorCode(err error) string {
	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.Code
	}
	return ErrCodeInternal
}
