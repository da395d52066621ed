package application

import (
	"fmt"
	"net/http"
)

// ErrorKind webhook 错误分类，每类对应固定的 HTTP 状态码
type ErrorKind string

const (
	KindConfigurationError      ErrorKind = "configuration_error"
	KindUnauthorized            ErrorKind = "unauthorized"
	KindMethodNotAllowed        ErrorKind = "method_not_allowed"
	KindInvalidPayload          ErrorKind = "invalid_payload"
	KindInvalidPayloadStructure ErrorKind = "invalid_payload_structure"
	KindDatabaseError           ErrorKind = "database_error"
	KindServerError             ErrorKind = "server_error"
	KindNotFound                ErrorKind = "not_found"
)

// HTTPStatus 分类到状态码的映射
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindConfigurationError, KindDatabaseError:
		return http.StatusServiceUnavailable
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case KindInvalidPayload:
		return http.StatusBadRequest
	case KindInvalidPayloadStructure:
		return http.StatusUnprocessableEntity
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// IngestError 接入管道错误，携带分类与对外展示信息
type IngestError struct {
	Kind    ErrorKind
	Message string
	Details string
	Err     error
}

func (e *IngestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *IngestError) Unwrap() error {
	return e.Err
}

// NewIngestError 构造接入错误
func NewIngestError(kind ErrorKind, message string) *IngestError {
	return &IngestError{Kind: kind, Message: message}
}

// WrapIngestError 包装底层错误
func WrapIngestError(kind ErrorKind, message string, err error) *IngestError {
	return &IngestError{Kind: kind, Message: message, Err: err}
}

// WithDetails 附加细节信息
func (e *IngestError) WithDetails(details string) *IngestError {
	e.Details = details
	return e
}
