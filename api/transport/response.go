package transport

import (
	"errors"

	"github.com/fastygo/todo/domain"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"

	// CodeDegraded marks a health response with at least one failing dependency.
	CodeDegraded = "DEGRADED"
)

// Envelope wraps every task API response. Error carries only the public
// message of a domain error, never the wrapped cause.
type Envelope struct {
	Status string      `json:"status"`
	Code   string      `json:"code,omitempty"`
	Data   interface{} `json:"data,omitempty"`
	Error  string      `json:"error,omitempty"`
	Meta   interface{} `json:"meta,omitempty"`
}

func NewSuccess(data interface{}) Envelope {
	return Envelope{Status: StatusSuccess, Data: data}
}

// NewDomainError builds an error envelope for a domain error code.
func NewDomainError(code domain.ErrorCode, message string) Envelope {
	return Envelope{Status: StatusError, Code: string(code), Error: message}
}

// FromError converts err to an error envelope. Errors outside the domain
// are reported as INTERNAL with a generic message.
func FromError(err error) Envelope {
	var dErr *domain.Error
	if errors.As(err, &dErr) {
		return NewDomainError(dErr.Code, dErr.Message)
	}
	return NewDomainError(domain.ErrCodeInternal, "internal error")
}

// NewDegraded reports unhealthy dependencies; meta holds the per-service status.
func NewDegraded(meta interface{}) Envelope {
	return Envelope{
		Status: StatusError,
		Code:   CodeDegraded,
		Error:  "dependencies unhealthy",
		Meta:   meta,
	}
}
