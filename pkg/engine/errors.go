package engine

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/openfroyo/ppactl/pkg/launchpad"
)

// ErrorClass represents the classification of an error.
type ErrorClass string

const (
	// ErrorClassTransient indicates a temporary failure of the archive service.
	ErrorClassTransient ErrorClass = "transient"

	// ErrorClassThrottled indicates the archive service rate limited us.
	ErrorClassThrottled ErrorClass = "throttled"

	// ErrorClassPermanent indicates a non-recoverable error.
	// Examples: unexpected rejections, permission denied, resource not found.
	ErrorClassPermanent ErrorClass = "permanent"
)

// EngineError represents a classified error with context.
// nolint:revive // EngineError is intentionally named to distinguish from standard errors
type EngineError struct {
	// Class is the error classification.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Code is an optional error code for programmatic handling.
	Code string `json:"code,omitempty"`

	// Resource identifies what the operation acted on, e.g. a package or copy batch.
	Resource string `json:"resource,omitempty"`

	// Operation is the operation being performed when the error occurred.
	Operation string `json:"operation,omitempty"`

	// Err is the underlying error that caused this error.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Resource != "" && e.Operation != "" {
		return fmt.Sprintf("[%s] %s (resource=%s, operation=%s): %s",
			e.Class, e.Message, e.Resource, e.Operation, e.unwrapMessage())
	}
	if e.Resource != "" {
		return fmt.Sprintf("[%s] %s (resource=%s): %s",
			e.Class, e.Message, e.Resource, e.unwrapMessage())
	}
	return fmt.Sprintf("[%s] %s: %s", e.Class, e.Message, e.unwrapMessage())
}

// Unwrap returns the underlying error for error chain inspection.
func (e *EngineError) Unwrap() error {
	return e.Err
}

func (e *EngineError) unwrapMessage() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return ""
}

// Is implements error equality checking for errors.Is.
func (e *EngineError) Is(target error) bool {
	t, ok := target.(*EngineError)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Code == t.Code
}

// NewTransientError creates a new transient error.
func NewTransientError(message string, err error) *EngineError {
	return &EngineError{Class: ErrorClassTransient, Message: message, Err: err}
}

// NewThrottledError creates a new throttled error.
func NewThrottledError(message string, err error) *EngineError {
	return &EngineError{Class: ErrorClassThrottled, Message: message, Err: err}
}

// NewPermanentError creates a new permanent error.
func NewPermanentError(message string, err error) *EngineError {
	return &EngineError{Class: ErrorClassPermanent, Message: message, Err: err}
}

// WithResource adds resource context to an error.
func (e *EngineError) WithResource(resource string) *EngineError {
	e.Resource = resource
	return e
}

// WithOperation adds operation context to an error.
func (e *EngineError) WithOperation(operation string) *EngineError {
	e.Operation = operation
	return e
}

// WithCode adds an error code to an error.
func (e *EngineError) WithCode(code string) *EngineError {
	e.Code = code
	return e
}

// IsTransient returns true if the error is classified as transient.
func IsTransient(err error) bool {
	var e *EngineError
	return errors.As(err, &e) && e.Class == ErrorClassTransient
}

// IsThrottled returns true if the error is classified as throttled.
func IsThrottled(err error) bool {
	var e *EngineError
	return errors.As(err, &e) && e.Class == ErrorClassThrottled
}

// IsPermanent returns true if the error is classified as permanent.
func IsPermanent(err error) bool {
	var e *EngineError
	return errors.As(err, &e) && e.Class == ErrorClassPermanent
}

// Common error codes.
const (
	ErrCodeRejected    = "REJECTED"
	ErrCodeNotFound    = "NOT_FOUND"
	ErrCodeRateLimited = "RATE_LIMITED"
	ErrCodeUnavailable = "UNAVAILABLE"
	ErrCodeInternal    = "INTERNAL_ERROR"
)

// wrapRemoteError classifies an archive service failure.
func wrapRemoteError(operation, resource string, err error) *EngineError {
	var (
		badReq *launchpad.BadRequestError
		apiErr *launchpad.APIError
		e      *EngineError
	)
	switch {
	case errors.As(err, &badReq):
		e = NewPermanentError("archive service rejected the request", err).WithCode(ErrCodeRejected)
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests:
		e = NewThrottledError("archive service rate limit exceeded", err).WithCode(ErrCodeRateLimited)
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound:
		e = NewPermanentError("archive service resource not found", err).WithCode(ErrCodeNotFound)
	case errors.As(err, &apiErr) && apiErr.StatusCode >= 500:
		e = NewTransientError("archive service unavailable", err).WithCode(ErrCodeUnavailable)
	default:
		e = NewPermanentError("archive service call failed", err).WithCode(ErrCodeInternal)
	}
	return e.WithOperation(operation).WithResource(resource)
}

// RejectionKind names a recognized benign rejection from the archive service.
type RejectionKind string

const (
	// RejectionAlreadyPublished means the requested copy already exists at the destination.
	RejectionAlreadyPublished RejectionKind = "already-published"

	// RejectionObsoleteSeries means the destination series no longer accepts uploads.
	RejectionObsoleteSeries RejectionKind = "obsolete-series"
)

// RejectionOutcome is what the caller should do about a failed remote call.
type RejectionOutcome int

const (
	// RejectionFatal aborts the run.
	RejectionFatal RejectionOutcome = iota

	// RejectionIgnored treats the call as a successful no-op.
	RejectionIgnored
)

func (o RejectionOutcome) String() string {
	if o == RejectionIgnored {
		return "ignored"
	}
	return "fatal"
}

var obsoleteSeriesPattern = regexp.MustCompile(`(?is)obsolete.*will not accept new uploads`)

// rejectionKind recognizes the two documented benign rejections. Anything that is
// not a structured 400 from the service, or whose text matches neither, has no kind.
func rejectionKind(err error) (RejectionKind, bool) {
	var badReq *launchpad.BadRequestError
	if !errors.As(err, &badReq) {
		return "", false
	}
	switch {
	case strings.Contains(badReq.Message, "already published"):
		return RejectionAlreadyPublished, true
	case obsoleteSeriesPattern.MatchString(badReq.Message):
		return RejectionObsoleteSeries, true
	}
	return "", false
}

// ClassifyRejection maps err to RejectionIgnored only when it is a recognized
// rejection whose kind is listed in tolerated. Every other error is fatal.
// err must be non-nil.
func ClassifyRejection(err error, tolerated ...RejectionKind) (RejectionOutcome, RejectionKind) {
	kind, ok := rejectionKind(err)
	if !ok {
		return RejectionFatal, ""
	}
	for _, k := range tolerated {
		if k == kind {
			return RejectionIgnored, kind
		}
	}
	return RejectionFatal, kind
}
