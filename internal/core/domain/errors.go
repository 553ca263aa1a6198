package domain

import (
	"errors"
	"fmt"

	"github.com/samber/oops"
)

// Domain errors - used across all layers
var (
	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrIngestionFailed indicates a document could not be loaded, chunked or stored
	ErrIngestionFailed = errors.New("ingestion failed")

	// ErrRetrievalFailed indicates the vector store or query embedding was unreachable
	ErrRetrievalFailed = errors.New("retrieval failed")

	// ErrGenerationFailed indicates the generation service failed
	ErrGenerationFailed = errors.New("generation failed")

	// ErrNotInitialized indicates a pipeline is missing one of its ports
	ErrNotInitialized = errors.New("not initialized")

	// ErrInvalidConfig indicates a configuration value is out of range
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidProvider indicates an unknown AI provider was specified
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrServiceUnavailable indicates a remote service could not be reached
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrLockNotAcquired indicates another instance holds the named lock
	ErrLockNotAcquired = errors.New("lock not acquired")
)

// ErrorKind classifies failures surfaced through result values.
type ErrorKind string

const (
	KindValidation     ErrorKind = "validation_error"
	KindIngestion      ErrorKind = "ingestion_error"
	KindRetrieval      ErrorKind = "retrieval_error"
	KindGeneration     ErrorKind = "generation_error"
	KindNotInitialized ErrorKind = "not_initialized_error"
	KindConfiguration  ErrorKind = "configuration_error"
	KindInternal       ErrorKind = "internal_error"
)

const errorDomain = "rag"

func (k ErrorKind) sentinel() error {
	switch k {
	case KindValidation:
		return ErrInvalidInput
	case KindIngestion:
		return ErrIngestionFailed
	case KindRetrieval:
		return ErrRetrievalFailed
	case KindGeneration:
		return ErrGenerationFailed
	case KindNotInitialized:
		return ErrNotInitialized
	case KindConfiguration:
		return ErrInvalidConfig
	default:
		return ErrServiceUnavailable
	}
}

// NewError creates a coded error whose formatted message is safe to show users.
// errors.Is matches the sentinel for the kind.
func NewError(kind ErrorKind, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return oops.Code(kind).In(errorDomain).Public(msg).Wrapf(kind.sentinel(), "%s", msg)
}

// WrapError classifies cause under kind. errors.Is matches both the sentinel
// for kind and cause. Returns nil when cause is nil.
func WrapError(cause error, kind ErrorKind, format string, args ...any) error {
	if cause == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	return oops.Code(kind).In(errorDomain).Public(msg).
		Wrapf(fmt.Errorf("%w: %w", kind.sentinel(), cause), "%s", msg)
}

// KindOf reports the ErrorKind carried by err.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	if oe, ok := oops.AsOops(err); ok {
		if k, ok := oe.Code().(ErrorKind); ok {
			return k
		}
	}
	for _, k := range []ErrorKind{
		KindValidation, KindIngestion, KindRetrieval, KindGeneration,
		KindNotInitialized, KindConfiguration,
	} {
		if errors.Is(err, k.sentinel()) {
			return k
		}
	}
	return KindInternal
}

// PublicMessage returns the user-facing message for err, falling back to err.Error().
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	return oops.GetPublic(err, err.Error())
}

// ResultError is the error descriptor embedded in result values.
type ResultError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// Error implements error.
func (e *ResultError) Error() string {
	return e.Message
}

// NewResultError converts err into a ResultError.
func NewResultError(err error) *ResultError {
	if err == nil {
		return nil
	}
	return &ResultError{Kind: KindOf(err), Message: PublicMessage(err)}
}
