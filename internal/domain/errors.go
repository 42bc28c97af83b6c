package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeInvalidParams       = "INVALID_PARAMS"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeNoActiveSet         = "NO_ACTIVE_SET"
	ErrCodeUnsupportedProvider = "UNSUPPORTED_PROVIDER"
	ErrCodeBuildFailed         = "BUILD_FAILED"
	ErrCodeBuildNotReady       = "BUILD_NOT_READY"
	ErrCodeAlreadyExists       = "ALREADY_EXISTS"
	ErrCodeInternalError       = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrMissingRequiredField   = NewDomainError(ErrCodeValidation, "missing required field")
	ErrInvalidItemType        = NewDomainError(ErrCodeValidation, "invalid item type")
	ErrInvalidSetKind         = NewDomainError(ErrCodeValidation, "invalid set kind")
	ErrInvalidProvider        = NewDomainError(ErrCodeValidation, "unsupported index provider")
	ErrInvalidTarget          = NewDomainError(ErrCodeValidation, "invalid retrieval target")
	ErrMissingTargetID        = NewDomainError(ErrCodeValidation, "target_id is required for this strategy")
	ErrEmptySet               = NewDomainError(ErrCodeValidation, "set has no items")
	ErrInvalidLoaderType      = NewDomainError(ErrCodeValidation, "unsupported loader type")
	ErrInvalidChunkerStrategy = NewDomainError(ErrCodeValidation, "unsupported chunker strategy")
)

// Strategy parameter errors
var (
	ErrMissingRegexPattern   = NewDomainError(ErrCodeInvalidParams, "regex strategy requires a pattern")
	ErrInvalidRegexPattern   = NewDomainError(ErrCodeInvalidParams, "regex pattern does not compile")
	ErrInvalidFuzzyThreshold = NewDomainError(ErrCodeInvalidParams, "fuzzy threshold must be between 0 and 100")
	ErrUnknownStrategy       = NewDomainError(ErrCodeInvalidParams, "unsupported retrieval strategy")
	ErrNoEnsembleSources     = NewDomainError(ErrCodeInvalidParams, "ensemble has no usable sources")
	ErrWeightSourceMismatch  = NewDomainError(ErrCodeInvalidParams, "ensemble weights do not align with sources")
)

// Not found errors
var (
	ErrProjectNotFound         = NewDomainError(ErrCodeNotFound, "project not found")
	ErrDocumentNotFound        = NewDomainError(ErrCodeNotFound, "document not found")
	ErrDocumentVersionNotFound = NewDomainError(ErrCodeNotFound, "document version not found")
	ErrSetNotFound             = NewDomainError(ErrCodeNotFound, "versioned set not found")
	ErrItemNotFound            = NewDomainError(ErrCodeNotFound, "item not found in set")
	ErrIndexNotFound           = NewDomainError(ErrCodeNotFound, "index not found")
	ErrIndexBuildNotFound      = NewDomainError(ErrCodeNotFound, "index build not found")
	ErrRetrievalRunNotFound    = NewDomainError(ErrCodeNotFound, "retrieval run not found")
	ErrJobNotFound             = NewDomainError(ErrCodeNotFound, "job not found")
)

// Active-pointer resolution errors
var (
	ErrNoActiveSegmentSet = NewDomainError(ErrCodeNoActiveSet, "no active segment set for document version")
	ErrNoActiveChunkSet   = NewDomainError(ErrCodeNoActiveSet, "no active chunk set for project")
)

// Provider / build errors
var (
	ErrProviderNotImplemented = NewDomainError(ErrCodeUnsupportedProvider, "provider is not implemented")
	ErrNoSecondaryStore       = NewDomainError(ErrCodeUnsupportedProvider, "provider does not expose a secondary keyed store")
	ErrBuildFailed            = NewDomainError(ErrCodeBuildFailed, "index build failed")
	ErrBuildNotReady          = NewDomainError(ErrCodeBuildNotReady, "index build has not succeeded")
)
