// Package businessflow contains the ingestion and query use cases of the price service
package businessflow

import (
	"errors"
	"fmt"

	"github.com/amirphl/harga-pangan/app/services"
)

// Business flow error constants
var (
	// Ingestion errors
	ErrInvalidFetchParams = errors.New("invalid fetch parameters")
	ErrPayloadShape       = errors.New("unexpected payload shape")
	ErrInvalidMonthRange  = errors.New("invalid month range")

	// Query errors
	ErrInvalidQuery = errors.New("invalid price query")

	// Dimension errors
	ErrInvalidDimension = errors.New("invalid dimension entry")

	ErrCacheNotAvailable = errors.New("cache not available")
)

// Business error codes
const (
	CodeIngestInvalidParams = "INGEST_INVALID_PARAMS"
	CodeIngestFailed        = "INGEST_FAILED"
	CodePriceQueryInvalid   = "PRICE_QUERY_INVALID"
	CodePriceQueryFailed    = "PRICE_QUERY_FAILED"
	CodePriceExportFailed   = "PRICE_EXPORT_FAILED"
	CodeDimensionInvalid    = "DIMENSION_INVALID"
	CodeDimensionFailed     = "DIMENSION_FAILED"
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

// IsValidationError reports whether err is a client fault
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidFetchParams) ||
		errors.Is(err, ErrInvalidQuery) ||
		errors.Is(err, ErrInvalidDimension) ||
		errors.Is(err, ErrInvalidMonthRange)
}

// IsUpstreamError reports whether err came from the upstream API
func IsUpstreamError(err error) bool {
	var statusErr *services.UpstreamStatusError
	return errors.As(err, &statusErr) ||
		errors.Is(err, services.ErrUpstreamUnavailable) ||
		errors.Is(err, services.ErrInvalidPayload)
}

func IsPayloadShape(err error) bool {
	return errors.Is(err, ErrPayloadShape)
}

func IsInvalidQuery(err error) bool {
	return errors.Is(err, ErrInvalidQuery)
}

func IsInvalidFetchParams(err error) bool {
	return errors.Is(err, ErrInvalidFetchParams)
}

func IsCacheNotAvailable(err error) bool {
	return errors.Is(err, ErrCacheNotAvailable)
}
