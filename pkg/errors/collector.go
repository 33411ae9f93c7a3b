package errors

import (
	"fmt"

	gojson "github.com/goccy/go-json"

	"github.com/ajitpratap0/oddcollector/pkg/models"
)

// LoadConfigError wraps any failure met while turning raw YAML and secrets
// into a valid collector configuration.
type LoadConfigError struct {
	Cause error
}

func NewLoadConfigError(cause error) *LoadConfigError {
	return &LoadConfigError{Cause: cause}
}

func (e *LoadConfigError) Error() string {
	return fmt.Sprintf("couldn't handle config. Reason: %v", e.Cause)
}

func (e *LoadConfigError) Unwrap() error { return e.Cause }

// ParserError is returned when an !ENV placeholder references an unset
// environment variable.
type ParserError struct {
	Variable string
	Line     int
}

func (e *ParserError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("environment variable %s not found (line %d). Please check your environment variables", e.Variable, e.Line)
	}
	return fmt.Sprintf("environment variable %s not found. Please check your environment variables", e.Variable)
}

// Response is the part of a platform HTTP response kept for diagnostics.
type Response struct {
	StatusCode int
	Status     string
	Body       string
}

func (r *Response) String() string {
	if r == nil {
		return "<no response>"
	}
	if r.Body == "" {
		return r.Status
	}
	return fmt.Sprintf("%s: %s", r.Status, r.Body)
}

// PlatformAPIError is the base of every catalog API failure. Response is nil
// when the platform could not be reached at all.
type PlatformAPIError struct {
	Message  string
	Response *Response
	Cause    error
}

func (e *PlatformAPIError) Error() string {
	reason := e.reason()
	if e.Message == "" {
		return "platform API error. Reason: " + reason
	}
	return e.Message + ". Reason: " + reason
}

func (e *PlatformAPIError) reason() string {
	switch {
	case e.Response != nil && e.Cause != nil:
		return fmt.Sprintf("platform response: %s. %v", e.Response, e.Cause)
	case e.Response != nil:
		return "platform response: " + e.Response.String()
	case e.Cause != nil:
		return fmt.Sprintf("no response from platform has been sent. Possible reasons: platform is not running, incorrect platform_host_url configuration. %v", e.Cause)
	default:
		return "unknown"
	}
}

func (e *PlatformAPIError) Unwrap() error { return e.Cause }

// PayloadError is a platform failure that still holds the rejected payload.
// RegisterDataSourceError and IngestionDataError implement it.
type PayloadError interface {
	error
	Request() string
}

// RegisterDataSourceError is returned when data source registration fails.
type RegisterDataSourceError struct {
	PlatformAPIError
	DataSources *models.DataSourceList
}

func NewRegisterDataSourceError(resp *Response, cause error, list *models.DataSourceList) *RegisterDataSourceError {
	return &RegisterDataSourceError{
		PlatformAPIError: PlatformAPIError{
			Message:  "could not create data sources",
			Response: resp,
			Cause:    cause,
		},
		DataSources: list,
	}
}

// Request returns the JSON encoded data source batch that was rejected.
func (e *RegisterDataSourceError) Request() string {
	if e.DataSources == nil {
		return ""
	}
	b, err := gojson.Marshal(e.DataSources)
	if err != nil {
		return ""
	}
	return string(b)
}

// As lets errors.As match the embedded PlatformAPIError.
func (e *RegisterDataSourceError) As(target interface{}) bool {
	if t, ok := target.(**PlatformAPIError); ok {
		*t = &e.PlatformAPIError
		return true
	}
	return false
}

// IngestionDataError is returned when one batch of entities is rejected.
type IngestionDataError struct {
	PlatformAPIError
	DataEntities *models.DataEntityList
}

func NewIngestionDataError(resp *Response, cause error, list *models.DataEntityList) *IngestionDataError {
	return &IngestionDataError{
		PlatformAPIError: PlatformAPIError{
			Message:  "could not ingest data",
			Response: resp,
			Cause:    cause,
		},
		DataEntities: list,
	}
}

// Request returns the JSON encoded entity batch that was rejected.
func (e *IngestionDataError) Request() string {
	if e.DataEntities == nil {
		return ""
	}
	b, err := gojson.Marshal(e.DataEntities)
	if err != nil {
		return ""
	}
	return string(b)
}

// As lets errors.As match the embedded PlatformAPIError.
func (e *IngestionDataError) As(target interface{}) bool {
	if t, ok := target.(**PlatformAPIError); ok {
		*t = &e.PlatformAPIError
		return true
	}
	return false
}

// MappingDataError is raised by an adapter when mapping its source objects
// into data entities fails.
type MappingDataError struct {
	Entity string
	Cause  error
}

func NewMappingDataError(entity string, cause error) *MappingDataError {
	return &MappingDataError{Entity: entity, Cause: cause}
}

func (e *MappingDataError) Error() string {
	if e.Entity == "" {
		return fmt.Sprintf("mapping data failed: %v", e.Cause)
	}
	return fmt.Sprintf("mapping %s failed: %v", e.Entity, e.Cause)
}

func (e *MappingDataError) Unwrap() error { return e.Cause }

// DataSourceError reports that an adapter could not talk to its source.
type DataSourceError struct {
	Kind  ErrorType // ErrorTypeConnection or ErrorTypeAuthentication
	Cause error
}

func NewDataSourceError(kind ErrorType, cause error) *DataSourceError {
	return &DataSourceError{Kind: kind, Cause: cause}
}

func (e *DataSourceError) Error() string {
	return fmt.Sprintf("data source %s error: %v", e.Kind, e.Cause)
}

func (e *DataSourceError) Unwrap() error { return e.Cause }
