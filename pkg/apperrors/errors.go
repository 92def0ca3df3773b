package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrDataAccess            = errors.New("data access failed")
	ErrSchemaMismatch        = errors.New("schema mismatch")
	ErrConfiguration         = errors.New("invalid configuration")
	ErrUnsupportedDatasource = errors.New("unsupported datasource type")
)

// DataAccessError reports a failed query against the analyzed database.
// Timeout is set when the failure was caused by the per-table query deadline.
type DataAccessError struct {
	Table   string
	Op      string
	Timeout bool
	Err     error
}

func (e *DataAccessError) Error() string {
	reason := "query failed"
	if e.Timeout {
		reason = "timeout"
	}
	if e.Table == "" {
		return fmt.Sprintf("data access error (%s) during %s: %v", reason, e.Op, e.Err)
	}
	return fmt.Sprintf("data access error (%s) during %s on %s: %v", reason, e.Op, e.Table, e.Err)
}

func (e *DataAccessError) Unwrap() error { return e.Err }

func (e *DataAccessError) Is(target error) bool { return target == ErrDataAccess }

// SchemaMismatchError means the introspected schema references columns that
// are absent from the collected statistics.
type SchemaMismatchError struct {
	Table   string
	Columns []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch on %s: no statistics for column(s) %s",
		e.Table, strings.Join(e.Columns, ", "))
}

func (e *SchemaMismatchError) Is(target error) bool { return target == ErrSchemaMismatch }

// ConfigurationError is returned before any query is issued when the
// analysis configuration cannot be used.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }
