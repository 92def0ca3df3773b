package sql

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult describes a request value that looks like SQL injection.
type InjectionCheckResult struct {
	Field       string // Request field the value came from
	Value       string // The value that was checked
	Fingerprint string // libinjection fingerprint of the detected pattern
}

// CheckValueForInjection uses libinjection to detect SQL injection patterns in
// a user-supplied value such as a table filter or an optional-field pattern.
// Returns nil when the value is clean.
func CheckValueForInjection(field, value string) *InjectionCheckResult {
	if value == "" {
		return nil
	}
	isSQLi, fingerprint := libinjection.IsSQLi(value)
	if !isSQLi {
		return nil
	}
	return &InjectionCheckResult{
		Field:       field,
		Value:       value,
		Fingerprint: string(fingerprint),
	}
}

// CheckValues checks every value of a field and returns the ones that failed.
func CheckValues(field string, values []string) []*InjectionCheckResult {
	var results []*InjectionCheckResult
	for _, v := range values {
		if r := CheckValueForInjection(field, v); r != nil {
			results = append(results, r)
		}
	}
	return results
}
