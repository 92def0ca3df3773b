package sql

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNotReadOnly indicates a statement that could modify the database.
var ErrNotReadOnly = errors.New("only read-only SELECT statements are permitted")

// StatementType represents the type of SQL statement.
type StatementType string

const (
	StatementSelect  StatementType = "SELECT"
	StatementWrite   StatementType = "WRITE" // INSERT, UPDATE, DELETE, MERGE, CALL, EXEC
	StatementDDL     StatementType = "DDL"   // CREATE, ALTER, DROP, TRUNCATE, GRANT, REVOKE
	StatementUnknown StatementType = "UNKNOWN"
)

// modifyingCTEPattern matches CTEs that contain data-modifying operations.
// Example: WITH deleted AS (DELETE FROM ...) SELECT * FROM deleted
var modifyingCTEPattern = regexp.MustCompile(`(?i)\bAS\s*\(\s*(INSERT|UPDATE|DELETE|MERGE)\b`)

// DetectStatementType determines the type of SQL statement based on the first keyword.
func DetectStatementType(sqlQuery string) StatementType {
	normalized := strings.ToUpper(strings.TrimSpace(sqlQuery))
	first := normalized
	if idx := strings.IndexAny(normalized, " \t\r\n("); idx >= 0 {
		first = normalized[:idx]
	}

	switch first {
	case "SELECT":
		return StatementSelect
	case "WITH":
		if modifyingCTEPattern.MatchString(sqlQuery) {
			return StatementWrite
		}
		return StatementSelect
	case "INSERT", "UPDATE", "DELETE", "MERGE", "REPLACE", "CALL", "EXEC", "EXECUTE":
		return StatementWrite
	case "CREATE", "ALTER", "DROP", "TRUNCATE", "GRANT", "REVOKE":
		return StatementDDL
	default:
		return StatementUnknown
	}
}

// EnsureReadOnly validates that sqlQuery is a single read-only statement and
// returns it normalized (trailing semicolon stripped).
func EnsureReadOnly(sqlQuery string) (string, error) {
	normalized, err := NormalizeStatement(sqlQuery)
	if err != nil {
		return "", err
	}
	if normalized == "" {
		return "", fmt.Errorf("%w: empty statement", ErrNotReadOnly)
	}
	if t := DetectStatementType(normalized); t != StatementSelect {
		return "", fmt.Errorf("%w: got %s statement", ErrNotReadOnly, t)
	}
	return normalized, nil
}
