// Package sql provides the read-only guard applied to every datasource query
// and injection checks for user-supplied request values.
package sql

import (
	"errors"
	"strings"
)

// ErrMultipleStatements indicates the query contains more than one SQL statement.
var ErrMultipleStatements = errors.New("multiple SQL statements not allowed; only single statements are permitted")

// NormalizeStatement trims whitespace and a single trailing semicolon, then
// rejects any semicolon left outside literals, quoted identifiers and comments.
// Quoting covers every supported dialect: 'string', "ident", `ident` and [ident].
func NormalizeStatement(sqlQuery string) (string, error) {
	normalized := strings.TrimSpace(sqlQuery)
	normalized = strings.TrimSpace(strings.TrimSuffix(normalized, ";"))

	if separatorIndex(normalized) >= 0 {
		return "", ErrMultipleStatements
	}
	return normalized, nil
}

// separatorIndex returns the byte offset of the first statement separator,
// or -1 if there is none.
func separatorIndex(s string) int {
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case ';':
			return i
		case '\'', '"', '`':
			i = skipQuoted(s, i, c)
		case '[':
			i = skipQuoted(s, i, ']')
		case '-':
			if i+1 < len(s) && s[i+1] == '-' {
				if end := strings.IndexByte(s[i:], '\n'); end >= 0 {
					i += end
				} else {
					return -1
				}
			}
		case '/':
			if i+1 < len(s) && s[i+1] == '*' {
				end := strings.Index(s[i+2:], "*/")
				if end < 0 {
					return -1
				}
				i += end + 3
			}
		}
	}
	return -1
}

// skipQuoted returns the index of the closing delimiter of the quoted run that
// starts at s[start]. Doubled delimiters ('' or "") and backslash escapes stay
// inside the run. An unterminated run consumes the rest of the input.
func skipQuoted(s string, start int, closing byte) int {
	for i := start + 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if closing == '\'' || closing == '"' {
				i++
			}
		case closing:
			if i+1 < len(s) && s[i+1] == closing {
				i++
				continue
			}
			return i
		}
	}
	return len(s)
}
