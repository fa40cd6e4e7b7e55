// Package sqlutil provides SQL utility functions for synthgen.
package sqlutil

import (
	"regexp"
	"strings"
)

// Dialect selects the identifier quoting style of the target database.
type Dialect string

const (
	// DialectMySQL quotes identifiers with backticks.
	DialectMySQL Dialect = "mysql"
	// DialectSQLite quotes identifiers with double quotes.
	DialectSQLite Dialect = "sqlite"
)

// QuoteIdentifier quotes a table or column name for the given dialect,
// escaping any embedded quote characters by doubling them.
// Example: QuoteIdentifier(DialectMySQL, "my_table") -> "`my_table`"
func QuoteIdentifier(d Dialect, name string) string {
	if d == DialectSQLite {
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// RandomFunc returns the SQL expression producing a random sort key for the
// given dialect.
func RandomFunc(d Dialect) string {
	if d == DialectSQLite {
		return "RANDOM()"
	}
	return "RAND()"
}

// validIdentifierRegex matches valid identifier characters.
// For safety, we restrict to alphanumeric and underscore only.
var validIdentifierRegex = regexp.MustCompile("^[a-zA-Z0-9_]+$")

// IsValidIdentifier checks if a name is a valid identifier.
// This is a defense-in-depth measure against SQL injection.
func IsValidIdentifier(name string) bool {
	return validIdentifierRegex.MatchString(name)
}

// QuoteIdentifierSafe quotes an identifier after validating it.
// Returns an error if the identifier contains invalid characters.
// Use this when identifiers might come from untrusted sources.
func QuoteIdentifierSafe(d Dialect, name string) (string, error) {
	if !IsValidIdentifier(name) {
		return "", &InvalidIdentifierError{Name: name}
	}
	return QuoteIdentifier(d, name), nil
}

// InvalidIdentifierError is returned when an identifier contains invalid characters.
type InvalidIdentifierError struct {
	Name string
}

func (e *InvalidIdentifierError) Error() string {
	return "invalid identifier: " + e.Name + " (must contain only alphanumeric characters and underscores)"
}
