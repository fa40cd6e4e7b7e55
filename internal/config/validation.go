package config

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validate checks the configuration for required fields and valid values.
// Checks that need the destination schema (missingness nullability, column
// coverage) happen when the generation plan is built.
func (c *Config) Validate() error {
	var errors ValidationErrors

	if c.MaxUniqueConstraintTries <= 0 {
		errors = append(errors, ValidationError{
			Field:   "max-unique-constraint-tries",
			Message: "must be positive",
		})
	}

	if c.NumPasses < 1 {
		errors = append(errors, ValidationError{
			Field:   "num-passes",
			Message: "must be at least 1",
		})
	}

	errors = append(errors, c.validateSrcStats()...)

	for name, tc := range c.Tables {
		errors = append(errors, c.validateTable(name, &tc)...)
	}

	for i, sg := range c.StoryGenerators {
		prefix := fmt.Sprintf("story_generators[%d]", i)
		if sg.Name == "" {
			errors = append(errors, ValidationError{
				Field:   prefix + ".name",
				Message: "name is required",
			})
		}
		if sg.NumStoriesPerPass < 0 {
			errors = append(errors, ValidationError{
				Field:   prefix + ".num_stories_per_pass",
				Message: "cannot be negative",
			})
		}
	}

	for name, obj := range c.ObjectInstantiation {
		if obj.Class == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("object_instantiation.%s.class", name),
				Message: "class is required",
			})
		}
	}

	errors = append(errors, c.validateLogging()...)

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func (c *Config) validateSrcStats() ValidationErrors {
	var errors ValidationErrors

	seen := make(map[string]bool)
	for i, q := range c.SrcStats {
		prefix := fmt.Sprintf("src-stats[%d]", i)

		if q.Name == "" {
			errors = append(errors, ValidationError{
				Field:   prefix + ".name",
				Message: "name is required",
			})
		} else if seen[q.Name] {
			errors = append(errors, ValidationError{
				Field:   prefix + ".name",
				Message: fmt.Sprintf("duplicate query name %q", q.Name),
			})
		}
		seen[q.Name] = true

		if q.Query == "" {
			errors = append(errors, ValidationError{
				Field:   prefix + ".query",
				Message: "query is required",
			})
		}

		if !q.HasDPQuery() {
			continue
		}

		if q.Epsilon == nil {
			errors = append(errors, ValidationError{
				Field:   prefix + ".epsilon",
				Message: "epsilon is required when dp-query is set",
			})
		} else if *q.Epsilon <= 0 {
			errors = append(errors, ValidationError{
				Field:   prefix + ".epsilon",
				Message: "epsilon must be positive",
			})
		}

		if len(q.Metadata) == 0 {
			errors = append(errors, ValidationError{
				Field:   prefix + ".snsql-metadata",
				Message: "metadata is required when dp-query is set",
			})
			continue
		}

		for _, col := range uncoveredDPColumns(q.DPQuery, q.Metadata) {
			errors = append(errors, ValidationError{
				Field:   prefix + ".snsql-metadata",
				Message: fmt.Sprintf("dp-query references column %q which has no metadata entry", col),
			})
		}

		if q.SampleMaxIDs || q.ClampCounts {
			if q.MaxIDs <= 0 {
				errors = append(errors, ValidationError{
					Field:   prefix + ".max-ids",
					Message: "max-ids must be positive when sample-max-ids or clamp-counts is set",
				})
			}
			if q.PrivateIDColumn() == "" {
				errors = append(errors, ValidationError{
					Field:   prefix + ".snsql-metadata",
					Message: "a private_id column is required when sample-max-ids or clamp-counts is set",
				})
			}
		}
	}

	return errors
}

func (c *Config) validateTable(name string, tc *TableConfig) ValidationErrors {
	var errors ValidationErrors
	prefix := fmt.Sprintf("tables.%s", name)

	if tc.Ignore && tc.VocabularyTable {
		errors = append(errors, ValidationError{
			Field:   prefix,
			Message: "a table cannot be both ignored and a vocabulary table",
		})
	}

	if tc.NumRowsPerPass != nil && *tc.NumRowsPerPass < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".num_rows_per_pass",
			Message: "cannot be negative",
		})
	}

	assigned := make(map[string]int)
	for i, rg := range tc.RowGenerators {
		rgPrefix := fmt.Sprintf("%s.row_generators[%d]", prefix, i)
		if rg.Name == "" {
			errors = append(errors, ValidationError{
				Field:   rgPrefix + ".name",
				Message: "name is required",
			})
		}
		cols := rg.Columns()
		if len(cols) == 0 {
			errors = append(errors, ValidationError{
				Field:   rgPrefix + ".columns_assigned",
				Message: "at least one column must be assigned",
			})
		}
		for _, col := range cols {
			if prev, dup := assigned[col]; dup {
				errors = append(errors, ValidationError{
					Field:   rgPrefix + ".columns_assigned",
					Message: fmt.Sprintf("column %q already assigned by row_generators[%d]", col, prev),
				})
			}
			assigned[col] = i
		}
	}

	for i, mg := range tc.MissingnessGenerators {
		mgPrefix := fmt.Sprintf("%s.missingness_generators[%d]", prefix, i)
		if mg.Name == "" {
			errors = append(errors, ValidationError{
				Field:   mgPrefix + ".name",
				Message: "name is required",
			})
		}
		if len(mg.Columns) == 0 {
			errors = append(errors, ValidationError{
				Field:   mgPrefix + ".columns",
				Message: "at least one column must be listed",
			})
		}
	}

	for i, uc := range tc.UniqueColumns {
		if len(uc.Columns) == 0 {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("%s.unique_columns[%d].columns", prefix, i),
				Message: "at least one column must be listed",
			})
		}
		if uc.MaxTries < 0 {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("%s.unique_columns[%d].max_tries", prefix, i),
				Message: "cannot be negative",
			})
		}
	}

	return errors
}

func (c *Config) validateLogging() ValidationErrors {
	var errors ValidationErrors

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[c.Logging.Level] {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: "level must be 'debug', 'info', 'warn', or 'error'",
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "": true}
	if !validFormats[c.Logging.Format] {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: "format must be 'json' or 'text'",
		})
	}

	return errors
}

// dpIdentifierPattern matches bare identifiers in a DP query.
var dpIdentifierPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// sqlKeywords are tokens that are never column references.
var sqlKeywords = map[string]bool{
	"select": true, "from": true, "where": true, "group": true, "by": true,
	"order": true, "having": true, "as": true, "and": true, "or": true,
	"not": true, "null": true, "is": true, "in": true, "between": true,
	"limit": true, "distinct": true, "case": true, "when": true, "then": true,
	"else": true, "end": true, "like": true, "asc": true, "desc": true,
	"count": true, "sum": true, "avg": true, "min": true, "max": true,
	"cast": true, "int": true, "integer": true, "float": true, "varchar": true,
	"query_result": true,
}

// uncoveredDPColumns scans a DP query for bare identifiers that look like
// column references and returns those without a metadata entry. Aliases
// introduced with AS, function calls and quoted strings are skipped.
func uncoveredDPColumns(dpQuery string, metadata map[string]ColumnMetadata) []string {
	stripped := stripStringLiterals(dpQuery)
	matches := dpIdentifierPattern.FindAllStringIndex(stripped, -1)

	var uncovered []string
	seen := make(map[string]bool)
	prevWasAs := false
	for _, m := range matches {
		tok := stripped[m[0]:m[1]]
		lower := strings.ToLower(tok)
		if prevWasAs {
			prevWasAs = false
			continue
		}
		if lower == "as" {
			prevWasAs = true
			continue
		}
		if sqlKeywords[lower] {
			continue
		}
		if followedByParen(stripped, m[1]) {
			continue
		}
		if _, ok := metadata[tok]; ok {
			continue
		}
		if !seen[tok] {
			seen[tok] = true
			uncovered = append(uncovered, tok)
		}
	}
	return uncovered
}

// followedByParen reports whether the next non-space character after pos
// opens a call, marking the preceding identifier as a function name.
func followedByParen(s string, pos int) bool {
	for i := pos; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
			continue
		case '(':
			return true
		default:
			return false
		}
	}
	return false
}

func stripStringLiterals(q string) string {
	var b strings.Builder
	inString := false
	for _, r := range q {
		if r == '\'' {
			inString = !inString
			continue
		}
		if !inString {
			b.WriteRune(r)
		}
	}
	return b.String()
}
