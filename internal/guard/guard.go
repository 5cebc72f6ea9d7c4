// Package guard sanitizes and gates SQL text coming back from the generator
// (or typed by users) before it is trusted anywhere else: fence stripping,
// single-statement extraction, destructive-keyword blocking and row-limit
// injection.
package guard

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"text2sql/internal/dialect"
)

// DefaultRowLimit is appended to selection queries that carry no limit.
const DefaultRowLimit = 100

// ErrEmptySQL means nothing resembling SQL could be extracted from the text.
var ErrEmptySQL = errors.New("no SQL statement found in text")

// ErrMultiStatement means more than one statement survived extraction. The
// ambiguity is surfaced rather than silently discarding statements.
var ErrMultiStatement = errors.New("multiple SQL statements found; provide exactly one")

// UnsafeError reports a destructive keyword. The statement is rejected whole,
// never stripped.
type UnsafeError struct {
	Keyword string
}

func (e *UnsafeError) Error() string {
	return fmt.Sprintf("blocked: dangerous SQL keyword %s detected", strings.ToUpper(e.Keyword))
}

var (
	openFenceRe  = regexp.MustCompile("^```[\\w]*\\s*")
	closeFenceRe = regexp.MustCompile("\\s*```$")
	sqlStartRe   = regexp.MustCompile(`(?i)\b(with|select|explain)\b`)
	dangerousRe  = regexp.MustCompile(`(?i)\b(drop|delete|truncate|alter|update|insert|create)\b`)
)

// Sanitize extracts a single SQL statement from arbitrary text, typically
// model output. Markdown fences are stripped, text before the first
// WITH/SELECT/EXPLAIN keyword is dropped (falling back to the trimmed input
// when no keyword appears), and statement terminators are trimmed. More than
// one statement is a hard rejection.
func Sanitize(raw string) (string, error) {
	t := strings.TrimSpace(raw)
	t = openFenceRe.ReplaceAllString(t, "")
	t = closeFenceRe.ReplaceAllString(t, "")
	t = strings.TrimSpace(t)

	if loc := sqlStartRe.FindStringIndex(t); loc != nil {
		t = t[loc[0]:]
	}

	var stmts []string
	for _, part := range strings.Split(t, ";") {
		if p := strings.TrimSpace(part); p != "" {
			stmts = append(stmts, p)
		}
	}
	switch len(stmts) {
	case 0:
		return "", ErrEmptySQL
	case 1:
		return stmts[0], nil
	default:
		return "", ErrMultiStatement
	}
}

// EnforceSafety rejects any statement containing a destructive keyword as a
// whole word, case-insensitively. Safe statements pass through unchanged.
func EnforceSafety(sql string) (string, error) {
	if m := dangerousRe.FindString(sql); m != "" {
		return "", &UnsafeError{Keyword: m}
	}
	return sql, nil
}

// EnforceLimit appends a LIMIT clause to selection queries that have none.
// Statements that are not selections, or that the parser cannot parse at all,
// pass through unmodified: sanitization must never throw for an
// already-invalid statement, validation is a separate step.
func EnforceLimit(d dialect.Dialect, sql string, limit int) string {
	if limit <= 0 {
		limit = DefaultRowLimit
	}
	s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(sql), ";"))
	if !d.IsSelect(s) {
		return s
	}
	// Substring check on purpose: a false positive only skips the injection.
	if strings.Contains(strings.ToLower(s), "limit") {
		return s
	}
	return fmt.Sprintf("%s LIMIT %d", s, limit)
}

// Validate submits the final candidate to the dialect parser. Failure comes
// back as a *dialect.ValidationError naming the dialect and the parser's
// message.
func Validate(d dialect.Dialect, sql string) error {
	return d.Validate(sql)
}
