package schema

import (
	"fmt"
	"regexp"
	"strings"

	"text2sql/internal/dialect"
)

// unknownType marks columns whose type the parser could not produce.
const unknownType = "UNKNOWN"

// ParseError reports that DDL ingestion produced zero usable tables.
type ParseError struct {
	Errors []string
}

func (e *ParseError) Error() string {
	if len(e.Errors) == 0 {
		return "schema parsing produced 0 tables; paste valid CREATE TABLE statements"
	}
	return fmt.Sprintf("schema parsing produced 0 tables: %s", strings.Join(e.Errors, "; "))
}

var createTableRe = regexp.MustCompile(`(?is)^\s*create\s+table\b`)

var foreignKeyRe = regexp.MustCompile(
	"(?is)foreign\\s+key\\s*\\(([^)]+)\\)\\s*references\\s+[`\"]?([\\w-]+)[`\"]?\\s*\\(([^)]+)\\)")

// FromDDL extracts a Schema from raw DDL text. Each CREATE TABLE block is
// parsed independently: a block that fails to parse is recorded in ParseErrors
// and skipped, so one malformed table never blocks the rest of the upload.
// The call fails only when no table parses at all.
func FromDDL(ddl string, d dialect.Dialect) (*Schema, error) {
	s := &Schema{Dialect: string(d)}

	var blocks []string
	for _, stmt := range splitStatements(ddl) {
		if createTableRe.MatchString(stmt) {
			blocks = append(blocks, stmt)
		}
	}
	if len(blocks) == 0 {
		return nil, &ParseError{}
	}

	for i, block := range blocks {
		ct, err := d.ParseCreateTable(NormalizeCreateTable(block))
		if err != nil {
			s.ParseErrors = append(s.ParseErrors, fmt.Sprintf("statement %d: %v", i+1, err))
			continue
		}
		if ct.Name == "" {
			s.ParseErrors = append(s.ParseErrors, fmt.Sprintf("statement %d: no table name", i+1))
			continue
		}
		if s.Table(ct.Name) != nil {
			s.ParseErrors = append(s.ParseErrors, fmt.Sprintf("statement %d: duplicate table %q", i+1, ct.Name))
			continue
		}

		t := s.addTable(ct.Name)
		for _, col := range ct.Columns {
			typ := col.Type
			if typ == "" {
				typ = unknownType
			}
			t.Columns = append(t.Columns, Column{Name: col.Name, Type: typ})
		}
		if len(ct.PrimaryKeys) > 0 {
			// Last primary-key clause wins.
			t.PrimaryKeys = dedup(ct.PrimaryKeys[len(ct.PrimaryKeys)-1])
		}
		// Foreign keys come from the raw block text: the structured parser's
		// FK nodes are not reliable across dialects.
		t.ForeignKeys = extractForeignKeys(block)
	}

	if len(s.Tables) == 0 {
		return nil, &ParseError{Errors: s.ParseErrors}
	}
	return s, nil
}

// splitStatements cuts DDL text into statements at semicolons that sit outside
// any parenthesis nesting, so defaults and nested types never split a block.
// Single-line comments are dropped before depth counting.
func splitStatements(ddl string) []string {
	var stmts []string
	var cur strings.Builder
	depth := 0

	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			stmts = append(stmts, s)
		}
		cur.Reset()
	}

	for _, line := range strings.Split(ddl, "\n") {
		t := strings.TrimSpace(line)
		if strings.HasPrefix(t, "--") || strings.HasPrefix(t, "#") {
			continue
		}
		for _, r := range line {
			switch r {
			case '(':
				depth++
			case ')':
				if depth > 0 {
					depth--
				}
			case ';':
				if depth == 0 {
					flush()
					continue
				}
			}
			cur.WriteRune(r)
		}
		cur.WriteRune('\n')
	}
	flush()
	return stmts
}

// extractForeignKeys scans a CREATE TABLE block for FOREIGN KEY ... REFERENCES
// clauses. Column lists are split on commas with quoting stripped; empties and
// duplicates are removed while preserving first-occurrence order.
func extractForeignKeys(block string) []ForeignKey {
	var fks []ForeignKey
	for _, m := range foreignKeyRe.FindAllStringSubmatch(block, -1) {
		local := dedup(splitColumns(m[1]))
		referred := strings.Trim(strings.TrimSpace(m[2]), "`\"")
		refCols := dedup(splitColumns(m[3]))
		if len(local) > 0 && referred != "" && len(refCols) > 0 {
			fks = append(fks, ForeignKey{
				ConstrainedColumns: local,
				ReferredTable:      referred,
				ReferredColumns:    refCols,
			})
		}
	}
	return fks
}

func splitColumns(list string) []string {
	parts := strings.Split(list, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.Trim(strings.TrimSpace(p), "`\""))
	}
	return out
}

func dedup(xs []string) []string {
	seen := make(map[string]struct{}, len(xs))
	out := make([]string, 0, len(xs))
	for _, x := range xs {
		if x == "" {
			continue
		}
		if _, ok := seen[x]; ok {
			continue
		}
		seen[x] = struct{}{}
		out = append(out, x)
	}
	return out
}
