// Package dialect wraps the external SQL parser behind the handful of node
// kinds this service consumes: create-table statements, column definitions,
// primary-key clauses and read-only selection classification.
//
// The underlying grammar is the postgres-family parser. The mysql and sqlite
// dialects are supported by rewriting their surface quirks (quoting, display
// widths, table options) into that grammar before parsing. Per-dialect
// reliability is uneven, which is why foreign keys are extracted from raw text
// upstream and why callers must treat single-statement parse failures as
// recoverable.
package dialect

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/auxten/postgresql-parser/pkg/sql/parser"
	"github.com/auxten/postgresql-parser/pkg/sql/sem/tree"
)

// Dialect names a SQL grammar variant.
type Dialect string

const (
	MySQL    Dialect = "mysql"
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// Parse resolves a user-supplied dialect name. Empty input defaults to mysql,
// matching the upload endpoint's historical default.
func Parse(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "mysql", "mariadb":
		return MySQL, nil
	case "postgres", "postgresql", "pg":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return "", fmt.Errorf("unsupported dialect %q (supported: mysql, postgres, sqlite)", name)
	}
}

// ValidationError reports that a statement does not parse under a dialect.
// The parser's message is carried verbatim for diagnostics.
type ValidationError struct {
	Dialect Dialect
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("SQL invalid for %s: %s", e.Dialect, e.Message)
}

// ColumnDef is a parsed column declaration. Type is the dialect-rendered type
// string, or empty when the parser yielded no type node.
type ColumnDef struct {
	Name string
	Type string
}

// CreateTable is the parsed shape of one CREATE TABLE block.
type CreateTable struct {
	Name    string
	Columns []ColumnDef
	// PrimaryKeys holds each primary-key clause in declaration order;
	// callers apply last-clause-wins.
	PrimaryKeys [][]string
}

// ParseCreateTable parses a single normalized CREATE TABLE block.
func (d Dialect) ParseCreateTable(block string) (*CreateTable, error) {
	stmts, err := parser.Parse(d.rewriteDDL(block))
	if err != nil {
		return nil, err
	}

	var ct *tree.CreateTable
	for _, s := range stmts {
		if c, ok := s.AST.(*tree.CreateTable); ok {
			ct = c
			break
		}
	}
	if ct == nil {
		return nil, fmt.Errorf("no CREATE TABLE statement found")
	}

	out := &CreateTable{Name: strings.Trim(ct.Table.Table(), "`\"")}
	var columnPK []string

	for _, def := range ct.Defs {
		switch def := def.(type) {
		case *tree.ColumnTableDef:
			col := ColumnDef{Name: strings.Trim(string(def.Name), "`\"")}
			if def.Type != nil {
				col.Type = def.Type.SQLString()
			}
			out.Columns = append(out.Columns, col)
			if def.PrimaryKey.IsPrimaryKey {
				columnPK = append(columnPK, col.Name)
			}
		case *tree.UniqueConstraintTableDef:
			if !def.PrimaryKey {
				continue
			}
			var cols []string
			for _, el := range def.Columns {
				if name := strings.Trim(string(el.Column), "`\""); name != "" {
					cols = append(cols, name)
				}
			}
			if len(cols) > 0 {
				out.PrimaryKeys = append(out.PrimaryKeys, cols)
			}
		}
	}

	// Column-level PRIMARY KEY markers act as the earliest clause, so any
	// explicit table-level clause overrides them.
	if len(columnPK) > 0 {
		out.PrimaryKeys = append([][]string{columnPK}, out.PrimaryKeys...)
	}

	return out, nil
}

// IsSelect reports whether sql parses as a read-only selection query.
// Unparseable input is reported as false, never as an error.
func (d Dialect) IsSelect(sql string) bool {
	stmts, err := parser.Parse(d.rewriteQuery(sql))
	if err != nil || len(stmts) == 0 {
		return false
	}
	switch stmts[0].AST.(type) {
	case *tree.Select, *tree.ParenSelect:
		return true
	}
	return false
}

// Validate checks that sql parses under the dialect and returns a
// ValidationError carrying the parser's message when it does not.
func (d Dialect) Validate(sql string) error {
	stmts, err := parser.Parse(d.rewriteQuery(sql))
	if err != nil {
		return &ValidationError{Dialect: d, Message: err.Error()}
	}
	if len(stmts) == 0 {
		return &ValidationError{Dialect: d, Message: "empty statement"}
	}
	return nil
}

// QuoteIdent quotes an identifier using the dialect's quoting character.
func (d Dialect) QuoteIdent(name string) string {
	if d == MySQL {
		return "`" + name + "`"
	}
	return `"` + name + `"`
}

var (
	tableOptionsRe = regexp.MustCompile(`(?is)\)\s*(engine|auto_increment|default\s+charset|charset|collate|comment|row_format)\s*=?[^;]*$`)
	displayWidthRe = regexp.MustCompile(`(?i)\b(tinyint|smallint|mediumint|int|integer|bigint)\s*\(\s*\d+\s*\)`)
	columnNoiseRe  = regexp.MustCompile(`(?i)\b(unsigned|zerofill|auto_increment|autoincrement|on\s+update\s+current_timestamp(\(\))?|character\s+set\s+\w+|collate\s+\w+)\b`)
	bracketIdentRe = regexp.MustCompile(`\[([^\]\[]+)\]`)
)

// typeRewrites maps engine-specific type names onto the target grammar.
var typeRewrites = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`(?i)\btinyint\b`), "smallint"},
	{regexp.MustCompile(`(?i)\bmediumint\b`), "int"},
	{regexp.MustCompile(`(?i)\bdatetime\b`), "timestamp"},
	{regexp.MustCompile(`(?i)\b(tiny|medium|long)text\b`), "text"},
	{regexp.MustCompile(`(?i)\b(tiny|medium|long)?blob\b`), "bytes"},
	{regexp.MustCompile(`(?i)\bdouble\b(\s+precision)?`), "float8"},
}

func (d Dialect) rewriteDDL(block string) string {
	s := strings.TrimSpace(block)
	switch d {
	case MySQL:
		s = strings.ReplaceAll(s, "`", `"`)
		s = strings.TrimSuffix(s, ";")
		s = tableOptionsRe.ReplaceAllString(s, ")")
		s = displayWidthRe.ReplaceAllString(s, "$1")
		s = columnNoiseRe.ReplaceAllString(s, "")
		for _, tr := range typeRewrites {
			s = tr.re.ReplaceAllString(s, tr.repl)
		}
	case SQLite:
		s = strings.ReplaceAll(s, "`", `"`)
		s = bracketIdentRe.ReplaceAllString(s, `"$1"`)
		s = columnNoiseRe.ReplaceAllString(s, "")
	}
	return s
}

func (d Dialect) rewriteQuery(sql string) string {
	s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(sql), ";"))
	if d == MySQL || d == SQLite {
		s = strings.ReplaceAll(s, "`", `"`)
	}
	return s
}
