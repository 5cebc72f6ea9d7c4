package schema

import (
	"regexp"
	"sort"
	"strings"
)

// DefaultMaxTables bounds the shortlist when the caller gives no limit.
const DefaultMaxTables = 8

var letterRunRe = regexp.MustCompile(`[a-zA-Z]+`)

// Shortlist selects the tables most relevant to free-form text, bounding the
// schema context fed to generation. Tables are scored by overlap between the
// text's tokens and the table's name/column names, kept when the score is
// positive and ordered by descending score with ties in schema order. When
// nothing scores, the first maxTables tables are returned instead so a
// non-empty schema never produces an empty shortlist.
func Shortlist(s *Schema, text string, maxTables int) *Schema {
	if maxTables <= 0 {
		maxTables = DefaultMaxTables
	}

	query := letterRunRe.FindAllString(strings.ToLower(text), -1)
	query = dedup(query)

	type scoredTable struct {
		table *TableInfo
		score int
	}
	var hits []scoredTable
	for _, t := range s.Tables {
		names := make([]string, 0, len(t.Columns)+1)
		names = append(names, strings.ToLower(t.Name))
		for _, c := range t.Columns {
			names = append(names, strings.ToLower(c.Name))
		}
		names = dedup(names)

		score := 0
		for _, q := range query {
			for _, n := range names {
				if tokenMatch(q, n) {
					score++
					break
				}
			}
		}
		if score > 0 {
			hits = append(hits, scoredTable{table: t, score: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	out := &Schema{Dialect: s.Dialect}
	for _, h := range hits {
		if len(out.Tables) >= maxTables {
			break
		}
		out.Tables = append(out.Tables, h.table)
	}
	if len(out.Tables) == 0 {
		for _, t := range s.Tables {
			if len(out.Tables) >= maxTables {
				break
			}
			out.Tables = append(out.Tables, t)
		}
	}
	return out
}

// tokenMatch accepts an exact match, or containment either way when the
// shorter side is long enough to be meaningful. Plain set intersection would
// make "customer" miss a table named "customers".
func tokenMatch(q, name string) bool {
	if q == name {
		return true
	}
	shorter := q
	if len(name) < len(shorter) {
		shorter = name
	}
	if len(shorter) < 3 {
		return false
	}
	return strings.Contains(name, q) || strings.Contains(q, name)
}
