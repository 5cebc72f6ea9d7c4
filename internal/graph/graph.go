// Package graph derives a foreign-key edge list from a schema and finds join
// paths between tables over it.
package graph

import (
	"fmt"
	"strings"

	"text2sql/internal/dialect"
	"text2sql/internal/schema"
)

// DefaultMaxDepth bounds join-path search when the caller gives no limit.
const DefaultMaxDepth = 4

// Edge is one foreign-key relationship, directed from the declaring table to
// the referred table. Edges are derived fresh per query and never persisted.
type Edge struct {
	FromTable   string   `json:"from_table"`
	FromColumns []string `json:"from_columns"`
	ToTable     string   `json:"to_table"`
	ToColumns   []string `json:"to_columns"`
}

// UnknownTableError reports a path query naming a table absent from the schema.
type UnknownTableError struct {
	Table string
}

func (e *UnknownTableError) Error() string {
	return fmt.Sprintf("table %q not found in schema", e.Table)
}

// BuildEdges flattens the schema's foreign keys into edges, one per foreign
// key, in table-then-declaration order. Referred tables are not validated to
// exist; dangling references simply produce edges into unknown nodes.
func BuildEdges(s *schema.Schema) []Edge {
	var edges []Edge
	for _, t := range s.Tables {
		for _, fk := range t.ForeignKeys {
			edges = append(edges, Edge{
				FromTable:   t.Name,
				FromColumns: fk.ConstrainedColumns,
				ToTable:     fk.ReferredTable,
				ToColumns:   fk.ReferredColumns,
			})
		}
	}
	return edges
}

// FindJoinPaths enumerates simple join paths from start to goal, traversing
// each foreign key in both directions, up to maxDepth edges per path. Paths
// come back in breadth-first discovery order, shortest first. A path never
// revisits a table. Start and goal are resolved case-insensitively; an
// unresolvable endpoint is an error, not an empty result.
func FindJoinPaths(s *schema.Schema, start, goal string, maxDepth int) ([][]Edge, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	from := s.ResolveTable(start)
	if from == "" {
		return nil, &UnknownTableError{Table: start}
	}
	to := s.ResolveTable(goal)
	if to == "" {
		return nil, &UnknownTableError{Table: goal}
	}

	adj := make(map[string][]Edge)
	for _, e := range BuildEdges(s) {
		adj[e.FromTable] = append(adj[e.FromTable], e)
		rev := Edge{
			FromTable:   e.ToTable,
			FromColumns: e.ToColumns,
			ToTable:     e.FromTable,
			ToColumns:   e.FromColumns,
		}
		adj[rev.FromTable] = append(adj[rev.FromTable], rev)
	}

	type entry struct {
		node string
		path []Edge
	}

	var paths [][]Edge
	queue := []entry{{node: from}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if len(cur.path) > maxDepth {
			continue
		}
		if cur.node == to && len(cur.path) > 0 {
			paths = append(paths, cur.path)
			continue
		}

		for _, e := range adj[cur.node] {
			next := e.ToTable
			if next == "" || visited(from, cur.path, next) {
				continue
			}
			path := make([]Edge, len(cur.path), len(cur.path)+1)
			copy(path, cur.path)
			queue = append(queue, entry{node: next, path: append(path, e)})
		}
	}

	return paths, nil
}

// visited reports whether table already appears in the path, counting the
// start node. Cycle prevention is by table, not by edge.
func visited(start string, path []Edge, table string) bool {
	if table == start {
		return true
	}
	for _, e := range path {
		if e.ToTable == table {
			return true
		}
	}
	return false
}

// JoinSQL renders one edge as a join clause with the given aliases, pairing
// constrained and referred columns positionally. Mismatched column counts are
// tolerated: pairing stops at the shorter list, and a placeholder comment
// stands in when no pair survives.
func JoinSQL(d dialect.Dialect, e Edge, leftAlias, rightAlias string) string {
	n := len(e.FromColumns)
	if len(e.ToColumns) < n {
		n = len(e.ToColumns)
	}
	conds := make([]string, 0, n)
	for i := 0; i < n; i++ {
		l, r := e.FromColumns[i], e.ToColumns[i]
		if l == "" || r == "" {
			continue
		}
		conds = append(conds, fmt.Sprintf("%s.%s = %s.%s",
			leftAlias, d.QuoteIdent(l), rightAlias, d.QuoteIdent(r)))
	}
	on := "/* missing fk columns */"
	if len(conds) > 0 {
		on = strings.Join(conds, " AND ")
	}
	return fmt.Sprintf("%s %s JOIN %s %s ON %s",
		d.QuoteIdent(e.FromTable), leftAlias, d.QuoteIdent(e.ToTable), rightAlias, on)
}

// PathSQL renders a whole join path as a chained FROM fragment starting at
// start, assigning single-letter aliases in order.
func PathSQL(d dialect.Dialect, start string, path []Edge) string {
	const aliases = "abcdefghijklmnopqrstuvwxyz"
	parts := []string{fmt.Sprintf("%s %c", d.QuoteIdent(start), aliases[0])}
	for i, e := range path {
		if i+1 >= len(aliases) {
			break
		}
		clause := JoinSQL(d, e, string(aliases[i]), string(aliases[i+1]))
		if idx := strings.Index(clause, "JOIN"); idx >= 0 {
			clause = clause[idx:]
		}
		parts = append(parts, clause)
	}
	return strings.Join(parts, " ")
}
