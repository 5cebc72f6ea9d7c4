package schema

import "strings"

// ClosestColumn suggests the most plausible existing column for a misspelled
// or unknown column name, trying exact match, then substring containment,
// then alphabetic-token overlap. Returns "" when the table is unknown, has no
// columns, or nothing resembles the bad name. Used to patch "unknown column"
// errors deterministically before asking the generator to fix a query.
func ClosestColumn(s *Schema, table, badColumn string) string {
	t := s.Table(table)
	if t == nil || len(t.Columns) == 0 {
		return ""
	}
	bad := strings.ToLower(strings.TrimSpace(badColumn))
	if bad == "" {
		return ""
	}

	for _, c := range t.Columns {
		if strings.ToLower(c.Name) == bad {
			return c.Name
		}
	}

	for _, c := range t.Columns {
		lc := strings.ToLower(c.Name)
		if strings.Contains(lc, bad) || strings.Contains(bad, lc) {
			return c.Name
		}
	}

	badTokens := dedup(letterRunRe.FindAllString(bad, -1))
	best := ""
	bestScore := 0
	for _, c := range t.Columns {
		colTokens := dedup(letterRunRe.FindAllString(strings.ToLower(c.Name), -1))
		score := 0
		for _, bt := range badTokens {
			for _, ct := range colTokens {
				if bt == ct {
					score++
					break
				}
			}
		}
		if score > bestScore {
			bestScore = score
			best = c.Name
		}
	}
	return best
}
