package schema

import (
	"regexp"
	"strings"
)

var (
	keyLineRe    = regexp.MustCompile("(?i)^(key|index)\\s+`?[^`(]+`?\\s*\\(")
	constraintRe = regexp.MustCompile("(?i)^constraint\\s+`?[\\w-]+`?\\s+(foreign\\s+key\\s*\\()")
	trailCommaRe = regexp.MustCompile(`,\s*\)`)
	doubleComma  = regexp.MustCompile(`,\s*,`)
)

// NormalizeCreateTable cleans one CREATE TABLE block so the structured parser
// succeeds more often: bare KEY/INDEX lines are dropped (they carry no
// relational meaning downstream) and named FOREIGN KEY constraints lose their
// name. Commas left dangling by removed lines are collapsed. The transform is
// pure text and idempotent.
func NormalizeCreateTable(block string) string {
	lines := strings.Split(block, "\n")
	kept := make([]string, 0, len(lines))

	for _, line := range lines {
		s := strings.TrimSpace(line)
		if keyLineRe.MatchString(s) {
			continue
		}
		s = constraintRe.ReplaceAllString(s, "FOREIGN KEY (")
		kept = append(kept, s)
	}

	cleaned := strings.Join(kept, "\n")
	cleaned = trailCommaRe.ReplaceAllString(cleaned, "\n)")
	cleaned = doubleComma.ReplaceAllString(cleaned, ",")
	return cleaned
}
