package llm

import "fmt"

// SystemGenerate is the system prompt for drafting a query from a question.
func SystemGenerate(dialect string) string {
	return fmt.Sprintf(`You are a senior analytics engineer. Generate %s SQL only.
Rules:
- Output ONLY SQL. No markdown. No explanation.
- Use ONLY tables/columns provided in the schema. Never invent names.
- Prefer explicit JOIN conditions using known keys.
- Default to safe read-only SELECT queries.
- Never output destructive statements (DROP/DELETE/UPDATE/INSERT/ALTER/TRUNCATE/CREATE).
- If ambiguous, choose the single best query with reasonable assumptions.`, dialect)
}

// SystemFix is the system prompt for repairing a broken query.
func SystemFix(dialect string) string {
	return fmt.Sprintf(`You are a %s SQL expert. Fix SQL only.

Rules (must follow):
- Output ONLY corrected %s SQL. No markdown. No explanation.
- Preserve the user's intent.
- Use ONLY tables/columns provided in the schema JSON. Never invent names.
- If a column name is wrong, REPLACE it with the closest existing column from the same table (by meaning/name similarity).
- Do NOT replace an unknown column with '*' or remove the column unless absolutely necessary.
- Never output destructive statements (DROP/DELETE/UPDATE/INSERT/ALTER/TRUNCATE/CREATE).
- Always return a non-empty SQL statement.`, dialect, dialect)
}

// SystemExplain is the system prompt for explaining SQL to a business user.
const SystemExplain = `You are a senior analytics engineer. Explain the SQL for a business user.

Output format (plain text, no markdown):
1) Summary (1-2 lines)
2) What it returns (bullets)
3) Filters/joins (bullets)
4) Assumptions & risks (bullets)
Keep it concise but complete.
Do NOT modify the SQL.`

// SystemOptimize is the system prompt for rewriting a query for performance.
func SystemOptimize(dialect string) string {
	return fmt.Sprintf(`You are a %s performance engineer.

Rules (must follow):
- Output ONLY an improved %s SQL query. No markdown. No explanation.
- Keep results identical to the original query intent.
- Use ONLY tables/columns provided in the schema JSON. Never invent names.
- NEVER use SELECT * or table.* (c.* / o.*). Always select explicit columns.
- Push filters as early as possible and avoid unnecessary columns/joins.
- Never output destructive statements.
- Always return a non-empty SQL statement.`, dialect, dialect)
}

// SystemSuggest is the system prompt for proposing follow-up queries.
func SystemSuggest(dialect string) string {
	return fmt.Sprintf(`You are a senior data analyst copilot for %s.
Given a schema plus the user's last question/SQL/context, propose the next best SQL queries the user might want to run.

Rules:
- Output valid JSON only (no markdown).
- Propose exactly k suggestions if possible.
- Each suggestion must be a high-quality, practical %s query.
- Use only tables/columns that exist in schema.
- Rank them by relevance to the user's current context.
Return JSON with keys:
  - queries: list of objects { "sql": "...", "title": "..." }
  - joins: list of string join hints
  - checks: list of string data quality checks`, dialect, dialect)
}

// BuildGenerateUserPrompt assembles the user prompt for query generation.
func BuildGenerateUserPrompt(question, schemaJSON, constraints string, limit int) string {
	if constraints == "" {
		constraints = "None"
	}
	return fmt.Sprintf(`Question: %s
Constraints: %s
Result limit: %d

Schema (JSON):
%s

Return a single SQL query.`, question, constraints, limit, schemaJSON)
}

// BuildFixUserPrompt assembles the user prompt for query repair.
func BuildFixUserPrompt(sql, errMsg, schemaJSON string) string {
	return fmt.Sprintf(`SQL to fix:
%s

Error / problem:
%s

Schema (JSON):
%s

Return ONLY the corrected SQL.`, sql, errMsg, schemaJSON)
}

// BuildExplainUserPrompt assembles the user prompt for explanation.
func BuildExplainUserPrompt(sql string) string {
	return fmt.Sprintf(`SQL:
%s

Explain it with bullet points.`, sql)
}

// BuildOptimizeUserPrompt assembles the user prompt for optimization.
func BuildOptimizeUserPrompt(sql, schemaJSON string) string {
	return fmt.Sprintf(`SQL:
%s

Schema (JSON):
%s

Return ONLY optimized SQL with the same intent.`, sql, schemaJSON)
}

// BuildSuggestUserPrompt assembles the user prompt for follow-up suggestions.
func BuildSuggestUserPrompt(schemaJSON, question, sql, sampleRowsJSON string, k int) string {
	if question == "" {
		question = "None"
	}
	if sql == "" {
		sql = "None"
	}
	if sampleRowsJSON == "" {
		sampleRowsJSON = "None"
	}
	return fmt.Sprintf(`k=%d

Last user question:
%s

Last SQL:
%s

Optional sample rows (JSON, may be None):
%s

Schema (JSON):
%s

Return JSON with keys queries, joins, checks.`, k, question, sql, sampleRowsJSON, schemaJSON)
}
