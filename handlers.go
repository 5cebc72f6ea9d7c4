package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"

	"text2sql/internal/dialect"
	"text2sql/internal/graph"
	"text2sql/internal/guard"
	"text2sql/internal/introspect"
	"text2sql/internal/llm"
	"text2sql/internal/schema"
)

var errSchemaNotFound = errors.New("schema not found; run /upload-schema first")

type errorResponse struct {
	Error string `json:"error"`
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Error: msg})
}

// statusFor maps error kinds to HTTP statuses. Everything a caller can fix is
// a 400; upstream generation failures are a 502.
func statusFor(err error) int {
	var genErr *llm.GenerationError
	switch {
	case errors.Is(err, errSchemaNotFound):
		return http.StatusNotFound
	case errors.As(err, &genErr):
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}

func (a *app) fail(w http.ResponseWriter, err error) {
	respondError(w, statusFor(err), err.Error())
}

func (a *app) requireSchema(dbKey string) (*schema.Schema, error) {
	if dbKey == "" {
		dbKey = "default"
	}
	s := a.store.Get(dbKey)
	if s == nil {
		return nil, errSchemaNotFound
	}
	return s, nil
}

func (a *app) requireLLM(w http.ResponseWriter) bool {
	if a.llm == nil {
		respondError(w, http.StatusServiceUnavailable, "LLM not configured. Set LLM_API_KEY environment variable.")
		return false
	}
	return true
}

func schemaDialect(s *schema.Schema) dialect.Dialect {
	if s != nil {
		if d, err := dialect.Parse(s.Dialect); err == nil {
			return d
		}
	}
	return dialect.MySQL
}

func schemaJSON(s *schema.Schema) string {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return `{"tables":[]}`
	}
	return string(b)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// completeSQL runs one generation call and sanitizes the output. When the
// model returns nothing SQL-shaped and retryHint is set, the call is repeated
// once with the hint appended to the user prompt.
func (a *app) completeSQL(ctx context.Context, system, user, retryHint string) (sql, raw string, tokens int, err error) {
	resp, err := a.llm.Complete(ctx, llm.Request{System: system, User: user})
	if err != nil {
		return "", "", 0, err
	}
	raw = resp.Text
	tokens = resp.Tokens

	sql, serr := guard.Sanitize(resp.Text)
	if serr == nil {
		return sql, raw, tokens, nil
	}
	if !errors.Is(serr, guard.ErrEmptySQL) || retryHint == "" {
		return "", raw, tokens, serr
	}

	resp, err = a.llm.Complete(ctx, llm.Request{System: system, User: user + retryHint})
	if err != nil {
		return "", raw, tokens, err
	}
	raw = resp.Text
	tokens += resp.Tokens

	sql, serr = guard.Sanitize(resp.Text)
	if serr != nil {
		return "", raw, tokens, fmt.Errorf("%w (raw output: %s)", serr, snippet(raw))
	}
	return sql, raw, tokens, nil
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 300 {
		return s[:300] + "..."
	}
	return s
}

func (a *app) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type uploadSchemaRequest struct {
	DBKey        string          `json:"db_key"`
	SchemaSQL    string          `json:"schema_sql"`
	SchemaJSON   json.RawMessage `json:"schema_json"`
	DatabaseType string          `json:"database_type"`
}

type uploadSchemaResponse struct {
	Status   string   `json:"status"`
	DBKey    string   `json:"db_key"`
	Tables   int      `json:"tables"`
	Warnings []string `json:"warnings,omitempty"`
}

func (a *app) handleUploadSchema(w http.ResponseWriter, r *http.Request) {
	var req uploadSchemaRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.DBKey == "" {
		req.DBKey = "default"
	}
	if req.SchemaSQL == "" && len(req.SchemaJSON) == 0 {
		respondError(w, http.StatusBadRequest, "provide schema_sql or schema_json")
		return
	}

	d, err := dialect.Parse(req.DatabaseType)
	if err != nil {
		a.fail(w, err)
		return
	}

	var s *schema.Schema
	if len(req.SchemaJSON) > 0 {
		s = &schema.Schema{Dialect: string(d)}
		if err := json.Unmarshal(req.SchemaJSON, s); err != nil {
			respondError(w, http.StatusBadRequest, "invalid schema_json: "+err.Error())
			return
		}
		if len(s.Tables) == 0 {
			respondError(w, http.StatusBadRequest, "schema_json contains no tables")
			return
		}
	} else {
		s, err = schema.FromDDL(req.SchemaSQL, d)
		if err != nil {
			a.fail(w, err)
			return
		}
	}

	a.store.Put(req.DBKey, s)
	respondJSON(w, http.StatusOK, uploadSchemaResponse{
		Status:   "ok",
		DBKey:    req.DBKey,
		Tables:   len(s.Tables),
		Warnings: s.ParseErrors,
	})
}

type ingestSchemaRequest struct {
	DBKey  string `json:"db_key"`
	Driver string `json:"driver"`
	DSN    string `json:"dsn"`
}

func (a *app) handleIngestSchema(w http.ResponseWriter, r *http.Request) {
	var req ingestSchemaRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.DBKey == "" {
		req.DBKey = "default"
	}
	if req.DSN == "" {
		respondError(w, http.StatusBadRequest, "dsn is required")
		return
	}
	if req.Driver == "" {
		req.Driver = "postgres"
	}

	ctx, cancel := context.WithTimeout(r.Context(), ingestTimeout)
	defer cancel()

	s, err := introspect.Load(ctx, req.Driver, req.DSN)
	if err != nil {
		a.fail(w, err)
		return
	}

	a.store.Put(req.DBKey, s)
	respondJSON(w, http.StatusOK, uploadSchemaResponse{
		Status: "ok",
		DBKey:  req.DBKey,
		Tables: len(s.Tables),
	})
}

func (a *app) handleGetSchema(w http.ResponseWriter, r *http.Request) {
	s, err := a.requireSchema(chi.URLParam(r, "dbKey"))
	if err != nil {
		a.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s)
}

type generateSQLRequest struct {
	DBKey       string `json:"db_key"`
	Question    string `json:"question"`
	Constraints string `json:"constraints"`
	MaxRows     int    `json:"max_rows"`
}

type sqlResponse struct {
	SQL    string `json:"sql"`
	Notes  string `json:"notes,omitempty"`
	Tokens int    `json:"tokens,omitempty"`
}

func (a *app) handleGenerateSQL(w http.ResponseWriter, r *http.Request) {
	if !a.requireLLM(w) {
		return
	}
	var req generateSQLRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		respondError(w, http.StatusBadRequest, "question is required")
		return
	}

	s, err := a.requireSchema(req.DBKey)
	if err != nil {
		a.fail(w, err)
		return
	}
	d := schemaDialect(s)
	maxRows := clampLimit(req.MaxRows, a.rowLimit)

	subset := schema.Shortlist(s, req.Question, schema.DefaultMaxTables)
	user := llm.BuildGenerateUserPrompt(req.Question, schemaJSON(subset), req.Constraints, maxRows)

	ctx, cancel := context.WithTimeout(r.Context(), llmTimeout)
	defer cancel()

	sql, _, tokens, err := a.completeSQL(ctx, llm.SystemGenerate(string(d)), user, "")
	if err != nil {
		a.fail(w, err)
		return
	}
	if sql, err = guard.EnforceSafety(sql); err != nil {
		a.fail(w, err)
		return
	}
	sql = guard.EnforceLimit(d, sql, maxRows)
	if err := guard.Validate(d, sql); err != nil {
		a.fail(w, err)
		return
	}

	respondJSON(w, http.StatusOK, sqlResponse{
		SQL:    sql,
		Notes:  fmt.Sprintf("Generated via %s (%s).", a.llm.Name(), d),
		Tokens: tokens,
	})
}

type fixSQLRequest struct {
	DBKey string `json:"db_key"`
	SQL   string `json:"sql"`
	Error string `json:"error"`
}

var (
	unknownColumnRe = regexp.MustCompile(`(?i)Unknown column '([^']+)'`)
	fromTableRe     = regexp.MustCompile(`(?i)\bfrom\s+([a-zA-Z_]\w*)`)
)

// patchUnknownColumn deterministically swaps a misspelled column for its
// closest schema match before the generator is asked to fix anything.
func patchUnknownColumn(s *schema.Schema, sqlIn, errMsg string) string {
	m := unknownColumnRe.FindStringSubmatch(errMsg)
	if m == nil {
		return sqlIn
	}
	bad := m[1]
	t := fromTableRe.FindStringSubmatch(sqlIn)
	if t == nil {
		return sqlIn
	}
	replacement := schema.ClosestColumn(s, t[1], bad)
	if replacement == "" || strings.EqualFold(replacement, bad) {
		return sqlIn
	}
	re, err := regexp.Compile(`\b` + regexp.QuoteMeta(bad) + `\b`)
	if err != nil {
		return sqlIn
	}
	return re.ReplaceAllString(sqlIn, replacement)
}

func (a *app) handleFixSQL(w http.ResponseWriter, r *http.Request) {
	if !a.requireLLM(w) {
		return
	}
	var req fixSQLRequest
	if !decodeBody(w, r, &req) {
		return
	}

	s, err := a.requireSchema(req.DBKey)
	if err != nil {
		a.fail(w, err)
		return
	}
	d := schemaDialect(s)

	sqlIn, err := guard.Sanitize(req.SQL)
	if err != nil {
		a.fail(w, err)
		return
	}

	errMsg := strings.TrimSpace(req.Error)
	sqlIn = patchUnknownColumn(s, sqlIn, errMsg)
	if errMsg == "" {
		if verr := guard.Validate(d, sqlIn); verr != nil {
			errMsg = verr.Error()
		} else {
			errMsg = "SQL may be valid but needs a compatibility/intent-preserving fix."
		}
	}

	subset := schema.Shortlist(s, sqlIn+"\n"+errMsg, 10)
	user := llm.BuildFixUserPrompt(sqlIn, errMsg, schemaJSON(subset))
	retryHint := "\n\nIMPORTANT: Output ONLY a single non-empty SQL query. No fences. No commentary."

	ctx, cancel := context.WithTimeout(r.Context(), llmTimeout)
	defer cancel()

	sql, raw, tokens, err := a.completeSQL(ctx, llm.SystemFix(string(d)), user, retryHint)
	if err != nil {
		a.fail(w, err)
		return
	}
	if sql, err = guard.EnforceSafety(sql); err != nil {
		a.fail(w, err)
		return
	}
	sql = guard.EnforceLimit(d, sql, a.rowLimit)
	if err := guard.Validate(d, sql); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("%v (raw output: %s)", err, snippet(raw)))
		return
	}

	respondJSON(w, http.StatusOK, sqlResponse{
		SQL:    sql,
		Notes:  "Fixed via deterministic column map + " + a.llm.Name() + " (retry-on-empty).",
		Tokens: tokens,
	})
}

type explainSQLRequest struct {
	DBKey string `json:"db_key"`
	SQL   string `json:"sql"`
}

type explainResponse struct {
	Explanation string `json:"explanation"`
	Tokens      int    `json:"tokens,omitempty"`
}

func (a *app) handleExplainSQL(w http.ResponseWriter, r *http.Request) {
	if !a.requireLLM(w) {
		return
	}
	var req explainSQLRequest
	if !decodeBody(w, r, &req) {
		return
	}

	// Explaining needs no schema; an uploaded one only selects the dialect.
	d := dialect.MySQL
	if req.DBKey != "" {
		if s := a.store.Get(req.DBKey); s != nil {
			d = schemaDialect(s)
		}
	}

	sql, err := guard.Sanitize(req.SQL)
	if err != nil {
		a.fail(w, err)
		return
	}
	if sql, err = guard.EnforceSafety(sql); err != nil {
		a.fail(w, err)
		return
	}
	if err := guard.Validate(d, sql); err != nil {
		a.fail(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), llmTimeout)
	defer cancel()

	resp, err := a.llm.Complete(ctx, llm.Request{System: llm.SystemExplain, User: llm.BuildExplainUserPrompt(sql)})
	if err != nil {
		a.fail(w, err)
		return
	}

	respondJSON(w, http.StatusOK, explainResponse{
		Explanation: strings.TrimSpace(resp.Text),
		Tokens:      resp.Tokens,
	})
}

type optimizeSQLRequest struct {
	DBKey string `json:"db_key"`
	SQL   string `json:"sql"`
}

var selectStarRe = regexp.MustCompile(`(?i)\bselect\s+\*|\b\w+\.\*`)

func (a *app) handleOptimizeSQL(w http.ResponseWriter, r *http.Request) {
	if !a.requireLLM(w) {
		return
	}
	var req optimizeSQLRequest
	if !decodeBody(w, r, &req) {
		return
	}

	s, err := a.requireSchema(req.DBKey)
	if err != nil {
		a.fail(w, err)
		return
	}
	d := schemaDialect(s)

	sqlIn, err := guard.Sanitize(req.SQL)
	if err != nil {
		a.fail(w, err)
		return
	}
	if sqlIn, err = guard.EnforceSafety(sqlIn); err != nil {
		a.fail(w, err)
		return
	}
	if err := guard.Validate(d, sqlIn); err != nil {
		a.fail(w, err)
		return
	}

	subset := schema.Shortlist(s, sqlIn, 10)
	user := llm.BuildOptimizeUserPrompt(sqlIn, schemaJSON(subset))
	retryHint := "\n\nIMPORTANT: Output only a single non-empty SQL query. No fences. No commentary."

	ctx, cancel := context.WithTimeout(r.Context(), llmTimeout)
	defer cancel()

	sql, raw, tokens, err := a.completeSQL(ctx, llm.SystemOptimize(string(d)), user, retryHint)
	if err != nil {
		a.fail(w, err)
		return
	}
	if sql, err = guard.EnforceSafety(sql); err != nil {
		a.fail(w, err)
		return
	}
	if err := guard.Validate(d, sql); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("%v (raw output: %s)", err, snippet(raw)))
		return
	}
	if selectStarRe.MatchString(sql) {
		respondError(w, http.StatusBadRequest,
			fmt.Sprintf("optimizer violated rule (SELECT *); raw output: %s", snippet(raw)))
		return
	}

	respondJSON(w, http.StatusOK, sqlResponse{
		SQL:    sql,
		Notes:  "Optimized via " + a.llm.Name() + " (explicit columns, no SELECT *).",
		Tokens: tokens,
	})
}

type suggestNextRequest struct {
	DBKey          string `json:"db_key"`
	Question       string `json:"question"`
	SQL            string `json:"sql"`
	SampleRowsJSON string `json:"sample_rows_json"`
	MaxSuggestions int    `json:"max_suggestions"`
}

type suggestedQuery struct {
	SQL   string `json:"sql"`
	Title string `json:"title"`
}

type suggestNextResponse struct {
	Queries []suggestedQuery `json:"queries"`
	Joins   []string         `json:"joins"`
	Checks  []string         `json:"checks"`
	Notes   string           `json:"notes,omitempty"`
}

func (a *app) handleSuggestNext(w http.ResponseWriter, r *http.Request) {
	if !a.requireLLM(w) {
		return
	}
	var req suggestNextRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.MaxSuggestions <= 0 {
		req.MaxSuggestions = 8
	}

	s, err := a.requireSchema(req.DBKey)
	if err != nil {
		a.fail(w, err)
		return
	}
	d := schemaDialect(s)

	shortlistText := req.Question + "\n" + req.SQL + "\n" + req.SampleRowsJSON
	subset := schema.Shortlist(s, shortlistText, 12)
	user := llm.BuildSuggestUserPrompt(schemaJSON(subset), req.Question, req.SQL, req.SampleRowsJSON, req.MaxSuggestions)

	ctx, cancel := context.WithTimeout(r.Context(), llmTimeout)
	defer cancel()

	resp, err := a.llm.Complete(ctx, llm.Request{System: llm.SystemSuggest(string(d)), User: user, MaxTokens: 2000})
	if err != nil {
		a.fail(w, err)
		return
	}

	payload := llm.ExtractJSON(resp.Text)
	if payload == "" {
		respondError(w, http.StatusBadRequest, "suggestions JSON parse failed: no JSON object found; raw: "+snippet(resp.Text))
		return
	}

	var data struct {
		Queries     []json.RawMessage `json:"queries"`
		Suggestions []json.RawMessage `json:"suggestions"`
		Joins       []string          `json:"joins"`
		Checks      []string          `json:"checks"`
	}
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		respondError(w, http.StatusBadRequest, "suggestions JSON parse failed: "+err.Error()+"; raw: "+snippet(resp.Text))
		return
	}

	rawQueries := data.Queries
	if len(rawQueries) == 0 {
		rawQueries = data.Suggestions
	}
	queries := make([]suggestedQuery, 0, len(rawQueries))
	for i, rq := range rawQueries {
		if len(queries) >= req.MaxSuggestions {
			break
		}
		var q suggestedQuery
		if err := json.Unmarshal(rq, &q); err == nil && q.SQL != "" {
			queries = append(queries, q)
			continue
		}
		// Tolerate the older contract where each suggestion is a bare string.
		var plain string
		if err := json.Unmarshal(rq, &plain); err == nil && plain != "" {
			queries = append(queries, suggestedQuery{SQL: plain, Title: fmt.Sprintf("Suggestion %d", i+1)})
		}
	}

	respondJSON(w, http.StatusOK, suggestNextResponse{
		Queries: queries,
		Joins:   clampStrings(data.Joins, 8),
		Checks:  clampStrings(data.Checks, 8),
		Notes:   fmt.Sprintf("Generated %d suggestions based on k=%d", len(queries), req.MaxSuggestions),
	})
}

func clampStrings(xs []string, max int) []string {
	if xs == nil {
		return []string{}
	}
	if len(xs) > max {
		return xs[:max]
	}
	return xs
}

type suggestJoinsRequest struct {
	DBKey          string   `json:"db_key"`
	Tables         []string `json:"tables"`
	FromTable      string   `json:"from_table"`
	ToTable        string   `json:"to_table"`
	MaxSuggestions int      `json:"max_suggestions"`
}

type suggestJoinsResponse struct {
	Joins      []string     `json:"joins"`
	GraphEdges []graph.Edge `json:"graph_edges"`
	Notes      string       `json:"notes,omitempty"`
}

func (a *app) handleSuggestJoins(w http.ResponseWriter, r *http.Request) {
	var req suggestJoinsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.MaxSuggestions <= 0 {
		req.MaxSuggestions = 10
	}

	s, err := a.requireSchema(req.DBKey)
	if err != nil {
		a.fail(w, err)
		return
	}
	d := schemaDialect(s)

	// Case 1: join path between two named tables.
	if req.FromTable != "" && req.ToTable != "" {
		paths, err := graph.FindJoinPaths(s, req.FromTable, req.ToTable, graph.DefaultMaxDepth)
		if err != nil {
			a.fail(w, err)
			return
		}
		start := s.ResolveTable(req.FromTable)

		joins := make([]string, 0, len(paths))
		edges := make([]graph.Edge, 0)
		for _, path := range paths {
			if len(joins) >= req.MaxSuggestions {
				break
			}
			joins = append(joins, graph.PathSQL(d, start, path))
			edges = append(edges, path...)
		}
		if len(edges) > req.MaxSuggestions {
			edges = edges[:req.MaxSuggestions]
		}
		respondJSON(w, http.StatusOK, suggestJoinsResponse{
			Joins:      joins,
			GraphEdges: edges,
			Notes:      "Join paths derived from foreign-key graph.",
		})
		return
	}

	allEdges := graph.BuildEdges(s)

	// Case 2: direct FK joins among a provided table set.
	if len(req.Tables) > 0 {
		resolved := make(map[string]bool)
		for _, t := range req.Tables {
			if rt := s.ResolveTable(t); rt != "" {
				resolved[rt] = true
			}
		}
		if len(resolved) < 2 {
			respondError(w, http.StatusBadRequest, "provide at least two valid tables")
			return
		}

		var joins []string
		var edges []graph.Edge
		seen := make(map[string]bool)
		for _, e := range allEdges {
			if !resolved[e.FromTable] || !resolved[e.ToTable] {
				continue
			}
			j := graph.JoinSQL(d, e, "a", "b")
			if seen[j] {
				continue
			}
			seen[j] = true
			joins = append(joins, j)
			edges = append(edges, e)
		}
		if len(joins) > req.MaxSuggestions {
			joins = joins[:req.MaxSuggestions]
		}
		if len(edges) > req.MaxSuggestions {
			edges = edges[:req.MaxSuggestions]
		}
		respondJSON(w, http.StatusOK, suggestJoinsResponse{
			Joins:      joins,
			GraphEdges: edges,
			Notes:      "Direct FK joins among provided tables.",
		})
		return
	}

	// Default: every direct FK join in the schema.
	joins := make([]string, 0, len(allEdges))
	edges := make([]graph.Edge, 0, len(allEdges))
	for _, e := range allEdges {
		if len(joins) >= req.MaxSuggestions {
			break
		}
		joins = append(joins, graph.JoinSQL(d, e, "a", "b"))
		edges = append(edges, e)
	}
	respondJSON(w, http.StatusOK, suggestJoinsResponse{
		Joins:      joins,
		GraphEdges: edges,
		Notes:      "Direct FK joins from schema.",
	})
}
