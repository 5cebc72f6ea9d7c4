package guard

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"text2sql/internal/dialect"
)

func TestSanitizeFencedOutput(t *testing.T) {
	raw := "Here is your query:\n```sql\nSELECT id FROM t;\n```"
	got, err := Sanitize(raw)
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM t", got)
}

func TestSanitizePlainSQLRoundTrips(t *testing.T) {
	got, err := Sanitize("SELECT id FROM t")
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM t", got)
}

func TestSanitizeDropsLeadingProse(t *testing.T) {
	got, err := Sanitize("Sure! The query you want is\nWITH x AS (SELECT 1) SELECT * FROM x")
	require.NoError(t, err)
	assert.Equal(t, "WITH x AS (SELECT 1) SELECT * FROM x", got)
}

func TestSanitizeMultiStatement(t *testing.T) {
	_, err := Sanitize("SELECT 1; SELECT 2;")
	assert.ErrorIs(t, err, ErrMultiStatement)
}

func TestSanitizeEmpty(t *testing.T) {
	for _, raw := range []string{"", "   ", "```\n```"} {
		_, err := Sanitize(raw)
		assert.ErrorIs(t, err, ErrEmptySQL, "raw=%q", raw)
	}
}

func TestEnforceSafety(t *testing.T) {
	got, err := EnforceSafety("SELECT id FROM users")
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM users", got)

	for _, sql := range []string{
		"DROP TABLE users",
		"SELECT 1; DELETE FROM users",
		"update users set name = 'x'",
		"TRUNCATE users",
	} {
		_, err := EnforceSafety(sql)
		var ue *UnsafeError
		require.True(t, errors.As(err, &ue), "sql=%q", sql)
	}
}

func TestEnforceSafetyWholeWordsOnly(t *testing.T) {
	// "created_at" and "updates" must not trip the keyword scan.
	_, err := EnforceSafety("SELECT created_at, updates FROM metrics")
	assert.NoError(t, err)
}

func TestEnforceLimitInjects(t *testing.T) {
	got := EnforceLimit(dialect.MySQL, "SELECT id FROM t;", 50)
	assert.Equal(t, "SELECT id FROM t LIMIT 50", got)
}

func TestEnforceLimitKeepsExisting(t *testing.T) {
	got := EnforceLimit(dialect.MySQL, "SELECT id FROM t LIMIT 10", 50)
	assert.Equal(t, "SELECT id FROM t LIMIT 10", got)
}

func TestEnforceLimitSubstringSkip(t *testing.T) {
	// A column merely containing "limit" skips injection; the tradeoff is a
	// missing limit, never a corrupted query.
	got := EnforceLimit(dialect.Postgres, "SELECT rate_limit FROM quotas", 50)
	assert.Equal(t, "SELECT rate_limit FROM quotas", got)
}

func TestEnforceLimitNonSelectUntouched(t *testing.T) {
	got := EnforceLimit(dialect.Postgres, "EXPLAIN SELECT id FROM t", 50)
	assert.Equal(t, "EXPLAIN SELECT id FROM t", got)
}

func TestEnforceLimitDefaultsLimit(t *testing.T) {
	got := EnforceLimit(dialect.Postgres, "SELECT id FROM t", 0)
	assert.Equal(t, "SELECT id FROM t LIMIT 100", got)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(dialect.Postgres, "SELECT id FROM t WHERE x = 1"))

	err := Validate(dialect.Postgres, "SELEC id FORM t")
	var ve *dialect.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, dialect.Postgres, ve.Dialect)
}
