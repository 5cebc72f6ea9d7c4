package dialect

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want Dialect
	}{
		{"", MySQL},
		{"mysql", MySQL},
		{"MariaDB", MySQL},
		{"postgres", Postgres},
		{"PostgreSQL", Postgres},
		{"pg", Postgres},
		{"sqlite", SQLite},
		{"sqlite3", SQLite},
	}
	for _, c := range cases {
		got, err := Parse(c.in)
		require.NoError(t, err, "in=%q", c.in)
		assert.Equal(t, c.want, got, "in=%q", c.in)
	}

	_, err := Parse("oracle")
	assert.Error(t, err)
}

func TestParseCreateTableMySQL(t *testing.T) {
	block := "CREATE TABLE `orders` (\n" +
		"  `id` INT(11) NOT NULL AUTO_INCREMENT,\n" +
		"  `customer_id` INT UNSIGNED NOT NULL,\n" +
		"  `total_amount` DECIMAL(10,2),\n" +
		"  `created_at` DATETIME,\n" +
		"  PRIMARY KEY (`id`)\n" +
		") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4"
	ct, err := MySQL.ParseCreateTable(block)
	require.NoError(t, err)
	assert.Equal(t, "orders", ct.Name)
	require.Len(t, ct.Columns, 4)
	assert.Equal(t, "id", ct.Columns[0].Name)
	assert.Equal(t, "total_amount", ct.Columns[2].Name)
	require.Len(t, ct.PrimaryKeys, 1)
	assert.Equal(t, []string{"id"}, ct.PrimaryKeys[0])
}

func TestParseCreateTableColumnAndTablePK(t *testing.T) {
	block := `CREATE TABLE events (
  id INT PRIMARY KEY,
  tenant_id INT,
  PRIMARY KEY (tenant_id)
)`
	ct, err := Postgres.ParseCreateTable(block)
	require.NoError(t, err)
	// Column marker is the earliest clause; the table clause follows it.
	require.Len(t, ct.PrimaryKeys, 2)
	assert.Equal(t, []string{"id"}, ct.PrimaryKeys[0])
	assert.Equal(t, []string{"tenant_id"}, ct.PrimaryKeys[1])
}

func TestParseCreateTableSQLiteBrackets(t *testing.T) {
	block := `CREATE TABLE [notes] (
  [id] INTEGER PRIMARY KEY,
  [body] TEXT
)`
	ct, err := SQLite.ParseCreateTable(block)
	require.NoError(t, err)
	assert.Equal(t, "notes", ct.Name)
	require.Len(t, ct.Columns, 2)
	assert.Equal(t, "body", ct.Columns[1].Name)
}

func TestParseCreateTableInvalid(t *testing.T) {
	_, err := MySQL.ParseCreateTable("CREATE TABLE broken (this is ??? not valid)")
	assert.Error(t, err)
}

func TestIsSelect(t *testing.T) {
	assert.True(t, Postgres.IsSelect("SELECT id FROM t"))
	assert.True(t, Postgres.IsSelect("(SELECT id FROM t)"))
	assert.True(t, MySQL.IsSelect("SELECT `id` FROM `t`"))
	assert.True(t, Postgres.IsSelect("WITH x AS (SELECT 1) SELECT * FROM x"))
	assert.False(t, Postgres.IsSelect("INSERT INTO t VALUES (1)"))
	assert.False(t, Postgres.IsSelect("not sql at all"))
}

func TestValidateCarriesParserMessage(t *testing.T) {
	err := MySQL.Validate("SELEC nope")
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, MySQL, ve.Dialect)
	assert.NotEmpty(t, ve.Message)

	assert.NoError(t, MySQL.Validate("SELECT `id` FROM `t` LIMIT 5;"))
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, "`orders`", MySQL.QuoteIdent("orders"))
	assert.Equal(t, `"orders"`, Postgres.QuoteIdent("orders"))
	assert.Equal(t, `"orders"`, SQLite.QuoteIdent("orders"))
}
