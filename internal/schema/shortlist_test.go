package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shopSchema() *Schema {
	return &Schema{
		Dialect: "mysql",
		Tables: []*TableInfo{
			{Name: "customers", Columns: []Column{{Name: "id"}, {Name: "name"}, {Name: "email"}}},
			{Name: "orders", Columns: []Column{{Name: "id"}, {Name: "customer_id"}, {Name: "total_amount"}}},
			{Name: "products", Columns: []Column{{Name: "id"}, {Name: "title"}, {Name: "price"}}},
			{Name: "audit_log", Columns: []Column{{Name: "id"}, {Name: "entity"}, {Name: "payload"}}},
		},
	}
}

func tableNames(s *Schema) []string {
	names := make([]string, 0, len(s.Tables))
	for _, t := range s.Tables {
		names = append(names, t.Name)
	}
	return names
}

func TestShortlistRanksByOverlap(t *testing.T) {
	s := shopSchema()
	out := Shortlist(s, "total amount per customer for recent orders", 8)
	names := tableNames(out)
	require.NotEmpty(t, names)
	// orders matches "total", "amount", "customer" and "orders"; it must rank
	// ahead of customers, and audit_log must not appear at all.
	assert.Equal(t, "orders", names[0])
	assert.Contains(t, names, "customers")
	assert.NotContains(t, names, "audit_log")
}

func TestShortlistSingularMatchesPluralTable(t *testing.T) {
	out := Shortlist(shopSchema(), "which customer spent the most", 8)
	assert.Contains(t, tableNames(out), "customers")
}

func TestShortlistFallbackWhenNothingMatches(t *testing.T) {
	out := Shortlist(shopSchema(), "zzz qqq", 2)
	assert.Equal(t, []string{"customers", "orders"}, tableNames(out))
}

func TestShortlistTruncates(t *testing.T) {
	out := Shortlist(shopSchema(), "id", 1)
	assert.Len(t, out.Tables, 1)
}

func TestShortlistSharesTablePointers(t *testing.T) {
	s := shopSchema()
	out := Shortlist(s, "orders", 8)
	require.NotEmpty(t, out.Tables)
	assert.Same(t, s.Table("orders"), out.Table("orders"))
}

func TestTokenMatchShortTokens(t *testing.T) {
	assert.True(t, tokenMatch("id", "id"))
	assert.False(t, tokenMatch("id", "order_id"), "two-letter containment is noise")
	assert.True(t, tokenMatch("customer", "customers"))
	assert.True(t, tokenMatch("customers", "customer"))
}
