package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"text2sql/internal/dialect"
	"text2sql/internal/schema"
)

func shopSchema() *schema.Schema {
	return &schema.Schema{
		Tables: []*schema.TableInfo{
			{Name: "customers"},
			{Name: "orders", ForeignKeys: []schema.ForeignKey{{
				ConstrainedColumns: []string{"customer_id"},
				ReferredTable:      "customers",
				ReferredColumns:    []string{"id"},
			}}},
			{Name: "order_items", ForeignKeys: []schema.ForeignKey{
				{
					ConstrainedColumns: []string{"order_id"},
					ReferredTable:      "orders",
					ReferredColumns:    []string{"id"},
				},
				{
					ConstrainedColumns: []string{"product_id"},
					ReferredTable:      "products",
					ReferredColumns:    []string{"id"},
				},
			}},
			{Name: "products"},
		},
	}
}

func TestBuildEdges(t *testing.T) {
	edges := BuildEdges(shopSchema())
	require.Len(t, edges, 3)
	assert.Equal(t, "orders", edges[0].FromTable)
	assert.Equal(t, "customers", edges[0].ToTable)
	assert.Equal(t, "order_items", edges[1].FromTable)
	assert.Equal(t, "order_items", edges[2].FromTable)
}

func TestFindJoinPaths(t *testing.T) {
	s := shopSchema()

	paths, err := FindJoinPaths(s, "customers", "products", 0)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	require.Len(t, paths[0], 3)
	assert.Equal(t, "orders", paths[0][0].ToTable)
	assert.Equal(t, "order_items", paths[0][1].ToTable)
	assert.Equal(t, "products", paths[0][2].ToTable)
}

func TestFindJoinPathsNoRevisit(t *testing.T) {
	paths, err := FindJoinPaths(shopSchema(), "customers", "products", 10)
	require.NoError(t, err)
	for _, path := range paths {
		seen := map[string]bool{"customers": true}
		for _, e := range path {
			assert.False(t, seen[e.ToTable], "path revisits %s", e.ToTable)
			seen[e.ToTable] = true
		}
	}
}

func TestFindJoinPathsSymmetric(t *testing.T) {
	s := shopSchema()
	forward, err := FindJoinPaths(s, "customers", "products", 4)
	require.NoError(t, err)
	backward, err := FindJoinPaths(s, "products", "customers", 4)
	require.NoError(t, err)
	assert.Equal(t, len(forward), len(backward))
}

func TestFindJoinPathsDepthBound(t *testing.T) {
	paths, err := FindJoinPaths(shopSchema(), "customers", "products", 2)
	require.NoError(t, err)
	assert.Empty(t, paths, "shortest path needs 3 edges")
}

func TestFindJoinPathsUnknownTable(t *testing.T) {
	_, err := FindJoinPaths(shopSchema(), "customers", "warehouses", 4)
	var ute *UnknownTableError
	require.ErrorAs(t, err, &ute)
	assert.Equal(t, "warehouses", ute.Table)
}

func TestFindJoinPathsCaseInsensitiveEndpoints(t *testing.T) {
	paths, err := FindJoinPaths(shopSchema(), "Customers", "ORDERS", 4)
	require.NoError(t, err)
	require.Len(t, paths, 1)
}

func TestJoinSQL(t *testing.T) {
	e := Edge{
		FromTable:   "orders",
		FromColumns: []string{"customer_id"},
		ToTable:     "customers",
		ToColumns:   []string{"id"},
	}
	got := JoinSQL(dialect.MySQL, e, "a", "b")
	assert.Equal(t, "`orders` a JOIN `customers` b ON a.`customer_id` = b.`id`", got)

	got = JoinSQL(dialect.Postgres, e, "o", "c")
	assert.Equal(t, `"orders" o JOIN "customers" c ON o."customer_id" = c."id"`, got)
}

func TestJoinSQLMismatchedColumns(t *testing.T) {
	e := Edge{FromTable: "a_table", FromColumns: []string{"x"}, ToTable: "b_table"}
	got := JoinSQL(dialect.Postgres, e, "a", "b")
	assert.Contains(t, got, "/* missing fk columns */")
}

func TestPathSQL(t *testing.T) {
	s := shopSchema()
	paths, err := FindJoinPaths(s, "customers", "products", 4)
	require.NoError(t, err)
	require.Len(t, paths, 1)

	got := PathSQL(dialect.MySQL, "customers", paths[0])
	assert.Equal(t,
		"`customers` a JOIN `orders` b ON a.`id` = b.`customer_id` "+
			"JOIN `order_items` c ON b.`id` = c.`order_id` "+
			"JOIN `products` d ON c.`product_id` = d.`id`", got)
}
