package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nestq/internal/ir"
	"github.com/roach88/nestq/internal/lattice"
	"github.com/roach88/nestq/internal/segment"
	"github.com/roach88/nestq/internal/testutil"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestOpenAppliesPragmas(t *testing.T) {
	st, err := Open(filepath.Join(t.TempDir(), "nestq.db"))
	require.NoError(t, err)
	defer st.Close()

	assert.NoError(t, st.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, st.verifyPragma("synchronous", "1"))
	assert.NoError(t, st.verifyPragma("busy_timeout", "5000"))
}

func TestOpenTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nestq.db")
	a, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, a.Close())

	b, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, b.Close())
}

func TestCloseNil(t *testing.T) {
	var st Store
	assert.NoError(t, st.Close())
}

func TestLoadTable(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	require.NoError(t, st.LoadTable(ctx, testutil.MustFixture(t, testutil.Nested)))

	var n int
	require.NoError(t, st.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM "nested"`).Scan(&n))
	assert.Equal(t, 7, n)

	rows, err := st.Query(ctx, `SELECT "__row", "long", "nest", "string_sparse" FROM "nested" ORDER BY "__row"`)
	require.NoError(t, err)
	defer rows.Close()

	var got []int64
	var first struct {
		nest   string
		sparse any
	}
	for rows.Next() {
		var row, long int64
		var nest, sparse any
		require.NoError(t, rows.Scan(&row, &long, &nest, &sparse))
		if row == 0 {
			first.nest = nest.(string)
			first.sparse = sparse
		}
		got = append(got, long)
	}
	require.NoError(t, rows.Err())

	assert.Equal(t, []int64{5, 4, 3, 2, 1, 5, 2}, got)
	assert.Equal(t, `{"mixed":1,"mixed2":"1","x":100,"y":2.02,"z":"300"}`, first.nest)
	assert.Nil(t, first.sparse)
}

func TestLoadTableReplaces(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	cols := []lattice.ColumnInfo{{Name: "k", Kind: lattice.ColumnString}}
	first, err := segment.NewTable("t", cols, []segment.Row{{"k": ir.String("a")}, {"k": ir.String("b")}})
	require.NoError(t, err)
	second, err := segment.NewTable("t", cols, []segment.Row{{"k": ir.String("c")}})
	require.NoError(t, err)

	require.NoError(t, st.LoadTable(ctx, first))
	require.NoError(t, st.LoadTable(ctx, second))

	var k string
	require.NoError(t, st.DB().QueryRowContext(ctx, `SELECT GROUP_CONCAT("k") FROM "t"`).Scan(&k))
	assert.Equal(t, "c", k)
}

func TestNestedValueOverLoadedColumn(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	require.NoError(t, st.LoadTable(ctx, testutil.MustFixture(t, testutil.Nested)))

	rows, err := st.Query(ctx, `SELECT nested_value("nest", 1, '$.x', 'LONG', 0) FROM "nested" ORDER BY "__row"`)
	require.NoError(t, err)
	defer rows.Close()

	var got []any
	for rows.Next() {
		var v any
		require.NoError(t, rows.Scan(&v))
		got = append(got, v)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []any{int64(100), nil, int64(200), nil, nil, int64(100), nil}, got)
}

func TestFunctions(t *testing.T) {
	st := openTestStore(t)

	tests := []struct {
		name string
		expr string
		want any
	}{
		{"value long from string", `nested_value('{"x":{"y":"5"}}', 1, '$.x.y', 'LONG', 0)`, int64(5)},
		{"value double truncated", `nested_value('{"x":2.9}', 1, '$.x', 'LONG', 0)`, int64(2)},
		{"value array", `nested_value('{"a":[1,"2"]}', 1, '$.a', 'ARRAY<LONG>', 0)`, "[1,2]"},
		{"value object as string", `nested_value('{"a":{"b":1}}', 1, '$.a', 'STRING', 0)`, nil},
		{"value root of plain text", `nested_value('hello', 0, '$', 'STRING', 0)`, "hello"},
		{"value null input", `nested_value(NULL, 1, '$.x', 'STRING', 0)`, nil},
		{"value negative index", `nested_value('{"a":[1,2,3]}', 1, '$.a[-1]', 'LONG', 0)`, int64(3)},
		{"value array of objects wraps", `nested_value('{"a":{"x":1}}', 1, '$.a', 'COMPLEX<json>', 1)`, `[{"x":1}]`},
		{"keys", `nested_keys('{"b":1,"a":2}', 1, '$')`, `["a","b"]`},
		{"keys of scalar", `nested_keys('"x"', 1, '$')`, nil},
		{"paths", `nested_paths('{"array":["a"],"n":{"x":1}}', 1)`, `["$.array","$.n.x"]`},
		{"paths of null", `nested_paths(NULL, 1)`, `["$"]`},
		{"paths of invalid json", `nested_paths('{"a":', 1)`, `["$"]`},
		{"keys of invalid json", `nested_keys('{"a":', 1, '$')`, nil},
		{"object", `nested_object('a', 1, 0, 'b', '[1]', 1)`, `{"a":1,"b":[1]}`},
		{"cast", `nested_cast('3.7', 0, 'LONG')`, int64(3)},
		{"cast unparseable", `nested_cast('abc', 0, 'DOUBLE')`, nil},
		{"coalesce", `nested_coalesce('LONG', NULL, 0, '12', 0)`, int64(12)},
		{"coalesce all null", `nested_coalesce('STRING', NULL, 0)`, nil},
		{"mv of empty array", `nested_mv('[]', 1)`, `[null]`},
		{"mv of null", `nested_mv(NULL, 1)`, `[null]`},
		{"mv of array", `nested_mv('["a","b"]', 1)`, `["a","b"]`},
		{"unnest object", `nested_unnest('{"a":[1]}', 1)`, `[{"a":[1]}]`},
		{"unnest array elements", `nested_unnest('[1,"x",null]', 1)`, `[1,"x",null]`},
		{"unnest empty array", `nested_unnest('[]', 1)`, nil},
		{"unnest null", `nested_unnest(NULL, 1)`, nil},
		{"unnest scalar", `nested_unnest('"a"', 1)`, `["a"]`},
		{"unnest plain text", `nested_unnest('a', 0)`, `["a"]`},
		{"unnest number", `nested_unnest(5, 0)`, `[5]`},
		{"unnest invalid json", `nested_unnest('[1,', 1)`, nil},
		{"like match", `nested_like('hello', 'he%')`, int64(1)},
		{"like miss", `nested_like('hello', 'x_')`, int64(0)},
		{"like null", `nested_like(NULL, 'x')`, nil},
		{"satisfies numeric string", `nested_satisfies('100', 0, '>', 50, 0)`, int64(1)},
		{"satisfies non numeric string", `nested_satisfies('abc', 0, '=', 1, 0)`, int64(0)},
		{"satisfies null", `nested_satisfies(NULL, 0, '=', 1, 0)`, int64(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got any
			require.NoError(t, st.DB().QueryRow("SELECT "+tt.expr).Scan(&got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFunctionErrors(t *testing.T) {
	st := openTestStore(t)

	tests := []struct {
		name string
		expr string
	}{
		{"bad path", `nested_value('{}', 1, '.x', 'STRING', 0)`},
		{"bad type", `nested_value('{}', 1, '$.x', 'BLOB', 0)`},
		{"object arity", `nested_object('a', 1)`},
		{"coalesce arity", `nested_coalesce('LONG', 1)`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got any
			assert.Error(t, st.DB().QueryRow("SELECT "+tt.expr).Scan(&got))
		})
	}
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"j0.k"`, QuoteIdent("j0.k"))
	assert.Equal(t, `"a""b"`, QuoteIdent(`a"b`))
}
