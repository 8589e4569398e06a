package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nestq/internal/ir"
	"github.com/roach88/nestq/internal/planner"
	"github.com/roach88/nestq/internal/queryir"
	"github.com/roach88/nestq/internal/store"
	"github.com/roach88/nestq/internal/testutil"
)

type harness struct {
	planner *planner.Planner
	engine  *Engine
}

func newHarness(t *testing.T, opts ...planner.Option) *harness {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cat := testutil.Catalog(t)
	base := []planner.Option{
		planner.WithLogger(testutil.DiscardLogger()),
		planner.WithIDGenerator(planner.NewFixedGenerator("q1")),
	}
	return &harness{
		planner: planner.New(cat, append(base, opts...)...),
		engine:  New(st, cat, WithLogger(testutil.DiscardLogger())),
	}
}

func (h *harness) run(t *testing.T, q queryir.Query) [][]ir.Value {
	t.Helper()
	plan, err := h.planner.Plan(q)
	require.NoError(t, err)
	res, err := h.engine.Execute(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, plan.Signature, res.Columns)
	return res.Rows
}

func jv(column, path string) queryir.JSONValue {
	return queryir.JSONValue{Input: queryir.Col(column), Path: path}
}

func items(exprs ...queryir.Expr) []queryir.SelectItem {
	out := make([]queryir.SelectItem, len(exprs))
	for i, e := range exprs {
		out[i] = queryir.SelectItem{Expr: e}
	}
	return out
}

var countAll = queryir.Aggregate{Func: queryir.AggCount}

func str(s string) ir.Value { return ir.String(s) }
func long(n int64) ir.Value { return ir.Long(n) }

var null = ir.Null{}

func TestExecuteGroupByPath(t *testing.T) {
	rows := newHarness(t).run(t, queryir.Query{
		DataSource: "nested",
		Select:     items(jv("nest", "$.x"), countAll),
		GroupBy:    []int{1},
	})

	assert.Equal(t, [][]ir.Value{
		{null, long(4)},
		{str("100"), long(2)},
		{str("200"), long(1)},
	}, rows)
}

func TestExecuteHaving(t *testing.T) {
	testCases := []struct {
		name   string
		having queryir.Predicate
		want   [][]ir.Value
	}{
		{
			name:   "projected count",
			having: queryir.Compare{Left: countAll, Op: queryir.OpGt, Right: queryir.Lit(ir.Long(1))},
			want:   [][]ir.Value{{null, long(4)}, {str("100"), long(2)}},
		},
		{
			name:   "grouped path",
			having: queryir.Compare{Left: jv("nest", "$.x"), Op: queryir.OpEq, Right: queryir.Lit(ir.String("100"))},
			want:   [][]ir.Value{{str("100"), long(2)}},
		},
		{
			name:   "hidden sum",
			having: queryir.Compare{Left: queryir.Aggregate{Func: queryir.AggSum, Arg: queryir.Col("long")}, Op: queryir.OpGe, Right: queryir.Lit(ir.Long(10))},
			want:   [][]ir.Value{{str("100"), long(2)}},
		},
		{
			name:   "null group",
			having: queryir.IsNull{Expr: jv("nest", "$.x")},
			want:   [][]ir.Value{{null, long(4)}},
		},
	}

	h := newHarness(t)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rows := h.run(t, queryir.Query{
				DataSource: "nested",
				Select:     items(jv("nest", "$.x"), countAll),
				GroupBy:    []int{1},
				Having:     tc.having,
			})
			assert.Equal(t, tc.want, rows)
		})
	}
}

func TestExecuteVariantFilterOverMatches(t *testing.T) {
	// mixed2 holds "1", 1 and 1.1: as LONG all three equal 1.
	rows := newHarness(t).run(t, queryir.Query{
		DataSource: "nested",
		Select:     items(jv("nest", "$.x"), countAll),
		Where:      queryir.Compare{Left: jv("nest", "$.mixed2"), Op: queryir.OpEq, Right: queryir.Lit(ir.Long(1))},
		GroupBy:    []int{1},
	})

	assert.Equal(t, [][]ir.Value{
		{str("100"), long(2)},
		{str("200"), long(1)},
	}, rows)
}

func TestExecuteStringLiteralKeepsStringMatch(t *testing.T) {
	rows := newHarness(t).run(t, queryir.Query{
		DataSource: "nested",
		Select:     items(queryir.Col("string")),
		Where:      queryir.Compare{Left: jv("nest", "$.mixed2"), Op: queryir.OpEq, Right: queryir.Lit(ir.String("1"))},
	})

	assert.Equal(t, [][]ir.Value{{str("aaa")}, {str("ccc")}}, rows)
}

func TestExecuteMultiValueVersusUnnest(t *testing.T) {
	h := newHarness(t)

	mvd := h.run(t, queryir.Query{
		DataSource: "nested",
		Select:     items(queryir.ArrayToMV{Input: jv("nester", "$.array")}, countAll),
		GroupBy:    []int{1},
	})
	assert.Equal(t, [][]ir.Value{
		{null, long(5)},
		{str("a"), long(2)},
		{str("b"), long(2)},
	}, mvd)

	unnested := h.run(t, queryir.Query{
		DataSource: "nested",
		Unnest:     &queryir.UnnestClause{Input: jv("nester", "$.array"), Alias: "u"},
		Select:     items(queryir.UnnestRef{}, countAll),
		GroupBy:    []int{1},
	})
	assert.Equal(t, [][]ir.Value{
		{str("a"), long(2)},
		{str("b"), long(2)},
	}, unnested)
}

func TestExecuteMultiValueScanAndFilter(t *testing.T) {
	rows := newHarness(t).run(t, queryir.Query{
		DataSource: "nested",
		Select:     items(queryir.Col("long"), queryir.ArrayToMV{Input: jv("nester", "$.array")}),
		Where: queryir.Compare{
			Left:  queryir.ArrayToMV{Input: jv("nester", "$.array")},
			Op:    queryir.OpEq,
			Right: queryir.Lit(ir.String("b")),
		},
	})

	assert.Equal(t, [][]ir.Value{
		{long(5), ir.Array{str("a"), str("b")}},
		{long(5), ir.Array{str("a"), str("b")}},
	}, rows)
}

func TestExecuteKeysAndPaths(t *testing.T) {
	h := newHarness(t)

	keys := h.run(t, queryir.Query{
		DataSource: "nested",
		Select:     items(queryir.JSONKeys{Input: queryir.Col("nester"), Path: "$"}, countAll),
		GroupBy:    []int{1},
	})
	assert.Equal(t, [][]ir.Value{
		{null, long(5)},
		{ir.Array{str("array"), str("n")}, long(2)},
	}, keys)

	paths := h.run(t, queryir.Query{
		DataSource: "nested",
		Select:     items(queryir.JSONPaths{Input: queryir.Col("nester")}, countAll),
		GroupBy:    []int{1},
	})
	assert.Equal(t, [][]ir.Value{
		{ir.Array{str("$")}, long(5)},
		{ir.Array{str("$.array"), str("$.n.x")}, long(2)},
	}, paths)
}

func TestExecuteNegativeIndex(t *testing.T) {
	rows := newHarness(t).run(t, queryir.Query{
		DataSource: "nested",
		Select:     items(jv("nester", "$.array[-1]"), jv("nester", "$.array[-3]")),
	})

	want := [][]ir.Value{
		{str("b"), null}, {null, null}, {null, null}, {null, null},
		{null, null}, {str("b"), null}, {null, null},
	}
	assert.Equal(t, want, rows)
}

func TestExecuteScanOrderAndLimit(t *testing.T) {
	rows := newHarness(t).run(t, queryir.Query{
		DataSource: "nested",
		Select:     []queryir.SelectItem{{Expr: queryir.Col("long"), Alias: "l"}, {Expr: queryir.Col("string"), Alias: "s"}},
		OrderBy:    []queryir.OrderItem{{Ordinal: 1, Desc: true}},
		Limit:      3,
	})

	assert.Equal(t, [][]ir.Value{
		{long(5), str("aaa")},
		{long(5), str("aaa")},
		{long(4), str("bbb")},
	}, rows)
}

func TestExecuteAggregates(t *testing.T) {
	rows := newHarness(t).run(t, queryir.Query{
		DataSource: "nested",
		Select: items(
			queryir.Aggregate{Func: queryir.AggSum, Arg: queryir.Col("long")},
			queryir.Aggregate{Func: queryir.AggSum, Arg: jv("nest", "$.y")},
			queryir.Aggregate{Func: queryir.AggMax, Arg: queryir.JSONValue{Input: queryir.Col("nest"), Path: "$.x", Returning: ir.LongType}},
			queryir.Aggregate{Func: queryir.AggCount, Arg: jv("nest", "$.x"), Distinct: true},
			queryir.Aggregate{Func: queryir.AggApproxCountDistinct, Arg: queryir.Col("string")},
		),
	})

	require.Len(t, rows, 1)
	assert.Equal(t, long(22), rows[0][0])
	assert.InDelta(t, 7.07, float64(rows[0][1].(ir.Double)), 1e-9)
	assert.Equal(t, long(200), rows[0][2])
	assert.Equal(t, long(2), rows[0][3])
	assert.Equal(t, long(5), rows[0][4])
}

func TestExecuteCoalesce(t *testing.T) {
	rows := newHarness(t).run(t, queryir.Query{
		DataSource: "nested",
		Select:     items(queryir.Coalesce{Args: []queryir.Expr{jv("nest", "$.x"), queryir.Lit(ir.Long(0))}}),
	})

	assert.Equal(t, [][]ir.Value{
		{long(100)}, {long(0)}, {long(200)}, {long(0)}, {long(0)}, {long(100)}, {long(0)},
	}, rows)
}

func TestExecuteExpressionFilter(t *testing.T) {
	rows := newHarness(t).run(t, queryir.Query{
		DataSource: "nested",
		Select:     items(queryir.Col("string")),
		Where: queryir.Compare{
			Left:  queryir.JSONValue{Input: queryir.Col("nest"), Path: "$.x", Returning: ir.LongType},
			Op:    queryir.OpGt,
			Right: queryir.Col("long"),
		},
	})

	assert.Equal(t, [][]ir.Value{{str("aaa")}, {str("ccc")}, {str("aaa")}}, rows)
}

func TestExecuteLikeAndNull(t *testing.T) {
	h := newHarness(t)

	like := h.run(t, queryir.Query{
		DataSource: "nested",
		Select:     items(queryir.Col("long")),
		Where:      queryir.Like{Expr: jv("nest", "$.z"), Pattern: "%00"},
	})
	assert.Equal(t, [][]ir.Value{{long(5)}, {long(5)}}, like)

	notNull := h.run(t, queryir.Query{
		DataSource: "nested",
		Select:     items(queryir.Col("string"), countAll),
		Where:      queryir.IsNull{Expr: queryir.Col("string_sparse"), Negate: true},
		GroupBy:    []int{1},
	})
	assert.Equal(t, [][]ir.Value{{str("ccc"), long(1)}, {str("ddd"), long(1)}}, notNull)
}

func TestExecuteRootPathOfAbsentDocument(t *testing.T) {
	rows := newHarness(t).run(t, queryir.Query{
		DataSource: "nested",
		Select:     items(queryir.Col("string"), jv("nest", "$")),
		Where:      queryir.Compare{Left: queryir.Col("string"), Op: queryir.OpEq, Right: queryir.Lit(ir.String("bbb"))},
	})

	assert.Equal(t, [][]ir.Value{{str("bbb"), null}}, rows)
}

func TestExecuteNotLikeExcludesNulls(t *testing.T) {
	rows := newHarness(t).run(t, queryir.Query{
		DataSource: "nested",
		Select:     items(queryir.Col("long"), jv("nest", "$.z")),
		Where:      queryir.Not{Predicate: queryir.Like{Expr: jv("nest", "$.z"), Pattern: "a%"}},
	})

	assert.Equal(t, [][]ir.Value{{long(5), str("300")}, {long(5), str("400")}}, rows)
}

func TestExecuteJoin(t *testing.T) {
	rows := newHarness(t).run(t, queryir.Query{
		DataSource: "nested",
		Join:       &queryir.JoinClause{Table: "lookup", LeftKey: queryir.Col("string"), RightColumn: "k"},
		Select:     items(queryir.Col("long"), queryir.Column{Table: "lookup", Name: "v"}),
	})

	assert.Equal(t, [][]ir.Value{
		{long(5), str("first")},
		{long(3), str("third")},
		{long(5), str("first")},
	}, rows)
}

func TestExecuteUnnestScalarArray(t *testing.T) {
	rows := newHarness(t).run(t, queryir.Query{
		DataSource: "arrays",
		Unnest: &queryir.UnnestClause{
			Input: queryir.JSONValue{Input: queryir.Col("obj"), Path: "$.longs", Returning: ir.LongArrayType},
			Alias: "u",
		},
		Select: items(queryir.Col("id"), queryir.UnnestRef{}),
	})

	assert.Equal(t, [][]ir.Value{
		{long(1), long(1)},
		{long(1), long(2)},
		{long(1), long(3)},
		{long(3), long(4)},
	}, rows)
}

func TestExecuteUnnestArrayOfObjects(t *testing.T) {
	rows := newHarness(t).run(t, queryir.Query{
		DataSource: "arrays",
		Unnest:     &queryir.UnnestClause{Input: queryir.JSONQueryArray{Input: queryir.Col("obj"), Path: "$.a"}, Alias: "u"},
		Select: items(
			queryir.Col("id"),
			queryir.JSONValue{Input: queryir.Col("u"), Path: "$.x", Returning: ir.LongType},
			jv("u", "$.y"),
		),
	})

	assert.Equal(t, [][]ir.Value{
		{long(1), long(1), str("p")},
		{long(1), long(2), str("q")},
		{long(2), long(3), null},
	}, rows)
}

func TestExecuteJSONObject(t *testing.T) {
	rows := newHarness(t).run(t, queryir.Query{
		DataSource: "nested",
		Select: items(queryir.JSONObject{Fields: []queryir.ObjectField{
			{Key: "x", Value: queryir.JSONValue{Input: queryir.Col("nest"), Path: "$.x", Returning: ir.LongType}},
			{Key: "s", Value: queryir.Col("string")},
		}}),
		Where: queryir.Compare{Left: queryir.Col("long"), Op: queryir.OpEq, Right: queryir.Lit(ir.Long(3))},
	})

	assert.Equal(t, [][]ir.Value{{ir.Object{"x": long(200), "s": str("ccc")}}}, rows)
}

func TestExecuteLoadsTablesOnce(t *testing.T) {
	h := newHarness(t)
	q := queryir.Query{DataSource: "nested", Select: items(countAll)}

	first := h.run(t, q)
	second := h.run(t, q)
	assert.Equal(t, [][]ir.Value{{long(7)}}, first)
	assert.Equal(t, first, second)
	assert.True(t, h.engine.loaded["nested"])
	assert.False(t, h.engine.loaded["lookup"])
}

func TestExecuteUnknownTable(t *testing.T) {
	h := newHarness(t)
	_, err := h.engine.Execute(context.Background(), &planner.Plan{QueryID: "q9", DataSource: "missing"})

	require.Error(t, err)
	assert.True(t, IsUnknownTableError(err))
	assert.Equal(t, "UNKNOWN_TABLE: table [missing] not found (query=q9)", err.Error())
}

func TestExecuteNilPlan(t *testing.T) {
	_, err := newHarness(t).engine.Execute(context.Background(), nil)
	assert.Error(t, err)
}

func TestLoadPreloadsTables(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.engine.Load(context.Background(), "nested", "lookup"))
	assert.True(t, h.engine.loaded["lookup"])

	err := h.engine.Load(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, IsUnknownTableError(err))
}

func TestExecuteOnClosedStore(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	cat := testutil.Catalog(t)
	e := New(st, cat, WithLogger(testutil.DiscardLogger()))
	require.NoError(t, e.Load(context.Background(), "nested"))

	p := planner.New(cat, planner.WithIDGenerator(planner.NewFixedGenerator("q2")), planner.WithLogger(testutil.DiscardLogger()))
	plan, err := p.Plan(queryir.Query{DataSource: "nested", Select: items(countAll)})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	_, err = e.Execute(context.Background(), plan)
	require.Error(t, err)
	assert.True(t, IsExecutionError(err))
	assert.False(t, IsUnknownTableError(err))
}
