package loader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nestq/internal/ir"
	"github.com/roach88/nestq/internal/queryir"
)

const groupByYAML = `
datasource: nested
select:
  - expr: {json_value: {input: nest, path: $.x}}
    as: x
  - count: "*"
where:
  eq: [{json_value: {input: nest, path: $.mixed2}}, 1]
group_by: [1]
order_by: [{ordinal: 2, desc: true}]
limit: 10
context: {useApproximateCountDistinct: false}
`

const groupByJSON = `{
  "datasource": "nested",
  "select": [
    {"expr": {"json_value": {"input": "nest", "path": "$.x"}}, "as": "x"},
    {"count": "*"}
  ],
  "where": {"eq": [{"json_value": {"input": "nest", "path": "$.mixed2"}}, 1]},
  "group_by": [1],
  "order_by": [{"ordinal": 2, "desc": true}],
  "limit": 10,
  "context": {"useApproximateCountDistinct": false}
}`

const groupByCUE = `
datasource: "nested"
select: [
	{expr: json_value: {input: "nest", path: "$.x"}, as: "x"},
	{count: "*"},
]
where: eq: [{json_value: {input: "nest", path: "$.mixed2"}}, 1]
group_by: [1]
order_by: [{ordinal: 2, desc: true}]
limit: 10
context: useApproximateCountDistinct: false
`

func groupByQuery() queryir.Query {
	return queryir.Query{
		DataSource: "nested",
		Select: []queryir.SelectItem{
			{Expr: queryir.JSONValue{Input: queryir.Col("nest"), Path: "$.x"}, Alias: "x"},
			{Expr: queryir.Aggregate{Func: queryir.AggCount}},
		},
		Where: queryir.Compare{
			Left:  queryir.JSONValue{Input: queryir.Col("nest"), Path: "$.mixed2"},
			Op:    queryir.OpEq,
			Right: queryir.Lit(ir.Long(1)),
		},
		GroupBy: []int{1},
		OrderBy: []queryir.OrderItem{{Ordinal: 2, Desc: true}},
		Limit:   10,
		Context: map[string]any{"useApproximateCountDistinct": false},
	}
}

func TestParse_Formats(t *testing.T) {
	testCases := []struct {
		name   string
		format Format
		doc    string
	}{
		{"yaml", FormatYAML, groupByYAML},
		{"json", FormatJSON, groupByJSON},
		{"cue", FormatCUE, groupByCUE},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			q, err := Parse([]byte(tc.doc), tc.format)
			require.NoError(t, err)
			assert.Equal(t, groupByQuery(), q)
		})
	}
}

func TestParse_SyntaxErrors(t *testing.T) {
	testCases := []struct {
		name   string
		format Format
		doc    string
	}{
		{"yaml", FormatYAML, "datasource: [nested"},
		{"json", FormatJSON, `{"datasource": `},
		{"cue", FormatCUE, `datasource: "nested`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc), tc.format)
			require.Error(t, err)
			assert.True(t, IsLoadError(err, ErrCodeLoadFailed), "got %v", err)
		})
	}
}

func TestParse_IncompleteCUE(t *testing.T) {
	_, err := Parse([]byte("datasource: string\nselect: [\"long\"]\n"), FormatCUE)
	require.Error(t, err)
	assert.True(t, IsLoadError(err, ErrCodeBuildFailed), "got %v", err)
}

func TestParse_CUEUnknownField(t *testing.T) {
	_, err := Parse([]byte("datasource: \"nested\"\nselct: [\"long\"]\n"), FormatCUE)
	require.Error(t, err)

	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, ErrCodeUnknownField, le.Code)
	assert.Equal(t, "selct", le.Field)
	assert.Contains(t, err.Error(), `unknown field "selct"`)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "group_by.yml")
	require.NoError(t, os.WriteFile(path, []byte(groupByYAML), 0o644))

	q, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, groupByQuery(), q)
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "query.txt")
	require.NoError(t, os.WriteFile(txt, []byte("SELECT 1"), 0o644))

	_, err := LoadFile(txt)
	assert.True(t, IsLoadError(err, ErrCodeUnknownFormat), "got %v", err)

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.True(t, IsLoadError(err, ErrCodeNotFound), "got %v", err)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(groupByYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.json"), []byte(`{"datasource": "nested"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.cue"), []byte(groupByCUE), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "d.yaml"), []byte("select: [long]\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("ignored"), 0o644))

	t.Run("collect all", func(t *testing.T) {
		result, errs := LoadDir(dir, LoadModeCollectAll)
		require.NotNil(t, result)
		assert.Equal(t, 4, result.FileCount)
		require.Len(t, result.Queries, 2)
		assert.Equal(t, "a", result.Queries[0].Name)
		assert.Equal(t, "c", result.Queries[1].Name)
		require.Len(t, errs, 2)
		assert.True(t, IsLoadError(errs[0], ErrCodeMissingField))
		assert.Contains(t, errs[0].Error(), "b.json")
		assert.Contains(t, errs[1].Error(), "datasource is required")
	})

	t.Run("fail fast", func(t *testing.T) {
		result, errs := LoadDir(dir, LoadModeFailFast)
		require.NotNil(t, result)
		assert.Len(t, result.Queries, 1)
		assert.Len(t, errs, 1)
	})
}

func TestLoadDir_Errors(t *testing.T) {
	_, errs := LoadDir(filepath.Join(t.TempDir(), "missing"), LoadModeCollectAll)
	require.Len(t, errs, 1)
	assert.True(t, IsLoadError(errs[0], ErrCodeNotFound))

	_, errs = LoadDir(t.TempDir(), LoadModeCollectAll)
	require.Len(t, errs, 1)
	assert.True(t, IsLoadError(errs[0], ErrCodeNoFiles))
}

func TestLoadError_Format(t *testing.T) {
	assert.Equal(t, "E001: boom", (&LoadError{Code: ErrCodeGeneric, Message: "boom"}).Error())
	assert.Equal(t, "E101: select[0].x: bad", (&LoadError{Code: ErrCodeUnknownField, Field: "select[0].x", Message: "bad"}).Error())
	assert.False(t, IsLoadError(errors.New("plain")))
}
