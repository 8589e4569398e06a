// Package querysql compiles planned queries to parameterized SQLite SQL.
//
// The plan's virtual columns become a chain of common table expressions,
// one per operator, each adding a column to the rows of the previous one.
// UNNEST and the join add their own layers. Filters, grouping and ordering
// then read only named columns of the last layer.
//
// Every query ends with ORDER BY so results are deterministic, and every
// value (literals, paths, type names) is bound as a parameter.
package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/nestq/internal/filter"
	"github.com/roach88/nestq/internal/ir"
	"github.com/roach88/nestq/internal/lattice"
	"github.com/roach88/nestq/internal/native"
	"github.com/roach88/nestq/internal/planner"
	"github.com/roach88/nestq/internal/queryir"
	"github.com/roach88/nestq/internal/store"
	"github.com/roach88/nestq/internal/vcol"
)

// UnnestIndexColumn holds the element position of the current UNNEST row.
const UnnestIndexColumn = "__unnest_idx"

// Columns resolves physical columns of the loaded tables.
// *segment.Catalog implements it.
type Columns interface {
	Column(table, column string) (lattice.ColumnInfo, bool)
}

// Compiler compiles plans to SQL over tables loaded by the store package.
type Compiler struct {
	columns Columns
}

// NewCompiler creates a Compiler resolving physical columns through cols.
func NewCompiler(cols Columns) *Compiler {
	return &Compiler{columns: cols}
}

// source describes a named column visible in the last layer.
type source struct {
	typ ir.ExtractionType
	// json is set when values are stored as JSON text.
	json bool
	// mv is set for multi-value operators: a JSON array of elements.
	mv bool
}

// compilation is the state of one Compile call.
type compilation struct {
	columns Columns
	plan    *planner.Plan
	vcols   map[string]vcol.VirtualColumn
	params  []any

	// alias qualifies column references: s for layer rows, g for grouped
	// rows while compiling HAVING.
	alias   string
	grouped map[string]source
}

// Compile converts a plan to SQL.
// Returns (sql, params, error) tuple.
//
// Result columns are named c0, c1, ... in projection order.
func (c *Compiler) Compile(p *planner.Plan) (string, []any, error) {
	if p == nil {
		return "", nil, fmt.Errorf("cannot compile nil plan")
	}
	comp := &compilation{
		columns: c.columns,
		plan:    p,
		vcols:   make(map[string]vcol.VirtualColumn, len(p.VirtualColumns)),
		alias:   "s",
	}
	for _, vc := range p.VirtualColumns {
		comp.vcols[vc.Name] = vc
	}
	return comp.compile()
}

func (c *compilation) compile() (string, []any, error) {
	with, last, err := c.compileLayers()
	if err != nil {
		return "", nil, err
	}

	var body string
	if c.plan.IsAggregate() {
		body, err = c.compileAggregate(last)
	} else {
		body, err = c.compileScan(last)
	}
	if err != nil {
		return "", nil, err
	}

	if c.plan.Limit > 0 {
		body += " LIMIT ?"
		c.params = append(c.params, int64(c.plan.Limit))
	}
	return "WITH " + with + " " + body, c.params, nil
}

// compileLayers builds the CTE chain and returns it with the name of the
// last layer.
func (c *compilation) compileLayers() (string, string, error) {
	p := c.plan
	layers := []string{fmt.Sprintf("s0 AS (SELECT * FROM %s)", store.QuoteIdent(p.DataSource))}
	last := "s0"
	next := func(body string) {
		name := fmt.Sprintf("s%d", len(layers))
		layers = append(layers, fmt.Sprintf("%s AS (%s)", name, body))
		last = name
	}

	addUnnest := func() error {
		body, err := c.unnestLayer(last)
		if err != nil {
			return err
		}
		next(body)
		return nil
	}

	if p.Unnest != nil {
		if _, isOperator := c.vcols[p.Unnest.Input]; !isOperator {
			if err := addUnnest(); err != nil {
				return "", "", err
			}
		}
	}

	for _, vc := range p.VirtualColumns {
		expr, _, err := c.nativeSQL(vc.Native())
		if err != nil {
			return "", "", fmt.Errorf("compile %s: %w", vc.Name, err)
		}
		next(fmt.Sprintf("SELECT s.*, %s AS %s FROM %s AS s", expr, store.QuoteIdent(vc.Name), last))

		if p.Unnest != nil && p.Unnest.Input == vc.Name {
			if err := addUnnest(); err != nil {
				return "", "", err
			}
		}
	}

	if p.Join != nil {
		body, err := c.joinLayer(last)
		if err != nil {
			return "", "", err
		}
		next(body)
	}
	return strings.Join(layers, ", "), last, nil
}

// unnestLayer emits one row per array element. Null and empty arrays emit
// no rows; a non-array value emits itself once.
func (c *compilation) unnestLayer(from string) (string, error) {
	u := c.plan.Unnest
	in, err := c.source(u.Input)
	if err != nil {
		return "", err
	}
	array := fmt.Sprintf("nested_unnest(%s, %s)", c.ref(u.Input), flag(in.json))

	elem := "u.value"
	if store.IsJSONType(u.ElementType) {
		elem = "CASE WHEN u.type IN ('object', 'array') THEN u.value WHEN u.type = 'null' THEN NULL ELSE json_quote(u.value) END"
	}
	return fmt.Sprintf("SELECT s.*, %s AS %s, u.key AS %s FROM %s AS s, json_each(%s) AS u",
		elem, store.QuoteIdent(planner.UnnestColumn), store.QuoteIdent(UnnestIndexColumn), from, array), nil
}

// joinLayer inner joins the referenced columns of the join table. When the
// key types differ the right key is cast to the left key's type.
func (c *compilation) joinLayer(from string) (string, error) {
	j := c.plan.Join
	left, err := c.source(j.LeftKey)
	if err != nil {
		return "", err
	}

	right := "j." + store.QuoteIdent(j.RightColumn)
	if j.RightType != j.LeftType {
		rightInfo, ok := c.columns.Column(j.Table, j.RightColumn)
		if !ok {
			return "", fmt.Errorf("column [%s] not found in table [%s]", j.RightColumn, j.Table)
		}
		right = fmt.Sprintf("nested_cast(%s, %s, ?)", right, flag(store.StoresJSON(rightInfo.Kind)))
		c.params = append(c.params, left.typ.String())
	}

	cols := []string{fmt.Sprintf("j.%s AS %s", store.QuoteIdent(store.RowColumn), store.QuoteIdent(planner.JoinPrefix+store.RowColumn))}
	for _, name := range c.joinedColumns() {
		cols = append(cols, fmt.Sprintf("j.%s AS %s", store.QuoteIdent(name), store.QuoteIdent(planner.JoinPrefix+name)))
	}
	return fmt.Sprintf("SELECT s.*, %s FROM %s AS s JOIN %s AS j ON s.%s = %s",
		strings.Join(cols, ", "), from, store.QuoteIdent(j.Table), store.QuoteIdent(j.LeftKey), right), nil
}

// joinedColumns lists the join table columns the plan reads, in first
// reference order.
func (c *compilation) joinedColumns() []string {
	var out []string
	seen := make(map[string]bool)
	note := func(name string) {
		col, ok := strings.CutPrefix(name, planner.JoinPrefix)
		if !ok || seen[col] {
			return
		}
		seen[col] = true
		out = append(out, col)
	}

	p := c.plan
	for _, op := range filter.Operands(p.Filter) {
		note(op.Column)
	}
	for _, d := range p.Dimensions {
		note(d.Input)
	}
	for _, a := range p.Aggregators {
		note(a.Input)
	}
	for _, pr := range p.Projections {
		note(pr.Source)
	}
	return out
}

// ref qualifies a column name with the current row alias.
func (c *compilation) ref(name string) string {
	return c.alias + "." + store.QuoteIdent(name)
}

// source resolves a column name of the last layer, or of the grouped rows
// while compiling HAVING.
func (c *compilation) source(name string) (source, error) {
	p := c.plan
	if c.grouped != nil {
		src, ok := c.grouped[name]
		if !ok {
			return source{}, fmt.Errorf("column [%s] is not a grouped output", name)
		}
		return src, nil
	}
	if vc, ok := c.vcols[name]; ok {
		if _, isMV := vc.Expression.(native.MVExpr); isMV {
			return source{typ: vc.OutputType, json: true, mv: true}, nil
		}
		return source{typ: vc.OutputType, json: store.IsJSONType(vc.OutputType)}, nil
	}
	if name == planner.UnnestColumn && p.Unnest != nil {
		return source{typ: p.Unnest.ElementType, json: store.IsJSONType(p.Unnest.ElementType)}, nil
	}

	table, column := p.DataSource, name
	if p.Join != nil {
		if col, ok := strings.CutPrefix(name, planner.JoinPrefix); ok {
			table, column = p.Join.Table, col
		}
	}
	info, ok := c.columns.Column(table, column)
	if !ok {
		return source{}, fmt.Errorf("column [%s] not found in table [%s]", column, table)
	}
	return source{typ: info.Kind.ExtractionType(), json: store.StoresJSON(info.Kind)}, nil
}

// compileScan selects projections row by row, ordered by the plan's
// orderings and then by row position.
func (c *compilation) compileScan(from string) (string, error) {
	p := c.plan
	cols := make([]string, len(p.Projections))
	for i, pr := range p.Projections {
		cols[i] = fmt.Sprintf("s.%s AS %s", store.QuoteIdent(pr.Source), resultColumn(i))
	}

	where, err := c.whereClause()
	if err != nil {
		return "", err
	}

	order, err := c.orderings()
	if err != nil {
		return "", err
	}
	order = append(order, "s."+store.QuoteIdent(store.RowColumn))
	if p.Unnest != nil {
		order = append(order, "s."+store.QuoteIdent(UnnestIndexColumn))
	}
	if p.Join != nil {
		order = append(order, "s."+store.QuoteIdent(planner.JoinPrefix+store.RowColumn))
	}

	return fmt.Sprintf("SELECT %s FROM %s AS s%s ORDER BY %s",
		strings.Join(cols, ", "), from, where, strings.Join(order, ", ")), nil
}

// compileAggregate groups in an inner query and orders its result in the
// outer one. Multi-value dimensions join their elements in, so each row is
// grouped under every element.
func (c *compilation) compileAggregate(from string) (string, error) {
	p := c.plan
	var (
		cols    []string
		groupBy []string
		joins   []string
	)
	for i, d := range p.Dimensions {
		expr := "s." + store.QuoteIdent(d.Input)
		if d.MultiValue {
			alias := fmt.Sprintf("mv%d", i)
			joins = append(joins, fmt.Sprintf("json_each(s.%s) AS %s", store.QuoteIdent(d.Input), alias))
			expr = alias + ".value"
		}
		cols = append(cols, fmt.Sprintf("%s AS %s", expr, store.QuoteIdent(d.Name)))
		groupBy = append(groupBy, expr)
	}
	for _, a := range p.Aggregators {
		expr, err := c.aggregateSQL(a)
		if err != nil {
			return "", err
		}
		cols = append(cols, fmt.Sprintf("%s AS %s", expr, store.QuoteIdent(a.Name)))
	}

	fromClause := from + " AS s"
	for _, j := range joins {
		fromClause += ", " + j
	}

	where, err := c.whereClause()
	if err != nil {
		return "", err
	}
	inner := fmt.Sprintf("SELECT %s FROM %s%s", strings.Join(cols, ", "), fromClause, where)
	if len(groupBy) > 0 {
		inner += " GROUP BY " + strings.Join(groupBy, ", ")
	}

	having, err := c.havingClause()
	if err != nil {
		return "", err
	}

	outer := make([]string, len(p.Projections))
	for i, pr := range p.Projections {
		outer[i] = fmt.Sprintf("g.%s AS %s", store.QuoteIdent(pr.Source), resultColumn(i))
	}

	order, err := c.orderings()
	if err != nil {
		return "", err
	}
	for _, d := range p.Dimensions {
		order = append(order, "g."+store.QuoteIdent(d.Name))
	}

	sql := fmt.Sprintf("SELECT %s FROM (%s) AS g%s", strings.Join(outer, ", "), inner, having)
	if len(order) > 0 {
		sql += " ORDER BY " + strings.Join(order, ", ")
	}
	return sql, nil
}

func (c *compilation) aggregateSQL(a planner.Aggregator) (string, error) {
	if a.Input == "" {
		return "COUNT(*)", nil
	}
	col := "s." + store.QuoteIdent(a.Input)
	switch a.Func {
	case queryir.AggCount, queryir.AggApproxCountDistinct:
		if a.Distinct {
			return "COUNT(DISTINCT " + col + ")", nil
		}
		return "COUNT(" + col + ")", nil
	case queryir.AggSum, queryir.AggMin, queryir.AggMax:
		return string(a.Func) + "(" + col + ")", nil
	}
	return "", fmt.Errorf("unsupported aggregate %s", a.Func)
}

func (c *compilation) whereClause() (string, error) {
	if c.plan.Filter == nil {
		return "", nil
	}
	cond, err := c.filterSQL(c.plan.Filter)
	if err != nil {
		return "", fmt.Errorf("compile filter: %w", err)
	}
	return " WHERE " + cond, nil
}

// havingClause filters grouped rows. Leaves read dimensions and
// aggregators of the g subquery.
func (c *compilation) havingClause() (string, error) {
	p := c.plan
	if p.Having == nil {
		return "", nil
	}
	c.grouped = make(map[string]source, len(p.Dimensions)+len(p.Aggregators))
	for _, d := range p.Dimensions {
		c.grouped[d.Name] = source{typ: d.OutputType, json: !d.MultiValue && store.IsJSONType(d.OutputType)}
	}
	for _, a := range p.Aggregators {
		c.grouped[a.Name] = source{typ: a.OutputType}
	}
	c.alias = "g"
	defer func() {
		c.grouped = nil
		c.alias = "s"
	}()

	cond, err := c.filterSQL(p.Having)
	if err != nil {
		return "", fmt.Errorf("compile having: %w", err)
	}
	return " WHERE " + cond, nil
}

// orderings maps the plan's orderings onto result columns.
func (c *compilation) orderings() ([]string, error) {
	var out []string
	for _, o := range c.plan.OrderBy {
		idx := -1
		for i, pr := range c.plan.Projections {
			if pr.Name == o.Column {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("ORDER BY column %s is not selected", o.Column)
		}
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		out = append(out, resultColumn(idx)+" "+dir)
	}
	return out, nil
}

// resultColumn names the i-th result column.
func resultColumn(i int) string {
	return fmt.Sprintf(`"c%d"`, i)
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
