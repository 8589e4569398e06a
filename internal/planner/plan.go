package planner

import (
	"fmt"
	"strings"

	"github.com/roach88/nestq/internal/filter"
	"github.com/roach88/nestq/internal/ir"
	"github.com/roach88/nestq/internal/queryir"
	"github.com/roach88/nestq/internal/vcol"
)

// UnnestColumn is the column name under which the current UNNEST element is
// visible to filters, dimensions and expression operators.
const UnnestColumn = "__unnest"

// JoinPrefix prefixes columns of the joined table.
const JoinPrefix = "j0."

// Plan is the compiled form of one query. Immutable after Plan() returns.
type Plan struct {
	QueryID    string
	DataSource string
	Join       *Join
	Unnest     *Unnest

	// VirtualColumns are in first-reference order; names are v0, v1, ...
	VirtualColumns []vcol.VirtualColumn

	// Filter is nil when the query has no WHERE clause.
	Filter filter.Filter

	// Dimensions and Aggregators are empty for non-aggregate queries.
	Dimensions  []Dimension
	Aggregators []Aggregator

	// Having filters grouped rows. Its leaves read dimension and aggregator
	// names; aggregators only HAVING reads are not projected.
	Having filter.Filter

	// Projections map output columns to what they read, in SELECT order.
	Projections []Projection

	// Bindings maps clause ids (where[0], select[1], group_by[0], agg[0],
	// having[0], unnest, join) to the operator serving them.
	Bindings map[string]string

	Signature []OutputColumn
	OrderBy   []Ordering
	Limit     int

	Vectorize       bool
	VectorizeReason string
}

// Join is an inner equi-join against another table.
type Join struct {
	Table string
	// LeftKey is the data source column or operator compared to RightColumn.
	LeftKey     string
	LeftType    ir.ExtractionType
	RightColumn string
	RightType   ir.ExtractionType
}

// Unnest is CROSS JOIN UNNEST over an array operator or column.
type Unnest struct {
	Alias string
	// Input names the operator or physical column holding the array.
	Input       string
	InputType   ir.ExtractionType
	ElementType ir.ExtractionType
}

// Dimension is one GROUP BY key.
type Dimension struct {
	Name       string
	Input      string
	OutputType ir.ExtractionType
	// MultiValue dimensions group each row under every element.
	MultiValue bool
}

// Aggregator is one aggregate output.
type Aggregator struct {
	Name string
	Func queryir.AggFunc
	// Input is empty for COUNT(*).
	Input      string
	InputType  ir.ExtractionType
	Distinct   bool
	OutputType ir.ExtractionType
}

// Projection is one output column.
type Projection struct {
	Name string
	// Source is an operator, physical column, dimension or aggregator name.
	Source     string
	Type       ir.ExtractionType
	MultiValue bool
}

// OutputColumn is one column of the result signature.
type OutputColumn struct {
	Name string
	Type ir.ExtractionType
}

// Ordering sorts results by an output column.
type Ordering struct {
	Column string
	Desc   bool
}

// IsAggregate reports whether the plan groups rows.
func (p *Plan) IsAggregate() bool {
	return len(p.Dimensions) > 0 || len(p.Aggregators) > 0
}

// VirtualColumn looks up an operator by name.
func (p *Plan) VirtualColumn(name string) (vcol.VirtualColumn, bool) {
	for _, vc := range p.VirtualColumns {
		if vc.Name == name {
			return vc, true
		}
	}
	return vcol.VirtualColumn{}, false
}

// Describe renders the plan as a deterministic value tree. The query id is
// left out so that equal queries describe equally.
func (p *Plan) Describe() ir.Object {
	vcs := make(ir.Array, len(p.VirtualColumns))
	for i, vc := range p.VirtualColumns {
		vcs[i] = ir.NewObject(
			ir.O("name", ir.String(vc.Name)),
			ir.O("kind", ir.String(vc.Kind)),
			ir.O("type", ir.String(vc.OutputType.String())),
			ir.O("definition", ir.String(vc.String())),
			ir.O("operator_id", ir.String(ir.OperatorID(vc.Key()))),
		)
	}

	dims := make(ir.Array, len(p.Dimensions))
	for i, d := range p.Dimensions {
		dims[i] = ir.NewObject(
			ir.O("name", ir.String(d.Name)),
			ir.O("input", ir.String(d.Input)),
			ir.O("type", ir.String(d.OutputType.String())),
			ir.O("multi_value", ir.Bool(d.MultiValue)),
		)
	}

	aggs := make(ir.Array, len(p.Aggregators))
	for i, a := range p.Aggregators {
		aggs[i] = ir.NewObject(
			ir.O("name", ir.String(a.Name)),
			ir.O("definition", ir.String(a.String())),
			ir.O("type", ir.String(a.OutputType.String())),
		)
	}

	sig := make(ir.Array, len(p.Signature))
	for i, c := range p.Signature {
		sig[i] = ir.NewObject(ir.O("name", ir.String(c.Name)), ir.O("type", ir.String(c.Type.String())))
	}

	bindings := make(ir.Object, len(p.Bindings))
	for k, v := range p.Bindings {
		bindings[k] = ir.String(v)
	}

	order := make(ir.Array, len(p.OrderBy))
	for i, o := range p.OrderBy {
		order[i] = ir.NewObject(ir.O("column", ir.String(o.Column)), ir.O("desc", ir.Bool(o.Desc)))
	}

	desc := ir.NewObject(
		ir.O("plan_version", ir.String(ir.PlanVersion)),
		ir.O("datasource", ir.String(p.DataSource)),
		ir.O("virtual_columns", vcs),
		ir.O("filter", ir.Null{}),
		ir.O("dimensions", dims),
		ir.O("aggregators", aggs),
		ir.O("signature", sig),
		ir.O("bindings", bindings),
		ir.O("order_by", order),
		ir.O("limit", ir.Long(p.Limit)),
		ir.O("vectorize", ir.Bool(p.Vectorize)),
	)
	if p.Filter != nil {
		desc["filter"] = ir.String(p.Filter.String())
	}
	if p.Having != nil {
		desc["having"] = ir.String(p.Having.String())
	}
	if p.Join != nil {
		desc["join"] = ir.NewObject(
			ir.O("table", ir.String(p.Join.Table)),
			ir.O("left", ir.String(p.Join.LeftKey)),
			ir.O("right", ir.String(p.Join.RightColumn)),
		)
	}
	if p.Unnest != nil {
		desc["unnest"] = ir.NewObject(
			ir.O("alias", ir.String(p.Unnest.Alias)),
			ir.O("input", ir.String(p.Unnest.Input)),
			ir.O("type", ir.String(p.Unnest.ElementType.String())),
		)
	}
	return desc
}

// Fingerprint is the content-addressed identity of Describe().
func (p *Plan) Fingerprint() (string, error) {
	return ir.PlanFingerprint(p.Describe())
}

func (a Aggregator) String() string {
	arg := "*"
	if a.Input != "" {
		arg = a.Input
		if a.Distinct {
			arg = "DISTINCT " + arg
		}
	}
	return fmt.Sprintf("%s(%s)", a.Func, arg)
}

// Explain renders a human-readable plan, one section per line group.
//
//	datasource: nested
//	virtual columns:
//	  v0:LONG nested-field(nest, $.mixed2)
//	filter: v0:LONG = 1
//	...
func (p *Plan) Explain() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "datasource: %s\n", p.DataSource)
	if p.Join != nil {
		fmt.Fprintf(&sb, "join: %s ON %s = %s%s\n", p.Join.Table, p.Join.LeftKey, JoinPrefix, p.Join.RightColumn)
	}
	if p.Unnest != nil {
		fmt.Fprintf(&sb, "unnest: %s AS %s:%s\n", p.Unnest.Input, p.Unnest.Alias, p.Unnest.ElementType)
	}
	if len(p.VirtualColumns) > 0 {
		sb.WriteString("virtual columns:\n")
		for _, vc := range p.VirtualColumns {
			fmt.Fprintf(&sb, "  %s\n", vc)
		}
	}
	if p.Filter != nil {
		fmt.Fprintf(&sb, "filter: %s\n", p.Filter)
	}
	if len(p.Dimensions) > 0 {
		sb.WriteString("dimensions:\n")
		for _, d := range p.Dimensions {
			mv := ""
			if d.MultiValue {
				mv = " (multi-value)"
			}
			fmt.Fprintf(&sb, "  %s <- %s:%s%s\n", d.Name, d.Input, d.OutputType, mv)
		}
	}
	if len(p.Aggregators) > 0 {
		sb.WriteString("aggregators:\n")
		for _, a := range p.Aggregators {
			fmt.Fprintf(&sb, "  %s <- %s:%s\n", a.Name, a, a.OutputType)
		}
	}
	if p.Having != nil {
		fmt.Fprintf(&sb, "having: %s\n", p.Having)
	}
	sb.WriteString("projections:\n")
	for _, pr := range p.Projections {
		fmt.Fprintf(&sb, "  %s <- %s\n", pr.Name, pr.Source)
	}
	cols := make([]string, len(p.Signature))
	for i, c := range p.Signature {
		cols[i] = c.Name + ":" + c.Type.String()
	}
	fmt.Fprintf(&sb, "signature: [%s]\n", strings.Join(cols, ", "))
	if len(p.OrderBy) > 0 {
		parts := make([]string, len(p.OrderBy))
		for i, o := range p.OrderBy {
			parts[i] = o.Column
			if o.Desc {
				parts[i] += " DESC"
			}
		}
		fmt.Fprintf(&sb, "order by: %s\n", strings.Join(parts, ", "))
	}
	if p.Limit > 0 {
		fmt.Fprintf(&sb, "limit: %d\n", p.Limit)
	}
	if p.Vectorize {
		sb.WriteString("vectorize: true\n")
	} else {
		fmt.Fprintf(&sb, "vectorize: false (%s)\n", p.VectorizeReason)
	}
	return sb.String()
}
