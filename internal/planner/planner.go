package planner

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/roach88/nestq/internal/filter"
	"github.com/roach88/nestq/internal/ir"
	"github.com/roach88/nestq/internal/lattice"
	"github.com/roach88/nestq/internal/queryir"
	"github.com/roach88/nestq/internal/vcol"
)

// Planner compiles queries against one type summary.
type Planner struct {
	summary lattice.Summary
	cfg     Config
}

// New creates a Planner reading column and path types from summary.
//
// Options can be passed to configure typing, logging and id generation
// (e.g., WithTyping(TypingNatural)).
func New(summary lattice.Summary, opts ...Option) *Planner {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Planner{summary: summary, cfg: cfg}
}

// Config returns the effective configuration.
func (p *Planner) Config() Config {
	return p.cfg
}

// Plan compiles q. Errors are *Error values; see IsInvalidPath,
// IsUnsupportedOption and IsTypeIncompatibility.
func (p *Planner) Plan(q queryir.Query) (*Plan, error) {
	if err := queryir.Validate(q).Err(); err != nil {
		return nil, &Error{Code: ErrCodeInvalidQuery, Message: err.Error(), cause: err}
	}

	c := &compilation{
		summary:   p.summary,
		cfg:       p.cfg,
		logger:    p.cfg.Logger.With("datasource", q.DataSource),
		query:     q,
		reg:       vcol.NewRegistry(),
		bindings:  make(map[string]string),
		whereSeen: make(map[string]bool),
	}

	plan, err := c.compile()
	if err != nil {
		c.logger.Debug("planning failed", "error", err)
		return nil, err
	}
	plan.QueryID = p.cfg.IDs.Generate()

	c.logger.Debug("planned query",
		"query_id", plan.QueryID,
		"virtual_columns", len(plan.VirtualColumns),
		"dimensions", len(plan.Dimensions),
		"aggregators", len(plan.Aggregators),
		"vectorize", plan.Vectorize,
	)
	return plan, nil
}

// Clause names used for logging and bindings.
const (
	clauseUnnest  = "unnest"
	clauseJoin    = "join"
	clauseWhere   = "where"
	clauseSelect  = "select"
	clauseGroupBy = "group_by"
	clauseAgg     = "agg"
	clauseHaving  = "having"
)

// compilation is the private state of one Plan call.
type compilation struct {
	summary lattice.Summary
	cfg     Config
	logger  *slog.Logger
	query   queryir.Query
	reg     *vcol.Registry

	clause    string
	bindings  map[string]string
	whereSeen map[string]bool

	unnest *Unnest
	join   *Join
}

func (c *compilation) compile() (*Plan, error) {
	q := c.query

	if q.Unnest != nil {
		if err := c.planUnnest(*q.Unnest); err != nil {
			return nil, err
		}
	}
	if q.Join != nil {
		if err := c.planJoin(*q.Join); err != nil {
			return nil, err
		}
	}

	c.clause = clauseWhere
	f, err := filter.Translate(q.Where, c)
	if err != nil {
		return nil, err
	}

	c.clause = clauseSelect
	operands := make([]filter.Operand, len(q.Select))
	for i, item := range q.Select {
		if queryir.IsAggregateExpr(item.Expr) {
			continue
		}
		op, err := c.operand(item.Expr, ir.Unknown)
		if err != nil {
			return nil, err
		}
		operands[i] = op
		c.bind(fmt.Sprintf("%s[%d]", clauseSelect, i), op.Column)
	}

	plan := &Plan{
		DataSource: q.DataSource,
		Join:       c.join,
		Unnest:     c.unnest,
		Filter:     f,
		Limit:      q.Limit,
	}

	if q.IsAggregate() {
		if err := c.planAggregation(plan, operands); err != nil {
			return nil, err
		}
		c.clause = clauseHaving
		if plan.Having, err = filter.Translate(q.Having, &havingBinder{c: c, plan: plan}); err != nil {
			return nil, err
		}
	} else {
		for i, item := range q.Select {
			op := operands[i]
			plan.Projections = append(plan.Projections, Projection{
				Name:       outputName(i, item),
				Source:     op.Column,
				Type:       op.MatchType,
				MultiValue: op.MultiValue,
			})
		}
	}

	for _, pr := range plan.Projections {
		plan.Signature = append(plan.Signature, OutputColumn{Name: pr.Name, Type: pr.Type})
	}
	for _, o := range q.OrderBy {
		plan.OrderBy = append(plan.OrderBy, Ordering{Column: plan.Signature[o.Ordinal-1].Name, Desc: o.Desc})
	}

	plan.VirtualColumns = c.reg.Columns()
	plan.Bindings = c.bindings
	plan.Vectorize = true
	for _, vc := range plan.VirtualColumns {
		if !vc.Vectorizable() {
			plan.Vectorize = false
			plan.VectorizeReason = fmt.Sprintf("virtual column %s reads a negative array index", vc.Name)
			break
		}
	}
	return plan, nil
}

func (c *compilation) planAggregation(plan *Plan, operands []filter.Operand) error {
	q := c.query
	sources := make(map[int]Projection)

	c.clause = clauseGroupBy
	for k, ord := range q.GroupBy {
		op := operands[ord-1]
		d := Dimension{
			Name:       fmt.Sprintf("d%d", k),
			Input:      op.Column,
			OutputType: op.MatchType,
			MultiValue: op.MultiValue,
		}
		plan.Dimensions = append(plan.Dimensions, d)
		c.bind(fmt.Sprintf("%s[%d]", clauseGroupBy, k), op.Column)
		if _, seen := sources[ord-1]; !seen {
			sources[ord-1] = Projection{Source: d.Name, Type: d.OutputType, MultiValue: d.MultiValue}
		}
	}

	c.clause = clauseAgg
	for i, item := range q.Select {
		agg, ok := queryir.Deref(item.Expr).(queryir.Aggregate)
		if !ok {
			continue
		}
		n := len(plan.Aggregators)
		a, err := c.planAggregate(agg, fmt.Sprintf("a%d", n), fmt.Sprintf("%s[%d]", clauseAgg, n))
		if err != nil {
			return err
		}
		plan.Aggregators = append(plan.Aggregators, a)
		sources[i] = Projection{Source: a.Name, Type: a.OutputType}
	}

	for i, item := range q.Select {
		pr := sources[i]
		pr.Name = outputName(i, item)
		plan.Projections = append(plan.Projections, pr)
	}
	return nil
}

func (c *compilation) planAggregate(agg queryir.Aggregate, name, clauseID string) (Aggregator, error) {
	a := Aggregator{Name: name, Func: agg.Func, Distinct: agg.Distinct, OutputType: ir.LongType}
	if agg.Arg == nil {
		if agg.Func != queryir.AggCount {
			return Aggregator{}, newInvalidQueryError("%s requires an argument", agg.Func)
		}
		return a, nil
	}

	// SUM is a numeric context: untyped path functions plan as DOUBLE.
	hint := ir.Unknown
	if agg.Func == queryir.AggSum {
		hint = ir.DoubleType
	}
	op, err := c.operand(agg.Arg, hint)
	if err != nil {
		return Aggregator{}, err
	}
	if op.MultiValue {
		return Aggregator{}, newInvalidQueryError("cannot aggregate multi-value expression %s", queryir.Format(agg.Arg))
	}
	c.bind(clauseID, op.Column)
	a.Input, a.InputType = op.Column, op.MatchType

	switch agg.Func {
	case queryir.AggApproxCountDistinct:
		if op.MatchType == ir.ObjectType {
			return Aggregator{}, newApplyTypeError(string(agg.Func), op.MatchType)
		}
		a.Distinct = true
	case queryir.AggCount:
		if agg.Distinct && op.MatchType == ir.ObjectType && c.approxCountDistinct() {
			return Aggregator{}, newApproxCountDistinctError()
		}
	case queryir.AggSum:
		if !op.MatchType.IsNumeric() {
			return Aggregator{}, newApplyTypeError(string(agg.Func), op.MatchType)
		}
		a.OutputType = op.MatchType
	case queryir.AggMin, queryir.AggMax:
		if !op.MatchType.IsScalar() {
			return Aggregator{}, newApplyTypeError(string(agg.Func), op.MatchType)
		}
		a.OutputType = op.MatchType
	default:
		return Aggregator{}, newInvalidQueryError("unknown aggregate function %s", agg.Func)
	}
	return a, nil
}

// approxCountDistinct applies the query context override to the config.
func (c *compilation) approxCountDistinct() bool {
	switch v := c.query.Context[ContextApproximateCountDistinct].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return c.cfg.UseApproximateCountDistinct
}

func (c *compilation) planUnnest(u queryir.UnnestClause) error {
	c.clause = clauseUnnest
	op, err := c.operand(u.Input, ir.StringArrayType)
	if err != nil {
		return err
	}
	if op.MultiValue {
		return newInvalidQueryError("UNNEST input %s must be an array, not a multi-value expression", queryir.Format(u.Input))
	}
	c.unnest = &Unnest{
		Alias:       u.Alias,
		Input:       op.Column,
		InputType:   op.MatchType,
		ElementType: op.MatchType.ElementType(),
	}
	c.bind(clauseUnnest, op.Column)
	return nil
}

func (c *compilation) planJoin(j queryir.JoinClause) error {
	c.clause = clauseJoin
	right, ok := c.summary.Column(j.Table, j.RightColumn)
	if !ok {
		return newInvalidQueryError("column [%s] not found in table [%s]", j.RightColumn, j.Table)
	}
	left, err := c.operand(j.LeftKey, ir.Unknown)
	if err != nil {
		return err
	}
	if left.MatchType == ir.ObjectType || right.IsNested() {
		return newJoinTypeError()
	}
	c.join = &Join{
		Table:       j.Table,
		LeftKey:     left.Column,
		LeftType:    left.MatchType,
		RightColumn: right.Name,
		RightType:   right.Kind.ExtractionType(),
	}
	c.bind(clauseJoin, left.Column)
	return nil
}

// bind records that clauseID reads the operator name. Physical columns are
// not operators and are not recorded.
func (c *compilation) bind(clauseID, name string) {
	if _, ok := c.reg.Lookup(name); ok {
		c.bindings[clauseID] = name
	}
}

func outputName(i int, item queryir.SelectItem) string {
	if item.Alias != "" {
		return item.Alias
	}
	return fmt.Sprintf("EXPR$%d", i)
}
