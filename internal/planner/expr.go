package planner

import (
	"fmt"

	"github.com/roach88/nestq/internal/filter"
	"github.com/roach88/nestq/internal/ir"
	"github.com/roach88/nestq/internal/jsonpath"
	"github.com/roach88/nestq/internal/lattice"
	"github.com/roach88/nestq/internal/native"
	"github.com/roach88/nestq/internal/queryir"
	"github.com/roach88/nestq/internal/vcol"
)

// Bind implements filter.Binder: the operand serving e at type t.
func (c *compilation) Bind(e queryir.Expr, t ir.ExtractionType) (filter.Operand, error) {
	return c.operand(e, t)
}

// BindDisplay implements filter.Binder: the operand serving e in SELECT.
func (c *compilation) BindDisplay(e queryir.Expr) (filter.Operand, error) {
	return c.operand(e, ir.Unknown)
}

// Native implements filter.Binder.
func (c *compilation) Native(e queryir.Expr) (native.Expr, error) {
	return c.nativeOf(e, ir.Unknown)
}

// columnRef is a resolved physical column.
type columnRef struct {
	info   lattice.ColumnInfo
	name   string // name as seen by operators and filters
	joined bool
}

func (r columnRef) operand() filter.Operand {
	return filter.Operand{Column: r.name, MatchType: r.info.Kind.ExtractionType()}
}

func (c *compilation) resolveColumn(col queryir.Column) (columnRef, error) {
	q := c.query
	if col.Table == "" || col.Table == q.DataSource {
		if info, ok := c.summary.Column(q.DataSource, col.Name); ok {
			return columnRef{info: info, name: info.Name}, nil
		}
		if col.Table == "" && c.unnest != nil && col.Name == c.unnest.Alias {
			return columnRef{
				info: lattice.ColumnInfo{Name: UnnestColumn, Kind: columnKindOf(c.unnest.ElementType)},
				name: UnnestColumn,
			}, nil
		}
		return columnRef{}, newInvalidQueryError("column [%s] not found in table [%s]", col.Name, q.DataSource)
	}
	if q.Join != nil && col.Table == q.Join.Table {
		info, ok := c.summary.Column(col.Table, col.Name)
		if !ok {
			return columnRef{}, newInvalidQueryError("column [%s] not found in table [%s]", col.Name, col.Table)
		}
		return columnRef{info: info, name: JoinPrefix + info.Name, joined: true}, nil
	}
	return columnRef{}, newInvalidQueryError("unknown table [%s]", col.Table)
}

// columnKindOf maps an unnest element type back to a column kind.
func columnKindOf(t ir.ExtractionType) lattice.ColumnKind {
	switch t {
	case ir.LongType:
		return lattice.ColumnLong
	case ir.DoubleType:
		return lattice.ColumnDouble
	case ir.ObjectType:
		return lattice.ColumnNested
	}
	return lattice.ColumnString
}

// operand returns what a filter leaf, dimension or projection reads for e.
// hint is the requested type for untyped path functions (ir.Unknown for the
// display type).
func (c *compilation) operand(e queryir.Expr, hint ir.ExtractionType) (filter.Operand, error) {
	switch n := queryir.Deref(e).(type) {
	case nil:
		return filter.Operand{}, newInvalidQueryError("missing expression")
	case queryir.Column:
		ref, err := c.resolveColumn(n)
		if err != nil {
			return filter.Operand{}, err
		}
		return ref.operand(), nil
	case queryir.UnnestRef:
		if c.unnest == nil {
			return filter.Operand{}, newInvalidQueryError("UNNEST reference without an UNNEST clause")
		}
		return filter.Operand{Column: UnnestColumn, MatchType: c.unnest.ElementType}, nil
	case queryir.ArrayToMV:
		inner, err := c.nativeOf(n.Input, ir.StringArrayType)
		if err != nil {
			return filter.Operand{}, err
		}
		if inner.Type() == ir.ObjectType {
			return filter.Operand{}, newApplyTypeError("ARRAY_TO_MV", inner.Type())
		}
		vc := c.expression(native.MVExpr{Input: inner})
		return filter.Operand{Column: vc.Name, MatchType: vc.OutputType, MultiValue: true}, nil
	case queryir.Aggregate:
		return filter.Operand{}, newInvalidQueryError("aggregate %s is not allowed here", queryir.Format(n))
	}

	ne, err := c.nativeOf(e, hint)
	if err != nil {
		return filter.Operand{}, err
	}
	switch r := ne.(type) {
	case native.VirtualRef:
		return filter.Operand{Column: r.Name, MatchType: r.Output}, nil
	case native.ColumnRef:
		return filter.Operand{Column: r.Name, MatchType: r.Kind}, nil
	case native.UnnestRef:
		return filter.Operand{Column: UnnestColumn, MatchType: r.Output}, nil
	}
	vc := c.expression(ne)
	return filter.Operand{Column: vc.Name, MatchType: vc.OutputType}, nil
}

// nativeOf converts e into a native expression, registering the operators
// it reads along the way.
func (c *compilation) nativeOf(e queryir.Expr, hint ir.ExtractionType) (native.Expr, error) {
	switch n := queryir.Deref(e).(type) {
	case queryir.Literal:
		return native.Literal{Value: n.Value}, nil

	case queryir.Column:
		ref, err := c.resolveColumn(n)
		if err != nil {
			return nil, err
		}
		if ref.joined {
			return nil, newInvalidQueryError("joined column [%s.%s] can only be referenced directly", n.Table, n.Name)
		}
		if ref.name == UnnestColumn {
			return native.UnnestRef{Output: c.unnest.ElementType}, nil
		}
		return native.ColumnRef{Name: ref.name, Kind: ref.info.Kind.ExtractionType()}, nil

	case queryir.UnnestRef:
		if c.unnest == nil {
			return nil, newInvalidQueryError("UNNEST reference without an UNNEST clause")
		}
		return native.UnnestRef{Output: c.unnest.ElementType}, nil

	case queryir.JSONValue, queryir.JSONQuery, queryir.JSONQueryArray:
		vc, err := c.pathOperator(n, hint)
		if err != nil {
			return nil, err
		}
		return vc.Ref(), nil

	case queryir.JSONKeys:
		path, err := parsePath(n.Path)
		if err != nil {
			return nil, err
		}
		in, err := c.nativeOf(n.Input, ir.Unknown)
		if err != nil {
			return nil, err
		}
		return c.expression(native.Keys{Input: in, Path: path}).Ref(), nil

	case queryir.JSONPaths:
		in, err := c.nativeOf(n.Input, ir.Unknown)
		if err != nil {
			return nil, err
		}
		return c.expression(native.Paths{Input: in}).Ref(), nil

	case queryir.JSONObject:
		obj := native.ObjectCtor{
			Keys:   make([]string, len(n.Fields)),
			Values: make([]native.Expr, len(n.Fields)),
		}
		for i, f := range n.Fields {
			v, err := c.nativeOf(f.Value, ir.Unknown)
			if err != nil {
				return nil, err
			}
			obj.Keys[i], obj.Values[i] = f.Key, v
		}
		return obj, nil

	case queryir.Cast:
		// CAST over an untyped JSON_VALUE is a RETURNING clause.
		if jv, ok := queryir.Deref(n.Input).(queryir.JSONValue); ok && jv.Returning == ir.Unknown {
			jv.Returning = n.Type
			return c.nativeOf(jv, ir.Unknown)
		}
		in, err := c.nativeOf(n.Input, ir.Unknown)
		if err != nil {
			return nil, err
		}
		if in.Type() == n.Type {
			return in, nil
		}
		return native.CastExpr{Input: in, Output: n.Type}, nil

	case queryir.Coalesce:
		argHint := hint
		if argHint == ir.Unknown {
			for _, a := range n.Args {
				if lit, ok := queryir.Deref(a).(queryir.Literal); ok && !ir.IsNull(lit.Value) {
					argHint = ir.TypeOf(lit.Value)
					break
				}
			}
		}
		args := make([]native.Expr, len(n.Args))
		for i, a := range n.Args {
			ne, err := c.nativeOf(a, argHint)
			if err != nil {
				return nil, err
			}
			args[i] = ne
		}
		if len(args) == 1 {
			return args[0], nil
		}
		return native.CoalesceExpr{Args: args}, nil

	case queryir.ArrayToMV:
		return nil, newInvalidQueryError("%s can only be selected, grouped on or filtered directly", queryir.Format(n))

	case queryir.Aggregate:
		return nil, newInvalidQueryError("aggregate %s is not allowed here", queryir.Format(n))
	}
	return nil, newInvalidQueryError("unsupported expression %T", e)
}

// pathOperator plans JSON_VALUE, JSON_QUERY and JSON_QUERY_ARRAY.
// Over a physical column it yields a field operator; over anything else an
// expression operator reading the planned inner expression.
func (c *compilation) pathOperator(e queryir.Expr, hint ir.ExtractionType) (vcol.VirtualColumn, error) {
	var (
		input          queryir.Expr
		rawPath        string
		t              ir.ExtractionType
		arrayOfObjects bool
	)
	jv, isValue := e.(queryir.JSONValue)
	switch n := e.(type) {
	case queryir.JSONValue:
		if n.OnEmpty != queryir.BehaviorNull {
			return vcol.VirtualColumn{}, newUnsupportedOptionError("ON EMPTY")
		}
		if n.OnError != queryir.BehaviorNull {
			return vcol.VirtualColumn{}, newUnsupportedOptionError("ON ERROR")
		}
		input, rawPath = n.Input, n.Path
	case queryir.JSONQuery:
		input, rawPath, t = n.Input, n.Path, ir.ObjectType
	case queryir.JSONQueryArray:
		input, rawPath, t, arrayOfObjects = n.Input, n.Path, ir.ObjectType, true
	}

	path, err := parsePath(rawPath)
	if err != nil {
		return vcol.VirtualColumn{}, err
	}
	if isValue {
		t = c.valueType(jv, path, hint)
	}

	if col, ok := queryir.Deref(input).(queryir.Column); ok {
		ref, err := c.resolveColumn(col)
		if err != nil {
			return vcol.VirtualColumn{}, err
		}
		if ref.joined {
			return vcol.VirtualColumn{}, newInvalidQueryError("path functions over joined column [%s.%s] are not supported", col.Table, col.Name)
		}
		if ref.name != UnnestColumn {
			return c.field(ref.name, ref.info.Kind, path, t, arrayOfObjects), nil
		}
	}

	in, err := c.nativeOf(input, ir.Unknown)
	if err != nil {
		return vcol.VirtualColumn{}, err
	}
	return c.expression(native.FieldAccess{
		Input:          in,
		Path:           path,
		Output:         t,
		ArrayOfObjects: arrayOfObjects,
	}), nil
}

// valueType picks the output type of a JSON_VALUE:
// RETURNING > hint > natural type (TypingNatural only) > STRING.
func (c *compilation) valueType(jv queryir.JSONValue, path jsonpath.Path, hint ir.ExtractionType) ir.ExtractionType {
	if jv.Returning != ir.Unknown {
		return jv.Returning
	}
	natural, known := c.naturalType(jv.Input, path)
	if hint.IsArray() {
		if known && natural.IsArray() {
			return natural
		}
		return hint
	}
	if hint != ir.Unknown {
		return hint
	}
	if known && natural != ir.ObjectType {
		return natural
	}
	return ir.StringType
}

// naturalType is the display type of the stored values under path, when
// natural typing is on and the input is a data source column. Variant paths
// report STRING.
func (c *compilation) naturalType(input queryir.Expr, path jsonpath.Path) (ir.ExtractionType, bool) {
	if c.cfg.Typing != TypingNatural {
		return ir.Unknown, false
	}
	col, ok := queryir.Deref(input).(queryir.Column)
	if !ok || (col.Table != "" && col.Table != c.query.DataSource) {
		return ir.Unknown, false
	}
	w := c.summary.TypeAt(c.query.DataSource, col.Name, path)
	if w.Kind() == lattice.KindUnknown {
		return ir.Unknown, false
	}
	return w.DisplayType(), true
}

func parsePath(raw string) (jsonpath.Path, error) {
	p, err := jsonpath.Parse(raw)
	if err != nil {
		return jsonpath.Path{}, newInvalidPathError(raw, err)
	}
	return p, nil
}

func (c *compilation) field(column string, kind lattice.ColumnKind, path jsonpath.Path, t ir.ExtractionType, arrayOfObjects bool) vcol.VirtualColumn {
	vc, created := c.reg.Field(column, kind, path, t, arrayOfObjects)
	c.noteOperator(vc, created)
	return vc
}

func (c *compilation) expression(e native.Expr) vcol.VirtualColumn {
	vc, created := c.reg.Expression(e)
	c.noteOperator(vc, created)
	return vc
}

// noteOperator logs new operators and records every operator WHERE reads,
// in first-use order.
func (c *compilation) noteOperator(vc vcol.VirtualColumn, created bool) {
	if created {
		c.logger.Debug("created operator", "clause", c.clause, "operator", vc.String())
	}
	if c.clause == clauseWhere && !c.whereSeen[vc.Name] {
		c.bindings[fmt.Sprintf("%s[%d]", clauseWhere, len(c.whereSeen))] = vc.Name
		c.whereSeen[vc.Name] = true
	}
}
