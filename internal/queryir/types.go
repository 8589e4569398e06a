package queryir

import (
	"github.com/roach88/nestq/internal/ir"
)

// Expr is a value-producing node.
//
// This is a sealed interface - only types in this package implement it.
type Expr interface {
	exprNode() // Marker method - seals interface to this package
}

// Predicate is a boolean node used in WHERE.
//
// This is a sealed interface - only types in this package implement it.
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Column references a physical column of the data source (or of the joined
// table when Table names it).
type Column struct {
	Table string // empty = the query's data source
	Name  string
}

func (Column) exprNode() {}

// Literal is a constant. Its ir type drives filter operator typing:
// ir.Long => LONG, ir.Double => DOUBLE, ir.String => STRING.
type Literal struct {
	Value ir.Value
}

func (Literal) exprNode() {}

// Behavior is an ON EMPTY / ON ERROR clause.
type Behavior int

const (
	// BehaviorNull is NULL ON EMPTY / NULL ON ERROR, the default.
	BehaviorNull Behavior = iota
	// BehaviorError is ERROR ON EMPTY / ERROR ON ERROR.
	BehaviorError
	// BehaviorDefault is DEFAULT <expr> ON EMPTY / ON ERROR.
	BehaviorDefault
)

func (b Behavior) String() string {
	switch b {
	case BehaviorError:
		return "ERROR"
	case BehaviorDefault:
		return "DEFAULT"
	}
	return "NULL"
}

// JSONValue is JSON_VALUE(input, path [RETURNING type] [... ON EMPTY] [... ON ERROR]).
// Returning is ir.Unknown when no RETURNING clause was written.
type JSONValue struct {
	Input     Expr
	Path      string
	Returning ir.ExtractionType
	OnEmpty   Behavior
	OnError   Behavior
}

func (JSONValue) exprNode() {}

// JSONQuery is JSON_QUERY(input, path): the sub-document at path.
type JSONQuery struct {
	Input Expr
	Path  string
}

func (JSONQuery) exprNode() {}

// JSONQueryArray is JSON_QUERY_ARRAY(input, path): the array of objects at path.
type JSONQueryArray struct {
	Input Expr
	Path  string
}

func (JSONQueryArray) exprNode() {}

// JSONKeys is JSON_KEYS(input, path).
type JSONKeys struct {
	Input Expr
	Path  string
}

func (JSONKeys) exprNode() {}

// JSONPaths is JSON_PATHS(input).
type JSONPaths struct {
	Input Expr
}

func (JSONPaths) exprNode() {}

// ObjectField is one KEY k VALUE v pair of JSON_OBJECT.
type ObjectField struct {
	Key   string
	Value Expr
}

// JSONObject is JSON_OBJECT(KEY k1 VALUE v1, ...).
type JSONObject struct {
	Fields []ObjectField
}

func (JSONObject) exprNode() {}

// Cast is CAST(input AS type).
type Cast struct {
	Input Expr
	Type  ir.ExtractionType
}

func (Cast) exprNode() {}

// Coalesce is COALESCE(arg0, arg1, ...).
type Coalesce struct {
	Args []Expr
}

func (Coalesce) exprNode() {}

// ArrayToMV is ARRAY_TO_MV(input): treat an array as a multi-value dimension.
type ArrayToMV struct {
	Input Expr
}

func (ArrayToMV) exprNode() {}

// UnnestRef reads the current element of the query's UNNEST clause.
type UnnestRef struct{}

func (UnnestRef) exprNode() {}

// AggFunc names an aggregation function.
type AggFunc string

const (
	AggCount               AggFunc = "COUNT"
	AggSum                 AggFunc = "SUM"
	AggMin                 AggFunc = "MIN"
	AggMax                 AggFunc = "MAX"
	AggApproxCountDistinct AggFunc = "APPROX_COUNT_DISTINCT"
)

// Aggregate is an aggregation over the grouped rows. Arg is nil for COUNT(*).
type Aggregate struct {
	Func     AggFunc
	Arg      Expr
	Distinct bool
}

func (Aggregate) exprNode() {}

// CompareOp is a binary comparison operator.
type CompareOp string

const (
	OpEq CompareOp = "="
	OpNe CompareOp = "<>"
	OpLt CompareOp = "<"
	OpLe CompareOp = "<="
	OpGt CompareOp = ">"
	OpGe CompareOp = ">="
)

// Valid reports whether op is a known operator.
func (op CompareOp) Valid() bool {
	switch op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return true
	}
	return false
}

// Flip returns the operator with its operands swapped (a < b == b > a).
func (op CompareOp) Flip() CompareOp {
	switch op {
	case OpLt:
		return OpGt
	case OpLe:
		return OpGe
	case OpGt:
		return OpLt
	case OpGe:
		return OpLe
	}
	return op
}

// Compare is Left <op> Right.
type Compare struct {
	Left  Expr
	Op    CompareOp
	Right Expr
}

func (Compare) predicateNode() {}

// Between is Expr BETWEEN Low AND High (both bounds inclusive).
type Between struct {
	Expr Expr
	Low  Expr
	High Expr
}

func (Between) predicateNode() {}

// Like is Expr LIKE Pattern with % and _ wildcards.
type Like struct {
	Expr    Expr
	Pattern string
}

func (Like) predicateNode() {}

// In is Expr IN (Values...). Values are literals.
type In struct {
	Expr   Expr
	Values []Expr
}

func (In) predicateNode() {}

// IsNull is Expr IS NULL, or IS NOT NULL when Negate is set.
type IsNull struct {
	Expr   Expr
	Negate bool
}

func (IsNull) predicateNode() {}

// And is a conjunction (empty = always true).
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Or is a disjunction (empty = always false).
type Or struct {
	Predicates []Predicate
}

func (Or) predicateNode() {}

// Not negates a predicate.
type Not struct {
	Predicate Predicate
}

func (Not) predicateNode() {}

// SelectItem is one projected expression.
type SelectItem struct {
	Expr  Expr
	Alias string
}

// JoinClause is an inner equi-join against another table.
// LeftKey is evaluated against the data source; RightColumn names a column
// of Table.
type JoinClause struct {
	Table       string
	LeftKey     Expr
	RightColumn string
}

// UnnestClause is CROSS JOIN UNNEST(Input) AS Alias.
type UnnestClause struct {
	Input Expr
	Alias string
}

// OrderItem orders by a 1-based select ordinal.
type OrderItem struct {
	Ordinal int
	Desc    bool
}

// Query is one SELECT statement.
//
// Semantics:
//
//	SELECT <Select> FROM <DataSource> [JOIN ...] [CROSS JOIN UNNEST(...)]
//	WHERE <Where> GROUP BY <GroupBy> HAVING <Having>
//	ORDER BY <OrderBy> LIMIT <Limit>
//
// GroupBy lists 1-based select ordinals. A query with aggregates and no
// GroupBy aggregates over all rows. Having filters grouped rows; its
// operands are aggregates or grouped select expressions.
type Query struct {
	DataSource string
	Join       *JoinClause
	Unnest     *UnnestClause
	Select     []SelectItem
	Where      Predicate
	GroupBy    []int
	Having     Predicate
	OrderBy    []OrderItem
	Limit      int
	// Context carries query context flags, e.g. useApproximateCountDistinct.
	Context map[string]any
}

// IsAggregate reports whether the query groups or aggregates.
func (q Query) IsAggregate() bool {
	if len(q.GroupBy) > 0 {
		return true
	}
	for _, item := range q.Select {
		if IsAggregateExpr(item.Expr) {
			return true
		}
	}
	return false
}

// IsAggregateExpr reports whether e is an Aggregate node.
func IsAggregateExpr(e Expr) bool {
	switch e.(type) {
	case Aggregate, *Aggregate:
		return true
	}
	return false
}

// Lit is a shorthand for a literal expression.
func Lit(v ir.Value) Literal {
	return Literal{Value: v}
}

// Col is a shorthand for a data source column.
func Col(name string) Column {
	return Column{Name: name}
}
