package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/nestq/internal/ir"
	"github.com/roach88/nestq/internal/native"
	"github.com/roach88/nestq/internal/planner"
	"github.com/roach88/nestq/internal/store"
)

// nativeSQL renders a native expression over the columns of the current
// layer, or of the grouped rows while compiling HAVING. The boolean
// reports whether the result is JSON text.
func (c *compilation) nativeSQL(e native.Expr) (string, bool, error) {
	switch n := e.(type) {
	case native.ColumnRef:
		src, err := c.source(n.Name)
		if err != nil {
			return "", false, err
		}
		return c.ref(n.Name), src.json, nil

	case native.VirtualRef:
		src, err := c.source(n.Name)
		if err != nil {
			return "", false, err
		}
		return c.ref(n.Name), src.json, nil

	case native.UnnestRef:
		return c.ref(planner.UnnestColumn), store.IsJSONType(n.Output), nil

	case native.Literal:
		return c.param(store.ToSQL(n.Value, false)), isContainer(n.Value), nil

	case native.FieldAccess:
		in, inJSON, err := c.nativeSQL(n.Input)
		if err != nil {
			return "", false, err
		}
		path, typ := c.param(n.Path.String()), c.param(n.Output.String())
		return fmt.Sprintf("nested_value(%s, %s, %s, %s, %s)", in, flag(inJSON), path, typ, flag(n.ArrayOfObjects)),
			n.ArrayOfObjects || store.IsJSONType(n.Output), nil

	case native.Keys:
		in, inJSON, err := c.nativeSQL(n.Input)
		if err != nil {
			return "", false, err
		}
		return fmt.Sprintf("nested_keys(%s, %s, %s)", in, flag(inJSON), c.param(n.Path.String())), true, nil

	case native.Paths:
		in, inJSON, err := c.nativeSQL(n.Input)
		if err != nil {
			return "", false, err
		}
		return fmt.Sprintf("nested_paths(%s, %s)", in, flag(inJSON)), true, nil

	case native.ObjectCtor:
		args := make([]string, 0, 3*len(n.Keys))
		for i, k := range n.Keys {
			key := c.param(k)
			v, vJSON, err := c.nativeSQL(n.Values[i])
			if err != nil {
				return "", false, err
			}
			args = append(args, key, v, flag(vJSON))
		}
		return "nested_object(" + strings.Join(args, ", ") + ")", true, nil

	case native.CastExpr:
		in, inJSON, err := c.nativeSQL(n.Input)
		if err != nil {
			return "", false, err
		}
		return fmt.Sprintf("nested_cast(%s, %s, %s)", in, flag(inJSON), c.param(n.Output.String())), store.IsJSONType(n.Output), nil

	case native.CoalesceExpr:
		out := n.Type()
		args := []string{c.param(out.String())}
		for _, a := range n.Args {
			v, vJSON, err := c.nativeSQL(a)
			if err != nil {
				return "", false, err
			}
			args = append(args, v, flag(vJSON))
		}
		return "nested_coalesce(" + strings.Join(args, ", ") + ")", store.IsJSONType(out), nil

	case native.MVExpr:
		in, inJSON, err := c.nativeSQL(n.Input)
		if err != nil {
			return "", false, err
		}
		return fmt.Sprintf("nested_mv(%s, %s)", in, flag(inJSON)), true, nil
	}
	return "", false, fmt.Errorf("unsupported native expression %T", e)
}

// param binds v and returns its placeholder.
func (c *compilation) param(v any) string {
	c.params = append(c.params, v)
	return "?"
}

func isContainer(v ir.Value) bool {
	switch v.(type) {
	case ir.Array, ir.Object:
		return true
	}
	return false
}
