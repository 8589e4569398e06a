package queryir

// Deref returns the value form of a pointer node so callers can switch on
// value types only. nil stays nil.
func Deref(e Expr) Expr {
	switch n := e.(type) {
	case *Column:
		return derefOr(n)
	case *Literal:
		return derefOr(n)
	case *JSONValue:
		return derefOr(n)
	case *JSONQuery:
		return derefOr(n)
	case *JSONQueryArray:
		return derefOr(n)
	case *JSONKeys:
		return derefOr(n)
	case *JSONPaths:
		return derefOr(n)
	case *JSONObject:
		return derefOr(n)
	case *Cast:
		return derefOr(n)
	case *Coalesce:
		return derefOr(n)
	case *ArrayToMV:
		return derefOr(n)
	case *UnnestRef:
		return derefOr(n)
	case *Aggregate:
		return derefOr(n)
	}
	return e
}

// DerefPredicate is Deref for predicates.
func DerefPredicate(p Predicate) Predicate {
	switch n := p.(type) {
	case *Compare:
		return derefPredOr(n)
	case *Between:
		return derefPredOr(n)
	case *Like:
		return derefPredOr(n)
	case *In:
		return derefPredOr(n)
	case *IsNull:
		return derefPredOr(n)
	case *And:
		return derefPredOr(n)
	case *Or:
		return derefPredOr(n)
	case *Not:
		return derefPredOr(n)
	}
	return p
}

func derefOr[T Expr](n *T) Expr {
	if n == nil {
		return nil
	}
	return *n
}

func derefPredOr[T Predicate](n *T) Predicate {
	if n == nil {
		return nil
	}
	return *n
}
