package verify

import (
	"errors"
	"fmt"

	"github.com/benbjohnson/immutable"
	"github.com/juanmicrosoft/calor"
)

// errUnsupported marks an expression outside the decidable fragment. It
// aborts translation and surfaces as StatusUnsupported, never as an error
// returned to the caller.
var errUnsupported = errors.New("unsupported expression")

// defaultType is assumed for comparisons in which neither operand carries a
// declared type, e.g. a comparison between two bare literals.
var defaultType = calor.I64

// symbolTable maps parameter names to their declared solver symbols. It is
// backed by a sorted immutable map so counterexample rendering always visits
// symbols in name order.
type symbolTable struct {
	m *immutable.SortedMap
}

type symbolEntry struct {
	name string
	typ  calor.IntType
	term *SymbolTerm
}

func newSymbolTable() *symbolTable {
	return &symbolTable{m: immutable.NewSortedMap(&stringComparer{})}
}

// declare binds name to a fresh symbol of the declared type. Redeclaring a
// name is a caller defect and fails loudly.
func (tbl *symbolTable) declare(name string, typ calor.IntType) error {
	if _, ok := tbl.m.Get(name); ok {
		return fmt.Errorf("verify: duplicate parameter name: %q", name)
	}
	tbl.m = tbl.m.Set(name, &symbolEntry{
		name: name,
		typ:  typ,
		term: NewSymbolTerm(name, typ.Width),
	})
	return nil
}

func (tbl *symbolTable) lookup(name string) (*symbolEntry, bool) {
	value, ok := tbl.m.Get(name)
	if !ok {
		return nil, false
	}
	return value.(*symbolEntry), true
}

// entries returns all declared symbols in name order.
func (tbl *symbolTable) entries() []*symbolEntry {
	entries := make([]*symbolEntry, 0, tbl.m.Len())
	itr := tbl.m.Iterator()
	for !itr.Done() {
		_, value := itr.Next()
		entries = append(entries, value.(*symbolEntry))
	}
	return entries
}

// stringComparer compares two string keys. Implements immutable.Comparer.
type stringComparer struct{}

// Compare returns -1 if a is less than b, returns 1 if a is greater than b,
// and returns 0 if a is equal to b. Panic if a or b is not a string.
func (c *stringComparer) Compare(a, b interface{}) int {
	if i, j := a.(string), b.(string); i < j {
		return -1
	} else if i > j {
		return 1
	}
	return 0
}

// translator lowers contract expression trees into solver terms against a
// fixed symbol table. It performs no type checking beyond what translation
// itself requires; ill-typed trees are reported as unsupported.
type translator struct {
	symbols *symbolTable
}

// translateCondition lowers a boolean expression into a width-1 term.
func (t *translator) translateCondition(expr calor.Expr) (Term, error) {
	switch expr := expr.(type) {
	case *calor.UnaryExpr:
		if expr.Op != calor.NOT {
			return nil, errUnsupported
		}
		src, err := t.translateCondition(expr.Expr)
		if err != nil {
			return nil, err
		}
		return NewNotTerm(src), nil

	case *calor.BinaryExpr:
		switch {
		case expr.Op.IsLogical():
			return t.translateLogical(expr)
		case expr.Op.IsCompare():
			return t.translateCompare(expr)
		default:
			return nil, errUnsupported
		}

	case *calor.CallExpr:
		return nil, errUnsupported

	default:
		// Literals and references are not boolean in this fragment.
		return nil, errUnsupported
	}
}

func (t *translator) translateLogical(expr *calor.BinaryExpr) (Term, error) {
	lhs, err := t.translateCondition(expr.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := t.translateCondition(expr.RHS)
	if err != nil {
		return nil, err
	}
	if expr.Op == calor.AND {
		return NewBinaryTerm(AND, lhs, rhs), nil
	}
	return NewBinaryTerm(OR, lhs, rhs), nil
}

func (t *translator) translateCompare(expr *calor.BinaryExpr) (Term, error) {
	typ, err := t.comparisonType(expr.LHS, expr.RHS)
	if err != nil {
		return nil, err
	}

	lhs, err := t.translateValue(expr.LHS, typ)
	if err != nil {
		return nil, err
	}
	rhs, err := t.translateValue(expr.RHS, typ)
	if err != nil {
		return nil, err
	}

	switch expr.Op {
	case calor.EQ:
		return NewBinaryTerm(EQ, lhs, rhs), nil
	case calor.NE:
		return NewNotTerm(NewBinaryTerm(EQ, lhs, rhs)), nil
	case calor.LT:
		if typ.Signed {
			return NewBinaryTerm(SLT, lhs, rhs), nil
		}
		return NewBinaryTerm(ULT, lhs, rhs), nil
	case calor.LE:
		if typ.Signed {
			return NewBinaryTerm(SLE, lhs, rhs), nil
		}
		return NewBinaryTerm(ULE, lhs, rhs), nil
	case calor.GT:
		if typ.Signed {
			return NewBinaryTerm(SLT, rhs, lhs), nil // reverse
		}
		return NewBinaryTerm(ULT, rhs, lhs), nil // reverse
	case calor.GE:
		if typ.Signed {
			return NewBinaryTerm(SLE, rhs, lhs), nil // reverse
		}
		return NewBinaryTerm(ULE, rhs, lhs), nil // reverse
	default:
		panic("unreachable")
	}
}

// translateValue lowers an arithmetic expression into a bit-vector term of
// the context type's width.
func (t *translator) translateValue(expr calor.Expr, typ calor.IntType) (Term, error) {
	switch expr := expr.(type) {
	case *calor.LiteralExpr:
		if err := checkLiteralRange(expr.Value, typ, false); err != nil {
			return nil, err
		}
		return NewConstantTerm(expr.Value, typ.Width), nil

	case *calor.RefExpr:
		entry, ok := t.symbols.lookup(expr.Name)
		if !ok {
			return nil, fmt.Errorf("verify: unresolved reference: %q", expr.Name)
		}
		if entry.typ.Width != typ.Width {
			return nil, errUnsupported // no implicit widening
		}
		return entry.term, nil

	case *calor.UnaryExpr:
		if expr.Op != calor.NEG {
			return nil, errUnsupported
		}
		if lit, ok := expr.Expr.(*calor.LiteralExpr); ok {
			if err := checkLiteralRange(lit.Value, typ, true); err != nil {
				return nil, err
			}
			return NewConstantTerm(-lit.Value, typ.Width), nil
		}
		src, err := t.translateValue(expr.Expr, typ)
		if err != nil {
			return nil, err
		}
		return NewNegateTerm(src), nil

	case *calor.BinaryExpr:
		if !expr.Op.IsArithmetic() {
			return nil, errUnsupported
		}
		return t.translateArithmetic(expr, typ)

	case *calor.CallExpr:
		return nil, errUnsupported

	default:
		panic("unreachable")
	}
}

func (t *translator) translateArithmetic(expr *calor.BinaryExpr, typ calor.IntType) (Term, error) {
	lhs, err := t.translateValue(expr.LHS, typ)
	if err != nil {
		return nil, err
	}
	rhs, err := t.translateValue(expr.RHS, typ)
	if err != nil {
		return nil, err
	}

	switch expr.Op {
	case calor.ADD:
		return NewBinaryTerm(ADD, lhs, rhs), nil
	case calor.SUB:
		return NewBinaryTerm(SUB, lhs, rhs), nil
	case calor.MUL:
		return NewBinaryTerm(MUL, lhs, rhs), nil
	case calor.DIV, calor.REM:
		// The division variant follows the signedness of the division's own
		// operands, not of the enclosing comparison.
		signed, err := t.divisionSignedness(expr, typ)
		if err != nil {
			return nil, err
		}
		if expr.Op == calor.DIV {
			if signed {
				return NewBinaryTerm(SDIV, lhs, rhs), nil
			}
			return NewBinaryTerm(UDIV, lhs, rhs), nil
		}
		if signed {
			return NewBinaryTerm(SREM, lhs, rhs), nil
		}
		return NewBinaryTerm(UREM, lhs, rhs), nil
	default:
		panic("unreachable")
	}
}

func (t *translator) divisionSignedness(expr *calor.BinaryExpr, typ calor.IntType) (bool, error) {
	operand, ok, err := t.mergedOperandType(expr.LHS, expr.RHS)
	if err != nil {
		return false, err
	}
	if !ok {
		return typ.Signed, nil
	}
	return operand.Signed, nil
}

// comparisonType determines the width and signedness governing a comparison:
// the declared operand type, signed if either side's declared type is signed.
// Operands with no declared type on either side default to 64-bit signed.
func (t *translator) comparisonType(lhs, rhs calor.Expr) (calor.IntType, error) {
	typ, ok, err := t.mergedOperandType(lhs, rhs)
	if err != nil {
		return calor.IntType{}, err
	}
	if !ok {
		return defaultType, nil
	}
	return typ, nil
}

// mergedOperandType combines the declared types found on either side of a
// binary operation. Differing widths are outside the fragment.
func (t *translator) mergedOperandType(lhs, rhs calor.Expr) (calor.IntType, bool, error) {
	ltyp, lok, err := t.operandType(lhs)
	if err != nil {
		return calor.IntType{}, false, err
	}
	rtyp, rok, err := t.operandType(rhs)
	if err != nil {
		return calor.IntType{}, false, err
	}

	switch {
	case lok && rok:
		if ltyp.Width != rtyp.Width {
			return calor.IntType{}, false, errUnsupported
		}
		return calor.IntType{Width: ltyp.Width, Signed: ltyp.Signed || rtyp.Signed}, true, nil
	case lok:
		return ltyp, true, nil
	case rok:
		return rtyp, true, nil
	default:
		return calor.IntType{}, false, nil
	}
}

// operandType returns the declared type of an arithmetic subtree, if any part
// of it carries one.
func (t *translator) operandType(expr calor.Expr) (calor.IntType, bool, error) {
	switch expr := expr.(type) {
	case *calor.LiteralExpr:
		return calor.IntType{}, false, nil

	case *calor.RefExpr:
		entry, ok := t.symbols.lookup(expr.Name)
		if !ok {
			return calor.IntType{}, false, fmt.Errorf("verify: unresolved reference: %q", expr.Name)
		}
		return entry.typ, true, nil

	case *calor.UnaryExpr:
		if expr.Op != calor.NEG {
			return calor.IntType{}, false, errUnsupported
		}
		return t.operandType(expr.Expr)

	case *calor.BinaryExpr:
		if !expr.Op.IsArithmetic() {
			return calor.IntType{}, false, errUnsupported
		}
		return t.mergedOperandType(expr.LHS, expr.RHS)

	case *calor.CallExpr:
		return calor.IntType{}, false, errUnsupported

	default:
		panic("unreachable")
	}
}

// checkLiteralRange verifies that a literal fits its context type. Negated
// literals may extend to the minimum representable signed value; in unsigned
// contexts negation wraps and any representable magnitude is allowed.
func checkLiteralRange(value uint64, typ calor.IntType, negated bool) error {
	max := bitmask(typ.Width)
	if typ.Signed {
		max >>= 1
		if negated {
			max++ // two's complement: |min| == max+1
		}
	}
	if value > max {
		if negated {
			return fmt.Errorf("verify: literal -%d out of range for %d-bit operand", value, typ.Width)
		}
		return fmt.Errorf("verify: literal %d out of range for %d-bit operand", value, typ.Width)
	}
	return nil
}
