package verify

import (
	"fmt"

	"github.com/juanmicrosoft/calor"
)

// Term represents a solver-level bit-vector expression. A term of width 1 is
// a boolean; comparisons produce width-1 terms and the logical connectives
// consume them, mirroring the backend's bool/bit-vector split.
type Term interface {
	term()
	String() string
}

func (*ConstantTerm) term() {}
func (*SymbolTerm) term()   {}
func (*BinaryTerm) term()   {}
func (*NotTerm) term()      {}

// TermWidth returns the bit width of the term.
func TermWidth(term Term) uint {
	switch term := term.(type) {
	case *ConstantTerm:
		return term.Width
	case *SymbolTerm:
		return term.Width
	case *NotTerm:
		return TermWidth(term.Term)
	case *BinaryTerm:
		if term.Op.IsCompare() {
			return calor.WidthBool
		}
		return TermWidth(term.LHS)
	default:
		panic("unreachable")
	}
}

// TermOp represents a binary term operation.
type TermOp int

// BinaryTerm operations.
const (
	term_arithmetic_op_begin = TermOp(iota)
	ADD
	SUB
	MUL
	UDIV
	SDIV
	UREM
	SREM
	AND
	OR
	term_arithmetic_op_end

	term_compare_op_begin
	EQ
	ULT
	ULE
	SLT
	SLE
	term_compare_op_end
)

var termOps = [...]string{
	ADD:  "add",
	SUB:  "sub",
	MUL:  "mul",
	UDIV: "udiv",
	SDIV: "sdiv",
	UREM: "urem",
	SREM: "srem",
	AND:  "and",
	OR:   "or",
	EQ:   "eq",
	ULT:  "ult",
	ULE:  "ule",
	SLT:  "slt",
	SLE:  "sle",
}

// String returns the string representation of the operation.
func (op TermOp) String() string {
	if op >= 0 && op < TermOp(len(termOps)) && termOps[op] != "" {
		return termOps[op]
	}
	return fmt.Sprintf("TermOp<%d>", op)
}

// IsCompare returns true if op is a comparison operator.
func (op TermOp) IsCompare() bool {
	return op > term_compare_op_begin && op < term_compare_op_end
}

// SymbolTerm represents a named free bit-vector variable, declared once per
// verification call for each parameter (and the result pseudo-variable).
type SymbolTerm struct {
	Name  string
	Width uint
}

// NewSymbolTerm returns a new instance of SymbolTerm.
func NewSymbolTerm(name string, width uint) *SymbolTerm {
	return &SymbolTerm{Name: name, Width: width}
}

// String returns the string representation of the term.
func (t *SymbolTerm) String() string {
	return fmt.Sprintf("(sym %s %d)", t.Name, t.Width)
}

// BinaryTerm represents an operation on two terms.
type BinaryTerm struct {
	Op  TermOp
	LHS Term
	RHS Term
}

// NewBinaryTerm returns a term for op applied to lhs & rhs. Constant operands
// are folded where the result is defined; division and remainder by a
// constant zero are left symbolic so the solver's total bit-vector division
// semantics apply instead of a host-side panic.
func NewBinaryTerm(op TermOp, lhs, rhs Term) Term {
	assert(TermWidth(lhs) == TermWidth(rhs), "binary term width mismatch: op=%s %d != %d", op, TermWidth(lhs), TermWidth(rhs))

	switch op {
	case ADD:
		return newAddTerm(lhs, rhs)
	case SUB:
		return newSubTerm(lhs, rhs)
	case MUL:
		return newMulTerm(lhs, rhs)
	case UDIV, SDIV:
		return newDivTerm(op, lhs, rhs)
	case UREM, SREM:
		return newRemTerm(op, lhs, rhs)
	case AND:
		return newAndTerm(lhs, rhs)
	case OR:
		return newOrTerm(lhs, rhs)
	case EQ:
		return newEqTerm(lhs, rhs)
	case ULT:
		return newUltTerm(lhs, rhs)
	case ULE:
		return newUleTerm(lhs, rhs)
	case SLT:
		return newSltTerm(lhs, rhs)
	case SLE:
		return newSleTerm(lhs, rhs)
	default:
		panic("unreachable")
	}
}

// String returns the string representation of the term.
func (t *BinaryTerm) String() string {
	return fmt.Sprintf("(%s %s %s)", t.Op, t.LHS, t.RHS)
}

// newAddTerm returns the term representing the sum of lhs & rhs.
func newAddTerm(lhs, rhs Term) Term {
	// Move constant to left hand side.
	if !IsConstantTerm(lhs) && IsConstantTerm(rhs) {
		lhs, rhs = rhs, lhs
	}
	if lhs, ok := lhs.(*ConstantTerm); ok {
		if lhs.Value == 0 {
			return rhs
		} else if rhs, ok := rhs.(*ConstantTerm); ok {
			return lhs.Add(rhs)
		}
	}
	return &BinaryTerm{Op: ADD, LHS: lhs, RHS: rhs}
}

// newSubTerm returns the term representing the difference of lhs & rhs.
func newSubTerm(lhs, rhs Term) Term {
	if lhs, ok := lhs.(*ConstantTerm); ok {
		if rhs, ok := rhs.(*ConstantTerm); ok {
			return lhs.Sub(rhs)
		}
	}
	if rhs, ok := rhs.(*ConstantTerm); ok && rhs.Value == 0 {
		return lhs
	}
	return &BinaryTerm{Op: SUB, LHS: lhs, RHS: rhs}
}

// newMulTerm returns the term representing the product of lhs & rhs.
func newMulTerm(lhs, rhs Term) Term {
	if !IsConstantTerm(lhs) && IsConstantTerm(rhs) {
		lhs, rhs = rhs, lhs
	}
	if lhs, ok := lhs.(*ConstantTerm); ok {
		if rhs, ok := rhs.(*ConstantTerm); ok {
			return lhs.Mul(rhs)
		}
		if lhs.Value == 1 {
			return rhs
		} else if lhs.Value == 0 {
			return lhs
		}
	}
	return &BinaryTerm{Op: MUL, LHS: lhs, RHS: rhs}
}

// newDivTerm returns the term representing the quotient of lhs & rhs.
func newDivTerm(op TermOp, lhs, rhs Term) Term {
	if lhs, ok := lhs.(*ConstantTerm); ok {
		if rhs, ok := rhs.(*ConstantTerm); ok && rhs.Value != 0 {
			if op == UDIV {
				return lhs.UDiv(rhs)
			}
			return lhs.SDiv(rhs)
		}
	}
	return &BinaryTerm{Op: op, LHS: lhs, RHS: rhs}
}

// newRemTerm returns the term representing the remainder of lhs divided by rhs.
func newRemTerm(op TermOp, lhs, rhs Term) Term {
	if lhs, ok := lhs.(*ConstantTerm); ok {
		if rhs, ok := rhs.(*ConstantTerm); ok && rhs.Value != 0 {
			if op == UREM {
				return lhs.URem(rhs)
			}
			return lhs.SRem(rhs)
		}
	}
	return &BinaryTerm{Op: op, LHS: lhs, RHS: rhs}
}

// newAndTerm returns the conjunction of two boolean terms.
func newAndTerm(lhs, rhs Term) Term {
	if !IsConstantTerm(lhs) && IsConstantTerm(rhs) {
		lhs, rhs = rhs, lhs
	}
	if lhs, ok := lhs.(*ConstantTerm); ok && lhs.Width == calor.WidthBool {
		if lhs.IsTrue() {
			return rhs
		}
		return lhs
	}
	return &BinaryTerm{Op: AND, LHS: lhs, RHS: rhs}
}

// newOrTerm returns the disjunction of two boolean terms.
func newOrTerm(lhs, rhs Term) Term {
	if !IsConstantTerm(lhs) && IsConstantTerm(rhs) {
		lhs, rhs = rhs, lhs
	}
	if lhs, ok := lhs.(*ConstantTerm); ok && lhs.Width == calor.WidthBool {
		if lhs.IsTrue() {
			return lhs
		}
		return rhs
	}
	return &BinaryTerm{Op: OR, LHS: lhs, RHS: rhs}
}

// newEqTerm returns the term representing the equality of lhs & rhs.
func newEqTerm(lhs, rhs Term) Term {
	if !IsConstantTerm(lhs) && IsConstantTerm(rhs) {
		lhs, rhs = rhs, lhs
	}
	if lhs, ok := lhs.(*ConstantTerm); ok {
		if rhs, ok := rhs.(*ConstantTerm); ok {
			return lhs.Eq(rhs)
		}
	}
	return &BinaryTerm{Op: EQ, LHS: lhs, RHS: rhs}
}

// newUltTerm returns the unsigned less-than comparison of lhs & rhs.
func newUltTerm(lhs, rhs Term) Term {
	if lhs, ok := lhs.(*ConstantTerm); ok {
		if rhs, ok := rhs.(*ConstantTerm); ok {
			return lhs.Ult(rhs)
		}
	}
	return &BinaryTerm{Op: ULT, LHS: lhs, RHS: rhs}
}

// newUleTerm returns the unsigned less-or-equal comparison of lhs & rhs.
func newUleTerm(lhs, rhs Term) Term {
	if lhs, ok := lhs.(*ConstantTerm); ok {
		if rhs, ok := rhs.(*ConstantTerm); ok {
			return lhs.Ule(rhs)
		}
	}
	return &BinaryTerm{Op: ULE, LHS: lhs, RHS: rhs}
}

// newSltTerm returns the signed less-than comparison of lhs & rhs.
func newSltTerm(lhs, rhs Term) Term {
	if lhs, ok := lhs.(*ConstantTerm); ok {
		if rhs, ok := rhs.(*ConstantTerm); ok {
			return lhs.Slt(rhs)
		}
	}
	return &BinaryTerm{Op: SLT, LHS: lhs, RHS: rhs}
}

// newSleTerm returns the signed less-or-equal comparison of lhs & rhs.
func newSleTerm(lhs, rhs Term) Term {
	if lhs, ok := lhs.(*ConstantTerm); ok {
		if rhs, ok := rhs.(*ConstantTerm); ok {
			return lhs.Sle(rhs)
		}
	}
	return &BinaryTerm{Op: SLE, LHS: lhs, RHS: rhs}
}

// NotTerm represents the boolean negation of a term.
type NotTerm struct {
	Term Term
}

// NewNotTerm returns the negation of term.
func NewNotTerm(term Term) Term {
	if term, ok := term.(*ConstantTerm); ok && term.Width == calor.WidthBool {
		return NewBoolConstantTerm(!term.IsTrue())
	}
	return &NotTerm{Term: term}
}

// String returns the string representation of the term.
func (t *NotTerm) String() string {
	return fmt.Sprintf("(not %s)", t.Term)
}

// NewNegateTerm returns the two's-complement negation of term at its width.
func NewNegateTerm(term Term) Term {
	return NewBinaryTerm(SUB, NewConstantTerm(0, TermWidth(term)), term)
}

// ConstantTerm represents a fixed-width constant. The value is stored in the
// low Width bits; high bits are always zero.
type ConstantTerm struct {
	Value uint64
	Width uint
}

// NewConstantTerm returns a new instance of ConstantTerm, truncating value to width.
func NewConstantTerm(value uint64, width uint) *ConstantTerm {
	return &ConstantTerm{
		Value: value & bitmask(width),
		Width: width,
	}
}

// NewBoolConstantTerm returns a width-1 constant for a boolean value.
func NewBoolConstantTerm(value bool) *ConstantTerm {
	if value {
		return &ConstantTerm{Value: 1, Width: calor.WidthBool}
	}
	return &ConstantTerm{Value: 0, Width: calor.WidthBool}
}

// String returns the string representation of the term.
func (t *ConstantTerm) String() string {
	return fmt.Sprintf("(const %d %d)", t.Value, t.Width)
}

// IsTrue returns true if this is a boolean true term.
func (t *ConstantTerm) IsTrue() bool {
	return t.Width == calor.WidthBool && t.Value != 0
}

// IsFalse returns true if this is a boolean false term.
func (t *ConstantTerm) IsFalse() bool {
	return t.Width == calor.WidthBool && t.Value == 0
}

// Add returns the sum of t and other.
func (t *ConstantTerm) Add(other *ConstantTerm) *ConstantTerm {
	assert(t.Width == other.Width, "add: width mismatch: %d != %d", t.Width, other.Width)
	return NewConstantTerm(t.Value+other.Value, t.Width)
}

// Sub returns the difference of t and other.
func (t *ConstantTerm) Sub(other *ConstantTerm) *ConstantTerm {
	assert(t.Width == other.Width, "sub: width mismatch: %d != %d", t.Width, other.Width)
	return NewConstantTerm(t.Value-other.Value, t.Width)
}

// Mul returns the product of t and other.
func (t *ConstantTerm) Mul(other *ConstantTerm) *ConstantTerm {
	assert(t.Width == other.Width, "mul: width mismatch: %d != %d", t.Width, other.Width)
	return NewConstantTerm(t.Value*other.Value, t.Width)
}

// UDiv returns the quotient of unsigned division of t by other.
func (t *ConstantTerm) UDiv(other *ConstantTerm) *ConstantTerm {
	assert(t.Width == other.Width, "udiv: width mismatch: %d != %d", t.Width, other.Width)
	assert(other.Value != 0, "udiv: division by zero")
	switch t.Width {
	case calor.Width8:
		return NewConstantTerm(uint64(uint8(t.Value)/uint8(other.Value)), t.Width)
	case calor.Width16:
		return NewConstantTerm(uint64(uint16(t.Value)/uint16(other.Value)), t.Width)
	case calor.Width32:
		return NewConstantTerm(uint64(uint32(t.Value)/uint32(other.Value)), t.Width)
	case calor.Width64:
		return NewConstantTerm(t.Value/other.Value, t.Width)
	default:
		panic(fmt.Sprintf("udiv: non-standard width: %d", t.Width))
	}
}

// SDiv returns the quotient of signed division of t by other. Minimum value
// divided by negative one wraps back to the minimum value.
func (t *ConstantTerm) SDiv(other *ConstantTerm) *ConstantTerm {
	assert(t.Width == other.Width, "sdiv: width mismatch: %d != %d", t.Width, other.Width)
	assert(other.Value != 0, "sdiv: division by zero")
	switch t.Width {
	case calor.Width8:
		return NewConstantTerm(uint64(int8(t.Value)/int8(other.Value)), t.Width)
	case calor.Width16:
		return NewConstantTerm(uint64(int16(t.Value)/int16(other.Value)), t.Width)
	case calor.Width32:
		return NewConstantTerm(uint64(int32(t.Value)/int32(other.Value)), t.Width)
	case calor.Width64:
		return NewConstantTerm(uint64(int64(t.Value)/int64(other.Value)), t.Width)
	default:
		panic(fmt.Sprintf("sdiv: non-standard width: %d", t.Width))
	}
}

// URem returns the remainder of unsigned division of t by other.
func (t *ConstantTerm) URem(other *ConstantTerm) *ConstantTerm {
	assert(t.Width == other.Width, "urem: width mismatch: %d != %d", t.Width, other.Width)
	assert(other.Value != 0, "urem: division by zero")
	switch t.Width {
	case calor.Width8:
		return NewConstantTerm(uint64(uint8(t.Value)%uint8(other.Value)), t.Width)
	case calor.Width16:
		return NewConstantTerm(uint64(uint16(t.Value)%uint16(other.Value)), t.Width)
	case calor.Width32:
		return NewConstantTerm(uint64(uint32(t.Value)%uint32(other.Value)), t.Width)
	case calor.Width64:
		return NewConstantTerm(t.Value%other.Value, t.Width)
	default:
		panic(fmt.Sprintf("urem: non-standard width: %d", t.Width))
	}
}

// SRem returns the remainder of signed division of t by other.
func (t *ConstantTerm) SRem(other *ConstantTerm) *ConstantTerm {
	assert(t.Width == other.Width, "srem: width mismatch: %d != %d", t.Width, other.Width)
	assert(other.Value != 0, "srem: division by zero")
	switch t.Width {
	case calor.Width8:
		return NewConstantTerm(uint64(int8(t.Value)%int8(other.Value)), t.Width)
	case calor.Width16:
		return NewConstantTerm(uint64(int16(t.Value)%int16(other.Value)), t.Width)
	case calor.Width32:
		return NewConstantTerm(uint64(int32(t.Value)%int32(other.Value)), t.Width)
	case calor.Width64:
		return NewConstantTerm(uint64(int64(t.Value)%int64(other.Value)), t.Width)
	default:
		panic(fmt.Sprintf("srem: non-standard width: %d", t.Width))
	}
}

// Eq returns the equality comparison of t and other.
func (t *ConstantTerm) Eq(other *ConstantTerm) *ConstantTerm {
	assert(t.Width == other.Width, "eq: width mismatch: %d != %d", t.Width, other.Width)
	return NewBoolConstantTerm(t.Value == other.Value)
}

// Ult returns the unsigned less-than comparison of t to other.
func (t *ConstantTerm) Ult(other *ConstantTerm) *ConstantTerm {
	assert(t.Width == other.Width, "ult: width mismatch: %d != %d", t.Width, other.Width)
	return NewBoolConstantTerm(t.Value < other.Value)
}

// Ule returns the unsigned less-or-equal comparison of t to other.
func (t *ConstantTerm) Ule(other *ConstantTerm) *ConstantTerm {
	assert(t.Width == other.Width, "ule: width mismatch: %d != %d", t.Width, other.Width)
	return NewBoolConstantTerm(t.Value <= other.Value)
}

// Slt returns the signed less-than comparison of t to other.
func (t *ConstantTerm) Slt(other *ConstantTerm) *ConstantTerm {
	assert(t.Width == other.Width, "slt: width mismatch: %d != %d", t.Width, other.Width)
	return NewBoolConstantTerm(SignedValue(t.Value, t.Width) < SignedValue(other.Value, other.Width))
}

// Sle returns the signed less-or-equal comparison of t to other.
func (t *ConstantTerm) Sle(other *ConstantTerm) *ConstantTerm {
	assert(t.Width == other.Width, "sle: width mismatch: %d != %d", t.Width, other.Width)
	return NewBoolConstantTerm(SignedValue(t.Value, t.Width) <= SignedValue(other.Value, other.Width))
}

// IsConstantTerm returns true if term is an instance of ConstantTerm.
func IsConstantTerm(term Term) bool {
	_, ok := term.(*ConstantTerm)
	return ok
}

// SignedValue returns the two's-complement interpretation of the low width
// bits of value.
func SignedValue(value uint64, width uint) int64 {
	return int64(value<<(64-width)) >> (64 - width)
}

func bitmask(width uint) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return (1 << width) - 1
}

// assert panics if condition is false.
func assert(condition bool, format string, args ...interface{}) {
	if !condition {
		panic(fmt.Sprintf("assert: "+format, args...))
	}
}
