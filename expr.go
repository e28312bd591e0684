package calor

import (
	"fmt"
	"strings"
)

// Expr represents a node in a contract clause expression tree. Trees are
// produced by the parser (or constructed directly by tooling) and are treated
// as read-only by every consumer.
type Expr interface {
	expr()
	String() string
}

func (*LiteralExpr) expr() {}
func (*RefExpr) expr()     {}
func (*UnaryExpr) expr()   {}
func (*BinaryExpr) expr()  {}
func (*CallExpr) expr()    {}

// UnaryOp represents a unary expression operation.
type UnaryOp int

// UnaryExpr operations.
const (
	NEG = UnaryOp(iota + 1)
	NOT
)

// String returns the string representation of the operation.
func (op UnaryOp) String() string {
	switch op {
	case NEG:
		return "neg"
	case NOT:
		return "not"
	default:
		return fmt.Sprintf("UnaryOp<%d>", op)
	}
}

// BinaryOp represents a binary expression operation.
type BinaryOp int

// BinaryExpr operations.
const (
	arithmetic_op_begin = BinaryOp(iota)
	ADD
	SUB
	MUL
	DIV
	REM
	arithmetic_op_end

	compare_op_begin
	EQ
	NE
	LT
	LE
	GT
	GE
	compare_op_end

	logical_op_begin
	AND
	OR
	logical_op_end
)

var binaryOps = [...]string{
	ADD: "add",
	SUB: "sub",
	MUL: "mul",
	DIV: "div",
	REM: "rem",
	EQ:  "eq",
	NE:  "ne",
	LT:  "lt",
	LE:  "le",
	GT:  "gt",
	GE:  "ge",
	AND: "and",
	OR:  "or",
}

// String returns the string representation of the operation.
func (op BinaryOp) String() string {
	if op >= 0 && op < BinaryOp(len(binaryOps)) && binaryOps[op] != "" {
		return binaryOps[op]
	}
	return fmt.Sprintf("BinaryOp<%d>", op)
}

// IsArithmetic returns true if op is an arithmetic operator.
func (op BinaryOp) IsArithmetic() bool {
	return op > arithmetic_op_begin && op < arithmetic_op_end
}

// IsCompare returns true if op is a comparison operator.
func (op BinaryOp) IsCompare() bool {
	return op > compare_op_begin && op < compare_op_end
}

// IsLogical returns true if op is a logical connective.
func (op BinaryOp) IsLogical() bool {
	return op > logical_op_begin && op < logical_op_end
}

// LiteralExpr represents an integer literal. The value is stored as the raw
// magnitude; negative literals are represented as a NEG unary over the
// magnitude, which is how the parser emits them.
type LiteralExpr struct {
	Value uint64
}

// NewLiteralExpr returns a new instance of LiteralExpr.
func NewLiteralExpr(value uint64) *LiteralExpr {
	return &LiteralExpr{Value: value}
}

// String returns the string representation of the expression.
func (e *LiteralExpr) String() string {
	return fmt.Sprintf("(lit %d)", e.Value)
}

// RefExpr represents a reference to a declared parameter or to the "result"
// pseudo-variable inside a postcondition.
type RefExpr struct {
	Name string
}

// NewRefExpr returns a new instance of RefExpr.
func NewRefExpr(name string) *RefExpr {
	return &RefExpr{Name: name}
}

// String returns the string representation of the expression.
func (e *RefExpr) String() string {
	return fmt.Sprintf("(ref %s)", e.Name)
}

// UnaryExpr represents an operation on a single expression.
type UnaryExpr struct {
	Op   UnaryOp
	Expr Expr
}

// NewUnaryExpr returns a new instance of UnaryExpr.
func NewUnaryExpr(op UnaryOp, expr Expr) *UnaryExpr {
	assert(op == NEG || op == NOT, "invalid unary op: %d", op)
	return &UnaryExpr{Op: op, Expr: expr}
}

// String returns the string representation of the expression.
func (e *UnaryExpr) String() string {
	return fmt.Sprintf("(%s %s)", e.Op, e.Expr)
}

// BinaryExpr represents an operation on two expressions.
type BinaryExpr struct {
	Op  BinaryOp
	LHS Expr
	RHS Expr
}

// NewBinaryExpr returns a new instance of BinaryExpr.
func NewBinaryExpr(op BinaryOp, lhs, rhs Expr) *BinaryExpr {
	assert(op.IsArithmetic() || op.IsCompare() || op.IsLogical(), "invalid binary op: %d", op)
	return &BinaryExpr{Op: op, LHS: lhs, RHS: rhs}
}

// String returns the string representation of the expression.
func (e *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Op, e.LHS, e.RHS)
}

// CallExpr represents a function call. Calls are outside the decidable
// fragment; the verifier reports any tree containing one as unsupported.
type CallExpr struct {
	Name string
	Args []Expr
}

// NewCallExpr returns a new instance of CallExpr.
func NewCallExpr(name string, args ...Expr) *CallExpr {
	return &CallExpr{Name: name, Args: args}
}

// String returns the string representation of the expression.
func (e *CallExpr) String() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "(call %s", e.Name)
	for _, arg := range e.Args {
		buf.WriteByte(' ')
		buf.WriteString(arg.String())
	}
	buf.WriteByte(')')
	return buf.String()
}

// ContainsCall returns true if any node in the tree is a call expression.
func ContainsCall(expr Expr) bool {
	switch expr := expr.(type) {
	case *LiteralExpr, *RefExpr:
		return false
	case *UnaryExpr:
		return ContainsCall(expr.Expr)
	case *BinaryExpr:
		return ContainsCall(expr.LHS) || ContainsCall(expr.RHS)
	case *CallExpr:
		return true
	default:
		panic("unreachable")
	}
}

// References returns true if any node in the tree references name.
func References(expr Expr, name string) bool {
	switch expr := expr.(type) {
	case *LiteralExpr:
		return false
	case *RefExpr:
		return expr.Name == name
	case *UnaryExpr:
		return References(expr.Expr, name)
	case *BinaryExpr:
		return References(expr.LHS, name) || References(expr.RHS, name)
	case *CallExpr:
		for _, arg := range expr.Args {
			if References(arg, name) {
				return true
			}
		}
		return false
	default:
		panic("unreachable")
	}
}
