// Package z3 implements the verification solver backend on top of an
// embedded Z3 instance via cgo.
package z3

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
	"unsafe"

	"github.com/juanmicrosoft/calor"
	"github.com/juanmicrosoft/calor/verify"
)

/*
#cgo LDFLAGS: -lz3
#include <z3.h>
#include <stdlib.h>
*/
import "C"

// Ensure solver implements interface.
var _ verify.Solver = (*Solver)(nil)

// DefaultTimeout bounds a single satisfiability check unless overridden.
const DefaultTimeout = 30 * time.Second

// Solver represents a solver that uses an embedded Z3 solver. Every Solve
// call acquires a fresh Z3 context and releases it before returning, so a
// single Solver value may be shared by concurrent verification calls.
type Solver struct {
	// Timeout bounds each satisfiability check. Zero means DefaultTimeout;
	// a negative value disables the bound.
	Timeout time.Duration

	mu    sync.Mutex
	stats Stats
}

// NewSolver returns a new instance of Solver with the default time budget.
func NewSolver() *Solver {
	return &Solver{Timeout: DefaultTimeout}
}

// Stats returns statistics for the solver.
func (s *Solver) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Solve checks the satisfiability of the conjunction of constraints. On a
// satisfiable outcome it returns the model value of every symbol, in the
// order given. Timeout and resource exhaustion are reported as the verify
// package's indeterminate sentinel errors.
func (s *Solver) Solve(constraints []verify.Term, symbols []*verify.SymbolTerm) (satisfiable bool, values []uint64, err error) {
	t := time.Now()
	defer func() {
		s.mu.Lock()
		s.stats.SolveN++
		s.stats.SolveTime += time.Since(t)
		s.mu.Unlock()
	}()

	timeout := s.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ctx := newContext(timeout)
	defer ctx.Close()

	solver := C.Z3_mk_solver(ctx.raw)
	if err := ctx.err("Z3_mk_solver"); err != nil {
		return false, nil, err
	}
	C.Z3_solver_inc_ref(ctx.raw, solver)
	defer C.Z3_solver_dec_ref(ctx.raw, solver)

	// Assert constraints.
	for _, constraint := range constraints {
		z3Constraint, err := ctx.toAST(constraint)
		if err != nil {
			return false, nil, err
		}
		C.Z3_solver_assert(ctx.raw, solver, z3Constraint)
		if err := ctx.err("Z3_solver_assert"); err != nil {
			return false, nil, err
		}
	}

	// Check equations with the solver.
	// Exit immediately if unsatisfiable or the solver encountered an error.
	ret := C.Z3_solver_check(ctx.raw, solver)
	if err := ctx.err("Z3_solver_check"); err != nil {
		return false, nil, err
	} else if ret == C.Z3_L_FALSE {
		return false, nil, nil
	} else if ret == C.Z3_L_UNDEF {
		reason := C.GoString(C.Z3_solver_get_reason_unknown(ctx.raw, solver))
		switch {
		case strings.Contains(reason, "timeout"):
			return false, nil, verify.ErrSolverTimeout
		case strings.Contains(reason, "canceled"):
			return false, nil, verify.ErrSolverCanceled
		case strings.Contains(reason, "(resource limits reached)"):
			return false, nil, verify.ErrSolverResourceLimit
		case strings.Contains(reason, "unknown"):
			return false, nil, verify.ErrSolverUnknown
		default:
			return false, nil, fmt.Errorf("z3: %s", reason)
		}
	} else if len(symbols) == 0 {
		return true, nil, nil // no symbols, ignore model
	}

	// Calculate a model for the given formula.
	model := C.Z3_solver_get_model(ctx.raw, solver)
	if err := ctx.err("Z3_solver_get_model"); err != nil {
		return true, nil, err
	}
	C.Z3_model_inc_ref(ctx.raw, model)
	defer C.Z3_model_dec_ref(ctx.raw, model)

	// Fetch values for the declared symbols.
	values, err = ctx.eval(model, symbols)
	if err != nil {
		return true, nil, err
	}
	return true, values, nil
}

// Context represents a Z3 context object that is used for constructing
// expressions. One context serves exactly one Solve call.
type Context struct {
	raw C.Z3_context
}

// newContext returns a context with the given solving time budget.
func newContext(timeout time.Duration) *Context {
	config := C.Z3_mk_config()
	defer C.Z3_del_config(config)

	if timeout > 0 {
		setConfigParam(config, "timeout", strconv.FormatInt(timeout.Milliseconds(), 10))
	}

	raw := C.Z3_mk_context(config)
	C.Z3_set_error_handler(raw, nil)
	C.Z3_set_ast_print_mode(raw, C.Z3_PRINT_SMTLIB2_COMPLIANT)
	return &Context{raw: raw}
}

func setConfigParam(config C.Z3_config, key, value string) {
	ckey := C.CString(key)
	defer C.free(unsafe.Pointer(ckey))
	cvalue := C.CString(value)
	defer C.free(unsafe.Pointer(cvalue))
	C.Z3_set_param_value(config, ckey, cvalue)
}

// Close deletes the underlying Z3 context.
func (ctx *Context) Close() error {
	C.Z3_del_context(ctx.raw)
	return nil
}

// err returns the error for the last API call. Returns nil if last call was successful.
func (ctx *Context) err(op string) error {
	if code := C.Z3_get_error_code(ctx.raw); code != C.Z3_OK {
		return &Error{Code: int(code), Op: op, Message: C.GoString(C.Z3_get_error_msg(ctx.raw, code))}
	}
	return nil
}

// toAST returns a new instance of Z3_ast from a verification term.
func (ctx *Context) toAST(term verify.Term) (C.Z3_ast, error) {
	switch term := term.(type) {
	case *verify.ConstantTerm:
		return ctx.toConstantAST(term)
	case *verify.SymbolTerm:
		return ctx.toSymbolAST(term)
	case *verify.NotTerm:
		return ctx.toNotAST(term)
	case *verify.BinaryTerm:
		return ctx.toBinaryAST(term)
	default:
		return nil, fmt.Errorf("z3.Context.toAST: invalid term type: %T", term)
	}
}

func (ctx *Context) toConstantAST(term *verify.ConstantTerm) (C.Z3_ast, error) {
	if term.Width == calor.WidthBool {
		if term.IsTrue() {
			return ctx.makeTrue()
		}
		return ctx.makeFalse()
	} else if term.Width <= 64 {
		return ctx.makeUint64(term.Width, term.Value)
	}
	return nil, fmt.Errorf("z3.Context.toConstantAST: invalid term width: %d", term.Width)
}

func (ctx *Context) toSymbolAST(term *verify.SymbolTerm) (C.Z3_ast, error) {
	sort, err := ctx.makeBVSort(term.Width)
	if err != nil {
		return nil, err
	}

	cname := C.CString(term.Name)
	defer C.free(unsafe.Pointer(cname))
	symbol := C.Z3_mk_string_symbol(ctx.raw, cname)
	if err := ctx.err("Z3_mk_string_symbol"); err != nil {
		return nil, err
	}
	return C.Z3_mk_const(ctx.raw, symbol, sort), ctx.err("Z3_mk_const")
}

func (ctx *Context) toNotAST(term *verify.NotTerm) (C.Z3_ast, error) {
	src, err := ctx.toAST(term.Term)
	if err != nil {
		return nil, err
	}

	// If boolean, use boolean NOT operation.
	if verify.TermWidth(term.Term) == calor.WidthBool {
		return C.Z3_mk_not(ctx.raw, src), ctx.err("Z3_mk_not")
	}
	return C.Z3_mk_bvnot(ctx.raw, src), ctx.err("Z3_mk_bvnot")
}

func (ctx *Context) toBinaryAST(term *verify.BinaryTerm) (C.Z3_ast, error) {
	lhs, err := ctx.toAST(term.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := ctx.toAST(term.RHS)
	if err != nil {
		return nil, err
	}

	switch term.Op {
	case verify.ADD:
		return C.Z3_mk_bvadd(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvadd")
	case verify.SUB:
		return C.Z3_mk_bvsub(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvsub")
	case verify.MUL:
		return C.Z3_mk_bvmul(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvmul")
	case verify.UDIV:
		return C.Z3_mk_bvudiv(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvudiv")
	case verify.SDIV:
		return C.Z3_mk_bvsdiv(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvsdiv")
	case verify.UREM:
		return C.Z3_mk_bvurem(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvurem")
	case verify.SREM:
		return C.Z3_mk_bvsrem(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvsrem")
	case verify.AND:
		if verify.TermWidth(term.LHS) == calor.WidthBool {
			args := [2]C.Z3_ast{lhs, rhs}
			return C.Z3_mk_and(ctx.raw, 2, &args[0]), ctx.err("Z3_mk_and")
		}
		return C.Z3_mk_bvand(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvand")
	case verify.OR:
		if verify.TermWidth(term.LHS) == calor.WidthBool {
			args := [2]C.Z3_ast{lhs, rhs}
			return C.Z3_mk_or(ctx.raw, 2, &args[0]), ctx.err("Z3_mk_or")
		}
		return C.Z3_mk_bvor(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvor")
	case verify.EQ:
		if verify.TermWidth(term.LHS) == calor.WidthBool {
			return C.Z3_mk_iff(ctx.raw, lhs, rhs), ctx.err("Z3_mk_iff")
		}
		return C.Z3_mk_eq(ctx.raw, lhs, rhs), ctx.err("Z3_mk_eq")
	case verify.ULT:
		return C.Z3_mk_bvult(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvult")
	case verify.ULE:
		return C.Z3_mk_bvule(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvule")
	case verify.SLT:
		return C.Z3_mk_bvslt(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvslt")
	case verify.SLE:
		return C.Z3_mk_bvsle(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvsle")
	default:
		return nil, fmt.Errorf("z3.Context.toBinaryAST: unexpected operation: %s", term.Op)
	}
}

func (ctx *Context) makeTrue() (C.Z3_ast, error) {
	return C.Z3_mk_true(ctx.raw), ctx.err("Z3_mk_true")
}

func (ctx *Context) makeFalse() (C.Z3_ast, error) {
	return C.Z3_mk_false(ctx.raw), ctx.err("Z3_mk_false")
}

func (ctx *Context) makeBVSort(width uint) (C.Z3_sort, error) {
	return C.Z3_mk_bv_sort(ctx.raw, C.uint(width)), ctx.err("Z3_mk_bv_sort")
}

func (ctx *Context) makeUint64(width uint, value uint64) (C.Z3_ast, error) {
	t, err := ctx.makeBVSort(width)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_unsigned_int64(ctx.raw, C.uint64_t(value), t), ctx.err("Z3_mk_unsigned_int64")
}

// eval evaluates each symbol into its model value.
func (ctx *Context) eval(model C.Z3_model, symbols []*verify.SymbolTerm) ([]uint64, error) {
	values := make([]uint64, 0, len(symbols))
	for _, symbol := range symbols {
		value, err := ctx.evalSymbol(model, symbol)
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, nil
}

// evalSymbol evaluates a single symbol into its unsigned bit pattern. Model
// completion is requested so symbols unconstrained by the query still receive
// a concrete value.
func (ctx *Context) evalSymbol(model C.Z3_model, symbol *verify.SymbolTerm) (uint64, error) {
	z3Symbol, err := ctx.toSymbolAST(symbol)
	if err != nil {
		return 0, err
	}

	var z3Value C.Z3_ast
	C.Z3_model_eval(ctx.raw, model, z3Symbol, C.bool(true), &z3Value)
	if err := ctx.err("Z3_model_eval"); err != nil {
		return 0, err
	}

	// Z3 renders bit-vector numerals as unsigned decimal strings; parse that
	// rather than the int getters so full 64-bit values survive.
	numeral := C.GoString(C.Z3_get_numeral_string(ctx.raw, z3Value))
	if err := ctx.err("Z3_get_numeral_string"); err != nil {
		return 0, err
	}
	value, err := strconv.ParseUint(numeral, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("z3: invalid model numeral %q for %s", numeral, symbol.Name)
	}
	return value, nil
}

// Error represents an error from the Z3 API.
type Error struct {
	Code    int
	Op      string
	Message string
}

// Error returns the error as a string.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (%d)", e.Op, e.Message, e.Code)
}

// Stats tracks cumulative solver usage.
type Stats struct {
	SolveN    int
	SolveTime time.Duration
}
