// Package verify implements the Calor contract verification engine. It lowers
// requires/ensures expression trees into bit-vector terms with exact
// two's-complement machine semantics and decides them with an SMT solver.
package verify

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/juanmicrosoft/calor"
)

// ResultVar is the pseudo-variable bound to a function's return value inside
// a postcondition.
const ResultVar = "result"

// Indeterminate solver outcomes. The verifier maps these to
// StatusInconclusive; any other solver error is propagated to the caller.
var (
	ErrSolverTimeout       = errors.New("solver timeout")
	ErrSolverCanceled      = errors.New("solver canceled")
	ErrSolverResourceLimit = errors.New("solver resource limit")
	ErrSolverUnknown       = errors.New("solver unknown error")
)

// Solver checks the satisfiability of a conjunction of boolean terms. On a
// satisfiable outcome it returns one model value per symbol, in symbol order.
type Solver interface {
	Solve(constraints []Term, symbols []*SymbolTerm) (satisfiable bool, values []uint64, err error)
}

// Status is the outcome of one verification call.
type Status int

const (
	// StatusProven means no input satisfying the preconditions can violate
	// the checked condition.
	StatusProven = Status(iota + 1)

	// StatusDisproven means a concrete counterexample exists, or that a
	// checked precondition is unsatisfiable.
	StatusDisproven

	// StatusUnsupported means the contract uses a construct outside the
	// decidable fragment, such as a function call.
	StatusUnsupported

	// StatusInconclusive means the solver gave up before reaching a verdict,
	// typically on timeout or resource exhaustion.
	StatusInconclusive
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusProven:
		return "proven"
	case StatusDisproven:
		return "disproven"
	case StatusUnsupported:
		return "unsupported"
	case StatusInconclusive:
		return "inconclusive"
	default:
		return fmt.Sprintf("Status<%d>", s)
	}
}

// Result is the immutable outcome of one verification call. Counterexample is
// only set for a postcondition disproven with a concrete model.
type Result struct {
	Status         Status
	Counterexample string
}

// Verifier checks contract clauses against a solver backend. Each call builds
// and discards its own solver session; a Verifier holds no state between
// calls and is safe for concurrent use if its Solver is.
type Verifier struct {
	Solver Solver
}

// NewVerifier returns a new instance of Verifier using the given solver.
func NewVerifier(solver Solver) *Verifier {
	return &Verifier{Solver: solver}
}

// VerifyPostcondition determines whether postcondition is guaranteed to hold
// for every input that satisfies all preconditions, with the return value
// treated as an unconstrained value of returnType. It asserts the
// preconditions together with the negated postcondition: an unsatisfiable
// query proves the contract, a satisfiable one yields a counterexample.
func (v *Verifier) VerifyPostcondition(params []calor.Param, returnType calor.IntType, preconditions []calor.Expr, postcondition calor.Expr) (*Result, error) {
	if postcondition == nil {
		return nil, errors.New("verify: postcondition required")
	}

	symbols, err := declareParams(params)
	if err != nil {
		return nil, err
	}
	if calor.References(postcondition, ResultVar) {
		if err := symbols.declare(ResultVar, returnType); err != nil {
			return nil, err
		}
	}

	tr := &translator{symbols: symbols}
	constraints := make([]Term, 0, len(preconditions)+1)
	for _, pre := range preconditions {
		term, err := tr.translateCondition(pre)
		if errors.Is(err, errUnsupported) {
			return &Result{Status: StatusUnsupported}, nil
		} else if err != nil {
			return nil, err
		}
		constraints = append(constraints, term)
	}

	post, err := tr.translateCondition(postcondition)
	if errors.Is(err, errUnsupported) {
		return &Result{Status: StatusUnsupported}, nil
	} else if err != nil {
		return nil, err
	}
	constraints = append(constraints, NewNotTerm(post))

	entries := symbols.entries()
	satisfiable, values, err := v.solve(constraints, entries)
	if isIndeterminate(err) {
		return &Result{Status: StatusInconclusive}, nil
	} else if err != nil {
		return nil, err
	}

	if !satisfiable {
		return &Result{Status: StatusProven}, nil
	}
	counterexample, err := renderCounterexample(entries, values)
	if err != nil {
		return nil, err
	}
	return &Result{
		Status:         StatusDisproven,
		Counterexample: counterexample,
	}, nil
}

// VerifyPrecondition determines whether precondition is satisfiable at all.
// An unsatisfiable precondition can never be met by any caller and is
// reported as disproven, a specification defect.
func (v *Verifier) VerifyPrecondition(params []calor.Param, precondition calor.Expr) (*Result, error) {
	if precondition == nil {
		return nil, errors.New("verify: precondition required")
	}

	symbols, err := declareParams(params)
	if err != nil {
		return nil, err
	}

	tr := &translator{symbols: symbols}
	term, err := tr.translateCondition(precondition)
	if errors.Is(err, errUnsupported) {
		return &Result{Status: StatusUnsupported}, nil
	} else if err != nil {
		return nil, err
	}

	satisfiable, _, err := v.solve([]Term{term}, symbols.entries())
	if isIndeterminate(err) {
		return &Result{Status: StatusInconclusive}, nil
	} else if err != nil {
		return nil, err
	}

	if satisfiable {
		return &Result{Status: StatusProven}, nil
	}
	return &Result{Status: StatusDisproven}, nil
}

func (v *Verifier) solve(constraints []Term, entries []*symbolEntry) (bool, []uint64, error) {
	terms := make([]*SymbolTerm, len(entries))
	for i, entry := range entries {
		terms[i] = entry.term
	}
	return v.Solver.Solve(constraints, terms)
}

func declareParams(params []calor.Param) (*symbolTable, error) {
	symbols := newSymbolTable()
	for _, param := range params {
		if err := symbols.declare(param.Name, param.Type); err != nil {
			return nil, err
		}
	}
	return symbols, nil
}

// renderCounterexample formats one "name = value" pair per symbol, in name
// order, using the signed or unsigned decimal reading of the model value per
// the symbol's declared type. The solver must return one value per symbol.
func renderCounterexample(entries []*symbolEntry, values []uint64) (string, error) {
	if len(values) != len(entries) {
		return "", fmt.Errorf("verify: solver returned %d model values for %d symbols", len(values), len(entries))
	}

	var buf strings.Builder
	for i, entry := range entries {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(entry.name)
		buf.WriteString(" = ")
		if entry.typ.Signed {
			buf.WriteString(strconv.FormatInt(SignedValue(values[i], entry.typ.Width), 10))
		} else {
			buf.WriteString(strconv.FormatUint(values[i], 10))
		}
	}
	return buf.String(), nil
}

func isIndeterminate(err error) bool {
	return errors.Is(err, ErrSolverTimeout) ||
		errors.Is(err, ErrSolverCanceled) ||
		errors.Is(err, ErrSolverResourceLimit) ||
		errors.Is(err, ErrSolverUnknown)
}
