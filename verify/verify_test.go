package verify_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/juanmicrosoft/calor"
	"github.com/juanmicrosoft/calor/verify"
)

// stubSolver records issued queries and returns a canned outcome.
type stubSolver struct {
	satisfiable bool
	values      []uint64
	err         error

	solveN      int
	constraints []verify.Term
	symbols     []*verify.SymbolTerm
}

func (s *stubSolver) Solve(constraints []verify.Term, symbols []*verify.SymbolTerm) (bool, []uint64, error) {
	s.solveN++
	s.constraints = constraints
	s.symbols = symbols
	return s.satisfiable, s.values, s.err
}

// MustParseExpr parses a contract clause. Panic on error.
func MustParseExpr(input string) calor.Expr {
	expr, err := calor.ParseExpr(input)
	if err != nil {
		panic(err)
	}
	return expr
}

func constraintStrings(terms []verify.Term) []string {
	a := make([]string, len(terms))
	for i, term := range terms {
		a[i] = term.String()
	}
	return a
}

func TestVerifier_VerifyPostcondition_Query(t *testing.T) {
	t.Run("NegatesPostcondition", func(t *testing.T) {
		solver := &stubSolver{satisfiable: false}
		v := verify.NewVerifier(solver)

		result, err := v.VerifyPostcondition(
			[]calor.Param{{Name: "x", Type: calor.I32}},
			calor.I32,
			[]calor.Expr{MustParseExpr("x < 2147483647")},
			MustParseExpr("x + 1 > x"),
		)
		if err != nil {
			t.Fatal(err)
		} else if result.Status != verify.StatusProven {
			t.Fatalf("unexpected status: %s", result.Status)
		}

		if diff := cmp.Diff(constraintStrings(solver.constraints), []string{
			"(slt (sym x 32) (const 2147483647 32))",
			"(not (slt (sym x 32) (add (const 1 32) (sym x 32))))",
		}); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("DeclaresSymbolsInNameOrder", func(t *testing.T) {
		solver := &stubSolver{satisfiable: false}
		v := verify.NewVerifier(solver)

		if _, err := v.VerifyPostcondition(
			[]calor.Param{
				{Name: "b", Type: calor.I32},
				{Name: "a", Type: calor.I32},
			},
			calor.I32,
			nil,
			MustParseExpr("a + b == b + a"),
		); err != nil {
			t.Fatal(err)
		}

		var names []string
		for _, symbol := range solver.symbols {
			names = append(names, symbol.Name)
		}
		if diff := cmp.Diff(names, []string{"a", "b"}); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("ResultDeclaredOnlyWhenReferenced", func(t *testing.T) {
		solver := &stubSolver{satisfiable: false}
		v := verify.NewVerifier(solver)

		if _, err := v.VerifyPostcondition(nil, calor.U32, nil, MustParseExpr("result >= 0")); err != nil {
			t.Fatal(err)
		} else if len(solver.symbols) != 1 || solver.symbols[0].Name != "result" {
			t.Fatalf("unexpected symbols: %v", solver.symbols)
		}

		solver = &stubSolver{satisfiable: false}
		v = verify.NewVerifier(solver)
		if _, err := v.VerifyPostcondition(
			[]calor.Param{{Name: "x", Type: calor.U32}},
			calor.U32,
			nil,
			MustParseExpr("x >= 0"),
		); err != nil {
			t.Fatal(err)
		} else if len(solver.symbols) != 1 || solver.symbols[0].Name != "x" {
			t.Fatalf("unexpected symbols: %v", solver.symbols)
		}
	})

	t.Run("UnsignedComparisonForUnsignedOperands", func(t *testing.T) {
		solver := &stubSolver{satisfiable: false}
		v := verify.NewVerifier(solver)

		if _, err := v.VerifyPostcondition(
			[]calor.Param{{Name: "x", Type: calor.U8}},
			calor.U8,
			nil,
			MustParseExpr("x / 2 <= x"),
		); err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(constraintStrings(solver.constraints), []string{
			"(not (ule (udiv (sym x 8) (const 2 8)) (sym x 8)))",
		}); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("SignedDivisionForSignedOperands", func(t *testing.T) {
		solver := &stubSolver{satisfiable: false}
		v := verify.NewVerifier(solver)

		if _, err := v.VerifyPostcondition(
			[]calor.Param{{Name: "x", Type: calor.I32}, {Name: "y", Type: calor.I32}},
			calor.I32,
			nil,
			MustParseExpr("x / y == x"),
		); err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(constraintStrings(solver.constraints), []string{
			"(not (eq (sdiv (sym x 32) (sym y 32)) (sym x 32)))",
		}); diff != "" {
			t.Fatal(diff)
		}
	})
}

func TestVerifier_VerifyPostcondition_Unsupported(t *testing.T) {
	t.Run("CallInPostcondition", func(t *testing.T) {
		solver := &stubSolver{}
		v := verify.NewVerifier(solver)

		result, err := v.VerifyPostcondition(
			[]calor.Param{{Name: "x", Type: calor.I32}},
			calor.I32,
			[]calor.Expr{MustParseExpr("x > 0")},
			MustParseExpr("len(s) > x"),
		)
		if err != nil {
			t.Fatal(err)
		} else if result.Status != verify.StatusUnsupported {
			t.Fatalf("unexpected status: %s", result.Status)
		} else if solver.solveN != 0 {
			t.Fatal("expected solver to be skipped")
		}
	})

	t.Run("CallInPrecondition", func(t *testing.T) {
		solver := &stubSolver{}
		v := verify.NewVerifier(solver)

		result, err := v.VerifyPostcondition(
			[]calor.Param{{Name: "x", Type: calor.I32}},
			calor.I32,
			[]calor.Expr{MustParseExpr("valid(x)")},
			MustParseExpr("x > 0"),
		)
		if err != nil {
			t.Fatal(err)
		} else if result.Status != verify.StatusUnsupported {
			t.Fatalf("unexpected status: %s", result.Status)
		} else if solver.solveN != 0 {
			t.Fatal("expected solver to be skipped")
		}
	})

	t.Run("MixedWidthOperands", func(t *testing.T) {
		solver := &stubSolver{}
		v := verify.NewVerifier(solver)

		result, err := v.VerifyPostcondition(
			[]calor.Param{
				{Name: "x", Type: calor.I32},
				{Name: "y", Type: calor.I64},
			},
			calor.I32,
			nil,
			MustParseExpr("x < y"),
		)
		if err != nil {
			t.Fatal(err)
		} else if result.Status != verify.StatusUnsupported {
			t.Fatalf("unexpected status: %s", result.Status)
		} else if solver.solveN != 0 {
			t.Fatal("expected solver to be skipped")
		}
	})
}

func TestVerifier_VerifyPostcondition_Err(t *testing.T) {
	t.Run("UnresolvedReference", func(t *testing.T) {
		v := verify.NewVerifier(&stubSolver{})
		_, err := v.VerifyPostcondition(
			[]calor.Param{{Name: "x", Type: calor.I32}},
			calor.I32,
			nil,
			MustParseExpr("x < limit"),
		)
		if err == nil || !strings.Contains(err.Error(), "unresolved reference") {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("DuplicateParam", func(t *testing.T) {
		v := verify.NewVerifier(&stubSolver{})
		_, err := v.VerifyPostcondition(
			[]calor.Param{
				{Name: "x", Type: calor.I32},
				{Name: "x", Type: calor.I64},
			},
			calor.I32,
			nil,
			MustParseExpr("x > 0"),
		)
		if err == nil || !strings.Contains(err.Error(), "duplicate parameter") {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("LiteralOutOfRange", func(t *testing.T) {
		v := verify.NewVerifier(&stubSolver{})
		_, err := v.VerifyPostcondition(
			[]calor.Param{{Name: "x", Type: calor.I32}},
			calor.I32,
			nil,
			MustParseExpr("x < 4294967296"),
		)
		if err == nil || !strings.Contains(err.Error(), "out of range") {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("MissingPostcondition", func(t *testing.T) {
		v := verify.NewVerifier(&stubSolver{})
		if _, err := v.VerifyPostcondition(nil, calor.I32, nil, nil); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("ModelValueCountMismatch", func(t *testing.T) {
		// One symbol declared, two model values back from the solver.
		v := verify.NewVerifier(&stubSolver{satisfiable: true, values: []uint64{1, 2}})
		_, err := v.VerifyPostcondition(
			[]calor.Param{{Name: "x", Type: calor.I32}},
			calor.I32,
			nil,
			MustParseExpr("x > 0"),
		)
		if err == nil || !strings.Contains(err.Error(), "model values") {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("SolverErrPropagates", func(t *testing.T) {
		errBoom := errors.New("boom")
		v := verify.NewVerifier(&stubSolver{err: errBoom})
		_, err := v.VerifyPostcondition(
			[]calor.Param{{Name: "x", Type: calor.I32}},
			calor.I32,
			nil,
			MustParseExpr("x > 0"),
		)
		if !errors.Is(err, errBoom) {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestVerifier_VerifyPostcondition_Inconclusive(t *testing.T) {
	for _, sentinel := range []error{
		verify.ErrSolverTimeout,
		verify.ErrSolverCanceled,
		verify.ErrSolverResourceLimit,
		verify.ErrSolverUnknown,
	} {
		v := verify.NewVerifier(&stubSolver{err: sentinel})
		result, err := v.VerifyPostcondition(
			[]calor.Param{{Name: "x", Type: calor.I32}},
			calor.I32,
			nil,
			MustParseExpr("x > 0"),
		)
		if err != nil {
			t.Fatal(err)
		} else if result.Status != verify.StatusInconclusive {
			t.Fatalf("unexpected status for %v: %s", sentinel, result.Status)
		}
	}
}

func TestVerifier_VerifyPostcondition_Counterexample(t *testing.T) {
	t.Run("SignedRendering", func(t *testing.T) {
		solver := &stubSolver{satisfiable: true, values: []uint64{0x80000000, 0xFFFFFFFF}}
		v := verify.NewVerifier(solver)

		result, err := v.VerifyPostcondition(
			[]calor.Param{
				{Name: "y", Type: calor.I32},
				{Name: "x", Type: calor.I32},
			},
			calor.I32,
			nil,
			MustParseExpr("x + y > x"),
		)
		if err != nil {
			t.Fatal(err)
		} else if result.Status != verify.StatusDisproven {
			t.Fatalf("unexpected status: %s", result.Status)
		} else if got, want := result.Counterexample, "x = -2147483648, y = -1"; got != want {
			t.Fatalf("unexpected counterexample: %q", got)
		}
	})

	t.Run("UnsignedRendering", func(t *testing.T) {
		solver := &stubSolver{satisfiable: true, values: []uint64{0xFFFFFFFFFFFFFFFF}}
		v := verify.NewVerifier(solver)

		result, err := v.VerifyPostcondition(
			[]calor.Param{{Name: "n", Type: calor.U64}},
			calor.U64,
			nil,
			MustParseExpr("n + 1 > n"),
		)
		if err != nil {
			t.Fatal(err)
		} else if got, want := result.Counterexample, "n = 18446744073709551615"; got != want {
			t.Fatalf("unexpected counterexample: %q", got)
		}
	})
}

func TestVerifier_VerifyPrecondition(t *testing.T) {
	t.Run("AssertsDirectly", func(t *testing.T) {
		solver := &stubSolver{satisfiable: true}
		v := verify.NewVerifier(solver)

		result, err := v.VerifyPrecondition(
			[]calor.Param{{Name: "x", Type: calor.I32}},
			MustParseExpr("x > 0"),
		)
		if err != nil {
			t.Fatal(err)
		} else if result.Status != verify.StatusProven {
			t.Fatalf("unexpected status: %s", result.Status)
		}
		if diff := cmp.Diff(constraintStrings(solver.constraints), []string{
			"(slt (const 0 32) (sym x 32))",
		}); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("UnsatisfiableIsDisproven", func(t *testing.T) {
		v := verify.NewVerifier(&stubSolver{satisfiable: false})
		result, err := v.VerifyPrecondition(
			[]calor.Param{{Name: "x", Type: calor.I32}},
			MustParseExpr("x > 0 && x < 0"),
		)
		if err != nil {
			t.Fatal(err)
		} else if result.Status != verify.StatusDisproven {
			t.Fatalf("unexpected status: %s", result.Status)
		} else if result.Counterexample != "" {
			t.Fatalf("unexpected counterexample: %q", result.Counterexample)
		}
	})

	t.Run("Unsupported", func(t *testing.T) {
		solver := &stubSolver{}
		v := verify.NewVerifier(solver)
		result, err := v.VerifyPrecondition(nil, MustParseExpr("ready()"))
		if err != nil {
			t.Fatal(err)
		} else if result.Status != verify.StatusUnsupported {
			t.Fatalf("unexpected status: %s", result.Status)
		} else if solver.solveN != 0 {
			t.Fatal("expected solver to be skipped")
		}
	})

	t.Run("MissingPrecondition", func(t *testing.T) {
		v := verify.NewVerifier(&stubSolver{})
		if _, err := v.VerifyPrecondition(nil, nil); err == nil {
			t.Fatal("expected error")
		}
	})
}
