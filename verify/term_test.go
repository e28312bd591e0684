package verify_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/juanmicrosoft/calor/verify"
)

func TestNewBinaryTerm_ConstantFold(t *testing.T) {
	t.Run("Add", func(t *testing.T) {
		term := verify.NewBinaryTerm(verify.ADD, verify.NewConstantTerm(250, 8), verify.NewConstantTerm(10, 8))
		if diff := cmp.Diff(term, verify.NewConstantTerm(4, 8)); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("AddZeroIdentity", func(t *testing.T) {
		x := verify.NewSymbolTerm("x", 32)
		if term := verify.NewBinaryTerm(verify.ADD, x, verify.NewConstantTerm(0, 32)); term != verify.Term(x) {
			t.Fatalf("unexpected term: %s", term)
		}
	})

	t.Run("SubWrap", func(t *testing.T) {
		term := verify.NewBinaryTerm(verify.SUB, verify.NewConstantTerm(0, 16), verify.NewConstantTerm(1, 16))
		if diff := cmp.Diff(term, verify.NewConstantTerm(0xFFFF, 16)); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("MulIdentities", func(t *testing.T) {
		x := verify.NewSymbolTerm("x", 32)
		if term := verify.NewBinaryTerm(verify.MUL, verify.NewConstantTerm(1, 32), x); term != verify.Term(x) {
			t.Fatalf("unexpected term: %s", term)
		}
		term := verify.NewBinaryTerm(verify.MUL, x, verify.NewConstantTerm(0, 32))
		if diff := cmp.Diff(term, verify.NewConstantTerm(0, 32)); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("SDivMinByMinusOne", func(t *testing.T) {
		// -128 / -1 wraps back to -128 at 8 bits.
		term := verify.NewBinaryTerm(verify.SDIV, verify.NewConstantTerm(0x80, 8), verify.NewConstantTerm(0xFF, 8))
		if diff := cmp.Diff(term, verify.NewConstantTerm(0x80, 8)); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("UDivVsSDiv", func(t *testing.T) {
		// 0xF0 is 240 unsigned but -16 signed.
		udiv := verify.NewBinaryTerm(verify.UDIV, verify.NewConstantTerm(0xF0, 8), verify.NewConstantTerm(2, 8))
		if diff := cmp.Diff(udiv, verify.NewConstantTerm(120, 8)); diff != "" {
			t.Fatal(diff)
		}
		sdiv := verify.NewBinaryTerm(verify.SDIV, verify.NewConstantTerm(0xF0, 8), verify.NewConstantTerm(2, 8))
		if diff := cmp.Diff(sdiv, verify.NewConstantTerm(0xF8, 8)); diff != "" { // -8
			t.Fatal(diff)
		}
	})

	t.Run("DivByZeroStaysSymbolic", func(t *testing.T) {
		term := verify.NewBinaryTerm(verify.UDIV, verify.NewConstantTerm(1, 8), verify.NewConstantTerm(0, 8))
		if _, ok := term.(*verify.BinaryTerm); !ok {
			t.Fatalf("expected symbolic term, got %s", term)
		}
		term = verify.NewBinaryTerm(verify.SREM, verify.NewConstantTerm(1, 8), verify.NewConstantTerm(0, 8))
		if _, ok := term.(*verify.BinaryTerm); !ok {
			t.Fatalf("expected symbolic term, got %s", term)
		}
	})

	t.Run("SignedVsUnsignedCompare", func(t *testing.T) {
		minusOne := verify.NewConstantTerm(0xFF, 8)
		zero := verify.NewConstantTerm(0, 8)
		if term := verify.NewBinaryTerm(verify.SLT, minusOne, zero); !term.(*verify.ConstantTerm).IsTrue() {
			t.Fatal("expected -1 < 0 signed")
		}
		if term := verify.NewBinaryTerm(verify.ULT, minusOne, zero); !term.(*verify.ConstantTerm).IsFalse() {
			t.Fatal("expected 255 >= 0 unsigned")
		}
	})

	t.Run("BoolConnectives", func(t *testing.T) {
		cond := verify.NewBinaryTerm(verify.EQ, verify.NewSymbolTerm("x", 32), verify.NewConstantTerm(1, 32))
		if term := verify.NewBinaryTerm(verify.AND, verify.NewBoolConstantTerm(true), cond); term != cond {
			t.Fatalf("unexpected term: %s", term)
		}
		if term := verify.NewBinaryTerm(verify.AND, cond, verify.NewBoolConstantTerm(false)); !term.(*verify.ConstantTerm).IsFalse() {
			t.Fatalf("unexpected term: %s", term)
		}
		if term := verify.NewBinaryTerm(verify.OR, verify.NewBoolConstantTerm(false), cond); term != cond {
			t.Fatalf("unexpected term: %s", term)
		}
		if term := verify.NewBinaryTerm(verify.OR, cond, verify.NewBoolConstantTerm(true)); !term.(*verify.ConstantTerm).IsTrue() {
			t.Fatalf("unexpected term: %s", term)
		}
	})
}

func TestNewNotTerm(t *testing.T) {
	if term := verify.NewNotTerm(verify.NewBoolConstantTerm(true)); !term.(*verify.ConstantTerm).IsFalse() {
		t.Fatalf("unexpected term: %s", term)
	}
	cond := verify.NewBinaryTerm(verify.ULT, verify.NewSymbolTerm("x", 8), verify.NewConstantTerm(10, 8))
	if _, ok := verify.NewNotTerm(cond).(*verify.NotTerm); !ok {
		t.Fatal("expected symbolic not term")
	}
}

func TestNewNegateTerm(t *testing.T) {
	t.Run("Constant", func(t *testing.T) {
		term := verify.NewNegateTerm(verify.NewConstantTerm(1, 32))
		if diff := cmp.Diff(term, verify.NewConstantTerm(0xFFFFFFFF, 32)); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("MinValueYieldsItself", func(t *testing.T) {
		term := verify.NewNegateTerm(verify.NewConstantTerm(0x80000000, 32))
		if diff := cmp.Diff(term, verify.NewConstantTerm(0x80000000, 32)); diff != "" {
			t.Fatal(diff)
		}
	})
}

func TestTermWidth(t *testing.T) {
	x := verify.NewSymbolTerm("x", 16)
	if w := verify.TermWidth(x); w != 16 {
		t.Fatalf("unexpected width: %d", w)
	}
	sum := verify.NewBinaryTerm(verify.ADD, x, verify.NewSymbolTerm("y", 16))
	if w := verify.TermWidth(sum); w != 16 {
		t.Fatalf("unexpected width: %d", w)
	}
	cond := verify.NewBinaryTerm(verify.SLE, x, verify.NewSymbolTerm("y", 16))
	if w := verify.TermWidth(cond); w != 1 {
		t.Fatalf("unexpected width: %d", w)
	}
	if w := verify.TermWidth(verify.NewNotTerm(cond)); w != 1 {
		t.Fatalf("unexpected width: %d", w)
	}
}

func TestSignedValue(t *testing.T) {
	if v := verify.SignedValue(0xFF, 8); v != -1 {
		t.Fatalf("unexpected value: %d", v)
	}
	if v := verify.SignedValue(0x7F, 8); v != 127 {
		t.Fatalf("unexpected value: %d", v)
	}
	if v := verify.SignedValue(0x80000000, 32); v != -2147483648 {
		t.Fatalf("unexpected value: %d", v)
	}
	if v := verify.SignedValue(0xFFFFFFFFFFFFFFFF, 64); v != -1 {
		t.Fatalf("unexpected value: %d", v)
	}
}
