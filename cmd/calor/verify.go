package main

import (
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/juanmicrosoft/calor"
	"github.com/juanmicrosoft/calor/verify"
	"github.com/juanmicrosoft/calor/z3"
)

var (
	provenStyle       = color.New(color.FgGreen)
	disprovenStyle    = color.New(color.FgRed, color.Bold)
	inconclusiveStyle = color.New(color.FgHiYellow)
)

var verifyCmd = &cobra.Command{
	Use:   "verify [suite.yaml...]",
	Short: "Verify the contract clauses declared in suite files",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			fmt.Fprintln(os.Stderr, "error: please provide suite file paths")
			os.Exit(1)
		}

		verifier := verify.NewVerifier(&z3.Solver{Timeout: timeout})

		ok := true
		for _, path := range args {
			suite, err := LoadSuite(path)
			if err != nil {
				logger.Fatal("Failed to load suite", zap.String("path", path), zap.Error(err))
			}
			if !runSuite(verifier, suite) {
				ok = false
			}
		}
		if !ok {
			os.Exit(1)
		}
	},
}

func init() {
	verifyCmd.Flags().BoolVar(&debug, "debug", false, "dump parsed contract expression trees")
	verifyCmd.Flags().BoolVar(&strict, "strict", false, "fail unless every clause is proven")
}

// runSuite verifies every clause of every function in the suite and reports
// each verdict. It returns false if any clause fails the configured policy.
func runSuite(verifier *verify.Verifier, suite *Suite) bool {
	ok := true
	for _, fn := range suite.Functions {
		fmt.Printf("%s:\n", fn.Name)
		if !runFunction(verifier, fn) {
			ok = false
		}
	}
	return ok
}

func runFunction(verifier *verify.Verifier, fn *SuiteFunction) bool {
	params, err := fn.ParamList()
	if err != nil {
		logger.Fatal("Invalid suite function", zap.String("function", fn.Name), zap.Error(err))
	}

	ok := true
	preconditions := make([]calor.Expr, 0, len(fn.Requires))
	for i, clause := range fn.Requires {
		expr, err := calor.ParseExpr(clause)
		if err != nil {
			logger.Fatal("Invalid requires clause", zap.String("function", fn.Name), zap.Error(err))
		}
		if debug {
			spew.Fdump(os.Stderr, expr)
		}
		preconditions = append(preconditions, expr)

		result, err := verifier.VerifyPrecondition(params, expr)
		if err != nil {
			logger.Fatal("Verification failed", zap.String("function", fn.Name), zap.Error(err))
		}
		if !report(fmt.Sprintf("requires[%d]", i), result) {
			ok = false
		}
	}

	if fn.Ensures != "" {
		returnType, err := fn.ReturnType()
		if err != nil {
			logger.Fatal("Invalid suite function", zap.String("function", fn.Name), zap.Error(err))
		}
		expr, err := calor.ParseExpr(fn.Ensures)
		if err != nil {
			logger.Fatal("Invalid ensures clause", zap.String("function", fn.Name), zap.Error(err))
		}
		if debug {
			spew.Fdump(os.Stderr, expr)
		}

		result, err := verifier.VerifyPostcondition(params, returnType, preconditions, expr)
		if err != nil {
			logger.Fatal("Verification failed", zap.String("function", fn.Name), zap.Error(err))
		}
		if !report("ensures", result) {
			ok = false
		}
	}
	return ok
}

// report prints one clause verdict and returns whether it passes the
// configured policy: disproven always fails, and under --strict anything
// other than proven fails.
func report(clause string, result *verify.Result) bool {
	switch result.Status {
	case verify.StatusProven:
		fmt.Printf("  %s: %s\n", clause, provenStyle.Sprint("proven"))
		return true
	case verify.StatusDisproven:
		if result.Counterexample != "" {
			fmt.Printf("  %s: %s (%s)\n", clause, disprovenStyle.Sprint("disproven"), result.Counterexample)
		} else {
			fmt.Printf("  %s: %s\n", clause, disprovenStyle.Sprint("disproven"))
		}
		return false
	default:
		fmt.Printf("  %s: %s\n", clause, inconclusiveStyle.Sprint(result.Status.String()))
		return !strict
	}
}
