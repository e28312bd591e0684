// Package calor holds the shared data model for the Calor contract toolchain:
// the primitive integer types of the notation, the contract expression tree
// produced by the parser, and the parser for the contract clause surface.
package calor

import "fmt"

// Standard widths.
const (
	WidthBool = 1
	Width8    = 8
	Width16   = 16
	Width32   = 32
	Width64   = 64
)

// assert panics if condition is false.
func assert(condition bool, format string, args ...interface{}) {
	if !condition {
		panic(fmt.Sprintf("assert: "+format, args...))
	}
}
