package calor

// IntType describes one of the eight primitive integer kinds of the notation.
// Width is one of 8, 16, 32 or 64 bits.
type IntType struct {
	Name   string
	Width  uint
	Signed bool
}

// Primitive integer types.
var (
	I8  = IntType{Name: "i8", Width: Width8, Signed: true}
	I16 = IntType{Name: "i16", Width: Width16, Signed: true}
	I32 = IntType{Name: "i32", Width: Width32, Signed: true}
	I64 = IntType{Name: "i64", Width: Width64, Signed: true}
	U8  = IntType{Name: "u8", Width: Width8, Signed: false}
	U16 = IntType{Name: "u16", Width: Width16, Signed: false}
	U32 = IntType{Name: "u32", Width: Width32, Signed: false}
	U64 = IntType{Name: "u64", Width: Width64, Signed: false}
)

var intTypes = map[string]IntType{
	I8.Name:  I8,
	I16.Name: I16,
	I32.Name: I32,
	I64.Name: I64,
	U8.Name:  U8,
	U16.Name: U16,
	U32.Name: U32,
	U64.Name: U64,
}

// TypeByName returns the integer type with the given name.
func TypeByName(name string) (IntType, bool) {
	typ, ok := intTypes[name]
	return typ, ok
}

// String returns the name of the type.
func (t IntType) String() string { return t.Name }

// Param represents a typed function parameter.
type Param struct {
	Name string
	Type IntType
}

// String returns the string representation of the parameter.
func (p Param) String() string { return p.Name + ": " + p.Type.Name }
