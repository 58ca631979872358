// Package metagen reads native classes from Go source and generates their
// metaobjects.
package metagen

// MetaPath is the import path of the native object framework.
const MetaPath = "github.com/chazu/objbridge/meta"

// PackageModel is the set of native classes found in one Go package.
type PackageModel struct {
	ImportPath string
	Name       string // short package name
	Classes    []ClassModel
	Skipped    []string // "Type.Member: reason" for members that could not be exposed
}

// ClassModel describes a struct type embedding meta.Base, directly or
// through another native class.
type ClassModel struct {
	Name        string
	Super       string // native class embedded by value; "" for meta.Base
	Constructor string // New<Name>, if declared with no parameters
	Signals     []string
	Properties  []PropertyModel
	Methods     []MethodModel
}

// PropertyModel is an exported field tagged prop:"name".
type PropertyModel struct {
	Name     string
	Field    string
	Type     TypeRef
	Setter   string // Set<Field> method used for writes, if present
	ReadOnly bool
}

// MethodModel is an exported method exposed as a slot.
type MethodModel struct {
	GoName     string
	Slot       string
	Params     []TypeRef
	Result     *TypeRef
	ReturnsErr bool
}

// Signature returns the slot signature, e.g. "resize(int,int)".
func (m MethodModel) Signature() string {
	s := m.Slot + "("
	for i, p := range m.Params {
		if i > 0 {
			s += ","
		}
		s += p.Sig
	}
	return s + ")"
}

// TypeRef maps a Go type onto a signature type name.
type TypeRef struct {
	Sig   string // signature spelling: bool, int, double, string, variant, object*, Class*
	Go    string // Go spelling of basic types
	Class string // native class for Class* references
}
