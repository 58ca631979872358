package meta

import (
	"errors"
	"strings"
	"unicode"
)

// MethodType distinguishes callable methods from signals.
type MethodType uint8

const (
	MethodSlot MethodType = iota
	MethodSignal
)

func (t MethodType) String() string {
	if t == MethodSignal {
		return "signal"
	}
	return "slot"
}

// MethodFunc implements a native method. Arguments arrive already coerced to
// the parameter kinds named in the signature.
type MethodFunc func(obj Object, args []Variant) (Variant, error)

// Method describes one method or signal of a class.
type Method struct {
	Signature string // e.g. "resize(int,int)"
	Type      MethodType
	Return    string // return type name, empty for none
	Fn        MethodFunc
}

// Name returns the method name without its parameter list.
func (m Method) Name() string { return SignatureName(m.Signature) }

// ParamTypes returns the parameter type names of the signature.
func (m Method) ParamTypes() []string { return SignatureParams(m.Signature) }

// Property describes a named, typed attribute with accessor functions.
// A property without Set is read-only.
type Property struct {
	Name string
	Type string
	Get  func(obj Object) Variant
	Set  func(obj Object, v Variant) error
}

// ClassDef is the input to NewMetaObject.
type ClassDef struct {
	Name       string
	Super      *MetaObject
	Methods    []Method
	Properties []Property
	New        func() Object
}

// MetaObject is the immutable runtime description of a native class.
type MetaObject struct {
	className  string
	super      *MetaObject
	methods    []Method // inherited first, own after; overrides replace in place
	properties []Property
	ctor       func() Object
}

// ErrNotConstructible is returned by New for classes without a constructor.
var ErrNotConstructible = errors.New("class has no constructor")

// NewMetaObject builds a class description. Method signatures are
// normalized; a method whose signature matches an inherited one overrides it.
func NewMetaObject(def ClassDef) *MetaObject {
	m := &MetaObject{
		className: def.Name,
		super:     def.Super,
		ctor:      def.New,
	}
	if def.Super != nil {
		m.methods = append(m.methods, def.Super.methods...)
		m.properties = append(m.properties, def.Super.properties...)
	}

	for _, method := range def.Methods {
		method.Signature = NormalizeSignature(method.Signature)
		replaced := false
		for i := range m.methods {
			if m.methods[i].Signature == method.Signature {
				m.methods[i] = method
				replaced = true
				break
			}
		}
		if !replaced {
			m.methods = append(m.methods, method)
		}
	}

	for _, prop := range def.Properties {
		replaced := false
		for i := range m.properties {
			if m.properties[i].Name == prop.Name {
				m.properties[i] = prop
				replaced = true
				break
			}
		}
		if !replaced {
			m.properties = append(m.properties, prop)
		}
	}
	return m
}

// ClassName returns the class name.
func (m *MetaObject) ClassName() string { return m.className }

// SuperClass returns the direct superclass, or nil for a root class.
func (m *MetaObject) SuperClass() *MetaObject { return m.super }

// IsSubclassOf returns true if m is other or derives from it.
func (m *MetaObject) IsSubclassOf(other *MetaObject) bool {
	for current := m; current != nil; current = current.super {
		if current == other {
			return true
		}
	}
	return false
}

// Inherits returns true if m or one of its ancestors has the given name.
func (m *MetaObject) Inherits(name string) bool {
	for current := m; current != nil; current = current.super {
		if current.className == name {
			return true
		}
	}
	return false
}

// Methods returns all methods and signals, inherited ones first.
func (m *MetaObject) Methods() []Method {
	out := make([]Method, len(m.methods))
	copy(out, m.methods)
	return out
}

// Signals returns the signals of the class, inherited ones first.
func (m *MetaObject) Signals() []Method {
	var out []Method
	for _, method := range m.methods {
		if method.Type == MethodSignal {
			out = append(out, method)
		}
	}
	return out
}

// Properties returns all properties, inherited ones first.
func (m *MetaObject) Properties() []Property {
	out := make([]Property, len(m.properties))
	copy(out, m.properties)
	return out
}

// Property looks up a property by name.
func (m *MetaObject) Property(name string) (Property, bool) {
	for _, p := range m.properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// IndexOfMethod returns the index of the method with the given signature,
// or -1.
func (m *MetaObject) IndexOfMethod(signature string) int {
	sig := NormalizeSignature(signature)
	for i, method := range m.methods {
		if method.Signature == sig {
			return i
		}
	}
	return -1
}

// IndexOfSignal returns the index of the signal with the given signature,
// or -1 if there is no such signal.
func (m *MetaObject) IndexOfSignal(signature string) int {
	i := m.IndexOfMethod(signature)
	if i < 0 || m.methods[i].Type != MethodSignal {
		return -1
	}
	return i
}

// FindSignal resolves a full signature or a bare signal name. A bare name
// matches the first signal declared with that name.
func (m *MetaObject) FindSignal(nameOrSignature string) (Method, bool) {
	if strings.Contains(nameOrSignature, "(") {
		if i := m.IndexOfSignal(nameOrSignature); i >= 0 {
			return m.methods[i], true
		}
		return Method{}, false
	}
	for _, method := range m.methods {
		if method.Type == MethodSignal && method.Name() == nameOrSignature {
			return method, true
		}
	}
	return Method{}, false
}

// MethodsNamed returns the non-signal methods with the given name, the
// overload set a call by name chooses from.
func (m *MetaObject) MethodsNamed(name string) []Method {
	var out []Method
	for _, method := range m.methods {
		if method.Type != MethodSignal && method.Name() == name {
			out = append(out, method)
		}
	}
	return out
}

// Constructible reports whether New can create instances.
func (m *MetaObject) Constructible() bool { return m.ctor != nil }

// New creates an instance of the class.
func (m *MetaObject) New() (Object, error) {
	if m.ctor == nil {
		return nil, ErrNotConstructible
	}
	obj := m.ctor()
	Init(obj)
	return obj, nil
}

// ---------------------------------------------------------------------------
// Signatures
// ---------------------------------------------------------------------------

// NormalizeSignature removes whitespace outside of type names, so
// "resize( int, int )" becomes "resize(int,int)".
func NormalizeSignature(sig string) string {
	var b strings.Builder
	b.Grow(len(sig))
	var prev rune
	pendingSpace := false
	for _, r := range sig {
		if unicode.IsSpace(r) {
			pendingSpace = true
			continue
		}
		if pendingSpace && isIdentRune(prev) && isIdentRune(r) {
			b.WriteByte(' ')
		}
		pendingSpace = false
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// SignatureName returns the part of a signature before the parameter list.
func SignatureName(sig string) string {
	if i := strings.IndexByte(sig, '('); i >= 0 {
		return strings.TrimSpace(sig[:i])
	}
	return strings.TrimSpace(sig)
}

// SignatureParams splits the parameter list of a signature into type names.
func SignatureParams(sig string) []string {
	open := strings.IndexByte(sig, '(')
	closing := strings.LastIndexByte(sig, ')')
	if open < 0 || closing < open {
		return nil
	}
	inner := strings.TrimSpace(sig[open+1 : closing])
	if inner == "" {
		return nil
	}
	parts := strings.Split(inner, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
