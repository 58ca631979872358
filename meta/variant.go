package meta

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Variant: tagged value passed to and from native methods
// ---------------------------------------------------------------------------

// Kind identifies the payload carried by a Variant.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBool
	KindInt
	KindDouble
	KindString
	KindList
	KindMap
	KindObject
	KindPointer
)

var kindNames = [...]string{
	KindInvalid: "invalid",
	KindBool:    "bool",
	KindInt:     "int",
	KindDouble:  "double",
	KindString:  "string",
	KindList:    "list",
	KindMap:     "map",
	KindObject:  "object",
	KindPointer: "pointer",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Variant holds one value of a native type. The zero Variant is invalid
// and stands for "no value".
type Variant struct {
	kind     Kind
	b        bool
	i        int64
	f        float64
	s        string
	list     []Variant
	m        map[string]Variant
	obj      Object
	ptr      any
	typeName string
}

// NewBool returns a bool variant.
func NewBool(b bool) Variant { return Variant{kind: KindBool, b: b} }

// NewInt returns an integer variant.
func NewInt(i int64) Variant { return Variant{kind: KindInt, i: i} }

// NewDouble returns a floating point variant.
func NewDouble(f float64) Variant { return Variant{kind: KindDouble, f: f} }

// NewString returns a string variant.
func NewString(s string) Variant { return Variant{kind: KindString, s: s} }

// NewList returns a list variant holding the given items.
func NewList(items ...Variant) Variant {
	if items == nil {
		items = []Variant{}
	}
	return Variant{kind: KindList, list: items}
}

// NewMap returns a map variant. A nil map yields an empty map.
func NewMap(m map[string]Variant) Variant {
	if m == nil {
		m = map[string]Variant{}
	}
	return Variant{kind: KindMap, m: m}
}

// NewObject returns an object variant. A nil object is a valid null object
// reference.
func NewObject(obj Object) Variant {
	if obj != nil {
		obj = Self(obj)
	}
	return Variant{kind: KindObject, obj: obj}
}

// NewPointer returns a variant referring to a value that is not a native
// object, tagged with its declared type name.
func NewPointer(ptr any, typeName string) Variant {
	return Variant{kind: KindPointer, ptr: ptr, typeName: typeName}
}

func (v Variant) Kind() Kind { return v.kind }

// IsValid reports whether the variant carries a value.
func (v Variant) IsValid() bool { return v.kind != KindInvalid }

func (v Variant) Bool() bool      { return v.b }
func (v Variant) Int() int64      { return v.i }
func (v Variant) Double() float64 { return v.f }
func (v Variant) Text() string    { return v.s }

// List returns the list items. The slice is shared with the variant.
func (v Variant) List() []Variant { return v.list }

// Map returns the map entries. The map is shared with the variant.
func (v Variant) Map() map[string]Variant { return v.m }

// Object returns the referenced native object, or nil.
func (v Variant) Object() Object { return v.obj }

// Pointer returns the foreign pointer and its declared type name.
func (v Variant) Pointer() (any, string) { return v.ptr, v.typeName }

// Number returns the numeric payload as a float64 for int and double kinds.
func (v Variant) Number() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindDouble:
		return v.f, true
	}
	return 0, false
}

// Equal reports whether two variants hold the same kind and value. Objects
// and pointers compare by identity.
func (v Variant) Equal(o Variant) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInvalid:
		return true
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindDouble:
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	case KindString:
		return v.s == o.s
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.m) != len(o.m) {
			return false
		}
		for k, x := range v.m {
			y, ok := o.m[k]
			if !ok || !x.Equal(y) {
				return false
			}
		}
		return true
	case KindObject:
		return sameObject(v.obj, o.obj)
	case KindPointer:
		return v.ptr == o.ptr && v.typeName == o.typeName
	}
	return false
}

func sameObject(a, b Object) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.ObjectBase() == b.ObjectBase()
}

// Interface returns the payload as a plain Go value: nil, bool, int64,
// float64, string, []any, map[string]any, Object or the foreign pointer.
func (v Variant) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindDouble:
		return v.f
	case KindString:
		return v.s
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Interface()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.m))
		for k, item := range v.m {
			out[k] = item.Interface()
		}
		return out
	case KindObject:
		return v.obj
	case KindPointer:
		return v.ptr
	}
	return nil
}

// FromGo builds a variant from a plain Go value. Supported inputs are the
// outputs of Interface plus the other sized integer and float types,
// []string and map[string]string.
func FromGo(x any) (Variant, error) {
	switch val := x.(type) {
	case nil:
		return Variant{}, nil
	case Variant:
		return val, nil
	case bool:
		return NewBool(val), nil
	case string:
		return NewString(val), nil
	case float32:
		return NewDouble(float64(val)), nil
	case float64:
		return NewDouble(val), nil
	case Object:
		return NewObject(val), nil
	case []string:
		items := make([]Variant, len(val))
		for i, s := range val {
			items[i] = NewString(s)
		}
		return NewList(items...), nil
	case map[string]string:
		m := make(map[string]Variant, len(val))
		for k, s := range val {
			m[k] = NewString(s)
		}
		return NewMap(m), nil
	case []any:
		items := make([]Variant, len(val))
		for i, item := range val {
			iv, err := FromGo(item)
			if err != nil {
				return Variant{}, fmt.Errorf("list item %d: %w", i, err)
			}
			items[i] = iv
		}
		return NewList(items...), nil
	case map[string]any:
		m := make(map[string]Variant, len(val))
		for k, item := range val {
			iv, err := FromGo(item)
			if err != nil {
				return Variant{}, fmt.Errorf("map entry %q: %w", k, err)
			}
			m[k] = iv
		}
		return NewMap(m), nil
	}

	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return NewInt(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return Variant{}, fmt.Errorf("unsigned value %d overflows int64", u)
		}
		return NewInt(int64(u)), nil
	}
	return Variant{}, fmt.Errorf("unsupported Go type %T", x)
}

// Convert coerces the variant to the requested kind the way native method
// calls do. KindInvalid as target accepts anything.
func (v Variant) Convert(k Kind) (Variant, bool) {
	if k == KindInvalid || v.kind == k {
		return v, true
	}
	switch k {
	case KindInt:
		switch v.kind {
		case KindDouble:
			if v.f != math.Trunc(v.f) || v.f < math.MinInt64 || v.f > math.MaxInt64 {
				return Variant{}, false
			}
			return NewInt(int64(v.f)), true
		case KindBool:
			if v.b {
				return NewInt(1), true
			}
			return NewInt(0), true
		case KindString:
			i, err := strconv.ParseInt(strings.TrimSpace(v.s), 10, 64)
			if err != nil {
				return Variant{}, false
			}
			return NewInt(i), true
		}
	case KindDouble:
		switch v.kind {
		case KindInt:
			return NewDouble(float64(v.i)), true
		case KindString:
			f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
			if err != nil {
				return Variant{}, false
			}
			return NewDouble(f), true
		}
	case KindBool:
		switch v.kind {
		case KindInt:
			return NewBool(v.i != 0), true
		case KindString:
			b, err := strconv.ParseBool(v.s)
			if err != nil {
				return Variant{}, false
			}
			return NewBool(b), true
		}
	case KindString:
		switch v.kind {
		case KindInt:
			return NewString(strconv.FormatInt(v.i, 10)), true
		case KindDouble:
			return NewString(strconv.FormatFloat(v.f, 'g', -1, 64)), true
		case KindBool:
			return NewString(strconv.FormatBool(v.b)), true
		}
	case KindObject:
		if v.kind == KindInvalid {
			return NewObject(nil), true
		}
	}
	return Variant{}, false
}

// String renders the variant for logs and test failures.
func (v Variant) String() string {
	switch v.kind {
	case KindInvalid:
		return "<invalid>"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindDouble:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.s)
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMap:
		keys := make([]string, 0, len(v.m))
		for k := range v.m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + v.m[k].String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindObject:
		if v.obj == nil {
			return "<null object>"
		}
		return fmt.Sprintf("<%s %p>", v.obj.MetaObject().ClassName(), v.obj.ObjectBase())
	case KindPointer:
		return fmt.Sprintf("<%s %p>", v.typeName, v.ptr)
	}
	return "<unknown>"
}

// KindForType maps a parameter type name from a signature to the variant
// kind it accepts, and for object parameters the expected class name.
// Unknown names are treated as foreign pointer types.
func KindForType(typeName string) (Kind, string) {
	t := strings.TrimSpace(typeName)
	t = strings.TrimPrefix(t, "const ")
	switch t {
	case "", "variant", "any":
		return KindInvalid, ""
	case "bool":
		return KindBool, ""
	case "int", "int8", "int16", "int32", "int64", "uint", "uint8", "uint16", "uint32", "uint64", "long", "short":
		return KindInt, ""
	case "double", "float", "float32", "float64":
		return KindDouble, ""
	case "string":
		return KindString, ""
	case "list", "[]string", "[]variant":
		return KindList, ""
	case "map", "map[string]variant":
		return KindMap, ""
	case "object", "object*":
		return KindObject, ""
	}
	if strings.HasSuffix(t, "*") {
		return KindObject, strings.TrimSpace(strings.TrimSuffix(t, "*"))
	}
	return KindPointer, t
}
