package bridge

import (
	"fmt"
	"math"
	"strconv"

	lua "github.com/yuin/gopher-lua"

	"github.com/chazu/objbridge/meta"
)

// maxDepth bounds nested list/map conversion. Deeper nesting is treated as a
// reference cycle.
const maxDepth = 64

// maxExactInt is the largest magnitude a Lua number holds without rounding.
const maxExactInt = 1 << 53

// listSlack is how many missing indexes an unmarked table may have beyond
// its entry count and still convert as a list.
const listSlack = 16

// ---------------------------------------------------------------------------
// Native to script
// ---------------------------------------------------------------------------

// ToScriptValue converts a variant to a Lua value. Objects and pointers go
// through the wrapper table and count as one reference each.
func (b *Bridge) ToScriptValue(v meta.Variant) (lua.LValue, error) {
	return b.toScript(v, 0)
}

func (b *Bridge) toScript(v meta.Variant, depth int) (lua.LValue, error) {
	if depth > maxDepth {
		return lua.LNil, fmt.Errorf("%w: nesting deeper than %d", ErrConversion, maxDepth)
	}
	switch v.Kind() {
	case meta.KindInvalid:
		return lua.LNil, nil
	case meta.KindBool:
		return lua.LBool(v.Bool()), nil
	case meta.KindInt:
		if i := v.Int(); i > maxExactInt || i < -maxExactInt {
			return lua.LNil, fmt.Errorf("%w: integer %d is not exact as a script number", ErrConversion, i)
		}
		return lua.LNumber(v.Int()), nil
	case meta.KindDouble:
		return lua.LNumber(v.Double()), nil
	case meta.KindString:
		return lua.LString(v.Text()), nil
	case meta.KindList:
		items := v.List()
		tbl := b.state.CreateTable(len(items), 0)
		for i, item := range items {
			lv, err := b.toScriptElement(item, depth+1)
			if err != nil {
				return lua.LNil, err
			}
			tbl.RawSetInt(i+1, lv)
		}
		tbl.Metatable = b.listMeta
		return tbl, nil
	case meta.KindMap:
		m := v.Map()
		tbl := b.state.CreateTable(0, len(m))
		for k, item := range m {
			lv, err := b.toScriptElement(item, depth+1)
			if err != nil {
				return lua.LNil, err
			}
			tbl.RawSetString(k, lv)
		}
		tbl.Metatable = b.mapMeta
		return tbl, nil
	case meta.KindObject:
		return b.WrapObject(v.Object()), nil
	case meta.KindPointer:
		ptr, typeName := v.Pointer()
		lv, err := b.WrapPointer(ptr, typeName)
		if err != nil {
			return lua.LNil, fmt.Errorf("%w: %w", ErrConversion, err)
		}
		return lv, nil
	}
	return lua.LNil, fmt.Errorf("%w: unknown variant kind %s", ErrConversion, v.Kind())
}

// toScriptElement converts a list or map entry. Invalid entries become the
// null sentinel since a nil entry would erase the slot.
func (b *Bridge) toScriptElement(v meta.Variant, depth int) (lua.LValue, error) {
	if !v.IsValid() {
		return b.null, nil
	}
	return b.toScript(v, depth)
}

// ---------------------------------------------------------------------------
// Script to native
// ---------------------------------------------------------------------------

// ToNativeVariant converts a Lua value without a type hint. Integral numbers
// within int64 range become Int, other numbers Double. Tables become lists
// when their keys are 1..n and maps when all keys are strings; tables made
// by the bridge keep the kind they were created with.
func (b *Bridge) ToNativeVariant(lv lua.LValue) (meta.Variant, error) {
	return b.toNative(lv, 0)
}

func (b *Bridge) toNative(lv lua.LValue, depth int) (meta.Variant, error) {
	if depth > maxDepth {
		return meta.Variant{}, fmt.Errorf("%w: nesting deeper than %d", ErrConversion, maxDepth)
	}
	switch val := lv.(type) {
	case *lua.LNilType:
		return meta.Variant{}, nil
	case lua.LBool:
		return meta.NewBool(bool(val)), nil
	case lua.LNumber:
		return numberVariant(float64(val)), nil
	case lua.LString:
		return meta.NewString(string(val)), nil
	case *lua.LTable:
		return b.tableVariant(val, depth)
	case *lua.LUserData:
		if val == b.null {
			return meta.Variant{}, nil
		}
		if w, ok := val.Value.(*Wrapper); ok {
			return wrapperVariant(w)
		}
		if d, ok := val.Value.(*ClassDescriptor); ok {
			return meta.Variant{}, fmt.Errorf("%w: class %s is not a value", ErrConversion, d.Name())
		}
	}
	return meta.Variant{}, fmt.Errorf("%w: cannot convert %s", ErrConversion, lv.Type())
}

func numberVariant(f float64) meta.Variant {
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return meta.NewInt(int64(f))
	}
	return meta.NewDouble(f)
}

func wrapperVariant(w *Wrapper) (meta.Variant, error) {
	obj, err := w.Object()
	if err != nil {
		return meta.Variant{}, fmt.Errorf("%w: %w", ErrConversion, err)
	}
	if w.wrappedPtr != nil {
		return meta.NewPointer(w.wrappedPtr, w.wrappedType), nil
	}
	return meta.NewObject(obj), nil
}

func (b *Bridge) tableVariant(tbl *lua.LTable, depth int) (meta.Variant, error) {
	switch tbl.Metatable {
	case lua.LValue(b.listMeta):
		return b.tableList(tbl, depth)
	case lua.LValue(b.mapMeta):
		return b.tableMap(tbl, depth)
	}

	var ints, strs int
	bad := false
	tbl.ForEach(func(k, _ lua.LValue) {
		switch key := k.(type) {
		case lua.LNumber:
			if f := float64(key); f == math.Trunc(f) && f >= 1 {
				ints++
				return
			}
			bad = true
		case lua.LString:
			strs++
		default:
			bad = true
		}
	})
	switch {
	case bad || (ints > 0 && strs > 0):
		return meta.Variant{}, fmt.Errorf("%w: table mixes key types", ErrConversion)
	case strs > 0:
		return b.tableMap(tbl, depth)
	default:
		return b.tableList(tbl, depth)
	}
}

// tableList converts integer keys 1..last; missing positions become invalid
// variants. Tables with more than len+listSlack missing positions are
// rejected rather than expanded.
func (b *Bridge) tableList(tbl *lua.LTable, depth int) (meta.Variant, error) {
	count, last := 0, 0
	var err error
	tbl.ForEach(func(k, _ lua.LValue) {
		if err != nil {
			return
		}
		n, ok := k.(lua.LNumber)
		f := float64(n)
		if !ok || f != math.Trunc(f) || f < 1 || f > math.MaxInt32 {
			err = fmt.Errorf("%w: list has non-index key %s", ErrConversion, k.String())
			return
		}
		count++
		if int(f) > last {
			last = int(f)
		}
	})
	if err != nil {
		return meta.Variant{}, err
	}
	if last-count > count+listSlack {
		return meta.Variant{}, fmt.Errorf("%w: sparse table (%d entries, highest index %d)", ErrConversion, count, last)
	}
	items := make([]meta.Variant, last)
	for i := range items {
		items[i], err = b.toNative(tbl.RawGetInt(i+1), depth+1)
		if err != nil {
			return meta.Variant{}, fmt.Errorf("index %d: %w", i+1, err)
		}
	}
	return meta.NewList(items...), nil
}

func (b *Bridge) tableMap(tbl *lua.LTable, depth int) (meta.Variant, error) {
	m := make(map[string]meta.Variant)
	var err error
	tbl.ForEach(func(k, v lua.LValue) {
		if err != nil {
			return
		}
		var key string
		switch kv := k.(type) {
		case lua.LString:
			key = string(kv)
		case lua.LNumber:
			key = kv.String()
		default:
			err = fmt.Errorf("%w: map key of type %s", ErrConversion, k.Type())
			return
		}
		var item meta.Variant
		if item, err = b.toNative(v, depth+1); err != nil {
			err = fmt.Errorf("key %q: %w", key, err)
			return
		}
		m[key] = item
	})
	if err != nil {
		return meta.Variant{}, err
	}
	return meta.NewMap(m), nil
}

// ---------------------------------------------------------------------------
// Hinted conversion for native parameters
// ---------------------------------------------------------------------------

// toNativeAs converts lv for a parameter declared as p. Numbers follow the
// declared kind, object parameters check the runtime class.
func (b *Bridge) toNativeAs(lv lua.LValue, p ParamInfo) (meta.Variant, error) {
	mismatch := func() (meta.Variant, error) {
		return meta.Variant{}, fmt.Errorf("%w: %s where %s expected", ErrConversion, lv.Type(), p.TypeName)
	}
	switch p.Kind {
	case meta.KindInvalid:
		return b.toNative(lv, 0)
	case meta.KindBool:
		if v, ok := lv.(lua.LBool); ok {
			return meta.NewBool(bool(v)), nil
		}
	case meta.KindInt:
		switch v := lv.(type) {
		case lua.LNumber:
			if f := float64(v); f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
				return meta.NewInt(int64(f)), nil
			}
		case lua.LString:
			if i, err := strconv.ParseInt(string(v), 10, 64); err == nil {
				return meta.NewInt(i), nil
			}
		}
	case meta.KindDouble:
		switch v := lv.(type) {
		case lua.LNumber:
			return meta.NewDouble(float64(v)), nil
		case lua.LString:
			if f, err := strconv.ParseFloat(string(v), 64); err == nil {
				return meta.NewDouble(f), nil
			}
		}
	case meta.KindString:
		switch v := lv.(type) {
		case lua.LString:
			return meta.NewString(string(v)), nil
		case lua.LNumber:
			return meta.NewString(v.String()), nil
		}
	case meta.KindList:
		if tbl, ok := lv.(*lua.LTable); ok && tbl.Metatable != lua.LValue(b.mapMeta) {
			return b.tableList(tbl, 0)
		}
	case meta.KindMap:
		if tbl, ok := lv.(*lua.LTable); ok && tbl.Metatable != lua.LValue(b.listMeta) {
			return b.tableMap(tbl, 0)
		}
	case meta.KindObject:
		if lv == lua.LNil {
			return meta.NewObject(nil), nil
		}
		if w := wrapperOf(lv); w != nil && w.wrappedPtr == nil {
			obj, err := w.Object()
			if err != nil {
				return meta.Variant{}, fmt.Errorf("%w: %w", ErrConversion, err)
			}
			if p.ClassName != "" && !meta.ClassOf(obj).Inherits(p.ClassName) {
				return meta.Variant{}, fmt.Errorf("%w: %s is not a %s", ErrConversion, meta.ClassOf(obj).ClassName(), p.ClassName)
			}
			return meta.NewObject(obj), nil
		}
	case meta.KindPointer:
		if lv == lua.LNil {
			return meta.NewPointer(nil, p.ClassName), nil
		}
		if w := wrapperOf(lv); w != nil && w.wrappedPtr != nil && w.wrappedType == p.ClassName {
			return wrapperVariant(w)
		}
	}
	return mismatch()
}
