package bridge

import (
	"errors"
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/chazu/objbridge/meta"
)

// ---------------------------------------------------------------------------
// Wrapper metatable
// ---------------------------------------------------------------------------

func (b *Bridge) checkWrapper(L *lua.LState, n int) *Wrapper {
	ud := L.CheckUserData(n)
	w, ok := ud.Value.(*Wrapper)
	if !ok {
		L.ArgError(n, "native object expected")
	}
	return w
}

// liveObject returns the wrapped object or raises the stale handle error.
func liveObject(L *lua.LState, w *Wrapper) meta.Object {
	obj, err := w.Object()
	if err != nil {
		L.RaiseError("%s", err.Error())
	}
	return obj
}

func (b *Bridge) objectIndex(L *lua.LState) int {
	w := b.checkWrapper(L, 1)
	name := L.CheckString(2)
	obj := liveObject(L, w)
	class := meta.ClassOf(obj)

	if len(class.MethodsNamed(name)) > 0 || (strings.Contains(name, "(") && class.IndexOfMethod(name) >= 0) {
		L.Push(b.boundMethod(w, name))
		return 1
	}
	if _, ok := class.Property(name); ok {
		v, err := meta.GetProperty(obj, name)
		if err != nil {
			L.RaiseError("%s", err.Error())
		}
		lv, err := b.ToScriptValue(v)
		if err != nil {
			L.RaiseError("%s.%s: %s", class.ClassName(), name, err.Error())
		}
		L.Push(lv)
		return 1
	}
	if fn, ok := b.builtin(name); ok {
		L.Push(fn)
		return 1
	}
	if sig, ok := class.FindSignal(name); ok {
		L.Push(b.boundMethod(w, sig.Signature))
		return 1
	}
	L.Push(lua.LNil)
	return 1
}

func (b *Bridge) objectNewIndex(L *lua.LState) int {
	w := b.checkWrapper(L, 1)
	name := L.CheckString(2)
	value := L.Get(3)
	obj := liveObject(L, w)
	if err := b.setProperty(obj, name, value); err != nil {
		L.RaiseError("%s", err.Error())
	}
	return 0
}

func (b *Bridge) objectToString(L *lua.LState) int {
	w := b.checkWrapper(L, 1)
	obj, err := w.Object()
	switch {
	case err != nil:
		L.Push(lua.LString(fmt.Sprintf("%s(destroyed)", w.class.Name())))
	case meta.ObjectName(obj) != "":
		L.Push(lua.LString(fmt.Sprintf("%s(%q)", w.class.Name(), meta.ObjectName(obj))))
	default:
		L.Push(lua.LString(fmt.Sprintf("%s(%p)", w.class.Name(), obj.ObjectBase())))
	}
	return 1
}

// boundMethod returns a function calling the overload set name on w. The
// receiver may be passed explicitly (obj:method()) or omitted (obj.method()).
// A full signature selects one method or signal exactly.
func (b *Bridge) boundMethod(w *Wrapper, name string) *lua.LFunction {
	return b.state.NewFunction(func(L *lua.LState) int {
		args := make([]lua.LValue, 0, L.GetTop())
		for i := 1; i <= L.GetTop(); i++ {
			args = append(args, L.Get(i))
		}
		if len(args) > 0 && args[0] == lua.LValue(w.handle) {
			args = args[1:]
		}
		obj := liveObject(L, w)
		result, err := b.callMethod(obj, name, args)
		if err != nil {
			L.RaiseError("%s", err.Error())
		}
		lv, err := b.ToScriptValue(result)
		if err != nil {
			L.RaiseError("%s", err.Error())
		}
		L.Push(lv)
		return 1
	})
}

// callMethod picks the first overload whose parameter count matches and
// whose parameters accept the converted arguments.
func (b *Bridge) callMethod(obj meta.Object, name string, args []lua.LValue) (meta.Variant, error) {
	class := meta.ClassOf(obj)
	var candidates []meta.Method
	if strings.Contains(name, "(") {
		if i := class.IndexOfMethod(name); i >= 0 {
			candidates = []meta.Method{class.Methods()[i]}
		}
	} else {
		candidates = class.MethodsNamed(name)
	}

	var lastErr error
	for _, m := range candidates {
		info, err := b.methods.SignalInfo(m.Signature)
		if err != nil {
			lastErr = err
			continue
		}
		if len(info.Params) != len(args) {
			continue
		}
		vargs, err := b.convertArgs(args, info)
		if err != nil {
			lastErr = fmt.Errorf("%s.%s: %w", class.ClassName(), m.Signature, err)
			continue
		}
		return meta.Call(obj, m, vargs)
	}
	if lastErr != nil {
		return meta.Variant{}, lastErr
	}
	return meta.Variant{}, fmt.Errorf("%s.%s: no overload takes %d argument(s)", class.ClassName(), name, len(args))
}

func (b *Bridge) convertArgs(args []lua.LValue, info *MethodInfo) ([]meta.Variant, error) {
	out := make([]meta.Variant, len(args))
	for i, arg := range args {
		v, err := b.toNativeAs(arg, info.Params[i])
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		out[i] = v
	}
	return out, nil
}

// builtin returns the wrapper helpers available on every object.
func (b *Bridge) builtin(name string) (*lua.LFunction, bool) {
	var fn lua.LGFunction
	switch name {
	case "connect":
		fn = func(L *lua.LState) int {
			obj := liveObject(L, b.checkWrapper(L, 1))
			signal := L.CheckString(2)
			callable := L.CheckAny(3)
			if !b.isCallable(callable) {
				L.ArgError(3, "callable expected")
			}
			if err := b.connectCallable(obj, signal, callable); err != nil {
				L.RaiseError("%s", err.Error())
			}
			return 0
		}
	case "disconnect":
		fn = func(L *lua.LState) int {
			obj := liveObject(L, b.checkWrapper(L, 1))
			L.Push(lua.LBool(b.DisconnectCallable(obj, L.CheckString(2), L.CheckAny(3))))
			return 1
		}
	case "className":
		fn = func(L *lua.LState) int {
			obj := liveObject(L, b.checkWrapper(L, 1))
			L.Push(lua.LString(meta.ClassOf(obj).ClassName()))
			return 1
		}
	case "inherits":
		fn = func(L *lua.LState) int {
			obj := liveObject(L, b.checkWrapper(L, 1))
			L.Push(lua.LBool(meta.ClassOf(obj).Inherits(L.CheckString(2))))
			return 1
		}
	case "emit":
		fn = func(L *lua.LState) int {
			obj := liveObject(L, b.checkWrapper(L, 1))
			signal := L.CheckString(2)
			sig, ok := meta.ClassOf(obj).FindSignal(signal)
			if !ok {
				L.RaiseError("%s: %s", ErrNoSuchSignal, signal)
			}
			rest := make([]lua.LValue, 0, L.GetTop())
			for i := 3; i <= L.GetTop(); i++ {
				rest = append(rest, L.Get(i))
			}
			if _, err := b.callSignal(obj, sig, rest); err != nil {
				L.RaiseError("%s", err.Error())
			}
			return 0
		}
	default:
		return nil, false
	}
	return b.state.NewFunction(fn), true
}

func (b *Bridge) callSignal(obj meta.Object, sig meta.Method, args []lua.LValue) (meta.Variant, error) {
	info, err := b.methods.SignalInfo(sig.Signature)
	if err != nil {
		return meta.Variant{}, err
	}
	if len(info.Params) != len(args) {
		return meta.Variant{}, fmt.Errorf("%w: %s takes %d, got %d", meta.ErrArgCount, sig.Signature, len(info.Params), len(args))
	}
	vargs, err := b.convertArgs(args, info)
	if err != nil {
		return meta.Variant{}, err
	}
	return meta.Call(obj, sig, vargs)
}

// ---------------------------------------------------------------------------
// Class objects
// ---------------------------------------------------------------------------

func checkClass(L *lua.LState, n int) *ClassDescriptor {
	ud := L.CheckUserData(n)
	d, ok := ud.Value.(*ClassDescriptor)
	if !ok {
		L.ArgError(n, "class expected")
	}
	return d
}

// classCall constructs an instance: Class() or Class{prop = value, ...}.
func (b *Bridge) classCall(L *lua.LState) int {
	d := checkClass(L, 1)
	obj, err := d.MetaObject().New()
	if err != nil {
		if errors.Is(err, meta.ErrNotConstructible) {
			L.RaiseError("%s cannot be instantiated from scripts", d.Name())
		}
		L.RaiseError("%s", err.Error())
	}

	if props, ok := L.Get(2).(*lua.LTable); ok {
		var setErr error
		props.ForEach(func(k, v lua.LValue) {
			if setErr != nil {
				return
			}
			name, ok := k.(lua.LString)
			if !ok {
				setErr = fmt.Errorf("property names must be strings, got %s", k.Type())
				return
			}
			setErr = b.setProperty(obj, string(name), v)
		})
		if setErr != nil {
			meta.Destroy(obj)
			L.RaiseError("%s", setErr.Error())
		}
	}

	L.Push(b.WrapObject(obj))
	return 1
}

func (b *Bridge) setProperty(obj meta.Object, name string, lv lua.LValue) error {
	class := meta.ClassOf(obj)
	prop, ok := class.Property(name)
	if !ok {
		return fmt.Errorf("%w: %s.%s", meta.ErrNoSuchProperty, class.ClassName(), name)
	}
	kind, className := meta.KindForType(prop.Type)
	v, err := b.toNativeAs(lv, ParamInfo{TypeName: prop.Type, Kind: kind, ClassName: className})
	if err != nil {
		return fmt.Errorf("%s.%s: %w", class.ClassName(), name, err)
	}
	return meta.SetProperty(obj, name, v)
}

func (b *Bridge) classIndex(L *lua.LState) int {
	d := checkClass(L, 1)
	switch L.CheckString(2) {
	case "name":
		L.Push(lua.LString(d.Name()))
	case "super":
		ancestors := d.Ancestors()
		if len(ancestors) == 0 {
			L.Push(lua.LNil)
			break
		}
		if ud, ok := b.classHandles[ancestors[0]]; ok {
			L.Push(ud)
		} else {
			L.Push(lua.LNil)
		}
	case "inherits":
		L.Push(b.state.NewFunction(func(L *lua.LState) int {
			L.Push(lua.LBool(checkClass(L, 1).Inherits(L.CheckString(2))))
			return 1
		}))
	default:
		L.Push(lua.LNil)
	}
	return 1
}

func (b *Bridge) classToString(L *lua.LState) int {
	L.Push(lua.LString("class " + checkClass(L, 1).Name()))
	return 1
}
