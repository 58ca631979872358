package bridge

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"

	"github.com/chazu/objbridge/meta"
)

// ---------------------------------------------------------------------------
// Modules
// ---------------------------------------------------------------------------

// MainModule returns the default module scripts run in.
func (b *Bridge) MainModule() *lua.LTable { return b.main }

// ClassesModule returns the module holding the class objects.
func (b *Bridge) ClassesModule() *lua.LTable { return b.classModule }

// NewModule creates a module table that falls back to the globals for
// names it does not define, and records it in package.loaded.
func (b *Bridge) NewModule(name string) *lua.LTable {
	L := b.state
	mod := L.NewTable()
	mod.RawSetString("__name__", lua.LString(name))
	mt := L.NewTable()
	mt.RawSetString("__index", L.G.Global)
	mod.Metatable = mt

	b.modules[mod] = name
	if loaded := b.loadedTable(); loaded != nil {
		loaded.RawSetString(name, mod)
	}
	return mod
}

// Module returns a module created by NewModule.
func (b *Bridge) Module(name string) (*lua.LTable, bool) {
	for mod, n := range b.modules {
		if n == name {
			return mod, true
		}
	}
	return nil, false
}

func (b *Bridge) loadedTable() *lua.LTable {
	pkg, ok := b.state.GetGlobal("package").(*lua.LTable)
	if !ok {
		return nil
	}
	loaded, _ := pkg.RawGetString("loaded").(*lua.LTable)
	return loaded
}

// SetModulePath sets the module's __path__ list.
func (b *Bridge) SetModulePath(module *lua.LTable, paths []string) {
	items := make([]meta.Variant, len(paths))
	for i, p := range paths {
		items[i] = meta.NewString(p)
	}
	lv, _ := b.ToScriptValue(meta.NewList(items...))
	module.RawSetString("__path__", lv)
}

// OverwriteSearchPath replaces package.path, the template list require
// searches.
func (b *Bridge) OverwriteSearchPath(paths []string) {
	pkg, ok := b.state.GetGlobal("package").(*lua.LTable)
	if !ok {
		b.log.Warningf("package library not loaded; search path ignored")
		return
	}
	pkg.RawSetString("path", lua.LString(strings.Join(paths, ";")))
}

// ---------------------------------------------------------------------------
// Variables
// ---------------------------------------------------------------------------

// AddObject binds a native object in module.
func (b *Bridge) AddObject(module *lua.LTable, name string, obj meta.Object) {
	module.RawSetString(name, b.WrapObject(obj))
}

// AddVariable binds a converted value in module.
func (b *Bridge) AddVariable(module *lua.LTable, name string, v meta.Variant) error {
	lv, err := b.ToScriptValue(v)
	if err != nil {
		return err
	}
	module.RawSetString(name, lv)
	return nil
}

// RemoveVariable deletes a binding from module.
func (b *Bridge) RemoveVariable(module *lua.LTable, name string) {
	module.RawSetString(name, lua.LNil)
}

// GetVariable converts the value at dotted name.
func (b *Bridge) GetVariable(module lua.LValue, name string) (meta.Variant, error) {
	lv, ok := b.Lookup(module, name)
	if !ok {
		return meta.Variant{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return b.ToNativeVariant(lv)
}

// ---------------------------------------------------------------------------
// Lookup
// ---------------------------------------------------------------------------

// Lookup resolves a dotted name one attribute at a time, starting at module.
// An empty name resolves to module itself. Names missing from a bridge module
// fall back to the globals. Missing attributes and errors raised by __index
// both report not found.
func (b *Bridge) Lookup(module lua.LValue, name string) (lua.LValue, bool) {
	if name == "" {
		return module, module != lua.LNil
	}
	current := module
	for _, part := range strings.Split(name, ".") {
		next, err := b.attribute(current, part)
		if err != nil {
			b.log.Debugf("lookup %s: %s", name, err)
			return lua.LNil, false
		}
		if next == lua.LNil {
			return lua.LNil, false
		}
		current = next
	}
	return current, true
}

// LookupCallable resolves name and checks that the result can be called.
func (b *Bridge) LookupCallable(module lua.LValue, name string) (lua.LValue, bool) {
	v, ok := b.Lookup(module, name)
	if !ok || !b.isCallable(v) {
		return lua.LNil, false
	}
	return v, true
}

func (b *Bridge) attribute(v lua.LValue, name string) (lua.LValue, error) {
	if name == "" {
		return lua.LNil, nil
	}
	switch val := v.(type) {
	case *lua.LTable:
		if _, ok := b.modules[val]; ok {
			if found := val.RawGetString(name); found != lua.LNil {
				return found, nil
			}
			return b.state.G.Global.RawGetString(name), nil
		}
	case *lua.LUserData:
	default:
		return lua.LNil, nil
	}
	var result lua.LValue = lua.LNil
	err := b.protect(func(L *lua.LState) {
		result = L.GetField(v, name)
	})
	return result, err
}

func (b *Bridge) isCallable(v lua.LValue) bool {
	switch v.(type) {
	case *lua.LFunction:
		return true
	case *lua.LTable, *lua.LUserData:
		return b.state.GetMetaField(v, "__call") != lua.LNil
	}
	return false
}

// protect runs fn under a protected call so errors raised inside come back
// as values.
func (b *Bridge) protect(fn func(L *lua.LState)) error {
	return b.state.CallByParam(lua.P{
		Fn: b.state.NewFunction(func(L *lua.LState) int {
			fn(L)
			return 0
		}),
		NRet:    0,
		Protect: true,
	})
}

// invoke calls callable in protected mode and returns its first result.
func (b *Bridge) invoke(callable lua.LValue, args []lua.LValue) (lua.LValue, error) {
	L := b.state
	if err := L.CallByParam(lua.P{Fn: callable, NRet: 1, Protect: true}, args...); err != nil {
		return lua.LNil, err
	}
	ret := L.Get(-1)
	L.Pop(1)
	return ret, nil
}

// ---------------------------------------------------------------------------
// Evaluation
// ---------------------------------------------------------------------------

// Mode selects how source text is compiled.
type Mode int

const (
	// ModeFile runs the source as a chunk; its return value is the result.
	ModeFile Mode = iota
	// ModeExpression evaluates a single expression.
	ModeExpression
)

// Code is a compiled chunk that can be evaluated in any module.
type Code struct {
	name  string
	proto *lua.FunctionProto
}

// Name returns the chunk name used in error messages.
func (c *Code) Name() string { return c.name }

// Compile parses and compiles source. Syntax errors are reported through
// the error sink and returned wrapped in ErrScript.
func (b *Bridge) Compile(source, name string) (*Code, error) {
	chunk, err := parse.Parse(strings.NewReader(source), name)
	if err != nil {
		return nil, b.fail(err)
	}
	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return nil, b.fail(err)
	}
	return &Code{name: name, proto: proto}, nil
}

// Evaluate compiles and runs source in module.
func (b *Bridge) Evaluate(module *lua.LTable, source string, mode Mode) (meta.Variant, error) {
	if mode == ModeExpression {
		source = "return " + source
	}
	code, err := b.Compile(source, "<string>")
	if err != nil {
		return meta.Variant{}, err
	}
	return b.EvaluateCode(module, code)
}

// EvaluateCode runs compiled code with module as its environment and
// converts the chunk's return value.
func (b *Bridge) EvaluateCode(module *lua.LTable, code *Code) (meta.Variant, error) {
	if code == nil {
		return meta.Variant{}, errors.New("no code to evaluate")
	}
	if module == nil {
		module = b.main
	}
	fn := b.state.NewFunctionFromProto(code.proto)
	fn.Env = module
	ret, err := b.invoke(fn, nil)
	if err != nil {
		return meta.Variant{}, b.fail(err)
	}
	return b.ToNativeVariant(ret)
}

// Call resolves a callable by dotted name, converts args, invokes it and
// converts the result. Nothing is invoked when an argument fails to
// convert.
func (b *Bridge) Call(module lua.LValue, name string, args []meta.Variant) (meta.Variant, error) {
	callable, found := b.Lookup(module, name)
	if !found {
		return meta.Variant{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if !b.isCallable(callable) {
		return meta.Variant{}, fmt.Errorf("%w: %s", ErrNotCallable, name)
	}

	largs := make([]lua.LValue, len(args))
	for i, arg := range args {
		lv, err := b.ToScriptValue(arg)
		if err != nil {
			return meta.Variant{}, fmt.Errorf("%s argument %d: %w", name, i+1, err)
		}
		largs[i] = lv
	}

	ret, err := b.invoke(callable, largs)
	if err != nil {
		return meta.Variant{}, b.fail(err)
	}
	return b.ToNativeVariant(ret)
}

// ---------------------------------------------------------------------------
// Introspection
// ---------------------------------------------------------------------------

// AttrKind classifies attributes for Introspect.
type AttrKind int

const (
	AttrClass AttrKind = iota
	AttrVariable
	AttrFunction
	AttrModule
)

func (k AttrKind) String() string {
	switch k {
	case AttrClass:
		return "class"
	case AttrVariable:
		return "variable"
	case AttrFunction:
		return "function"
	case AttrModule:
		return "module"
	}
	return fmt.Sprintf("AttrKind(%d)", int(k))
}

// Introspect lists the public attribute names of the value at dotted name
// whose kind is kind, sorted. Names starting with "__" are skipped. On a
// native object, methods and signals are functions and properties are
// variables.
func (b *Bridge) Introspect(module lua.LValue, name string, kind AttrKind) ([]string, error) {
	if kind < AttrClass || kind > AttrModule {
		return nil, fmt.Errorf("unknown attribute kind %s", kind)
	}
	target, ok := b.Lookup(module, name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	switch val := target.(type) {
	case *lua.LUserData:
		switch v := val.Value.(type) {
		case *Wrapper:
			obj, err := v.Object()
			if err != nil {
				return nil, err
			}
			return objectMembers(b.classes.register(meta.ClassOf(obj), ""), kind), nil
		case *ClassDescriptor:
			return objectMembers(v, kind), nil
		}
		return nil, nil
	case *lua.LTable:
		loaded := b.loadedModules()
		names := []string{}
		val.ForEach(func(k, v lua.LValue) {
			key, ok := k.(lua.LString)
			if !ok || strings.HasPrefix(string(key), "__") {
				return
			}
			if b.classify(v, loaded) == kind {
				names = append(names, string(key))
			}
		})
		sort.Strings(names)
		return names, nil
	}
	return nil, nil
}

func objectMembers(d *ClassDescriptor, kind AttrKind) []string {
	switch kind {
	case AttrFunction:
		names := append(d.MethodNames(), d.SignalNames()...)
		sort.Strings(names)
		return names
	case AttrVariable:
		return d.PropertyNames()
	}
	return []string{}
}

func (b *Bridge) loadedModules() map[*lua.LTable]bool {
	set := make(map[*lua.LTable]bool)
	for mod := range b.modules {
		set[mod] = true
	}
	if loaded := b.loadedTable(); loaded != nil {
		loaded.ForEach(func(_, v lua.LValue) {
			if t, ok := v.(*lua.LTable); ok {
				set[t] = true
			}
		})
	}
	return set
}

func (b *Bridge) classify(v lua.LValue, modules map[*lua.LTable]bool) AttrKind {
	switch val := v.(type) {
	case *lua.LFunction:
		return AttrFunction
	case *lua.LUserData:
		if _, ok := val.Value.(*ClassDescriptor); ok {
			return AttrClass
		}
	case *lua.LTable:
		if b.state.GetMetaField(val, "__call") != lua.LNil {
			return AttrClass
		}
		if modules[val] {
			return AttrModule
		}
	}
	return AttrVariable
}
