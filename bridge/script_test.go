package bridge

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	lua "github.com/yuin/gopher-lua"

	"github.com/chazu/objbridge/demo"
	"github.com/chazu/objbridge/meta"
)

func TestLookup(t *testing.T) {
	b, sink := newTestBridge(t)
	run(t, b, `
outer = {inner = {value = 42}}
broken = setmetatable({}, {__index = function() error("no index") end})
w = native.Widget{title = "main"}
`)
	main := b.MainModule()

	tests := []struct {
		name  string
		found bool
	}{
		{"outer", true},
		{"outer.inner.value", true},
		{"outer.missing", false},
		{"outer.inner.value.deeper", false},
		{"outer..inner", false},
		{"broken.anything", false},
		{"w.title", true},
		{"w.nothing", false},
		{"print", true},
		{"", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := b.Lookup(main, tt.name)
			if ok != tt.found {
				t.Errorf("Lookup(%q): expected found=%v, got %v", tt.name, tt.found, ok)
			}
		})
	}

	v, _ := b.Lookup(main, "outer.inner.value")
	if v != lua.LNumber(42) {
		t.Errorf("expected 42, got %v", v)
	}
	if len(sink.errs) != 0 {
		t.Errorf("expected lookup failures to stay off the error sink, got %v", sink.errs)
	}
}

func TestLookupCallable(t *testing.T) {
	b, _ := newTestBridge(t)
	run(t, b, `
function f() end
callable = setmetatable({}, {__call = function() return 1 end})
plain = {}
number = 3
`)
	main := b.MainModule()
	for name, want := range map[string]bool{
		"f":              true,
		"callable":       true,
		"native.Widget":  true,
		"plain":          false,
		"number":         false,
		"missing":        false,
		"string.format":  true,
		"native.Nothing": false,
	} {
		if _, ok := b.LookupCallable(main, name); ok != want {
			t.Errorf("LookupCallable(%q): expected %v, got %v", name, want, ok)
		}
	}
}

func TestCall(t *testing.T) {
	b, _ := newTestBridge(t)
	run(t, b, `
function add(a, b) return a + b end
function describe(w) return w:className() .. ":" .. w.title end
util = {join = function(a, b) return a .. "-" .. b end}
`)
	main := b.MainModule()

	v, err := b.Call(main, "add", []meta.Variant{meta.NewInt(2), meta.NewInt(3)})
	if err != nil {
		t.Fatalf("Call(add): %v", err)
	}
	if !v.Equal(meta.NewInt(5)) {
		t.Errorf("expected 5, got %v", v)
	}

	v, err = b.Call(main, "util.join", []meta.Variant{meta.NewString("a"), meta.NewString("b")})
	if err != nil || v.Text() != "a-b" {
		t.Errorf("expected a-b, got %v (%v)", v, err)
	}

	w := demo.NewWidget()
	w.Title = "hello"
	v, err = b.Call(main, "describe", []meta.Variant{meta.NewObject(w)})
	if err != nil || v.Text() != "Widget:hello" {
		t.Errorf("expected Widget:hello, got %v (%v)", v, err)
	}
}

func TestCall_Errors(t *testing.T) {
	b, sink := newTestBridge(t)
	run(t, b, `
called = false
value = 1
function touch(p) called = true end
function fails() error("kaput") end
`)
	main := b.MainModule()

	if _, err := b.Call(main, "missing", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := b.Call(main, "value", nil); !errors.Is(err, ErrNotCallable) {
		t.Errorf("expected ErrNotCallable, got %v", err)
	}

	// No factory knows Point, so the argument cannot be converted.
	_, err := b.Call(main, "touch", []meta.Variant{meta.NewPointer(&demo.Point{X: 1}, "Point")})
	if !errors.Is(err, ErrConversion) {
		t.Errorf("expected ErrConversion, got %v", err)
	}
	if v, _ := b.GetVariable(main, "called"); v.Bool() {
		t.Error("expected touch not to run after a conversion failure")
	}
	if len(sink.errs) != 0 {
		t.Errorf("expected no script errors yet, got %v", sink.errs)
	}

	_, err = b.Call(main, "fails", nil)
	if !errors.Is(err, ErrScript) {
		t.Errorf("expected ErrScript, got %v", err)
	}
	if len(sink.errs) != 1 || !sink.contains("kaput") {
		t.Errorf("expected the raised error to be reported once, got %v", sink.errs)
	}
}

func TestEvaluate(t *testing.T) {
	b, sink := newTestBridge(t)

	v, err := b.Evaluate(b.MainModule(), "1 + 2 * 3", ModeExpression)
	if err != nil || !v.Equal(meta.NewInt(7)) {
		t.Errorf("expected 7, got %v (%v)", v, err)
	}

	v, err = b.Evaluate(b.MainModule(), "x = 10\nreturn x / 4", ModeFile)
	if err != nil || !v.Equal(meta.NewDouble(2.5)) {
		t.Errorf("expected 2.5, got %v (%v)", v, err)
	}

	v, err = b.Evaluate(b.MainModule(), "y = 1", ModeFile)
	if err != nil || v.IsValid() {
		t.Errorf("expected an invalid result for a chunk without return, got %v (%v)", v, err)
	}

	_, err = b.Evaluate(b.MainModule(), "return (", ModeFile)
	if !errors.Is(err, ErrScript) {
		t.Errorf("expected ErrScript for a syntax error, got %v", err)
	}
	if len(sink.errs) != 1 {
		t.Errorf("expected the syntax error on the sink, got %v", sink.errs)
	}
}

func TestEvaluateCode_Modules(t *testing.T) {
	b, _ := newTestBridge(t)
	first := b.NewModule("first")
	second := b.NewModule("second")

	code, err := b.Compile("counter = (counter or 0) + 1\nreturn counter", "bump")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if code.Name() != "bump" {
		t.Errorf("expected name bump, got %s", code.Name())
	}

	for i := 0; i < 2; i++ {
		if _, err := b.EvaluateCode(first, code); err != nil {
			t.Fatalf("EvaluateCode(first): %v", err)
		}
	}
	v, err := b.EvaluateCode(second, code)
	if err != nil || !v.Equal(meta.NewInt(1)) {
		t.Errorf("expected second module to start at 1, got %v (%v)", v, err)
	}
	if v, _ := b.GetVariable(first, "counter"); !v.Equal(meta.NewInt(2)) {
		t.Errorf("expected first module counter 2, got %v", v)
	}
	if _, ok := b.Lookup(b.MainModule(), "counter"); ok {
		t.Error("expected main module untouched")
	}

	// Module globals fall back to the shared globals.
	v, err = b.Evaluate(first, "return type(print)", ModeFile)
	if err != nil || v.Text() != "function" {
		t.Errorf("expected globals visible in module, got %v (%v)", v, err)
	}

	// A nil module means the main module.
	if _, err := b.EvaluateCode(nil, code); err != nil {
		t.Fatalf("EvaluateCode(nil): %v", err)
	}
	if _, ok := b.Lookup(b.MainModule(), "counter"); !ok {
		t.Error("expected nil module to run in main")
	}

	if _, err := b.EvaluateCode(first, nil); err == nil {
		t.Error("expected error for nil code")
	}
}

func TestModules(t *testing.T) {
	b, _ := newTestBridge(t)
	mod := b.NewModule("tools")
	if err := b.AddVariable(mod, "version", meta.NewString("1.0")); err != nil {
		t.Fatalf("AddVariable: %v", err)
	}

	got, ok := b.Module("tools")
	if !ok || got != mod {
		t.Fatal("expected Module to return the created module")
	}
	if _, ok := b.Module("nothing"); ok {
		t.Error("expected unknown module not to be found")
	}

	v := run(t, b, `local t = require("tools") return t.__name__ .. " " .. t.version`)
	if v.Text() != "tools 1.0" {
		t.Errorf("expected 'tools 1.0', got %v", v)
	}

	b.SetModulePath(mod, []string{"/opt/a", "/opt/b"})
	pv, err := b.GetVariable(mod, "__path__")
	if err != nil {
		t.Fatalf("GetVariable(__path__): %v", err)
	}
	if !pv.Equal(meta.NewList(meta.NewString("/opt/a"), meta.NewString("/opt/b"))) {
		t.Errorf("unexpected __path__ %v", pv)
	}

	b.OverwriteSearchPath([]string{"/x/?.lua", "/y/?.lua"})
	v = run(t, b, `return package.path`)
	if v.Text() != "/x/?.lua;/y/?.lua" {
		t.Errorf("unexpected package.path %q", v.Text())
	}
}

func TestVariables(t *testing.T) {
	b, _ := newTestBridge(t)
	main := b.MainModule()

	w := demo.NewWidget()
	b.AddObject(main, "win", w)
	if err := b.AddVariable(main, "sizes", meta.NewList(meta.NewInt(1), meta.NewInt(2))); err != nil {
		t.Fatalf("AddVariable: %v", err)
	}

	v := run(t, b, `win.title = "set from script" return #sizes`)
	if !v.Equal(meta.NewInt(2)) {
		t.Errorf("expected 2, got %v", v)
	}
	if w.Title != "set from script" {
		t.Errorf("expected title to be set, got %q", w.Title)
	}

	got, err := b.GetVariable(main, "win")
	if err != nil || got.Object() != meta.Object(w) {
		t.Errorf("expected the widget back, got %v (%v)", got, err)
	}

	b.RemoveVariable(main, "sizes")
	if _, err := b.GetVariable(main, "sizes"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after removal, got %v", err)
	}
}

func TestIntrospect_Module(t *testing.T) {
	b, _ := newTestBridge(t)
	main := b.MainModule()
	main.RawSetString("mod", b.NewModule("mod"))
	run(t, b, `
data = {1, 2}
greeting = "hi"
value = 3
function helper() end
Klass = setmetatable({}, {__call = function() end})
W = native.Widget
strlib = string
__private = true
`)

	tests := []struct {
		kind AttrKind
		want []string
	}{
		{AttrVariable, []string{"data", "greeting", "value"}},
		{AttrFunction, []string{"helper"}},
		{AttrClass, []string{"Klass", "W"}},
		{AttrModule, []string{"mod", "strlib"}},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			got, err := b.Introspect(main, "", tt.kind)
			if err != nil {
				t.Fatalf("Introspect: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}

	classes, err := b.Introspect(main, "native", AttrClass)
	if err != nil {
		t.Fatalf("Introspect(native): %v", err)
	}
	if diff := cmp.Diff([]string{"Button", "Counter", "Object", "Widget"}, classes); diff != "" {
		t.Errorf("class module mismatch (-want +got):\n%s", diff)
	}
}

func TestIntrospect_Object(t *testing.T) {
	b, _ := newTestBridge(t)
	main := b.MainModule()
	c := demo.NewCounter()
	b.AddObject(main, "counter", c)

	fns, err := b.Introspect(main, "counter", AttrFunction)
	if err != nil {
		t.Fatalf("Introspect: %v", err)
	}
	wantFns := []string{
		"add", "children", "deleteLater", "destroyed", "divide", "increment", "objectNameChanged",
		"parent", "reset", "setObjectName", "setParent", "setValue", "valueChanged",
	}
	if diff := cmp.Diff(wantFns, fns); diff != "" {
		t.Errorf("functions mismatch (-want +got):\n%s", diff)
	}

	vars, err := b.Introspect(main, "counter", AttrVariable)
	if err != nil {
		t.Fatalf("Introspect: %v", err)
	}
	if diff := cmp.Diff([]string{"objectName", "step", "value"}, vars); diff != "" {
		t.Errorf("variables mismatch (-want +got):\n%s", diff)
	}

	meta.Destroy(c)
	if _, err := b.Introspect(main, "counter", AttrFunction); !errors.Is(err, ErrStaleHandle) {
		t.Errorf("expected ErrStaleHandle, got %v", err)
	}
	if _, err := b.Introspect(main, "nothing", AttrFunction); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
