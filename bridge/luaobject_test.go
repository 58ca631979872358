package bridge

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/chazu/objbridge/demo"
	"github.com/chazu/objbridge/meta"
)

// calc exercises overload resolution.
type calc struct {
	meta.Base
}

func (c *calc) MetaObject() *meta.MetaObject { return calcMeta }

func text(s string) (meta.Variant, error) { return meta.NewString(s), nil }

var calcMeta = meta.NewMetaObject(meta.ClassDef{
	Name:  "Calc",
	Super: meta.ObjectMeta,
	Methods: []meta.Method{
		{Signature: "scale(int)", Return: "string", Fn: func(_ meta.Object, args []meta.Variant) (meta.Variant, error) {
			return text(fmt.Sprintf("int:%d", args[0].Int()))
		}},
		{Signature: "scale(double)", Return: "string", Fn: func(_ meta.Object, args []meta.Variant) (meta.Variant, error) {
			return text(fmt.Sprintf("double:%g", args[0].Double()))
		}},
		{Signature: "scale(double,double)", Return: "string", Fn: func(_ meta.Object, args []meta.Variant) (meta.Variant, error) {
			return text(fmt.Sprintf("pair:%g,%g", args[0].Double(), args[1].Double()))
		}},
		{Signature: "label(Widget*)", Return: "string", Fn: func(_ meta.Object, args []meta.Variant) (meta.Variant, error) {
			title, err := meta.GetProperty(args[0].Object(), "title")
			if err != nil {
				return meta.Variant{}, err
			}
			return text("widget:" + title.Text())
		}},
		{Signature: "label(string)", Return: "string", Fn: func(_ meta.Object, args []meta.Variant) (meta.Variant, error) {
			return text("string:" + args[0].Text())
		}},
	},
	New: func() meta.Object { return &calc{} },
})

// runErr evaluates src expecting a script error and returns the message
// reported to the sink.
func runErr(t *testing.T, b *Bridge, sink *recordingSink, src string) string {
	t.Helper()
	before := len(sink.errs)
	_, err := b.Evaluate(b.MainModule(), src, ModeFile)
	if !errors.Is(err, ErrScript) {
		t.Fatalf("expected ErrScript, got %v\nsource:\n%s", err, src)
	}
	if len(sink.errs) != before+1 {
		t.Fatalf("expected one reported error, got %v", sink.errs[before:])
	}
	return sink.errs[len(sink.errs)-1].Error()
}

func TestObject_ConstructAndCall(t *testing.T) {
	b, _ := newTestBridge(t)
	v := run(t, b, `
local w = native.Widget{title = "hello", enabled = false}
w:resize(3, 4)
return {w.title, w:area(), w.width, w:className(), w:inherits("Object"), w:inherits("Button"), w.enabled}
`)
	want := meta.NewList(
		meta.NewString("hello"),
		meta.NewInt(12),
		meta.NewInt(3),
		meta.NewString("Widget"),
		meta.NewBool(true),
		meta.NewBool(false),
		meta.NewBool(false),
	)
	if !v.Equal(want) {
		t.Errorf("expected %v, got %v", want, v)
	}
}

func TestObject_InheritedMembers(t *testing.T) {
	b, _ := newTestBridge(t)
	v := run(t, b, `
local btn = native.Button{checkable = true, title = "ok"}
btn:setChecked(true)
btn:setObjectName("confirm")
return {btn.checked, btn.title, btn.objectName, btn:inherits("Widget"), native.Button:inherits("Widget")}
`)
	want := meta.NewList(meta.NewBool(true), meta.NewString("ok"), meta.NewString("confirm"), meta.NewBool(true), meta.NewBool(true))
	if !v.Equal(want) {
		t.Errorf("expected %v, got %v", want, v)
	}
}

func TestObject_Properties(t *testing.T) {
	b, sink := newTestBridge(t)
	run(t, b, `w = native.Widget()`)

	if msg := runErr(t, b, sink, `w.width = 5`); !strings.Contains(msg, "read-only") {
		t.Errorf("expected read-only error, got %q", msg)
	}
	if msg := runErr(t, b, sink, `w.bogus = 1`); !strings.Contains(msg, "bogus") {
		t.Errorf("expected unknown property error, got %q", msg)
	}
	if msg := runErr(t, b, sink, `w.title = {}`); !strings.Contains(msg, "title") {
		t.Errorf("expected conversion error, got %q", msg)
	}
	if v := run(t, b, `return w.bogus == nil`); !v.Bool() {
		t.Error("expected unknown attribute to read as nil")
	}

	// Numbers convert to the declared property type.
	if v := run(t, b, `w.title = 42 return w.title`); v.Text() != "42" {
		t.Errorf("expected title 42, got %v", v)
	}
}

func TestClass_Errors(t *testing.T) {
	b, sink := newTestBridge(t, WithClasses(demo.PointAdapterMeta))

	if msg := runErr(t, b, sink, `native.PointAdapter()`); !strings.Contains(msg, "cannot be instantiated") {
		t.Errorf("expected instantiation error, got %q", msg)
	}
	if msg := runErr(t, b, sink, `native.Widget{nope = 1}`); !strings.Contains(msg, "nope") {
		t.Errorf("expected property error, got %q", msg)
	}
	if b.WrapperCount() != 0 {
		t.Errorf("expected no wrapper for a failed construction, got %d", b.WrapperCount())
	}
}

func TestObject_Overloads(t *testing.T) {
	b, sink := newTestBridge(t, WithClasses(calcMeta))
	run(t, b, `
c = native.Calc()
w = native.Widget{title = "win"}
`)

	tests := []struct {
		src  string
		want string
	}{
		{`c:scale(3)`, "int:3"},
		{`c:scale("7")`, "int:7"},
		{`c:scale(2.5)`, "double:2.5"},
		{`c:scale(1, 2)`, "pair:1,2"},
		{`c["scale(double)"](c, 3)`, "double:3"},
		{`c:label(w)`, "widget:win"},
		{`c:label("plain")`, "string:plain"},
		{`c:label(12)`, "string:12"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			v, err := b.Evaluate(b.MainModule(), tt.src, ModeExpression)
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if v.Text() != tt.want {
				t.Errorf("expected %q, got %v", tt.want, v)
			}
		})
	}

	if msg := runErr(t, b, sink, `c:scale(1, 2, 3)`); !strings.Contains(msg, "no overload takes 3") {
		t.Errorf("expected argument count error, got %q", msg)
	}
	if msg := runErr(t, b, sink, `c:scale({})`); !strings.Contains(msg, "conversion failed") {
		t.Errorf("expected conversion error, got %q", msg)
	}
}

func TestObject_ReturnsSameHandle(t *testing.T) {
	b, _ := newTestBridge(t)
	v := run(t, b, `
local parent = native.Widget()
local child = native.Widget{objectName = "kid"}
parent:addChild(child)
return {parent:findChild("kid") == child, parent:findChild("none") == nil, #parent:children()}
`)
	want := meta.NewList(meta.NewBool(true), meta.NewBool(true), meta.NewInt(1))
	if !v.Equal(want) {
		t.Errorf("expected %v, got %v", want, v)
	}
}

func TestObject_ErrorsFromMethods(t *testing.T) {
	b, _ := newTestBridge(t)
	v := run(t, b, `
local c = native.Counter()
c:add(10)
local ok, msg = pcall(function() return c:divide(0) end)
return {c:divide(4), ok, string.find(msg, "division by zero", 1, true) ~= nil}
`)
	want := meta.NewList(meta.NewDouble(2.5), meta.NewBool(false), meta.NewBool(true))
	if !v.Equal(want) {
		t.Errorf("expected %v, got %v", want, v)
	}
}

func TestObject_DeleteLater(t *testing.T) {
	b, sink := newTestBridge(t)
	run(t, b, `
w = native.Widget()
w:deleteLater()
`)
	if v := run(t, b, `return tostring(w)`); v.Text() != "Widget(destroyed)" {
		t.Errorf("expected Widget(destroyed), got %v", v)
	}
	if msg := runErr(t, b, sink, `return w:area()`); !strings.Contains(msg, ErrStaleHandle.Error()) {
		t.Errorf("expected stale handle error, got %q", msg)
	}
	if msg := runErr(t, b, sink, `w.title = "x"`); !strings.Contains(msg, ErrStaleHandle.Error()) {
		t.Errorf("expected stale handle error, got %q", msg)
	}
}

func TestObject_ToString(t *testing.T) {
	b, _ := newTestBridge(t)
	if v := run(t, b, `return tostring(native.Widget{objectName = "main"})`); v.Text() != `Widget("main")` {
		t.Errorf(`expected Widget("main"), got %v`, v)
	}
	if v := run(t, b, `return tostring(native.Counter())`); !strings.HasPrefix(v.Text(), "Counter(0x") {
		t.Errorf("expected address form, got %v", v)
	}
}

func TestObject_EmitArguments(t *testing.T) {
	b, sink := newTestBridge(t)
	v := run(t, b, `
w = native.Widget()
local got = {}
w:connect("resized", function(x, y) got[#got + 1] = x * y end)
w:resized(2, 3)
w:emit("resized(int,int)", 4, 5)
return got
`)
	if !v.Equal(meta.NewList(meta.NewInt(6), meta.NewInt(20))) {
		t.Errorf("expected [6 20], got %v", v)
	}

	if msg := runErr(t, b, sink, `w:emit("resized", 1)`); !strings.Contains(msg, "wrong number of arguments") {
		t.Errorf("expected argument count error, got %q", msg)
	}
	if msg := runErr(t, b, sink, `w:emit("nope")`); !strings.Contains(msg, ErrNoSuchSignal.Error()) {
		t.Errorf("expected unknown signal error, got %q", msg)
	}
	if msg := runErr(t, b, sink, `w:connect("nope", print)`); !strings.Contains(msg, ErrNoSuchSignal.Error()) {
		t.Errorf("expected unknown signal error, got %q", msg)
	}
	if msg := runErr(t, b, sink, `w:connect("clicked", 5)`); !strings.Contains(msg, "callable expected") {
		t.Errorf("expected callable error, got %q", msg)
	}
}
