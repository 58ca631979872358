package bridge

import (
	"errors"
	"math"
	"testing"

	lua "github.com/yuin/gopher-lua"

	"github.com/chazu/objbridge/demo"
	"github.com/chazu/objbridge/meta"
)

func TestWrapObject_Nil(t *testing.T) {
	b, _ := newTestBridge(t)
	if b.WrapObject(nil) != lua.LNil {
		t.Error("expected nil for nil object")
	}
	var w *demo.Widget
	if b.WrapObject(w) != lua.LNil {
		t.Error("expected nil for typed nil object")
	}
	if b.WrapperCount() != 0 {
		t.Errorf("expected no wrappers, got %d", b.WrapperCount())
	}
}

func TestWrapObject_Identity(t *testing.T) {
	b, _ := newTestBridge(t)
	btn := demo.NewButton()

	h := b.WrapObject(&btn.Widget)
	if b.WrapObject(btn) != h {
		t.Error("expected embedded and outer views to share a wrapper")
	}
	w := b.WrapperOf(h)
	if w.Class().Name() != "Button" {
		t.Errorf("expected most-derived class Button, got %s", w.Class().Name())
	}
	if w.RefCount() != 2 {
		t.Errorf("expected refcount 2, got %d", w.RefCount())
	}
	if b.LookupWrapper(btn) != w || b.LookupWrapper(&btn.Widget) != w {
		t.Error("expected LookupWrapper to find the wrapper by any view")
	}
}

func TestWrapObject_Destroyed(t *testing.T) {
	b, _ := newTestBridge(t)
	w := demo.NewWidget()
	meta.Destroy(w)
	if b.WrapObject(w) != lua.LNil {
		t.Error("expected nil for destroyed object")
	}
}

func TestWrapObject_HeldUntilReleased(t *testing.T) {
	b, _ := newTestBridge(t)
	w := demo.NewWidget()
	b.AddObject(b.MainModule(), "w", w)

	// Dropping every script reference does not release it.
	run(t, b, `w = nil`)
	if b.LookupWrapper(w) == nil {
		t.Fatal("expected wrapper to stay until released")
	}

	b.Release(b.LookupWrapper(w).Handle())
	if b.LookupWrapper(w) != nil {
		t.Error("expected Release to drop the wrapper")
	}

	other := demo.NewWidget()
	b.WrapObject(other)
	meta.Destroy(other)
	if b.LookupWrapper(other) != nil {
		t.Error("expected destroy to drop the wrapper")
	}
}

func TestWrapPointer_Covariant(t *testing.T) {
	b, _ := newTestBridge(t)
	btn := demo.NewButton()

	h, err := b.WrapPointer(btn, "Widget")
	if err != nil {
		t.Fatalf("WrapPointer: %v", err)
	}
	if got := b.WrapperOf(h).Class().Name(); got != "Button" {
		t.Errorf("expected upgrade to Button, got %s", got)
	}
	if b.WrapObject(btn) != h {
		t.Error("expected pointer and object wraps to share a wrapper")
	}
}

func TestWrapPointer_Unrelated(t *testing.T) {
	b, _ := newTestBridge(t)

	h, err := b.WrapPointer(demo.NewCounter(), "Widget")
	if !errors.Is(err, ErrUnrelatedType) || h != lua.LNil {
		t.Errorf("expected ErrUnrelatedType, got %v, %v", h, err)
	}
	_, err = b.WrapPointer(&demo.Point{}, "Widget")
	if !errors.Is(err, ErrUnrelatedType) {
		t.Errorf("expected ErrUnrelatedType for non-object, got %v", err)
	}
	if b.WrapperCount() != 0 {
		t.Errorf("expected no wrappers, got %d", b.WrapperCount())
	}
}

func TestWrapPointer_NoFactory(t *testing.T) {
	b, _ := newTestBridge(t)
	h, err := b.WrapPointer(&demo.Point{}, "Point")
	if !errors.Is(err, ErrUnwrappable) || h != lua.LNil {
		t.Errorf("expected ErrUnwrappable, got %v, %v", h, err)
	}

	h, err = b.WrapPointer((*demo.Point)(nil), "Point")
	if err != nil || h != lua.LNil {
		t.Errorf("expected nil without error for nil pointer, got %v, %v", h, err)
	}
}

func TestWrapPointer_Factory(t *testing.T) {
	b, _ := newTestBridge(t, WithWrapperFactory(WrapperFactoryFunc(demo.PointFactory)))
	p := &demo.Point{X: 3, Y: 4}

	h, err := b.WrapPointer(p, "Point")
	if err != nil {
		t.Fatalf("WrapPointer: %v", err)
	}
	w := b.WrapperOf(h)
	if w.Class().Name() != "PointAdapter" || w.Class().WrappedTypeName() != "Point" {
		t.Errorf("unexpected class %s wrapping %q", w.Class().Name(), w.Class().WrappedTypeName())
	}
	if ptr, typeName := w.WrappedPointer(); ptr != p || typeName != "Point" {
		t.Errorf("expected wrapped *Point, got %v %q", ptr, typeName)
	}

	again, err := b.WrapPointer(p, "Point")
	if err != nil || again != h {
		t.Fatalf("expected the same handle, got %v, %v", again, err)
	}
	if w.RefCount() != 2 {
		t.Errorf("expected refcount 2, got %d", w.RefCount())
	}

	b.MainModule().RawSetString("pt", h)
	v := run(t, b, `pt:translate(1, 1); return pt:length()`)
	if n, _ := v.Number(); math.Abs(n-math.Sqrt(41)) > 1e-9 {
		t.Errorf("expected length of (4,5), got %v", v)
	}
	if p.X != 4 || p.Y != 5 {
		t.Errorf("expected translated point, got %+v", p)
	}
}

func TestWrapPointer_FactoryOrder(t *testing.T) {
	var calls []string
	decline := WrapperFactoryFunc(func(typeName string, ptr any) meta.Object {
		calls = append(calls, "decline")
		return nil
	})
	accept := WrapperFactoryFunc(func(typeName string, ptr any) meta.Object {
		calls = append(calls, "accept")
		return demo.PointFactory(typeName, ptr)
	})
	never := WrapperFactoryFunc(func(typeName string, ptr any) meta.Object {
		calls = append(calls, "never")
		return nil
	})
	b, _ := newTestBridge(t, WithWrapperFactory(decline), WithWrapperFactory(accept), WithWrapperFactory(never))

	if _, err := b.WrapPointer(&demo.Point{}, "Point"); err != nil {
		t.Fatalf("WrapPointer: %v", err)
	}
	if len(calls) != 2 || calls[0] != "decline" || calls[1] != "accept" {
		t.Errorf("expected factories consulted in order until one accepts, got %v", calls)
	}
}

func TestRelease(t *testing.T) {
	b, _ := newTestBridge(t)
	obj := demo.NewWidget()

	h := b.WrapObject(obj)
	b.WrapObject(obj)
	w := b.WrapperOf(h)

	b.Release(h)
	if w.RefCount() != 1 || w.IsStale() || b.WrapperCount() != 1 {
		t.Fatalf("expected live wrapper with one reference, got refs %d", w.RefCount())
	}

	b.Release(h)
	if !w.IsStale() || b.WrapperCount() != 0 {
		t.Fatal("expected wrapper to leave the table at zero references")
	}
	if meta.IsDestroyed(obj) {
		t.Error("expected releasing a native object's wrapper to leave it alive")
	}
	if _, err := w.Object(); !errors.Is(err, ErrStaleHandle) {
		t.Errorf("expected ErrStaleHandle, got %v", err)
	}

	fresh := b.WrapObject(obj)
	if fresh == h {
		t.Error("expected a new wrapper after release")
	}
	meta.Destroy(obj)
	if !b.WrapperOf(fresh).IsStale() {
		t.Error("expected new wrapper to observe destruction")
	}

	// Releasing a stale or foreign value is a no-op.
	b.Release(h)
	b.Release(lua.LString("x"))
}

func TestRetain(t *testing.T) {
	b, _ := newTestBridge(t)
	h := b.WrapObject(demo.NewWidget())
	b.Retain(h)
	b.Release(h)
	if b.WrapperOf(h).IsStale() {
		t.Error("expected retained wrapper to survive one release")
	}
}

func TestRelease_DestroysAdapter(t *testing.T) {
	b, _ := newTestBridge(t, WithWrapperFactory(WrapperFactoryFunc(demo.PointFactory)))
	p := &demo.Point{}
	h, err := b.WrapPointer(p, "Point")
	if err != nil {
		t.Fatalf("WrapPointer: %v", err)
	}
	adapter, err := b.WrapperOf(h).Object()
	if err != nil {
		t.Fatalf("Object: %v", err)
	}

	b.Release(h)
	if !meta.IsDestroyed(adapter) {
		t.Error("expected adapter to be destroyed with its wrapper")
	}
	if b.LookupWrapper(p) != nil {
		t.Error("expected pointer entry to be gone")
	}
}

func TestDestroy_StalesChildren(t *testing.T) {
	b, _ := newTestBridge(t)
	parent := demo.NewWidget()
	child := demo.NewWidget()
	parent.AddChild(child)

	hp := b.WrapObject(parent)
	hc := b.WrapObject(child)
	meta.Destroy(parent)

	if !b.WrapperOf(hp).IsStale() || !b.WrapperOf(hc).IsStale() {
		t.Error("expected parent and child wrappers to be stale")
	}
	if b.WrapperCount() != 0 {
		t.Errorf("expected empty table, got %d", b.WrapperCount())
	}
}

func TestWrappedObjectDestroyed_Twice(t *testing.T) {
	b, _ := newTestBridge(t)
	obj := demo.NewWidget()
	h := b.WrapObject(obj)
	w := b.WrapperOf(h)

	meta.Destroy(obj)
	b.wrappedObjectDestroyed(w)

	if b.WrapperCount() != 0 || !w.IsStale() {
		t.Error("expected a single removal")
	}
	if w.Class().Name() != "Widget" {
		t.Error("expected stale wrapper to keep its class")
	}
}

func TestStaleHandle_FromScript(t *testing.T) {
	b, sink := newTestBridge(t)
	obj := demo.NewWidget()
	b.AddObject(b.MainModule(), "w", obj)
	meta.Destroy(obj)

	_, err := b.Evaluate(b.MainModule(), `return w.title`, ModeFile)
	if !errors.Is(err, ErrScript) {
		t.Fatalf("expected ErrScript, got %v", err)
	}
	if !sink.contains("stale handle") {
		t.Errorf("expected stale handle report, got %v", sink.errs)
	}

	v := run(t, b, `return tostring(w)`)
	if v.Text() != "Widget(destroyed)" {
		t.Errorf("expected Widget(destroyed), got %v", v)
	}
}
