package bridge

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/chazu/objbridge/demo"
	"github.com/chazu/objbridge/meta"
)

func TestRegister_WalksAncestors(t *testing.T) {
	r := NewClassRegistry()
	r.Register(demo.ButtonMeta)

	if diff := cmp.Diff([]string{"Button", "Object", "Widget"}, r.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	d := r.Lookup("Button")
	if d == nil {
		t.Fatal("expected Button descriptor")
	}
	if diff := cmp.Diff([]string{"Widget", "Object"}, d.Ancestors()); diff != "" {
		t.Errorf("ancestors mismatch (-want +got):\n%s", diff)
	}
	if !d.Inherits("Widget") || !d.Inherits("Button") || d.Inherits("Counter") {
		t.Error("unexpected Inherits result")
	}
	if d.MetaObject() != demo.ButtonMeta {
		t.Error("expected descriptor to keep the metaobject")
	}
}

func TestRegister_Idempotent(t *testing.T) {
	r := NewClassRegistry()
	var seen []string
	r.OnRegister(func(d *ClassDescriptor) {
		seen = append(seen, d.Name())
	})

	r.Register(demo.WidgetMeta)
	r.Register(demo.WidgetMeta)
	r.Register(demo.ButtonMeta)

	if diff := cmp.Diff([]string{"Widget", "Object", "Button"}, seen); diff != "" {
		t.Errorf("listener calls mismatch (-want +got):\n%s", diff)
	}
	if r.Count() != 3 {
		t.Errorf("expected 3 classes, got %d", r.Count())
	}
}

func TestRegister_WrappedTypeName(t *testing.T) {
	r := NewClassRegistry()
	d := r.register(demo.PointAdapterMeta, "Point")
	if d.WrappedTypeName() != "Point" {
		t.Errorf("expected wrapped type Point, got %q", d.WrappedTypeName())
	}
	if r.Lookup("Object").WrappedTypeName() != "" {
		t.Error("expected ancestors to carry no wrapped type")
	}
}

func TestClassDescriptor_Members(t *testing.T) {
	r := NewClassRegistry()
	r.Register(demo.WidgetMeta)
	d := r.Lookup("Widget")

	wantMethods := []string{
		"addChild", "area", "children", "click", "deleteLater", "findChild",
		"parent", "resize", "setObjectName", "setParent", "setTitle",
	}
	if diff := cmp.Diff(wantMethods, d.MethodNames()); diff != "" {
		t.Errorf("methods mismatch (-want +got):\n%s", diff)
	}
	wantSignals := []string{"clicked", "destroyed", "objectNameChanged", "resized", "titleChanged"}
	if diff := cmp.Diff(wantSignals, d.SignalNames()); diff != "" {
		t.Errorf("signals mismatch (-want +got):\n%s", diff)
	}
	wantProps := []string{"enabled", "height", "objectName", "title", "width"}
	if diff := cmp.Diff(wantProps, d.PropertyNames()); diff != "" {
		t.Errorf("properties mismatch (-want +got):\n%s", diff)
	}
}

func TestRegister_RootOnly(t *testing.T) {
	r := NewClassRegistry()
	r.Register(meta.ObjectMeta)
	if r.Count() != 1 || len(r.Lookup("Object").Ancestors()) != 0 {
		t.Errorf("expected a single root class, got %v", r.Names())
	}
}
