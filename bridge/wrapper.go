package bridge

import (
	"fmt"
	"reflect"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/chazu/objbridge/meta"
)

// ---------------------------------------------------------------------------
// Wrapper: the single script-side handle of a native object
// ---------------------------------------------------------------------------

// Wrapper is the scripting handle of one native object or foreign pointer.
// Its object field is cleared when the native object is destroyed or the
// last reference is released; the class descriptor is kept so error
// messages can still name the class.
type Wrapper struct {
	key         any
	obj         meta.Object
	class       *ClassDescriptor
	wrappedPtr  any
	wrappedType string
	refs        int
	handle      *lua.LUserData
	sub         meta.Subscription
}

// Object returns the wrapped native object, or ErrStaleHandle.
func (w *Wrapper) Object() (meta.Object, error) {
	if w.obj == nil {
		return nil, fmt.Errorf("%w: %s", ErrStaleHandle, w.class.Name())
	}
	return w.obj, nil
}

// IsStale reports whether the native side is gone.
func (w *Wrapper) IsStale() bool { return w.obj == nil }

// Class returns the descriptor of the wrapped object's runtime class.
func (w *Wrapper) Class() *ClassDescriptor { return w.class }

// WrappedPointer returns the foreign pointer an adapter stands in for, with
// its declared type name. Both are zero for ordinary native objects.
func (w *Wrapper) WrappedPointer() (any, string) { return w.wrappedPtr, w.wrappedType }

// RefCount returns the number of outstanding references.
func (w *Wrapper) RefCount() int { return w.refs }

// Handle returns the script value representing the wrapper.
func (w *Wrapper) Handle() *lua.LUserData { return w.handle }

// pendingTarget carries what a new wrapper is about to hold.
type pendingTarget struct {
	obj         meta.Object
	class       *ClassDescriptor
	wrappedPtr  any
	wrappedType string
}

// WrapperFactory builds native adapters for foreign pointers whose type is
// not a registered class. Create returns nil when it does not handle the
// type.
type WrapperFactory interface {
	Create(typeName string, ptr any) meta.Object
}

// WrapperFactoryFunc adapts a function to WrapperFactory.
type WrapperFactoryFunc func(typeName string, ptr any) meta.Object

func (f WrapperFactoryFunc) Create(typeName string, ptr any) meta.Object { return f(typeName, ptr) }

// ---------------------------------------------------------------------------
// Wrapper table
// ---------------------------------------------------------------------------

// wrapperTable maps native identities to their live wrappers. Native
// objects are keyed by *meta.Base, foreign pointers by the pointer.
type wrapperTable struct {
	mu        sync.Mutex
	entries   map[any]*Wrapper
	factories []WrapperFactory
}

func newWrapperTable() *wrapperTable {
	return &wrapperTable{entries: make(map[any]*Wrapper)}
}

// AddWrapperFactory appends a factory. Factories are consulted in
// registration order.
func (b *Bridge) AddWrapperFactory(f WrapperFactory) {
	if f == nil {
		return
	}
	t := b.wrappers
	t.mu.Lock()
	t.factories = append(t.factories, f)
	t.mu.Unlock()
}

// WrapObject returns the wrapper handle of obj, creating it on first use.
// Every call counts as one reference. A nil or destroyed object yields nil.
//
// The table holds the handle until Release drops the last reference or the
// object is destroyed. Lua garbage collection does not release wrappers, so
// a host that wraps long-lived objects repeatedly must Release them.
func (b *Bridge) WrapObject(obj meta.Object) lua.LValue {
	if isNil(obj) {
		return lua.LNil
	}
	obj = meta.Self(obj)
	key := obj.ObjectBase()

	t := b.wrappers
	t.mu.Lock()
	defer t.mu.Unlock()

	if w, ok := t.entries[key]; ok {
		w.refs++
		b.log.Debugf("reusing wrapper for %s (refs %d)", w.class.Name(), w.refs)
		return w.handle
	}
	// An object still being destroyed (e.g. inside a destroyed handler) gets
	// a wrapper that goes stale when Destroy finishes.
	if meta.IsDestroyed(obj) && !meta.IsDestroying(obj) {
		b.log.Warningf("refusing to wrap destroyed %s", meta.ClassOf(obj).ClassName())
		return lua.LNil
	}

	class := b.classes.register(meta.ClassOf(obj), "")
	w := b.newWrapper(key, pendingTarget{obj: obj, class: class})
	return w.handle
}

// WrapPointer wraps a pointer declared as typeName. A registered class name
// wraps the pointer as a native object, upgraded to its most-derived class.
// Any other name goes through the wrapper factories.
func (b *Bridge) WrapPointer(ptr any, typeName string) (lua.LValue, error) {
	if isNil(ptr) {
		return lua.LNil, nil
	}
	if d := b.classes.Lookup(typeName); d != nil {
		obj, ok := ptr.(meta.Object)
		if !ok {
			return lua.LNil, fmt.Errorf("%w: %T declared as %s", ErrUnrelatedType, ptr, typeName)
		}
		actual := meta.ClassOf(obj)
		if !actual.Inherits(typeName) {
			return lua.LNil, fmt.Errorf("%w: %s declared as %s", ErrUnrelatedType, actual.ClassName(), typeName)
		}
		return b.WrapObject(obj), nil
	}
	if obj, ok := ptr.(meta.Object); ok {
		return b.WrapObject(obj), nil
	}

	if !reflect.TypeOf(ptr).Comparable() {
		return lua.LNil, fmt.Errorf("%w: %T is not comparable", ErrUnwrappable, ptr)
	}

	t := b.wrappers
	t.mu.Lock()
	if w, ok := t.entries[ptr]; ok {
		w.refs++
		t.mu.Unlock()
		return w.handle, nil
	}
	factories := append([]WrapperFactory(nil), t.factories...)
	t.mu.Unlock()

	// Factories run unlocked since they may call back into the bridge.
	var adapter meta.Object
	for _, f := range factories {
		if adapter = f.Create(typeName, ptr); !isNil(adapter) {
			break
		}
	}
	if isNil(adapter) {
		return lua.LNil, fmt.Errorf("%w: %s", ErrUnwrappable, typeName)
	}
	meta.Init(meta.Self(adapter))
	adapter = meta.Self(adapter)

	t.mu.Lock()
	if w, ok := t.entries[ptr]; ok {
		w.refs++
		t.mu.Unlock()
		meta.Destroy(adapter)
		return w.handle, nil
	}
	class := b.classes.register(meta.ClassOf(adapter), typeName)
	w := b.newWrapper(ptr, pendingTarget{
		obj:         adapter,
		class:       class,
		wrappedPtr:  ptr,
		wrappedType: typeName,
	})
	t.mu.Unlock()
	b.log.Debugf("wrapped foreign %s with adapter %s", typeName, class.Name())
	return w.handle, nil
}

// newWrapper inserts a wrapper with one reference. The table lock is held.
func (b *Bridge) newWrapper(key any, target pendingTarget) *Wrapper {
	w := &Wrapper{
		key:         key,
		obj:         target.obj,
		class:       target.class,
		wrappedPtr:  target.wrappedPtr,
		wrappedType: target.wrappedType,
		refs:        1,
	}
	ud := b.state.NewUserData()
	ud.Value = w
	ud.Metatable = b.objectMeta
	w.handle = ud

	b.wrappers.entries[key] = w
	w.sub = meta.OnDestroyed(target.obj, func(meta.Object) {
		b.wrappedObjectDestroyed(w)
	})
	b.log.Debugf("created wrapper for %s", w.class.Name())
	return w
}

// wrappedObjectDestroyed makes w stale and drops its entry. A second call
// finds the object field already cleared and does nothing.
func (b *Bridge) wrappedObjectDestroyed(w *Wrapper) {
	t := b.wrappers
	t.mu.Lock()
	defer t.mu.Unlock()
	if w.obj == nil {
		return
	}
	if t.entries[w.key] == w {
		delete(t.entries, w.key)
	}
	w.obj = nil
	w.sub = meta.Subscription{}
	b.log.Debugf("wrapped %s destroyed", w.class.Name())
}

// Retain adds a reference to a wrapper handle.
func (b *Bridge) Retain(v lua.LValue) {
	w := wrapperOf(v)
	if w == nil {
		return
	}
	b.wrappers.mu.Lock()
	w.refs++
	b.wrappers.mu.Unlock()
}

// Release drops one reference. When none remain the wrapper leaves the
// table, stops observing its object and goes stale; an adapter created by a
// factory is destroyed with it. Native objects themselves are not
// destroyed.
func (b *Bridge) Release(v lua.LValue) {
	w := wrapperOf(v)
	if w == nil {
		return
	}

	t := b.wrappers
	t.mu.Lock()
	if w.refs > 0 {
		w.refs--
	}
	if w.refs > 0 || w.obj == nil {
		t.mu.Unlock()
		return
	}
	if t.entries[w.key] == w {
		delete(t.entries, w.key)
	}
	obj, sub := w.obj, w.sub
	owned := w.wrappedPtr != nil
	w.obj = nil
	w.sub = meta.Subscription{}
	t.mu.Unlock()

	sub.Cancel()
	if owned {
		meta.Destroy(obj)
	}
	b.log.Debugf("released wrapper for %s", w.class.Name())
}

// LookupWrapper returns the live wrapper for a native object or foreign
// pointer, or nil.
func (b *Bridge) LookupWrapper(ptr any) *Wrapper {
	if isNil(ptr) {
		return nil
	}
	key := ptr
	if obj, ok := ptr.(meta.Object); ok {
		key = obj.ObjectBase()
	} else if !reflect.TypeOf(ptr).Comparable() {
		return nil
	}
	b.wrappers.mu.Lock()
	defer b.wrappers.mu.Unlock()
	return b.wrappers.entries[key]
}

// WrapperCount returns the number of live wrappers.
func (b *Bridge) WrapperCount() int {
	b.wrappers.mu.Lock()
	defer b.wrappers.mu.Unlock()
	return len(b.wrappers.entries)
}

// WrapperOf returns the wrapper behind a script value, or nil.
func (b *Bridge) WrapperOf(v lua.LValue) *Wrapper {
	return wrapperOf(v)
}

func wrapperOf(v lua.LValue) *Wrapper {
	ud, ok := v.(*lua.LUserData)
	if !ok {
		return nil
	}
	w, _ := ud.Value.(*Wrapper)
	return w
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
