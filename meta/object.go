// Package meta is the native object framework: classes described by
// MetaObjects, objects with signals, parent/child ownership and explicit
// destruction.
package meta

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrDestroyed is returned when operating on a destroyed object.
	ErrDestroyed = errors.New("object has been destroyed")
	// ErrNoSuchMethod is returned when a method or signal cannot be resolved.
	ErrNoSuchMethod = errors.New("no such method")
	// ErrNoSuchProperty is returned for unknown property names.
	ErrNoSuchProperty = errors.New("no such property")
	// ErrReadOnly is returned when setting a property without a setter.
	ErrReadOnly = errors.New("property is read-only")
	// ErrArgCount is returned when a call passes the wrong number of arguments.
	ErrArgCount = errors.New("wrong number of arguments")
)

// Object is implemented by every native object. Concrete types embed Base
// and override MetaObject.
type Object interface {
	MetaObject() *MetaObject
	ObjectBase() *Base
}

// Slot receives the arguments of an emitted signal.
type Slot func(args []Variant)

// Signal is a zero-size marker for declaring signals as struct fields,
// e.g.
//
//	_ meta.Signal `signal:"clicked()"`
//
// The metaobject generator reads the tag.
type Signal struct{}

type connection struct {
	id   uint64
	slot Slot
}

// Connection identifies one signal connection.
type Connection struct {
	base   *Base
	signal string
	id     uint64
}

// Base holds the per-object state of the framework. The zero value is ready
// to use; Init records the most-derived object so embedded views resolve to
// the same identity.
type Base struct {
	mu         sync.Mutex
	self       Object
	name       string
	parent     Object
	children   []Object
	conns      map[string][]connection
	observers  []*observer
	nextID     uint64
	destroying bool
	destroyed  bool
}

// ObjectBase returns b. Embedding Base promotes it into the embedding type.
func (b *Base) ObjectBase() *Base { return b }

// MetaObject describes the root class. Embedding types override it.
func (b *Base) MetaObject() *MetaObject { return ObjectMeta }

// Init records obj as the most-derived view of its Base. Constructors call
// it after embedding constructors so the last call wins.
func Init(obj Object) {
	b := obj.ObjectBase()
	b.mu.Lock()
	b.self = obj
	b.mu.Unlock()
}

// Self returns the most-derived view of obj.
func Self(obj Object) Object {
	b := obj.ObjectBase()
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.self != nil {
		return b.self
	}
	return obj
}

// ClassOf returns the MetaObject of the most-derived view of obj.
func ClassOf(obj Object) *MetaObject {
	return Self(obj).MetaObject()
}

// IsDestroyed reports whether Destroy has run (or is running) for obj.
func IsDestroyed(obj Object) bool {
	b := obj.ObjectBase()
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.destroyed || b.destroying
}

// IsDestroying reports whether Destroy is running for obj and has not yet
// finished.
func IsDestroying(obj Object) bool {
	b := obj.ObjectBase()
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.destroying && !b.destroyed
}

// ---------------------------------------------------------------------------
// Signals
// ---------------------------------------------------------------------------

// Connect attaches slot to the named signal of obj. The signal may be given
// as a full signature or a bare name.
func Connect(obj Object, signal string, slot Slot) (Connection, error) {
	sig, ok := ClassOf(obj).FindSignal(signal)
	if !ok {
		return Connection{}, fmt.Errorf("%w: signal %s on %s", ErrNoSuchMethod, signal, ClassOf(obj).ClassName())
	}
	b := obj.ObjectBase()
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return Connection{}, ErrDestroyed
	}
	if b.conns == nil {
		b.conns = make(map[string][]connection)
	}
	b.nextID++
	b.conns[sig.Signature] = append(b.conns[sig.Signature], connection{id: b.nextID, slot: slot})
	return Connection{base: b, signal: sig.Signature, id: b.nextID}, nil
}

// Disconnect removes a connection. It returns false if the connection was
// already gone.
func Disconnect(c Connection) bool {
	if c.base == nil {
		return false
	}
	b := c.base
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.conns[c.signal]
	for i, conn := range list {
		if conn.id == c.id {
			b.conns[c.signal] = append(list[:i:i], list[i+1:]...)
			return true
		}
	}
	return false
}

// Emit invokes every slot connected to signal, in connection order, on the
// calling goroutine.
func Emit(obj Object, signal string, args ...Variant) error {
	sig, ok := ClassOf(obj).FindSignal(signal)
	if !ok {
		return fmt.Errorf("%w: signal %s on %s", ErrNoSuchMethod, signal, ClassOf(obj).ClassName())
	}
	if n := len(sig.ParamTypes()); n != len(args) {
		return fmt.Errorf("%w: %s takes %d, got %d", ErrArgCount, sig.Signature, n, len(args))
	}
	b := obj.ObjectBase()
	b.mu.Lock()
	if b.destroyed {
		b.mu.Unlock()
		return ErrDestroyed
	}
	list := append([]connection(nil), b.conns[sig.Signature]...)
	b.mu.Unlock()

	for _, conn := range list {
		conn.slot(args)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Methods and properties
// ---------------------------------------------------------------------------

// Call invokes a resolved method. Signals are emitted. Arguments are coerced
// to the declared parameter kinds.
func Call(obj Object, m Method, args []Variant) (Variant, error) {
	if IsDestroyed(obj) {
		return Variant{}, ErrDestroyed
	}
	params := m.ParamTypes()
	if len(params) != len(args) {
		return Variant{}, fmt.Errorf("%w: %s takes %d, got %d", ErrArgCount, m.Signature, len(params), len(args))
	}
	coerced := make([]Variant, len(args))
	for i, arg := range args {
		kind, _ := KindForType(params[i])
		v, ok := arg.Convert(kind)
		if !ok {
			return Variant{}, fmt.Errorf("%s: argument %d: cannot convert %s to %s", m.Signature, i+1, arg.Kind(), params[i])
		}
		coerced[i] = v
	}
	if m.Type == MethodSignal {
		return Variant{}, Emit(obj, m.Signature, coerced...)
	}
	if m.Fn == nil {
		return Variant{}, fmt.Errorf("%w: %s has no implementation", ErrNoSuchMethod, m.Signature)
	}
	return m.Fn(Self(obj), coerced)
}

// Invoke calls a method by full signature, or by bare name choosing the
// first overload with a matching argument count.
func Invoke(obj Object, method string, args ...Variant) (Variant, error) {
	class := ClassOf(obj)
	if i := class.IndexOfMethod(method); i >= 0 {
		return Call(obj, class.methods[i], args)
	}
	for _, m := range class.MethodsNamed(method) {
		if len(m.ParamTypes()) == len(args) {
			return Call(obj, m, args)
		}
	}
	return Variant{}, fmt.Errorf("%w: %s on %s", ErrNoSuchMethod, method, class.ClassName())
}

// GetProperty reads a property.
func GetProperty(obj Object, name string) (Variant, error) {
	if IsDestroyed(obj) {
		return Variant{}, ErrDestroyed
	}
	p, ok := ClassOf(obj).Property(name)
	if !ok || p.Get == nil {
		return Variant{}, fmt.Errorf("%w: %s", ErrNoSuchProperty, name)
	}
	return p.Get(Self(obj)), nil
}

// SetProperty writes a property, coercing the value to its declared type.
func SetProperty(obj Object, name string, v Variant) error {
	if IsDestroyed(obj) {
		return ErrDestroyed
	}
	p, ok := ClassOf(obj).Property(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSuchProperty, name)
	}
	if p.Set == nil {
		return fmt.Errorf("%w: %s", ErrReadOnly, name)
	}
	kind, _ := KindForType(p.Type)
	cv, ok := v.Convert(kind)
	if !ok {
		return fmt.Errorf("property %s: cannot convert %s to %s", name, v.Kind(), p.Type)
	}
	return p.Set(Self(obj), cv)
}

// ---------------------------------------------------------------------------
// Ownership
// ---------------------------------------------------------------------------

// ObjectName returns the objectName property of obj.
func ObjectName(obj Object) string {
	b := obj.ObjectBase()
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.name
}

// SetObjectName sets the objectName property and emits objectNameChanged.
func SetObjectName(obj Object, name string) {
	b := obj.ObjectBase()
	b.mu.Lock()
	changed := b.name != name
	b.name = name
	b.mu.Unlock()
	if changed {
		_ = Emit(obj, "objectNameChanged(string)", NewString(name))
	}
}

// Parent returns the parent of obj, or nil.
func Parent(obj Object) Object {
	b := obj.ObjectBase()
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.parent
}

// Children returns the children of obj in insertion order.
func Children(obj Object) []Object {
	b := obj.ObjectBase()
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Object(nil), b.children...)
}

// SetParent moves obj under parent. A nil parent detaches it. Destroying a
// parent destroys its children.
func SetParent(obj, parent Object) {
	obj = Self(obj)
	b := obj.ObjectBase()

	b.mu.Lock()
	old := b.parent
	b.mu.Unlock()
	if old != nil {
		removeChild(old, b)
	}

	if parent != nil {
		parent = Self(parent)
		pb := parent.ObjectBase()
		pb.mu.Lock()
		pb.children = append(pb.children, obj)
		pb.mu.Unlock()
	}

	b.mu.Lock()
	b.parent = parent
	b.mu.Unlock()
}

func removeChild(parent Object, child *Base) {
	pb := parent.ObjectBase()
	pb.mu.Lock()
	defer pb.mu.Unlock()
	for i, c := range pb.children {
		if c.ObjectBase() == child {
			pb.children = append(pb.children[:i:i], pb.children[i+1:]...)
			return
		}
	}
}

// ---------------------------------------------------------------------------
// Destruction
// ---------------------------------------------------------------------------

type observer struct {
	fn    func(Object)
	fired bool
}

// Subscription is a destruction observer registration.
type Subscription struct {
	base *Base
	obs  *observer
}

// Cancel unsubscribes the observer. Cancelling twice, or after the observer
// fired, is a no-op.
func (s Subscription) Cancel() {
	if s.base == nil {
		return
	}
	b := s.base
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, o := range b.observers {
		if o == s.obs {
			b.observers = append(b.observers[:i:i], b.observers[i+1:]...)
			return
		}
	}
}

// OnDestroyed registers fn to run once when obj is destroyed. Observers run
// after the destroyed signal and before children are destroyed; one added
// while Destroy is running fires before Destroy returns. On an object that is
// already destroyed fn never runs.
func OnDestroyed(obj Object, fn func(Object)) Subscription {
	b := obj.ObjectBase()
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return Subscription{}
	}
	o := &observer{fn: fn}
	b.observers = append(b.observers, o)
	return Subscription{base: b, obs: o}
}

// Destroy destroys obj: it emits destroyed(object), runs destruction
// observers, destroys children, detaches from the parent and drops all
// connections. Destroying an object twice does nothing.
func Destroy(obj Object) {
	obj = Self(obj)
	b := obj.ObjectBase()

	b.mu.Lock()
	if b.destroyed || b.destroying {
		b.mu.Unlock()
		return
	}
	b.destroying = true
	destroyedSlots := append([]connection(nil), b.conns["destroyed(object)"]...)
	b.mu.Unlock()

	arg := []Variant{NewObject(obj)}
	for _, conn := range destroyedSlots {
		conn.slot(arg)
	}

	b.fireObservers(obj)

	for _, child := range Children(obj) {
		Destroy(child)
	}
	if parent := Parent(obj); parent != nil {
		removeChild(parent, b)
	}

	b.mu.Lock()
	b.parent = nil
	b.children = nil
	b.conns = nil
	b.destroyed = true
	b.mu.Unlock()

	// Observers added while destruction was under way.
	b.fireObservers(obj)
}

func (b *Base) fireObservers(obj Object) {
	b.mu.Lock()
	observers := b.observers
	b.observers = nil
	b.mu.Unlock()
	for _, o := range observers {
		if !o.fired {
			o.fired = true
			o.fn(obj)
		}
	}
}

// ---------------------------------------------------------------------------
// Root class
// ---------------------------------------------------------------------------

// ObjectMeta describes the root class every native class derives from.
var ObjectMeta = NewMetaObject(ClassDef{
	Name: "Object",
	Methods: []Method{
		{Signature: "destroyed(object)", Type: MethodSignal},
		{Signature: "objectNameChanged(string)", Type: MethodSignal},
		{Signature: "deleteLater()", Fn: func(obj Object, _ []Variant) (Variant, error) {
			Destroy(obj)
			return Variant{}, nil
		}},
		{Signature: "setObjectName(string)", Fn: func(obj Object, args []Variant) (Variant, error) {
			SetObjectName(obj, args[0].Text())
			return Variant{}, nil
		}},
		{Signature: "parent()", Return: "object*", Fn: func(obj Object, _ []Variant) (Variant, error) {
			return NewObject(Parent(obj)), nil
		}},
		{Signature: "setParent(object*)", Fn: func(obj Object, args []Variant) (Variant, error) {
			SetParent(obj, args[0].Object())
			return Variant{}, nil
		}},
		{Signature: "children()", Return: "list", Fn: func(obj Object, _ []Variant) (Variant, error) {
			children := Children(obj)
			items := make([]Variant, len(children))
			for i, c := range children {
				items[i] = NewObject(c)
			}
			return NewList(items...), nil
		}},
	},
	Properties: []Property{{
		Name: "objectName",
		Type: "string",
		Get:  func(obj Object) Variant { return NewString(ObjectName(obj)) },
		Set: func(obj Object, v Variant) error {
			SetObjectName(obj, v.Text())
			return nil
		},
	}},
	New: func() Object { return &Base{} },
})
