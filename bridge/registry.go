package bridge

import (
	"sort"
	"sync"

	"github.com/chazu/objbridge/meta"
)

// ---------------------------------------------------------------------------
// ClassDescriptor: cached description of a native class
// ---------------------------------------------------------------------------

// ClassDescriptor describes one native class as seen from scripts.
type ClassDescriptor struct {
	name            string
	ancestors       []string
	meta            *meta.MetaObject
	wrappedTypeName string
}

func newClassDescriptor(m *meta.MetaObject, wrappedTypeName string) *ClassDescriptor {
	d := &ClassDescriptor{
		name:            m.ClassName(),
		meta:            m,
		wrappedTypeName: wrappedTypeName,
	}
	for s := m.SuperClass(); s != nil; s = s.SuperClass() {
		d.ancestors = append(d.ancestors, s.ClassName())
	}
	return d
}

// Name returns the class name.
func (d *ClassDescriptor) Name() string { return d.name }

// Ancestors returns the superclass names, nearest first.
func (d *ClassDescriptor) Ancestors() []string {
	return append([]string(nil), d.ancestors...)
}

// MetaObject returns the native class description.
func (d *ClassDescriptor) MetaObject() *meta.MetaObject { return d.meta }

// WrappedTypeName returns the foreign type an adapter class stands in for,
// or "" for ordinary native classes.
func (d *ClassDescriptor) WrappedTypeName() string { return d.wrappedTypeName }

// Inherits returns true if the class is name or derives from it.
func (d *ClassDescriptor) Inherits(name string) bool {
	if d.name == name {
		return true
	}
	for _, a := range d.ancestors {
		if a == name {
			return true
		}
	}
	return false
}

// MethodNames returns the sorted, de-duplicated names of callable methods.
func (d *ClassDescriptor) MethodNames() []string {
	return d.memberNames(meta.MethodSlot)
}

// SignalNames returns the sorted, de-duplicated names of signals.
func (d *ClassDescriptor) SignalNames() []string {
	return d.memberNames(meta.MethodSignal)
}

func (d *ClassDescriptor) memberNames(t meta.MethodType) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range d.meta.Methods() {
		if m.Type != t || seen[m.Name()] {
			continue
		}
		seen[m.Name()] = true
		names = append(names, m.Name())
	}
	sort.Strings(names)
	return names
}

// PropertyNames returns the sorted property names.
func (d *ClassDescriptor) PropertyNames() []string {
	var names []string
	for _, p := range d.meta.Properties() {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

// ---------------------------------------------------------------------------
// ClassRegistry
// ---------------------------------------------------------------------------

// ClassRegistry maps class names to descriptors. Descriptors are created
// lazily and never removed.
type ClassRegistry struct {
	mu        sync.RWMutex
	classes   map[string]*ClassDescriptor
	listeners []func(*ClassDescriptor)
}

// NewClassRegistry creates an empty registry.
func NewClassRegistry() *ClassRegistry {
	return &ClassRegistry{
		classes: make(map[string]*ClassDescriptor),
	}
}

// Register records m and every ancestor not yet known. Registering a known
// class is a no-op. m must not be nil.
func (r *ClassRegistry) Register(m *meta.MetaObject) {
	r.register(m, "")
}

// register walks the ancestor chain and returns the descriptor for m. A
// wrapped type name applies to m only, and only when m is new.
func (r *ClassRegistry) register(m *meta.MetaObject, wrappedTypeName string) *ClassDescriptor {
	var added []*ClassDescriptor

	r.mu.Lock()
	first, wrapped := m, wrappedTypeName
	for current := m; current != nil; current = current.SuperClass() {
		if _, ok := r.classes[current.ClassName()]; ok {
			wrapped = ""
			continue
		}
		d := newClassDescriptor(current, wrapped)
		r.classes[d.name] = d
		added = append(added, d)
		wrapped = ""
	}
	result := r.classes[first.ClassName()]
	listeners := append([]func(*ClassDescriptor){}, r.listeners...)
	r.mu.Unlock()

	for _, d := range added {
		for _, fn := range listeners {
			fn(d)
		}
	}
	return result
}

// Lookup returns the descriptor for a class name, or nil.
func (r *ClassRegistry) Lookup(name string) *ClassDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.classes[name]
}

// Names returns the sorted names of all registered classes.
func (r *ClassRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.classes))
	for name := range r.classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered classes.
func (r *ClassRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.classes)
}

// OnRegister adds a listener called once for every class registered from
// now on, outside the registry lock.
func (r *ClassRegistry) OnRegister(fn func(*ClassDescriptor)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}
