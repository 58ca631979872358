package bridge

import (
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/chazu/objbridge/meta"
)

// SignalReceiver forwards the signals of one native object to scripted
// handlers. It exists from the first handler until the object is destroyed.
// Its handler lists are guarded by mu; the script calls themselves are
// serialized by Bridge.Lock.
type SignalReceiver struct {
	obj      meta.Object
	mu       sync.Mutex
	handlers map[string][]lua.LValue
	conns    map[string]meta.Connection
	sub      meta.Subscription
}

// HandlerCount returns the number of handlers on a signal, given as a full
// signature or bare name.
func (r *SignalReceiver) HandlerCount(signal string) int {
	sig, ok := meta.ClassOf(r.obj).FindSignal(signal)
	if !ok {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handlers[sig.Signature])
}

type receiverTable struct {
	mu      sync.Mutex
	entries map[*meta.Base]*SignalReceiver
}

func newReceiverTable() *receiverTable {
	return &receiverTable{entries: make(map[*meta.Base]*SignalReceiver)}
}

// receiverFor returns the receiver of obj, creating it when create is set.
// A new receiver observes the object's destruction.
func (b *Bridge) receiverFor(obj meta.Object, create bool) *SignalReceiver {
	key := obj.ObjectBase()
	t := b.receivers
	t.mu.Lock()
	defer t.mu.Unlock()
	if r, ok := t.entries[key]; ok || !create {
		return r
	}
	r := &SignalReceiver{
		obj:      obj,
		handlers: make(map[string][]lua.LValue),
		conns:    make(map[string]meta.Connection),
	}
	r.sub = meta.OnDestroyed(obj, func(meta.Object) {
		b.receiverDestroyed(key, r)
	})
	t.entries[key] = r
	return r
}

func (b *Bridge) receiverDestroyed(key *meta.Base, r *SignalReceiver) {
	t := b.receivers
	t.mu.Lock()
	if t.entries[key] == r {
		delete(t.entries, key)
	}
	t.mu.Unlock()

	r.mu.Lock()
	r.handlers = nil
	r.conns = nil
	r.mu.Unlock()
}

// Receiver returns the signal receiver of obj, or nil if no handler was
// ever added.
func (b *Bridge) Receiver(obj meta.Object) *SignalReceiver {
	if isNil(obj) {
		return nil
	}
	return b.receiverFor(meta.Self(obj), false)
}

// ReceiverCount returns the number of live receivers.
func (b *Bridge) ReceiverCount() int {
	b.receivers.mu.Lock()
	defer b.receivers.mu.Unlock()
	return len(b.receivers.entries)
}

// ---------------------------------------------------------------------------
// Handler management
// ---------------------------------------------------------------------------

// AddSignalHandler connects the callable found at dotted name in module to
// a signal of obj. It returns false when the signal does not exist or the
// name does not resolve to a callable.
func (b *Bridge) AddSignalHandler(obj meta.Object, signal string, module lua.LValue, name string) bool {
	callable, ok := b.LookupCallable(module, name)
	if !ok {
		b.log.Debugf("no callable %q for signal %s", name, signal)
		return false
	}
	return b.ConnectCallable(obj, signal, callable)
}

// RemoveSignalHandler removes the first registration of the callable found
// at dotted name in module. It returns false when nothing was removed.
func (b *Bridge) RemoveSignalHandler(obj meta.Object, signal string, module lua.LValue, name string) bool {
	callable, ok := b.LookupCallable(module, name)
	if !ok {
		return false
	}
	return b.DisconnectCallable(obj, signal, callable)
}

// ConnectCallable appends callable to the handlers of signal on obj.
func (b *Bridge) ConnectCallable(obj meta.Object, signal string, callable lua.LValue) bool {
	if err := b.connectCallable(obj, signal, callable); err != nil {
		b.log.Debugf("connect %s: %s", signal, err)
		return false
	}
	return true
}

func (b *Bridge) connectCallable(obj meta.Object, signal string, callable lua.LValue) error {
	if isNil(obj) {
		return fmt.Errorf("%w: nil object", ErrNotFound)
	}
	obj = meta.Self(obj)
	if meta.IsDestroyed(obj) {
		return meta.ErrDestroyed
	}
	sig, ok := meta.ClassOf(obj).FindSignal(signal)
	if !ok {
		return fmt.Errorf("%w: %s on %s", ErrNoSuchSignal, signal, meta.ClassOf(obj).ClassName())
	}
	info, err := b.methods.SignalInfo(sig.Signature)
	if err != nil {
		return err
	}

	r := b.receiverFor(obj, true)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conns == nil {
		return meta.ErrDestroyed
	}
	if _, connected := r.conns[sig.Signature]; !connected {
		c, err := meta.Connect(obj, sig.Signature, func(args []meta.Variant) {
			b.dispatch(r, info, args)
		})
		if err != nil {
			return err
		}
		r.conns[sig.Signature] = c
	}
	r.handlers[sig.Signature] = append(r.handlers[sig.Signature], callable)
	return nil
}

// DisconnectCallable removes the first registration of callable on signal.
// The native connection stays in place when the last handler goes.
func (b *Bridge) DisconnectCallable(obj meta.Object, signal string, callable lua.LValue) bool {
	if isNil(obj) {
		return false
	}
	obj = meta.Self(obj)
	r := b.receiverFor(obj, false)
	if r == nil {
		return false
	}
	sig, ok := meta.ClassOf(obj).FindSignal(signal)
	if !ok {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.handlers[sig.Signature]
	for i, h := range list {
		if h == callable {
			r.handlers[sig.Signature] = append(list[:i:i], list[i+1:]...)
			return true
		}
	}
	return false
}

// dispatch runs the handlers registered when the signal fired, in order.
// A failing handler is reported and the rest still run.
func (b *Bridge) dispatch(r *SignalReceiver, info *MethodInfo, args []meta.Variant) {
	r.mu.Lock()
	handlers := append([]lua.LValue(nil), r.handlers[info.Signature]...)
	r.mu.Unlock()
	if len(handlers) == 0 {
		return
	}

	largs := make([]lua.LValue, len(args))
	for i, arg := range args {
		v := arg
		if i < len(info.Params) {
			if converted, ok := arg.Convert(info.Params[i].Kind); ok {
				v = converted
			}
		}
		lv, err := b.ToScriptValue(v)
		if err != nil {
			b.errs.raise(fmt.Errorf("%s argument %d: %w", info.Signature, i+1, err))
			b.CheckAndClearError()
			return
		}
		largs[i] = lv
	}

	for _, h := range handlers {
		if _, err := b.invoke(h, largs); err != nil {
			b.fail(fmt.Errorf("handler for %s: %w", info.Signature, err))
		}
	}
}
