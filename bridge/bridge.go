// Package bridge connects a Lua state to the native object framework in
// package meta. It keeps one scripting wrapper per live native object,
// propagates native destruction into the scripting side, forwards native
// signals to scripted handlers and marshals values in both directions.
package bridge

import (
	"fmt"
	"sync"

	"github.com/tliron/commonlog"
	lua "github.com/yuin/gopher-lua"

	"github.com/chazu/objbridge/config"
	"github.com/chazu/objbridge/meta"
)

// Bridge owns a Lua state and the tables that tie it to native objects.
// It is not safe for concurrent use; hosts that call it from several
// goroutines hold Lock around every call.
type Bridge struct {
	state *lua.LState
	cfg   *config.Config
	log   commonlog.Logger

	classes   *ClassRegistry
	methods   *MethodCache
	wrappers  *wrapperTable
	receivers *receiverTable
	errs      errorState

	main         *lua.LTable
	classModule  *lua.LTable
	modules      map[*lua.LTable]string
	classHandles map[string]*lua.LUserData

	objectMeta *lua.LTable
	classMeta  *lua.LTable
	listMeta   *lua.LTable
	mapMeta    *lua.LTable
	null       *lua.LUserData

	gil sync.Mutex
}

// Option customizes a Bridge at construction.
type Option func(*Bridge)

// WithErrorSink replaces the logging error sink.
func WithErrorSink(sink ErrorSink) Option {
	return func(b *Bridge) {
		if sink != nil {
			b.errs.sink = sink
		}
	}
}

// WithWrapperFactory registers a wrapper factory before any value is wrapped.
func WithWrapperFactory(f WrapperFactory) Option {
	return func(b *Bridge) {
		b.AddWrapperFactory(f)
	}
}

// WithClasses registers native classes and publishes them in the classes
// module.
func WithClasses(classes ...*meta.MetaObject) Option {
	return func(b *Bridge) {
		for _, m := range classes {
			b.RegisterClass(m)
		}
	}
}

// New creates a Bridge. A nil cfg uses config.Default().
func New(cfg *config.Config, opts ...Option) (*Bridge, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	L := lua.NewState(lua.Options{
		SkipOpenLibs:  true,
		CallStackSize: cfg.Runtime.CallStackSize,
		RegistrySize:  cfg.Runtime.RegistrySize,
	})
	b := &Bridge{
		state:        L,
		cfg:          cfg,
		log:          commonlog.GetLogger("objbridge.bridge"),
		classes:      NewClassRegistry(),
		methods:      NewMethodCache(),
		wrappers:     newWrapperTable(),
		receivers:    newReceiverTable(),
		modules:      make(map[*lua.LTable]string),
		classHandles: make(map[string]*lua.LUserData),
	}
	b.errs.sink = logSink{log: b.log}

	if err := b.openLibs(cfg.Runtime.Libs); err != nil {
		L.Close()
		return nil, err
	}
	b.initMetatables()

	b.main = b.NewModule(cfg.Modules.Main)
	b.classModule = b.NewModule(cfg.Modules.Classes)
	L.SetGlobal(cfg.Modules.Classes, b.classModule)
	if len(cfg.Modules.Path) > 0 {
		b.OverwriteSearchPath(cfg.Modules.Path)
	}

	b.classes.OnRegister(b.publishClass)
	b.classes.Register(meta.ObjectMeta)

	for _, opt := range opts {
		opt(b)
	}
	b.log.Debugf("bridge ready: main=%s classes=%s", cfg.Modules.Main, cfg.Modules.Classes)
	return b, nil
}

// Close releases the Lua state. Wrappers stay registered with their native
// objects' destruction observers until those objects are destroyed.
func (b *Bridge) Close() {
	b.state.Close()
}

// Lock acquires the interpreter lock.
func (b *Bridge) Lock() { b.gil.Lock() }

// Unlock releases the interpreter lock.
func (b *Bridge) Unlock() { b.gil.Unlock() }

// State returns the underlying Lua state.
func (b *Bridge) State() *lua.LState { return b.state }

// Config returns the configuration the bridge was created with.
func (b *Bridge) Config() *config.Config { return b.cfg }

// Classes returns the class registry.
func (b *Bridge) Classes() *ClassRegistry { return b.classes }

// Methods returns the signature cache.
func (b *Bridge) Methods() *MethodCache { return b.methods }

// RegisterClass registers m and its ancestors and returns m's descriptor.
func (b *Bridge) RegisterClass(m *meta.MetaObject) *ClassDescriptor {
	return b.classes.register(m, "")
}

// ---------------------------------------------------------------------------
// Setup
// ---------------------------------------------------------------------------

type stdLib struct {
	name string
	open lua.LGFunction
}

// stdLibs is in load order; package must come first so the others are
// recorded in package.loaded.
var stdLibs = []stdLib{
	{"package", lua.OpenPackage},
	{"base", lua.OpenBase},
	{"table", lua.OpenTable},
	{"string", lua.OpenString},
	{"math", lua.OpenMath},
	{"coroutine", lua.OpenCoroutine},
	{"os", lua.OpenOs},
	{"io", lua.OpenIo},
	{"debug", lua.OpenDebug},
	{"channel", lua.OpenChannel},
}

func (b *Bridge) openLibs(names []string) error {
	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		wanted[name] = true
	}
	for _, lib := range stdLibs {
		if !wanted[lib.name] {
			continue
		}
		err := b.state.CallByParam(lua.P{
			Fn:      b.state.NewFunction(lib.open),
			NRet:    0,
			Protect: true,
		})
		if err != nil {
			return fmt.Errorf("opening %s library: %w", lib.name, err)
		}
	}
	return nil
}

func (b *Bridge) initMetatables() {
	L := b.state

	b.objectMeta = L.NewTable()
	L.SetFuncs(b.objectMeta, map[string]lua.LGFunction{
		"__index":    b.objectIndex,
		"__newindex": b.objectNewIndex,
		"__tostring": b.objectToString,
	})

	b.classMeta = L.NewTable()
	L.SetFuncs(b.classMeta, map[string]lua.LGFunction{
		"__call":     b.classCall,
		"__index":    b.classIndex,
		"__tostring": b.classToString,
	})

	b.listMeta = L.NewTable()
	b.listMeta.RawSetString("__name", lua.LString("list"))
	b.mapMeta = L.NewTable()
	b.mapMeta.RawSetString("__name", lua.LString("map"))

	// null stands in for invalid list and map entries.
	b.null = L.NewUserData()
	nullMeta := L.NewTable()
	nullMeta.RawSetString("__name", lua.LString("null"))
	L.SetFuncs(nullMeta, map[string]lua.LGFunction{
		"__tostring": func(L *lua.LState) int {
			L.Push(lua.LString("null"))
			return 1
		},
	})
	b.null.Metatable = nullMeta
}

// publishClass makes a newly registered class constructible from scripts as
// <classes>.<Name>.
func (b *Bridge) publishClass(d *ClassDescriptor) {
	ud := b.state.NewUserData()
	ud.Value = d
	ud.Metatable = b.classMeta
	b.classHandles[d.Name()] = ud
	b.classModule.RawSetString(d.Name(), ud)
	b.log.Debugf("published class %s", d.Name())
}

// ClassHandle returns the script-side class object for a registered class.
func (b *Bridge) ClassHandle(name string) (*lua.LUserData, bool) {
	ud, ok := b.classHandles[name]
	return ud, ok
}
