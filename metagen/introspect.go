package metagen

import (
	"fmt"
	"go/types"
	"reflect"
	"sort"
	"strings"

	"golang.org/x/tools/go/packages"

	"github.com/chazu/objbridge/meta"
)

// IntrospectPackage loads a Go package by import path (or directory
// pattern) and returns its native classes.
func IntrospectPackage(pattern string) (*PackageModel, error) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedTypes | packages.NeedSyntax,
	}

	pkgs, err := packages.Load(cfg, pattern)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", pattern, err)
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no packages found for %s", pattern)
	}
	if len(pkgs[0].Errors) > 0 {
		return nil, fmt.Errorf("package errors: %v", pkgs[0].Errors)
	}

	pkg := pkgs[0]
	if pkg.Types == nil {
		return nil, fmt.Errorf("type information not available for %s", pattern)
	}
	return modelFromTypes(pkg.PkgPath, pkg.Types), nil
}

func modelFromTypes(importPath string, pkg *types.Package) *PackageModel {
	model := &PackageModel{
		ImportPath: importPath,
		Name:       pkg.Name(),
	}
	ins := &inspector{
		pkg:     pkg,
		model:   model,
		supers:  make(map[string]string),
		visited: make(map[string]bool),
	}

	scope := pkg.Scope()
	for _, name := range scope.Names() {
		ins.classify(name)
	}

	// Superclasses first so generated files read top-down.
	for _, name := range ins.order {
		model.Classes = append(model.Classes, ins.extractClass(name))
	}
	return model
}

type inspector struct {
	pkg     *types.Package
	model   *PackageModel
	supers  map[string]string // native class name → super ("" for meta.Base)
	visited map[string]bool
	order   []string
}

// classify records name as a native class if its struct embeds meta.Base
// or another native class of the same package.
func (ins *inspector) classify(name string) bool {
	if _, ok := ins.supers[name]; ok {
		return true
	}
	if ins.visited[name] {
		return false
	}
	ins.visited[name] = true

	st := ins.structOf(name)
	if st == nil {
		return false
	}
	for i := 0; i < st.NumFields(); i++ {
		f := st.Field(i)
		if !f.Embedded() {
			continue
		}
		named, ok := f.Type().(*types.Named)
		if !ok {
			continue
		}
		obj := named.Obj()
		if isMetaType(named, "Base") {
			ins.supers[name] = ""
			ins.order = append(ins.order, name)
			return true
		}
		if obj.Pkg() == ins.pkg && ins.classify(obj.Name()) {
			ins.supers[name] = obj.Name()
			ins.order = append(ins.order, name)
			return true
		}
	}
	return false
}

func (ins *inspector) structOf(name string) *types.Struct {
	tn, ok := ins.pkg.Scope().Lookup(name).(*types.TypeName)
	if !ok || !tn.Exported() {
		return nil
	}
	named, ok := tn.Type().(*types.Named)
	if !ok {
		return nil
	}
	st, _ := named.Underlying().(*types.Struct)
	return st
}

func (ins *inspector) skip(class, member, reason string) {
	ins.model.Skipped = append(ins.model.Skipped, fmt.Sprintf("%s.%s: %s", class, member, reason))
}

func (ins *inspector) extractClass(name string) ClassModel {
	c := ClassModel{
		Name:  name,
		Super: ins.supers[name],
	}
	named := ins.pkg.Scope().Lookup(name).(*types.TypeName).Type().(*types.Named)

	methods := make(map[string]*types.Signature)
	for i := 0; i < named.NumMethods(); i++ {
		fn := named.Method(i)
		methods[fn.Name()] = fn.Type().(*types.Signature)
	}

	st := named.Underlying().(*types.Struct)
	for i := 0; i < st.NumFields(); i++ {
		f := st.Field(i)
		tag := reflect.StructTag(st.Tag(i))

		if sig, ok := tag.Lookup("signal"); ok {
			if named, ok := f.Type().(*types.Named); !ok || !isMetaType(named, "Signal") {
				ins.skip(name, f.Name(), "signal tag on a field that is not meta.Signal")
				continue
			}
			c.Signals = append(c.Signals, meta.NormalizeSignature(sig))
			continue
		}

		propTag, ok := tag.Lookup("prop")
		if !ok {
			continue
		}
		if !f.Exported() {
			ins.skip(name, f.Name(), "unexported property field")
			continue
		}
		ref, ok := ins.typeRef(f.Type())
		if !ok || strings.HasSuffix(ref.Sig, "*") {
			ins.skip(name, f.Name(), "unsupported property type "+f.Type().String())
			continue
		}
		propName, opts, _ := strings.Cut(propTag, ",")
		p := PropertyModel{
			Name:     propName,
			Field:    f.Name(),
			Type:     ref,
			ReadOnly: opts == "readonly",
		}
		if sig, ok := methods[SetterName(f.Name())]; ok && sig.Params().Len() == 1 && sig.Results().Len() == 0 &&
			types.Identical(sig.Params().At(0).Type(), f.Type()) {
			p.Setter = SetterName(f.Name())
		}
		c.Properties = append(c.Properties, p)
	}

	for i := 0; i < named.NumMethods(); i++ {
		fn := named.Method(i)
		if !fn.Exported() || fn.Name() == "MetaObject" || fn.Name() == "ObjectBase" {
			continue
		}
		m, err := ins.methodModel(fn.Name(), fn.Type().(*types.Signature))
		if err != nil {
			ins.skip(name, fn.Name(), err.Error())
			continue
		}
		c.Methods = append(c.Methods, m)
	}
	sort.Slice(c.Methods, func(i, j int) bool { return c.Methods[i].Slot < c.Methods[j].Slot })

	if ctor, ok := ins.pkg.Scope().Lookup(ConstructorName(name)).(*types.Func); ok {
		sig := ctor.Type().(*types.Signature)
		if sig.Params().Len() == 0 && sig.Results().Len() == 1 &&
			types.Identical(sig.Results().At(0).Type(), types.NewPointer(named)) {
			c.Constructor = ctor.Name()
		}
	}
	return c
}

func (ins *inspector) methodModel(name string, sig *types.Signature) (MethodModel, error) {
	m := MethodModel{GoName: name, Slot: SlotName(name)}
	if sig.Variadic() {
		return m, fmt.Errorf("variadic")
	}

	params := sig.Params()
	for i := 0; i < params.Len(); i++ {
		ref, ok := ins.typeRef(params.At(i).Type())
		if !ok {
			return m, fmt.Errorf("unsupported parameter type %s", params.At(i).Type())
		}
		m.Params = append(m.Params, ref)
	}

	results := sig.Results()
	n := results.Len()
	if n > 0 && isErrorType(results.At(n-1).Type()) {
		m.ReturnsErr = true
		n--
	}
	switch n {
	case 0:
	case 1:
		ref, ok := ins.typeRef(results.At(0).Type())
		if !ok {
			return m, fmt.Errorf("unsupported result type %s", results.At(0).Type())
		}
		m.Result = &ref
	default:
		return m, fmt.Errorf("multiple results")
	}
	return m, nil
}

// typeRef maps supported Go types to signature types: basic types,
// meta.Object, meta.Variant and pointers to native classes of the package.
func (ins *inspector) typeRef(t types.Type) (TypeRef, bool) {
	switch u := t.(type) {
	case *types.Basic:
		info := u.Info()
		switch {
		case info&types.IsBoolean != 0:
			return TypeRef{Sig: "bool", Go: u.Name()}, true
		case info&types.IsInteger != 0:
			return TypeRef{Sig: "int", Go: u.Name()}, true
		case info&types.IsFloat != 0:
			return TypeRef{Sig: "double", Go: u.Name()}, true
		case info&types.IsString != 0:
			return TypeRef{Sig: "string", Go: u.Name()}, true
		}
	case *types.Named:
		switch {
		case isMetaType(u, "Object"):
			return TypeRef{Sig: "object*"}, true
		case isMetaType(u, "Variant"):
			return TypeRef{Sig: "variant"}, true
		}
	case *types.Pointer:
		named, ok := u.Elem().(*types.Named)
		if !ok || named.Obj().Pkg() != ins.pkg {
			break
		}
		if _, ok := ins.supers[named.Obj().Name()]; ok {
			return TypeRef{Sig: named.Obj().Name() + "*", Class: named.Obj().Name()}, true
		}
	}
	return TypeRef{}, false
}

func isMetaType(named *types.Named, name string) bool {
	obj := named.Obj()
	return obj.Pkg() != nil && obj.Pkg().Path() == MetaPath && obj.Name() == name
}

func isErrorType(t types.Type) bool {
	named, ok := t.(*types.Named)
	return ok && named.Obj().Pkg() == nil && named.Obj().Name() == "error"
}
