package metagen

import (
	"bytes"
	"fmt"

	"github.com/dave/jennifer/jen"
)

// Generate renders the metaobject file for a package model.
func Generate(model *PackageModel) (string, error) {
	f := jen.NewFilePathName(model.ImportPath, model.Name)
	f.HeaderComment("Code generated by objbridge gen. DO NOT EDIT.")
	f.ImportName(MetaPath, "meta")

	for i := range model.Classes {
		generateClass(f, &model.Classes[i])
	}

	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return "", fmt.Errorf("rendering %s: %w", model.Name, err)
	}
	return buf.String(), nil
}

func generateClass(f *jen.File, c *ClassModel) {
	access := AccessorInterface(c.Name)
	as := AccessorMethod(c.Name)

	f.Type().Id(access).Interface(
		jen.Id(as).Params().Op("*").Id(c.Name),
	)
	f.Line()
	f.Func().Params(jen.Id("x").Op("*").Id(c.Name)).Id(as).Params().Op("*").Id(c.Name).Block(
		jen.Return(jen.Id("x")),
	)
	f.Line()
	f.Func().Id(ArgHelper(c.Name)).Params(jen.Id("v").Qual(MetaPath, "Variant")).Op("*").Id(c.Name).Block(
		jen.If(
			jen.List(jen.Id("o"), jen.Id("ok")).Op(":=").Id("v").Dot("Object").Call().Assert(jen.Id(access)),
			jen.Id("ok"),
		).Block(jen.Return(jen.Id("o").Dot(as).Call())),
		jen.Return(jen.Nil()),
	)
	f.Line()

	f.Commentf("%s describes %s.", MetaVarName(c.Name), c.Name)
	f.Var().Id(MetaVarName(c.Name)).Op("=").Qual(MetaPath, "NewMetaObject").Call(
		jen.Qual(MetaPath, "ClassDef").Values(jen.DictFunc(func(d jen.Dict) {
			d[jen.Id("Name")] = jen.Lit(c.Name)
			if c.Super == "" {
				d[jen.Id("Super")] = jen.Qual(MetaPath, "ObjectMeta")
			} else {
				d[jen.Id("Super")] = jen.Id(MetaVarName(c.Super))
			}
			if len(c.Signals) > 0 || len(c.Methods) > 0 {
				d[jen.Id("Methods")] = jen.Index().Qual(MetaPath, "Method").ValuesFunc(func(g *jen.Group) {
					for _, sig := range c.Signals {
						g.Values(jen.Dict{
							jen.Id("Signature"): jen.Lit(sig),
							jen.Id("Type"):      jen.Qual(MetaPath, "MethodSignal"),
						})
					}
					for _, m := range c.Methods {
						g.Add(methodEntry(c, m))
					}
				})
			}
			if len(c.Properties) > 0 {
				d[jen.Id("Properties")] = jen.Index().Qual(MetaPath, "Property").ValuesFunc(func(g *jen.Group) {
					for _, p := range c.Properties {
						g.Add(propertyEntry(c, p))
					}
				})
			}
			if c.Constructor != "" {
				d[jen.Id("New")] = jen.Func().Params().Qual(MetaPath, "Object").Block(
					jen.Return(jen.Id(c.Constructor).Call()),
				)
			}
		})),
	)
	f.Line()

	f.Commentf("MetaObject returns %s.", MetaVarName(c.Name))
	f.Func().Params(jen.Id("x").Op("*").Id(c.Name)).Id("MetaObject").Params().Op("*").Qual(MetaPath, "MetaObject").Block(
		jen.Return(jen.Id(MetaVarName(c.Name))),
	)
	f.Line()
}

// receiver renders obj.(widgetObject).asWidget().
func receiver(c *ClassModel) *jen.Statement {
	return jen.Id("obj").Assert(jen.Id(AccessorInterface(c.Name))).Dot(AccessorMethod(c.Name)).Call()
}

func methodEntry(c *ClassModel, m MethodModel) jen.Code {
	args := make([]jen.Code, len(m.Params))
	for i, p := range m.Params {
		args[i] = fromVariant(p, jen.Id("args").Index(jen.Lit(i)))
	}
	call := receiver(c).Dot(m.GoName).Call(args...)
	zero := jen.Qual(MetaPath, "Variant").Values()

	body := func(g *jen.Group) {
		switch {
		case m.Result == nil && !m.ReturnsErr:
			g.Add(call)
			g.Return(zero, jen.Nil())
		case m.Result == nil:
			g.Return(zero, call)
		case !m.ReturnsErr:
			g.Id("r").Op(":=").Add(call)
			returnResult(g, *m.Result)
		default:
			g.List(jen.Id("r"), jen.Id("err")).Op(":=").Add(call)
			g.If(jen.Id("err").Op("!=").Nil()).Block(
				jen.Return(jen.Qual(MetaPath, "Variant").Values(), jen.Id("err")),
			)
			returnResult(g, *m.Result)
		}
	}

	d := jen.Dict{
		jen.Id("Signature"): jen.Lit(m.Signature()),
		jen.Id("Fn"): jen.Func().Params(
			jen.Id("obj").Qual(MetaPath, "Object"),
			jen.Id("args").Index().Qual(MetaPath, "Variant"),
		).Params(jen.Qual(MetaPath, "Variant"), jen.Error()).BlockFunc(body),
	}
	if m.Result != nil {
		d[jen.Id("Return")] = jen.Lit(m.Result.Sig)
	}
	return jen.Values(d)
}

// returnResult returns r converted to a variant. A nil class pointer
// becomes a null object rather than a typed nil.
func returnResult(g *jen.Group, ref TypeRef) {
	if ref.Class != "" {
		g.If(jen.Id("r").Op("==").Nil()).Block(
			jen.Return(jen.Qual(MetaPath, "NewObject").Call(jen.Nil()), jen.Nil()),
		)
	}
	g.Return(toVariant(ref, jen.Id("r")), jen.Nil())
}

func propertyEntry(c *ClassModel, p PropertyModel) jen.Code {
	d := jen.Dict{
		jen.Id("Name"): jen.Lit(p.Name),
		jen.Id("Type"): jen.Lit(p.Type.Sig),
		jen.Id("Get"): jen.Func().Params(jen.Id("obj").Qual(MetaPath, "Object")).Qual(MetaPath, "Variant").Block(
			jen.Return(toVariant(p.Type, receiver(c).Dot(p.Field))),
		),
	}
	if !p.ReadOnly {
		value := fromVariant(p.Type, jen.Id("v"))
		var set *jen.Statement
		if p.Setter != "" {
			set = receiver(c).Dot(p.Setter).Call(value)
		} else {
			set = receiver(c).Dot(p.Field).Op("=").Add(value)
		}
		d[jen.Id("Set")] = jen.Func().Params(
			jen.Id("obj").Qual(MetaPath, "Object"),
			jen.Id("v").Qual(MetaPath, "Variant"),
		).Error().Block(set, jen.Return(jen.Nil()))
	}
	return jen.Values(d)
}

// fromVariant converts a variant expression to the Go parameter type.
func fromVariant(ref TypeRef, v *jen.Statement) *jen.Statement {
	switch ref.Sig {
	case "bool":
		return v.Dot("Bool").Call()
	case "int":
		if ref.Go == "int64" {
			return v.Dot("Int").Call()
		}
		return jen.Id(ref.Go).Call(v.Dot("Int").Call())
	case "double":
		if ref.Go == "float64" {
			return v.Dot("Double").Call()
		}
		return jen.Id(ref.Go).Call(v.Dot("Double").Call())
	case "string":
		return v.Dot("Text").Call()
	case "object*":
		return v.Dot("Object").Call()
	case "variant":
		return v
	}
	return jen.Id(ArgHelper(ref.Class)).Call(v)
}

// toVariant converts a Go value expression to a variant.
func toVariant(ref TypeRef, x *jen.Statement) *jen.Statement {
	switch ref.Sig {
	case "bool":
		return jen.Qual(MetaPath, "NewBool").Call(x)
	case "int":
		if ref.Go == "int64" {
			return jen.Qual(MetaPath, "NewInt").Call(x)
		}
		return jen.Qual(MetaPath, "NewInt").Call(jen.Int64().Call(x))
	case "double":
		if ref.Go == "float64" {
			return jen.Qual(MetaPath, "NewDouble").Call(x)
		}
		return jen.Qual(MetaPath, "NewDouble").Call(jen.Float64().Call(x))
	case "string":
		return jen.Qual(MetaPath, "NewString").Call(x)
	case "variant":
		return x
	}
	return jen.Qual(MetaPath, "NewObject").Call(x)
}
