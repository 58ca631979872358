// Package demo provides sample native classes used by tests and the
// command line playground.
package demo

import "github.com/chazu/objbridge/meta"

//go:generate go run github.com/chazu/objbridge/cmd/objbridge gen -o meta_gen.go .

// Classes returns the script-constructible sample classes.
func Classes() []*meta.MetaObject {
	return []*meta.MetaObject{WidgetMeta, ButtonMeta, CounterMeta}
}
