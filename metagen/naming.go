package metagen

import (
	"strings"
	"unicode"
)

// SlotName converts an exported Go method name to a slot name.
// e.g., "SetValue" → "setValue", "URLPath" → "urlPath", "ID" → "id"
func SlotName(name string) string {
	runes := []rune(name)
	n := 0
	for n < len(runes) && unicode.IsUpper(runes[n]) {
		n++
	}
	switch {
	case n == 0:
		return name
	case n == 1 || n == len(runes):
		// "Value" → "value", "ID" → "id"
	default:
		// keep the last capital of an initialism: "URLPath" → "urlPath"
		n--
	}
	return strings.ToLower(string(runes[:n])) + string(runes[n:])
}

// SetterName returns the conventional setter for a field.
// e.g., "Title" → "SetTitle"
func SetterName(field string) string {
	return "Set" + field
}

// ConstructorName returns the constructor looked up for a class.
func ConstructorName(class string) string {
	return "New" + class
}

// MetaVarName returns the package variable holding a class's metaobject.
// e.g., "Widget" → "WidgetMeta"
func MetaVarName(class string) string {
	return class + "Meta"
}

// AccessorInterface names the interface every type embedding class
// satisfies. e.g., "Widget" → "widgetObject"
func AccessorInterface(class string) string {
	return lowerFirst(class) + "Object"
}

// AccessorMethod names the method returning the embedded class value.
// e.g., "Widget" → "asWidget"
func AccessorMethod(class string) string {
	return "as" + class
}

// ArgHelper names the function extracting a class pointer from a variant.
// e.g., "Widget" → "widgetArg"
func ArgHelper(class string) string {
	return lowerFirst(class) + "Arg"
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
