package quill

import (
	"fmt"
	"reflect"
	"strings"
)

var nodeType = reflect.TypeOf((*Node)(nil)).Elem()

// DumpAST renders node as an indented tree, one node per line, with scalar
// fields inline and child nodes labelled by field name.
func DumpAST(node Node) string {
	var b strings.Builder
	dumpValue(&b, "", reflect.ValueOf(node), 0)
	return b.String()
}

func dumpValue(b *strings.Builder, label string, v reflect.Value, depth int) {
	for v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return
	}

	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(label)
	b.WriteString(v.Type().Name())
	if v.CanAddr() && v.Addr().Type().Implements(nodeType) {
		pos := v.Addr().Interface().(Node).Pos()
		fmt.Fprintf(b, " @%d:%d", pos.Line, pos.Column)
	}

	var children []func()
	t := v.Type()
	for i := range t.NumField() {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		fv := v.Field(i)
		switch fv.Kind() {
		case reflect.String:
			if fv.String() != "" {
				fmt.Fprintf(b, " %s=%q", field.Name, fv.String())
			}
		case reflect.Bool:
			switch {
			case field.Name == "Value":
				fmt.Fprintf(b, " Value=%t", fv.Bool())
			case fv.Bool():
				fmt.Fprintf(b, " %s", field.Name)
			}
		case reflect.Float64:
			fmt.Fprintf(b, " %s=%s", field.Name, numberToString(fv.Float()))
		case reflect.Slice:
			if fv.Len() == 0 {
				continue
			}
			name := field.Name
			children = append(children, func() {
				for j := range fv.Len() {
					dumpValue(b, fmt.Sprintf("%s[%d]: ", name, j), fv.Index(j), depth+1)
				}
			})
		case reflect.Interface, reflect.Pointer, reflect.Struct:
			name := field.Name
			children = append(children, func() {
				dumpValue(b, name+": ", fv, depth+1)
			})
		}
	}
	b.WriteByte('\n')
	for _, child := range children {
		child()
	}
}
