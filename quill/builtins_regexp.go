package quill

import (
	"regexp"
	"strconv"
	"strings"
)

// regexpData is the internal state of a RegExp object. Patterns compile to
// RE2, so lookaround and backreferences are rejected as SyntaxErrors.
type regexpData struct {
	source string
	flags  string
	re     *regexp.Regexp
	global bool
	sticky bool
}

// translatePattern rewrites the escapes RE2 spells differently.
func translatePattern(pattern string) string {
	var b strings.Builder
	inClass := false
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch {
		case c == '\\' && i+1 < len(pattern):
			next := pattern[i+1]
			switch {
			case next == 'u' && i+5 < len(pattern) && isHexString(pattern[i+2:i+6]):
				b.WriteString(`\x{` + pattern[i+2:i+6] + `}`)
				i += 5
			case next == 'u' && i+2 < len(pattern) && pattern[i+2] == '{':
				end := strings.IndexByte(pattern[i:], '}')
				if end < 0 {
					b.WriteString(`\u`)
					i++
					continue
				}
				b.WriteString(`\x` + pattern[i+2:i+end+1])
				i += end
			case next == '0' && (i+2 >= len(pattern) || !isDigit(rune(pattern[i+2]))):
				b.WriteString(`\x00`)
				i++
			case next == '/':
				b.WriteByte('/')
				i++
			default:
				b.WriteString(pattern[i : i+2])
				i++
			}
		case c == '[' && !inClass:
			if strings.HasPrefix(pattern[i:], "[^]") {
				b.WriteString(`[\s\S]`)
				i += 2
				continue
			}
			inClass = true
			b.WriteByte(c)
		case c == ']' && inClass:
			inClass = false
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isHexString(s string) bool {
	_, err := strconv.ParseUint(s, 16, 32)
	return err == nil
}

func (exec *Execution) newRegExp(pattern, flags string) (*Object, error) {
	data := &regexpData{source: pattern, flags: flags}
	prefix := ""
	for _, f := range flags {
		if strings.ContainsRune(flags[strings.IndexRune(flags, f)+1:], f) {
			return nil, exec.throwError(KindSyntaxError, "Invalid flags supplied to RegExp constructor '%s'", flags)
		}
		switch f {
		case 'g':
			data.global = true
		case 'y':
			data.sticky = true
		case 'i':
			prefix += "i"
		case 'm':
			prefix += "m"
		case 's':
			prefix += "s"
		case 'u':
		default:
			return nil, exec.throwError(KindSyntaxError, "Invalid flags supplied to RegExp constructor '%s'", flags)
		}
	}
	source := translatePattern(pattern)
	if prefix != "" {
		source = "(?" + prefix + ")" + source
	}
	re, err := regexp.Compile(source)
	if err != nil {
		return nil, exec.throwError(KindSyntaxError, "Invalid regular expression: /%s/: %s", pattern, strings.TrimPrefix(err.Error(), "error parsing regexp: "))
	}
	data.re = re

	obj := newObject(exec.realm.regexpPrototype)
	obj.Class = classRegExp
	obj.internal = data
	obj.defineHidden("lastIndex", NewNumber(0))
	obj.defineHidden("source", NewString(pattern))
	obj.defineHidden("flags", NewString(flags))
	obj.defineHidden("global", NewBool(data.global))
	obj.defineHidden("ignoreCase", NewBool(strings.Contains(flags, "i")))
	obj.defineHidden("multiline", NewBool(strings.Contains(flags, "m")))
	obj.defineHidden("sticky", NewBool(data.sticky))
	return obj, nil
}

func thisRegExp(exec *Execution, this Value, method string) (*Object, *regexpData, error) {
	if obj := this.Object(); obj != nil {
		if data, ok := obj.internal.(*regexpData); ok {
			return obj, data, nil
		}
	}
	return nil, nil, exec.throwTypeError("RegExp.prototype.%s requires that 'this' be a RegExp object", method)
}

func regexpOf(v Value) *regexpData {
	if obj := v.Object(); obj != nil {
		if data, ok := obj.internal.(*regexpData); ok {
			return data
		}
	}
	return nil
}

func (r *realm) installRegExp() {
	proto := newObject(r.objectPrototype)
	r.regexpPrototype = proto
	construct := func(exec *Execution, this Value, args []Value) (Value, error) {
		pattern, flags := argOr(args, 0), argOr(args, 1)
		var source string
		if data := regexpOf(pattern); data != nil {
			source = data.source
			if flags.IsUndefined() {
				flags = NewString(data.flags)
			}
		} else if !pattern.IsUndefined() {
			s, err := exec.toString(pattern)
			if err != nil {
				return Value{}, err
			}
			source = s
		}
		flagText := ""
		if !flags.IsUndefined() {
			s, err := exec.toString(flags)
			if err != nil {
				return Value{}, err
			}
			flagText = s
		}
		obj, err := exec.newRegExp(source, flagText)
		if err != nil {
			return Value{}, err
		}
		return NewObjectValue(obj), nil
	}
	ctor := r.newConstructor("RegExp", 2, proto, construct, construct)
	r.defineGlobal("RegExp", NewObjectValue(ctor))

	r.method(proto, "exec", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		obj, data, err := thisRegExp(exec, this, "exec")
		if err != nil {
			return Value{}, err
		}
		s, err := exec.toString(argOr(args, 0))
		if err != nil {
			return Value{}, err
		}
		return exec.regexpExec(obj, data, s)
	})
	r.method(proto, "test", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		obj, data, err := thisRegExp(exec, this, "test")
		if err != nil {
			return Value{}, err
		}
		s, err := exec.toString(argOr(args, 0))
		if err != nil {
			return Value{}, err
		}
		result, err := exec.regexpExec(obj, data, s)
		return NewBool(!result.IsNullish()), err
	})
	r.method(proto, "toString", 0, func(exec *Execution, this Value, args []Value) (Value, error) {
		_, data, err := thisRegExp(exec, this, "toString")
		if err != nil {
			return Value{}, err
		}
		return NewString("/" + data.source + "/" + data.flags), nil
	})
}

// regexpExec runs one match honoring lastIndex for global and sticky
// expressions. Indices are reported in UTF-16 code units.
func (exec *Execution) regexpExec(obj *Object, data *regexpData, s string) (Value, error) {
	start := 0
	if data.global || data.sticky {
		last, err := exec.toNumber(obj.get("lastIndex"))
		if err != nil {
			return Value{}, err
		}
		start = int(toInteger(last))
		if start < 0 || start > utf16Length(s) {
			obj.defineHidden("lastIndex", NewNumber(0))
			return Null(), nil
		}
	}
	offset := utf16ToByteOffset(s, start)
	loc := data.re.FindStringSubmatchIndex(s[offset:])
	if loc == nil || (data.sticky && loc[0] != 0) {
		if data.global || data.sticky {
			obj.defineHidden("lastIndex", NewNumber(0))
		}
		return Null(), nil
	}
	for i := range loc {
		if loc[i] >= 0 {
			loc[i] += offset
		}
	}
	if data.global || data.sticky {
		obj.defineHidden("lastIndex", NewNumber(float64(byteToUTF16Offset(s, loc[1]))))
	}
	return exec.matchResult(data, s, loc), nil
}

// matchResult builds the exec() array: full match, groups, index and input.
func (exec *Execution) matchResult(data *regexpData, s string, loc []int) Value {
	elems := make([]Value, len(loc)/2)
	for i := range elems {
		if loc[2*i] >= 0 {
			elems[i] = NewString(s[loc[2*i]:loc[2*i+1]])
		}
	}
	arr := newArrayObject(exec.realm.arrayPrototype, elems)
	_ = arr.put("index", NewNumber(float64(byteToUTF16Offset(s, loc[0]))))
	_ = arr.put("input", NewString(s))
	groups := Value{}
	for i, name := range data.re.SubexpNames() {
		if name == "" {
			continue
		}
		if groups.IsUndefined() {
			groups = NewObjectValue(newObject(exec.realm.objectPrototype))
		}
		_ = groups.Object().put(name, elems[i])
	}
	_ = arr.put("groups", groups)
	return NewObjectValue(arr)
}

// expandReplacement substitutes $$, $&, $`, $', $n and $<name> in a
// replacement template.
func expandReplacement(template, s string, loc []int, re *regexp.Regexp) string {
	if !strings.Contains(template, "$") {
		return template
	}
	groups := len(loc)/2 - 1
	group := func(n int) string {
		if n > groups || loc[2*n] < 0 {
			return ""
		}
		return s[loc[2*n]:loc[2*n+1]]
	}
	var b strings.Builder
	for i := 0; i < len(template); i++ {
		c := template[i]
		if c != '$' || i+1 >= len(template) {
			b.WriteByte(c)
			continue
		}
		next := template[i+1]
		switch {
		case next == '$':
			b.WriteByte('$')
			i++
		case next == '&':
			b.WriteString(s[loc[0]:loc[1]])
			i++
		case next == '`':
			b.WriteString(s[:loc[0]])
			i++
		case next == '\'':
			b.WriteString(s[loc[1]:])
			i++
		case next >= '0' && next <= '9':
			n := int(next - '0')
			width := 1
			if i+2 < len(template) && template[i+2] >= '0' && template[i+2] <= '9' {
				if two := n*10 + int(template[i+2]-'0'); two >= 1 && two <= groups {
					n, width = two, 2
				}
			}
			if n < 1 || n > groups {
				b.WriteByte(c)
				continue
			}
			b.WriteString(group(n))
			i += width
		case next == '<' && re != nil && re.NumSubexp() > 0:
			end := strings.IndexByte(template[i:], '>')
			if end < 0 {
				b.WriteByte(c)
				continue
			}
			if idx := re.SubexpIndex(template[i+2 : i+end]); idx > 0 {
				b.WriteString(group(idx))
			}
			i += end
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
