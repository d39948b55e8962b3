package quill

import (
	"math"
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

func thisString(exec *Execution, this Value, method string) (string, error) {
	if this.kind == KindString {
		return this.Str(), nil
	}
	if this.IsNullish() {
		return "", exec.throwTypeError("String.prototype.%s called on null or undefined", method)
	}
	if prim, ok := primitiveOf(this); ok && prim.kind == KindString {
		return prim.Str(), nil
	}
	return exec.toString(this)
}

// stringArg converts args[i] to a string, with undefined rendered as
// "undefined" the way the language does.
func stringArg(exec *Execution, args []Value, i int) (string, error) {
	return exec.toString(argOr(args, i))
}

func intArg(exec *Execution, args []Value, i int, def float64) (float64, error) {
	v := argOr(args, i)
	if v.IsUndefined() {
		return def, nil
	}
	n, err := exec.toNumber(v)
	if err != nil {
		return 0, err
	}
	return toInteger(n), nil
}

// indexUnits finds needle in hay at or after from, in code units.
func indexUnits(hay, needle []uint16, from int) int {
	for i := from; i+len(needle) <= len(hay); i++ {
		if slices.Equal(hay[i:i+len(needle)], needle) {
			return i
		}
	}
	return -1
}

func lastIndexUnits(hay, needle []uint16, from int) int {
	for i := min(from, len(hay)-len(needle)); i >= 0; i-- {
		if slices.Equal(hay[i:i+len(needle)], needle) {
			return i
		}
	}
	return -1
}

func (r *realm) installString() {
	proto := newObject(r.objectPrototype)
	r.stringPrototype = proto
	ctor := r.newConstructor("String", 1, proto,
		func(exec *Execution, this Value, args []Value) (Value, error) {
			if len(args) == 0 {
				return NewString(""), nil
			}
			s, err := exec.toString(args[0])
			return NewString(s), err
		},
		func(exec *Execution, this Value, args []Value) (Value, error) {
			s := ""
			if len(args) > 0 {
				var err error
				if s, err = exec.toString(args[0]); err != nil {
					return Value{}, err
				}
			}
			return NewObjectValue(exec.realm.wrapPrimitive(NewString(s))), nil
		})
	r.defineGlobal("String", NewObjectValue(ctor))

	r.method(ctor, "fromCharCode", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		units := make([]uint16, len(args))
		for i, arg := range args {
			n, err := exec.toNumber(arg)
			if err != nil {
				return Value{}, err
			}
			units[i] = uint16(toUint32(n))
		}
		return NewString(fromUTF16(units)), nil
	})
	r.method(ctor, "fromCodePoint", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		var b strings.Builder
		for _, arg := range args {
			n, err := exec.toNumber(arg)
			if err != nil {
				return Value{}, err
			}
			if n < 0 || n > 0x10FFFF || n != math.Trunc(n) {
				return Value{}, exec.throwRangeError("Invalid code point %s", numberToString(n))
			}
			b.WriteRune(rune(n))
		}
		return NewString(b.String()), nil
	})

	r.method(proto, "toString", 0, func(exec *Execution, this Value, args []Value) (Value, error) {
		s, err := thisString(exec, this, "toString")
		return NewString(s), err
	})
	r.method(proto, "valueOf", 0, func(exec *Execution, this Value, args []Value) (Value, error) {
		s, err := thisString(exec, this, "valueOf")
		return NewString(s), err
	})
	r.method(proto, "charAt", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		s, err := thisString(exec, this, "charAt")
		if err != nil {
			return Value{}, err
		}
		pos, err := intArg(exec, args, 0, 0)
		if err != nil {
			return Value{}, err
		}
		units := toUTF16(s)
		if pos < 0 || pos >= float64(len(units)) {
			return NewString(""), nil
		}
		return NewString(fromUTF16(units[int(pos) : int(pos)+1])), nil
	})
	r.method(proto, "charCodeAt", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		s, err := thisString(exec, this, "charCodeAt")
		if err != nil {
			return Value{}, err
		}
		pos, err := intArg(exec, args, 0, 0)
		if err != nil {
			return Value{}, err
		}
		units := toUTF16(s)
		if pos < 0 || pos >= float64(len(units)) {
			return NewNumber(math.NaN()), nil
		}
		return NewNumber(float64(units[int(pos)])), nil
	})
	r.method(proto, "codePointAt", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		s, err := thisString(exec, this, "codePointAt")
		if err != nil {
			return Value{}, err
		}
		pos, err := intArg(exec, args, 0, 0)
		if err != nil {
			return Value{}, err
		}
		units := toUTF16(s)
		if pos < 0 || pos >= float64(len(units)) {
			return Value{}, nil
		}
		i := int(pos)
		if utf16.IsSurrogate(rune(units[i])) && i+1 < len(units) {
			if cp := utf16.DecodeRune(rune(units[i]), rune(units[i+1])); cp != unicode.ReplacementChar {
				return NewNumber(float64(cp)), nil
			}
		}
		return NewNumber(float64(units[i])), nil
	})
	r.method(proto, "at", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		s, err := thisString(exec, this, "at")
		if err != nil {
			return Value{}, err
		}
		pos, err := intArg(exec, args, 0, 0)
		if err != nil {
			return Value{}, err
		}
		units := toUTF16(s)
		if pos < 0 {
			pos += float64(len(units))
		}
		if pos < 0 || pos >= float64(len(units)) {
			return Value{}, nil
		}
		return NewString(fromUTF16(units[int(pos) : int(pos)+1])), nil
	})
	r.method(proto, "indexOf", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		s, err := thisString(exec, this, "indexOf")
		if err != nil {
			return Value{}, err
		}
		needle, err := stringArg(exec, args, 0)
		if err != nil {
			return Value{}, err
		}
		from, err := intArg(exec, args, 1, 0)
		if err != nil {
			return Value{}, err
		}
		hay := toUTF16(s)
		start := int(max(0, min(from, float64(len(hay)))))
		return NewNumber(float64(indexUnits(hay, toUTF16(needle), start))), nil
	})
	r.method(proto, "lastIndexOf", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		s, err := thisString(exec, this, "lastIndexOf")
		if err != nil {
			return Value{}, err
		}
		needle, err := stringArg(exec, args, 0)
		if err != nil {
			return Value{}, err
		}
		hay := toUTF16(s)
		from := float64(len(hay))
		if v := argOr(args, 1); !v.IsUndefined() {
			n, err := exec.toNumber(v)
			if err != nil {
				return Value{}, err
			}
			if !math.IsNaN(n) {
				from = toInteger(n)
			}
		}
		start := int(max(0, min(from, float64(len(hay)))))
		return NewNumber(float64(lastIndexUnits(hay, toUTF16(needle), start))), nil
	})
	r.method(proto, "includes", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		s, err := thisString(exec, this, "includes")
		if err != nil {
			return Value{}, err
		}
		if regexpOf(argOr(args, 0)) != nil {
			return Value{}, exec.throwTypeError("First argument to String.prototype.includes must not be a regular expression")
		}
		needle, err := stringArg(exec, args, 0)
		if err != nil {
			return Value{}, err
		}
		from, err := intArg(exec, args, 1, 0)
		if err != nil {
			return Value{}, err
		}
		hay := toUTF16(s)
		start := int(max(0, min(from, float64(len(hay)))))
		return NewBool(indexUnits(hay, toUTF16(needle), start) >= 0), nil
	})
	r.method(proto, "startsWith", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		s, err := thisString(exec, this, "startsWith")
		if err != nil {
			return Value{}, err
		}
		needle, err := stringArg(exec, args, 0)
		if err != nil {
			return Value{}, err
		}
		pos, err := intArg(exec, args, 1, 0)
		if err != nil {
			return Value{}, err
		}
		hay, n := toUTF16(s), toUTF16(needle)
		start := int(max(0, min(pos, float64(len(hay)))))
		return NewBool(start+len(n) <= len(hay) && slices.Equal(hay[start:start+len(n)], n)), nil
	})
	r.method(proto, "endsWith", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		s, err := thisString(exec, this, "endsWith")
		if err != nil {
			return Value{}, err
		}
		needle, err := stringArg(exec, args, 0)
		if err != nil {
			return Value{}, err
		}
		hay, n := toUTF16(s), toUTF16(needle)
		end, err := intArg(exec, args, 1, float64(len(hay)))
		if err != nil {
			return Value{}, err
		}
		stop := int(max(0, min(end, float64(len(hay)))))
		return NewBool(stop-len(n) >= 0 && slices.Equal(hay[stop-len(n):stop], n)), nil
	})
	r.method(proto, "slice", 2, func(exec *Execution, this Value, args []Value) (Value, error) {
		s, err := thisString(exec, this, "slice")
		if err != nil {
			return Value{}, err
		}
		units := toUTF16(s)
		start, end, err := sliceBounds(exec, args, 0, len(units))
		if err != nil {
			return Value{}, err
		}
		return NewString(fromUTF16(units[start:end])), nil
	})
	r.method(proto, "substring", 2, func(exec *Execution, this Value, args []Value) (Value, error) {
		s, err := thisString(exec, this, "substring")
		if err != nil {
			return Value{}, err
		}
		units := toUTF16(s)
		n := float64(len(units))
		a, err := intArg(exec, args, 0, 0)
		if err != nil {
			return Value{}, err
		}
		b, err := intArg(exec, args, 1, n)
		if err != nil {
			return Value{}, err
		}
		start, end := int(max(0, min(a, n))), int(max(0, min(b, n)))
		if start > end {
			start, end = end, start
		}
		return NewString(fromUTF16(units[start:end])), nil
	})
	r.method(proto, "substr", 2, func(exec *Execution, this Value, args []Value) (Value, error) {
		s, err := thisString(exec, this, "substr")
		if err != nil {
			return Value{}, err
		}
		units := toUTF16(s)
		startArg, err := intArg(exec, args, 0, 0)
		if err != nil {
			return Value{}, err
		}
		start := relativeIndex(startArg, len(units))
		length, err := intArg(exec, args, 1, float64(len(units)-start))
		if err != nil {
			return Value{}, err
		}
		end := start + int(max(0, min(length, float64(len(units)-start))))
		return NewString(fromUTF16(units[start:end])), nil
	})
	r.method(proto, "toUpperCase", 0, func(exec *Execution, this Value, args []Value) (Value, error) {
		s, err := thisString(exec, this, "toUpperCase")
		return NewString(strings.ToUpper(s)), err
	})
	r.method(proto, "toLowerCase", 0, func(exec *Execution, this Value, args []Value) (Value, error) {
		s, err := thisString(exec, this, "toLowerCase")
		return NewString(strings.ToLower(s)), err
	})
	r.method(proto, "trim", 0, func(exec *Execution, this Value, args []Value) (Value, error) {
		s, err := thisString(exec, this, "trim")
		return NewString(strings.TrimFunc(s, isJSSpace)), err
	})
	r.method(proto, "trimStart", 0, func(exec *Execution, this Value, args []Value) (Value, error) {
		s, err := thisString(exec, this, "trimStart")
		return NewString(strings.TrimLeftFunc(s, isJSSpace)), err
	})
	r.method(proto, "trimEnd", 0, func(exec *Execution, this Value, args []Value) (Value, error) {
		s, err := thisString(exec, this, "trimEnd")
		return NewString(strings.TrimRightFunc(s, isJSSpace)), err
	})
	r.method(proto, "padStart", 2, func(exec *Execution, this Value, args []Value) (Value, error) {
		return exec.pad(this, args, true)
	})
	r.method(proto, "padEnd", 2, func(exec *Execution, this Value, args []Value) (Value, error) {
		return exec.pad(this, args, false)
	})
	r.method(proto, "repeat", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		s, err := thisString(exec, this, "repeat")
		if err != nil {
			return Value{}, err
		}
		count, err := intArg(exec, args, 0, 0)
		if err != nil {
			return Value{}, err
		}
		if count < 0 || math.IsInf(count, 0) {
			return Value{}, exec.throwRangeError("Invalid count value: %s", numberToString(count))
		}
		if count*float64(len(s)) > maxArrayLength*4 {
			return Value{}, exec.throwRangeError("Invalid string length")
		}
		return NewString(strings.Repeat(s, int(count))), nil
	})
	r.method(proto, "concat", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		s, err := thisString(exec, this, "concat")
		if err != nil {
			return Value{}, err
		}
		var b strings.Builder
		b.WriteString(s)
		for i := range args {
			part, err := stringArg(exec, args, i)
			if err != nil {
				return Value{}, err
			}
			b.WriteString(part)
		}
		return NewString(b.String()), nil
	})
	r.method(proto, "localeCompare", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		s, err := thisString(exec, this, "localeCompare")
		if err != nil {
			return Value{}, err
		}
		other, err := stringArg(exec, args, 0)
		if err != nil {
			return Value{}, err
		}
		return NewNumber(float64(compareUTF16(s, other))), nil
	})
	r.method(proto, "normalize", 0, func(exec *Execution, this Value, args []Value) (Value, error) {
		s, err := thisString(exec, this, "normalize")
		if err != nil {
			return Value{}, err
		}
		form := "NFC"
		if v := argOr(args, 0); !v.IsUndefined() {
			if form, err = exec.toString(v); err != nil {
				return Value{}, err
			}
		}
		switch form {
		case "NFC":
			return NewString(norm.NFC.String(s)), nil
		case "NFD":
			return NewString(norm.NFD.String(s)), nil
		case "NFKC":
			return NewString(norm.NFKC.String(s)), nil
		case "NFKD":
			return NewString(norm.NFKD.String(s)), nil
		}
		return Value{}, exec.throwRangeError("The normalization form should be one of NFC, NFD, NFKC, NFKD.")
	})
	r.method(proto, "split", 2, func(exec *Execution, this Value, args []Value) (Value, error) {
		s, err := thisString(exec, this, "split")
		if err != nil {
			return Value{}, err
		}
		limit := -1
		if v := argOr(args, 1); !v.IsUndefined() {
			n, err := exec.toNumber(v)
			if err != nil {
				return Value{}, err
			}
			limit = int(toUint32(n))
		}
		parts, err := exec.split(s, argOr(args, 0))
		if err != nil {
			return Value{}, err
		}
		if limit >= 0 && len(parts) > limit {
			parts = parts[:limit]
		}
		return exec.newStringArray(parts), nil
	})
	r.method(proto, "replace", 2, func(exec *Execution, this Value, args []Value) (Value, error) {
		s, err := thisString(exec, this, "replace")
		if err != nil {
			return Value{}, err
		}
		return exec.replace(s, argOr(args, 0), argOr(args, 1), false)
	})
	r.method(proto, "replaceAll", 2, func(exec *Execution, this Value, args []Value) (Value, error) {
		s, err := thisString(exec, this, "replaceAll")
		if err != nil {
			return Value{}, err
		}
		if data := regexpOf(argOr(args, 0)); data != nil && !data.global {
			return Value{}, exec.throwTypeError("replaceAll must be called with a global RegExp")
		}
		return exec.replace(s, argOr(args, 0), argOr(args, 1), true)
	})
	r.method(proto, "match", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		s, err := thisString(exec, this, "match")
		if err != nil {
			return Value{}, err
		}
		obj, data, err := exec.coerceRegExp(argOr(args, 0), "")
		if err != nil {
			return Value{}, err
		}
		if !data.global {
			return exec.regexpExec(obj, data, s)
		}
		matches := data.re.FindAllString(s, -1)
		obj.defineHidden("lastIndex", NewNumber(0))
		if matches == nil {
			return Null(), nil
		}
		return exec.newStringArray(matches), nil
	})
	r.method(proto, "matchAll", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		s, err := thisString(exec, this, "matchAll")
		if err != nil {
			return Value{}, err
		}
		_, data, err := exec.coerceRegExp(argOr(args, 0), "g")
		if err != nil {
			return Value{}, err
		}
		if !data.global {
			return Value{}, exec.throwTypeError("String.prototype.matchAll called with a non-global RegExp argument")
		}
		var out []Value
		for _, loc := range data.re.FindAllStringSubmatchIndex(s, -1) {
			out = append(out, exec.matchResult(data, s, loc))
		}
		return exec.newArray(out), nil
	})
	r.method(proto, "search", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		s, err := thisString(exec, this, "search")
		if err != nil {
			return Value{}, err
		}
		_, data, err := exec.coerceRegExp(argOr(args, 0), "")
		if err != nil {
			return Value{}, err
		}
		loc := data.re.FindStringIndex(s)
		if loc == nil {
			return NewNumber(-1), nil
		}
		return NewNumber(float64(byteToUTF16Offset(s, loc[0]))), nil
	})
}

func isJSSpace(r rune) bool {
	return isJSWhitespace(r) || r == '\n' || r == '\r' || r == '\u2028' || r == '\u2029'
}

// coerceRegExp returns v's regexp state, compiling strings into a fresh
// expression with flags.
func (exec *Execution) coerceRegExp(v Value, flags string) (*Object, *regexpData, error) {
	if data := regexpOf(v); data != nil {
		return v.Object(), data, nil
	}
	pattern := ""
	if !v.IsUndefined() {
		s, err := exec.toString(v)
		if err != nil {
			return nil, nil, err
		}
		pattern = s
	}
	obj, err := exec.newRegExp(pattern, flags)
	if err != nil {
		return nil, nil, err
	}
	return obj, obj.internal.(*regexpData), nil
}

func (exec *Execution) pad(this Value, args []Value, start bool) (Value, error) {
	method := "padEnd"
	if start {
		method = "padStart"
	}
	s, err := thisString(exec, this, method)
	if err != nil {
		return Value{}, err
	}
	target, err := intArg(exec, args, 0, 0)
	if err != nil {
		return Value{}, err
	}
	filler := " "
	if v := argOr(args, 1); !v.IsUndefined() {
		if filler, err = exec.toString(v); err != nil {
			return Value{}, err
		}
	}
	units := toUTF16(s)
	missing := int(target) - len(units)
	if missing <= 0 || filler == "" {
		return NewString(s), nil
	}
	if missing > maxArrayLength {
		return Value{}, exec.throwRangeError("Invalid string length")
	}
	fill := toUTF16(filler)
	padding := make([]uint16, 0, missing)
	for len(padding) < missing {
		padding = append(padding, fill[:min(len(fill), missing-len(padding))]...)
	}
	if start {
		return NewString(fromUTF16(padding) + s), nil
	}
	return NewString(s + fromUTF16(padding)), nil
}

func (exec *Execution) split(s string, sep Value) ([]string, error) {
	if sep.IsUndefined() {
		return []string{s}, nil
	}
	if data := regexpOf(sep); data != nil {
		if s == "" {
			if data.re.MatchString(s) {
				return []string{}, nil
			}
			return []string{s}, nil
		}
		var parts []string
		last := 0
		for _, loc := range data.re.FindAllStringSubmatchIndex(s, -1) {
			if loc[1] == loc[0] && (loc[0] == 0 || loc[0] == len(s)) {
				continue
			}
			parts = append(parts, s[last:loc[0]])
			for g := 1; g < len(loc)/2; g++ {
				if loc[2*g] >= 0 {
					parts = append(parts, s[loc[2*g]:loc[2*g+1]])
				} else {
					parts = append(parts, "")
				}
			}
			last = loc[1]
		}
		return append(parts, s[last:]), nil
	}
	sepStr, err := exec.toString(sep)
	if err != nil {
		return nil, err
	}
	if sepStr == "" {
		units := toUTF16(s)
		parts := make([]string, len(units))
		for i := range units {
			parts[i] = fromUTF16(units[i : i+1])
		}
		return parts, nil
	}
	return strings.Split(s, sepStr), nil
}

// replace implements replace and replaceAll for string and RegExp patterns.
// A function replacement receives (match, ...groups, index, input).
func (exec *Execution) replace(s string, pattern, replacement Value, all bool) (Value, error) {
	var (
		locs     [][]int
		compiled *regexp.Regexp
	)
	if data := regexpOf(pattern); data != nil {
		compiled = data.re
		if data.global {
			locs = data.re.FindAllStringSubmatchIndex(s, -1)
			pattern.Object().defineHidden("lastIndex", NewNumber(0))
		} else if loc := data.re.FindStringSubmatchIndex(s); loc != nil {
			locs = [][]int{loc}
		}
	} else {
		needle, err := exec.toString(pattern)
		if err != nil {
			return Value{}, err
		}
		for from := 0; from <= len(s); {
			i := strings.Index(s[from:], needle)
			if i < 0 {
				break
			}
			locs = append(locs, []int{from + i, from + i + len(needle)})
			if !all {
				break
			}
			from += i + max(len(needle), 1)
			if needle == "" && from <= len(s) {
				for from < len(s) && !isRuneStart(s[from]) {
					from++
				}
			}
		}
	}

	template := ""
	if !replacement.IsCallable() {
		var err error
		if template, err = exec.toString(replacement); err != nil {
			return Value{}, err
		}
	}
	var b strings.Builder
	last := 0
	for _, loc := range locs {
		b.WriteString(s[last:loc[0]])
		if replacement.IsCallable() {
			callArgs := make([]Value, 0, len(loc)/2+2)
			for g := 0; g < len(loc)/2; g++ {
				if loc[2*g] >= 0 {
					callArgs = append(callArgs, NewString(s[loc[2*g]:loc[2*g+1]]))
				} else {
					callArgs = append(callArgs, Value{})
				}
			}
			callArgs = append(callArgs, NewNumber(float64(byteToUTF16Offset(s, loc[0]))), NewString(s))
			result, err := exec.call(replacement, Value{}, callArgs)
			if err != nil {
				return Value{}, err
			}
			text, err := exec.toString(result)
			if err != nil {
				return Value{}, err
			}
			b.WriteString(text)
		} else {
			b.WriteString(expandReplacement(template, s, loc, compiled))
		}
		last = loc[1]
	}
	b.WriteString(s[last:])
	return NewString(b.String()), nil
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
