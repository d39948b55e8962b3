package quill

import (
	"errors"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

const maxJSONDepth = 10000

func (r *realm) installJSON() {
	obj := newObject(r.objectPrototype)
	r.defineGlobal("JSON", NewObjectValue(obj))
	r.method(obj, "stringify", 3, func(exec *Execution, this Value, args []Value) (Value, error) {
		return exec.jsonStringify(argOr(args, 0), argOr(args, 1), argOr(args, 2))
	})
	r.method(obj, "parse", 2, func(exec *Execution, this Value, args []Value) (Value, error) {
		text, err := exec.toString(argOr(args, 0))
		if err != nil {
			return Value{}, err
		}
		result, err := exec.jsonParse(text)
		if err != nil {
			return Value{}, err
		}
		if reviver := argOr(args, 1); reviver.IsCallable() {
			root := newObject(exec.realm.objectPrototype)
			_ = root.put("", result)
			return exec.revive(root, "", reviver)
		}
		return result, nil
	})
}

type jsonSerializer struct {
	exec     *Execution
	replacer Value
	allow    []string
	gap      string
	indent   string
	stack    []*Object
}

func (exec *Execution) jsonStringify(value, replacer, space Value) (Value, error) {
	s := &jsonSerializer{exec: exec}
	if replacer.IsCallable() {
		s.replacer = replacer
	} else if list := replacer.Object(); list != nil && list.Class == classArray {
		seen := map[string]bool{}
		s.allow = []string{}
		for _, item := range list.array {
			item, _ = primitiveOf(item)
			if item.kind != KindString && item.kind != KindNumber {
				continue
			}
			key := primitiveToString(item)
			if !seen[key] {
				seen[key] = true
				s.allow = append(s.allow, key)
			}
		}
	}

	space, _ = primitiveOf(space)
	switch space.kind {
	case KindNumber:
		n := int(max(0, min(10, toInteger(space.Number()))))
		s.gap = strings.Repeat(" ", n)
	case KindString:
		units := toUTF16(space.Str())
		s.gap = fromUTF16(units[:min(10, len(units))])
	}

	wrapper := newObject(exec.realm.objectPrototype)
	_ = wrapper.put("", value)
	out, ok, err := s.property(wrapper, "", value)
	if err != nil || !ok {
		return Value{}, err
	}
	return NewString(out), nil
}

// property serializes holder[key]. ok is false when the value is omitted.
func (s *jsonSerializer) property(holder *Object, key string, value Value) (string, bool, error) {
	exec := s.exec
	if value.IsObject() {
		if toJSON := value.Object().get("toJSON"); toJSON.IsCallable() {
			var err error
			if value, err = exec.call(toJSON, value, []Value{NewString(key)}); err != nil {
				return "", false, err
			}
		}
	}
	if s.replacer.IsCallable() {
		var err error
		if value, err = exec.call(s.replacer, NewObjectValue(holder), []Value{NewString(key), value, NewObjectValue(holder)}); err != nil {
			return "", false, err
		}
	}
	value, _ = primitiveOf(value)

	switch value.kind {
	case KindNull:
		return "null", true, nil
	case KindBool:
		return primitiveToString(value), true, nil
	case KindString:
		return quoteJSON(value.Str()), true, nil
	case KindNumber:
		return jsonNumber(value.Number()), true, nil
	case KindObject:
		obj := value.Object()
		for _, open := range s.stack {
			if open == obj {
				return "", false, exec.throwTypeError("Converting circular structure to JSON")
			}
		}
		if len(s.stack) >= maxJSONDepth {
			return "", false, exec.throwRangeError("Maximum JSON nesting depth exceeded")
		}
		s.stack = append(s.stack, obj)
		defer func() { s.stack = s.stack[:len(s.stack)-1] }()
		if obj.Class == classArray {
			out, err := s.array(obj)
			return out, err == nil, err
		}
		out, err := s.object(obj)
		return out, err == nil, err
	}
	return "", false, nil
}

func (s *jsonSerializer) object(obj *Object) (string, error) {
	stepback := s.indent
	s.indent += s.gap
	defer func() { s.indent = stepback }()

	keys := s.allow
	if keys == nil {
		keys = ownKeysOf(obj)
	}
	var parts []string
	for _, key := range keys {
		out, ok, err := s.property(obj, key, obj.get(key))
		if err != nil {
			return "", err
		}
		if !ok {
			continue
		}
		sep := ":"
		if s.gap != "" {
			sep = ": "
		}
		parts = append(parts, quoteJSON(key)+sep+out)
	}
	return s.wrap("{", "}", parts, stepback), nil
}

func (s *jsonSerializer) array(obj *Object) (string, error) {
	stepback := s.indent
	s.indent += s.gap
	defer func() { s.indent = stepback }()

	parts := make([]string, 0, len(obj.array))
	for i := 0; i < len(obj.array); i++ {
		out, ok, err := s.property(obj, strconv.Itoa(i), obj.array[i])
		if err != nil {
			return "", err
		}
		if !ok {
			out = "null"
		}
		parts = append(parts, out)
	}
	return s.wrap("[", "]", parts, stepback), nil
}

func (s *jsonSerializer) wrap(open, close string, parts []string, stepback string) string {
	if len(parts) == 0 {
		return open + close
	}
	if s.gap == "" {
		return open + strings.Join(parts, ",") + close
	}
	return open + "\n" + s.indent + strings.Join(parts, ",\n"+s.indent) + "\n" + stepback + close
}

// quoteJSON escapes only what JSON requires, leaving U+2028, U+2029 and
// HTML characters literal as the language does.
func quoteJSON(str string) string {
	var b strings.Builder
	b.Grow(len(str) + 2)
	b.WriteByte('"')
	for _, r := range str {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				b.WriteString(`\u00`)
				b.WriteByte("0123456789abcdef"[r>>4])
				b.WriteByte("0123456789abcdef"[r&0xF])
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// jsonParse decodes text with a streaming token reader so object key order
// is preserved. The token reader skips ',' and ':' wherever they appear, so
// the separators between tokens are checked against the source text.
func (exec *Execution) jsonParse(text string) (Value, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	r := &jsonReader{dec: dec, text: text}
	if err := exec.jsonExpectGap(r, ""); err != nil {
		return Value{}, err
	}
	v, err := exec.jsonValue(r, 0)
	if err != nil {
		return Value{}, err
	}
	if seps, next := r.gap(); seps != "" || next != 0 {
		return Value{}, exec.throwError(KindSyntaxError, "Unexpected non-whitespace character after JSON")
	}
	return v, nil
}

type jsonReader struct {
	dec  *json.Decoder
	text string
}

// gap scans from the end of the last token to the next significant byte,
// returning the separators in between and that byte (0 at end of input).
func (r *jsonReader) gap() (string, byte) {
	var seps []byte
	for i := int(r.dec.InputOffset()); i < len(r.text); i++ {
		switch c := r.text[i]; c {
		case ' ', '\t', '\n', '\r':
		case ',', ':':
			seps = append(seps, c)
		default:
			return string(seps), c
		}
	}
	return string(seps), 0
}

func (exec *Execution) jsonExpectGap(r *jsonReader, want string) error {
	seps, next := r.gap()
	if seps == want && next != 0 {
		return nil
	}
	if next == 0 {
		return exec.throwError(KindSyntaxError, "Unexpected end of JSON input")
	}
	if want == "" {
		return exec.throwError(KindSyntaxError, "Unexpected token '%s' in JSON", seps[:1])
	}
	return exec.throwError(KindSyntaxError, "Expected '%s' in JSON", want)
}

// jsonClose consumes the closing delimiter when it directly follows.
func (exec *Execution) jsonClose(r *jsonReader, delim byte) (bool, error) {
	seps, next := r.gap()
	if next != delim || seps != "" {
		return false, nil
	}
	if _, err := r.dec.Token(); err != nil {
		return false, exec.jsonSyntaxError(err)
	}
	return true, nil
}

func (exec *Execution) jsonSyntaxError(err error) error {
	if errors.Is(err, io.EOF) {
		return exec.throwError(KindSyntaxError, "Unexpected end of JSON input")
	}
	return exec.throwError(KindSyntaxError, "Invalid JSON: %s", err.Error())
}

func (exec *Execution) jsonValue(r *jsonReader, depth int) (Value, error) {
	tok, err := r.dec.Token()
	if err != nil {
		return Value{}, exec.jsonSyntaxError(err)
	}
	return exec.jsonToken(r, tok, depth)
}

func (exec *Execution) jsonToken(r *jsonReader, tok json.Token, depth int) (Value, error) {
	if depth > maxJSONDepth {
		return Value{}, exec.throwRangeError("Maximum JSON nesting depth exceeded")
	}
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return NewBool(t), nil
	case string:
		return NewString(t), nil
	case json.Number:
		f, err := strconv.ParseFloat(string(t), 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return Value{}, exec.jsonSyntaxError(err)
		}
		return NewNumber(f), nil
	case float64:
		return NewNumber(t), nil
	case json.Delim:
		switch t {
		case '[':
			return exec.jsonArray(r, depth)
		case '{':
			return exec.jsonObject(r, depth)
		}
	}
	return Value{}, exec.throwError(KindSyntaxError, "Unexpected token in JSON")
}

func (exec *Execution) jsonArray(r *jsonReader, depth int) (Value, error) {
	var elems []Value
	sep := ""
	for {
		if done, err := exec.jsonClose(r, ']'); err != nil || done {
			return exec.newArray(elems), err
		}
		if err := exec.jsonExpectGap(r, sep); err != nil {
			return Value{}, err
		}
		v, err := exec.jsonValue(r, depth+1)
		if err != nil {
			return Value{}, err
		}
		if len(elems) >= maxArrayLength {
			return Value{}, exec.throwRangeError("Invalid array length")
		}
		elems = append(elems, v)
		sep = ","
	}
}

func (exec *Execution) jsonObject(r *jsonReader, depth int) (Value, error) {
	obj := newObject(exec.realm.objectPrototype)
	sep := ""
	for {
		if done, err := exec.jsonClose(r, '}'); err != nil || done {
			return NewObjectValue(obj), err
		}
		if err := exec.jsonExpectGap(r, sep); err != nil {
			return Value{}, err
		}
		keyTok, err := r.dec.Token()
		if err != nil {
			return Value{}, exec.jsonSyntaxError(err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return Value{}, exec.throwError(KindSyntaxError, "Expected property name in JSON")
		}
		if err := exec.jsonExpectGap(r, ":"); err != nil {
			return Value{}, err
		}
		v, err := exec.jsonValue(r, depth+1)
		if err != nil {
			return Value{}, err
		}
		_ = obj.put(key, v)
		sep = ","
	}
}

// revive applies a JSON.parse reviver bottom-up; undefined results delete
// the property.
func (exec *Execution) revive(holder *Object, key string, reviver Value) (Value, error) {
	val := holder.get(key)
	if obj := val.Object(); obj != nil {
		keys := ownKeysOf(obj)
		if obj.Class == classArray {
			keys = keys[:len(obj.array)]
		}
		for _, k := range keys {
			revived, err := exec.revive(obj, k, reviver)
			if err != nil {
				return Value{}, err
			}
			if revived.IsUndefined() && obj.Class != classArray {
				obj.deleteKey(k)
			} else {
				_ = obj.put(k, revived)
			}
		}
	}
	return exec.call(reviver, NewObjectValue(holder), []Value{NewString(key), val})
}

func jsonNumber(n float64) string {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return "null"
	}
	return numberToString(n)
}
