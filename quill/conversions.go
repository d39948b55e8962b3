package quill

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

func toBoolean(v Value) bool {
	switch v.kind {
	case KindBool:
		return v.Bool()
	case KindNumber:
		n := v.Number()
		return n != 0 && !math.IsNaN(n)
	case KindString:
		return v.Str() != ""
	case KindObject, KindFunction:
		return true
	default:
		return false
	}
}

func primitiveToString(v Value) string {
	switch v.kind {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBool:
		if v.Bool() {
			return "true"
		}
		return "false"
	case KindNumber:
		return numberToString(v.Number())
	case KindString:
		return v.Str()
	case KindFunction:
		return "function " + v.Object().fn.Name + "() { [native code] }"
	default:
		return "[object Object]"
	}
}

// numberToString formats a double using the shortest round-tripping digits,
// switching to exponent form outside [1e-6, 1e21).
func numberToString(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}

	sign := ""
	if f < 0 {
		sign = "-"
		f = -f
	}

	formatted := strconv.FormatFloat(f, 'e', -1, 64)
	mantissa, expPart, _ := strings.Cut(formatted, "e")
	exp, _ := strconv.Atoi(expPart)
	digits := strings.Replace(mantissa, ".", "", 1)
	k := len(digits)
	n := exp + 1

	switch {
	case k <= n && n <= 21:
		return sign + digits + strings.Repeat("0", n-k)
	case 0 < n && n <= 21:
		return sign + digits[:n] + "." + digits[n:]
	case -6 < n && n <= 0:
		return sign + "0." + strings.Repeat("0", -n) + digits
	}

	expSign := "+"
	if n-1 < 0 {
		expSign = "-"
	}
	expDigits := strconv.Itoa(abs(n - 1))
	if k == 1 {
		return sign + digits + "e" + expSign + expDigits
	}
	return sign + digits[:1] + "." + digits[1:] + "e" + expSign + expDigits
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func primitiveToNumber(v Value) float64 {
	switch v.kind {
	case KindUndefined:
		return math.NaN()
	case KindNull:
		return 0
	case KindBool:
		if v.Bool() {
			return 1
		}
		return 0
	case KindNumber:
		return v.Number()
	case KindString:
		return stringToNumber(v.Str())
	default:
		return math.NaN()
	}
}

func stringToNumber(s string) float64 {
	s = strings.TrimFunc(s, isJSWhitespace)
	if s == "" {
		return 0
	}
	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if len(s) > 2 && s[0] == '0' && strings.ContainsRune("xXoObB", rune(s[1])) {
		if f, ok := parseNumericLiteral(s); ok {
			return f
		}
		return math.NaN()
	}
	for _, r := range s {
		if !(isDigit(r) || r == '.' || r == 'e' || r == 'E' || r == '+' || r == '-') {
			return math.NaN()
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange {
			return f
		}
		return math.NaN()
	}
	return f
}

func isJSWhitespace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f', '\u00a0', '\ufeff', '\u2028', '\u2029', '\u1680', '\u202f', '\u205f', '\u3000':
		return true
	}
	return r >= '\u2000' && r <= '\u200a'
}

// toPrimitive calls valueOf/toString on objects. hint is "number", "string"
// or "default".
func (exec *Execution) toPrimitive(v Value, hint string) (Value, error) {
	obj := v.Object()
	if obj == nil {
		return v, nil
	}
	if hint == "default" && obj.Class == classDate {
		hint = "string"
	}
	order := []string{"valueOf", "toString"}
	if hint == "string" {
		order = []string{"toString", "valueOf"}
	}
	for _, name := range order {
		method := obj.get(name)
		if !method.IsCallable() {
			continue
		}
		result, err := exec.call(method, v, nil)
		if err != nil {
			return Value{}, err
		}
		if !result.IsObject() {
			return result, nil
		}
	}
	return Value{}, exec.throwTypeError("Cannot convert object to primitive value")
}

func (exec *Execution) toNumber(v Value) (float64, error) {
	if v.IsObject() {
		prim, err := exec.toPrimitive(v, "number")
		if err != nil {
			return 0, err
		}
		v = prim
	}
	return primitiveToNumber(v), nil
}

func (exec *Execution) toString(v Value) (string, error) {
	if v.IsObject() {
		prim, err := exec.toPrimitive(v, "string")
		if err != nil {
			return "", err
		}
		v = prim
	}
	return primitiveToString(v), nil
}

func (exec *Execution) toPropertyKey(v Value) (string, error) {
	switch v.kind {
	case KindString:
		return v.Str(), nil
	case KindNumber:
		return numberToString(v.Number()), nil
	}
	return exec.toString(v)
}

func (exec *Execution) toObject(v Value) (*Object, error) {
	if obj := v.Object(); obj != nil {
		return obj, nil
	}
	if v.IsNullish() {
		return nil, exec.throwTypeError("Cannot convert undefined or null to object")
	}
	return exec.realm.wrapPrimitive(v), nil
}

func toInteger(f float64) float64 {
	if math.IsNaN(f) {
		return 0
	}
	return math.Trunc(f)
}

func toUint32(f float64) uint32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return uint32(int64(math.Mod(math.Trunc(f), 1<<32)))
}

func toInt32(f float64) int32 {
	return int32(toUint32(f))
}

// relativeIndex resolves a possibly negative index argument against length,
// clamping to [0, length].
func relativeIndex(f float64, length int) int {
	f = toInteger(f)
	if f < 0 {
		f += float64(length)
		if f < 0 {
			return 0
		}
	}
	if f > float64(length) {
		return length
	}
	return int(f)
}

// Strings are stored as UTF-8; length and indexing follow UTF-16 code units.

func toUTF16(s string) []uint16 {
	return utf16.Encode([]rune(s))
}

func fromUTF16(units []uint16) string {
	return string(utf16.Decode(units))
}

func utf16Length(s string) int {
	n := 0
	for _, r := range s {
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	return n
}

// utf16ToByteOffset maps a code unit index to a byte offset in s.
func utf16ToByteOffset(s string, index int) int {
	units := 0
	for offset, r := range s {
		if units >= index {
			return offset
		}
		if r >= 0x10000 {
			units += 2
		} else {
			units++
		}
	}
	return len(s)
}

func byteToUTF16Offset(s string, offset int) int {
	return utf16Length(s[:offset])
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
