package quill

import (
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
)

func thisNumber(exec *Execution, this Value, method string) (float64, error) {
	if this.kind == KindNumber {
		return this.Number(), nil
	}
	if prim, ok := primitiveOf(this); ok && prim.kind == KindNumber {
		return prim.Number(), nil
	}
	return 0, exec.throwTypeError("Number.prototype.%s requires that 'this' be a Number", method)
}

func (r *realm) installNumber() {
	proto := newObject(r.objectPrototype)
	r.numberPrototype = proto
	toNumberArg := func(exec *Execution, args []Value) (float64, error) {
		if len(args) == 0 {
			return 0, nil
		}
		return exec.toNumber(args[0])
	}
	ctor := r.newConstructor("Number", 1, proto,
		func(exec *Execution, this Value, args []Value) (Value, error) {
			n, err := toNumberArg(exec, args)
			return NewNumber(n), err
		},
		func(exec *Execution, this Value, args []Value) (Value, error) {
			n, err := toNumberArg(exec, args)
			if err != nil {
				return Value{}, err
			}
			return NewObjectValue(exec.realm.wrapPrimitive(NewNumber(n))), nil
		})
	r.defineGlobal("Number", NewObjectValue(ctor))

	ctor.defineHidden("MAX_SAFE_INTEGER", NewNumber(1<<53-1))
	ctor.defineHidden("MIN_SAFE_INTEGER", NewNumber(-(1<<53 - 1)))
	ctor.defineHidden("MAX_VALUE", NewNumber(math.MaxFloat64))
	ctor.defineHidden("MIN_VALUE", NewNumber(5e-324))
	ctor.defineHidden("EPSILON", NewNumber(math.Nextafter(1, 2)-1))
	ctor.defineHidden("POSITIVE_INFINITY", NewNumber(math.Inf(1)))
	ctor.defineHidden("NEGATIVE_INFINITY", NewNumber(math.Inf(-1)))
	ctor.defineHidden("NaN", NewNumber(math.NaN()))
	ctor.defineHidden("parseFloat", r.newNative("parseFloat", 1, builtinParseFloat))
	ctor.defineHidden("parseInt", r.newNative("parseInt", 2, builtinParseInt))

	numberTest := func(name string, test func(float64) bool) {
		r.method(ctor, name, 1, func(exec *Execution, this Value, args []Value) (Value, error) {
			v := argOr(args, 0)
			return NewBool(v.kind == KindNumber && test(v.Number())), nil
		})
	}
	numberTest("isNaN", math.IsNaN)
	numberTest("isFinite", isFinite)
	numberTest("isInteger", func(n float64) bool { return isFinite(n) && n == math.Trunc(n) })
	numberTest("isSafeInteger", func(n float64) bool {
		return isFinite(n) && n == math.Trunc(n) && math.Abs(n) <= 1<<53-1
	})

	r.method(proto, "toString", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		n, err := thisNumber(exec, this, "toString")
		if err != nil {
			return Value{}, err
		}
		radix, err := intArg(exec, args, 0, 10)
		if err != nil {
			return Value{}, err
		}
		if radix < 2 || radix > 36 {
			return Value{}, exec.throwRangeError("toString() radix must be between 2 and 36")
		}
		if radix == 10 {
			return NewString(numberToString(n)), nil
		}
		return NewString(formatRadix(n, int(radix))), nil
	})
	r.method(proto, "toLocaleString", 0, func(exec *Execution, this Value, args []Value) (Value, error) {
		n, err := thisNumber(exec, this, "toLocaleString")
		if err != nil {
			return Value{}, err
		}
		return NewString(groupThousands(n)), nil
	})
	r.method(proto, "valueOf", 0, func(exec *Execution, this Value, args []Value) (Value, error) {
		n, err := thisNumber(exec, this, "valueOf")
		return NewNumber(n), err
	})
	r.method(proto, "toFixed", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		n, err := thisNumber(exec, this, "toFixed")
		if err != nil {
			return Value{}, err
		}
		digits, err := intArg(exec, args, 0, 0)
		if err != nil {
			return Value{}, err
		}
		if digits < 0 || digits > 100 {
			return Value{}, exec.throwRangeError("toFixed() digits argument must be between 0 and 100")
		}
		if !isFinite(n) || math.Abs(n) >= 1e21 {
			return NewString(numberToString(n)), nil
		}
		return NewString(strconv.FormatFloat(n, 'f', int(digits), 64)), nil
	})
	r.method(proto, "toPrecision", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		n, err := thisNumber(exec, this, "toPrecision")
		if err != nil {
			return Value{}, err
		}
		if argOr(args, 0).IsUndefined() || !isFinite(n) {
			return NewString(numberToString(n)), nil
		}
		p, err := intArg(exec, args, 0, 0)
		if err != nil {
			return Value{}, err
		}
		if p < 1 || p > 100 {
			return Value{}, exec.throwRangeError("toPrecision() argument must be between 1 and 100")
		}
		return NewString(formatPrecision(n, int(p))), nil
	})
	r.method(proto, "toExponential", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		n, err := thisNumber(exec, this, "toExponential")
		if err != nil {
			return Value{}, err
		}
		if !isFinite(n) {
			return NewString(numberToString(n)), nil
		}
		digits := -1
		if v := argOr(args, 0); !v.IsUndefined() {
			d, err := intArg(exec, args, 0, 0)
			if err != nil {
				return Value{}, err
			}
			if d < 0 || d > 100 {
				return Value{}, exec.throwRangeError("toExponential() argument must be between 0 and 100")
			}
			digits = int(d)
		}
		return NewString(jsExponent(strconv.FormatFloat(n, 'e', digits, 64))), nil
	})
}

func isFinite(n float64) bool {
	return !math.IsNaN(n) && !math.IsInf(n, 0)
}

// jsExponent rewrites Go's "1.5e+07" exponent form as "1.5e+7".
func jsExponent(s string) string {
	mantissa, exp, ok := strings.Cut(s, "e")
	if !ok {
		return s
	}
	sign := exp[0]
	digits := strings.TrimLeft(exp[1:], "0")
	if digits == "" {
		digits = "0"
	}
	return mantissa + "e" + string(sign) + digits
}

func formatPrecision(n float64, p int) string {
	if n == 0 {
		if p == 1 {
			return "0"
		}
		return "0." + strings.Repeat("0", p-1)
	}
	e := int(math.Floor(math.Log10(math.Abs(n))))
	if e < -6 || e >= p {
		return jsExponent(strconv.FormatFloat(n, 'e', p-1, 64))
	}
	return strconv.FormatFloat(n, 'f', max(0, p-1-e), 64)
}

// formatRadix renders integers exactly and fractions up to 52 digits.
func formatRadix(n float64, radix int) string {
	if !isFinite(n) {
		return numberToString(n)
	}
	neg := n < 0
	n = math.Abs(n)
	whole := math.Floor(n)
	frac := n - whole
	var intPart string
	if whole <= 1<<53 {
		intPart = strconv.FormatInt(int64(whole), radix)
	} else {
		var digits []byte
		for whole >= 1 {
			d := int(math.Mod(whole, float64(radix)))
			digits = append(digits, strconv.FormatInt(int64(d), radix)[0])
			whole = math.Floor(whole / float64(radix))
		}
		for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
			digits[i], digits[j] = digits[j], digits[i]
		}
		intPart = string(digits)
	}
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString(intPart)
	if frac > 0 {
		b.WriteByte('.')
		for i := 0; i < 52 && frac > 0; i++ {
			frac *= float64(radix)
			d := int(frac)
			b.WriteString(strconv.FormatInt(int64(d), radix))
			frac -= float64(d)
		}
	}
	return b.String()
}

func groupThousands(n float64) string {
	if !isFinite(n) {
		return numberToString(n)
	}
	s := strconv.FormatFloat(math.Round(n*1000)/1000, 'f', -1, 64)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	var b strings.Builder
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if hasFrac {
		b.WriteString("." + frac)
	}
	return sign + b.String()
}

func builtinParseFloat(exec *Execution, this Value, args []Value) (Value, error) {
	s, err := exec.toString(argOr(args, 0))
	if err != nil {
		return Value{}, err
	}
	s = strings.TrimLeftFunc(s, isJSSpace)
	// Longest prefix that parses as a decimal literal.
	end := 0
	sawDigit, sawDot, sawExp := false, false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			sawDigit = true
			end = i + 1
		case (c == '+' || c == '-') && (i == 0 || s[i-1] == 'e' || s[i-1] == 'E'):
		case c == '.' && !sawDot && !sawExp:
			sawDot = true
		case (c == 'e' || c == 'E') && sawDigit && !sawExp:
			sawExp = true
		default:
			i = len(s)
		}
	}
	prefix := s[:end]
	for _, inf := range []string{"Infinity", "+Infinity", "-Infinity"} {
		if strings.HasPrefix(s, inf) {
			return NewNumber(stringToNumber(inf)), nil
		}
	}
	if !sawDigit {
		return NewNumber(math.NaN()), nil
	}
	f, err := strconv.ParseFloat(prefix, 64)
	if err != nil {
		// A dangling exponent such as "1e" parses without it.
		if i := strings.IndexAny(prefix, "eE"); i > 0 {
			f, err = strconv.ParseFloat(prefix[:i], 64)
		}
		if err != nil && !strings.Contains(err.Error(), "range") {
			return NewNumber(math.NaN()), nil
		}
	}
	return NewNumber(f), nil
}

func builtinParseInt(exec *Execution, this Value, args []Value) (Value, error) {
	s, err := exec.toString(argOr(args, 0))
	if err != nil {
		return Value{}, err
	}
	radixArg, err := exec.toNumber(argOr(args, 1))
	if err != nil {
		return Value{}, err
	}
	radix := int(toInt32(radixArg))
	s = strings.TrimLeftFunc(s, isJSSpace)
	sign := 1.0
	if s != "" && (s[0] == '+' || s[0] == '-') {
		if s[0] == '-' {
			sign = -1
		}
		s = s[1:]
	}
	switch {
	case radix == 0:
		radix = 10
		if len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
			radix, s = 16, s[2:]
		}
	case radix < 2 || radix > 36:
		return NewNumber(math.NaN()), nil
	case radix == 16:
		if len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
			s = s[2:]
		}
	}
	result, digits := 0.0, 0
	for _, c := range s {
		d := digitValue(c)
		if d < 0 || d >= radix {
			break
		}
		result = result*float64(radix) + float64(d)
		digits++
	}
	if digits == 0 {
		return NewNumber(math.NaN()), nil
	}
	return NewNumber(sign * result), nil
}

func digitValue(c rune) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	}
	return -1
}

func (r *realm) installBoolean() {
	proto := newObject(r.objectPrototype)
	r.booleanPrototype = proto
	ctor := r.newConstructor("Boolean", 1, proto,
		func(exec *Execution, this Value, args []Value) (Value, error) {
			return NewBool(toBoolean(argOr(args, 0))), nil
		},
		func(exec *Execution, this Value, args []Value) (Value, error) {
			return NewObjectValue(exec.realm.wrapPrimitive(NewBool(toBoolean(argOr(args, 0))))), nil
		})
	r.defineGlobal("Boolean", NewObjectValue(ctor))

	thisBool := func(exec *Execution, this Value) (bool, error) {
		if this.kind == KindBool {
			return this.Bool(), nil
		}
		if prim, ok := primitiveOf(this); ok && prim.kind == KindBool {
			return prim.Bool(), nil
		}
		return false, exec.throwTypeError("Boolean.prototype method called on incompatible receiver")
	}
	r.method(proto, "toString", 0, func(exec *Execution, this Value, args []Value) (Value, error) {
		b, err := thisBool(exec, this)
		return NewString(primitiveToString(NewBool(b))), err
	})
	r.method(proto, "valueOf", 0, func(exec *Execution, this Value, args []Value) (Value, error) {
		b, err := thisBool(exec, this)
		return NewBool(b), err
	})
}

func (r *realm) installMath() {
	m := newObject(r.objectPrototype)
	r.defineGlobal("Math", NewObjectValue(m))
	constants := map[string]float64{
		"PI": math.Pi, "E": math.E, "LN2": math.Ln2, "LN10": math.Ln10,
		"LOG2E": math.Log2E, "LOG10E": math.Log10E, "SQRT2": math.Sqrt2, "SQRT1_2": math.Sqrt2 / 2,
	}
	for _, name := range slices.Sorted(maps.Keys(constants)) {
		m.defineHidden(name, NewNumber(constants[name]))
	}

	unary := map[string]func(float64) float64{
		"abs": math.Abs, "floor": math.Floor, "ceil": math.Ceil, "trunc": math.Trunc,
		"sqrt": math.Sqrt, "cbrt": math.Cbrt, "sin": math.Sin, "cos": math.Cos, "tan": math.Tan,
		"asin": math.Asin, "acos": math.Acos, "atan": math.Atan, "sinh": math.Sinh, "cosh": math.Cosh,
		"tanh": math.Tanh, "asinh": math.Asinh, "acosh": math.Acosh, "atanh": math.Atanh,
		"exp": math.Exp, "expm1": math.Expm1, "log": math.Log, "log2": math.Log2, "log10": math.Log10,
		"log1p": math.Log1p, "round": jsRound, "sign": jsSign, "fround": func(x float64) float64 { return float64(float32(x)) },
	}
	for _, name := range slices.Sorted(maps.Keys(unary)) {
		fn := unary[name]
		r.method(m, name, 1, func(exec *Execution, this Value, args []Value) (Value, error) {
			n, err := exec.toNumber(argOr(args, 0))
			return NewNumber(fn(n)), err
		})
	}
	r.method(m, "atan2", 2, func(exec *Execution, this Value, args []Value) (Value, error) {
		y, err := exec.toNumber(argOr(args, 0))
		if err != nil {
			return Value{}, err
		}
		x, err := exec.toNumber(argOr(args, 1))
		return NewNumber(math.Atan2(y, x)), err
	})
	r.method(m, "pow", 2, func(exec *Execution, this Value, args []Value) (Value, error) {
		base, err := exec.toNumber(argOr(args, 0))
		if err != nil {
			return Value{}, err
		}
		exp, err := exec.toNumber(argOr(args, 1))
		return NewNumber(power(base, exp)), err
	})
	r.method(m, "hypot", 2, func(exec *Execution, this Value, args []Value) (Value, error) {
		sum := 0.0
		for _, arg := range args {
			n, err := exec.toNumber(arg)
			if err != nil {
				return Value{}, err
			}
			if math.IsInf(n, 0) {
				return NewNumber(math.Inf(1)), nil
			}
			sum += n * n
		}
		return NewNumber(math.Sqrt(sum)), nil
	})
	r.method(m, "max", 2, func(exec *Execution, this Value, args []Value) (Value, error) {
		return exec.extremum(args, math.Inf(-1), func(a, b float64) bool { return a > b || (a == 0 && b == 0 && !math.Signbit(a)) })
	})
	r.method(m, "min", 2, func(exec *Execution, this Value, args []Value) (Value, error) {
		return exec.extremum(args, math.Inf(1), func(a, b float64) bool { return a < b || (a == 0 && b == 0 && math.Signbit(a)) })
	})
	r.method(m, "random", 0, func(exec *Execution, this Value, args []Value) (Value, error) {
		return NewNumber(exec.engine.config.Random()), nil
	})
}

func (exec *Execution) extremum(args []Value, start float64, better func(a, b float64) bool) (Value, error) {
	result := start
	nan := false
	for _, arg := range args {
		n, err := exec.toNumber(arg)
		if err != nil {
			return Value{}, err
		}
		if math.IsNaN(n) {
			nan = true
		} else if better(n, result) {
			result = n
		}
	}
	if nan {
		return NewNumber(math.NaN()), nil
	}
	return NewNumber(result), nil
}

// jsRound rounds half toward positive infinity.
func jsRound(x float64) float64 {
	if !isFinite(x) || x == 0 {
		return x
	}
	if x > 0 && x < 0.5 {
		return 0
	}
	if x < 0 && x >= -0.5 {
		return math.Copysign(0, -1)
	}
	return math.Floor(x + 0.5)
}

func jsSign(x float64) float64 {
	switch {
	case math.IsNaN(x), x == 0:
		return x
	case x > 0:
		return 1
	}
	return -1
}
