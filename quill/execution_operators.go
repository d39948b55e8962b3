package quill

import (
	"math"
	"strings"
)

func typeOf(v Value) string {
	switch v.kind {
	case KindUndefined:
		return "undefined"
	case KindNull, KindObject:
		return "object"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindFunction:
		return "function"
	}
	return "undefined"
}

func (exec *Execution) binaryOp(op string, left, right Value) (Value, error) {
	switch op {
	case "+":
		return exec.add(left, right)
	case "==", "!=":
		eq, err := exec.looseEquals(left, right)
		if err != nil {
			return Value{}, err
		}
		return NewBool(eq == (op == "==")), nil
	case "===":
		return NewBool(strictEquals(left, right)), nil
	case "!==":
		return NewBool(!strictEquals(left, right)), nil
	case "<", ">", "<=", ">=":
		return exec.compare(op, left, right)
	case "instanceof":
		return exec.instanceOf(left, right)
	case "in":
		obj := right.Object()
		if obj == nil {
			return Value{}, exec.throwTypeError("Cannot use 'in' operator to search for '%s' in %s", primitiveToString(left), exec.describeForError(right))
		}
		key, err := exec.toPropertyKey(left)
		if err != nil {
			return Value{}, err
		}
		return NewBool(obj.has(key)), nil
	}

	l, err := exec.toNumber(left)
	if err != nil {
		return Value{}, err
	}
	r, err := exec.toNumber(right)
	if err != nil {
		return Value{}, err
	}
	switch op {
	case "-":
		return NewNumber(l - r), nil
	case "*":
		return NewNumber(l * r), nil
	case "/":
		return NewNumber(l / r), nil
	case "%":
		return NewNumber(math.Mod(l, r)), nil
	case "**":
		return NewNumber(power(l, r)), nil
	case "<<":
		return NewNumber(float64(toInt32(l) << (toUint32(r) & 31))), nil
	case ">>":
		return NewNumber(float64(toInt32(l) >> (toUint32(r) & 31))), nil
	case ">>>":
		return NewNumber(float64(toUint32(l) >> (toUint32(r) & 31))), nil
	case "&":
		return NewNumber(float64(toInt32(l) & toInt32(r))), nil
	case "|":
		return NewNumber(float64(toInt32(l) | toInt32(r))), nil
	case "^":
		return NewNumber(float64(toInt32(l) ^ toInt32(r))), nil
	}
	return Value{}, exec.throwError(KindSyntaxError, "unsupported operator %s", op)
}

// power differs from math.Pow where the two disagree on NaN exponents and
// ±1 raised to infinities.
func power(base, exp float64) float64 {
	if math.IsNaN(exp) {
		return math.NaN()
	}
	if math.Abs(base) == 1 && math.IsInf(exp, 0) {
		return math.NaN()
	}
	return math.Pow(base, exp)
}

func (exec *Execution) add(left, right Value) (Value, error) {
	if left.kind == KindNumber && right.kind == KindNumber {
		return NewNumber(left.Number() + right.Number()), nil
	}
	lp, err := exec.toPrimitive(left, "default")
	if err != nil {
		return Value{}, err
	}
	rp, err := exec.toPrimitive(right, "default")
	if err != nil {
		return Value{}, err
	}
	if lp.kind == KindString || rp.kind == KindString {
		return NewString(primitiveToString(lp) + primitiveToString(rp)), nil
	}
	return NewNumber(primitiveToNumber(lp) + primitiveToNumber(rp)), nil
}

func (exec *Execution) compare(op string, left, right Value) (Value, error) {
	lp, err := exec.toPrimitive(left, "number")
	if err != nil {
		return Value{}, err
	}
	rp, err := exec.toPrimitive(right, "number")
	if err != nil {
		return Value{}, err
	}
	if lp.kind == KindString && rp.kind == KindString {
		c := compareUTF16(lp.Str(), rp.Str())
		switch op {
		case "<":
			return NewBool(c < 0), nil
		case ">":
			return NewBool(c > 0), nil
		case "<=":
			return NewBool(c <= 0), nil
		default:
			return NewBool(c >= 0), nil
		}
	}
	l, r := primitiveToNumber(lp), primitiveToNumber(rp)
	switch op {
	case "<":
		return NewBool(l < r), nil
	case ">":
		return NewBool(l > r), nil
	case "<=":
		return NewBool(l <= r), nil
	default:
		return NewBool(l >= r), nil
	}
}

// compareUTF16 orders strings by UTF-16 code units, which differs from byte
// order for characters above U+FFFF versus U+E000..U+FFFF.
func compareUTF16(a, b string) int {
	if isASCII(a) && isASCII(b) {
		return strings.Compare(a, b)
	}
	ua, ub := toUTF16(a), toUTF16(b)
	for i := 0; i < len(ua) && i < len(ub); i++ {
		if ua[i] != ub[i] {
			if ua[i] < ub[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(ua) < len(ub):
		return -1
	case len(ua) > len(ub):
		return 1
	}
	return 0
}

func strictEquals(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindUndefined, KindNull:
		return true
	case KindBool:
		return a.Bool() == b.Bool()
	case KindNumber:
		return a.Number() == b.Number()
	case KindString:
		return a.Str() == b.Str()
	default:
		return a.Object() == b.Object()
	}
}

// sameValueZero is strict equality except that NaN equals NaN.
func sameValueZero(a, b Value) bool {
	if a.kind == KindNumber && b.kind == KindNumber && math.IsNaN(a.Number()) && math.IsNaN(b.Number()) {
		return true
	}
	return strictEquals(a, b)
}

func (exec *Execution) looseEquals(a, b Value) (bool, error) {
	for {
		if a.kind == b.kind {
			return strictEquals(a, b), nil
		}
		switch {
		case a.IsNullish() && b.IsNullish():
			return true, nil
		case a.IsNullish() || b.IsNullish():
			return false, nil
		case a.IsObject() && b.IsObject():
			return a.Object() == b.Object(), nil
		case a.kind == KindNumber && b.kind == KindString:
			return a.Number() == stringToNumber(b.Str()), nil
		case a.kind == KindString && b.kind == KindNumber:
			return stringToNumber(a.Str()) == b.Number(), nil
		case a.kind == KindBool:
			a = NewNumber(primitiveToNumber(a))
		case b.kind == KindBool:
			b = NewNumber(primitiveToNumber(b))
		case a.IsObject():
			prim, err := exec.toPrimitive(a, "default")
			if err != nil {
				return false, err
			}
			a = prim
		case b.IsObject():
			prim, err := exec.toPrimitive(b, "default")
			if err != nil {
				return false, err
			}
			b = prim
		default:
			return false, nil
		}
	}
}

func (exec *Execution) instanceOf(left, right Value) (Value, error) {
	ctor := right.Object()
	if ctor == nil || ctor.fn == nil {
		return Value{}, exec.throwTypeError("Right-hand side of 'instanceof' is not callable")
	}
	for ctor.fn.boundTarget != nil {
		ctor = ctor.fn.boundTarget
	}
	obj := left.Object()
	if obj == nil {
		return NewBool(false), nil
	}
	proto := ctor.fn.Prototype
	if proto == nil {
		return Value{}, exec.throwTypeError("Function has non-object prototype in instanceof check")
	}
	return NewBool(obj.inherits(proto)), nil
}
