package quill

import (
	"math"
	"slices"
	"strings"
)

func (r *realm) installArray() {
	proto := newObject(r.objectPrototype)
	r.arrayPrototype = proto
	ctor := r.newConstructor("Array", 1, proto, arrayConstructor, arrayConstructor)
	r.defineGlobal("Array", NewObjectValue(ctor))

	r.method(ctor, "isArray", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		obj := argOr(args, 0).Object()
		return NewBool(obj != nil && obj.Class == classArray), nil
	})
	r.method(ctor, "of", 0, func(exec *Execution, this Value, args []Value) (Value, error) {
		return exec.newArray(slices.Clone(args)), nil
	})
	r.method(ctor, "from", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		source := argOr(args, 0)
		var items []Value
		switch obj := source.Object(); {
		case source.kind == KindString:
			var err error
			if items, err = exec.iterate(source); err != nil {
				return Value{}, err
			}
		case obj != nil:
			items = slices.Clone(arrayLikeValues(obj))
		case source.IsNullish():
			return Value{}, exec.throwTypeError("%s is not iterable", primitiveToString(source))
		}
		if mapFn := argOr(args, 1); !mapFn.IsUndefined() {
			if !mapFn.IsCallable() {
				return Value{}, exec.throwTypeError("%s is not a function", exec.describeForError(mapFn))
			}
			for i, item := range items {
				mapped, err := exec.call(mapFn, argOr(args, 2), []Value{item, NewNumber(float64(i))})
				if err != nil {
					return Value{}, err
				}
				items[i] = mapped
			}
		}
		return exec.newArray(items), nil
	})

	r.method(proto, "push", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		arr, err := mutableArray(exec, this, "push")
		if err != nil {
			return Value{}, err
		}
		if len(arr.array)+len(args) > maxArrayLength {
			return Value{}, exec.throwRangeError("Invalid array length")
		}
		arr.array = append(arr.array, args...)
		return NewNumber(float64(len(arr.array))), nil
	})
	r.method(proto, "pop", 0, func(exec *Execution, this Value, args []Value) (Value, error) {
		arr, err := mutableArray(exec, this, "pop")
		if err != nil || len(arr.array) == 0 {
			return Value{}, err
		}
		last := arr.array[len(arr.array)-1]
		arr.array[len(arr.array)-1] = Value{}
		arr.array = arr.array[:len(arr.array)-1]
		return last, nil
	})
	r.method(proto, "shift", 0, func(exec *Execution, this Value, args []Value) (Value, error) {
		arr, err := mutableArray(exec, this, "shift")
		if err != nil || len(arr.array) == 0 {
			return Value{}, err
		}
		first := arr.array[0]
		arr.array = slices.Delete(arr.array, 0, 1)
		return first, nil
	})
	r.method(proto, "unshift", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		arr, err := mutableArray(exec, this, "unshift")
		if err != nil {
			return Value{}, err
		}
		if len(arr.array)+len(args) > maxArrayLength {
			return Value{}, exec.throwRangeError("Invalid array length")
		}
		arr.array = slices.Insert(arr.array, 0, args...)
		return NewNumber(float64(len(arr.array))), nil
	})
	r.method(proto, "splice", 2, func(exec *Execution, this Value, args []Value) (Value, error) {
		arr, err := mutableArray(exec, this, "splice")
		if err != nil {
			return Value{}, err
		}
		n := len(arr.array)
		startArg, err := exec.toNumber(argOr(args, 0))
		if err != nil {
			return Value{}, err
		}
		start := relativeIndex(startArg, n)
		count := n - start
		if len(args) == 0 {
			count = 0
		} else if len(args) > 1 {
			c, err := exec.toNumber(args[1])
			if err != nil {
				return Value{}, err
			}
			count = int(max(0, min(toInteger(c), float64(n-start))))
		}
		var inserts []Value
		if len(args) > 2 {
			inserts = args[2:]
		}
		if n-count+len(inserts) > maxArrayLength {
			return Value{}, exec.throwRangeError("Invalid array length")
		}
		removed := slices.Clone(arr.array[start : start+count])
		arr.array = slices.Replace(arr.array, start, start+count, inserts...)
		return exec.newArray(removed), nil
	})
	r.method(proto, "reverse", 0, func(exec *Execution, this Value, args []Value) (Value, error) {
		arr, err := mutableArray(exec, this, "reverse")
		if err != nil {
			return Value{}, err
		}
		slices.Reverse(arr.array)
		return this, nil
	})
	r.method(proto, "fill", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		arr, err := mutableArray(exec, this, "fill")
		if err != nil {
			return Value{}, err
		}
		start, end, err := sliceBounds(exec, args, 1, len(arr.array))
		if err != nil {
			return Value{}, err
		}
		for i := start; i < end; i++ {
			arr.array[i] = argOr(args, 0)
		}
		return this, nil
	})
	r.method(proto, "sort", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		arr, err := mutableArray(exec, this, "sort")
		if err != nil {
			return Value{}, err
		}
		comparator := argOr(args, 0)
		if !comparator.IsUndefined() && !comparator.IsCallable() {
			return Value{}, exec.throwTypeError("The comparison function must be either a function or undefined")
		}
		sorted, err := exec.sortValues(arr.array, comparator)
		if err != nil {
			return Value{}, err
		}
		copy(arr.array, sorted)
		return this, nil
	})

	r.method(proto, "slice", 2, func(exec *Execution, this Value, args []Value) (Value, error) {
		elems, err := thisElements(exec, this)
		if err != nil {
			return Value{}, err
		}
		start, end, err := sliceBounds(exec, args, 0, len(elems))
		if err != nil {
			return Value{}, err
		}
		return exec.newArray(slices.Clone(elems[start:end])), nil
	})
	r.method(proto, "concat", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		elems, err := thisElements(exec, this)
		if err != nil {
			return Value{}, err
		}
		out := slices.Clone(elems)
		for _, arg := range args {
			if obj := arg.Object(); obj != nil && obj.Class == classArray {
				out = append(out, obj.array...)
			} else {
				out = append(out, arg)
			}
			if len(out) > maxArrayLength {
				return Value{}, exec.throwRangeError("Invalid array length")
			}
		}
		return exec.newArray(out), nil
	})
	r.method(proto, "join", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		sep := ","
		if s := argOr(args, 0); !s.IsUndefined() {
			var err error
			if sep, err = exec.toString(s); err != nil {
				return Value{}, err
			}
		}
		return exec.join(this, sep)
	})
	r.method(proto, "toString", 0, func(exec *Execution, this Value, args []Value) (Value, error) {
		if obj := this.Object(); obj == nil || !obj.isArrayLike() {
			s, err := exec.toString(this)
			return NewString(s), err
		}
		return exec.join(this, ",")
	})
	r.method(proto, "indexOf", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		elems, err := thisElements(exec, this)
		if err != nil {
			return Value{}, err
		}
		from := 0
		if len(args) > 1 {
			f, err := exec.toNumber(args[1])
			if err != nil {
				return Value{}, err
			}
			from = relativeIndex(f, len(elems))
		}
		for i := from; i < len(elems); i++ {
			if strictEquals(elems[i], argOr(args, 0)) {
				return NewNumber(float64(i)), nil
			}
		}
		return NewNumber(-1), nil
	})
	r.method(proto, "lastIndexOf", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		elems, err := thisElements(exec, this)
		if err != nil {
			return Value{}, err
		}
		from := len(elems) - 1
		if len(args) > 1 {
			f, err := exec.toNumber(args[1])
			if err != nil {
				return Value{}, err
			}
			f = toInteger(f)
			if f < 0 {
				f += float64(len(elems))
			}
			from = int(min(f, float64(len(elems)-1)))
		}
		for i := from; i >= 0; i-- {
			if strictEquals(elems[i], argOr(args, 0)) {
				return NewNumber(float64(i)), nil
			}
		}
		return NewNumber(-1), nil
	})
	r.method(proto, "includes", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		elems, err := thisElements(exec, this)
		if err != nil {
			return Value{}, err
		}
		from := 0
		if len(args) > 1 {
			f, err := exec.toNumber(args[1])
			if err != nil {
				return Value{}, err
			}
			from = relativeIndex(f, len(elems))
		}
		for _, elem := range elems[from:] {
			if sameValueZero(elem, argOr(args, 0)) {
				return NewBool(true), nil
			}
		}
		return NewBool(false), nil
	})
	r.method(proto, "at", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		elems, err := thisElements(exec, this)
		if err != nil {
			return Value{}, err
		}
		f, err := exec.toNumber(argOr(args, 0))
		if err != nil {
			return Value{}, err
		}
		i := int(toInteger(f))
		if i < 0 {
			i += len(elems)
		}
		if i < 0 || i >= len(elems) {
			return Value{}, nil
		}
		return elems[i], nil
	})
	r.method(proto, "keys", 0, func(exec *Execution, this Value, args []Value) (Value, error) {
		elems, err := thisElements(exec, this)
		if err != nil {
			return Value{}, err
		}
		out := make([]Value, len(elems))
		for i := range elems {
			out[i] = NewNumber(float64(i))
		}
		return exec.newArray(out), nil
	})
	r.method(proto, "entries", 0, func(exec *Execution, this Value, args []Value) (Value, error) {
		elems, err := thisElements(exec, this)
		if err != nil {
			return Value{}, err
		}
		out := make([]Value, len(elems))
		for i, elem := range elems {
			out[i] = exec.newArray([]Value{NewNumber(float64(i)), elem})
		}
		return exec.newArray(out), nil
	})
	r.method(proto, "flat", 0, func(exec *Execution, this Value, args []Value) (Value, error) {
		elems, err := thisElements(exec, this)
		if err != nil {
			return Value{}, err
		}
		depth := 1.0
		if d := argOr(args, 0); !d.IsUndefined() {
			if depth, err = exec.toNumber(d); err != nil {
				return Value{}, err
			}
		}
		out, err := exec.flatten(nil, elems, depth)
		if err != nil {
			return Value{}, err
		}
		return exec.newArray(out), nil
	})

	r.installArrayIteration(proto)
}

func arrayConstructor(exec *Execution, this Value, args []Value) (Value, error) {
	if len(args) == 1 && args[0].kind == KindNumber {
		n := args[0].Number()
		if n < 0 || n != math.Trunc(n) || n > maxArrayLength {
			return Value{}, exec.throwRangeError("Invalid array length")
		}
		return exec.newArray(make([]Value, int(n))), nil
	}
	return exec.newArray(slices.Clone(args)), nil
}

// installArrayIteration adds the callback-driven methods. Each visits the
// elements present when the call started, reading live values.
func (r *realm) installArrayIteration(proto *Object) {
	r.method(proto, "forEach", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		err := exec.eachElement(this, args, func(i int, elem, result Value) bool { return true })
		return Value{}, err
	})
	r.method(proto, "map", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		var out []Value
		err := exec.eachElement(this, args, func(i int, elem, result Value) bool {
			out = append(out, result)
			return true
		})
		if err != nil {
			return Value{}, err
		}
		return exec.newArray(out), nil
	})
	r.method(proto, "filter", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		var out []Value
		err := exec.eachElement(this, args, func(i int, elem, result Value) bool {
			if toBoolean(result) {
				out = append(out, elem)
			}
			return true
		})
		if err != nil {
			return Value{}, err
		}
		return exec.newArray(out), nil
	})
	r.method(proto, "some", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		found := false
		err := exec.eachElement(this, args, func(i int, elem, result Value) bool {
			found = toBoolean(result)
			return !found
		})
		return NewBool(found), err
	})
	r.method(proto, "every", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		all := true
		err := exec.eachElement(this, args, func(i int, elem, result Value) bool {
			all = toBoolean(result)
			return all
		})
		return NewBool(all), err
	})
	r.method(proto, "find", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		var found Value
		err := exec.eachElement(this, args, func(i int, elem, result Value) bool {
			if toBoolean(result) {
				found = elem
				return false
			}
			return true
		})
		return found, err
	})
	r.method(proto, "findIndex", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		index := -1
		err := exec.eachElement(this, args, func(i int, elem, result Value) bool {
			if toBoolean(result) {
				index = i
				return false
			}
			return true
		})
		return NewNumber(float64(index)), err
	})
	r.method(proto, "findLast", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		i, elem, err := exec.findLast(this, args)
		if i < 0 {
			return Value{}, err
		}
		return elem, err
	})
	r.method(proto, "findLastIndex", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		i, _, err := exec.findLast(this, args)
		return NewNumber(float64(i)), err
	})
	r.method(proto, "flatMap", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		var mapped []Value
		err := exec.eachElement(this, args, func(i int, elem, result Value) bool {
			mapped = append(mapped, result)
			return true
		})
		if err != nil {
			return Value{}, err
		}
		out, err := exec.flatten(nil, mapped, 1)
		if err != nil {
			return Value{}, err
		}
		return exec.newArray(out), nil
	})
	r.method(proto, "reduce", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		return exec.reduce(this, args, false)
	})
	r.method(proto, "reduceRight", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		return exec.reduce(this, args, true)
	})
}

// eachElement calls args[0](elem, index, array) with args[1] as receiver and
// hands each result to visit until visit returns false.
func (exec *Execution) eachElement(this Value, args []Value, visit func(i int, elem, result Value) bool) error {
	obj, err := exec.toObject(this)
	if err != nil {
		return err
	}
	callback := argOr(args, 0)
	if !callback.IsCallable() {
		return exec.throwTypeError("%s is not a function", exec.describeForError(callback))
	}
	n := len(arrayLikeValues(obj))
	for i := 0; i < n; i++ {
		elem := elementAt(obj, i)
		result, err := exec.call(callback, argOr(args, 1), []Value{elem, NewNumber(float64(i)), NewObjectValue(obj)})
		if err != nil {
			return err
		}
		if !visit(i, elem, result) {
			return nil
		}
	}
	return nil
}

func elementAt(obj *Object, i int) Value {
	if obj.isArrayLike() {
		if i < len(obj.array) {
			return obj.array[i]
		}
		return Value{}
	}
	return obj.get(numberToString(float64(i)))
}

func (exec *Execution) findLast(this Value, args []Value) (int, Value, error) {
	obj, err := exec.toObject(this)
	if err != nil {
		return -1, Value{}, err
	}
	callback := argOr(args, 0)
	if !callback.IsCallable() {
		return -1, Value{}, exec.throwTypeError("%s is not a function", exec.describeForError(callback))
	}
	for i := len(arrayLikeValues(obj)) - 1; i >= 0; i-- {
		elem := elementAt(obj, i)
		result, err := exec.call(callback, argOr(args, 1), []Value{elem, NewNumber(float64(i)), NewObjectValue(obj)})
		if err != nil {
			return -1, Value{}, err
		}
		if toBoolean(result) {
			return i, elem, nil
		}
	}
	return -1, Value{}, nil
}

func (exec *Execution) reduce(this Value, args []Value, right bool) (Value, error) {
	obj, err := exec.toObject(this)
	if err != nil {
		return Value{}, err
	}
	callback := argOr(args, 0)
	if !callback.IsCallable() {
		return Value{}, exec.throwTypeError("%s is not a function", exec.describeForError(callback))
	}
	n := len(arrayLikeValues(obj))
	order := make([]int, n)
	for i := range order {
		order[i] = i
		if right {
			order[i] = n - 1 - i
		}
	}
	var acc Value
	if len(args) > 1 {
		acc = args[1]
	} else {
		if n == 0 {
			return Value{}, exec.throwTypeError("Reduce of empty array with no initial value")
		}
		acc = elementAt(obj, order[0])
		order = order[1:]
	}
	for _, i := range order {
		acc, err = exec.call(callback, Value{}, []Value{acc, elementAt(obj, i), NewNumber(float64(i)), NewObjectValue(obj)})
		if err != nil {
			return Value{}, err
		}
	}
	return acc, nil
}

func (exec *Execution) flatten(out, elems []Value, depth float64) ([]Value, error) {
	for _, elem := range elems {
		if obj := elem.Object(); obj != nil && obj.Class == classArray && depth >= 1 {
			var err error
			if out, err = exec.flatten(out, obj.array, depth-1); err != nil {
				return nil, err
			}
			continue
		}
		out = append(out, elem)
		if len(out) > maxArrayLength {
			return nil, exec.throwRangeError("Invalid array length")
		}
	}
	return out, nil
}

// join renders elements with nullish as empty strings. A cyclic reference
// renders as empty instead of recursing.
func (exec *Execution) join(this Value, sep string) (Value, error) {
	obj, err := exec.toObject(this)
	if err != nil {
		return Value{}, err
	}
	if exec.joining[obj] {
		return NewString(""), nil
	}
	if exec.joining == nil {
		exec.joining = map[*Object]bool{}
	}
	exec.joining[obj] = true
	defer delete(exec.joining, obj)

	elems := arrayLikeValues(obj)
	parts := make([]string, len(elems))
	for i, elem := range elems {
		if elem.IsNullish() {
			continue
		}
		s, err := exec.toString(elem)
		if err != nil {
			return Value{}, err
		}
		parts[i] = s
	}
	return NewString(strings.Join(parts, sep)), nil
}

// sortValues sorts a copy of elems. Undefined sorts last without consulting
// the comparator; the default order compares string forms.
func (exec *Execution) sortValues(elems []Value, comparator Value) ([]Value, error) {
	var defined, undefined []Value
	for _, elem := range elems {
		if elem.IsUndefined() {
			undefined = append(undefined, elem)
		} else {
			defined = append(defined, elem)
		}
	}
	var sortErr error
	slices.SortStableFunc(defined, func(a, b Value) int {
		if sortErr != nil {
			return 0
		}
		if comparator.IsCallable() {
			result, err := exec.call(comparator, Value{}, []Value{a, b})
			if err != nil {
				sortErr = err
				return 0
			}
			n, err := exec.toNumber(result)
			if err != nil {
				sortErr = err
				return 0
			}
			switch {
			case n < 0:
				return -1
			case n > 0:
				return 1
			}
			return 0
		}
		as, err := exec.toString(a)
		if err != nil {
			sortErr = err
			return 0
		}
		bs, err := exec.toString(b)
		if err != nil {
			sortErr = err
			return 0
		}
		return compareUTF16(as, bs)
	})
	if sortErr != nil {
		return nil, sortErr
	}
	return append(defined, undefined...), nil
}

func mutableArray(exec *Execution, this Value, method string) (*Object, error) {
	obj := this.Object()
	if obj == nil || !obj.isArrayLike() {
		return nil, exec.throwTypeError("Array.prototype.%s called on non-array", method)
	}
	if obj.frozen {
		return nil, exec.throwTypeError("Cannot modify frozen array with %s", method)
	}
	return obj, nil
}

func thisElements(exec *Execution, this Value) ([]Value, error) {
	obj, err := exec.toObject(this)
	if err != nil {
		return nil, err
	}
	return arrayLikeValues(obj), nil
}

// sliceBounds resolves (start, end) arguments at args[i] and args[i+1].
func sliceBounds(exec *Execution, args []Value, i, length int) (int, int, error) {
	start, end := 0, length
	if v := argOr(args, i); !v.IsUndefined() {
		f, err := exec.toNumber(v)
		if err != nil {
			return 0, 0, err
		}
		start = relativeIndex(f, length)
	}
	if v := argOr(args, i+1); !v.IsUndefined() {
		f, err := exec.toNumber(v)
		if err != nil {
			return 0, 0, err
		}
		end = relativeIndex(f, length)
	}
	if end < start {
		end = start
	}
	return start, end, nil
}
