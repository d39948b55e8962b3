package quill

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/oarkflow/date"
)

const maxDateMillis = 8.64e15

// Dates hold their time value as float64 milliseconds since the epoch in
// Object.internal; NaN marks an invalid date.

func timeClip(ms float64) float64 {
	if !isFinite(ms) || math.Abs(ms) > maxDateMillis {
		return math.NaN()
	}
	return math.Trunc(ms) + 0
}

func msToTime(ms float64, loc *time.Location) time.Time {
	return time.UnixMilli(int64(ms)).In(loc)
}

func timeToMs(t time.Time) float64 {
	return float64(t.UnixMilli())
}

func formatISODate(ms float64) string {
	if math.IsNaN(ms) {
		return "Invalid Date"
	}
	t := msToTime(ms, time.UTC)
	year := t.Year()
	var yearText string
	switch {
	case year < 0:
		yearText = fmt.Sprintf("-%06d", -year)
	case year > 9999:
		yearText = fmt.Sprintf("+%06d", year)
	default:
		yearText = fmt.Sprintf("%04d", year)
	}
	return yearText + t.Format("-01-02T15:04:05.000Z")
}

var (
	isoLayoutsUTC = []string{
		"2006-01-02T15:04:05.000Z07:00",
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02T15:04Z07:00",
		"2006-01-02",
		"2006-01",
		"2006",
	}
	isoLayoutsLocal = []string{
		"2006-01-02T15:04:05.000",
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
	}
)

// parseDate accepts the ISO forms first: date-only forms are UTC and
// date-time forms without an offset are local time. Anything else goes
// through the free-form date parser.
func parseDate(s string) float64 {
	s = strings.TrimSpace(s)
	for _, layout := range isoLayoutsUTC {
		if t, err := time.Parse(layout, s); err == nil {
			return timeClip(timeToMs(t))
		}
	}
	for _, layout := range isoLayoutsLocal {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return timeClip(timeToMs(t))
		}
	}
	if t, err := time.Parse(time.RFC1123, s); err == nil {
		return timeClip(timeToMs(t))
	}
	if t, err := date.Parse(s); err == nil {
		return timeClip(timeToMs(t))
	}
	return math.NaN()
}

// makeDate composes date fields the way Date.UTC and the multi-argument
// constructor do; time.Date normalizes out-of-range fields.
func makeDate(fields []float64, loc *time.Location) float64 {
	for _, f := range fields {
		if !isFinite(f) {
			return math.NaN()
		}
	}
	get := func(i int, def float64) int {
		if i < len(fields) {
			return int(toInteger(fields[i]))
		}
		return int(def)
	}
	year := get(0, 1970)
	if len(fields) > 0 && year >= 0 && year <= 99 {
		year += 1900
	}
	t := time.Date(year, time.Month(get(1, 0)+1), get(2, 1), get(3, 0), get(4, 0), get(5, 0), 0, loc)
	return timeClip(timeToMs(t) + float64(get(6, 0)))
}

func thisDate(exec *Execution, this Value, method string) (*Object, float64, error) {
	if obj := this.Object(); obj != nil && obj.Class == classDate {
		if ms, ok := obj.internal.(float64); ok {
			return obj, ms, nil
		}
	}
	return nil, 0, exec.throwTypeError("Date.prototype.%s called on incompatible receiver", method)
}

func (exec *Execution) now() float64 {
	return timeToMs(exec.engine.config.Now())
}

func (exec *Execution) numberArgs(args []Value) ([]float64, error) {
	out := make([]float64, len(args))
	for i, arg := range args {
		n, err := exec.toNumber(arg)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func (r *realm) installDate() {
	proto := newObject(r.objectPrototype)
	r.datePrototype = proto
	ctor := r.newConstructor("Date", 7, proto,
		func(exec *Execution, this Value, args []Value) (Value, error) {
			return NewString(formatDateString(exec.now(), time.Local)), nil
		},
		func(exec *Execution, this Value, args []Value) (Value, error) {
			obj := this.Object()
			obj.Class = classDate
			ms, err := exec.dateFromArgs(args)
			if err != nil {
				return Value{}, err
			}
			obj.internal = ms
			return this, nil
		})
	r.defineGlobal("Date", NewObjectValue(ctor))

	r.method(ctor, "now", 0, func(exec *Execution, this Value, args []Value) (Value, error) {
		return NewNumber(exec.now()), nil
	})
	r.method(ctor, "parse", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		s, err := exec.toString(argOr(args, 0))
		if err != nil {
			return Value{}, err
		}
		return NewNumber(parseDate(s)), nil
	})
	r.method(ctor, "UTC", 7, func(exec *Execution, this Value, args []Value) (Value, error) {
		fields, err := exec.numberArgs(args)
		if err != nil {
			return Value{}, err
		}
		return NewNumber(makeDate(fields, time.UTC)), nil
	})

	r.method(proto, "getTime", 0, func(exec *Execution, this Value, args []Value) (Value, error) {
		_, ms, err := thisDate(exec, this, "getTime")
		return NewNumber(ms), err
	})
	r.method(proto, "valueOf", 0, func(exec *Execution, this Value, args []Value) (Value, error) {
		_, ms, err := thisDate(exec, this, "valueOf")
		return NewNumber(ms), err
	})
	r.method(proto, "getTimezoneOffset", 0, func(exec *Execution, this Value, args []Value) (Value, error) {
		_, ms, err := thisDate(exec, this, "getTimezoneOffset")
		if err != nil || math.IsNaN(ms) {
			return NewNumber(math.NaN()), err
		}
		_, offset := msToTime(ms, time.Local).Zone()
		return NewNumber(float64(-offset / 60)), nil
	})
	r.method(proto, "toISOString", 0, func(exec *Execution, this Value, args []Value) (Value, error) {
		_, ms, err := thisDate(exec, this, "toISOString")
		if err != nil {
			return Value{}, err
		}
		if math.IsNaN(ms) {
			return Value{}, exec.throwRangeError("Invalid time value")
		}
		return NewString(formatISODate(ms)), nil
	})
	r.method(proto, "toJSON", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		_, ms, err := thisDate(exec, this, "toJSON")
		if err != nil {
			return Value{}, err
		}
		if math.IsNaN(ms) {
			return Null(), nil
		}
		return NewString(formatISODate(ms)), nil
	})
	formatters := map[string]func(ms float64) string{
		"toString":           func(ms float64) string { return formatDateString(ms, time.Local) },
		"toUTCString":        func(ms float64) string { return msToTime(ms, time.UTC).Format(time.RFC1123) },
		"toDateString":       func(ms float64) string { return msToTime(ms, time.Local).Format("Mon Jan 02 2006") },
		"toTimeString":       func(ms float64) string { return msToTime(ms, time.Local).Format("15:04:05 GMT-0700") },
		"toLocaleString":     func(ms float64) string { return msToTime(ms, time.Local).Format("1/2/2006, 3:04:05 PM") },
		"toLocaleDateString": func(ms float64) string { return msToTime(ms, time.Local).Format("1/2/2006") },
		"toLocaleTimeString": func(ms float64) string { return msToTime(ms, time.Local).Format("3:04:05 PM") },
	}
	for _, name := range []string{"toString", "toUTCString", "toDateString", "toTimeString", "toLocaleString", "toLocaleDateString", "toLocaleTimeString"} {
		format := formatters[name]
		r.method(proto, name, 0, func(exec *Execution, this Value, args []Value) (Value, error) {
			_, ms, err := thisDate(exec, this, name)
			if err != nil {
				return Value{}, err
			}
			if math.IsNaN(ms) {
				return NewString("Invalid Date"), nil
			}
			return NewString(format(ms)), nil
		})
	}

	r.installDateFields(proto, "", time.Local)
	r.installDateFields(proto, "UTC", time.UTC)
	r.method(proto, "getDay", 0, func(exec *Execution, this Value, args []Value) (Value, error) {
		return dateField(exec, this, "getDay", time.Local, func(t time.Time) int { return int(t.Weekday()) })
	})
	r.method(proto, "getUTCDay", 0, func(exec *Execution, this Value, args []Value) (Value, error) {
		return dateField(exec, this, "getUTCDay", time.UTC, func(t time.Time) int { return int(t.Weekday()) })
	})
	r.method(proto, "setTime", 1, func(exec *Execution, this Value, args []Value) (Value, error) {
		obj, _, err := thisDate(exec, this, "setTime")
		if err != nil {
			return Value{}, err
		}
		n, err := exec.toNumber(argOr(args, 0))
		if err != nil {
			return Value{}, err
		}
		obj.internal = timeClip(n)
		return NewNumber(obj.internal.(float64)), nil
	})
}

func (exec *Execution) dateFromArgs(args []Value) (float64, error) {
	switch len(args) {
	case 0:
		return exec.now(), nil
	case 1:
		arg := args[0]
		if obj := arg.Object(); obj != nil && obj.Class == classDate {
			return obj.internal.(float64), nil
		}
		prim, err := exec.toPrimitive(arg, "default")
		if err != nil {
			return 0, err
		}
		if prim.kind == KindString {
			return parseDate(prim.Str()), nil
		}
		return timeClip(primitiveToNumber(prim)), nil
	}
	fields, err := exec.numberArgs(args)
	if err != nil {
		return 0, err
	}
	return makeDate(fields, time.Local), nil
}

func formatDateString(ms float64, loc *time.Location) string {
	if math.IsNaN(ms) {
		return "Invalid Date"
	}
	t := msToTime(ms, loc)
	name, _ := t.Zone()
	return t.Format("Mon Jan 02 2006 15:04:05 GMT-0700") + " (" + name + ")"
}

func dateField(exec *Execution, this Value, method string, loc *time.Location, field func(time.Time) int) (Value, error) {
	_, ms, err := thisDate(exec, this, method)
	if err != nil {
		return Value{}, err
	}
	if math.IsNaN(ms) {
		return NewNumber(math.NaN()), nil
	}
	return NewNumber(float64(field(msToTime(ms, loc)))), nil
}

// dateComponents lists the settable fields in constructor order: year,
// month, day, hours, minutes, seconds, milliseconds.
var dateComponents = []struct {
	name string
	get  func(time.Time) int
}{
	{"FullYear", func(t time.Time) int { return t.Year() }},
	{"Month", func(t time.Time) int { return int(t.Month()) - 1 }},
	{"Date", func(t time.Time) int { return t.Day() }},
	{"Hours", func(t time.Time) int { return t.Hour() }},
	{"Minutes", func(t time.Time) int { return t.Minute() }},
	{"Seconds", func(t time.Time) int { return t.Second() }},
	{"Milliseconds", func(t time.Time) int { return t.Nanosecond() / int(time.Millisecond) }},
}

// installDateFields registers get<Field> and set<Field> pairs. A setter
// takes the field and optionally the following ones, as setHours(h, m, s)
// does.
func (r *realm) installDateFields(proto *Object, prefix string, loc *time.Location) {
	for i, comp := range dateComponents {
		getter := "get" + prefix + comp.name
		setter := "set" + prefix + comp.name
		r.method(proto, getter, 0, func(exec *Execution, this Value, args []Value) (Value, error) {
			return dateField(exec, this, getter, loc, comp.get)
		})
		r.method(proto, setter, 1, func(exec *Execution, this Value, args []Value) (Value, error) {
			obj, ms, err := thisDate(exec, this, setter)
			if err != nil {
				return Value{}, err
			}
			values, err := exec.numberArgs(args)
			if err != nil {
				return Value{}, err
			}
			if len(values) == 0 {
				values = []float64{math.NaN()}
			}
			if math.IsNaN(ms) {
				if i != 0 {
					return NewNumber(math.NaN()), nil
				}
				ms = 0
			}
			t := msToTime(ms, loc)
			fields := make([]float64, len(dateComponents))
			for j, c := range dateComponents {
				fields[j] = float64(c.get(t))
			}
			for j, v := range values {
				if i+j < len(fields) {
					fields[i+j] = v
				}
			}
			updated := makeDateExact(fields, loc)
			obj.internal = updated
			return NewNumber(updated), nil
		})
	}
}

// makeDateExact is makeDate without the two-digit year mapping.
func makeDateExact(fields []float64, loc *time.Location) float64 {
	for _, f := range fields {
		if !isFinite(f) {
			return math.NaN()
		}
	}
	t := time.Date(int(fields[0]), time.Month(int(fields[1])+1), int(fields[2]), int(fields[3]), int(fields[4]), int(fields[5]), 0, loc)
	return timeClip(timeToMs(t) + math.Trunc(fields[6]))
}
