package quill

import (
	"context"
	"testing"
	"time"
)

func TestArrayBuiltins(t *testing.T) {
	runEvalCases(t, []evalCase{
		{"push returns length", `var a = [1]; a.push(2, 3) + ":" + a.join()`, "3:1,2,3"},
		{"pop and shift", `var a = [1, 2, 3]; a.pop() + a.shift() + ":" + a.join()`, "4:2"},
		{"unshift", `var a = [3]; a.unshift(1, 2); a.join()`, "1,2,3"},
		{"splice", `var a = [1, 2, 3, 4]; var r = a.splice(1, 2, "x"); a.join() + "|" + r.join()`, "1,x,4|2,3"},
		{"default sort compares strings", `[10, 9, 1, 100].sort().join()`, "1,10,100,9"},
		{"comparator sort", `[10, 9, 1, 100].sort((a, b) => a - b).join()`, "1,9,10,100"},
		{"stable sort", `[{k: 1, v: "a"}, {k: 0, v: "b"}, {k: 1, v: "c"}, {k: 0, v: "d"}].sort((x, y) => x.k - y.k).map(o => o.v).join("")`, "bdac"},
		{"sort puts undefined last", `[undefined, 3, 1].sort().map(String).join()`, "1,3,undefined"},
		{"reverse", `[1, 2, 3].reverse().join()`, "3,2,1"},
		{"slice", `[1, 2, 3, 4].slice(-2).join() + "|" + [1, 2, 3].slice(1, 2).join()`, "3,4|2"},
		{"concat spreads one level", `[1].concat([2, [3]], 4).length`, "4"},
		{"join renders nullish as empty", `[1, null, undefined, 2].join("-")`, "1---2"},
		{"indexOf and includes", `[[NaN].indexOf(NaN), [NaN].includes(NaN), [1, 2, 1].lastIndexOf(1)].join()`, "-1,true,2"},
		{"at", `[1, 2, 3].at(-1)`, "3"},
		{"map filter", `[1, 2, 3, 4].map((x, i) => x * i).filter(x => x > 2).join()`, "6,12"},
		{"reduce", `[1, 2, 3].reduce((acc, x) => acc + x, 10)`, "16"},
		{"reduceRight", `["a", "b", "c"].reduceRight((acc, x) => acc + x)`, "cba"},
		{"empty reduce", `try { [].reduce((a, b) => a + b); } catch (e) { e.name; }`, "TypeError"},
		{"find", `[[5, 12, 8].find(x => x > 6), [5, 12, 8].findIndex(x => x > 6), [5, 12, 8].findLast(x => x > 6), String([1].find(x => x > 6))].join()`, "12,1,8,undefined"},
		{"some every", `[[1, 2].some(x => x > 1), [1, 2].every(x => x > 1)].join()`, "true,false"},
		{"forEach", `var s = 0; [1, 2, 3].forEach(function(x) { s += x; }); s`, "6"},
		{"flat", `[1, [2, [3, [4]]]].flat().length + ":" + [1, [2, [3, [4]]]].flat(2).length`, "3:4"},
		{"flatMap", `[1, 2].flatMap(x => [x, x * 10]).join()`, "1,10,2,20"},
		{"fill", `new Array(3).fill(0).join()`, "0,0,0"},
		{"array constructor", `[new Array(3).length, new Array(1, 2).length, Array.of(7).length].join()`, "3,2,1"},
		{"invalid length", `try { new Array(-1); } catch (e) { e.name; }`, "RangeError"},
		{"isArray", `[Array.isArray([]), Array.isArray({length: 0})].join()`, "true,false"},
		{"from string", `Array.from("abc").join("-")`, "a-b-c"},
		{"length truncates", `var a = [1, 2, 3]; a.length = 1; a.join()`, "1"},
		{"sparse assignment", `var a = []; a[3] = "x"; a.length + ":" + String(a[0])`, "4:undefined"},
		{"cyclic join", `var a = [1]; a.push(a); a.join()`, "1,"},
	})
}

func TestStringBuiltins(t *testing.T) {
	runEvalCases(t, []evalCase{
		{"utf16 length", `"😀".length + ":" + "😀".charCodeAt(0) + ":" + "😀".codePointAt(0)`, "2:55357:128512"},
		{"spread string by code point", `[..."a😀"].length`, "2"},
		{"case", `"Hello".toUpperCase() + "Hello".toLowerCase()`, "HELLOhello"},
		{"trim", `"[" + "  hi  ".trim() + "|" + "  hi".trimStart() + "|" + "hi  ".trimEnd() + "]"`, "[hi|hi|hi]"},
		{"pad", `"5".padStart(3, "0") + " " + "abc".padEnd(6, "12")`, "005 abc121"},
		{"repeat", `"ab".repeat(3)`, "ababab"},
		{"search", `["Hello".indexOf("l"), "Hello".lastIndexOf("l"), "Hello".includes("ell"), "Hello".startsWith("He"), "Hello".endsWith("lo")].join()`, "2,3,true,true,true"},
		{"slicing", `["Hello".slice(-3), "Hello".substring(3, 1), "Hello".substr(1, 3), "Hello".charAt(1), "Hello".at(-1)].join()`, "llo,el,ell,e,o"},
		{"split", `"a,b,,c".split(",").length + ":" + "abc".split("").join("-") + ":" + "a1b22c".split(/\d+/).join()`, "4:a-b-c:a,b,c"},
		{"split limit", `"a,b,c".split(",", 2).join()`, "a,b"},
		{"replace first", `"aXbX".replace("X", "-")`, "a-bX"},
		{"replace all string", `"a-b-c".replaceAll("-", "+")`, "a+b+c"},
		{"replace pattern tokens", `"abc".replace("b", "[$&]") + " " + "2024-03-05".replace(/(\d+)-(\d+)-(\d+)/, "$3/$2/$1")`, "a[b]c 05/03/2024"},
		{"replace callback", `"a1b2".replace(/\d/g, function(m) { return m * 2; })`, "a2b4"},
		{"match global", `"a1b2".match(/\d/g).join()`, "1,2"},
		{"match groups", `var m = "x 12-34".match(/(\d+)-(\d+)/); m[0] + "|" + m[1] + "|" + m.index`, "12-34|12|2"},
		{"match none", `String("abc".match(/x/))`, "null"},
		{"search regexp", `"abc1".search(/\d/)`, "3"},
		{"concat", `"x".concat(1, 2)`, "x12"},
		{"fromCharCode", `String.fromCharCode(72, 105) + String.fromCodePoint(128512).length`, "Hi2"},
		{"normalize", `"é".normalize("NFD").length`, "2"},
		{"localeCompare", `["b".localeCompare("a"), "a".localeCompare("b"), "a".localeCompare("a")].join()`, "1,-1,0"},
		{"string conversion", `[String(null), String([1, [2]]), String({}), String(123)].join("|")`, "null|1,2|[object Object]|123"},
		{"template-free concat", `"n=" + 1 + 2`, "n=12"},
	})
}

func TestRegExpBuiltins(t *testing.T) {
	runEvalCases(t, []evalCase{
		{"exec", `var m = /(\d+)-(\d+)/.exec("a 12-34"); [m[0], m[1], m[2], m.index, m.input].join("|")`, "12-34|12|34|2|a 12-34"},
		{"exec miss", `String(/x/.exec("abc"))`, "null"},
		{"global lastIndex", `var re = /o/g; [re.test("foo"), re.lastIndex, re.test("foo"), re.lastIndex, re.test("foo"), re.lastIndex].join()`, "true,2,true,3,false,0"},
		{"ignore case", `/HELLO/i.test("say hello")`, "true"},
		{"multiline", `"a\nb".match(/^b$/m)[0]`, "b"},
		{"properties", `var re = /a+/gi; [re.source, re.flags, re.global, re.ignoreCase, re.multiline].join()`, "a+,gi,true,true,false"},
		{"constructor", `new RegExp("a.c", "g").test("abc") + ":" + new RegExp("x").toString()`, "true:/x/"},
		{"lookahead unsupported", `try { new RegExp("a(?=b)"); } catch (e) { e.name; }`, "SyntaxError"},
		{"invalid flags", `try { new RegExp("a", "gg"); } catch (e) { e.name; }`, "SyntaxError"},
		{"utf16 index", `/b/.exec("😀b").index`, "2"},
	})
}

func TestNumberBuiltins(t *testing.T) {
	runEvalCases(t, []evalCase{
		{"number to string", `[String(1e21), String(123e-20), String(0.000001), String(1e-7), String(2 ** 53), String(-0)].join(" ")`,
			"1e+21 1.23e-18 0.000001 1e-7 9007199254740992 0"},
		{"radix", `(255).toString(16) + " " + (5).toString(2)`, "ff 101"},
		{"toFixed", `[(1234.5678).toFixed(2), (1.005).toFixed(2), (0).toFixed(1)].join()`, "1234.57,1.00,0.0"},
		{"toFixed range", `try { (1).toFixed(101); } catch (e) { e.name; }`, "RangeError"},
		{"toPrecision", `(123.456).toPrecision(4)`, "123.5"},
		{"toExponential", `(12345).toExponential(2)`, "1.23e+4"},
		{"parseInt", `[parseInt("08"), parseInt("0x1f"), parseInt("12px"), parseInt("ff", 16), parseInt("-7.9")].join()`, "8,31,12,255,-7"},
		{"parseInt NaN", `isNaN(parseInt("px"))`, "true"},
		{"parseFloat", `parseFloat("3.5e2x")`, "350"},
		{"Number conversion", `[Number(""), Number(" 12 "), Number("0x10"), Number("1e3"), Number(null), Number([5]), Number(true)].join()`, "0,12,16,1000,0,5,1"},
		{"Number NaN", `[Number("abc"), Number(undefined), Number({})].map(isNaN).join()`, "true,true,true"},
		{"Number predicates", `[Number.isInteger(5), Number.isInteger(5.5), Number.isNaN("x"), isNaN("x"), isFinite("12")].join()`, "true,false,false,true,true"},
		{"Math", `[Math.round(2.5), Math.round(-2.5), Math.max(), Math.min(1, "0"), Math.hypot(3, 4), Math.abs(-3), Math.floor(-1.5), Math.sign(-4)].join()`,
			"3,-2,-Infinity,0,5,3,-2,-1"},
		{"Math constants", `Math.PI > 3.14 && Math.PI < 3.15`, "true"},
		{"Math pow", `Math.pow(2, -1)`, "0.5"},
	})
}

func TestGlobalFunctions(t *testing.T) {
	runEvalCases(t, []evalCase{
		{"encodeURIComponent", `encodeURIComponent("a b&c/é-_.!~*'()")`, "a%20b%26c%2F%C3%A9-_.!~*'()"},
		{"decodeURIComponent", `decodeURIComponent(encodeURIComponent("ü ?"))`, "ü ?"},
		{"malformed URI", `try { decodeURIComponent("%"); } catch (e) { e.name; }`, "URIError"},
		{"randomUUID", `var id = crypto.randomUUID(); id.length + ":" + id[14]`, "36:4"},
		{"Object.keys skips hidden", `Object.keys([1, 2]).join() + "|" + Object.keys("ab").length`, "0,1|2"},
		{"Object.entries", `Object.entries({a: 1, b: 2}).map(e => e.join("=")).join("&")`, "a=1&b=2"},
		{"Object.assign", `var t = Object.assign({a: 1}, {b: 2}, null, {a: 3}); JSON.stringify(t)`, `{"a":3,"b":2}`},
		{"Object.fromEntries", `JSON.stringify(Object.fromEntries([["x", 1], ["y", 2]]))`, `{"x":1,"y":2}`},
		{"defineProperty", `var o = {}; Object.defineProperty(o, "hidden", {value: 1, enumerable: false}); o.hidden + ":" + Object.keys(o).length`, "1:0"},
		{"isFrozen", `var o = Object.freeze({}); Object.isFrozen(o) + ":" + Object.isFrozen({})`, "true:false"},
		{"Function constructor", `new Function("a", "b", "return a * b")(6, 7)`, "42"},
		{"function toString", `typeof String(function f() {})`, "string"},
		{"function name and length", `function f(a, b) {} f.name + f.length`, "f2"},
	})
}

func TestDateBuiltinsUseConfiguredClock(t *testing.T) {
	fixed := time.Date(2024, time.March, 5, 12, 30, 0, 0, time.UTC)
	cfg := Config{Now: func() time.Time { return fixed }}

	cases := map[string]string{
		`Date.now()`:                                       "1709641800000",
		`new Date().toISOString()`:                         "2024-03-05T12:30:00.000Z",
		`Date.UTC(2020, 0, 31)`:                            "1580428800000",
		`new Date("2020-01-31").getTime()`:                 "1580428800000",
		`new Date(Date.UTC(2020, 1, 29, 23)).getUTCDate()`: "29",
		`new Date(0).getUTCFullYear()`:                     "1970",
		`new Date(Date.UTC(2021, 11, 31)).getUTCMonth()`:   "11",
		`new Date(Date.UTC(2024, 2, 5)).getUTCDay()`:       "2",
		`var d = new Date(0); d.setUTCHours(25); d.toISOString()`: "1970-01-02T01:00:00.000Z",
		`var d = new Date(0); d.setTime(1000); d.getTime()`:      "1000",
		`isNaN(new Date(NaN).getTime())`:                          "true",
		`String(new Date(NaN))`:                                   "Invalid Date",
		`new Date(8.64e15 + 1).getTime()`:                         "NaN",
		`typeof Date()`:                                           "string",
		`new Date(1e12) - new Date(0)`:                            "1000000000000",
	}
	for source, want := range cases {
		got := evalWith(t, cfg, source)
		if got.String() != want {
			t.Fatalf("%s: got %s want %s", source, got, want)
		}
	}
}

func TestMathRandomUsesConfiguredSource(t *testing.T) {
	got := evalWith(t, Config{Random: func() float64 { return 0.25 }}, "Math.random() * 4")
	if got.Number() != 1 {
		t.Fatalf("unexpected random result %v", got)
	}
}

func TestConsoleRoutesToLogSink(t *testing.T) {
	type entry struct{ level, message string }
	var entries []entry
	engine := newTestEngine(t, Config{LogSink: func(level, message string) {
		entries = append(entries, entry{level, message})
	}})
	_, err := engine.Run(context.Background(), `console.log("a", 1, {b: 2}, [1, "s"], null);
console.warn("careful");
console.error(new TypeError("bad"));`, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := []entry{
		{"log", `a 1 { b: 2 } [1, "s"] null`},
		{"warn", "careful"},
		{"error", "TypeError: bad"},
	}
	if len(entries) != len(want) {
		t.Fatalf("unexpected entries %+v", entries)
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Fatalf("entry %d: got %+v want %+v", i, entries[i], want[i])
		}
	}
}
