package host

import (
	"context"
	"strings"
	"testing"
)

const testPage = `<!DOCTYPE html>
<html><head><title>Start</title></head>
<body>
<h1 id="headline" class="big">Hello</h1>
<ul><li class="item">one</li><li class="item">two</li></ul>
<p id="gone">bye</p>
</body></html>`

func installTestDocument(t *testing.T) (*Document, func(string) string) {
	t.Helper()
	doc, err := ParseDocument(testPage)
	if err != nil {
		t.Fatalf("parse document: %v", err)
	}
	c := newTestContext(t)
	doc.Install(c)
	eval := func(source string) string {
		t.Helper()
		v, err := c.Eval(context.Background(), source)
		if err != nil {
			t.Fatalf("eval %q failed: %v", source, err)
		}
		return v.String()
	}
	return doc, eval
}

func TestDocumentQueries(t *testing.T) {
	_, eval := installTestDocument(t)

	if got := eval(`document.title`); got != "Start" {
		t.Fatalf("unexpected title %q", got)
	}
	if got := eval(`var h = document.getElementById("headline"); h.tagName + " " + h.textContent + " " + h.className`); got != "H1 Hello big" {
		t.Fatalf("unexpected headline %q", got)
	}
	if got := eval(`document.querySelectorAll("li.item").map(function (li) { return li.textContent }).join(",")`); got != "one,two" {
		t.Fatalf("unexpected list items %q", got)
	}
	if got := eval(`document.getElementById("missing") === null && document.querySelector("table") === null`); got != "true" {
		t.Fatalf("expected null lookups, got %q", got)
	}
	if got := eval(`document.getElementById("headline") === document.querySelector("h1")`); got != "true" {
		t.Fatalf("expected element identity to be stable, got %q", got)
	}
	if got := eval(`document.body.querySelector("li").getAttribute("class")`); got != "item" {
		t.Fatalf("unexpected attribute %q", got)
	}
}

func TestDocumentMutationsRender(t *testing.T) {
	doc, eval := installTestDocument(t)
	eval(`
		var h = document.getElementById("headline");
		h.setText("Changed");
		h.setAttribute("data-state", "done");
		document.getElementById("gone").remove();
		document.querySelector("li").textContent = "first";
		document.title = "Finished";
	`)
	if got := eval(`document.getElementById("headline").textContent`); got != "Changed" {
		t.Fatalf("setText not reflected in snapshot: %q", got)
	}

	out, err := doc.HTML()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{`data-state="done"`, ">Changed</h1>", "<li class=\"item\">first</li>", "<title>Finished</title>"} {
		if !strings.Contains(out, want) {
			t.Fatalf("rendered html missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "bye") {
		t.Fatalf("removed element still rendered:\n%s", out)
	}
}

func TestDocumentMethodsKeepPendingPropertyWrites(t *testing.T) {
	doc, eval := installTestDocument(t)
	got := eval(`
		var h = document.getElementById("headline");
		h.className = "small";
		h.setText("Hi");
		var li = document.querySelector("li");
		li.id = "first";
		li.setHTML("<b>one</b>");
		h.className + "|" + li.id`)
	if got != "small|first" {
		t.Fatalf("property writes lost across method calls: %q", got)
	}

	out, err := doc.HTML()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{`<h1 id="headline" class="small">Hi</h1>`, `<li class="item" id="first"><b>one</b></li>`} {
		if !strings.Contains(out, want) {
			t.Fatalf("rendered html missing %q:\n%s", want, out)
		}
	}
}

func TestDocumentQueriesSeeInnerHTMLWrites(t *testing.T) {
	_, eval := installTestDocument(t)
	got := eval(`document.querySelector("ul").innerHTML = '<li id="late">new</li>'; document.getElementById("late").textContent`)
	if got != "new" {
		t.Fatalf("query did not see innerHTML write: %q", got)
	}
}

func TestDocumentScriptsFiltersTypes(t *testing.T) {
	scripts, err := ExtractScripts(`<html><body>
<script>var a = 1;</script>
<script src="lib.js"></script>
<script type="application/json">{"a": 1}</script>
<script type="text/javascript; charset=utf-8">var b = 2;</script>
<script>   </script>
</body></html>`)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(scripts) != 2 {
		t.Fatalf("expected 2 scripts, got %d: %q", len(scripts), scripts)
	}
	if scripts[0] != "var a = 1;" || scripts[1] != "var b = 2;" {
		t.Fatalf("unexpected scripts %q", scripts)
	}
}
