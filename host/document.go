package host

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mgomes/quillscript/quill"
)

// Document wraps a parsed HTML page and exposes it to scripts as the
// `document` global. Element objects are snapshots: their data properties
// are refreshed after every mutation method, and direct writes to
// textContent, innerHTML, id or className are applied when HTML is rendered.
type Document struct {
	doc      *goquery.Document
	bindings []*documentBinding
}

func ParseDocument(html string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("host: parse html: %w", err)
	}
	return &Document{doc: doc}, nil
}

// HTML renders the document after applying pending property writes from
// every context it was installed into.
func (d *Document) HTML() (string, error) {
	for _, b := range d.bindings {
		b.sync()
	}
	return d.doc.Html()
}

// Title returns the text of the first <title> element.
func (d *Document) Title() string {
	return d.doc.Find("title").First().Text()
}

// Scripts returns the inline JavaScript bodies of the page in document order.
func (d *Document) Scripts() []string {
	var out []string
	d.doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if _, external := s.Attr("src"); external {
			return
		}
		if !isJavaScriptType(s.AttrOr("type", "")) {
			return
		}
		body := s.Text()
		if strings.TrimSpace(body) == "" {
			return
		}
		out = append(out, body)
	})
	return out
}

// Install defines `document` in c.
func (d *Document) Install(c *quill.Context) {
	b := &documentBinding{doc: d, ctx: c, elements: make(map[any]*element)}
	d.bindings = append(d.bindings, b)
	c.Set("document", quill.NewObjectValue(b.documentObject()))
}

type documentBinding struct {
	doc *Document
	ctx *quill.Context
	obj *quill.Object
	// elements is keyed by *html.Node so repeated lookups yield the same
	// script object.
	elements map[any]*element
	order    []*element
	title    string
}

type element struct {
	sel      *goquery.Selection
	obj      *quill.Object
	snapshot map[string]string
	removed  bool
}

var elementFields = []string{"id", "className", "textContent", "innerHTML"}

func (b *documentBinding) documentObject() *quill.Object {
	c := b.ctx
	obj := c.NewObject()
	b.obj = obj
	b.title = b.doc.Title()
	obj.Set("title", quill.NewString(b.title))
	obj.Set("body", b.wrap(b.doc.doc.Find("body").First()))
	obj.Set("getElementById", c.NewFunction("getElementById", func(exec *quill.Execution, this quill.Value, args []quill.Value) (quill.Value, error) {
		b.sync()
		id := stringArg(args, 0)
		match := b.doc.doc.Find("[id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
			return s.AttrOr("id", "") == id
		}).First()
		return b.wrap(match), nil
	}))
	obj.Set("querySelector", c.NewFunction("querySelector", func(exec *quill.Execution, this quill.Value, args []quill.Value) (quill.Value, error) {
		b.sync()
		return b.wrap(b.doc.doc.Find(stringArg(args, 0)).First()), nil
	}))
	obj.Set("querySelectorAll", c.NewFunction("querySelectorAll", func(exec *quill.Execution, this quill.Value, args []quill.Value) (quill.Value, error) {
		b.sync()
		var found []quill.Value
		b.doc.doc.Find(stringArg(args, 0)).Each(func(_ int, s *goquery.Selection) {
			found = append(found, b.wrap(s))
		})
		return c.NewArray(found...), nil
	}))
	obj.Set("setTitle", c.NewFunction("setTitle", func(exec *quill.Execution, this quill.Value, args []quill.Value) (quill.Value, error) {
		b.setTitle(stringArg(args, 0))
		return quill.Undefined(), nil
	}))
	return obj
}

func (b *documentBinding) setTitle(title string) {
	titles := b.doc.doc.Find("title")
	if titles.Length() == 0 {
		b.doc.doc.Find("head").First().AppendHtml("<title></title>")
		titles = b.doc.doc.Find("title")
	}
	titles.First().SetText(title)
	b.title = title
	b.obj.Set("title", quill.NewString(title))
}

// wrap returns the script object for the first node of sel, or null.
func (b *documentBinding) wrap(sel *goquery.Selection) quill.Value {
	if sel.Length() == 0 {
		return quill.Null()
	}
	sel = sel.First()
	node := sel.Get(0)
	if el, ok := b.elements[node]; ok {
		return quill.NewObjectValue(el.obj)
	}

	c := b.ctx
	el := &element{sel: sel, obj: c.NewObject()}
	b.elements[node] = el
	b.order = append(b.order, el)
	el.obj.Set("tagName", quill.NewString(strings.ToUpper(goquery.NodeName(sel))))

	method := func(name string, fn quill.NativeFunc) {
		el.obj.Set(name, c.NewFunction(name, fn))
	}
	method("getAttribute", func(exec *quill.Execution, this quill.Value, args []quill.Value) (quill.Value, error) {
		b.syncElement(el)
		if v, ok := el.sel.Attr(stringArg(args, 0)); ok {
			return quill.NewString(v), nil
		}
		return quill.Null(), nil
	})
	method("setAttribute", func(exec *quill.Execution, this quill.Value, args []quill.Value) (quill.Value, error) {
		b.syncElement(el)
		name := stringArg(args, 0)
		if name == "" {
			return quill.Value{}, exec.Throw("TypeError", "setAttribute requires an attribute name")
		}
		el.sel.SetAttr(name, stringArg(args, 1))
		b.refresh(el)
		return quill.Undefined(), nil
	})
	method("removeAttribute", func(exec *quill.Execution, this quill.Value, args []quill.Value) (quill.Value, error) {
		b.syncElement(el)
		el.sel.RemoveAttr(stringArg(args, 0))
		b.refresh(el)
		return quill.Undefined(), nil
	})
	method("setText", func(exec *quill.Execution, this quill.Value, args []quill.Value) (quill.Value, error) {
		b.syncElement(el)
		el.sel.SetText(stringArg(args, 0))
		b.refresh(el)
		return quill.Undefined(), nil
	})
	method("setHTML", func(exec *quill.Execution, this quill.Value, args []quill.Value) (quill.Value, error) {
		b.syncElement(el)
		el.sel.SetHtml(stringArg(args, 0))
		b.refresh(el)
		return quill.Undefined(), nil
	})
	method("querySelector", func(exec *quill.Execution, this quill.Value, args []quill.Value) (quill.Value, error) {
		b.sync()
		return b.wrap(el.sel.Find(stringArg(args, 0)).First()), nil
	})
	method("remove", func(exec *quill.Execution, this quill.Value, args []quill.Value) (quill.Value, error) {
		b.syncElement(el)
		el.sel.Remove()
		el.removed = true
		return quill.Undefined(), nil
	})
	b.refresh(el)
	return quill.NewObjectValue(el.obj)
}

// refresh copies the node's current state into the element object.
func (b *documentBinding) refresh(el *element) {
	inner, _ := el.sel.Html()
	current := map[string]string{
		"id":          el.sel.AttrOr("id", ""),
		"className":   el.sel.AttrOr("class", ""),
		"textContent": el.sel.Text(),
		"innerHTML":   inner,
	}
	for _, field := range elementFields {
		el.obj.Set(field, quill.NewString(current[field]))
	}
	el.snapshot = current
}

// syncElement applies script writes made directly to the snapshot
// properties. innerHTML wins over textContent when both changed.
func (b *documentBinding) syncElement(el *element) {
	if el.removed {
		return
	}
	changed := func(field string) (string, bool) {
		v := el.obj.Get(field).String()
		return v, v != el.snapshot[field]
	}
	dirty := false
	if v, ok := changed("id"); ok {
		el.sel.SetAttr("id", v)
		dirty = true
	}
	if v, ok := changed("className"); ok {
		el.sel.SetAttr("class", v)
		dirty = true
	}
	if v, ok := changed("innerHTML"); ok {
		el.sel.SetHtml(v)
		dirty = true
	} else if v, ok := changed("textContent"); ok {
		el.sel.SetText(v)
		dirty = true
	}
	if dirty {
		b.refresh(el)
	}
}

func (b *documentBinding) sync() {
	if title := b.obj.Get("title").String(); title != b.title {
		b.setTitle(title)
	}
	for _, el := range b.order {
		b.syncElement(el)
	}
}

func stringArg(args []quill.Value, i int) string {
	if i >= len(args) || args[i].IsUndefined() {
		return ""
	}
	return args[i].String()
}

func isJavaScriptType(typ string) bool {
	typ, _, _ = strings.Cut(typ, ";")
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "", "text/javascript", "application/javascript", "text/ecmascript",
		"application/ecmascript", "application/x-javascript":
		return true
	}
	return false
}
