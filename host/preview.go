package host

import (
	"context"
	"fmt"

	"github.com/mgomes/quillscript/quill"
)

// ExtractScripts returns the inline JavaScript <script> bodies of html in
// document order. Scripts with a src attribute or a non-JavaScript type are
// skipped.
func ExtractScripts(html string) ([]string, error) {
	doc, err := ParseDocument(html)
	if err != nil {
		return nil, err
	}
	return doc.Scripts(), nil
}

// ScriptResult is the outcome of one page script.
type ScriptResult struct {
	Index  int
	Source string
	Value  quill.Value
	Err    error
}

type PreviewResult struct {
	Scripts []ScriptResult
	HTML    string
}

// Failed reports whether any script ended with an error.
func (r *PreviewResult) Failed() bool {
	for _, s := range r.Scripts {
		if s.Err != nil {
			return true
		}
	}
	return false
}

// Preview runs every inline script of html in one shared context, the way a
// page would, with `document` bound to the page and bridge callbacks
// installed. A failing script does not stop later ones; cancellation of ctx
// does. The returned HTML reflects the scripts' mutations.
func Preview(ctx context.Context, engine *quill.Engine, html string, bridge *Bridge) (*PreviewResult, error) {
	doc, err := ParseDocument(html)
	if err != nil {
		return nil, err
	}
	c := engine.NewContext(nil)
	doc.Install(c)
	if bridge != nil {
		bridge.Install(c)
	}

	result := &PreviewResult{}
	for i, source := range doc.Scripts() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("host: preview canceled before script %d: %w", i, err)
		}
		value, err := c.Eval(ctx, source)
		result.Scripts = append(result.Scripts, ScriptResult{Index: i, Source: source, Value: value, Err: err})
	}

	out, err := doc.HTML()
	if err != nil {
		return nil, fmt.Errorf("host: render html: %w", err)
	}
	result.HTML = out
	return result, nil
}
