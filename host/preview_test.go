package host

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mgomes/quillscript/quill"
)

func TestPreviewRunsScriptsInSharedContext(t *testing.T) {
	engine := quill.MustNewEngine(quill.Config{})
	defer engine.Close()

	var notes []string
	bridge := NewBridge().MustRegister("host.note", func(call Call) (quill.Value, error) {
		notes = append(notes, call.Arg(0).String())
		return quill.Undefined(), nil
	})

	page := `<html><head><title>t</title></head><body>
<div id="out"></div>
<script>var count = 2;</script>
<script>missing();</script>
<script>
  document.getElementById("out").setText("count=" + count);
  host.note("done");
  count * 21;
</script>
</body></html>`

	result, err := Preview(context.Background(), engine, page, bridge)
	if err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	if len(result.Scripts) != 3 {
		t.Fatalf("expected 3 script results, got %d", len(result.Scripts))
	}
	if !result.Failed() {
		t.Fatalf("expected the failing script to be reported")
	}

	var re *quill.RuntimeError
	if !errors.As(result.Scripts[1].Err, &re) || re.Kind != quill.KindReferenceError {
		t.Fatalf("expected ReferenceError from second script, got %v", result.Scripts[1].Err)
	}
	if third := result.Scripts[2]; third.Err != nil || third.Value.Number() != 42 {
		t.Fatalf("unexpected third script result: %v %v", third.Value, third.Err)
	}
	if !strings.Contains(result.HTML, `<div id="out">count=2</div>`) {
		t.Fatalf("mutation missing from html:\n%s", result.HTML)
	}
	if len(notes) != 1 || notes[0] != "done" {
		t.Fatalf("unexpected bridge notes %v", notes)
	}
}

func TestPreviewStopsWhenCanceled(t *testing.T) {
	engine := quill.MustNewEngine(quill.Config{})
	defer engine.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Preview(ctx, engine, `<script>1</script>`, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation error, got %v", err)
	}
}
