package main

import (
	"os"
	"slices"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func TestRunCLIStartsLSPAndExitsOnEOF(t *testing.T) {
	origStdin := os.Stdin
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close write pipe: %v", err)
	}
	os.Stdin = r
	defer func() {
		os.Stdin = origStdin
		_ = r.Close()
	}()

	if err := runCLI([]string{"quill", "lsp"}); err != nil {
		t.Fatalf("runCLI lsp failed: %v", err)
	}
}

func TestDiagnosticsForSourceWithoutErrors(t *testing.T) {
	diags := diagnosticsForSource("function run() {\n  return 1;\n}\n")
	if len(diags) != 0 {
		t.Fatalf("expected no diagnostics, got %d", len(diags))
	}
}

func TestDiagnosticsForSourceWithParseError(t *testing.T) {
	diags := diagnosticsForSource("function run( {\n  1\n}\n")
	if len(diags) == 0 {
		t.Fatalf("expected diagnostics for invalid source")
	}
	first := diags[0]
	if first["severity"] != 1 {
		t.Fatalf("expected severity 1, got %#v", first["severity"])
	}
	message, ok := first["message"].(string)
	if !ok || message == "" {
		t.Fatalf("expected non-empty diagnostic message, got %#v", first["message"])
	}
}

func TestDiagnosticsForSourceMarksLintAsWarning(t *testing.T) {
	diags := diagnosticsForSource("function f() {\n  throw 1;\n  f();\n}\n")
	if len(diags) != 1 {
		t.Fatalf("expected one diagnostic, got %d", len(diags))
	}
	if diags[0]["severity"] != 2 {
		t.Fatalf("expected warning severity, got %#v", diags[0]["severity"])
	}
	start := diags[0]["range"].(map[string]any)["start"].(map[string]any)
	if start["line"] != 2 || start["character"] != 2 {
		t.Fatalf("unexpected range start %#v", start)
	}
}

func TestDiagnosticsUseUTF16Columns(t *testing.T) {
	diags := diagnosticsForSource("var s = \"😀\" @;\n")
	if len(diags) != 1 {
		t.Fatalf("expected one diagnostic, got %d", len(diags))
	}
	start := diags[0]["range"].(map[string]any)["start"].(map[string]any)
	if start["character"] != 13 {
		t.Fatalf("expected UTF-16 column 13, got %#v", start["character"])
	}
}

func TestCompletionItemsAreSortedAndCategorized(t *testing.T) {
	items := completionItems()
	if len(items) == 0 {
		t.Fatalf("expected completion items")
	}

	labels := make([]string, 0, len(items))
	for _, item := range items {
		label, ok := item["label"].(string)
		if !ok {
			t.Fatalf("unexpected completion label: %#v", item["label"])
		}
		labels = append(labels, label)
	}
	if !slices.IsSorted(labels) {
		t.Fatalf("expected sorted completion labels, got %v", labels)
	}

	keyword := findCompletionItem(t, items, "if")
	if keyword["detail"] != "keyword" || keyword["kind"] != 14 {
		t.Fatalf("unexpected keyword item %#v", keyword)
	}
	builtin := findCompletionItem(t, items, "parseInt")
	if builtin["detail"] != "builtin" || builtin["kind"] != 3 {
		t.Fatalf("unexpected builtin item %#v", builtin)
	}
	findCompletionItem(t, items, "JSON")
}

func TestHandleMessageDidOpenPublishesDiagnostics(t *testing.T) {
	server := &lspServer{docs: make(map[string]string)}
	payload, err := json.Marshal(map[string]any{
		"textDocument": map[string]any{
			"uri":  "file:///tmp/test.js",
			"text": "function run( {\n}\n",
		},
	})
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}

	messages := server.handleMessage(lspInboundMessage{
		JSONRPC: "2.0",
		Method:  "textDocument/didOpen",
		Params:  payload,
	})
	if len(messages) != 1 {
		t.Fatalf("expected one publishDiagnostics notification, got %d", len(messages))
	}
	if messages[0].Method != "textDocument/publishDiagnostics" {
		t.Fatalf("unexpected method: %q", messages[0].Method)
	}
	paramsMap, ok := messages[0].Params.(map[string]any)
	if !ok {
		t.Fatalf("unexpected params payload: %#v", messages[0].Params)
	}
	diags, ok := paramsMap["diagnostics"].([]map[string]any)
	if !ok || len(diags) == 0 {
		t.Fatalf("expected diagnostics for invalid source, got %#v", paramsMap["diagnostics"])
	}
	if server.docs["file:///tmp/test.js"] == "" {
		t.Fatalf("document not tracked")
	}
}

func TestHandleMessageHoverClassifiesBuiltins(t *testing.T) {
	server := &lspServer{
		docs: map[string]string{
			"file:///tmp/test.js": "function run() {\n  return parseInt(\"1\");\n}\n",
		},
	}
	payload, err := json.Marshal(map[string]any{
		"textDocument": map[string]any{"uri": "file:///tmp/test.js"},
		"position":     map[string]any{"line": 1, "character": 12},
	})
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}

	messages := server.handleMessage(lspInboundMessage{
		JSONRPC: "2.0",
		ID:      rawID("1"),
		Method:  "textDocument/hover",
		Params:  payload,
	})
	if len(messages) != 1 {
		t.Fatalf("expected one response, got %d", len(messages))
	}
	result, ok := messages[0].Result.(map[string]any)
	if !ok {
		t.Fatalf("unexpected hover result: %#v", messages[0].Result)
	}
	value, _ := result["contents"].(map[string]any)["value"].(string)
	if !strings.Contains(value, "parseInt") || !strings.Contains(value, "builtin") {
		t.Fatalf("expected builtin classification in hover value, got %q", value)
	}
}

func TestHandleMessageFormattingReturnsEdit(t *testing.T) {
	server := &lspServer{docs: map[string]string{"file:///a.js": "var a = 1;  "}}
	payload, err := json.Marshal(map[string]any{"textDocument": map[string]any{"uri": "file:///a.js"}})
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}
	messages := server.handleMessage(lspInboundMessage{
		JSONRPC: "2.0",
		ID:      rawID("2"),
		Method:  "textDocument/formatting",
		Params:  payload,
	})
	if len(messages) != 1 {
		t.Fatalf("expected one response, got %d", len(messages))
	}
	edits, ok := messages[0].Result.([]map[string]any)
	if !ok || len(edits) != 1 {
		t.Fatalf("unexpected formatting result %#v", messages[0].Result)
	}
	if edits[0]["newText"] != "var a = 1;\n" {
		t.Fatalf("unexpected new text %#v", edits[0]["newText"])
	}
}

func TestHandleMessageUnknownMethod(t *testing.T) {
	server := &lspServer{docs: map[string]string{}}
	messages := server.handleMessage(lspInboundMessage{JSONRPC: "2.0", ID: rawID("3"), Method: "workspace/symbol"})
	if len(messages) != 1 || messages[0].Error == nil || messages[0].Error.Code != -32601 {
		t.Fatalf("expected method not found error, got %#v", messages)
	}
}

func TestWordAtPosition(t *testing.T) {
	source := "function run() {\n  parseInt(\"1\");\n}\n"
	if word := wordAtPosition(source, 1, 4); word != "parseInt" {
		t.Fatalf("expected parseInt, got %q", word)
	}
}

func TestWordAtPositionUsesUTF16CharacterOffsets(t *testing.T) {
	source := "😀😀x y\n"
	if word := wordAtPosition(source, 0, 4); word != "x" {
		t.Fatalf("expected x, got %q", word)
	}
}

func rawID(value string) *json.RawMessage {
	raw := json.RawMessage(value)
	return &raw
}

func findCompletionItem(t *testing.T, items []map[string]any, label string) map[string]any {
	t.Helper()
	for _, item := range items {
		if itemLabel, ok := item["label"].(string); ok && itemLabel == label {
			return item
		}
	}
	t.Fatalf("missing completion item %q", label)
	return nil
}
