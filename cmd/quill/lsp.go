package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"unicode"
	"unicode/utf16"

	"github.com/goccy/go-json"
	"github.com/mgomes/quillscript/quill"
)

var lspKeywords = quill.Keywords()

// lspBuiltins lists the globals every fresh context defines.
var lspBuiltins = sync.OnceValue(func() []string {
	engine := quill.MustNewEngine(quill.Config{CacheSize: -1})
	defer engine.Close()
	return engine.NewContext(nil).GlobalNames()
})

type lspInboundMessage struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *json.RawMessage `json:"id,omitempty"`
	Method  string           `json:"method,omitempty"`
	Params  json.RawMessage  `json:"params,omitempty"`
}

type lspResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type lspOutboundMessage struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      *json.RawMessage  `json:"id,omitempty"`
	Method  string            `json:"method,omitempty"`
	Params  any               `json:"params,omitempty"`
	Result  any               `json:"result,omitempty"`
	Error   *lspResponseError `json:"error,omitempty"`
}

type lspTextDocument struct {
	URI  string `json:"uri"`
	Text string `json:"text"`
}

type lspDidOpenParams struct {
	TextDocument lspTextDocument `json:"textDocument"`
}

type lspDidChangeParams struct {
	TextDocument   lspTextDocument `json:"textDocument"`
	ContentChanges []struct {
		Text string `json:"text"`
	} `json:"contentChanges"`
}

type lspTextDocumentPositionParams struct {
	TextDocument lspTextDocument `json:"textDocument"`
	Position     struct {
		Line      int `json:"line"`
		Character int `json:"character"`
	} `json:"position"`
}

type lspServer struct {
	reader *bufio.Reader
	writer *bufio.Writer
	docs   map[string]string
}

func runLSP() error {
	server := &lspServer{
		reader: bufio.NewReader(os.Stdin),
		writer: bufio.NewWriter(os.Stdout),
		docs:   make(map[string]string),
	}
	return server.serve()
}

func (s *lspServer) serve() error {
	for {
		payload, err := s.readPayload()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		var incoming lspInboundMessage
		if err := json.Unmarshal(payload, &incoming); err != nil {
			continue
		}

		for _, msg := range s.handleMessage(incoming) {
			if err := s.writePayload(msg); err != nil {
				return err
			}
		}

		if incoming.Method == "exit" {
			return nil
		}
	}
}

func (s *lspServer) handleMessage(incoming lspInboundMessage) []lspOutboundMessage {
	reply := func(result any) []lspOutboundMessage {
		if incoming.ID == nil {
			return nil
		}
		return []lspOutboundMessage{{JSONRPC: "2.0", ID: incoming.ID, Result: result}}
	}

	switch incoming.Method {
	case "initialize":
		return reply(map[string]any{
			"capabilities": map[string]any{
				"textDocumentSync":           1,
				"hoverProvider":              true,
				"documentFormattingProvider": true,
				"completionProvider": map[string]any{
					"resolveProvider": false,
				},
			},
			"serverInfo": map[string]any{"name": "quill-lsp"},
		})
	case "initialized", "exit":
		return nil
	case "shutdown":
		return reply(nil)
	case "textDocument/didOpen":
		var params lspDidOpenParams
		if err := json.Unmarshal(incoming.Params, &params); err != nil {
			return nil
		}
		s.docs[params.TextDocument.URI] = params.TextDocument.Text
		return []lspOutboundMessage{s.publishDiagnostics(params.TextDocument.URI, params.TextDocument.Text)}
	case "textDocument/didChange":
		var params lspDidChangeParams
		if err := json.Unmarshal(incoming.Params, &params); err != nil || len(params.ContentChanges) == 0 {
			return nil
		}
		latest := params.ContentChanges[len(params.ContentChanges)-1].Text
		s.docs[params.TextDocument.URI] = latest
		return []lspOutboundMessage{s.publishDiagnostics(params.TextDocument.URI, latest)}
	case "textDocument/didClose":
		var params lspDidOpenParams
		if err := json.Unmarshal(incoming.Params, &params); err != nil {
			return nil
		}
		delete(s.docs, params.TextDocument.URI)
		return []lspOutboundMessage{{
			JSONRPC: "2.0",
			Method:  "textDocument/publishDiagnostics",
			Params:  map[string]any{"uri": params.TextDocument.URI, "diagnostics": []map[string]any{}},
		}}
	case "textDocument/completion":
		return reply(map[string]any{
			"isIncomplete": false,
			"items":        completionItems(),
		})
	case "textDocument/formatting":
		var params lspTextDocumentPositionParams
		if err := json.Unmarshal(incoming.Params, &params); err != nil {
			return s.invalidParams(incoming, "invalid formatting params")
		}
		return reply(formattingEdits(s.docs[params.TextDocument.URI]))
	case "textDocument/hover":
		var params lspTextDocumentPositionParams
		if err := json.Unmarshal(incoming.Params, &params); err != nil {
			return s.invalidParams(incoming, "invalid hover params")
		}
		source := s.docs[params.TextDocument.URI]
		word := wordAtPosition(source, params.Position.Line, params.Position.Character)
		if word == "" {
			return reply(nil)
		}
		return reply(map[string]any{
			"contents": map[string]any{
				"kind":  "markdown",
				"value": fmt.Sprintf("`%s`\n\nquill %s", word, classifyWord(word)),
			},
		})
	default:
		if incoming.ID == nil {
			return nil
		}
		return []lspOutboundMessage{{
			JSONRPC: "2.0",
			ID:      incoming.ID,
			Error:   &lspResponseError{Code: -32601, Message: "method not found"},
		}}
	}
}

func (s *lspServer) invalidParams(incoming lspInboundMessage, message string) []lspOutboundMessage {
	if incoming.ID == nil {
		return nil
	}
	return []lspOutboundMessage{{
		JSONRPC: "2.0",
		ID:      incoming.ID,
		Error:   &lspResponseError{Code: -32602, Message: message},
	}}
}

func (s *lspServer) publishDiagnostics(uri, source string) lspOutboundMessage {
	return lspOutboundMessage{
		JSONRPC: "2.0",
		Method:  "textDocument/publishDiagnostics",
		Params: map[string]any{
			"uri":         uri,
			"diagnostics": diagnosticsForSource(source),
		},
	}
}

func diagnosticsForSource(source string) []map[string]any {
	report := quill.Diagnose(source)
	lines := strings.Split(source, "\n")
	out := make([]map[string]any, 0, len(report.Diagnostics))
	for _, d := range report.Diagnostics {
		line := max(0, d.Line-1)
		character := 0
		if line < len(lines) {
			character = utf16Offset(lines[line], max(0, d.Column-1))
		}
		severity := 1
		if d.Severity == quill.SeverityWarning {
			severity = 2
		}
		out = append(out, newDiagnostic(line, character, severity, d.Message))
	}
	return out
}

func newDiagnostic(line, character, severity int, message string) map[string]any {
	return map[string]any{
		"range": map[string]any{
			"start": map[string]any{
				"line":      line,
				"character": character,
			},
			"end": map[string]any{
				"line":      line,
				"character": character + 1,
			},
		},
		"severity": severity,
		"source":   "quill-lsp",
		"message":  message,
	}
}

// formattingEdits replaces the whole document when formatting changes it.
func formattingEdits(source string) []map[string]any {
	formatted := formatScriptSource(source)
	if formatted == source {
		return []map[string]any{}
	}
	lines := strings.Split(source, "\n")
	return []map[string]any{{
		"range": map[string]any{
			"start": map[string]any{"line": 0, "character": 0},
			"end":   map[string]any{"line": len(lines), "character": 0},
		},
		"newText": formatted,
	}}
}

func completionItems() []map[string]any {
	builtins := lspBuiltins()
	labels := make([]string, 0, len(lspKeywords)+len(builtins))
	labels = append(labels, lspKeywords...)
	labels = append(labels, builtins...)
	slices.Sort(labels)
	labels = slices.Compact(labels)

	items := make([]map[string]any, 0, len(labels))
	for _, label := range labels {
		kind := 3 // Function
		detail := "builtin"
		if slices.Contains(lspKeywords, label) {
			kind = 14 // Keyword
			detail = "keyword"
		}
		items = append(items, map[string]any{
			"label":  label,
			"kind":   kind,
			"detail": detail,
		})
	}
	return items
}

func classifyWord(word string) string {
	if slices.Contains(lspKeywords, word) {
		return "keyword"
	}
	if slices.Contains(lspBuiltins(), word) {
		return "builtin"
	}
	return "symbol"
}

// wordAtPosition finds the identifier under a cursor given in UTF-16 code
// units, as LSP clients send it.
func wordAtPosition(source string, line, character int) string {
	lines := strings.Split(source, "\n")
	if line < 0 || line >= len(lines) {
		return ""
	}

	runes := []rune(lines[line])
	if len(runes) == 0 {
		return ""
	}
	cursor := runeIndex(runes, max(0, character))
	if cursor == len(runes) {
		cursor--
	}
	if !isWordRune(runes[cursor]) {
		if cursor > 0 && isWordRune(runes[cursor-1]) {
			cursor--
		} else {
			return ""
		}
	}

	start := cursor
	for start > 0 && isWordRune(runes[start-1]) {
		start--
	}
	end := cursor
	for end < len(runes) && isWordRune(runes[end]) {
		end++
	}
	return string(runes[start:end])
}

// runeIndex converts a UTF-16 offset into a rune index, clamped to the line.
func runeIndex(runes []rune, units int) int {
	for i, r := range runes {
		units -= utf16.RuneLen(r)
		if units < 0 {
			return i
		}
	}
	return len(runes)
}

// utf16Offset converts a rune column into UTF-16 code units.
func utf16Offset(line string, column int) int {
	units := 0
	for i, r := range []rune(line) {
		if i >= column {
			break
		}
		units += utf16.RuneLen(r)
	}
	return units
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '$'
}

func (s *lspServer) readPayload() ([]byte, error) {
	contentLength := -1
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return nil, fmt.Errorf("invalid Content-Length: %w", err)
			}
			contentLength = n
		}
	}

	if contentLength < 0 {
		return nil, fmt.Errorf("missing Content-Length header")
	}
	payload := make([]byte, contentLength)
	if _, err := io.ReadFull(s.reader, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func (s *lspServer) writePayload(msg lspOutboundMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.writer, "Content-Length: %d\r\n\r\n", len(data)); err != nil {
		return err
	}
	if _, err := s.writer.Write(data); err != nil {
		return err
	}
	return s.writer.Flush()
}
