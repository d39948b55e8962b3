package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func postSource(t *testing.T, path, body string) (int, []byte) {
	t.Helper()
	app := newDiagnosticsServer()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request %s failed: %v", path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, data
}

func TestServeTokens(t *testing.T) {
	status, body := postSource(t, "/v1/tokens", `{"source": "x = /ab+/g.test(y)"}`)
	if status != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", status, body)
	}
	var resp tokensResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Tokens) < 3 {
		t.Fatalf("expected tokens, got %+v", resp.Tokens)
	}
	regex := resp.Tokens[2]
	if regex.Type != "REGEX" || regex.Literal != "/ab+/g" || regex.Column != 5 {
		t.Fatalf("unexpected regex token %+v", regex)
	}
	if len(resp.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics %+v", resp.Diagnostics)
	}
}

func TestServeCheckReportsErrorsAndWarnings(t *testing.T) {
	status, body := postSource(t, "/v1/check", `{"source": "var a = ;"}`)
	if status != http.StatusOK {
		t.Fatalf("unexpected status %d", status)
	}
	var resp checkResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.OK || len(resp.Diagnostics) != 1 {
		t.Fatalf("expected one error, got %+v", resp)
	}
	d := resp.Diagnostics[0]
	if d.Kind != "ParseError" || d.Line != 1 || d.Column != 9 {
		t.Fatalf("unexpected diagnostic %+v", d)
	}

	_, body = postSource(t, "/v1/check", `{"source": "while (1) { break; x(); }"}`)
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.OK || len(resp.Diagnostics) != 1 || resp.Diagnostics[0].Severity != "warning" {
		t.Fatalf("expected a single lint warning, got %+v", resp)
	}
}

func TestServeAST(t *testing.T) {
	status, body := postSource(t, "/v1/ast", `{"source": "f(1)"}`)
	if status != http.StatusOK {
		t.Fatalf("unexpected status %d", status)
	}
	var resp astResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(resp.AST, "CallExpr") || !strings.Contains(resp.AST, `Name="f"`) {
		t.Fatalf("unexpected ast %q", resp.AST)
	}

	status, _ = postSource(t, "/v1/ast", `{"source": "f("}`)
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for invalid source, got %d", status)
	}
}

func TestServeRejectsMalformedBody(t *testing.T) {
	status, body := postSource(t, "/v1/check", `{"source": `)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
	if !strings.Contains(string(body), "invalid request body") {
		t.Fatalf("unexpected body %s", body)
	}
}
