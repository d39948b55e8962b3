package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFmtCommandRequiresPath(t *testing.T) {
	err := fmtCommand(nil)
	if err == nil || !strings.Contains(err.Error(), "path required") {
		t.Fatalf("expected path required error, got %v", err)
	}
}

func TestFmtCommandCheckDetectsUnformattedFiles(t *testing.T) {
	path := writeScriptFile(t, "function run() {  \n  return 1;\t \n}")
	err := fmtCommand([]string{"-check", path})
	if err == nil || !strings.Contains(err.Error(), "need formatting") {
		t.Fatalf("expected formatting check failure, got %v", err)
	}
}

func TestFmtCommandWriteFormatsFileInPlace(t *testing.T) {
	path := writeScriptFile(t, "function run() {  \r\n  return 1;\t \r\n}")
	if err := fmtCommand([]string{"-w", path}); err != nil {
		t.Fatalf("fmt -w failed: %v", err)
	}

	updated, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read formatted file: %v", err)
	}
	if got := string(updated); got != "function run() {\n  return 1;\n}\n" {
		t.Fatalf("unexpected formatted output: %q", got)
	}
}

func TestFmtCommandWriteRefusesUnlexableFiles(t *testing.T) {
	path := writeScriptFile(t, "var s = 'open  \n")
	if err := fmtCommand([]string{"-w", path}); err == nil {
		t.Fatalf("expected lex error")
	}
	original, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if string(original) != "var s = 'open  \n" {
		t.Fatalf("file was rewritten: %q", original)
	}
}

func TestFmtCommandPrintsFormattedOutput(t *testing.T) {
	path := writeScriptFile(t, "var a = 1;  \n\n\n")
	out, err := captureStdout(t, func() error {
		return fmtCommand([]string{path})
	})
	if err != nil {
		t.Fatalf("fmt command failed: %v", err)
	}
	if out != "var a = 1;\n" {
		t.Fatalf("unexpected stdout output: %q", out)
	}
}

func TestFmtCommandFormatsDirectories(t *testing.T) {
	root := t.TempDir()
	first := filepath.Join(root, "a.js")
	second := filepath.Join(root, "nested", "b.js")
	skipped := filepath.Join(root, "node_modules", "c.js")
	for _, dir := range []string{filepath.Dir(second), filepath.Dir(skipped)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	for path, content := range map[string]string{
		first:   "var a = 1;  \n",
		second:  "var b = 2;\t\n",
		skipped: "var c = 3;  ",
		filepath.Join(root, "notes.txt"): "keep  ",
	} {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}

	if err := fmtCommand([]string{"-w", root}); err != nil {
		t.Fatalf("fmt directory failed: %v", err)
	}
	if err := fmtCommand([]string{"-check", root}); err != nil {
		t.Fatalf("expected no formatting diffs after write, got %v", err)
	}
	untouched, err := os.ReadFile(skipped)
	if err != nil {
		t.Fatalf("read skipped file: %v", err)
	}
	if string(untouched) != "var c = 3;  " {
		t.Fatalf("node_modules file was formatted: %q", untouched)
	}
}

func writeScriptFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.js")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write script file: %v", err)
	}
	return path
}
