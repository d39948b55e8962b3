package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mgomes/quillscript/quill"
)

func main() {
	if err := runCLI(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCLI(args []string) error {
	if len(args) < 2 {
		return usageError()
	}
	switch args[1] {
	case "run":
		return runCommand(args[2:])
	case "check":
		return checkCommand(args[2:])
	case "tokens":
		return tokensCommand(args[2:])
	case "ast":
		return astCommand(args[2:])
	case "preview":
		return previewCommand(args[2:])
	case "fmt":
		return fmtCommand(args[2:])
	case "serve":
		return serveCommand(args[2:])
	case "repl":
		return runREPL()
	case "lsp":
		return runLSP()
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		return usageError()
	}
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	configPath := fs.String("config", "", "YAML engine configuration file")
	strict := fs.Bool("strict", false, "enable strict mode for every program")
	stepQuota := fs.Int("step-quota", 0, "maximum statements and loop iterations (0 = unlimited)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	remaining := fs.Args()
	if len(remaining) == 0 {
		return errors.New("quill run: script path required")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *strict {
		cfg.StrictMode = true
	}
	if *stepQuota > 0 {
		cfg.StepQuota = *stepQuota
	}
	cfg.LogSink = consoleSink

	input, err := os.ReadFile(remaining[0])
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}
	engine, err := quill.NewEngine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	script, err := engine.Compile(string(input))
	if err != nil {
		return fmt.Errorf("compile failed: %w", err)
	}
	scriptArgs := make([]quill.Value, len(remaining)-1)
	for i, raw := range remaining[1:] {
		scriptArgs[i] = quill.NewString(raw)
	}
	c := engine.NewContext(nil)
	c.Set("args", c.NewArray(scriptArgs...))
	result, err := c.Run(context.Background(), script)
	if err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}
	if !result.IsUndefined() {
		fmt.Println(result.String())
	}
	return nil
}

// consoleSink prints console output for CLI runs: warnings and errors go to
// stderr, everything else to stdout.
func consoleSink(level, message string) {
	switch level {
	case "warn", "error":
		fmt.Fprintln(os.Stderr, message)
	default:
		fmt.Println(message)
	}
}

func tokensCommand(args []string) error {
	path, source, err := readSourceArg("tokens", args)
	if err != nil {
		return err
	}
	tokens, err := quill.Tokenize(source)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	for _, tok := range tokens {
		fmt.Printf("%d:%d\t%s\t%s\n", tok.Pos.Line, tok.Pos.Column, tok.Type.Name(), tok.Literal)
	}
	return nil
}

func astCommand(args []string) error {
	path, source, err := readSourceArg("ast", args)
	if err != nil {
		return err
	}
	program, err := quill.Parse(source)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	fmt.Print(quill.DumpAST(program))
	return nil
}

func readSourceArg(command string, args []string) (string, string, error) {
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	if err := fs.Parse(args); err != nil {
		return "", "", err
	}
	if fs.NArg() == 0 {
		return "", "", fmt.Errorf("quill %s: script path required", command)
	}
	path := fs.Arg(0)
	input, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("read script: %w", err)
	}
	return path, string(input), nil
}

func usageError() error {
	printUsage()
	return errors.New("invalid command")
}

func printUsage() {
	prog := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [flags] [args...]\n", prog)
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  run [-config file] [-strict] [-step-quota n] <script> [args...]")
	fmt.Fprintln(os.Stderr, "    evaluate a script and print its completion value")
	fmt.Fprintln(os.Stderr, "  check <path>...")
	fmt.Fprintln(os.Stderr, "    report syntax errors and unreachable code without running")
	fmt.Fprintln(os.Stderr, "  tokens <script>")
	fmt.Fprintln(os.Stderr, "    print the token stream")
	fmt.Fprintln(os.Stderr, "  ast <script>")
	fmt.Fprintln(os.Stderr, "    print the syntax tree")
	fmt.Fprintln(os.Stderr, "  preview [-config file] [-o file] <page.html>")
	fmt.Fprintln(os.Stderr, "    run the page's inline scripts against its document")
	fmt.Fprintln(os.Stderr, "  fmt [-w] [-check] <path>...")
	fmt.Fprintln(os.Stderr, "    normalize whitespace in .js files")
	fmt.Fprintln(os.Stderr, "  serve [-addr host:port]")
	fmt.Fprintln(os.Stderr, "    serve the diagnostics HTTP API")
	fmt.Fprintln(os.Stderr, "  repl")
	fmt.Fprintln(os.Stderr, "    start an interactive session")
	fmt.Fprintln(os.Stderr, "  lsp")
	fmt.Fprintln(os.Stderr, "    start the language server on stdio")
}

type flagErrorSink struct{}

func (flagErrorSink) Write(p []byte) (int, error) {
	return len(p), nil
}
