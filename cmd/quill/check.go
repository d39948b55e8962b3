package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/mgomes/quillscript/quill"
)

// checkCommand reports syntax errors and lint warnings for every script under
// the given paths without running anything.
func checkCommand(args []string) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("quill check: script path required")
	}

	files, err := collectScriptFiles(fs.Args())
	if err != nil {
		return err
	}

	issues := 0
	for _, path := range files {
		input, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read script: %w", err)
		}
		report := quill.Diagnose(string(input))
		for _, d := range report.Diagnostics {
			issues++
			line := max(d.Line, 1)
			column := max(d.Column, 1)
			fmt.Printf("%s:%d:%d: %s: %s\n", path, line, column, d.Severity, d.Message)
		}
	}

	if issues == 0 {
		fmt.Println("No issues found")
		return nil
	}
	return fmt.Errorf("check found %d issue(s)", issues)
}
