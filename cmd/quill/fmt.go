package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mgomes/quillscript/quill"
)

var scriptExtensions = map[string]bool{".js": true, ".mjs": true, ".quill": true}

func fmtCommand(args []string) error {
	flags := flag.NewFlagSet("fmt", flag.ContinueOnError)
	flags.SetOutput(new(flagErrorSink))
	write := flags.Bool("w", false, "write result to source files instead of stdout")
	check := flags.Bool("check", false, "fail if any source file needs formatting")
	if err := flags.Parse(args); err != nil {
		return err
	}

	targets := flags.Args()
	if len(targets) == 0 {
		return errors.New("quill fmt: path required")
	}

	files, err := collectScriptFiles(targets)
	if err != nil {
		return err
	}

	changedCount := 0
	for _, path := range files {
		originalBytes, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		original := string(originalBytes)
		formatted := formatScriptSource(original)
		changed := formatted != original
		if changed {
			changedCount++
		}

		switch {
		case *write && changed:
			// Files that do not lex are left untouched.
			if _, err := quill.Tokenize(formatted); err != nil {
				return fmt.Errorf("quill fmt: %s: %w", path, err)
			}
			info, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("stat %s: %w", path, err)
			}
			if err := os.WriteFile(path, []byte(formatted), info.Mode().Perm()); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
		case !*write && !*check:
			fmt.Print(formatted)
		}
	}

	if *check && changedCount > 0 {
		return fmt.Errorf("quill fmt: %d file(s) need formatting", changedCount)
	}
	return nil
}

// collectScriptFiles expands targets into sorted absolute script paths.
// Directories are walked recursively; explicit file targets are kept
// whatever their extension.
func collectScriptFiles(targets []string) ([]string, error) {
	seen := make(map[string]struct{})
	files := make([]string, 0)
	addFile := func(path string) {
		abs, err := filepath.Abs(path)
		if err != nil {
			return
		}
		if _, ok := seen[abs]; ok {
			return
		}
		seen[abs] = struct{}{}
		files = append(files, abs)
	}

	for _, target := range targets {
		info, err := os.Stat(target)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", target, err)
		}
		if !info.IsDir() {
			addFile(target)
			continue
		}
		err = filepath.WalkDir(target, func(path string, entry fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if entry.IsDir() {
				if path != target && (strings.HasPrefix(entry.Name(), ".") || entry.Name() == "node_modules") {
					return filepath.SkipDir
				}
				return nil
			}
			if scriptExtensions[filepath.Ext(path)] {
				addFile(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", target, err)
		}
	}

	sort.Strings(files)
	return files, nil
}

// formatScriptSource normalizes line endings, strips trailing whitespace and
// ends the file with exactly one newline.
func formatScriptSource(source string) string {
	normalized := strings.ReplaceAll(source, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	lines := strings.Split(normalized, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}

	joined := strings.Join(lines, "\n")
	joined = strings.TrimRight(joined, "\n")
	return joined + "\n"
}
