package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mgomes/quillscript/quill"
	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML form of quill.Config accepted by -config.
type fileConfig struct {
	RecursionLimit int  `yaml:"recursion_limit"`
	StepQuota      int  `yaml:"step_quota"`
	Strict         bool `yaml:"strict"`
	CacheSize      int  `yaml:"cache_size"`
}

// loadConfig reads path into an engine config. An empty path yields the
// engine defaults.
func loadConfig(path string) (quill.Config, error) {
	if path == "" {
		return quill.Config{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return quill.Config{}, fmt.Errorf("read config: %w", err)
	}
	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return quill.Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if fc.RecursionLimit < 0 {
		return quill.Config{}, fmt.Errorf("config %s: recursion_limit must not be negative", path)
	}
	if fc.StepQuota < 0 {
		return quill.Config{}, fmt.Errorf("config %s: step_quota must not be negative", path)
	}
	return quill.Config{
		RecursionLimit: fc.RecursionLimit,
		StepQuota:      fc.StepQuota,
		StrictMode:     fc.Strict,
		CacheSize:      fc.CacheSize,
	}, nil
}
