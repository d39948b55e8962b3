package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/mgomes/quillscript/host"
	"github.com/mgomes/quillscript/quill"
)

func previewCommand(args []string) error {
	fs := flag.NewFlagSet("preview", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	configPath := fs.String("config", "", "YAML engine configuration file")
	output := fs.String("o", "", "write the resulting HTML to this file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("quill preview: page path required")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	cfg.LogSink = func(level, message string) {
		fmt.Fprintf(os.Stderr, "console.%s: %s\n", level, message)
	}
	page, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("read page: %w", err)
	}
	engine, err := quill.NewEngine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	bridge := host.NewBridge().MustRegister("alert", func(call host.Call) (quill.Value, error) {
		fmt.Fprintf(os.Stderr, "alert: %s\n", call.Arg(0).String())
		return quill.Undefined(), nil
	}).MustRegisterEvents("events", host.PublisherFunc(func(ctx context.Context, event host.Event) (any, error) {
		payload, err := json.Marshal(event.Payload)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(os.Stderr, "event %s: %s\n", event.Topic, payload)
		return nil, nil
	}))
	result, err := host.Preview(context.Background(), engine, string(page), bridge)
	if err != nil {
		return err
	}
	for _, script := range result.Scripts {
		if script.Err != nil {
			fmt.Fprintf(os.Stderr, "script %d: %v\n", script.Index, script.Err)
		}
	}

	if *output != "" {
		if err := os.WriteFile(*output, []byte(result.HTML), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", *output, err)
		}
	} else {
		fmt.Print(result.HTML)
	}
	if result.Failed() {
		return errors.New("quill preview: one or more scripts failed")
	}
	return nil
}
