package main

import (
	"flag"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/mgomes/quillscript/quill"
)

type sourceRequest struct {
	Source string `json:"source"`
}

type tokenView struct {
	Type    string `json:"type"`
	Literal string `json:"literal"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
}

type tokensResponse struct {
	Tokens      []tokenView        `json:"tokens"`
	Diagnostics []quill.Diagnostic `json:"diagnostics"`
}

type astResponse struct {
	AST         string             `json:"ast"`
	Diagnostics []quill.Diagnostic `json:"diagnostics"`
}

type checkResponse struct {
	OK          bool               `json:"ok"`
	Diagnostics []quill.Diagnostic `json:"diagnostics"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func serveCommand(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	addr := fs.String("addr", "127.0.0.1:7411", "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	app := newDiagnosticsServer()
	fmt.Printf("quill diagnostics listening on %s\n", *addr)
	return app.Listen(*addr)
}

// newDiagnosticsServer exposes lexing, parsing and linting over HTTP. Nothing
// submitted is ever evaluated.
func newDiagnosticsServer() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "quill",
		DisableStartupMessage: true,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})
	app.Use(recover.New())

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	api := app.Group("/v1")
	api.Post("/tokens", func(c *fiber.Ctx) error {
		source, ok, err := bindSource(c)
		if !ok {
			return err
		}
		report := quill.Diagnose(source)
		tokens := make([]tokenView, 0, len(report.Tokens))
		for _, tok := range report.Tokens {
			tokens = append(tokens, tokenView{Type: tok.Type.Name(), Literal: tok.Literal, Line: tok.Pos.Line, Column: tok.Pos.Column})
		}
		return c.JSON(tokensResponse{Tokens: tokens, Diagnostics: nonNil(report.Diagnostics)})
	})
	api.Post("/ast", func(c *fiber.Ctx) error {
		source, ok, err := bindSource(c)
		if !ok {
			return err
		}
		report := quill.Diagnose(source)
		resp := astResponse{Diagnostics: nonNil(report.Diagnostics)}
		if report.Program != nil {
			resp.AST = quill.DumpAST(report.Program)
		}
		status := fiber.StatusOK
		if report.HasErrors() {
			status = fiber.StatusUnprocessableEntity
		}
		return c.Status(status).JSON(resp)
	})
	api.Post("/check", func(c *fiber.Ctx) error {
		source, ok, err := bindSource(c)
		if !ok {
			return err
		}
		report := quill.Diagnose(source)
		return c.JSON(checkResponse{OK: !report.HasErrors(), Diagnostics: nonNil(report.Diagnostics)})
	})
	return app
}

// bindSource decodes the request body. When ok is false a 400 response has
// been written and err is the result of writing it.
func bindSource(c *fiber.Ctx) (source string, ok bool, err error) {
	var req sourceRequest
	if err := c.BodyParser(&req); err != nil {
		return "", false, c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid request body: " + err.Error()})
	}
	return req.Source, true, nil
}

func nonNil(diags []quill.Diagnostic) []quill.Diagnostic {
	if diags == nil {
		return []quill.Diagnostic{}
	}
	return diags
}
