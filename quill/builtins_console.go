package quill

import "strings"

var consoleLevels = []string{"log", "info", "warn", "error", "debug"}

func (r *realm) installConsole() {
	console := newObject(r.objectPrototype)
	r.defineGlobal("console", NewObjectValue(console))
	for _, level := range consoleLevels {
		r.method(console, level, 0, func(exec *Execution, this Value, args []Value) (Value, error) {
			exec.context.emit(level, renderConsoleArgs(args))
			return Value{}, nil
		})
	}
}

// renderConsoleArgs joins arguments with spaces; strings print raw and
// everything else in inspection form.
func renderConsoleArgs(args []Value) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = arg.inspect(0, nil)
	}
	return strings.Join(parts, " ")
}

// emit routes console output to the configured sink, or to the engine
// logger tagged with the run id.
func (c *Context) emit(level, message string) {
	if sink := c.engine.config.LogSink; sink != nil {
		sink(level, message)
		return
	}
	switch level {
	case "error":
		c.logger.Error().Str("run", c.runID).Msg(message)
	case "warn":
		c.logger.Warn().Str("run", c.runID).Msg(message)
	case "debug":
		c.logger.Debug().Str("run", c.runID).Msg(message)
	default:
		c.logger.Info().Str("run", c.runID).Msg(message)
	}
}
